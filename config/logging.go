package config

import "go.uber.org/zap/zapcore"

// LogEncoder defines a log encoder kind.
type LogEncoder = string

const (
	defaultLoggingLevel = zapcore.InfoLevel
	// ConsoleLogEncoder represents logging with plain text.
	ConsoleLogEncoder LogEncoder = "console"
	// JSONLogEncoder represents logging with JSON.
	JSONLogEncoder LogEncoder = "json"
)

// LoggerConfig holds the logging level for each module.
type LoggerConfig struct {
	Encoder             LogEncoder `mapstructure:"log-encoder"`
	AppLoggerLevel      string     `mapstructure:"app"`
	SourceLoggerLevel   string     `mapstructure:"source"`
	NormalizerLevel     string     `mapstructure:"normalizer"`
	PeerListLoggerLevel string     `mapstructure:"peerlist"`
	StoreLoggerLevel    string     `mapstructure:"store"`
}

func defaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:             ConsoleLogEncoder,
		AppLoggerLevel:      defaultLoggingLevel.String(),
		SourceLoggerLevel:   defaultLoggingLevel.String(),
		NormalizerLevel:     zapcore.WarnLevel.String(),
		PeerListLoggerLevel: defaultLoggingLevel.String(),
		StoreLoggerLevel:    zapcore.WarnLevel.String(),
	}
}

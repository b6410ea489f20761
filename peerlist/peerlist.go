// Package peerlist parses externally published peer lists into identifier sets.
package peerlist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"

	"github.com/spacemeshos/noderecon/common/types"
	"github.com/spacemeshos/noderecon/compare"
)

// Format of a peer list row.
type Format uint8

const (
	// Whitespace rows use the first token as identifier.
	Whitespace Format = iota
	// Comma rows use the second field as identifier.
	Comma
	// Pipe rows are written by the web crawler, one table row per line.
	// The identifier column is configurable.
	Pipe
)

// DefaultPipeColumn is the host column of crawled node tables.
const DefaultPipeColumn = 1

// maxLineSize bounds a single row.
const maxLineSize = 1 << 20

func (f Format) String() string {
	switch f {
	case Whitespace:
		return "whitespace"
	case Comma:
		return "comma"
	case Pipe:
		return "pipe"
	}
	return fmt.Sprintf("format(%d)", uint8(f))
}

// ParseFormat converts a configured format name. Empty name selects Whitespace.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "whitespace":
		return Whitespace, nil
	case "comma", "csv":
		return Comma, nil
	case "pipe":
		return Pipe, nil
	}
	return 0, fmt.Errorf("unknown peer list format %q", name)
}

// List is a parsed peer list.
type List struct {
	IDs types.IdentifierSet
	// Rows is the number of non-empty rows.
	Rows int
	// Skipped rows had no identifier in the expected field.
	Skipped int
}

// Parse reads rows from r and extracts one normalized identifier per row.
// Empty rows and rows starting with '#' are ignored. column is used only
// with the Pipe format.
func Parse(r io.Reader, format Format, column int) (*List, error) {
	if format == Pipe && column < 0 {
		return nil, fmt.Errorf("negative column %d", column)
	}
	list := &List{IDs: types.NewIdentifierSet()}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list.Rows++
		id := compare.NormalizeIdentifier(field(line, format, column))
		if id == "" {
			list.Skipped++
			continue
		}
		list.IDs.Add(id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return list, nil
}

func field(line string, format Format, column int) string {
	var fields []string
	switch format {
	case Whitespace:
		fields, column = strings.Fields(line), 0
	case Comma:
		fields, column = strings.Split(line, ","), 1
	case Pipe:
		fields = strings.Split(line, "|")
	}
	if column >= len(fields) {
		return ""
	}
	return fields[column]
}

// Load parses a peer list file.
func Load(fs afero.Fs, path string, format Format, column int) (*List, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open peer list: %w", err)
	}
	defer f.Close()
	list, err := Parse(f, format, column)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return list, nil
}

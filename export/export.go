// Package export writes reconciliation outputs for external consumers.
// Files are replaced atomically so readers never observe partial output.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/natefinch/atomic"

	"github.com/spacemeshos/noderecon/common/types"
)

// Columns written before the pass-through attributes.
var baseColumns = []string{
	types.FieldID,
	types.FieldIP,
	types.FieldLastTime,
	types.FieldIsInbound,
	types.FieldIsDyndial,
}

// WriteCSV writes one row per record. Pass-through attributes follow the
// canonical columns in lexicographic order; missing values are empty.
func WriteCSV(path string, c types.Collection) error {
	attrs := make(map[string]struct{})
	for i := range c.Records {
		for key := range c.Records[i].Attrs {
			attrs[key] = struct{}{}
		}
	}
	extra := slices.Sorted(maps.Keys(attrs))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(append(slices.Clone(baseColumns), extra...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(baseColumns)+len(extra))
	for i := range c.Records {
		r := &c.Records[i]
		row[0] = r.ID
		row[1] = r.IP
		row[2] = ""
		if r.HasTime {
			row[2] = r.LastTime.Format(time.RFC3339Nano)
		}
		row[3] = strconv.FormatBool(r.IsInbound)
		row[4] = strconv.FormatBool(r.IsDyndial)
		for j, key := range extra {
			row[len(baseColumns)+j] = cell(r.Attrs[key])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(append(data, '\n'))); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

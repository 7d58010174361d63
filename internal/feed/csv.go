// Package feed serves the change-events CSV written by the market watcher
// as the JSON array the poller consumes.
package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/camuig/pankou/internal/changes"
)

// ErrNotFound is returned when the CSV file does not exist yet.
var ErrNotFound = errors.New("CSV file not found")

const (
	colSector  = "板块名称"
	colTime    = "时间"
	colName    = "名称"
	colChange  = "四舍五入取整"
	colType    = "类型"
	colSession = "上下午"
)

var requiredColumns = []string{colSector, colTime, colName, colChange, colType, colSession}

func LoadCSV(path string) ([]changes.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV decodes a header row followed by event rows. Columns may come in
// any order and unknown columns are ignored. Blank cells decode as empty
// strings, or as a null change for the magnitude column.
func ReadCSV(r io.Reader) ([]changes.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return []changes.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[h] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	events := []changes.Event{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}

		cell := func(col string) string {
			i := idx[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		ev := changes.Event{
			Sector:  cell(colSector),
			Time:    cell(colTime),
			Name:    cell(colName),
			Type:    cell(colType),
			Session: cell(colSession),
		}
		if raw := cell(colChange); raw != "" {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: parse %s %q: %w", line, colChange, raw, err)
			}
			ev.Change = changes.Magnitude{NullDecimal: decimal.NewNullDecimal(d)}
		}
		events = append(events, ev)
	}
	return events, nil
}

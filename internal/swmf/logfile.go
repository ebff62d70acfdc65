package swmf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Time component columns a GM log must carry for time indexing.
var logTimeColumns = []string{"year", "mo", "dy", "hr", "mn", "sc"}

// LogOptions controls GM log parsing.
type LogOptions struct {
	// Columns overrides the names read from the second header line. The
	// header line is skipped either way.
	Columns []string

	// IndexByTime assembles a timestamp per row from the year/mo/dy/
	// hr/mn/sc columns. The component columns stay in the table.
	IndexByTime bool
}

// DefaultLogOptions returns the usual settings: names from the file,
// rows indexed by time.
func DefaultLogOptions() LogOptions {
	return LogOptions{IndexByTime: true}
}

// LogTable holds a parsed GM log: named float64 columns, row-major,
// optionally with a timestamp per row.
type LogTable struct {
	ColumnNames []string
	Times       []time.Time // nil when not indexed by time
	rows        [][]float64
	colIdx      map[string]int
}

// Len returns the number of data rows.
func (t *LogTable) Len() int { return len(t.rows) }

// Row returns row i as a slice aligned with ColumnNames. The slice is
// live table storage.
func (t *LogTable) Row(i int) []float64 { return t.rows[i] }

// Column returns a copy of the named column.
func (t *LogTable) Column(name string) ([]float64, error) {
	idx, ok := t.colIdx[name]
	if !ok {
		return nil, fmt.Errorf("no such column %q", name)
	}
	out := make([]float64, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Value returns the cell at row i of the named column.
func (t *LogTable) Value(i int, name string) (float64, error) {
	idx, ok := t.colIdx[name]
	if !ok {
		return 0, fmt.Errorf("no such column %q", name)
	}
	return t.rows[i][idx], nil
}

// ReadLog parses a GM model log: a title line, a line of whitespace
// separated column names, then rows of whitespace separated numbers, one
// value per named column. Geomagnetic index logs (geoindex_*.log) and Dst
// logs (log_*.log) both follow this layout.
func ReadLog(r io.Reader, opts LogOptions) (*LogTable, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty input: missing title line")
	}
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("missing column header line")
	}
	names := opts.Columns
	if len(names) == 0 {
		names = strings.Fields(scanner.Text())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no column names on header line")
	}

	table := &LogTable{
		ColumnNames: names,
		colIdx:      make(map[string]int, len(names)),
	}
	for i, name := range names {
		if _, ok := table.colIdx[name]; !ok {
			table.colIdx[name] = i
		}
	}

	lineNum := 2
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		tokens := strings.Fields(line)
		if len(tokens) != len(names) {
			return nil, fmt.Errorf("line %d: got %d columns, want %d", lineNum, len(tokens), len(names))
		}
		row := make([]float64, len(tokens))
		for i, tok := range tokens {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: invalid value %q", lineNum, names[i], tok)
			}
			row[i] = v
		}
		table.rows = append(table.rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if opts.IndexByTime {
		if err := table.indexByTime(); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// ReadLogFile opens path and parses it with ReadLog.
func ReadLogFile(path string, opts LogOptions) (*LogTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log %s: %w", path, err)
	}
	defer f.Close()

	table, err := ReadLog(f, opts)
	if err != nil {
		return nil, fmt.Errorf("reading log %s: %w", path, err)
	}
	return table, nil
}

// indexByTime fills Times from the year/mo/dy/hr/mn/sc columns. Seconds
// may carry a fractional part.
func (t *LogTable) indexByTime() error {
	idx := make([]int, len(logTimeColumns))
	for i, name := range logTimeColumns {
		col, ok := t.colIdx[name]
		if !ok {
			return fmt.Errorf("time index requires column %q", name)
		}
		idx[i] = col
	}

	t.Times = make([]time.Time, len(t.rows))
	for i, row := range t.rows {
		sec := row[idx[5]]
		whole := int(sec)
		nsec := int((sec - float64(whole)) * float64(time.Second))
		t.Times[i] = time.Date(
			int(row[idx[0]]), time.Month(row[idx[1]]), int(row[idx[2]]),
			int(row[idx[3]]), int(row[idx[4]]), whole, nsec, time.UTC)
	}
	return nil
}

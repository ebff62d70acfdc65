// Package solarwind provides solar-wind data processing utilities.
// This file contains the OMNI CSV codec (cdaweb export format).
package solarwind

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CSV Format Constants
// =============================================================================

const (
	// Error throttling: don't spam logs with parse errors
	MaxErrorsToLog = 10

	// CSV column indices (cdaweb OMNI export format)
	ColTime        = 0
	ColBx          = 1
	ColBy          = 2
	ColBz          = 3
	ColVx          = 4
	ColVy          = 5
	ColVz          = 6
	ColDensity     = 7
	ColTemperature = 8

	// NumCSVColumns is the column count of a valid record.
	NumCSVColumns = 9
)

// csvColumnNames is the canonical header, matching the cdaweb export
// column titles.
var csvColumnNames = []string{
	"Time",
	"Bx [nT]", "By [nT]", "Bz [nT]",
	"Vx [km/s]", "Vy [km/s]", "Vz [km/s]",
	"Rho [n/cc]", "T [K]",
}

// Timestamp layouts accepted in the time column. Fractional seconds are
// accepted after any seconds field.
var csvTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// =============================================================================
// Read Options
// =============================================================================

// CSVOptions controls the cleaning passes applied after parsing.
type CSVOptions struct {
	Clean      bool    // Physical threshold pass (default on)
	Filter     bool    // Statistical outlier pass (default off)
	Coarseness float64 // Outlier cut in sigmas above the mean of magnitudes
}

// DefaultCSVOptions returns the default read options: clean on, outlier
// filtering off, coarseness 3.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Clean: true, Filter: false, Coarseness: DefaultCoarseness}
}

// =============================================================================
// Reader
// =============================================================================

// ReadCSV parses an OMNI CSV export into a Table.
//
// The input is comma-separated with exactly one header line (skipped
// unexamined) and nine columns per record:
//
//	Time, Bx, By, Bz (nT), Vx, Vy, Vz (km/s), density (n/cc), temperature (K)
//
// After parsing, the threshold clean (opts.Clean) and outlier filter
// (opts.Filter) run in that order, then gaps are filled, so the returned
// table has no missing cells. Empty cells in the source parse as missing.
// Timestamps must be strictly increasing.
//
// stats may be nil.
func ReadCSV(reader io.Reader, opts CSVOptions, stats *ParseStats) (*Table, error) {
	if stats == nil {
		stats = &ParseStats{}
	}

	csvReader := csv.NewReader(reader)
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1 // tolerate ragged trailing columns

	// Exactly one header line
	if _, err := csvReader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty input: missing header line")
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	table := NewTable(0)
	errorCount := 0
	var prev time.Time

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.FailedRows++
			errorCount++
			if errorCount <= MaxErrorsToLog {
				log.Printf("CSV read error (row %d): %v", stats.TotalRowsRead, err)
			}
			continue
		}

		stats.TotalRowsRead++

		if len(record) == 0 || (len(record) == 1 && record[0] == "") {
			stats.SkippedEmptyRows++
			continue
		}

		rec, err := parseCSVRecord(record, stats)
		if err != nil {
			stats.FailedRows++
			errorCount++
			if errorCount <= MaxErrorsToLog {
				log.Printf("Parse error (row %d): %v", stats.TotalRowsRead, err)
			}
			continue
		}

		if table.Len() > 0 && !rec.Time.After(prev) {
			return nil, fmt.Errorf("row %d: timestamp %s not after %s",
				stats.TotalRowsRead, rec.Time.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = rec.Time

		stats.SuccessfullyParsed++
		table.Append(rec)
	}

	if errorCount > MaxErrorsToLog {
		log.Printf("... and %d more parse errors (suppressed)", errorCount-MaxErrorsToLog)
	}

	if opts.Clean {
		table.Clean()
	}
	if opts.Filter {
		table.FilterOutliers(opts.Coarseness)
	}
	if _, err := table.Fill(); err != nil {
		return nil, err
	}

	return table, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string, opts CSVOptions, stats *ParseStats) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	table, err := ReadCSV(f, opts, stats)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return table, nil
}

// parseCSVRecord parses one CSV record into a Record.
func parseCSVRecord(record []string, stats *ParseStats) (Record, error) {
	if len(record) < NumCSVColumns {
		return Record{}, fmt.Errorf("insufficient columns: got %d, need %d", len(record), NumCSVColumns)
	}

	ts, err := parseCSVTime(record[ColTime])
	if err != nil {
		return Record{}, fmt.Errorf("invalid timestamp %q: %w", record[ColTime], err)
	}

	rec := Record{Time: ts}
	for i, f := range Fields() {
		cell, err := parseCell(record[ColBx+i])
		if err != nil {
			return Record{}, fmt.Errorf("invalid %s value: %w", f, err)
		}
		if !cell.OK {
			stats.MissingValueCells++
		}
		rec.Set(f, cell)
	}
	return rec, nil
}

// parseCSVTime tries the accepted layouts in order. Layouts without a zone
// parse as UTC.
func parseCSVTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range csvTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parseCell parses one numeric cell. Empty cells are missing, not zero.
func parseCell(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Missing, err
	}
	return Some(v), nil
}

// =============================================================================
// Writer
// =============================================================================

// WriteCSV serializes a table in the same nine-column layout ReadCSV
// accepts: one header line, then full-precision records. Missing cells
// are written as empty fields so a round trip preserves them.
func WriteCSV(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(strings.Join(csvColumnNames, ",") + "\n"); err != nil {
		return err
	}

	fields := make([]string, NumCSVColumns)
	for i := 0; i < t.Len(); i++ {
		rec := t.Record(i)
		fields[ColTime] = rec.Time.Format("2006-01-02 15:04:05.000")
		for j, f := range Fields() {
			cell := rec.Get(f)
			if cell.OK {
				fields[ColBx+j] = strconv.FormatFloat(cell.V, 'g', -1, 64)
			} else {
				fields[ColBx+j] = ""
			}
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteCSVFile writes the table to path with WriteCSV.
func WriteCSVFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

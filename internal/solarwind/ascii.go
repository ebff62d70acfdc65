package solarwind

// ascii.go - SPDF OMNI high-resolution ASCII codec
//
// Parses the monthly omni_min<yyyy><mm>.asc archive files served by SPDF.
// One line per minute, whitespace-delimited:
//
//	Col 0: Year
//	Col 1: Day of year (1-366)
//	Col 2: Hour
//	Col 3: Minute
//	Col 4-36: the 33 physical quantities cataloged in columns.go
//
// Fill sentinels become missing cells at parse time.

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ASCIIRecord is one parsed archive line: a minute timestamp plus all 33
// quantities, with fill sentinels already converted to missing cells.
type ASCIIRecord struct {
	Time       time.Time
	Quantities [NumQuantities]Value
}

// SimRecord projects the record onto the eight simulation input fields
// (GSM field components, GSE velocity, density, temperature).
func (r *ASCIIRecord) SimRecord() Record {
	rec := Record{Time: r.Time}
	for _, f := range Fields() {
		rec.Set(f, r.Quantities[SimQuantity(f)])
	}
	return rec
}

// ParseASCIILine parses one archive line.
func ParseASCIILine(line string) (ASCIIRecord, error) {
	fields := strings.Fields(line)
	if len(fields) < TimeColumns+NumQuantities {
		return ASCIIRecord{}, fmt.Errorf("short record: got %d columns, need %d",
			len(fields), TimeColumns+NumQuantities)
	}

	year, err := strconv.Atoi(fields[0])
	if err != nil || year < 1900 || year > 2100 {
		return ASCIIRecord{}, fmt.Errorf("invalid year %q", fields[0])
	}
	doy, err := strconv.Atoi(fields[1])
	if err != nil || doy < 1 || doy > 366 {
		return ASCIIRecord{}, fmt.Errorf("invalid day of year %q", fields[1])
	}
	hour, err := strconv.Atoi(fields[2])
	if err != nil || hour < 0 || hour > 23 {
		return ASCIIRecord{}, fmt.Errorf("invalid hour %q", fields[2])
	}
	minute, err := strconv.Atoi(fields[3])
	if err != nil || minute < 0 || minute > 59 {
		return ASCIIRecord{}, fmt.Errorf("invalid minute %q", fields[3])
	}

	rec := ASCIIRecord{
		Time: time.Date(year, time.January, 1, hour, minute, 0, 0, time.UTC).
			AddDate(0, 0, doy-1),
	}

	for i := 0; i < NumQuantities; i++ {
		v, err := strconv.ParseFloat(fields[TimeColumns+i], 64)
		if err != nil {
			return ASCIIRecord{}, fmt.Errorf("column %d (%s): %w",
				TimeColumns+i, quantities[i].Name, err)
		}
		if IsFill(i, v) {
			rec.Quantities[i] = Missing
		} else {
			rec.Quantities[i] = Some(v)
		}
	}

	return rec, nil
}

// ReadASCII parses archive lines into a simulation-field Table, keeping
// only rows inside window (an unset window keeps everything). The raw
// archive is already cleaned of fill sentinels here; the threshold and
// outlier passes still apply afterwards if wanted. Fails on the first
// malformed line. stats may be nil.
func ReadASCII(reader io.Reader, window TimeWindow, stats *ParseStats) (*Table, error) {
	if stats == nil {
		stats = &ParseStats{}
	}

	table := NewTable(0)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	var prev time.Time
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			stats.SkippedEmptyRows++
			continue
		}
		stats.TotalRowsRead++

		rec, err := ParseASCIILine(line)
		if err != nil {
			stats.FailedRows++
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if !window.IsZero() && !window.Contains(rec.Time) {
			stats.OutOfWindowRows++
			continue
		}
		if table.Len() > 0 && !rec.Time.After(prev) {
			return nil, fmt.Errorf("line %d: timestamp %s not after %s",
				lineNo, rec.Time.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = rec.Time

		sim := rec.SimRecord()
		for _, f := range Fields() {
			if !sim.Get(f).OK {
				stats.MissingValueCells++
			}
		}
		stats.SuccessfullyParsed++
		table.Append(sim)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}

	return table, nil
}

// ReadASCIIFile opens path and parses it with ReadASCII.
func ReadASCIIFile(path string, window TimeWindow, stats *ParseStats) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	table, err := ReadASCII(f, window, stats)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return table, nil
}

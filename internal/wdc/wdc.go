// Package wdc reads auroral electrojet index files published by the
// World Data Center for Geomagnetism, Kyoto (wdc.kugi.kyoto-u.ac.jp).
// One file carries minute values for up to four index series: AL, AE,
// AO and AU.
package wdc

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// IndexIDs lists the series identifiers a WDC auroral electrojet file
// may carry, in conventional order.
var IndexIDs = []string{"AL", "AE", "AO", "AU"}

// Sample is one minute of one auroral electrojet index, in nT.
type Sample struct {
	Time  time.Time
	Value int
}

// IndexSeries holds the four electrojet index series of one file. Each
// slice is in file order; a file usually interleaves its series hour by
// hour.
type IndexSeries struct {
	AL []Sample
	AE []Sample
	AO []Sample
	AU []Sample
}

// ByID returns the series for one of the identifiers in IndexIDs, or nil
// for anything else.
func (s *IndexSeries) ByID(id string) []Sample {
	switch id {
	case "AL":
		return s.AL
	case "AE":
		return s.AE
	case "AO":
		return s.AO
	case "AU":
		return s.AU
	}
	return nil
}

// Total returns the number of samples across all four series.
func (s *IndexSeries) Total() int {
	return len(s.AL) + len(s.AE) + len(s.AO) + len(s.AU)
}

func (s *IndexSeries) add(id string, smp Sample) {
	switch id {
	case "AL":
		s.AL = append(s.AL, smp)
	case "AE":
		s.AE = append(s.AE, smp)
	case "AO":
		s.AO = append(s.AO, smp)
	case "AU":
		s.AU = append(s.AU, smp)
	}
}

const (
	codeLength      = 11 // length of the date/identifier field
	valuesPerLine   = 60 // one value per minute of the hour
	firstValueToken = 3  // whitespace token index of minute 00
)

// Read parses WDC auroral electrojet minute data. Every line carries one
// hour of one index series:
//
//	token 0: data type tag
//	token 1: date/identifier code, 11 characters
//	         [0:6]  date as yymmdd
//	         [6]    format digit, ignored
//	         [7:9]  hour of day, 00-23
//	         [9:11] series identifier, one of AL AE AO AU
//	token 2: edition/station field, ignored
//	token 3 onward: 60 integer minute values in nT
//
// Tokens past the sixty values (the hourly mean) are ignored. A line with
// fewer than 60 values, a malformed code, or an unknown identifier fails
// the whole read. Two-digit years below 69 land in the 2000s.
func Read(r io.Reader) (*IndexSeries, error) {
	series := &IndexSeries{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := parseLine(line, series); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return series, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) (*IndexSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	series, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return series, nil
}

func parseLine(line string, series *IndexSeries) error {
	tokens := strings.Fields(line)
	if len(tokens) < firstValueToken+valuesPerLine {
		return fmt.Errorf("got %d tokens, need at least %d", len(tokens), firstValueToken+valuesPerLine)
	}

	code := tokens[1]
	if len(code) != codeLength {
		return fmt.Errorf("date/identifier code %q: need %d characters", code, codeLength)
	}
	id := code[9:11]
	if !knownID(id) {
		return fmt.Errorf("unknown index identifier %q", id)
	}

	hourStart, err := time.Parse("0601021504", code[0:6]+code[7:9]+"00")
	if err != nil {
		return fmt.Errorf("date/identifier code %q: %w", code, err)
	}

	for minute := 0; minute < valuesPerLine; minute++ {
		tok := tokens[firstValueToken+minute]
		v, err := strconv.Atoi(tok)
		if err != nil {
			return fmt.Errorf("minute %02d: invalid index value %q", minute, tok)
		}
		series.add(id, Sample{
			Time:  hourStart.Add(time.Duration(minute) * time.Minute),
			Value: v,
		})
	}
	return nil
}

func knownID(id string) bool {
	for _, known := range IndexIDs {
		if id == known {
			return true
		}
	}
	return false
}

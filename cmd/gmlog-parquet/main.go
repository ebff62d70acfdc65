// gmlog-parquet - SWMF GM log files to Parquet archive
//
// Converts logfiles written by the SWMF Global Magnetosphere module
// (geoindex/log ASCII tables) into one Parquet file for analytics.
// Output is long form: one row per (time, column, value) cell, so logs
// with different column sets land in the same archive. The six date
// columns are folded into the timestamp and not repeated as cells.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/gmlog-parquet ./cmd/gmlog-parquet

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/parquet-go/parquet-go"

	"github.com/swxlab/swmf-data-apps/internal/swmf"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// LogRow is the Parquet schema: long-form log cells keyed by timestamp.
type LogRow struct {
	Time   int64   `parquet:"time,timestamp"`
	Source string  `parquet:"source_file"`
	Column string  `parquet:"column"`
	Value  float64 `parquet:"value"`
}

// timePartColumns are folded into LogRow.Time during conversion.
var timePartColumns = map[string]bool{
	"year": true, "mo": true, "dy": true, "hr": true, "mn": true, "sc": true,
}

// readLogFile parses one GM log, transparently decompressing .gz.
func readLogFile(path string, opts swmf.LogOptions) (*swmf.LogTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = bufio.NewReaderSize(f, 64*1024)
	if strings.HasSuffix(path, ".gz") {
		gzReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	table, err := swmf.ReadLog(reader, opts)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return table, nil
}

// convertFile appends one log's cells to rows.
func convertFile(path string, opts swmf.LogOptions, rows []LogRow) ([]LogRow, error) {
	table, err := readLogFile(path, opts)
	if err != nil {
		return rows, err
	}

	source := filepath.Base(path)
	source = strings.TrimSuffix(source, ".gz")

	for i := 0; i < table.Len(); i++ {
		ts := table.Times[i].UnixMilli()
		row := table.Row(i)
		for j, name := range table.ColumnNames {
			if timePartColumns[name] {
				continue
			}
			rows = append(rows, LogRow{
				Time:   ts,
				Source: source,
				Column: name,
				Value:  row[j],
			})
		}
	}
	return rows, nil
}

func main() {
	input := flag.String("input", "", "GM log file or glob (e.g. 'run/GM/IO2/log_*.log')")
	output := flag.String("output", "gmlog.parquet", "Parquet output path")
	columns := flag.String("columns", "", "Space-separated column names overriding the log header")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "gmlog-parquet v%s — SWMF GM Log to Parquet\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [FILE...]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -input 'run/GM/IO2/geoindex_*.log' -output geoindex.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -output storm.parquet log_e20140215-100500.log\n", os.Args[0])
	}
	flag.Parse()

	var files []string
	if *input != "" {
		matches, err := filepath.Glob(*input)
		if err != nil {
			log.Fatalf("Bad -input pattern: %v", err)
		}
		files = append(files, matches...)
	}
	files = append(files, flag.Args()...)
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "gmlog-parquet: no input files")
		flag.Usage()
		os.Exit(2)
	}
	sort.Strings(files)

	opts := swmf.DefaultLogOptions()
	if *columns != "" {
		opts.Columns = strings.Fields(*columns)
	}

	log.Println("=========================================================")
	log.Printf("gmlog-parquet v%s — SWMF GM Log to Parquet", Version)
	log.Println("=========================================================")
	log.Printf("Files: %d", len(files))

	t0 := time.Now()
	var rows []LogRow
	for _, path := range files {
		before := len(rows)
		var err error
		rows, err = convertFile(path, opts, rows)
		if err != nil {
			log.Fatalf("Conversion failed: %v", err)
		}
		log.Printf("  %s: %d cells", filepath.Base(path), len(rows)-before)
	}
	if len(rows) == 0 {
		log.Fatal("No data rows found")
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("Cannot create %s: %v", *output, err)
	}
	writer := parquet.NewGenericWriter[LogRow](f, parquet.Compression(&parquet.Snappy))
	if _, err := writer.Write(rows); err != nil {
		log.Fatalf("Parquet write failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("Parquet close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Closing %s: %v", *output, err)
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(t0)

	log.Println()
	log.Println("=========================================================")
	log.Println("Conversion Complete")
	log.Println("=========================================================")
	log.Printf("Files:   %d", len(files))
	log.Printf("Cells:   %d", len(rows))
	if info != nil {
		log.Printf("Output:  %s (%.1f KiB)", *output, float64(info.Size())/1024)
	} else {
		log.Printf("Output:  %s", *output)
	}
	log.Printf("Elapsed: %v", elapsed.Round(time.Millisecond))
	log.Println("=========================================================")
}

// omni-export - ClickHouse OMNI archive to CSV / Parquet / IMF.dat
//
// Pulls a time range of the minute-resolution OMNI archive back out of
// ClickHouse as the eight simulation input quantities and writes it as
// an OMNI CSV export, a wide Parquet file, or an SWMF IMF.dat input.
// Reads with FINAL so ReplacingMergeTree re-ingestion duplicates
// collapse to one row per minute.
//
// Missing cells are NaN in the archive; CSV and Parquet preserve them
// (empty field / NaN), the IMF path interpolates them the same way
// imf-convert does.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/omni-export ./cmd/omni-export

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/parquet-go/parquet-go"

	"github.com/swxlab/swmf-data-apps/internal/common"
	"github.com/swxlab/swmf-data-apps/internal/solarwind"
	"github.com/swxlab/swmf-data-apps/internal/swmf"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// timeLayouts accepted by -start and -end.
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTimeArg(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// OmniRow is the wide Parquet schema for -format parquet. Column names
// match the ClickHouse table; missing cells stay NaN.
type OmniRow struct {
	Time        int64   `parquet:"time,timestamp"`
	Bx          float64 `parquet:"bx_gse"`
	By          float64 `parquet:"by_gsm"`
	Bz          float64 `parquet:"bz_gsm"`
	Vx          float64 `parquet:"vx_gse"`
	Vy          float64 `parquet:"vy_gse"`
	Vz          float64 `parquet:"vz_gse"`
	Density     float64 `parquet:"proton_density"`
	Temperature float64 `parquet:"temperature"`
}

// simColumns returns the archive column names of the simulation fields,
// in field order.
func simColumns() []string {
	fields := solarwind.Fields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		q, _ := solarwind.Quantity(solarwind.SimQuantity(f))
		cols[i] = q.Column
	}
	return cols
}

// queryTable reads the range [from, to] into a Table, one record per
// stored minute. NaN cells come back as missing.
func queryTable(ctx context.Context, conn driver.Conn, tableFQN string, from, to time.Time) (*solarwind.Table, error) {
	cols := simColumns()
	query := fmt.Sprintf(
		"SELECT time, %s FROM %s FINAL WHERE time >= ? AND time <= ? ORDER BY time",
		strings.Join(cols, ", "), tableFQN)

	rows, err := conn.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	table := solarwind.NewTable(0)
	var ts time.Time
	vals := make([]float64, len(cols))
	dest := make([]any, 0, len(cols)+1)
	dest = append(dest, &ts)
	for i := range vals {
		dest = append(dest, &vals[i])
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		rec := solarwind.Record{Time: ts.UTC()}
		for i, f := range solarwind.Fields() {
			if math.IsNaN(vals[i]) {
				rec.Set(f, solarwind.Missing)
			} else {
				rec.Set(f, solarwind.Some(vals[i]))
			}
		}
		table.Append(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return table, nil
}

func writeParquet(path string, table *solarwind.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	cellOrNaN := func(rec *solarwind.Record, field solarwind.Field) float64 {
		cell := rec.Get(field)
		if !cell.OK {
			return math.NaN()
		}
		return cell.V
	}

	rows := make([]OmniRow, table.Len())
	for i := 0; i < table.Len(); i++ {
		rec := table.Record(i)
		rows[i] = OmniRow{
			Time:        rec.Time.UnixMilli(),
			Bx:          cellOrNaN(&rec, solarwind.FieldBx),
			By:          cellOrNaN(&rec, solarwind.FieldBy),
			Bz:          cellOrNaN(&rec, solarwind.FieldBz),
			Vx:          cellOrNaN(&rec, solarwind.FieldVx),
			Vy:          cellOrNaN(&rec, solarwind.FieldVy),
			Vz:          cellOrNaN(&rec, solarwind.FieldVz),
			Density:     cellOrNaN(&rec, solarwind.FieldDensity),
			Temperature: cellOrNaN(&rec, solarwind.FieldTemperature),
		}
	}

	writer := parquet.NewGenericWriter[OmniRow](f, parquet.Compression(&parquet.Snappy))
	if _, err := writer.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func main() {
	cfg := common.DefaultConfig()

	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse native protocol address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", "omni_1min", "ClickHouse table")
	start := flag.String("start", "", "Range start (e.g. 2014-02-15 or 2014-02-15T04:00:00)")
	end := flag.String("end", "", "Range end (inclusive)")
	format := flag.String("format", "csv", "Output format: csv, parquet or imf")
	output := flag.String("output", "", "Output file path")
	coor := flag.String("coor", "GSM", "Coordinate system for -format imf (GSM or GSE)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "omni-export v%s — OMNI Archive Export\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s -start T -end T -output FILE [OPTIONS]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -start 2014-02-15 -end 2014-02-20 -output storm.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -start 2014-02-15 -end 2014-02-20 -format parquet -output storm.parquet\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -start 2014-02-15T04:00:00 -end 2014-02-18 -format imf -output IMF.dat\n", os.Args[0])
	}
	flag.Parse()

	if *start == "" || *end == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "omni-export: -start, -end and -output are required")
		flag.Usage()
		os.Exit(2)
	}
	from, err := parseTimeArg(*start)
	if err != nil {
		log.Fatalf("Invalid -start: %v", err)
	}
	to, err := parseTimeArg(*end)
	if err != nil {
		log.Fatalf("Invalid -end: %v", err)
	}
	if to.Before(from) {
		log.Fatalf("Range ends %s before it starts %s", *end, *start)
	}
	coords, err := swmf.ParseCoordSystem(*coor)
	if err != nil {
		log.Fatalf("omni-export: %v", err)
	}
	switch *format {
	case "csv", "parquet", "imf":
	default:
		log.Fatalf("Unknown -format %q (want csv, parquet or imf)", *format)
	}

	log.Println("=========================================================")
	log.Printf("omni-export v%s — OMNI Archive Export", Version)
	log.Println("=========================================================")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	log.Printf("Connecting to ClickHouse at %s...", *chHost)
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{*chHost},
		Auth: clickhouse.Auth{
			Database: *chDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 300,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer conn.Close()

	if err := conn.Ping(ctx); err != nil {
		log.Fatalf("ClickHouse ping failed: %v", err)
	}

	tableFQN := fmt.Sprintf("%s.%s", *chDB, *chTable)
	log.Printf("Table: %s", tableFQN)
	log.Printf("Range: %s to %s", from.Format("2006-01-02 15:04"), to.Format("2006-01-02 15:04"))

	t0 := time.Now()
	table, err := queryTable(ctx, conn, tableFQN, from, to)
	if err != nil {
		log.Fatalf("Export query failed: %v", err)
	}
	if table.Len() == 0 {
		log.Fatal("No rows in the requested range")
	}
	log.Printf("Rows: %d (%d missing cells) in %v",
		table.Len(), table.MissingCells(), time.Since(t0).Round(time.Millisecond))

	switch *format {
	case "csv":
		err = solarwind.WriteCSVFile(*output, table)
	case "parquet":
		err = writeParquet(*output, table)
	case "imf":
		removed := table.Clean()
		filled, fillErr := table.Fill()
		if fillErr != nil {
			log.Fatalf("Gap fill failed: %v", fillErr)
		}
		log.Printf("Cleaned: %d cells thresholded, %d cells interpolated", removed, filled)
		err = swmf.WriteIMFFile(*output, table, swmf.IMFOptions{Coords: coords})
	}
	if err != nil {
		log.Fatalf("Write failed: %v", err)
	}

	log.Println()
	log.Println("=========================================================")
	log.Println("Export Complete")
	log.Println("=========================================================")
	log.Printf("Output:  %s (%s)", *output, *format)
	log.Printf("Rows:    %d", table.Len())
	log.Printf("Elapsed: %v", time.Since(t0).Round(time.Millisecond))
	log.Println("=========================================================")
}

// omni-ingest - OMNI minute-resolution archive ingestion into ClickHouse
//
// Reads monthly omni_minYYYYMM.asc files (plain or gzip) as downloaded by
// omni-fetch and inserts all 33 physical quantities into ClickHouse with
// native columnar batches. Fill sentinels become NaN cells so the stored
// data carries the archive's missing-observation structure.
//
// ReplacingMergeTree keyed on time handles re-ingestion of refreshed
// months. Run with -ddl to print the expected table schema.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/omni-ingest ./cmd/omni-ingest

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/klauspost/pgzip"

	"github.com/swxlab/swmf-data-apps/internal/common"
	"github.com/swxlab/swmf-data-apps/internal/solarwind"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const defaultBatchSize = 100000 // flush every 100k rows (~2 months of minutes)

// OMNIBatch holds columnar data for native ClickHouse insert: the
// timestamp, the 33 archive quantities in catalog order, and the source
// file each row came from.
type OMNIBatch struct {
	Time       *proto.ColDateTime
	Qty        [solarwind.NumQuantities]*proto.ColFloat64
	SourceFile *proto.ColStr
}

func NewOMNIBatch() *OMNIBatch {
	b := &OMNIBatch{
		Time:       new(proto.ColDateTime),
		SourceFile: new(proto.ColStr),
	}
	for i := range b.Qty {
		b.Qty[i] = new(proto.ColFloat64)
	}
	return b
}

func (b *OMNIBatch) Reset() {
	b.Time.Reset()
	for i := range b.Qty {
		b.Qty[i].Reset()
	}
	b.SourceFile.Reset()
}

func (b *OMNIBatch) Len() int {
	return b.Time.Rows()
}

func (b *OMNIBatch) Input() proto.Input {
	input := proto.Input{{Name: "time", Data: b.Time}}
	for i, col := range solarwind.QuantityColumns() {
		input = append(input, proto.InputColumn{Name: col, Data: b.Qty[i]})
	}
	return append(input, proto.InputColumn{Name: "source_file", Data: b.SourceFile})
}

func (b *OMNIBatch) AddRow(rec solarwind.ASCIIRecord, source string) {
	b.Time.Append(rec.Time)
	for i := range b.Qty {
		if cell := rec.Quantities[i]; cell.OK {
			b.Qty[i].Append(cell.V)
		} else {
			b.Qty[i].Append(math.NaN())
		}
	}
	b.SourceFile.Append(source)
}

func insertQuery(table string) string {
	cols := append([]string{"time"}, solarwind.QuantityColumns()...)
	cols = append(cols, "source_file")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES", table, strings.Join(cols, ", "))
}

func flushBatch(ctx context.Context, conn *ch.Client, table string, batch *OMNIBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	return conn.Do(ctx, ch.Query{
		Body:  insertQuery(table),
		Input: batch.Input(),
	})
}

// printDDL prints the CREATE TABLE statement matching the batch layout.
func printDDL(db, table string) {
	fmt.Printf("-- omni minute archive, schema v%d\n", solarwind.SchemaVersion)
	fmt.Printf("CREATE TABLE IF NOT EXISTS %s.%s (\n", db, table)
	fmt.Printf("    time DateTime,\n")
	for i := 0; i < solarwind.NumQuantities; i++ {
		q, _ := solarwind.Quantity(i)
		comment := q.Name
		if q.Unit != "" {
			comment += ", " + q.Unit
		}
		fmt.Printf("    %s Float64 COMMENT '%s',\n", q.Column, comment)
	}
	fmt.Printf("    source_file String\n")
	fmt.Printf(") ENGINE = ReplacingMergeTree\n")
	fmt.Printf("PARTITION BY toYYYYMM(time)\n")
	fmt.Printf("ORDER BY time;\n")
}

// discoverFiles finds omni_min archives under dir, sorted by name, which
// is chronological for the published naming scheme.
func discoverFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, "omni_min") &&
			(strings.HasSuffix(base, ".asc") || strings.HasSuffix(base, ".asc.gz")) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ingester carries state across the per-file ingest loop.
type ingester struct {
	conn      *ch.Client
	table     string
	window    solarwind.TimeWindow
	dryRun    bool
	batchSize int
	batch     *OMNIBatch
	stats     *common.Stats

	inserted     int
	parseErrors  int
	missingCells int
	minTime      time.Time
	maxTime      time.Time
}

// ingestFile parses one archive file and feeds the batch, flushing as the
// batch limit is reached. Bad lines are skipped and counted, not fatal;
// a refreshed month occasionally carries a truncated last line.
func (ing *ingester) ingestFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReaderN(f, 256*1024, runtime.NumCPU())
		if err != nil {
			return fmt.Errorf("gzip %s: %w", path, err)
		}
		defer gz.Close()
		reader = gz
	}

	source := filepath.Base(path)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		rec, err := solarwind.ParseASCIILine(line)
		if err != nil {
			ing.parseErrors++
			if ing.parseErrors <= solarwind.MaxErrorsToLog {
				log.Printf("Parse error in %s: %v", source, err)
			}
			continue
		}
		if !ing.window.IsZero() && !ing.window.Contains(rec.Time) {
			continue
		}

		for _, cell := range rec.Quantities {
			if !cell.OK {
				ing.missingCells++
			}
		}
		if ing.minTime.IsZero() || rec.Time.Before(ing.minTime) {
			ing.minTime = rec.Time
		}
		if rec.Time.After(ing.maxTime) {
			ing.maxTime = rec.Time
		}

		ing.batch.AddRow(rec, source)
		ing.stats.AddRows(1)

		if ing.batch.Len() >= ing.batchSize {
			if err := ing.flush(ctx); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if info, err := os.Stat(path); err == nil {
		ing.stats.AddBytes(uint64(info.Size()))
	}
	ing.stats.AddFile()
	return nil
}

func (ing *ingester) flush(ctx context.Context) error {
	n := ing.batch.Len()
	if n == 0 {
		return nil
	}
	if !ing.dryRun {
		if err := flushBatch(ctx, ing.conn, ing.table, ing.batch); err != nil {
			return fmt.Errorf("insert at row %d: %w", ing.inserted, err)
		}
	}
	ing.inserted += n
	ing.batch.Reset()
	return nil
}

func main() {
	cfg := common.DefaultConfig()

	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse native protocol address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", "omni_1min", "ClickHouse table")
	input := flag.String("input", cfg.OMNIDataDir(), "omni_min archive file, or a directory to scan")
	batchSize := flag.Int("batch-size", defaultBatchSize, "Rows per insert batch")
	startStr := flag.String("start", "", "Keep rows from this day on (YYYY-MM-DD)")
	endStr := flag.String("end", "", "Keep rows up to this day, inclusive (YYYY-MM-DD)")
	dryRun := flag.Bool("dry-run", false, "Parse only, no ClickHouse insert")
	quiet := flag.Bool("quiet", false, "Suppress progress reporting")
	showDDL := flag.Bool("ddl", false, "Print CREATE TABLE statement and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "omni-ingest v%s — OMNI Minute Archive Ingestion\n\n", Version)
		fmt.Fprintf(os.Stderr, "Parses omni_minYYYYMM.asc[.gz] files and inserts all %d archive\n", solarwind.NumQuantities)
		fmt.Fprintf(os.Stderr, "quantities into ClickHouse.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [FILE...]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -ddl | clickhouse-client\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -input /var/lib/swmf-data/omni\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dry-run omni_min201402.asc\n", os.Args[0])
	}
	flag.Parse()

	if *showDDL {
		printDDL(*chDB, *chTable)
		return
	}

	log.Println("=========================================================")
	log.Printf("omni-ingest v%s — OMNI Minute Archive Ingestion", Version)
	log.Println("=========================================================")

	var window solarwind.TimeWindow
	if *startStr != "" {
		from, err := time.Parse("2006-01-02", *startStr)
		if err != nil {
			log.Fatalf("Invalid start date: %v", err)
		}
		window.From = from
	}
	if *endStr != "" {
		to, err := time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatalf("Invalid end date: %v", err)
		}
		window.To = to.AddDate(0, 0, 1).Add(-time.Second)
	}
	if !window.IsZero() {
		log.Printf("Window: %s to %s",
			window.From.Format(time.RFC3339), window.To.Format(time.RFC3339))
	}

	files := flag.Args()
	if len(files) == 0 {
		info, err := os.Stat(*input)
		if err != nil {
			log.Fatalf("Cannot access %s: %v", *input, err)
		}
		if info.IsDir() {
			if files, err = discoverFiles(*input); err != nil {
				log.Fatalf("Scanning %s: %v", *input, err)
			}
		} else {
			files = []string{*input}
		}
	}
	if len(files) == 0 {
		log.Fatalf("No omni_min archives found in %s", *input)
	}
	log.Printf("Files: %d archives", len(files))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	if *batchSize <= 0 {
		log.Fatalf("Invalid -batch-size %d", *batchSize)
	}
	ing := &ingester{
		table:     fmt.Sprintf("%s.%s", *chDB, *chTable),
		window:    window,
		dryRun:    *dryRun,
		batchSize: *batchSize,
		batch:     NewOMNIBatch(),
		stats:     common.NewStats(),
	}
	ing.stats.SetSilent(*quiet)

	if *dryRun {
		log.Println("Dry run — no ClickHouse insert")
	} else {
		log.Printf("Connecting to ClickHouse at %s...", *chHost)
		conn, err := ch.Dial(ctx, ch.Options{
			Address:     *chHost,
			Database:    *chDB,
			User:        cfg.ClickHouseUser,
			Password:    cfg.ClickHousePassword,
			Compression: ch.CompressionLZ4,
		})
		if err != nil {
			log.Fatalf("ClickHouse connection failed: %v", err)
		}
		defer conn.Close()
		ing.conn = conn
		log.Printf("Table: %s", ing.table)
	}

	t0 := time.Now()
	ing.stats.StartReporter()

	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		if err := ing.ingestFile(ctx, path); err != nil {
			ing.stats.StopReporter()
			log.Fatalf("Ingest failed: %v", err)
		}
	}

	if err := ing.flush(ctx); err != nil {
		ing.stats.StopReporter()
		log.Fatalf("Final flush failed: %v", err)
	}
	ing.stats.StopReporter()

	elapsed := time.Since(t0)
	rps := float64(ing.inserted) / elapsed.Seconds()

	log.Println()
	log.Println("=========================================================")
	log.Println("Ingest Complete")
	log.Println("=========================================================")
	log.Printf("Files:        %d", ing.stats.Files())
	log.Printf("Rows:         %d", ing.inserted)
	if !ing.minTime.IsZero() {
		log.Printf("Coverage:     %s to %s",
			ing.minTime.Format("2006-01-02 15:04"), ing.maxTime.Format("2006-01-02 15:04"))
	}
	log.Printf("Missing:      %d cells (stored as NaN)", ing.missingCells)
	log.Printf("Parse errors: %d lines skipped", ing.parseErrors)
	log.Printf("Elapsed:      %v", elapsed.Round(time.Millisecond))
	log.Printf("Rate:         %.0f rows/sec", rps)
	log.Println("=========================================================")
	if !*dryRun {
		log.Println()
		log.Printf("Run OPTIMIZE TABLE %s FINAL to merge re-ingested months.", ing.table)
	}
}

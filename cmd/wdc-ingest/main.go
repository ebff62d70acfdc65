// wdc-ingest - WDC auroral electrojet index ingestion into ClickHouse
//
// Parses minute-resolution AE/AL/AO/AU files from the World Data Center
// for Geomagnetism, Kyoto and inserts into ClickHouse with native
// columnar batches. One input line carries one station-hour of one index
// series (60 minute values).
//
// ReplacingMergeTree on (index_id, time) handles re-ingestion of
// provisional data replaced by definitive values.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/wdc-ingest ./cmd/wdc-ingest

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"

	"github.com/swxlab/swmf-data-apps/internal/common"
	"github.com/swxlab/swmf-data-apps/internal/wdc"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

const batchLimit = 50000 // flush every 50k rows (~830 station-hours)

// IndexBatch holds columnar data for native ClickHouse insert.
// Matches schema: ae_indices (time, index_id, value, source_file)
type IndexBatch struct {
	Time       *proto.ColDateTime
	IndexID    *proto.ColStr
	Value      *proto.ColInt32
	SourceFile *proto.ColStr
}

func NewIndexBatch() *IndexBatch {
	return &IndexBatch{
		Time:       new(proto.ColDateTime),
		IndexID:    new(proto.ColStr),
		Value:      new(proto.ColInt32),
		SourceFile: new(proto.ColStr),
	}
}

func (b *IndexBatch) Reset() {
	b.Time.Reset()
	b.IndexID.Reset()
	b.Value.Reset()
	b.SourceFile.Reset()
}

func (b *IndexBatch) Len() int {
	return b.Time.Rows()
}

func (b *IndexBatch) Input() proto.Input {
	return proto.Input{
		{Name: "time", Data: b.Time},
		{Name: "index_id", Data: b.IndexID},
		{Name: "value", Data: b.Value},
		{Name: "source_file", Data: b.SourceFile},
	}
}

func (b *IndexBatch) AddRow(id string, smp wdc.Sample, source string) {
	b.Time.Append(smp.Time)
	b.IndexID.Append(id)
	b.Value.Append(int32(smp.Value))
	b.SourceFile.Append(source)
}

func flushBatch(ctx context.Context, conn *ch.Client, table string, batch *IndexBatch) error {
	if batch.Len() == 0 {
		return nil
	}
	query := fmt.Sprintf("INSERT INTO %s (time, index_id, value, source_file) VALUES", table)
	return conn.Do(ctx, ch.Query{
		Body:  query,
		Input: batch.Input(),
	})
}

func printDDL(db, table string) {
	fmt.Printf("CREATE TABLE IF NOT EXISTS %s.%s (\n", db, table)
	fmt.Printf("    time DateTime,\n")
	fmt.Printf("    index_id String COMMENT 'AL, AE, AO or AU',\n")
	fmt.Printf("    value Int32 COMMENT 'index value, nT',\n")
	fmt.Printf("    source_file String\n")
	fmt.Printf(") ENGINE = ReplacingMergeTree\n")
	fmt.Printf("PARTITION BY toYYYYMM(time)\n")
	fmt.Printf("ORDER BY (index_id, time);\n")
}

// discoverFiles finds WDC files under dir, sorted by name.
func discoverFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".wdc" || ext == ".dat" || ext == ".txt" {
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

func main() {
	cfg := common.DefaultConfig()

	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse native protocol address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", "ae_indices", "ClickHouse table")
	input := flag.String("input", cfg.WDCDataDir(), "WDC file, or a directory to scan")
	dryRun := flag.Bool("dry-run", false, "Parse only, no ClickHouse insert")
	showDDL := flag.Bool("ddl", false, "Print CREATE TABLE statement and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "wdc-ingest v%s — WDC Electrojet Index Ingestion\n\n", Version)
		fmt.Fprintf(os.Stderr, "Parses AE/AL/AO/AU minute files from WDC Kyoto\n")
		fmt.Fprintf(os.Stderr, "(wdc.kugi.kyoto-u.ac.jp) and inserts into ClickHouse.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [FILE...]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -ddl | clickhouse-client\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -dry-run ae_201402.wdc\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -ch-host 192.168.1.90:9000 -input /var/lib/swmf-data/wdc\n", os.Args[0])
	}
	flag.Parse()

	if *showDDL {
		printDDL(*chDB, *chTable)
		return
	}

	log.Println("=========================================================")
	log.Printf("wdc-ingest v%s — WDC Electrojet Index Ingestion", Version)
	log.Println("=========================================================")

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
		log.Fatalf("No WDC files found in %s", *input)
	}
	log.Printf("Files: %d", len(files))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	// Parse everything up front; WDC files are small.
	t0 := time.Now()
	type parsedFile struct {
		source string
		series *wdc.IndexSeries
	}
	var parsed []parsedFile
	totalSamples := 0
	for _, path := range files {
		series, err := wdc.ReadFile(path)
		if err != nil {
			log.Fatalf("Parse error: %v", err)
		}
		parsed = append(parsed, parsedFile{source: filepath.Base(path), series: series})
		totalSamples += series.Total()
	}
	log.Printf("Parsed %d samples from %d files in %v",
		totalSamples, len(files), time.Since(t0).Round(time.Millisecond))

	if totalSamples == 0 {
		log.Fatal("No samples found")
	}

	// Coverage per series
	for _, id := range wdc.IndexIDs {
		count := 0
		minV, maxV := int(1<<31-1), int(-1<<31)
		for _, pf := range parsed {
			for _, smp := range pf.series.ByID(id) {
				count++
				if smp.Value < minV {
					minV = smp.Value
				}
				if smp.Value > maxV {
					maxV = smp.Value
				}
			}
		}
		if count > 0 {
			log.Printf("  %s: %d samples (%d to %d nT)", id, count, minV, maxV)
		} else {
			log.Printf("  %s: no data", id)
		}
	}

	if *dryRun {
		log.Println("Dry run — skipping ClickHouse insert")
		return
	}

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

	tableFQN := fmt.Sprintf("%s.%s", *chDB, *chTable)
	log.Printf("Table: %s", tableFQN)

	t0 = time.Now()
	batch := NewIndexBatch()
	inserted := 0

	for _, pf := range parsed {
		select {
		case <-ctx.Done():
			log.Printf("Interrupted after %d rows", inserted)
			return
		default:
		}

		for _, id := range wdc.IndexIDs {
			for _, smp := range pf.series.ByID(id) {
				batch.AddRow(id, smp, pf.source)

				if batch.Len() >= batchLimit {
					if err := flushBatch(ctx, conn, tableFQN, batch); err != nil {
						log.Fatalf("Insert error at row %d: %v", inserted, err)
					}
					inserted += batch.Len()
					batch.Reset()
				}
			}
		}
	}

	if batch.Len() > 0 {
		if err := flushBatch(ctx, conn, tableFQN, batch); err != nil {
			log.Fatalf("Final insert error: %v", err)
		}
		inserted += batch.Len()
	}

	elapsed := time.Since(t0)

	log.Println()
	log.Println("=========================================================")
	log.Println("Ingest Complete")
	log.Println("=========================================================")
	log.Printf("Files:   %d", len(files))
	log.Printf("Rows:    %d", inserted)
	log.Printf("Elapsed: %v", elapsed.Round(time.Millisecond))
	log.Printf("Rate:    %.0f rows/sec", float64(inserted)/elapsed.Seconds())
	log.Println("=========================================================")
	log.Println()
	log.Printf("Run OPTIMIZE TABLE %s FINAL to merge duplicates.", tableFQN)
}

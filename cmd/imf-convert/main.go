// imf-convert - OMNI solar wind data to SWMF run inputs
//
// The end-to-end conversion path: read minute-resolution solar wind data
// from an OMNI CSV export, a local SPDF archive file, or straight off the
// SPDF web archive, run the cleaning pipeline (physical thresholds,
// optional statistical outlier cut, gap interpolation), and write the
// IMF.dat file SWMF reads through #SOLARWINDFILE. Optionally also writes
// the radiation belt RB.SWIMF input from the same table.
//
// Input format is chosen by extension: .csv is the cdaweb nine-column
// export, .asc/.asc.gz is the SPDF monthly archive layout.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/imf-convert ./cmd/imf-convert

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/swxlab/swmf-data-apps/internal/solarwind"
	"github.com/swxlab/swmf-data-apps/internal/spdf"
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

// readArchiveFile parses a local SPDF archive file, transparently
// decompressing .gz.
func readArchiveFile(path string, window solarwind.TimeWindow, stats *solarwind.ParseStats) (*solarwind.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var reader io.Reader = bufio.NewReaderSize(f, 256*1024)
	if strings.HasSuffix(path, ".gz") {
		gzReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	table, err := solarwind.ReadASCII(reader, window, stats)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return table, nil
}

func main() {
	input := flag.String("input", "", "OMNI CSV or SPDF .asc/.asc.gz file")
	fetch := flag.Bool("fetch", false, "Fetch from the SPDF web archive instead of a file")
	start := flag.String("start", "", "Range start (e.g. 2014-02-15T04:00:00; required with -fetch)")
	end := flag.String("end", "", "Range end (required with -fetch)")
	output := flag.String("output", "IMF.dat", "IMF.dat output path")
	rbPath := flag.String("rb", "", "Also write a radiation belt RB.SWIMF file here")
	lag := flag.Float64("lag", 0, "Solar wind lag to the subsolar point in seconds (RB.SWIMF header)")
	coor := flag.String("coor", "GSM", "Coordinate system of the field components (GSM or GSE)")
	source := flag.String("source", "", "Provenance line for the IMF.dat header")
	noClean := flag.Bool("no-clean", false, "Skip the physical threshold pass")
	filter := flag.Bool("filter", false, "Apply the statistical outlier filter")
	coarseness := flag.Float64("coarseness", solarwind.DefaultCoarseness,
		"Outlier cut in standard deviations above the mean")
	timeout := flag.Duration("timeout", 300*time.Second, "Per-request fetch timeout")
	retries := flag.Int("retries", 3, "Fetch retry attempts per month")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "imf-convert v%s — OMNI Solar Wind to SWMF Inputs\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -input omni_20140215.csv -output run/IMF.dat\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -input omni_min201402.asc.gz -start 2014-02-15 -end 2014-02-20\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -fetch -start 2014-02-15T04:00:00 -end 2014-02-18 \\\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "      -filter -coarseness 2 -rb run/RB.SWIMF -lag 1800\n")
	}
	flag.Parse()

	coords, err := swmf.ParseCoordSystem(*coor)
	if err != nil {
		log.Fatalf("imf-convert: %v", err)
	}

	if *fetch == (*input != "") {
		fmt.Fprintln(os.Stderr, "imf-convert: exactly one of -input and -fetch is required")
		flag.Usage()
		os.Exit(2)
	}
	if *fetch && (*start == "" || *end == "") {
		fmt.Fprintln(os.Stderr, "imf-convert: -fetch requires -start and -end")
		flag.Usage()
		os.Exit(2)
	}

	var window solarwind.TimeWindow
	if *start != "" {
		if window.From, err = parseTimeArg(*start); err != nil {
			log.Fatalf("Invalid -start: %v", err)
		}
	}
	if *end != "" {
		if window.To, err = parseTimeArg(*end); err != nil {
			log.Fatalf("Invalid -end: %v", err)
		}
	}
	if !window.IsZero() && window.To.IsZero() {
		window.To = time.Now().UTC()
	}

	log.Println("=========================================================")
	log.Printf("imf-convert v%s — OMNI Solar Wind to SWMF Inputs", Version)
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

	// Read phase. The CSV codec runs the cleaning pipeline internally;
	// the archive and fetch paths deliver a raw table cleaned below.
	stats := &solarwind.ParseStats{}
	var table *solarwind.Table
	cleaned := false

	t0 := time.Now()
	switch {
	case *fetch:
		client := spdf.NewClient()
		client.HTTP.Timeout = *timeout
		client.Retries = *retries
		log.Printf("Fetching %s to %s from %s", *start, *end, client.BaseURL)
		table, err = client.Fetch(ctx, window.From, window.To, stats)
		if err != nil {
			if table == nil {
				log.Fatalf("Fetch failed: %v", err)
			}
			log.Fatalf("Fetch failed with %d rows accumulated: %v", table.Len(), err)
		}

	case strings.HasSuffix(*input, ".csv"):
		log.Printf("Reading OMNI CSV %s", *input)
		if !window.IsZero() {
			log.Printf("Note: -start/-end apply to archive and fetch inputs only")
		}
		opts := solarwind.CSVOptions{Clean: !*noClean, Filter: *filter, Coarseness: *coarseness}
		table, err = solarwind.ReadCSVFile(*input, opts, stats)
		if err != nil {
			log.Fatalf("Read failed: %v", err)
		}
		cleaned = true

	default:
		log.Printf("Reading SPDF archive %s", *input)
		table, err = readArchiveFile(*input, window, stats)
		if err != nil {
			log.Fatalf("Read failed: %v", err)
		}
	}
	readElapsed := time.Since(t0)

	if table.Len() == 0 {
		log.Fatal("No rows in the requested range")
	}

	// Clean phase for paths that skipped it.
	if !cleaned {
		removed := 0
		if !*noClean {
			removed = table.Clean()
		}
		outliers := 0
		if *filter {
			outliers = table.FilterOutliers(*coarseness)
		}
		filled, err := table.Fill()
		if err != nil {
			log.Fatalf("Gap fill failed: %v", err)
		}
		log.Printf("Cleaned: %d cells thresholded, %d outliers cut, %d cells interpolated",
			removed, outliers, filled)
	}

	first, last := table.TimeRange()
	log.Printf("Rows: %d (%s to %s) in %v",
		table.Len(),
		first.Format("2006-01-02 15:04"), last.Format("2006-01-02 15:04"),
		readElapsed.Round(time.Millisecond))
	if stats.FailedRows > 0 || stats.OutOfWindowRows > 0 {
		log.Printf("Skipped: %d failed rows, %d outside window",
			stats.FailedRows, stats.OutOfWindowRows)
	}

	// Write phase.
	imfOpts := swmf.IMFOptions{Coords: coords, Source: *source}
	var rbOpts swmf.RBOptions
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "lag" {
			rbOpts.LagSeconds = lag
		}
	})

	if err := swmf.WriteInputs(*output, *rbPath, table, imfOpts, rbOpts); err != nil {
		log.Fatalf("Write failed: %v", err)
	}

	log.Println()
	log.Println("=========================================================")
	log.Println("Conversion Complete")
	log.Println("=========================================================")
	log.Printf("IMF file:  %s (%d records, %s)", *output, table.Len(), coords)
	if *rbPath != "" {
		log.Printf("RB file:   %s", *rbPath)
	}
	log.Println("=========================================================")
}

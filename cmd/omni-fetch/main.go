// omni-fetch - Downloader for OMNI solar wind archives from NASA SPDF
//
// Downloads monthly minute-resolution OMNI files (omni_minYYYYMM.asc)
// from spdf.gsfc.nasa.gov. Supports resume, parallel downloads, and
// date range filtering.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/omni-fetch ./cmd/omni-fetch

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/swxlab/swmf-data-apps/internal/common"
	"github.com/swxlab/swmf-data-apps/internal/spdf"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

type DownloadStats struct {
	Completed atomic.Uint64
	Failed    atomic.Uint64
	Skipped   atomic.Uint64
	Bytes     atomic.Uint64
}

// downloadMonth fetches one month's file into destDir. Already present
// files are kept, a partial download never replaces one.
func downloadMonth(ctx context.Context, client *spdf.Client, month time.Time, destDir string, stats *DownloadStats) (skipped bool, err error) {
	destPath := filepath.Join(destDir, spdf.MonthFileName(month))

	if info, statErr := os.Stat(destPath); statErr == nil && info.Size() > 0 {
		stats.Skipped.Add(1)
		return true, nil
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return false, fmt.Errorf("create file failed: %w", err)
	}

	n, err := client.FetchRaw(ctx, month, f)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return false, err
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("rename failed: %w", err)
	}

	stats.Bytes.Add(uint64(n))
	stats.Completed.Add(1)
	return false, nil
}

func main() {
	cfg := common.DefaultConfig()

	destDir := flag.String("output", cfg.OMNIDataDir(), "Destination directory")
	startDate := flag.String("start", "1981-01", "Start month (YYYY-MM)")
	endDate := flag.String("end", "", "End month (YYYY-MM, default: current month)")
	workers := flag.Int("workers", 2, "Parallel download workers")
	timeout := flag.Duration("timeout", 300*time.Second, "HTTP timeout per download")
	retries := flag.Int("retries", 3, "Retry attempts per file")
	baseURL := flag.String("base-url", spdf.DefaultBaseURL, "OMNI data root URL")
	lowRes := flag.Bool("low-res", false, "Fetch from the OMNI root instead of high_res_omni/monthly_1min")
	listOnly := flag.Bool("list", false, "List files without downloading")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "omni-fetch v%s - OMNI Solar Wind Archive Downloader\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Downloads minute-resolution OMNI files from NASA SPDF.\n")
		fmt.Fprintf(os.Stderr, "Files are monthly ASCII tables (~5MB each).\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -start 2014-01 -end 2014-12     # One year\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -start 2014-02 -end 2014-02 -output ./data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list -start 2000-01 -end 2000-03\n", os.Args[0])
	}

	flag.Parse()

	from, err := time.Parse("2006-01", *startDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid start month. Use YYYY-MM format\n")
		os.Exit(1)
	}
	to := time.Now().UTC()
	if *endDate != "" {
		to, err = time.Parse("2006-01", *endDate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: Invalid end month. Use YYYY-MM format\n")
			os.Exit(1)
		}
	}

	client := &spdf.Client{
		HTTP:    &http.Client{Timeout: *timeout},
		BaseURL: *baseURL,
		HighRes: !*lowRes,
		Retries: *retries,
		Backoff: 2 * time.Second,
	}

	months := spdf.MonthsBetween(from, to)
	if len(months) == 0 {
		fmt.Fprintf(os.Stderr, "Error: end month precedes start month\n")
		os.Exit(1)
	}

	if *listOnly {
		fmt.Printf("OMNI archives (%d files):\n\n", len(months))
		for _, m := range months {
			fmt.Printf("  %s\n", client.MonthURL(m))
		}
		return
	}

	fmt.Println("=========================================================")
	fmt.Printf("OMNI Fetch v%s\n", Version)
	fmt.Println("=========================================================")
	fmt.Printf("Source:      %s\n", *baseURL)
	fmt.Printf("Destination: %s\n", *destDir)
	fmt.Printf("Months:      %s to %d-%02d (%d files)\n",
		*startDate, to.Year(), int(to.Month()), len(months))
	fmt.Printf("Workers:     %d parallel\n", *workers)
	fmt.Printf("Timeout:     %v per file\n", *timeout)
	fmt.Println()

	if err := os.MkdirAll(*destDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Cannot create directory: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutdown requested...")
		cancel()
	}()

	startTime := time.Now()
	stats := &DownloadStats{}

	sem := make(chan struct{}, *workers)
	var wg sync.WaitGroup

	for _, month := range months {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)

		go func(m time.Time) {
			defer func() { <-sem }()
			defer wg.Done()

			name := spdf.MonthFileName(m)
			skipped, err := downloadMonth(ctx, client, m, *destDir, stats)
			switch {
			case err != nil:
				fmt.Printf("[%s] ERROR: %v\n", name, err)
				stats.Failed.Add(1)
			case skipped:
				fmt.Printf("[%s] Skipped (already exists)\n", name)
			default:
				fmt.Printf("[%s] Downloaded\n", name)
			}
		}(month)
	}

	wg.Wait()

	elapsed := time.Since(startTime)
	completed := stats.Completed.Load()
	failed := stats.Failed.Load()
	skipped := stats.Skipped.Load()
	bytes := stats.Bytes.Load()

	fmt.Println()
	fmt.Println("=========================================================")
	fmt.Println("Download Summary")
	fmt.Println("=========================================================")
	fmt.Printf("Downloaded: %d files (%.2f MB)\n", completed, float64(bytes)/1024/1024)
	fmt.Printf("Skipped:    %d files (already exist)\n", skipped)
	fmt.Printf("Failed:     %d files\n", failed)
	fmt.Printf("Elapsed:    %v\n", elapsed.Round(time.Second))
	if completed > 0 && elapsed.Seconds() > 0 {
		fmt.Printf("Speed:      %.2f MB/s\n", float64(bytes)/elapsed.Seconds()/1024/1024)
	}
	fmt.Println("=========================================================")

	if failed > 0 {
		os.Exit(1)
	}
}

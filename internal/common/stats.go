package common

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats holds atomic counters for ingest telemetry.
type Stats struct {
	TotalRows  uint64 // Atomic counter for rows parsed or inserted
	TotalBytes uint64 // Atomic counter for bytes read
	TotalFiles uint64 // Atomic counter for files completed

	// Internal state for reporter
	running  atomic.Bool
	stopCh   chan struct{}
	silent   bool
	lastRows uint64
	lastTime time.Time
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{
		stopCh: make(chan struct{}),
	}
}

// AddRows atomically increments the row counter.
func (s *Stats) AddRows(count uint64) {
	atomic.AddUint64(&s.TotalRows, count)
}

// AddBytes atomically increments the byte counter.
func (s *Stats) AddBytes(count uint64) {
	atomic.AddUint64(&s.TotalBytes, count)
}

// AddFile atomically increments the file counter.
func (s *Stats) AddFile() {
	atomic.AddUint64(&s.TotalFiles, 1)
}

// Rows atomically reads the row counter.
func (s *Stats) Rows() uint64 {
	return atomic.LoadUint64(&s.TotalRows)
}

// Bytes atomically reads the byte counter.
func (s *Stats) Bytes() uint64 {
	return atomic.LoadUint64(&s.TotalBytes)
}

// Files atomically reads the file counter.
func (s *Stats) Files() uint64 {
	return atomic.LoadUint64(&s.TotalFiles)
}

// SetSilent enables or disables silent mode.
func (s *Stats) SetSilent(silent bool) {
	s.silent = silent
}

// StartReporter starts a background goroutine that prints progress every
// two seconds using newline-based output to avoid conflicts with
// log.Printf statements.
func (s *Stats) StartReporter() {
	if s.running.Load() {
		return // Already running
	}

	s.running.Store(true)
	s.lastRows = 0
	s.lastTime = time.Now()

	go s.reporterLoop()
}

// StopReporter stops the background reporter goroutine.
func (s *Stats) StopReporter() {
	if !s.running.Load() {
		return
	}

	s.running.Store(false)
	close(s.stopCh)
}

func (s *Stats) reporterLoop() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.printStatus()
		}
	}
}

func (s *Stats) printStatus() {
	if s.silent {
		return
	}

	now := time.Now()
	elapsed := now.Sub(s.lastTime).Seconds()
	if elapsed < 0.001 {
		return
	}

	currentRows := s.Rows()
	deltaRows := currentRows - s.lastRows
	rps := float64(deltaRows) / elapsed
	mib := float64(s.Bytes()) / (1024 * 1024)

	fmt.Printf("[Progress] %d rows | %.0f rows/sec | %d files | %.1f MiB read\n",
		currentRows, rps, s.Files(), mib)

	s.lastRows = currentRows
	s.lastTime = now
}

// Reset resets all counters (useful for testing or restarting).
func (s *Stats) Reset() {
	atomic.StoreUint64(&s.TotalRows, 0)
	atomic.StoreUint64(&s.TotalBytes, 0)
	atomic.StoreUint64(&s.TotalFiles, 0)
	s.lastRows = 0
	s.lastTime = time.Now()
}

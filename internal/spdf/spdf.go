// Package spdf retrieves OMNI solar wind data over HTTP from NASA
// Goddard's Space Physics Data Facility. The facility publishes the
// minute-resolution OMNI set as one ASCII file per calendar month.
package spdf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/swxlab/swmf-data-apps/internal/solarwind"
)

// DefaultBaseURL is the public OMNI data root.
const DefaultBaseURL = "https://spdf.gsfc.nasa.gov/pub/data/omni/"

// highResPath holds the minute-resolution monthly files under the root.
const highResPath = "high_res_omni/monthly_1min/"

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
	defaultBackoff = 2 * time.Second
)

// Client fetches monthly OMNI files. The zero value is not ready to use;
// call NewClient or fill the fields.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	HighRes bool

	// Retries is the number of additional attempts per month after a
	// failed request. Backoff is the wait before the first retry and
	// doubles per attempt.
	Retries int
	Backoff time.Duration
}

// NewClient returns a client for the public minute-resolution set with
// request timeout, retry and backoff defaults.
func NewClient() *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: defaultTimeout},
		BaseURL: DefaultBaseURL,
		HighRes: true,
		Retries: defaultRetries,
		Backoff: defaultBackoff,
	}
}

// MonthsBetween returns the first instant of every calendar month touched
// by the inclusive range. A single-instant range yields its one month; a
// reversed range yields nothing.
func MonthsBetween(from, to time.Time) []time.Time {
	if to.Before(from) {
		return nil
	}
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	var months []time.Time
	for !cur.After(end) {
		months = append(months, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}

// MonthFileName returns the published file name for one month, for
// example omni_min200001.asc.
func MonthFileName(month time.Time) string {
	return fmt.Sprintf("omni_min%d%02d.asc", month.Year(), int(month.Month()))
}

// MonthURL returns the resource URL for one month's file.
func (c *Client) MonthURL(month time.Time) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if c.HighRes {
		base += highResPath
	}
	return base + MonthFileName(month)
}

// Fetch retrieves solar wind data for the inclusive time range, one HTTP
// request per calendar month, and returns it as a table ready for the
// clean/fill passes. Rows outside the range are discarded.
//
// Each month is retried on transport errors and server errors before the
// month is declared failed. On failure the months fetched so far are
// returned alongside the error, so a caller can keep partial data.
func (c *Client) Fetch(ctx context.Context, from, to time.Time, stats *solarwind.ParseStats) (*solarwind.Table, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("range ends %s before it starts %s",
			to.Format(time.RFC3339), from.Format(time.RFC3339))
	}

	window := solarwind.TimeWindow{From: from, To: to}
	table := solarwind.NewTable(0)
	for _, month := range MonthsBetween(from, to) {
		if err := c.fetchMonth(ctx, month, window, table, stats); err != nil {
			return table, fmt.Errorf("month %d%02d: %w", month.Year(), int(month.Month()), err)
		}
	}
	return table, nil
}

func (c *Client) fetchMonth(ctx context.Context, month time.Time, window solarwind.TimeWindow, dst *solarwind.Table, stats *solarwind.ParseStats) error {
	resp, err := c.get(ctx, c.MonthURL(month))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	monthTable, err := solarwind.ReadASCII(resp.Body, window, stats)
	if err != nil {
		return err
	}
	for i := 0; i < monthTable.Len(); i++ {
		dst.Append(monthTable.Record(i))
	}
	return nil
}

// FetchRaw streams one month's file into w without parsing and returns
// the byte count. The same retry policy as Fetch applies.
func (c *Client) FetchRaw(ctx context.Context, month time.Time, w io.Writer) (int64, error) {
	resp, err := c.get(ctx, c.MonthURL(month))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}

// get issues a GET with the retry policy: transport errors and 5xx
// responses retry with doubling backoff, other non-200 responses fail
// immediately. The caller owns the response body on success.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	var lastErr error
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("GET %s: %s", url, resp.Status)
		if resp.StatusCode < 500 {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

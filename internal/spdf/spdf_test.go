package spdf

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swxlab/swmf-data-apps/internal/solarwind"
)

// archiveLine builds one minute-resolution row: the four time columns
// followed by every physical quantity set to val.
func archiveLine(year, doy, hour, minute int, val float64) string {
	fields := []string{
		strconv.Itoa(year), strconv.Itoa(doy), strconv.Itoa(hour), strconv.Itoa(minute),
	}
	for i := 0; i < solarwind.NumQuantities; i++ {
		fields = append(fields, strconv.FormatFloat(val, 'f', 2, 64))
	}
	return strings.Join(fields, " ")
}

func testClient(baseURL string) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		BaseURL: baseURL,
		Retries: 1,
		Backoff: time.Millisecond,
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want []string
	}{
		{
			"single instant",
			time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			[]string{"200001"},
		},
		{
			"mid month to mid month",
			time.Date(2000, 1, 15, 12, 0, 0, 0, time.UTC),
			time.Date(2000, 3, 20, 0, 0, 0, 0, time.UTC),
			[]string{"200001", "200002", "200003"},
		},
		{
			"starting on the 31st still visits february",
			time.Date(2000, 1, 31, 23, 59, 0, 0, time.UTC),
			time.Date(2000, 3, 1, 0, 0, 0, 0, time.UTC),
			[]string{"200001", "200002", "200003"},
		},
		{
			"across a year boundary",
			time.Date(2019, 11, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
			[]string{"201911", "201912", "202001", "202002"},
		},
		{
			"reversed range",
			time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range MonthsBetween(tt.from, tt.to) {
				got = append(got, fmt.Sprintf("%d%02d", m.Year(), int(m.Month())))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonthURL(t *testing.T) {
	c := NewClient()
	assert.Equal(t,
		"https://spdf.gsfc.nasa.gov/pub/data/omni/high_res_omni/monthly_1min/omni_min200009.asc",
		c.MonthURL(time.Date(2000, 9, 1, 0, 0, 0, 0, time.UTC)))

	c.HighRes = false
	c.BaseURL = "http://example.test/omni/"
	assert.Equal(t, "http://example.test/omni/omni_min201412.asc",
		c.MonthURL(time.Date(2014, 12, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFetchSingleMonth(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		fmt.Fprintln(w, archiveLine(2000, 1, 0, 0, 1.5))
		fmt.Fprintln(w, archiveLine(2000, 1, 0, 1, 2.5))
		fmt.Fprintln(w, archiveLine(2000, 1, 0, 2, 3.5))
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	stats := &solarwind.ParseStats{}
	table, err := c.Fetch(context.Background(),
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 1, 1, 0, 1, 0, 0, time.UTC),
		stats)
	require.NoError(t, err)

	assert.Equal(t, []string{"/omni_min200001.asc"}, paths)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, 1.5, table.Record(0).Bx.V)
	assert.Equal(t, time.Date(2000, 1, 1, 0, 1, 0, 0, time.UTC), table.Record(1).Time)
	assert.Equal(t, int64(1), stats.OutOfWindowRows)
	assert.Equal(t, int64(3), stats.TotalRowsRead)
}

func TestFetchSpansMonths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/omni_min200001.asc":
			fmt.Fprintln(w, archiveLine(2000, 31, 23, 59, 1.0))
		case "/omni_min200002.asc":
			fmt.Fprintln(w, archiveLine(2000, 32, 0, 0, 2.0))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	table, err := c.Fetch(context.Background(),
		time.Date(2000, 1, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 2, 1, 12, 0, 0, 0, time.UTC),
		nil)
	require.NoError(t, err)

	require.Equal(t, 2, table.Len())
	assert.Equal(t, time.Date(2000, 1, 31, 23, 59, 0, 0, time.UTC), table.Record(0).Time)
	assert.Equal(t, time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC), table.Record(1).Time)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "try later", http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, archiveLine(2000, 1, 0, 0, 1.0))
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	table, err := c.Fetch(context.Background(),
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, table.Len())
}

func TestFetchKeepsPartialResultOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/omni_min200001.asc" {
			fmt.Fprintln(w, archiveLine(2000, 1, 0, 0, 1.0))
			return
		}
		http.Error(w, "gone fishing", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	table, err := c.Fetch(context.Background(),
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 2, 15, 0, 0, 0, 0, time.UTC),
		nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "month 200002")
	require.NotNil(t, table)
	assert.Equal(t, 1, table.Len())
}

func TestFetchClientErrorDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	_, err := c.Fetch(context.Background(),
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchRejectsReversedRange(t *testing.T) {
	c := NewClient()
	_, err := c.Fetch(context.Background(),
		time.Date(2000, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		nil)
	require.Error(t, err)
}

func TestFetchRaw(t *testing.T) {
	body := archiveLine(2000, 1, 0, 0, 1.0) + "\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := testClient(srv.URL + "/")
	var buf bytes.Buffer
	n, err := c.FetchRaw(context.Background(), time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)
	assert.Equal(t, body, buf.String())
}

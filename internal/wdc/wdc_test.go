package wdc

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wdcLine assembles one synthetic file line: tag, 11-character
// date/identifier code, station field, sixty minute values, hourly mean.
func wdcLine(date, hour, id string, values []int) string {
	tokens := []string{"AE", date + "0" + hour + id, "RRX"}
	for _, v := range values {
		tokens = append(tokens, strconv.Itoa(v))
	}
	tokens = append(tokens, "9999")
	return strings.Join(tokens, " ")
}

func minuteValues(start, step int) []int {
	values := make([]int, 60)
	for i := range values {
		values[i] = start + i*step
	}
	return values
}

func TestRead(t *testing.T) {
	content := wdcLine("140215", "10", "AL", minuteValues(-100, -1)) + "\n" +
		wdcLine("140215", "10", "AU", minuteValues(100, 1)) + "\n"

	series, err := Read(strings.NewReader(content))
	require.NoError(t, err)

	require.Len(t, series.AL, 60)
	require.Len(t, series.AU, 60)
	assert.Empty(t, series.AE)
	assert.Empty(t, series.AO)
	assert.Equal(t, 120, series.Total())

	assert.Equal(t, Sample{Time: time.Date(2014, 2, 15, 10, 0, 0, 0, time.UTC), Value: -100}, series.AL[0])
	assert.Equal(t, Sample{Time: time.Date(2014, 2, 15, 10, 59, 0, 0, time.UTC), Value: -159}, series.AL[59])
	assert.Equal(t, Sample{Time: time.Date(2014, 2, 15, 10, 5, 0, 0, time.UTC), Value: 105}, series.AU[5])
}

// Each accepted line contributes exactly its sixty minute values to
// exactly one series; the trailing hourly mean token is not ingested.
func TestReadOneLineSixtySamples(t *testing.T) {
	content := wdcLine("140215", "00", "AE", minuteValues(200, 0)) + "\n"

	series, err := Read(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, 60, series.Total())
	require.Len(t, series.AE, 60)
	assert.Equal(t, 200, series.AE[59].Value)
	assert.Equal(t, series.AE, series.ByID("AE"))
}

func TestReadCenturyPivot(t *testing.T) {
	content := wdcLine("690101", "00", "AL", minuteValues(0, 0)) + "\n" +
		wdcLine("680101", "00", "AU", minuteValues(0, 0)) + "\n"

	series, err := Read(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, 1969, series.AL[0].Time.Year())
	assert.Equal(t, 2068, series.AU[0].Time.Year())
}

func TestReadSkipsBlankLines(t *testing.T) {
	content := "\n" + wdcLine("140215", "10", "AO", minuteValues(5, 0)) + "\n\n"

	series, err := Read(strings.NewReader(content))
	require.NoError(t, err)
	assert.Len(t, series.AO, 60)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errPart string
	}{
		{
			"unknown identifier",
			wdcLine("140215", "10", "XX", minuteValues(0, 0)),
			`unknown index identifier "XX"`,
		},
		{
			"short line",
			"AE 140215010AL RRX 1 2 3",
			"need at least 63",
		},
		{
			"short code",
			"AE 14021510AL RRX " + strings.Repeat("0 ", 60),
			"need 11 characters",
		},
		{
			"bad hour",
			wdcLine("140215", "25", "AL", minuteValues(0, 0)),
			"140215025AL",
		},
		{
			"bad value",
			strings.Replace(wdcLine("140215", "10", "AL", minuteValues(0, 0)), " 0 ", " x ", 1),
			"invalid index value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.content + "\n"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ae_201402.wdc")
	content := wdcLine("140215", "10", "AL", minuteValues(-100, -1)) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	series, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 60, series.Total())

	_, err = ReadFile(filepath.Join(t.TempDir(), "nope.wdc"))
	require.Error(t, err)
}

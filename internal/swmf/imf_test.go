package swmf

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swxlab/swmf-data-apps/internal/solarwind"
)

func inputRecord(ts time.Time, vals [solarwind.NumFields]float64) solarwind.Record {
	rec := solarwind.Record{Time: ts}
	for i, f := range solarwind.Fields() {
		rec.Set(f, solarwind.Some(vals[i]))
	}
	return rec
}

func TestWriteIMF(t *testing.T) {
	table := solarwind.NewTable(2)
	table.Append(inputRecord(
		time.Date(2014, 2, 15, 10, 5, 0, 0, time.UTC),
		[solarwind.NumFields]float64{3.5, -2.25, 1.0, -405.5, 10.25, -5.75, 7.125, 150000.0}))
	table.Append(inputRecord(
		time.Date(2014, 2, 15, 10, 6, 0, 123_000_000, time.UTC),
		[solarwind.NumFields]float64{-64.125, 0.0001, -0.00005, -1999.5, 999.999, -123.456789, 499.9999, 9999999.0}))

	var buf bytes.Buffer
	require.NoError(t, WriteIMF(&buf, table, IMFOptions{}))

	want := "CSV files downloaded from https://cdaweb.gsfc.nasa.gov/\n" +
		"yr mn dy hr min sec msec bx by bz vx vy vz dens temp\n" +
		"#START\n" +
		"2014 02 15 10 05 00 000 3.5 -2.25 1.0 -405.5 10.25 -5.75 7.125 150000. \n" +
		"2014 02 15 10 06 00 123 -64.125 0.0001 -5e-05 -1999.5 999.999 -123.45 499.999 9999999 \n"
	assert.Equal(t, want, buf.String())
}

func TestWriteIMFCoordDirective(t *testing.T) {
	table := solarwind.NewTable(1)
	table.Append(inputRecord(
		time.Date(2014, 2, 15, 10, 5, 0, 0, time.UTC),
		[solarwind.NumFields]float64{1, 2, 3, -400, 0, 0, 5, 100000}))

	var gse bytes.Buffer
	require.NoError(t, WriteIMF(&gse, table, IMFOptions{Coords: CoordGSE}))
	lines := strings.Split(gse.String(), "\n")
	require.Greater(t, len(lines), 3)
	assert.Equal(t, "#COOR", lines[1])
	assert.Equal(t, "GSE", lines[2])

	var gsm bytes.Buffer
	require.NoError(t, WriteIMF(&gsm, table, IMFOptions{Coords: CoordGSM}))
	assert.NotContains(t, gsm.String(), "#COOR")
}

func TestWriteIMFRejectsMissingCells(t *testing.T) {
	table := solarwind.NewTable(1)
	rec := inputRecord(time.Date(2014, 2, 15, 10, 5, 0, 0, time.UTC),
		[solarwind.NumFields]float64{1, 2, 3, -400, 0, 0, 5, 100000})
	rec.Bz = solarwind.Missing
	table.Append(rec)

	var buf bytes.Buffer
	err := WriteIMF(&buf, table, IMFOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

// Re-parsing a written file yields the truncated values, not the
// originals. Truncation is lossy on purpose.
func TestIMFRoundTripTruncated(t *testing.T) {
	vals := [solarwind.NumFields]float64{
		3.14159265, -1234.5678, 0.333333333, -405.123456, 99.999999, -0.0625, 12.3456789, 1234567.89,
	}
	table := solarwind.NewTable(1)
	table.Append(inputRecord(time.Date(2014, 2, 15, 10, 5, 0, 0, time.UTC), vals))

	var buf bytes.Buffer
	require.NoError(t, WriteIMF(&buf, table, IMFOptions{}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	dataFields := strings.Fields(lines[len(lines)-1])
	require.Len(t, dataFields, 7+solarwind.NumFields)

	for i := range vals {
		got, err := strconv.ParseFloat(dataFields[7+i], 64)
		require.NoError(t, err)
		wantStr := truncate(formatValue(vals[i]), 7)
		want, err := strconv.ParseFloat(wantStr, 64)
		require.NoError(t, err)
		assert.Equal(t, want, got, "field %d", i)
	}
}

func TestWriteRBSWIMF(t *testing.T) {
	table := solarwind.NewTable(2)
	table.Append(inputRecord(
		time.Date(2014, 2, 15, 10, 5, 30, 0, time.UTC),
		[solarwind.NumFields]float64{1, 2, 3, -300, 0, 400, 5.5, 100000}))
	table.Append(inputRecord(
		time.Date(2014, 2, 15, 10, 6, 30, 0, time.UTC),
		[solarwind.NumFields]float64{1, 2, 3, -300, 0, 400, 123.45678, 100000}))

	var buf bytes.Buffer
	require.NoError(t, WriteRBSWIMF(&buf, table, RBOptions{}))

	want := "2014, 046, 10 ! iyear, iday, ihour corresponding to t=0\n" +
		"11902 data                   P+ NP NONLIN    P+ V (MOM)\n" +
		"dd mm yyyy hh mm ss.ms           #/cc          km/s\n" +
		"15 02 2014 10 05 30.000000     5.5     500.0\n" +
		"15 02 2014 10 06 30.000000     123.4567     500.0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteRBSWIMFLagLine(t *testing.T) {
	table := solarwind.NewTable(1)
	table.Append(inputRecord(
		time.Date(2014, 2, 15, 10, 5, 30, 0, time.UTC),
		[solarwind.NumFields]float64{1, 2, 3, -300, 0, 400, 5.5, 100000}))

	lag := 2400.0
	var buf bytes.Buffer
	require.NoError(t, WriteRBSWIMF(&buf, table, RBOptions{LagSeconds: &lag}))

	lines := strings.Split(buf.String(), "\n")
	require.Greater(t, len(lines), 2)
	assert.Equal(t, "2400.0  ! swlag time in seconds for sw travel to subsolar", lines[1])
}

func TestWriteRBSWIMFEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRBSWIMF(&buf, solarwind.NewTable(0), RBOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestWriteInputs(t *testing.T) {
	table := solarwind.NewTable(1)
	table.Append(inputRecord(
		time.Date(2014, 2, 15, 10, 5, 0, 0, time.UTC),
		[solarwind.NumFields]float64{1, 2, 3, -400, 0, 0, 5, 100000}))

	dir := t.TempDir()
	primary := filepath.Join(dir, "IMF.dat")
	aux := filepath.Join(dir, "RB.SWIMF")
	require.NoError(t, WriteInputs(primary, aux, table, IMFOptions{}, RBOptions{}))

	_, err := os.Stat(primary)
	require.NoError(t, err)
	_, err = os.Stat(aux)
	require.NoError(t, err)

	onlyPrimary := filepath.Join(dir, "IMF-only.dat")
	require.NoError(t, WriteInputs(onlyPrimary, "", table, IMFOptions{}, RBOptions{}))
	_, err = os.Stat(onlyPrimary)
	require.NoError(t, err)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{5.0, "5.0"},
		{0.0, "0.0"},
		{-2.25, "-2.25"},
		{0.0001, "0.0001"},
		{0.00005, "5e-05"},
		{1234560.0, "1234560.0"},
		{123456789.0, "123456789.0"},
		{9.5e15, "9500000000000000.0"},
		{1e16, "1e+16"},
		{-1.5e-5, "-1.5e-05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatValue(tt.in), "formatValue(%v)", tt.in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "-123.45", truncate("-123.456789", 7))
	assert.Equal(t, "-15.333", truncate("-15.3333333", 7))
	assert.Equal(t, "1234.56", truncate("1234.5678", 7))
	assert.Equal(t, "3.5", truncate("3.5", 7))
	assert.Equal(t, "1234567", truncate("1234567", 7))
	assert.Equal(t, "-15.3333", truncate("-15.3333333", 8))
}

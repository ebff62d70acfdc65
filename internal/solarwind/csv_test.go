package solarwind

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvSample = `Time,Bx [nT],By [nT],Bz [nT],Vx [km/s],Vy [km/s],Vz [km/s],Rho [n/cc],T [K]
2014-02-15 10:00:00,1.5,-2.5,3.5,-400,10,-10,5,100000
2014-02-15 10:01:00,9999.99,-2,3,-2500,1500,-1200,650,2e7
2014-02-15 10:02:00,2.5,-1.5,2.5,-410,20,-20,7,120000
`

func TestReadCSV(t *testing.T) {
	stats := &ParseStats{}
	table, err := ReadCSV(strings.NewReader(csvSample), DefaultCSVOptions(), stats)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
	assert.EqualValues(t, 3, stats.SuccessfullyParsed)

	first, last := table.TimeRange()
	assert.Equal(t, time.Date(2014, 2, 15, 10, 0, 0, 0, time.UTC), first)
	assert.Equal(t, time.Date(2014, 2, 15, 10, 2, 0, 0, time.UTC), last)

	// Row 1 violates every threshold; the clean pass blanks it and the
	// fill pass interpolates the neighbors.
	mid := table.Record(1)
	assert.Equal(t, 2.0, mid.Bx.V)
	assert.Equal(t, -405.0, mid.Vx.V)
	assert.Equal(t, 15.0, mid.Vy.V)
	assert.Equal(t, -15.0, mid.Vz.V)
	assert.Equal(t, 6.0, mid.Density.V)
	assert.Equal(t, 110000.0, mid.Temperature.V)
	// Bz on that row was plausible and survives untouched.
	assert.Equal(t, 3.0, mid.Bz.V)
}

func TestReadCSVResultWithinLimits(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(csvSample), DefaultCSVOptions(), nil)
	require.NoError(t, err)
	require.True(t, table.Complete())

	for i := 0; i < table.Len(); i++ {
		rec := table.Record(i)
		assert.Less(t, math.Abs(rec.Bx.V), MaxFieldStrength)
		assert.Less(t, math.Abs(rec.By.V), MaxFieldStrength)
		assert.Less(t, math.Abs(rec.Bz.V), MaxFieldStrength)
		assert.Less(t, math.Abs(rec.Vx.V), MaxVx)
		assert.Less(t, math.Abs(rec.Vy.V), MaxVyVz)
		assert.Less(t, math.Abs(rec.Vz.V), MaxVyVz)
		assert.Less(t, rec.Density.V, MaxDensity)
		assert.Less(t, rec.Temperature.V, MaxTemperature)
	}
}

func TestReadCSVNoClean(t *testing.T) {
	table, err := ReadCSV(strings.NewReader(csvSample), CSVOptions{Clean: false}, nil)
	require.NoError(t, err)

	// Thresholds off: the artifact row passes through verbatim.
	mid := table.Record(1)
	assert.Equal(t, 9999.99, mid.Bx.V)
	assert.Equal(t, 2e7, mid.Temperature.V)
}

func TestReadCSVEmptyCellsAreFilled(t *testing.T) {
	src := `Time,Bx [nT],By [nT],Bz [nT],Vx [km/s],Vy [km/s],Vz [km/s],Rho [n/cc],T [K]
2014-02-15 10:00:00,1,1,1,-400,1,1,4,100000
2014-02-15 10:01:00,,1,1,-400,1,1,,100000
2014-02-15 10:02:00,3,1,1,-400,1,1,8,100000
`
	stats := &ParseStats{}
	table, err := ReadCSV(strings.NewReader(src), DefaultCSVOptions(), stats)
	require.NoError(t, err)
	require.True(t, table.Complete())

	assert.EqualValues(t, 2, stats.MissingValueCells)
	assert.Equal(t, 2.0, table.Record(1).Bx.V)
	assert.Equal(t, 6.0, table.Record(1).Density.V)
}

func TestReadCSVTimeLayouts(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want time.Time
	}{
		{"space separated", "2000-01-01 12:30:00", time.Date(2000, 1, 1, 12, 30, 0, 0, time.UTC)},
		{"rfc3339", "2000-01-01T12:30:00Z", time.Date(2000, 1, 1, 12, 30, 0, 0, time.UTC)},
		{"fractional seconds", "2000-01-01 12:30:00.250", time.Date(2000, 1, 1, 12, 30, 0, 250000000, time.UTC)},
		{"minute resolution", "2000-01-01 12:30", time.Date(2000, 1, 1, 12, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCSVTime(tt.ts)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v", got)
		})
	}
}

func TestReadCSVRejectsUnorderedTimestamps(t *testing.T) {
	src := `Time,Bx [nT],By [nT],Bz [nT],Vx [km/s],Vy [km/s],Vz [km/s],Rho [n/cc],T [K]
2014-02-15 10:01:00,1,1,1,-400,1,1,4,100000
2014-02-15 10:00:00,1,1,1,-400,1,1,4,100000
`
	_, err := ReadCSV(strings.NewReader(src), DefaultCSVOptions(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not after")
}

func TestReadCSVMissingHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), DefaultCSVOptions(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing header")
}

func TestWriteCSVRoundTrip(t *testing.T) {
	src := NewTable(2)
	base := time.Date(2014, 2, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		rec := Record{Time: base.Add(time.Duration(i) * time.Minute)}
		for j, f := range Fields() {
			rec.Set(f, Some(float64(i+1)*1.25+float64(j)))
		}
		src.Append(rec)
	}

	var buf strings.Builder
	require.NoError(t, WriteCSV(&buf, src))

	got, err := ReadCSV(strings.NewReader(buf.String()), CSVOptions{}, nil)
	require.NoError(t, err)
	require.Equal(t, src.Len(), got.Len())

	for i := 0; i < src.Len(); i++ {
		assert.True(t, got.Times[i].Equal(src.Times[i]))
		for _, f := range Fields() {
			assert.Equal(t, src.Record(i).Get(f).V, got.Record(i).Get(f).V)
		}
	}
}

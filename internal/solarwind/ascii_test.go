package solarwind

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// asciiLine builds one archive line with quantity i defaulting to i+0.5,
// so every quantity is distinct and no default collides with a fill value.
func asciiLine(year, doy, hour, minute int, overrides map[int]float64) string {
	fields := []string{
		strconv.Itoa(year), strconv.Itoa(doy), strconv.Itoa(hour), strconv.Itoa(minute),
	}
	for i := 0; i < NumQuantities; i++ {
		v := float64(i) + 0.5
		if ov, ok := overrides[i]; ok {
			v = ov
		}
		fields = append(fields, strconv.FormatFloat(v, 'f', 2, 64))
	}
	return strings.Join(fields, " ")
}

func TestParseASCIILine(t *testing.T) {
	rec, err := ParseASCIILine(asciiLine(2000, 60, 5, 30, nil))
	require.NoError(t, err)

	// Day 60 of a leap year is February 29.
	assert.Equal(t, time.Date(2000, 2, 29, 5, 30, 0, 0, time.UTC), rec.Time)

	for i := 0; i < NumQuantities; i++ {
		require.True(t, rec.Quantities[i].OK, "quantity %d", i)
		assert.Equal(t, float64(i)+0.5, rec.Quantities[i].V, "quantity %d", i)
	}
}

func TestParseASCIILineFillSentinels(t *testing.T) {
	line := asciiLine(2014, 46, 10, 0, map[int]float64{
		QtyBzGSM:         9999.99,
		QtyProtonDensity: 999.99,
		QtyTemperature:   9999999,
	})
	rec, err := ParseASCIILine(line)
	require.NoError(t, err)

	assert.False(t, rec.Quantities[QtyBzGSM].OK)
	assert.False(t, rec.Quantities[QtyProtonDensity].OK)
	assert.False(t, rec.Quantities[QtyTemperature].OK)
	assert.True(t, rec.Quantities[QtyBzGSE].OK)

	sim := rec.SimRecord()
	assert.False(t, sim.Bz.OK)
	assert.False(t, sim.Density.OK)
	assert.False(t, sim.Temperature.OK)
	assert.True(t, sim.Bx.OK)
}

func TestSimRecordFieldMapping(t *testing.T) {
	rec, err := ParseASCIILine(asciiLine(2014, 46, 10, 0, nil))
	require.NoError(t, err)

	sim := rec.SimRecord()
	// GSM field components with GSE velocity: By/Bz come from the GSM
	// columns, not the GSE ones.
	assert.Equal(t, float64(QtyBxGSE)+0.5, sim.Bx.V)
	assert.Equal(t, float64(QtyByGSM)+0.5, sim.By.V)
	assert.Equal(t, float64(QtyBzGSM)+0.5, sim.Bz.V)
	assert.Equal(t, float64(QtyVxGSE)+0.5, sim.Vx.V)
	assert.Equal(t, float64(QtyVyGSE)+0.5, sim.Vy.V)
	assert.Equal(t, float64(QtyVzGSE)+0.5, sim.Vz.V)
	assert.Equal(t, float64(QtyProtonDensity)+0.5, sim.Density.V)
	assert.Equal(t, float64(QtyTemperature)+0.5, sim.Temperature.V)
}

func TestParseASCIILineErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		msg  string
	}{
		{"short record", "2000 1 0", "short record"},
		{"bad year", asciiLine(1800, 1, 0, 0, nil), "invalid year"},
		{"bad day of year", asciiLine(2000, 367, 0, 0, nil), "invalid day of year"},
		{"bad hour", asciiLine(2000, 1, 24, 0, nil), "invalid hour"},
		{"bad minute", asciiLine(2000, 1, 0, 60, nil), "invalid minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseASCIILine(tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestReadASCII(t *testing.T) {
	src := strings.Join([]string{
		asciiLine(2014, 46, 10, 0, nil),
		asciiLine(2014, 46, 10, 1, nil),
		asciiLine(2014, 46, 10, 2, nil),
	}, "\n") + "\n"

	t.Run("unset window keeps everything", func(t *testing.T) {
		stats := &ParseStats{}
		table, err := ReadASCII(strings.NewReader(src), TimeWindow{}, stats)
		require.NoError(t, err)
		assert.Equal(t, 3, table.Len())
		assert.EqualValues(t, 3, stats.SuccessfullyParsed)
	})

	t.Run("window filters rows", func(t *testing.T) {
		instant := time.Date(2014, 2, 15, 10, 1, 0, 0, time.UTC)
		stats := &ParseStats{}
		table, err := ReadASCII(strings.NewReader(src), TimeWindow{From: instant, To: instant}, stats)
		require.NoError(t, err)
		require.Equal(t, 1, table.Len())
		assert.True(t, table.Times[0].Equal(instant))
		assert.EqualValues(t, 2, stats.OutOfWindowRows)
	})

	t.Run("window before the data returns empty", func(t *testing.T) {
		at := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
		table, err := ReadASCII(strings.NewReader(src), TimeWindow{From: at, To: at}, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())
	})
}

func TestReadASCIIRejectsDuplicateTimestamps(t *testing.T) {
	src := asciiLine(2014, 46, 10, 0, nil) + "\n" + asciiLine(2014, 46, 10, 0, nil) + "\n"
	_, err := ReadASCII(strings.NewReader(src), TimeWindow{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not after")
}

func TestReadASCIIFailsOnMalformedLine(t *testing.T) {
	src := asciiLine(2014, 46, 10, 0, nil) + "\nnot a data line\n"
	_, err := ReadASCII(strings.NewReader(src), TimeWindow{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestQuantityCatalog(t *testing.T) {
	q, ok := Quantity(QtyProtonDensity)
	require.True(t, ok)
	assert.Equal(t, "Proton Density", q.Name)
	assert.Equal(t, "proton_density", q.Column)
	assert.Equal(t, "n/cc", q.Unit)
	assert.Equal(t, 999.99, q.Fill)

	columns := QuantityColumns()
	assert.Len(t, columns, NumQuantities)
	assert.Equal(t, "imf_spacecraft_id", columns[0])
	assert.Equal(t, "bsn_z_gse", columns[NumQuantities-1])

	_, ok = Quantity(NumQuantities)
	assert.False(t, ok)

	names := QuantityNames()
	assert.Len(t, names, NumQuantities)
	assert.Equal(t, "ID for IMF spacecraft", names[0])
	assert.Equal(t, "BSN location, Zgse", names[NumQuantities-1])
}

package solarwind

// clean.go - data quality passes over a Table
//
// Three passes, applied in a fixed order by the readers:
//   1. Clean          - physical plausibility thresholds, cell -> missing
//   2. FilterOutliers - statistical cut at mean(|x|) + coarseness*sigma
//   3. Fill           - linear interpolation + edge fills, missing -> value
//
// Clean and FilterOutliers never drop rows, only blank cells. Fill removes
// every missing cell, so a table that has been through all three passes is
// complete and safe to hand to the simulation input writers.

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultCoarseness is the default outlier cut width in standard deviations.
const DefaultCoarseness = 3.0

// Physical plausibility limits for the threshold clean. A cell at or above
// its limit is an instrument artifact or archive fill value, not solar wind.
const (
	MaxFieldStrength = 80.0  // nT, per IMF component
	MaxDensity       = 500.0 // n/cc
	MaxVx            = 2000.0
	MaxVyVz          = 1000.0 // km/s, transverse components
	MaxTemperature   = 1e7   // K
)

// ErrNoValidValues reports a column with nothing to fill from.
var ErrNoValidValues = errors.New("no valid values")

// Clean blanks cells outside the physical plausibility limits:
// |Bx|,|By|,|Bz| >= 80 nT, density >= 500 n/cc, |Vx| >= 2000 km/s,
// |Vy|,|Vz| >= 1000 km/s, temperature >= 1e7 K. Density and temperature
// limits are one-sided. Returns the number of cells set missing.
func (t *Table) Clean() int {
	cleaned := 0
	for _, f := range Fields() {
		col := t.cols[f]
		for i, v := range col {
			if v.OK && !plausible(f, v.V) {
				col[i] = Missing
				cleaned++
			}
		}
	}
	return cleaned
}

func plausible(f Field, v float64) bool {
	switch f {
	case FieldBx, FieldBy, FieldBz:
		return math.Abs(v) < MaxFieldStrength
	case FieldVx:
		return math.Abs(v) < MaxVx
	case FieldVy, FieldVz:
		return math.Abs(v) < MaxVyVz
	case FieldDensity:
		return v < MaxDensity
	case FieldTemperature:
		return v < MaxTemperature
	}
	return true
}

// FilterOutliers blanks cells whose magnitude reaches
// mean(|x|) + coarseness*sigma for their column, where sigma is the sample
// standard deviation of the present values. Single pass per column; the
// statistics are not recomputed as cells are removed. Columns with fewer
// than two present values are left untouched. coarseness <= 0 selects
// DefaultCoarseness. Returns the number of cells set missing.
func (t *Table) FilterOutliers(coarseness float64) int {
	if coarseness <= 0 {
		coarseness = DefaultCoarseness
	}

	removed := 0
	for _, f := range Fields() {
		col := t.cols[f]

		present := make([]float64, 0, len(col))
		magnitudes := make([]float64, 0, len(col))
		for _, v := range col {
			if v.OK {
				present = append(present, v.V)
				magnitudes = append(magnitudes, math.Abs(v.V))
			}
		}
		if len(present) < 2 {
			continue
		}

		cut := stat.Mean(magnitudes, nil) + coarseness*stat.StdDev(present, nil)
		for i, v := range col {
			if v.OK && math.Abs(v.V) >= cut {
				col[i] = Missing
				removed++
			}
		}
	}
	return removed
}

// Fill replaces every missing cell: interior gaps by linear interpolation
// between the nearest present neighbors, leading gaps from the first
// present value, trailing gaps from the last. Errors with ErrNoValidValues
// when a non-empty column has no present value at all. Returns the number
// of cells filled.
func (t *Table) Fill() (int, error) {
	filled := 0
	for _, f := range Fields() {
		n, err := fillColumn(t.cols[f])
		if err != nil {
			return filled, fmt.Errorf("fill %s: %w", f, err)
		}
		filled += n
	}
	return filled, nil
}

func fillColumn(col []Value) (int, error) {
	first, last := -1, -1
	for i, v := range col {
		if v.OK {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		if len(col) == 0 {
			return 0, nil
		}
		return 0, ErrNoValidValues
	}

	filled := 0
	for i := 0; i < first; i++ {
		col[i] = col[first]
		filled++
	}
	for i := last + 1; i < len(col); i++ {
		col[i] = col[last]
		filled++
	}

	prev := first
	for i := first + 1; i <= last; i++ {
		if col[i].OK {
			prev = i
			continue
		}
		next := i + 1
		for !col[next].OK {
			next++
		}
		step := (col[next].V - col[prev].V) / float64(next-prev)
		for j := i; j < next; j++ {
			col[j] = Some(col[prev].V + step*float64(j-prev))
			filled++
		}
		i = next
		prev = next
	}

	return filled, nil
}

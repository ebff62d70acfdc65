// Package solarwind provides solar-wind data processing utilities.
// This package contains parsers, cleaning passes, and table structures
// for OMNI (merged interplanetary magnetic field and plasma) observations
// used to drive magnetospheric simulation runs.
package solarwind

import (
	"fmt"
	"time"
)

// =============================================================================
// Fields
// =============================================================================

// Field identifies one physical quantity carried by a Table.
// The eight fields below are the simulation input set: IMF components in nT,
// bulk velocity components in km/s, proton density in n/cc, temperature in K.
type Field int

const (
	FieldBx Field = iota
	FieldBy
	FieldBz
	FieldVx
	FieldVy
	FieldVz
	FieldDensity
	FieldTemperature

	NumFields = 8
)

var fieldNames = [NumFields]string{"bx", "by", "bz", "vx", "vy", "vz", "dens", "temp"}

var fieldUnits = [NumFields]string{"nT", "nT", "nT", "km/s", "km/s", "km/s", "n/cc", "K"}

// Fields returns all fields in canonical column order.
func Fields() []Field {
	return []Field{FieldBx, FieldBy, FieldBz, FieldVx, FieldVy, FieldVz, FieldDensity, FieldTemperature}
}

// String returns the short column name used in input-file headers.
func (f Field) String() string {
	if f < 0 || f >= NumFields {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Unit returns the physical unit of the field.
func (f Field) Unit() string {
	if f < 0 || f >= NumFields {
		return ""
	}
	return fieldUnits[f]
}

// =============================================================================
// Value - explicit optional cell
// =============================================================================

// Value is one table cell: a float64 that may be missing.
// Missing cells are a first-class state set by the threshold clean and the
// outlier filter, and removed again by gap filling. No NaN sentinels.
type Value struct {
	V  float64
	OK bool
}

// Some returns a present value.
func Some(v float64) Value {
	return Value{V: v, OK: true}
}

// Missing is the absent cell.
var Missing = Value{}

// =============================================================================
// Record and Table
// =============================================================================

// Record is one timestamped row of the eight solar-wind quantities.
type Record struct {
	Time        time.Time
	Bx, By, Bz  Value // nT
	Vx, Vy, Vz  Value // km/s
	Density     Value // n/cc
	Temperature Value // K
}

// Get returns the cell for a field. The value receiver keeps Get usable
// on unaddressable records, e.g. chained off Table.Record.
func (r Record) Get(f Field) Value {
	switch f {
	case FieldBx:
		return r.Bx
	case FieldBy:
		return r.By
	case FieldBz:
		return r.Bz
	case FieldVx:
		return r.Vx
	case FieldVy:
		return r.Vy
	case FieldVz:
		return r.Vz
	case FieldDensity:
		return r.Density
	case FieldTemperature:
		return r.Temperature
	}
	return Missing
}

// Set stores the cell for a field.
func (r *Record) Set(f Field, v Value) {
	switch f {
	case FieldBx:
		r.Bx = v
	case FieldBy:
		r.By = v
	case FieldBz:
		r.Bz = v
	case FieldVx:
		r.Vx = v
	case FieldVy:
		r.Vy = v
	case FieldVz:
		r.Vz = v
	case FieldDensity:
		r.Density = v
	case FieldTemperature:
		r.Temperature = v
	}
}

// Table is a time-indexed solar-wind series in column-major layout.
// Timestamps are strictly increasing, one per cadence step, and every
// column has exactly len(Times) cells. Readers construct tables, the
// cleaning passes mutate cells in place, writers read them back out.
type Table struct {
	Times []time.Time
	cols  [NumFields][]Value
}

// NewTable creates an empty table with room for capacity records.
func NewTable(capacity int) *Table {
	t := &Table{Times: make([]time.Time, 0, capacity)}
	for i := range t.cols {
		t.cols[i] = make([]Value, 0, capacity)
	}
	return t
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Times)
}

// Append adds one record at the end. The caller keeps timestamps ordered;
// readers enforce that while constructing a table.
func (t *Table) Append(rec Record) {
	t.Times = append(t.Times, rec.Time)
	for i, f := range Fields() {
		t.cols[i] = append(t.cols[i], rec.Get(f))
	}
}

// Column returns the live cell slice for a field. Mutations write through.
func (t *Table) Column(f Field) []Value {
	return t.cols[f]
}

// Record returns a copy of row i.
func (t *Table) Record(i int) Record {
	rec := Record{Time: t.Times[i]}
	for j, f := range Fields() {
		rec.Set(f, t.cols[j][i])
	}
	return rec
}

// MissingCells counts absent cells across all columns.
func (t *Table) MissingCells() int {
	n := 0
	for i := range t.cols {
		for _, v := range t.cols[i] {
			if !v.OK {
				n++
			}
		}
	}
	return n
}

// Complete reports whether the table has no missing cells.
// Writers for simulation input formats require a complete table.
func (t *Table) Complete() bool {
	return t.MissingCells() == 0
}

// TimeRange returns the first and last timestamps. Zero times for an
// empty table.
func (t *Table) TimeRange() (first, last time.Time) {
	if len(t.Times) == 0 {
		return
	}
	return t.Times[0], t.Times[len(t.Times)-1]
}

// =============================================================================
// Time Window
// =============================================================================

// TimeWindow is an inclusive [From, To] interval used to restrict readers
// and the archive fetcher. A single-instant window (From == To) is valid.
type TimeWindow struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// IsZero reports an unset window. Readers treat an unset window as
// unrestricted.
func (w TimeWindow) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// =============================================================================
// Parse Statistics
// =============================================================================

// ParseStats holds counters for one read operation.
type ParseStats struct {
	TotalRowsRead      int64 // Rows read from the source
	SuccessfullyParsed int64 // Rows accepted into the table
	FailedRows         int64 // Rows that failed to parse
	SkippedEmptyRows   int64 // Blank rows skipped
	OutOfWindowRows    int64 // Rows discarded by a time window
	MissingValueCells  int64 // Cells set missing from archive fill sentinels
}

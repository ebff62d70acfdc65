// Package swmf provides codecs for Space Weather Modeling Framework run
// files: the solar-wind input writers (IMF.dat and the radiation-belt
// RB.SWIMF), the PARAM.in patch engine, and the GM log reader.
package swmf

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/swxlab/swmf-data-apps/internal/solarwind"
)

// =============================================================================
// IMF.dat - primary solar wind input
// =============================================================================

// CoordSystem selects the coordinate system announced in the IMF.dat header.
type CoordSystem int

const (
	CoordGSM CoordSystem = iota // model default, no directive emitted
	CoordGSE                    // emits a #COOR/GSE directive pair
)

func (c CoordSystem) String() string {
	if c == CoordGSE {
		return "GSE"
	}
	return "GSM"
}

// ParseCoordSystem accepts the two header spellings, case-insensitive.
func ParseCoordSystem(s string) (CoordSystem, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GSM", "":
		return CoordGSM, nil
	case "GSE":
		return CoordGSE, nil
	}
	return CoordGSM, fmt.Errorf("unknown coordinate system %q", s)
}

// DefaultIMFSource is the provenance note written as the IMF.dat header
// line when none is supplied.
const DefaultIMFSource = "CSV files downloaded from https://cdaweb.gsfc.nasa.gov/"

// Column widths of the truncated value fields. The model's reader was
// built against column-truncated values: fields are cut, never rounded,
// even when that drops precision or a digit of a long negative value.
const (
	imfFieldWidth = 7
	rbFieldWidth  = 8
)

// IMFOptions controls the IMF.dat header.
type IMFOptions struct {
	Coords CoordSystem
	Source string // provenance header line (default DefaultIMFSource)
}

// WriteIMF serializes a complete table as an IMF.dat solar wind input:
// provenance header, optional #COOR directive, column header, #START
// marker, then one line per record with date/time fields, millisecond,
// and the eight quantities truncated to 7 characters each.
//
// The table must have no missing cells; run the fill pass first.
func WriteIMF(w io.Writer, t *solarwind.Table, opts IMFOptions) error {
	if !t.Complete() {
		return fmt.Errorf("table has %d missing cells; fill before writing", t.MissingCells())
	}

	source := opts.Source
	if source == "" {
		source = DefaultIMFSource
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(source + "\n")
	if opts.Coords == CoordGSE {
		bw.WriteString("#COOR\nGSE\n")
	}
	bw.WriteString("yr mn dy hr min sec msec bx by bz vx vy vz dens temp\n")
	bw.WriteString("#START\n")

	for i := 0; i < t.Len(); i++ {
		rec := t.Record(i)
		bw.WriteString(rec.Time.Format("2006 01 02 15 04 05") + " ")
		fmt.Fprintf(bw, "%03d ", rec.Time.Nanosecond()/1_000_000)
		for _, f := range solarwind.Fields() {
			bw.WriteString(truncate(formatValue(rec.Get(f).V), imfFieldWidth) + " ")
		}
		bw.WriteString("\n")
	}

	return bw.Flush()
}

// WriteIMFFile writes the table to path with WriteIMF.
func WriteIMFFile(path string, t *solarwind.Table, opts IMFOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteIMF(f, t, opts); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// =============================================================================
// RB.SWIMF - radiation belt model input
// =============================================================================

// RBOptions controls the RB.SWIMF header.
type RBOptions struct {
	// LagSeconds is the solar wind travel time to the subsolar point.
	// The lag header line is emitted only when the caller supplies one.
	LagSeconds *float64
}

// WriteRBSWIMF serializes a complete table as a radiation-belt solar wind
// input: a t=0 reference header from the first record (year, day of year,
// hour), the optional travel-time line, two fixed descriptive lines, then
// one line per record with date/time, density and velocity magnitude, both
// truncated to 8 characters.
func WriteRBSWIMF(w io.Writer, t *solarwind.Table, opts RBOptions) error {
	if t.Len() == 0 {
		return fmt.Errorf("empty table: no t=0 reference record")
	}
	if !t.Complete() {
		return fmt.Errorf("table has %d missing cells; fill before writing", t.MissingCells())
	}

	bw := bufio.NewWriter(w)

	first := t.Times[0]
	fmt.Fprintf(bw, "%d, %03d, %02d ! iyear, iday, ihour corresponding to t=0\n",
		first.Year(), first.YearDay(), first.Hour())
	if opts.LagSeconds != nil {
		bw.WriteString(formatValue(*opts.LagSeconds) +
			"  ! swlag time in seconds for sw travel to subsolar\n")
	}
	bw.WriteString("11902 data                   P+ NP NONLIN    P+ V (MOM)\n")
	bw.WriteString("dd mm yyyy hh mm ss.ms           #/cc          km/s\n")

	for i := 0; i < t.Len(); i++ {
		rec := t.Record(i)
		speed := math.Sqrt(rec.Vx.V*rec.Vx.V + rec.Vy.V*rec.Vy.V + rec.Vz.V*rec.Vz.V)
		bw.WriteString(rec.Time.Format("02 01 2006 15 04 05"))
		fmt.Fprintf(bw, ".%06d", rec.Time.Nanosecond()/1_000)
		bw.WriteString("     " + truncate(formatValue(rec.Density.V), rbFieldWidth))
		bw.WriteString("     " + truncate(formatValue(speed), rbFieldWidth))
		bw.WriteString("\n")
	}

	return bw.Flush()
}

// WriteRBSWIMFFile writes the table to path with WriteRBSWIMF.
func WriteRBSWIMFFile(path string, t *solarwind.Table, opts RBOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteRBSWIMF(f, t, opts); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteInputs writes the primary input to primaryPath and, when auxPath is
// non-empty, the radiation-belt input to auxPath.
func WriteInputs(primaryPath, auxPath string, t *solarwind.Table, imfOpts IMFOptions, rbOpts RBOptions) error {
	if err := WriteIMFFile(primaryPath, t, imfOpts); err != nil {
		return err
	}
	if auxPath != "" {
		return WriteRBSWIMFFile(auxPath, t, rbOpts)
	}
	return nil
}

// =============================================================================
// Value formatting
// =============================================================================

// formatValue renders v in its shortest decimal representation, fixed
// notation within 1e-4 <= |v| < 1e16 and exponential outside. Keeping
// everyday magnitudes out of exponential form matters because the columns
// are width-truncated: cutting "1.23456e+06" at 7 characters would silently
// change the magnitude, cutting "1234560.0" only sheds precision.
func formatValue(v float64) string {
	e := strconv.FormatFloat(v, 'e', -1, 64)
	expIdx := strings.IndexByte(e, 'e')
	exp, _ := strconv.Atoi(e[expIdx+1:])
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// truncate cuts s to at most n characters. Truncation, not rounding, is
// the format contract.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

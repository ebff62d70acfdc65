package solarwind

// columns.go - OMNI High Resolution (1-min) ASCII column catalog
//
// The SPDF archive serves one file per month (omni_min<yyyy><mm>.asc) with
// 4 leading time columns followed by 33 physical quantities per record, in
// the fixed order of the published format guide. Missing observations are
// encoded as per-column fill sentinels (all-nines at the column's width),
// which this catalog carries so parsers can turn them into missing cells.

// SchemaVersion is the current omni_1min ClickHouse schema version.
const SchemaVersion = 1

// Leading time columns of an ASCII record: year, day-of-year, hour, minute.
const TimeColumns = 4

// Quantity indices within one ASCII record, zero-based after the time
// columns (absolute column = TimeColumns + index).
const (
	QtyIMFSpacecraftID  = 0  // ID for IMF spacecraft
	QtyPlasmaSpacecraft = 1  // ID for SW plasma spacecraft
	QtyIMFPoints        = 2  // # of points in IMF averages
	QtyPlasmaPoints     = 3  // # of points in plasma averages
	QtyPercentInterp    = 4  // Percent interpolated
	QtyTimeshift        = 5  // Timeshift, sec
	QtyRMSTimeshift     = 6  // RMS timeshift
	QtyRMSPhaseFront    = 7  // RMS phase front normal
	QtyTimeBetweenObs   = 8  // Time between observations, sec
	QtyFieldMagnitude   = 9  // Field magnitude average, nT
	QtyBxGSE            = 10 // Bx, nT (GSE; identical in GSM)
	QtyByGSE            = 11 // By, nT (GSE)
	QtyBzGSE            = 12 // Bz, nT (GSE)
	QtyByGSM            = 13 // By, nT (GSM)
	QtyBzGSM            = 14 // Bz, nT (GSM)
	QtyRMSBScalar       = 15 // RMS SD B scalar, nT
	QtyRMSFieldVector   = 16 // RMS SD field vector, nT
	QtyFlowSpeed        = 17 // Flow speed, km/s
	QtyVxGSE            = 18 // Vx velocity, km/s (GSE)
	QtyVyGSE            = 19 // Vy velocity, km/s (GSE)
	QtyVzGSE            = 20 // Vz velocity, km/s (GSE)
	QtyProtonDensity    = 21 // Proton density, n/cc
	QtyTemperature      = 22 // Temperature, K
	QtyFlowPressure     = 23 // Flow pressure, nPa
	QtyElectricField    = 24 // Electric field, mV/m
	QtyPlasmaBeta       = 25 // Plasma beta
	QtyAlfvenMach       = 26 // Alfven Mach number
	QtySpacecraftX      = 27 // X(s/c), GSE, Re
	QtySpacecraftY      = 28 // Y(s/c), GSE, Re
	QtySpacecraftZ      = 29 // Z(s/c), GSE, Re
	QtyBSNXgse          = 30 // Bow shock nose location, Xgse, Re
	QtyBSNYgse          = 31 // Bow shock nose location, Ygse, Re
	QtyBSNZgse          = 32 // Bow shock nose location, Zgse, Re

	// NumQuantities is the physical quantity count per record.
	NumQuantities = 33
)

// QuantityInfo describes one archive quantity.
type QuantityInfo struct {
	Index  int     // Quantity index (column = TimeColumns + Index)
	Name   string  // Column name from the format guide
	Column string  // Snake-case identifier for storage backends
	Unit   string  // Physical unit ("" for dimensionless/IDs)
	Fill   float64 // Fill sentinel marking a missing observation
}

// quantities lists the 33 archive quantities in record order.
// Names follow the format guide; fill sentinels are the all-nines values
// the archive emits at each column's printed width.
var quantities = [NumQuantities]QuantityInfo{
	{QtyIMFSpacecraftID, "ID for IMF spacecraft", "imf_spacecraft_id", "", 99},
	{QtyPlasmaSpacecraft, "ID for SW Plasma spacecraft", "plasma_spacecraft_id", "", 99},
	{QtyIMFPoints, "# of points in IMF averages", "imf_points", "", 999},
	{QtyPlasmaPoints, "# of points in Plasma averages", "plasma_points", "", 999},
	{QtyPercentInterp, "Percent interp", "percent_interp", "", 999},
	{QtyTimeshift, "Timeshift", "timeshift_sec", "sec", 999999},
	{QtyRMSTimeshift, "RMS, Timeshift", "rms_timeshift", "sec", 999999},
	{QtyRMSPhaseFront, "RMS, Phase front normal", "rms_phase_front", "", 99.99},
	{QtyTimeBetweenObs, "Time btwn observations", "time_between_obs_sec", "sec", 999999},
	{QtyFieldMagnitude, "Field magnitude average", "field_magnitude", "nT", 9999.99},
	{QtyBxGSE, "Bx", "bx_gse", "nT", 9999.99},
	{QtyByGSE, "By (GSE)", "by_gse", "nT", 9999.99},
	{QtyBzGSE, "Bz (GSE)", "bz_gse", "nT", 9999.99},
	{QtyByGSM, "By (GSM)", "by_gsm", "nT", 9999.99},
	{QtyBzGSM, "Bz (GSM)", "bz_gsm", "nT", 9999.99},
	{QtyRMSBScalar, "RMS SD B scalar", "rms_b_scalar", "nT", 9999.99},
	{QtyRMSFieldVector, "RMS SD field vector", "rms_field_vector", "nT", 9999.99},
	{QtyFlowSpeed, "Flow speed", "flow_speed", "km/s", 99999.9},
	{QtyVxGSE, "Vx Velocity (GSE)", "vx_gse", "km/s", 99999.9},
	{QtyVyGSE, "Vy Velocity (GSE)", "vy_gse", "km/s", 99999.9},
	{QtyVzGSE, "Vz Velocity (GSE)", "vz_gse", "km/s", 99999.9},
	{QtyProtonDensity, "Proton Density", "proton_density", "n/cc", 999.99},
	{QtyTemperature, "Temperature", "temperature", "K", 9999999},
	{QtyFlowPressure, "Flow pressure", "flow_pressure", "nPa", 99.99},
	{QtyElectricField, "Electric field", "electric_field", "mV/m", 999.99},
	{QtyPlasmaBeta, "Plasma beta", "plasma_beta", "", 999.99},
	{QtyAlfvenMach, "Alfven mach number", "alfven_mach", "", 999.9},
	{QtySpacecraftX, "X(s/c), GSE", "sc_x_gse", "Re", 9999.99},
	{QtySpacecraftY, "Y(s/c), GSE", "sc_y_gse", "Re", 9999.99},
	{QtySpacecraftZ, "Z(s/c), GSE", "sc_z_gse", "Re", 9999.99},
	{QtyBSNXgse, "BSN location, Xgse", "bsn_x_gse", "Re", 9999.99},
	{QtyBSNYgse, "BSN location, Ygse", "bsn_y_gse", "Re", 9999.99},
	{QtyBSNZgse, "BSN location, Zgse", "bsn_z_gse", "Re", 9999.99},
}

// Quantity returns the catalog entry for a quantity index.
func Quantity(index int) (QuantityInfo, bool) {
	if index < 0 || index >= NumQuantities {
		return QuantityInfo{}, false
	}
	return quantities[index], true
}

// QuantityNames returns the 33 format-guide column names in record order.
func QuantityNames() []string {
	names := make([]string, NumQuantities)
	for i, q := range quantities {
		names[i] = q.Name
	}
	return names
}

// QuantityColumns returns the 33 storage identifiers in record order.
func QuantityColumns() []string {
	names := make([]string, NumQuantities)
	for i, q := range quantities {
		names[i] = q.Column
	}
	return names
}

// IsFill reports whether v is the fill sentinel for the quantity.
// Sentinels are exact decimal constants, so equality is reliable after
// strconv parsing of the archive text.
func IsFill(index int, v float64) bool {
	if index < 0 || index >= NumQuantities {
		return false
	}
	return v == quantities[index].Fill
}

// simQuantity maps each Table field to the archive quantity that feeds it.
// Simulation input convention: GSM magnetic field components (Bx is shared
// between GSE and GSM) with GSE velocity components.
var simQuantity = [NumFields]int{
	FieldBx:          QtyBxGSE,
	FieldBy:          QtyByGSM,
	FieldBz:          QtyBzGSM,
	FieldVx:          QtyVxGSE,
	FieldVy:          QtyVyGSE,
	FieldVz:          QtyVzGSE,
	FieldDensity:     QtyProtonDensity,
	FieldTemperature: QtyTemperature,
}

// SimQuantity returns the archive quantity index feeding a Table field.
func SimQuantity(f Field) int {
	return simQuantity[f]
}

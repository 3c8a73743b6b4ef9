// Package units provides shared constants and conversions for consumption units
package units

// Unit constants
const (
	KilowattHour = "kWh"
	WattHour     = "Wh"
	CubicMeter   = "m3"
	Celsius      = "°C"
)

// ValidUnits contains the unit labels readers attach by default
var ValidUnits = []string{KilowattHour, WattHour, CubicMeter, Celsius}

// IsValid checks if the given unit is in the list of known units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// DefaultGasConversionFactor is the usual French PCS figure for converting
// cubic meters of natural gas to kWh. Suppliers publish the exact per-zone
// value on each invoice.
const DefaultGasConversionFactor = 11.2

// GasEnergy converts a gas volume in cubic meters to its kWh equivalent
// using the given conversion factor (kWh per m3).
func GasEnergy(volumeM3, factor float64) float64 {
	return volumeM3 * factor
}

// WattsToKilowattHours converts an average power draw in watts sustained
// over the given fraction of an hour into consumed kWh.
// EDF 30-minute export rows report watts, so interval is 0.5.
func WattsToKilowattHours(watts, intervalHours float64) float64 {
	return watts * intervalHours / 1000.0
}

package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"kWh", KilowattHour, true},
		{"Wh", WattHour, true},
		{"m3", CubicMeter, true},
		{"celsius", Celsius, true},
		{"unknown", "furlongs", false},
		{"empty", "", false},
		{"case sensitive", "KWH", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.unit); got != tt.expected {
				t.Errorf("IsValid(%q) = %v, want %v", tt.unit, got, tt.expected)
			}
		})
	}
}

func TestGasEnergy(t *testing.T) {
	if got := GasEnergy(2.0, DefaultGasConversionFactor); math.Abs(got-22.4) > 1e-9 {
		t.Errorf("GasEnergy(2.0, default) = %f, want 22.4", got)
	}
	if got := GasEnergy(0, DefaultGasConversionFactor); got != 0 {
		t.Errorf("GasEnergy(0) = %f, want 0", got)
	}
}

func TestWattsToKilowattHours(t *testing.T) {
	tests := []struct {
		name     string
		watts    float64
		interval float64
		expected float64
	}{
		{"1kW for half an hour", 1000, 0.5, 0.5},
		{"typical EDF row", 1234, 0.5, 0.617},
		{"zero draw", 0, 0.5, 0},
		{"full hour", 2000, 1.0, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WattsToKilowattHours(tt.watts, tt.interval)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("WattsToKilowattHours(%f, %f) = %f, want %f", tt.watts, tt.interval, got, tt.expected)
			}
		})
	}
}

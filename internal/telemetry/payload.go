// v1
// internal/telemetry/payload.go

package telemetry

import (
	"encoding/json"
	"math"
	"time"

	"github.com/vpp-edge/metersim/internal/dataset"
)

// CSV column names for the seven-plus semantic telemetry fields. Columns
// missing from the source degrade to 0.0 at build time.
const (
	ColTimestamp     = "Timestamp"
	ColVoltage       = "Voltage (V)"
	ColCurrent       = "Current (A)"
	ColPowerCons     = "Power Consumption (kW)"
	ColReactivePower = "Reactive Power (kVAR)"
	ColPowerFactor   = "Power Factor"
	ColSolar         = "Solar Power (kW)"
	ColWind          = "Wind Power (kW)"
	ColGridSupply    = "Grid Supply (kW)"
	ColVoltFluct     = "Voltage Fluctuation (%)"
)

// ExpectedColumns lists every column the builder reads, for startup
// diagnostics.
var ExpectedColumns = []string{
	ColTimestamp, ColVoltage, ColCurrent, ColPowerCons, ColReactivePower,
	ColPowerFactor, ColSolar, ColWind, ColGridSupply, ColVoltFluct,
}

type Header struct {
	AssetID   string `json:"asset_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

type GridState struct {
	VoltageV           float64 `json:"voltage_v"`
	CurrentA           float64 `json:"current_a"`
	FrequencyHz        float64 `json:"frequency_hz"`
	PowerFactor        float64 `json:"power_factor"`
	VoltageFluctuation float64 `json:"voltage_fluctuation"`
}

type EnergyFlow struct {
	LoadKW            float64 `json:"load_kw"`
	SolarGenKW        float64 `json:"solar_gen_kw"`
	WindGenKW         float64 `json:"wind_gen_kw"`
	GridSupplyKW      float64 `json:"grid_supply_kw"`
	ReactivePowerKVAR float64 `json:"reactive_power_kvar"`
}

// Payload is one telemetry message. Built fresh per tick, immutable once
// built.
type Payload struct {
	Header     Header     `json:"header"`
	GridState  GridState  `json:"grid_state"`
	EnergyFlow EnergyFlow `json:"energy_flow"`
}

// Encode renders the payload in the wire format: two-space-indented JSON.
func (p Payload) Encode() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Builder maps one dataset row plus fixed asset metadata into a Payload.
// Build is pure and deterministic given identical inputs; only the
// timestamp fallback consults the clock.
type Builder struct {
	AssetID     string
	FrequencyHz float64

	now func() time.Time // test hook
}

func NewBuilder(assetID string, frequencyHz float64) Builder {
	return Builder{AssetID: assetID, FrequencyHz: frequencyHz, now: time.Now}
}

// Build constructs the telemetry payload from a single row. Grid voltage,
// current and every energy_flow field round to 4 decimals; power factor and
// voltage fluctuation round to 6. The asymmetry is part of the wire
// contract.
func (b Builder) Build(row dataset.Row) Payload {
	ts := row.Str(ColTimestamp, "")
	if ts == "" {
		now := time.Now
		if b.now != nil {
			now = b.now
		}
		ts = now().UTC().Format("2006-01-02T15:04:05Z")
	}

	return Payload{
		Header: Header{
			AssetID:   b.AssetID,
			Timestamp: ts,
			Status:    "online",
		},
		GridState: GridState{
			VoltageV:           round(row.Float(ColVoltage, 0), 4),
			CurrentA:           round(row.Float(ColCurrent, 0), 4),
			FrequencyHz:        b.FrequencyHz,
			PowerFactor:        round(row.Float(ColPowerFactor, 0), 6),
			VoltageFluctuation: round(row.Float(ColVoltFluct, 0), 6),
		},
		EnergyFlow: EnergyFlow{
			LoadKW:            round(row.Float(ColPowerCons, 0), 4),
			SolarGenKW:        round(row.Float(ColSolar, 0), 4),
			WindGenKW:         round(row.Float(ColWind, 0), 4),
			GridSupplyKW:      round(row.Float(ColGridSupply, 0), 4),
			ReactivePowerKVAR: round(row.Float(ColReactivePower, 0), 4),
		},
	}
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

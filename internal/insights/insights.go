// v1
// internal/insights/insights.go

package insights

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// Series holds aligned hourly telemetry in kW. Arrays are truncated to the
// shortest length before computing.
type Series struct {
	Load  []float64
	Solar []float64
	Wind  []float64
}

// TradeEvent is one peer-to-peer sell opportunity: an hour where local
// generation exceeded load.
type TradeEvent struct {
	ID         string  `json:"id"`
	Hour       string  `json:"hour"`
	ExcessKW   float64 `json:"excess_kw"`
	Buyer      string  `json:"buyer"`
	Offer      string  `json:"offer"`
	RevenueUSD float64 `json:"revenue_usd"`
}

// Report carries the derived grid-edge metrics over one horizon.
type Report struct {
	Hours                int          `json:"hours"`
	SurplusKW            float64      `json:"surplus_kw"`
	CarbonIntensityPct   int          `json:"carbon_intensity_pct"`
	CO2SavedKg           float64      `json:"co2_saved_kg"`
	BatteryProxyKWh      float64      `json:"battery_proxy_kwh"`
	SurvivalHours        int          `json:"survival_hours"`
	SurvivalMinutes      int          `json:"survival_minutes"`
	Trades               []TradeEvent `json:"trades"`
	TotalTradeRevenueUSD float64      `json:"total_trade_revenue_usd"`
}

// Compute derives carbon intensity, survival horizon and P2P trade
// opportunities from one horizon of load/solar/wind series.
//
// Carbon intensity scores the hour mix 0 (clean) to 100 (dirty) from the
// solar share of average load. The survival horizon assumes a battery proxy
// of two hours of average load and credits the average hourly surplus over
// the horizon, capped at 9999 h. A trade event is emitted for every hour
// with generation above load, valued at the configured price.
func Compute(s Series, co2FactorKgPerKWh, p2pPriceUSD float64) Report {
	n := len(s.Load)
	if len(s.Solar) < n {
		n = len(s.Solar)
	}
	if len(s.Wind) < n {
		n = len(s.Wind)
	}
	if n == 0 {
		return Report{}
	}
	load, solar, wind := s.Load[:n], s.Solar[:n], s.Wind[:n]

	generation := solar[n-1] + wind[n-1]
	surplus := generation - load[n-1]

	avgLoad := mean(load)
	solarUtil := math.Min(mean(solar)/math.Max(avgLoad, 1e-6), 1.0)
	carbon := 100 - int(solarUtil*100)
	if carbon < 0 {
		carbon = 0
	}
	co2Saved := sum(solar) * co2FactorKgPerKWh

	var avgSurplus float64
	for i := 0; i < n; i++ {
		avgSurplus += math.Max(solar[i]+wind[i]-load[i], 0)
	}
	avgSurplus /= float64(n)

	batteryKWh := avgLoad * 2
	survival := (batteryKWh + avgSurplus*float64(n)) / math.Max(avgLoad, 1e-3)
	survival = math.Min(survival, 9999)
	survH := int(survival)
	survM := int((survival - float64(survH)) * 60)

	var trades []TradeEvent
	var totalRev float64
	for i := 0; i < n; i++ {
		excess := (solar[i] + wind[i]) - load[i]
		if excess <= 0 {
			continue
		}
		rev := excess * p2pPriceUSD
		totalRev += rev
		trades = append(trades, TradeEvent{
			ID:         uuid.NewString(),
			Hour:       fmt.Sprintf("%02d:00", i),
			ExcessKW:   round2(excess),
			Buyer:      "neighbor-b",
			Offer:      "SELL",
			RevenueUSD: rev,
		})
	}

	return Report{
		Hours:                n,
		SurplusKW:            surplus,
		CarbonIntensityPct:   carbon,
		CO2SavedKg:           co2Saved,
		BatteryProxyKWh:      batteryKWh,
		SurvivalHours:        survH,
		SurvivalMinutes:      survM,
		Trades:               trades,
		TotalTradeRevenueUSD: totalRev,
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}

func sum(xs []float64) float64 {
	var t float64
	for _, x := range xs {
		t += x
	}
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

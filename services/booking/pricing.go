package booking

import (
	"math"

	"handyhub/models"
	"handyhub/utils"
)

const (
	DefaultMinimumCharge = 200.0
	DefaultHourlyRate    = 200.0
)

// Rates holds the call-out pricing applied to every job.
type Rates struct {
	MinimumCharge float64 `json:"minimumCharge"`
	HourlyRate    float64 `json:"hourlyRate"`
}

// DefaultRates returns the built-in rates.
func DefaultRates() Rates {
	return Rates{MinimumCharge: DefaultMinimumCharge, HourlyRate: DefaultHourlyRate}
}

// ComputeCharge prices a job of durationHours: the minimum charge covers the first hour and every
// started hour after that costs HourlyRate. Missing or non-positive durations count as one hour.
func (r Rates) ComputeCharge(durationHours any) float64 {
	d, ok := utils.ToFloat(durationHours)
	if !ok || d <= 0 {
		d = 1
	}
	if d <= 1 {
		return r.MinimumCharge
	}
	return r.MinimumCharge + math.Ceil(d-1)*r.HourlyRate
}

// ComputeCharge prices a job with the default rates.
func ComputeCharge(durationHours any) float64 {
	return DefaultRates().ComputeCharge(durationHours)
}

// ComputeMaintenanceTotal sums the three cost components. Absent, malformed or negative
// components count as 0.
func ComputeMaintenanceTotal(hourlyCharge, materialCost, additionalCharge any) float64 {
	return utils.NonNegative(hourlyCharge) + utils.NonNegative(materialCost) + utils.NonNegative(additionalCharge)
}

// MaterialCost sums the cost of every material line.
func MaterialCost(materials []models.Material) float64 {
	total := 0.0
	for _, m := range materials {
		total += utils.NonNegative(m.Cost)
	}
	return total
}

// BuildMaintenance turns provider input into a fully recomputed cost breakdown. An absent hourly
// rate falls back to r.HourlyRate; a present but malformed one is coerced to 0.
func (r Rates) BuildMaintenance(in models.MaintenanceInput) models.MaintenanceDetails {
	rate := r.HourlyRate
	if in.HourlyRate != nil {
		rate = utils.NonNegative(in.HourlyRate)
	}
	duration := utils.NonNegative(in.DurationHours)

	materials := make([]models.Material, 0, len(in.Materials))
	for _, m := range in.Materials {
		materials = append(materials, models.Material{Name: m.Name, Cost: utils.NonNegative(m.Cost)})
	}

	hourlyCharge := utils.RoundMoney(duration * rate)
	materialCost := utils.RoundMoney(MaterialCost(materials))
	additional := utils.RoundMoney(utils.NonNegative(in.AdditionalCharge))

	return models.MaintenanceDetails{
		JobDurationHours: duration,
		HourlyRate:       rate,
		HourlyCharge:     hourlyCharge,
		Materials:        materials,
		MaterialCost:     materialCost,
		AdditionalCharge: additional,
		TotalPrice:       utils.RoundMoney(ComputeMaintenanceTotal(hourlyCharge, materialCost, additional)),
		Notes:            in.Notes,
	}
}

// AmountDue is what the user pays: the maintenance total when the provider filed one, otherwise
// the duration-based base charge.
func AmountDue(session models.BookingSession) float64 {
	if session.Maintenance != nil {
		return session.Maintenance.TotalPrice
	}
	return session.BaseCharge
}

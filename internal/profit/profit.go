// Package profit implements the cost-allocation and profitability engine:
// per-client task cost aggregation, operational cost folding, margin
// classification, turnover fair-value matching and per-staff rollups.
package profit

import "github.com/ruimtc/gabinete/internal/model"

// Margin thresholds for the suggestion tier. Fixed, not configuration.
const (
	criticalBelowPercent = 10.0
	healthyFromPercent   = 30.0
)

// Operational cost conversion factors.
const (
	callMonthsPerYear    = 12.0
	minutesPerTravelTrip = 60.0
)

// Tier is the qualitative read of a client's margin.
type Tier string

const (
	TierCritical  Tier = "critical"
	TierAttention Tier = "attention"
	TierHealthy   Tier = "healthy"
)

// TaskLine is one task's contribution to a client's annual cost.
type TaskLine struct {
	TaskID        string     `json:"task_id"`
	Name          string     `json:"name"`
	Area          model.Area `json:"area"`
	Multiplier    float64    `json:"multiplier"`
	Frequency     float64    `json:"frequency"`
	AnnualMinutes float64    `json:"annual_minutes"`
	HourlyRate    float64    `json:"hourly_rate"`
	AnnualCost    float64    `json:"annual_cost"`
}

// Result is the full profitability picture for one client.
type Result struct {
	Tasks []TaskLine `json:"tasks"`

	PhoneSupportMinutes float64 `json:"phone_support_minutes"`
	TravelMinutes       float64 `json:"travel_minutes"`

	TotalAnnualMinutes float64 `json:"total_annual_minutes"`
	TotalAnnualHours   float64 `json:"total_annual_hours"`
	TotalAnnualCost    float64 `json:"total_annual_cost"`
	AnnualRevenue      float64 `json:"annual_revenue"`
	Profit             float64 `json:"profit"`
	MarginPercent      float64 `json:"margin_percent"`
	HourlyReturn       float64 `json:"hourly_return"`
	Tier               Tier    `json:"tier"`

	Turnover *TurnoverAnalysis `json:"turnover,omitempty"`
}

// EffectiveMultiplier is the quantity driving a task's annual cost for a
// client: a non-zero manual override wins, otherwise tasks with attribute
// logic read the named counter off the client. Zero means the task does not
// apply.
func EffectiveMultiplier(c model.Client, t model.Task, override *model.ClientTaskOverride) float64 {
	if override != nil && override.Multiplier > 0 {
		return override.Multiplier
	}
	if t.MultiplierLogic != "" && t.MultiplierLogic != model.LogicManual {
		return c.Attribute(t.MultiplierLogic)
	}
	return 0
}

// CalculateClientProfitability walks the entire task catalog for one client
// and folds in operational costs, revenue and the fair-value analysis.
func CalculateClientProfitability(c model.Client, tasks []model.Task, roster []model.Staff, areaCosts model.AreaCosts, brackets []model.TurnoverBracket) Result {
	res := Result{Tasks: make([]TaskLine, 0, len(tasks))}

	for _, t := range tasks {
		var override *model.ClientTaskOverride
		if ov, ok := c.Override(t.ID); ok {
			override = &ov
		}

		multiplier := EffectiveMultiplier(c, t, override)
		if multiplier <= 0 {
			continue
		}

		frequency := t.DefaultFrequencyPerYear
		if override != nil {
			frequency = override.FrequencyPerYear
		}

		minutes := t.DefaultTimeMinutes * multiplier * frequency
		rate := ResolveRate(c, t.Area, override, roster, areaCosts)
		cost := minutes / 60 * rate

		res.Tasks = append(res.Tasks, TaskLine{
			TaskID:        t.ID,
			Name:          t.Name,
			Area:          t.Area,
			Multiplier:    multiplier,
			Frequency:     frequency,
			AnnualMinutes: minutes,
			HourlyRate:    rate,
			AnnualCost:    cost,
		})
		res.TotalAnnualMinutes += minutes
		res.TotalAnnualCost += cost
	}

	// Phone support and travel are priced at the manager's rate, never at a
	// task-specific assignment.
	managerRate := ResolveRate(c, model.AreaManagement, nil, roster, areaCosts)
	res.PhoneSupportMinutes = c.CallTimeBalance * callMonthsPerYear
	res.TravelMinutes = c.TravelCount * minutesPerTravelTrip
	operationalMinutes := res.PhoneSupportMinutes + res.TravelMinutes
	res.TotalAnnualMinutes += operationalMinutes
	res.TotalAnnualCost += operationalMinutes / 60 * managerRate

	res.TotalAnnualHours = res.TotalAnnualMinutes / 60
	res.AnnualRevenue = c.MonthlyFee * 12
	res.Profit = res.AnnualRevenue - res.TotalAnnualCost
	if res.AnnualRevenue > 0 {
		res.MarginPercent = res.Profit / res.AnnualRevenue * 100
	}
	if res.TotalAnnualHours > 0 {
		res.HourlyReturn = res.AnnualRevenue / res.TotalAnnualHours
	}
	res.Tier = ClassifyMargin(res.MarginPercent)

	if analysis, ok := MatchBracket(brackets, c.Turnover, c.MonthlyFee); ok {
		res.Turnover = &analysis
	}

	return res
}

// ClassifyMargin maps a margin percentage to its suggestion tier.
func ClassifyMargin(marginPercent float64) Tier {
	switch {
	case marginPercent < criticalBelowPercent:
		return TierCritical
	case marginPercent < healthyFromPercent:
		return TierAttention
	default:
		return TierHealthy
	}
}

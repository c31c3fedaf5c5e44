package profit

import "github.com/ruimtc/gabinete/internal/model"

// StaffStats is the per-employee inversion of the client aggregation: hours
// follow task assignment, revenue follows client management.
type StaffStats struct {
	StaffID                    string  `json:"staff_id"`
	TotalAnnualMinutes         float64 `json:"total_annual_minutes"`
	TotalAnnualHours           float64 `json:"total_annual_hours"`
	AllocatedHoursPerMonth     float64 `json:"allocated_hours_per_month"`
	CapacityUtilizationPercent float64 `json:"capacity_utilization_percent"`
	ManagedClients             int     `json:"managed_clients"`
	AttributedRevenue          float64 `json:"attributed_revenue"`
	Cost                       float64 `json:"cost"`
	ProfitabilityPercent       float64 `json:"profitability_percent"`
}

// CalculateStaffStats credits every client/task pair to its performing staff
// member and sums the hours landing on the given employee. A task is credited
// to the staff member directly assigned on the override; without a resolvable
// assignment it falls to the client's responsible manager. Revenue is never
// split: a client's full annual revenue belongs to its manager even when
// every task is assigned elsewhere.
func CalculateStaffStats(member model.Staff, clients []model.Client, tasks []model.Task, roster []model.Staff) StaffStats {
	stats := StaffStats{StaffID: member.ID}

	for _, c := range clients {
		manager, hasManager := ResolveManager(c, roster)
		managed := hasManager && manager.ID == member.ID

		for _, t := range tasks {
			var override *model.ClientTaskOverride
			if ov, ok := c.Override(t.ID); ok {
				override = &ov
			}

			multiplier := EffectiveMultiplier(c, t, override)
			if multiplier <= 0 {
				continue
			}
			if !creditedToMember(member, override, managed, roster) {
				continue
			}

			frequency := t.DefaultFrequencyPerYear
			if override != nil {
				frequency = override.FrequencyPerYear
			}
			stats.TotalAnnualMinutes += t.DefaultTimeMinutes * multiplier * frequency
		}

		if managed {
			stats.ManagedClients++
			stats.AttributedRevenue += c.MonthlyFee * 12
			// Operational work is always the manager's.
			stats.TotalAnnualMinutes += c.CallTimeBalance*callMonthsPerYear + c.TravelCount*minutesPerTravelTrip
		}
	}

	stats.TotalAnnualHours = stats.TotalAnnualMinutes / 60
	stats.AllocatedHoursPerMonth = stats.TotalAnnualHours / 12
	if member.CapacityHoursPerMonth > 0 {
		stats.CapacityUtilizationPercent = stats.AllocatedHoursPerMonth / member.CapacityHoursPerMonth * 100
	}
	stats.Cost = stats.TotalAnnualHours * member.HourlyCost()
	if stats.AttributedRevenue > 0 {
		stats.ProfitabilityPercent = (stats.AttributedRevenue - stats.Cost) / stats.AttributedRevenue * 100
	}

	return stats
}

func creditedToMember(member model.Staff, override *model.ClientTaskOverride, managed bool, roster []model.Staff) bool {
	if override != nil && override.AssignedStaffID != "" {
		if _, ok := staffByID(roster, override.AssignedStaffID); ok {
			return override.AssignedStaffID == member.ID
		}
	}
	// No resolvable assignment: the manager performs the task.
	return managed
}

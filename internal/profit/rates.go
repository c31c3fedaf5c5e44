package profit

import "github.com/ruimtc/gabinete/internal/model"

// DefaultAreaRate is charged when a task's area has no configured cost and no
// staff member could be resolved. The chain in ResolveRate always terminates
// in a numeric rate; unresolved references are not errors.
const DefaultAreaRate = 25.0

// ResolveManager finds the client's responsible staff member in the roster.
// Legacy records reference staff by plain name instead of id; both forms are
// accepted.
func ResolveManager(c model.Client, roster []model.Staff) (model.Staff, bool) {
	ref := c.ResponsibleStaff
	if ref.IsZero() {
		return model.Staff{}, false
	}
	if ref.ID != "" {
		for _, s := range roster {
			if s.ID == ref.ID {
				return s, true
			}
		}
	}
	if ref.Name != "" {
		for _, s := range roster {
			if s.Name == ref.Name {
				return s, true
			}
		}
	}
	return model.Staff{}, false
}

func staffByID(roster []model.Staff, id string) (model.Staff, bool) {
	for _, s := range roster {
		if s.ID == id {
			return s, true
		}
	}
	return model.Staff{}, false
}

// ResolveRate picks the hourly cost rate for one task of one client:
// assigned staff on the override, then the client's manager, then the area
// default, then DefaultAreaRate.
func ResolveRate(c model.Client, area model.Area, override *model.ClientTaskOverride, roster []model.Staff, areaCosts model.AreaCosts) float64 {
	if override != nil && override.AssignedStaffID != "" {
		if s, ok := staffByID(roster, override.AssignedStaffID); ok {
			return s.HourlyCost()
		}
	}
	if manager, ok := ResolveManager(c, roster); ok {
		return manager.HourlyCost()
	}
	if cost, ok := areaCosts[area]; ok {
		return cost
	}
	return DefaultAreaRate
}

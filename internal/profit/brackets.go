package profit

import "github.com/ruimtc/gabinete/internal/model"

// FeeStatus compares the contracted fee against the recommended range.
type FeeStatus string

const (
	FeeUnderpriced  FeeStatus = "underpriced"
	FeeAdjusted     FeeStatus = "adjusted"
	FeeAboveAverage FeeStatus = "above_average"
)

// TurnoverAnalysis is the fair-value recommendation for a client's turnover.
type TurnoverAnalysis struct {
	Bracket           model.TurnoverBracket `json:"bracket"`
	MinRecommendedFee float64               `json:"min_recommended_fee"`
	MaxRecommendedFee float64               `json:"max_recommended_fee"`
	Status            FeeStatus             `json:"status"`
}

// MatchBracket finds the first bracket, in table order, whose range contains
// the turnover. Brackets are meant to partition the turnover axis, but
// misconfigured tables with gaps or overlaps are tolerated: overlaps resolve
// to the lowest index, gaps yield no recommendation.
func MatchBracket(brackets []model.TurnoverBracket, turnover, monthlyFee float64) (TurnoverAnalysis, bool) {
	for _, b := range brackets {
		if turnover < b.MinTurnover || turnover > b.MaxTurnover {
			continue
		}

		analysis := TurnoverAnalysis{
			Bracket:           b,
			MinRecommendedFee: turnover * b.MinPercent / 100 / 12,
			MaxRecommendedFee: turnover * b.MaxPercent / 100 / 12,
		}
		switch {
		case monthlyFee < analysis.MinRecommendedFee:
			analysis.Status = FeeUnderpriced
		case monthlyFee > analysis.MaxRecommendedFee:
			analysis.Status = FeeAboveAverage
		default:
			analysis.Status = FeeAdjusted
		}
		return analysis, true
	}
	return TurnoverAnalysis{}, false
}

package profit

import (
	"testing"

	"github.com/ruimtc/gabinete/internal/model"
)

func TestMatchBracketEndToEndUnderpriced(t *testing.T) {
	brackets := []model.TurnoverBracket{
		{MinTurnover: 0, MaxTurnover: 100000, MinPercent: 1, MaxPercent: 2},
	}

	analysis, ok := MatchBracket(brackets, 50000, 30)
	if !ok {
		t.Fatal("expected a bracket match")
	}

	nearlyEqual(t, "minRecommendedFee", analysis.MinRecommendedFee, 50000*0.01/12)
	nearlyEqual(t, "maxRecommendedFee", analysis.MaxRecommendedFee, 50000*0.02/12)
	if analysis.Status != FeeUnderpriced {
		t.Fatalf("expected underpriced, got %s", analysis.Status)
	}
}

func TestMatchBracketFirstMatchWinsOnOverlap(t *testing.T) {
	brackets := []model.TurnoverBracket{
		{MinTurnover: 0, MaxTurnover: 200000, MinPercent: 1, MaxPercent: 2},
		{MinTurnover: 50000, MaxTurnover: 100000, MinPercent: 3, MaxPercent: 4},
	}

	analysis, ok := MatchBracket(brackets, 75000, 100)
	if !ok {
		t.Fatal("expected a bracket match")
	}
	if analysis.Bracket.MinPercent != 1 {
		t.Fatalf("expected the first bracket in table order, got %+v", analysis.Bracket)
	}

	// Removing the first bracket promotes the next containing one.
	analysis, ok = MatchBracket(brackets[1:], 75000, 100)
	if !ok {
		t.Fatal("expected a match against the remaining bracket")
	}
	if analysis.Bracket.MinPercent != 3 {
		t.Fatalf("expected the overlapping bracket, got %+v", analysis.Bracket)
	}
}

func TestMatchBracketGapYieldsNoRecommendation(t *testing.T) {
	brackets := []model.TurnoverBracket{
		{MinTurnover: 0, MaxTurnover: 10000, MinPercent: 1, MaxPercent: 2},
		{MinTurnover: 50000, MaxTurnover: 100000, MinPercent: 1, MaxPercent: 2},
	}

	if _, ok := MatchBracket(brackets, 25000, 100); ok {
		t.Fatal("expected no match inside the gap")
	}
	if _, ok := MatchBracket(nil, 25000, 100); ok {
		t.Fatal("expected no match on empty table")
	}
}

func TestMatchBracketStatusBoundaries(t *testing.T) {
	brackets := []model.TurnoverBracket{{MinTurnover: 0, MaxTurnover: 120000, MinPercent: 1, MaxPercent: 2}}

	// turnover 120000: recommended range is 100..200 per month.
	cases := []struct {
		fee  float64
		want FeeStatus
	}{
		{99.99, FeeUnderpriced},
		{100, FeeAdjusted},
		{150, FeeAdjusted},
		{200, FeeAdjusted},
		{200.01, FeeAboveAverage},
	}
	for _, tc := range cases {
		analysis, ok := MatchBracket(brackets, 120000, tc.fee)
		if !ok {
			t.Fatalf("expected match for fee %v", tc.fee)
		}
		if analysis.Status != tc.want {
			t.Fatalf("fee %v: status = %s, want %s", tc.fee, analysis.Status, tc.want)
		}
	}
}

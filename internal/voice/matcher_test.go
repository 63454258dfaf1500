package voice

import (
	"testing"

	"github.com/echohq/echo/internal/events"
)

func TestMatchOrdinalOptionOne(t *testing.T) {
	res := Match("option one", []string{"RS256", "HS256"}, events.BlockPermissionPrompt)
	if res.Text != "RS256" || res.Method != events.MatchOrdinal || res.Confidence != 0.95 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestMatchOrdinalOptionTenMapsToIndexNine(t *testing.T) {
	options := make([]string, 10)
	for i := range options {
		options[i] = "opt" + string(rune('A'+i))
	}
	res := Match("option ten", options, events.BlockQuestion)
	if res.Text != options[9] || res.Method != events.MatchOrdinal {
		t.Fatalf("expected ordinal ten to map to options[9], got %+v", res)
	}
}

func TestMatchYesNoAffirmative(t *testing.T) {
	res := Match("yeah go for it", []string{"Allow", "Deny"}, events.BlockPermissionPrompt)
	if res.Text != "Allow" || res.Method != events.MatchYesNo || res.Confidence != 0.9 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestMatchYesNoNegative(t *testing.T) {
	res := Match("no thanks", []string{"Allow", "Deny"}, events.BlockPermissionPrompt)
	if res.Text != "Deny" || res.Method != events.MatchYesNo {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestMatchYesNoDoesNotApplyOutsidePermissionPrompt(t *testing.T) {
	res := Match("yeah", []string{"Allow", "Deny"}, events.BlockQuestion)
	if res.Method == events.MatchYesNo {
		t.Fatalf("yes/no should only apply for permission_prompt, got %+v", res)
	}
}

func TestMatchDirectLongestOptionWins(t *testing.T) {
	res := Match("use rs256 please", []string{"RS", "RS256"}, events.BlockQuestion)
	if res.Text != "RS256" || res.Method != events.MatchDirect {
		t.Fatalf("expected longest direct match to win, got %+v", res)
	}
}

func TestMatchFuzzyBelowThresholdFallsThroughToVerbatim(t *testing.T) {
	res := Match("completely unrelated noise", []string{"Allow", "Deny"}, events.BlockPermissionPrompt)
	if res.Method != events.MatchVerbatim || res.Confidence >= fuzzyThreshold {
		t.Fatalf("expected low-confidence verbatim fallback, got %+v", res)
	}
}

func TestMatchVerbatimWhenNoOptions(t *testing.T) {
	res := Match("anything goes", nil, "")
	if res.Text != "anything goes" || res.Confidence != 1.0 || res.Method != events.MatchVerbatim {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestMatchIsPureFunction(t *testing.T) {
	a := Match("option one", []string{"A", "B"}, events.BlockPermissionPrompt)
	b := Match("option one", []string{"A", "B"}, events.BlockPermissionPrompt)
	if a != b {
		t.Fatalf("expected Match to be pure, got %+v vs %+v", a, b)
	}
}

func TestSimilarityRatioIdentical(t *testing.T) {
	if got := similarityRatio("allow", "allow"); got != 1.0 {
		t.Fatalf("expected ratio 1.0 for identical strings, got %v", got)
	}
}

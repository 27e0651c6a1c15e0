package domain

import "testing"

func TestComputeOverall(t *testing.T) {
	cases := []struct {
		name    string
		fit     float64
		urgency float64
		size    float64
		want    float64
	}{
		{"weighted", 7, 8, 6, 7.1},
		{"all max", 10, 10, 10, 10},
		{"clamped low", 0, -3, 0, 1},
		{"clamped high", 14, 10, 11, 10},
		{"one decimal", 6, 6, 4, 5.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeOverall(tc.fit, tc.urgency, tc.size); got != tc.want {
				t.Fatalf("ComputeOverall(%v, %v, %v) = %v, want %v", tc.fit, tc.urgency, tc.size, got, tc.want)
			}
		})
	}
}

func TestScoresQualifiedThreshold(t *testing.T) {
	if !NewScores(4, 4, 4).IsQualified() {
		t.Fatal("overall 4.0 should qualify")
	}
	if NewScores(4, 3, 4).IsQualified() {
		t.Fatal("overall below 4.0 should not qualify")
	}
}

func TestNormalizeTier(t *testing.T) {
	cases := map[string]Tier{
		"":             TierCore,
		"starter":      TierCore,
		"Core":         TierCore,
		"professional": TierGrowth,
		"growth":       TierGrowth,
		"scale":        TierScale,
		"enterprise":   TierScale,
	}
	for input, want := range cases {
		if got := NormalizeTier(input); got != want {
			t.Errorf("NormalizeTier(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTierPrices(t *testing.T) {
	if TierCore.MonthlyPriceZAR() != 1500 || TierGrowth.MonthlyPriceZAR() != 3500 || TierScale.MonthlyPriceZAR() != 7500 {
		t.Fatal("unexpected tier prices")
	}
	if _, ok := ParseTier("enterprise"); ok {
		t.Fatal("ParseTier should reject unknown tiers")
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := [][2]QualificationStatus{
		{StatusPending, StatusQualifying},
		{StatusQualifying, StatusPending},
		{StatusQualifying, StatusQualified},
		{StatusQualifying, StatusDisqualified},
		{StatusQualified, StatusApproved},
		{StatusQualified, StatusRejected},
		{StatusDisqualified, StatusRejected},
		{StatusApproved, StatusProvisioning},
		{StatusProvisioning, StatusProvisioned},
	}
	for _, pair := range allowed {
		if err := ValidateTransition(pair[0], pair[1]); err != nil {
			t.Errorf("%s -> %s should be allowed", pair[0], pair[1])
		}
	}

	blocked := [][2]QualificationStatus{
		{StatusDisqualified, StatusApproved},
		{StatusPending, StatusApproved},
		{StatusApproved, StatusProvisioned},
		{StatusProvisioned, StatusPending},
		{StatusRejected, StatusApproved},
	}
	for _, pair := range blocked {
		if err := ValidateTransition(pair[0], pair[1]); err == nil {
			t.Errorf("%s -> %s should be blocked", pair[0], pair[1])
		}
	}
}

func TestDisplayNameFallbacks(t *testing.T) {
	phone := "+27123456789"
	if got := (Lead{ID: "lead-1", PhoneNumber: &phone}).DisplayName(); got != phone {
		t.Fatalf("expected phone fallback, got %q", got)
	}
	if got := (Lead{ID: "lead-1"}).DisplayName(); got != "lead-1" {
		t.Fatalf("expected id fallback, got %q", got)
	}
}

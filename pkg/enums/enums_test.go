package enums

import "testing"

func TestParseSubscriptionStatus(t *testing.T) {
	for _, raw := range []string{"active", "canceled", "expired", "pending"} {
		got, err := ParseSubscriptionStatus(raw)
		if err != nil {
			t.Fatalf("ParseSubscriptionStatus(%q) returned %v", raw, err)
		}
		if !got.IsValid() || got.String() != raw {
			t.Fatalf("unexpected status %q", got)
		}
	}
	if _, err := ParseSubscriptionStatus("trialing"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestParseLanguageFilter(t *testing.T) {
	cases := map[string]LanguageFilter{
		"":         LanguageFilterAll,
		"all":      LanguageFilterAll,
		" Premium": LanguageFilterPremium,
		"free":     LanguageFilterFree,
	}
	for raw, want := range cases {
		got, err := ParseLanguageFilter(raw)
		if err != nil {
			t.Fatalf("ParseLanguageFilter(%q) returned %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseLanguageFilter(%q) = %q, want %q", raw, got, want)
		}
	}
	if _, err := ParseLanguageFilter("paid"); err == nil {
		t.Fatal("expected unknown filter to fail")
	}
}

func TestPlanTypeAndDenialReason(t *testing.T) {
	if _, err := ParsePlanType("enterprise"); err == nil {
		t.Fatal("expected unknown plan type to fail")
	}
	if PlanTypePremium.String() != "premium" {
		t.Fatalf("unexpected premium string %q", PlanTypePremium)
	}
	if DenialReasonDailyLimitReached.Message() == "" || DenialReasonLanguageRequiresPremium.Message() == "" {
		t.Fatal("denial reasons need user facing messages")
	}
	if DenialReasonNone.Message() != "" {
		t.Fatal("no message expected for an allowed decision")
	}
}

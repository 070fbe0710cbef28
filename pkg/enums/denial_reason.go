package enums

// DenialReason explains why an operation was refused.
type DenialReason string

const (
	DenialReasonNone                    DenialReason = ""
	DenialReasonDailyLimitReached       DenialReason = "daily_limit_reached"
	DenialReasonLanguageRequiresPremium DenialReason = "language_requires_premium"
)

// String implements fmt.Stringer.
func (r DenialReason) String() string {
	return string(r)
}

// Message returns the user facing explanation for the reason.
func (r DenialReason) Message() string {
	switch r {
	case DenialReasonDailyLimitReached:
		return "daily operation limit reached, upgrade to premium for more"
	case DenialReasonLanguageRequiresPremium:
		return "this language is only available on the premium plan"
	default:
		return ""
	}
}

package underwriting

// Verdict is the three-way recommendation derived from ROI alone.
type Verdict string

const (
	VerdictBuy      Verdict = "buy"
	VerdictConsider Verdict = "consider"
	VerdictPass     Verdict = "pass"
)

// ROI bands, lower bound inclusive.
const (
	BuyThreshold      = 25.0
	ConsiderThreshold = 10.0
)

// GetVerdict maps ROI (in percent) to a recommendation:
//
//	roi >= 25       -> buy
//	10 <= roi < 25  -> consider
//	roi < 10        -> pass (negative ROI included)
func GetVerdict(roi float64) Verdict {
	switch {
	case roi >= BuyThreshold:
		return VerdictBuy
	case roi >= ConsiderThreshold:
		return VerdictConsider
	default:
		return VerdictPass
	}
}

// Text returns the label shown next to the verdict badge.
func (v Verdict) Text() string {
	switch v {
	case VerdictBuy:
		return "Strong Buy"
	case VerdictConsider:
		return "Consider"
	case VerdictPass:
		return "Pass"
	}
	return string(v)
}

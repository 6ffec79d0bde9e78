package underwriting

// Analysis bundles the three outputs of one underwriting pass.
type Analysis struct {
	Deal        Deal              `json:"deal"`
	Metrics     CalculatedMetrics `json:"metrics"`
	Verdict     Verdict           `json:"verdict"`
	VerdictText string            `json:"verdict_text"`
	RiskFactors [3]RiskFactor     `json:"risk_factors"`
}

// Evaluate runs metrics, then the verdict from ROI, then risk factors from
// the same deal and metrics.
func Evaluate(deal Deal) (*Analysis, error) {
	m, err := CalculateMetrics(deal)
	if err != nil {
		return nil, err
	}
	v := GetVerdict(m.ROI)
	return &Analysis{
		Deal:        deal,
		Metrics:     m,
		Verdict:     v,
		VerdictText: v.Text(),
		RiskFactors: CalculateRiskFactors(deal, m),
	}, nil
}

// Package portfolio aggregates property records into the dashboard views:
// book totals, the deal pipeline by stage, and geographic exposure by county.
package portfolio

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/model"
)

// averagePlaces is the precision of every average in the aggregates.
const averagePlaces = 4

// Summarize totals the book. Averages only include records that carry
// the averaged value.
func Summarize(props []model.Property) model.PortfolioSummary {
	s := model.PortfolioSummary{
		TotalProperties:  len(props),
		TotalUPB:         decimal.Zero,
		TotalBPO:         decimal.Zero,
		TotalStrikePrice: decimal.Zero,
		AvgInterestRate:  decimal.Zero,
	}

	var rates mean
	for _, p := range props {
		if p.IsActive {
			s.ActiveProperties++
		}
		if p.ForeclosureFlag {
			s.Foreclosures++
		}
		if p.BankruptcyFlag {
			s.Bankruptcies++
		}
		s.TotalUPB = s.TotalUPB.Add(valueOrZero(p.UPB))
		s.TotalBPO = s.TotalBPO.Add(valueOrZero(p.BPO))
		s.TotalStrikePrice = s.TotalStrikePrice.Add(valueOrZero(p.StrikePrice))
		rates.add(p.CurrentInterestRate)
	}
	s.AvgInterestRate = rates.value()
	return s
}

// Pipeline groups properties by deal stage, ordered by stage name.
// Records without a stage are grouped under "Unassigned".
func Pipeline(props []model.Property) []model.PipelineStage {
	type acc struct {
		count   int
		capital decimal.Decimal
		roi     mean
		irr     mean
	}

	groups := make(map[string]*acc)
	for _, p := range props {
		stage := p.DealStage
		if stage == "" {
			stage = "Unassigned"
		}
		g, ok := groups[stage]
		if !ok {
			g = &acc{capital: decimal.Zero}
			groups[stage] = g
		}
		g.count++
		g.capital = g.capital.Add(valueOrZero(p.StrikePrice))
		g.roi.add(p.EstimatedROI)
		g.irr.add(p.EstimatedIRR)
	}

	stages := make([]model.PipelineStage, 0, len(groups))
	for name, g := range groups {
		stages = append(stages, model.PipelineStage{
			Stage:        name,
			DealCount:    g.count,
			TotalCapital: g.capital,
			AvgROI:       g.roi.value(),
			AvgIRR:       g.irr.value(),
		})
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].Stage < stages[j].Stage })
	return stages
}

// ByCounty groups properties by county, largest Σ BPO first. Records
// without a county are skipped.
func ByCounty(props []model.Property) []model.CountyExposure {
	index := make(map[string]int)
	out := make([]model.CountyExposure, 0)
	for _, p := range props {
		if p.County == "" {
			continue
		}
		i, ok := index[p.County]
		if !ok {
			i = len(out)
			index[p.County] = i
			out = append(out, model.CountyExposure{County: p.County, TotalValue: decimal.Zero})
		}
		out[i].Count++
		out[i].TotalValue = out[i].TotalValue.Add(valueOrZero(p.BPO))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].TotalValue.Cmp(out[j].TotalValue); c != 0 {
			return c > 0
		}
		return out[i].County < out[j].County
	})
	return out
}

func valueOrZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}

// mean accumulates an average over present values only.
type mean struct {
	sum decimal.Decimal
	n   int64
}

func (m *mean) add(v decimal.NullDecimal) {
	if !v.Valid {
		return
	}
	m.sum = m.sum.Add(v.Decimal)
	m.n++
}

func (m mean) value() decimal.Decimal {
	if m.n == 0 {
		return decimal.Zero
	}
	return m.sum.Div(decimal.NewFromInt(m.n)).Round(averagePlaces)
}

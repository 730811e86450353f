package engine

import (
	"math"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// Breakdown is the commission of one deal split by component.
type Breakdown struct {
	Front      float64 `json:"front"`
	Back       float64 `json:"back"`
	Reserve    float64 `json:"reserve"`
	Flat       float64 `json:"flat"`
	Spiffs     float64 `json:"spiffs"`
	Chargeback float64 `json:"chargeback"`
	Total      float64 `json:"total"`
}

// CalculateCommission returns the commission paid on one deal.
func CalculateCommission(deal domain.Deal, plan domain.PayPlan) float64 {
	return CommissionBreakdown(deal, plan).Total
}

// CommissionBreakdown computes each component in fixed order: front, back,
// finance reserve, then flat + spiffs − chargeback. A positive override
// replaces its component outright; zero or negative overrides are ignored.
// Product flags never pay.
func CommissionBreakdown(deal domain.Deal, plan domain.PayPlan) Breakdown {
	b := Breakdown{
		Front:      frontCommission(deal, plan),
		Back:       backCommission(deal, plan),
		Reserve:    reserveCommission(deal, plan),
		Flat:       deal.Flat.Float(),
		Spiffs:     deal.Spiffs.Float(),
		Chargeback: deal.Chargeback.Float(),
	}
	b.Total = b.Front + b.Back + b.Reserve + b.Flat + b.Spiffs - b.Chargeback
	return b
}

func frontCommission(deal domain.Deal, plan domain.PayPlan) float64 {
	if o := deal.OverrideFront.Float(); o > 0 {
		return o
	}
	pack := plan.Pack.Float()
	if deal.Pack != nil {
		pack = deal.Pack.Float()
	}
	payable := math.Max(0, deal.FrontGross.Float()-pack)
	return payable * (plan.FrontCommissionPercent.Float() / 100)
}

func backCommission(deal domain.Deal, plan domain.PayPlan) float64 {
	if o := deal.OverrideBack.Float(); o > 0 {
		return o
	}
	return deal.BackGross.Float() * (plan.BackCommissionPercent.Float() / 100)
}

// reserveCommission is not clamped in percentage mode: a negative finance
// gross produces negative reserve pay.
func reserveCommission(deal domain.Deal, plan domain.PayPlan) float64 {
	if o := deal.OverrideReserve.Float(); o > 0 {
		return o
	}
	finance := deal.FinanceGross.Float()
	if plan.FinanceReserve.Mode == domain.PayoutFlat {
		if finance > 0 {
			return plan.FinanceReserve.Value.Float()
		}
		return 0
	}
	return finance * (plan.FinanceReserve.Value.Float() / 100)
}

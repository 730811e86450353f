package engine

import (
	"math"
	"sort"
	"time"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// RecalculateStats builds the month-to-date summary for the month containing
// asOf. Deals are bucketed by delivery date in asOf's location.
func RecalculateStats(deals []domain.Deal, plan domain.PayPlan, goals domain.Goals, asOf time.Time) domain.UserStats {
	loc := asOf.Location()
	year, month, day := asOf.Date()

	var stats domain.UserStats
	var commissionSum float64
	for _, deal := range deals {
		d, ok := parseCivil(deal.DeliveryDate, loc)
		if !ok || !d.sameMonth(year, month) {
			continue
		}
		stats.UnitsMTD++
		stats.TotalGross += deal.TotalGross()
		stats.Chargebacks += deal.Chargeback.Float()
		commissionSum += CalculateCommission(deal, plan)
	}

	stats.Bonuses = BonusForUnits(plan.VolumeBonuses, stats.UnitsMTD)
	stats.CommissionMTD = commissionSum + stats.Bonuses

	daysInMonth := DaysInMonth(year, month)
	effectiveDay := max(1, day)
	runRate := float64(daysInMonth) / float64(effectiveDay)

	if stats.UnitsMTD > 0 {
		stats.ProjectedUnits = int(roundHalfUp(float64(stats.UnitsMTD) * runRate))
		stats.ProjectedIncome = roundHalfUp(stats.CommissionMTD * runRate)
	} else {
		stats.ProjectedIncome = roundHalfUp(goals.AssumedAvgCommission.Float() * goals.NewUnitsGoal.Float())
	}

	progress := float64(effectiveDay) / float64(daysInMonth)
	targetIncome := roundHalfUp(goals.IncomeGoal.Float() * progress)
	stats.IncomeVariance = roundHalfUp(stats.CommissionMTD - targetIncome)
	stats.UnitVariance = int(roundHalfUp(float64(stats.UnitsMTD) - TargetUnitPace(goals, asOf)))

	return stats
}

// BonusForUnits returns the bonus of the highest volume tier whose threshold
// is met, or 0. The input slice is not reordered.
func BonusForUnits(bonuses []domain.VolumeBonus, units int) float64 {
	if len(bonuses) == 0 {
		return 0
	}
	tiers := append([]domain.VolumeBonus(nil), bonuses...)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].Units.Float() > tiers[j].Units.Float()
	})
	for _, t := range tiers {
		if t.Units.Float() <= float64(units) {
			return t.Bonus.Float()
		}
	}
	return 0
}

// TargetUnitPace is the unit count a linear month reaches by asOf, unrounded.
func TargetUnitPace(goals domain.Goals, asOf time.Time) float64 {
	year, month, day := asOf.Date()
	progress := float64(max(1, day)) / float64(DaysInMonth(year, month))
	return goals.TotalUnitsGoal() * progress
}

// IncomePace summarizes progress toward the monthly income goal.
func IncomePace(stats domain.UserStats, goals domain.Goals, asOf time.Time) domain.PaceSummary {
	year, month, day := asOf.Date()
	goal := goals.IncomeGoal.Float()

	pace := domain.PaceSummary{
		IncomeGoal:      goal,
		CommissionMTD:   stats.CommissionMTD,
		ProjectedIncome: stats.ProjectedIncome,
		Gap:             math.Max(0, goal-stats.CommissionMTD),
		DaysRemaining:   max(0, DaysInMonth(year, month)-day),
	}
	if goal > 0 {
		pct := roundHalfUp(stats.CommissionMTD / goal * 100)
		pace.PercentOfGoal = int(math.Max(0, math.Min(100, pct)))
	}
	return pace
}

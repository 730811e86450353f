package engine

import (
	"time"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// StreakLookbackDays caps how far back the dead-streak counter searches.
const StreakLookbackDays = 30

// CalculateCoachingStats builds the coaching snapshot for the month containing
// now. Commission here excludes volume bonuses. now's location decides which
// calendar day "today" is.
func CalculateCoachingStats(deals []domain.Deal, plan domain.PayPlan, monthlyGoal float64, tier domain.Tier, now time.Time) domain.CoachingContext {
	loc := now.Location()
	today := civilOf(now)
	lastYear, lastMonth := previousMonth(today.year, today.month)

	ctx := domain.CoachingContext{
		MonthlyGoal: monthlyGoal,
		DaysElapsed: today.day,
		DaysInMonth: DaysInMonth(today.year, today.month),
		Tier:        domain.ParseTier(string(tier)),
	}

	dealDays := make(map[civilDate]int)
	for _, deal := range deals {
		d, ok := parseCivil(deal.DeliveryDate, loc)
		if !ok {
			continue
		}
		dealDays[d]++

		switch {
		case d.sameMonth(today.year, today.month):
			ctx.DealsThisMonth++
			ctx.CommissionThisMonth += CalculateCommission(deal, plan)
		case d.sameMonth(lastYear, lastMonth):
			ctx.DealsLastMonth++
			ctx.CommissionLastMonth += CalculateCommission(deal, plan)
		}
	}

	if ctx.DealsThisMonth > 0 {
		ctx.AvgCommissionThisMonth = ctx.CommissionThisMonth / float64(ctx.DealsThisMonth)
	}
	if ctx.DealsLastMonth > 0 {
		ctx.AvgCommissionLastMonth = ctx.CommissionLastMonth / float64(ctx.DealsLastMonth)
	}

	ctx.TodayDeals = dealDays[today]
	ctx.RecentDaysWithoutDeals = deadStreak(dealDays, today)
	return ctx
}

// deadStreak counts consecutive zero-deal days ending yesterday. A deal
// today, or no deal before today at all, yields 0.
func deadStreak(dealDays map[civilDate]int, today civilDate) int {
	if dealDays[today] > 0 || !anyBefore(dealDays, today) {
		return 0
	}
	streak := 0
	for day := today.addDays(-1); streak < StreakLookbackDays; day = day.addDays(-1) {
		if dealDays[day] > 0 {
			break
		}
		streak++
	}
	return streak
}

func anyBefore(dealDays map[civilDate]int, today civilDate) bool {
	for d := range dealDays {
		if d.before(today) {
			return true
		}
	}
	return false
}

package engine

import (
	"math"
	"time"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// ProductPenetration reports, for every product, the share of deals
// delivered in asOf's month that carried it.
func ProductPenetration(deals []domain.Deal, asOf time.Time) []domain.PenetrationStat {
	loc := asOf.Location()
	year, month, _ := asOf.Date()

	counts := make(map[domain.Product]int, len(domain.Products))
	units := 0
	for _, deal := range deals {
		d, ok := parseCivil(deal.DeliveryDate, loc)
		if !ok || !d.sameMonth(year, month) {
			continue
		}
		units++
		for _, p := range domain.Products {
			if deal.Products.Has(p) {
				counts[p]++
			}
		}
	}

	denom := float64(max(1, units))
	out := make([]domain.PenetrationStat, 0, len(domain.Products))
	for _, p := range domain.Products {
		out = append(out, domain.PenetrationStat{
			Product:    p,
			Label:      domain.ProductLabels[p],
			Percentage: int(roundHalfUp(float64(counts[p]) / denom * 100)),
		})
	}
	return out
}

// EvaluateAchievements scores the achievement catalog. Lifetime badges read
// every deal; Money Maker reads the month-to-date commission in stats.
// Progress is capped at the target.
func EvaluateAchievements(deals []domain.Deal, plan domain.PayPlan, stats domain.UserStats) []domain.Achievement {
	var maxProducts int
	var bestDeal float64
	for i, deal := range deals {
		maxProducts = max(maxProducts, deal.Products.Count())
		c := CalculateCommission(deal, plan)
		if i == 0 || c > bestDeal {
			bestDeal = c
		}
	}

	values := map[domain.AchievementKey]float64{
		domain.AchievementFirstBlood:   float64(len(deals)),
		domain.AchievementDoubleDigits: float64(len(deals)),
		domain.AchievementMoneyMaker:   stats.CommissionMTD,
		domain.AchievementProductPro:   float64(maxProducts),
		domain.AchievementBigHitter:    bestDeal,
	}

	catalog := domain.AchievementCatalog()
	for i := range catalog {
		a := &catalog[i]
		v := values[a.Key]
		a.Unlocked = v >= a.Target
		a.Progress = math.Max(0, math.Min(v, a.Target))
	}
	return catalog
}

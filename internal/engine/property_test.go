package engine_test

import (
	"fmt"
	"math"
	"reflect"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/engine"
)

const tolerance = 1e-6

func properties(minSuccessful int) *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = minSuccessful
	return gopter.NewProperties(parameters)
}

// TestCommissionClosedForm checks that without overrides the commission is
// front + back + reserve + flat + spiffs - chargeback.
func TestCommissionClosedForm(t *testing.T) {
	props := properties(300)

	props.Property("commission matches closed form", prop.ForAll(
		func(front, back, finance, pack, frontPct, backPct, reservePct, flat, chargeback float64) bool {
			plan := domain.PayPlan{
				FrontCommissionPercent: domain.Amount(frontPct),
				BackCommissionPercent:  domain.Amount(backPct),
				Pack:                   domain.Amount(pack),
				FinanceReserve:         domain.FinanceReserve{Mode: domain.PayoutPercentage, Value: domain.Amount(reservePct)},
			}
			deal := domain.Deal{
				FrontGross:   domain.Amount(front),
				BackGross:    domain.Amount(back),
				FinanceGross: domain.Amount(finance),
				Flat:         domain.Amount(flat),
				Chargeback:   domain.Amount(chargeback),
			}

			want := math.Max(0, front-pack)*frontPct/100 +
				back*backPct/100 +
				finance*reservePct/100 +
				flat - chargeback
			return math.Abs(engine.CalculateCommission(deal, plan)-want) < tolerance
		},
		gen.Float64Range(-5000, 20000),
		gen.Float64Range(-2000, 10000),
		gen.Float64Range(-3000, 3000),
		gen.Float64Range(0, 3000),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 1000),
	))

	props.TestingRun(t)
}

// TestOverrideIsolation checks that a positive override replaces exactly
// its component and nothing else.
func TestOverrideIsolation(t *testing.T) {
	props := properties(300)
	plan := domain.DefaultPayPlan()

	props.Property("front override isolates the front term", prop.ForAll(
		func(front, back, finance, override float64) bool {
			base := domain.Deal{
				FrontGross:   domain.Amount(front),
				BackGross:    domain.Amount(back),
				FinanceGross: domain.Amount(finance),
				Flat:         100,
			}
			withOverride := base
			withOverride.OverrideFront = domain.Amount(override)

			b := engine.CommissionBreakdown(base, plan)
			diff := engine.CalculateCommission(withOverride, plan) - engine.CalculateCommission(base, plan)
			return math.Abs(diff-(override-b.Front)) < tolerance
		},
		gen.Float64Range(0, 20000),
		gen.Float64Range(0, 10000),
		gen.Float64Range(-3000, 3000),
		gen.Float64Range(0.01, 5000),
	))

	props.Property("back and reserve overrides leave front untouched", prop.ForAll(
		func(front, back, finance, override float64) bool {
			base := domain.Deal{
				FrontGross:   domain.Amount(front),
				BackGross:    domain.Amount(back),
				FinanceGross: domain.Amount(finance),
			}
			withOverride := base
			withOverride.OverrideBack = domain.Amount(override)
			withOverride.OverrideReserve = domain.Amount(override)

			b := engine.CommissionBreakdown(base, plan)
			o := engine.CommissionBreakdown(withOverride, plan)
			return o.Front == b.Front && o.Back == override && o.Reserve == override
		},
		gen.Float64Range(0, 20000),
		gen.Float64Range(0, 10000),
		gen.Float64Range(-3000, 3000),
		gen.Float64Range(0.01, 5000),
	))

	props.TestingRun(t)
}

// TestVolumeBonusMonotonic checks that more units never select a smaller
// bonus when tier bonuses grow with their thresholds.
func TestVolumeBonusMonotonic(t *testing.T) {
	props := properties(200)

	props.Property("bonus never decreases with units", prop.ForAll(
		func(thresholds []int, increments []int, a, b int) bool {
			sort.Ints(thresholds)
			bonuses := make([]domain.VolumeBonus, 0, len(thresholds))
			running := 0
			for i, units := range thresholds {
				if i < len(increments) {
					running += increments[i]
				}
				bonuses = append(bonuses, domain.VolumeBonus{Units: domain.Amount(units), Bonus: domain.Amount(running)})
			}
			// Shuffle the stored order; selection must not depend on it.
			for i, j := 0, len(bonuses)-1; i < j; i, j = i+1, j-1 {
				bonuses[i], bonuses[j] = bonuses[j], bonuses[i]
			}

			lo, hi := min(a, b), max(a, b)
			return engine.BonusForUnits(bonuses, lo) <= engine.BonusForUnits(bonuses, hi)
		},
		gen.SliceOfN(5, gen.IntRange(1, 40)),
		gen.SliceOfN(5, gen.IntRange(0, 2000)),
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
	))

	props.TestingRun(t)
}

// TestRecalculateStatsIdempotent checks the aggregator has no hidden state.
func TestRecalculateStatsIdempotent(t *testing.T) {
	props := properties(100)
	plan := domain.DefaultPayPlan()
	goals := domain.DefaultGoals()

	props.Property("same inputs give same stats", prop.ForAll(
		func(days []int, grosses []float64, asOfDay int) bool {
			deals := make([]domain.Deal, 0, len(days))
			for i, d := range days {
				g := 0.0
				if i < len(grosses) {
					g = grosses[i]
				}
				deals = append(deals, domain.Deal{
					DeliveryDate: fmt.Sprintf("2025-03-%02d", d),
					FrontGross:   domain.Amount(g),
					BackGross:    domain.Amount(g / 2),
					Flat:         100,
				})
			}
			snapshot := slices.Clone(deals)
			asOf := time.Date(2025, time.March, asOfDay, 9, 0, 0, 0, time.UTC)

			first := engine.RecalculateStats(deals, plan, goals, asOf)
			second := engine.RecalculateStats(deals, plan, goals, asOf)
			return first == second && reflect.DeepEqual(deals, snapshot)
		},
		gen.SliceOf(gen.IntRange(1, 31)),
		gen.SliceOf(gen.Float64Range(0, 8000)),
		gen.IntRange(1, 31),
	))

	props.TestingRun(t)
}

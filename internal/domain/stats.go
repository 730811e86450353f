package domain

import "time"

// ============================================================
// Derived read models (never persisted)
// ============================================================

// UserStats is the month-to-date summary shown on the dashboard.
// It is a pure function of deals, plan, goals and the as-of date.
type UserStats struct {
	UnitsMTD        int     `json:"unitsMTD"`
	TotalGross      float64 `json:"totalGross"`
	CommissionMTD   float64 `json:"commissionMTD"`
	Bonuses         float64 `json:"bonuses"`
	Chargebacks     float64 `json:"chargebacks"`
	ProjectedIncome float64 `json:"projectedIncome"`
	ProjectedUnits  int     `json:"projectedUnits"`
	IncomeVariance  float64 `json:"incomeVariance"`
	UnitVariance    int     `json:"unitVariance"`
}

// PaceSummary is the income-goal progress shown on the pace screen.
type PaceSummary struct {
	IncomeGoal      float64 `json:"incomeGoal"`
	CommissionMTD   float64 `json:"commissionMTD"`
	PercentOfGoal   int     `json:"percentOfGoal"`
	Gap             float64 `json:"gap"`
	ProjectedIncome float64 `json:"projectedIncome"`
	DaysRemaining   int     `json:"daysRemaining"`
}

// PenetrationStat is the share of this month's deals that carried a product.
type PenetrationStat struct {
	Product    Product `json:"key"`
	Label      string  `json:"label"`
	Percentage int     `json:"percentage"`
}

// Dashboard bundles every read model for one account at one instant.
type Dashboard struct {
	AsOf         time.Time         `json:"asOf"`
	Stats        UserStats         `json:"stats"`
	Pace         PaceSummary       `json:"pace"`
	Penetration  []PenetrationStat `json:"penetration"`
	Achievements []Achievement     `json:"achievements"`
	Coaching     CoachingContext   `json:"coaching"`
	Message      CoachMessage      `json:"message"`
}

// ChangeKind says what part of an account changed.
type ChangeKind string

const (
	ChangeDeals    ChangeKind = "deals"
	ChangeSettings ChangeKind = "settings"
	ChangeTier     ChangeKind = "tier"
)

// ChangeEvent is published after every mutation so read models can be rebuilt.
type ChangeEvent struct {
	AccountID string     `json:"accountId"`
	Kind      ChangeKind `json:"kind"`
	At        time.Time  `json:"at"`
}

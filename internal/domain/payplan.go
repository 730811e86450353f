package domain

// ============================================================
// Pay plan & goals
// ============================================================

// PayoutMode selects between a flat payout and a percentage payout.
type PayoutMode string

const (
	PayoutFlat       PayoutMode = "flat"
	PayoutPercentage PayoutMode = "percentage"
)

// FinanceReserve governs payout on finance/reserve income.
// Value is a dollar amount in flat mode and a percentage otherwise.
type FinanceReserve struct {
	Mode  PayoutMode `json:"mode" firestore:"mode" yaml:"mode" validate:"omitempty,oneof=flat percentage"`
	Value Amount     `json:"value" firestore:"value" yaml:"value" validate:"gte=0"`
}

// VolumeBonus is paid once per month when Units deliveries are reached.
type VolumeBonus struct {
	Units Amount `json:"units" firestore:"units" yaml:"units" validate:"gte=0"`
	Bonus Amount `json:"bonus" firestore:"bonus" yaml:"bonus" validate:"gte=0"`
}

// ProductCommission is the configured payout for one add-on product.
type ProductCommission struct {
	Mode           PayoutMode `json:"mode" firestore:"mode" yaml:"mode" validate:"omitempty,oneof=flat percentage"`
	FlatAmount     *Amount    `json:"flatAmount,omitempty" firestore:"flatAmount,omitempty" yaml:"flatAmount,omitempty"`
	PercentOfGross *Amount    `json:"percentOfGross,omitempty" firestore:"percentOfGross,omitempty" yaml:"percentOfGross,omitempty"`
}

// ProductCommissions holds one payout rule per add-on product.
// These are stored and editable but do not feed the commission formula.
type ProductCommissions struct {
	VSC               ProductCommission `json:"vsc" firestore:"vsc" yaml:"vsc"`
	GAP               ProductCommission `json:"gap" firestore:"gap" yaml:"gap"`
	Maintenance       ProductCommission `json:"maintenance" firestore:"maintenance" yaml:"maintenance"`
	Accessories       ProductCommission `json:"accessories" firestore:"accessories" yaml:"accessories"`
	TireAndWheel      ProductCommission `json:"tireAndWheel" firestore:"tireAndWheel" yaml:"tireAndWheel"`
	AppearancePackage ProductCommission `json:"appearancePackage" firestore:"appearancePackage" yaml:"appearancePackage"`
	KeyReplacement    ProductCommission `json:"keyReplacement" firestore:"keyReplacement" yaml:"keyReplacement"`
}

// PayPlan describes how gross profit on a deal converts to commission.
type PayPlan struct {
	FrontCommissionPercent Amount             `json:"frontCommissionPercent" firestore:"frontCommissionPercent" yaml:"frontCommissionPercent" validate:"gte=0"`
	BackCommissionPercent  Amount             `json:"backCommissionPercent" firestore:"backCommissionPercent" yaml:"backCommissionPercent" validate:"gte=0"`
	FinanceReserve         FinanceReserve     `json:"financeReserve" firestore:"financeReserve" yaml:"financeReserve"`
	Pack                   Amount             `json:"pack" firestore:"pack" yaml:"pack" validate:"gte=0"`
	FlatRate               Amount             `json:"flatRate" firestore:"flatRate" yaml:"flatRate" validate:"gte=0"`
	SpiffsRate             Amount             `json:"spiffsRate" firestore:"spiffsRate" yaml:"spiffsRate" validate:"gte=0"`
	VolumeBonuses          []VolumeBonus      `json:"volumeBonuses" firestore:"volumeBonuses" yaml:"volumeBonuses" validate:"dive"`
	ProductCommission      ProductCommissions `json:"productCommission" firestore:"productCommission" yaml:"productCommission"`
}

// Clone returns a deep copy so callers can sort or edit bonuses freely.
func (p PayPlan) Clone() PayPlan {
	out := p
	out.VolumeBonuses = append([]VolumeBonus(nil), p.VolumeBonuses...)
	return out
}

// Goals are the monthly targets for one account.
type Goals struct {
	NewUnitsGoal         Amount `json:"newUnitsGoal" firestore:"newUnitsGoal" yaml:"newUnitsGoal" validate:"gte=0"`
	UsedUnitsGoal        Amount `json:"usedUnitsGoal" firestore:"usedUnitsGoal" yaml:"usedUnitsGoal" validate:"gte=0"`
	IncomeGoal           Amount `json:"incomeGoal" firestore:"incomeGoal" yaml:"incomeGoal" validate:"gte=0"`
	AssumedAvgCommission Amount `json:"assumedAvgCommission" firestore:"assumedAvgCommission" yaml:"assumedAvgCommission" validate:"gte=0"`
}

// TotalUnitsGoal is the combined new + used unit target.
func (g Goals) TotalUnitsGoal() float64 {
	return g.NewUnitsGoal.Float() + g.UsedUnitsGoal.Float()
}

// Defaults bundles the plan and goals a new account starts with.
type Defaults struct {
	PayPlan PayPlan `yaml:"payPlan"`
	Goals   Goals   `yaml:"goals"`
}

// DefaultPayPlan returns the plan applied to accounts that never saved one.
func DefaultPayPlan() PayPlan {
	return PayPlan{
		FrontCommissionPercent: 25,
		BackCommissionPercent:  15,
		FinanceReserve:         FinanceReserve{Mode: PayoutPercentage, Value: 0},
		Pack:                   695,
		FlatRate:               100,
		SpiffsRate:             0,
		VolumeBonuses: []VolumeBonus{
			{Units: 10, Bonus: 500},
			{Units: 15, Bonus: 1000},
			{Units: 20, Bonus: 2000},
		},
		ProductCommission: ProductCommissions{
			VSC:               ProductCommission{Mode: PayoutFlat, FlatAmount: AmountPtr(50)},
			GAP:               ProductCommission{Mode: PayoutFlat, FlatAmount: AmountPtr(25)},
			Maintenance:       ProductCommission{Mode: PayoutFlat, FlatAmount: AmountPtr(25)},
			Accessories:       ProductCommission{Mode: PayoutPercentage, PercentOfGross: AmountPtr(10)},
			TireAndWheel:      ProductCommission{Mode: PayoutFlat, FlatAmount: AmountPtr(25)},
			AppearancePackage: ProductCommission{Mode: PayoutFlat, FlatAmount: AmountPtr(25)},
			KeyReplacement:    ProductCommission{Mode: PayoutFlat, FlatAmount: AmountPtr(25)},
		},
	}
}

// DefaultGoals returns the goals applied to accounts that never saved any.
func DefaultGoals() Goals {
	return Goals{
		NewUnitsGoal:         8,
		UsedUnitsGoal:        5,
		IncomeGoal:           8000,
		AssumedAvgCommission: 650,
	}
}

// BuiltinDefaults returns the compiled-in defaults.
func BuiltinDefaults() Defaults {
	return Defaults{PayPlan: DefaultPayPlan(), Goals: DefaultGoals()}
}

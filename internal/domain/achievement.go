package domain

// AchievementKey identifies an achievement.
type AchievementKey string

const (
	AchievementFirstBlood   AchievementKey = "first_blood"
	AchievementDoubleDigits AchievementKey = "double_digits"
	AchievementMoneyMaker   AchievementKey = "money_maker"
	AchievementProductPro   AchievementKey = "product_pro"
	AchievementBigHitter    AchievementKey = "big_hitter"
)

// AchievementIcon is the closed set of badge icons the frontend renders.
type AchievementIcon string

const (
	IconTrophy   AchievementIcon = "Trophy"
	IconTarget   AchievementIcon = "Target"
	IconBanknote AchievementIcon = "Banknote"
	IconPackage  AchievementIcon = "Package"
	IconZap      AchievementIcon = "Zap"
)

// Achievement is a badge with its current progress.
type Achievement struct {
	ID          string          `json:"id"`
	Key         AchievementKey  `json:"key"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Icon        AchievementIcon `json:"icon"`
	Unlocked    bool            `json:"unlocked"`
	Progress    float64         `json:"progress"`
	Target      float64         `json:"target"`
}

// AchievementCatalog is the fixed list of achievements, in display order.
func AchievementCatalog() []Achievement {
	return []Achievement{
		{ID: "1", Key: AchievementFirstBlood, Title: "First Blood", Description: "Log your first deal", Icon: IconTrophy, Target: 1},
		{ID: "2", Key: AchievementDoubleDigits, Title: "Double Digits", Description: "Log 10 total deals", Icon: IconTarget, Target: 10},
		{ID: "3", Key: AchievementMoneyMaker, Title: "Money Maker", Description: "Earn $10k in a month", Icon: IconBanknote, Target: 10000},
		{ID: "4", Key: AchievementProductPro, Title: "Product Pro", Description: "Sell 3 products in one deal", Icon: IconPackage, Target: 3},
		{ID: "5", Key: AchievementBigHitter, Title: "Big Hitter", Description: "Earn $1000 commission on a single deal", Icon: IconZap, Target: 1000},
	}
}

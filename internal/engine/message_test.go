package engine_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/engine"
)

var digits = regexp.MustCompile(`\d`)

func coachingContext(tier domain.Tier, dealsThisMonth, daysElapsed int) domain.CoachingContext {
	return domain.CoachingContext{
		MonthlyGoal:    15,
		DealsThisMonth: dealsThisMonth,
		DaysElapsed:    daysElapsed,
		DaysInMonth:    30,
		Tier:           tier,
	}
}

func TestClassifyPace(t *testing.T) {
	tests := []struct {
		name  string
		deals int
		day   int
		want  domain.PaceStatus
	}{
		{"exactly on pace", 5, 10, domain.PaceOnTrack},
		{"one ahead", 6, 10, domain.PaceAhead},
		{"one behind", 4, 10, domain.PaceBehind},
		{"half behind is on track", 4, 9, domain.PaceOnTrack},
		{"zero deals day one", 0, 1, domain.PaceOnTrack},
		{"zero deals day four", 0, 4, domain.PaceBehind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.ClassifyPace(coachingContext(domain.TierPro, tt.deals, tt.day)))
		})
	}
}

func TestClassifyPace_ZeroDaysInMonth(t *testing.T) {
	ctx := domain.CoachingContext{MonthlyGoal: 10, DealsThisMonth: 0}
	assert.Zero(t, engine.ExpectedPace(ctx))
	assert.Equal(t, domain.PaceOnTrack, engine.ClassifyPace(ctx))
}

func TestTimeOfDayAt(t *testing.T) {
	at := func(h, m int) time.Time { return time.Date(2025, time.June, 1, h, m, 0, 0, time.UTC) }

	assert.Equal(t, domain.Morning, engine.TimeOfDayAt(at(0, 0)))
	assert.Equal(t, domain.Morning, engine.TimeOfDayAt(at(10, 59)))
	assert.Equal(t, domain.Midday, engine.TimeOfDayAt(at(11, 0)))
	assert.Equal(t, domain.Midday, engine.TimeOfDayAt(at(15, 59)))
	assert.Equal(t, domain.Evening, engine.TimeOfDayAt(at(16, 0)))
	assert.Equal(t, domain.Evening, engine.TimeOfDayAt(at(23, 30)))
}

func TestGenerateCoachingMessage_DeadStreak(t *testing.T) {
	ctx := coachingContext(domain.TierPro, 5, 10)
	ctx.RecentDaysWithoutDeals = engine.DeadStreakThreshold

	msg := engine.GenerateCoachingMessage(ctx, domain.Morning)
	assert.Equal(t, domain.LevelWarning, msg.Level)
	assert.Equal(t, domain.TypeAlert, msg.Type)
	assert.Equal(t, "Alert", msg.Label)
	assert.Contains(t, msg.Text, "3 days without a deal")
	assert.Contains(t, msg.Text, "10 more")

	ctx.RecentDaysWithoutDeals = engine.DeadStreakThreshold - 1
	msg = engine.GenerateCoachingMessage(ctx, domain.Morning)
	assert.NotEqual(t, domain.TypeAlert, msg.Type)
}

func TestGenerateCoachingMessage_GoalReached(t *testing.T) {
	ctx := coachingContext(domain.TierGuru, 15, 20)
	ctx.AvgCommissionThisMonth = 1234.4

	msg := engine.GenerateCoachingMessage(ctx, domain.Midday)
	assert.Equal(t, domain.LevelSuccess, msg.Level)
	assert.Equal(t, domain.TypeAchievement, msg.Type)
	assert.Contains(t, msg.Text, "$1,234")
}

func TestGenerateCoachingMessage_ClosedTodayEvening(t *testing.T) {
	ctx := coachingContext(domain.TierPro, 5, 10)
	ctx.TodayDeals = 2

	msg := engine.GenerateCoachingMessage(ctx, domain.Evening)
	assert.Equal(t, domain.LevelSuccess, msg.Level)
	assert.Equal(t, domain.TypeEvening, msg.Type)
	assert.Contains(t, msg.Text, "2 delivered today")

	msg = engine.GenerateCoachingMessage(ctx, domain.Morning)
	assert.Equal(t, domain.TypeMorning, msg.Type)
}

func TestGenerateCoachingMessage_AheadUsesTimeOfDay(t *testing.T) {
	ctx := coachingContext(domain.TierPro, 8, 10)

	for _, tod := range []domain.TimeOfDay{domain.Morning, domain.Midday, domain.Evening} {
		msg := engine.GenerateCoachingMessage(ctx, tod)
		assert.Equal(t, domain.LevelSuccess, msg.Level)
		assert.Equal(t, tod.MessageType(), msg.Type)
		assert.Contains(t, msg.Text, "3.0")
	}
}

func TestGenerateCoachingMessage_BehindSeverity(t *testing.T) {
	mild := engine.GenerateCoachingMessage(coachingContext(domain.TierPro, 3, 10), domain.Morning)
	assert.Equal(t, domain.LevelInfo, mild.Level)
	assert.Equal(t, domain.TypeMorning, mild.Type)
	assert.Contains(t, mild.Text, "2.0 deals behind")

	severe := engine.GenerateCoachingMessage(coachingContext(domain.TierPro, 1, 10), domain.Evening)
	assert.Equal(t, domain.LevelWarning, severe.Level)
	assert.Equal(t, domain.TypeEvening, severe.Type)
	assert.Contains(t, severe.Text, "20 days left")
}

func TestGenerateCoachingMessage_OnTrackFallback(t *testing.T) {
	ctx := coachingContext(domain.TierPro, 5, 10)

	msg := engine.GenerateCoachingMessage(ctx, domain.Midday)
	assert.Equal(t, domain.LevelInfo, msg.Level)
	assert.Equal(t, domain.TypeMidday, msg.Type)
	assert.Contains(t, msg.Text, "5 units")
	assert.Equal(t, "on_track", engine.MatchedRule(ctx, domain.Midday))
}

func TestGenerateCoachingMessage_FreeTierIsGeneric(t *testing.T) {
	for _, tod := range []domain.TimeOfDay{domain.Morning, domain.Midday, domain.Evening} {
		for deals := 0; deals <= 20; deals += 4 {
			for streak := 0; streak <= 5; streak++ {
				ctx := coachingContext(domain.TierFree, deals, 12)
				ctx.RecentDaysWithoutDeals = streak
				ctx.TodayDeals = deals % 3

				msg := engine.GenerateCoachingMessage(ctx, tod)
				assert.NotEmpty(t, msg.Text)
				assert.False(t, digits.MatchString(msg.Text), "FREE message leaked numbers: %q", msg.Text)
			}
		}
	}
}

func TestGenerateCoachingMessage_NeverEmpty(t *testing.T) {
	tiers := []domain.Tier{domain.TierFree, domain.TierPro, domain.TierGuru}
	for _, tier := range tiers {
		for _, tod := range []domain.TimeOfDay{domain.Morning, domain.Midday, domain.Evening} {
			for deals := 0; deals <= 30; deals += 3 {
				ctx := coachingContext(tier, deals, 15)
				msg := engine.GenerateCoachingMessage(ctx, tod)
				assert.NotEmpty(t, msg.Text)
				assert.Equal(t, msg.Type.Label(), msg.Label)
			}
		}
	}
}

package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// DeadStreakThreshold is the number of zero-deal days that escalates the
// coach card to an alert.
const DeadStreakThreshold = 3

// severelyBehind is the pace delta at which a behind message becomes a warning.
const severelyBehind = -3.0

// ExpectedPace is the deal count a linear month would have reached by today.
func ExpectedPace(c domain.CoachingContext) float64 {
	if c.DaysInMonth <= 0 {
		return 0
	}
	return c.MonthlyGoal / float64(c.DaysInMonth) * float64(c.DaysElapsed)
}

// PaceDelta is deals this month minus the expected pace.
func PaceDelta(c domain.CoachingContext) float64 {
	return float64(c.DealsThisMonth) - ExpectedPace(c)
}

// ClassifyPace buckets the pace delta: >= 1 ahead, <= -1 behind, else on track.
func ClassifyPace(c domain.CoachingContext) domain.PaceStatus {
	delta := PaceDelta(c)
	switch {
	case delta >= 1:
		return domain.PaceAhead
	case delta <= -1:
		return domain.PaceBehind
	default:
		return domain.PaceOnTrack
	}
}

// TimeOfDayAt buckets a wall-clock time: before 11:00 is morning, before
// 16:00 is midday, anything later is evening.
func TimeOfDayAt(t time.Time) domain.TimeOfDay {
	switch h := t.Hour(); {
	case h < 11:
		return domain.Morning
	case h < 16:
		return domain.Midday
	default:
		return domain.Evening
	}
}

// DealsNeeded is how many more deals reach the monthly goal, never negative.
func DealsNeeded(c domain.CoachingContext) int {
	return max(0, int(math.Ceil(c.MonthlyGoal-float64(c.DealsThisMonth))))
}

// GenerateCoachingMessage picks the coach card message. Rules are checked in
// order and the first match wins; FREE accounts only get generic text.
func GenerateCoachingMessage(c domain.CoachingContext, tod domain.TimeOfDay) domain.CoachMessage {
	paid := c.Tier.Paid()

	for _, rule := range messageRules {
		if rule.match(c, tod) {
			level, typ, text := rule.build(c, tod, paid)
			return newMessage(level, typ, text)
		}
	}

	if !paid {
		return newMessage(domain.LevelInfo, tod.MessageType(),
			"You're on track. Stay consistent and keep logging your deals.")
	}
	return newMessage(domain.LevelInfo, tod.MessageType(),
		fmt.Sprintf("You're on track with %d units this month. Stay consistent.", c.DealsThisMonth))
}

// MatchedRule names the rule GenerateCoachingMessage would apply, or
// "on_track" when none matches.
func MatchedRule(c domain.CoachingContext, tod domain.TimeOfDay) string {
	for _, rule := range messageRules {
		if rule.match(c, tod) {
			return rule.name
		}
	}
	return "on_track"
}

func newMessage(level domain.MessageLevel, typ domain.MessageType, text string) domain.CoachMessage {
	return domain.CoachMessage{Level: level, Type: typ, Text: text, Label: typ.Label()}
}

type messageRule struct {
	name  string
	match func(c domain.CoachingContext, tod domain.TimeOfDay) bool
	build func(c domain.CoachingContext, tod domain.TimeOfDay, paid bool) (domain.MessageLevel, domain.MessageType, string)
}

var messageRules = []messageRule{
	{name: "dead_streak", match: matchDeadStreak, build: buildDeadStreak},
	{name: "goal_reached", match: matchGoalReached, build: buildGoalReached},
	{name: "closed_today", match: matchClosedToday, build: buildClosedToday},
	{name: "ahead", match: matchAhead, build: buildAhead},
	{name: "behind", match: matchBehind, build: buildBehind},
}

func matchDeadStreak(c domain.CoachingContext, _ domain.TimeOfDay) bool {
	return c.RecentDaysWithoutDeals >= DeadStreakThreshold
}

func buildDeadStreak(c domain.CoachingContext, _ domain.TimeOfDay, paid bool) (domain.MessageLevel, domain.MessageType, string) {
	if !paid {
		return domain.LevelWarning, domain.TypeAlert,
			"It's been a few days since your last deal. Reach back out to your recent prospects and book one appointment today."
	}
	return domain.LevelWarning, domain.TypeAlert, fmt.Sprintf(
		"%d days without a deal. You need %d more to reach %s this month with %d days left. Call every open lead before close of business.",
		c.RecentDaysWithoutDeals, DealsNeeded(c), FormatCount(c.MonthlyGoal), c.DaysRemaining())
}

func matchGoalReached(c domain.CoachingContext, _ domain.TimeOfDay) bool {
	return c.MonthlyGoal > 0 && float64(c.DealsThisMonth) >= c.MonthlyGoal
}

func buildGoalReached(c domain.CoachingContext, _ domain.TimeOfDay, paid bool) (domain.MessageLevel, domain.MessageType, string) {
	if !paid {
		return domain.LevelSuccess, domain.TypeAchievement, "You hit your monthly goal. Keep the momentum going!"
	}
	return domain.LevelSuccess, domain.TypeAchievement, fmt.Sprintf(
		"Goal reached: %d deals against a goal of %s, averaging %s per deal. Every deal from here is upside.",
		c.DealsThisMonth, FormatCount(c.MonthlyGoal), FormatDollars(c.AvgCommissionThisMonth))
}

func matchClosedToday(c domain.CoachingContext, tod domain.TimeOfDay) bool {
	return tod == domain.Evening && c.TodayDeals > 0
}

func buildClosedToday(c domain.CoachingContext, _ domain.TimeOfDay, paid bool) (domain.MessageLevel, domain.MessageType, string) {
	if !paid {
		return domain.LevelSuccess, domain.TypeEvening, "Nice work today. Rest up and come back strong tomorrow."
	}
	return domain.LevelSuccess, domain.TypeEvening, fmt.Sprintf(
		"%d delivered today and %d for the month. %d more gets you to %s.",
		c.TodayDeals, c.DealsThisMonth, DealsNeeded(c), FormatCount(c.MonthlyGoal))
}

func matchAhead(c domain.CoachingContext, _ domain.TimeOfDay) bool {
	return ClassifyPace(c) == domain.PaceAhead
}

func buildAhead(c domain.CoachingContext, tod domain.TimeOfDay, paid bool) (domain.MessageLevel, domain.MessageType, string) {
	typ := tod.MessageType()
	if !paid {
		return domain.LevelSuccess, typ, "You're ahead of pace. Keep doing what's working!"
	}
	delta := FormatDelta(PaceDelta(c))
	var text string
	switch tod {
	case domain.Morning:
		text = fmt.Sprintf("You're %s deals ahead of pace with %d delivered. Protect the lead and follow up on yesterday's prospects first.",
			delta, c.DealsThisMonth)
	case domain.Midday:
		text = fmt.Sprintf("Ahead of pace by %s deals. Keep working your appointments this afternoon.", delta)
	default:
		text = fmt.Sprintf("Strong close to the day: %d deals this month, %s ahead of pace.", c.DealsThisMonth, delta)
	}
	return domain.LevelSuccess, typ, text
}

func matchBehind(c domain.CoachingContext, _ domain.TimeOfDay) bool {
	return ClassifyPace(c) == domain.PaceBehind
}

func buildBehind(c domain.CoachingContext, tod domain.TimeOfDay, paid bool) (domain.MessageLevel, domain.MessageType, string) {
	typ := tod.MessageType()
	delta := PaceDelta(c)
	level := domain.LevelInfo
	if delta <= severelyBehind {
		level = domain.LevelWarning
	}
	if !paid {
		return level, typ, "You're a little behind pace. A few extra follow-ups today can turn it around."
	}

	behind := FormatDelta(-delta)
	var text string
	switch tod {
	case domain.Morning:
		perDay := float64(DealsNeeded(c)) / float64(max(1, c.DaysRemaining()+1))
		text = fmt.Sprintf("You're %s deals behind pace (%d of %s expected). Block time this morning for follow-ups and aim for %s deals a day to catch up.",
			behind, c.DealsThisMonth, FormatDelta(ExpectedPace(c)), FormatDelta(perDay))
	case domain.Midday:
		text = fmt.Sprintf("Mid-day check: %d deals so far, %s behind pace. One more delivery today narrows the gap.",
			c.DealsThisMonth, behind)
	default:
		text = fmt.Sprintf("%d deals this month, %s behind pace with %d days left. Line up tomorrow's appointments before you leave.",
			c.DealsThisMonth, behind, c.DaysRemaining())
	}
	return level, typ, text
}

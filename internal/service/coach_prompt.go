package service

import (
	"fmt"
	"strings"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/engine"
)

const basePrompt = `You are an AI performance coach for professional car salespeople using CarCashPro, a commission and deal tracking app.

Your role:
- Give clear, concise, practical guidance rooted in their numbers
- Be direct, supportive, and focused on actions they can take today or this week
- Always reference specific numbers when available (deals, dollars, days)
- Keep responses under 100 words
- Do NOT flatter them unnecessarily
- Focus on what they can control

Style:
- Use "you" and "your" (second person)
- Be encouraging but realistic
- Suggest specific actions when possible`

const proLimits = `PRO Tier Limitations:
- Keep answers shorter and more focused
- Avoid complex "what-if" simulations
- Stick to current month analysis
- Don't compare multiple time periods in detail`

const guruCapabilities = `GURU Tier Capabilities:
- You may run deeper analysis and compare periods
- You can suggest what-if scenarios when asked
- You can analyze trends over multiple months
- You can provide more detailed strategic advice`

// SystemPrompt returns the coaching persona for tier.
func SystemPrompt(tier domain.Tier) string {
	switch tier {
	case domain.TierPro:
		return basePrompt + "\n\n" + proLimits
	case domain.TierGuru:
		return basePrompt + "\n\n" + guruCapabilities
	}
	return basePrompt
}

// ContextSummary renders the performance numbers the model answers from.
func ContextSummary(c domain.CoachingContext) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	b.WriteString("Current Performance Data:\n\n")
	line("Monthly Goal: %s deals", engine.FormatCount(c.MonthlyGoal))
	line("Deals This Month: %d", c.DealsThisMonth)
	line("Deals Last Month: %d", c.DealsLastMonth)
	line("Commission This Month: %s", engine.FormatDollars(c.CommissionThisMonth))
	line("Commission Last Month: %s", engine.FormatDollars(c.CommissionLastMonth))
	line("Average Commission This Month: %s", engine.FormatDollars(c.AvgCommissionThisMonth))
	line("Average Commission Last Month: %s", engine.FormatDollars(c.AvgCommissionLastMonth))
	line("Days Elapsed: %d of %d", c.DaysElapsed, c.DaysInMonth)
	line("Days Remaining: %d", c.DaysRemaining())
	line("Deals Today: %d", c.TodayDeals)
	line("Recent Days Without Deals: %d", c.RecentDaysWithoutDeals)
	line("Current Pace: %s (%s deals vs expected)", engine.ClassifyPace(c), engine.FormatSignedDelta(engine.PaceDelta(c)))
	b.WriteString("\nUse these numbers to answer the user's question accurately and provide actionable advice.")
	return b.String()
}

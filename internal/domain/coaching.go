package domain

// ============================================================
// Coaching
// ============================================================

// CoachingContext is the per-request snapshot the coach reasons about.
type CoachingContext struct {
	MonthlyGoal            float64 `json:"monthlyGoal"`
	DealsThisMonth         int     `json:"dealsThisMonth"`
	DealsLastMonth         int     `json:"dealsLastMonth"`
	CommissionThisMonth    float64 `json:"commissionThisMonth"`
	CommissionLastMonth    float64 `json:"commissionLastMonth"`
	AvgCommissionThisMonth float64 `json:"avgCommissionThisMonth"`
	AvgCommissionLastMonth float64 `json:"avgCommissionLastMonth"`
	DaysElapsed            int     `json:"daysElapsed"`
	DaysInMonth            int     `json:"daysInMonth"`
	TodayDeals             int     `json:"todayDeals"`
	RecentDaysWithoutDeals int     `json:"recentDaysWithoutDeals"`
	Tier                   Tier    `json:"tier"`
}

// DaysRemaining is the number of days left in the month after today.
func (c CoachingContext) DaysRemaining() int {
	if r := c.DaysInMonth - c.DaysElapsed; r > 0 {
		return r
	}
	return 0
}

// MessageLevel is the severity of a coaching message.
type MessageLevel string

const (
	LevelInfo    MessageLevel = "INFO"
	LevelSuccess MessageLevel = "SUCCESS"
	LevelWarning MessageLevel = "WARNING"
)

// MessageType is the category (and card label) of a coaching message.
type MessageType string

const (
	TypeMorning     MessageType = "MORNING"
	TypeMidday      MessageType = "MIDDAY"
	TypeEvening     MessageType = "EVENING"
	TypeAlert       MessageType = "ALERT"
	TypeAchievement MessageType = "ACHIEVEMENT"
)

// Label is the badge text shown on the coach card.
func (t MessageType) Label() string {
	switch t {
	case TypeMorning:
		return "Morning Brief"
	case TypeMidday:
		return "Mid-Day Check"
	case TypeEvening:
		return "Evening Summary"
	case TypeAlert:
		return "Alert"
	case TypeAchievement:
		return "Achievement"
	}
	return "Update"
}

// TimeOfDay is the bucket used to pick the tone of a message.
type TimeOfDay string

const (
	Morning TimeOfDay = "morning"
	Midday  TimeOfDay = "midday"
	Evening TimeOfDay = "evening"
)

// MessageType returns the card type matching the bucket.
func (t TimeOfDay) MessageType() MessageType {
	switch t {
	case Morning:
		return TypeMorning
	case Evening:
		return TypeEvening
	}
	return TypeMidday
}

// PaceStatus classifies deals-this-month against the linear expected pace.
type PaceStatus string

const (
	PaceAhead   PaceStatus = "ahead"
	PaceOnTrack PaceStatus = "on track"
	PaceBehind  PaceStatus = "behind"
)

// CoachMessage is the short rule-based message on the coach card.
type CoachMessage struct {
	Level MessageLevel `json:"level"`
	Type  MessageType  `json:"type"`
	Text  string       `json:"text"`
	Label string       `json:"label"`
}

// ============================================================
// Coaching chat
// ============================================================

// CoachChatRequest is the body of POST /v1/coach/chat.
// Context and Tier may be sent by older clients; the server ignores both and
// rebuilds them from the account.
type CoachChatRequest struct {
	Message string           `json:"message" validate:"required,max=2000"`
	Context *CoachingContext `json:"context,omitempty"`
	Tier    string           `json:"tier,omitempty"`
}

// CoachChatResponse is what the chat endpoint returns.
type CoachChatResponse struct {
	Answer   string `json:"answer"`
	UsedTier Tier   `json:"usedTier"`
}

// ChatMessage is one message in a completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the OpenAI-compatible chat completion payload.
type CompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// CompletionChoice is one candidate answer.
type CompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// TokenUsage tracks LLM token consumption for cost monitoring.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the subset of the completion response we read.
type CompletionResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   TokenUsage         `json:"usage"`
}

// Answer returns the first choice content, or "" when there is none.
func (r *CompletionResponse) Answer() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

package models

import "time"

// Holding represents a single line of a portfolio
type Holding struct {
	Symbol     string  `json:"symbol" firestore:"symbol"`
	Name       string  `json:"name,omitempty" firestore:"name"`
	Value      float64 `json:"value" firestore:"value"`
	AssetClass string  `json:"asset_class" firestore:"asset_class"`
	Sector     string  `json:"sector,omitempty" firestore:"sector"`
	Geography  string  `json:"geography,omitempty" firestore:"geography"`
}

// Portfolio is the set of holdings analysed in one computation.
// Duplicate symbols are kept as separate lines.
type Portfolio struct {
	Holdings []Holding `json:"holdings" firestore:"holdings"`
}

// TotalValue sums the value of every holding
func (p Portfolio) TotalValue() float64 {
	total := 0.0
	for _, h := range p.Holdings {
		total += h.Value
	}
	return total
}

// RiskRequest represents the incoming risk assessment request
type RiskRequest struct {
	Portfolio       []Holding `json:"portfolio"`
	Returns         []float64 `json:"returns,omitempty"`
	ConfidenceLevel *float64  `json:"confidence_level,omitempty"`
	RiskFreeRate    *float64  `json:"risk_free_rate,omitempty"`
	PeriodsPerYear  *int      `json:"periods_per_year,omitempty"`
	LookbackDays    int       `json:"lookback_days,omitempty"`
}

// DiversificationRequest carries optional per-dimension thresholds keyed by
// "asset_class", "sector", "geography" and "holding".
type DiversificationRequest struct {
	Portfolio  []Holding          `json:"portfolio"`
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
}

// RebalanceRequest represents a rebalancing request against a target asset class allocation
type RebalanceRequest struct {
	Portfolio        []Holding          `json:"portfolio"`
	TargetAllocation map[string]float64 `json:"target_allocation,omitempty"`
}

// ChatRequest represents a chat message sent by the UI
type ChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

// ChatResponse represents the advisor reply
type ChatResponse struct {
	Response string `json:"response"`
	HTML     string `json:"html,omitempty"`
	UserID   string `json:"user_id"`
}

// PreferencesRequest updates the stored user profile
type PreferencesRequest struct {
	UserID      string         `json:"user_id,omitempty"`
	Preferences map[string]any `json:"preferences"`
}

// PortfolioRequest replaces the stored user portfolio
type PortfolioRequest struct {
	UserID    string    `json:"user_id,omitempty"`
	Portfolio []Holding `json:"portfolio"`
}

// Message is one turn of a conversation
type Message struct {
	ID        string    `json:"id" firestore:"id"`
	UserID    string    `json:"user_id" firestore:"user_id"`
	Role      string    `json:"role" firestore:"role"` // "user" or "assistant"
	Content   string    `json:"content" firestore:"content"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// UserProfile is the persisted per-user state besides messages
type UserProfile struct {
	UserID      string         `json:"user_id" firestore:"user_id"`
	Preferences map[string]any `json:"preferences,omitempty" firestore:"preferences"`
	Portfolio   []Holding      `json:"portfolio,omitempty" firestore:"portfolio"`
	UpdatedAt   time.Time      `json:"updated_at" firestore:"updated_at"`
}

// MemorySummary describes what is remembered about a user
type MemorySummary struct {
	UserID         string         `json:"user_id"`
	MessageCount   int            `json:"message_count"`
	Preferences    map[string]any `json:"preferences"`
	HoldingCount   int            `json:"holding_count"`
	PortfolioValue float64        `json:"portfolio_value"`
	LastActive     *time.Time     `json:"last_active,omitempty"`
	Store          string         `json:"store"`
}

// PriceHistory represents daily closes for a ticker. Dates[i] is the trading
// day of Closes[i], at midnight UTC.
type PriceHistory struct {
	Symbol      string      `json:"symbol" firestore:"symbol"`
	Dates       []time.Time `json:"dates" firestore:"dates"`
	Closes      []float64   `json:"closes" firestore:"closes"`
	LastUpdated time.Time   `json:"lastUpdated" firestore:"last_updated"`
	Source      string      `json:"source" firestore:"source"` // "alphavantage" or "yahoo"
}

// Aligned reports whether every close has its date.
func (h *PriceHistory) Aligned() bool {
	return len(h.Dates) == len(h.Closes)
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

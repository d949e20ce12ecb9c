package models

// ActivityEntry is one row of the audit trail.
type ActivityEntry struct {
	ID         int64  `db:"id" json:"id"`
	Username   string `db:"username" json:"username"`
	UserEmail  string `db:"user_email" json:"user_email"`
	Action     string `db:"action" json:"action"`
	TargetType string `db:"target_type" json:"target_type"`
	TargetID   *int64 `db:"target_id" json:"target_id,omitempty"`
	Details    string `db:"details" json:"details"`
	Timestamp  string `db:"timestamp" json:"timestamp"`
}

// Audit actions.
const (
	ActionLogin         = "LOGIN"
	ActionRegistered    = "REGISTERED"
	ActionPasswordReset = "PASSWORD_RESET"
	ActionSubmitted     = "SUBMITTED"
	ActionUserCreated   = "user_created"
	ActionUserUpdated   = "user_updated"
	ActionUserDeleted   = "user_deleted"
)

// ResetToken is a single-use password reset token.
type ResetToken struct {
	ID        int64  `db:"id"`
	UserID    int64  `db:"user_id"`
	Token     string `db:"token"`
	CreatedAt string `db:"created_at"`
	ExpiresAt string `db:"expires_at"`
	Used      bool   `db:"used"`
}

// AIUsage records one call to the AI invoice matcher.
type AIUsage struct {
	ID             int64   `db:"id" json:"id"`
	Timestamp      string  `db:"timestamp" json:"timestamp"`
	InvoicePreview string  `db:"invoice_text_preview" json:"invoice_text_preview,omitempty"`
	MatchedPO      *int64  `db:"matched_po" json:"matched_po,omitempty"`
	MatchedJob     string  `db:"matched_job" json:"matched_job,omitempty"`
	Confidence     float64 `db:"confidence" json:"confidence"`
	InputTokens    int     `db:"input_tokens" json:"input_tokens"`
	OutputTokens   int     `db:"output_tokens" json:"output_tokens"`
	CostEstimate   float64 `db:"cost_estimate" json:"cost_estimate"`
	Success        bool    `db:"success" json:"success"`
}

// AIUsageStats summarises the AI usage log.
type AIUsageStats struct {
	TotalCalls  int     `json:"total_calls"`
	Successful  int     `json:"successful"`
	TotalCost   float64 `json:"total_cost"`
	SuccessRate float64 `json:"success_rate"`
}

// Setting keys.
const SettingAIMatchingEnabled = "claude_matching_enabled"

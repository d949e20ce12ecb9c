package repository

import (
	"context"
	"database/sql"
	"time"

	"poRequestTracker/models"
)

// Per-token prices in USD used to estimate matcher cost.
const (
	inputTokenPrice  = 3.0 / 1_000_000
	outputTokenPrice = 15.0 / 1_000_000

	previewLen = 200
)

// EstimateCost returns the USD cost of one matcher call.
func EstimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*inputTokenPrice + float64(outputTokens)*outputTokenPrice
}

// AIUsageRepository records AI matcher calls.
type AIUsageRepository struct {
	db *sql.DB
}

func NewAIUsageRepository(db *sql.DB) *AIUsageRepository {
	return &AIUsageRepository{db: db}
}

// Log records a call. The invoice preview is truncated and the cost estimated
// from token counts.
func (r *AIUsageRepository) Log(ctx context.Context, u models.AIUsage) error {
	if u.Timestamp == "" {
		u.Timestamp = time.Now().Format(models.TimestampLayout)
	}
	if len(u.InvoicePreview) > previewLen {
		u.InvoicePreview = u.InvoicePreview[:previewLen]
	}
	u.CostEstimate = EstimateCost(u.InputTokens, u.OutputTokens)
	success := 0
	if u.Success {
		success = 1
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO ai_usage_log
(timestamp, invoice_text_preview, matched_po, matched_job, confidence, input_tokens, output_tokens, cost_estimate, success)
VALUES (?,?,?,?,?,?,?,?,?)`,
		u.Timestamp, u.InvoicePreview, u.MatchedPO, nullString(u.MatchedJob), u.Confidence,
		u.InputTokens, u.OutputTokens, u.CostEstimate, success)
	return err
}

// Stats summarises all recorded calls.
func (r *AIUsageRepository) Stats(ctx context.Context) (models.AIUsageStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var s models.AIUsageStats
	var successful sql.NullInt64
	var cost sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), SUM(success), SUM(cost_estimate) FROM ai_usage_log`).
		Scan(&s.TotalCalls, &successful, &cost)
	if err != nil {
		return s, err
	}
	s.Successful = int(successful.Int64)
	s.TotalCost = cost.Float64
	if s.TotalCalls > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.TotalCalls) * 100
	}
	return s, nil
}

// Recent returns the n newest calls.
func (r *AIUsageRepository) Recent(ctx context.Context, n int) ([]models.AIUsage, error) {
	if n <= 0 {
		n = 20
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, timestamp, invoice_text_preview, matched_po, matched_job, confidence,
input_tokens, output_tokens, cost_estimate, success FROM ai_usage_log ORDER BY timestamp DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.AIUsage
	for rows.Next() {
		var u models.AIUsage
		var preview, job sql.NullString
		var po sql.NullInt64
		var success int
		if err := rows.Scan(&u.ID, &u.Timestamp, &preview, &po, &job, &u.Confidence,
			&u.InputTokens, &u.OutputTokens, &u.CostEstimate, &success); err != nil {
			return nil, err
		}
		u.InvoicePreview = preview.String
		u.MatchedJob = job.String
		if po.Valid {
			v := po.Int64
			u.MatchedPO = &v
		}
		u.Success = success == 1
		out = append(out, u)
	}
	return out, rows.Err()
}

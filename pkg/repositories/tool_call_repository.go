package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ekaya-inc/ekaya-biotools/pkg/database"
	"github.com/ekaya-inc/ekaya-biotools/pkg/models"
)

// ToolCallRepository persists the tool call audit trail.
type ToolCallRepository interface {
	Record(ctx context.Context, event *models.ToolCallEvent) error
}

type toolCallRepository struct {
	db database.Querier
}

// NewToolCallRepository creates a new ToolCallRepository.
func NewToolCallRepository(db database.Querier) ToolCallRepository {
	return &toolCallRepository{db: db}
}

var _ ToolCallRepository = (*toolCallRepository)(nil)

func (r *toolCallRepository) Record(ctx context.Context, event *models.ToolCallEvent) error {
	var params []byte
	if len(event.RequestParams) > 0 {
		b, err := json.Marshal(event.RequestParams)
		if err != nil {
			return fmt.Errorf("failed to marshal request_params: %w", err)
		}
		params = b
	}

	query := `
		INSERT INTO tool_call_audit (
			event_type, tool_name, subject, request_params,
			was_successful, error_code, error_message,
			duration_ms, security_level, security_flags
		) VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		event.EventType, event.ToolName, event.Subject, params,
		event.WasSuccessful, event.ErrorCode, event.ErrorMessage,
		event.DurationMs, event.SecurityLevel, event.SecurityFlags,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record tool call: %w", err)
	}
	return nil
}

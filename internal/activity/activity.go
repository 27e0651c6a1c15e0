// Package activity records the append-only audit trail of lead and
// provisioning transitions.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types written to activity_log.
const (
	EventWhatsAppIntakeStarted = "whatsapp_intake_started"
	EventWhatsAppMessage       = "whatsapp_message_received"
	EventLeadCaptured          = "lead_captured"
	EventLeadQualified         = "lead_qualified"
	EventLeadDisqualified      = "lead_disqualified"
	EventQualificationFailed   = "qualification_failed"
	EventLeadApproved          = "lead_approved"
	EventLeadRejected          = "lead_rejected"
	EventProvisioningCompleted = "provisioning_completed"
	EventProvisioningFailed    = "provisioning_failed"
	EventProvisioningRetried   = "provisioning_retried"
	EventProposalGenerated     = "proposal_generated"
)

// Entry is one audit record.
type Entry struct {
	ID        string                 `json:"id"`
	EventType string                 `json:"eventType"`
	LeadID    string                 `json:"leadId,omitempty"`
	JobID     string                 `json:"jobId,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Writer appends audit entries.
type Writer interface {
	Append(ctx context.Context, entry Entry) error
}

// Reader lists audit entries for a lead.
type Reader interface {
	ListByLead(ctx context.Context, leadID string) ([]Entry, error)
}

// Repository stores entries in Postgres. There is no update or delete path.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Append(ctx context.Context, entry Entry) error {
	if entry.EventType == "" {
		return fmt.Errorf("activity entry requires an event type")
	}
	details := entry.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode activity details: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO activity_log (id, event_type, lead_id, job_id, details)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
	`, uuid.NewString(), entry.EventType, entry.LeadID, entry.JobID, payload)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func (r *Repository) ListByLead(ctx context.Context, leadID string) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, COALESCE(lead_id, ''), COALESCE(job_id, ''), details, created_at
		FROM activity_log
		WHERE lead_id = $1
		ORDER BY created_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Entry, 0)
	for rows.Next() {
		var (
			entry   Entry
			details []byte
		)
		if err := rows.Scan(&entry.ID, &entry.EventType, &entry.LeadID, &entry.JobID, &details, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &entry.Details)
		}
		items = append(items, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

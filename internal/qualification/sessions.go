package qualification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Agent types stored in agent_sessions.
const (
	AgentLeadQualifier     = "lead_qualifier"
	AgentProposalGenerator = "proposal_generator"
)

const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
)

var ErrSessionNotFound = errors.New("agent session not found")

// Session is one persisted agent run.
type Session struct {
	ID        string          `json:"id"`
	AgentType string          `json:"agentType"`
	LeadID    string          `json:"leadId"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SessionStore persists agent runs and their structured results.
type SessionStore interface {
	Start(ctx context.Context, agentType, leadID string) (Session, error)
	Complete(ctx context.Context, id string, result interface{}) error
	Fail(ctx context.Context, id, message string) error
	LatestCompleted(ctx context.Context, leadID, agentType string) (Session, error)
}

const sessionColumns = `id, agent_type, lead_id, status, result, error, created_at, updated_at`

// SessionRepository is the Postgres SessionStore.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

var _ SessionStore = (*SessionRepository)(nil)

func (r *SessionRepository) Start(ctx context.Context, agentType, leadID string) (Session, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO agent_sessions (id, agent_type, lead_id, status)
		VALUES ($1, $2, $3, 'running')
		RETURNING `+sessionColumns,
		uuid.NewString(), agentType, leadID,
	)
	session, err := scanSession(row)
	if err != nil {
		return Session{}, fmt.Errorf("start agent session: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) Complete(ctx context.Context, id string, result interface{}) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode agent result: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE agent_sessions SET status = 'completed', result = $2, updated_at = now()
		WHERE id = $1 AND status = 'running'
	`, id, payload)
	if err != nil {
		return fmt.Errorf("complete agent session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) Fail(ctx context.Context, id, message string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agent_sessions SET status = 'failed', error = $2, updated_at = now()
		WHERE id = $1 AND status = 'running'
	`, id, message)
	if err != nil {
		return fmt.Errorf("fail agent session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) LatestCompleted(ctx context.Context, leadID, agentType string) (Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM agent_sessions
		WHERE lead_id = $1 AND agent_type = $2 AND status = 'completed'
		ORDER BY created_at DESC
		LIMIT 1
	`, leadID, agentType)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load agent session: %w", err)
	}
	return session, nil
}

func scanSession(row pgx.Row) (Session, error) {
	var (
		session Session
		result  []byte
	)
	if err := row.Scan(&session.ID, &session.AgentType, &session.LeadID, &session.Status, &result, &session.Error, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return Session{}, err
	}
	if len(result) > 0 {
		session.Result = json.RawMessage(result)
	}
	return session, nil
}

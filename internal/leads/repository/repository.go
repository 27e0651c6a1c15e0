package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateLeadParams struct {
	PhoneNumber       *string
	Source            string
	ConversationState domain.ConversationState
	BusinessName      *string
	ContactName       *string
	Website           *string
	Email             *string
	Industry          *string
	CompanySize       *string
	BusinessIssues    []string
}

// QualificationOutcome is the qualifier verdict written when leaving qualifying.
type QualificationOutcome struct {
	Status    domain.QualificationStatus
	Scores    domain.Scores
	Tier      domain.Tier
	Reasoning string
	Blueprint domain.Blueprint
}

const leadColumns = `id, phone_number, source, conversation_state, business_name, contact_name, website, email,
	industry, company_size, business_issues, qualification_status, score_fit, score_urgency, score_size,
	score_overall, recommended_tier, reasoning, solution_blueprint, qualifying_started_at, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	state := params.ConversationState
	if state == "" {
		state = domain.StateStarted
	}
	issues := params.BusinessIssues
	if issues == nil {
		issues = []string{}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			id, phone_number, source, conversation_state, business_name, contact_name, website, email,
			industry, company_size, business_issues, qualification_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'pending')
		RETURNING `+leadColumns,
		uuid.NewString(), params.PhoneNumber, params.Source, string(state), params.BusinessName, params.ContactName,
		params.Website, params.Email, params.Industry, params.CompanySize, issues,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// FindLatestByPhone returns the newest lead for an E.164 phone number.
func (r *Repository) FindLatestByPhone(ctx context.Context, phone string) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE phone_number = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, phone)
	return scanLead(row)
}

// FindRecentByEmail returns the newest lead with this email created after since.
func (r *Repository) FindRecentByEmail(ctx context.Context, email string, since time.Time) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE lower(email) = lower($1) AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT 1
	`, strings.TrimSpace(email), since)
	return scanLead(row)
}

// AdvanceConversation writes the intake answer and the next state only when the
// stored state still equals expected.
func (r *Repository) AdvanceConversation(ctx context.Context, id string, expected, next domain.ConversationState, update domain.FieldUpdate) error {
	var issues interface{}
	if update.BusinessIssues != nil {
		issues = update.BusinessIssues
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			conversation_state = $3,
			business_name = COALESCE($4, business_name),
			website = CASE WHEN $5 THEN NULL ELSE COALESCE($6, website) END,
			email = COALESCE($7, email),
			business_issues = COALESCE($8::text[], business_issues),
			industry = COALESCE($9, industry),
			updated_at = now()
		WHERE id = $1 AND conversation_state = $2
	`, id, string(expected), string(next), update.BusinessName, update.ClearWebsite, update.Website,
		update.Email, issues, update.Industry)
	if err != nil {
		return fmt.Errorf("advance conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, id, domain.ErrConversationConflict)
	}
	return nil
}

// TransitionStatus is a compare-and-set on qualification_status.
func (r *Repository) TransitionStatus(ctx context.Context, id string, from, to domain.QualificationStatus) error {
	if err := domain.ValidateTransition(from, to); err != nil {
		return fmt.Errorf("%w: %s -> %s", err, from, to)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			qualification_status = $3,
			qualifying_started_at = CASE WHEN $3 = 'qualifying' THEN now() ELSE NULL END,
			updated_at = now()
		WHERE id = $1 AND qualification_status = $2
	`, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("transition status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, id, domain.ErrStatusConflict)
	}
	return nil
}

// SaveQualification stores the verdict and leaves qualifying in one conditional update.
func (r *Repository) SaveQualification(ctx context.Context, id string, outcome QualificationOutcome) error {
	if err := domain.ValidateTransition(domain.StatusQualifying, outcome.Status); err != nil {
		return fmt.Errorf("%w: qualifying -> %s", err, outcome.Status)
	}

	blueprint, err := json.Marshal(outcome.Blueprint)
	if err != nil {
		return fmt.Errorf("encode blueprint: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			qualification_status = $2,
			score_fit = $3,
			score_urgency = $4,
			score_size = $5,
			score_overall = $6,
			recommended_tier = $7,
			reasoning = $8,
			solution_blueprint = $9,
			qualifying_started_at = NULL,
			updated_at = now()
		WHERE id = $1 AND qualification_status = 'qualifying'
	`, id, string(outcome.Status), outcome.Scores.Fit, outcome.Scores.Urgency, outcome.Scores.Size,
		outcome.Scores.Overall, string(outcome.Tier), outcome.Reasoning, blueprint)
	if err != nil {
		return fmt.Errorf("save qualification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, id, domain.ErrStatusConflict)
	}
	return nil
}

// ListStaleQualifying returns leads that entered qualifying before startedBefore.
func (r *Repository) ListStaleQualifying(ctx context.Context, startedBefore time.Time, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE qualification_status = 'qualifying'
			AND COALESCE(qualifying_started_at, updated_at) < $1
		ORDER BY qualifying_started_at ASC NULLS FIRST
		LIMIT $2
	`, startedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// missingOr distinguishes an unknown id from a lost conditional update.
func (r *Repository) missingOr(ctx context.Context, id string, conflict error) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return conflict
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead          domain.Lead
		state         string
		status        string
		fit, urgency  *float64
		size, overall *float64
		tier          *string
		blueprint     []byte
	)

	err := row.Scan(
		&lead.ID, &lead.PhoneNumber, &lead.Source, &state, &lead.BusinessName, &lead.ContactName, &lead.Website, &lead.Email,
		&lead.Industry, &lead.CompanySize, &lead.BusinessIssues, &status, &fit, &urgency, &size,
		&overall, &tier, &lead.Reasoning, &blueprint, &lead.QualifyingStartedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	lead.ConversationState = domain.ConversationState(state)
	lead.QualificationStatus = domain.QualificationStatus(status)
	if overall != nil {
		lead.Scores = &domain.Scores{
			Fit:     derefFloat(fit),
			Urgency: derefFloat(urgency),
			Size:    derefFloat(size),
			Overall: *overall,
		}
	}
	if tier != nil {
		if parsed, ok := domain.ParseTier(*tier); ok {
			lead.RecommendedTier = &parsed
		}
	}
	if len(blueprint) > 0 {
		var bp domain.Blueprint
		if err := json.Unmarshal(blueprint, &bp); err == nil {
			lead.Blueprint = &bp
		}
	}

	return lead, nil
}

func derefFloat(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

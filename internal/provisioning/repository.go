package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/internal/leads/domain"
	"github.com/DRAGGONNB/draggonnb-platform-template-sub001/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const activeJobIndex = "uq_provisioning_jobs_active_lead"

const jobColumns = `id, lead_id, status, current_step, tier, created_resources, error_message, attempt, created_at, updated_at`

// Repository is the Postgres JobStore.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ JobStore = (*Repository)(nil)

// Create inserts a pending job. The active-job index rejects a second
// pending or running job for the same lead.
func (r *Repository) Create(ctx context.Context, params CreateJobParams) (Job, error) {
	attempt := params.Attempt
	if attempt < 1 {
		attempt = 1
	}
	tier := params.Tier
	if tier == "" {
		tier = domain.TierCore
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO provisioning_jobs (id, lead_id, status, current_step, tier, attempt)
		VALUES ($1, $2, 'pending', $3, $4, $5)
		RETURNING `+jobColumns,
		uuid.NewString(), params.LeadID, StepAwaitingStart, string(tier), attempt,
	)
	job, err := scanJob(row)
	if err != nil {
		if db.IsUniqueViolation(err, activeJobIndex) {
			return Job{}, ErrActiveJobExists
		}
		return Job{}, fmt.Errorf("create provisioning job: %w", err)
	}
	return job, nil
}

func (r *Repository) MarkRunning(ctx context.Context, id, step string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE provisioning_jobs SET status = 'running', current_step = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`, id, step)
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobConflict
	}
	return nil
}

func (r *Repository) MarkCompleted(ctx context.Context, id string, resources map[string]interface{}) error {
	if resources == nil {
		resources = map[string]interface{}{}
	}
	payload, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("encode created resources: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE provisioning_jobs
		SET status = 'completed', current_step = $2, created_resources = $3, error_message = NULL, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'running')
	`, id, StepDone, payload)
	if err != nil {
		return fmt.Errorf("mark job completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobConflict
	}
	return nil
}

func (r *Repository) MarkFailed(ctx context.Context, id, message string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE provisioning_jobs SET status = 'failed', error_message = $2, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'running')
	`, id, message)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobConflict
	}
	return nil
}

// Latest returns the newest job for the lead.
func (r *Repository) Latest(ctx context.Context, leadID string) (Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM provisioning_jobs
		WHERE lead_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, leadID)
	return scanJob(row)
}

func (r *Repository) ListByLead(ctx context.Context, leadID string) ([]Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM provisioning_jobs
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListStaleRunning returns running jobs whose last update is older than updatedBefore.
func (r *Repository) ListStaleRunning(ctx context.Context, updatedBefore time.Time, limit int) ([]Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM provisioning_jobs
		WHERE status = 'running' AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, updatedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]Job, error) {
	jobs := make([]Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (Job, error) {
	var (
		job       Job
		status    string
		tier      string
		resources []byte
	)
	err := row.Scan(&job.ID, &job.LeadID, &status, &job.CurrentStep, &tier, &resources,
		&job.ErrorMessage, &job.Attempt, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, err
	}
	job.Status = JobStatus(status)
	job.Tier = domain.Tier(tier)
	if len(resources) > 0 {
		_ = json.Unmarshal(resources, &job.CreatedResources)
	}
	return job, nil
}

package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agencyiq/agency-service/internal/domain"
)

// OnboardingRepository covers templates, instances, and generated tasks.
type OnboardingRepository interface {
	CreateTemplate(ctx context.Context, tpl *domain.OnboardingTemplate) error
	GetTemplate(ctx context.Context, agencyID, id string) (*domain.OnboardingTemplate, error)
	ListTemplates(ctx context.Context, agencyID string) ([]domain.OnboardingTemplate, error)

	CreateInstance(ctx context.Context, tx pgx.Tx, inst *domain.OnboardingInstance) error
	CreateTask(ctx context.Context, tx pgx.Tx, task *domain.OnboardingTask) error
	GetInstance(ctx context.Context, agencyID, id string) (*domain.OnboardingInstance, error)
	ListInstancesForStaff(ctx context.Context, agencyID, staffID string) ([]domain.OnboardingInstance, error)
	UpdateInstance(ctx context.Context, tx pgx.Tx, inst *domain.OnboardingInstance) error

	ListTasks(ctx context.Context, instanceID string) ([]domain.OnboardingTask, error)
	GetTask(ctx context.Context, id string) (*domain.OnboardingTask, error)
	UpdateTask(ctx context.Context, tx pgx.Tx, task *domain.OnboardingTask) error
	SetTaskAudio(ctx context.Context, taskID, url string) error
	CountOpenTasks(ctx context.Context, tx pgx.Tx, instanceID string) (int, error)
}

type onboardingRepository struct {
	pool *pgxpool.Pool
}

// NewOnboardingRepository returns a Postgres-backed implementation.
func NewOnboardingRepository(pool *pgxpool.Pool) OnboardingRepository {
	return &onboardingRepository{pool: pool}
}

func (r *onboardingRepository) CreateTemplate(ctx context.Context, tpl *domain.OnboardingTemplate) error {
	tasks, err := json.Marshal(tpl.Tasks)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO onboarding_templates (agency_id, name, tasks)
        VALUES ($1,$2,$3)
        RETURNING id, active, created_at, updated_at`

	return r.pool.QueryRow(ctx, query, tpl.AgencyID, tpl.Name, tasks).
		Scan(&tpl.ID, &tpl.Active, &tpl.CreatedAt, &tpl.UpdatedAt)
}

func (r *onboardingRepository) GetTemplate(ctx context.Context, agencyID, id string) (*domain.OnboardingTemplate, error) {
	const query = `
        SELECT id, agency_id, name, tasks, active, created_at, updated_at
        FROM onboarding_templates WHERE id=$1 AND agency_id=$2`

	var tpl domain.OnboardingTemplate
	var tasks []byte
	if err := r.pool.QueryRow(ctx, query, id, agencyID).Scan(
		&tpl.ID,
		&tpl.AgencyID,
		&tpl.Name,
		&tasks,
		&tpl.Active,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tasks, &tpl.Tasks); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *onboardingRepository) ListTemplates(ctx context.Context, agencyID string) ([]domain.OnboardingTemplate, error) {
	const query = `
        SELECT id, agency_id, name, tasks, active, created_at, updated_at
        FROM onboarding_templates WHERE agency_id=$1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OnboardingTemplate
	for rows.Next() {
		var tpl domain.OnboardingTemplate
		var tasks []byte
		if err := rows.Scan(&tpl.ID, &tpl.AgencyID, &tpl.Name, &tasks, &tpl.Active, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(tasks, &tpl.Tasks); err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}

func (r *onboardingRepository) CreateInstance(ctx context.Context, tx pgx.Tx, inst *domain.OnboardingInstance) error {
	const query = `
        INSERT INTO onboarding_instances (agency_id, template_id, staff_id, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, assigned_at`

	return tx.QueryRow(ctx, query, inst.AgencyID, inst.TemplateID, inst.StaffID, inst.Status).
		Scan(&inst.ID, &inst.AssignedAt)
}

func (r *onboardingRepository) CreateTask(ctx context.Context, tx pgx.Tx, task *domain.OnboardingTask) error {
	const query = `
        INSERT INTO onboarding_tasks (instance_id, position, title, description, due_date)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`

	return tx.QueryRow(ctx, query, task.InstanceID, task.Position, task.Title, task.Description, task.DueDate).
		Scan(&task.ID, &task.CreatedAt)
}

func (r *onboardingRepository) GetInstance(ctx context.Context, agencyID, id string) (*domain.OnboardingInstance, error) {
	const query = `
        SELECT id, agency_id, template_id, staff_id, status, assigned_at, completed_at
        FROM onboarding_instances WHERE id=$1 AND agency_id=$2`

	var inst domain.OnboardingInstance
	if err := r.pool.QueryRow(ctx, query, id, agencyID).Scan(
		&inst.ID,
		&inst.AgencyID,
		&inst.TemplateID,
		&inst.StaffID,
		&inst.Status,
		&inst.AssignedAt,
		&inst.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *onboardingRepository) ListInstancesForStaff(ctx context.Context, agencyID, staffID string) ([]domain.OnboardingInstance, error) {
	const query = `
        SELECT id, agency_id, template_id, staff_id, status, assigned_at, completed_at
        FROM onboarding_instances WHERE agency_id=$1 AND staff_id=$2 ORDER BY assigned_at DESC`

	rows, err := r.pool.Query(ctx, query, agencyID, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OnboardingInstance
	for rows.Next() {
		var inst domain.OnboardingInstance
		if err := rows.Scan(&inst.ID, &inst.AgencyID, &inst.TemplateID, &inst.StaffID, &inst.Status, &inst.AssignedAt, &inst.CompletedAt); err != nil {
			return nil, err
		}
		result = append(result, inst)
	}
	return result, rows.Err()
}

// UpdateInstance writes instance progress, joining the caller's transaction
// when one is given so it commits with the task writes that drove it.
func (r *onboardingRepository) UpdateInstance(ctx context.Context, tx pgx.Tx, inst *domain.OnboardingInstance) error {
	const query = `
        UPDATE onboarding_instances SET status=$1, completed_at=$2 WHERE id=$3`

	var cmd pgconn.CommandTag
	var err error
	if tx != nil {
		cmd, err = tx.Exec(ctx, query, inst.Status, inst.CompletedAt, inst.ID)
	} else {
		cmd, err = r.pool.Exec(ctx, query, inst.Status, inst.CompletedAt, inst.ID)
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *onboardingRepository) ListTasks(ctx context.Context, instanceID string) ([]domain.OnboardingTask, error) {
	const query = `
        SELECT id, instance_id, position, title, description, due_date, audio_url, completed_at, created_at
        FROM onboarding_tasks WHERE instance_id=$1 ORDER BY position`

	rows, err := r.pool.Query(ctx, query, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OnboardingTask
	for rows.Next() {
		var t domain.OnboardingTask
		if err := rows.Scan(&t.ID, &t.InstanceID, &t.Position, &t.Title, &t.Description, &t.DueDate, &t.AudioURL, &t.CompletedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *onboardingRepository) GetTask(ctx context.Context, id string) (*domain.OnboardingTask, error) {
	const query = `
        SELECT id, instance_id, position, title, description, due_date, audio_url, completed_at, created_at
        FROM onboarding_tasks WHERE id=$1`

	var t domain.OnboardingTask
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.InstanceID,
		&t.Position,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.AudioURL,
		&t.CompletedAt,
		&t.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *onboardingRepository) UpdateTask(ctx context.Context, tx pgx.Tx, task *domain.OnboardingTask) error {
	const query = `
        UPDATE onboarding_tasks SET audio_url=$1, completed_at=$2 WHERE id=$3`

	var cmd pgconn.CommandTag
	var err error
	if tx != nil {
		cmd, err = tx.Exec(ctx, query, task.AudioURL, task.CompletedAt, task.ID)
	} else {
		cmd, err = r.pool.Exec(ctx, query, task.AudioURL, task.CompletedAt, task.ID)
	}
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetTaskAudio writes only the narration URL, leaving completion state to
// the task update path.
func (r *onboardingRepository) SetTaskAudio(ctx context.Context, taskID, url string) error {
	const query = `UPDATE onboarding_tasks SET audio_url=$1 WHERE id=$2`

	cmd, err := r.pool.Exec(ctx, query, url, taskID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *onboardingRepository) CountOpenTasks(ctx context.Context, tx pgx.Tx, instanceID string) (int, error) {
	const query = `SELECT COUNT(*) FROM onboarding_tasks WHERE instance_id=$1 AND completed_at IS NULL`

	var row pgx.Row
	if tx != nil {
		row = tx.QueryRow(ctx, query, instanceID)
	} else {
		row = r.pool.QueryRow(ctx, query, instanceID)
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

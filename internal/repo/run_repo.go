package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Machina/internal/domain"
)

// RunRepo — репозиторий для работы с runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Create создаёт новый run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	triggerJSON, err := json.Marshal(run.Trigger)
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}

	query := `
		INSERT INTO runs (id, workflow, status, trigger, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID,
		run.Workflow,
		run.Status,
		triggerJSON,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT id, workflow, status, trigger, error, failed_node,
		       started_at, finished_at, created_at
		FROM runs
		WHERE id = $1
	`
	return scanRun(r.pool.QueryRow(ctx, query, id))
}

// List возвращает список runs с фильтрацией.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `
		SELECT id, workflow, status, trigger, error, failed_node,
		       started_at, finished_at, created_at
		FROM runs
		WHERE ($1::text IS NULL OR workflow = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.Workflow),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Update обновляет изменяемую часть run.
func (r *RunRepo) Update(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE runs
		SET status = $2, error = $3, failed_node = $4, started_at = $5, finished_at = $6
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		run.ID,
		run.Status,
		nullString(run.Error),
		nullString(run.FailedNode),
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	Workflow string
	Status   domain.RunStatus
	Limit    int
	Offset   int
}

// scanRun сканирует строку в Run.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var triggerJSON []byte
	var runError *string
	var failedNode *string

	err := row.Scan(
		&run.ID,
		&run.Workflow,
		&run.Status,
		&triggerJSON,
		&runError,
		&failedNode,
		&run.StartedAt,
		&run.FinishedAt,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	if triggerJSON != nil {
		if err := json.Unmarshal(triggerJSON, &run.Trigger); err != nil {
			return nil, fmt.Errorf("unmarshal trigger: %w", err)
		}
	}

	if runError != nil {
		run.Error = *runError
	}
	if failedNode != nil {
		run.FailedNode = *failedNode
	}

	return &run, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

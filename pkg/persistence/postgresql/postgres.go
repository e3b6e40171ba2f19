// Package postgresql provides PostgreSQL-backed persistence for workflow
// definitions. Each workflow is stored as a JSONB document alongside its
// indexed columns.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/taskweave/taskweave/pkg/models"
	"github.com/taskweave/taskweave/pkg/persistence"
)

type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Persistence{db: database, logger: logger}

	if err := p.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run workflow migrations: %w", err)
	}

	return p, nil
}

func (p *Persistence) migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS workflows (
			id         TEXT PRIMARY KEY
		  , name       TEXT NOT NULL
		  , enabled    BOOLEAN NOT NULL DEFAULT TRUE
		  , definition JSONB NOT NULL
		  , created_at TIMESTAMPTZ NOT NULL
		  , updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_workflows_enabled ON workflows (enabled);
	`

	_, err := p.db.ExecContext(ctx, query)

	return err
}

func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT definition FROM workflows ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		var definition []byte
		if err := rows.Scan(&definition); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		var workflow models.Workflow
		if err := json.Unmarshal(definition, &workflow); err != nil {
			return nil, fmt.Errorf("failed to decode workflow definition: %w", err)
		}

		workflows = append(workflows, &workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT definition FROM workflows WHERE id = $1`

	var definition []byte

	err := p.db.QueryRowContext(ctx, query, id).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", persistence.ErrWorkflowNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow %s: %w", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(definition, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", id, err)
	}

	return &workflow, nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	definition, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to encode workflow %s: %w", workflow.ID, err)
	}

	query := `
		INSERT INTO workflows (id, name, enabled, definition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , enabled = EXCLUDED.enabled
		  , definition = EXCLUDED.definition
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Enabled,
		definition,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	return nil
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", persistence.ErrWorkflowNotFound, id)
	}

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

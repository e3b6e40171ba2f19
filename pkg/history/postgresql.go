package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	// PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/taskweave/taskweave/pkg/models"
)

// PostgresStore persists execution results in a PostgreSQL table. Step
// results are stored as a JSONB document alongside the indexed columns.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, logger *slog.Logger, databaseURL string) (*PostgresStore, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: database, logger: logger}

	if err := store.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run history migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS execution_history (
			execution_id    TEXT PRIMARY KEY
		  , workflow_id     TEXT NOT NULL
		  , status          TEXT NOT NULL
		  , started_at      TIMESTAMPTZ NOT NULL
		  , duration_ms     BIGINT NOT NULL
		  , completed_steps INT NOT NULL
		  , total_steps     INT NOT NULL
		  , error           TEXT
		  , step_results    JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_execution_history_workflow
			ON execution_history (workflow_id, started_at DESC);
	`

	_, err := s.db.ExecContext(ctx, query)

	return err
}

func (s *PostgresStore) Append(ctx context.Context, result *models.ExecutionResult) error {
	stepResults, err := json.Marshal(result.StepResults)
	if err != nil {
		return fmt.Errorf("failed to encode step results: %w", err)
	}

	query := `
		INSERT INTO execution_history (
			execution_id, workflow_id, status, started_at, duration_ms,
			completed_steps, total_steps, error, step_results
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		result.ExecutionID,
		result.WorkflowID,
		string(result.Status),
		result.StartedAt,
		result.Duration.Milliseconds(),
		result.CompletedSteps,
		result.TotalSteps,
		result.Error,
		stepResults,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution result %s: %w", result.ExecutionID, err)
	}

	return nil
}

func (s *PostgresStore) Query(ctx context.Context, workflowID string) ([]*models.ExecutionResult, error) {
	query := `
		SELECT
			execution_id
		  , workflow_id
		  , status
		  , started_at
		  , duration_ms
		  , completed_steps
		  , total_steps
		  , error
		  , step_results
		FROM execution_history
		WHERE workflow_id = $1
		ORDER BY started_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution history: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	results := make([]*models.ExecutionResult, 0)

	for rows.Next() {
		var (
			result      models.ExecutionResult
			status      string
			durationMs  int64
			errorText   sql.NullString
			stepResults []byte
		)

		err := rows.Scan(
			&result.ExecutionID,
			&result.WorkflowID,
			&status,
			&result.StartedAt,
			&durationMs,
			&result.CompletedSteps,
			&result.TotalSteps,
			&errorText,
			&stepResults,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution result: %w", err)
		}

		result.Status = models.ExecutionStatus(status)
		result.Duration = time.Duration(durationMs) * time.Millisecond
		result.Error = errorText.String

		if err := json.Unmarshal(stepResults, &result.StepResults); err != nil {
			return nil, fmt.Errorf("failed to decode step results: %w", err)
		}

		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution history: %w", err)
	}

	return results, nil
}

func (s *PostgresStore) Close(_ context.Context) error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

package history

import (
	"context"
	"encoding/json"

	"evbot/internal/common/database"
	apperrors "evbot/internal/common/errors"
	"evbot/internal/models"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS prediction_history (
		id          UUID PRIMARY KEY,
		source      TEXT NOT NULL,
		class_id    INTEGER NOT NULL,
		result_type TEXT NOT NULL,
		message     TEXT NOT NULL,
		inputs      JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS prediction_history_created_at_idx ON prediction_history (created_at DESC)`,
}

// PostgresStore keeps predictions in the prediction_history table.
type PostgresStore struct {
	db *database.PostgresClient
}

func NewPostgresStore(db *database.PostgresClient) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Name() string { return "postgres" }

// EnsureSchema creates the table and index if they are missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return apperrors.NewStorageQueryFailedError("ensure_schema", err)
		}
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, rec models.PredictionRecord) error {
	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return apperrors.NewStorageQueryFailedError("record", err)
	}

	query := `INSERT INTO prediction_history (id, source, class_id, result_type, message, inputs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = s.db.Exec(ctx, query,
		rec.ID, string(rec.Source), rec.ClassID, string(rec.ResultType), rec.Message, inputs, rec.CreatedAt,
	)
	if err != nil {
		return apperrors.NewStorageQueryFailedError("record", err)
	}
	return nil
}

func (s *PostgresStore) Summary(ctx context.Context) (*models.HistorySummary, error) {
	query := `SELECT result_type, COUNT(*) FROM prediction_history GROUP BY result_type`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.NewStorageQueryFailedError("summary", err)
	}
	defer rows.Close()

	summary := emptySummary()
	for rows.Next() {
		var resultType string
		var count int
		if err := rows.Scan(&resultType, &count); err != nil {
			return nil, apperrors.NewStorageQueryFailedError("summary", err)
		}
		summary.ByResultType[models.ResultType(resultType)] = count
		summary.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageQueryFailedError("summary", err)
	}
	return summary, nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	query := `SELECT id, source, class_id, result_type, message, inputs, created_at
		FROM prediction_history ORDER BY created_at DESC LIMIT $1`
	rows, err := s.db.Query(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, apperrors.NewStorageQueryFailedError("recent", err)
	}
	defer rows.Close()

	records := make([]models.PredictionRecord, 0)
	for rows.Next() {
		var rec models.PredictionRecord
		var source, resultType string
		var inputs []byte
		if err := rows.Scan(&rec.ID, &source, &rec.ClassID, &resultType, &rec.Message, &inputs, &rec.CreatedAt); err != nil {
			return nil, apperrors.NewStorageQueryFailedError("recent", err)
		}
		rec.Source = models.PredictionSource(source)
		rec.ResultType = models.ResultType(resultType)
		if err := json.Unmarshal(inputs, &rec.Inputs); err != nil {
			return nil, apperrors.NewStorageQueryFailedError("recent", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageQueryFailedError("recent", err)
	}
	return records, nil
}

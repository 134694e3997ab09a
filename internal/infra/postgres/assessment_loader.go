package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"assessment-session/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// AssessmentLoader loads assessment definitions stored as JSONB.
type AssessmentLoader struct {
	pool *pgxpool.Pool
}

func NewAssessmentLoader(pool *pgxpool.Pool) *AssessmentLoader {
	return &AssessmentLoader{pool: pool}
}

func (l *AssessmentLoader) LoadAssessment(ctx context.Context, id domain.ID) (domain.Assessment, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM assessments WHERE id=$1`, string(id)).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Assessment{}, fmt.Errorf("%w: %s", domain.ErrAssessmentNotFound, id)
		}
		return domain.Assessment{}, fmt.Errorf("load assessment: %w", err)
	}
	var a domain.Assessment
	if err := json.Unmarshal(raw, &a); err != nil {
		return domain.Assessment{}, fmt.Errorf("unmarshal assessment: %w", err)
	}
	// The row key wins over whatever id the document carries.
	a.ID = id
	return a, nil
}

// SaveAssessment upserts a definition.
func (l *AssessmentLoader) SaveAssessment(ctx context.Context, a domain.Assessment) error {
	if a.ID == "" {
		return domain.ErrAssessmentIDRequired
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO assessments (id, data) VALUES ($1, $2::jsonb)
		ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`, string(a.ID), string(data))
	if err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}

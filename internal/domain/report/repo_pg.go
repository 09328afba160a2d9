package report

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const reportCols = `id, filename, media_type, status, risk_level,
	narrative_text, bundle, safety, processing_log, created_at`

func scanReport(row pgx.Row) (*Report, error) {
	var r Report
	err := row.Scan(&r.ID, &r.Filename, &r.MediaType, &r.Status, &r.RiskLevel,
		&r.NarrativeText, &r.Bundle, &r.Safety, &r.ProcessingLog, &r.CreatedAt)
	return &r, err
}

func (p *repoPG) Create(ctx context.Context, r *Report) error {
	r.ID = uuid.New()
	return p.pool.QueryRow(ctx, `
		INSERT INTO analysis_report (id, filename, media_type, status, risk_level,
			narrative_text, bundle, safety, processing_log)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		r.ID, r.Filename, r.MediaType, r.Status, r.RiskLevel,
		r.NarrativeText, r.Bundle, r.Safety, r.ProcessingLog).Scan(&r.CreatedAt)
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	return scanReport(p.pool.QueryRow(ctx, `SELECT `+reportCols+` FROM analysis_report WHERE id = $1`, id))
}

func (p *repoPG) List(ctx context.Context, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM analysis_report`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := p.pool.Query(ctx, `SELECT `+reportCols+` FROM analysis_report ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (p *repoPG) ListByRisk(ctx context.Context, riskLevel string, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM analysis_report WHERE risk_level = $1`, riskLevel).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := p.pool.Query(ctx, `SELECT `+reportCols+` FROM analysis_report WHERE risk_level = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, riskLevel, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (p *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM analysis_report WHERE id = $1`, id)
	return err
}

func collect(rows pgx.Rows, total int) ([]*Report, int, error) {
	var items []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, r)
	}
	return items, total, rows.Err()
}

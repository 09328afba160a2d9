package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clindoc/clindoc/internal/pipeline"
	"github.com/clindoc/clindoc/internal/pipeline/extract"
)

// Runner is the pipeline entry point the service drives.
type Runner interface {
	Run(ctx context.Context, doc extract.RawDocument) (*pipeline.AnalysisResult, error)
}

type Service struct {
	repo   Repository
	runner Runner
}

func NewService(repo Repository, runner Runner) *Service {
	return &Service{repo: repo, runner: runner}
}

var validRiskLevels = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true, "unknown": true,
}

// Analyze runs the pipeline on a document and stores the result. The run's
// failure (unreadable document) is returned to the caller; any degraded
// stage is recorded in the stored report instead.
func (s *Service) Analyze(ctx context.Context, doc extract.RawDocument) (*Report, error) {
	if doc.Filename == "" {
		return nil, fmt.Errorf("filename is required")
	}
	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("document is empty")
	}
	// Clients often upload with no declared type, or curl's default
	// application/octet-stream; fall back to the filename extension.
	if doc.MediaType == "" || doc.MediaType == "application/octet-stream" {
		doc.MediaType = extract.MediaTypeForFilename(doc.Filename)
	}
	if !extract.Supported(doc.MediaType) {
		return nil, fmt.Errorf("unsupported media type: %s", doc.MediaType)
	}

	result, err := s.runner.Run(ctx, doc)
	if err != nil {
		return nil, err
	}

	rep, err := FromResult(doc.Filename, doc.MediaType, result)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("storing report: %w", err)
	}
	return rep, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Report, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, riskLevel string, limit, offset int) ([]*Report, int, error) {
	if riskLevel != "" {
		if !validRiskLevels[riskLevel] {
			return nil, 0, fmt.Errorf("invalid risk_level: %s", riskLevel)
		}
		return s.repo.ListByRisk(ctx, riskLevel, limit, offset)
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clindoc/clindoc/internal/pipeline"
)

// Report maps to the analysis_report table. Bundle, Safety, and
// ProcessingLog hold the pipeline output as stored JSON.
type Report struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Filename      string          `db:"filename" json:"filename"`
	MediaType     string          `db:"media_type" json:"media_type"`
	Status        string          `db:"status" json:"status"`
	RiskLevel     string          `db:"risk_level" json:"risk_level"`
	NarrativeText string          `db:"narrative_text" json:"narrative_text"`
	Bundle        json.RawMessage `db:"bundle" json:"bundle"`
	Safety        json.RawMessage `db:"safety" json:"safety"`
	ProcessingLog json.RawMessage `db:"processing_log" json:"processing_log"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

const (
	StatusCompleted = "completed"
	StatusDegraded  = "degraded"
)

// FromResult builds a report row from a finished pipeline run.
func FromResult(filename, mediaType string, result *pipeline.AnalysisResult) (*Report, error) {
	bundleJSON, err := json.Marshal(result.Bundle)
	if err != nil {
		return nil, fmt.Errorf("encoding bundle: %w", err)
	}
	safetyJSON, err := json.Marshal(result.Safety)
	if err != nil {
		return nil, fmt.Errorf("encoding safety report: %w", err)
	}
	logJSON, err := json.Marshal(result.ProcessingLog)
	if err != nil {
		return nil, fmt.Errorf("encoding processing log: %w", err)
	}

	status := StatusCompleted
	if result.Degraded() {
		status = StatusDegraded
	}
	return &Report{
		Filename:      filename,
		MediaType:     mediaType,
		Status:        status,
		RiskLevel:     string(result.Safety.RiskLevel),
		NarrativeText: result.NarrativeText,
		Bundle:        bundleJSON,
		Safety:        safetyJSON,
		ProcessingLog: logJSON,
	}, nil
}

package report

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clindoc/clindoc/internal/pipeline"
	"github.com/clindoc/clindoc/internal/pipeline/bundle"
	"github.com/clindoc/clindoc/internal/pipeline/extract"
	"github.com/clindoc/clindoc/internal/pipeline/safety"
)

// -- Mock Repository --

type mockRepo struct {
	items map[uuid.UUID]*Report
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Report)}
}

func (m *mockRepo) Create(_ context.Context, r *Report) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.items[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Report, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Report, int, error) {
	var result []*Report
	for _, r := range m.items {
		result = append(result, r)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByRisk(_ context.Context, riskLevel string, limit, offset int) ([]*Report, int, error) {
	var result []*Report
	for _, r := range m.items {
		if r.RiskLevel == riskLevel {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

// -- Mock Runner --

type mockRunner struct {
	result *pipeline.AnalysisResult
	err    error
}

func (m *mockRunner) Run(_ context.Context, _ extract.RawDocument) (*pipeline.AnalysisResult, error) {
	return m.result, m.err
}

func cleanResult() *pipeline.AnalysisResult {
	return &pipeline.AnalysisResult{
		Bundle:        &bundle.ClinicalBundle{Patient: bundle.Patient{Name: "Unknown"}},
		NarrativeText: "This document describes care provided to the patient.",
		Safety:        safety.Report{Flags: []safety.Flag{}, RiskLevel: safety.RiskLow},
		ProcessingLog: []pipeline.StageResult{
			{Stage: pipeline.StageExtract, Status: pipeline.StatusSuccess},
		},
	}
}

func newTestService() *Service {
	return NewService(newMockRepo(), &mockRunner{result: cleanResult()})
}

func textDoc() extract.RawDocument {
	return extract.RawDocument{Filename: "note.txt", MediaType: "text/plain", Data: []byte("some clinical text")}
}

func TestService_Analyze(t *testing.T) {
	svc := newTestService()

	rep, err := svc.Analyze(context.Background(), textDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.ID == uuid.Nil {
		t.Error("expected report persisted with id")
	}
	if rep.Status != StatusCompleted {
		t.Errorf("expected completed status, got %s", rep.Status)
	}
	if rep.RiskLevel != "low" {
		t.Errorf("expected low risk, got %s", rep.RiskLevel)
	}
}

func TestService_Analyze_DegradedRun(t *testing.T) {
	result := cleanResult()
	result.ProcessingLog = append(result.ProcessingLog, pipeline.StageResult{
		Stage: pipeline.StageEntities, Status: pipeline.StatusDegraded,
	})
	svc := NewService(newMockRepo(), &mockRunner{result: result})

	rep, err := svc.Analyze(context.Background(), textDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Status != StatusDegraded {
		t.Errorf("expected degraded status, got %s", rep.Status)
	}
}

func TestService_Analyze_SkippedStageStillCompleted(t *testing.T) {
	result := cleanResult()
	result.ProcessingLog = append(result.ProcessingLog, pipeline.StageResult{
		Stage: pipeline.StageLink, Status: pipeline.StatusSkipped,
	})
	svc := NewService(newMockRepo(), &mockRunner{result: result})

	rep, err := svc.Analyze(context.Background(), textDoc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Status != StatusCompleted {
		t.Errorf("expected completed status for disabled stage, got %s", rep.Status)
	}
}

func TestService_Analyze_UnsupportedMediaType(t *testing.T) {
	svc := newTestService()
	doc := extract.RawDocument{Filename: "sheet.xlsx", MediaType: "application/vnd.ms-excel", Data: []byte("x")}

	if _, err := svc.Analyze(context.Background(), doc); err == nil {
		t.Error("expected error for unsupported media type")
	}
}

func TestService_Analyze_MediaTypeFromFilename(t *testing.T) {
	svc := newTestService()
	doc := extract.RawDocument{Filename: "note.txt", Data: []byte("some clinical text")}

	rep, err := svc.Analyze(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.MediaType != "text/plain" {
		t.Errorf("expected media type inferred from filename, got %s", rep.MediaType)
	}
}

func TestService_Analyze_OctetStreamFallsBackToFilename(t *testing.T) {
	svc := newTestService()
	doc := extract.RawDocument{
		Filename:  "note.txt",
		MediaType: "application/octet-stream",
		Data:      []byte("some clinical text"),
	}

	rep, err := svc.Analyze(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.MediaType != "text/plain" {
		t.Errorf("expected octet-stream replaced by extension type, got %s", rep.MediaType)
	}
}

func TestService_Analyze_RunFailure(t *testing.T) {
	svc := NewService(newMockRepo(), &mockRunner{err: fmt.Errorf("text extraction: unreadable")})

	if _, err := svc.Analyze(context.Background(), textDoc()); err == nil {
		t.Error("expected pipeline failure surfaced")
	}
}

func TestService_List_InvalidRisk(t *testing.T) {
	svc := newTestService()
	if _, _, err := svc.List(context.Background(), "extreme", 10, 0); err == nil {
		t.Error("expected error for invalid risk level")
	}
}

func TestService_List_ByRisk(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, &mockRunner{result: cleanResult()})
	if _, err := svc.Analyze(context.Background(), textDoc()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, total, err := svc.List(context.Background(), "low", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("expected 1 low-risk report, got %d", total)
	}

	items, total, err = svc.List(context.Background(), "critical", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(items) != 0 {
		t.Errorf("expected no critical reports, got %d", total)
	}
}

package bundle

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/clindoc/clindoc/internal/pipeline/entity"
	"github.com/clindoc/clindoc/internal/pipeline/link"
	"github.com/clindoc/clindoc/internal/pipeline/section"
)

func fixedComposer() *Composer {
	return &Composer{Now: func() time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	}}
}

func strptr(s string) *string { return &s }

func TestCompose_GroupsByType(t *testing.T) {
	c := fixedComposer()
	entities := []link.LinkedEntity{
		{ClinicalEntity: entity.ClinicalEntity{Text: "hypertension", Type: entity.TypeCondition, Confidence: 0.9},
			CodeSystem: link.SystemSNOMED, Code: strptr("38341003"), Display: "Hypertension"},
		{ClinicalEntity: entity.ClinicalEntity{Text: "warfarin", Type: entity.TypeMedication, Confidence: 0.95},
			CodeSystem: link.SystemRxNorm, Code: strptr("11289"), Display: "Warfarin"},
		{ClinicalEntity: entity.ClinicalEntity{Text: "chest x-ray", Type: entity.TypeProcedure, Confidence: 0.8}},
	}

	b := c.Compose(entities, nil, Metadata{})
	if len(b.Conditions) != 1 || len(b.Medications) != 1 || len(b.Procedures) != 1 {
		t.Fatalf("unexpected grouping: %+v", b)
	}
	if b.Conditions[0].Display != "Hypertension" {
		t.Errorf("expected linked display carried, got %+v", b.Conditions[0])
	}
	if b.Procedures[0].Code != nil {
		t.Errorf("unlinked entity must keep nil code, got %+v", b.Procedures[0])
	}
	if b.ResourceCount() != 3 {
		t.Errorf("expected 3 resources, got %d", b.ResourceCount())
	}
}

func TestCompose_EmptyInputYieldsValidBundle(t *testing.T) {
	c := fixedComposer()
	b := c.Compose(nil, nil, Metadata{})

	if !b.Empty() {
		t.Error("expected empty bundle")
	}
	if b.Patient.Name != "Unknown" {
		t.Errorf("expected Unknown patient, got %q", b.Patient.Name)
	}

	// Fixed top-level keys must serialize even when empty.
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"patient"`, `"conditions":[]`, `"medications":[]`, `"observations":[]`, `"procedures":[]`, `"encounters"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in serialized bundle: %s", key, data)
		}
	}
}

func TestCompose_PatientAndEncounterFromHeader(t *testing.T) {
	c := fixedComposer()
	sections := []section.Section{
		{Label: section.LabelOther, Text: "Patient: Jane Smith\nDOB: 3/2/1955\nPhysician: Dr. Adams\nDate of Visit: 2026-08-12", Order: 0},
	}

	b := c.Compose(nil, sections, Metadata{})
	if b.Patient.Name != "Jane Smith" {
		t.Errorf("expected patient name extracted, got %q", b.Patient.Name)
	}
	if b.Patient.DateOfBirth != "1955-03-02" {
		t.Errorf("expected normalized DOB, got %q", b.Patient.DateOfBirth)
	}
	if len(b.Encounters) != 1 {
		t.Fatalf("expected 1 encounter, got %d", len(b.Encounters))
	}
	if b.Encounters[0].Practitioner != "Dr. Adams" {
		t.Errorf("expected practitioner extracted, got %q", b.Encounters[0].Practitioner)
	}
	if b.Encounters[0].Date != "2026-08-12" {
		t.Errorf("expected visit date, got %q", b.Encounters[0].Date)
	}
}

func TestCompose_MissingNamesDefaultUnknown(t *testing.T) {
	c := fixedComposer()
	sections := []section.Section{
		{Label: section.LabelOther, Text: "Illegible header text", Order: 0},
	}

	b := c.Compose(nil, sections, Metadata{ReceivedAt: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)})
	if b.Patient.Name != "Unknown" {
		t.Errorf("expected Unknown patient, got %q", b.Patient.Name)
	}
	if b.Encounters[0].Practitioner != "Unknown" {
		t.Errorf("expected Unknown practitioner, got %q", b.Encounters[0].Practitioner)
	}
	if b.Encounters[0].Date != "2026-08-30" {
		t.Errorf("expected received date fallback, got %q", b.Encounters[0].Date)
	}
}

func TestCompose_ObservationValueAndUnit(t *testing.T) {
	c := fixedComposer()
	sections := []section.Section{
		{Label: section.LabelResults, Text: "Glucose: 185 mg/dL\nCreatinine: 1.4 mg/dL", Order: 0},
	}
	entities := []link.LinkedEntity{
		{ClinicalEntity: entity.ClinicalEntity{
			Text: "Glucose", Type: entity.TypeObservation, Confidence: 0.9,
			SourceSection: section.LabelResults,
		}},
	}

	b := c.Compose(entities, sections, Metadata{})
	if len(b.Observations) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(b.Observations))
	}
	obs := b.Observations[0]
	if obs.Value == nil || *obs.Value != 185 {
		t.Fatalf("expected value 185, got %+v", obs.Value)
	}
	if obs.Unit != "mg/dL" {
		t.Errorf("expected unit mg/dL, got %q", obs.Unit)
	}
}

func TestCompose_TimestampIsRFC3339(t *testing.T) {
	c := fixedComposer()
	b := c.Compose(nil, nil, Metadata{})
	if _, err := time.Parse(time.RFC3339, b.ComposedAt); err != nil {
		t.Errorf("composed_at not RFC3339: %q", b.ComposedAt)
	}
}

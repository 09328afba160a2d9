package section

import (
	"strings"
	"testing"
)

const sampleNote = `Patient: Jane Smith
DOB: 1955-03-02

CHIEF COMPLAINT:
Shortness of breath.

History of Present Illness
Two days of worsening dyspnea on exertion.

MEDICATIONS:
- Warfarin 5 mg daily
- Ibuprofen 400 mg as needed

Assessment:
Acute exacerbation of heart failure.
`

func TestSplit_LabelsAndOrder(t *testing.T) {
	s := NewSectionizer()
	sections := s.Split(sampleNote)

	wantLabels := []string{LabelOther, LabelChiefComplaint, LabelHistory, LabelMedications, LabelDiagnosis}
	if len(sections) != len(wantLabels) {
		t.Fatalf("expected %d sections, got %d: %+v", len(wantLabels), len(sections), sections)
	}
	for i, want := range wantLabels {
		if sections[i].Label != want {
			t.Errorf("section %d: expected label %s, got %s", i, want, sections[i].Label)
		}
		if sections[i].Order != i {
			t.Errorf("section %d: expected order %d, got %d", i, i, sections[i].Order)
		}
	}
	if !strings.Contains(sections[3].Text, "Warfarin") {
		t.Errorf("medications section missing content: %q", sections[3].Text)
	}
}

func TestSplit_LeadingTextIsOther(t *testing.T) {
	s := NewSectionizer()
	sections := s.Split(sampleNote)
	if sections[0].Label != LabelOther {
		t.Fatalf("expected leading text in other section, got %s", sections[0].Label)
	}
	if !strings.Contains(sections[0].Text, "Jane Smith") {
		t.Errorf("expected patient header in other section, got %q", sections[0].Text)
	}
}

func TestSplit_NoHeadings(t *testing.T) {
	s := NewSectionizer()
	text := "The patient is doing well on current therapy with no complaints."
	sections := s.Split(text)
	if len(sections) != 1 {
		t.Fatalf("expected single section, got %d", len(sections))
	}
	if sections[0].Label != LabelOther {
		t.Errorf("expected other label, got %s", sections[0].Label)
	}
	if sections[0].Text != text {
		t.Errorf("expected full text preserved, got %q", sections[0].Text)
	}
	if Recognized(sections) {
		t.Error("expected Recognized to be false for heading-free text")
	}
}

func TestSplit_PunctuationAndCaseVariants(t *testing.T) {
	s := NewSectionizer()
	for _, heading := range []string{"medications:", "MEDICATIONS", "-- Medications --", "2. Current Medications:"} {
		sections := s.Split(heading + "\naspirin 81 mg\n")
		found := Find(sections, LabelMedications)
		if found == nil {
			t.Errorf("heading %q not recognized: %+v", heading, sections)
			continue
		}
		if found.Text != "aspirin 81 mg" {
			t.Errorf("heading %q: unexpected body %q", heading, found.Text)
		}
	}
}

func TestSplit_LongLineIsNotHeading(t *testing.T) {
	s := NewSectionizer()
	line := "medications were reviewed with the patient and no changes were made at this visit today"
	sections := s.Split(line)
	if len(sections) != 1 || sections[0].Label != LabelOther {
		t.Errorf("long prose line must not be treated as a heading: %+v", sections)
	}
}

func TestSplit_EmptySectionsDropped(t *testing.T) {
	s := NewSectionizer()
	sections := s.Split("MEDICATIONS:\n\nALLERGIES:\npenicillin\n")
	if Find(sections, LabelMedications) != nil {
		t.Error("expected empty medications section to be dropped")
	}
	if Find(sections, LabelAllergies) == nil {
		t.Error("expected allergies section to be present")
	}
}

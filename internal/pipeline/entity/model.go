package entity

// EntityType classifies a clinical mention.
type EntityType string

const (
	TypeCondition   EntityType = "condition"
	TypeMedication  EntityType = "medication"
	TypeObservation EntityType = "observation"
	TypeProcedure   EntityType = "procedure"
)

// ValidEntityTypes is used by handlers and the linker to reject unknown types.
var ValidEntityTypes = map[EntityType]bool{
	TypeCondition:   true,
	TypeMedication:  true,
	TypeObservation: true,
	TypeProcedure:   true,
}

// ClinicalEntity is a single mention found in the document text. Start and
// End are byte offsets into the section text the mention came from.
type ClinicalEntity struct {
	Text          string     `json:"text"`
	Start         int        `json:"start"`
	End           int        `json:"end"`
	Type          EntityType `json:"type"`
	Confidence    float64    `json:"confidence"`
	SourceSection string     `json:"source_section"`
}

// overlaps reports whether two entities occupy overlapping spans within the
// same section.
func (e ClinicalEntity) overlaps(other ClinicalEntity) bool {
	if e.SourceSection != other.SourceSection {
		return false
	}
	return e.Start < other.End && other.Start < e.End
}

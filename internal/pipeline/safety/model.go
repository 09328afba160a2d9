package safety

// Category classifies what kind of concern a flag raises.
type Category string

const (
	CategoryDrugInteraction  Category = "drug_interaction"
	CategoryContraindication Category = "contraindication"
	CategoryVitalAlert       Category = "vital_alert"
	CategoryComorbidityRisk  Category = "comorbidity_risk"
)

// Severity of a single flag.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityModerate: 2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// RiskLevel is the aggregate classification for a whole analysis.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
	RiskUnknown  RiskLevel = "unknown"
)

// riskFor maps the maximum flag severity to the aggregate level. No flags
// means low risk, which is distinct from the engine not running at all.
func riskFor(flags []Flag) RiskLevel {
	max := 0
	for _, f := range flags {
		if r := severityRank[f.Severity]; r > max {
			max = r
		}
	}
	switch max {
	case 0, severityRank[SeverityLow]:
		return RiskLow
	case severityRank[SeverityModerate]:
		return RiskMedium
	case severityRank[SeverityHigh]:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Flag is one detected safety concern. Every flag originates from a
// deterministic rule; Narration is optional LLM-added prose and never the
// source of the flag itself.
type Flag struct {
	Category         Category `json:"category"`
	Severity         Severity `json:"severity"`
	Rationale        string   `json:"rationale"`
	InvolvedEntities []string `json:"involved_entities"`
	Narration        string   `json:"narration,omitempty"`
}

// Report is the safety stage output.
type Report struct {
	Flags     []Flag    `json:"flags"`
	RiskLevel RiskLevel `json:"risk_level"`
}

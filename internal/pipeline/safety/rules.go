package safety

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/clindoc/clindoc/internal/pipeline/bundle"
)

// -- drug classification --

type drugClass string

const (
	classAnticoagulant drugClass = "anticoagulant"
	classNSAID         drugClass = "nsaid"
	classACEInhibitor  drugClass = "ace_inhibitor"
	classDiuretic      drugClass = "diuretic"
	classOpioid        drugClass = "opioid"
	classDigoxin       drugClass = "digoxin"
)

// drugClasses keys on the lowercase drug name as it appears in the bundle
// display or text.
var drugClasses = map[string][]drugClass{
	"warfarin":    {classAnticoagulant},
	"heparin":     {classAnticoagulant},
	"apixaban":    {classAnticoagulant},
	"rivaroxaban": {classAnticoagulant},
	"ibuprofen":   {classNSAID},
	"naproxen":    {classNSAID},
	"ketorolac":   {classNSAID},
	"diclofenac":  {classNSAID},
	"aspirin":     {classNSAID},
	"lisinopril":  {classACEInhibitor},
	"enalapril":   {classACEInhibitor},
	"ramipril":    {classACEInhibitor},
	"furosemide":  {classDiuretic},
	"morphine":    {classOpioid},
	"codeine":     {classOpioid},
	"oxycodone":   {classOpioid},
	"digoxin":     {classDigoxin},
}

// classInteraction is one row in the pairwise interaction table.
type classInteraction struct {
	a, b      drugClass
	severity  Severity
	rationale string
}

var interactionTable = []classInteraction{
	{classAnticoagulant, classNSAID, SeverityCritical,
		"combining an anticoagulant with an NSAID substantially increases bleeding risk"},
	{classACEInhibitor, classNSAID, SeverityModerate,
		"NSAIDs can blunt ACE inhibitor effect and worsen renal function"},
	{classDiuretic, classDigoxin, SeverityHigh,
		"diuretic-induced hypokalemia potentiates digoxin toxicity"},
	{classOpioid, classOpioid, SeverityHigh,
		"concurrent opioids compound respiratory depression risk"},
}

// lowDoseAspirinMax is the cutoff in mg below which aspirin is treated as
// antiplatelet prophylaxis rather than an NSAID-dose exposure.
const lowDoseAspirinMax = 100.0

var doseRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*mg\b`)

// -- condition classification --

type conditionClass string

const (
	condDiabetes     conditionClass = "diabetes"
	condCKD          conditionClass = "chronic_kidney_disease"
	condHeartFailure conditionClass = "heart_failure"
	condAsthma       conditionClass = "asthma"
	condHypertension conditionClass = "hypertension"
)

var conditionMarkers = map[conditionClass][]string{
	condDiabetes:     {"diabetes"},
	condCKD:          {"chronic kidney disease", "kidney disease", "renal failure", "ckd"},
	condHeartFailure: {"heart failure", "chf"},
	condAsthma:       {"asthma"},
	condHypertension: {"hypertension", "high blood pressure"},
}

type comorbidityRule struct {
	a, b      conditionClass
	severity  Severity
	rationale string
}

var comorbidityTable = []comorbidityRule{
	{condDiabetes, condCKD, SeverityHigh,
		"diabetes with chronic kidney disease requires close renal monitoring and dose adjustment"},
	{condHeartFailure, condCKD, SeverityHigh,
		"heart failure with chronic kidney disease complicates fluid and diuretic management"},
}

// contraindicationRule flags a medication class against a condition class.
type contraindicationRule struct {
	drug      drugClass
	cond      conditionClass
	severity  Severity
	rationale string
}

var contraindicationTable = []contraindicationRule{
	{classNSAID, condCKD, SeverityHigh,
		"NSAIDs are generally avoided in chronic kidney disease"},
	{classNSAID, condHeartFailure, SeverityModerate,
		"NSAIDs promote fluid retention in heart failure"},
}

// -- observation reference ranges --

// vitalRange holds the accepted band for an observation in its canonical
// unit. Alert severities below and above differ for some vitals. mgPerMmol
// is the analyte's molar conversion from mmol/L to mg/dL; zero means the
// analyte has no accepted mmol/L form.
type vitalRange struct {
	markers       []string
	canonicalUnit string
	mgPerMmol     float64
	low, high     float64
	lowSeverity   Severity
	highSeverity  Severity
}

var vitalRanges = []vitalRange{
	{markers: []string{"glucose"}, canonicalUnit: "mg/dL", mgPerMmol: glucoseMgPerMmol, low: 70, high: 180,
		lowSeverity: SeverityHigh, highSeverity: SeverityModerate},
	{markers: []string{"systolic"}, canonicalUnit: "mmHg", low: 90, high: 180,
		lowSeverity: SeverityHigh, highSeverity: SeverityHigh},
	{markers: []string{"diastolic"}, canonicalUnit: "mmHg", low: 60, high: 120,
		lowSeverity: SeverityModerate, highSeverity: SeverityHigh},
	{markers: []string{"heart rate", "pulse"}, canonicalUnit: "bpm", low: 50, high: 120,
		lowSeverity: SeverityModerate, highSeverity: SeverityModerate},
	{markers: []string{"temperature", "temp"}, canonicalUnit: "C", low: 35, high: 38.5,
		lowSeverity: SeverityHigh, highSeverity: SeverityModerate},
	{markers: []string{"creatinine"}, canonicalUnit: "mg/dL", mgPerMmol: creatinineMgPerMmol, low: 0.5, high: 1.3,
		lowSeverity: SeverityLow, highSeverity: SeverityModerate},
	{markers: []string{"potassium"}, canonicalUnit: "mmol/L", low: 3.5, high: 5.2,
		lowSeverity: SeverityHigh, highSeverity: SeverityHigh},
	{markers: []string{"inr"}, canonicalUnit: "", low: 0.8, high: 3.5,
		lowSeverity: SeverityLow, highSeverity: SeverityCritical},
}

// mmol/L to mg/dL, per analyte molar mass (glucose 180.16 g/mol,
// creatinine 113.12 g/mol).
const (
	glucoseMgPerMmol    = 18.0
	creatinineMgPerMmol = 11.312
)

// normalizeValue converts a reported value into the range's canonical unit.
func normalizeValue(r vitalRange, value float64, unit string) (float64, bool) {
	unit = strings.TrimPrefix(unit, "°")
	if unit == "" || strings.EqualFold(unit, r.canonicalUnit) {
		return value, true
	}
	switch {
	case r.canonicalUnit == "mg/dL" && strings.EqualFold(unit, "mmol/L") && r.mgPerMmol > 0:
		return value * r.mgPerMmol, true
	case r.canonicalUnit == "C" && strings.EqualFold(unit, "F"):
		return (value - 32) * 5 / 9, true
	}
	return 0, false
}

// -- engine --

// Analyze runs the deterministic rule engine over a bundle. A nil bundle is
// the only condition the engine cannot evaluate; it reports unknown risk.
func Analyze(b *bundle.ClinicalBundle) Report {
	if b == nil {
		return Report{Flags: []Flag{}, RiskLevel: RiskUnknown}
	}

	flags := []Flag{}
	flags = append(flags, checkInteractions(b.Medications)...)
	flags = append(flags, checkComorbidities(b.Conditions)...)
	flags = append(flags, checkContraindications(b.Medications, b.Conditions)...)
	flags = append(flags, checkObservations(b.Observations)...)

	return Report{Flags: flags, RiskLevel: riskFor(flags)}
}

// medication pairs a bundle resource with its recognized classes.
type medication struct {
	name    string
	classes []drugClass
}

func classify(meds []bundle.Resource) []medication {
	out := make([]medication, 0, len(meds))
	for _, m := range meds {
		name := resourceName(m)
		classes := drugClasses[strings.ToLower(name)]
		if classes == nil {
			// Display may carry dose or brand suffixes; fall back to a
			// substring scan of the raw mention.
			classes = classesInText(m.Text)
		}
		if isLowDoseAspirin(m) {
			classes = withoutClass(classes, classNSAID)
		}
		out = append(out, medication{name: name, classes: classes})
	}
	return out
}

func classesInText(text string) []drugClass {
	lower := strings.ToLower(text)
	var classes []drugClass
	for name, cs := range drugClasses {
		if strings.Contains(lower, name) {
			classes = append(classes, cs...)
		}
	}
	return classes
}

// isLowDoseAspirin reports whether a medication is aspirin at or below the
// prophylactic dose cutoff.
func isLowDoseAspirin(m bundle.Resource) bool {
	lower := strings.ToLower(m.Text + " " + m.Display)
	if !strings.Contains(lower, "aspirin") {
		return false
	}
	match := doseRe.FindStringSubmatch(lower)
	if match == nil {
		return false
	}
	dose, err := strconv.ParseFloat(match[1], 64)
	return err == nil && dose <= lowDoseAspirinMax
}

func withoutClass(classes []drugClass, drop drugClass) []drugClass {
	out := classes[:0:0]
	for _, c := range classes {
		if c != drop {
			out = append(out, c)
		}
	}
	return out
}

func hasClass(m medication, c drugClass) bool {
	for _, mc := range m.classes {
		if mc == c {
			return true
		}
	}
	return false
}

func checkInteractions(meds []bundle.Resource) []Flag {
	classified := classify(meds)
	var flags []Flag
	for i := 0; i < len(classified); i++ {
		for j := i + 1; j < len(classified); j++ {
			a, b := classified[i], classified[j]
			for _, rule := range interactionTable {
				if (hasClass(a, rule.a) && hasClass(b, rule.b)) ||
					(hasClass(a, rule.b) && hasClass(b, rule.a)) {
					flags = append(flags, Flag{
						Category:         CategoryDrugInteraction,
						Severity:         rule.severity,
						Rationale:        fmt.Sprintf("%s + %s: %s", a.name, b.name, rule.rationale),
						InvolvedEntities: []string{a.name, b.name},
					})
				}
			}
		}
	}
	return flags
}

func conditionClasses(conditions []bundle.Resource) map[conditionClass]string {
	found := make(map[conditionClass]string)
	for _, c := range conditions {
		lower := strings.ToLower(resourceName(c) + " " + c.Text)
		for class, markers := range conditionMarkers {
			if _, ok := found[class]; ok {
				continue
			}
			for _, marker := range markers {
				if strings.Contains(lower, marker) {
					found[class] = resourceName(c)
					break
				}
			}
		}
	}
	return found
}

func checkComorbidities(conditions []bundle.Resource) []Flag {
	present := conditionClasses(conditions)
	var flags []Flag
	for _, rule := range comorbidityTable {
		nameA, okA := present[rule.a]
		nameB, okB := present[rule.b]
		if okA && okB {
			flags = append(flags, Flag{
				Category:         CategoryComorbidityRisk,
				Severity:         rule.severity,
				Rationale:        rule.rationale,
				InvolvedEntities: []string{nameA, nameB},
			})
		}
	}
	return flags
}

func checkContraindications(meds, conditions []bundle.Resource) []Flag {
	present := conditionClasses(conditions)
	classified := classify(meds)
	var flags []Flag
	for _, rule := range contraindicationTable {
		condName, ok := present[rule.cond]
		if !ok {
			continue
		}
		for _, med := range classified {
			if hasClass(med, rule.drug) {
				flags = append(flags, Flag{
					Category:         CategoryContraindication,
					Severity:         rule.severity,
					Rationale:        fmt.Sprintf("%s with %s: %s", med.name, condName, rule.rationale),
					InvolvedEntities: []string{med.name, condName},
				})
			}
		}
	}
	return flags
}

func checkObservations(observations []bundle.Resource) []Flag {
	var flags []Flag
	for _, obs := range observations {
		if obs.Value == nil {
			continue
		}
		lower := strings.ToLower(resourceName(obs) + " " + obs.Text)
		for _, r := range vitalRanges {
			if !matchesMarker(lower, r.markers) {
				continue
			}
			value, ok := normalizeValue(r, *obs.Value, obs.Unit)
			if !ok {
				continue
			}
			name := resourceName(obs)
			switch {
			case value < r.low:
				flags = append(flags, Flag{
					Category:         CategoryVitalAlert,
					Severity:         r.lowSeverity,
					Rationale:        fmt.Sprintf("%s %.4g %s is below the reference range (%.4g-%.4g %s)", name, value, r.canonicalUnit, r.low, r.high, r.canonicalUnit),
					InvolvedEntities: []string{name},
				})
			case value > r.high:
				flags = append(flags, Flag{
					Category:         CategoryVitalAlert,
					Severity:         r.highSeverity,
					Rationale:        fmt.Sprintf("%s %.4g %s is above the reference range (%.4g-%.4g %s)", name, value, r.canonicalUnit, r.low, r.high, r.canonicalUnit),
					InvolvedEntities: []string{name},
				})
			}
			break
		}
	}
	return flags
}

func matchesMarker(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func resourceName(r bundle.Resource) string {
	if r.Display != "" {
		return r.Display
	}
	return r.Text
}

package link

import "github.com/clindoc/clindoc/internal/pipeline/entity"

// Concept is one ontology entry the linker can match against.
type Concept struct {
	System  string `json:"system"`
	Code    string `json:"code"`
	Display string `json:"display"`
}

// Code systems per entity type.
const (
	SystemSNOMED = "http://snomed.info/sct"
	SystemRxNorm = "http://www.nlm.nih.gov/research/umls/rxnorm"
	SystemLOINC  = "http://loinc.org"
	SystemCPT    = "http://www.ama-assn.org/go/cpt"
)

// systemFor returns the code system used for an entity type.
func systemFor(t entity.EntityType) string {
	switch t {
	case entity.TypeMedication:
		return SystemRxNorm
	case entity.TypeObservation:
		return SystemLOINC
	case entity.TypeProcedure:
		return SystemCPT
	default:
		return SystemSNOMED
	}
}

// Lexicon holds candidate concepts per entity type. The built-in lexicon
// covers common primary-care vocabulary; deployments can load a larger one.
type Lexicon struct {
	concepts map[entity.EntityType][]Concept
}

// NewLexicon returns a lexicon seeded with the built-in concept sets.
func NewLexicon() *Lexicon {
	l := &Lexicon{concepts: make(map[entity.EntityType][]Concept)}
	l.Add(entity.TypeCondition,
		Concept{Code: "44054006", Display: "Type 2 diabetes mellitus"},
		Concept{Code: "38341003", Display: "Hypertension"},
		Concept{Code: "709044004", Display: "Chronic kidney disease"},
		Concept{Code: "84114007", Display: "Heart failure"},
		Concept{Code: "195967001", Display: "Asthma"},
		Concept{Code: "13645005", Display: "Chronic obstructive pulmonary disease"},
		Concept{Code: "49436004", Display: "Atrial fibrillation"},
		Concept{Code: "22298006", Display: "Myocardial infarction"},
		Concept{Code: "233604007", Display: "Pneumonia"},
		Concept{Code: "267432004", Display: "Pure hypercholesterolemia"},
		Concept{Code: "35489007", Display: "Depressive disorder"},
		Concept{Code: "396275006", Display: "Osteoarthritis"},
		Concept{Code: "40930008", Display: "Hypothyroidism"},
		Concept{Code: "230690007", Display: "Cerebrovascular accident"},
		Concept{Code: "90708001", Display: "Kidney disease"},
	)
	l.Add(entity.TypeMedication,
		Concept{Code: "11289", Display: "Warfarin"},
		Concept{Code: "5640", Display: "Ibuprofen"},
		Concept{Code: "1191", Display: "Aspirin"},
		Concept{Code: "6809", Display: "Metformin"},
		Concept{Code: "29046", Display: "Lisinopril"},
		Concept{Code: "83367", Display: "Atorvastatin"},
		Concept{Code: "7646", Display: "Omeprazole"},
		Concept{Code: "3616", Display: "Digoxin"},
		Concept{Code: "4603", Display: "Furosemide"},
		Concept{Code: "10582", Display: "Levothyroxine"},
		Concept{Code: "6135", Display: "Ketorolac"},
		Concept{Code: "7052", Display: "Morphine"},
		Concept{Code: "723", Display: "Amoxicillin"},
		Concept{Code: "2670", Display: "Codeine"},
		Concept{Code: "8163", Display: "Phenytoin"},
	)
	l.Add(entity.TypeObservation,
		Concept{Code: "2345-7", Display: "Glucose [Mass/volume] in Serum or Plasma"},
		Concept{Code: "4548-4", Display: "Hemoglobin A1c/Hemoglobin.total in Blood"},
		Concept{Code: "2160-0", Display: "Creatinine [Mass/volume] in Serum or Plasma"},
		Concept{Code: "8480-6", Display: "Systolic blood pressure"},
		Concept{Code: "8462-4", Display: "Diastolic blood pressure"},
		Concept{Code: "8867-4", Display: "Heart rate"},
		Concept{Code: "8310-5", Display: "Body temperature"},
		Concept{Code: "2823-3", Display: "Potassium [Moles/volume] in Serum or Plasma"},
		Concept{Code: "718-7", Display: "Hemoglobin [Mass/volume] in Blood"},
		Concept{Code: "6301-6", Display: "INR in Platelet poor plasma by Coagulation assay"},
		Concept{Code: "2093-3", Display: "Cholesterol [Mass/volume] in Serum or Plasma"},
	)
	l.Add(entity.TypeProcedure,
		Concept{Code: "93000", Display: "Electrocardiogram"},
		Concept{Code: "71046", Display: "Chest X-ray"},
		Concept{Code: "45378", Display: "Colonoscopy"},
		Concept{Code: "93306", Display: "Echocardiography"},
		Concept{Code: "36415", Display: "Venipuncture"},
		Concept{Code: "99213", Display: "Office visit"},
		Concept{Code: "70450", Display: "CT head without contrast"},
	)
	return l
}

// Concepts returns the candidate set for an entity type.
func (l *Lexicon) Concepts(t entity.EntityType) []Concept {
	return l.concepts[t]
}

// Add appends concepts for a type, stamping the type's code system on any
// concept that does not name one.
func (l *Lexicon) Add(t entity.EntityType, concepts ...Concept) {
	for _, c := range concepts {
		if c.System == "" {
			c.System = systemFor(t)
		}
		l.concepts[t] = append(l.concepts[t], c)
	}
}

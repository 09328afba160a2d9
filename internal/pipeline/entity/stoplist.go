package entity

import "strings"

// stopTerms are mentions the taggers frequently emit that carry no clinical
// meaning on their own: dosage units, schedule shorthand, and generic chart
// vocabulary. Matching is case-insensitive on the full mention text.
var stopTerms = map[string]bool{
	"mg":        true,
	"ml":        true,
	"mcg":       true,
	"g":         true,
	"unit":      true,
	"units":     true,
	"tablet":    true,
	"tablets":   true,
	"capsule":   true,
	"dose":      true,
	"daily":     true,
	"bid":       true,
	"tid":       true,
	"qid":       true,
	"prn":       true,
	"po":        true,
	"iv":        true,
	"patient":   true,
	"pt":        true,
	"history":   true,
	"normal":    true,
	"negative":  true,
	"positive":  true,
	"stable":    true,
	"unchanged": true,
	"none":      true,
	"nil":       true,
	"n/a":       true,
}

// Stopped reports whether a mention should be discarded before merging.
func Stopped(text string) bool {
	return stopTerms[strings.ToLower(strings.TrimSpace(text))]
}

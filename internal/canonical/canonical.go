// Package canonical rewrites establishment documents into a deterministic layout: records
// sorted by FHRSID, one record per line, everything else byte-for-byte as received where
// the format allows it. Running a canonicalizer on its own output is a no-op.
package canonical

import (
	"fhrs-archive/internal/components/assert"
	"fhrs-archive/internal/components/telemetry"
	"fhrs-archive/internal/schema"
)

const (
	report_canonical_xml  = "canonicalizer.xml"
	report_canonical_json = "canonicalizer.json"
)

// DefaultPairedEmptyTags are written as <Tag></Tag> rather than <Tag/> when empty.
var DefaultPairedEmptyTags = []string{"Geocode", "Scores"}

type Canonicalizer struct {
	validator       *schema.Validator
	tel             telemetry.API
	pairedEmptyTags map[string]bool
}

// New returns a canonicalizer that validates JSON documents with validator. A nil
// pairedEmptyTags means DefaultPairedEmptyTags.
func New(validator *schema.Validator, tel telemetry.API, pairedEmptyTags []string) *Canonicalizer {
	assert.NotNil(validator)
	assert.NotNil(tel)

	if pairedEmptyTags == nil {
		pairedEmptyTags = DefaultPairedEmptyTags
	}
	paired := make(map[string]bool, len(pairedEmptyTags))
	for _, tag := range pairedEmptyTags {
		paired[tag] = true
	}

	return &Canonicalizer{
		validator:       validator,
		tel:             telemetry.NewScopedAPI("canonical", tel),
		pairedEmptyTags: paired,
	}
}

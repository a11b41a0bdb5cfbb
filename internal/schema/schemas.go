package schema

import (
	"fmt"
)

// Kind names a document shape the validator knows.
type Kind string

const (
	KindAuthorities    Kind = "authorities"
	KindEstablishments Kind = "establishments"
)

var Kinds = []Kind{KindAuthorities, KindEstablishments}

var regionNames = []string{
	"East Counties",
	"East Midlands",
	"London",
	"North East",
	"North West",
	"South East",
	"South West",
	"West Midlands",
	"Yorkshire and Humberside",
	"Northern Ireland",
	"Scotland",
	"Wales",
}

var (
	hygieneScores    = []float64{0, 5, 10, 15, 20, 25}
	structuralScores = []float64{0, 5, 10, 15, 20, 25}
	managementScores = []float64{0, 5, 10, 20, 30}
)

// builder assembles JSON Schema documents as plain maps. The first error wins, so rule
// tables can be written straight through and checked once at the end.
type builder struct {
	err error
}

func enumOf[T comparable](b *builder, rule string, values ...T) map[string]any {
	union, err := newLiteralUnion(rule, values...)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return map[string]any{}
	}
	return map[string]any{"enum": union.enum()}
}

func typed(types ...string) map[string]any {
	if len(types) == 1 {
		return map[string]any{"type": types[0]}
	}
	return map[string]any{"type": types}
}

// object never sets additionalProperties: unknown fields always pass through.
func object(required []string, properties map[string]any, types ...string) map[string]any {
	if len(types) == 0 {
		types = []string{"object"}
	}
	out := typed(types...)
	out["required"] = required
	out["properties"] = properties
	return out
}

func arrayOf(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func document(root map[string]any, defs map[string]any) map[string]any {
	root["$schema"] = "https://json-schema.org/draft/2020-12/schema"
	if defs != nil {
		root["$defs"] = defs
	}
	return root
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/$defs/" + name}
}

func authoritiesSchema(b *builder) map[string]any {
	authority := object(
		[]string{"LocalAuthorityId", "LocalAuthorityIdCode", "Name", "RegionName", "FileName", "FileNameWelsh"},
		map[string]any{
			"LocalAuthorityId":     typed("integer"),
			"LocalAuthorityIdCode": typed("string"),
			"Name":                 typed("string"),
			"FriendlyName":         typed("string"),
			"Url":                  typed("string"),
			"SchemeUrl":            typed("string"),
			"Email":                typed("string"),
			"RegionName":           enumOf(b, "RegionName", regionNames...),
			"FileName":             typed("string"),
			"FileNameWelsh":        typed("string", "null"),
			"EstablishmentCount":   typed("integer"),
			"CreationDate":         typed("string"),
			"LastPublishedDate":    typed("string"),
			"SchemeType":           typed("integer"),
		},
	)

	return document(
		object([]string{"authorities"}, map[string]any{
			"authorities": arrayOf(ref("authority")),
		}),
		map[string]any{"authority": authority},
	)
}

func establishmentsSchema(b *builder) map[string]any {
	scores := object(
		[]string{"Hygiene", "Structural", "ConfidenceInManagement"},
		map[string]any{
			"Hygiene":                enumOf(b, "Scores.Hygiene", hygieneScores...),
			"Structural":             enumOf(b, "Scores.Structural", structuralScores...),
			"ConfidenceInManagement": enumOf(b, "Scores.ConfidenceInManagement", managementScores...),
		},
		"object", "null",
	)

	geocode := object(
		[]string{"Longitude", "Latitude"},
		map[string]any{
			"Longitude": typed("string", "number"),
			"Latitude":  typed("string", "number"),
		},
		"object", "null",
	)

	establishment := object(
		[]string{
			"FHRSID",
			"LocalAuthorityBusinessID",
			"BusinessName",
			"BusinessType",
			"RatingValue",
			"RatingKey",
			"RatingDate",
			"Scores",
			"SchemeType",
			"Geocode",
		},
		map[string]any{
			"FHRSID":                   typed("integer"),
			"LocalAuthorityBusinessID": typed("string"),
			"BusinessName":             typed("string"),
			"BusinessType":             typed("string"),
			"BusinessTypeID":           typed("integer"),
			"AddressLine1":             typed("string"),
			"AddressLine2":             typed("string"),
			"AddressLine3":             typed("string"),
			"AddressLine4":             typed("string"),
			"PostCode":                 typed("string"),
			"RatingValue":              typed("string"),
			"RatingKey":                typed("string"),
			"RatingDate":               typed("string", "null"),
			"LocalAuthorityCode":       typed("string"),
			"LocalAuthorityName":       typed("string"),
			"Scores":                   ref("scores"),
			"SchemeType":               enumOf(b, "SchemeType", string(FHRS), string(FHIS)),
			"NewRatingPending":         typed("boolean"),
			"Geocode":                  ref("geocode"),
		},
	)

	header := object(
		[]string{"ExtractDate", "ItemCount", "ReturnCode"},
		map[string]any{
			"ExtractDate": typed("string"),
			"ItemCount":   typed("integer"),
			"ReturnCode":  typed("string"),
		},
	)

	return document(
		object([]string{"FHRSEstablishment"}, map[string]any{
			"FHRSEstablishment": object(
				[]string{"Header", "EstablishmentCollection"},
				map[string]any{
					"Header":                  header,
					"EstablishmentCollection": arrayOf(ref("establishment")),
				},
			),
		}),
		map[string]any{
			"establishment": establishment,
			"scores":        scores,
			"geocode":       geocode,
		},
	)
}

func schemaDocuments() (map[Kind]map[string]any, error) {
	b := &builder{}
	docs := map[Kind]map[string]any{
		KindAuthorities:    authoritiesSchema(b),
		KindEstablishments: establishmentsSchema(b),
	}
	if b.err != nil {
		return nil, fmt.Errorf("build schemas: %w", b.err)
	}
	return docs, nil
}

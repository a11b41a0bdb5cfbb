package schema

import (
	"fmt"
)

type Scheme string

const (
	FHRS Scheme = "FHRS"
	FHIS Scheme = "FHIS"
)

// NeverRated is legal under both schemes and always carries null date and scores.
const NeverRated = "never"

type nullability int

const (
	// mustBeNull: the field is present and null
	mustBeNull nullability = iota
	// mayBeNull: the field is present and either null or of its structural type
	mayBeNull
)

// ratingState is one legal (RatingValue, RatingKey, RatingDate, Scores) shape.
type ratingState struct {
	keys   keyMatcher
	date   nullability
	scores nullability
}

// KeyRegistry lists, per scheme and rating value, the RatingKey strings the upstream
// publishes for it. FHRS values carry an English and a Welsh key, FHIS values a single one.
type KeyRegistry map[Scheme]map[string][]string

var DefaultKeyRegistry = KeyRegistry{
	FHRS: {
		"5":                   {"fhrs_5_en-gb", "fhrs_5_cy-gb"},
		"4":                   {"fhrs_4_en-gb", "fhrs_4_cy-gb"},
		"3":                   {"fhrs_3_en-gb", "fhrs_3_cy-gb"},
		"2":                   {"fhrs_2_en-gb", "fhrs_2_cy-gb"},
		"1":                   {"fhrs_1_en-gb", "fhrs_1_cy-gb"},
		"0":                   {"fhrs_0_en-gb", "fhrs_0_cy-gb"},
		"AwaitingInspection":  {"fhrs_awaitinginspection_en-gb", "fhrs_awaitinginspection_cy-gb"},
		"AwaitingPublication": {"fhrs_awaitingpublication_en-gb", "fhrs_awaitingpublication_cy-gb"},
		"Exempt":              {"fhrs_exempt_en-gb", "fhrs_exempt_cy-gb"},
	},
	FHIS: {
		"Pass":                 {"fhis_pass_en-gb"},
		"Pass and Eat Safe":    {"fhis_pass_and_eat_safe_en-gb"},
		"Improvement Required": {"fhis_improvement_required_en-gb"},
		"Exempt":               {"fhis_exempt_en-gb"},
		"Awaiting Inspection":  {"fhis_awaiting_inspection_en-gb"},
		"Awaiting Publication": {"fhis_awaiting_publication_en-gb"},
	},
}

var scoredFHRSValues = map[string]bool{"5": true, "4": true, "3": true, "2": true, "1": true, "0": true}

type ratingTable map[Scheme]map[string]ratingState

var neverState = ratingState{keys: freeForm{}, date: mustBeNull, scores: mustBeNull}

func newRatingTable(registry KeyRegistry) (ratingTable, error) {
	table := ratingTable{}

	for _, scheme := range []Scheme{FHRS, FHIS} {
		values, ok := registry[scheme]
		if !ok || len(values) == 0 {
			return nil, &ConfigError{Rule: string(scheme), Msg: "no rating values registered"}
		}
		states := make(map[string]ratingState, len(values))
		for value, keys := range values {
			rule := fmt.Sprintf("%s rating %q", scheme, value)
			if value == NeverRated {
				return nil, &ConfigError{Rule: rule, Msg: "never is shared by both schemes and cannot be registered"}
			}

			var state ratingState
			switch scheme {
			case FHRS:
				union, err := newLiteralUnion(rule, keys...)
				if err != nil {
					return nil, err
				}
				state.keys = union
				if scoredFHRSValues[value] {
					state.date = mayBeNull
					state.scores = mayBeNull
				} else {
					state.date = mustBeNull
					state.scores = mustBeNull
				}
			case FHIS:
				if len(keys) != 1 {
					return nil, &ConfigError{Rule: rule, Msg: fmt.Sprintf("expected one fixed key, got %d", len(keys))}
				}
				state.keys = singleLiteral(keys[0])
				state.date = mayBeNull
				state.scores = mustBeNull
			}
			states[value] = state
		}
		table[scheme] = states
	}

	return table, nil
}

// resolve picks the legal state for an establishment, keyed by SchemeType then RatingValue.
func (t ratingTable) resolve(scheme, value string) (ratingState, error) {
	if value == NeverRated {
		return neverState, nil
	}
	switch Scheme(scheme) {
	case FHRS, FHIS:
		state, ok := t[Scheme(scheme)][value]
		if !ok {
			return ratingState{}, fmt.Errorf("%q is not a %s rating value", value, scheme)
		}
		return state, nil
	default:
		return ratingState{}, fmt.Errorf("unknown scheme type %q", scheme)
	}
}

// check validates the rating block of one establishment object. path is the JSON pointer
// of the establishment.
func (t ratingTable) check(path string, establishment map[string]any) []Issue {
	scheme, schemeOk := establishment["SchemeType"].(string)
	value, valueOk := establishment["RatingValue"].(string)
	if !schemeOk || !valueOk {
		// structural schema reports missing or mistyped fields
		return nil
	}

	state, err := t.resolve(scheme, value)
	if err != nil {
		return []Issue{{Path: path + "/RatingValue", Message: err.Error()}}
	}

	var issues []Issue
	if key, ok := establishment["RatingKey"].(string); ok && !state.keys.match(key) {
		issues = append(issues, Issue{
			Path:    path + "/RatingKey",
			Message: fmt.Sprintf("%q is not legal for %s rating %q, expected %s", key, scheme, value, state.keys.describe()),
		})
	}
	if state.date == mustBeNull {
		if v, present := establishment["RatingDate"]; present && v != nil {
			issues = append(issues, Issue{
				Path:    path + "/RatingDate",
				Message: fmt.Sprintf("must be null for %s rating %q", scheme, value),
			})
		}
	}
	if state.scores == mustBeNull {
		if v, present := establishment["Scores"]; present && v != nil {
			issues = append(issues, Issue{
				Path:    path + "/Scores",
				Message: fmt.Sprintf("must be null for %s rating %q", scheme, value),
			})
		}
	}
	return issues
}

// Package schema is the structural gate every upstream document passes before it is
// rewritten. It checks shape, not meaning, and never mutates what it is given: callers
// rewrite from their own raw bytes, not from the value returned here.
package schema

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Issue is one structural mismatch, Path is a JSON pointer into the document.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	path := i.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s: %s", path, i.Message)
}

// Violation is returned for a well-formed document with the wrong shape.
type Violation struct {
	Kind   Kind
	Issues []Issue
}

func (v *Violation) Error() string {
	parts := make([]string, len(v.Issues))
	for i, issue := range v.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("%s: %d schema issue(s): %s", v.Kind, len(v.Issues), strings.Join(parts, "; "))
}

// ParseError is returned for a payload that is not JSON at all.
type ParseError struct {
	Kind Kind
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse: %s", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Validator struct {
	schemas map[Kind]*jsonschema.Schema
	ratings ratingTable
}

// NewValidator compiles every schema and rating table. Any error is a configuration
// error and should stop the process.
func NewValidator() (*Validator, error) {
	return newValidator(DefaultKeyRegistry)
}

func newValidator(registry KeyRegistry) (*Validator, error) {
	ratings, err := newRatingTable(registry)
	if err != nil {
		return nil, err
	}

	docs, err := schemaDocuments()
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	schemas := make(map[Kind]*jsonschema.Schema, len(docs))
	for kind, doc := range docs {
		encoded, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode %s schema: %w", kind, err)
		}
		url := fmt.Sprintf("https://fhrs-archive.local/schemas/%s.schema.json", kind)
		if err := compiler.AddResource(url, bytes.NewReader(encoded)); err != nil {
			return nil, fmt.Errorf("load %s schema: %w", kind, err)
		}
		compiled, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", kind, err)
		}
		schemas[kind] = compiled
	}

	return &Validator{schemas: schemas, ratings: ratings}, nil
}

// Validate checks payload against the schema of kind and returns the decoded document.
// Failures are *ParseError or *Violation.
func (v *Validator) Validate(kind Kind, payload []byte) (any, error) {
	compiled, ok := v.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("unknown schema kind %q", kind)
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, &ParseError{Kind: kind, Err: err}
	}

	var issues []Issue
	if err := compiled.Validate(doc); err != nil {
		validationErr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return nil, fmt.Errorf("%s: validate: %w", kind, err)
		}
		collectIssues(validationErr, &issues)
	}

	if kind == KindEstablishments {
		issues = append(issues, v.checkRatings(doc)...)
	}

	if len(issues) > 0 {
		slices.SortStableFunc(issues, func(a, b Issue) int {
			return cmp.Compare(a.Path, b.Path)
		})
		return doc, &Violation{Kind: kind, Issues: issues}
	}
	return doc, nil
}

// collectIssues flattens the error tree into its leaves, which carry the concrete messages.
func collectIssues(err *jsonschema.ValidationError, out *[]Issue) {
	if len(err.Causes) == 0 {
		*out = append(*out, Issue{Path: err.InstanceLocation, Message: err.Message})
		return
	}
	for _, cause := range err.Causes {
		collectIssues(cause, out)
	}
}

func (v *Validator) checkRatings(doc any) []Issue {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	envelope, ok := root["FHRSEstablishment"].(map[string]any)
	if !ok {
		return nil
	}
	collection, ok := envelope["EstablishmentCollection"].([]any)
	if !ok {
		return nil
	}

	var issues []Issue
	for i, item := range collection {
		establishment, ok := item.(map[string]any)
		if !ok {
			continue
		}
		path := "/FHRSEstablishment/EstablishmentCollection/" + strconv.Itoa(i)
		issues = append(issues, v.ratings.check(path, establishment)...)
	}
	return issues
}

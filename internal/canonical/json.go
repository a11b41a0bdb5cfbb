package canonical

import (
	"bytes"
	"fmt"
	"slices"

	"fhrs-archive/internal/schema"

	"github.com/buger/jsonparser"
	json "github.com/goccy/go-json"
)

var jsonCollectionPath = []string{"FHRSEstablishment", "EstablishmentCollection"}

var jsonLineBreaks = [][]byte{
	[]byte(`"Header":`),
	[]byte(`"EstablishmentCollection":`),
	[]byte(`{"FHRSID":`),
	[]byte(`]}}`),
}

type jsonRecord struct {
	id  string
	raw []byte
}

// JSON validates raw as an establishments document and returns it in canonical form.
// Values are carried over byte-for-byte, only the collection order and whitespace change.
func (c *Canonicalizer) JSON(raw string) (string, error) {
	_, err := c.validator.Validate(schema.KindEstablishments, []byte(raw))
	if err != nil {
		return "", err
	}

	var compact bytes.Buffer
	err = json.Compact(&compact, []byte(raw))
	if err != nil {
		return "", &schema.ParseError{Kind: schema.KindEstablishments, Err: err}
	}
	doc := compact.Bytes()

	var records []jsonRecord
	var iterErr error
	_, err = jsonparser.ArrayEach(doc, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil {
			iterErr = err
			return
		}
		id, _, _, _ := jsonparser.Get(value, "FHRSID")
		records = append(records, jsonRecord{id: string(id), raw: value})
	}, jsonCollectionPath...)
	if err == nil {
		err = iterErr
	}
	if err != nil {
		c.tel.ReportBroken(report_canonical_json, err)
		return "", fmt.Errorf("read establishment collection: %w", err)
	}

	slices.SortStableFunc(records, func(a, b jsonRecord) int {
		return compareIds(a.id, b.id)
	})

	array := make([]byte, 0, len(doc))
	array = append(array, '[')
	for i, rec := range records {
		if i > 0 {
			array = append(array, ',')
		}
		array = append(array, rec.raw...)
	}
	array = append(array, ']')

	doc, err = jsonparser.Set(doc, array, jsonCollectionPath...)
	if err != nil {
		c.tel.ReportBroken(report_canonical_json, err)
		return "", fmt.Errorf("write establishment collection: %w", err)
	}
	return string(breakLines(doc, jsonLineBreaks)), nil
}

// breakLines inserts a newline before every occurrence of a marker that starts outside a
// string literal. doc must be compact.
func breakLines(doc []byte, markers [][]byte) []byte {
	out := make([]byte, 0, len(doc)+len(doc)/64)
	inString := false
	escaped := false
	for i := 0; i < len(doc); i++ {
		ch := doc[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			out = append(out, ch)
			continue
		}
		for _, marker := range markers {
			if bytes.HasPrefix(doc[i:], marker) {
				out = append(out, '\n')
				break
			}
		}
		if ch == '"' {
			inString = true
		}
		out = append(out, ch)
	}
	return out
}

package canonical

import (
	"fmt"
	"slices"
	"strings"

	"github.com/beevik/etree"
)

const xmlCollectionPath = "FHRSEstablishment/EstablishmentCollection"

var xmlLineBreaks = []string{
	"<Header>",
	"<EstablishmentCollection>",
	"</EstablishmentCollection>",
	"<EstablishmentDetail>",
}

// XML returns raw in canonical form. It never fails: a document that cannot be parsed or
// rebuilt is returned unchanged.
func (c *Canonicalizer) XML(raw string) string {
	out, err := c.TryXML(raw)
	if err != nil {
		c.tel.ReportWarning(report_canonical_xml, err)
		return raw
	}
	return out
}

// TryXML is XML for callers that handle the fallback themselves.
func (c *Canonicalizer) TryXML(raw string) (string, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true

	err := doc.ReadFromString(raw)
	if err != nil {
		return "", fmt.Errorf("parse: %w", err)
	}
	if doc.Root() == nil {
		return "", fmt.Errorf("parse: document has no root element")
	}

	stripWhitespace(&doc.Element)

	collection := doc.FindElement(xmlCollectionPath)
	if collection != nil {
		sortDetails(collection)
	}
	c.pairEmptyTags(&doc.Element)

	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	for _, marker := range xmlLineBreaks {
		out = strings.ReplaceAll(out, marker, "\n"+marker)
	}
	return out, nil
}

// stripWhitespace drops whitespace-only text, which covers both indentation and blank
// element bodies.
func stripWhitespace(e *etree.Element) {
	for i := len(e.Child) - 1; i >= 0; i-- {
		switch tok := e.Child[i].(type) {
		case *etree.CharData:
			if tok.IsWhitespace() {
				e.RemoveChildAt(i)
			}
		case *etree.Element:
			stripWhitespace(tok)
		}
	}
}

// sortDetails reorders the EstablishmentDetail children of collection in place. Any other
// child keeps its slot.
func sortDetails(collection *etree.Element) {
	children := slices.Clone(collection.Child)

	var details []*etree.Element
	for _, tok := range children {
		if el, ok := tok.(*etree.Element); ok && el.Tag == "EstablishmentDetail" {
			details = append(details, el)
		}
	}
	if len(details) < 2 {
		return
	}
	slices.SortStableFunc(details, func(a, b *etree.Element) int {
		return compareIds(detailId(a), detailId(b))
	})

	for len(collection.Child) > 0 {
		collection.RemoveChildAt(len(collection.Child) - 1)
	}
	next := 0
	for _, tok := range children {
		if el, ok := tok.(*etree.Element); ok && el.Tag == "EstablishmentDetail" {
			collection.AddChild(details[next])
			next++
			continue
		}
		collection.AddChild(tok)
	}
}

func detailId(detail *etree.Element) string {
	id := detail.SelectElement("FHRSID")
	if id == nil {
		return ""
	}
	return id.Text()
}

func (c *Canonicalizer) pairEmptyTags(e *etree.Element) {
	for _, child := range e.ChildElements() {
		if len(child.Child) == 0 && c.pairedEmptyTags[child.Tag] {
			child.AddChild(etree.NewText(""))
			continue
		}
		c.pairEmptyTags(child)
	}
}

package fhrs

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/goccy/go-json"
)

// Authority is the part of an authorities dataset entry the archive acts on. Other fields
// in the dataset are left to the stored reference file.
type Authority struct {
	LocalAuthorityId     int     `json:"LocalAuthorityId"`
	LocalAuthorityIdCode string  `json:"LocalAuthorityIdCode"`
	Name                 string  `json:"Name"`
	RegionName           string  `json:"RegionName"`
	FileName             string  `json:"FileName"`
	FileNameWelsh        *string `json:"FileNameWelsh"`
	EstablishmentCount   int     `json:"EstablishmentCount"`
}

// ParseAuthorities decodes an already validated authorities dataset.
func ParseAuthorities(raw []byte) ([]Authority, error) {
	var dataset struct {
		Authorities []Authority `json:"authorities"`
	}
	err := json.Unmarshal(raw, &dataset)
	if err != nil {
		return nil, fmt.Errorf("parse authorities: %w", err)
	}
	return dataset.Authorities, nil
}

// DocumentRef is one establishment document to fetch for an authority.
type DocumentRef struct {
	Url      string
	Format   Format
	Language Language
	// Name is the output file name without extension, taken from the last path
	// segment of Url.
	Name string
}

// FileName is the name the document is stored under.
func (d DocumentRef) FileName() string {
	return fmt.Sprintf("%s.%s", d.Name, d.Format)
}

// Documents lists the documents of an authority: the English XML file and its JSON
// sibling, plus the Welsh pair when the authority publishes one.
func (a Authority) Documents() []DocumentRef {
	docs := documentPair(a.FileName, English)
	if a.FileNameWelsh != nil && *a.FileNameWelsh != "" {
		docs = append(docs, documentPair(*a.FileNameWelsh, Welsh)...)
	}
	return docs
}

func documentPair(xmlUrl string, lang Language) []DocumentRef {
	name := documentName(xmlUrl)
	docs := []DocumentRef{{Url: xmlUrl, Format: XML, Language: lang, Name: name}}
	if sibling, ok := JSONSibling(xmlUrl); ok {
		docs = append(docs, DocumentRef{Url: sibling, Format: JSON, Language: lang, Name: name})
	}
	return docs
}

// JSONSibling derives the JSON document URL by replacing a `.xml` suffix with `.json`.
func JSONSibling(xmlUrl string) (string, bool) {
	trimmed, found := strings.CutSuffix(xmlUrl, ".xml")
	if !found {
		return "", false
	}
	return trimmed + ".json", true
}

func documentName(rawUrl string) string {
	p := rawUrl
	if parsed, err := url.Parse(rawUrl); err == nil && parsed.Path != "" {
		p = parsed.Path
	}
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

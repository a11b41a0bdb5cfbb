package fhrs

// Language selects the content language the upstream answers in.
type Language string

const (
	English Language = "en-GB"
	Welsh   Language = "cy-GB"
)

var Languages = []Language{English, Welsh}

// Format selects the document encoding through content negotiation.
type Format string

const (
	JSON Format = "json"
	XML  Format = "xml"
)

var Formats = []Format{JSON, XML}

func (f Format) accept() string {
	switch f {
	case XML:
		return "application/xml"
	default:
		return "application/json"
	}
}

// Dataset is one of the reference datasets published by the ratings API.
type Dataset string

const (
	Authorities      Dataset = "authorities"
	BusinessTypes    Dataset = "businesstypes"
	Countries        Dataset = "countries"
	Ratings          Dataset = "ratings"
	Regions          Dataset = "regions"
	SchemeTypes      Dataset = "schemetypes"
	ScoreDescriptors Dataset = "scoredescriptors"
)

var Datasets = []Dataset{
	Authorities,
	BusinessTypes,
	Countries,
	Ratings,
	Regions,
	SchemeTypes,
	ScoreDescriptors,
}

var datasetPaths = map[Dataset]string{
	Authorities:      "/Authorities",
	BusinessTypes:    "/BusinessTypes",
	Countries:        "/Countries",
	Ratings:          "/Ratings",
	Regions:          "/Regions",
	SchemeTypes:      "/SchemeTypes",
	ScoreDescriptors: "/ScoreDescriptors",
}

// RequestOptions picks the negotiated representation of a request.
// The zero value asks for English JSON.
type RequestOptions struct {
	Language Language
	Format   Format
}

func (o RequestOptions) withDefaults() RequestOptions {
	if o.Language == "" {
		o.Language = English
	}
	if o.Format == "" {
		o.Format = JSON
	}
	return o
}

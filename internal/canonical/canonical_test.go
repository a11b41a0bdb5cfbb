package canonical

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"fhrs-archive/internal/components/telemetry"
	"fhrs-archive/internal/schema"

	"github.com/stretchr/testify/require"
)

func newTestCanonicalizer(t testing.TB) (*Canonicalizer, *telemetry.TestingAPI) {
	validator, err := schema.NewValidator()
	require.NoError(t, err)
	tel := telemetry.NewTestingAPI()
	return New(validator, tel, nil), tel
}

func TestCompareIds(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"7", "30", -1},
		{"30", "7", 1},
		{"12", "12", 0},
		{" 12", "12", 0},
		{"1.5", "2", -1},
		{"x", "1", 1},
		{"1", "", -1},
		{"x", "y", 0},
		{"NaN", "1", 1},
	}
	for _, c := range cases {
		require.Equal(t, c.want, compareIds(c.a, c.b), "compareIds(%q, %q)", c.a, c.b)
	}
}

func TestNewDefaultsPairedTags(t *testing.T) {
	c, _ := newTestCanonicalizer(t)
	for _, tag := range DefaultPairedEmptyTags {
		require.True(t, c.pairedEmptyTags[tag], tag)
	}

	validator, err := schema.NewValidator()
	require.NoError(t, err)
	custom := New(validator, telemetry.NewTestingAPI(), []string{})
	require.Empty(t, custom.pairedEmptyTags)
}

func jsonRecordText(id, name string) string {
	return fmt.Sprintf(
		`{"FHRSID":%s,"LocalAuthorityBusinessID":"PI/%s","BusinessName":%q,"BusinessType":"Retailers - other",`+
			`"RatingValue":"5","RatingKey":"fhrs_5_en-gb","RatingDate":"2023-04-05",`+
			`"Scores":{"Hygiene":0,"Structural":5,"ConfidenceInManagement":5},"SchemeType":"FHRS","Geocode":null}`,
		id, id, name,
	)
}

func jsonDocument(records ...string) string {
	var sb strings.Builder
	sb.WriteString("{\n  \"FHRSEstablishment\": {\n")
	sb.WriteString(`    "Header": {"ExtractDate": "2024-05-01", "ItemCount": `)
	sb.WriteString(strconv.Itoa(len(records)))
	sb.WriteString(", \"ReturnCode\": \"Success\"},\n")
	sb.WriteString("    \"EstablishmentCollection\": [\n      ")
	sb.WriteString(strings.Join(records, ",\n      "))
	sb.WriteString("\n    ]\n  }\n}\n")
	return sb.String()
}

func TestJSONLayout(t *testing.T) {
	c, _ := newTestCanonicalizer(t)

	late := jsonRecordText("30", `Odd ]}} "Header": name`)
	early := jsonRecordText("7", "Ali's")

	out, err := c.JSON(jsonDocument(late, early))
	require.NoError(t, err)

	want := `{"FHRSEstablishment":{` + "\n" +
		`"Header":{"ExtractDate":"2024-05-01","ItemCount":2,"ReturnCode":"Success"},` + "\n" +
		`"EstablishmentCollection":[` + "\n" +
		early + ",\n" +
		late + "\n" +
		`]}}`
	require.Equal(t, want, out)
}

func TestJSONIsIdempotent(t *testing.T) {
	c, _ := newTestCanonicalizer(t)

	once, err := c.JSON(jsonDocument(jsonRecordText("3", "c"), jsonRecordText("1", "a"), jsonRecordText("2", "b")))
	require.NoError(t, err)
	twice, err := c.JSON(once)
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestJSONEmptyCollection(t *testing.T) {
	c, _ := newTestCanonicalizer(t)

	out, err := c.JSON(jsonDocument())
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(out, `"EstablishmentCollection":[`+"\n"+`]}}`), out)
}

func TestJSONRejectsInvalidDocuments(t *testing.T) {
	c, _ := newTestCanonicalizer(t)

	bad := strings.Replace(jsonRecordText("1", "a"), "fhrs_5_en-gb", "fhrs_4_en-gb", 1)
	_, err := c.JSON(jsonDocument(bad))
	var violation *schema.Violation
	require.ErrorAs(t, err, &violation)
	require.Equal(t, schema.KindEstablishments, violation.Kind)

	_, err = c.JSON(`{"FHRSEstablishment":`)
	var parseErr *schema.ParseError
	require.ErrorAs(t, err, &parseErr)
}

const xmlInput = `<?xml version="1.0" encoding="utf-8"?>
<FHRSEstablishment>
  <Header>
    <ExtractDate>2024-05-01</ExtractDate>
  </Header>
  <EstablishmentCollection>
    <EstablishmentDetail>
      <FHRSID>30</FHRSID>
      <BusinessName>Bob's Fish &amp; Chips</BusinessName>
      <AddressLine2> </AddressLine2>
      <Scores />
    </EstablishmentDetail>
    <EstablishmentDetail>
      <FHRSID>7</FHRSID>
      <BusinessName>Ali's</BusinessName>
      <Geocode><Longitude>-3.1</Longitude></Geocode>
    </EstablishmentDetail>
  </EstablishmentCollection>
</FHRSEstablishment>
`

func TestXMLLayout(t *testing.T) {
	c, tel := newTestCanonicalizer(t)

	want := `<?xml version="1.0" encoding="utf-8"?><FHRSEstablishment>` + "\n" +
		`<Header><ExtractDate>2024-05-01</ExtractDate></Header>` + "\n" +
		`<EstablishmentCollection>` + "\n" +
		`<EstablishmentDetail><FHRSID>7</FHRSID><BusinessName>Ali's</BusinessName><Geocode><Longitude>-3.1</Longitude></Geocode></EstablishmentDetail>` + "\n" +
		`<EstablishmentDetail><FHRSID>30</FHRSID><BusinessName>Bob's Fish &amp; Chips</BusinessName><AddressLine2/><Scores></Scores></EstablishmentDetail>` + "\n" +
		`</EstablishmentCollection></FHRSEstablishment>`

	out := c.XML(xmlInput)
	require.Equal(t, want, out)
	require.Equal(t, out, c.XML(out))
	require.Empty(t, tel.Reports("warning"))
}

func TestXMLSingleEstablishment(t *testing.T) {
	c, _ := newTestCanonicalizer(t)

	in := `<FHRSEstablishment><EstablishmentCollection><EstablishmentDetail><FHRSID>5</FHRSID></EstablishmentDetail></EstablishmentCollection></FHRSEstablishment>`
	want := "<FHRSEstablishment>\n<EstablishmentCollection>\n<EstablishmentDetail><FHRSID>5</FHRSID></EstablishmentDetail>\n</EstablishmentCollection></FHRSEstablishment>"
	require.Equal(t, want, c.XML(in))
}

func TestXMLUnparseableIdsSortLast(t *testing.T) {
	c, _ := newTestCanonicalizer(t)

	in := `<FHRSEstablishment><EstablishmentCollection>` +
		`<EstablishmentDetail><FHRSID>n/a</FHRSID><Seq>0</Seq></EstablishmentDetail>` +
		`<EstablishmentDetail><FHRSID>9</FHRSID><Seq>1</Seq></EstablishmentDetail>` +
		`<EstablishmentDetail><Seq>2</Seq></EstablishmentDetail>` +
		`<EstablishmentDetail><FHRSID>2</FHRSID><Seq>3</Seq></EstablishmentDetail>` +
		`</EstablishmentCollection></FHRSEstablishment>`

	require.Equal(t, []string{"3", "1", "0", "2"}, xmlSeqs(t, c.XML(in)))
}

func TestXMLFallsBackToRaw(t *testing.T) {
	for _, in := range []string{"", "not xml at all", `<FHRSEstablishment attr=unquoted>`} {
		c, tel := newTestCanonicalizer(t)
		require.Equal(t, in, c.XML(in))
		require.True(t, tel.HasReport("warning", report_canonical_xml), "input %q", in)
	}
}

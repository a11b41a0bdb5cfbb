package fhrs

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const authoritiesFixture = `{
  "authorities": [
    {
      "LocalAuthorityId": 197,
      "LocalAuthorityIdCode": "760",
      "Name": "Aberdeen City",
      "RegionName": "Scotland",
      "FileName": "http://ratings.food.gov.uk/OpenDataFiles/FHRS760en-GB.xml",
      "FileNameWelsh": null,
      "EstablishmentCount": 1883,
      "SchemeType": 2
    },
    {
      "LocalAuthorityId": 291,
      "LocalAuthorityIdCode": "551",
      "Name": "Cardiff",
      "RegionName": "Wales",
      "FileName": "http://ratings.food.gov.uk/OpenDataFiles/FHRS551en-GB.xml",
      "FileNameWelsh": "http://ratings.food.gov.uk/OpenDataFiles/FHRS551cy-GB.xml",
      "EstablishmentCount": 3011,
      "SchemeType": 1
    }
  ],
  "meta": {"itemCount": 2}
}`

func TestParseAuthorities(t *testing.T) {
	authorities, err := ParseAuthorities([]byte(authoritiesFixture))
	require.NoError(t, err)
	require.Len(t, authorities, 2)
	require.Equal(t, "760", authorities[0].LocalAuthorityIdCode)
	require.Nil(t, authorities[0].FileNameWelsh)
	require.NotNil(t, authorities[1].FileNameWelsh)

	_, err = ParseAuthorities([]byte(`{"authorities": 4}`))
	require.Error(t, err)
}

func TestAuthorityDocuments(t *testing.T) {
	authorities, err := ParseAuthorities([]byte(authoritiesFixture))
	require.NoError(t, err)

	english := authorities[0].Documents()
	expected := []DocumentRef{
		{Url: "http://ratings.food.gov.uk/OpenDataFiles/FHRS760en-GB.xml", Format: XML, Language: English, Name: "FHRS760en-GB"},
		{Url: "http://ratings.food.gov.uk/OpenDataFiles/FHRS760en-GB.json", Format: JSON, Language: English, Name: "FHRS760en-GB"},
	}
	if diff := cmp.Diff(expected, english); diff != "" {
		t.Fatalf("documents mismatch (-want +got):\n%s", diff)
	}

	welsh := authorities[1].Documents()
	require.Len(t, welsh, 4)
	require.Equal(t, "FHRS551cy-GB.json", welsh[3].FileName())
	require.Equal(t, Welsh, welsh[3].Language)
}

func TestJSONSibling(t *testing.T) {
	sibling, ok := JSONSibling("https://host/files/123.xml")
	require.True(t, ok)
	require.Equal(t, "https://host/files/123.json", sibling)

	_, ok = JSONSibling("https://host/files/123.csv")
	require.False(t, ok)
}

package canonical

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/beevik/etree"
	json "github.com/goccy/go-json"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func xmlSeqs(t testing.TB, out string) []string {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(out))

	var seqs []string
	for _, detail := range doc.FindElements("//EstablishmentDetail") {
		seqs = append(seqs, detail.SelectElement("Seq").Text())
	}
	return seqs
}

func xmlDocument(ids []int) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n<FHRSEstablishment>\n  <Header><ItemCount>")
	sb.WriteString(strconv.Itoa(len(ids)))
	sb.WriteString("</ItemCount></Header>\n  <EstablishmentCollection>\n")
	for seq, id := range ids {
		fhrsid := strconv.Itoa(id)
		if id < 0 {
			fhrsid = "pending"
		}
		fmt.Fprintf(&sb, "    <EstablishmentDetail>\n      <FHRSID>%s</FHRSID>\n      <Seq>%d</Seq>\n      <Geocode />\n    </EstablishmentDetail>\n", fhrsid, seq)
	}
	sb.WriteString("  </EstablishmentCollection>\n</FHRSEstablishment>\n")
	return sb.String()
}

// expectedOrder is the stable order the canonicalizer must produce for ids, negative ids
// standing in for unparseable ones.
func expectedOrder(ids []int) []int {
	seqs := make([]int, len(ids))
	for i := range seqs {
		seqs[i] = i
	}
	slices.SortStableFunc(seqs, func(a, b int) int {
		ia, ib := ids[a], ids[b]
		switch {
		case ia < 0 && ib < 0:
			return 0
		case ia < 0:
			return 1
		case ib < 0:
			return -1
		}
		return ia - ib
	})
	return seqs
}

func properties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 60
	return gopter.NewProperties(parameters)
}

func TestXMLProperties(t *testing.T) {
	c, _ := newTestCanonicalizer(t)
	ids := gen.SliceOf(gen.IntRange(-1, 25))

	props := properties()
	props.Property("sorted stably by FHRSID", prop.ForAll(func(ids []int) bool {
		var want []string
		for _, seq := range expectedOrder(ids) {
			want = append(want, strconv.Itoa(seq))
		}
		return slices.Equal(want, xmlSeqs(t, c.XML(xmlDocument(ids))))
	}, ids))
	props.Property("idempotent", prop.ForAll(func(ids []int) bool {
		once := c.XML(xmlDocument(ids))
		return once == c.XML(once)
	}, ids))
	props.Property("one establishment per line", prop.ForAll(func(ids []int) bool {
		lines := strings.Split(c.XML(xmlDocument(ids)), "\n")
		details := 0
		for _, line := range lines {
			if strings.HasPrefix(line, "<EstablishmentDetail>") {
				details++
				if !strings.HasSuffix(line, "</EstablishmentDetail>") {
					return false
				}
			}
		}
		return details == len(ids)
	}, ids))
	props.TestingRun(t)
}

type parsedCollection struct {
	FHRSEstablishment struct {
		EstablishmentCollection []struct {
			FHRSID       int
			BusinessName string
		}
	}
}

func TestJSONProperties(t *testing.T) {
	c, _ := newTestCanonicalizer(t)
	ids := gen.SliceOf(gen.IntRange(1, 25))

	build := func(ids []int) ([]string, string) {
		records := make([]string, len(ids))
		for seq, id := range ids {
			records[seq] = jsonRecordText(strconv.Itoa(id), "seq "+strconv.Itoa(seq))
		}
		return records, jsonDocument(records...)
	}

	props := properties()
	props.Property("sorted stably by FHRSID", prop.ForAll(func(ids []int) bool {
		_, doc := build(ids)
		out, err := c.JSON(doc)
		if err != nil {
			return false
		}
		var parsed parsedCollection
		if err := json.Unmarshal([]byte(out), &parsed); err != nil {
			return false
		}
		var got, want []string
		for _, e := range parsed.FHRSEstablishment.EstablishmentCollection {
			got = append(got, e.BusinessName)
		}
		for _, seq := range expectedOrder(ids) {
			want = append(want, "seq "+strconv.Itoa(seq))
		}
		return slices.Equal(want, got)
	}, ids))
	props.Property("records preserved byte for byte", prop.ForAll(func(ids []int) bool {
		records, doc := build(ids)
		out, err := c.JSON(doc)
		if err != nil {
			return false
		}
		var lines []string
		for _, line := range strings.Split(out, "\n") {
			if strings.HasPrefix(line, `{"FHRSID":`) {
				lines = append(lines, strings.TrimSuffix(line, ","))
			}
		}
		slices.Sort(lines)
		want := slices.Clone(records)
		slices.Sort(want)
		return slices.Equal(want, lines)
	}, ids))
	props.Property("idempotent", prop.ForAll(func(ids []int) bool {
		_, doc := build(ids)
		once, err := c.JSON(doc)
		if err != nil {
			return false
		}
		twice, err := c.JSON(once)
		return err == nil && once == twice
	}, ids))
	props.TestingRun(t)
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package grobid

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/pdiddy/files-processor/pkg/types"
)

// teiDoc captures the header fields we map. Element names match in any
// namespace, which covers both namespaced and bare TEI output.
type teiDoc struct {
	Header struct {
		FileDesc struct {
			Titles  []teiTitle  `xml:"titleStmt>title"`
			Authors []teiAuthor `xml:"sourceDesc>biblStruct>analytic>author"`
		} `xml:"fileDesc"`
		ProfileDesc struct {
			Keywords *teiKeywords `xml:"textClass>keywords"`
			Abstract *textContent `xml:"abstract"`
		} `xml:"profileDesc"`
	} `xml:"teiHeader"`
}

type teiTitle struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

type teiAuthor struct {
	PersName *struct {
		Forenames []string `xml:"forename"`
		Surname   string   `xml:"surname"`
	} `xml:"persName"`
	Affiliations []teiAffiliation `xml:"affiliation"`
}

type teiAffiliation struct {
	OrgNames []string `xml:"orgName"`
	Address  struct {
		Settlement string `xml:"settlement"`
		Country    string `xml:"country"`
	} `xml:"address"`
}

type teiKeywords struct {
	Terms []textContent `xml:"term"`
	Raw   string        `xml:",chardata"`
}

// textContent collects all character data below an element, joining
// block-level children with single spaces.
type textContent string

func (t *textContent) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			depth++
			b.WriteByte(' ')
		case xml.EndElement:
			depth--
			b.WriteByte(' ')
		case xml.CharData:
			b.Write(tok)
		}
	}
	*t = textContent(collapseSpace(b.String()))
	return nil
}

// ParseTEI maps a GROBID TEI document onto an ExtractedDocument. Fields
// missing from the TEI stay empty; Keywords and Authors stay nil.
func ParseTEI(data []byte) (types.ExtractedDocument, error) {
	var tei teiDoc
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&tei); err != nil {
		return types.ExtractedDocument{}, fmt.Errorf("parsing TEI: %w", err)
	}

	fd := tei.Header.FileDesc
	pd := tei.Header.ProfileDesc
	doc := types.ExtractedDocument{
		Title: mainTitle(fd.Titles),
	}
	if pd.Abstract != nil {
		doc.Abstract = string(*pd.Abstract)
	}
	if pd.Keywords != nil {
		doc.Keywords = keywords(pd.Keywords)
	}
	for _, a := range fd.Authors {
		name := authorName(a)
		if name == "" {
			continue
		}
		author := types.Author{Name: name, Affiliations: []types.Affiliation{}}
		for _, aff := range a.Affiliations {
			if v := affiliationValue(aff); v != "" {
				author.Affiliations = append(author.Affiliations, types.Affiliation{Value: v})
			}
		}
		doc.Authors = append(doc.Authors, author)
	}
	return doc, nil
}

// mainTitle prefers the title typed "main", then the first non-empty one.
func mainTitle(titles []teiTitle) string {
	var first string
	for _, t := range titles {
		text := collapseSpace(t.Text)
		if text == "" {
			continue
		}
		if t.Type == "main" {
			return text
		}
		if first == "" {
			first = text
		}
	}
	return first
}

func keywords(k *teiKeywords) []types.Keyword {
	out := []types.Keyword{}
	for _, term := range k.Terms {
		if term != "" {
			out = append(out, types.Keyword{Value: string(term)})
		}
	}
	if len(out) > 0 {
		return out
	}
	// Some GROBID versions emit the keyword line as plain text.
	for _, part := range strings.FieldsFunc(k.Raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if v := collapseSpace(part); v != "" {
			out = append(out, types.Keyword{Value: v})
		}
	}
	return out
}

// authorName renders "Surname, Forename Middle", or whichever part exists.
func authorName(a teiAuthor) string {
	if a.PersName == nil {
		return ""
	}
	surname := collapseSpace(a.PersName.Surname)
	var given []string
	for _, f := range a.PersName.Forenames {
		if f = collapseSpace(f); f != "" {
			given = append(given, f)
		}
	}
	forenames := strings.Join(given, " ")
	switch {
	case surname != "" && forenames != "":
		return surname + ", " + forenames
	case surname != "":
		return surname
	default:
		return forenames
	}
}

func affiliationValue(aff teiAffiliation) string {
	var parts []string
	for _, o := range aff.OrgNames {
		if o = collapseSpace(o); o != "" {
			parts = append(parts, o)
		}
	}
	for _, p := range []string{aff.Address.Settlement, aff.Address.Country} {
		if p = collapseSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "encoding/json"

// Keyword is a single keyword term from the document header.
type Keyword struct {
	Value string `json:"value" yaml:"value"`
}

// Affiliation is one affiliation of an author, flattened to a single line.
type Affiliation struct {
	Value string `json:"value" yaml:"value"`
}

// Author is a document author with affiliations in document order.
type Author struct {
	Name         string        `json:"name" yaml:"name"`
	Affiliations []Affiliation `json:"affiliations" yaml:"affiliations"`
}

// ExtractedDocument is the structured representation of a PDF returned by
// the structured-extraction service. Nil slices mean the field was absent.
type ExtractedDocument struct {
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Abstract string    `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Keywords []Keyword `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Authors  []Author  `json:"authors,omitempty" yaml:"authors,omitempty"`
}

// ProjectInfo is the mining service response, carried through verbatim.
type ProjectInfo = json.RawMessage

// Creator is an author as it appears in the metadata record.
type Creator struct {
	Name        string `json:"name" yaml:"name"`
	Affiliation string `json:"affiliation" yaml:"affiliation"`
}

// MetadataRecord is the normalized output of a processor. Every field is
// always serialized; absent values encode as "" or null.
type MetadataRecord struct {
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Keywords    []string    `json:"keywords" yaml:"keywords"`
	Creators    []Creator   `json:"creators" yaml:"creators"`
	ProjectInfo ProjectInfo `json:"project_info" yaml:"project_info"`
}

// NewMetadataRecord maps an extracted document and project info onto a
// record. Keywords and creators stay nil when the document has none.
func NewMetadataRecord(doc ExtractedDocument, info ProjectInfo) *MetadataRecord {
	rec := &MetadataRecord{
		Title:       doc.Title,
		Description: doc.Abstract,
		ProjectInfo: info,
	}
	if doc.Keywords != nil {
		rec.Keywords = make([]string, 0, len(doc.Keywords))
		for _, k := range doc.Keywords {
			rec.Keywords = append(rec.Keywords, k.Value)
		}
	}
	if doc.Authors != nil {
		rec.Creators = make([]Creator, 0, len(doc.Authors))
		for _, a := range doc.Authors {
			c := Creator{Name: a.Name}
			if len(a.Affiliations) > 0 {
				c.Affiliation = a.Affiliations[0].Value
			}
			rec.Creators = append(rec.Creators, c)
		}
	}
	return rec
}

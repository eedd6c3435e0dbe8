package domain

import (
	"fmt"
	"strings"
)

// LiteratureRecord is one article returned by the literature search provider.
type LiteratureRecord struct {
	PMID      string   `json:"pmid"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Chemicals []string `json:"chemicals,omitempty"`
	MeSHTerms []string `json:"mesh_terms,omitempty"`
	Year      string   `json:"year"`
	Journal   string   `json:"journal"`
}

// Text renders the record as the structured text that gets embedded.
func (r LiteratureRecord) Text() string {
	return fmt.Sprintf("Title: %s\nAbstract: %s\nChemicals: %s\nMeSH Terms: %s",
		r.Title, r.Abstract, strings.Join(r.Chemicals, ", "), strings.Join(r.MeSHTerms, ", "))
}

// Passage is a literature text together with its embedding.
type Passage struct {
	Text   string
	Vector []float32
	Record LiteratureRecord
}

// RankedText is a corpus entry ranked against a query.
type RankedText struct {
	// Index is the position of Text in the ranked corpus.
	Index      int
	Text       string
	Similarity float64
}

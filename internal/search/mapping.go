package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

// foldedAnalyzer tokenizes on Unicode word boundaries without stemming. Input is
// already folded by FromBook, so titles in any language match the same way.
const foldedAnalyzer = "folded"

// buildIndexMapping creates the Bleve mapping for book documents.
func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(foldedAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = foldedAnalyzer

	docMapping := bleve.NewDocumentMapping()

	textField := func(store bool) *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = foldedAnalyzer
		fm.Store = store
		return fm
	}

	// Title and author are stored for result display and carry term vectors for highlighting.
	titleField := textField(true)
	titleField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleField)

	authorField := textField(true)
	authorField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("author", authorField)

	docMapping.AddFieldMappingsAt("genre", textField(true))
	docMapping.AddFieldMappingsAt("synopsis", textField(false))
	docMapping.AddFieldMappingsAt("notes", textField(false))

	isbnField := bleve.NewTextFieldMapping()
	isbnField.Analyzer = keyword.Name
	isbnField.Store = true
	docMapping.AddFieldMappingsAt("isbn", isbnField)

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idField)

	yearField := bleve.NewNumericFieldMapping()
	yearField.Store = true
	docMapping.AddFieldMappingsAt("year", yearField)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping, nil
}

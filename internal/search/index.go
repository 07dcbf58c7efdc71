// Package search provides a full-text Bleve index over harvested GDC
// metadata, so previously fetched files and cases can be found without
// another round trip to the API.
package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/nishad/gdcharvest/internal/gdc"
	"github.com/nishad/gdcharvest/internal/table"
)

// Index wraps the Bleve search index over harvested metadata.
type Index struct {
	index bleve.Index
	path  string
}

// Open opens an existing index at indexPath, creating it if absent.
func Open(indexPath string) (*Index, error) {
	index, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(indexPath, createMetadataIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	return &Index{index: index, path: indexPath}, nil
}

// createMetadataIndexMapping builds an index mapping for file and case
// documents.
func createMetadataIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "standard"

	docMapping := bleve.NewDocumentMapping()

	docMapping.AddFieldMappingsAt("type", createKeywordFieldMapping())

	// File fields
	docMapping.AddFieldMappingsAt("file_id", createKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("file_name", createTextFieldMapping())
	docMapping.AddFieldMappingsAt("data_format", createKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("data_category", createTextFieldMapping())
	docMapping.AddFieldMappingsAt("data_type", createTextFieldMapping())
	docMapping.AddFieldMappingsAt("experimental_strategy", createTextFieldMapping())

	// Case linkage fields
	docMapping.AddFieldMappingsAt("case_id", createKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("case_submitter_id", createKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("project_id", createKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("sample_type", createTextFieldMapping())
	docMapping.AddFieldMappingsAt("patient", createKeywordFieldMapping())

	// Clinical fields
	docMapping.AddFieldMappingsAt("primary_diagnosis", createTextFieldMapping())
	docMapping.AddFieldMappingsAt("disease_type", createTextFieldMapping())
	docMapping.AddFieldMappingsAt("primary_site", createTextFieldMapping())
	docMapping.AddFieldMappingsAt("vital_status", createKeywordFieldMapping())
	docMapping.AddFieldMappingsAt("gender", createKeywordFieldMapping())

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func createKeywordFieldMapping() *mapping.FieldMapping {
	fieldMapping := bleve.NewTextFieldMapping()
	fieldMapping.Analyzer = "keyword"
	fieldMapping.Store = true
	fieldMapping.IncludeInAll = true
	return fieldMapping
}

func createTextFieldMapping() *mapping.FieldMapping {
	fieldMapping := bleve.NewTextFieldMapping()
	fieldMapping.Analyzer = "standard"
	fieldMapping.Store = true
	fieldMapping.IncludeInAll = true
	return fieldMapping
}

// IndexFiles indexes every row of a normalized files table. Rows
// without a file_id are skipped.
func (ix *Index) IndexFiles(t *table.Table) (int, error) {
	return ix.indexRows(t, "file", "file_id")
}

// IndexCases indexes every row of a clinical table keyed by case_id.
func (ix *Index) IndexCases(t *table.Table) (int, error) {
	return ix.indexRows(t, "case", gdc.ColCaseID)
}

func (ix *Index) indexRows(t *table.Table, docType, keyCol string) (int, error) {
	batch := ix.index.NewBatch()
	indexed := 0
	for _, row := range t.Rows {
		key := row[keyCol]
		if key == "" {
			continue
		}
		doc := make(map[string]interface{}, len(row)+1)
		for col, val := range row {
			if val != "" {
				doc[col] = val
			}
		}
		doc["type"] = docType
		if err := batch.Index(docType+":"+key, doc); err != nil {
			return indexed, err
		}
		indexed++
	}
	if err := ix.index.Batch(batch); err != nil {
		return 0, err
	}
	return indexed, nil
}

// Search performs a full-text query over the index.
func (ix *Index) Search(queryStr string, limit int) (*bleve.SearchResult, error) {
	q := bleve.NewQueryStringQuery(queryStr)
	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}

	searchRequest.AddFacet("type", bleve.NewFacetRequest("type", 5))
	searchRequest.AddFacet("project_id", bleve.NewFacetRequest("project_id", 10))
	searchRequest.AddFacet("data_format", bleve.NewFacetRequest("data_format", 10))
	searchRequest.AddFacet("sample_type", bleve.NewFacetRequest("sample_type", 10))

	return ix.index.Search(searchRequest)
}

// SearchWithFilters combines a free-text query with exact field
// filters.
func (ix *Index) SearchWithFilters(queryStr string, filters map[string]string, limit int) (*bleve.SearchResult, error) {
	var queries []query.Query

	if queryStr != "" {
		queries = append(queries, bleve.NewQueryStringQuery(queryStr))
	}
	for field, value := range filters {
		termQuery := bleve.NewTermQuery(value)
		termQuery.SetField(field)
		queries = append(queries, termQuery)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("empty search: no query and no filters")
	}

	var finalQuery query.Query
	if len(queries) == 1 {
		finalQuery = queries[0]
	} else {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	searchRequest := bleve.NewSearchRequest(finalQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"*"}
	searchRequest.AddFacet("type", bleve.NewFacetRequest("type", 5))
	searchRequest.AddFacet("project_id", bleve.NewFacetRequest("project_id", 10))

	return ix.index.Search(searchRequest)
}

// DocCount reports the number of indexed documents.
func (ix *Index) DocCount() (uint64, error) {
	return ix.index.DocCount()
}

// Close closes the index.
func (ix *Index) Close() error {
	return ix.index.Close()
}

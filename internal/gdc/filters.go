// Package gdc provides a client for the NCI Genomic Data Commons REST API.
// It covers filter construction, paginated metadata queries, hit flattening,
// and data/manifest downloads.
package gdc

import "strings"

// Filter represents one node of a GDC filter expression.
// Leaf nodes ("=", "in") carry a field/value pair; branch nodes
// ("and", "or") carry a list of child filters.
type Filter struct {
	Op      string      `json:"op"`
	Content interface{} `json:"content"`
}

// FieldValue is the content of a leaf filter node. The GDC API expects
// value to always be a list, even for single-value equality.
type FieldValue struct {
	Field string        `json:"field"`
	Value []interface{} `json:"value"`
}

// wrapValue normalizes a scalar into a single-element list.
func wrapValue(v interface{}) []interface{} {
	switch vv := v.(type) {
	case []interface{}:
		return vv
	case []string:
		out := make([]interface{}, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out
	default:
		return []interface{}{v}
	}
}

// EQ builds an equality filter on a single field.
func EQ(field string, value interface{}) Filter {
	return Filter{Op: "=", Content: FieldValue{Field: field, Value: wrapValue(value)}}
}

// IN builds a membership filter on a field.
func IN(field string, values []string) Filter {
	return Filter{Op: "in", Content: FieldValue{Field: field, Value: wrapValue(values)}}
}

// And combines filters with logical AND.
func And(parts ...Filter) Filter {
	return Filter{Op: "and", Content: parts}
}

// Or combines filters with logical OR.
func Or(parts ...Filter) Filter {
	return Filter{Op: "or", Content: parts}
}

// filetypePreference maps a filename extension to the preferred GDC
// filter criteria. Preference order: data_format, then data_type, then a
// filename suffix wildcard as last resort.
type filetypePreference struct {
	DataFormat []string
	DataType   []string
}

var filetypePreferences = map[string]filetypePreference{
	".svs":  {DataFormat: []string{"SVS"}, DataType: []string{"Diagnostic Slide Image"}},
	".ndpi": {DataFormat: []string{"NDPI"}},
	".xml":  {DataFormat: []string{"BCR XML"}},
	".bam":  {DataFormat: []string{"BAM"}},
	".vcf":  {DataFormat: []string{"VCF"}},
	".maf":  {DataFormat: []string{"MAF"}},
	".txt":  {DataFormat: []string{"TSV", "TXT"}},
	".tsv":  {DataFormat: []string{"TSV"}},
}

// FiletypeFilters builds one filter clause per extension.
func FiletypeFilters(exts []string) []Filter {
	clauses := make([]Filter, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		pref, ok := filetypePreferences[ext]
		switch {
		case ok && len(pref.DataFormat) > 0:
			clauses = append(clauses, IN("data_format", pref.DataFormat))
		case ok && len(pref.DataType) > 0:
			clauses = append(clauses, IN("data_type", pref.DataType))
		default:
			clauses = append(clauses, IN("file_name", []string{"*" + ext}))
		}
	}
	return clauses
}

// FilesQueryFilters builds the canonical files-endpoint filter for a
// project restricted to the given filetype extensions.
func FilesQueryFilters(projectID string, filetypes []string) Filter {
	typeFilters := FiletypeFilters(filetypes)
	var ft Filter
	if len(typeFilters) == 1 {
		ft = typeFilters[0]
	} else {
		ft = Or(typeFilters...)
	}
	return And(
		EQ("cases.project.project_id", projectID),
		ft,
	)
}

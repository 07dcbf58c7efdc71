// Package slides maps whole-slide image files to case identifiers and
// extracts best-effort image metadata.
package slides

import (
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/nishad/gdcharvest/internal/table"
)

// imageExtensions are the whole-slide formats we scan for.
var imageExtensions = map[string]bool{
	".svs":  true,
	".tiff": true,
}

// IsSlideFile reports whether the filename has a whole-slide image
// extension.
func IsSlideFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// StripImageExt removes a recognized image extension from a filename.
func StripImageExt(name string) string {
	if IsSlideFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// Mapping is the slide→case lookup for one slide file.
type Mapping struct {
	FullSlideFile string
	Patient       string
	SlideID       string
}

// minPatientTokens is the positional rule: a TCGA barcode's first three
// hyphen-delimited tokens identify the patient (e.g. TCGA-AB-1234).
const minPatientTokens = 3

// MapFilename derives a Mapping from one slide filename. The name sans
// extension splits on the first literal dot into a "pre" segment and an
// optional "post" segment; the first three hyphen tokens of "pre" form
// the patient, the remainder (plus the dot-prefixed "post" segment)
// forms the slide id. Filenames with fewer than three hyphen tokens are
// rejected: returning false here means excluded, never mismapped.
func MapFilename(name string) (Mapping, bool) {
	base := StripImageExt(name)
	pre, post, hasPost := strings.Cut(base, ".")

	tokens := strings.Split(pre, "-")
	if len(tokens) < minPatientTokens {
		return Mapping{}, false
	}

	slideID := strings.Join(tokens[minPatientTokens:], "-")
	if hasPost {
		if slideID != "" {
			slideID += "." + post
		} else {
			slideID = post
		}
	}
	return Mapping{
		FullSlideFile: name,
		Patient:       strings.Join(tokens[:minPatientTokens], "-"),
		SlideID:       slideID,
	}, true
}

// MapSlides scans a directory tree for slide files and returns the
// slide→case table with columns full_slide_file, patient, slide_id.
// Files that fail the positional rule are warned about and excluded.
func MapSlides(root string) (*table.Table, error) {
	out := table.New("full_slide_file", "patient", "slide_id")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsSlideFile(d.Name()) {
			return nil
		}
		m, ok := MapFilename(d.Name())
		if !ok {
			log.Printf("Warning: slide file %s has fewer than %d hyphen tokens; excluded from mapping", d.Name(), minPatientTokens)
			return nil
		}
		out.Append(map[string]string{
			"full_slide_file": m.FullSlideFile,
			"patient":         m.Patient,
			"slide_id":        m.SlideID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

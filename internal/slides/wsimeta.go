package slides

import (
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/nishad/gdcharvest/internal/table"
)

// propertiesTool is the OpenSlide command-line tool used for
// best-effort property extraction. Its absence is not an error; slide
// metadata then stays empty.
const propertiesTool = "openslide-show-properties"

// wsiProperties maps OpenSlide/vendor property keys to output columns,
// first match wins per column.
var wsiProperties = map[string][]string{
	"wsi.vendor":          {"openslide.vendor", "aperio.Manufacturer"},
	"wsi.model":           {"aperio.Model", "hamamatsu.DeviceModel", "openslide.vendor"},
	"wsi.mpp_x":           {"openslide.mpp-x", "aperio.MPP"},
	"wsi.mpp_y":           {"openslide.mpp-y", "aperio.MPP"},
	"wsi.objective_power": {"openslide.objective-power", "aperio.AppMag", "hamamatsu.SourceLens"},
}

// wsiColumns fixes the output column order.
var wsiColumns = []string{"wsi.vendor", "wsi.model", "wsi.mpp_x", "wsi.mpp_y", "wsi.objective_power"}

// HasPropertiesTool reports whether the OpenSlide tool is on PATH.
func HasPropertiesTool() bool {
	_, err := exec.LookPath(propertiesTool)
	return err == nil
}

// readProperties runs the tool and parses its "key: 'value'" lines.
func readProperties(path string) (map[string]string, error) {
	out, err := exec.Command(propertiesTool, path).Output()
	if err != nil {
		return nil, err
	}
	props := make(map[string]string)
	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		props[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), "'")
	}
	return props, nil
}

// CollectWSIMetadata extracts vendor/resolution properties for the
// given slide files. Best-effort throughout: a missing tool returns an
// empty table, and files that cannot be read are skipped.
func CollectWSIMetadata(paths []string) *table.Table {
	out := table.New(append([]string{"file_name"}, wsiColumns...)...)
	if !HasPropertiesTool() {
		return out
	}
	for _, p := range paths {
		if strings.ToLower(filepath.Ext(p)) != ".svs" {
			continue
		}
		props, err := readProperties(p)
		if err != nil {
			continue
		}
		row := map[string]string{"file_name": filepath.Base(p)}
		for _, col := range wsiColumns {
			for _, key := range wsiProperties[col] {
				if v, ok := props[key]; ok && v != "" {
					row[col] = v
					break
				}
			}
		}
		out.Append(row)
	}
	return out
}

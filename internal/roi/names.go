package roi

import (
	"fmt"
	"regexp"

	"github.com/banshee-data/neurovol/internal/fsutil"
	"github.com/banshee-data/neurovol/internal/mask"
	"github.com/banshee-data/neurovol/internal/volume"
)

// MaskFromNames builds one binary mask from the union of the ROI files
// whose path matches each name. Each name is a regular expression matched
// against the candidate file paths; the first match wins, and a name with
// no match is an error.
func MaskFromNames(fsys fsutil.FileSystem, names, files []string) (*volume.Volume, error) {
	inputs := make([]volume.Input, 0, len(names))
	for _, name := range names {
		re, err := regexp.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("bad roi name pattern %q: %w", name, err)
		}

		found := ""
		for _, f := range files {
			if re.MatchString(f) {
				found = f
				break
			}
		}
		if found == "" {
			return nil, fmt.Errorf("no file matches roi name %q", name)
		}
		inputs = append(inputs, volume.FromPath(found))
	}
	return mask.Union(fsys, inputs)
}

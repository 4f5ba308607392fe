package volume

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/banshee-data/neurovol/internal/fsutil"
)

// ErrUnknownFormat is returned when no registered codec claims a path's
// extension.
var ErrUnknownFormat = errors.New("unknown volume file format")

// Codec reads and writes one on-disk volume format. Implementations
// register themselves with RegisterFormat, usually from an init function,
// the same way database/sql drivers do.
type Codec interface {
	// Decode loads the volume stored at path.
	Decode(fsys fsutil.FileSystem, path string) (*Volume, error)

	// Encode writes the volume to path.
	Encode(fsys fsutil.FileSystem, path string, v *Volume) error
}

var (
	formatsMu sync.RWMutex
	formats   = make(map[string]Codec) // extension (with dot) -> codec
)

// RegisterFormat associates file extensions with a codec. Extensions are
// matched case-insensitively and longest first, so ".nii.gz" wins over files
// that merely end in ".gz".
func RegisterFormat(c Codec, extensions ...string) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	for _, ext := range extensions {
		formats[strings.ToLower(ext)] = c
	}
}

func codecFor(path string) (Codec, error) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	lower := strings.ToLower(path)
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	// Longest extension first so multi-part extensions match before their tails.
	sort.Slice(exts, func(i, j int) bool { return len(exts[i]) > len(exts[j]) })
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return formats[ext], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Open loads the volume file at path, choosing the codec by extension.
func Open(fsys fsutil.FileSystem, path string) (*Volume, error) {
	c, err := codecFor(path)
	if err != nil {
		return nil, err
	}
	v, err := c.Decode(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return v, nil
}

// Save writes the volume to path, choosing the codec by extension.
func Save(fsys fsutil.FileSystem, path string, v *Volume) error {
	c, err := codecFor(path)
	if err != nil {
		return err
	}
	if err := c.Encode(fsys, path, v); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

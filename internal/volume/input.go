package volume

import (
	"errors"

	"github.com/banshee-data/neurovol/internal/fsutil"
)

// ErrEmptyInput is returned when a zero-valued Input is resolved.
var ErrEmptyInput = errors.New("volume input holds neither a path nor a volume")

// Input is a typed union over the two ways callers hand a volume to an
// operation: a file path, or a volume already in memory. Operations that
// accept an Input resolve a path to a loaded volume exactly once and pass
// an in-memory volume through untouched.
type Input struct {
	path string
	vol  *Volume
}

// FromPath wraps a file path.
func FromPath(path string) Input { return Input{path: path} }

// FromVolume wraps an already-loaded volume.
func FromVolume(v *Volume) Input { return Input{vol: v} }

// IsZero reports whether the Input holds nothing.
func (in Input) IsZero() bool { return in.path == "" && in.vol == nil }

// Path returns the wrapped path, or "" for in-memory inputs.
func (in Input) Path() string { return in.path }

// Resolve returns the loaded volume: the wrapped volume as-is, or the
// result of opening the wrapped path.
func (in Input) Resolve(fsys fsutil.FileSystem) (*Volume, error) {
	switch {
	case in.vol != nil:
		return in.vol, nil
	case in.path != "":
		return Open(fsys, in.path)
	}
	return nil, ErrEmptyInput
}

package volume

import "fmt"

// DType identifies the on-disk element type of a volume. Data is held in
// memory as float64 regardless; the DType is kept so writers can reproduce
// the input's element type.
type DType uint8

const (
	DTUnknown DType = iota
	DTUint8
	DTInt8
	DTUint16
	DTInt16
	DTUint32
	DTInt32
	DTUint64
	DTInt64
	DTFloat32
	DTFloat64
)

// Size returns the element size in bytes.
func (d DType) Size() int {
	switch d {
	case DTUint8, DTInt8:
		return 1
	case DTUint16, DTInt16:
		return 2
	case DTUint32, DTInt32, DTFloat32:
		return 4
	case DTUint64, DTInt64, DTFloat64:
		return 8
	}
	return 0
}

// Integer reports whether the element type is an integer type.
func (d DType) Integer() bool {
	switch d {
	case DTUint8, DTInt8, DTUint16, DTInt16, DTUint32, DTInt32, DTUint64, DTInt64:
		return true
	}
	return false
}

func (d DType) String() string {
	switch d {
	case DTUint8:
		return "uint8"
	case DTInt8:
		return "int8"
	case DTUint16:
		return "uint16"
	case DTInt16:
		return "int16"
	case DTUint32:
		return "uint32"
	case DTInt32:
		return "int32"
	case DTUint64:
		return "uint64"
	case DTInt64:
		return "int64"
	case DTFloat32:
		return "float32"
	case DTFloat64:
		return "float64"
	}
	return fmt.Sprintf("DType(%d)", uint8(d))
}

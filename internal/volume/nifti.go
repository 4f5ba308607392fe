package volume

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/banshee-data/neurovol/internal/fsutil"
)

// NIfTI-1 single-file codec (.nii, .nii.gz).
//
// The format is a fixed 348-byte binary header followed by the voxel data at
// vox_offset. Both byte orders occur in the wild; the order is detected from
// the sizeof_hdr field, which always reads 348 in the file's native order.
// Two-file NIfTI ("ni1" magic, separate .hdr/.img) is not supported.

const (
	nifti1HeaderSize = 348
	nifti1VoxOffset  = 352 // header + 4-byte extension flag
)

// NIfTI-1 datatype codes.
const (
	niftiTypeUint8   = 2
	niftiTypeInt16   = 4
	niftiTypeInt32   = 8
	niftiTypeFloat32 = 16
	niftiTypeFloat64 = 64
	niftiTypeInt8    = 256
	niftiTypeUint16  = 512
	niftiTypeUint32  = 768
	niftiTypeInt64   = 1024
	niftiTypeUint64  = 1280
)

// nifti1Header mirrors the on-disk layout of the 348-byte NIfTI-1 header.
// Field order and sizes must not change.
type nifti1Header struct {
	SizeofHdr     int32
	DataTypeName  [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

type niftiCodec struct{}

func init() {
	RegisterFormat(niftiCodec{}, ".nii", ".nii.gz")
}

func niftiDType(code int16) (DType, error) {
	switch code {
	case niftiTypeUint8:
		return DTUint8, nil
	case niftiTypeInt8:
		return DTInt8, nil
	case niftiTypeUint16:
		return DTUint16, nil
	case niftiTypeInt16:
		return DTInt16, nil
	case niftiTypeUint32:
		return DTUint32, nil
	case niftiTypeInt32:
		return DTInt32, nil
	case niftiTypeUint64:
		return DTUint64, nil
	case niftiTypeInt64:
		return DTInt64, nil
	case niftiTypeFloat32:
		return DTFloat32, nil
	case niftiTypeFloat64:
		return DTFloat64, nil
	}
	return DTUnknown, fmt.Errorf("unsupported NIfTI datatype code %d", code)
}

func niftiTypeCode(d DType) (int16, error) {
	switch d {
	case DTUint8:
		return niftiTypeUint8, nil
	case DTInt8:
		return niftiTypeInt8, nil
	case DTUint16:
		return niftiTypeUint16, nil
	case DTInt16:
		return niftiTypeInt16, nil
	case DTUint32:
		return niftiTypeUint32, nil
	case DTInt32:
		return niftiTypeInt32, nil
	case DTUint64:
		return niftiTypeUint64, nil
	case DTInt64:
		return niftiTypeInt64, nil
	case DTFloat32:
		return niftiTypeFloat32, nil
	case DTFloat64:
		return niftiTypeFloat64, nil
	}
	return 0, fmt.Errorf("cannot encode element type %s as NIfTI", d)
}

// Decode loads a .nii or .nii.gz volume.
func (niftiCodec) Decode(fsys fsutil.FileSystem, path string) (*Volume, error) {
	raw, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("bad gzip stream: %w", err)
		}
		defer zr.Close()
		raw, err = io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
	}

	if len(raw) < nifti1HeaderSize {
		return nil, fmt.Errorf("file too small for a NIfTI-1 header: %d bytes", len(raw))
	}

	// sizeof_hdr is 348 in the file's native byte order.
	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(raw[:4]) == nifti1HeaderSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(raw[:4]) == nifti1HeaderSize:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a NIfTI-1 file: sizeof_hdr != %d", nifti1HeaderSize)
	}

	var hdr nifti1Header
	if err := binary.Read(bytes.NewReader(raw), order, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	switch string(hdr.Magic[:3]) {
	case "n+1":
	case "ni1":
		return nil, fmt.Errorf("two-file NIfTI (.hdr/.img) is not supported")
	default:
		return nil, fmt.Errorf("bad NIfTI magic %q", hdr.Magic[:])
	}

	ndim := int(hdr.Dim[0])
	if ndim < 3 || ndim > 4 {
		return nil, fmt.Errorf("unsupported number of dimensions %d (want 3 or 4)", ndim)
	}
	// A 4D image with a single volume is treated as 3D.
	if ndim == 4 && hdr.Dim[4] == 1 {
		ndim = 3
	}

	shape := make([]int, ndim)
	n := 1
	for i := 0; i < ndim; i++ {
		d := int(hdr.Dim[i+1])
		if d <= 0 {
			return nil, fmt.Errorf("invalid dim[%d] = %d", i+1, d)
		}
		shape[i] = d
		n *= d
	}

	dt, err := niftiDType(hdr.Datatype)
	if err != nil {
		return nil, err
	}

	offset := int(hdr.VoxOffset)
	if offset < nifti1HeaderSize {
		offset = nifti1VoxOffset
	}
	need := offset + n*dt.Size()
	if len(raw) < need {
		return nil, fmt.Errorf("truncated voxel data: have %d bytes, need %d", len(raw), need)
	}

	data, err := DecodeElements(raw[offset:need], dt, order, n)
	if err != nil {
		return nil, err
	}

	// Apply the affine intensity scaling when present and not the identity.
	if s := float64(hdr.SclSlope); s != 0 && !(s == 1 && hdr.SclInter == 0) {
		inter := float64(hdr.SclInter)
		for i := range data {
			data[i] = data[i]*s + inter
		}
		if dt.Integer() {
			dt = DTFloat32
		}
	}

	v := &Volume{
		Shape:   shape,
		Spacing: make([]float64, ndim),
		DType:   dt,
		Data:    data,
	}
	for i := 0; i < ndim; i++ {
		v.Spacing[i] = math.Abs(float64(hdr.Pixdim[i+1]))
		if v.Spacing[i] == 0 {
			v.Spacing[i] = 1
		}
	}

	if hdr.SformCode > 0 {
		rows := [3][4]float32{hdr.SrowX, hdr.SrowY, hdr.SrowZ}
		for i := 0; i < 3; i++ {
			for j := 0; j < 4; j++ {
				v.Affine[i][j] = float64(rows[i][j])
			}
		}
		v.Affine[3] = [4]float64{0, 0, 0, 1}
	} else {
		// No sform: fall back to a diagonal affine built from the spacing.
		for i := 0; i < 3; i++ {
			v.Affine[i][i] = v.Spacing[i]
		}
		v.Affine[3][3] = 1
	}

	return v, nil
}

// Encode writes the volume as little-endian single-file NIfTI-1.
func (niftiCodec) Encode(fsys fsutil.FileSystem, path string, v *Volume) error {
	dt := v.DType
	if dt == DTUnknown {
		dt = DTFloat32
	}
	code, err := niftiTypeCode(dt)
	if err != nil {
		return err
	}
	if len(v.Shape) != 3 && len(v.Shape) != 4 {
		return fmt.Errorf("cannot encode %d-dimensional volume", len(v.Shape))
	}

	var hdr nifti1Header
	hdr.SizeofHdr = nifti1HeaderSize
	hdr.Regular = 'r'
	hdr.Dim[0] = int16(len(v.Shape))
	for i := range hdr.Dim[1:] {
		hdr.Dim[i+1] = 1
	}
	for i, s := range v.Shape {
		if s > math.MaxInt16 {
			return fmt.Errorf("dimension %d (%d) exceeds NIfTI dim limit", i, s)
		}
		hdr.Dim[i+1] = int16(s)
	}
	hdr.Datatype = code
	hdr.Bitpix = int16(dt.Size() * 8)
	hdr.Pixdim[0] = 1
	for i, sp := range v.Spacing {
		hdr.Pixdim[i+1] = float32(sp)
	}
	hdr.VoxOffset = nifti1VoxOffset
	hdr.SclSlope = 1
	hdr.XyztUnits = 2 // millimetres
	hdr.SformCode = 1
	for j := 0; j < 4; j++ {
		hdr.SrowX[j] = float32(v.Affine[0][j])
		hdr.SrowY[j] = float32(v.Affine[1][j])
		hdr.SrowZ[j] = float32(v.Affine[2][j])
	}
	copy(hdr.Magic[:], "n+1\x00")

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	buf.Write([]byte{0, 0, 0, 0}) // no header extensions

	if err := EncodeElements(&buf, v.Data, dt, binary.LittleEndian); err != nil {
		return err
	}

	out := buf.Bytes()
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		var zbuf bytes.Buffer
		zw := gzip.NewWriter(&zbuf)
		if _, err := zw.Write(out); err != nil {
			return fmt.Errorf("compress: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress: %w", err)
		}
		out = zbuf.Bytes()
	}

	return fsys.WriteFile(path, out, 0644)
}

// maxExactInt is the largest integer magnitude a float64 represents exactly.
const maxExactInt = 1 << 53

// DecodeElements converts n raw on-disk elements of type dt to float64.
// It is shared by the volume codecs.
func DecodeElements(raw []byte, dt DType, order binary.ByteOrder, n int) ([]float64, error) {
	data := make([]float64, n)
	size := dt.Size()
	for i := 0; i < n; i++ {
		b := raw[i*size : (i+1)*size]
		switch dt {
		case DTUint8:
			data[i] = float64(b[0])
		case DTInt8:
			data[i] = float64(int8(b[0]))
		case DTUint16:
			data[i] = float64(order.Uint16(b))
		case DTInt16:
			data[i] = float64(int16(order.Uint16(b)))
		case DTUint32:
			data[i] = float64(order.Uint32(b))
		case DTInt32:
			data[i] = float64(int32(order.Uint32(b)))
		case DTUint64:
			u := order.Uint64(b)
			if u > maxExactInt {
				return nil, fmt.Errorf("uint64 voxel value %d exceeds exact float64 range", u)
			}
			data[i] = float64(u)
		case DTInt64:
			s := int64(order.Uint64(b))
			if s > maxExactInt || s < -maxExactInt {
				return nil, fmt.Errorf("int64 voxel value %d exceeds exact float64 range", s)
			}
			data[i] = float64(s)
		case DTFloat32:
			data[i] = float64(math.Float32frombits(order.Uint32(b)))
		case DTFloat64:
			data[i] = math.Float64frombits(order.Uint64(b))
		default:
			return nil, fmt.Errorf("unsupported element type %s", dt)
		}
	}
	return data, nil
}

// EncodeElements writes data in the given element type. Integer types round
// to nearest and clamp at the type limits.
func EncodeElements(w io.Writer, data []float64, dt DType, order binary.ByteOrder) error {
	buf := make([]byte, dt.Size())
	for _, val := range data {
		switch dt {
		case DTUint8:
			buf[0] = uint8(clampRound(val, 0, math.MaxUint8))
		case DTInt8:
			buf[0] = byte(int8(clampRound(val, math.MinInt8, math.MaxInt8)))
		case DTUint16:
			order.PutUint16(buf, uint16(clampRound(val, 0, math.MaxUint16)))
		case DTInt16:
			order.PutUint16(buf, uint16(int16(clampRound(val, math.MinInt16, math.MaxInt16))))
		case DTUint32:
			order.PutUint32(buf, uint32(clampRound(val, 0, math.MaxUint32)))
		case DTInt32:
			order.PutUint32(buf, uint32(int32(clampRound(val, math.MinInt32, math.MaxInt32))))
		case DTUint64:
			order.PutUint64(buf, uint64(clampRound(val, 0, maxExactInt)))
		case DTInt64:
			order.PutUint64(buf, uint64(int64(clampRound(val, -maxExactInt, maxExactInt))))
		case DTFloat32:
			order.PutUint32(buf, math.Float32bits(float32(val)))
		case DTFloat64:
			order.PutUint64(buf, math.Float64bits(val))
		default:
			return fmt.Errorf("unsupported element type %s", dt)
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func clampRound(v, lo, hi float64) float64 {
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package mhd implements the MetaImage (.mhd + .raw) volume format: a plain
// text "Key = Value" header next to a raw binary payload file.
//
// Importing the package registers the codec with the volume format registry:
//
//	import _ "github.com/banshee-data/neurovol/internal/mhd"
package mhd

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/neurovol/internal/fsutil"
	"github.com/banshee-data/neurovol/internal/volume"
)

// headerTags lists every tag this codec understands, in the order MetaIO
// writes them. The order matters: readers exist that require ObjectType
// first and ElementDataFile last.
var headerTags = []string{
	"ObjectType",
	"NDims",
	"BinaryData",
	"BinaryDataByteOrderMSB",
	"CompressedData",
	"CompressedDataSize",
	"TransformMatrix",
	"Offset",
	"CenterOfRotation",
	"AnatomicalOrientation",
	"ElementSpacing",
	"DimSize",
	"ElementType",
	"ElementDataFile",
	"Comment",
	"SeriesDescription",
	"AcquisitionDate",
	"AcquisitionTime",
	"StudyDate",
	"StudyTime",
}

var metToDType = map[string]volume.DType{
	"MET_UCHAR":  volume.DTUint8,
	"MET_CHAR":   volume.DTInt8,
	"MET_USHORT": volume.DTUint16,
	"MET_SHORT":  volume.DTInt16,
	"MET_UINT":   volume.DTUint32,
	"MET_INT":    volume.DTInt32,
	"MET_ULONG":  volume.DTUint64,
	"MET_LONG":   volume.DTInt64,
	"MET_FLOAT":  volume.DTFloat32,
	"MET_DOUBLE": volume.DTFloat64,
}

var dtypeToMet = func() map[volume.DType]string {
	m := make(map[volume.DType]string, len(metToDType))
	for k, v := range metToDType {
		m[v] = k
	}
	return m
}()

// Codec implements volume.Codec for the MetaImage format.
type Codec struct{}

func init() {
	volume.RegisterFormat(Codec{}, ".mhd")
}

// ReadHeader parses a .mhd header into a tag -> value map. Only the first
// occurrence of a known tag is kept; unknown tags are ignored.
func ReadHeader(fsys fsutil.FileSystem, path string) (map[string]string, error) {
	raw, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(headerTags))
	for _, tag := range headerTags {
		known[tag] = true
	}

	meta := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := sc.Text()
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if known[key] {
			if _, dup := meta[key]; !dup {
				meta[key] = strings.TrimSpace(value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return meta, nil
}

// WriteHeader writes a .mhd header with tags in canonical order.
func WriteHeader(fsys fsutil.FileSystem, path string, meta map[string]string) error {
	var b strings.Builder
	for _, tag := range headerTags {
		if v, ok := meta[tag]; ok {
			fmt.Fprintf(&b, "%s = %s\n", tag, v)
		}
	}
	return fsys.WriteFile(path, []byte(b.String()), 0644)
}

// Decode loads a MetaImage volume from a .mhd header and its payload file.
func (Codec) Decode(fsys fsutil.FileSystem, path string) (*volume.Volume, error) {
	meta, err := ReadHeader(fsys, path)
	if err != nil {
		return nil, err
	}

	for _, required := range []string{"NDims", "DimSize", "ElementType", "ElementDataFile"} {
		if meta[required] == "" {
			return nil, fmt.Errorf("mhd header is missing %s", required)
		}
	}
	if strings.EqualFold(meta["CompressedData"], "true") {
		return nil, fmt.Errorf("compressed MetaImage data is not supported")
	}

	ndims, err := strconv.Atoi(meta["NDims"])
	if err != nil || ndims < 3 || ndims > 4 {
		return nil, fmt.Errorf("unsupported NDims %q (want 3 or 4)", meta["NDims"])
	}

	shape, err := parseInts(meta["DimSize"], ndims)
	if err != nil {
		return nil, fmt.Errorf("bad DimSize %q: %w", meta["DimSize"], err)
	}

	dt, ok := metToDType[meta["ElementType"]]
	if !ok {
		return nil, fmt.Errorf("unsupported ElementType %q", meta["ElementType"])
	}

	dataFile := meta["ElementDataFile"]
	if dataFile == "LIST" || strings.HasPrefix(dataFile, "LIST ") {
		return nil, fmt.Errorf("multi-file MetaImage (ElementDataFile = LIST) is not supported")
	}
	if !filepath.IsAbs(dataFile) {
		dataFile = filepath.Join(filepath.Dir(path), dataFile)
	}

	raw, err := fsys.ReadFile(dataFile)
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", dataFile, err)
	}

	n := 1
	for _, s := range shape {
		n *= s
	}
	if len(raw) < n*dt.Size() {
		return nil, fmt.Errorf("payload %s too small: have %d bytes, need %d", dataFile, len(raw), n*dt.Size())
	}

	var order binary.ByteOrder = binary.LittleEndian
	if strings.EqualFold(meta["BinaryDataByteOrderMSB"], "true") {
		order = binary.BigEndian
	}

	data, err := volume.DecodeElements(raw[:n*dt.Size()], dt, order, n)
	if err != nil {
		return nil, err
	}

	v := &volume.Volume{
		Shape:   shape,
		Spacing: make([]float64, ndims),
		DType:   dt,
		Data:    data,
	}
	for i := range v.Spacing {
		v.Spacing[i] = 1
	}
	if sp := meta["ElementSpacing"]; sp != "" {
		spacing, err := parseFloats(sp, ndims)
		if err != nil {
			return nil, fmt.Errorf("bad ElementSpacing %q: %w", sp, err)
		}
		v.Spacing = spacing
	}

	// Affine: diagonal spacing plus the Offset translation when present.
	for i := 0; i < 3; i++ {
		v.Affine[i][i] = v.Spacing[i]
	}
	v.Affine[3][3] = 1
	if off := meta["Offset"]; off != "" {
		offset, err := parseFloats(off, ndims)
		if err != nil {
			return nil, fmt.Errorf("bad Offset %q: %w", off, err)
		}
		for i := 0; i < 3 && i < len(offset); i++ {
			v.Affine[i][3] = offset[i]
		}
	}

	return v, nil
}

// Encode writes the volume as a .mhd header plus a sibling .raw payload in
// little-endian order.
func (Codec) Encode(fsys fsutil.FileSystem, path string, v *volume.Volume) error {
	dt := v.DType
	if dt == volume.DTUnknown {
		dt = volume.DTFloat32
	}
	met, ok := dtypeToMet[dt]
	if !ok {
		return fmt.Errorf("cannot encode element type %s as MetaImage", dt)
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	rawPath := base + ".raw"

	meta := map[string]string{
		"ObjectType":             "Image",
		"NDims":                  strconv.Itoa(len(v.Shape)),
		"BinaryData":             "True",
		"BinaryDataByteOrderMSB": "False",
		"CompressedData":         "False",
		"ElementSpacing":         joinFloats(v.Spacing),
		"DimSize":                joinInts(v.Shape),
		"ElementType":            met,
		"ElementDataFile":        filepath.Base(rawPath),
	}
	if tx, ty, tz := v.Affine[0][3], v.Affine[1][3], v.Affine[2][3]; tx != 0 || ty != 0 || tz != 0 {
		offset := []float64{tx, ty, tz}
		if len(v.Shape) == 4 {
			offset = append(offset, 0)
		}
		meta["Offset"] = joinFloats(offset)
	}

	var buf bytes.Buffer
	if err := volume.EncodeElements(&buf, v.Data, dt, binary.LittleEndian); err != nil {
		return err
	}
	if err := fsys.WriteFile(rawPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write payload %s: %w", rawPath, err)
	}
	return WriteHeader(fsys, path, meta)
}

// CopyPair copies a .mhd/.raw pair. When dst renames the image, the copied
// header's ElementDataFile is rewritten to point at the renamed payload.
func CopyPair(fsys fsutil.FileSystem, src, dst string) error {
	if filepath.Ext(src) != ".mhd" {
		return fmt.Errorf("source must be a .mhd file, got %s", src)
	}

	meta, err := ReadHeader(fsys, src)
	if err != nil {
		return err
	}
	srcRaw := meta["ElementDataFile"]
	if srcRaw == "" {
		return fmt.Errorf("%s has no ElementDataFile tag", src)
	}
	if !filepath.IsAbs(srcRaw) {
		srcRaw = filepath.Join(filepath.Dir(src), srcRaw)
	}

	if filepath.Ext(dst) != ".mhd" {
		dst += ".mhd"
	}
	dstRaw := strings.TrimSuffix(dst, ".mhd") + ".raw"

	payload, err := fsys.ReadFile(srcRaw)
	if err != nil {
		return fmt.Errorf("read payload %s: %w", srcRaw, err)
	}
	if err := fsys.WriteFile(dstRaw, payload, 0644); err != nil {
		return err
	}

	meta["ElementDataFile"] = filepath.Base(dstRaw)
	return WriteHeader(fsys, dst, meta)
}

func parseInts(s string, want int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) != want {
		return nil, fmt.Errorf("want %d values, got %d", want, len(fields))
	}
	out := make([]int, want)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("value %d must be positive", v)
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(s string, want int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) != want {
		return nil, fmt.Errorf("want %d values, got %d", want, len(fields))
	}
	out := make([]float64, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil || math.IsNaN(v) {
			return nil, fmt.Errorf("bad value %q", f)
		}
		out[i] = v
	}
	return out, nil
}

func joinInts(vals []int) string {
	fields := make([]string, len(vals))
	for i, v := range vals {
		fields[i] = strconv.Itoa(v)
	}
	return strings.Join(fields, " ")
}

func joinFloats(vals []float64) string {
	fields := make([]string, len(vals))
	for i, v := range vals {
		fields[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(fields, " ")
}

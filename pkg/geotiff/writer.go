package geotiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// Raster is a single-band float32 grid in EPSG:4326 to be encoded.
type Raster struct {
	Width, Height            int
	Data                     []float32
	West, South, East, North float64
}

// EncodeOptions controls the encoder.
type EncodeOptions struct {
	// Compression is CompressionNone or CompressionDeflate.
	Compression int
	// NoData, when set, is written as GDAL_NODATA and NaN samples are
	// replaced by it.
	NoData *float64
}

type outField struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// Encode writes r as a little-endian, single-strip GeoTIFF.
func Encode(w io.Writer, r *Raster, opts *EncodeOptions) error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("geotiff: invalid dimensions %dx%d", r.Width, r.Height)
	}
	if len(r.Data) != r.Width*r.Height {
		return fmt.Errorf("geotiff: have %d samples for %dx%d", len(r.Data), r.Width, r.Height)
	}
	if opts == nil {
		opts = &EncodeOptions{Compression: CompressionNone}
	}

	bo := binary.LittleEndian

	pixels := make([]byte, len(r.Data)*4)
	for i, v := range r.Data {
		if opts.NoData != nil && math.IsNaN(float64(v)) {
			v = float32(*opts.NoData)
		}
		bo.PutUint32(pixels[i*4:], math.Float32bits(v))
	}

	compression := opts.Compression
	switch compression {
	case 0, CompressionNone:
		compression = CompressionNone
	case CompressionDeflate:
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(pixels); err != nil {
			return fmt.Errorf("geotiff: deflate: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("geotiff: deflate: %w", err)
		}
		pixels = buf.Bytes()
	default:
		return fmt.Errorf("%w: encode compression %d", ErrUnsupported, opts.Compression)
	}

	sx := (r.East - r.West) / float64(r.Width)
	sy := (r.North - r.South) / float64(r.Height)

	fields := []*outField{
		shortField(tagImageWidth, uint16(r.Width)),
		shortField(tagImageLength, uint16(r.Height)),
		shortField(tagBitsPerSample, 32),
		shortField(tagCompression, uint16(compression)),
		shortField(tagPhotometricInterpretation, 1),
		longField(tagStripOffsets, 0), // patched below
		shortField(tagSamplesPerPixel, 1),
		longField(tagRowsPerStrip, uint32(r.Height)),
		longField(tagStripByteCounts, uint32(len(pixels))),
		shortField(tagPlanarConfiguration, 1),
		shortField(tagSampleFormat, sampleFormatFloat),
		doubleField(tagModelPixelScale, sx, sy, 0),
		doubleField(tagModelTiepoint, 0, 0, 0, r.West, r.North, 0),
		shortsField(tagGeoKeyDirectory,
			1, 1, 0, 3,
			1024, 0, 1, 2, // GTModelType: geographic
			1025, 0, 1, 1, // GTRasterType: pixel is area
			2048, 0, 1, 4326, // GeographicType: WGS 84
		),
	}
	if r.Width > math.MaxUint16 || r.Height > math.MaxUint16 {
		fields[0] = longField(tagImageWidth, uint32(r.Width))
		fields[1] = longField(tagImageLength, uint32(r.Height))
	}
	if opts.NoData != nil {
		s := strconv.FormatFloat(*opts.NoData, 'g', -1, 64)
		fields = append(fields, &outField{
			tag: tagGDALNoData, typ: typeASCII, count: uint32(len(s) + 1),
			data: append([]byte(s), 0),
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].tag < fields[j].tag })

	// Layout: header, IFD, out-of-line values, pixel data.
	ifdSize := 2 + len(fields)*12 + 4
	next := uint32(8 + ifdSize)
	offsets := make([]uint32, len(fields))
	for i, f := range fields {
		if len(f.data) > 4 {
			next += next & 1
			offsets[i] = next
			next += uint32(len(f.data))
		}
	}
	next += next & 1
	pixelOffset := next
	for _, f := range fields {
		if f.tag == tagStripOffsets {
			bo.PutUint32(f.data, pixelOffset)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, bo, uint16(42))
	_ = binary.Write(&buf, bo, uint32(8))

	_ = binary.Write(&buf, bo, uint16(len(fields)))
	for i, f := range fields {
		_ = binary.Write(&buf, bo, f.tag)
		_ = binary.Write(&buf, bo, f.typ)
		_ = binary.Write(&buf, bo, f.count)
		if len(f.data) > 4 {
			_ = binary.Write(&buf, bo, offsets[i])
		} else {
			var inline [4]byte
			copy(inline[:], f.data)
			buf.Write(inline[:])
		}
	}
	_ = binary.Write(&buf, bo, uint32(0))

	for i, f := range fields {
		if len(f.data) <= 4 {
			continue
		}
		for uint32(buf.Len()) < offsets[i] {
			buf.WriteByte(0)
		}
		buf.Write(f.data)
	}
	for uint32(buf.Len()) < pixelOffset {
		buf.WriteByte(0)
	}
	buf.Write(pixels)

	_, err := w.Write(buf.Bytes())
	return err
}

func shortField(tag uint16, v uint16) *outField {
	return shortsField(tag, v)
}

func shortsField(tag uint16, vs ...uint16) *outField {
	data := make([]byte, len(vs)*2)
	for i, v := range vs {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	return &outField{tag: tag, typ: typeShort, count: uint32(len(vs)), data: data}
}

func longField(tag uint16, v uint32) *outField {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)
	return &outField{tag: tag, typ: typeLong, count: 1, data: data}
}

func doubleField(tag uint16, vs ...float64) *outField {
	data := make([]byte, len(vs)*8)
	for i, v := range vs {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return &outField{tag: tag, typ: typeDouble, count: uint32(len(vs)), data: data}
}

package geotiff

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// TIFF tag identifiers used by the codec.
const (
	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagPlanarConfiguration       = 284
	tagPredictor                 = 317
	tagTileWidth                 = 322
	tagTileLength                = 323
	tagTileOffsets               = 324
	tagTileByteCounts            = 325
	tagSampleFormat              = 339
	tagModelPixelScale           = 33550
	tagModelTiepoint             = 33922
	tagGeoKeyDirectory           = 34735
	tagGDALNoData                = 42113
)

// Compression schemes.
const (
	CompressionNone        = 1
	CompressionLZW         = 5
	CompressionDeflate     = 8
	CompressionDeflateAlt  = 32946
	predictorNone          = 1
	predictorHorizontal    = 2
	predictorFloatingPoint = 3
)

// Sample formats.
const (
	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

// Field types.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
)

var typeSizes = map[uint16]int{
	typeByte: 1, typeASCII: 1, typeShort: 2, typeLong: 4, typeRational: 8,
	typeSByte: 1, typeUndefined: 1, typeSShort: 2, typeSLong: 4, typeSRational: 8,
	typeFloat: 4, typeDouble: 8,
}

// field is one decoded IFD entry with its value bytes resolved.
type field struct {
	tag   uint16
	typ   uint16
	count uint32
	raw   []byte
	bo    binary.ByteOrder
}

func (f *field) uints() ([]uint64, error) {
	out := make([]uint64, f.count)
	for i := range out {
		switch f.typ {
		case typeByte, typeUndefined:
			out[i] = uint64(f.raw[i])
		case typeShort:
			out[i] = uint64(f.bo.Uint16(f.raw[i*2:]))
		case typeLong:
			out[i] = uint64(f.bo.Uint32(f.raw[i*4:]))
		default:
			return nil, fmt.Errorf("tag %d: type %d is not an unsigned integer", f.tag, f.typ)
		}
	}
	return out, nil
}

func (f *field) uint() (uint64, error) {
	v, err := f.uints()
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, fmt.Errorf("tag %d: empty value", f.tag)
	}
	return v[0], nil
}

func (f *field) floats() ([]float64, error) {
	out := make([]float64, f.count)
	for i := range out {
		switch f.typ {
		case typeDouble:
			out[i] = math.Float64frombits(f.bo.Uint64(f.raw[i*8:]))
		case typeFloat:
			out[i] = float64(math.Float32frombits(f.bo.Uint32(f.raw[i*4:])))
		case typeByte, typeShort, typeLong:
			v, err := f.uints()
			if err != nil {
				return nil, err
			}
			out[i] = float64(v[i])
		case typeRational:
			num := f.bo.Uint32(f.raw[i*8:])
			den := f.bo.Uint32(f.raw[i*8+4:])
			if den == 0 {
				return nil, fmt.Errorf("tag %d: zero denominator", f.tag)
			}
			out[i] = float64(num) / float64(den)
		default:
			return nil, fmt.Errorf("tag %d: type %d is not numeric", f.tag, f.typ)
		}
	}
	return out, nil
}

func (f *field) ascii() string {
	return strings.TrimRight(string(f.raw), "\x00 ")
}

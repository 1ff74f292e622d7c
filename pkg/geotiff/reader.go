// Package geotiff decodes and encodes the subset of GeoTIFF needed for
// elevation and displacement rasters in geographic coordinates.
package geotiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/tiff/lzw"
)

var (
	// ErrNotTIFF is returned when the header is not a classic TIFF header.
	ErrNotTIFF = errors.New("geotiff: not a TIFF file")
	// ErrUnsupported is returned for valid TIFF features the codec does not handle.
	ErrUnsupported = errors.New("geotiff: unsupported feature")
	// ErrNoGeoreference is returned when pixel scale or tiepoint tags are missing.
	ErrNoGeoreference = errors.New("geotiff: missing georeference")
)

// Decode limits, checked before any sample buffer is allocated.
const (
	maxSamples = 1 << 28
	maxBands   = 64
)

// GeoInfo holds the affine georeference of the first image.
type GeoInfo struct {
	PixelScaleX, PixelScaleY float64
	TiepointI, TiepointJ     float64
	TiepointX, TiepointY     float64
	HasGeoreference          bool

	NoData    float64
	HasNoData bool
}

// Image is a decoded raster. Band samples are row-major; no-data samples are NaN.
type Image struct {
	Width  int
	Height int
	Bands  [][]float32
	Geo    GeoInfo
}

// Band returns the samples of band i.
func (im *Image) Band(i int) ([]float32, error) {
	if i < 0 || i >= len(im.Bands) {
		return nil, fmt.Errorf("geotiff: band %d out of range (have %d)", i, len(im.Bands))
	}
	return im.Bands[i], nil
}

// BoundingBox returns (west, south, east, north) in the raster CRS.
func (im *Image) BoundingBox() (west, south, east, north float64, err error) {
	g := im.Geo
	if !g.HasGeoreference {
		return 0, 0, 0, 0, ErrNoGeoreference
	}
	west = g.TiepointX - g.TiepointI*g.PixelScaleX
	north = g.TiepointY + g.TiepointJ*g.PixelScaleY
	east = west + float64(im.Width)*g.PixelScaleX
	south = north - float64(im.Height)*g.PixelScaleY
	return west, south, east, north, nil
}

// layout describes how samples are stored in the first IFD.
type layout struct {
	width, height   int
	spp             int
	bits            int
	format          int
	compression     int
	predictor       int
	planar          int
	tiled           bool
	chunkW, chunkH  int
	offsets, counts []uint64

	across, down int // chunks per row and per column of one plane
	planes       int
	chunkSpp     int
}

// chunkBytes returns the decoded size of a chunk in chunk row cy.
func (l *layout) chunkBytes(cy int) (rows, rowLen int) {
	rows = l.chunkH
	if !l.tiled && (cy+1)*l.chunkH > l.height {
		rows = l.height - cy*l.chunkH
	}
	return rows, l.chunkW * l.chunkSpp * (l.bits / 8)
}

// tooLarge reports whether a*b*c exceeds maxSamples. All arguments are positive.
func tooLarge(a, b, c int) bool {
	if a > maxSamples || b > maxSamples || c > maxSamples {
		return true
	}
	return uint64(a)*uint64(b) > maxSamples/uint64(c)
}

// Decode parses a GeoTIFF from memory. Only the first image is decoded.
func Decode(data []byte) (*Image, error) {
	if len(data) < 8 {
		return nil, ErrNotTIFF
	}

	var bo binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, ErrNotTIFF
	}

	switch bo.Uint16(data[2:]) {
	case 42:
	case 43:
		return nil, fmt.Errorf("%w: BigTIFF", ErrUnsupported)
	default:
		return nil, ErrNotTIFF
	}

	fields, err := readIFD(data, bo, int64(bo.Uint32(data[4:])))
	if err != nil {
		return nil, err
	}

	l, err := parseLayout(fields)
	if err != nil {
		return nil, err
	}

	im := &Image{
		Width:  l.width,
		Height: l.height,
		Geo:    parseGeoInfo(fields),
	}

	im.Bands, err = decodeSamples(data, bo, l)
	if err != nil {
		return nil, err
	}

	if im.Geo.HasNoData {
		nd := float32(im.Geo.NoData)
		for _, band := range im.Bands {
			for i, v := range band {
				if v == nd {
					band[i] = float32(math.NaN())
				}
			}
		}
	}

	return im, nil
}

// readIFD reads one image file directory.
func readIFD(data []byte, bo binary.ByteOrder, offset int64) (map[uint16]*field, error) {
	if offset < 8 || offset+2 > int64(len(data)) {
		return nil, fmt.Errorf("geotiff: IFD offset %d out of range", offset)
	}

	n := int64(bo.Uint16(data[offset:]))
	end := offset + 2 + n*12
	if end > int64(len(data)) {
		return nil, fmt.Errorf("geotiff: IFD truncated")
	}

	fields := make(map[uint16]*field, n)
	for i := int64(0); i < n; i++ {
		e := data[offset+2+i*12:]
		f := &field{
			tag:   bo.Uint16(e[0:]),
			typ:   bo.Uint16(e[2:]),
			count: bo.Uint32(e[4:]),
			bo:    bo,
		}

		size, ok := typeSizes[f.typ]
		if !ok {
			continue // unknown field types are skipped per the TIFF spec
		}
		total := int64(size) * int64(f.count)
		if total <= 4 {
			f.raw = e[8 : 8+total]
		} else {
			at := int64(bo.Uint32(e[8:]))
			if at+total > int64(len(data)) {
				return nil, fmt.Errorf("geotiff: tag %d value out of range", f.tag)
			}
			f.raw = data[at : at+total]
		}
		fields[f.tag] = f
	}

	return fields, nil
}

func requireUint(fields map[uint16]*field, tag uint16, name string) (int, error) {
	f, ok := fields[tag]
	if !ok {
		return 0, fmt.Errorf("geotiff: missing %s", name)
	}
	v, err := f.uint()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func optionalUint(fields map[uint16]*field, tag uint16, def int) (int, error) {
	f, ok := fields[tag]
	if !ok {
		return def, nil
	}
	v, err := f.uint()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func parseLayout(fields map[uint16]*field) (*layout, error) {
	var l layout
	var err error

	if l.width, err = requireUint(fields, tagImageWidth, "ImageWidth"); err != nil {
		return nil, err
	}
	if l.height, err = requireUint(fields, tagImageLength, "ImageLength"); err != nil {
		return nil, err
	}
	if l.width <= 0 || l.height <= 0 {
		return nil, fmt.Errorf("geotiff: invalid dimensions %dx%d", l.width, l.height)
	}
	if l.spp, err = optionalUint(fields, tagSamplesPerPixel, 1); err != nil {
		return nil, err
	}
	if l.spp < 1 {
		return nil, fmt.Errorf("geotiff: no bands")
	}
	if l.spp > maxBands || tooLarge(l.width, l.height, l.spp) {
		return nil, fmt.Errorf("%w: %dx%d image with %d bands", ErrUnsupported, l.width, l.height, l.spp)
	}
	if l.compression, err = optionalUint(fields, tagCompression, CompressionNone); err != nil {
		return nil, err
	}
	if l.predictor, err = optionalUint(fields, tagPredictor, predictorNone); err != nil {
		return nil, err
	}
	if l.planar, err = optionalUint(fields, tagPlanarConfiguration, 1); err != nil {
		return nil, err
	}
	l.planes, l.chunkSpp = 1, l.spp
	switch l.planar {
	case 1:
	case 2:
		l.planes, l.chunkSpp = l.spp, 1
	default:
		return nil, fmt.Errorf("%w: planar configuration %d", ErrUnsupported, l.planar)
	}

	l.bits = 1
	if f, ok := fields[tagBitsPerSample]; ok {
		bits, err := f.uints()
		if err != nil {
			return nil, err
		}
		if len(bits) == 0 {
			return nil, fmt.Errorf("geotiff: empty BitsPerSample")
		}
		for _, b := range bits[1:] {
			if b != bits[0] {
				return nil, fmt.Errorf("%w: mixed bits per sample", ErrUnsupported)
			}
		}
		l.bits = int(bits[0])
	}
	switch l.bits {
	case 8, 16, 32, 64:
	default:
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupported, l.bits)
	}

	l.format = sampleFormatUint
	if f, ok := fields[tagSampleFormat]; ok {
		v, err := f.uint()
		if err != nil {
			return nil, err
		}
		l.format = int(v)
	}
	if l.format == sampleFormatFloat && l.bits != 32 && l.bits != 64 {
		return nil, fmt.Errorf("%w: %d-bit float", ErrUnsupported, l.bits)
	}

	offTag, countTag := uint16(tagStripOffsets), uint16(tagStripByteCounts)
	if _, ok := fields[tagTileWidth]; ok {
		l.tiled = true
		offTag, countTag = tagTileOffsets, tagTileByteCounts
		if l.chunkW, err = requireUint(fields, tagTileWidth, "TileWidth"); err != nil {
			return nil, err
		}
		if l.chunkH, err = requireUint(fields, tagTileLength, "TileLength"); err != nil {
			return nil, err
		}
	} else {
		l.chunkW = l.width
		if l.chunkH, err = optionalUint(fields, tagRowsPerStrip, l.height); err != nil {
			return nil, err
		}
		if l.chunkH > l.height {
			l.chunkH = l.height
		}
	}
	if l.chunkW <= 0 || l.chunkH <= 0 {
		return nil, fmt.Errorf("geotiff: invalid chunk size %dx%d", l.chunkW, l.chunkH)
	}
	if tooLarge(l.chunkW, l.chunkH, l.chunkSpp) {
		return nil, fmt.Errorf("%w: %dx%d chunk", ErrUnsupported, l.chunkW, l.chunkH)
	}
	l.across = (l.width + l.chunkW - 1) / l.chunkW
	l.down = (l.height + l.chunkH - 1) / l.chunkH

	offs, ok := fields[offTag]
	if !ok {
		return nil, fmt.Errorf("geotiff: missing data offsets")
	}
	counts, ok := fields[countTag]
	if !ok {
		return nil, fmt.Errorf("geotiff: missing data byte counts")
	}
	if l.offsets, err = offs.uints(); err != nil {
		return nil, err
	}
	if l.counts, err = counts.uints(); err != nil {
		return nil, err
	}
	if len(l.offsets) != len(l.counts) {
		return nil, fmt.Errorf("geotiff: %d offsets but %d byte counts", len(l.offsets), len(l.counts))
	}
	if need := l.across * l.down * l.planes; len(l.offsets) < need {
		return nil, fmt.Errorf("geotiff: expected %d chunks, found %d", need, len(l.offsets))
	}

	return &l, nil
}

func parseGeoInfo(fields map[uint16]*field) GeoInfo {
	var g GeoInfo

	scale, okScale := fields[tagModelPixelScale]
	tie, okTie := fields[tagModelTiepoint]
	if okScale && okTie {
		s, err1 := scale.floats()
		t, err2 := tie.floats()
		if err1 == nil && err2 == nil && len(s) >= 2 && len(t) >= 6 {
			g.PixelScaleX, g.PixelScaleY = s[0], s[1]
			g.TiepointI, g.TiepointJ = t[0], t[1]
			g.TiepointX, g.TiepointY = t[3], t[4]
			g.HasGeoreference = true
		}
	}

	if f, ok := fields[tagGDALNoData]; ok {
		s := strings.TrimSpace(f.ascii())
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			g.NoData = v
			g.HasNoData = true
		}
	}

	return g
}

// checkChunks verifies every chunk lies inside data. Uncompressed chunks must
// also hold a full chunk of samples.
func checkChunks(data []byte, l *layout) error {
	size := uint64(len(data))
	perPlane := l.across * l.down
	for idx := 0; idx < perPlane*l.planes; idx++ {
		off, n := l.offsets[idx], l.counts[idx]
		if n > size || off > size-n {
			return fmt.Errorf("geotiff: chunk %d at [%d+%d] exceeds file size %d", idx, off, n, size)
		}
		if l.compression == CompressionNone {
			rows, rowLen := l.chunkBytes((idx % perPlane) / l.across)
			if n < uint64(rows)*uint64(rowLen) {
				return fmt.Errorf("geotiff: chunk %d truncated: have %d bytes, need %d", idx, n, rows*rowLen)
			}
		}
	}
	return nil
}

// decodeSamples decodes every chunk and scatters samples into per-band slices.
func decodeSamples(data []byte, bo binary.ByteOrder, l *layout) ([][]float32, error) {
	if err := checkChunks(data, l); err != nil {
		return nil, err
	}

	bands := make([][]float32, l.spp)
	for b := range bands {
		bands[b] = make([]float32, l.width*l.height)
	}

	perPlane := l.across * l.down
	bps := l.bits / 8
	for plane := 0; plane < l.planes; plane++ {
		for c := 0; c < perPlane; c++ {
			idx := plane*perPlane + c
			cx, cy := c%l.across, c/l.across
			rows, rowLen := l.chunkBytes(cy)

			raw, err := readChunk(data, l, idx, rows*rowLen)
			if err != nil {
				return nil, fmt.Errorf("geotiff: chunk %d: %w", idx, err)
			}

			sampleOrder := bo
			switch l.predictor {
			case predictorNone:
			case predictorHorizontal:
				undoHorizontal(raw, rows, rowLen, l.chunkSpp, bps, bo)
			case predictorFloatingPoint:
				undoFloatingPoint(raw, rows, rowLen, l.chunkSpp, bps)
				sampleOrder = binary.BigEndian
			default:
				return nil, fmt.Errorf("%w: predictor %d", ErrUnsupported, l.predictor)
			}

			for y := 0; y < rows; y++ {
				py := cy*l.chunkH + y
				if py >= l.height {
					break
				}
				for x := 0; x < l.chunkW; x++ {
					px := cx*l.chunkW + x
					if px >= l.width {
						break
					}
					for s := 0; s < l.chunkSpp; s++ {
						off := y*rowLen + (x*l.chunkSpp+s)*bps
						band := s
						if l.planes > 1 {
							band = plane
						}
						bands[band][py*l.width+px] = sampleValue(raw[off:off+bps], sampleOrder, l.format, l.bits)
					}
				}
			}
		}
	}

	return bands, nil
}

// readChunk returns at least want decompressed bytes for chunk idx.
func readChunk(data []byte, l *layout, idx, want int) ([]byte, error) {
	off, n := l.offsets[idx], l.counts[idx]
	if n > uint64(len(data)) || off > uint64(len(data))-n {
		return nil, fmt.Errorf("data [%d+%d] exceeds file size %d", off, n, len(data))
	}
	src := data[off : off+n]

	var out []byte
	switch l.compression {
	case CompressionNone:
		out = make([]byte, len(src))
		copy(out, src)
	case CompressionLZW:
		r := lzw.NewReader(bytes.NewReader(src), lzw.MSB, 8)
		defer r.Close()
		b, err := io.ReadAll(io.LimitReader(r, int64(want)))
		if err != nil && len(b) < want {
			return nil, fmt.Errorf("lzw: %w", err)
		}
		out = b
	case CompressionDeflate, CompressionDeflateAlt:
		r, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer r.Close()
		out, err = io.ReadAll(io.LimitReader(r, int64(want)))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, l.compression)
	}

	if len(out) < want {
		return nil, fmt.Errorf("truncated: have %d bytes, need %d", len(out), want)
	}
	return out[:want], nil
}

func sampleValue(b []byte, bo binary.ByteOrder, format, bits int) float32 {
	switch format {
	case sampleFormatFloat:
		if bits == 64 {
			return float32(math.Float64frombits(bo.Uint64(b)))
		}
		return math.Float32frombits(bo.Uint32(b))
	case sampleFormatInt:
		switch bits {
		case 8:
			return float32(int8(b[0]))
		case 16:
			return float32(int16(bo.Uint16(b)))
		case 32:
			return float32(int32(bo.Uint32(b)))
		default:
			return float32(int64(bo.Uint64(b)))
		}
	default:
		switch bits {
		case 8:
			return float32(b[0])
		case 16:
			return float32(bo.Uint16(b))
		case 32:
			return float32(bo.Uint32(b))
		default:
			return float32(bo.Uint64(b))
		}
	}
}

// undoHorizontal reverses integer horizontal differencing in place.
func undoHorizontal(raw []byte, rows, rowLen, spp, bps int, bo binary.ByteOrder) {
	for y := 0; y < rows; y++ {
		row := raw[y*rowLen : (y+1)*rowLen]
		for i := spp * bps; i+bps <= len(row); i += bps {
			prev := i - spp*bps
			switch bps {
			case 1:
				row[i] += row[prev]
			case 2:
				bo.PutUint16(row[i:], bo.Uint16(row[i:])+bo.Uint16(row[prev:]))
			case 4:
				bo.PutUint32(row[i:], bo.Uint32(row[i:])+bo.Uint32(row[prev:]))
			case 8:
				bo.PutUint64(row[i:], bo.Uint64(row[i:])+bo.Uint64(row[prev:]))
			}
		}
	}
}

// undoFloatingPoint reverses the floating point predictor. Each row is left
// holding big-endian samples.
func undoFloatingPoint(raw []byte, rows, rowLen, spp, bps int) {
	tmp := make([]byte, rowLen)
	wc := rowLen / bps
	for y := 0; y < rows; y++ {
		row := raw[y*rowLen : (y+1)*rowLen]
		for i := spp; i < len(row); i++ {
			row[i] += row[i-spp]
		}
		copy(tmp, row)
		for k := 0; k < wc; k++ {
			for j := 0; j < bps; j++ {
				row[k*bps+j] = tmp[j*wc+k]
			}
		}
	}
}

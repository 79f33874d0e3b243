package volume

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"headcirc/internal/models"
)

// nrrdHeader collects the header fields needed to decode a 3D NRRD
// volume. Fields the decoder does not interpret (kinds, space, units)
// are skipped.
type nrrdHeader struct {
	typ       string
	dimension int
	sizes     []int
	spacings  []float64
	origin    [3]float64
	encoding  string
	byteOrder binary.ByteOrder
}

// loadNRRD reads an attached-data NRRD file with raw or gzip encoding.
func loadNRRD(path string) (*models.Volume, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "open", Err: err}
	}
	defer f.Close()

	r := bufio.NewReader(f)
	hdr, err := parseNRRDHeader(r)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "parse nrrd header", Err: err}
	}

	data, err := readNRRDData(r, hdr)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "read nrrd data", Err: err}
	}

	return &models.Volume{
		Data:     data,
		NX:       hdr.sizes[0],
		NY:       hdr.sizes[1],
		NZ:       hdr.sizes[2],
		SpacingX: hdr.spacings[0],
		SpacingY: hdr.spacings[1],
		SpacingZ: hdr.spacings[2],
		OriginX:  hdr.origin[0],
		OriginY:  hdr.origin[1],
		OriginZ:  hdr.origin[2],
		Format:   "nrrd",
	}, nil
}

func parseNRRDHeader(r *bufio.Reader) (*nrrdHeader, error) {
	magic, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	magic = strings.TrimRight(magic, "\r\n")
	if !strings.HasPrefix(magic, "NRRD") {
		return nil, fmt.Errorf("not an NRRD file (magic %q)", magic)
	}

	hdr := &nrrdHeader{
		dimension: -1,
		encoding:  "raw",
		byteOrder: binary.LittleEndian,
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return nil, fmt.Errorf("header ends before data section")
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			// Blank line separates header from data.
			break
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.Contains(line, ":=") {
			// Key/value pairs carry annotations, not geometry.
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if err := hdr.setField(name, value); err != nil {
			return nil, err
		}
	}

	return hdr, hdr.validate()
}

func (h *nrrdHeader) setField(name, value string) error {
	switch name {
	case "type":
		typ, err := normalizeNRRDType(value)
		if err != nil {
			return err
		}
		h.typ = typ
	case "dimension":
		d, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("dimension %q: %w", value, err)
		}
		h.dimension = d
	case "sizes":
		for _, f := range strings.Fields(value) {
			n, err := strconv.Atoi(f)
			if err != nil {
				return fmt.Errorf("sizes %q: %w", value, err)
			}
			h.sizes = append(h.sizes, n)
		}
	case "spacings":
		for _, f := range strings.Fields(value) {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("spacings %q: %w", value, err)
			}
			h.spacings = append(h.spacings, v)
		}
	case "space directions":
		spacings, err := parseNRRDDirections(value)
		if err != nil {
			return err
		}
		h.spacings = spacings
	case "space origin":
		vec, err := parseNRRDVector(value)
		if err != nil {
			return err
		}
		if len(vec) != 3 {
			return fmt.Errorf("space origin %q: want 3 components", value)
		}
		copy(h.origin[:], vec)
	case "endian":
		switch value {
		case "little":
			h.byteOrder = binary.LittleEndian
		case "big":
			h.byteOrder = binary.BigEndian
		default:
			return fmt.Errorf("unsupported endian %q", value)
		}
	case "encoding":
		switch value {
		case "raw", "gzip", "gz":
			h.encoding = value
		default:
			return fmt.Errorf("unsupported encoding %q", value)
		}
	case "data file", "datafile":
		return fmt.Errorf("detached data files are not supported")
	}
	return nil
}

func (h *nrrdHeader) validate() error {
	if h.typ == "" {
		return fmt.Errorf("missing type field")
	}
	if h.dimension == -1 {
		return fmt.Errorf("missing dimension field")
	}
	if h.dimension != 3 {
		return fmt.Errorf("unsupported dimension %d (only 3-D volumes)", h.dimension)
	}
	if len(h.sizes) != 3 {
		return fmt.Errorf("sizes has %d entries, want 3", len(h.sizes))
	}
	for _, n := range h.sizes {
		if n < 1 {
			return fmt.Errorf("invalid sizes %v", h.sizes)
		}
	}
	switch len(h.spacings) {
	case 0:
		// No spacing metadata at all: fall back to unit voxels, the
		// same default scan readers apply.
		h.spacings = []float64{1, 1, 1}
	case 3:
		for _, s := range h.spacings {
			if !(s > 0) || math.IsInf(s, 0) {
				return fmt.Errorf("invalid spacings %v", h.spacings)
			}
		}
	default:
		return fmt.Errorf("spacings has %d entries, want 3", len(h.spacings))
	}
	return nil
}

// parseNRRDDirections converts a "space directions" field into per-axis
// spacings by taking each direction vector's length.
func parseNRRDDirections(value string) ([]float64, error) {
	fields := strings.Fields(value)
	spacings := make([]float64, 0, len(fields))
	for _, f := range fields {
		if f == "none" {
			return nil, fmt.Errorf("space directions %q: non-domain axes are not supported", value)
		}
		vec, err := parseNRRDVector(f)
		if err != nil {
			return nil, fmt.Errorf("space directions %q: %w", value, err)
		}
		var norm float64
		for _, c := range vec {
			norm += c * c
		}
		spacings = append(spacings, math.Sqrt(norm))
	}
	return spacings, nil
}

func parseNRRDVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("malformed vector %q", s)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("malformed vector %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func normalizeNRRDType(s string) (string, error) {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	switch s {
	case "signed char", "int8", "int8_t":
		return "int8", nil
	case "uchar", "unsigned char", "uint8", "uint8_t":
		return "uint8", nil
	case "short", "short int", "signed short", "signed short int", "int16", "int16_t":
		return "int16", nil
	case "ushort", "unsigned short", "unsigned short int", "uint16", "uint16_t":
		return "uint16", nil
	case "int", "signed int", "int32", "int32_t":
		return "int32", nil
	case "uint", "unsigned int", "uint32", "uint32_t":
		return "uint32", nil
	case "longlong", "long long", "long long int", "signed long long", "signed long long int", "int64", "int64_t":
		return "int64", nil
	case "ulonglong", "unsigned long long", "unsigned long long int", "uint64", "uint64_t":
		return "uint64", nil
	case "float":
		return "float", nil
	case "double":
		return "double", nil
	default:
		return "", fmt.Errorf("unsupported nrrd type %q", s)
	}
}

func nrrdElemSize(typ string) int {
	switch typ {
	case "int8", "uint8":
		return 1
	case "int16", "uint16":
		return 2
	case "int32", "uint32", "float":
		return 4
	default:
		return 8
	}
}

func readNRRDData(r io.Reader, hdr *nrrdHeader) ([]float32, error) {
	n := hdr.sizes[0] * hdr.sizes[1] * hdr.sizes[2]

	src := r
	if hdr.encoding == "gzip" || hdr.encoding == "gz" {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	buf := make([]byte, n*nrrdElemSize(hdr.typ))
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, fmt.Errorf("pixel data: %w", err)
	}

	return convertNRRDValues(buf, hdr.typ, hdr.byteOrder, n), nil
}

// convertNRRDValues reinterprets the raw bytes as the declared element
// type. NRRD stores the fastest axis first, which matches the volume's
// x-fastest layout, so elements map to voxels one to one.
func convertNRRDValues(buf []byte, typ string, order binary.ByteOrder, n int) []float32 {
	out := make([]float32, n)
	switch typ {
	case "uint8":
		for i := 0; i < n; i++ {
			out[i] = float32(buf[i])
		}
	case "int8":
		for i := 0; i < n; i++ {
			out[i] = float32(int8(buf[i]))
		}
	case "uint16":
		for i := 0; i < n; i++ {
			out[i] = float32(order.Uint16(buf[2*i:]))
		}
	case "int16":
		for i := 0; i < n; i++ {
			out[i] = float32(int16(order.Uint16(buf[2*i:])))
		}
	case "uint32":
		for i := 0; i < n; i++ {
			out[i] = float32(order.Uint32(buf[4*i:]))
		}
	case "int32":
		for i := 0; i < n; i++ {
			out[i] = float32(int32(order.Uint32(buf[4*i:])))
		}
	case "uint64":
		for i := 0; i < n; i++ {
			out[i] = float32(order.Uint64(buf[8*i:]))
		}
	case "int64":
		for i := 0; i < n; i++ {
			out[i] = float32(int64(order.Uint64(buf[8*i:])))
		}
	case "float":
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(order.Uint32(buf[4*i:]))
		}
	case "double":
		for i := 0; i < n; i++ {
			out[i] = float32(math.Float64frombits(order.Uint64(buf[8*i:])))
		}
	}
	return out
}

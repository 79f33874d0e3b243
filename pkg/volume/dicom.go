package volume

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"headcirc/internal/models"
)

// dicomSlice is one decoded frame plus the geometry tags needed to
// stack it into a volume.
type dicomSlice struct {
	pixels []float32
	cols   int
	rows   int

	// sx is the column spacing, sy the row spacing. DICOM PixelSpacing
	// stores them the other way around: row spacing first.
	sx, sy float64

	// z is the slice position along the scan axis, taken from
	// ImagePositionPatient.
	z    float64
	hasZ bool

	instance int

	pos    [3]float64
	hasPos bool

	// step is the between-slice spacing declared by the file, from
	// SpacingBetweenSlices or SliceThickness.
	step    float64
	hasStep bool

	series string
}

// loadDICOMDir stacks every .dcm/.dicom file in dir into one volume.
func loadDICOMDir(dir string) (*models.Volume, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{Path: dir, Reason: "read directory", Err: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		if strings.HasSuffix(name, ".dcm") || strings.HasSuffix(name, ".dicom") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, &LoadError{Path: dir, Reason: "no dicom files in directory"}
	}
	sort.Strings(files)

	var slices []dicomSlice
	for _, f := range files {
		ss, err := decodeDICOMFile(f)
		if err != nil {
			return nil, err
		}
		slices = append(slices, ss...)
	}
	return stackDICOMSlices(dir, slices)
}

// loadDICOMFile reads a single DICOM file, which may hold one frame or
// a multi-frame stack.
func loadDICOMFile(path string) (*models.Volume, error) {
	slices, err := decodeDICOMFile(path)
	if err != nil {
		return nil, err
	}
	return stackDICOMSlices(path, slices)
}

func decodeDICOMFile(path string) ([]dicomSlice, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "parse dicom", Err: err}
	}

	rows, ok := dsInt(ds, tag.Rows)
	if !ok {
		return nil, &LoadError{Path: path, Reason: "missing Rows tag"}
	}
	cols, ok := dsInt(ds, tag.Columns)
	if !ok {
		return nil, &LoadError{Path: path, Reason: "missing Columns tag"}
	}

	// PixelSpacing is [row spacing, column spacing]; fall back to unit
	// pixels when absent.
	sx, sy := 1.0, 1.0
	if ps, ok := dsFloats(ds, tag.PixelSpacing); ok && len(ps) == 2 {
		sy, sx = ps[0], ps[1]
	}

	proto := dicomSlice{cols: cols, rows: rows, sx: sx, sy: sy}
	if n, ok := dsInt(ds, tag.InstanceNumber); ok {
		proto.instance = n
	}
	if pos, ok := dsFloats(ds, tag.ImagePositionPatient); ok && len(pos) == 3 {
		copy(proto.pos[:], pos)
		proto.z = pos[2]
		proto.hasZ = true
		proto.hasPos = true
	}
	if v, ok := dsFloat(ds, tag.SpacingBetweenSlices); ok && v > 0 {
		proto.step, proto.hasStep = v, true
	} else if v, ok := dsFloat(ds, tag.SliceThickness); ok && v > 0 {
		proto.step, proto.hasStep = v, true
	}
	if uid, ok := dsStrings(ds, tag.SeriesInstanceUID); ok && len(uid) > 0 {
		proto.series = uid[0]
	}

	el, err := ds.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "missing pixel data", Err: err}
	}
	info := dicom.MustGetPixelDataInfo(el.Value)
	if info.IsEncapsulated {
		return nil, &LoadError{Path: path, Reason: "encapsulated pixel data is not supported"}
	}
	if len(info.Frames) == 0 {
		return nil, &LoadError{Path: path, Reason: "pixel data has no frames"}
	}

	out := make([]dicomSlice, 0, len(info.Frames))
	for i := range info.Frames {
		img, err := info.Frames[i].GetImage()
		if err != nil {
			return nil, &LoadError{Path: path, Reason: fmt.Sprintf("decode frame %d", i), Err: err}
		}
		px, err := grayPixels(img, cols, rows)
		if err != nil {
			return nil, &LoadError{Path: path, Reason: fmt.Sprintf("frame %d", i), Err: err}
		}
		sl := proto
		sl.pixels = px
		if len(info.Frames) > 1 {
			// Multi-frame files are already ordered; positions apply
			// only to the stack as a whole.
			sl.instance = i
			sl.hasZ = false
		}
		out = append(out, sl)
	}
	return out, nil
}

func stackDICOMSlices(path string, slices []dicomSlice) (*models.Volume, error) {
	if len(slices) == 0 {
		return nil, &LoadError{Path: path, Reason: "no image frames"}
	}

	first := slices[0]
	for _, s := range slices[1:] {
		if s.cols != first.cols || s.rows != first.rows {
			return nil, &LoadError{Path: path, Reason: fmt.Sprintf(
				"inconsistent slice dimensions %dx%d vs %dx%d", s.cols, s.rows, first.cols, first.rows)}
		}
		if !nearlyEqual(s.sx, first.sx) || !nearlyEqual(s.sy, first.sy) {
			return nil, &LoadError{Path: path, Reason: "inconsistent pixel spacing across slices"}
		}
		if s.series != "" && first.series != "" && s.series != first.series {
			return nil, &LoadError{Path: path, Reason: "directory mixes multiple series"}
		}
	}

	sortDICOMSlices(slices)

	sz, err := sliceStep(slices)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "slice spacing", Err: err}
	}

	nx, ny, nz := first.cols, first.rows, len(slices)
	vol := &models.Volume{
		Data:     make([]float32, nx*ny*nz),
		NX:       nx,
		NY:       ny,
		NZ:       nz,
		SpacingX: first.sx,
		SpacingY: first.sy,
		SpacingZ: sz,
		Format:   "dicom",
	}
	if slices[0].hasPos {
		vol.OriginX = slices[0].pos[0]
		vol.OriginY = slices[0].pos[1]
		vol.OriginZ = slices[0].pos[2]
	}
	for z, s := range slices {
		copy(vol.Data[z*nx*ny:(z+1)*nx*ny], s.pixels)
	}
	return vol, nil
}

// sortDICOMSlices orders slices by physical position when every slice
// carries one, otherwise by instance number.
func sortDICOMSlices(slices []dicomSlice) {
	byZ := true
	for _, s := range slices {
		if !s.hasZ {
			byZ = false
			break
		}
	}
	sort.SliceStable(slices, func(i, j int) bool {
		if byZ {
			return slices[i].z < slices[j].z
		}
		return slices[i].instance < slices[j].instance
	})
}

// sliceStep derives the between-slice spacing. Sorted positions win
// over declared tags; with neither, unit spacing is assumed.
func sliceStep(slices []dicomSlice) (float64, error) {
	byZ := len(slices) >= 2
	for _, s := range slices {
		if !s.hasZ {
			byZ = false
			break
		}
	}
	if byZ {
		step := slices[1].z - slices[0].z
		if step == 0 {
			return 0, fmt.Errorf("duplicate slice positions")
		}
		for i := 2; i < len(slices); i++ {
			d := slices[i].z - slices[i-1].z
			if math.Abs(d-step) > 0.01*math.Abs(step)+1e-9 {
				return 0, fmt.Errorf("inconsistent gaps between slice positions (%g vs %g)", d, step)
			}
		}
		return math.Abs(step), nil
	}
	if slices[0].hasStep {
		return slices[0].step, nil
	}
	return 1, nil
}

// grayPixels flattens a decoded frame into row-major float32 pixels.
func grayPixels(img image.Image, cols, rows int) ([]float32, error) {
	b := img.Bounds()
	if b.Dx() != cols || b.Dy() != rows {
		return nil, fmt.Errorf("frame is %dx%d but tags say %dx%d", b.Dx(), b.Dy(), cols, rows)
	}

	out := make([]float32, cols*rows)
	if g, ok := img.(*image.Gray16); ok {
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				out[x+y*cols] = float32(g.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
		return out, nil
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			out[x+y*cols] = float32(c.Y)
		}
	}
	return out, nil
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*(1+math.Abs(a)+math.Abs(b))
}

func dsInt(ds dicom.Dataset, t tag.Tag) (int, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return 0, false
	}
	switch v := el.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0], true
		}
	case []string:
		if len(v) > 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(v[0])); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func dsStrings(ds dicom.Dataset, t tag.Tag) ([]string, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return nil, false
	}
	v, ok := el.Value.GetValue().([]string)
	return v, ok && len(v) > 0
}

func dsFloats(ds dicom.Dataset, t tag.Tag) ([]float64, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil || el == nil {
		return nil, false
	}
	switch v := el.Value.GetValue().(type) {
	case []float64:
		return v, len(v) > 0
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, len(out) > 0
	case []string:
		out := make([]float64, 0, len(v))
		for _, s := range v {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, false
			}
			out = append(out, f)
		}
		return out, len(out) > 0
	}
	return nil, false
}

func dsFloat(ds dicom.Dataset, t tag.Tag) (float64, bool) {
	vals, ok := dsFloats(ds, t)
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

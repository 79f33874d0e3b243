package volume

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headcirc/internal/models"
)

func writeFixture(t *testing.T, name string, b []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

// rawNRRD builds a 4x3x2 uint8 volume whose voxel value encodes its
// flat position, so layout mistakes show up as wrong intensities.
func rawNRRD() []byte {
	var buf bytes.Buffer
	buf.WriteString("NRRD0004\n")
	buf.WriteString("# synthetic fixture\n")
	buf.WriteString("type: uint8\n")
	buf.WriteString("dimension: 3\n")
	buf.WriteString("sizes: 4 3 2\n")
	buf.WriteString("spacings: 0.5 1 2\n")
	buf.WriteString("encoding: raw\n")
	buf.WriteString("\n")
	for i := 0; i < 24; i++ {
		buf.WriteByte(byte(i))
	}
	return buf.Bytes()
}

func TestLoadNRRDRaw(t *testing.T) {
	path := writeFixture(t, "head.nrrd", rawNRRD())

	s := NewStore()
	vol, err := s.Load(path)
	require.NoError(t, err)

	nx, ny, nz := vol.Dimensions()
	assert.Equal(t, [3]int{4, 3, 2}, [3]int{nx, ny, nz})

	sx, sy, sz := vol.Spacing()
	assert.Equal(t, [3]float64{0.5, 1, 2}, [3]float64{sx, sy, sz})
	assert.Equal(t, "nrrd", vol.Format)

	// The fastest axis in the file is x, so voxel (x,y,z) holds
	// x + 4y + 12z.
	got, err := vol.IntensityAt(1, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(1+4*2+12*1), got)

	got, err = s.IntensityAt(3, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(3), got)
}

func TestLoadNRRDGzipDirections(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NRRD0004\n")
	buf.WriteString("type: float\n")
	buf.WriteString("dimension: 3\n")
	buf.WriteString("sizes: 2 2 2\n")
	buf.WriteString("space directions: (0.5,0,0) (0,0.25,0) (0,0,2)\n")
	buf.WriteString("space origin: (1,2,3)\n")
	buf.WriteString("endian: little\n")
	buf.WriteString("encoding: gzip\n")
	buf.WriteString("\n")

	vals := []float32{0, 1, 2, 3, 4, 5, 6, 7}
	gz := gzip.NewWriter(&buf)
	require.NoError(t, binary.Write(gz, binary.LittleEndian, vals))
	require.NoError(t, gz.Close())

	path := writeFixture(t, "head.nrrd", buf.Bytes())

	vol, err := NewStore().Load(path)
	require.NoError(t, err)

	sx, sy, sz := vol.Spacing()
	assert.InDelta(t, 0.5, sx, 1e-12)
	assert.InDelta(t, 0.25, sy, 1e-12)
	assert.InDelta(t, 2.0, sz, 1e-12)
	assert.Equal(t, [3]float64{1, 2, 3}, [3]float64{vol.OriginX, vol.OriginY, vol.OriginZ})
	assert.Equal(t, float32(7), vol.At(1, 1, 1))
}

func TestLoadNRRDBigEndian(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NRRD0004\n")
	buf.WriteString("type: unsigned short\n")
	buf.WriteString("dimension: 3\n")
	buf.WriteString("sizes: 2 1 1\n")
	buf.WriteString("endian: big\n")
	buf.WriteString("encoding: raw\n")
	buf.WriteString("\n")
	require.NoError(t, binary.Write(&buf, binary.BigEndian, []uint16{256, 513}))

	vol, err := NewStore().Load(writeFixture(t, "be.nrrd", buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, float32(256), vol.At(0, 0, 0))
	assert.Equal(t, float32(513), vol.At(1, 0, 0))

	// No spacing metadata at all falls back to unit voxels.
	sx, sy, sz := vol.Spacing()
	assert.Equal(t, [3]float64{1, 1, 1}, [3]float64{sx, sy, sz})
}

func TestLoadNRRDMalformed(t *testing.T) {
	cases := map[string]string{
		"bad magic":      "NOPE0001\ntype: uint8\ndimension: 3\nsizes: 1 1 1\nencoding: raw\n\nx",
		"bad dimension":  "NRRD0004\ntype: uint8\ndimension: 4\nsizes: 1 1 1 1\nencoding: raw\n\nx",
		"missing type":   "NRRD0004\ndimension: 3\nsizes: 1 1 1\nencoding: raw\n\nx",
		"bad encoding":   "NRRD0004\ntype: uint8\ndimension: 3\nsizes: 1 1 1\nencoding: hex\n\nx",
		"detached data":  "NRRD0004\ntype: uint8\ndimension: 3\nsizes: 1 1 1\nencoding: raw\ndata file: other.raw\n\n",
		"truncated data": "NRRD0004\ntype: uint16\ndimension: 3\nsizes: 2 2 2\nencoding: raw\n\nxx",
		"zero spacing":   "NRRD0004\ntype: uint8\ndimension: 3\nsizes: 1 1 1\nspacings: 0 1 1\nencoding: raw\n\nx",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFixture(t, "bad.nrrd", []byte(contents))
			_, err := NewStore().Load(path)
			var le *LoadError
			require.ErrorAs(t, err, &le, "want LoadError, got %v", err)
			assert.Equal(t, path, le.Path)
		})
	}
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()

	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNoVolume)
	if _, _, _, err := s.Dimensions(); !errors.Is(err, ErrNoVolume) {
		t.Errorf("Dimensions before load: %v, want ErrNoVolume", err)
	}
	if _, _, _, err := s.Spacing(); !errors.Is(err, ErrNoVolume) {
		t.Errorf("Spacing before load: %v, want ErrNoVolume", err)
	}
	if _, err := s.IntensityAt(0, 0, 0); !errors.Is(err, ErrNoVolume) {
		t.Errorf("IntensityAt before load: %v, want ErrNoVolume", err)
	}
	assert.EqualValues(t, 0, s.Generation())

	path := writeFixture(t, "head.nrrd", rawNRRD())
	first, err := s.Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.Generation())
	assert.Equal(t, path, first.SourcePath)

	// Reloading the same file yields a fresh volume identity.
	second, err := s.Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.Generation())
	assert.NotEqual(t, first.ID, second.ID)

	cur, err := s.Current()
	require.NoError(t, err)
	assert.Same(t, second, cur)

	// A failed load must not disturb the active volume.
	_, err = s.Load(filepath.Join(t.TempDir(), "missing.nrrd"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.EqualValues(t, 2, s.Generation())
	cur, err = s.Current()
	require.NoError(t, err)
	assert.Same(t, second, cur)

	// Voxel reads outside the grid report the offending coordinate.
	_, err = s.IntensityAt(4, 0, 0)
	var oor *models.OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 4, oor.X)
}

func TestLoadUnsupportedFormat(t *testing.T) {
	path := writeFixture(t, "head.txt", []byte("not a scan"))
	_, err := NewStore().Load(path)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Reason, "unsupported")
}

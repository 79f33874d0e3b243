package measure

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"headcirc/internal/models"
)

func TestLengthClosedRectangle(t *testing.T) {
	// Boundary of a 3x2 pixel block, traced clockwise.
	c := models.Contour{
		{U: 1, V: 1}, {U: 2, V: 1}, {U: 3, V: 1},
		{U: 3, V: 2}, {U: 2, V: 2}, {U: 1, V: 2},
	}

	got := Length(c, 2, 3)
	assert.InDelta(t, 14.0, got, 1e-12)
}

func TestLengthAnisotropicDiagonal(t *testing.T) {
	// One diagonal hop out and back: 2 * hypot(1*3, 1*4).
	c := models.Contour{{U: 0, V: 0}, {U: 1, V: 1}}

	got := Length(c, 3, 4)
	assert.InDelta(t, 10.0, got, 1e-12)
}

func TestLengthDegenerateContours(t *testing.T) {
	assert.Zero(t, Length(nil, 1, 1))
	assert.Zero(t, Length(models.Contour{}, 1, 1))
	assert.Zero(t, Length(models.Contour{{U: 4, V: 7}}, 1, 1))
}

func TestLengthScalesWithSpacing(t *testing.T) {
	c := models.Contour{
		{U: 0, V: 0}, {U: 4, V: 0}, {U: 4, V: 2}, {U: 0, V: 2},
	}

	base := Length(c, 1, 1)
	doubled := Length(c, 2, 2)
	assert.InDelta(t, 2*base, doubled, 1e-12)
}

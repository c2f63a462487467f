package mot

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

// Rectangle is an axis-aligned box given by its top-left corner and size.
// Trackers in this package expect normalized image coordinates (0..1).
type Rectangle struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func NewRect(x, y, width, height float64) Rectangle {
	return Rectangle{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// Center returns the center point of rectangle
func (r Rectangle) Center() Point {
	return Point{
		X: r.X + r.Width/2.0,
		Y: r.Y + r.Height/2.0,
	}
}

// Area returns Width*Height
func (r Rectangle) Area() float64 {
	return r.Width * r.Height
}

// IsFinite reports whether every component is neither NaN nor infinite.
func (r Rectangle) IsFinite() bool {
	for _, v := range [4]float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clamped returns a copy with the origin moved to be non-negative and
// width/height raised to at least minSize.
func (r Rectangle) Clamped(minSize float64) Rectangle {
	return Rectangle{
		X:      maxFloat64(r.X, 0),
		Y:      maxFloat64(r.Y, 0),
		Width:  maxFloat64(r.Width, minSize),
		Height: maxFloat64(r.Height, minSize),
	}
}

// MarshalJSON encodes rectangle as [x, y, w, h]
func (r Rectangle) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X, r.Y, r.Width, r.Height})
}

// UnmarshalJSON decodes rectangle from [x, y, w, h]
func (r *Rectangle) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return errors.Wrap(err, "bbox must be an array of numbers")
	}
	if len(values) != 4 {
		return errors.Errorf("bbox must have exactly 4 elements, got %d", len(values))
	}
	*r = Rectangle{X: values[0], Y: values[1], Width: values[2], Height: values[3]}
	return nil
}

type Point struct {
	X float64
	Y float64
}

func euclideanDistance(p1, p2 Point) float64 {
	return math.Sqrt(math.Pow(float64(p1.X-p2.X), 2) + math.Pow(float64(p1.Y-p2.Y), 2))
}

// Velocity is a per-frame displacement in normalized image coordinates.
type Velocity struct {
	X float64
	Y float64
}

// Speed returns magnitude of velocity
func (v Velocity) Speed() float64 {
	return euclideanDistance(Point{}, Point{X: v.X, Y: v.Y})
}

// MarshalJSON encodes velocity as [vx, vy]
func (v Velocity) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{v.X, v.Y})
}

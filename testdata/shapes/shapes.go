package shapes

import (
	"fmt"
	"math"
)

// Named is implemented by everything with a display name.
type Named interface {
	Name() string
}

// Shape is a flat figure.
type Shape interface {
	Area() float64
	Name() string
}

// Solid extends Shape with a volume.
type Solid interface {
	Shape
	Volume() float64
}

// Base carries the identity shared by all shapes.
type Base struct {
	ID    string
	label string
}

func NewBase(id string) *Base {
	return &Base{ID: id, label: id}
}

func (b Base) Name() string { return b.label }

// Circle is a round Shape.
type Circle struct {
	Base
	Radius float64
}

func NewCircle(id string, r float64) *Circle {
	return &Circle{Base: *NewBase(id), Radius: r}
}

func (c *Circle) Area() float64 { return math.Pi * c.Radius * c.Radius }

// Color enumerates fill colors.
type Color int

const (
	Red Color = iota
	Green
)

func (c Color) String() string { return fmt.Sprintf("color(%d)", int(c)) }

// Legacy predates Shape.
//
// Deprecated: use Circle.
//
//go:generate echo legacy
type Legacy struct{}

type hidden struct{ n int }

func (h hidden) Area() float64 { return float64(h.n) }

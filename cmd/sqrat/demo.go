package main

import (
	"fmt"
	"math"
	"strings"

	"go.uber.org/multierr"

	sqrat "github.com/substring/sqrat/pkg/embed"
	"github.com/substring/sqrat/pkg/ext"
)

// Shape > Polygon > Square is the class hierarchy preloaded into the REPL.
type Shape struct {
	Name string
}

type Polygon struct {
	Shape
	Sides int
}

type Square struct {
	Polygon
	Side float64
}

func newSquare(side float64) *Square {
	return &Square{Polygon: Polygon{Shape: Shape{Name: "square"}, Sides: 4}, Side: side}
}

// bindDemo registers the demo classes and global overload families.
func bindDemo(v *sqrat.VM) error {
	shape, err := sqrat.BindClass[Shape](v, "Shape", nil)
	if err != nil {
		return err
	}
	polygon, err := sqrat.BindClass[Polygon](v, "Polygon", shape)
	if err != nil {
		return err
	}
	square, err := sqrat.BindClass[Square](v, "Square", polygon)
	if err != nil {
		return err
	}

	var errs error
	errs = multierr.Append(errs, shape.Constructor(
		func() *Shape { return &Shape{Name: "shape"} },
		func(name string) *Shape { return &Shape{Name: name} },
	))
	errs = multierr.Append(errs, polygon.Constructor(
		func(sides int) (*Polygon, error) {
			if sides < 3 {
				return nil, fmt.Errorf("a polygon needs at least 3 sides, got %d", sides)
			}
			return &Polygon{Shape: Shape{Name: "polygon"}, Sides: sides}, nil
		},
	))
	errs = multierr.Append(errs, square.Constructor(
		func() *Square { return newSquare(1) },
		func(side float64) *Square { return newSquare(side) },
	))

	errs = multierr.Append(errs, shape.Method("name",
		func(s *Shape) string { return s.Name },
	))
	errs = multierr.Append(errs, polygon.Method("sides",
		func(p *Polygon) int { return p.Sides },
	))
	errs = multierr.Append(errs, square.Method("area",
		func(s *Square) float64 { return s.Side * s.Side },
	))
	errs = multierr.Append(errs, square.Method("scale",
		func(s *Square, by float64) { s.Side *= by },
		func(s *Square, by int) { s.Side *= float64(by) },
	))

	errs = multierr.Append(errs, v.Overload("describe",
		func(s *Shape) string { return "shape " + s.Name },
		func(p *Polygon) string { return fmt.Sprintf("polygon with %d sides", p.Sides) },
		func(x int) string { return fmt.Sprintf("integer %d", x) },
		func(x float64) string { return fmt.Sprintf("float %g", x) },
		func(s string) string { return fmt.Sprintf("string %q", s) },
		func(xs []ext.Value) string { return fmt.Sprintf("array of %d", len(xs)) },
		func(t *ext.Table) string { return fmt.Sprintf("table of %d", t.Len()) },
		func(fn *ext.NativeClosure) string { return "native " + fn.Name },
	))
	errs = multierr.Append(errs, v.Overload("add",
		func(a, b int) int { return a + b },
		func(a, b float64) float64 { return a + b },
		func(a, b string) string { return a + b },
		func(a, b, c int) int { return a + b + c },
	))
	errs = multierr.Append(errs, v.Overload("repeat",
		func(s string, n int) string { return strings.Repeat(s, n) },
		func(s string) string { return s + s },
	))
	errs = multierr.Append(errs, v.Overload("hypot",
		func(a, b float64) float64 { return math.Hypot(a, b) },
	))
	errs = multierr.Append(errs, v.Bind("unit", func() *Square { return newSquare(1) }))

	// print is a raw native: it writes every argument and yields nothing.
	errs = multierr.Append(errs, v.Set("print", ext.NewNative("print", func(m *ext.VM) (int, error) {
		parts := make([]string, 0, m.Top())
		for i := 2; i <= m.Top(); i++ {
			val := m.Get(i)
			if s, ok := val.Obj.(*ext.String); ok {
				parts = append(parts, s.Value)
				continue
			}
			parts = append(parts, val.Inspect())
		}
		fmt.Println(strings.Join(parts, " "))
		return 0, nil
	})))
	return errs
}

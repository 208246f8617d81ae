package figure

import (
	"errors"
	"fmt"
)

var (
	ErrJointNotFound = errors.New("joint not found")
	ErrDuplicateID   = errors.New("duplicate joint id")
	ErrRootRemoval   = errors.New("root joint cannot be removed")
)

// ShapeKind selects how a joint is drawn.
type ShapeKind int

const (
	ShapeLine ShapeKind = iota
	ShapeCircle
	ShapeFilledCircle
	ShapeRectangle
	ShapeEllipse
	ShapeArc
)

var shapeNames = [...]string{
	ShapeLine:         "line",
	ShapeCircle:       "circle",
	ShapeFilledCircle: "filledCircle",
	ShapeRectangle:    "rectangle",
	ShapeEllipse:      "ellipse",
	ShapeArc:          "arc",
}

func (k ShapeKind) String() string {
	if int(k) < 0 || int(k) >= len(shapeNames) {
		return fmt.Sprintf("ShapeKind(%d)", int(k))
	}
	return shapeNames[k]
}

// ParseShapeKind is the inverse of ShapeKind.String.
func ParseShapeKind(s string) (ShapeKind, error) {
	if s == "" {
		return ShapeLine, nil
	}
	for k, name := range shapeNames {
		if name == s {
			return ShapeKind(k), nil
		}
	}
	return ShapeLine, fmt.Errorf("unknown shape type %q", s)
}

// Shape is a tagged union: WidthRatio is only meaningful for ShapeEllipse and
// SweepAngle only for ShapeArc.
type Shape struct {
	Kind       ShapeKind
	WidthRatio float64
	SweepAngle float64
}

func Line() Shape         { return Shape{Kind: ShapeLine} }
func Circle() Shape       { return Shape{Kind: ShapeCircle} }
func FilledCircle() Shape { return Shape{Kind: ShapeFilledCircle} }
func Rectangle() Shape    { return Shape{Kind: ShapeRectangle} }

func Ellipse(widthRatio float64) Shape {
	return Shape{Kind: ShapeEllipse, WidthRatio: widthRatio}
}

func Arc(sweepAngle float64) Shape {
	return Shape{Kind: ShapeArc, SweepAngle: sweepAngle}
}

// Joint is one node of a figure's skeleton. Angle is relative to the parent's
// world angle; Length is the distance from the parent's end point.
type Joint struct {
	ID       string
	Length   float64
	Angle    float64
	Shape    Shape
	Children []Joint
}

// Clone returns a deep copy of the subtree rooted at j.
func (j Joint) Clone() Joint {
	c := j
	if len(j.Children) == 0 {
		c.Children = nil
		return c
	}
	c.Children = make([]Joint, len(j.Children))
	for i, child := range j.Children {
		c.Children[i] = child.Clone()
	}
	return c
}

// Find returns a pointer into the subtree for the joint with the given id.
func (j *Joint) Find(id string) *Joint {
	if j.ID == id {
		return j
	}
	for i := range j.Children {
		if found := j.Children[i].Find(id); found != nil {
			return found
		}
	}
	return nil
}

// ChildByID returns the index of the direct child with the given id or -1.
func (j Joint) ChildByID(id string) int {
	for i, c := range j.Children {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Walk visits the subtree depth-first, parents before children. Returning
// false from fn stops the walk.
func (j Joint) Walk(fn func(j Joint, depth int) bool) {
	j.walk(fn, 0)
}

func (j Joint) walk(fn func(Joint, int) bool, depth int) bool {
	if !fn(j, depth) {
		return false
	}
	for _, c := range j.Children {
		if !c.walk(fn, depth+1) {
			return false
		}
	}
	return true
}

// Count returns the number of joints in the subtree.
func (j Joint) Count() int {
	n := 0
	j.Walk(func(Joint, int) bool {
		n++
		return true
	})
	return n
}

// Validate checks id uniqueness and non-negative lengths.
func (j Joint) Validate() error {
	seen := make(map[string]struct{})
	var err error
	j.Walk(func(n Joint, _ int) bool {
		if n.Length < 0 {
			err = fmt.Errorf("joint %q: negative length %f", n.ID, n.Length)
			return false
		}
		if _, dup := seen[n.ID]; dup {
			err = fmt.Errorf("%w: %q", ErrDuplicateID, n.ID)
			return false
		}
		seen[n.ID] = struct{}{}
		return true
	})
	return err
}

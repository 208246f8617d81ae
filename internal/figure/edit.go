package figure

import (
	"fmt"

	"github.com/google/uuid"
)

// Editing helpers never mutate their input. Only the path from the root to
// the edited joint is copied; untouched subtrees are shared between the old
// and the new value, so callers must treat Joint values as immutable.

// UpdateJoint applies fn to a private copy of the joint with the given id and
// returns the new figure.
func UpdateJoint(f Figure, id string, fn func(j *Joint)) (Figure, error) {
	root, ok := updatePath(f.Root, id, fn)
	if !ok {
		return f, fmt.Errorf("%w: %q in figure %q", ErrJointNotFound, id, f.Name)
	}
	f.Root = root
	return f, nil
}

func updatePath(j Joint, id string, fn func(*Joint)) (Joint, bool) {
	if j.ID == id {
		c := j
		c.Children = append([]Joint(nil), j.Children...)
		fn(&c)
		if len(c.Children) == 0 {
			c.Children = nil
		}
		return c, true
	}
	for i, child := range j.Children {
		if updated, ok := updatePath(child, id, fn); ok {
			c := j
			c.Children = append([]Joint(nil), j.Children...)
			c.Children[i] = updated
			return c, true
		}
	}
	return j, false
}

func SetJointAngle(f Figure, id string, angle float64) (Figure, error) {
	return UpdateJoint(f, id, func(j *Joint) { j.Angle = angle })
}

func SetJointLength(f Figure, id string, length float64) (Figure, error) {
	if length < 0 {
		return f, fmt.Errorf("joint %q: negative length %f", id, length)
	}
	return UpdateJoint(f, id, func(j *Joint) { j.Length = length })
}

func SetJointShape(f Figure, id string, shape Shape) (Figure, error) {
	return UpdateJoint(f, id, func(j *Joint) { j.Shape = shape })
}

// AddJoint appends a new child under parentID and returns its generated id.
func AddJoint(f Figure, parentID string, length, angle float64, shape Shape) (Figure, string, error) {
	id := uuid.NewString()
	child := Joint{ID: id, Length: length, Angle: angle, Shape: shape}
	out, err := UpdateJoint(f, parentID, func(j *Joint) {
		j.Children = append(j.Children, child)
	})
	if err != nil {
		return f, "", err
	}
	return out, id, nil
}

// RemoveJoint drops the joint and its whole subtree.
func RemoveJoint(f Figure, id string) (Figure, error) {
	if f.Root.ID == id {
		return f, ErrRootRemoval
	}
	parentID := ""
	f.Root.Walk(func(j Joint, _ int) bool {
		if j.ChildByID(id) >= 0 {
			parentID = j.ID
			return false
		}
		return true
	})
	if parentID == "" {
		return f, fmt.Errorf("%w: %q in figure %q", ErrJointNotFound, id, f.Name)
	}
	return UpdateJoint(f, parentID, func(j *Joint) {
		i := j.ChildByID(id)
		j.Children = append(j.Children[:i], j.Children[i+1:]...)
	})
}

// MoveFigure returns a copy of the figure translated to (x, y).
func MoveFigure(f Figure, x, y float64) Figure {
	f.X, f.Y = x, y
	return f
}

// ReplaceFigure returns a frame whose figure with the same name is replaced,
// or appended when no such figure exists.
func ReplaceFigure(frame FigureFrame, fig Figure) FigureFrame {
	out := frame
	out.Figures = append([]Figure(nil), frame.Figures...)
	if i := frame.FigureByName(fig.Name); i >= 0 {
		out.Figures[i] = fig
	} else {
		out.Figures = append(out.Figures, fig)
	}
	return out
}

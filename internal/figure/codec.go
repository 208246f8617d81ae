package figure

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// jointWire is the persisted shape of a joint. The shape variant is flattened
// into the joint object: {"type":"arc","sweepAngle":1.2}.
type jointWire struct {
	ID         string  `json:"id" yaml:"id"`
	Length     float64 `json:"length" yaml:"length"`
	Angle      float64 `json:"angle" yaml:"angle"`
	Type       string  `json:"type" yaml:"type"`
	WidthRatio float64 `json:"widthRatio,omitempty" yaml:"widthRatio,omitempty"`
	SweepAngle float64 `json:"sweepAngle,omitempty" yaml:"sweepAngle,omitempty"`
	Children   []Joint `json:"children,omitempty" yaml:"children,omitempty"`
}

func (j Joint) wire() jointWire {
	w := jointWire{
		ID:       j.ID,
		Length:   j.Length,
		Angle:    j.Angle,
		Type:     j.Shape.Kind.String(),
		Children: j.Children,
	}
	switch j.Shape.Kind {
	case ShapeEllipse:
		w.WidthRatio = j.Shape.WidthRatio
	case ShapeArc:
		w.SweepAngle = j.Shape.SweepAngle
	}
	return w
}

func (j *Joint) fromWire(w jointWire) error {
	kind, err := ParseShapeKind(w.Type)
	if err != nil {
		return err
	}
	*j = Joint{
		ID:       w.ID,
		Length:   w.Length,
		Angle:    w.Angle,
		Shape:    Shape{Kind: kind},
		Children: w.Children,
	}
	switch kind {
	case ShapeEllipse:
		j.Shape.WidthRatio = w.WidthRatio
	case ShapeArc:
		j.Shape.SweepAngle = w.SweepAngle
	}
	if len(j.Children) == 0 {
		j.Children = nil
	}
	return nil
}

func (j Joint) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.wire())
}

func (j *Joint) UnmarshalJSON(b []byte) error {
	var w jointWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	return j.fromWire(w)
}

func (j Joint) MarshalYAML() (interface{}, error) {
	return j.wire(), nil
}

func (j *Joint) UnmarshalYAML(value *yaml.Node) error {
	var w jointWire
	if err := value.Decode(&w); err != nil {
		return err
	}
	return j.fromWire(w)
}

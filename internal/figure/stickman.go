package figure

import "math"

// DefaultStickman builds the standard figure: an invisible root at the hips
// pointing up, torso with head and arms, and two legs.
func DefaultStickman(name string) Figure {
	arm := func(side string, angle float64) Joint {
		return Joint{
			ID: side + "UpperArm", Length: 30, Angle: angle, Shape: Line(),
			Children: []Joint{{ID: side + "Forearm", Length: 28, Angle: 0.3, Shape: Line()}},
		}
	}
	leg := func(side string, angle float64) Joint {
		return Joint{
			ID: side + "Thigh", Length: 36, Angle: angle, Shape: Line(),
			Children: []Joint{{ID: side + "Shin", Length: 34, Angle: 0.1, Shape: Line()}},
		}
	}
	return Figure{
		Name: name,
		Root: Joint{
			ID:    "root",
			Angle: -math.Pi / 2,
			Shape: Line(),
			Children: []Joint{
				{
					ID: "torso", Length: 50, Shape: Line(),
					Children: []Joint{
						{ID: "head", Length: 24, Shape: Circle()},
						arm("left", math.Pi-0.6),
						arm("right", math.Pi+0.6),
					},
				},
				leg("left", math.Pi-0.35),
				leg("right", math.Pi+0.35),
			},
		},
	}
}

package animation

// Easing maps linear progress in [0, 1] to eased progress.
type Easing func(t float64) float64

func Linear(t float64) float64 { return clamp01(t) }

// EaseInOutCubic applies smooth easing function
func EaseInOutCubic(t float64) float64 {
	t = clamp01(t)
	if t < 0.5 {
		return 4 * t * t * t
	}
	return 1 - pow(-2*t+2, 3)/2
}

func EaseOutCubic(t float64) float64 {
	t = clamp01(t)
	return 1 - pow(1-t, 3)
}

// EasingByName resolves names used in scripts; unknown names fall back to
// linear.
func EasingByName(name string) Easing {
	switch name {
	case "ease-in-out", "cubic":
		return EaseInOutCubic
	case "ease-out":
		return EaseOutCubic
	default:
		return Linear
	}
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// pow calculates x^n
func pow(x float64, n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= x
	}
	return result
}

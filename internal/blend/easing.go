package blend

import "math"

// Easing names an interpolation curve for spline-mode transitions.
type Easing string

const (
	EaseLinear     Easing = "linear"
	EaseInQuad     Easing = "easeInQuad"
	EaseOutQuad    Easing = "easeOutQuad"
	EaseInOutQuad  Easing = "easeInOutQuad"
	EaseInCubic    Easing = "easeInCubic"
	EaseOutCubic   Easing = "easeOutCubic"
	EaseInOutCubic Easing = "easeInOutCubic"
	EaseInQuart    Easing = "easeInQuart"
	EaseOutQuart   Easing = "easeOutQuart"
	EaseInOutQuart Easing = "easeInOutQuart"
)

// ease evaluates the named curve at t in [0,1]. Unknown names fall back to
// easeInOutCubic.
func ease(e Easing, t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	switch e {
	case EaseLinear:
		return t
	case EaseInQuad:
		return t * t
	case EaseOutQuad:
		return t * (2 - t)
	case EaseInOutQuad:
		if t < 0.5 {
			return 2 * t * t
		}
		return -1 + (4-2*t)*t
	case EaseInCubic:
		return t * t * t
	case EaseOutCubic:
		return 1 - math.Pow(1-t, 3)
	case EaseInQuart:
		return t * t * t * t
	case EaseOutQuart:
		return 1 - math.Pow(1-t, 4)
	case EaseInOutQuart:
		if t < 0.5 {
			return 8 * t * t * t * t
		}
		return 1 - math.Pow(-2*t+2, 4)/2
	default: // easeInOutCubic
		if t < 0.5 {
			return 4 * t * t * t
		}
		return 1 - math.Pow(-2*t+2, 3)/2
	}
}

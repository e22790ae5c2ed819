package palette

import "math"

// Curve is a CSS-style cubic-bezier easing curve with fixed end points (0,0)
// and (1,1) and control points (X1,Y1), (X2,Y2).
type Curve struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Linear is the identity easing.
var Linear = Curve{X1: 0, Y1: 0, X2: 1, Y2: 1}

const (
	newtonIterations    = 8
	newtonEpsilon       = 1e-7
	bisectIterations    = 40
	bisectEpsilon       = 1e-9
	minNewtonDerivative = 1e-6
)

// Eval returns the eased value at progress x in [0,1]. The bezier parameter
// matching x is found by inverting the x component (Newton iterations with a
// bisection fallback); the y component is then read at that parameter.
func (c Curve) Eval(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	if c.X1 == c.Y1 && c.X2 == c.Y2 {
		return x
	}
	s := c.solveX(x)
	return bezier(s, c.Y1, c.Y2)
}

func (c Curve) solveX(x float64) float64 {
	x1 := clampUnit(c.X1)
	x2 := clampUnit(c.X2)

	s := x
	for i := 0; i < newtonIterations; i++ {
		err := bezier(s, x1, x2) - x
		if math.Abs(err) < newtonEpsilon {
			return s
		}
		d := bezierSlope(s, x1, x2)
		if math.Abs(d) < minNewtonDerivative {
			break
		}
		s -= err / d
	}

	lo, hi := 0.0, 1.0
	s = x
	for i := 0; i < bisectIterations; i++ {
		v := bezier(s, x1, x2)
		if math.Abs(v-x) < bisectEpsilon {
			return s
		}
		if v < x {
			lo = s
		} else {
			hi = s
		}
		s = (lo + hi) / 2
	}
	return s
}

// bezier evaluates one component of the curve at parameter s.
func bezier(s, p1, p2 float64) float64 {
	inv := 1 - s
	return 3*inv*inv*s*p1 + 3*inv*s*s*p2 + s*s*s
}

func bezierSlope(s, p1, p2 float64) float64 {
	inv := 1 - s
	return 3*inv*inv*p1 + 6*inv*s*(p2-p1) + 3*s*s*(1-p2)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

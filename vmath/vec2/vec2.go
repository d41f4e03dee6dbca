package vec2

import "math"

// T carries surface (u, v) coordinates.
type T [2]float64

func (v T) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1])
}

func (v T) U() float64 {
	return v[0]
}

func (v T) V() float64 {
	return v[1]
}

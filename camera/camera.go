// Package camera turns image coordinates into world-space rays.
package camera

import (
	"fmt"
	"math"
	"math/rand"

	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/vmath/mat33"
	"row-major.net/harpoon/vmath/vec3"
)

type Camera interface {
	// ImageToRay returns a ray through a random point of the pixel at
	// (curRow, curCol).  Row 0 is the top of the image, column 0 the left.
	ImageToRay(curRow, imgRows, curCol, imgCols int, rng *rand.Rand) ray.Ray
}

// Params describe a thin lens camera.
type Params struct {
	LookFrom, LookAt, VUp vec3.T

	// Vertical field of view, in degrees.
	VFOV float64

	// Width over height of the image.
	Aspect float64

	// Lens diameter.  Zero gives a pinhole with everything in focus.
	Aperture float64

	// Distance from LookFrom to the plane of perfect focus.
	FocusDist float64

	// The shutter is open over [Time0, Time1].
	Time0, Time1 float64
}

// ThinLens is a camera with defocus blur and a finite shutter interval.
type ThinLens struct {
	Origin vec3.T

	// Columns are the camera's right, up and backward unit vectors in world
	// space.
	CameraToWorld mat33.T

	LowerLeft  vec3.T
	Horizontal vec3.T
	Vertical   vec3.T

	LensRadius   float64
	Time0, Time1 float64
}

func NewThinLens(p Params) (*ThinLens, error) {
	if !(p.VFOV > 0 && p.VFOV < 180) {
		return nil, fmt.Errorf("vertical field of view %v is outside (0, 180)", p.VFOV)
	}
	if !(p.Aspect > 0) || math.IsInf(p.Aspect, 0) {
		return nil, fmt.Errorf("aspect ratio %v is not positive and finite", p.Aspect)
	}
	if !(p.Aperture >= 0) {
		return nil, fmt.Errorf("aperture %v is negative", p.Aperture)
	}
	if !(p.FocusDist > 0) {
		return nil, fmt.Errorf("focus distance %v is not positive", p.FocusDist)
	}
	if p.Time1 < p.Time0 {
		return nil, fmt.Errorf("shutter closes (%v) before it opens (%v)", p.Time1, p.Time0)
	}

	w, ok := vec3.NormalizeOK(vec3.SubVV(p.LookFrom, p.LookAt))
	if !ok {
		return nil, fmt.Errorf("camera looks from and at the same point %v", p.LookFrom)
	}
	u, ok := vec3.NormalizeOK(vec3.CProd(p.VUp, w))
	if !ok {
		return nil, fmt.Errorf("up vector %v is parallel to the view direction", p.VUp)
	}
	v := vec3.CProd(w, u)

	viewportHeight := 2.0 * math.Tan(p.VFOV*math.Pi/360.0)
	viewportWidth := p.Aspect * viewportHeight

	horizontal := vec3.MulVS(u, p.FocusDist*viewportWidth)
	vertical := vec3.MulVS(v, p.FocusDist*viewportHeight)

	lowerLeft := p.LookFrom
	lowerLeft = vec3.SubVV(lowerLeft, vec3.MulVS(horizontal, 0.5))
	lowerLeft = vec3.SubVV(lowerLeft, vec3.MulVS(vertical, 0.5))
	lowerLeft = vec3.SubVV(lowerLeft, vec3.MulVS(w, p.FocusDist))

	return &ThinLens{
		Origin: p.LookFrom,
		CameraToWorld: mat33.T{
			u[0], v[0], w[0],
			u[1], v[1], w[1],
			u[2], v[2], w[2],
		},
		LowerLeft:  lowerLeft,
		Horizontal: horizontal,
		Vertical:   vertical,
		LensRadius: p.Aperture / 2,
		Time0:      p.Time0,
		Time1:      p.Time1,
	}, nil
}

func (c *ThinLens) Right() vec3.T {
	return vec3.T{c.CameraToWorld[0], c.CameraToWorld[3], c.CameraToWorld[6]}
}

func (c *ThinLens) Up() vec3.T {
	return vec3.T{c.CameraToWorld[1], c.CameraToWorld[4], c.CameraToWorld[7]}
}

// Eye is the direction the camera looks.
func (c *ThinLens) Eye() vec3.T {
	return vec3.Neg(vec3.T{c.CameraToWorld[2], c.CameraToWorld[5], c.CameraToWorld[8]})
}

// Ray maps normalized image coordinates to a ray.  s runs from 0 at the left
// edge to 1 at the right, t from 0 at the bottom to 1 at the top.
func (c *ThinLens) Ray(s, t float64, rng *rand.Rand) ray.Ray {
	origin := c.Origin
	if c.LensRadius > 0 {
		rd := vec3.MulVS(vec3.UnitDiskDistribution(rng), c.LensRadius)
		origin = vec3.AddVV(origin, mat33.MulMV(c.CameraToWorld, vec3.T{rd[0], rd[1], 0}))
	}

	target := c.LowerLeft
	target = vec3.AddVV(target, vec3.MulVS(c.Horizontal, s))
	target = vec3.AddVV(target, vec3.MulVS(c.Vertical, t))

	time := c.Time0
	if c.Time1 > c.Time0 {
		time = c.Time0 + (c.Time1-c.Time0)*rng.Float64()
	}

	return ray.Ray{
		Point: origin,
		Slope: vec3.SubVV(target, origin),
		Time:  time,
	}
}

func (c *ThinLens) ImageToRay(curRow, imgRows, curCol, imgCols int, rng *rand.Rand) ray.Ray {
	s := (float64(curCol) + rng.Float64()) / float64(imgCols)
	t := (float64(imgRows-1-curRow) + rng.Float64()) / float64(imgRows)
	return c.Ray(s, t, rng)
}

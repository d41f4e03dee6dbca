package texture

import (
	"math"

	"row-major.net/harpoon/vmath/vec3"
)

// A multiplicative hash (in Knuth's style), that makes use of the fact that we
// only use 24 input bits.
func hashmul(x uint32) uint32 {
	x = ((x >> 16) ^ x) * 0x45d9f3b
	x = ((x >> 16) ^ x) * 0x45d9f3b
	x = ((x >> 16) ^ x)
	return x
}

// perlinDotGrad picks one of the twelve cube-edge gradients for the lattice
// cell (c0, c1, c2) and dots it with the offset (d0, d1, d2).  The last four
// entries repeat earlier ones to make the table a power of two.
func perlinDotGrad(c0, c1, c2 uint32, d0, d1, d2 float64) float64 {
	hash := hashmul(((c0 & 0xff) << 16) | ((c1 & 0xff) << 8) | (c2&0xff)<<0)

	switch hash & 0x0f {
	case 0x0:
		return d0 + d1
	case 0x1:
		return d0 - d1
	case 0x2:
		return -d0 + d1
	case 0x3:
		return -d0 - d1

	case 0x4:
		return d1 + d2
	case 0x5:
		return d1 - d2
	case 0x6:
		return -d1 + d2
	case 0x7:
		return -d1 - d2

	case 0x8:
		return d2 + d0
	case 0x9:
		return d2 - d0
	case 0xa:
		return -d2 + d0
	case 0xb:
		return -d2 - d0

	case 0xc:
		return d0 + d1
	case 0xd:
		return -d0 + d1
	case 0xe:
		return -d1 + d2
	default:
		return -d1 - d2
	}
}

func fade(x float64) float64 {
	return x * x * x * (x*(x*6.0-15.0) + 10.0)
}

func lerp(t, a, b float64) float64 {
	return (1-t)*a + t*b
}

// Perlin is gradient noise over a lattice of unit cells.  It is smooth, zero
// at lattice points, and roughly within [-1, 1].  The lattice wraps every 256
// cells.
func Perlin(p vec3.T) float64 {
	fx, fy, fz := math.Floor(p[0]), math.Floor(p[1]), math.Floor(p[2])

	cellX := uint32(int64(fx) & 0xff)
	cellY := uint32(int64(fy) & 0xff)
	cellZ := uint32(int64(fz) & 0xff)

	xRel := p[0] - fx
	yRel := p[1] - fy
	zRel := p[2] - fz

	return lerp(fade(zRel),
		lerp(fade(yRel),
			lerp(fade(xRel),
				perlinDotGrad(cellX+0, cellY+0, cellZ+0, xRel-0, yRel-0, zRel-0),
				perlinDotGrad(cellX+1, cellY+0, cellZ+0, xRel-1, yRel-0, zRel-0),
			),
			lerp(fade(xRel),
				perlinDotGrad(cellX+0, cellY+1, cellZ+0, xRel-0, yRel-1, zRel-0),
				perlinDotGrad(cellX+1, cellY+1, cellZ+0, xRel-1, yRel-1, zRel-0),
			),
		),
		lerp(fade(yRel),
			lerp(fade(xRel),
				perlinDotGrad(cellX+0, cellY+0, cellZ+1, xRel-0, yRel-0, zRel-1),
				perlinDotGrad(cellX+1, cellY+0, cellZ+1, xRel-1, yRel-0, zRel-1),
			),
			lerp(fade(xRel),
				perlinDotGrad(cellX+0, cellY+1, cellZ+1, xRel-0, yRel-1, zRel-1),
				perlinDotGrad(cellX+1, cellY+1, cellZ+1, xRel-1, yRel-1, zRel-1),
			),
		),
	)
}

// Turbulence sums depth octaves of Perlin noise, each at twice the frequency
// and half the weight of the previous one, and returns the magnitude.
func Turbulence(p vec3.T, depth int) float64 {
	accum := 0.0
	weight := 1.0
	for i := 0; i < depth; i++ {
		accum += weight * Perlin(p)
		weight *= 0.5
		p = vec3.MulVS(p, 2)
	}
	return math.Abs(accum)
}

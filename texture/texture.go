// Package texture provides spatially varying colors for materials.
package texture

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"row-major.net/harpoon/vmath/vec2"
	"row-major.net/harpoon/vmath/vec3"
)

// Texture returns the color at surface coordinates uv and world position p.
// Textures are immutable once built, and shared between materials.
type Texture interface {
	Value(uv vec2.T, p vec3.T) vec3.T
}

type Solid struct {
	Color vec3.T
}

func NewSolid(r, g, b float64) *Solid {
	return &Solid{Color: vec3.T{r, g, b}}
}

func (s *Solid) Value(uv vec2.T, p vec3.T) vec3.T {
	return s.Color
}

// Checker alternates between Even and Odd in a 3D grid of cubes with sides
// Period long.
type Checker struct {
	Period    float64
	Even, Odd Texture
}

func NewChecker(period float64, even, odd vec3.T) *Checker {
	return &Checker{
		Period: period,
		Even:   &Solid{Color: even},
		Odd:    &Solid{Color: odd},
	}
}

func (c *Checker) Value(uv vec2.T, p vec3.T) vec3.T {
	parity := 0
	for i := 0; i < 3; i++ {
		if int64(math.Floor(p[i]/c.Period))&1 == 1 {
			parity ^= 1
		}
	}

	if parity == 1 {
		return c.Odd.Value(uv, p)
	}
	return c.Even.Value(uv, p)
}

// Noise is a gray marble pattern: sine stripes along Z, phase shifted by
// Perlin turbulence.
type Noise struct {
	Scale float64
}

func NewNoise(scale float64) *Noise {
	return &Noise{Scale: scale}
}

func (n *Noise) Value(uv vec2.T, p vec3.T) vec3.T {
	k := 0.5 * (1 + math.Sin(n.Scale*p[2]+10*Turbulence(p, 7)))
	return vec3.T{k, k, k}
}

// Image samples a picture by surface coordinates, nearest texel.  u runs left
// to right, v bottom to top.
type Image struct {
	Width, Height int

	// Row-major, top row first, channels in [0, 1].
	Texels []vec3.T
}

// NewImage copies img into a texture.
func NewImage(img image.Image) *Image {
	b := img.Bounds()
	tex := &Image{
		Width:  b.Dx(),
		Height: b.Dy(),
		Texels: make([]vec3.T, 0, b.Dx()*b.Dy()),
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			tex.Texels = append(tex.Texels, vec3.T{
				float64(r) / 0xffff,
				float64(g) / 0xffff,
				float64(bl) / 0xffff,
			})
		}
	}
	return tex
}

// LoadImage decodes a PNG or JPEG file into a texture.
func LoadImage(name string) (*Image, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("while opening image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("while decoding image %q: %w", name, err)
	}
	return NewImage(img), nil
}

// debugCyan marks surfaces whose image has no texels.
var debugCyan = vec3.T{0, 1, 1}

func (im *Image) Value(uv vec2.T, p vec3.T) vec3.T {
	if im.Width <= 0 || im.Height <= 0 {
		return debugCyan
	}

	u, v := uv[0], uv[1]
	if math.IsNaN(u) {
		u = 0
	}
	if math.IsNaN(v) {
		v = 0
	}
	u = math.Max(0, math.Min(1, u))
	v = 1 - math.Max(0, math.Min(1, v))

	i := int(u * float64(im.Width))
	j := int(v * float64(im.Height))
	if i >= im.Width {
		i = im.Width - 1
	}
	if j >= im.Height {
		j = im.Height - 1
	}
	return im.Texels[j*im.Width+i]
}

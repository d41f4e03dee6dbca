// Package scene holds everything a render needs and the path tracing
// integrator that walks rays through it.
package scene

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/xerrors"

	"row-major.net/harpoon/bvh"
	"row-major.net/harpoon/camera"
	"row-major.net/harpoon/hit"
	"row-major.net/harpoon/material"
	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/texture"
	"row-major.net/harpoon/vmath/vec3"
)

// ConfigError reports a scene that cannot be rendered.  It carries every
// problem found, not just the first.
type ConfigError struct {
	Problems []string

	frame xerrors.Frame
}

func newConfigError(problems []string) *ConfigError {
	return &ConfigError{
		Problems: problems,
		frame:    xerrors.Caller(2),
	}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid scene: %s", strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Format(f fmt.State, c rune) { // implements fmt.Formatter
	xerrors.FormatError(e, f, c)
}

func (e *ConfigError) FormatError(p xerrors.Printer) error { // implements xerrors.Formatter
	p.Print(e.Error())
	if p.Detail() {
		e.frame.Format(p)
	}
	return nil
}

// Background is the color seen by rays that escape the scene.
type Background func(r ray.Ray) vec3.T

func SolidBackground(c vec3.T) Background {
	return func(r ray.Ray) vec3.T {
		return c
	}
}

// SkyBackground fades from white at the horizon to light blue straight up.
func SkyBackground() Background {
	return func(r ray.Ray) vec3.T {
		dir, ok := vec3.NormalizeOK(r.Slope)
		if !ok {
			return vec3.T{1, 1, 1}
		}
		t := 0.5 * (dir[1] + 1.0)
		return vec3.Lerp(t, vec3.T{1, 1, 1}, vec3.T{0.5, 0.7, 1.0})
	}
}

// placeholder stands in for a texture or material that was looked up by a bad
// index.  Crush refuses scenes that contain one.
var placeholder = texture.NewSolid(1, 0, 1)

type Scene struct {
	Textures  []texture.Texture
	Materials []hit.Material
	Objects   []hit.Hittable
	Cameras   []camera.Camera

	// Nil means black.
	Background Background

	Width, Height   int
	SamplesPerPixel int
	MaxDepth        int

	// The shutter interval.  Moving objects are bounded over it.
	Time0, Time1 float64

	// World answers the integrator's hit queries.  Crush fills it in.
	World hit.Hittable

	badRefs []string
	crushed bool
}

// AddTexture is a convenience function to register a texture and get its
// index.
func (s *Scene) AddTexture(t texture.Texture) int {
	s.Textures = append(s.Textures, t)
	return len(s.Textures) - 1
}

// AddMaterial is a convenience function to register a material and get its
// index.
func (s *Scene) AddMaterial(m hit.Material) int {
	s.Materials = append(s.Materials, m)
	return len(s.Materials) - 1
}

func (s *Scene) AddObject(o hit.Hittable) int {
	s.Objects = append(s.Objects, o)
	s.crushed = false
	return len(s.Objects) - 1
}

func (s *Scene) AddCamera(c camera.Camera) int {
	s.Cameras = append(s.Cameras, c)
	return len(s.Cameras) - 1
}

// Texture looks up a registered texture.  A bad index is remembered and
// reported by Crush.
func (s *Scene) Texture(i int) texture.Texture {
	if i < 0 || i >= len(s.Textures) {
		s.badRefs = append(s.badRefs, fmt.Sprintf("texture index %d out of range [0, %d)", i, len(s.Textures)))
		return placeholder
	}
	return s.Textures[i]
}

// Material looks up a registered material.  A bad index is remembered and
// reported by Crush.
func (s *Scene) Material(i int) hit.Material {
	if i < 0 || i >= len(s.Materials) {
		s.badRefs = append(s.badRefs, fmt.Sprintf("material index %d out of range [0, %d)", i, len(s.Materials)))
		return material.NewLambertian(placeholder)
	}
	return s.Materials[i]
}

func (s *Scene) validate() []string {
	problems := append([]string(nil), s.badRefs...)

	if s.Width <= 0 || s.Height <= 0 {
		problems = append(problems, fmt.Sprintf("image size %dx%d is not positive", s.Width, s.Height))
	}
	if s.SamplesPerPixel <= 0 {
		problems = append(problems, fmt.Sprintf("samples per pixel %d is not positive", s.SamplesPerPixel))
	}
	if s.MaxDepth <= 0 {
		problems = append(problems, fmt.Sprintf("max depth %d is not positive", s.MaxDepth))
	}
	if s.Time1 < s.Time0 {
		problems = append(problems, fmt.Sprintf("shutter interval [%v, %v] is reversed", s.Time0, s.Time1))
	}
	if len(s.Cameras) == 0 {
		problems = append(problems, "no camera")
	}
	for i, c := range s.Cameras {
		if c == nil {
			problems = append(problems, fmt.Sprintf("camera %d is nil", i))
		}
	}
	for i, t := range s.Textures {
		if t == nil {
			problems = append(problems, fmt.Sprintf("texture %d is nil", i))
		}
	}
	for i, m := range s.Materials {
		if m == nil {
			problems = append(problems, fmt.Sprintf("material %d is nil", i))
		}
	}
	for i, o := range s.Objects {
		if o == nil {
			problems = append(problems, fmt.Sprintf("object %d is nil", i))
			continue
		}
		for _, m := range hit.Materials(o) {
			if m == nil {
				problems = append(problems, fmt.Sprintf("object %d has a nil material", i))
				break
			}
		}
	}
	return problems
}

// Crush checks the scene and builds its acceleration structure.  It must be
// called after the last AddObject and before rendering.
func (s *Scene) Crush(ctx context.Context) error {
	tracer := otel.Tracer("row-major.net/harpoon/scene")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Scene.Crush")
	defer span.End()

	span.SetAttributes(attribute.Int("objects", len(s.Objects)))

	if problems := s.validate(); len(problems) != 0 {
		err := newConfigError(problems)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	_, buildSpan := tracer.Start(ctx, "bvh.Build")
	tree := bvh.Build(s.Objects, s.Time0, s.Time1)
	buildSpan.SetAttributes(attribute.Int("nodes", tree.Size()), attribute.Int("depth", tree.Depth()))
	buildSpan.End()

	glog.V(1).Infof("Built BVH over %d objects: %d nodes, depth %d", len(s.Objects), tree.Size(), tree.Depth())

	s.World = tree
	s.crushed = true

	span.SetStatus(codes.Ok, "")
	return nil
}

// Crushed reports whether the scene is ready to render.
func (s *Scene) Crushed() bool {
	return s.crushed
}

// hitSpanLo keeps scattered rays from immediately re-hitting the surface they
// left.
const hitSpanLo = 0.001

// SampleRay follows one light path backwards from r and returns the radiance
// carried along it.  At most depthLim surfaces are visited; a path still
// bouncing at the depth limit contributes nothing further.
func (s *Scene) SampleRay(r ray.Ray, rng *rand.Rand, depthLim int) vec3.T {
	accum := vec3.T{}
	k := vec3.T{1, 1, 1}

	for i := 0; i < depthLim; i++ {
		rec, ok := s.World.RayHit(r, ray.Span{Lo: hitSpanLo, Hi: math.Inf(1)}, rng)
		if !ok {
			if s.Background != nil {
				accum = vec3.AddVV(accum, vec3.MulVV(k, s.Background(r)))
			}
			return accum
		}

		emitted := rec.Material.Emitted(rec.UV, rec.P)
		accum = vec3.AddVV(accum, vec3.MulVV(k, emitted))

		attenuation, scattered, ok := rec.Material.Scatter(r, &rec, rng)
		if !ok {
			return accum
		}

		k = vec3.MulVV(k, attenuation)
		r = scattered
	}

	return accum
}

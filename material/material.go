package material

import (
	"math"
	"math/rand"

	"row-major.net/harpoon/hit"
	"row-major.net/harpoon/ray"
	"row-major.net/harpoon/texture"
	"row-major.net/harpoon/vmath/vec2"
	"row-major.net/harpoon/vmath/vec3"
)

// NonEmissive is embedded by materials that give off no light of their own.
type NonEmissive struct{}

func (NonEmissive) Emitted(uv vec2.T, p vec3.T) vec3.T {
	return vec3.T{}
}

// Lambertian is an ideal diffuse reflector.
type Lambertian struct {
	NonEmissive
	Albedo texture.Texture
}

func NewLambertian(albedo texture.Texture) *Lambertian {
	return &Lambertian{Albedo: albedo}
}

// NewLambertianRGB is a Lambertian with a solid albedo.
func NewLambertianRGB(r, g, b float64) *Lambertian {
	return &Lambertian{Albedo: texture.NewSolid(r, g, b)}
}

func (l *Lambertian) Scatter(in ray.Ray, rec *hit.Record, rng *rand.Rand) (vec3.T, ray.Ray, bool) {
	dir := vec3.AddVV(rec.N, vec3.UniformUnitDistribution(rng))

	// The random vector nearly cancelled the normal.
	if dir.NearZero() {
		dir = rec.N
	}

	return l.Albedo.Value(rec.UV, rec.P), ray.Ray{Point: rec.P, Slope: dir, Time: in.Time}, true
}

// Metal is a specular reflector.  Fuzz in [0, 1] blurs the reflection.
type Metal struct {
	NonEmissive
	Albedo vec3.T
	Fuzz   float64
}

func NewMetal(albedo vec3.T, fuzz float64) *Metal {
	return &Metal{
		Albedo: albedo,
		Fuzz:   math.Max(0, math.Min(fuzz, 1)),
	}
}

func (m *Metal) Scatter(in ray.Ray, rec *hit.Record, rng *rand.Rand) (vec3.T, ray.Ray, bool) {
	reflected := vec3.Reflect(vec3.Normalize(in.Slope), rec.N)
	if m.Fuzz > 0 {
		reflected = vec3.AddVV(reflected, vec3.MulVS(vec3.UniformUnitDistribution(rng), m.Fuzz))
	}

	// Fuzz pushed the ray below the surface; it is absorbed.
	if vec3.IProd(reflected, rec.N) <= 0 {
		return vec3.T{}, ray.Ray{}, false
	}

	return m.Albedo, ray.Ray{Point: rec.P, Slope: reflected, Time: in.Time}, true
}

// Dielectric is a clear refracting material such as glass or water.  Index is
// its refractive index relative to the surrounding medium.
type Dielectric struct {
	NonEmissive
	Index float64
}

func NewDielectric(index float64) *Dielectric {
	return &Dielectric{Index: index}
}

// Schlick approximates the Fresnel reflectance for a ray meeting a boundary
// at an angle with the given cosine.  A boundary between equal indices
// reflects nothing.
func Schlick(cosine, etaRatio float64) float64 {
	r0 := (1 - etaRatio) / (1 + etaRatio)
	r0 = r0 * r0
	if r0 == 0 {
		return 0
	}
	return r0 + (1-r0)*math.Pow(1-cosine, 5)
}

func (d *Dielectric) Scatter(in ray.Ray, rec *hit.Record, rng *rand.Rand) (vec3.T, ray.Ray, bool) {
	etaRatio := d.Index
	if rec.FrontFace {
		etaRatio = 1.0 / d.Index
	}

	unitDir := vec3.Normalize(in.Slope)
	cosTheta := math.Min(-vec3.IProd(unitDir, rec.N), 1.0)
	sinTheta := math.Sqrt(math.Max(0, 1.0-cosTheta*cosTheta))

	var dir vec3.T
	if cannotRefract := etaRatio*sinTheta > 1.0; cannotRefract || Schlick(cosTheta, etaRatio) > rng.Float64() {
		dir = vec3.Reflect(unitDir, rec.N)
	} else {
		dir = vec3.Refract(unitDir, rec.N, etaRatio)
	}

	return vec3.T{1, 1, 1}, ray.Ray{Point: rec.P, Slope: dir, Time: in.Time}, true
}

// Isotropic scatters uniformly in all directions.  It is the phase function of
// constant density media.
type Isotropic struct {
	NonEmissive
	Albedo texture.Texture
}

func NewIsotropic(albedo texture.Texture) *Isotropic {
	return &Isotropic{Albedo: albedo}
}

func (i *Isotropic) Scatter(in ray.Ray, rec *hit.Record, rng *rand.Rand) (vec3.T, ray.Ray, bool) {
	return i.Albedo.Value(rec.UV, rec.P), ray.Ray{Point: rec.P, Slope: vec3.UniformUnitDistribution(rng), Time: in.Time}, true
}

// DiffuseLight emits Emit and reflects nothing.
type DiffuseLight struct {
	Emit texture.Texture
}

func NewDiffuseLight(emit texture.Texture) *DiffuseLight {
	return &DiffuseLight{Emit: emit}
}

func NewDiffuseLightRGB(r, g, b float64) *DiffuseLight {
	return &DiffuseLight{Emit: texture.NewSolid(r, g, b)}
}

func (l *DiffuseLight) Scatter(in ray.Ray, rec *hit.Record, rng *rand.Rand) (vec3.T, ray.Ray, bool) {
	return vec3.T{}, ray.Ray{}, false
}

func (l *DiffuseLight) Emitted(uv vec2.T, p vec3.T) vec3.T {
	return l.Emit.Value(uv, p)
}

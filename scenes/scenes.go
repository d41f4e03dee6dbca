// Package scenes builds the named demo scenes the renderer knows about.
package scenes

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/golang/glog"

	"row-major.net/harpoon/bvh"
	"row-major.net/harpoon/camera"
	"row-major.net/harpoon/geometry"
	"row-major.net/harpoon/hit"
	"row-major.net/harpoon/material"
	"row-major.net/harpoon/scene"
	"row-major.net/harpoon/texture"
	"row-major.net/harpoon/vmath/vec3"
)

// Options override a scene's defaults.  Zero fields keep the default.
type Options struct {
	Width           int
	SamplesPerPixel int
	MaxDepth        int

	// Seed drives random scene layout, independent of the render seed.
	Seed int64

	// Path to an equirectangular earth map (PNG or JPEG).  Scenes that need it
	// show a flat debug color when it is empty.
	EarthImage string
}

type defaults struct {
	width           int
	aspect          float64
	samplesPerPixel int
	maxDepth        int
}

type builder struct {
	defaults defaults
	build    func(s *scene.Scene, opts Options, rng *rand.Rand) (camera.Params, error)
}

var registry = map[string]builder{
	"bouncing-spheres":  {defaults{400, 16.0 / 9.0, 100, 50}, bouncingSpheres},
	"checkered-spheres": {defaults{400, 16.0 / 9.0, 100, 50}, checkeredSpheres},
	"perlin-spheres":    {defaults{400, 16.0 / 9.0, 100, 50}, perlinSpheres},
	"earth":             {defaults{400, 16.0 / 9.0, 100, 50}, earth},
	"quads":             {defaults{400, 1, 100, 50}, quads},
	"simple-light":      {defaults{400, 16.0 / 9.0, 100, 50}, simpleLight},
	"cornell-box":       {defaults{600, 1, 200, 50}, cornellBox},
	"cornell-smoke":     {defaults{600, 1, 200, 50}, cornellSmoke},
	"final":             {defaults{400, 1, 250, 40}, finalScene},
}

// Names lists the known scenes in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName builds a scene, ready to be crushed.
func ByName(name string, opts Options) (*scene.Scene, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q (known scenes: %v)", name, Names())
	}

	s := &scene.Scene{
		Width:           b.defaults.width,
		SamplesPerPixel: b.defaults.samplesPerPixel,
		MaxDepth:        b.defaults.maxDepth,
		Time0:           0,
		Time1:           1,
	}
	if opts.Width > 0 {
		s.Width = opts.Width
	}
	if opts.SamplesPerPixel > 0 {
		s.SamplesPerPixel = opts.SamplesPerPixel
	}
	if opts.MaxDepth > 0 {
		s.MaxDepth = opts.MaxDepth
	}
	s.Height = int(float64(s.Width) / b.defaults.aspect)
	if s.Height < 1 {
		s.Height = 1
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	params, err := b.build(s, opts, rng)
	if err != nil {
		return nil, fmt.Errorf("while building scene %q: %w", name, err)
	}

	params.Aspect = float64(s.Width) / float64(s.Height)
	params.Time0 = s.Time0
	params.Time1 = s.Time1
	cam, err := camera.NewThinLens(params)
	if err != nil {
		return nil, fmt.Errorf("while building camera for scene %q: %w", name, err)
	}
	s.AddCamera(cam)

	return s, nil
}

func groundChecker() *texture.Checker {
	return texture.NewChecker(0.32, vec3.T{0.2, 0.3, 0.1}, vec3.T{0.9, 0.9, 0.9})
}

func farView(lookFrom vec3.T) camera.Params {
	return camera.Params{
		LookFrom:  lookFrom,
		LookAt:    vec3.T{0, 0, 0},
		VUp:       vec3.T{0, 1, 0},
		VFOV:      20,
		FocusDist: 10,
	}
}

func bouncingSpheres(s *scene.Scene, opts Options, rng *rand.Rand) (camera.Params, error) {
	s.Background = scene.SkyBackground()

	ground := s.AddMaterial(material.NewLambertian(groundChecker()))
	s.AddObject(geometry.NewSphere(vec3.T{0, -1000, 0}, 1000, s.Material(ground)))

	glass := s.AddMaterial(material.NewDielectric(1.5))

	for a := -10; a <= 10; a++ {
		for b := -10; b <= 10; b++ {
			chooseMat := rng.Float64()
			center := vec3.T{float64(b) + 0.9*rng.Float64(), 0.2, float64(a) + 0.9*rng.Float64()}

			if vec3.SubVV(center, vec3.T{4, 0.2, 0}).Norm() <= 0.9 {
				continue
			}

			switch {
			case chooseMat < 0.7:
				albedo := vec3.MulVV(vec3.RandomInRange(0, 1, rng), vec3.RandomInRange(0, 1, rng))
				m := material.NewLambertian(&texture.Solid{Color: albedo})
				center1 := vec3.AddVV(center, vec3.T{0, 0.5 * rng.Float64(), 0})
				s.AddObject(geometry.NewMovingSphere(center, center1, 0, 1, 0.2, m))
			case chooseMat < 0.9:
				albedo := vec3.RandomInRange(0.5, 1, rng)
				fuzz := 0.5 * rng.Float64()
				s.AddObject(geometry.NewSphere(center, 0.2, material.NewMetal(albedo, fuzz)))
			default:
				s.AddObject(geometry.NewSphere(center, 0.2, s.Material(glass)))
			}
		}
	}

	s.AddObject(geometry.NewSphere(vec3.T{0, 1, 0}, 1, s.Material(glass)))
	s.AddObject(geometry.NewSphere(vec3.T{-4, 1, 0}, 1, material.NewLambertianRGB(0.4, 0.2, 0.1)))
	s.AddObject(geometry.NewSphere(vec3.T{4, 1, 0}, 1, material.NewMetal(vec3.T{0.7, 0.6, 0.5}, 0)))

	params := farView(vec3.T{13, 2, 3})
	params.Aperture = 0.1
	return params, nil
}

func checkeredSpheres(s *scene.Scene, opts Options, rng *rand.Rand) (camera.Params, error) {
	s.Background = scene.SkyBackground()

	checker := s.AddTexture(groundChecker())
	m := s.AddMaterial(material.NewLambertian(s.Texture(checker)))

	s.AddObject(geometry.NewSphere(vec3.T{0, -10, 0}, 10, s.Material(m)))
	s.AddObject(geometry.NewSphere(vec3.T{0, 10, 0}, 10, s.Material(m)))

	return farView(vec3.T{13, 2, 3}), nil
}

func perlinSpheres(s *scene.Scene, opts Options, rng *rand.Rand) (camera.Params, error) {
	s.Background = scene.SolidBackground(vec3.T{0.7, 0.8, 1.0})

	noise := s.AddTexture(texture.NewNoise(4))
	m := s.AddMaterial(material.NewLambertian(s.Texture(noise)))

	s.AddObject(geometry.NewSphere(vec3.T{0, -1000, 0}, 1000, s.Material(m)))
	s.AddObject(geometry.NewSphere(vec3.T{0, 2, 0}, 2, s.Material(m)))

	return farView(vec3.T{13, 2, 3}), nil
}

func earthTexture(opts Options) (texture.Texture, error) {
	if opts.EarthImage == "" {
		glog.Warningf("No earth image given; the globe will render as a flat debug color")
		return &texture.Image{}, nil
	}
	return texture.LoadImage(opts.EarthImage)
}

func earth(s *scene.Scene, opts Options, rng *rand.Rand) (camera.Params, error) {
	s.Background = scene.SkyBackground()

	tex, err := earthTexture(opts)
	if err != nil {
		return camera.Params{}, err
	}
	surface := s.AddMaterial(material.NewLambertian(tex))
	s.AddObject(geometry.NewSphere(vec3.T{0, 0, 0}, 2, s.Material(surface)))

	return farView(vec3.T{0, 0, 12}), nil
}

func quads(s *scene.Scene, opts Options, rng *rand.Rand) (camera.Params, error) {
	s.Background = scene.SkyBackground()

	leftRed := material.NewLambertianRGB(1, 0.2, 0.2)
	backGreen := material.NewLambertianRGB(0.2, 1, 0.2)
	rightBlue := material.NewLambertianRGB(0.2, 0.2, 1)
	upperOrange := material.NewLambertianRGB(1, 0.5, 0)
	lowerTeal := material.NewLambertianRGB(0.2, 0.8, 0.8)

	s.AddObject(geometry.NewQuad(vec3.T{-3, -2, 5}, vec3.T{0, 0, -4}, vec3.T{0, 4, 0}, leftRed))
	s.AddObject(geometry.NewQuad(vec3.T{-2, -2, 0}, vec3.T{4, 0, 0}, vec3.T{0, 4, 0}, backGreen))
	s.AddObject(geometry.NewQuad(vec3.T{3, -2, 1}, vec3.T{0, 0, 4}, vec3.T{0, 4, 0}, rightBlue))
	s.AddObject(geometry.NewQuad(vec3.T{-2, 3, 1}, vec3.T{4, 0, 0}, vec3.T{0, 0, 4}, upperOrange))
	s.AddObject(geometry.NewQuad(vec3.T{-2, -3, 5}, vec3.T{4, 0, 0}, vec3.T{0, 0, -4}, lowerTeal))

	return camera.Params{
		LookFrom:  vec3.T{0, 0, 9},
		LookAt:    vec3.T{0, 0, 0},
		VUp:       vec3.T{0, 1, 0},
		VFOV:      80,
		FocusDist: 10,
	}, nil
}

func simpleLight(s *scene.Scene, opts Options, rng *rand.Rand) (camera.Params, error) {
	s.Background = scene.SolidBackground(vec3.T{0, 0, 0})

	noise := s.AddMaterial(material.NewLambertian(texture.NewNoise(4)))
	light := s.AddMaterial(material.NewDiffuseLightRGB(4, 4, 4))

	s.AddObject(geometry.NewSphere(vec3.T{0, -1000, 0}, 1000, s.Material(noise)))
	s.AddObject(geometry.NewSphere(vec3.T{0, 2, 0}, 2, s.Material(noise)))
	s.AddObject(geometry.NewXYRect(3, 5, 1, 3, -2, s.Material(light)))
	s.AddObject(geometry.NewSphere(vec3.T{0, 7, 0}, 2, s.Material(light)))

	params := farView(vec3.T{26, 3, 6})
	params.LookAt = vec3.T{0, 2, 0}
	return params, nil
}

type cornellMaterials struct {
	red, white, green hit.Material
}

// cornellWalls adds the five walls of the box, open towards the camera.
func cornellWalls(s *scene.Scene) cornellMaterials {
	red := s.AddMaterial(material.NewLambertianRGB(0.65, 0.05, 0.05))
	white := s.AddMaterial(material.NewLambertianRGB(0.73, 0.73, 0.73))
	green := s.AddMaterial(material.NewLambertianRGB(0.12, 0.45, 0.15))

	m := cornellMaterials{
		red:   s.Material(red),
		white: s.Material(white),
		green: s.Material(green),
	}

	s.AddObject(geometry.NewYZRect(0, 555, 0, 555, 555, m.green))
	s.AddObject(geometry.NewYZRect(0, 555, 0, 555, 0, m.red))
	s.AddObject(geometry.NewXZRect(0, 555, 0, 555, 0, m.white))
	s.AddObject(geometry.NewXZRect(0, 555, 0, 555, 555, m.white))
	s.AddObject(geometry.NewXYRect(0, 555, 0, 555, 555, m.white))
	return m
}

// cornellBoxes returns the tall and short boxes, turned and placed.
func cornellBoxes(white hit.Material) (hit.Hittable, hit.Hittable) {
	tall := geometry.NewBox(vec3.T{0, 0, 0}, vec3.T{165, 330, 165}, white)
	short := geometry.NewBox(vec3.T{0, 0, 0}, vec3.T{165, 165, 165}, white)

	return geometry.Translate(geometry.Rotate(tall, geometry.AxisY, 15), vec3.T{265, 0, 295}),
		geometry.Translate(geometry.Rotate(short, geometry.AxisY, -18), vec3.T{130, 0, 65})
}

func cornellView() camera.Params {
	return camera.Params{
		LookFrom:  vec3.T{278, 278, -800},
		LookAt:    vec3.T{278, 278, 0},
		VUp:       vec3.T{0, 1, 0},
		VFOV:      40,
		FocusDist: 10,
	}
}

func cornellBox(s *scene.Scene, opts Options, rng *rand.Rand) (camera.Params, error) {
	s.Background = scene.SolidBackground(vec3.T{0, 0, 0})

	m := cornellWalls(s)
	light := s.AddMaterial(material.NewDiffuseLightRGB(15, 15, 15))
	s.AddObject(geometry.NewXZRect(213, 343, 227, 332, 554, s.Material(light)))

	tall, short := cornellBoxes(m.white)
	s.AddObject(tall)
	s.AddObject(short)

	return cornellView(), nil
}

func cornellSmoke(s *scene.Scene, opts Options, rng *rand.Rand) (camera.Params, error) {
	s.Background = scene.SolidBackground(vec3.T{0, 0, 0})

	m := cornellWalls(s)
	light := s.AddMaterial(material.NewDiffuseLightRGB(7, 7, 7))
	s.AddObject(geometry.NewXZRect(113, 443, 127, 432, 554, s.Material(light)))

	tall, short := cornellBoxes(m.white)
	s.AddObject(geometry.NewConstantMedium(tall, 0.01, material.NewIsotropic(texture.NewSolid(0, 0, 0))))
	s.AddObject(geometry.NewConstantMedium(short, 0.01, material.NewIsotropic(texture.NewSolid(1, 1, 1))))

	return cornellView(), nil
}

func finalScene(s *scene.Scene, opts Options, rng *rand.Rand) (camera.Params, error) {
	s.Background = scene.SolidBackground(vec3.T{0, 0, 0})

	const boxesPerSide = 20
	ground := material.NewLambertianRGB(0.48, 0.83, 0.53)
	var boxes1 []hit.Hittable
	for i := 0; i < boxesPerSide; i++ {
		for j := 0; j < boxesPerSide; j++ {
			const w = 100.0
			x0 := -1000.0 + float64(i)*w
			z0 := -1000.0 + float64(j)*w
			y1 := 1 + 100*rng.Float64()
			boxes1 = append(boxes1, geometry.NewBox(vec3.T{x0, 0, z0}, vec3.T{x0 + w, y1, z0 + w}, ground))
		}
	}
	s.AddObject(bvh.Build(boxes1, s.Time0, s.Time1))

	s.AddObject(geometry.NewXZRect(123, 423, 147, 412, 554, material.NewDiffuseLightRGB(7, 7, 7)))

	center0 := vec3.T{400, 400, 200}
	center1 := vec3.AddVV(center0, vec3.T{30, 0, 0})
	s.AddObject(geometry.NewMovingSphere(center0, center1, 0, 1, 50, material.NewLambertianRGB(0.7, 0.3, 0.1)))

	glass := s.AddMaterial(material.NewDielectric(1.5))
	s.AddObject(geometry.NewSphere(vec3.T{260, 150, 45}, 50, s.Material(glass)))
	s.AddObject(geometry.NewSphere(vec3.T{0, 150, 145}, 50, material.NewMetal(vec3.T{0.8, 0.8, 0.9}, 1.0)))

	boundary := geometry.NewSphere(vec3.T{360, 150, 145}, 70, s.Material(glass))
	s.AddObject(boundary)
	s.AddObject(geometry.NewConstantMedium(boundary, 0.2, material.NewIsotropic(texture.NewSolid(0.2, 0.4, 0.9))))

	mist := geometry.NewSphere(vec3.T{0, 0, 0}, 5000, s.Material(glass))
	s.AddObject(geometry.NewConstantMedium(mist, 0.0001, material.NewIsotropic(texture.NewSolid(1, 1, 1))))

	tex, err := earthTexture(opts)
	if err != nil {
		return camera.Params{}, err
	}
	s.AddObject(geometry.NewSphere(vec3.T{400, 200, 400}, 100, material.NewLambertian(tex)))
	s.AddObject(geometry.NewSphere(vec3.T{220, 280, 300}, 80, material.NewLambertian(texture.NewNoise(0.2))))

	const ns = 1000
	white := material.NewLambertianRGB(0.73, 0.73, 0.73)
	var boxes2 []hit.Hittable
	for j := 0; j < ns; j++ {
		boxes2 = append(boxes2, geometry.NewSphere(vec3.RandomInRange(0, 165, rng), 10, white))
	}
	cluster := bvh.Build(boxes2, s.Time0, s.Time1)
	s.AddObject(geometry.Translate(geometry.Rotate(cluster, geometry.AxisY, 15), vec3.T{-100, 270, 395}))

	return camera.Params{
		LookFrom:  vec3.T{478, 278, -600},
		LookAt:    vec3.T{278, 278, 0},
		VUp:       vec3.T{0, 1, 0},
		VFOV:      40,
		FocusDist: 10,
	}, nil
}

package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/chazu/cleave/pkg/kernel"
	"github.com/chazu/cleave/pkg/physics"
	"github.com/chazu/cleave/pkg/scene"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(sphere "ball" :diameter 1)`,
			expect: `(sphere "ball" "__kw_diameter" 1)`,
		},
		{
			name:   "multiple keywords",
			input:  `(ground "g" :width 10 :depth 10)`,
			expect: `(ground "g" "__kw_width" 10 "__kw_depth" 10)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(hemi-light "l" :direction up)`,
			expect: `(hemi_light "l" "__kw_direction" up)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(vec3 0 1 -5)`,
			expect: `(vec3 0 1 -5)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hyphen in keyword preserved",
			input:  `:invert-normal-x`,
			expect: `"__kw_invert-normal-x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func mustEvaluate(t *testing.T, source string) *scene.Scene {
	t.Helper()
	sc, evalErrs, err := newTestEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if sc == nil {
		t.Fatal("expected non-nil scene")
	}
	return sc
}

func expectEvalError(t *testing.T, source, contains string) {
	t.Helper()
	sc, evalErrs, err := newTestEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if sc != nil {
		t.Fatal("expected nil scene on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	if !strings.Contains(evalErrs[0].Message, contains) {
		t.Errorf("eval error %q does not mention %q", evalErrs[0].Message, contains)
	}
}

// ---------------------------------------------------------------------------
// Primitive tests
// ---------------------------------------------------------------------------

func TestSphere(t *testing.T) {
	sc := mustEvaluate(t, `(sphere "ball" :diameter 1 :at (vec3 0 1 0))`)
	if sc.Count() != 1 {
		t.Fatalf("expected 1 mesh, got %d", sc.Count())
	}
	ball := sc.Lookup("ball")
	if ball == nil {
		t.Fatal("expected mesh named 'ball'")
	}
	if got := ball.Position(); got != (kernel.Vec3{Y: 1}) {
		t.Errorf("position = %v, want (0, 1, 0)", got)
	}
	min, max := ball.Extents()
	if max.X-min.X != 1 {
		t.Errorf("expected diameter 1, got %f", max.X-min.X)
	}
	if !ball.Pickable() {
		t.Error("meshes should be pickable by default")
	}
}

func TestBoxDimensions(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		w, h, d float64
	}{
		{"default", `(box "b")`, 1, 1, 1},
		{"cube", `(box "b" :size 2)`, 2, 2, 2},
		{"cuboid", `(box "b" :width 4 :height 0.5 :depth 1)`, 4, 0.5, 1},
		{"size with override", `(box "b" :size 2 :height 3)`, 2, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := mustEvaluate(t, tt.source)
			min, max := sc.Lookup("b").Extents()
			size := max.Sub(min)
			if size != (kernel.Vec3{X: tt.w, Y: tt.h, Z: tt.d}) {
				t.Errorf("size = %v, want (%g, %g, %g)", size, tt.w, tt.h, tt.d)
			}
		})
	}
}

func TestCylinderStandsUp(t *testing.T) {
	sc := mustEvaluate(t, `(cylinder "post" :height 3 :diameter 1)`)
	min, max := sc.Lookup("post").Extents()
	if h := max.Y - min.Y; h < 2.99 || h > 3.01 {
		t.Errorf("expected height 3 along Y, got %f", h)
	}
}

func TestGround(t *testing.T) {
	sc := mustEvaluate(t, `(ground "ground" :width 10 :depth 10 :pickable false)`)
	g := sc.Lookup("ground")
	if g.Pickable() {
		t.Error("ground should not be pickable")
	}
	_, max := g.Extents()
	if max.Y != 0 {
		t.Errorf("ground top should be at 0, got %f", max.Y)
	}
}

func TestVariableReference(t *testing.T) {
	sc := mustEvaluate(t, `
(def d 3)
(sphere "big" :diameter d)
`)
	min, max := sc.Lookup("big").Extents()
	if max.X-min.X != 3 {
		t.Errorf("expected diameter 3 (from variable), got %f", max.X-min.X)
	}
}

func TestPlace(t *testing.T) {
	sc := mustEvaluate(t, `
(box "crate")
(place (mesh "crate") :at (vec3 1 2 3) :rotation (vec3 0 0.5 0) :visible false)
`)
	crate := sc.Lookup("crate")
	if crate.Position() != (kernel.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("position = %v", crate.Position())
	}
	if crate.Rotation() != (kernel.Vec3{Y: 0.5}) {
		t.Errorf("rotation = %v", crate.Rotation())
	}
	if crate.Visible() {
		t.Error("expected crate to be hidden")
	}
}

// ---------------------------------------------------------------------------
// Physics
// ---------------------------------------------------------------------------

func TestImpostor(t *testing.T) {
	sc := mustEvaluate(t, `
(def floor (ground "ground" :width 10 :depth 10))
(impostor floor :shape :plane :mass 0 :restitution 0.9)
(impostor (sphere "ball" :at (vec3 0 1 0)) :shape :sphere :mass 1)
`)
	bodies := sc.World().Bodies()
	if len(bodies) != 2 {
		t.Fatalf("expected 2 bodies, got %d", len(bodies))
	}
	g := sc.Lookup("ground").Body()
	if g == nil || g.Shape != physics.ShapePlane || !g.Static() || g.Restitution != 0.9 {
		t.Errorf("unexpected ground body %+v", g)
	}
	b := sc.Lookup("ball").Body()
	if b == nil || b.Shape != physics.ShapeSphere || b.Mass != 1 {
		t.Errorf("unexpected ball body %+v", b)
	}
	if b.Position() != (kernel.Vec3{Y: 1}) {
		t.Errorf("body should start at the mesh position, got %v", b.Position())
	}
}

func TestPlaceAfterImpostor(t *testing.T) {
	sc := mustEvaluate(t, `
(def floor (ground "ground" :width 10 :depth 10))
(impostor floor :shape :plane :mass 0)
(place floor :at (vec3 0 -1 0))
(def b (box "b" :size 1))
(impostor b :mass 1)
(place b :at (vec3 5 20 0))
`)
	b := sc.Lookup("b")
	if got := b.Body().Position(); got != (kernel.Vec3{X: 5, Y: 20}) {
		t.Fatalf("body should follow the placed mesh, got %v", got)
	}
	if got := sc.Lookup("ground").Body().Position(); got != (kernel.Vec3{Y: -1}) {
		t.Errorf("ground body = %v, want (0,-1,0)", got)
	}

	sc.Render(1.0 / 60)
	p := b.Position()
	if p.X != 5 || p.Y >= 20 || p.Y < 19.9 {
		t.Errorf("after one frame position = %v, want just below (5,20,0)", p)
	}

	for i := 0; i < 600; i++ {
		sc.Render(1.0 / 60)
	}
	if y := b.Position().Y; math.Abs(y+0.5) > 0.02 {
		t.Errorf("box should rest on the floor at y=-0.5, got %f", y)
	}
}

func TestImpostorErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		contains string
	}{
		{"unknown shape", `(impostor (box "b") :shape :capsule)`, "capsule"},
		{"negative mass", `(impostor (box "b") :mass -1)`, "mass"},
		{"twice", `(def b (box "b")) (impostor b :mass 1) (impostor b :mass 1)`, "already has a body"},
		{"not a mesh", `(impostor 42 :mass 1)`, "expected mesh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectEvalError(t, tt.source, tt.contains)
		})
	}
}

// ---------------------------------------------------------------------------
// Camera, lights, environment
// ---------------------------------------------------------------------------

func TestCameraAndLight(t *testing.T) {
	sc := mustEvaluate(t, `
(camera "camera" :at (vec3 0 1 -5) :speed 0.25)
(hemi-light "light" :direction (vec3 0 1 0) :intensity 0.7)
`)
	if sc.Camera == nil {
		t.Fatal("expected a camera")
	}
	if sc.Camera.Position != (kernel.Vec3{Y: 1, Z: -5}) || sc.Camera.Speed != 0.25 {
		t.Errorf("unexpected camera %+v", sc.Camera)
	}
	if sc.Camera.FOV != scene.DefaultFOV {
		t.Errorf("expected default fov, got %f", sc.Camera.FOV)
	}
	if len(sc.Lights) != 1 || sc.Lights[0].Name != "light" || sc.Lights[0].Intensity != 0.7 {
		t.Errorf("unexpected lights %+v", sc.Lights)
	}
}

func TestCameraTarget(t *testing.T) {
	sc := mustEvaluate(t, `(camera "camera" :at (vec3 0 5 -5) :target (vec3 0 0 0))`)
	f := sc.Camera.Forward()
	if f.Y >= 0 || f.Z <= 0 {
		t.Errorf("camera should look down and forward, got %v", f)
	}
}

func TestEnvironment(t *testing.T) {
	sc := mustEvaluate(t, `(environment "environment/sky.env" :intensity 0.5 :skybox true)`)
	if sc.Environment == nil {
		t.Fatal("expected an environment")
	}
	if sc.Environment.Texture != "environment/sky.env" || sc.Environment.Intensity != 0.5 || !sc.Environment.Skybox {
		t.Errorf("unexpected environment %+v", sc.Environment)
	}
}

// ---------------------------------------------------------------------------
// Materials
// ---------------------------------------------------------------------------

func TestStandardMaterial(t *testing.T) {
	sc := mustEvaluate(t, `
(def rock (standard-material "rock"
  :diffuse (texture "textures/rock_diff.jpg")
  :bump (texture "textures/rock_nor.jpg")
  :ambient (texture "textures/rock_ao.jpg")
  :specular (texture "textures/rock_spec.jpg")
  :invert-normal-x true :invert-normal-y true
  :uv-scale 5))
(ground "ground" :width 10 :depth 10 :material rock)
`)
	mat, ok := sc.Material("rock").(*scene.StandardMaterial)
	if !ok {
		t.Fatalf("expected standard material, got %T", sc.Material("rock"))
	}
	if len(mat.Textures()) != 4 {
		t.Errorf("expected 4 textures, got %d", len(mat.Textures()))
	}
	for _, tex := range mat.Textures() {
		if tex.UScale != 5 || tex.VScale != 5 {
			t.Errorf("texture %s: expected uv scale 5, got %g/%g", tex.URL, tex.UScale, tex.VScale)
		}
	}
	if !mat.InvertNormalMapX || !mat.InvertNormalMapY {
		t.Error("expected inverted normal map axes")
	}
	if sc.Lookup("ground").Material() != "rock" {
		t.Errorf("ground material = %q", sc.Lookup("ground").Material())
	}
}

func TestPBRMaterial(t *testing.T) {
	sc := mustEvaluate(t, `
(pbr-material "metal"
  :albedo (texture "textures/metal_diff.jpg")
  :bump (texture "textures/metal_nor.jpg")
  :metallic (texture "textures/metal_arm.jpg")
  :emissive (texture "textures/metal_em.jpg")
  :emissive-color "#ffffff" :emissive-intensity 3
  :ao-from-r true :roughness-from-g true :metalness-from-b true
  :invert-normal-x)
(sphere "ball" :material "metal")
`)
	mat, ok := sc.Material("metal").(*scene.PBRMaterial)
	if !ok {
		t.Fatalf("expected pbr material, got %T", sc.Material("metal"))
	}
	if !mat.AmbientOcclusionFromMetallicR || !mat.RoughnessFromMetallicG || !mat.MetalnessFromMetallicB {
		t.Error("expected all metallic channel flags")
	}
	if mat.EmissiveColor != (scene.Color3{R: 1, G: 1, B: 1}) || mat.EmissiveIntensity != 3 {
		t.Errorf("unexpected emissive %+v x%g", mat.EmissiveColor, mat.EmissiveIntensity)
	}
	if !mat.InvertNormalMapX {
		t.Error("bare trailing keyword should set the flag")
	}
}

func TestMaterialErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		contains string
	}{
		{"duplicate", `(standard-material "m") (pbr-material "m")`, "duplicate material"},
		{"bad color", `(standard-material "m" :diffuse-color "red")`, "invalid color"},
		{"texture not texture", `(standard-material "m" :diffuse "rock.jpg")`, "expected texture"},
		{"unknown material", `(sphere "ball" :material "nope")`, "unknown material"},
		{"empty texture url", `(standard-material "m" :bump (texture ""))`, "empty URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectEvalError(t, tt.source, tt.contains)
		})
	}
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		contains string
	}{
		{"vec3 arity", `(vec3 1 2)`, "exactly 3"},
		{"vec3 type", `(vec3 1 "a" 3)`, "expected number"},
		{"missing name", `(sphere :diameter 1)`, "requires a name"},
		{"name not string", `(sphere 3)`, "expected string"},
		{"no args", `(box)`, "requires a name"},
		{"bad diameter", `(sphere "s" :diameter 0)`, "sphere"},
		{"unknown mesh", `(mesh "ghost")`, "no mesh named"},
		{"place non-mesh", `(place 1 :at (vec3 0 0 0))`, "expected mesh"},
		{"bad position", `(box "b" :at 3)`, "expected vec3"},
		{"bad flag", `(box "b" :pickable 3)`, "expected boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectEvalError(t, tt.source, tt.contains)
		})
	}
}

// ---------------------------------------------------------------------------
// Full demo scene
// ---------------------------------------------------------------------------

func TestDemoScene(t *testing.T) {
	sc := mustEvaluate(t, `
;; camera and light
(camera "camera" :at (vec3 0 1 -5) :speed 0.25)
(hemi-light "light" :direction (vec3 0 1 0))

(def ball (sphere "ball" :diameter 1 :at (vec3 0 1 0)))
(def floor (ground "ground" :width 10 :depth 10 :pickable false))
(impostor floor :shape :plane :mass 0 :restitution 0.9)
`)
	if sc.Count() != 2 {
		t.Fatalf("expected 2 meshes, got %d", sc.Count())
	}
	info, err := sc.PickAt(400, 300, 800, 600)
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if !info.Hit || info.Mesh.Name() != "ball" {
		t.Fatalf("expected to pick the ball, got %+v", info)
	}
	if findings := scene.Validate(sc); scene.HasErrors(findings) {
		t.Errorf("unexpected validation errors: %v", findings)
	}
}

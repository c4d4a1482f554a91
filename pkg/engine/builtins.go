package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/cleave/pkg/kernel"
	"github.com/chazu/cleave/pkg/physics"
	"github.com/chazu/cleave/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms cleave scene scripts before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: hemi-light -> hemi_light
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpMesh wraps a scene mesh so it can be passed between builtins.
type sexpMesh struct {
	mesh *scene.Mesh
}

func (m *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh %q)", m.mesh.Name())
}
func (m *sexpMesh) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a kernel.Vec3.
type sexpVec3 struct {
	vec kernel.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpTexture wraps a scene.Texture.
type sexpTexture struct {
	tex *scene.Texture
}

func (t *sexpTexture) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(texture %q)", t.tex.URL)
}
func (t *sexpTexture) Type() *zygo.RegisteredType { return nil }

// sexpMaterial names a material registered with the scene.
type sexpMaterial struct {
	name string
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material %q)", m.name)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value is a flag.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// name returns the first positional argument as a string.
func (pa kwArgs) name(fn string) (string, error) {
	if len(pa.positional) < 1 {
		return "", fmt.Errorf("%s requires a name argument", fn)
	}
	s, err := toString(pa.positional[0])
	if err != nil {
		return "", fmt.Errorf("%s: name: %w", fn, err)
	}
	return s, nil
}

// float reads an optional numeric keyword into dst.
func (pa kwArgs) float(fn, key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = f
	return nil
}

// vec reads an optional vec3 keyword into dst.
func (pa kwArgs) vec(fn, key string, dst *kernel.Vec3) (bool, error) {
	v, ok := pa.kw[key]
	if !ok {
		return false, nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return false, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = vec
	return true, nil
}

// flag reads an optional boolean keyword into dst. A bare trailing
// keyword counts as true.
func (pa kwArgs) flag(fn, key string, dst *bool) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	b, err := toBool(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = b
	return nil
}

// texture reads an optional texture keyword into dst.
func (pa kwArgs) texture(fn, key string, dst **scene.Texture) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	t, err := toTexture(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = t
	return nil
}

// color reads an optional "#rrggbb" keyword into dst.
func (pa kwArgs) color(fn, key string, dst **scene.Color3) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	s, err := toString(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	c, err := scene.ParseHexColor(s)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	*dst = &c
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean. SexpNull stands for a bare flag.
func toBool(s zygo.Sexp) (bool, error) {
	if s == zygo.SexpNull {
		return true, nil
	}
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_box) and plain strings ("box").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toMesh extracts a live mesh from a sexpMesh.
func toMesh(s zygo.Sexp) (*scene.Mesh, error) {
	m, ok := s.(*sexpMesh)
	if !ok {
		return nil, fmt.Errorf("expected mesh, got %T (%s)", s, s.SexpString(nil))
	}
	if m.mesh.IsDisposed() {
		return nil, fmt.Errorf("mesh %q has been disposed", m.mesh.Name())
	}
	return m.mesh, nil
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (kernel.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return kernel.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toTexture extracts a texture from a sexpTexture.
func toTexture(s zygo.Sexp) (*scene.Texture, error) {
	if t, ok := s.(*sexpTexture); ok {
		return t.tex, nil
	}
	return nil, fmt.Errorf("expected texture, got %T (%s)", s, s.SexpString(nil))
}

// toMaterialName accepts a material value or a material name.
func toMaterialName(s zygo.Sexp) (string, error) {
	if m, ok := s.(*sexpMaterial); ok {
		return m.name, nil
	}
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected material, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Mesh options shared by all primitives
// ---------------------------------------------------------------------------

// applyMeshOptions handles :at, :rotation, :pickable, :visible and
// :material on a freshly created mesh.
func applyMeshOptions(fn string, m *scene.Mesh, pa kwArgs) error {
	var v kernel.Vec3
	if ok, err := pa.vec(fn, "at", &v); err != nil {
		return err
	} else if ok {
		m.SetPosition(v)
	}
	if ok, err := pa.vec(fn, "rotation", &v); err != nil {
		return err
	} else if ok {
		m.SetRotation(v)
	}
	pickable := m.Pickable()
	if err := pa.flag(fn, "pickable", &pickable); err != nil {
		return err
	}
	m.SetPickable(pickable)
	visible := m.Visible()
	if err := pa.flag(fn, "visible", &visible); err != nil {
		return err
	}
	m.SetVisible(visible)
	if raw, ok := pa.kw["material"]; ok {
		name, err := toMaterialName(raw)
		if err != nil {
			return fmt.Errorf("%s: material: %w", fn, err)
		}
		m.SetMaterial(name)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene scripting builtins into a zygomys
// environment. The builtins populate sc during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *scene.Scene) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: kernel.Vec3{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (box "crate" :size 1)  or  (box "plank" :width 4 :height 0.5 :depth 1)
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		meshName, err := pa.name("box")
		if err != nil {
			return zygo.SexpNull, err
		}
		size := 1.0
		if err := pa.float("box", "size", &size); err != nil {
			return zygo.SexpNull, err
		}
		w, h, d := size, size, size
		for key, dst := range map[string]*float64{"width": &w, "height": &h, "depth": &d} {
			if err := pa.float("box", key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		m, err := sc.CreateBox(meshName, w, h, d)
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := applyMeshOptions("box", m, pa); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere "ball" :diameter 1 :at (vec3 0 1 0))
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		meshName, err := pa.name("sphere")
		if err != nil {
			return zygo.SexpNull, err
		}
		diameter := 1.0
		if err := pa.float("sphere", "diameter", &diameter); err != nil {
			return zygo.SexpNull, err
		}
		m, err := sc.CreateSphere(meshName, diameter)
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := applyMeshOptions("sphere", m, pa); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (cylinder "post" :height 2 :diameter 0.5)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		meshName, err := pa.name("cylinder")
		if err != nil {
			return zygo.SexpNull, err
		}
		height, diameter := 1.0, 1.0
		if err := pa.float("cylinder", "height", &height); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.float("cylinder", "diameter", &diameter); err != nil {
			return zygo.SexpNull, err
		}
		m, err := sc.CreateCylinder(meshName, height, diameter)
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := applyMeshOptions("cylinder", m, pa); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (ground "ground" :width 10 :depth 10 :pickable false)
	// -----------------------------------------------------------------------
	env.AddFunction("ground", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		meshName, err := pa.name("ground")
		if err != nil {
			return zygo.SexpNull, err
		}
		width, depth := 1.0, 1.0
		if err := pa.float("ground", "width", &width); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.float("ground", "depth", &depth); err != nil {
			return zygo.SexpNull, err
		}
		m, err := sc.CreateGround(meshName, width, depth)
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := applyMeshOptions("ground", m, pa); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (mesh "ball")
	// -----------------------------------------------------------------------
	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		meshName, err := pa.name("mesh")
		if err != nil {
			return zygo.SexpNull, err
		}
		m := sc.Lookup(meshName)
		if m == nil {
			return zygo.SexpNull, fmt.Errorf("mesh: no mesh named %q", meshName)
		}
		return &sexpMesh{mesh: m}, nil
	})

	// -----------------------------------------------------------------------
	// (place (mesh "ball") :at (vec3 0 1 0) :rotation (vec3 0 0.5 0))
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a mesh as first argument")
		}
		m, err := toMesh(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		if err := applyMeshOptions("place", m, pa); err != nil {
			return zygo.SexpNull, err
		}
		return pa.positional[0], nil
	})

	// -----------------------------------------------------------------------
	// (impostor (mesh "ground") :shape :plane :mass 0 :restitution 0.9)
	// -----------------------------------------------------------------------
	env.AddFunction("impostor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("impostor requires a mesh as first argument")
		}
		m, err := toMesh(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("impostor: %w", err)
		}
		imp := physics.Impostor{Shape: physics.ShapeBox}
		if v, ok := pa.kw["shape"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("impostor: shape: %w", err)
			}
			if imp.Shape, err = physics.ParseShape(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("impostor: %w", err)
			}
		}
		if err := pa.float("impostor", "mass", &imp.Mass); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.float("impostor", "restitution", &imp.Restitution); err != nil {
			return zygo.SexpNull, err
		}
		if _, err := sc.AttachBody(m, imp); err != nil {
			return zygo.SexpNull, fmt.Errorf("impostor: %w", err)
		}
		return pa.positional[0], nil
	})

	// -----------------------------------------------------------------------
	// (camera "camera" :at (vec3 0 1 -5) :target (vec3 0 0 0) :speed 0.25)
	// -----------------------------------------------------------------------
	env.AddFunction("camera", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		camName, err := pa.name("camera")
		if err != nil {
			return zygo.SexpNull, err
		}
		cam := scene.NewFreeCamera(camName, kernel.Vec3{})
		if _, err := pa.vec("camera", "at", &cam.Position); err != nil {
			return zygo.SexpNull, err
		}
		if _, err := pa.vec("camera", "rotation", &cam.Rotation); err != nil {
			return zygo.SexpNull, err
		}
		var target kernel.Vec3
		if ok, err := pa.vec("camera", "target", &target); err != nil {
			return zygo.SexpNull, err
		} else if ok {
			cam.SetTarget(target)
		}
		if err := pa.float("camera", "speed", &cam.Speed); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.float("camera", "fov", &cam.FOV); err != nil {
			return zygo.SexpNull, err
		}
		sc.Camera = cam
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (hemi-light "light" :direction (vec3 0 1 0) :intensity 0.7)
	// -----------------------------------------------------------------------
	env.AddFunction("hemi_light", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lightName, err := pa.name("hemi-light")
		if err != nil {
			return zygo.SexpNull, err
		}
		l := scene.NewHemisphericLight(lightName, kernel.Vec3{Y: 1})
		if _, err := pa.vec("hemi-light", "direction", &l.Direction); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.float("hemi-light", "intensity", &l.Intensity); err != nil {
			return zygo.SexpNull, err
		}
		sc.AddLight(l)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (texture "textures/rock_diff.jpg" :u-scale 5 :v-scale 5)
	// -----------------------------------------------------------------------
	env.AddFunction("texture", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		url, err := pa.name("texture")
		if err != nil {
			return zygo.SexpNull, err
		}
		tex := scene.NewTexture(url)
		if err := pa.float("texture", "u-scale", &tex.UScale); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.float("texture", "v-scale", &tex.VScale); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpTexture{tex: tex}, nil
	})

	// -----------------------------------------------------------------------
	// (standard-material "rock" :diffuse (texture "d.jpg") :bump (texture "n.jpg")
	//                    :invert-normal-x true :uv-scale 5)
	// -----------------------------------------------------------------------
	env.AddFunction("standard_material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const fn = "standard-material"
		pa := parseArgs(args)
		matName, err := pa.name(fn)
		if err != nil {
			return zygo.SexpNull, err
		}
		mat := &scene.StandardMaterial{Name: matName}
		for key, dst := range map[string]**scene.Texture{
			"diffuse": &mat.Diffuse, "bump": &mat.Bump, "ambient": &mat.Ambient, "specular": &mat.Specular,
		} {
			if err := pa.texture(fn, key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		if err := pa.color(fn, "diffuse-color", &mat.DiffuseColor); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.flag(fn, "invert-normal-x", &mat.InvertNormalMapX); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.flag(fn, "invert-normal-y", &mat.InvertNormalMapY); err != nil {
			return zygo.SexpNull, err
		}
		if err := applyUVScale(fn, mat, pa); err != nil {
			return zygo.SexpNull, err
		}
		if err := sc.AddMaterial(mat); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		return &sexpMaterial{name: matName}, nil
	})

	// -----------------------------------------------------------------------
	// (pbr-material "metal" :albedo (texture "a.jpg") :metallic (texture "arm.jpg")
	//               :ao-from-r true :roughness-from-g true :metalness-from-b true)
	// -----------------------------------------------------------------------
	env.AddFunction("pbr_material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		const fn = "pbr-material"
		pa := parseArgs(args)
		matName, err := pa.name(fn)
		if err != nil {
			return zygo.SexpNull, err
		}
		mat := &scene.PBRMaterial{Name: matName}
		for key, dst := range map[string]**scene.Texture{
			"albedo": &mat.Albedo, "bump": &mat.Bump, "metallic": &mat.Metallic, "emissive": &mat.Emissive,
		} {
			if err := pa.texture(fn, key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		if err := pa.color(fn, "albedo-color", &mat.AlbedoColor); err != nil {
			return zygo.SexpNull, err
		}
		var emissive *scene.Color3
		if err := pa.color(fn, "emissive-color", &emissive); err != nil {
			return zygo.SexpNull, err
		}
		if emissive != nil {
			mat.EmissiveColor = *emissive
		}
		if err := pa.float(fn, "emissive-intensity", &mat.EmissiveIntensity); err != nil {
			return zygo.SexpNull, err
		}
		for key, dst := range map[string]*bool{
			"invert-normal-x":  &mat.InvertNormalMapX,
			"invert-normal-y":  &mat.InvertNormalMapY,
			"ao-from-r":        &mat.AmbientOcclusionFromMetallicR,
			"roughness-from-g": &mat.RoughnessFromMetallicG,
			"metalness-from-b": &mat.MetalnessFromMetallicB,
		} {
			if err := pa.flag(fn, key, dst); err != nil {
				return zygo.SexpNull, err
			}
		}
		if err := applyUVScale(fn, mat, pa); err != nil {
			return zygo.SexpNull, err
		}
		if err := sc.AddMaterial(mat); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
		}
		return &sexpMaterial{name: matName}, nil
	})

	// -----------------------------------------------------------------------
	// (environment "environment/sky.env" :intensity 0.5 :skybox true)
	// -----------------------------------------------------------------------
	env.AddFunction("environment", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		url, err := pa.name("environment")
		if err != nil {
			return zygo.SexpNull, err
		}
		e := &scene.Environment{Texture: url, Intensity: 1}
		if err := pa.float("environment", "intensity", &e.Intensity); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.flag("environment", "skybox", &e.Skybox); err != nil {
			return zygo.SexpNull, err
		}
		sc.Environment = e
		return zygo.SexpNull, nil
	})
}

// applyUVScale tiles every texture of mat when :uv-scale is given.
func applyUVScale(fn string, mat scene.Material, pa kwArgs) error {
	if _, ok := pa.kw["uv-scale"]; !ok {
		return nil
	}
	var scale float64
	if err := pa.float(fn, "uv-scale", &scale); err != nil {
		return err
	}
	scene.SetUVScale(scale, mat.Textures()...)
	return nil
}

package scene

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Color3 is a linear RGB color with components in [0, 1].
type Color3 struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Hex formats c as #rrggbb.
func (c Color3) Hex() string {
	to := func(v float64) int {
		return int(lo.Clamp(v, 0, 1)*255 + 0.5)
	}
	return fmt.Sprintf("#%02x%02x%02x", to(c.R), to(c.G), to(c.B))
}

// ParseHexColor parses #rrggbb or rrggbb.
func ParseHexColor(s string) (Color3, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return Color3{}, fmt.Errorf("invalid color %q, expected #rrggbb", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color3{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color3{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, nil
}

// Texture references an image by URL. Scales tile the UVs.
type Texture struct {
	URL    string  `json:"url"`
	UScale float64 `json:"uScale"`
	VScale float64 `json:"vScale"`
}

// NewTexture returns an untiled texture.
func NewTexture(url string) *Texture {
	return &Texture{URL: url, UScale: 1, VScale: 1}
}

// SetUVScale sets both scales on every non-nil texture.
func SetUVScale(scale float64, textures ...*Texture) {
	for _, t := range textures {
		if t != nil {
			t.UScale, t.VScale = scale, scale
		}
	}
}

// Material is a named surface description assigned to meshes.
type Material interface {
	MaterialName() string
	Textures() []*Texture
}

// StandardMaterial is a Blinn-Phong style material.
type StandardMaterial struct {
	Name             string   `json:"name"`
	DiffuseColor     *Color3  `json:"diffuseColor,omitempty"`
	Diffuse          *Texture `json:"diffuse,omitempty"`
	Bump             *Texture `json:"bump,omitempty"`
	Ambient          *Texture `json:"ambient,omitempty"`
	Specular         *Texture `json:"specular,omitempty"`
	InvertNormalMapX bool     `json:"invertNormalMapX"`
	InvertNormalMapY bool     `json:"invertNormalMapY"`
}

func (m *StandardMaterial) MaterialName() string { return m.Name }

func (m *StandardMaterial) Textures() []*Texture {
	return lo.Compact([]*Texture{m.Diffuse, m.Bump, m.Ambient, m.Specular})
}

// PBRMaterial is a metallic-roughness material. The channel flags select
// which components of the metallic texture carry occlusion, roughness and
// metalness.
type PBRMaterial struct {
	Name              string   `json:"name"`
	AlbedoColor       *Color3  `json:"albedoColor,omitempty"`
	Albedo            *Texture `json:"albedo,omitempty"`
	Bump              *Texture `json:"bump,omitempty"`
	Metallic          *Texture `json:"metallic,omitempty"`
	Emissive          *Texture `json:"emissive,omitempty"`
	EmissiveColor     Color3   `json:"emissiveColor"`
	EmissiveIntensity float64  `json:"emissiveIntensity"`
	InvertNormalMapX  bool     `json:"invertNormalMapX"`
	InvertNormalMapY  bool     `json:"invertNormalMapY"`

	AmbientOcclusionFromMetallicR bool `json:"aoFromMetallicR"`
	RoughnessFromMetallicG        bool `json:"roughnessFromMetallicG"`
	MetalnessFromMetallicB        bool `json:"metalnessFromMetallicB"`
}

func (m *PBRMaterial) MaterialName() string { return m.Name }

func (m *PBRMaterial) Textures() []*Texture {
	return lo.Compact([]*Texture{m.Albedo, m.Bump, m.Metallic, m.Emissive})
}

// BaseColor returns the flat color a material renders with when textures
// are unavailable.
func BaseColor(m Material) (Color3, bool) {
	switch v := m.(type) {
	case *StandardMaterial:
		if v.DiffuseColor != nil {
			return *v.DiffuseColor, true
		}
	case *PBRMaterial:
		if v.AlbedoColor != nil {
			return *v.AlbedoColor, true
		}
	}
	return Color3{}, false
}

// AddMaterial registers m under its name. Names must be unique.
func (s *Scene) AddMaterial(m Material) error {
	if m == nil || m.MaterialName() == "" {
		return fmt.Errorf("scene: material must have a name")
	}
	if _, ok := s.materials[m.MaterialName()]; ok {
		return fmt.Errorf("scene: duplicate material %q", m.MaterialName())
	}
	s.materials[m.MaterialName()] = m
	return nil
}

// Material returns the registered material with the given name, or nil.
func (s *Scene) Material(name string) Material {
	return s.materials[name]
}

// Materials returns the registered materials sorted by name.
func (s *Scene) Materials() []Material {
	names := lo.Keys(s.materials)
	sort.Strings(names)
	return lo.Map(names, func(n string, _ int) Material { return s.materials[n] })
}

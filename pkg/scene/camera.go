package scene

import (
	"fmt"
	"math"

	"github.com/chazu/cleave/pkg/kernel"
)

// DefaultFOV is the vertical field of view in radians.
const DefaultFOV = 0.8

// DefaultCameraSpeed is the free camera's movement speed per input tick.
const DefaultCameraSpeed = 2.0

// Camera is a free-look perspective camera. Its rotation is the Euler
// orientation handed to the slicer as the cut orientation. With zero
// rotation it looks down +Z with +Y up.
type Camera struct {
	Name     string       `json:"name"`
	Position kernel.Vec3  `json:"position"`
	Rotation kernel.Vec3  `json:"rotation"`
	FOV      float64      `json:"fov"`
	Speed    float64      `json:"speed"`
	Target   *kernel.Vec3 `json:"target,omitempty"`
}

// NewFreeCamera returns a camera at position looking down +Z.
func NewFreeCamera(name string, position kernel.Vec3) *Camera {
	return &Camera{
		Name:     name,
		Position: position,
		FOV:      DefaultFOV,
		Speed:    DefaultCameraSpeed,
	}
}

// SetTarget turns the camera to look at p. Roll is left at zero.
func (c *Camera) SetTarget(p kernel.Vec3) {
	d := p.Sub(c.Position)
	if d.IsZero() {
		return
	}
	yaw := math.Atan2(d.X, d.Z)
	pitch := -math.Atan2(d.Y, math.Hypot(d.X, d.Z))
	c.Rotation = kernel.Vec3{X: pitch, Y: yaw}
	t := p
	c.Target = &t
}

func (c *Camera) Forward() kernel.Vec3 { return kernel.Vec3{Z: 1}.Rotate(c.Rotation) }
func (c *Camera) Right() kernel.Vec3   { return kernel.Vec3{X: 1}.Rotate(c.Rotation) }
func (c *Camera) Up() kernel.Vec3      { return kernel.Vec3{Y: 1}.Rotate(c.Rotation) }

// Ray returns the world-space ray through the pointer at (x, y) on a
// viewport of the given size, with (0, 0) at the top-left corner.
func (c *Camera) Ray(x, y, width, height float64) (Ray, error) {
	if width <= 0 || height <= 0 {
		return Ray{}, fmt.Errorf("scene: viewport must be positive, got %gx%g", width, height)
	}
	fov := c.FOV
	if fov <= 0 || fov >= math.Pi {
		fov = DefaultFOV
	}
	ndcX := 2*x/width - 1
	ndcY := 1 - 2*y/height
	half := math.Tan(fov / 2)
	aspect := width / height

	dir := c.Forward().
		Add(c.Right().Scale(ndcX * half * aspect)).
		Add(c.Up().Scale(ndcY * half))
	return Ray{Origin: c.Position, Direction: dir.Normalize()}, nil
}

// HemisphericLight is an ambient light from one hemisphere.
type HemisphericLight struct {
	Name      string      `json:"name"`
	Direction kernel.Vec3 `json:"direction"`
	Intensity float64     `json:"intensity"`
}

// NewHemisphericLight returns a full-intensity light.
func NewHemisphericLight(name string, direction kernel.Vec3) *HemisphericLight {
	return &HemisphericLight{Name: name, Direction: direction, Intensity: 1}
}

// AddLight appends a light to the scene.
func (s *Scene) AddLight(l *HemisphericLight) {
	s.Lights = append(s.Lights, l)
}

// Environment is an image-based lighting source with an optional skybox.
type Environment struct {
	Texture   string  `json:"texture"`
	Intensity float64 `json:"intensity"`
	Skybox    bool    `json:"skybox"`
}

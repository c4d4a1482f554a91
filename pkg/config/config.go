// Package config holds cleave's tunables: tessellation resolution, the
// cutting cube and piece bodies, physics stepping and the camera. Files
// are TOML or YAML, chosen by extension; fields a file omits keep their
// defaults.
package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/cleave/pkg/kernel"
	"github.com/chazu/cleave/pkg/kernel/manifold"
	"github.com/chazu/cleave/pkg/kernel/sdfx"
	"github.com/chazu/cleave/pkg/physics"
	"github.com/chazu/cleave/pkg/slicer"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Kernel backends.
const (
	BackendSdfx     = "sdfx"
	BackendManifold = "manifold"
)

type Config struct {
	Kernel  Kernel  `toml:"kernel" yaml:"kernel" json:"kernel"`
	Slicer  Slicer  `toml:"slicer" yaml:"slicer" json:"slicer"`
	Physics Physics `toml:"physics" yaml:"physics" json:"physics"`
	Camera  Camera  `toml:"camera" yaml:"camera" json:"camera"`
}

type Kernel struct {
	Backend   string `toml:"backend" yaml:"backend" json:"backend"`
	MeshCells int    `toml:"mesh_cells" yaml:"mesh_cells" json:"meshCells"`
}

type Slicer struct {
	CutterSize float64   `toml:"cutter_size" yaml:"cutter_size" json:"cutterSize"`
	PieceBody  PieceBody `toml:"piece_body" yaml:"piece_body" json:"pieceBody"`
}

// PieceBody is the box body given to each slice piece.
type PieceBody struct {
	Mass        float64 `toml:"mass" yaml:"mass" json:"mass"`
	Restitution float64 `toml:"restitution" yaml:"restitution" json:"restitution"`
}

type Physics struct {
	Gravity     kernel.Vec3 `toml:"gravity" yaml:"gravity" json:"gravity"`
	TimeStep    float64     `toml:"time_step" yaml:"time_step" json:"timeStep"`
	MaxSubSteps int         `toml:"max_sub_steps" yaml:"max_sub_steps" json:"maxSubSteps"`
}

type Camera struct {
	FOV float64 `toml:"fov" yaml:"fov" json:"fov"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Kernel: Kernel{
			Backend:   BackendSdfx,
			MeshCells: sdfx.DefaultMeshCells,
		},
		Slicer: Slicer{
			CutterSize: slicer.DefaultCutterSize,
			PieceBody: PieceBody{
				Mass:        slicer.DefaultPieceBody.Mass,
				Restitution: slicer.DefaultPieceBody.Restitution,
			},
		},
		Physics: Physics{
			Gravity:     kernel.Vec3{Y: -9.81},
			TimeStep:    physics.DefaultFixedStep,
			MaxSubSteps: physics.DefaultMaxSubSteps,
		},
		Camera: Camera{FOV: 0.8},
	}
}

// decoder is satisfied by both the TOML and YAML decoders.
type decoder interface {
	Decode(v any) error
}

type decoderFunc func(r io.Reader) decoder

func decoderFor(path string) (decoderFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return func(r io.Reader) decoder {
			return toml.NewDecoder(r).DisallowUnknownFields()
		}, nil
	case ".yaml", ".yml":
		return func(r io.Reader) decoder {
			d := yaml.NewDecoder(r)
			d.KnownFields(true)
			return d
		}, nil
	}
	return nil, fmt.Errorf("config: unsupported file type %q, expected .toml, .yaml or .yml", filepath.Ext(path))
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	f, err := decoderFor(path)
	if err != nil {
		return Config{}, err
	}
	fp, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer fp.Close()
	return Read(bufio.NewReader(fp), f)
}

// Parse decodes data in the format implied by name over the defaults.
func Parse(name string, data []byte) (Config, error) {
	f, err := decoderFor(name)
	if err != nil {
		return Config{}, err
	}
	return Read(bytes.NewReader(data), f)
}

// Read decodes a config from r using f.
func Read(r io.Reader, f decoderFunc) (Config, error) {
	cfg := Default()
	if err := f(r).Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	switch c.Kernel.Backend {
	case BackendSdfx, BackendManifold:
	default:
		return fmt.Errorf("config: unknown kernel backend %q", c.Kernel.Backend)
	}
	if c.Kernel.MeshCells <= 0 {
		return fmt.Errorf("config: kernel.mesh_cells must be positive, got %d", c.Kernel.MeshCells)
	}
	if !positive(c.Slicer.CutterSize) {
		return fmt.Errorf("config: slicer.cutter_size must be positive, got %g", c.Slicer.CutterSize)
	}
	if err := c.PieceImpostor().Validate(); err != nil {
		return fmt.Errorf("config: slicer.piece_body: %w", err)
	}
	if c.Slicer.PieceBody.Mass == 0 {
		return fmt.Errorf("config: slicer.piece_body.mass must be positive")
	}
	if !c.Physics.Gravity.IsFinite() {
		return fmt.Errorf("config: physics.gravity must be finite")
	}
	if !positive(c.Physics.TimeStep) {
		return fmt.Errorf("config: physics.time_step must be positive, got %g", c.Physics.TimeStep)
	}
	if c.Physics.MaxSubSteps <= 0 {
		return fmt.Errorf("config: physics.max_sub_steps must be positive, got %d", c.Physics.MaxSubSteps)
	}
	if !positive(c.Camera.FOV) || c.Camera.FOV >= math.Pi {
		return fmt.Errorf("config: camera.fov must be in (0, pi), got %g", c.Camera.FOV)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// PieceImpostor returns the body descriptor for slice pieces.
func (c Config) PieceImpostor() physics.Impostor {
	return physics.Impostor{
		Shape:       physics.ShapeBox,
		Mass:        c.Slicer.PieceBody.Mass,
		Restitution: c.Slicer.PieceBody.Restitution,
	}
}

// SlicerOptions returns the slicer settings.
func (c Config) SlicerOptions() slicer.Options {
	return slicer.Options{CutterSize: c.Slicer.CutterSize, PieceBody: c.PieceImpostor()}
}

// NewWorld returns an empty physics world with the configured stepping.
func (c Config) NewWorld() *physics.World {
	w := physics.NewWorld(c.Physics.Gravity)
	w.FixedStep = c.Physics.TimeStep
	w.MaxSubSteps = c.Physics.MaxSubSteps
	return w
}

// OpenKernel constructs the configured geometry kernel.
func (c Config) OpenKernel() (kernel.Kernel, error) {
	switch c.Kernel.Backend {
	case BackendSdfx:
		return sdfx.NewWithCells(c.Kernel.MeshCells), nil
	case BackendManifold:
		k, err := manifold.New()
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return k, nil
	}
	return nil, fmt.Errorf("config: unknown kernel backend %q", c.Kernel.Backend)
}

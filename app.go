package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/chazu/cleave/pkg/config"
	"github.com/chazu/cleave/pkg/engine"
	"github.com/chazu/cleave/pkg/kernel"
	"github.com/chazu/cleave/pkg/scene"
	"github.com/chazu/cleave/pkg/slicer"
	"github.com/chazu/cleave/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to meshes
// whose material carries no flat color.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx context.Context

	mu     sync.Mutex
	cfg    config.Config
	kernel kernel.Kernel
	engine *engine.Engine
	slicer *slicer.Slicer
	scene  *scene.Scene
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Material string    `json:"material,omitempty"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend after loading a
// scene script.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Camera   *scene.Camera   `json:"camera,omitempty"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// SliceResult reports the outcome of a pointer-down event.
type SliceResult struct {
	Sliced bool       `json:"sliced"`
	Target string     `json:"target,omitempty"`
	Pieces []string   `json:"pieces"`
	Meshes []MeshData `json:"meshes"`
	Error  string     `json:"error,omitempty"`
}

// NewApp creates an App with the default configuration.
func NewApp() *App {
	a, err := NewAppWithConfig(config.Default())
	if err != nil {
		// The default configuration always opens the sdfx kernel.
		panic(err)
	}
	return a
}

// NewAppWithConfig creates an App whose kernel, physics and slicer follow
// cfg.
func NewAppWithConfig(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k, err := cfg.OpenKernel()
	if err != nil {
		return nil, err
	}
	sl, err := slicer.New(cfg.SlicerOptions())
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		kernel: k,
		engine: engine.NewEngine(k, cfg.NewWorld),
		slicer: sl,
	}, nil
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later if needed.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// Evaluate takes a scene script, makes the resulting scene current and
// returns its meshes. On any error the previous scene is kept.
// This is the primary binding called by the frontend editor.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the script into a scene.
	sc, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors to the frontend format.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 3: Surface non-fatal findings for non-empty scenes.
	if sc.Count() > 0 {
		for _, f := range scene.Validate(sc) {
			result.Warnings = append(result.Warnings, EvalErrorData{Message: f.Error()})
		}
	}
	if sc.Camera != nil && sc.Camera.FOV == scene.DefaultFOV {
		sc.Camera.FOV = a.cfg.Camera.FOV
	}

	// Step 4: Tessellate before committing so a broken scene never
	// replaces a working one.
	meshes, err := meshData(sc)
	if err != nil {
		log.Printf("Tessellate error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}

	a.mu.Lock()
	a.scene = sc
	a.mu.Unlock()

	result.Meshes = meshes
	result.Camera = sc.Camera
	return result
}

// Frame advances physics by elapsed seconds and returns the posed meshes.
func (a *App) Frame(elapsed float64) []MeshData {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scene == nil {
		return []MeshData{}
	}
	a.scene.Render(elapsed)
	meshes, err := meshData(a.scene)
	if err != nil {
		log.Printf("Frame error: %v", err)
		return []MeshData{}
	}
	return meshes
}

// Meshes returns the current scene's meshes without stepping physics.
func (a *App) Meshes() []MeshData {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scene == nil {
		return []MeshData{}
	}
	meshes, err := meshData(a.scene)
	if err != nil {
		log.Printf("Meshes error: %v", err)
		return []MeshData{}
	}
	return meshes
}

// PointerDown slices whatever lies under the pointer at (x, y) on a
// viewport of the given size.
func (a *App) PointerDown(x, y, width, height float64) SliceResult {
	result := SliceResult{Pieces: []string{}, Meshes: []MeshData{}}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scene == nil {
		result.Error = "no scene loaded"
		return result
	}

	var target string
	if info, err := a.scene.PickAt(x, y, width, height); err == nil && info.Hit {
		target = info.Mesh.Name()
	}
	pieces, err := a.slicer.PointerDown(a.scene, x, y, width, height)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if pieces != nil {
		result.Sliced = true
		result.Target = target
		result.Pieces = []string{pieces.Left.Name(), pieces.Right.Name()}
	}

	meshes, err := meshData(a.scene)
	if err != nil {
		log.Printf("PointerDown error: %v", err)
		result.Error = fmt.Sprintf("tessellation failed: %v", err)
		return result
	}
	result.Meshes = meshes
	return result
}

// meshData converts the scene's visible meshes to the frontend format.
func meshData(sc *scene.Scene) ([]MeshData, error) {
	parts, err := tessellate.Tessellate(sc)
	if err != nil {
		return nil, err
	}
	out := make([]MeshData, 0, len(parts))
	for i, p := range parts {
		color := colorPalette[i%len(colorPalette)]
		if c, ok := scene.BaseColor(sc.Material(p.Material)); ok {
			color = c.Hex()
		}
		out = append(out, MeshData{
			Vertices: p.Vertices,
			Normals:  p.Normals,
			Indices:  p.Indices,
			Name:     p.Name,
			Material: p.Material,
			Color:    color,
		})
	}
	return out, nil
}

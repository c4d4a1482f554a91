package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chazu/cleave/pkg/config"
	"github.com/chazu/cleave/pkg/engine"
	"github.com/chazu/cleave/pkg/kernel"
	"github.com/chazu/cleave/pkg/scene"
	"github.com/chazu/cleave/pkg/slicer"
	"github.com/chazu/cleave/pkg/tessellate"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// errInvalidScript is returned when a script fails to evaluate. The
// individual errors have already been printed.
var errInvalidScript = errors.New("script has errors")

type rootOptions struct {
	configPath string
	script     string
	jsonOut    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "cleave",
		Short:         "Slice meshes in scene scripts and watch the pieces fall",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "TOML or YAML config file")
	root.PersistentFlags().StringVarP(&opts.script, "script", "s", "", "scene script (- for stdin)")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print the resulting scene as JSON")

	root.AddCommand(newCheckCmd(opts), newSliceCmd(opts), newSimulateCmd(opts))
	return root
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate a script and report problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sc, err := opts.load(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			findings := scene.Validate(sc)
			for _, f := range findings {
				fmt.Fprintln(out, f.Error())
			}
			fmt.Fprintf(out, "%d meshes, %d materials, %d findings\n", sc.Count(), len(sc.Materials()), len(findings))
			return nil
		},
	}
}

type sliceOptions struct {
	at       string
	viewport string
	frames   int
	dt       float64
}

func newSliceCmd(opts *rootOptions) *cobra.Command {
	so := &sliceOptions{}
	cmd := &cobra.Command{
		Use:   "slice",
		Short: "Click the scene at a pixel, slice what is hit, then simulate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := parsePair(so.at, ",")
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			w, h, err := parsePair(so.viewport, "x")
			if err != nil {
				return fmt.Errorf("--viewport: %w", err)
			}
			cfg, sc, err := opts.load(cmd)
			if err != nil {
				return err
			}
			sl, err := slicer.New(cfg.SlicerOptions())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			pieces, err := sl.PointerDown(sc, x, y, w, h)
			if err != nil {
				return err
			}
			if pieces == nil {
				log.Printf("nothing to slice at (%g, %g)", x, y)
			} else {
				log.Printf("sliced into %s and %s", pieces.Left.Name(), pieces.Right.Name())
			}
			simulate(sc, so.frames, so.dt)
			return report(out, sc, opts.jsonOut)
		},
	}
	cmd.Flags().StringVar(&so.at, "at", "400,300", "pointer position x,y in pixels")
	cmd.Flags().StringVar(&so.viewport, "viewport", "800x600", "viewport size WxH in pixels")
	cmd.Flags().IntVar(&so.frames, "frames", 0, "frames to simulate after slicing")
	cmd.Flags().Float64Var(&so.dt, "dt", 1.0/60, "seconds per frame")
	return cmd
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	var frames int
	var dt float64
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Step the physics world and print where meshes end up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sc, err := opts.load(cmd)
			if err != nil {
				return err
			}
			simulate(sc, frames, dt)
			return report(cmd.OutOrStdout(), sc, opts.jsonOut)
		},
	}
	cmd.Flags().IntVar(&frames, "frames", 60, "frames to simulate")
	cmd.Flags().Float64Var(&dt, "dt", 1.0/60, "seconds per frame")
	return cmd
}

// load reads the config and evaluates the script into a scene.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, *scene.Scene, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, nil, err
		}
	}
	if o.script == "" {
		return cfg, nil, errors.New("--script is required")
	}
	source, err := readScript(cmd.InOrStdin(), o.script)
	if err != nil {
		return cfg, nil, err
	}

	k, err := cfg.OpenKernel()
	if err != nil {
		return cfg, nil, err
	}
	sc, evalErrs, err := engine.NewEngine(k, cfg.NewWorld).Evaluate(source)
	if err != nil {
		return cfg, nil, err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", o.script, e.Error())
		}
		return cfg, nil, errInvalidScript
	}
	if sc.Camera != nil && sc.Camera.FOV == scene.DefaultFOV {
		sc.Camera.FOV = cfg.Camera.FOV
	}
	return cfg, sc, nil
}

func readScript(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parsePair(s, sep string) (float64, float64, error) {
	a, b, ok := strings.Cut(s, sep)
	if !ok {
		return 0, 0, fmt.Errorf("expected two numbers separated by %q, got %q", sep, s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func simulate(sc *scene.Scene, frames int, dt float64) {
	for i := 0; i < frames; i++ {
		sc.Render(dt)
	}
}

// meshReport is the per-mesh line of the final report.
type meshReport struct {
	Name      string      `json:"name"`
	Position  kernel.Vec3 `json:"position"`
	Body      string      `json:"body"`
	Material  string      `json:"material,omitempty"`
	Triangles int         `json:"triangles"`
}

func report(out io.Writer, sc *scene.Scene, asJSON bool) error {
	parts, err := tessellate.Tessellate(sc)
	if err != nil {
		return err
	}
	visible := lo.Filter(sc.Meshes(), func(m *scene.Mesh, _ int) bool { return m.Visible() })

	rows := make([]meshReport, 0, len(visible))
	for i, m := range visible {
		body := "none"
		if b := m.Body(); b != nil {
			body = "dynamic"
			if b.Static() {
				body = "static"
			}
		}
		rows = append(rows, meshReport{
			Name:      m.Name(),
			Position:  m.Position(),
			Body:      body,
			Material:  m.Material(),
			Triangles: parts[i].TriangleCount(),
		})
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MESH\tPOSITION\tBODY\tTRIANGLES")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t(%.3f, %.3f, %.3f)\t%s\t%d\n", r.Name, r.Position.X, r.Position.Y, r.Position.Z, r.Body, r.Triangles)
	}
	return tw.Flush()
}

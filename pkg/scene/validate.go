package scene

import (
	"fmt"

	"github.com/samber/lo"
)

// ValidationSeverity indicates whether a validation finding blocks a
// scene from being used or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks use
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Subject  string             // mesh, material or light name; empty if scene-level
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Subject, e.Message)
}

// Validate checks the scene for dangling references and out-of-range
// settings. It never mutates the scene.
func Validate(s *Scene) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateCamera(s)...)
	errs = append(errs, validateMeshes(s)...)
	errs = append(errs, validateMaterials(s)...)
	errs = append(errs, validateLights(s)...)
	return errs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(findings []ValidationError) bool {
	return lo.SomeBy(findings, func(e ValidationError) bool {
		return e.Severity == SeverityError
	})
}

func validateCamera(s *Scene) []ValidationError {
	if s.Camera == nil {
		return []ValidationError{{
			Message:  "scene has no camera; pointer picking is disabled",
			Severity: SeverityWarning,
		}}
	}
	var errs []ValidationError
	if !s.Camera.Position.IsFinite() || !s.Camera.Rotation.IsFinite() {
		errs = append(errs, ValidationError{
			Subject:  s.Camera.Name,
			Message:  "camera pose is not finite",
			Severity: SeverityError,
		})
	}
	if s.Camera.FOV <= 0 {
		errs = append(errs, ValidationError{
			Subject:  s.Camera.Name,
			Message:  fmt.Sprintf("field of view must be positive, got %g", s.Camera.FOV),
			Severity: SeverityError,
		})
	}
	return errs
}

func validateMeshes(s *Scene) []ValidationError {
	var errs []ValidationError
	meshes := s.Meshes()
	for _, m := range meshes {
		if m.material != "" && s.materials[m.material] == nil {
			errs = append(errs, ValidationError{
				Subject:  m.name,
				Message:  fmt.Sprintf("references unknown material %q", m.material),
				Severity: SeverityError,
			})
		}
		if !m.position.IsFinite() || !m.rotation.IsFinite() {
			errs = append(errs, ValidationError{
				Subject:  m.name,
				Message:  "pose is not finite",
				Severity: SeverityError,
			})
		}
	}

	byName := lo.GroupBy(meshes, func(m *Mesh) string { return m.name })
	for _, name := range lo.Uniq(lo.Map(meshes, func(m *Mesh, _ int) string { return m.name })) {
		if n := len(byName[name]); n > 1 {
			errs = append(errs, ValidationError{
				Subject:  name,
				Message:  fmt.Sprintf("name is shared by %d meshes; lookups return the oldest", n),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func validateMaterials(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, mat := range s.Materials() {
		for _, t := range mat.Textures() {
			if t.URL == "" {
				errs = append(errs, ValidationError{
					Subject:  mat.MaterialName(),
					Message:  "texture has an empty URL",
					Severity: SeverityError,
				})
			}
			if t.UScale <= 0 || t.VScale <= 0 {
				errs = append(errs, ValidationError{
					Subject:  mat.MaterialName(),
					Message:  fmt.Sprintf("texture %q has non-positive UV scale", t.URL),
					Severity: SeverityError,
				})
			}
		}
	}
	if s.Environment != nil && s.Environment.Texture == "" {
		errs = append(errs, ValidationError{
			Message:  "environment has no texture",
			Severity: SeverityError,
		})
	}
	return errs
}

func validateLights(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, l := range s.Lights {
		if l.Intensity < 0 {
			errs = append(errs, ValidationError{
				Subject:  l.Name,
				Message:  fmt.Sprintf("intensity must not be negative, got %g", l.Intensity),
				Severity: SeverityError,
			})
		}
		if l.Direction.IsZero() {
			errs = append(errs, ValidationError{
				Subject:  l.Name,
				Message:  "direction is zero",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

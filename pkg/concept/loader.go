package concept

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader parses concept and design documents from YAML and shape-checks
// them before they reach the compiler. Semantic checks (referential
// integrity, scope rules) belong to the engine's validation pass; the
// loader only rejects structurally broken documents.
type Loader struct {
	validator *validator.Validate
}

// NewLoader creates a new document loader.
func NewLoader() *Loader {
	return &Loader{
		validator: validator.New(),
	}
}

// LoadConcept reads and validates a concept document from a YAML file.
func (l *Loader) LoadConcept(path string) (*Concept, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read concept file: %w", err)
	}
	return l.ParseConcept(data)
}

// ParseConcept parses and validates a concept document from YAML bytes.
func (l *Loader) ParseConcept(data []byte) (*Concept, error) {
	var c Concept
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse concept: %w", err)
	}

	if err := l.validator.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid concept: %w", err)
	}

	for i, scene := range c.Scenes {
		for j, mech := range scene.Mechanics {
			if !mech.Kind.Validate() {
				return nil, fmt.Errorf("invalid concept: scene %d mechanic %d has unknown kind %q",
					i+1, j+1, mech.Kind)
			}
		}
	}

	return &c, nil
}

// LoadDesigns reads per-scene designs from a YAML file. The document maps
// unit ids (e.g. "unit_1") to scene designs. A missing file is not an
// error: the compiler synthesizes placeholder designs for uncovered scenes.
func (l *Loader) LoadDesigns(path string) (map[string]SceneDesign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]SceneDesign{}, nil
		}
		return nil, fmt.Errorf("failed to read designs file: %w", err)
	}
	return l.ParseDesigns(data)
}

// ParseDesigns parses per-scene designs from YAML bytes.
func (l *Loader) ParseDesigns(data []byte) (map[string]SceneDesign, error) {
	designs := make(map[string]SceneDesign)
	if err := yaml.Unmarshal(data, &designs); err != nil {
		return nil, fmt.Errorf("failed to parse designs: %w", err)
	}
	return designs, nil
}

// Package concept defines the upstream input model for the content pipeline:
// a game concept describing the desired scenes and the mechanic choices inside
// each scene, plus the optional per-scene design customization produced by the
// creative step. Both are read-only to the engine once loaded.
package concept

// MechanicKind identifies the type of a mechanic choice within a scene.
type MechanicKind string

const (
	// MechanicDragDrop is a drag-and-drop classification mechanic.
	MechanicDragDrop MechanicKind = "drag_drop"

	// MechanicSequencing is an ordering mechanic (arrange items in order).
	MechanicSequencing MechanicKind = "sequencing"

	// MechanicBranching is a branching dialogue/decision mechanic.
	MechanicBranching MechanicKind = "branching"

	// MechanicMatching is a pair-matching mechanic.
	MechanicMatching MechanicKind = "matching"

	// MechanicQuiz is a multiple-choice quiz mechanic.
	MechanicQuiz MechanicKind = "quiz"
)

// Validate checks if the mechanic kind is one of the supported kinds.
func (k MechanicKind) Validate() bool {
	switch k {
	case MechanicDragDrop, MechanicSequencing, MechanicBranching,
		MechanicMatching, MechanicQuiz:
		return true
	default:
		return false
	}
}

// ScopeMode declares how a mechanic relates to its scene's vocabulary.
type ScopeMode string

const (
	// ScopeBound mechanics operate over an explicit, non-empty scope list.
	ScopeBound ScopeMode = "scope_bound"

	// ScopeFree mechanics carry no scope list at all.
	ScopeFree ScopeMode = "scope_free"
)

// Concept is the high-level, unresolved intent for a generated game.
// It is produced upstream and immutable from the engine's point of view.
type Concept struct {
	// Title is the game title.
	Title string `yaml:"title" json:"title" validate:"required"`

	// Subject is the learning subject the game covers.
	Subject string `yaml:"subject" json:"subject" validate:"required"`

	// Difficulty is the target difficulty level.
	Difficulty string `yaml:"difficulty" json:"difficulty" validate:"omitempty,oneof=easy medium hard"`

	// Vocabulary is the global label/tag set scenes may draw from.
	Vocabulary []string `yaml:"vocabulary" json:"vocabulary"`

	// Scenes are the planned scenes, in play order.
	Scenes []SceneConcept `yaml:"scenes" json:"scenes" validate:"required,min=1,dive"`
}

// SceneConcept is a single scene's unresolved intent.
// The order of Mechanics is semantically meaningful: it determines the
// default sequencing of mechanics within the scene.
type SceneConcept struct {
	// Title is the scene title.
	Title string `yaml:"title" json:"title" validate:"required"`

	// Vocabulary is the scene-level scope; every entry must resolve
	// within the concept's global vocabulary.
	Vocabulary []string `yaml:"vocabulary" json:"vocabulary"`

	// Mechanics are the mechanic choices for this scene, in order.
	Mechanics []MechanicChoice `yaml:"mechanics" json:"mechanics" validate:"required,min=1,dive"`

	// NeedsEnrichment flags the scene for the post-content enrichment pass.
	NeedsEnrichment bool `yaml:"needs_enrichment" json:"needs_enrichment"`
}

// MechanicChoice is one unresolved mechanic inside a scene.
type MechanicChoice struct {
	// Kind is the mechanic type tag.
	Kind MechanicKind `yaml:"kind" json:"kind" validate:"required"`

	// ExpectedItemCount is how many content items the mechanic needs.
	ExpectedItemCount int `yaml:"expected_item_count" json:"expected_item_count" validate:"required,min=1"`

	// PointsPerItem is the score weight of each item.
	PointsPerItem int `yaml:"points_per_item" json:"points_per_item" validate:"required,min=1"`

	// TimingHint optionally hints how play advances past this mechanic
	// (e.g. "timed", "score"). Unknown hints resolve to the completion
	// trigger during compilation.
	TimingHint string `yaml:"timing_hint,omitempty" json:"timing_hint,omitempty"`

	// TimingValue is the hint's parameter (e.g. seconds for "timed").
	TimingValue string `yaml:"timing_value,omitempty" json:"timing_value,omitempty"`

	// ScopeMode declares whether the mechanic is scope-bound or scope-free.
	ScopeMode ScopeMode `yaml:"scope_mode" json:"scope_mode" validate:"omitempty,oneof=scope_bound scope_free"`

	// Scope lists the scene vocabulary entries this mechanic draws on.
	// Must be non-empty for scope-bound mechanics and empty for
	// scope-free ones.
	Scope []string `yaml:"scope,omitempty" json:"scope,omitempty"`
}

// SceneDesign is the customization layer produced for one scene by the
// upstream creative step. Mechanics align back to the scene's mechanic
// choices by index first, falling back to the first design of the same kind.
type SceneDesign struct {
	// Theme is free-form styling for the whole scene.
	Theme string `yaml:"theme" json:"theme"`

	// Mechanics are per-mechanic design entries.
	Mechanics []MechanicDesign `yaml:"mechanics" json:"mechanics"`
}

// MechanicDesign carries free-form styling and instructional text for a
// single mechanic choice.
type MechanicDesign struct {
	// Kind is the mechanic type this design entry targets.
	Kind MechanicKind `yaml:"kind" json:"kind"`

	// Styling is free-form visual styling text.
	Styling string `yaml:"styling" json:"styling"`

	// Instructions is the player-facing instructional text.
	Instructions string `yaml:"instructions" json:"instructions"`
}

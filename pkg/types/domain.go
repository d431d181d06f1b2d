package types

import (
	"strings"
	"time"
)

// Mode selects which pipeline path an edit request takes.
type Mode string

const (
	// ModeCasual runs both stages: translate the casual prompt into
	// directives, then edit.
	ModeCasual Mode = "casual"
	// ModeProfessional skips translation and feeds the raw prompt to the
	// editor verbatim.
	ModeProfessional Mode = "professional"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeCasual || m == ModeProfessional
}

// Stage identifies one of the two pipeline stages.
type Stage string

const (
	StageTranslation Stage = "translation"
	StageEdit        Stage = "edit"
)

// EditRequest is a single user edit submission. Immutable once submitted.
type EditRequest struct {
	// Raw bytes of the source image (PNG or JPEG).
	SourceImage []byte
	// Free-form user text. May be empty in casual mode.
	Prompt string
	// Pipeline path selection.
	Mode Mode
}

// DirectiveSet is an ordered sequence of atomic edit directives produced by
// the translation stage. Apply order equals list order.
type DirectiveSet []string

// Join renders the set as the comma-separated clause list the editor consumes.
func (d DirectiveSet) Join() string {
	return strings.Join(d, ", ")
}

// EditResult is the immutable output of one pipeline run.
type EditResult struct {
	// Edited image bytes (PNG), same pixel dimensions as the source.
	OutputImage []byte
	// The original user prompt.
	UserBrief string
	// Directives produced by translation. Nil in professional mode.
	TranslationInsight DirectiveSet
	// The exact text that was sent to the edit stage.
	AppliedPrompt string
}

// StepStatus is the progress state of one pipeline step.
type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepActive   StepStatus = "active"
	StepComplete StepStatus = "complete"
	StepError    StepStatus = "error"
)

// StepResult summarizes one pipeline step for display and storage.
type StepResult struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail"`
}

// HistoryEntry is a timestamped result plus the request that produced it.
// Entries form a chain: a refine action seeds the next request's source
// image from the most recent entry's output image.
type HistoryEntry struct {
	CreatedAt time.Time
	Request   EditRequest
	Result    EditResult
}

// Component declares device placement for one sub-component of a stage
// model. The lifecycle manager consults this instead of hardcoding
// per-model placement.
type Component struct {
	// Short component name, e.g. "vision-encoder", "text-decoder".
	Name string `json:"name" yaml:"name"`
	// Estimated accelerator footprint in MB when resident.
	VRAMMB int `json:"vram_mb" yaml:"vram_mb"`
	// Offloadable components may be moved to host memory on release;
	// pinned components stay accelerator-resident for the handle lifetime.
	Offloadable bool `json:"offloadable" yaml:"offloadable"`
}

// StageModel describes the loadable model snapshot backing one stage.
type StageModel struct {
	// Stable identifier for the snapshot.
	ID string `json:"id" yaml:"id"`
	// Human-friendly name.
	Name string `json:"name" yaml:"name"`
	// Remote snapshot reference for first-use fetch.
	Ref string `json:"ref,omitempty" yaml:"ref"`
	// Stage this model serves.
	Stage Stage `json:"stage" yaml:"stage"`
	// Sub-components with their placement declarations.
	Components []Component `json:"components" yaml:"components"`
}

// VRAMMB returns the total accelerator footprint with every component
// resident.
func (m StageModel) VRAMMB() int {
	total := 0
	for _, c := range m.Components {
		total += c.VRAMMB
	}
	return total
}

// PinnedVRAMMB returns the footprint that remains resident after offload.
func (m StageModel) PinnedVRAMMB() int {
	total := 0
	for _, c := range m.Components {
		if !c.Offloadable {
			total += c.VRAMMB
		}
	}
	return total
}

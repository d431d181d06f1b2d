package stage

import (
	"context"

	"autoedit/pkg/types"
)

// TranslatorRuntime is the opaque vision-language capability behind the
// translation stage. Implementations own their device state through the
// lifecycle manager's Loader interface, never through the stage.
type TranslatorRuntime interface {
	// Generate produces the raw planner output for an image and prompt.
	Generate(ctx context.Context, image []byte, instruction, userPrompt string) (string, error)
}

// EditorRuntime is the opaque instruction-conditioned editor behind the
// edit stage.
type EditorRuntime interface {
	// Render applies the prompt to the image and returns the edited image
	// bytes. The output must keep the input's pixel dimensions.
	Render(ctx context.Context, image []byte, prompt, negativePrompt string) ([]byte, error)
}

// Notifier receives step progress updates: step index, status, and a
// human-readable detail line. Display-only; errors are never routed here.
type Notifier func(step int, status types.StepStatus, detail string)

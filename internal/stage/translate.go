// Package stage wraps the two opaque model capabilities behind the
// pipeline: translating casual requests into edit directives, and applying
// directive text to an image. Neither stage holds device-resident state;
// residency is arranged by the lifecycle manager before these are called.
package stage

import (
	"context"
	"strings"

	"autoedit/internal/imageutil"
	"autoedit/pkg/types"
)

// maxDirectives bounds how many atomic edits one translation may produce.
const maxDirectives = 4

// TranslationStage converts (image, casual prompt) into an ordered
// DirectiveSet of 1 to 4 atomic edit instructions.
type TranslationStage struct {
	runtime TranslatorRuntime
}

func NewTranslationStage(rt TranslatorRuntime) *TranslationStage {
	return &TranslationStage{runtime: rt}
}

// Translate produces the directive set for an image and casual prompt.
// The prompt may be empty; the planner then asks for a generic enhancement.
// The image must decode.
func (s *TranslationStage) Translate(ctx context.Context, image []byte, casualPrompt string) (types.DirectiveSet, error) {
	if _, _, err := imageutil.Dimensions(image); err != nil {
		return nil, ErrTranslationFailed(err.Error())
	}
	userPrompt := strings.TrimSpace(casualPrompt)
	if userPrompt == "" {
		userPrompt = "improve this image"
	}

	raw, err := s.runtime.Generate(ctx, image, plannerInstruction, userPrompt)
	if err != nil {
		return nil, ErrTranslationFailed(err.Error())
	}
	ds := parseDirectives(raw)
	if len(ds) == 0 {
		return nil, ErrTranslationFailed("model returned no usable directives")
	}
	return ds, nil
}

// parseDirectives splits raw planner output into clean directive clauses.
// Only the first output line counts; clauses beyond the limit are dropped
// in order, keeping the head of the list.
func parseDirectives(raw string) types.DirectiveSet {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	line = strings.TrimPrefix(line, "Output:")
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")

	var ds types.DirectiveSet
	for _, part := range strings.Split(line, ",") {
		d := strings.TrimSpace(part)
		if d == "" {
			continue
		}
		ds = append(ds, d)
		if len(ds) == maxDirectives {
			break
		}
	}
	return ds
}

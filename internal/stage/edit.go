package stage

import (
	"context"
	"fmt"

	"autoedit/internal/imageutil"
	"autoedit/internal/lifecycle"
)

// EditStage applies directive text to an image. The directive text is
// either a comma-joined DirectiveSet (casual mode) or the verbatim user
// prompt (professional mode).
type EditStage struct {
	runtime EditorRuntime
}

func NewEditStage(rt EditorRuntime) *EditStage {
	return &EditStage{runtime: rt}
}

// Edit renders the edit and returns a new image buffer with the same pixel
// dimensions as the input. Out-of-memory conditions pass through untouched
// so callers can present the specific remedy; everything else maps to
// EditFailed.
func (s *EditStage) Edit(ctx context.Context, image []byte, directiveText string) ([]byte, error) {
	w, h, err := imageutil.Dimensions(image)
	if err != nil {
		return nil, ErrEditFailed(err.Error())
	}

	prompt := directiveText + preservationSuffix + ", " + editorPositivePrompt
	out, err := s.runtime.Render(ctx, image, prompt, editorNegativePrompt)
	if err != nil {
		if lifecycle.IsOutOfMemory(err) {
			return nil, err
		}
		return nil, ErrEditFailed(err.Error())
	}

	ow, oh, err := imageutil.Dimensions(out)
	if err != nil {
		return nil, ErrEditFailed("model returned an undecodable image: " + err.Error())
	}
	if ow != w || oh != h {
		return nil, ErrEditFailed(fmt.Sprintf("output dimensions %dx%d differ from input %dx%d", ow, oh, w, h))
	}
	return out, nil
}

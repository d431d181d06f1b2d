package stage

import (
	"context"
	"strings"

	"autoedit/internal/imageutil"
	"autoedit/pkg/types"
)

// This file provides accelerator-free preview runtimes. They stand in for
// the real model runtimes during local development and tests: the
// translator plans directives heuristically and the editor re-renders the
// source image with a deterministic tone shift, preserving dimensions.
// Real runtimes plug in through the same interfaces plus lifecycle.Loader.

// previewLoader satisfies lifecycle.Loader with no device work.
type previewLoader struct{}

func (previewLoader) Load(ctx context.Context, m types.StageModel, dir string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

func (previewLoader) Restore(ctx context.Context, m types.StageModel) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

func (previewLoader) Offload(m types.StageModel) error { return nil }
func (previewLoader) Unload(m types.StageModel) error  { return nil }

// PreviewTranslator plans directives without a model, following the same
// rules the planner instruction gives the real one.
type PreviewTranslator struct {
	previewLoader
}

func NewPreviewTranslator() *PreviewTranslator { return &PreviewTranslator{} }

// stylePlans mirrors the few-shot examples in the planner instruction.
var stylePlans = map[string]string{
	"vintage":      "add sepia tone, reduce saturation slightly, add subtle film grain",
	"cinematic":    "deepen shadows, add soft teal-orange color grade, increase contrast slightly",
	"professional": "balance white balance, increase sharpness slightly, reduce background noise",
	"sci-fi":       "shift color grading to cool blue tones, add subtle neon highlights, increase contrast slightly",
}

func (t *PreviewTranslator) Generate(ctx context.Context, image []byte, instruction, userPrompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	p := strings.TrimSpace(strings.ToLower(userPrompt))
	if p == "" {
		return genericEnhancement, nil
	}
	for key, plan := range stylePlans {
		if strings.Contains(p, key) {
			return plan, nil
		}
	}
	// Specific requests map to exactly one edit.
	return strings.TrimSpace(userPrompt), nil
}

// PreviewEditor re-renders the source image with a mild warm tone shift so
// the output is visibly distinct while keeping the pixel dimensions.
type PreviewEditor struct {
	previewLoader
}

func NewPreviewEditor() *PreviewEditor { return &PreviewEditor{} }

func (e *PreviewEditor) Render(ctx context.Context, image []byte, prompt, negativePrompt string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	img, _, err := imageutil.Decode(image)
	if err != nil {
		return nil, err
	}
	rgba := imageutil.ToRGBA(img)
	px := rgba.Pix
	for i := 0; i+3 < len(px); i += 4 {
		// Nudge red up and blue down; clamp at the byte edges.
		if px[i] <= 245 {
			px[i] += 10
		} else {
			px[i] = 255
		}
		if px[i+2] >= 10 {
			px[i+2] -= 10
		} else {
			px[i+2] = 0
		}
	}
	return imageutil.EncodePNG(rgba)
}

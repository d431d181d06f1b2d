package stage

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"autoedit/internal/imageutil"
	"autoedit/internal/lifecycle"
	"autoedit/pkg/types"
)

// fakeEditor echoes an image of a configurable size and records the prompt.
type fakeEditor struct {
	outW, outH int
	err        error
	lastPrompt string
	lastNeg    string
}

func (f *fakeEditor) Render(ctx context.Context, img []byte, prompt, negative string) ([]byte, error) {
	f.lastPrompt = prompt
	f.lastNeg = negative
	if f.err != nil {
		return nil, f.err
	}
	return imageutil.EncodePNG(image.NewRGBA(image.Rect(0, 0, f.outW, f.outH)))
}

func TestEditPreservesDimensions(t *testing.T) {
	rt := &fakeEditor{outW: 8, outH: 8}
	s := NewEditStage(rt)
	out, err := s.Edit(context.Background(), testImage(t), "add thin silver-rimmed glasses")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	w, h, err := imageutil.Dimensions(out)
	if err != nil {
		t.Fatalf("dims: %v", err)
	}
	if w != 8 || h != 8 {
		t.Fatalf("expected 8x8 got %dx%d", w, h)
	}
}

func TestEditPromptCarriesDirectiveAndGuards(t *testing.T) {
	rt := &fakeEditor{outW: 8, outH: 8}
	s := NewEditStage(rt)
	if _, err := s.Edit(context.Background(), testImage(t), "remove coffee cup"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.HasPrefix(rt.lastPrompt, "remove coffee cup") {
		t.Fatalf("directive must lead the prompt: %q", rt.lastPrompt)
	}
	if !strings.Contains(rt.lastPrompt, "maintain the character face") {
		t.Fatalf("missing preservation suffix: %q", rt.lastPrompt)
	}
	if rt.lastNeg == "" {
		t.Fatalf("negative prompt must be set")
	}
}

func TestEditDimensionMismatchIsEditFailed(t *testing.T) {
	rt := &fakeEditor{outW: 4, outH: 8}
	s := NewEditStage(rt)
	_, err := s.Edit(context.Background(), testImage(t), "x")
	if err == nil || !IsEditFailed(err) {
		t.Fatalf("expected edit failed, got %v", err)
	}
}

func TestEditOutOfMemoryPassesThrough(t *testing.T) {
	rt := &fakeEditor{err: lifecycle.ErrOutOfMemory(types.StageEdit, "cuda oom")}
	s := NewEditStage(rt)
	_, err := s.Edit(context.Background(), testImage(t), "x")
	if err == nil || !lifecycle.IsOutOfMemory(err) {
		t.Fatalf("expected out of memory, got %v", err)
	}
	if IsEditFailed(err) {
		t.Fatalf("oom must not be wrapped as edit failed")
	}
}

func TestEditRuntimeErrorIsEditFailed(t *testing.T) {
	rt := &fakeEditor{err: errors.New("decode fault")}
	s := NewEditStage(rt)
	_, err := s.Edit(context.Background(), testImage(t), "x")
	if err == nil || !IsEditFailed(err) {
		t.Fatalf("expected edit failed, got %v", err)
	}
}

func TestEditRejectsBadInputImage(t *testing.T) {
	s := NewEditStage(&fakeEditor{outW: 8, outH: 8})
	if _, err := s.Edit(context.Background(), []byte("junk"), "x"); err == nil || !IsEditFailed(err) {
		t.Fatalf("expected edit failed, got %v", err)
	}
}

func TestPreviewEditorKeepsDimensions(t *testing.T) {
	e := NewPreviewEditor()
	out, err := e.Render(context.Background(), testImage(t), "p", "n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	w, h, err := imageutil.Dimensions(out)
	if err != nil {
		t.Fatalf("dims: %v", err)
	}
	if w != 8 || h != 8 {
		t.Fatalf("expected 8x8 got %dx%d", w, h)
	}
}

func TestPreviewTranslatorPlans(t *testing.T) {
	tr := NewPreviewTranslator()
	out, err := tr.Generate(context.Background(), testImage(t), plannerInstruction, "make it vintage")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "sepia") {
		t.Fatalf("expected vintage plan, got %q", out)
	}
	out, err = tr.Generate(context.Background(), testImage(t), plannerInstruction, "add a red scarf")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "add a red scarf" {
		t.Fatalf("specific request must map to one edit, got %q", out)
	}
}

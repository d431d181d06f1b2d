// Package pipeline sequences the two-stage editing flow: translation of a
// casual request into directives, followed by the instruction-conditioned
// edit. It owns the session history and guarantees all-or-nothing result
// delivery.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"autoedit/internal/lifecycle"
	"autoedit/internal/stage"
	"autoedit/pkg/types"
)

// defaultMaxWait bounds how long a request waits for the in-flight slot.
const defaultMaxWait = 2 * time.Minute

// Lifecycle is the slice of the lifecycle manager the coordinator needs.
// Tests substitute a recording fake to assert acquire/release ordering.
type Lifecycle interface {
	Acquire(ctx context.Context, stg types.Stage) error
	Release(stg types.Stage, policy lifecycle.ReleasePolicy)
}

// ResultSink receives successful results for write-once persistence. The
// coordinator never reads it back.
type ResultSink interface {
	Save(res types.EditResult, steps []types.StepResult, duration time.Duration) error
}

// Outcome bundles the result of one pipeline run with its step summaries.
type Outcome struct {
	Result   types.EditResult
	Steps    []types.StepResult
	Duration time.Duration
}

// Config collects the coordinator's collaborators.
type Config struct {
	Lifecycle  Lifecycle
	Translator *stage.TranslationStage
	Editor     *stage.EditStage
	History    *SessionHistory
	// Optional write-once persistence for successful results.
	Sink ResultSink
	// Optional step progress observer (display only).
	Notifier stage.Notifier
	// Maximum wait for the single in-flight slot. <=0 uses the default.
	MaxWait time.Duration
	Logger  zerolog.Logger
}

// Coordinator runs edit requests through the two-stage pipeline, one at a
// time, in submission order.
type Coordinator struct {
	lc         Lifecycle
	translator *stage.TranslationStage
	editor     *stage.EditStage
	history    *SessionHistory
	sink       ResultSink
	notify     stage.Notifier
	maxWait    time.Duration
	log        zerolog.Logger
	slot       chan struct{} // size 1: single in-flight request
}

// New constructs a Coordinator.
func New(cfg Config) *Coordinator {
	c := &Coordinator{
		lc:         cfg.Lifecycle,
		translator: cfg.Translator,
		editor:     cfg.Editor,
		history:    cfg.History,
		sink:       cfg.Sink,
		notify:     cfg.Notifier,
		maxWait:    cfg.MaxWait,
		log:        cfg.Logger,
		slot:       make(chan struct{}, 1),
	}
	if c.history == nil {
		c.history = NewSessionHistory(0)
	}
	if c.maxWait <= 0 {
		c.maxWait = defaultMaxWait
	}
	if c.notify == nil {
		c.notify = func(int, types.StepStatus, string) {}
	}
	return c
}

// History exposes the session ledger for read-only display.
func (c *Coordinator) History() *SessionHistory { return c.history }

// Run processes one EditRequest to completion. On any stage failure the
// request aborts, partial state is discarded, and the session history is
// left untouched.
func (c *Coordinator) Run(ctx context.Context, req types.EditRequest) (Outcome, error) {
	if err := validate(req); err != nil {
		return Outcome{}, err
	}
	release, err := c.admit(ctx)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	start := time.Now()
	out, err := c.run(ctx, req)
	out.Duration = time.Since(start)
	if err != nil {
		runsTotal.WithLabelValues(string(req.Mode), "error").Inc()
		return Outcome{Steps: out.Steps, Duration: out.Duration}, err
	}
	runsTotal.WithLabelValues(string(req.Mode), "ok").Inc()

	c.history.Append(types.HistoryEntry{
		CreatedAt: time.Now(),
		Request:   req,
		Result:    out.Result,
	})
	if c.sink != nil {
		if err := c.sink.Save(out.Result, out.Steps, out.Duration); err != nil {
			// Persistence is external to the core contract; log and move on.
			c.log.Warn().Err(err).Msg("result persistence failed")
		}
	}
	return out, nil
}

// Refine chains a follow-up request off the most recent output image.
func (c *Coordinator) Refine(ctx context.Context, prompt string, mode types.Mode) (Outcome, error) {
	latest, ok := c.history.Latest()
	if !ok {
		return Outcome{}, noHistoryError{}
	}
	return c.Run(ctx, types.EditRequest{
		SourceImage: latest.Result.OutputImage,
		Prompt:      prompt,
		Mode:        mode,
	})
}

func (c *Coordinator) run(ctx context.Context, req types.EditRequest) (Outcome, error) {
	var out Outcome
	step := -1
	begin := func(name, detail string) {
		step++
		out.Steps = append(out.Steps, types.StepResult{Name: name, Status: types.StepActive, Detail: detail})
		c.notify(step, types.StepActive, detail)
	}
	complete := func(detail string) {
		out.Steps[step].Status = types.StepComplete
		out.Steps[step].Detail = detail
		c.notify(step, types.StepComplete, detail)
	}
	fail := func(err error) (Outcome, error) {
		out.Steps[step].Status = types.StepError
		out.Steps[step].Detail = err.Error()
		c.notify(step, types.StepError, err.Error())
		return out, err
	}

	applied := req.Prompt
	var insight types.DirectiveSet

	if req.Mode == types.ModeCasual {
		begin("Translate request", "Planning edit directives from the casual request.")
		if err := c.lc.Acquire(ctx, types.StageTranslation); err != nil {
			return fail(err)
		}
		tStart := time.Now()
		ds, err := c.translator.Translate(ctx, req.SourceImage, req.Prompt)
		stageDuration.WithLabelValues(string(types.StageTranslation)).Observe(time.Since(tStart).Seconds())
		// The heavy decoder is offloaded before the editor is placed,
		// success or not; only the vision encoder stays resident.
		c.lc.Release(types.StageTranslation, lifecycle.Offload)
		if err != nil {
			return fail(err)
		}
		insight = ds
		applied = ds.Join()
		complete("Directives ready: " + applied)
	}

	begin("Apply edit", "Applying the edit instructions to the image.")
	if err := c.lc.Acquire(ctx, types.StageEdit); err != nil {
		return fail(err)
	}
	eStart := time.Now()
	img, err := c.editor.Edit(ctx, req.SourceImage, applied)
	stageDuration.WithLabelValues(string(types.StageEdit)).Observe(time.Since(eStart).Seconds())
	c.lc.Release(types.StageEdit, lifecycle.KeepResident)
	if err != nil {
		return fail(err)
	}
	complete("Image updated with the requested edits.")

	out.Result = types.EditResult{
		OutputImage:        img,
		UserBrief:          req.Prompt,
		TranslationInsight: insight,
		AppliedPrompt:      applied,
	}
	return out, nil
}

// admit reserves the single in-flight slot, waiting up to maxWait.
func (c *Coordinator) admit(ctx context.Context) (func(), error) {
	select {
	case c.slot <- struct{}{}:
		return func() { <-c.slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.maxWait):
		return nil, busyError{}
	}
}

func validate(req types.EditRequest) error {
	if !req.Mode.Valid() {
		return ErrInvalidRequest("unknown mode " + string(req.Mode))
	}
	if len(req.SourceImage) == 0 {
		return ErrInvalidRequest("source image is required")
	}
	if req.Mode == types.ModeProfessional && req.Prompt == "" {
		return ErrInvalidRequest("professional mode requires a prompt")
	}
	return nil
}

// Package registry describes the model snapshots backing the two pipeline
// stages, including the per-component placement each model declares.
package registry

import (
	"fmt"

	"autoedit/pkg/types"
)

// Default returns the built-in stage models. The translation model splits
// into a small pinned vision encoder and a large offloadable text decoder;
// the edit model is monolithic apart from its small VAE.
func Default() []types.StageModel {
	return []types.StageModel{
		{
			ID:    "joycaption-beta-one",
			Name:  "JoyCaption Beta One (llava)",
			Ref:   "fancyfeast/llama-joycaption-beta-one-hf-llava",
			Stage: types.StageTranslation,
			Components: []types.Component{
				{Name: "vision-encoder", VRAMMB: 900, Offloadable: false},
				{Name: "text-decoder", VRAMMB: 7600, Offloadable: true},
			},
		},
		{
			ID:    "qwen-image-edit-int8",
			Name:  "Qwen-Image-Edit (int8)",
			Ref:   "dimitribarbot/Qwen-Image-Edit-int8wo",
			Stage: types.StageEdit,
			Components: []types.Component{
				{Name: "transformer", VRAMMB: 10400, Offloadable: true},
				{Name: "text-encoder", VRAMMB: 1600, Offloadable: true},
				{Name: "vae", VRAMMB: 300, Offloadable: false},
			},
		},
	}
}

// ByStage returns the model registered for a stage.
func ByStage(models []types.StageModel, stage types.Stage) (types.StageModel, bool) {
	for _, m := range models {
		if m.Stage == stage {
			return m, true
		}
	}
	return types.StageModel{}, false
}

// Validate checks that the registry covers both stages exactly once and
// that every model declares at least one component.
func Validate(models []types.StageModel) error {
	seen := make(map[types.Stage]string, len(models))
	for _, m := range models {
		if m.ID == "" {
			return fmt.Errorf("model with empty id for stage %q", m.Stage)
		}
		if prev, dup := seen[m.Stage]; dup {
			return fmt.Errorf("stage %q bound twice (%s, %s)", m.Stage, prev, m.ID)
		}
		if len(m.Components) == 0 {
			return fmt.Errorf("model %s declares no components", m.ID)
		}
		seen[m.Stage] = m.ID
	}
	for _, stg := range []types.Stage{types.StageTranslation, types.StageEdit} {
		if _, ok := seen[stg]; !ok {
			return fmt.Errorf("no model registered for stage %q", stg)
		}
	}
	return nil
}

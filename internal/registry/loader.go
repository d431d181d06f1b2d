package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"autoedit/internal/common/fsutil"
	"autoedit/pkg/types"
)

// LoadFile reads stage model definitions from a YAML file, replacing the
// built-in defaults. The file holds a list of StageModel entries, one per
// stage. The result is validated before it is returned.
func LoadFile(path string) ([]types.StageModel, error) {
	expanded, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read models file: %w", err)
	}
	var models []types.StageModel
	if err := yaml.Unmarshal(b, &models); err != nil {
		return nil, fmt.Errorf("parse models file: %w", err)
	}
	if err := Validate(models); err != nil {
		return nil, fmt.Errorf("models file %s: %w", path, err)
	}
	return models, nil
}

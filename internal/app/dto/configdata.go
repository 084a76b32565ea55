package dto

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// DecodeConfig turns a card's field bag into its typed configuration.
// Values are weakly typed the way form fields arrive: "3" and 3.0 both
// decode into an int digit. Unknown keys are ignored.
func DecodeConfig(t flow.NodeType, data map[string]interface{}) (flow.Config, error) {
	var cfg flow.Config
	switch t {
	case flow.NodeTypeStart:
		cfg = &flow.StartConfig{}
	case flow.NodeTypeExperience:
		cfg = &flow.ExperienceConfig{}
	case flow.NodeTypeCategory:
		cfg = &flow.CategoryConfig{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
		Result:           cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// EncodeConfig turns a configuration back into the field bag stored in a
// document, using the same JSON names the editor sends
func EncodeConfig(cfg flow.Config) (map[string]interface{}, error) {
	if cfg == nil {
		return map[string]interface{}{}, nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode %s config: %w", cfg.Type(), err)
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode %s config: %w", cfg.Type(), err)
	}
	return out, nil
}

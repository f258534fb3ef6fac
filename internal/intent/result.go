package intent

import (
	"encoding/json"
	"fmt"
)

// Result is one ranked candidate parse.
type Result struct {
	IntentType string
	Confidence float64
	Entities   map[string]string
}

// MarshalJSON emits the flat result object clients consume:
// intent_type, confidence, target (always null) and one key per matched role.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Entities)+3)
	for role, value := range r.Entities {
		out[role] = value
	}
	out[keyIntentType] = r.IntentType
	out[keyConfidence] = r.Confidence
	out[keyTarget] = nil
	return json.Marshal(out)
}

func (r *Result) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var res Result
	if v, ok := raw[keyIntentType]; ok {
		if err := json.Unmarshal(v, &res.IntentType); err != nil {
			return fmt.Errorf("intent: decode %s: %w", keyIntentType, err)
		}
	}
	if v, ok := raw[keyConfidence]; ok {
		if err := json.Unmarshal(v, &res.Confidence); err != nil {
			return fmt.Errorf("intent: decode %s: %w", keyConfidence, err)
		}
	}
	for key, v := range raw {
		if _, reserved := reservedResultKeys[key]; reserved {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			continue
		}
		if res.Entities == nil {
			res.Entities = make(map[string]string)
		}
		res.Entities[key] = s
	}
	*r = res
	return nil
}

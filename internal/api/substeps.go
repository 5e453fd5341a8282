package api

import (
	"bytes"
	"encoding/json"

	"github.com/Iron-Ham/gentle/internal/errors"
	"github.com/Iron-Ham/gentle/internal/task"
)

// tooBigWhat names the too-big payload in FormatErrors.
const tooBigWhat = "too-big API"

// subStepShape identifies which accepted wire shape a too-big response has.
type subStepShape int

const (
	shapeUnknown subStepShape = iota
	shapeList                 // [{...}, ...]
	shapeWrapped              // {"steps": [{...}, ...]}
)

// wireSubStep is one sub-step as the backend may send it. The identifier
// arrives as either "id" or "step_id".
type wireSubStep struct {
	ID        string `json:"id"`
	StepID    string `json:"step_id"`
	Content   string `json:"content"`
	Rationale string `json:"rationale"`
}

func (w wireSubStep) canonical() (task.SubStep, error) {
	id := w.ID
	if id == "" {
		id = w.StepID
	}
	if id == "" {
		return task.SubStep{}, errors.New("sub-step without id")
	}
	if w.Content == "" {
		return task.SubStep{}, errors.New("sub-step without content")
	}
	return task.SubStep{ID: id, Content: w.Content, Rationale: w.Rationale}, nil
}

// classifySubSteps reports the shape of raw without decoding the items.
func classifySubSteps(raw []byte) subStepShape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return shapeUnknown
	}
	switch trimmed[0] {
	case '[':
		return shapeList
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return shapeUnknown
		}
		steps, ok := fields["steps"]
		if !ok {
			return shapeUnknown
		}
		if inner := bytes.TrimSpace(steps); len(inner) > 0 && inner[0] == '[' {
			return shapeWrapped
		}
	}
	return shapeUnknown
}

func decodeList(raw []byte) ([]wireSubStep, error) {
	var items []wireSubStep
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeWrapped(raw []byte) ([]wireSubStep, error) {
	var wrapped struct {
		Steps []wireSubStep `json:"steps"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Steps, nil
}

// DecodeSubSteps normalizes a too-big response into canonical sub-steps.
// Two shapes are accepted: a bare list of sub-step objects, or an object
// wrapping that list under "steps". Each object's id may be sent as "id" or
// "step_id". Anything else fails with a FormatError.
func DecodeSubSteps(raw []byte) ([]task.SubStep, error) {
	var (
		items []wireSubStep
		err   error
	)
	switch classifySubSteps(raw) {
	case shapeList:
		items, err = decodeList(raw)
	case shapeWrapped:
		items, err = decodeWrapped(raw)
	default:
		return nil, errors.NewFormatError(tooBigWhat, nil)
	}
	if err != nil {
		return nil, errors.NewFormatError(tooBigWhat, err)
	}

	out := make([]task.SubStep, 0, len(items))
	for _, item := range items {
		sub, err := item.canonical()
		if err != nil {
			return nil, errors.NewFormatError(tooBigWhat, err)
		}
		out = append(out, sub)
	}
	return out, nil
}

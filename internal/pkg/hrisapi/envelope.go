package hrisapi

import (
	"encoding/json"
	"fmt"
)

// Envelope is the backend response wrapper. status_cd 1 means success.
type Envelope struct {
	StatusCd int             `json:"status_cd"`
	Data     json.RawMessage `json:"data"`
	Message  string          `json:"message"`
	Code     string          `json:"code"`
	Detail   json.RawMessage `json:"detail"`

	// Raw is the undecoded body, for fields outside the standard envelope.
	Raw json.RawMessage `json:"-"`
}

func (e *Envelope) OK() bool {
	return e.StatusCd == 1
}

// DecodeData unmarshals the data member into v.
func (e *Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return fmt.Errorf("envelope has no data")
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Field unmarshals a top-level body member into v and reports whether the
// member was present.
func (e *Envelope) Field(name string, v any) (bool, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(e.Raw, &top); err != nil {
		return false, fmt.Errorf("decode body: %w", err)
	}
	raw, ok := top[name]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// message picks the most specific human-readable text in the body.
func (e *Envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	var detail string
	if len(e.Detail) > 0 && json.Unmarshal(e.Detail, &detail) == nil {
		return detail
	}
	return ""
}

// code returns the machine-readable error code, falling back to detail.code.
func (e *Envelope) code() string {
	if e.Code != "" {
		return e.Code
	}
	var detail struct {
		Code string `json:"code"`
	}
	if len(e.Detail) > 0 && json.Unmarshal(e.Detail, &detail) == nil {
		return detail.Code
	}
	return ""
}

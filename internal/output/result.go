// Package output renders Supervisor and CatalogView results for the CLI:
// tool-call results, error classifications, and tabular listings.
package output

import (
	"encoding/json"
	"fmt"
)

// CallResult wraps the value returned by Supervisor.Call — already unwrapped
// from the provider's content[0].text convention — for presentation.
type CallResult struct {
	Value   any
	IsError bool
}

// NewCallResult wraps value for display.
func NewCallResult(value any) *CallResult {
	return &CallResult{Value: value}
}

// NewErrorResult wraps an error message for display in error-result form.
func NewErrorResult(message string) *CallResult {
	return &CallResult{Value: message, IsError: true}
}

// Text renders the value as plain text: strings pass through unchanged,
// everything else is JSON-encoded.
func (r *CallResult) Text() string {
	if s, ok := r.Value.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(r.Value, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", r.Value)
	}
	return string(data)
}

// JSON renders the value as an indented JSON document.
func (r *CallResult) JSON() (string, error) {
	data, err := json.MarshalIndent(r.Value, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Markdown renders the value inside a fenced code block when it is
// structured, or as a plain paragraph when it is a string.
func (r *CallResult) Markdown() string {
	if s, ok := r.Value.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(r.Value, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", r.Value)
	}
	return "```json\n" + string(data) + "\n```"
}

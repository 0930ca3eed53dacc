package output

import (
	"testing"

	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestCallResultTextPassesStringsThrough(t *testing.T) {
	r := NewCallResult("pong")
	assert.Equal(t, "pong", r.Text())
}

func TestCallResultTextJSONEncodesStructuredValues(t *testing.T) {
	r := NewCallResult(map[string]any{"n": float64(42)})
	assert.Contains(t, r.Text(), `"n": 42`)
}

func TestCallResultMarkdownFencesStructuredValues(t *testing.T) {
	r := NewCallResult(map[string]any{"ok": true})
	md := r.Markdown()
	assert.Contains(t, md, "```json")
	assert.Contains(t, md, "```")
}

func TestCallResultMarkdownPassesStringsThrough(t *testing.T) {
	r := NewCallResult("hello")
	assert.Equal(t, "hello", r.Markdown())
}

func TestFormatResultJSONMode(t *testing.T) {
	f := NewFormatter(FormatJSON, false)
	r := NewCallResult("pong")
	assert.Equal(t, `"pong"`, f.FormatResult(r))
}

func TestFormatResultErrorPrefixedInTextMode(t *testing.T) {
	f := NewFormatter(FormatText, false)
	r := NewErrorResult("boom")
	assert.Contains(t, f.FormatResult(r), "Error: ")
	assert.Contains(t, f.FormatResult(r), "boom")
}

func TestFormatErrorIncludesHintWhenPresent(t *testing.T) {
	f := NewFormatter(FormatText, false)
	ce := perrors.Classify(perrors.New(perrors.Timeout, "call exceeded deadline"))
	out := f.FormatError(ce)
	assert.Contains(t, out, string(perrors.Timeout))
	assert.Contains(t, out, "call exceeded deadline")
	assert.Contains(t, out, "Hint: ")
}

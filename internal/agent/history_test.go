package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryTruncatesResults(t *testing.T) {
	h := NewHistory(10)
	h.Append("snapshot", nil, strings.Repeat("a", 50))

	records := h.Records()
	assert.Len(t, records, 1)
	assert.Equal(t, strings.Repeat("a", 10)+"...[truncated]", records[0].Result)
}

func TestHistoryAppendError(t *testing.T) {
	h := NewHistory(0)
	h.AppendError("click", map[string]any{"element_id": "3"}, errors.New("element not found"))

	records := h.Records()
	assert.True(t, records[0].IsError)
	assert.Equal(t, "Error: element not found", records[0].Result)
}

func TestHistoryLinesAreNumberedInOrder(t *testing.T) {
	h := NewHistory(0)
	h.Append("navigate", map[string]any{"url": "https://example.com"}, "ok")
	h.Append("click", map[string]any{"element_id": "1"}, "clicked")

	lines := h.Lines()
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "1. navigate("))
	assert.True(t, strings.HasPrefix(lines[1], "2. click("))
	assert.Contains(t, lines[0], "https://example.com")
}

func TestHistoryRecordsIsACopy(t *testing.T) {
	h := NewHistory(0)
	h.Append("navigate", nil, "ok")

	records := h.Records()
	records[0].Result = "mutated"

	assert.Equal(t, "ok", h.Records()[0].Result)
}

package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"go.uber.org/zap"

	"prsummarizer/internal/model"
)

type stubGenerator struct {
	resp   string
	err    error
	prompt string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.resp, s.err
}

func TestSummarizeDefaultsOnFailure(t *testing.T) {
	tests := []struct {
		name string
		resp string
		err  error
	}{
		{"model error", "", errors.New("deadline exceeded")},
		{"fenced", "```json\n{\"headline\": \"x\"}\n```", nil},
		{"prose", "Here is the summary: {}", nil},
		{"number field", `{"headline": 1}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSummarizer(&stubGenerator{resp: tt.resp, err: tt.err}, zap.NewNop())
			got := s.Summarize(context.Background(), "text")

			b, err := json.Marshal(got)
			be.Err(t, err, nil)
			be.Equal(t, string(b), `{"headline":"","key_result":"","impacted_program":"","next_step":""}`)
		})
	}
}

func TestSummarizeValid(t *testing.T) {
	gen := &stubGenerator{resp: `{"headline": "XYZ launches Widget", "key_result": "Widget ships", "impacted_program": "Widgets", "next_step": "Preorders", "timestamp": "2025-05-21"}`}
	got := NewSummarizer(gen, zap.NewNop()).Summarize(context.Background(), "Company XYZ announces Widget")

	be.Equal(t, model.Deref(got.Headline), "XYZ launches Widget")
	be.Equal(t, model.Deref(got.NextStep), "Preorders")
	be.Equal(t, model.Deref(got.Timestamp), "2025-05-21")
	be.True(t, strings.Contains(gen.prompt, "Company XYZ announces Widget"))
}

func TestSummarizeNullTimestamp(t *testing.T) {
	got, err := ParseSummary(`{"headline": "h", "key_result": null, "impacted_program": "p", "next_step": "n", "timestamp": null}`)
	be.Err(t, err, nil)
	be.True(t, got.Timestamp == nil)
	be.True(t, got.KeyResult == nil)
}

func TestBuildPromptKeepsFullText(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	be.True(t, strings.Contains(BuildPrompt(text), text))
}

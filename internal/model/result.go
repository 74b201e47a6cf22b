package model

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	PressReleaseYes = "YES"
	PressReleaseNo  = "NO"

	TypeInline = "inline"
	TypeURL    = "url"
)

// Classification mirrors the classifier's one-line JSON contract. A missing
// timestamp key and an explicit null both decode to nil.
type Classification struct {
	PressRelease string  `json:"press_release"`
	Type         *string `json:"type"`
	URL          *string `json:"url"`
	Text         *string `json:"text"`
	Timestamp    *string `json:"timestamp,omitempty"`
}

// DefaultClassification is returned whenever the model call or its JSON fails.
func DefaultClassification() Classification {
	return Classification{PressRelease: PressReleaseNo}
}

func (c Classification) IsPressRelease() bool {
	return c.PressRelease == PressReleaseYes
}

func (c Classification) TypeIs(t string) bool {
	return c.Type != nil && *c.Type == t
}

// Summary mirrors the summarizer's JSON contract. The zero value encodes as {};
// keys the model sent as null are kept as null.
type Summary struct {
	Headline        *string `json:"headline,omitempty"`
	KeyResult       *string `json:"key_result,omitempty"`
	ImpactedProgram *string `json:"impacted_program,omitempty"`
	NextStep        *string `json:"next_step,omitempty"`
	Timestamp       *string `json:"timestamp,omitempty"`

	nulls uint8
}

var summaryKeys = [...]string{"headline", "key_result", "impacted_program", "next_step", "timestamp"}

func (s *Summary) fields() [len(summaryKeys)]**string {
	return [...]**string{&s.Headline, &s.KeyResult, &s.ImpactedProgram, &s.NextStep, &s.Timestamp}
}

func (s Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for i, f := range s.fields() {
		if *f == nil && s.nulls&(1<<i) == 0 {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(summaryKeys[i])
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(*f)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Summary{}
	for i, f := range s.fields() {
		v, ok := raw[summaryKeys[i]]
		if !ok {
			continue
		}
		if v == nil {
			s.nulls |= 1 << i
		}
		*f = v
	}
	return nil
}

// DefaultSummary is returned whenever the model call or its JSON fails.
func DefaultSummary() Summary {
	return Summary{
		Headline:        Ptr(""),
		KeyResult:       Ptr(""),
		ImpactedProgram: Ptr(""),
		NextStep:        Ptr(""),
	}
}

func (s Summary) IsEmpty() bool {
	return s == Summary{}
}

// ProcessingResult 是每封邮件最终写入存储的记录
type ProcessingResult struct {
	PressReleaseWebsiteTimestamp *string `json:"press_release_website_timestamp"`
	EmailTimestamp               string  `json:"email_timestamp"`
	RetrievalTimestamp           string  `json:"retrieval_timestamp"`
	SummaryTimestamp             string  `json:"summary_timestamp"`
	EmailSubject                 string  `json:"email_subject"`
	EmailSender                  string  `json:"email_sender"`
	PressReleaseURL              *string `json:"press_release_url"`
	PressReleaseText             *string `json:"press_release_text"`
	LLMSummary                   Summary `json:"llm_summary"`
}

// FormatTimestamp renders t in UTC as ISO-8601 with a numeric offset,
// e.g. 2025-05-20T14:03:00+00:00. A non-zero fraction always gets six digits.
func FormatTimestamp(t time.Time) string {
	t = t.UTC().Truncate(time.Microsecond)
	if t.Nanosecond() == 0 {
		return t.Format("2006-01-02T15:04:05-07:00")
	}
	return t.Format("2006-01-02T15:04:05.000000-07:00")
}

func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nalgeon/be"
)

func TestDefaultClassificationJSON(t *testing.T) {
	b, err := json.Marshal(DefaultClassification())
	be.Err(t, err, nil)
	be.Equal(t, string(b), `{"press_release":"NO","type":null,"url":null,"text":null}`)
}

func TestDefaultSummaryJSON(t *testing.T) {
	b, err := json.Marshal(DefaultSummary())
	be.Err(t, err, nil)
	be.Equal(t, string(b), `{"headline":"","key_result":"","impacted_program":"","next_step":""}`)
}

func TestEmptySummaryJSON(t *testing.T) {
	b, err := json.Marshal(Summary{})
	be.Err(t, err, nil)
	be.Equal(t, string(b), `{}`)
	be.True(t, Summary{}.IsEmpty())
	be.Equal(t, DefaultSummary().IsEmpty(), false)
}

func TestClassificationRoundTrip(t *testing.T) {
	in := Classification{
		PressRelease: PressReleaseYes,
		Type:         Ptr(TypeInline),
		Text:         Ptr("New York, NY - May 20, 2025 - Company XYZ announces..."),
		Timestamp:    Ptr("2025-05-20"),
	}
	b, err := json.Marshal(in)
	be.Err(t, err, nil)

	var out Classification
	be.Err(t, json.Unmarshal(b, &out), nil)
	be.Equal(t, out, in)
	be.True(t, out.IsPressRelease())
	be.True(t, out.TypeIs(TypeInline))
	be.Equal(t, out.TypeIs(TypeURL), false)
}

func TestSummaryRoundTrip(t *testing.T) {
	in := Summary{
		Headline:        Ptr("XYZ launches Widget"),
		KeyResult:       Ptr("Widget ships today"),
		ImpactedProgram: Ptr("Widget program"),
		NextStep:        Ptr("Preorders open"),
		Timestamp:       Ptr("2025-05-20"),
	}
	b, err := json.Marshal(in)
	be.Err(t, err, nil)

	var out Summary
	be.Err(t, json.Unmarshal(b, &out), nil)
	be.Equal(t, out, in)
}

func TestMissingTimestampKeyIsNil(t *testing.T) {
	var c Classification
	be.Err(t, json.Unmarshal([]byte(`{"press_release":"NO","type":null,"url":null,"text":null}`), &c), nil)
	be.True(t, c.Timestamp == nil)
	be.Equal(t, c, DefaultClassification())
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("EDT", -4*3600)
	ts := time.Date(2025, 5, 20, 10, 3, 0, 0, loc)
	be.Equal(t, FormatTimestamp(ts), "2025-05-20T14:03:00+00:00")

	ts = time.Date(2025, 5, 20, 14, 3, 0, 123456000, time.UTC)
	be.Equal(t, FormatTimestamp(ts), "2025-05-20T14:03:00.123456+00:00")

	// 尾部的 0 不能被裁掉
	ts = time.Date(2025, 5, 20, 14, 3, 0, 120000000, time.UTC)
	be.Equal(t, FormatTimestamp(ts), "2025-05-20T14:03:00.120000+00:00")

	ts = time.Date(2025, 5, 20, 14, 3, 0, 999, time.UTC)
	be.Equal(t, FormatTimestamp(ts), "2025-05-20T14:03:00+00:00")
}

func TestSummaryKeepsExplicitNulls(t *testing.T) {
	var s Summary
	be.Err(t, json.Unmarshal([]byte(`{"headline":"XYZ launches Widget","key_result":null,"timestamp":null}`), &s), nil)
	be.Equal(t, Deref(s.Headline), "XYZ launches Widget")
	be.True(t, s.KeyResult == nil)
	be.Equal(t, s.IsEmpty(), false)

	b, err := json.Marshal(s)
	be.Err(t, err, nil)
	be.Equal(t, string(b), `{"headline":"XYZ launches Widget","key_result":null,"timestamp":null}`)
}

func TestSummaryAllNullsIsNotEmpty(t *testing.T) {
	var s Summary
	be.Err(t, json.Unmarshal([]byte(`{"headline":null,"key_result":null,"impacted_program":null,"next_step":null,"timestamp":null}`), &s), nil)
	be.Equal(t, s.IsEmpty(), false)

	b, err := json.Marshal(s)
	be.Err(t, err, nil)
	be.Equal(t, string(b), `{"headline":null,"key_result":null,"impacted_program":null,"next_step":null,"timestamp":null}`)
}

func TestSummaryRejectsNonString(t *testing.T) {
	var s Summary
	be.True(t, json.Unmarshal([]byte(`{"headline":42}`), &s) != nil)
}

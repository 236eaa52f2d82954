package service

import (
	"strings"
	"testing"

	"echocore/pkg/asr"
)

// TestBuildSegmentsStructured verifies sentence_info with timestamp
// pairs wins and boundaries come from the first and last pair.
func TestBuildSegmentsStructured(t *testing.T) {
	res := asr.RawResult{
		SentenceInfo: []asr.Sentence{
			{Text: "hello", Timestamp: [][]float64{{0, 500}, {500, 1000}}},
		},
	}

	segments := BuildSegments(res)
	if len(segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(segments))
	}
	seg := segments[0]
	if seg.Text != "hello" || seg.StartTime != 0 || seg.EndTime != 1.0 {
		t.Fatalf("segment = %+v, want {hello 0 1}", seg)
	}
}

// TestBuildSegmentsStructuredNamedFields checks the begin/end field
// aliases used by older engine versions.
func TestBuildSegmentsStructuredNamedFields(t *testing.T) {
	res := asr.RawResult{
		SentenceInfo: []asr.Sentence{
			{Sentence: "first", BeginTime: 1500, EndTime: 2500},
			{Text: "second", Start: 3000, Stop: 4000},
		},
	}

	segments := BuildSegments(res)
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	if segments[0].StartTime != 1.5 || segments[0].EndTime != 2.5 {
		t.Fatalf("first segment times = %v-%v, want 1.5-2.5", segments[0].StartTime, segments[0].EndTime)
	}
	if segments[1].Text != "second" || segments[1].StartTime != 3.0 || segments[1].EndTime != 4.0 {
		t.Fatalf("second segment = %+v", segments[1])
	}
}

// TestBuildSegmentsFromCharTimestamps reconstructs sentences from a
// flat transcript. Punctuation consumes no timestamp pair and each
// terminator flushes a segment.
func TestBuildSegmentsFromCharTimestamps(t *testing.T) {
	res := asr.RawResult{
		Text: "你好。世界！",
		Timestamp: [][]float64{
			{0, 400}, {400, 800},
			{1200, 1600}, {1600, 2000},
			{2400, 2800}, {2800, 3200},
		},
	}

	segments := BuildSegments(res)
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}

	var joined strings.Builder
	for _, seg := range segments {
		if seg.StartTime > seg.EndTime {
			t.Fatalf("segment %q has start %v > end %v", seg.Text, seg.StartTime, seg.EndTime)
		}
		joined.WriteString(seg.Text)
	}
	if joined.String() != res.Text {
		t.Fatalf("joined = %q, want %q", joined.String(), res.Text)
	}

	if segments[0].StartTime != 0 || segments[0].EndTime != 0.8 {
		t.Fatalf("first segment times = %v-%v, want 0-0.8", segments[0].StartTime, segments[0].EndTime)
	}
	if segments[1].StartTime != 1.2 || segments[1].EndTime != 2.0 {
		t.Fatalf("second segment times = %v-%v, want 1.2-2.0", segments[1].StartTime, segments[1].EndTime)
	}
}

// TestBuildSegmentsTrailingText keeps unterminated trailing text as a
// final segment.
func TestBuildSegmentsTrailingText(t *testing.T) {
	res := asr.RawResult{
		Text:      "好。啊",
		Timestamp: [][]float64{{0, 100}, {200, 300}},
	}

	segments := BuildSegments(res)
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	if segments[1].Text != "啊" || segments[1].StartTime != 0.2 || segments[1].EndTime != 0.3 {
		t.Fatalf("trailing segment = %+v", segments[1])
	}
}

// TestBuildSegmentsFallbackWholeText returns one zero-timed segment
// when only a flat transcript is available.
func TestBuildSegmentsFallbackWholeText(t *testing.T) {
	segments := BuildSegments(asr.RawResult{Text: "  just text  "})
	if len(segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(segments))
	}
	seg := segments[0]
	if seg.Text != "just text" || seg.StartTime != 0 || seg.EndTime != 0 {
		t.Fatalf("fallback segment = %+v", seg)
	}
}

// TestBuildSegmentsEmpty returns nothing for an empty result.
func TestBuildSegmentsEmpty(t *testing.T) {
	if segments := BuildSegments(asr.RawResult{}); len(segments) != 0 {
		t.Fatalf("segments = %d, want 0", len(segments))
	}
}

// TestBuildSegmentsDropsBlankSentences skips structured records with
// empty trimmed text.
func TestBuildSegmentsDropsBlankSentences(t *testing.T) {
	res := asr.RawResult{
		SentenceInfo: []asr.Sentence{
			{Text: "   "},
			{Text: "kept", Timestamp: [][]float64{{0, 1000}}},
		},
	}

	segments := BuildSegments(res)
	if len(segments) != 1 || segments[0].Text != "kept" {
		t.Fatalf("segments = %+v, want only %q", segments, "kept")
	}
}

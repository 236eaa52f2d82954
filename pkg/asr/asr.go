// Package asr defines the recognizer engine boundary. The engine is
// injected as a factory so the service never imports a concrete runtime;
// the production implementation drives a FunASR bridge subprocess.
package asr

import (
	"context"
	"fmt"
)

// ModelPaths are the resolved local directories for the three required
// models.
type ModelPaths struct {
	Acoustic    string
	VAD         string
	Punctuation string
}

// Options configure engine construction. Either Device or NGPU is used,
// depending on what the installed FunASR version supports.
type Options struct {
	Device           string
	NGPU             int
	DisableUpdate    bool
	TrustRemoteCode  bool
	BatchSizeSeconds int
}

// Capabilities version-gates construction options instead of matching
// error strings after the fact.
type Capabilities struct {
	DeviceOption        bool
	DisableUpdateOption bool
}

// Sentence is one structured sentence record. FunASR versions disagree
// on field names, so all known aliases are accepted.
type Sentence struct {
	Text      string      `json:"text"`
	Sentence  string      `json:"sentence"`
	Timestamp [][]float64 `json:"timestamp"`
	BeginTime float64     `json:"begin_time"`
	Start     float64     `json:"start"`
	StartTime float64     `json:"start_time"`
	EndTime   float64     `json:"end_time"`
	End       float64     `json:"end"`
	Stop      float64     `json:"stop"`
}

// RawResult is one item of the engine's generate output: either
// structured sentences, or a flat transcript with per-character
// millisecond timestamp pairs.
type RawResult struct {
	Text         string      `json:"text"`
	SentenceInfo []Sentence  `json:"sentence_info"`
	Timestamp    [][]float64 `json:"timestamp"`
}

// Engine runs recognition over one audio file. Generate is a long
// blocking call; once started it cannot be interrupted, cancellation is
// observed only between pipeline steps.
type Engine interface {
	Generate(ctx context.Context, input string, hotword string, sentenceTimestamp bool) ([]RawResult, error)
	Close() error
}

// Factory constructs engines and reports which options the underlying
// runtime accepts.
type Factory interface {
	Capabilities() Capabilities
	New(ctx context.Context, paths ModelPaths, opts Options) (Engine, error)
}

// UnsupportedOptionError reports a construction option the runtime
// rejects, so the caller can translate or drop it and retry.
type UnsupportedOptionError struct {
	Option string
}

func (e *UnsupportedOptionError) Error() string {
	return fmt.Sprintf("engine does not support option %q", e.Option)
}

package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
)

// SubprocessFactory builds engines that shell out to a FunASR bridge
// script, one process per generate call. Capabilities come from
// configuration describing the installed FunASR version.
type SubprocessFactory struct {
	Python string
	Script string
	Caps   Capabilities
}

func (f *SubprocessFactory) Capabilities() Capabilities {
	return f.Caps
}

func (f *SubprocessFactory) New(ctx context.Context, paths ModelPaths, opts Options) (Engine, error) {
	if opts.Device != "" && !f.Caps.DeviceOption {
		return nil, &UnsupportedOptionError{Option: "device"}
	}
	if opts.DisableUpdate && !f.Caps.DisableUpdateOption {
		return nil, &UnsupportedOptionError{Option: "disable_update"}
	}
	if _, err := os.Stat(f.Script); err != nil {
		return nil, fmt.Errorf("engine bridge script: %w", err)
	}
	if _, err := exec.LookPath(f.Python); err != nil {
		return nil, fmt.Errorf("engine python runtime: %w", err)
	}
	return &subprocessEngine{
		python: f.Python,
		script: f.Script,
		paths:  paths,
		opts:   opts,
	}, nil
}

type subprocessEngine struct {
	python string
	script string
	paths  ModelPaths
	opts   Options
}

// generateRequest is the JSON contract with the bridge script.
type generateRequest struct {
	Model             string `json:"model"`
	VADModel          string `json:"vad_model"`
	PuncModel         string `json:"punc_model"`
	Device            string `json:"device,omitempty"`
	NGPU              *int   `json:"ngpu,omitempty"`
	DisableUpdate     bool   `json:"disable_update,omitempty"`
	TrustRemoteCode   bool   `json:"trust_remote_code"`
	Input             string `json:"input"`
	Hotword           string `json:"hotword"`
	SentenceTimestamp bool   `json:"sentence_timestamp"`
	BatchSizeSeconds  int    `json:"batch_size_s"`
}

func (e *subprocessEngine) Generate(ctx context.Context, input string, hotword string, sentenceTimestamp bool) ([]RawResult, error) {
	req := generateRequest{
		Model:             e.paths.Acoustic,
		VADModel:          e.paths.VAD,
		PuncModel:         e.paths.Punctuation,
		TrustRemoteCode:   e.opts.TrustRemoteCode,
		Input:             input,
		Hotword:           hotword,
		SentenceTimestamp: sentenceTimestamp,
		BatchSizeSeconds:  e.opts.BatchSizeSeconds,
	}
	if e.opts.Device != "" {
		req.Device = e.opts.Device
	} else {
		ngpu := e.opts.NGPU
		req.NGPU = &ngpu
	}
	if e.opts.DisableUpdate {
		req.DisableUpdate = true
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	// Deliberately not CommandContext: a started recognition run is not
	// interrupted, cancellation takes effect at the next checkpoint.
	cmd := exec.Command(e.python, e.script)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	zerolog.Ctx(ctx).Debug().Str("input", input).Msg("invoking funasr bridge")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("funasr bridge failed: %w: %s", err, stderr.String())
	}

	var results []RawResult
	if err := json.Unmarshal(stdout.Bytes(), &results); err != nil {
		return nil, fmt.Errorf("funasr bridge output: %w", err)
	}
	return results, nil
}

func (e *subprocessEngine) Close() error {
	return nil
}

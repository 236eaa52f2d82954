package service

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"echocore/constant"
)

// GPUProbe reports the name of the first available GPU, or an error if
// no usable GPU runtime is present.
type GPUProbe func(ctx context.Context) (string, error)

// DeviceSelector decides the actual compute device from a requested
// preference and a runtime capability probe.
type DeviceSelector struct {
	probe GPUProbe
}

// NewDeviceSelector uses the nvidia-smi probe when probe is nil.
func NewDeviceSelector(probe GPUProbe) *DeviceSelector {
	if probe == nil {
		probe = nvidiaSMIProbe
	}
	return &DeviceSelector{probe: probe}
}

// Select resolves the device. "cpu" is honored silently. "gpu" downgrades
// to cpu with a warning when no GPU runtime is found, because the user's
// explicit choice is being overridden. "auto" downgrades silently.
func (s *DeviceSelector) Select(ctx context.Context, preference string) (string, string) {
	preferred := strings.ToLower(strings.TrimSpace(preference))
	if preferred == "" {
		preferred = constant.DevicePreferenceGPU
	}
	if preferred == constant.DevicePreferenceCPU {
		zerolog.Ctx(ctx).Info().Msg("offline recognition pinned to CPU")
		return constant.DeviceCPU, ""
	}

	name, err := s.probe(ctx)
	if err == nil {
		zerolog.Ctx(ctx).Info().Str("gpu", name).Msg("offline recognition using GPU")
		return constant.DeviceCUDA, ""
	}

	zerolog.Ctx(ctx).Info().Err(err).Msg("no usable GPU detected, offline recognition using CPU")
	if preferred == constant.DevicePreferenceGPU {
		return constant.DeviceCPU, "gpu requested but no usable CUDA device was detected, fell back to cpu"
	}
	return constant.DeviceCPU, ""
}

var errNoGPU = errors.New("no CUDA device reported")

// nvidiaSMIProbe asks the NVIDIA driver for the first GPU name.
func nvidiaSMIProbe(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if name == "" {
		return "", errNoGPU
	}
	return name, nil
}

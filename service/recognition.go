package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"

	"echocore/config"
	"echocore/constant"
	"echocore/entities"
	"echocore/pkg/asr"
	"echocore/repository"
)

// RecognitionService runs the offline recognition pipeline for one job
// as a detached background task. Every step is a cancellation
// checkpoint; a step already in flight is never preempted.
type RecognitionService struct {
	locator *ModelLocator
	devices *DeviceSelector
	factory asr.Factory
	store   repository.MeetingStore
	jobs    *JobRegistry
	cfg     *config.Config
}

func NewRecognitionService(
	locator *ModelLocator,
	devices *DeviceSelector,
	factory asr.Factory,
	store repository.MeetingStore,
	jobs *JobRegistry,
	cfg *config.Config,
) *RecognitionService {
	return &RecognitionService{
		locator: locator,
		devices: devices,
		factory: factory,
		store:   store,
		jobs:    jobs,
		cfg:     cfg,
	}
}

// Run drives the job to a terminal state. Errors are recorded on the
// job, never returned: by the time they happen the HTTP caller that
// scheduled the job is long gone.
func (s *RecognitionService) Run(ctx context.Context, job *entities.OfflineJob) {
	zerolog.Ctx(ctx).Info().Str("job_id", job.ID).Str("file", job.FilePath).Msg("starting offline recognition")

	if s.canceled(ctx, job.ID) {
		return
	}
	s.jobs.SetStatus(ctx, job.ID, constant.JobStatusRecognizing, "recognizing")

	paths, err := s.resolveModels()
	if err != nil {
		s.jobs.Fail(ctx, job.ID, err)
		return
	}
	if s.canceled(ctx, job.ID) {
		return
	}

	device, warning := s.devices.Select(ctx, job.ComputeDevice)
	if warning != "" {
		zerolog.Ctx(ctx).Warn().Str("job_id", job.ID).Msg(warning)
	}

	engine, err := s.buildEngine(ctx, paths, device)
	if err != nil {
		s.jobs.Fail(ctx, job.ID, err)
		return
	}
	defer engine.Close()
	if s.canceled(ctx, job.ID) {
		return
	}

	results, err := engine.Generate(ctx, job.FilePath, s.hotwordsFor(job), true)
	if err != nil {
		s.jobs.Fail(ctx, job.ID, err)
		return
	}
	if s.canceled(ctx, job.ID) {
		return
	}

	if len(results) == 0 {
		s.jobs.Fail(ctx, job.ID, ErrEmptyResult)
		return
	}
	first := results[0]
	text := strings.TrimSpace(first.Text)
	segments := BuildSegments(first)
	if text == "" && len(segments) == 0 {
		s.jobs.Fail(ctx, job.ID, ErrEmptyResult)
		return
	}

	result := &entities.RecognitionResult{
		FullText:                text,
		Segments:                segments,
		ComputeDevicePreference: job.ComputeDevice,
		ComputeDevice:           device,
		Warnings:                []string{},
	}
	if warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	if _, err := s.store.SaveOfflineResult(ctx, job.MeetingID, result); err != nil {
		s.jobs.Fail(ctx, job.ID, err)
		return
	}
	s.jobs.Complete(ctx, job.ID, result)
	s.archive(ctx, job, result)

	zerolog.Ctx(ctx).Info().Str("job_id", job.ID).Int("segments", len(segments)).Msg("offline recognition completed")
}

// canceled is the pipeline checkpoint: the job context fired, or the
// job reached a terminal state behind our back.
func (s *RecognitionService) canceled(ctx context.Context, jobID string) bool {
	if ctx.Err() != nil {
		return true
	}
	status, ok := s.jobs.Status(jobID)
	return !ok || status.Terminal()
}

func (s *RecognitionService) resolveModels() (asr.ModelPaths, error) {
	var paths asr.ModelPaths
	var missing []string

	resolve := func(label, ref string, dst *string) {
		if path, ok := s.locator.Resolve(ref); ok {
			*dst = path
			return
		}
		missing = append(missing, fmt.Sprintf("%s=%s", label, ref))
	}
	resolve("model", s.cfg.Offline.ModelID, &paths.Acoustic)
	resolve("vad_model", s.cfg.Offline.VADModelID, &paths.VAD)
	resolve("punc_model", s.cfg.Offline.PuncModelID, &paths.Punctuation)

	if len(missing) > 0 {
		return asr.ModelPaths{}, &ModelResolutionError{Missing: missing, Roots: s.locator.Roots()}
	}
	return paths, nil
}

// buildEngine constructs the recognizer, gating options on the declared
// capabilities. If the factory still rejects an option, it is translated
// to its legacy equivalent or dropped and construction retried exactly
// once.
func (s *RecognitionService) buildEngine(ctx context.Context, paths asr.ModelPaths, device string) (asr.Engine, error) {
	caps := s.factory.Capabilities()
	opts := asr.Options{
		DisableUpdate:    caps.DisableUpdateOption,
		TrustRemoteCode:  true,
		BatchSizeSeconds: 60,
	}
	if caps.DeviceOption {
		opts.Device = device
	} else {
		opts.NGPU = ngpuFor(device)
	}

	engine, err := s.factory.New(ctx, paths, opts)
	var unsupported *asr.UnsupportedOptionError
	if errors.As(err, &unsupported) {
		switch unsupported.Option {
		case "device":
			opts.Device = ""
			opts.NGPU = ngpuFor(device)
		case "disable_update":
			opts.DisableUpdate = false
		}
		zerolog.Ctx(ctx).Warn().Str("option", unsupported.Option).Msg("engine rejected option, retrying with legacy form")
		engine, err = s.factory.New(ctx, paths, opts)
	}
	if err != nil {
		return nil, &ModelLoadError{Err: err}
	}
	return engine, nil
}

func ngpuFor(device string) int {
	if strings.HasPrefix(device, "cuda") {
		return 1
	}
	return 0
}

// hotwordsFor serializes the session hotwords in "word weight" line
// format; with none declared it falls back to a shared hotwords.txt in
// the upload directory.
func (s *RecognitionService) hotwordsFor(job *entities.OfflineJob) string {
	if len(job.Hotwords) > 0 {
		words := make([]string, 0, len(job.Hotwords))
		for word := range job.Hotwords {
			words = append(words, word)
		}
		sort.Strings(words)

		var b strings.Builder
		for _, word := range words {
			fmt.Fprintf(&b, "%s %d\n", word, job.Hotwords[word])
		}
		return strings.TrimSpace(b.String())
	}

	data, err := os.ReadFile(filepath.Join(s.cfg.Storage.UploadDir, "hotwords.txt"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// archive ships the assembled audio and the result JSON to object
// storage when configured. Failures are logged only, the job already
// completed.
func (s *RecognitionService) archive(ctx context.Context, job *entities.OfflineJob, result *entities.RecognitionResult) {
	if s.cfg.ObjectStore == nil {
		return
	}

	audioKey := fmt.Sprintf("offline-results/%s/%s", job.ID, job.FileName)
	if _, err := s.cfg.ObjectStore.FPutObject(ctx, s.cfg.MinIOBucket, audioKey, job.FilePath, minio.PutObjectOptions{}); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("job_id", job.ID).Msg("failed to archive audio")
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("job_id", job.ID).Msg("failed to encode result for archive")
		return
	}
	resultKey := fmt.Sprintf("offline-results/%s/result.json", job.ID)
	_, err = s.cfg.ObjectStore.PutObject(ctx, s.cfg.MinIOBucket, resultKey,
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("job_id", job.ID).Msg("failed to archive result")
		return
	}

	zerolog.Ctx(ctx).Info().Str("job_id", job.ID).Str("key", audioKey).Msg("job artifacts archived")
}

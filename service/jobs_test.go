package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"echocore/constant"
	"echocore/dto"
	"echocore/entities"
)

type recordingNotifier struct {
	events []dto.JobEventMessage
}

func (n *recordingNotifier) JobTransition(ctx context.Context, msg dto.JobEventMessage) error {
	n.events = append(n.events, msg)
	return nil
}

func queuedJob(t *testing.T, r *JobRegistry) (*entities.OfflineJob, context.Context, string) {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), "job_audio.wav")
	if err := os.WriteFile(filePath, []byte("pcm"), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	job := &entities.OfflineJob{
		ID:         "job-1",
		MeetingID:  "meeting-1",
		FileName:   "audio.wav",
		FilePath:   filePath,
		Status:     constant.JobStatusQueued,
		StatusText: "queued for recognition",
	}
	ctx := r.Create(context.Background(), job)
	return job, ctx, filePath
}

// TestRegistryGetSnapshot returns a copy of the stored job and a
// not-found error for unknown ids.
func TestRegistryGetSnapshot(t *testing.T) {
	r := NewJobRegistry(nil)
	job, _, _ := queuedJob(t, r)

	got, err := r.Get(job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != constant.JobStatusQueued || got.MeetingID != "meeting-1" {
		t.Fatalf("snapshot = %+v", got)
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

// TestCancelQueuedJob flips the state, fires the job context and
// removes the source file.
func TestCancelQueuedJob(t *testing.T) {
	r := NewJobRegistry(nil)
	job, ctx, filePath := queuedJob(t, r)

	canceled, err := r.Cancel(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if canceled.Status != constant.JobStatusCanceled {
		t.Fatalf("status = %s, want canceled", canceled.Status)
	}

	select {
	case <-ctx.Done():
	default:
		t.Fatal("job context not canceled")
	}

	if _, err := os.Stat(filePath); !os.IsNotExist(err) {
		t.Fatalf("source file still present: %v", err)
	}
}

// TestCancelTerminalJob rejects cancellation once a job is terminal.
func TestCancelTerminalJob(t *testing.T) {
	r := NewJobRegistry(nil)
	job, _, _ := queuedJob(t, r)
	r.Complete(context.Background(), job.ID, &entities.RecognitionResult{FullText: "done"})

	_, err := r.Cancel(context.Background(), job.ID)
	var transition *InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("err = %v, want InvalidTransitionError", err)
	}
	if transition.Status != constant.JobStatusCompleted {
		t.Fatalf("reported state = %s, want completed", transition.Status)
	}
}

// TestCancelUnknownJob returns not-found.
func TestCancelUnknownJob(t *testing.T) {
	r := NewJobRegistry(nil)

	if _, err := r.Cancel(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

// TestCompleteAttachesResult marks the job completed with the result
// and full recognition progress.
func TestCompleteAttachesResult(t *testing.T) {
	r := NewJobRegistry(nil)
	job, _, _ := queuedJob(t, r)

	result := &entities.RecognitionResult{FullText: "hello", ComputeDevice: constant.DeviceCPU}
	r.Complete(context.Background(), job.ID, result)

	got, err := r.Get(job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != constant.JobStatusCompleted || got.RecognitionPercent != 100 || got.Result != result {
		t.Fatalf("job = %+v", got)
	}
}

// TestFailKeepsErrorVerbatim stores the failure message as is and does
// not overwrite terminal states afterwards.
func TestFailKeepsErrorVerbatim(t *testing.T) {
	r := NewJobRegistry(nil)
	job, _, _ := queuedJob(t, r)

	r.Fail(context.Background(), job.ID, errors.New("engine exploded"))
	got, _ := r.Get(job.ID)
	if got.Status != constant.JobStatusFailed || got.Error != "engine exploded" {
		t.Fatalf("job = %s/%q", got.Status, got.Error)
	}

	r.SetStatus(context.Background(), job.ID, constant.JobStatusRecognizing, "recognizing")
	if got, _ := r.Get(job.ID); got.Status != constant.JobStatusFailed {
		t.Fatalf("terminal state overwritten to %s", got.Status)
	}
}

// TestNotifierReceivesTransitions publishes one event per transition.
func TestNotifierReceivesTransitions(t *testing.T) {
	notifier := &recordingNotifier{}
	r := NewJobRegistry(notifier)
	job, _, _ := queuedJob(t, r)
	r.SetStatus(context.Background(), job.ID, constant.JobStatusRecognizing, "recognizing")
	r.Complete(context.Background(), job.ID, &entities.RecognitionResult{})

	want := []string{"queued", "recognizing", "completed"}
	if len(notifier.events) != len(want) {
		t.Fatalf("events = %d, want %d", len(notifier.events), len(want))
	}
	for i, status := range want {
		if notifier.events[i].Status != status {
			t.Fatalf("event %d = %s, want %s", i, notifier.events[i].Status, status)
		}
	}
}

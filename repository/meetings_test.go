package repository

import (
	"context"
	"testing"

	"echocore/entities"
)

// TestSaveGetRoundTrip persists a meeting and reads it back.
func TestSaveGetRoundTrip(t *testing.T) {
	store, err := NewMeetingStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewMeetingStore: %v", err)
	}
	ctx := context.Background()

	in := &entities.Meeting{ID: "meeting-1", Name: "weekly sync", Mode: "offline", Status: "created"}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "meeting-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Name != "weekly sync" || got.Status != "created" {
		t.Fatalf("got %+v", got)
	}
}

// TestGetUnknownMeeting returns (nil, nil) for an id never saved.
func TestGetUnknownMeeting(t *testing.T) {
	store, err := NewMeetingStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewMeetingStore: %v", err)
	}

	got, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

// TestSaveOfflineResult replaces the transcript, recomputes duration
// from the last segment and marks the meeting completed.
func TestSaveOfflineResult(t *testing.T) {
	store, err := NewMeetingStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewMeetingStore: %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, &entities.Meeting{ID: "meeting-1", Status: "created", Duration: 7}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	result := &entities.RecognitionResult{
		FullText: "hello world",
		Segments: []entities.Segment{
			{Text: "hello", StartTime: 0, EndTime: 1.2},
			{Text: "world", StartTime: 1.2, EndTime: 3.9},
		},
	}
	updated, err := store.SaveOfflineResult(ctx, "meeting-1", result)
	if err != nil {
		t.Fatalf("SaveOfflineResult: %v", err)
	}
	if updated == nil || updated.Transcript != "hello world" || updated.Status != "completed" {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.Duration != 3 {
		t.Fatalf("duration = %d, want 3", updated.Duration)
	}

	// The update must be durable, not just in the returned value.
	got, err := store.Get(ctx, "meeting-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.TranscriptSegments) != 2 || got.TranscriptSegments[1].Text != "world" {
		t.Fatalf("persisted segments = %+v", got.TranscriptSegments)
	}
}

// TestSaveOfflineResultUnknownMeeting is a no-op returning (nil, nil).
func TestSaveOfflineResultUnknownMeeting(t *testing.T) {
	store, err := NewMeetingStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewMeetingStore: %v", err)
	}

	updated, err := store.SaveOfflineResult(context.Background(), "missing", &entities.RecognitionResult{FullText: "x"})
	if err != nil {
		t.Fatalf("SaveOfflineResult: %v", err)
	}
	if updated != nil {
		t.Fatalf("updated = %+v, want nil", updated)
	}
}

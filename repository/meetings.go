package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"echocore/entities"
)

// MeetingStore is the persistence collaborator owning meeting records.
// Get and SaveOfflineResult return (nil, nil) for unknown meetings.
type MeetingStore interface {
	Save(ctx context.Context, meeting *entities.Meeting) error
	Get(ctx context.Context, meetingID string) (*entities.Meeting, error)
	SaveOfflineResult(ctx context.Context, meetingID string, result *entities.RecognitionResult) (*entities.Meeting, error)
}

// jsonStore keeps one JSON file per meeting id under a data directory.
type jsonStore struct {
	dir string
}

func NewMeetingStore(dir string) (MeetingStore, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	return &jsonStore{dir: dir}, nil
}

func (s *jsonStore) path(meetingID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.json", meetingID))
}

func (s *jsonStore) Save(ctx context.Context, meeting *entities.Meeting) error {
	data, err := json.MarshalIndent(meeting, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(meeting.ID), data, 0644)
}

func (s *jsonStore) Get(ctx context.Context, meetingID string) (*entities.Meeting, error) {
	data, err := os.ReadFile(s.path(meetingID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	meeting := &entities.Meeting{}
	if err := json.Unmarshal(data, meeting); err != nil {
		return nil, err
	}
	return meeting, nil
}

// SaveOfflineResult replaces the meeting transcript with the offline
// recognition output, recomputes duration from the last segment and
// marks the meeting completed.
func (s *jsonStore) SaveOfflineResult(ctx context.Context, meetingID string, result *entities.RecognitionResult) (*entities.Meeting, error) {
	meeting, err := s.Get(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, nil
	}

	meeting.Transcript = result.FullText
	meeting.TranscriptSegments = result.Segments
	meeting.Status = "completed"
	meeting.UpdatedAt = time.Now()
	if n := len(result.Segments); n > 0 {
		meeting.Duration = int(result.Segments[n-1].EndTime)
	}

	if err := s.Save(ctx, meeting); err != nil {
		return nil, err
	}
	return meeting, nil
}

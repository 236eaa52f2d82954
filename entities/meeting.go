package entities

import "time"

// Meeting is the owning record an offline recognition result is saved
// into. Persisted as one JSON file per meeting id.
type Meeting struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	Name               string         `json:"name"`
	Mode               string         `json:"mode"`
	Status             string         `json:"status"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Duration           int            `json:"duration"`
	Hotwords           map[string]int `json:"hotwords"`
	Transcript         string         `json:"transcript"`
	TranscriptSegments []Segment      `json:"transcript_segments"`
	Summary            interface{}    `json:"summary"`
}

package dto

import (
	"time"

	"echocore/entities"
)

type InitUploadRequest struct {
	MeetingID     string         `json:"meeting_id"`
	FileName      string         `json:"file_name"`
	FileSize      int64          `json:"file_size"`
	FileType      string         `json:"file_type"`
	ChunkSize     int64          `json:"chunk_size"`
	Mode          string         `json:"mode"`
	Hotwords      map[string]int `json:"hotwords"`
	ComputeDevice string         `json:"compute_device"`
}

type InitUploadResponse struct {
	UploadID       string `json:"upload_id"`
	ChunkSize      int64  `json:"chunk_size"`
	TotalChunks    int    `json:"total_chunks"`
	UploadedChunks []int  `json:"uploaded_chunks"`
	ComputeDevice  string `json:"compute_device"`
	MaxParallel    int    `json:"max_parallel"`
}

type ChunkResponse struct {
	ChunkIndex    int     `json:"chunk_index"`
	UploadedBytes int64   `json:"uploaded_bytes"`
	TotalBytes    int64   `json:"total_bytes"`
	Percent       float64 `json:"percent"`
}

type CompleteUploadRequest struct {
	MeetingID string `json:"meeting_id"`
}

type CompleteUploadResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

type UploadProgress struct {
	Percent  int    `json:"percent"`
	FileName string `json:"file_name"`
}

type RecognitionProgress struct {
	Percent int `json:"percent"`
}

type JobStatusResponse struct {
	JobID                   string                      `json:"job_id"`
	MeetingID               string                      `json:"meeting_id"`
	ComputeDevicePreference string                      `json:"compute_device_preference"`
	Status                  string                      `json:"status"`
	StatusText              string                      `json:"status_text"`
	Percent                 int                         `json:"percent"`
	Upload                  UploadProgress              `json:"upload"`
	Recognition             RecognitionProgress         `json:"recognition"`
	Result                  *entities.RecognitionResult `json:"result"`
	Error                   string                      `json:"error"`
	CreatedAt               time.Time                   `json:"created_at"`
	UpdatedAt               time.Time                   `json:"updated_at"`
}

type CancelJobResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JobEventMessage is published to the offline jobs exchange on every job
// state transition when the event publisher is enabled.
type JobEventMessage struct {
	JobID     string    `json:"jobId"`
	MeetingID string    `json:"meetingId"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

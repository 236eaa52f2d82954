package entities

import (
	"time"

	"echocore/constant"
)

// OfflineJob is one recognition task bound to a single assembled audio
// file. Owned by the job registry; mutated only through it.
type OfflineJob struct {
	ID                 string             `json:"id"`
	MeetingID          string             `json:"meeting_id"`
	FileName           string             `json:"file_name"`
	FilePath           string             `json:"file_path"`
	ComputeDevice      string             `json:"compute_device"`
	Hotwords           map[string]int     `json:"hotwords"`
	Status             constant.JobStatus `json:"status"`
	StatusText         string             `json:"status_text"`
	UploadPercent      int                `json:"upload_percent"`
	RecognitionPercent int                `json:"recognition_percent"`
	Error              string             `json:"error"`
	Result             *RecognitionResult `json:"result"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

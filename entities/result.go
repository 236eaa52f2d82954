package entities

// Segment is one sentence-level slice of the transcript. Times are in
// seconds, start <= end, segments ordered and non-overlapping.
type Segment struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// RecognitionResult is produced once per job and attached atomically.
// Summary stays nil here; the LLM stage fills it elsewhere.
type RecognitionResult struct {
	FullText                string      `json:"full_text"`
	Segments                []Segment   `json:"segments"`
	Summary                 interface{} `json:"summary"`
	ComputeDevicePreference string      `json:"compute_device_preference"`
	ComputeDevice           string      `json:"compute_device"`
	Warnings                []string    `json:"warnings"`
}

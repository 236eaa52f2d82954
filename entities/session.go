package entities

import "time"

// UploadSession is the transient bookkeeping for one chunked upload.
// The set of uploaded chunk indices is keyed by zero-based index, so a
// re-uploaded chunk never double-counts progress.
type UploadSession struct {
	ID            string           `json:"upload_id"`
	MeetingID     string           `json:"meeting_id"`
	FileName      string           `json:"file_name"`
	FileSize      int64            `json:"file_size"`
	FileType      string           `json:"file_type"`
	ChunkSize     int64            `json:"chunk_size"`
	TotalChunks   int              `json:"total_chunks"`
	Mode          string           `json:"mode"`
	Hotwords      map[string]int   `json:"hotwords"`
	ComputeDevice string           `json:"compute_device"`
	Uploaded      map[int]struct{} `json:"-"`
	CreatedAt     time.Time        `json:"created_at"`
}

// UploadedBytes derives received bytes from the set of distinct chunk
// indices. The final chunk is credited with the file remainder, every
// other chunk with the full chunk size; the total never exceeds FileSize.
func (s *UploadSession) UploadedBytes() int64 {
	var n int64
	for idx := range s.Uploaded {
		if idx == s.TotalChunks-1 {
			n += s.FileSize - int64(s.TotalChunks-1)*s.ChunkSize
		} else {
			n += s.ChunkSize
		}
	}
	if n > s.FileSize {
		n = s.FileSize
	}
	return n
}

// Percent returns upload progress in [0, 100].
func (s *UploadSession) Percent() float64 {
	if s.FileSize <= 0 {
		return 0
	}
	p := float64(s.UploadedBytes()) / float64(s.FileSize) * 100
	if p > 100 {
		p = 100
	}
	return p
}

package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"echocore/constant"
	"echocore/dto"
	"echocore/entities"
)

const (
	// DefaultChunkSize is used when the client does not pick one.
	DefaultChunkSize = 8 * 1024 * 1024
	// MaxFileSize is the hard cap for a single upload.
	MaxFileSize = 2 * 1024 * 1024 * 1024
	// maxParallelChunks is advertised to clients at session init.
	maxParallelChunks = 3
)

var validMIMETypes = map[string]struct{}{
	"audio/mpeg":  {},
	"audio/wav":   {},
	"audio/mp4":   {},
	"audio/aac":   {},
	"audio/flac":  {},
	"audio/ogg":   {},
	"audio/x-m4a": {},
	"audio/mp3":   {},
}

var validExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".m4a":  {},
	".aac":  {},
	".flac": {},
	".ogg":  {},
}

// Recognizer runs the background recognition pipeline for one job.
type Recognizer interface {
	Run(ctx context.Context, job *entities.OfflineJob)
}

// managedSession pairs a session with its own mutex so chunk uploads on
// different sessions never contend. claimed marks a session taken by a
// finished completion; a chunk retry that raced the claim sees it gone.
type managedSession struct {
	mu      sync.Mutex
	session *entities.UploadSession
	claimed bool
}

// UploadManager is the upload session registry plus the chunk assembler.
// The registry lock guards only the session map; session state, including
// the uploaded-index set and the chunk files, is guarded by the owning
// session's lock, so sessions never contend with each other.
type UploadManager struct {
	mu         sync.RWMutex
	sessions   map[string]*managedSession
	uploadDir  string
	tempDir    string
	jobs       *JobRegistry
	recognizer Recognizer
}

func NewUploadManager(uploadDir, tempDir string, jobs *JobRegistry, recognizer Recognizer) (*UploadManager, error) {
	if err := os.MkdirAll(uploadDir, os.ModePerm); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(tempDir, os.ModePerm); err != nil {
		return nil, err
	}
	return &UploadManager{
		sessions:   make(map[string]*managedSession),
		uploadDir:  uploadDir,
		tempDir:    tempDir,
		jobs:       jobs,
		recognizer: recognizer,
	}, nil
}

// Open validates the declared file and creates a session with isolated
// scratch storage.
func (m *UploadManager) Open(ctx context.Context, req dto.InitUploadRequest) (dto.InitUploadResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.FileSize > MaxFileSize {
		return dto.InitUploadResponse{}, ErrFileTooLarge
	}

	fileName := filepath.Base(req.FileName)
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, mimeOK := validMIMETypes[req.FileType]; !mimeOK {
		if _, extOK := validExtensions[ext]; !extOK {
			return dto.InitUploadResponse{}, ErrUnsupportedFileType
		}
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	device := strings.ToLower(strings.TrimSpace(req.ComputeDevice))
	switch device {
	case constant.DevicePreferenceCPU, constant.DevicePreferenceGPU, constant.DevicePreferenceAuto:
	default:
		device = constant.DevicePreferenceGPU
	}
	mode := req.Mode
	if mode == "" {
		mode = "offline"
	}

	session := &entities.UploadSession{
		ID:            uuid.NewString(),
		MeetingID:     req.MeetingID,
		FileName:      fileName,
		FileSize:      req.FileSize,
		FileType:      req.FileType,
		ChunkSize:     chunkSize,
		TotalChunks:   int((req.FileSize + chunkSize - 1) / chunkSize),
		Mode:          mode,
		Hotwords:      req.Hotwords,
		ComputeDevice: device,
		Uploaded:      make(map[int]struct{}),
		CreatedAt:     time.Now(),
	}

	if err := os.MkdirAll(m.sessionDir(session.ID), os.ModePerm); err != nil {
		return dto.InitUploadResponse{}, err
	}
	m.sessions[session.ID] = &managedSession{session: session}

	zerolog.Ctx(ctx).Info().
		Str("upload_id", session.ID).
		Str("file_name", fileName).
		Int64("file_size", req.FileSize).
		Int("total_chunks", session.TotalChunks).
		Msg("upload session opened")

	return dto.InitUploadResponse{
		UploadID:       session.ID,
		ChunkSize:      chunkSize,
		TotalChunks:    session.TotalChunks,
		UploadedChunks: []int{},
		ComputeDevice:  device,
		MaxParallel:    maxParallelChunks,
	}, nil
}

// PutChunk stores one chunk. Re-uploading an index overwrites the file
// and never double-counts progress.
func (m *UploadManager) PutChunk(ctx context.Context, uploadID string, index int, content []byte) (dto.ChunkResponse, error) {
	m.mu.RLock()
	ms, ok := m.sessions[uploadID]
	m.mu.RUnlock()
	if !ok {
		return dto.ChunkResponse{}, ErrSessionNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.claimed {
		return dto.ChunkResponse{}, ErrSessionNotFound
	}
	session := ms.session

	if index < 0 || index >= session.TotalChunks {
		return dto.ChunkResponse{}, ErrChunkIndexOutOfRange
	}

	if err := os.WriteFile(m.chunkPath(uploadID, index), content, 0644); err != nil {
		return dto.ChunkResponse{}, err
	}
	session.Uploaded[index] = struct{}{}

	return dto.ChunkResponse{
		ChunkIndex:    index,
		UploadedBytes: session.UploadedBytes(),
		TotalBytes:    session.FileSize,
		Percent:       session.Percent(),
	}, nil
}

// Complete assembles the file, creates the job in queued state, spawns
// the recognition pipeline and destroys the session. The call returns
// as soon as the job is queued.
func (m *UploadManager) Complete(ctx context.Context, uploadID, meetingID string) (dto.CompleteUploadResponse, error) {
	// Claim the session first: once it is out of the map no new chunk
	// upload can find it, and taking its lock below waits out any chunk
	// write still in flight. The registry lock is never held across the
	// merge, so other sessions keep uploading.
	m.mu.Lock()
	ms, ok := m.sessions[uploadID]
	if ok {
		delete(m.sessions, uploadID)
	}
	m.mu.Unlock()
	if !ok {
		return dto.CompleteUploadResponse{}, ErrSessionNotFound
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	session := ms.session

	if len(session.Uploaded) < session.TotalChunks {
		// Hand the session back so the client can send the rest.
		m.mu.Lock()
		m.sessions[uploadID] = ms
		m.mu.Unlock()
		return dto.CompleteUploadResponse{}, &IncompleteUploadError{
			Uploaded: len(session.Uploaded),
			Expected: session.TotalChunks,
		}
	}
	ms.claimed = true

	jobID := uuid.NewString()
	outputPath := filepath.Join(m.uploadDir, fmt.Sprintf("%s_%s", jobID, session.FileName))
	if err := m.assemble(ctx, session, outputPath); err != nil {
		// The merge is not resumable and the session is already claimed,
		// so its scratch storage goes too.
		os.RemoveAll(m.sessionDir(uploadID))
		return dto.CompleteUploadResponse{}, err
	}

	if meetingID == "" {
		meetingID = session.MeetingID
	}
	job := &entities.OfflineJob{
		ID:            jobID,
		MeetingID:     meetingID,
		FileName:      session.FileName,
		FilePath:      outputPath,
		ComputeDevice: session.ComputeDevice,
		Hotwords:      session.Hotwords,
		Status:        constant.JobStatusQueued,
		StatusText:    "queued for recognition",
		UploadPercent: 100,
	}

	// The job outlives the completion request, so its context must not
	// die with it.
	jobCtx := m.jobs.Create(context.WithoutCancel(ctx), job)
	go m.recognizer.Run(jobCtx, job)

	zerolog.Ctx(ctx).Info().
		Str("upload_id", uploadID).
		Str("job_id", jobID).
		Msg("upload completed, recognition job queued")

	return dto.CompleteUploadResponse{
		JobID:   jobID,
		Status:  job.Status.String(),
		Message: "upload completed, recognition job queued",
	}, nil
}

// assemble merges the chunk files strictly by ascending index into the
// output file, then removes the chunks and the scratch directory. Not
// resumable: any failure is fatal to the completion call.
func (m *UploadManager) assemble(ctx context.Context, session *entities.UploadSession, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return &AssemblyError{Err: err}
	}

	for i := 0; i < session.TotalChunks; i++ {
		chunkPath := m.chunkPath(session.ID, i)
		in, err := os.Open(chunkPath)
		if err != nil {
			out.Close()
			os.Remove(outputPath)
			return &AssemblyError{Err: err}
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			out.Close()
			os.Remove(outputPath)
			return &AssemblyError{Err: err}
		}
		os.Remove(chunkPath)
	}

	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return &AssemblyError{Err: err}
	}
	if err := os.RemoveAll(m.sessionDir(session.ID)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("upload_id", session.ID).Msg("failed to remove session scratch dir")
	}
	return nil
}

func (m *UploadManager) sessionDir(uploadID string) string {
	return filepath.Join(m.tempDir, uploadID)
}

func (m *UploadManager) chunkPath(uploadID string, index int) string {
	return filepath.Join(m.sessionDir(uploadID), fmt.Sprintf("chunk_%06d", index))
}

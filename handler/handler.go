package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"echocore/constant"
	"echocore/dto"
	"echocore/entities"
	"echocore/service"
)

// Handler exposes the offline upload and job endpoints.
type Handler struct {
	uploads *service.UploadManager
	jobs    *service.JobRegistry
}

func New(uploads *service.UploadManager, jobs *service.JobRegistry) *Handler {
	return &Handler{uploads: uploads, jobs: jobs}
}

func (h *Handler) Register(r *gin.Engine) {
	offline := r.Group("/offline")
	offline.POST("/uploads/init", h.InitUpload)
	offline.PUT("/uploads/:upload_id/chunks/:chunk_index", h.UploadChunk)
	offline.POST("/uploads/:upload_id/complete", h.CompleteUpload)
	offline.GET("/jobs/:job_id", h.GetJob)
	offline.POST("/jobs/:job_id/cancel", h.CancelJob)
	offline.GET("/jobs/:job_id/result", h.GetJobResult)
}

func (h *Handler) InitUpload(c *gin.Context) {
	var req dto.InitUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	resp, err := h.uploads.Open(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UploadChunk(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("chunk_index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "chunk index must be an integer"})
		return
	}

	content, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	resp, err := h.uploads.PutChunk(c.Request.Context(), c.Param("upload_id"), index, content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CompleteUpload(c *gin.Context) {
	var req dto.CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	resp, err := h.uploads.Complete(c.Request.Context(), c.Param("upload_id"), req.MeetingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, jobStatusResponse(job))
}

func (h *Handler) CancelJob(c *gin.Context) {
	_, err := h.jobs.Cancel(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	zerolog.Ctx(c.Request.Context()).Info().Str("job_id", c.Param("job_id")).Msg("job canceled")
	c.JSON(http.StatusOK, dto.CancelJobResponse{Status: constant.JobStatusCanceled.String(), Message: "job canceled"})
}

func (h *Handler) GetJobResult(c *gin.Context) {
	job, err := h.jobs.Get(c.Param("job_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if job.Status != constant.JobStatusCompleted {
		writeError(c, fmt.Errorf("%w, current state: %s", service.ErrJobNotCompleted, job.StatusText))
		return
	}
	c.JSON(http.StatusOK, job.Result)
}

func jobStatusResponse(job entities.OfflineJob) dto.JobStatusResponse {
	return dto.JobStatusResponse{
		JobID:                   job.ID,
		MeetingID:               job.MeetingID,
		ComputeDevicePreference: job.ComputeDevice,
		Status:                  job.Status.String(),
		StatusText:              job.StatusText,
		Percent:                 job.RecognitionPercent,
		Upload:                  dto.UploadProgress{Percent: job.UploadPercent, FileName: job.FileName},
		Recognition:             dto.RecognitionProgress{Percent: job.RecognitionPercent},
		Result:                  job.Result,
		Error:                   job.Error,
		CreatedAt:               job.CreatedAt,
		UpdatedAt:               job.UpdatedAt,
	}
}

// writeError maps the service error taxonomy onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var (
		incomplete *service.IncompleteUploadError
		transition *service.InvalidTransitionError
		assembly   *service.AssemblyError
	)

	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"detail": err.Error()})
	case errors.Is(err, service.ErrUnsupportedFileType),
		errors.Is(err, service.ErrChunkIndexOutOfRange),
		errors.Is(err, service.ErrJobNotCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	case errors.As(err, &incomplete), errors.As(err, &transition):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.As(err, &assembly):
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}

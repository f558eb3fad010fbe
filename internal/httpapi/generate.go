package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nguyentantai21042004/vidscribe/internal/acquisition"
	"github.com/nguyentantai21042004/vidscribe/internal/export"
	"github.com/nguyentantai21042004/vidscribe/internal/task"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var taskTypes = map[string]bool{"": true, "summary": true, "clip": true}

func (h *Handler) createTask(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := validate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.tasks.Create(c.Request.Context(), req.toParams())
	switch {
	case err == nil:
	case errors.Is(err, task.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, task.ErrUnsupportedEngine):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   fmt.Sprintf("unsupported engine: %q", req.Params.Engine),
			"engines": h.engines(),
		})
		return
	case errors.Is(err, task.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	default:
		h.logger.Error(c.Request.Context(), "Failed to create task: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusAccepted, createResponse{
		Code:    http.StatusAccepted,
		TaskID:  id,
		Status:  string(task.StatusPending),
		Message: "task accepted",
	})
}

// validate rejects what would only fail later inside a worker.
func validate(req generateRequest) error {
	if strings.TrimSpace(req.VideoURL) != "" {
		if err := acquisition.ValidateSourceURL(strings.TrimSpace(req.VideoURL)); err != nil {
			return fmt.Errorf("video_url: %w", err)
		}
	}
	if _, err := acquisition.ParseTimeRange(req.Params.TimeRange); err != nil {
		return fmt.Errorf("timeRange: %w", err)
	}
	if !taskTypes[req.Params.Type] {
		return fmt.Errorf("type: must be summary or clip")
	}
	return nil
}

func (h *Handler) getTask(c *gin.Context) {
	snap, err := h.tasks.Get(c.Param("taskId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(snap))
}

func (h *Handler) cancelTask(c *gin.Context) {
	snap, err := h.tasks.Cancel(c.Param("taskId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	message := "task canceled"
	if snap.Status != task.StatusCanceled {
		message = "task already finished"
	}
	c.JSON(http.StatusOK, cancelResponse{
		Code:    snap.Code,
		TaskID:  snap.ID,
		Status:  string(snap.Status),
		Message: message,
	})
}

func (h *Handler) exportTask(c *gin.Context) {
	snap, err := h.tasks.Get(c.Param("taskId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if snap.Status != task.StatusSuccess {
		c.JSON(http.StatusConflict, gin.H{"error": "task has no result yet", "status": snap.Status})
		return
	}

	doc := export.Document{
		Title:       snap.Params.Title,
		Engine:      snap.Params.Engine,
		Prompt:      snap.Params.Prompt,
		Content:     snap.Content,
		ProcessTime: snap.ProcessTime,
		CompletedAt: snap.CompletedAt,
	}
	data, err := export.Render(doc, h.tempDir)
	if err != nil {
		h.logger.Error(c.Request.Context(), "Failed to render export for %s: %v", snap.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename()))
	c.Data(http.StatusOK, docxContentType, data)
}

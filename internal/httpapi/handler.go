// Package httpapi exposes the task API, the signed public media route and
// the health probe over gin.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nguyentantai21042004/vidscribe/internal/logger"
	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
	"github.com/nguyentantai21042004/vidscribe/internal/signedurl"
	"github.com/nguyentantai21042004/vidscribe/internal/task"
)

type Handler struct {
	tasks   task.Manager
	store   mediastore.Store
	codec   *signedurl.Codec
	engines func() []string
	tempDir string
	logger  logger.Logger
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Tasks task.Manager
	Store mediastore.Store
	Codec *signedurl.Codec
	// Engines lists the registered engine names for error messages.
	Engines func() []string
	TempDir string
	Logger  logger.Logger
}

func NewHandler(d Deps) *Handler {
	engines := d.Engines
	if engines == nil {
		engines = func() []string { return nil }
	}
	return &Handler{
		tasks:   d.Tasks,
		store:   d.Store,
		codec:   d.Codec,
		engines: engines,
		tempDir: d.TempDir,
		logger:  d.Logger,
	}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger), cors())
	RegisterHandlers(r, h)
	return r
}

func RegisterHandlers(r *gin.Engine, h *Handler) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.POST("/generate", h.createTask)
	api.GET("/generate/:taskId", h.getTask)
	api.POST("/generate/:taskId/cancel", h.cancelTask)
	api.GET("/generate/:taskId/export", h.exportTask)

	api.GET("/public-media/:fileId", h.servePublicMedia)
	api.HEAD("/public-media/:fileId", h.servePublicMedia)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

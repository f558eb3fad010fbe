package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nguyentantai21042004/vidscribe/internal/mediastore"
)

// servePublicMedia streams a published artifact to a remote engine. Every
// rejection gets the same 403 so callers learn nothing about which check
// failed or whether the file exists.
func (h *Handler) servePublicMedia(c *gin.Context) {
	fileID := c.Param("fileId")

	if !mediastore.ValidID(fileID) ||
		!h.codec.VerifyQuery(fileID, c.Query("expires"), c.Query("sign")) {
		forbidden(c)
		return
	}

	f, artifact, err := h.store.Open(fileID)
	if err != nil {
		forbidden(c)
		return
	}
	defer f.Close()

	c.Header("Content-Type", mediastore.ContentType)
	c.Header("Cache-Control", "private, no-store")
	http.ServeContent(c.Writer, c.Request, artifact.ID, artifact.CreatedAt, f)
}

func forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}

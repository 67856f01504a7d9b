package handler

import (
	"net/http"

	"credential-client/internal/app"
	"credential-client/internal/upload"
	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	App *app.Controller
}

func (h *UploadHandler) Create(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please select a file"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file"})
		return
	}
	defer f.Close()

	task, err := h.App.Upload(c.Request.Context(), upload.File{Name: fh.Filename, Size: fh.Size, Body: f})
	if err != nil {
		writeError(c, err, "Upload failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload": task, "ipfs_hash": task.ContentReference})
}

func (h *UploadHandler) Current(c *gin.Context) {
	task, ok := h.App.CurrentUpload()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"upload": nil, "pending_reference": h.App.PendingReference()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload": task, "pending_reference": h.App.PendingReference()})
}

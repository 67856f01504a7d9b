package handler

import (
	"net/http"

	"credential-client/internal/app"
	"github.com/gin-gonic/gin"
)

type FeedHandler struct {
	App *app.Controller
}

// Activity returns the feed relabelled against the current time. With
// reload=1 it is fetched again first.
func (h *FeedHandler) Activity(c *gin.Context) {
	if c.Query("reload") == "1" {
		c.JSON(http.StatusOK, gin.H{"activities": h.App.ReloadActivity(c.Request.Context())})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": h.App.Activity()})
}

func (h *FeedHandler) Notifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.App.Notifications()})
}

// Dismiss is idempotent: an unknown or already dismissed id still succeeds.
func (h *FeedHandler) Dismiss(c *gin.Context) {
	removed := h.App.Dismiss(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"success": true, "removed": removed})
}

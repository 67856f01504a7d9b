package handler

import (
	"net/http"

	"credential-client/internal/app"
	"credential-client/internal/apperr"
	"credential-client/internal/workflow"
	"github.com/gin-gonic/gin"
)

type StatusHandler struct {
	App *app.Controller
}

func (h *StatusHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.App.Status())
}

// Index reports the client state. A ?verify=<id> deep link with a well-formed
// id runs verification immediately; a malformed one is ignored.
func (h *StatusHandler) Index(c *gin.Context) {
	resp := gin.H{"status": h.App.Status()}

	if id, ok := workflow.DeepLink(c.Request.URL.Query()); ok {
		res, err := h.App.Verify(c.Request.Context(), id)
		if err != nil {
			resp["verification_error"] = apperr.UserMessage(err, "Verification failed")
		} else {
			resp["verification"] = res
		}
	}
	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"net/http"

	"credential-client/internal/app"
	"credential-client/internal/cache"
	"github.com/gin-gonic/gin"
)

type CredentialHandler struct {
	App *app.Controller
}

type issueBody struct {
	Recipient      string `json:"recipient"`
	CredentialType string `json:"credential_type"`
}

type verifyBody struct {
	CredentialID string `json:"credential_id"`
}

// List projects the cache; it never calls the backend.
func (h *CredentialHandler) List(c *gin.Context) {
	filter, err := cache.ParseFilter(c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter"})
		return
	}

	issued, owned := h.App.Counts()
	c.JSON(http.StatusOK, gin.H{
		"filter":       filter,
		"credentials":  h.App.Credentials(filter, c.Query("q")),
		"issued_count": issued,
		"owned_count":  owned,
	})
}

func (h *CredentialHandler) Refresh(c *gin.Context) {
	snap, err := h.App.RefreshCredentials(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to load credentials")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"issued":       snap.Issued,
		"owned":        snap.Owned,
		"issued_count": len(snap.Issued),
		"owned_count":  len(snap.Owned),
	})
}

func (h *CredentialHandler) Issue(c *gin.Context) {
	var body issueBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := h.App.Issue(c.Request.Context(), body.Recipient, body.CredentialType)
	if err != nil {
		writeError(c, err, "Failed to issue credential")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CredentialHandler) Verify(c *gin.Context) {
	var body verifyBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	h.verify(c, body.CredentialID)
}

// VerifyByID runs the same verification as manual entry for an id taken from
// a displayed credential.
func (h *CredentialHandler) VerifyByID(c *gin.Context) {
	h.verify(c, c.Param("id"))
}

func (h *CredentialHandler) verify(c *gin.Context, id string) {
	res, err := h.App.Verify(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "Verification failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CredentialHandler) QR(c *gin.Context) {
	img, err := h.App.QRCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "QR code unavailable")
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(img), img)
}

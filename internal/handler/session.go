package handler

import (
	"net/http"

	"credential-client/internal/app"
	"credential-client/internal/session"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	App *app.Controller
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type strengthBody struct {
	Password string `json:"password"`
}

func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.App.Session()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"logged_in": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_in": true, "session": sess})
}

func (h *SessionHandler) Login(c *gin.Context) {
	var body loginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sess, err := h.App.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		writeError(c, err, "Login failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"logged_in": true, "session": sess})
}

func (h *SessionHandler) Register(c *gin.Context) {
	var body session.Registration
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	created, err := h.App.Register(c.Request.Context(), body)
	if err != nil {
		writeError(c, err, "Registration failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": created, "auto_login_pending": h.App.AutoLoginPending()})
}

func (h *SessionHandler) Logout(c *gin.Context) {
	h.App.Logout(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"logged_in": false})
}

func (h *SessionHandler) PasswordStrength(c *gin.Context) {
	var body strengthBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	c.JSON(http.StatusOK, h.App.PasswordStrength(body.Password))
}

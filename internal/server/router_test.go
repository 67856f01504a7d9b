package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"credential-client/internal/app"
	"credential-client/internal/auth"
	"credential-client/internal/backend"
	"credential-client/internal/hub"
	"credential-client/internal/schedule"
	"github.com/gin-gonic/gin"
)

const testCredentialID = "a3f1c2d4e5b6a7980112233445566778899aabbccddeeff00112233445566778"

func newRemote(t *testing.T) *httptest.Server {
	t.Helper()
	r := gin.New()
	loggedIn := false

	r.GET("/check-session", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"logged_in": false})
	})
	r.POST("/login", func(c *gin.Context) {
		var body map[string]string
		_ = c.ShouldBindJSON(&body)
		if body["password"] != "password1" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		loggedIn = true
		c.JSON(http.StatusOK, gin.H{"user_id": 7, "username": body["username"], "email": "alice@example.com", "address": "0xabc"})
	})
	r.POST("/register", func(c *gin.Context) {
		var body map[string]string
		_ = c.ShouldBindJSON(&body)
		c.JSON(http.StatusCreated, gin.H{"user_id": 7, "username": body["username"], "email": body["email"], "blockchain_address": "0xabc"})
	})
	r.POST("/logout", func(c *gin.Context) {
		loggedIn = false
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	r.POST("/upload", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ipfs_hash": "QmDoc"})
	})
	r.POST("/issue", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"credential_id": testCredentialID, "transaction_hash": "0xtx", "qr_code": ""})
	})
	r.GET("/verify/:id", func(c *gin.Context) {
		if c.Param("id") != testCredentialID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Credential not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"owner": "bob@example.com", "issuer": "0xabc", "issuer_name": "Acme", "timestamp": 1700000000})
	})
	r.GET("/user/:id/credentials", func(c *gin.Context) {
		if !loggedIn {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not logged in"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"issued": []gin.H{{"credential_id": "i1", "owner": "bob@example.com", "credential_type": "Diploma", "status": "active"}},
			"owned":  []gin.H{{"credential_id": "o1", "issuer": "0xabc", "issuer_name": "Acme", "credential_type": "Certificate", "status": "active"}},
		})
	})
	r.GET("/user/:id/recent-activity", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"activities": []gin.H{}})
	})
	r.GET("/qr/:id", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", []byte("\x89PNG\r\n\x1a\n"))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	router   *gin.Engine
	token    string
	hub      *hub.Hub
	clock    *schedule.Manual
	tokenCfg auth.TokenConfig
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	remote := newRemote(t)
	client, err := backend.New(remote.URL)
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	clock := schedule.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	h := hub.New()
	ctrl := app.New(client, clock, h, app.Options{})
	t.Cleanup(ctrl.Close)

	tokenCfg := auth.TokenConfig{Secret: "secret", Expiry: time.Hour, Issuer: "test"}
	tok, err := auth.IssueViewToken("viewer-1", tokenCfg)
	if err != nil {
		t.Fatalf("IssueViewToken: %v", err)
	}

	return &testEnv{
		router:   NewRouter(Deps{App: ctrl, Hub: h, TokenConfig: tokenCfg}),
		token:    tok,
		hub:      h,
		clock:    clock,
		tokenCfg: tokenCfg,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	w, _ := e.do(t, http.MethodPost, "/api/session/login", map[string]string{"username": "alice", "password": "password1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHealthNeedsNoToken(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAPIRequiresViewToken(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestLoginLoadsDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	w, resp := env.do(t, http.MethodGet, "/api/credentials?filter=owned&q=CERT", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	creds, _ := resp["credentials"].([]any)
	if len(creds) != 1 || resp["issued_count"].(float64) != 1 || resp["owned_count"].(float64) != 1 {
		t.Fatalf("unexpected credentials response %v", resp)
	}

	_, resp = env.do(t, http.MethodGet, "/api/activity", nil)
	entries, _ := resp["activities"].([]any)
	if len(entries) != 3 {
		t.Fatalf("expected fallback feed of 3 entries, got %v", resp)
	}
}

func TestLoginRejectedIs401(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodPost, "/api/session/login", map[string]string{"username": "alice", "password": "nope"})
	if w.Code != http.StatusUnauthorized || resp["error"] != "Invalid username or password" {
		t.Fatalf("expected 401 with reason, got %d %v", w.Code, resp)
	}
}

func TestLoginValidationIs400(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodPost, "/api/session/login", map[string]string{"username": "", "password": ""})
	if w.Code != http.StatusBadRequest || resp["code"] != "required" {
		t.Fatalf("expected 400 required, got %d %v", w.Code, resp)
	}
}

func TestUploadAndIssue(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "degree.pdf")
	_, _ = part.Write([]byte("%PDF-1.4"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+env.token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "QmDoc") {
		t.Fatalf("upload: expected 200 with reference, got %d: %s", w.Code, w.Body.String())
	}

	w, resp := env.do(t, http.MethodPost, "/api/credentials/issue", map[string]string{"recipient": "bob@example.com", "credential_type": "Diploma"})
	if w.Code != http.StatusOK || resp["credential_id"] != testCredentialID {
		t.Fatalf("issue: expected 200, got %d %v", w.Code, resp)
	}

	w, resp = env.do(t, http.MethodPost, "/api/credentials/issue", map[string]string{"recipient": "bob@example.com", "credential_type": "Diploma"})
	if w.Code != http.StatusBadRequest || resp["code"] != "missing_reference" {
		t.Fatalf("second issue: expected missing reference, got %d %v", w.Code, resp)
	}
}

func TestVerifyNotFoundIs404(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodPost, "/api/verify", map[string]string{"credential_id": strings.Repeat("b", 64)})
	if w.Code != http.StatusNotFound || resp["error"] != "Credential not found" {
		t.Fatalf("expected 404, got %d %v", w.Code, resp)
	}

	_, resp = env.do(t, http.MethodGet, "/api/notifications", nil)
	notes, _ := resp["notifications"].([]any)
	if len(notes) != 1 {
		t.Fatalf("expected exactly one notification, got %v", resp)
	}
}

func TestVerifyByIDMatchesManualEntry(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodPost, "/api/credentials/"+testCredentialID+"/verify", nil)
	if w.Code != http.StatusOK || resp["issuer_display"] != "Acme (0xabc)" {
		t.Fatalf("expected verification, got %d %v", w.Code, resp)
	}
}

func TestIndexDeepLinkRunsVerification(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodGet, "/?verify="+testCredentialID, nil)
	if resp["verification"] == nil {
		t.Fatalf("expected verification in response, got %v", resp)
	}

	_, resp = env.do(t, http.MethodGet, "/?verify=bogus", nil)
	if _, ok := resp["verification"]; ok {
		t.Fatalf("malformed deep link must be ignored, got %v", resp)
	}
}

func TestQRFallsBackToBackendImage(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	w, _ := env.do(t, http.MethodGet, "/api/credentials/i1/qr", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("expected png, got %d %q", w.Code, w.Header().Get("Content-Type"))
	}
}

func TestNotificationsDismissIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/verify", map[string]string{"credential_id": "short"})

	_, resp := env.do(t, http.MethodGet, "/api/notifications", nil)
	notes := resp["notifications"].([]any)
	id := notes[0].(map[string]any)["id"].(string)

	for i := 0; i < 2; i++ {
		w, _ := env.do(t, http.MethodDelete, "/api/notifications/"+id, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("dismiss %d: expected 200, got %d", i, w.Code)
		}
	}
	_, resp = env.do(t, http.MethodGet, "/api/notifications", nil)
	if len(resp["notifications"].([]any)) != 0 {
		t.Fatalf("expected empty queue, got %v", resp)
	}
}

func TestLogoutClearsStatus(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.do(t, http.MethodPost, "/api/session/logout", nil)

	_, resp := env.do(t, http.MethodGet, "/api/status", nil)
	if resp["authenticated"] != false || resp["issued_count"].(float64) != 0 || resp["owned_count"].(float64) != 0 {
		t.Fatalf("expected cleared status, got %v", resp)
	}
}

func TestPasswordStrength(t *testing.T) {
	env := newTestEnv(t)
	_, resp := env.do(t, http.MethodPost, "/api/password-strength", map[string]string{"password": "abcdefgh"})
	if resp["label"] != "Fair" || resp["score"].(float64) != 2 {
		t.Fatalf("unexpected strength %v", resp)
	}
}

func TestRegisterSchedulesAutoLogin(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodPost, "/api/session/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "password1", "confirm_password": "password1",
	})
	if w.Code != http.StatusCreated || resp["auto_login_pending"] != true {
		t.Fatalf("expected 201 with pending login, got %d %v", w.Code, resp)
	}

	env.clock.Advance(3 * time.Second)
	_, resp = env.do(t, http.MethodGet, "/api/session", nil)
	if resp["logged_in"] != true {
		t.Fatalf("expected auto-login, got %v", resp)
	}
}

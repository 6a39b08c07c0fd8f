package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maze-arcade/internal/repository/sqlite"
	"maze-arcade/internal/service"
)

// testMailer captures verification links so tests can follow them.
type testMailer struct {
	link string
}

func (m *testMailer) SendVerification(recipient, name, link string) error {
	m.link = link
	return nil
}

type testServer struct {
	router *gin.Engine
	mailer *testMailer
	cookie string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewAccountRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	logger := logrus.New()
	logger.SetOutput(new(bytes.Buffer))

	hasher := service.NewPasswordHasher()
	accounts := service.NewAccountService(repo, hasher)
	sessions, err := service.NewSessionManager(repo, hasher)
	require.NoError(t, err)
	ledger := service.NewScoreLedger(repo, sessions)

	mailer := &testMailer{}
	verification := service.NewVerificationService(repo, mailer, "http://maze.test")

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(accounts, sessions, ledger, verification,
		NewCookieCodec("test-secret", time.Hour), logger)
	handler.RegisterRoutes(router)

	return &testServer{router: router, mailer: mailer}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if ts.cookie != "" {
		req.Header.Set("Cookie", sessionCookie+"="+ts.cookie)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			ts.cookie = c.Value
		}
	}
	return w
}

func (ts *testServer) registerAndLogin(t *testing.T) {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/register", gin.H{
		"name":             "Ann",
		"email":            "ann@x.com",
		"password":         "Abc123!@",
		"confirm_password": "Abc123!@",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodPost, "/api/login", gin.H{
		"email":    "ann@x.com",
		"password": "Abc123!@",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func (ts *testServer) verifyEmail(t *testing.T) {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/verification", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, ts.mailer.link)

	linkPath := ts.mailer.link[len("http://maze.test"):]
	w = ts.do(t, http.MethodGet, linkPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRegisterValidationFailure(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/register", gin.H{
		"name":             "Ann",
		"email":            "ann@x.com",
		"password":         "weak",
		"confirm_password": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", decodeBody(t, w)["code"])
}

func TestRegisterDuplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t)

	w := ts.do(t, http.MethodPost, "/api/register", gin.H{
		"name":             "Ann Again",
		"email":            "ann@x.com",
		"password":         "Abc123!@",
		"confirm_password": "Abc123!@",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_identity", decodeBody(t, w)["code"])
}

func TestLoginFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t)

	w := ts.do(t, http.MethodPost, "/api/login", gin.H{
		"email":    "ann@x.com",
		"password": "Wrong123!@",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "auth_failure", decodeBody(t, w)["code"])
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/maze"},
		{http.MethodPost, "/api/submit?eTime=4200"},
		{http.MethodPost, "/api/logout"},
	} {
		w := ts.do(t, route.method, route.path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, route.path)
	}
}

func TestMazeGateBlocksUnverified(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t)

	w := ts.do(t, http.MethodGet, "/api/maze", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "blocked_unverified", decodeBody(t, w)["code"])
}

func TestFullPlayFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t)
	ts.verifyEmail(t)

	w := ts.do(t, http.MethodGet, "/api/maze", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/submit?eTime=4200", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 1, body["score"])
	assert.EqualValues(t, 4200, body["best_time_ms"])

	w = ts.do(t, http.MethodPost, "/api/submit?eTime=9000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.EqualValues(t, 2, body["score"])
	assert.EqualValues(t, 4200, body["best_time_ms"])

	w = ts.do(t, http.MethodGet, "/api/leaderboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []LeaderboardEntryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Ann", entries[0].Name)
	assert.EqualValues(t, 2, entries[0].Score)
}

func TestSubmitRejectsBadElapsed(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t)
	ts.verifyEmail(t)

	for _, eTime := range []string{"", "-1", "abc", "1.5"} {
		w := ts.do(t, http.MethodPost, "/api/submit?eTime="+eTime, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, fmt.Sprintf("eTime=%q", eTime))
	}
}

func TestVerifyEmailLinkIsSingleUse(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t)

	w := ts.do(t, http.MethodPost, "/api/verification", nil)
	require.Equal(t, http.StatusOK, w.Code)

	linkPath := ts.mailer.link[len("http://maze.test"):]
	w = ts.do(t, http.MethodGet, linkPath, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, linkPath, nil)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "invalid_or_expired", decodeBody(t, w)["code"])
}

func TestVerifyEmailLinkWithPlusAddress(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/register", gin.H{
		"name":             "Ann",
		"email":            "ann+tag@x.com",
		"password":         "Abc123!@",
		"confirm_password": "Abc123!@",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodPost, "/api/login", gin.H{
		"email":    "ann+tag@x.com",
		"password": "Abc123!@",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/verification", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, ts.mailer.link)

	// Follow the emailed link exactly as a browser would.
	linkPath := ts.mailer.link[len("http://maze.test"):]
	w = ts.do(t, http.MethodGet, linkPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["verified"])

	w = ts.do(t, http.MethodGet, "/api/maze", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutInvalidatesCookie(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t)

	w := ts.do(t, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeleteAccountFlow(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t)

	w := ts.do(t, http.MethodPost, "/api/account/delete", gin.H{"confirm": "no"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["aborted"])

	// Session survived the aborted deletion.
	w = ts.do(t, http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/account/delete", gin.H{"confirm": "yes"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["deleted"])

	w = ts.do(t, http.MethodPost, "/api/login", gin.H{
		"email":    "ann@x.com",
		"password": "Abc123!@",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateProfileConflict(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/register", gin.H{
		"name": "Bob", "email": "bob@x.com",
		"password": "Xyz789!a", "confirm_password": "Xyz789!a",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	ts.registerAndLogin(t)

	w = ts.do(t, http.MethodPost, "/api/profile", gin.H{"name": "Ann", "email": "bob@x.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodPost, "/api/profile", gin.H{"name": "Annie", "email": "annie@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "annie@x.com", decodeBody(t, w)["email"])
}

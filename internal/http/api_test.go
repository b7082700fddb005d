package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"resume-matcher/internal/auth"
	"resume-matcher/internal/domain"
	"resume-matcher/internal/extract"
	"resume-matcher/internal/repository/sqlite"
	"resume-matcher/internal/service"
	"resume-matcher/internal/similarity"
)

// countingMatcher records whether the scoring pipeline was reached.
type countingMatcher struct {
	service.MatchService
	calls int
}

func (m *countingMatcher) Match(ctx context.Context, resume []byte, jd string) (*domain.MatchResult, error) {
	m.calls++
	return m.MatchService.Match(ctx, resume, jd)
}

func (m *countingMatcher) MatchStored(ctx context.Context, key, jd string) (*domain.MatchResult, error) {
	m.calls++
	return m.MatchService.MatchStored(ctx, key, jd)
}

type testServer struct {
	router  *gin.Engine
	issuer  *auth.Issuer
	matcher *countingMatcher
}

func newTestServer(t *testing.T, maxUpload int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := sqlite.NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))

	logger, _ := test.NewNullLogger()
	issuer := auth.NewIssuer("test-secret")
	matcher := &countingMatcher{
		MatchService: service.NewMatchService(extract.New(), similarity.Vectorizer{}, nil),
	}

	router := gin.New()
	NewHandler(
		service.NewUserService(repo, bcrypt.MinCost, logger),
		matcher,
		issuer,
		Options{TokenTTL: time.Hour, MaxUploadBytes: maxUpload},
		logger,
	).RegisterRoutes(router)

	return &testServer{router: router, issuer: issuer, matcher: matcher}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/users/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *testServer) token(t *testing.T, email, password string) string {
	t.Helper()
	require.Equal(t, http.StatusOK, s.register(t, email, password).Code)
	rec := s.login(t, email, password)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func multipartRequest(t *testing.T, fields map[string]string, fileName string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("resume", fileName)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/check-resume", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["detail"]
}

func TestRegisterUser(t *testing.T) {
	s := newTestServer(t, 1<<20)

	rec := s.register(t, "ada@example.com", "pw")
	require.Equal(t, http.StatusOK, rec.Code)

	var user UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Positive(t, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsVerified)
	assert.NotContains(t, rec.Body.String(), "password")

	dup := s.register(t, "ada@example.com", "other")
	assert.Equal(t, http.StatusBadRequest, dup.Code)
	assert.Equal(t, "Email already registered", detail(t, dup))

	bad := s.register(t, "not-an-email", "pw")
	assert.Equal(t, http.StatusUnprocessableEntity, bad.Code)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t, 1<<20)
	require.Equal(t, http.StatusOK, s.register(t, "ada@example.com", "right").Code)

	wrong := s.login(t, "ada@example.com", "wrong")
	unknown := s.login(t, "ghost@example.com", "right")

	for _, rec := range []*httptest.ResponseRecorder{wrong, unknown} {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	}
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestMe(t *testing.T) {
	s := newTestServer(t, 1<<20)
	tok := s.token(t, "ada@example.com", "pw")

	req := httptest.NewRequest(http.MethodGet, "/users/me/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var user UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMe_Unauthorized(t *testing.T) {
	s := newTestServer(t, 1<<20)

	orphan, err := s.issuer.Issue("ghost@example.com", time.Hour)
	require.NoError(t, err)
	forged, err := auth.NewIssuer("other-secret").Issue("ada@example.com", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage", "Bearer not-a-token"},
		{"bad signature", "Bearer " + forged},
		{"unknown user", "Bearer " + orphan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := s.do(req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "Could not validate credentials", detail(t, rec))
		})
	}
}

func TestCheckResume(t *testing.T) {
	s := newTestServer(t, 1<<20)
	tok := s.token(t, "ada@example.com", "pw")

	req := multipartRequest(t,
		map[string]string{"job_description": "Looking for a Python developer"},
		"resume.txt", []byte("Experienced Python developer with FastAPI"))
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Greater(t, resp.Score, 0)
	assert.Less(t, resp.Score, 100)
	assert.Contains(t, resp.Message, "match with the job description")
}

func TestCheckResume_UnauthenticatedNeverProcesses(t *testing.T) {
	s := newTestServer(t, 1<<20)

	req := multipartRequest(t, map[string]string{"job_description": "Go"}, "resume.txt", []byte("Go"))
	rec := s.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, s.matcher.calls)
}

func TestCheckResume_ProcessingFailure(t *testing.T) {
	s := newTestServer(t, 1<<20)
	tok := s.token(t, "ada@example.com", "pw")

	req := multipartRequest(t,
		map[string]string{"job_description": "Go developer"},
		"resume.pdf", []byte("%PDF-1.4\nbroken"))
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := s.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Error processing resume", detail(t, rec))
}

func TestCheckResume_Validation(t *testing.T) {
	s := newTestServer(t, 1<<20)
	tok := s.token(t, "ada@example.com", "pw")

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"no file", multipartRequest(t, map[string]string{"job_description": "Go"}, "", nil)},
		{"no job description", multipartRequest(t, nil, "resume.txt", []byte("Go"))},
		{"resume key without storage", multipartRequest(t, map[string]string{"job_description": "Go", "resume_key": "cv.pdf"}, "", nil)},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/check-resume", strings.NewReader("{}"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Header.Set("Authorization", "Bearer "+tok)
			rec := s.do(tt.req)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestCheckResume_TooLarge(t *testing.T) {
	s := newTestServer(t, 512)
	tok := s.token(t, "ada@example.com", "pw")

	req := multipartRequest(t,
		map[string]string{"job_description": "Go"},
		"resume.txt", bytes.Repeat([]byte("go "), 1024))
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := s.do(req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 0, s.matcher.calls)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, 1<<20)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

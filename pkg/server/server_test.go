package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"mycloud/pkg/models"
	"mycloud/pkg/session"
	"mycloud/pkg/store"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const testSecret = "server-test-secret"

// MockStore implements store.Storage for testing
type MockStore struct {
	mock.Mock
}

var _ store.Storage = (*MockStore)(nil)

func (m *MockStore) List(ctx context.Context, user *models.User, namespace models.Namespace) (*models.DirectoryTree, error) {
	args := m.Called(ctx, user, namespace)
	tree, _ := args.Get(0).(*models.DirectoryTree)
	return tree, args.Error(1)
}

func (m *MockStore) Upload(ctx context.Context, user *models.User, relativeDir string, payloads []models.Payload) error {
	args := m.Called(ctx, user, relativeDir, payloads)
	return args.Error(0)
}

func (m *MockStore) Download(ctx context.Context, user *models.User, relativePath string) (*store.DownloadResult, error) {
	args := m.Called(ctx, user, relativePath)
	result, _ := args.Get(0).(*store.DownloadResult)
	return result, args.Error(1)
}

func (m *MockStore) QuotaStatus(ctx context.Context, user *models.User) (*models.QuotaStatus, error) {
	args := m.Called(ctx, user)
	status, _ := args.Get(0).(*models.QuotaStatus)
	return status, args.Error(1)
}

// isUser matches a *models.User argument by ID
func isUser(id string) any {
	return mock.MatchedBy(func(user *models.User) bool {
		return user != nil && user.ID == id
	})
}

func newTestSessions(t *testing.T) *session.Manager {
	sessions, err := session.NewManager(session.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sessions
}

// sessionCookie issues a session cookie for userID
func sessionCookie(sessions *session.Manager, userID string) *http.Cookie {
	rec := httptest.NewRecorder()
	if _, err := sessions.Issue(rec, userID); err != nil {
		panic(err)
	}
	return rec.Result().Cookies()[0]
}

// withUser returns an echo context carrying an authenticated user
func withUser(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, userID string) echo.Context {
	c := e.NewContext(req, rec)
	c.Set(userContextKey, &models.User{ID: userID})
	return c
}

func decodeJSON(body io.Reader) map[string]any {
	var response map[string]any
	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil
	}
	return response
}

// ServerTestSuite tests routing, sessions and the error mapping
type ServerTestSuite struct {
	suite.Suite
	server    *Server
	mockStore *MockStore
	sessions  *session.Manager
	tempDir   string
}

// SetupSuite runs once before all tests
func (s *ServerTestSuite) SetupSuite() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "server-test-*")
	s.Require().NoError(err)
}

// TearDownSuite runs once after all tests
func (s *ServerTestSuite) TearDownSuite() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// SetupTest runs before each test
func (s *ServerTestSuite) SetupTest() {
	s.mockStore = new(MockStore)
	s.sessions = newTestSessions(s.T())
	s.server = NewServer(Config{WebDir: s.tempDir, Version: "test-v1.0.0"}, s.mockStore, s.sessions)
}

// TearDownTest verifies mock expectations
func (s *ServerTestSuite) TearDownTest() {
	s.mockStore.AssertExpectations(s.T())
}

func (s *ServerTestSuite) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

// TestNewServer tests the constructor
func (s *ServerTestSuite) TestNewServer() {
	s.NotNil(s.server.echo)
	s.Equal(s.tempDir, s.server.config.WebDir)
	s.Equal("test-v1.0.0", s.server.config.Version)
	s.Equal(defaultShutdownTimeout, s.server.config.ShutdownTimeout)
	s.Equal(s.mockStore, s.server.storage)
	s.True(s.server.echo.HideBanner)
}

// TestRoutes tests that every API route is registered
func (s *ServerTestSuite) TestRoutes() {
	registered := make(map[string]bool)
	for _, route := range s.server.echo.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, route := range []string{
		"GET /",
		"GET /swagger.yml",
		"POST /api/login",
		"POST /api/logout",
		"GET /api/files",
		"GET /api/gallery",
		"POST /api/files/upload",
		"GET /api/files/download",
		"GET /api/quota",
	} {
		s.True(registered[route], route)
	}
	s.False(registered["GET /metrics"])
}

// TestMetricsRoute tests that /metrics is mounted when a handler is given
func (s *ServerTestSuite) TestMetricsRoute() {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("mycloud_uploads_total 0\n"))
	})
	srv := NewServer(Config{MetricsHandler: handler}, s.mockStore, s.sessions)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "mycloud_uploads_total")
}

// TestLogin tests that login issues a session cookie
func (s *ServerTestSuite) TestLogin() {
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"username":"  alice "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := s.serve(req)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(true, decodeJSON(rec.Body)["success"])

	cookies := rec.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal(s.sessions.CookieName(), cookies[0].Name)
	s.True(cookies[0].HttpOnly)

	claims, err := s.sessions.Parse(cookies[0].Value)
	s.Require().NoError(err)
	s.Equal("alice", claims.Subject)
}

// TestLoginRejectsBadUsernames tests the login validation
func (s *ServerTestSuite) TestLoginRejectsBadUsernames() {
	testCases := map[string]struct {
		body    string
		message string
	}{
		"missing":   {`{}`, "missing username"},
		"blank":     {`{"username":"   "}`, "missing username"},
		"traversal": {`{"username":"../root"}`, "invalid username"},
		"slash":     {`{"username":"a/b"}`, "invalid username"},
		"malformed": {`{"username":`, "invalid request body"},
	}

	for name, tc := range testCases {
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tc.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := s.serve(req)

		s.Equal(http.StatusBadRequest, rec.Code, name)
		s.Equal(tc.message, decodeJSON(rec.Body)["error"], name)
		s.Empty(rec.Result().Cookies(), name)
	}
}

// TestLogout tests that logout expires the cookie
func (s *ServerTestSuite) TestLogout() {
	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.AddCookie(sessionCookie(s.sessions, "alice"))
	rec := s.serve(req)

	s.Equal(http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal(-1, cookies[0].MaxAge)
}

// TestSessionMiddlewareResolvesUser tests that a valid cookie reaches the store
func (s *ServerTestSuite) TestSessionMiddlewareResolvesUser() {
	tree := models.NewDirectoryTree()
	tree.Files = append(tree.Files, models.FileNode{Name: "a.txt", Size: 3, LastModified: 1700000000})
	s.mockStore.On("List", mock.Anything, isUser("alice"), models.NamespaceFiles).Return(tree, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.AddCookie(sessionCookie(s.sessions, "alice"))
	rec := s.serve(req)

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"subdirectories":{},"files":[{"name":"a.txt","size":3,"lastModified":1700000000}]}`, rec.Body.String())
}

// TestForgedCookieIsAnonymous tests that a cookie signed with another secret is ignored
func (s *ServerTestSuite) TestForgedCookieIsAnonymous() {
	forger, err := session.NewManager(session.Config{Secret: "someone-else"})
	s.Require().NoError(err)

	s.mockStore.On("QuotaStatus", mock.Anything, (*models.User)(nil)).
		Return(nil, store.UnauthenticatedError{}).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/quota", nil)
	req.AddCookie(sessionCookie(forger, "root"))
	rec := s.serve(req)

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.Equal("unauthenticated", decodeJSON(rec.Body)["error"])
}

// TestListGallery tests the gallery listing
func (s *ServerTestSuite) TestListGallery() {
	s.mockStore.On("List", mock.Anything, isUser("alice"), models.NamespaceGallery).
		Return(models.NewDirectoryTree(), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
	rec := httptest.NewRecorder()
	c := withUser(s.server.echo, req, rec, "alice")

	s.NoError(s.server.listGallery(c))
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"subdirectories":{},"files":[]}`, rec.Body.String())
}

// TestQuotaStatus tests the quota report
func (s *ServerTestSuite) TestQuotaStatus() {
	s.mockStore.On("QuotaStatus", mock.Anything, isUser("alice")).
		Return(&models.QuotaStatus{Role: models.RoleUser, Used: 5 << 20, Max: 20 << 30}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/quota", nil)
	rec := httptest.NewRecorder()
	c := withUser(s.server.echo, req, rec, "alice")

	s.NoError(s.server.quotaStatus(c))
	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"role":"user","used":5242880,"max":21474836480}`, rec.Body.String())
}

// TestErrorMapping tests the translation of storage errors into responses
func (s *ServerTestSuite) TestErrorMapping() {
	testCases := map[string]struct {
		err     error
		status  int
		message string
	}{
		"unauthenticated": {store.UnauthenticatedError{}, http.StatusUnauthorized, "unauthenticated"},
		"path escape":     {store.PathEscapeError{Root: "/r", Relative: ".."}, http.StatusBadRequest, "invalid path"},
		"quota":           {store.QuotaExceededError{Used: 1, Requested: 2, Max: 2}, http.StatusBadRequest, "quota exceeded"},
		"invalid name":    {store.InvalidNameError{Name: ".."}, http.StatusBadRequest, "invalid file name"},
		"not found":       {store.NotFoundError{Path: "x"}, http.StatusNotFound, "not found"},
		"wrapped":         {errors.Join(errors.New("ctx"), store.NotFoundError{}), http.StatusNotFound, "not found"},
		"write":           {store.WriteError{Path: "a", Err: os.ErrPermission}, http.StatusInternalServerError, "failed"},
		"unexpected":      {errors.New("disk on fire"), http.StatusInternalServerError, "failed"},
	}

	for name, tc := range testCases {
		req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
		rec := httptest.NewRecorder()
		c := s.server.echo.NewContext(req, rec)

		s.NoError(storageError(c, tc.err, "failed"), name)
		s.Equal(tc.status, rec.Code, name)
		s.Equal(tc.message, decodeJSON(rec.Body)["error"], name)
	}
}

// TestRecoverMiddleware tests that a panicking store yields a 500
func (s *ServerTestSuite) TestRecoverMiddleware() {
	s.mockStore.On("List", mock.Anything, mock.Anything, models.NamespaceFiles).
		Run(func(mock.Arguments) { panic("boom") }).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.AddCookie(sessionCookie(s.sessions, "alice"))
	rec := s.serve(req)

	s.Equal(http.StatusInternalServerError, rec.Code)
}

// TestRunServerSuite runs the server test suite
func TestRunServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DocsTestSuite tests the API documentation routes
type DocsTestSuite struct {
	suite.Suite
	webDir string
	server *Server
}

// SetupTest gives every test an empty web directory
func (s *DocsTestSuite) SetupTest() {
	s.webDir = s.T().TempDir()
	s.server = NewServer(Config{WebDir: s.webDir, Version: "1.2.3"}, new(MockStore), newTestSessions(s.T()))
}

func (s *DocsTestSuite) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// TestUIRendersProjectMetadata tests the page title, spec location and build version
func (s *DocsTestSuite) TestUIRendersProjectMetadata() {
	page := "{{.Title}}|{{.SwaggerPath}}|{{.Version}}"
	s.Require().NoError(os.WriteFile(filepath.Join(s.webDir, "swagger-ui.html"), []byte(page), 0o644))

	rec := s.get("/")
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("text/html; charset=UTF-8", rec.Header().Get("Content-Type"))
	s.Equal("mycloud API Documentation|/swagger.yml|1.2.3", rec.Body.String())
}

// TestUIWithoutTemplate tests a web directory missing the UI page
func (s *DocsTestSuite) TestUIWithoutTemplate() {
	rec := s.get("/")
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "Failed to load template")
}

// TestSpecServedWithoutSession tests that the OpenAPI document needs no login
func (s *DocsTestSuite) TestSpecServedWithoutSession() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.webDir, "swagger.yml"), []byte("openapi: 3.0.3\npaths:\n  /api/files: {}\n"), 0o644))

	rec := s.get("/swagger.yml")
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "/api/files")
}

// TestSpecMissing tests a web directory missing the OpenAPI document
func (s *DocsTestSuite) TestSpecMissing() {
	s.Equal(http.StatusNotFound, s.get("/swagger.yml").Code)
}

// TestShippedWebDir tests that the bundled documentation renders and lists every API route
func (s *DocsTestSuite) TestShippedWebDir() {
	webDir := filepath.Join("..", "..", "web")
	if _, err := os.Stat(webDir); err != nil {
		s.T().Skip("web directory not available")
	}
	s.server = NewServer(Config{WebDir: webDir}, new(MockStore), newTestSessions(s.T()))

	s.Equal(http.StatusOK, s.get("/").Code)

	rec := s.get("/swagger.yml")
	s.Require().Equal(http.StatusOK, rec.Code)
	for _, route := range []string{"/api/login", "/api/logout", "/api/files", "/api/gallery", "/api/files/upload", "/api/files/download", "/api/quota"} {
		s.Contains(rec.Body.String(), route+":", route)
	}
}

// TestDocsSuite runs the documentation test suite
func TestDocsSuite(t *testing.T) {
	suite.Run(t, new(DocsTestSuite))
}

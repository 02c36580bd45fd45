package controllers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yigit/roster/internal/bootstrap"
	"github.com/yigit/roster/internal/config"
)

type testApp struct {
	t         *testing.T
	server    *httptest.Server
	client    *http.Client
	deps      *bootstrap.Dependencies
	uploadDir string
}

type response struct {
	status   int
	location string
	body     string
}

func newTestApp(t *testing.T, mutate ...func(cfg *config.Config)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg, err := config.LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = filepath.Join(dir, "roster.db")
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Storage.UniqueFilenames = false
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Security.CSRFEnabled = false
	cfg.Security.AuthRateLimit = 0
	cfg.Seed.Username = ""
	for _, m := range mutate {
		m(cfg)
	}

	lgr := zerolog.Nop()
	database, err := bootstrap.SetupDatabase(cfg, lgr)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	deps, err := bootstrap.BuildDependencies(cfg, database, lgr)
	require.NoError(t, err)
	router, err := bootstrap.SetupRouter(cfg, deps, lgr)
	require.NoError(t, err)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{t: t, server: server, client: client, deps: deps, uploadDir: cfg.Storage.UploadDir}
}

func (a *testApp) do(req *http.Request) response {
	a.t.Helper()
	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return response{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (a *testApp) get(path string) response {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.server.URL+path, nil)
	require.NoError(a.t, err)
	return a.do(req)
}

func (a *testApp) postForm(path string, form url.Values) response {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

// postMultipart submits fields plus an optional photo; an empty filename
// sends no file part at all
func (a *testApp) postMultipart(path string, fields map[string]string, filename string, content []byte) response {
	a.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("photo", filename)
		require.NoError(a.t, err)
		_, err = part.Write(content)
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())

	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.do(req)
}

// follow loads the redirect target so its flashes get rendered
func (a *testApp) follow(r response) response {
	a.t.Helper()
	require.NotEmpty(a.t, r.location, "expected a redirect, got %d", r.status)
	return a.get(r.location)
}

func (a *testApp) register(username, password string) response {
	return a.postForm("/register", url.Values{
		"username":         {username},
		"password":         {password},
		"confirm_password": {password},
	})
}

func (a *testApp) login(username, password string) response {
	return a.postForm("/login", url.Values{"username": {username}, "password": {password}})
}

func (a *testApp) registerAndLogin(username, password string) {
	a.t.Helper()
	require.Equal(a.t, http.StatusSeeOther, a.register(username, password).status)
	resp := a.login(username, password)
	require.Equal(a.t, http.StatusSeeOther, resp.status)
	require.Equal(a.t, "/", resp.location)
}

func (a *testApp) addStudent(name, age, filename string, content []byte) response {
	return a.postMultipart("/add", map[string]string{"name": name, "age": age}, filename, content)
}

func (a *testApp) count(table string) int {
	a.t.Helper()
	var n int
	err := a.deps.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n)
	require.NoError(a.t, err)
	return n
}

func (a *testApp) studentIDByName(name string) int64 {
	a.t.Helper()
	students, err := a.deps.StudentService.List(context.Background())
	require.NoError(a.t, err)
	for _, s := range students {
		if s.Name == name {
			return s.ID
		}
	}
	a.t.Fatalf("student %q not found", name)
	return 0
}

func (a *testApp) uploaded(name string) bool {
	_, err := os.Stat(filepath.Join(a.uploadDir, name))
	return err == nil
}

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func csrfToken(t *testing.T, body string) string {
	t.Helper()
	m := csrfField.FindStringSubmatch(body)
	require.Len(t, m, 2, "page has no csrf token")
	return m[1]
}

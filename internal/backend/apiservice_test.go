package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/jo-hoe/imagehost/internal/auth"
	"github.com/jo-hoe/imagehost/internal/backend/database"
	"github.com/jo-hoe/imagehost/internal/common"
	"github.com/jo-hoe/imagehost/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e      *echo.Echo
	images *core.ImageService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	config := &core.ServiceConfig{
		Database:  core.Database{Type: "sqlite", ConnectionString: ":memory:"},
		BlobStore: core.BlobStore{Root: t.TempDir()},
		Auth:      core.Auth{Secret: "test-secret"},
	}
	config.ApplyDefaults()
	require.NoError(t, config.Validate())

	imageService, err := core.NewImageService(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = imageService.Close() })

	authService, err := auth.NewService(imageService.Database(), auth.NewMemorySessionStore(), config.Auth)
	require.NoError(t, err)

	e := echo.New()
	e.Validator = common.NewGenericEchoValidator()
	NewAPIService(config, imageService, authService).SetRoutes(e)
	return &testServer{e: e, images: imageService}
}

func (s *testServer) do(t *testing.T, req *http.Request, token string) *httptest.ResponseRecorder {
	t.Helper()
	if token != "" {
		req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func uploadRequest(t *testing.T, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func tokenCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == tokenCookieName {
			return cookie
		}
	}
	t.Fatalf("no %s cookie in response", tokenCookieName)
	return nil
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func register(t *testing.T, s *testServer, username, email string) string {
	t.Helper()
	rec := s.do(t, jsonRequest(http.MethodPost, "/api/v1/register", map[string]string{
		"username": username, "email": email, "password": "s3cret",
	}), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return tokenCookie(t, rec).Value
}

func TestLiveness(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello World!", rec.Body.String())
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, jsonRequest(http.MethodPost, "/api/v1/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "s3cret",
	}), "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User registered successfully and authenticated.", decodeMessage(t, rec)["message"])
	cookie := tokenCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.False(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, 86400, cookie.MaxAge)

	tests := []struct {
		name     string
		body     map[string]string
		wantCode int
		wantMsg  string
	}{
		{"duplicate email", map[string]string{"username": "bob", "email": "alice@example.com", "password": "pw"}, http.StatusBadRequest, "Email already exists."},
		{"duplicate username", map[string]string{"username": "alice", "email": "bob@example.com", "password": "pw"}, http.StatusBadRequest, "Username already exists."},
		{"missing password", map[string]string{"username": "carol", "email": "carol@example.com"}, http.StatusBadRequest, "password is required"},
		{"password over 72 bytes", map[string]string{"username": "dave", "email": "dave@example.com", "password": strings.Repeat("é", 40)}, http.StatusBadRequest, "Password must be at most 72 bytes."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, jsonRequest(http.MethodPost, "/api/v1/register", tt.body), "")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantMsg, decodeMessage(t, rec)["message"])
		})
	}
}

func TestLoginAndLogout(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "alice", "alice@example.com")

	rec := s.do(t, jsonRequest(http.MethodPost, "/api/v1/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	}), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "Invalid email or password"}, decodeMessage(t, rec))

	rec = s.do(t, jsonRequest(http.MethodPost, "/api/v1/login", map[string]string{
		"email": "alice@example.com", "password": "s3cret",
	}), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "message": "Logged In Successfully"}, decodeMessage(t, rec))
	cookie := tokenCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSite(0), cookie.SameSite)
	assert.False(t, cookie.Expires.IsZero())

	rec = s.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/logout", nil), cookie.Value)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged Out Successfully", decodeMessage(t, rec)["message"])
	assert.Empty(t, tokenCookie(t, rec).Value)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/images", nil), cookie.Value)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired token", decodeMessage(t, rec)["message"])
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/logout"},
		{http.MethodPost, "/api/v1/upload"},
		{http.MethodGet, "/api/v1/images"},
		{http.MethodGet, "/api/v1/some-id"},
		{http.MethodPut, "/api/v1/image/some-id"},
		{http.MethodGet, "/api/v1/some-id/download"},
		{http.MethodDelete, "/api/v1/some-id"},
	}
	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := s.do(t, httptest.NewRequest(route.method, route.path, nil), "")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, map[string]any{"success": false, "message": "Login to access this resource"}, decodeMessage(t, rec))

			rec = s.do(t, httptest.NewRequest(route.method, route.path, nil), "garbage")
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Invalid or expired token", decodeMessage(t, rec)["message"])
		})
	}
}

func TestUploadRejections(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "alice", "alice@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, echo.MIMEMultipartForm+"; boundary=x")
	rec := s.do(t, req, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No image uploaded", decodeMessage(t, rec)["message"])

	rec = s.do(t, uploadRequest(t, "anim.gif", "image/gif", []byte("GIF89a")), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only JPEG and PNG images are allowed", decodeMessage(t, rec)["message"])
}

func TestImageLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "alice", "alice@example.com")

	rec := s.do(t, uploadRequest(t, "cat.png", "image/png", pngBytes(t)), token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var uploaded database.ImageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	assert.Equal(t, database.StatusUploaded, uploaded.Status)
	assert.Equal(t, database.FormatPNG, uploaded.Format)
	assert.Equal(t, 1.0, uploaded.Brightness)
	assert.True(t, strings.HasSuffix(uploaded.Filename, "-cat.png"))

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/images", nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []database.ImageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, uploaded.ID, listed[0].ID)

	rec = s.do(t, jsonRequest(http.MethodPut, "/api/v1/image/"+uploaded.ID, map[string]any{
		"brightness": 120, "rotation": 90, "format": "jpeg",
	}), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated updateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Image updated successfully", updated.Message)
	assert.Equal(t, "updated_"+uploaded.Filename, updated.Filename)
	assert.Equal(t, "jpeg", updated.Format)
	assert.True(t, strings.HasSuffix(updated.Path, updated.Filename))

	form := url.Values{"saturation": {"0"}}
	req := httptest.NewRequest(http.MethodPut, "/api/v1/image/"+uploaded.ID, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec = s.do(t, req, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/"+uploaded.ID, nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored database.ImageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, database.StatusProcessed, stored.Status)
	assert.Equal(t, 120.0, stored.Brightness)
	assert.Equal(t, 0.0, stored.Saturation)
	assert.Equal(t, 90.0, stored.Rotation)
	assert.Equal(t, 1.0, stored.Contrast)
	assert.Equal(t, "updated_"+uploaded.Filename, stored.Filename)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/"+uploaded.ID+"/download?format=png&brightness=80&rotation=180", nil), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="processed-image.png"`, rec.Header().Get(echo.HeaderContentDisposition))
	config, format, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 2, config.Width)
	assert.Equal(t, 4, config.Height)

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/"+uploaded.ID+"/download?brightness=abc", nil), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, jsonRequest(http.MethodPut, "/api/v1/image/"+uploaded.ID, map[string]any{"format": "gif"}), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/"+uploaded.ID, nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Image deleted successfully", decodeMessage(t, rec)["message"])

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/"+uploaded.ID, nil),
		httptest.NewRequest(http.MethodDelete, "/api/v1/"+uploaded.ID, nil),
		httptest.NewRequest(http.MethodGet, "/api/v1/"+uploaded.ID+"/download", nil),
		jsonRequest(http.MethodPut, "/api/v1/image/"+uploaded.ID, map[string]any{"brightness": 50}),
	} {
		rec = s.do(t, req, token)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.Method+" "+req.URL.Path)
		assert.Equal(t, "Image not found", decodeMessage(t, rec)["message"])
	}
}

func TestUpdateRequestBinding(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "alice", "alice@example.com")

	rec := s.do(t, uploadRequest(t, "cat.png", "image/png", pngBytes(t)), token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var uploaded database.ImageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))

	formRequest := func(values url.Values) *http.Request {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/image/"+uploaded.ID, strings.NewReader(values.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		return req
	}
	malformed := httptest.NewRequest(http.MethodPut, "/api/v1/image/"+uploaded.ID, strings.NewReader(`{"brightness":`))
	malformed.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
	}{
		{"malformed json", malformed, http.StatusBadRequest},
		{"json string for number", jsonRequest(http.MethodPut, "/api/v1/image/"+uploaded.ID, map[string]any{"brightness": "bright"}), http.StatusBadRequest},
		{"non-numeric form value", formRequest(url.Values{"contrast": {"high"}}), http.StatusBadRequest},
		{"form with one field", formRequest(url.Values{"contrast": {"150"}}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.req, token)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}

	// fields missing from the form body keep their stored values
	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/"+uploaded.ID, nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored database.ImageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, 150.0, stored.Contrast)
	assert.Equal(t, 1.0, stored.Brightness)
	assert.Equal(t, 1.0, stored.Saturation)
	assert.Equal(t, 0.0, stored.Rotation)
	assert.Equal(t, database.FormatPNG, stored.Format)
}

func TestDownloadMissingBlob(t *testing.T) {
	s := newTestServer(t)
	token := register(t, s, "alice", "alice@example.com")

	rec := s.do(t, uploadRequest(t, "cat.png", "image/png", pngBytes(t)), token)
	require.Equal(t, http.StatusCreated, rec.Code)
	var uploaded database.ImageRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	require.NoError(t, s.images.BlobStore().Delete(uploaded.Filename))

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/"+uploaded.ID+"/download", nil), token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Image file not found", decodeMessage(t, rec)["message"])

	rec = s.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/"+uploaded.ID, nil), token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

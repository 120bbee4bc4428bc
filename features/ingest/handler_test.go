package ingest

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebrief/backend/features/job"
)

func newTestHandler(t *testing.T, flags Flags) (*Handler, *job.MemoryRepo, *markDoneRunner) {
	t.Helper()
	svc, repo, _, runner, _ := newFixture(flags)
	return NewHandler(svc, t.TempDir(), 10), repo, runner
}

func postWebhook(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Webhook(w, req)
	return w
}

func TestWebhookHandler_Success(t *testing.T) {
	h, _, _ := newTestHandler(t, Flags{AllowNetwork: true})

	w := postWebhook(t, h, `{"source":"crm","target":"https://example.com/call.mp3"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, DecisionProceed, resp.Data.Decision)
	require.NotNil(t, resp.Data.Job)
	assert.Equal(t, job.StatusDone, resp.Data.Job.Status)
}

func TestWebhookHandler_MissingTarget(t *testing.T) {
	h, _, _ := newTestHandler(t, Flags{AllowNetwork: true})

	w := postWebhook(t, h, `{"source":"crm"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestWebhookHandler_NonStringTarget(t *testing.T) {
	h, _, runner := newTestHandler(t, Flags{AllowNetwork: true})

	// A numeric target is not a usable reference.
	w := postWebhook(t, h, `{"source":"crm","target":42}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, runner.calls)
}

func TestWebhookHandler_MalformedJSON(t *testing.T) {
	h, _, _ := newTestHandler(t, Flags{AllowNetwork: true})

	w := postWebhook(t, h, `{"source":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_NetworkDisabled(t *testing.T) {
	h, _, _ := newTestHandler(t, Flags{AllowNetwork: false})

	w := postWebhook(t, h, `{"source":"crm","target":"https://example.com/call.mp3"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "NETWORK_DISABLED")
}

func TestWebhookHandler_DryRun(t *testing.T) {
	h, _, _ := newTestHandler(t, Flags{DryRun: true, AllowNetwork: true})

	w := postWebhook(t, h, `{"source":"crm","target":"https://example.com/call.mp3"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(DecisionShortCircuitDryRun))
}

func TestWebhookHandler_FailedJobReturnsBadGateway(t *testing.T) {
	h, _, runner := newTestHandler(t, Flags{AllowNetwork: true})
	runner.status = job.StatusError

	w := postWebhook(t, h, `{"source":"crm","target":"https://example.com/call.mp3"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp struct {
		Data Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Job)
	assert.Equal(t, job.StatusError, resp.Data.Job.Status)
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func postUpload(t *testing.T, h *Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	h.Upload(w, req)
	return w
}

func TestUploadHandler_Success(t *testing.T) {
	h, repo, _ := newTestHandler(t, Flags{AllowNetwork: true})

	w := postUpload(t, h, "standup.mp3", []byte("fake audio bytes"))
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Job)
	assert.Equal(t, job.StatusUploaded, resp.Data.Job.Status)
	assert.Equal(t, job.SourceFile, resp.Data.Job.SourceType)

	// The stored blob exists where the job points.
	_, err := os.Stat(resp.Data.Job.TargetRef)
	assert.NoError(t, err)
	assert.Equal(t, ".mp3", filepath.Ext(resp.Data.Job.TargetRef))

	count, _ := repo.Count(t.Context())
	assert.Equal(t, 1, count)
}

func TestUploadHandler_UnsupportedExtension(t *testing.T) {
	h, repo, _ := newTestHandler(t, Flags{AllowNetwork: true})

	w := postUpload(t, h, "notes.txt", []byte("not audio"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unsupported file type")

	count, _ := repo.Count(t.Context())
	assert.Equal(t, 0, count)
}

func TestUploadHandler_MissingFile(t *testing.T) {
	h, _, _ := newTestHandler(t, Flags{AllowNetwork: true})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	h.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadHandler_DuplicateContent(t *testing.T) {
	h, repo, _ := newTestHandler(t, Flags{AllowNetwork: true})

	first := postUpload(t, h, "call.mp3", []byte("same audio"))
	require.Equal(t, http.StatusCreated, first.Code)

	second := postUpload(t, h, "call-copy.mp3", []byte("same audio"))
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "CONFLICT")

	count, _ := repo.Count(t.Context())
	assert.Equal(t, 1, count)

	// Only the first blob survives.
	entries, err := os.ReadDir(h.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUploadHandler_DryRunRemovesBlob(t *testing.T) {
	h, repo, _ := newTestHandler(t, Flags{DryRun: true, AllowNetwork: true})

	w := postUpload(t, h, "call.wav", []byte("audio"))
	assert.Equal(t, http.StatusOK, w.Code)

	count, _ := repo.Count(t.Context())
	assert.Equal(t, 0, count)

	entries, err := os.ReadDir(h.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/raamul-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/raamul-storefront/pkg/errors"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func pngFile(name string) File {
	return File{Name: name, Data: append(append([]byte{}, pngHeader...), make([]byte, 64)...)}
}

func newTestService(t *testing.T, handler http.HandlerFunc, maxMB int) Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := NewService(ServiceParams{Config: config.UploadConfig{URL: srv.URL, MaxSizeMB: maxMB}})
	require.NoError(t, err)
	return svc
}

func hostHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if header.Filename == "reject.png" {
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "Quota exceeded"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"file": map[string]any{
				"url":  "https://img.example/" + header.Filename,
				"name": header.Filename,
				"size": len(data),
				"type": header.Header.Get("Content-Type"),
			},
		})
	}
}

func TestValidateFile(t *testing.T) {
	svc := newTestService(t, hostHandler(t), 1)

	require.NoError(t, svc.ValidateFile(pngFile("ok.png")))

	err := svc.ValidateFile(File{Name: "notes.png", Data: []byte("plain text pretending to be an image")})
	require.Error(t, err)
	assert.Equal(t, "Invalid file type. Use JPEG, PNG, GIF, or WebP.", pkgerrors.UserMessage(err, ""))

	big := File{Name: "big.png", Data: append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 1024*1024)...)}
	err = svc.ValidateFile(big)
	require.Error(t, err)
	assert.Equal(t, "File too large. Max size is 1MB.", pkgerrors.UserMessage(err, ""))
}

func TestUploadSingle(t *testing.T) {
	svc := newTestService(t, hostHandler(t), 10)
	uploaded, err := svc.UploadSingle(context.Background(), pngFile("dir/gold.png"))
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/gold.png", uploaded.URL)
	assert.Equal(t, "image/png", uploaded.Type)
}

func TestUploadSingleHostRejection(t *testing.T) {
	svc := newTestService(t, hostHandler(t), 10)
	_, err := svc.UploadSingle(context.Background(), pngFile("reject.png"))
	require.Error(t, err)
	assert.Equal(t, "Quota exceeded", pkgerrors.UserMessage(err, ""))
}

func TestUploadMultipleCollectsFailures(t *testing.T) {
	svc := newTestService(t, hostHandler(t), 10)
	result, err := svc.UploadMultiple(context.Background(), []File{
		pngFile("a.png"),
		{Name: "b.txt", Data: []byte("hello")},
		pngFile("reject.png"),
		pngFile("c.png"),
	})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.False(t, result.Success)
	assert.Equal(t, []string{"https://img.example/a.png", "https://img.example/c.png"}, result.URLs)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, BatchError{File: "b.txt", Error: "Invalid file type. Use JPEG, PNG, GIF, or WebP."}, result.Errors[0])
	assert.Equal(t, "Quota exceeded", result.Errors[1].Error)
	assert.Equal(t, "a.png", result.Uploaded[0].OriginalName)
}

func TestUploadMultipleAllSucceed(t *testing.T) {
	svc := newTestService(t, hostHandler(t), 10)
	result, err := svc.UploadMultiple(context.Background(), []File{pngFile("a.png")})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
}

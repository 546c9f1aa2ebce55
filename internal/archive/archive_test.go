package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
)

func TestObjectPath(t *testing.T) {
	now := time.Date(2025, 4, 9, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "raw/birdeye/2025-04-09/tokenlist_offset_0.json", ObjectPath("birdeye", "tokenlist_offset_0", now))
	assert.Equal(t, "raw/de_fi/2025-04-09/a_b.json", ObjectPath("de fi", "a/b", now))
}

func TestLocalPutAndArchiveJSON(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir)
	require.NoError(t, err)

	uri, err := ArchiveJSON(context.Background(), s, "defillama", "pools", map[string]int{"count": 3})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "file://"))

	data, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":3}`, string(data))
	assert.Contains(t, uri, filepath.Join("raw", "defillama"))
}

func TestArchiveJSONRawBytes(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	uri, err := ArchiveJSON(context.Background(), s, "birdeye", "page", []byte(`{"raw":true}`))
	require.NoError(t, err)
	data, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
	require.NoError(t, err)
	assert.Equal(t, `{"raw":true}`, string(data))
}

func TestLocalRejectsTraversal(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.PutObject(context.Background(), "../escape.json", "", bytes.NewReader(nil))
	assert.ErrorContains(t, err, "path traversal")

	_, err = s.PutObject(context.Background(), " ", "", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestArchiveJSONNilStore(t *testing.T) {
	uri, err := ArchiveJSON(context.Background(), nil, "x", "y", 1)
	require.NoError(t, err)
	assert.Empty(t, uri)
}

func TestOpen(t *testing.T) {
	s, closeFn, err := Open(context.Background(), config.ArchiveConfig{})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, s)
	assert.NoError(t, closeFn())

	s, _, err = Open(context.Background(), config.ArchiveConfig{Backend: BackendLocal, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &Local{}, s)

	_, _, err = Open(context.Background(), config.ArchiveConfig{Backend: "s3"})
	assert.Error(t, err)
}

func newTestGCS(t *testing.T, handler http.Handler) *GCS {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	return NewGCSWithClient(client, "raw-bucket")
}

func TestGCSPutObject(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/raw-bucket/o")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `{"ok":1}`)
		fmt.Fprintln(w, `{"name":"raw/elfa/x.json","bucket":"raw-bucket"}`)
	})
	s := newTestGCS(t, handler)

	uri, err := s.PutObject(context.Background(), "raw/elfa/x.json", "application/json", strings.NewReader(`{"ok":1}`))
	require.NoError(t, err)
	assert.Equal(t, "gs://raw-bucket/raw/elfa/x.json", uri)
}

func TestGCSPutObjectError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	s := newTestGCS(t, handler)

	_, err := s.PutObject(context.Background(), "raw/elfa/x.json", "application/json", strings.NewReader(`{}`))
	assert.Error(t, err)
}

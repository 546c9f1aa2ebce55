// Package archive keeps raw provider payloads as JSON blobs, on local disk or in GCS.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"regexp"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/config"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"

	"go.uber.org/zap"
)

const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
	BackendNone  = "none"
)

// Store writes a blob and returns its URI.
type Store interface {
	PutObject(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}

// Nop discards everything.
type Nop struct{}

func (Nop) PutObject(context.Context, string, string, io.Reader) (string, error) { return "", nil }

// Open builds the configured backend. The close func is never nil.
func Open(ctx context.Context, cfg config.ArchiveConfig) (Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "", BackendNone:
		return Nop{}, noop, nil
	case BackendLocal:
		s, err := NewLocal(cfg.Dir)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	case BackendGCS:
		s, err := NewGCS(ctx, cfg.Bucket)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectPath is raw/<provider>/<yyyy-mm-dd>/<name>.json.
func ObjectPath(provider, name string, now time.Time) string {
	return path.Join("raw", unsafeName.ReplaceAllString(provider, "_"), now.UTC().Format("2006-01-02"),
		unsafeName.ReplaceAllString(name, "_")+".json")
}

// ArchiveJSON marshals payload and stores it under ObjectPath.
func ArchiveJSON(ctx context.Context, s Store, provider, name string, payload any) (string, error) {
	if s == nil {
		return "", nil
	}
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case json.RawMessage:
		data = p
	default:
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("marshal %s payload: %w", provider, err)
		}
	}

	uri, err := s.PutObject(ctx, ObjectPath(provider, name, time.Now()), "application/json", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("archive %s/%s: %w", provider, name, err)
	}
	if uri != "" {
		log.LogDebug("Archived payload", zap.String("uri", uri), zap.Int("bytes", len(data)))
	}
	return uri, nil
}

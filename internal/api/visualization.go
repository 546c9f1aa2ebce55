package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/uneeb123/alpha-hunter-sub000/internal/cache"
	"github.com/uneeb123/alpha-hunter-sub000/internal/features/clustering"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"
	"github.com/uneeb123/alpha-hunter-sub000/internal/store/vectors"

	"go.uber.org/zap"
)

const maxClusters = 20

// loadClusters builds or reuses the cluster result for the requested k.
func (s *Server) loadClusters(r *http.Request) (*clustering.Result, int, error) {
	if s.deps.Clusters == nil {
		return nil, http.StatusServiceUnavailable, errors.New("clustering is not configured")
	}
	k := clustering.DefaultK
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxClusters {
			return nil, http.StatusBadRequest, errors.New("k must be between 1 and 20")
		}
		k = n
	}
	key := "clusters:" + strconv.Itoa(k)
	res, err := cache.Remember(r.Context(), s.deps.Cache, key, s.opts.ClusterTTL, func(ctx context.Context) (*clustering.Result, error) {
		return s.deps.Clusters.Build(ctx, k)
	})
	switch {
	case errors.Is(err, clustering.ErrNotEnoughData):
		return nil, http.StatusNotFound, err
	case errors.Is(err, vectors.ErrNoListing):
		return nil, http.StatusNotImplemented, err
	case err != nil:
		return nil, http.StatusInternalServerError, err
	}
	return res, http.StatusOK, nil
}

func (s *Server) clusters(w http.ResponseWriter, r *http.Request) {
	res, status, err := s.loadClusters(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) clustersPNG(w http.ResponseWriter, r *http.Request) {
	res, status, err := s.loadClusters(r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	img, err := clustering.Render(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img); err != nil {
		log.LogWarn("Failed to write cluster chart", zap.Error(err))
	}
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/krushna-ai/gdvg-ingest/internal/logger"
	"github.com/krushna-ai/gdvg-ingest/internal/source"
	"github.com/krushna-ai/gdvg-ingest/internal/storage"
)

// ImageMirror copies poster and backdrop artwork from the provider's CDN
// into object storage. Mirroring is best effort: a failed copy never
// fails the item, and the record keeps the provider path either way.
type ImageMirror struct {
	store   storage.ObjectStorage
	http    *resty.Client
	baseURL string
	log     *logger.Logger
}

// NewImageMirror creates an ImageMirror downloading from imageBaseURL.
func NewImageMirror(store storage.ObjectStorage, imageBaseURL string, log *logger.Logger) *ImageMirror {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &ImageMirror{
		store:   store,
		http:    client,
		baseURL: strings.TrimSuffix(imageBaseURL, "/"),
		log:     log.WithField(logger.FieldComponent, "image_mirror"),
	}
}

// Mirror copies the record's artwork and returns the object keys. An
// empty key means the image was absent or the copy failed.
func (m *ImageMirror) Mirror(ctx context.Context, rec *source.Record) (posterKey, backdropKey string) {
	if rec.PosterPath != "" {
		posterKey = m.mirrorOne(ctx, rec, rec.PosterPath)
	}
	if rec.BackdropPath != "" {
		backdropKey = m.mirrorOne(ctx, rec, rec.BackdropPath)
	}
	return posterKey, backdropKey
}

func (m *ImageMirror) mirrorOne(ctx context.Context, rec *source.Record, path string) string {
	// Provider paths start with a slash, e.g. /wxyz.jpg.
	key := fmt.Sprintf("%s/%d%s", rec.ContentType, rec.SourceID, path)
	log := m.log.WithFields(logger.Fields{
		logger.FieldSourceID: rec.SourceID,
		"key":                key,
	})

	exists, err := m.store.Exists(ctx, key)
	if err != nil {
		log.WithError(err).Warn("mirror existence check failed")
		return ""
	}
	if exists {
		return key
	}

	resp, err := m.http.R().SetContext(ctx).Get(m.baseURL + path)
	if err != nil {
		log.WithError(err).Warn("image download failed")
		return ""
	}
	if !resp.IsSuccess() {
		log.WithField(logger.FieldStatus, resp.StatusCode()).Warn("image download rejected")
		return ""
	}

	body := resp.Body()
	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	if err := m.store.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), contentType); err != nil {
		log.WithError(err).Warn("image upload failed")
		return ""
	}
	return key
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_blueprint_backend/internal/config"
	"ai_blueprint_backend/internal/util"
)

func TestStorageService_LocalRoundTrip(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Type:          util.StorageLocal,
		LocalPath:     t.TempDir(),
		PublicBaseURL: "https://blueprint.example.edu/",
	}}
	s := NewStorageService(cfg)

	url, err := s.Put(context.Background(), "institutions/1/vendors/a.html", []byte("<p>hi</p>"), util.MimeHTML)
	require.NoError(t, err)
	assert.Equal(t, "https://blueprint.example.edu/api/reports/institutions/1/vendors/a.html", url)

	data, err := s.Get(context.Background(), "institutions/1/vendors/a.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", string(data))

	_, err = s.Get(context.Background(), "institutions/1/vendors/b.html")
	assert.ErrorIs(t, err, util.ErrReportNotFound)
}

func TestStorageService_FallbackStillServesThroughAPI(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Type:          util.StorageMinio,
		LocalPath:     t.TempDir(),
		PublicBaseURL: "https://blueprint.example.edu",
	}}
	s := NewStorageService(cfg)
	require.IsType(t, &LocalStorageProvider{}, s.Provider)

	url, err := s.Put(context.Background(), "institutions/1/dashboards/x.html", []byte("x"), util.MimeHTML)
	require.NoError(t, err)
	assert.Equal(t, "https://blueprint.example.edu/api/reports/institutions/1/dashboards/x.html", url)

	data, err := s.Get(context.Background(), "institutions/1/dashboards/x.html")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

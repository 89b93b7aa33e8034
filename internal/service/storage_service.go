package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"ai_blueprint_backend/internal/config"
	"ai_blueprint_backend/internal/util"
	"ai_blueprint_backend/pkg/logger"
)

// ReportRoute is where stored reports are downloaded, behind authentication.
const ReportRoute = "/api/reports/"

// StorageProvider stores generated report documents. Get returns
// util.ErrReportNotFound for a missing key.
type StorageProvider interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// LocalStorageProvider writes under Storage.LocalPath.
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) path(key string) string {
	return filepath.Join(p.Config.LocalPath, filepath.FromSlash(key))
}

func (p *LocalStorageProvider) Put(ctx context.Context, key string, data []byte, contentType string) error {
	dst := p.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

func (p *LocalStorageProvider) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(p.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, util.ErrReportNotFound
	}
	return data, err
}

type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (p *MinioStorageProvider) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := p.Client.GetObject(ctx, p.Config.MinioBucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, util.ErrReportNotFound
		}
		return nil, err
	}
	return data, nil
}

type OSSStorageProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Client: client}, nil
}

func (p *OSSStorageProvider) Put(ctx context.Context, key string, data []byte, contentType string) error {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return err
	}
	return bucket.PutObject(key, bytes.NewReader(data), oss.ContentType(contentType), oss.WithContext(ctx))
}

func (p *OSSStorageProvider) Get(ctx context.Context, key string) ([]byte, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return nil, err
	}
	body, err := bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		var serr oss.ServiceError
		if errors.As(err, &serr) && serr.Code == "NoSuchKey" {
			return nil, util.ErrReportNotFound
		}
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

// StorageService hands out download URLs on this API rather than provider
// URLs, so every read goes through the tenant check whichever provider is
// active.
type StorageService struct {
	Provider StorageProvider
	BaseURL  string
}

// NewStorageService picks the configured provider, falling back to local
// disk when a remote provider cannot be constructed.
func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("MinIO storage unavailable, using local disk", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Error("OSS storage unavailable, using local disk", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}

	return &StorageService{Provider: provider, BaseURL: cfg.Storage.PublicBaseURL}
}

func (s *StorageService) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := s.Provider.Put(ctx, key, data, contentType); err != nil {
		return "", eris.Wrapf(err, "storage: put %s", key)
	}
	return strings.TrimRight(s.BaseURL, "/") + ReportRoute + key, nil
}

func (s *StorageService) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.Provider.Get(ctx, key)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: get %s", key)
	}
	return data, nil
}

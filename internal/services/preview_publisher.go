package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/ideaforge/ideaforge-backend/internal/pkg/envutil"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
)

// PreviewPublisher stores a prototype's generated source bundle so the
// preview URL on the version row keeps working after the generation
// handle expires.
type PreviewPublisher interface {
	PublishBundle(ctx context.Context, prototypeID uuid.UUID, files map[string]string) (string, error)
	DeleteBundle(ctx context.Context, prototypeID uuid.UUID) error
}

type gcsPreviewPublisher struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
	cdnDomain     string
}

func NewPreviewPublisher(log *logger.Logger) (PreviewPublisher, error) {
	serviceLog := log.With("service", "PreviewPublisher")

	bucket := envutil.GetEnv("GCS_BUCKET_NAME", "", nil)
	if bucket == "" {
		return nil, fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	cdnDomain := envutil.GetEnv("CDN_DOMAIN", "", nil)
	saPath := envutil.GetEnv("GOOGLE_APPLICATION_CREDENTIALS_JSON", "", nil)

	ctx := context.Background()
	var stClient *storage.Client
	var err error
	if saPath != "" {
		stClient, err = storage.NewClient(ctx, option.WithCredentialsFile(saPath), option.WithScopes(storage.ScopeReadWrite))
	} else {
		stClient, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &gcsPreviewPublisher{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucket,
		cdnDomain:     cdnDomain,
	}, nil
}

func bundleKey(prototypeID uuid.UUID) string {
	return fmt.Sprintf("prototypes/%s/bundle.zip", prototypeID)
}

func (p *gcsPreviewPublisher) PublishBundle(ctx context.Context, prototypeID uuid.UUID, files map[string]string) (string, error) {
	if prototypeID == uuid.Nil {
		return "", fmt.Errorf("prototype id required")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for path, contents := range files {
		w, err := zw.Create(path)
		if err != nil {
			return "", fmt.Errorf("zip entry %q: %w", path, err)
		}
		if _, err := io.WriteString(w, contents); err != nil {
			return "", fmt.Errorf("zip write %q: %w", path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize bundle: %w", err)
	}

	key := bundleKey(prototypeID)
	uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	w := p.storageClient.Bucket(p.bucketName).Object(key).NewWriter(uploadCtx)
	w.ContentType = "application/zip"
	if _, err := w.Write(buf.Bytes()); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload bundle: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close bundle writer: %w", err)
	}

	return p.publicURL(key), nil
}

func (p *gcsPreviewPublisher) DeleteBundle(ctx context.Context, prototypeID uuid.UUID) error {
	if prototypeID == uuid.Nil {
		return nil
	}
	delCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	o := p.storageClient.Bucket(p.bucketName).Object(bundleKey(prototypeID))
	if err := o.Delete(delCtx); err != nil {
		return fmt.Errorf("delete bundle for %s: %w", prototypeID, err)
	}
	return nil
}

func (p *gcsPreviewPublisher) publicURL(key string) string {
	if p.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", p.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", p.bucketName, key)
}

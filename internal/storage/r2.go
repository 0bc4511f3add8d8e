// Package storage provides the object stores media is rehomed into: a
// Cloudflare R2 (S3-compatible) bucket and an in-memory store.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/fulmenhq/tipguard/pkg/logger"
)

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "zed-tips-media"

// R2Options holds R2 connection settings.
type R2Options struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PublicURL is the base of public object URLs, e.g. https://media.example.
	PublicURL string
	// Endpoint overrides {AccountID}.r2.cloudflarestorage.com. A scheme may
	// be given; http:// disables TLS.
	Endpoint string
	Region   string
}

// R2Store stores media in an R2 bucket.
type R2Store struct {
	client    *miniogo.Client
	bucket    string
	publicURL string
	host      string
}

// NewR2Store creates the client. No network call is made.
func NewR2Store(opts R2Options) (*R2Store, error) {
	if opts.PublicURL == "" {
		return nil, errors.New("public URL is required")
	}
	host := hostOf(opts.PublicURL)
	if host == "" {
		return nil, fmt.Errorf("public URL %q must be an absolute http(s) URL", opts.PublicURL)
	}
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucket
	}
	if opts.Region == "" {
		opts.Region = "auto"
	}

	endpoint, secure, err := resolveEndpoint(opts.Endpoint, opts.AccountID)
	if err != nil {
		return nil, err
	}

	client, err := miniogo.New(endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create R2 client: %w", err)
	}

	logger.Debug("R2 store initialized",
		logger.String("endpoint", endpoint),
		logger.String("bucket", opts.Bucket))

	return &R2Store{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: trimBase(opts.PublicURL),
		host:      host,
	}, nil
}

func resolveEndpoint(endpoint, accountID string) (host string, secure bool, err error) {
	if endpoint == "" {
		if accountID == "" {
			return "", false, errors.New("account id or endpoint is required")
		}
		return accountID + ".r2.cloudflarestorage.com", true, nil
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	return u.Host, u.Scheme != "http", nil
}

// Exists reports whether key is already in the bucket.
func (s *R2Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, miniogo.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := miniogo.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", key, err)
}

// Put uploads data and returns its public URL.
func (s *R2Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(data),
		int64(len(data)),
		miniogo.PutObjectOptions{
			ContentType: contentType,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	logger.Debug("Uploaded object to R2",
		logger.String("key", key),
		logger.Int("size", len(data)))

	return s.PublicURL(key), nil
}

func (s *R2Store) PublicURL(key string) string {
	return joinURL(s.publicURL, key)
}

func (s *R2Store) PublicHost() string {
	return s.host
}

func trimBase(publicURL string) string {
	return strings.TrimRight(publicURL, "/")
}

func joinURL(base, key string) string {
	return base + "/" + strings.TrimLeft(key, "/")
}

func hostOf(publicURL string) string {
	u, err := url.Parse(publicURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.Hostname()
}

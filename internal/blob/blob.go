// Package blob stores message file parts in Google Cloud Storage, keyed by
// content hash, and mints signed download URLs for readers.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
)

// Client wraps a GCS bucket holding message assets. Objects are keyed by
// their SHA-256 so identical uploads dedupe naturally.
type Client struct {
	client         *storage.Client
	bucket         string
	serviceAccount string
	privateKey     string
	expiry         time.Duration
	logger         zerolog.Logger
}

// Config holds blob storage settings.
type Config struct {
	Bucket         string
	ServiceAccount string
	PrivateKey     string
	Expiry         time.Duration
}

// New creates a blob client using application default credentials.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 15 * time.Minute
	}
	return &Client{
		client:         sc,
		bucket:         cfg.Bucket,
		serviceAccount: cfg.ServiceAccount,
		privateKey:     cfg.PrivateKey,
		expiry:         cfg.Expiry,
		logger:         logger.With().Str("component", "blob").Logger(),
	}, nil
}

// objectKey is the canonical object name for an asset hash.
func objectKey(sha256 string) string {
	return "assets/" + sha256
}

// Upload writes an asset to the bucket under its content hash.
func (c *Client) Upload(ctx context.Context, sha256, mime string, r io.Reader) error {
	w := c.client.Bucket(c.bucket).Object(objectKey(sha256)).NewWriter(ctx)
	w.ContentType = mime
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("uploading asset %s: %w", sha256, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing asset %s: %w", sha256, err)
	}
	c.logger.Info().Str("sha256", sha256).Str("mime", mime).Msg("asset uploaded")
	return nil
}

// SignedDownloadURL mints a V4 signed GET URL for an asset.
func (c *Client) SignedDownloadURL(sha256 string) (string, error) {
	// Env vars carry the private key with literal \n sequences; restore them.
	key := strings.ReplaceAll(c.privateKey, `\n`, "\n")

	url, err := storage.SignedURL(c.bucket, objectKey(sha256), &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(c.expiry),
		GoogleAccessID: c.serviceAccount,
		PrivateKey:     []byte(key),
	})
	if err != nil {
		return "", fmt.Errorf("signing download url for %s: %w", sha256, err)
	}
	return url, nil
}

// HealthCheck reports whether the bucket is reachable.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := c.client.Bucket(c.bucket).Attrs(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Str("bucket", c.bucket).Msg("bucket health check failed")
		return false
	}
	return true
}

// Close releases the underlying storage client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Package receipts archives submitted receipt images in Cloud Storage.
package receipts

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/finbot/internal/assistant"
	"github.com/google/uuid"
)

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// GCSArchive stores images under receipts/<user>/<yyyy>/<mm>/<dd>/<uuid>.<ext>.
type GCSArchive struct {
	client *storage.Client
	bucket string
	now    func() time.Time
	newID  func() string
}

// NewGCSArchive creates an archive writing to bucket using Application Default Credentials.
func NewGCSArchive(ctx context.Context, bucket string) (*GCSArchive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewGCSArchive: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSArchive: creating storage client: %w", err)
	}
	return &GCSArchive{client: client, bucket: bucket, now: time.Now, newID: uuid.NewString}, nil
}

// Close closes the storage client.
func (a *GCSArchive) Close() error {
	return a.client.Close()
}

// Store uploads img and returns its gs:// URI.
func (a *GCSArchive) Store(ctx context.Context, userID string, img assistant.Image) (string, error) {
	ext, ok := assistant.ImageExtension(img.MIMEType)
	if !ok {
		return "", fmt.Errorf("Store: unsupported image type %q", img.MIMEType)
	}
	object := ObjectName(userID, a.now(), a.newID(), ext)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = img.MIMEType
	if _, err := w.Write(img.Data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Store: writing %s: %w", object, err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Store: finalizing %s: %w", object, err)
	}
	return "gs://" + a.bucket + "/" + object, nil
}

// Fetch downloads the object at a gs:// URI.
func (a *GCSArchive) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	rc, err := a.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// ObjectName builds the object path for a receipt stored at t.
func ObjectName(userID string, t time.Time, id, ext string) string {
	user := strings.NewReplacer("/", "_", "..", "_").Replace(userID)
	if user == "" {
		user = "anonymous"
	}
	return path.Join("receipts", user, t.UTC().Format("2006/01/02"), id+"."+ext)
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// Filename returns the last path element of a gs:// URI, e.g. "gs://b/x/r.jpg" → "r.jpg".
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// Package gcs archives exported journal files to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// Archiver stores exported files in a bucket.
type Archiver interface {
	Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error)
}

// Uploader writes objects to one bucket.
// It relies on Application Default Credentials unless client options say otherwise.
type Uploader struct {
	client    *storage.Client
	newWriter func(ctx context.Context, objectName, contentType string) io.WriteCloser
	bucket    string
	prefix    string
}

// NewUploader creates an uploader for bucket. Objects are placed under prefix.
func NewUploader(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	u := &Uploader{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
	u.newWriter = func(ctx context.Context, objectName, contentType string) io.WriteCloser {
		w := client.Bucket(bucket).Object(objectName).NewWriter(ctx)
		w.ContentType = contentType
		return w
	}
	return u, nil
}

// Close releases the storage client.
func (u *Uploader) Close() error {
	if u.client == nil {
		return nil
	}
	return u.client.Close()
}

// ObjectName returns the object path used for fileName.
func (u *Uploader) ObjectName(fileName string) string {
	if u.prefix == "" {
		return fileName
	}
	return path.Join(u.prefix, fileName)
}

// Upload copies r into the bucket under the prefixed objectName and returns
// the gs:// URI of the stored object.
func (u *Uploader) Upload(ctx context.Context, objectName, contentType string, r io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	name := u.ObjectName(objectName)
	w := u.newWriter(ctx, name, contentType)

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy %q to GCS writer: %w", name, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload of %q: %w", name, err)
	}

	return URI(u.bucket, name), nil
}

// URI formats a gs:// object URI.
func URI(bucket, objectName string) string {
	return "gs://" + bucket + "/" + objectName
}

// ParseURI splits a gs:// URI into bucket and object path.
func ParseURI(uri string) (bucket, objectName string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}

	return parts[0], parts[1], nil
}

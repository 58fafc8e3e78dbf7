package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	closeErr    error
	name        string
	contentType string
	buf         bytes.Buffer
	closed      bool
}

func (w *recordingWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *recordingWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func newTestUploader(prefix string, rec *recordingWriter) *Uploader {
	return &Uploader{
		bucket: "books-archive",
		prefix: prefix,
		newWriter: func(_ context.Context, objectName, contentType string) io.WriteCloser {
			rec.name = objectName
			rec.contentType = contentType
			return rec
		},
	}
}

func TestUploader_Upload(t *testing.T) {
	rec := &recordingWriter{}
	u := newTestUploader("exports", rec)

	uri, err := u.Upload(context.Background(), "Journal_Entry.xlsx", "application/xlsx", strings.NewReader("payload"))
	require.NoError(t, err)

	assert.Equal(t, "gs://books-archive/exports/Journal_Entry.xlsx", uri)
	assert.Equal(t, "exports/Journal_Entry.xlsx", rec.name)
	assert.Equal(t, "application/xlsx", rec.contentType)
	assert.Equal(t, "payload", rec.buf.String())
	assert.True(t, rec.closed)
}

func TestUploader_UploadFinalizeError(t *testing.T) {
	rec := &recordingWriter{closeErr: errors.New("precondition failed")}
	u := newTestUploader("", rec)

	_, err := u.Upload(context.Background(), "a.xlsx", "", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "finalize upload")
}

func TestUploader_ObjectName(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		file   string
		want   string
	}{
		{name: "no prefix", prefix: "", file: "a.xlsx", want: "a.xlsx"},
		{name: "prefix", prefix: "exports", file: "a.xlsx", want: "exports/a.xlsx"},
		{name: "nested prefix", prefix: "books/2026", file: "a.xlsx", want: "books/2026/a.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &Uploader{prefix: tt.prefix}
			assert.Equal(t, tt.want, u.ObjectName(tt.file))
		})
	}
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{name: "valid", uri: "gs://bucket/path/to/file.xlsx", wantBucket: "bucket", wantObject: "path/to/file.xlsx"},
		{name: "wrong scheme", uri: "s3://bucket/file", wantErr: true},
		{name: "no object", uri: "gs://bucket", wantErr: true},
		{name: "empty object", uri: "gs://bucket/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantObject, object)
			assert.Equal(t, tt.uri, URI(bucket, object))
		})
	}
}

func TestNewUploader_RequiresBucket(t *testing.T) {
	_, err := NewUploader(context.Background(), "", "")
	assert.Error(t, err)
}

func TestUploader_CloseWithoutClient(t *testing.T) {
	assert.NoError(t, (&Uploader{}).Close())
}

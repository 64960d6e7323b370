package artifact

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3 records PutObject calls.
type mockS3 struct {
	mu    sync.Mutex
	calls []putCall
	err   error
}

type putCall struct {
	bucket string
	key    string
	body   string
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.calls = append(m.calls, putCall{bucket: *params.Bucket, key: *params.Key, body: string(body)})
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	t.Parallel()

	t.Run("uploads under the object name", func(t *testing.T) {
		t.Parallel()
		mock := &mockS3{}
		sink := newS3SinkWithClient(mock, "releases", "")

		err := sink.Upload(context.Background(), "app-linux-x64", strings.NewReader("binary"))
		require.NoError(t, err)

		require.Len(t, mock.calls, 1)
		assert.Equal(t, "releases", mock.calls[0].bucket)
		assert.Equal(t, "app-linux-x64", mock.calls[0].key)
		assert.Equal(t, "binary", mock.calls[0].body)
	})

	t.Run("prefix is prepended to the key", func(t *testing.T) {
		t.Parallel()
		mock := &mockS3{}
		sink := newS3SinkWithClient(mock, "releases", "nightly")

		require.NoError(t, sink.Upload(context.Background(), "app", strings.NewReader("x")))
		require.Len(t, mock.calls, 1)
		assert.Equal(t, "nightly/app", mock.calls[0].key)
	})

	t.Run("same name overwrites", func(t *testing.T) {
		t.Parallel()
		mock := &mockS3{}
		sink := newS3SinkWithClient(mock, "releases", "")

		require.NoError(t, sink.Upload(context.Background(), "app", strings.NewReader("v1")))
		require.NoError(t, sink.Upload(context.Background(), "app", strings.NewReader("v2")))

		require.Len(t, mock.calls, 2)
		assert.Equal(t, mock.calls[0].key, mock.calls[1].key)
	})

	t.Run("transport error is surfaced", func(t *testing.T) {
		t.Parallel()
		mock := &mockS3{err: io.ErrUnexpectedEOF}
		sink := newS3SinkWithClient(mock, "releases", "")

		err := sink.Upload(context.Background(), "app", strings.NewReader("x"))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestFSSink(t *testing.T) {
	t.Parallel()

	t.Run("stores and overwrites by name", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		sink, err := NewFSSink(filepath.Join(dir, "artifacts"))
		require.NoError(t, err)

		require.NoError(t, sink.Upload(context.Background(), "app", strings.NewReader("v1")))
		require.NoError(t, sink.Upload(context.Background(), "app", strings.NewReader("v2")))

		got, err := os.ReadFile(filepath.Join(dir, "artifacts", "app"))
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("object name is flattened to its base", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		sink, err := NewFSSink(dir)
		require.NoError(t, err)

		require.NoError(t, sink.Upload(context.Background(), "nested/path/app", strings.NewReader("x")))
		assert.FileExists(t, filepath.Join(dir, "app"))
	})
}

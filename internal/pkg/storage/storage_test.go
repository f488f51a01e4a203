package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	objects map[string]string
	closed  bool
}

func (m *memoryStorage) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	body, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, ObjectInfo{}, errors.New("NoSuchKey")
	}
	return io.NopCloser(strings.NewReader(body)), ObjectInfo{
		Bucket: bucket, Key: key, Size: int64(len(body)), ContentType: "application/pdf",
	}, nil
}

func (m *memoryStorage) Close() error {
	m.closed = true
	return nil
}

func TestParseRef(t *testing.T) {
	bucket, key, err := ParseRef("storage://invoices/2026/03/inv-1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "invoices", bucket)
	assert.Equal(t, "2026/03/inv-1.pdf", key)

	for _, bad := range []string{"invoices/inv-1.pdf", "storage://invoices", "storage:///inv.pdf", "storage://invoices/"} {
		_, _, err := ParseRef(bad)
		assert.ErrorIs(t, err, ErrInvalidRef, bad)
	}

	assert.True(t, IsRef("storage://a/b"))
	assert.False(t, IsRef("/tmp/a.pdf"))
}

func TestReadAll(t *testing.T) {
	s := &memoryStorage{objects: map[string]string{"invoices/inv-1.pdf": "%PDF-1.7"}}

	t.Run("Success", func(t *testing.T) {
		data, info, err := ReadAll(context.Background(), s, "invoices", "inv-1.pdf", 1024)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.7", string(data))
		assert.Equal(t, "application/pdf", info.ContentType)
	})

	t.Run("TooLarge", func(t *testing.T) {
		_, _, err := ReadAll(context.Background(), s, "invoices", "inv-1.pdf", 4)
		assert.ErrorIs(t, err, ErrObjectTooLarge)
	})

	t.Run("Unlimited", func(t *testing.T) {
		data, _, err := ReadAll(context.Background(), s, "invoices", "inv-1.pdf", 0)
		require.NoError(t, err)
		assert.Len(t, data, 8)
	})

	t.Run("Missing", func(t *testing.T) {
		_, _, err := ReadAll(context.Background(), s, "invoices", "nope.pdf", 0)
		assert.EqualError(t, err, "NoSuchKey")
	})
}

func TestNewFromDriver(t *testing.T) {
	_, err := NewFromDriver(context.Background(), "ftp", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	s, err := NewFromDriver(context.Background(), " MinIO ", FactoryOptions{MinIO: MinIOOptions{Endpoint: "localhost:9000"}})
	require.NoError(t, err)
	assert.IsType(t, &MinIOAdapter{}, s)
	assert.NoError(t, s.Close())
}

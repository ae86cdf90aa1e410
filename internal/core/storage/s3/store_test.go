package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenekit/internal/core/storage"
)

// mockRoundTripper fakes the subset of S3 the store uses. Listings are
// paged one key at a time to exercise continuation tokens.
type mockRoundTripper struct {
	mu    sync.Mutex
	state map[string][]byte
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return m.list(req.URL.Query().Get("prefix"), req.URL.Query().Get("continuation-token")), nil
	}

	switch req.Method {
	case http.MethodHead:
		body, ok := m.state[key]
		if !ok {
			return respond(http.StatusNotFound, nil, nil), nil
		}
		return respond(http.StatusOK, nil, http.Header{"Content-Length": {strconv.Itoa(len(body))}}), nil
	case http.MethodGet:
		body, ok := m.state[key]
		if !ok {
			return respond(http.StatusNotFound,
				[]byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`),
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return respond(http.StatusOK, body, http.Header{"Content-Length": {strconv.Itoa(len(body))}}), nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			body = decodeChunked(body)
		}
		m.state[key] = body
		return respond(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodDelete:
		delete(m.state, key)
		return respond(http.StatusNoContent, nil, nil), nil
	}
	return respond(http.StatusNotImplemented, nil, nil), nil
}

func (m *mockRoundTripper) list(prefix, token string) *http.Response {
	var keys []string
	for k := range m.state {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if token != "" {
		start, _ = strconv.Atoi(token)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><ListBucketResult>`)
	if start+1 < len(keys) {
		fmt.Fprintf(&b, "<IsTruncated>true</IsTruncated><NextContinuationToken>%d</NextContinuationToken>", start+1)
	} else {
		b.WriteString("<IsTruncated>false</IsTruncated>")
	}
	if start < len(keys) {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-01-01T00:00:00Z</LastModified></Contents>",
			keys[start], len(m.state[keys[start]]))
	}
	b.WriteString("</ListBucketResult>")
	return respond(http.StatusOK, []byte(b.String()), http.Header{"Content-Type": {"application/xml"}})
}

func respond(status int, body []byte, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode:    status,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Header:        header,
	}
}

// decodeChunked strips aws-chunked framing: <hex size>\r\n<data>\r\n ...
// 0\r\n<trailers>.
func decodeChunked(b []byte) []byte {
	var out []byte
	for {
		line, rest, ok := bytes.Cut(b, []byte("\r\n"))
		if !ok {
			return out
		}
		sizeHex, _, _ := strings.Cut(string(line), ";")
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil || size == 0 || int(size) > len(rest) {
			return out
		}
		out = append(out, rest[:size]...)
		b = bytes.TrimPrefix(rest[size:], []byte("\r\n"))
	}
}

func newMockStore(t *testing.T, prefix string) (*Store, *mockRoundTripper) {
	t.Helper()
	rt := &mockRoundTripper{state: make(map[string][]byte)}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)

	client := awsS3.NewFromConfig(cfg, func(o *awsS3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	return newWithClient(client, "scenes", prefix), rt
}

func TestNewRequiresBucket(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrBucketRequired)
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMockStore(t, "")
	assert.Equal(t, storage.DriverS3, s.Driver())
	assert.Equal(t, "scenes", s.Bucket())

	require.NoError(t, s.Write(ctx, "test.scene.yaml", []byte("name: Test\n")))
	require.NoError(t, s.Write(ctx, "test.scene.yaml", []byte("name: Again\n")))

	data, err := s.Read(ctx, "test.scene.yaml")
	require.NoError(t, err)
	assert.Equal(t, "name: Again\n", string(data))

	ok, err := s.Exists(ctx, "test.scene.yaml")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "test.scene.yaml"))
	ok, err = s.Exists(ctx, "test.scene.yaml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _ := newMockStore(t, "")

	_, err := s.Read(ctx, "missing.scene.yaml")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing.scene.yaml"), storage.ErrNotFound)
	assert.ErrorIs(t, s.Write(ctx, "/abs", nil), storage.ErrInvalidKey)
}

func TestStoreListPagesAndStripsPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, rt := newMockStore(t, "/game/")

	for _, key := range []string{"levels/b.scene.yaml", "levels/a.scene.yaml", "menu.scene.yaml"} {
		require.NoError(t, s.Write(ctx, key, []byte("x")))
	}
	rt.mu.Lock()
	_, stored := rt.state["game/menu.scene.yaml"]
	rt.mu.Unlock()
	assert.True(t, stored)

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"levels/a.scene.yaml", "levels/b.scene.yaml", "menu.scene.yaml"}, keys)

	keys, err = s.List(ctx, "levels/")
	require.NoError(t, err)
	assert.Equal(t, []string{"levels/a.scene.yaml", "levels/b.scene.yaml"}, keys)
}

func TestDecodeChunked(t *testing.T) {
	t.Parallel()
	body := []byte("5\r\nhello\r\n6\r\n world\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n")
	assert.Equal(t, "hello world", string(decodeChunked(body)))
}

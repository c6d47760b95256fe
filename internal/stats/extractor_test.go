package stats

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = time.Second

var errFetchDown = errors.New("fetch down")

// stubFetcher returns a canned detail or error.
type stubFetcher struct {
	detail *CommitDetail
	err    error
}

func (s *stubFetcher) FetchCommitDetail(_ context.Context, _ string) (*CommitDetail, error) {
	return s.detail, s.err
}

func detailFixture() *CommitDetail {
	detail := &CommitDetail{}
	detail.Stats.Additions = 10
	detail.Stats.Deletions = 4
	detail.Files = []DetailFile{
		{Filename: "login.go", Status: "added", Additions: 8, Deletions: 0, Changes: 8},
		{Filename: "router.go", Status: "modified", Additions: 2, Deletions: 4, Changes: 9},
	}

	return detail
}

func TestExtract_RemotePreferred(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(&stubFetcher{detail: detailFixture()}, testTimeout, nil)

	got := extractor.Extract(context.Background(), Input{DetailURL: "https://example.com/c/1"})

	assert.Equal(t, 10, got.Added)
	assert.Equal(t, 4, got.Deleted)
	// login.go: max(0, 8-8-0)=0; router.go: max(0, 9-2-4)=3.
	assert.Equal(t, 3, got.Modified)
	assert.Equal(t, 2, got.FilesChanged)
	assert.False(t, got.Degraded)

	require.Len(t, got.Files, 2)
	assert.Equal(t, KindAdded, got.Files[0].Kind)
	assert.Equal(t, "Go", got.Files[0].Language)
	assert.Equal(t, 3, got.Files[1].Modified)
}

func TestExtract_NegativeModifiedClamped(t *testing.T) {
	t.Parallel()

	detail := &CommitDetail{}
	detail.Stats.Additions = 5
	detail.Files = []DetailFile{
		{Filename: "a.go", Status: "modified", Additions: 5, Deletions: 2, Changes: 4},
	}

	extractor := NewExtractor(&stubFetcher{detail: detail}, testTimeout, nil)
	got := extractor.Extract(context.Background(), Input{DetailURL: "u"})

	assert.Equal(t, 0, got.Modified)
}

func TestExtract_FallbackOnError(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(&stubFetcher{err: errFetchDown}, testTimeout, nil)

	got := extractor.Extract(context.Background(), Input{
		DetailURL: "https://example.com/c/1",
		Added:     []string{"a.go", "b.go"},
		Removed:   []string{"c.py"},
		Modified:  []string{"d.go"},
	})

	assert.True(t, got.Degraded)
	assert.Equal(t, 4, got.FilesChanged)
	assert.Zero(t, got.Added)
	assert.Zero(t, got.Modified)
	assert.Zero(t, got.Deleted)

	require.Len(t, got.Files, 4)
	assert.Equal(t, KindAdded, got.Files[0].Kind)
	assert.Equal(t, KindDeleted, got.Files[2].Kind)
	assert.Equal(t, "Python", got.Files[2].Language)
	assert.Equal(t, KindModified, got.Files[3].Kind)
}

func TestExtract_FallbackOnAllZero(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(&stubFetcher{detail: &CommitDetail{}}, testTimeout, nil)

	got := extractor.Extract(context.Background(), Input{
		DetailURL: "u",
		Modified:  []string{"d.go"},
	})

	assert.True(t, got.Degraded)
	assert.Equal(t, 1, got.FilesChanged)
}

func TestExtract_NoURLSkipsRemote(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(&stubFetcher{detail: detailFixture()}, testTimeout, nil)

	got := extractor.Extract(context.Background(), Input{Added: []string{"a.go"}})

	assert.True(t, got.Degraded)
	assert.Equal(t, 1, got.FilesChanged)
}

func TestExtract_TimeoutDegrades(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client(), "")
	extractor := NewExtractor(fetcher, 50*time.Millisecond, nil)

	start := time.Now()
	got := extractor.Extract(context.Background(), Input{
		DetailURL: server.URL,
		Added:     []string{"a.go"},
	})

	assert.True(t, got.Degraded)
	assert.Less(t, time.Since(start), testTimeout, "fetch bounded by extractor timeout")
}

func TestHTTPFetcher_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"stats":{"additions":3,"deletions":1},"files":[{"filename":"x.go","status":"modified","additions":3,"deletions":1,"changes":4}]}`))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client(), "tok")

	detail, err := fetcher.FetchCommitDetail(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, 3, detail.Stats.Additions)
	require.Len(t, detail.Files, 1)
	assert.Equal(t, "x.go", detail.Files[0].Filename)
}

func TestHTTPFetcher_BadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.Client(), "")

	_, err := fetcher.FetchCommitDetail(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrRemoteStatus)
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Go", DetectLanguage("internal/store/store.go"))
	assert.Equal(t, "Python", DetectLanguage("scripts/run.py"))
}

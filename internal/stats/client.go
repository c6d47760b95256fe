package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxDetailBodyBytes bounds the commit-detail response size.
const maxDetailBodyBytes = 4 << 20

// ErrRemoteStatus indicates the commit-detail API returned a non-200 response.
var ErrRemoteStatus = errors.New("commit detail fetch: unexpected status")

// DetailFetcher fetches the authoritative commit detail for a commit URL.
// Implementations must honor context cancellation.
type DetailFetcher interface {
	FetchCommitDetail(ctx context.Context, url string) (*CommitDetail, error)
}

// HTTPFetcher is the production DetailFetcher over the provider's REST API.
type HTTPFetcher struct {
	client *http.Client
	token  string
}

// NewHTTPFetcher creates a fetcher. A nil client uses http.DefaultClient;
// a non-empty token is sent as a bearer credential.
func NewHTTPFetcher(client *http.Client, token string) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPFetcher{client: client, token: token}
}

// FetchCommitDetail performs a GET against the commit's detail URL.
func (f *HTTPFetcher) FetchCommitDetail(ctx context.Context, url string) (*CommitDetail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build commit detail request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch commit detail: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrRemoteStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDetailBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read commit detail: %w", err)
	}

	var detail CommitDetail

	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("decode commit detail: %w", err)
	}

	return &detail, nil
}

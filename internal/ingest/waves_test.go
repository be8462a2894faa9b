package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingFetcher struct {
	mu       sync.Mutex
	inFlight int32
	maxSeen  int32
	failURLs map[string]bool
}

func (f *countingFetcher) Fetch(ctx context.Context, url string) (*FetchedDocument, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	if current > f.maxSeen {
		f.maxSeen = current
	}
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	if f.failURLs[url] {
		return nil, errors.New("portal indisponível")
	}
	return &FetchedDocument{
		URL:        url,
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewReader([]byte("ok"))),
		FetchedAt:  time.Now(),
	}, nil
}

func TestFetchInWaves_BoundsConcurrency(t *testing.T) {
	fetcher := &countingFetcher{}
	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://portal.example/edital/%d", i)
	}

	results := FetchInWaves(context.Background(), fetcher, urls)

	if len(results) != 10 {
		t.Fatalf("every URL must settle, got %d results", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("unexpected error for %s: %v", r.URL, r.Err)
		}
	}
	if fetcher.maxSeen > waveSize {
		t.Errorf("concurrency exceeded wave size: %d", fetcher.maxSeen)
	}
}

func TestFetchInWaves_FailureDoesNotCancelSiblings(t *testing.T) {
	fetcher := &countingFetcher{failURLs: map[string]bool{
		"https://portal.example/edital/1": true,
	}}
	urls := []string{
		"https://portal.example/edital/0",
		"https://portal.example/edital/1",
		"https://portal.example/edital/2",
		"https://portal.example/edital/3",
	}

	results := FetchInWaves(context.Background(), fetcher, urls)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else if r.Doc == nil {
			t.Errorf("successful fetch for %s returned no document", r.URL)
		}
	}
	if failed != 1 {
		t.Errorf("exactly one URL should fail, got %d", failed)
	}
}

func TestFetchInWaves_Empty(t *testing.T) {
	results := FetchInWaves(context.Background(), &countingFetcher{}, nil)
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

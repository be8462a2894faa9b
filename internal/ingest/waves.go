package ingest

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	waveSize  = 3
	waveDelay = 150 * time.Millisecond
)

// WaveResult pairs a fetched document with the error its URL produced.
type WaveResult struct {
	URL string
	Doc *FetchedDocument
	Err error
}

// FetchInWaves fetches the given URLs in bounded waves: at most waveSize
// in flight at a time, with a short pause between waves so a burst of
// detail pages does not hammer one portal. Every URL settles to a
// result, a failed fetch never cancels its siblings.
func FetchInWaves(ctx context.Context, fetcher Fetcher, urls []string) []WaveResult {
	results := make([]WaveResult, len(urls))

	for start := 0; start < len(urls); start += waveSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				for i := start; i < len(urls); i++ {
					results[i] = WaveResult{URL: urls[i], Err: ctx.Err()}
				}
				return results
			case <-time.After(waveDelay):
			}
		}

		end := start + waveSize
		if end > len(urls) {
			end = len(urls)
		}

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(waveSize)

		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				doc, err := fetcher.Fetch(gCtx, urls[i])
				results[i] = WaveResult{URL: urls[i], Doc: doc, Err: err}
				// Errors are recorded per URL, not propagated, so the
				// group never cancels the rest of the wave.
				return nil
			})
		}

		g.Wait()
	}

	return results
}

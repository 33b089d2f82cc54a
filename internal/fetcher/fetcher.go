// Package fetcher downloads remote pages for the directory scraper.
package fetcher

import (
	"context"
	"io"
)

// Fetcher returns the body of a remote page. Callers close the body.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

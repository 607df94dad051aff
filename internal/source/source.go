// Package source obtains the current migration progress from the status page.
//
// A Page combines an HTTP Client with an Extractor. Every failure it reports
// wraps one of the package's sentinel errors so the caller can classify it.
package source

import (
	"context"
	"fmt"
)

// Page is the remote status page that publishes the progress percentage.
type Page struct {
	URL     string
	Client  *Client
	Extract Extractor
}

// NewPage builds a Page that reads the element with the given class.
func NewPage(url string, client *Client, class string) *Page {
	if class == "" {
		class = DefaultProgressClass
	}
	return &Page{
		URL:     url,
		Client:  client,
		Extract: ClassTextExtractor(class),
	}
}

// Progress fetches the page and returns the published fraction.
func (p *Page) Progress(ctx context.Context) (float64, error) {
	resp, err := p.Client.Fetch(ctx, p.URL)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("%w: %d from %s", ErrStatus, resp.StatusCode, p.URL)
	}
	return p.Extract(resp.Body)
}

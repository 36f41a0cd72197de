// Package upstream talks to the services this one syncs from: the product catalog and the host inventory. Requests are retried with exponential backoff; exhausted retries surface as [errs.ErrExternalService].
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/cloud-gov/tally/internal/errs"
)

type Options struct {
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

type client struct {
	base *url.URL
	http *retryablehttp.Client
}

func newClient(baseURL string, logger *slog.Logger, opts Options) (*client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errs.Wrap(err, "parsing upstream url").Mark(errs.ErrValidation)
	}
	rc := retryablehttp.NewClient()
	rc.Logger = logger
	rc.RetryMax = opts.MaxRetries
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	return &client{base: base, http: rc}, nil
}

// getJSON decodes the response to GET path into out. 404 maps to [errs.ErrNotFound]; transport errors and other non-2xx statuses map to [errs.ErrExternalService].
func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(err, fmt.Sprintf("GET %s", u.Path)).Mark(errs.ErrExternalService)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errs.Newf("GET %s: not found", u.Path).Mark(errs.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errs.Newf("GET %s: unexpected status %d", u.Path, resp.StatusCode).Mark(errs.ErrExternalService)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(err, fmt.Sprintf("decoding %s", u.Path)).Mark(errs.ErrExternalService)
	}
	return nil
}

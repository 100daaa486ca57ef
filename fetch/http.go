// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// HTTPFetcher downloads http and https references.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTP fetcher. A nil client uses one with a
// five minute timeout.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref *url.URL, limit int64) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.String(), nil)
	if err != nil {
		return nil, unavailable(fmt.Errorf("%w: %v", ErrInvalidRef, err))
	}
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, transient(fmt.Errorf("get %s: %w", ref.Redacted(), err))
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, fmt.Errorf("get %s: %w", ref.Redacted(), err)
	}
	if resp.ContentLength > limit {
		return nil, oversized(ref.Redacted(), limit)
	}
	data, err := readAll(resp.Body, ref.Redacted(), limit)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Data:     data,
		MIMEType: resp.Header.Get("Content-Type"),
		Name:     path.Base(ref.Path),
	}, nil
}

func classifyStatus(resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}
	err := fmt.Errorf("unexpected status %d", code)
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return unavailable(fmt.Errorf("%w: %w", ErrNotFound, err))
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return unavailable(fmt.Errorf("%w: %w", ErrForbidden, err))
	case code == http.StatusTooManyRequests:
		return rateLimited(err, retryAfter(resp.Header.Get("Retry-After")))
	case code == http.StatusRequestTimeout || code >= 500:
		return transient(err)
	}
	return unavailable(err)
}

// retryAfter reads a Retry-After header in seconds or HTTP-date form.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
)

// DefaultMaxBytes is the fetch ceiling when none is configured.
const DefaultMaxBytes = 64 << 20

// Resource is a fetched payload.
type Resource struct {
	Data     []byte
	MIMEType string // Content type reported by the source, if any
	Name     string // Base name of the object
}

// Fetcher loads the payload behind a reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref *url.URL, limit int64) (*Resource, error)
}

// Router dispatches references to fetchers by scheme.
type Router struct {
	fetchers map[string]Fetcher
	maxBytes int64
	logger   *slog.Logger
}

// Option configures a Router.
type Option func(*Router) error

// WithFetcher registers f for scheme, replacing any existing fetcher.
func WithFetcher(scheme string, f Fetcher) Option {
	return func(r *Router) error {
		if f == nil {
			return errors.New("fetcher cannot be nil")
		}
		r.fetchers[strings.ToLower(scheme)] = f
		return nil
	}
}

// WithMaxBytes sets the fetch ceiling.
func WithMaxBytes(n int64) Option {
	return func(r *Router) error {
		if n <= 0 {
			return errors.New("max bytes must be positive")
		}
		r.maxBytes = n
		return nil
	}
}

// WithLogger sets the router logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		r.logger = logger
		return nil
	}
}

// NewRouter creates a router serving file and http(s) references. Register a
// GCSFetcher under "gs" to serve cloud storage references.
func NewRouter(opts ...Option) (*Router, error) {
	httpFetcher := NewHTTPFetcher(nil)
	r := &Router{
		fetchers: map[string]Fetcher{
			"file":  NewFileFetcher(""),
			"http":  httpFetcher,
			"https": httpFetcher,
		},
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "fetch")
	return r, nil
}

// Fetch resolves ref. References without a scheme are local paths.
func (r *Router) Fetch(ctx context.Context, ref string) (*Resource, error) {
	u, err := Parse(ref)
	if err != nil {
		return nil, err
	}
	f, ok := r.fetchers[u.Scheme]
	if !ok {
		return nil, unavailable(fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme))
	}
	res, err := f.Fetch(ctx, u, r.maxBytes)
	if err != nil {
		r.logger.Debug("fetch failed", "ref", ref, "error", err)
		return nil, err
	}
	r.logger.Debug("fetched payload", "ref", ref, "bytes", len(res.Data))
	return res, nil
}

// Schemes lists the registered schemes.
func (r *Router) Schemes() []string {
	out := make([]string, 0, len(r.fetchers))
	for s := range r.fetchers {
		out = append(out, s)
	}
	return out
}

// Parse reads a payload reference.
func Parse(ref string) (*url.URL, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, unavailable(fmt.Errorf("%w: empty", ErrInvalidRef))
	}
	if !strings.Contains(ref, "://") {
		return &url.URL{Scheme: "file", Path: ref}, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, unavailable(fmt.Errorf("%w: %v", ErrInvalidRef, err))
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return u, nil
}

// readAll reads r up to limit bytes, failing when more are available.
func readAll(r io.Reader, ref string, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, transient(fmt.Errorf("read %s: %w", ref, err))
	}
	if int64(len(data)) > limit {
		return nil, oversized(ref, limit)
	}
	return data, nil
}

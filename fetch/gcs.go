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
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GCSFetcher reads gs://bucket/object references. The storage client is
// created on first use so that a process without credentials can still
// serve other schemes.
type GCSFetcher struct {
	opts []option.ClientOption

	once   sync.Once
	client *storage.Client
	err    error
}

// NewGCSFetcher creates a fetcher using application default credentials
// unless opts say otherwise.
func NewGCSFetcher(opts ...option.ClientOption) *GCSFetcher {
	return &GCSFetcher{opts: opts}
}

// NewGCSFetcherWithClient creates a fetcher around an existing client.
func NewGCSFetcherWithClient(client *storage.Client) *GCSFetcher {
	f := &GCSFetcher{client: client}
	f.once.Do(func() {})
	return f
}

func (f *GCSFetcher) Fetch(ctx context.Context, ref *url.URL, limit int64) (*Resource, error) {
	bucket, object, err := splitGCSRef(ref)
	if err != nil {
		return nil, err
	}
	client, err := f.storageClient()
	if err != nil {
		return nil, unavailable(fmt.Errorf("gcs client: %w", err))
	}

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, classifyGCS(ctx, ref.String(), err)
	}
	defer r.Close()

	if r.Attrs.Size > limit {
		return nil, oversized(ref.String(), limit)
	}
	data, err := readAll(r, ref.String(), limit)
	if err != nil {
		return nil, err
	}
	return &Resource{Data: data, MIMEType: r.Attrs.ContentType, Name: path.Base(object)}, nil
}

// Close releases the storage client if one was created.
func (f *GCSFetcher) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}

func (f *GCSFetcher) storageClient() (*storage.Client, error) {
	f.once.Do(func() {
		f.client, f.err = storage.NewClient(context.Background(), f.opts...)
	})
	return f.client, f.err
}

func splitGCSRef(ref *url.URL) (bucket, object string, err error) {
	bucket = ref.Host
	object = strings.TrimPrefix(ref.Path, "/")
	if bucket == "" || object == "" {
		return "", "", unavailable(fmt.Errorf("%w: want gs://bucket/object, got %q", ErrInvalidRef, ref.String()))
	}
	return bucket, object, nil
}

func classifyGCS(ctx context.Context, ref string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return unavailable(fmt.Errorf("%w: %s", ErrNotFound, ref))
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusNotFound:
			return unavailable(fmt.Errorf("%w: %s: %w", ErrNotFound, ref, err))
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return unavailable(fmt.Errorf("%w: %s: %w", ErrForbidden, ref, err))
		case gerr.Code == http.StatusTooManyRequests:
			return rateLimited(fmt.Errorf("%s: %w", ref, err), retryAfter(gerr.Header.Get("Retry-After")))
		case gerr.Code >= 500:
			return transient(fmt.Errorf("%s: %w", ref, err))
		case gerr.Code >= 400:
			return unavailable(fmt.Errorf("%s: %w", ref, err))
		}
	}
	return transient(fmt.Errorf("%s: %w", ref, err))
}

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
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileFetcher reads local files. When root is set, references must resolve
// inside it.
type FileFetcher struct {
	root string
}

// NewFileFetcher creates a file fetcher confined to root, or unconfined
// when root is empty.
func NewFileFetcher(root string) *FileFetcher {
	return &FileFetcher{root: root}
}

func (f *FileFetcher) Fetch(ctx context.Context, ref *url.URL, limit int64) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := f.resolve(ref)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, unavailable(fmt.Errorf("%w: %s", ErrNotFound, path))
		case errors.Is(err, fs.ErrPermission):
			return nil, unavailable(fmt.Errorf("%w: %s", ErrForbidden, path))
		}
		return nil, transient(err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, transient(err)
	}
	if info.IsDir() {
		return nil, unavailable(fmt.Errorf("%w: %s is a directory", ErrInvalidRef, path))
	}
	if info.Size() > limit {
		return nil, oversized(path, limit)
	}

	data, err := readAll(file, path, limit)
	if err != nil {
		return nil, err
	}
	return &Resource{Data: data, Name: filepath.Base(path)}, nil
}

func (f *FileFetcher) resolve(ref *url.URL) (string, error) {
	path := ref.Path
	if ref.Host != "" && ref.Host != "localhost" {
		path = filepath.Join(ref.Host, path)
	}
	path = filepath.Clean(path)
	if f.root == "" {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}
	rel, err := filepath.Rel(f.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", unavailable(fmt.Errorf("%w: %s is outside %s", ErrForbidden, path, f.root))
	}
	return path, nil
}

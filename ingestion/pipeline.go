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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/adapter"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/dedup"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/events"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/fetch"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/normalize"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/retry"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage"
)

// DefaultMaxPayloadBytes is the payload ceiling when none is configured.
const DefaultMaxPayloadBytes = 64 << 20

// Fetcher resolves payload references.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*fetch.Resource, error)
}

// Pipeline orchestrates import jobs from submission to stored messages.
type Pipeline struct {
	messages     storage.MessageSink
	jobs         storage.JobRepository
	guard        *dedup.Guard
	registry     *registry.Registry
	adapters     *adapter.Set
	normalizer   *normalize.Normalizer
	fetcher      Fetcher
	capabilities capability.Provider
	retry        *retry.Manager
	publisher    events.Publisher
	policies     map[Stage]retry.Policy

	textPool      *ants.Pool
	mediaPool     *ants.Pool
	textPoolSize  int
	mediaPoolSize int
	fetchParallel int

	maxPayloadBytes int64
	maxRetained     int
	now             func() time.Time
	newID           func() string
	logger          *slog.Logger

	mu       sync.Mutex
	active   map[string]*jobState
	finished []string // Finished job IDs still held in memory, oldest first
	closed   bool
	inflight sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithTextPoolSize sets the number of workers for text items.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithTextPoolSize(size int) Option {
	return func(p *Pipeline) error {
		p.textPoolSize = max(size, 1)
		return nil
	}
}

// WithMediaPoolSize sets the number of workers for media items.
// Default is 2.
func WithMediaPoolSize(size int) Option {
	return func(p *Pipeline) error {
		p.mediaPoolSize = max(size, 1)
		return nil
	}
}

// WithFetchParallelism bounds concurrent payload fetches per submission.
func WithFetchParallelism(n int) Option {
	return func(p *Pipeline) error {
		p.fetchParallel = max(n, 1)
		return nil
	}
}

// WithStagePolicy replaces the retry policy of a stage.
func WithStagePolicy(stage Stage, policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("stage %s: %w", stage, err)
		}
		p.policies[stage] = policy
		return nil
	}
}

// WithMaxPayloadBytes sets the payload size ceiling.
func WithMaxPayloadBytes(n int64) Option {
	return func(p *Pipeline) error {
		if n <= 0 {
			return errors.New("max payload bytes must be positive")
		}
		p.maxPayloadBytes = n
		return nil
	}
}

// WithAdapters replaces the platform adapters.
func WithAdapters(set *adapter.Set) Option {
	return func(p *Pipeline) error {
		if set == nil {
			return errors.New("adapter set cannot be nil")
		}
		p.adapters = set
		return nil
	}
}

// WithNormalizer replaces the normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(p *Pipeline) error {
		if n == nil {
			return errors.New("normalizer cannot be nil")
		}
		p.normalizer = n
		return nil
	}
}

// WithFetcher replaces the payload reference resolver.
func WithFetcher(f Fetcher) Option {
	return func(p *Pipeline) error {
		if f == nil {
			return errors.New("fetcher cannot be nil")
		}
		p.fetcher = f
		return nil
	}
}

// WithCapabilities sets the capability provider used for translation.
func WithCapabilities(provider capability.Provider) Option {
	return func(p *Pipeline) error {
		p.capabilities = provider
		return nil
	}
}

// WithRetryManager replaces the retry manager.
func WithRetryManager(m *retry.Manager) Option {
	return func(p *Pipeline) error {
		if m == nil {
			return errors.New("retry manager cannot be nil")
		}
		p.retry = m
		return nil
	}
}

// WithPublisher sets the event publisher.
func WithPublisher(pub events.Publisher) Option {
	return func(p *Pipeline) error {
		if pub == nil {
			pub = events.Nop{}
		}
		p.publisher = pub
		return nil
	}
}

// WithRetainedJobs bounds how many finished jobs are kept in memory.
// Older ones are served from the job repository.
func WithRetainedJobs(n int) Option {
	return func(p *Pipeline) error {
		p.maxRetained = max(n, 0)
		return nil
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		p.now = now
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new import pipeline.
func NewPipeline(
	messages storage.MessageSink,
	jobs storage.JobRepository,
	guard *dedup.Guard,
	reg *registry.Registry,
	opts ...Option,
) (*Pipeline, error) {
	if messages == nil {
		return nil, ErrMessageSinkRequired
	}
	if jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if guard == nil {
		return nil, ErrGuardRequired
	}
	if reg == nil {
		return nil, ErrRegistryRequired
	}

	p := &Pipeline{
		messages:        messages,
		jobs:            jobs,
		guard:           guard,
		registry:        reg,
		publisher:       events.Nop{},
		policies:        DefaultStagePolicies(),
		textPoolSize:    max(runtime.NumCPU(), 1),
		mediaPoolSize:   2,
		fetchParallel:   8,
		maxPayloadBytes: DefaultMaxPayloadBytes,
		maxRetained:     1000,
		now:             time.Now,
		newID:           uuid.NewString,
		logger:          slog.Default(),
		active:          make(map[string]*jobState),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	base := p.logger
	p.logger = base.With("component", "pipeline")

	if err := p.setDefaults(base); err != nil {
		return nil, err
	}

	textPool, err := ants.NewPool(p.textPoolSize)
	if err != nil {
		return nil, err
	}
	mediaPool, err := ants.NewPool(p.mediaPoolSize)
	if err != nil {
		textPool.Release()
		return nil, err
	}
	p.textPool = textPool
	p.mediaPool = mediaPool
	return p, nil
}

func (p *Pipeline) setDefaults(logger *slog.Logger) error {
	var err error
	if p.adapters == nil {
		if p.adapters, err = adapter.NewSet(adapter.Builtin()...); err != nil {
			return err
		}
	}
	if p.normalizer == nil {
		if p.normalizer, err = normalize.New(normalize.WithLogger(logger)); err != nil {
			return err
		}
	}
	if p.fetcher == nil {
		if p.fetcher, err = fetch.NewRouter(fetch.WithMaxBytes(p.maxPayloadBytes), fetch.WithLogger(logger)); err != nil {
			return err
		}
	}
	if p.retry == nil {
		if p.retry, err = retry.NewManager(retry.WithLogger(logger)); err != nil {
			return err
		}
	}
	return nil
}

// Policies returns a copy of the stage retry policies.
func (p *Pipeline) Policies() map[Stage]retry.Policy {
	return maps.Clone(p.policies)
}

func (p *Pipeline) policy(stage Stage) retry.Policy {
	if policy, ok := p.policies[stage]; ok {
		return policy
	}
	return retry.DefaultPolicy()
}

// Release stops accepting jobs, waits for in-flight items to finish and
// releases the worker pools. The pipeline should not be used after calling
// Release.
func (p *Pipeline) Release() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.inflight.Wait()
	if p.textPool != nil {
		p.textPool.Release()
	}
	if p.mediaPool != nil {
		p.mediaPool.Release()
	}
}

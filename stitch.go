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

// Package stitch imports chat exports, transcripts and media from many
// platforms and normalizes them into one message model.
package stitch

import (
	"errors"
	"log/slog"

	"google.golang.org/api/option"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/api"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability/openai"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/dedup"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/events"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/fetch"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/ingestion"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage/badger"
)

// Service owns the stores, capability provider and pipeline of one
// deployment.
type Service struct {
	stores    *badger.Stores
	provider  capability.Provider
	publisher events.Publisher
	gcs       *fetch.GCSFetcher
	pipeline  *ingestion.Pipeline
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	inMemory        bool
	capConfig       *capability.Config
	provider        capability.Provider
	natsURL         string
	natsToken       string
	natsPrefix      string
	gcs             bool
	gcsOptions      []option.ClientOption
	fileRoot        string
	pipelineOptions []ingestion.Option
	logger          *slog.Logger
}

// InMemory keeps all data in memory. The path passed to NewService is ignored.
func InMemory() ServiceOption {
	return func(o *serviceOptions) { o.inMemory = true }
}

// WithCapabilityConfig sets the OpenAI-compatible capability configuration.
func WithCapabilityConfig(cfg *capability.Config) ServiceOption {
	return func(o *serviceOptions) { o.capConfig = cfg }
}

// WithCapabilities uses provider instead of building one from configuration.
// The service closes it.
func WithCapabilities(provider capability.Provider) ServiceOption {
	return func(o *serviceOptions) { o.provider = provider }
}

// WithNATS publishes job events to a NATS server.
func WithNATS(url, token, subjectPrefix string) ServiceOption {
	return func(o *serviceOptions) {
		o.natsURL = url
		o.natsToken = token
		o.natsPrefix = subjectPrefix
	}
}

// WithGCS enables gs:// payload references.
func WithGCS(opts ...option.ClientOption) ServiceOption {
	return func(o *serviceOptions) {
		o.gcs = true
		o.gcsOptions = opts
	}
}

// WithFileRoot confines file payload references to root.
func WithFileRoot(root string) ServiceOption {
	return func(o *serviceOptions) { o.fileRoot = root }
}

// WithPipelineOptions passes options through to the pipeline.
func WithPipelineOptions(opts ...ingestion.Option) ServiceOption {
	return func(o *serviceOptions) { o.pipelineOptions = append(o.pipelineOptions, opts...) }
}

// WithLogger sets the logger of the service and its components.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) { o.logger = logger }
}

// NewService opens the store at filePath and wires the pipeline.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		capConfig: capability.DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}
	s := &Service{logger: logger, publisher: events.Nop{}}
	stores, err := badger.NewStores(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	s.stores = stores

	if err := s.wire(options); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) wire(options *serviceOptions) error {
	logger := options.logger

	s.provider = options.provider
	if s.provider == nil {
		provider, err := openai.NewProvider(options.capConfig)
		if err != nil {
			return err
		}
		s.provider = provider
	}

	if options.natsURL != "" {
		pub, err := events.NewNATSPublisher(options.natsURL, options.natsToken, options.natsPrefix, logger)
		if err != nil {
			return err
		}
		s.publisher = pub
	}

	media, err := registry.NewMediaHandler(s.provider, registry.WithMediaLogger(logger))
	if err != nil {
		return err
	}
	reg, err := registry.New(registry.Builtin(media)...)
	if err != nil {
		return err
	}

	guard, err := dedup.NewGuard(s.stores.Fingerprints, dedup.WithLogger(logger))
	if err != nil {
		return err
	}

	fetchOpts := []fetch.Option{
		fetch.WithLogger(logger),
		fetch.WithFetcher("file", fetch.NewFileFetcher(options.fileRoot)),
	}
	if options.gcs {
		s.gcs = fetch.NewGCSFetcher(options.gcsOptions...)
		fetchOpts = append(fetchOpts, fetch.WithFetcher("gs", s.gcs))
	}
	router, err := fetch.NewRouter(fetchOpts...)
	if err != nil {
		return err
	}

	pipelineOpts := []ingestion.Option{
		ingestion.WithLogger(logger),
		ingestion.WithCapabilities(s.provider),
		ingestion.WithPublisher(s.publisher),
		ingestion.WithFetcher(router),
	}
	s.pipeline, err = ingestion.NewPipeline(s.stores.Messages, s.stores.Jobs, guard, reg,
		append(pipelineOpts, options.pipelineOptions...)...)
	return err
}

// Close drains the pipeline and releases every resource.
func (s *Service) Close() error {
	var errs []error
	if s.pipeline != nil {
		s.pipeline.Release()
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			s.logger.Error("error closing event publisher", "err", err)
			errs = append(errs, err)
		}
	}
	if s.gcs != nil {
		if err := s.gcs.Close(); err != nil {
			s.logger.Error("error closing GCS client", "err", err)
			errs = append(errs, err)
		}
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing capability provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := s.stores.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Pipeline returns the import pipeline.
func (s *Service) Pipeline() *ingestion.Pipeline {
	return s.pipeline
}

// Messages returns the message store.
func (s *Service) Messages() storage.MessageSink {
	return s.stores.Messages
}

// Jobs returns the job snapshot store.
func (s *Service) Jobs() storage.JobRepository {
	return s.stores.Jobs
}

// NewAPIServer builds the HTTP API over the pipeline.
func (s *Service) NewAPIServer(opts ...api.Option) (*api.Server, error) {
	return api.NewServer(s.pipeline, s.stores.Messages, append([]api.Option{api.WithLogger(s.logger)}, opts...)...)
}

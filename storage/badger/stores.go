package badger

import "github.com/pranavsinghpatil/Open-Acumen-sub001/storage"

// Stores bundles the repositories sharing one backend.
type Stores struct {
	Backend      *Backend
	Messages     storage.MessageSink
	Fingerprints storage.FingerprintStore
	Jobs         storage.JobRepository
}

// Close closes the shared backend.
func (s *Stores) Close() error {
	return s.Backend.Close()
}

// NewStores creates all repositories on backend.
func NewStores(backend *Backend) (*Stores, error) {
	messages, err := NewMessageSink(backend)
	if err != nil {
		return nil, err
	}
	fingerprints, err := NewFingerprintStore(backend)
	if err != nil {
		return nil, err
	}
	jobs, err := NewJobRepository(backend)
	if err != nil {
		return nil, err
	}
	return &Stores{
		Backend:      backend,
		Messages:     messages,
		Fingerprints: fingerprints,
		Jobs:         jobs,
	}, nil
}

package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage"
)

// FingerprintStore implements storage.FingerprintStore for BadgerDB.
// Each operation runs in a single read-write transaction, so two concurrent
// reservations of the same fingerprint cannot both commit.
type FingerprintStore struct {
	backend *Backend
	now     func() time.Time
}

var _ storage.FingerprintStore = (*FingerprintStore)(nil)

// NewFingerprintStore creates a new fingerprint store on backend.
func NewFingerprintStore(backend *Backend) (storage.FingerprintStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	return &FingerprintStore{backend: backend, now: time.Now}, nil
}

// Reserve claims rec.Fingerprint unless another live record holds it.
func (s *FingerprintStore) Reserve(ctx context.Context, rec core.FingerprintRecord, lease time.Duration) (*core.FingerprintRecord, error) {
	var existing *core.FingerprintRecord
	err := s.backend.update(ctx, func(tx *badger.Txn) error {
		existing = nil
		key := makeFingerprintKey(rec.Fingerprint)
		current, err := readFingerprint(tx, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		now := s.now().UTC()
		if current != nil {
			switch {
			case current.State == core.ReservationCommitted:
				existing = current
				return nil
			case current.ItemID != rec.ItemID && now.Sub(current.ReservedAt) < lease:
				existing = current
				return nil
			}
			// Expired lease or the same item retrying: take it over
		}

		rec.State = core.ReservationReserved
		rec.ReservedAt = now
		rec.CommittedAt = time.Time{}
		rec.MessageIDs = nil
		return tx.Set(key, storage.MarshalFingerprintRecord(&rec))
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// Commit marks the reservation held by token as committed.
func (s *FingerprintStore) Commit(ctx context.Context, fingerprint, token string, messageIDs []string) error {
	return s.backend.update(ctx, func(tx *badger.Txn) error {
		key := makeFingerprintKey(fingerprint)
		current, err := readFingerprint(tx, key)
		if err != nil {
			return err
		}
		if current.Token != token {
			return fmt.Errorf("%w: fingerprint %s", storage.ErrTokenMismatch, fingerprint)
		}
		if current.State == core.ReservationCommitted {
			return nil
		}
		current.State = core.ReservationCommitted
		current.MessageIDs = append([]string(nil), messageIDs...)
		current.CommittedAt = s.now().UTC()
		return tx.Set(key, storage.MarshalFingerprintRecord(current))
	})
}

// Release deletes the reservation held by token, if any.
func (s *FingerprintStore) Release(ctx context.Context, fingerprint, token string) error {
	return s.backend.update(ctx, func(tx *badger.Txn) error {
		key := makeFingerprintKey(fingerprint)
		current, err := readFingerprint(tx, key)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current.State != core.ReservationReserved || current.Token != token {
			return nil
		}
		return tx.Delete(key)
	})
}

// Get returns the record stored for fingerprint.
func (s *FingerprintStore) Get(ctx context.Context, fingerprint string) (*core.FingerprintRecord, error) {
	var rec *core.FingerprintRecord
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		var err error
		rec, err = readFingerprint(tx, makeFingerprintKey(fingerprint))
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func readFingerprint(tx *badger.Txn, key []byte) (*core.FingerprintRecord, error) {
	var rec *core.FingerprintRecord
	err := getValue(tx, key, func(val []byte) error {
		var err error
		rec, err = storage.UnmarshalFingerprintRecord(val)
		return err
	})
	return rec, err
}

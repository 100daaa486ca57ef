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

package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage"
)

// DefaultLease bounds how long a reservation blocks other items when its
// holder never commits or releases it.
const DefaultLease = 10 * time.Minute

// Reservation is the outcome of CheckAndReserve.
type Reservation struct {
	Fingerprint string
	Duplicate   bool     // The fingerprint is already committed
	Token       string   // Set when the caller now holds the reservation
	MessageIDs  []string // Stored message IDs of the committed record
	ItemID      string   // Item owning the committed record
}

// Guard is the dedup and idempotency guard.
type Guard struct {
	store    storage.FingerprintStore
	lease    time.Duration
	newToken func() string
	logger   *slog.Logger
}

// Option configures a Guard.
type Option func(*Guard) error

// WithLease sets how long a reservation stays exclusive.
func WithLease(lease time.Duration) Option {
	return func(g *Guard) error {
		if lease <= 0 {
			return ErrInvalidLease
		}
		g.lease = lease
		return nil
	}
}

// WithLogger sets the guard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		g.logger = logger
		return nil
	}
}

// NewGuard creates a guard over store.
func NewGuard(store storage.FingerprintStore, opts ...Option) (*Guard, error) {
	if store == nil {
		return nil, errors.New("fingerprint store is required")
	}
	g := &Guard{
		store:    store,
		lease:    DefaultLease,
		newToken: uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, err
		}
	}
	g.logger = g.logger.With("component", "dedup")
	return g, nil
}

// CheckAndReserve claims fingerprint for itemID. When the fingerprint is
// already committed the returned reservation is a duplicate carrying the
// stored message IDs; no token is issued.
func (g *Guard) CheckAndReserve(ctx context.Context, fingerprint, itemID string) (Reservation, error) {
	rec := core.FingerprintRecord{
		Fingerprint: fingerprint,
		ItemID:      itemID,
		Token:       g.newToken(),
	}
	existing, err := g.store.Reserve(ctx, rec, g.lease)
	if err != nil {
		return Reservation{}, classify(err)
	}

	if existing == nil {
		g.logger.Debug("fingerprint reserved", "fingerprint", fingerprint, "item", itemID)
		return Reservation{Fingerprint: fingerprint, Token: rec.Token, ItemID: itemID}, nil
	}
	if existing.State == core.ReservationCommitted {
		g.logger.Info("duplicate content", "fingerprint", fingerprint, "item", itemID, "owner", existing.ItemID)
		return Reservation{
			Fingerprint: fingerprint,
			Duplicate:   true,
			MessageIDs:  append([]string(nil), existing.MessageIDs...),
			ItemID:      existing.ItemID,
		}, nil
	}
	return Reservation{}, core.Transient(core.CodeDedup,
		fmt.Errorf("%w: %s held by item %s", ErrReservationHeld, fingerprint, existing.ItemID))
}

// Commit records the stored message IDs under the reservation.
func (g *Guard) Commit(ctx context.Context, fingerprint, token string, messageIDs []string) error {
	if err := g.store.Commit(ctx, fingerprint, token, messageIDs); err != nil {
		return classify(err)
	}
	g.logger.Debug("fingerprint committed", "fingerprint", fingerprint, "messages", len(messageIDs))
	return nil
}

// Release drops the reservation so another item can claim the fingerprint.
func (g *Guard) Release(ctx context.Context, fingerprint, token string) error {
	if token == "" {
		return nil
	}
	if err := g.store.Release(ctx, fingerprint, token); err != nil {
		return classify(err)
	}
	g.logger.Debug("fingerprint released", "fingerprint", fingerprint)
	return nil
}

// Lookup returns the record stored for fingerprint, or nil if none.
func (g *Guard) Lookup(ctx context.Context, fingerprint string) (*core.FingerprintRecord, error) {
	rec, err := g.store.Get(ctx, fingerprint)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return rec, nil
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if core.KindOf(err) == core.KindTransient {
		return core.Transient(core.CodeDedup, err)
	}
	return core.Permanent(core.CodeDedup, err)
}

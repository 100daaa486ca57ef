package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage"
)

// MessageSink implements storage.MessageSink for BadgerDB.
type MessageSink struct {
	backend *Backend
}

var _ storage.MessageSink = (*MessageSink)(nil)

// NewMessageSink creates a new message sink on backend.
func NewMessageSink(backend *Backend) (storage.MessageSink, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	return &MessageSink{backend: backend}, nil
}

// WriteMessages upserts msgs for itemID. Messages are written in as few
// transactions as badger's batch size allows; each key is compared before it
// is set, so a partially written item can be rewritten safely.
func (s *MessageSink) WriteMessages(ctx context.Context, itemID string, msgs []core.NormalizedMessage) error {
	for i := range msgs {
		if msgs[i].ImportItemID != itemID {
			return fmt.Errorf("%w: message %s belongs to item %s", core.ErrInvalidMessage, msgs[i].ID, msgs[i].ImportItemID)
		}
	}

	next := 0
	for next < len(msgs) {
		written, err := s.writeBatch(ctx, itemID, msgs[next:])
		if err != nil {
			return err
		}
		next += written
	}
	return nil
}

// writeBatch upserts a prefix of msgs in one transaction and returns its
// length. The prefix ends where the transaction is full.
func (s *MessageSink) writeBatch(ctx context.Context, itemID string, msgs []core.NormalizedMessage) (int, error) {
	written := 0
	err := s.backend.update(ctx, func(tx *badger.Txn) error {
		written = 0
		for i := range msgs {
			msg := &msgs[i]
			key := makeMessageKey(itemID, msg.SequenceIndex)
			value := storage.MarshalMessage(msg)

			var existing []byte
			err := getValue(tx, key, func(val []byte) error {
				existing = bytes.Clone(val)
				return nil
			})
			switch {
			case err == nil:
				if !bytes.Equal(existing, value) {
					return fmt.Errorf("%w: item %s sequence %d", storage.ErrConflict, itemID, msg.SequenceIndex)
				}
			case !errors.Is(err, storage.ErrNotFound):
				return err
			default:
				err := tx.Set(key, value)
				if errors.Is(err, badger.ErrTxnTooBig) && written > 0 {
					return nil
				}
				if err != nil {
					return err
				}
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// GetMessages returns all stored messages of itemID in sequence order.
func (s *MessageSink) GetMessages(ctx context.Context, itemID string) ([]core.NormalizedMessage, error) {
	msgs := make([]core.NormalizedMessage, 0)
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeItemMessagesPrefix(itemID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var msg *core.NormalizedMessage
			err := iter.Item().Value(func(val []byte) error {
				var err error
				msg, err = storage.UnmarshalMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			msgs = append(msgs, *msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

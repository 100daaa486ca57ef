package ingestion

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/normalize"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage"
)

// errCanceled fails an item whose job was canceled.
var errCanceled = core.Permanent(core.CodeCanceled, core.ErrCanceled)

// process runs item i of state through every stage. It never returns an
// error: failures are recorded on the item.
func (p *Pipeline) process(state *jobState, i int) {
	ctx := context.Background()

	p.mu.Lock()
	raw := state.raws[i]
	item := state.job.Items[i]
	p.mu.Unlock()
	if raw == nil {
		return
	}
	logger := p.logger.With("job", item.JobID, "item", item.ID, "platform", raw.Descriptor.Platform)

	var (
		stage   Stage
		handler registry.FormatHandler
		ec      *core.ExtractedContent
		msgs    []core.NormalizedMessage
		res     reservation
	)
	fail := func(err error) {
		if res.token != "" {
			if rerr := p.guard.Release(ctx, res.fingerprint, res.token); rerr != nil {
				logger.Warn("error releasing reservation", "fingerprint", res.fingerprint, "err", rerr)
			}
		}
		logger.Warn("item failed", "stage", stage, "err", err)
		p.failStage(state, i, stage, err)
	}
	enter := func(next Stage, status core.ItemStatus) bool {
		stage = next
		if p.canceled(state) {
			fail(errCanceled)
			return false
		}
		if err := p.transition(state, i, status); err != nil {
			fail(err)
			return false
		}
		return true
	}

	if !enter(StageValidate, core.ItemStatusValidating) {
		return
	}
	h, err := p.validate(ctx, state, i, *raw)
	if err != nil {
		fail(err)
		return
	}
	handler = h

	if !enter(StageExtract, core.ItemStatusExtracting) {
		return
	}
	if ec, err = p.extract(ctx, state, i, handler, *raw, item.TranslateTo); err != nil {
		fail(err)
		return
	}

	if !enter(StageNormalize, core.ItemStatusNormalizing) {
		return
	}
	result, err := p.normalizer.Normalize(ec, normalize.Hint{
		Platform:   raw.Descriptor.Platform,
		ItemID:     item.ID,
		ImportedAt: state.job.CreatedAt,
	})
	if err == nil {
		err = core.ValidateSequence(result.Messages)
	}
	if err != nil {
		fail(err)
		return
	}
	msgs = result.Messages
	p.addWarnings(state, i, result.Warnings...)

	if !enter(StageDedup, core.ItemStatusDeduping) {
		return
	}
	fingerprint := core.Fingerprint(raw.Descriptor.Platform, raw.Checksum, state.job.OwnerID)
	res, err = p.reserve(ctx, state, i, item.ID, fingerprint)
	if err != nil {
		fail(err)
		return
	}
	if res.duplicate || res.owned {
		logger.Info("item already stored", "fingerprint", fingerprint, "owner", res.owner)
		p.complete(state, i, fingerprint, res)
		return
	}

	if !enter(StageStore, core.ItemStatusStoring) {
		return
	}
	ids, err := p.store(ctx, state, i, item.ID, fingerprint, msgs)
	if err != nil {
		fail(err)
		return
	}
	if err := p.guard.Commit(ctx, fingerprint, res.token, ids); err != nil {
		fail(err)
		return
	}
	res.token = ""
	p.complete(state, i, fingerprint, reservation{messageIDs: ids})
	logger.Info("item stored", "messages", len(ids))
}

// reservation is the dedup outcome held while an item is stored.
type reservation struct {
	fingerprint string
	token       string
	duplicate   bool
	owned       bool // Already committed by this item
	owner       string
	messageIDs  []string
}

func (p *Pipeline) reserve(ctx context.Context, state *jobState, i int, itemID, fingerprint string) (reservation, error) {
	var res reservation
	_, err := p.retry.Do(ctx, p.policy(StageDedup), func(ctx context.Context) error {
		p.bumpAttempts(state, i)
		r, err := p.guard.CheckAndReserve(ctx, fingerprint, itemID)
		if err != nil {
			return err
		}
		res = reservation{fingerprint: fingerprint, token: r.Token, messageIDs: r.MessageIDs}
		switch {
		case r.Duplicate && r.ItemID == itemID:
			// Committed by an earlier run of this same item.
			res.owned = true
		case r.Duplicate:
			res.duplicate = true
			res.owner = r.ItemID
		}
		return nil
	})
	return res, err
}

// store writes msgs under retry. A conflict is accepted when the fingerprint
// was committed with exactly these message IDs.
func (p *Pipeline) store(ctx context.Context, state *jobState, i int, itemID, fingerprint string, msgs []core.NormalizedMessage) ([]string, error) {
	ids := make([]string, len(msgs))
	for j, m := range msgs {
		ids[j] = m.ID
	}
	_, err := p.retry.Do(ctx, p.policy(StageStore), func(ctx context.Context) error {
		p.bumpAttempts(state, i)
		err := p.messages.WriteMessages(ctx, itemID, msgs)
		if err == nil {
			return nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			if core.KindOf(err) == core.KindTransient {
				return core.Transient(core.CodeStorage, err)
			}
			return err
		}
		rec, lerr := p.guard.Lookup(ctx, fingerprint)
		if lerr != nil {
			return lerr
		}
		if rec != nil && rec.State == core.ReservationCommitted && slices.Equal(rec.MessageIDs, ids) {
			return nil
		}
		return core.Permanent(core.CodeStorageConflict, fmt.Errorf("item %s: %w", itemID, err))
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// complete moves item i to Done. A reservation carrying an owner marks the
// item as a duplicate of that owner.
func (p *Pipeline) complete(state *jobState, i int, fingerprint string, res reservation) {
	err := p.update(state, i, func(it *core.ImportItem) error {
		if err := it.Transition(core.ItemStatusDone); err != nil {
			return err
		}
		it.Fingerprint = fingerprint
		it.MessageIDs = append([]string(nil), res.messageIDs...)
		it.Duplicate = res.duplicate
		if res.duplicate {
			it.DuplicateOf = res.owner
		}
		it.LastError = nil
		return nil
	})
	if err != nil {
		p.logger.Error("error completing item", "job", state.job.ID, "index", i, "err", err)
	}
}

func (p *Pipeline) bumpAttempts(state *jobState, i int) {
	p.mu.Lock()
	state.job.Items[i].Attempts++
	p.mu.Unlock()
}

// failStage records err as the terminal failure of item i.
func (p *Pipeline) failStage(state *jobState, i int, stage Stage, err error) {
	if errors.Is(err, core.ErrInvalidTransition) {
		p.logger.Error("invalid item transition", "job", state.job.ID, "index", i, "err", err)
	}
	uerr := p.update(state, i, func(it *core.ImportItem) error {
		attempts := max(it.Attempts, 1)
		if err := it.Transition(core.ItemStatusFailed); err != nil {
			return err
		}
		it.Attempts = attempts
		it.LastError = core.NewItemError(err, stage.fallbackCode(), attempts)
		return nil
	})
	if uerr != nil {
		p.logger.Error("error failing item", "job", state.job.ID, "index", i, "err", uerr)
	}
}

// failItem fails item i outside of stage processing.
func (p *Pipeline) failItem(state *jobState, i int, err error) {
	p.failStage(state, i, StageValidate, err)
}

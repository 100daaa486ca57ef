package ingestion

import (
	"context"
	"fmt"
	"strings"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
)

// validate resolves the handler of raw and checks the payload against its
// declared size, declared checksum and format structure.
func (p *Pipeline) validate(ctx context.Context, state *jobState, i int, raw core.RawContent) (registry.FormatHandler, error) {
	var handler registry.FormatHandler
	_, err := p.retry.Do(ctx, p.policy(StageValidate), func(ctx context.Context) error {
		p.bumpAttempts(state, i)
		h, err := p.registry.Resolve(raw.Descriptor)
		if err != nil {
			return err
		}
		if err := p.checkPayload(raw); err != nil {
			return err
		}
		if err := h.Validate(raw); err != nil {
			return err
		}
		handler = h
		return nil
	})
	return handler, err
}

func (p *Pipeline) checkPayload(raw core.RawContent) error {
	size := int64(len(raw.Data))
	if size == 0 {
		return core.Permanent(core.CodeValidation, core.ErrEmptyPayload)
	}
	if size > p.maxPayloadBytes {
		return core.Permanent(core.CodeValidation,
			fmt.Errorf("%w: %d bytes exceeds limit of %d", core.ErrOversized, size, p.maxPayloadBytes))
	}
	if raw.DeclaredSize > 0 {
		switch {
		case size < raw.DeclaredSize:
			return core.Permanent(core.CodeValidation,
				fmt.Errorf("%w: got %d of %d bytes", core.ErrTruncated, size, raw.DeclaredSize))
		case size > raw.DeclaredSize:
			return core.Permanent(core.CodeValidation,
				fmt.Errorf("%w: got %d bytes, declared %d", core.ErrChecksumMismatch, size, raw.DeclaredSize))
		}
	}
	checksum := core.Checksum(raw.Data)
	if raw.Checksum != "" && raw.Checksum != checksum {
		return core.Permanent(core.CodeValidation,
			fmt.Errorf("%w: content changed after submission", core.ErrChecksumMismatch))
	}
	if raw.DeclaredChecksum != "" && !strings.EqualFold(raw.DeclaredChecksum, checksum) {
		return core.Permanent(core.CodeValidation,
			fmt.Errorf("%w: declared %s, computed %s", core.ErrChecksumMismatch, raw.DeclaredChecksum, checksum))
	}
	return nil
}

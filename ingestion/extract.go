package ingestion

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/registry"
)

// translateParallel bounds concurrent translation requests per item.
const translateParallel = 4

// extract runs the handler under the extract policy and, when the item asks
// for it, translates every entry. Translation is best-effort: entries that
// cannot be translated keep their text and add a warning.
func (p *Pipeline) extract(ctx context.Context, state *jobState, i int, handler registry.FormatHandler, raw core.RawContent, target string) (*core.ExtractedContent, error) {
	var ec *core.ExtractedContent
	_, err := p.retry.Do(ctx, p.policy(StageExtract), func(ctx context.Context) error {
		p.bumpAttempts(state, i)
		out, err := handler.Extract(ctx, raw)
		if err != nil {
			return err
		}
		ec = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ec == nil {
		return nil, core.Permanent(core.CodeExtraction, fmt.Errorf("handler %s returned no content", handler.Name()))
	}
	p.addWarnings(state, i, ec.Warnings...)
	ec.Warnings = nil

	target = strings.TrimSpace(target)
	if target == "" {
		return ec, nil
	}
	warnings, err := p.translate(ctx, ec, target)
	if err != nil {
		return nil, err
	}
	p.addWarnings(state, i, warnings...)
	return ec, nil
}

// translate rewrites entry texts into target in place.
func (p *Pipeline) translate(ctx context.Context, ec *core.ExtractedContent, target string) ([]string, error) {
	var svc capability.Service
	if p.capabilities != nil {
		svc, _ = p.capabilities.Service(capability.KindTranslation)
	}
	if svc == nil {
		return []string{fmt.Sprintf("translation to %s skipped: service unavailable", target)}, nil
	}

	var (
		mu       sync.Mutex
		warnings []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(translateParallel)
	for j := range ec.Entries {
		entry := &ec.Entries[j]
		if strings.TrimSpace(entry.TextRaw) == "" {
			continue
		}
		g.Go(func() error {
			var out *capability.Result
			_, err := p.retry.Do(gctx, p.policy(StageTranslate), func(ctx context.Context) error {
				res, err := svc.Process(ctx, capability.Request{
					Kind:           capability.KindTranslation,
					Text:           entry.TextRaw,
					TargetLanguage: target,
				})
				if err != nil {
					return capability.Classify(err)
				}
				out = res
				return nil
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("entry %d not translated: %v", j, err))
				mu.Unlock()
				return nil
			}
			if out == nil || strings.TrimSpace(out.Text) == "" {
				return nil
			}
			meta := maps.Clone(entry.Metadata)
			if meta == nil {
				meta = make(map[string]string, 2)
			}
			meta["original_text"] = entry.TextRaw
			meta["translated_to"] = target
			entry.Metadata = meta
			entry.TextRaw = out.Text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return warnings, nil
}

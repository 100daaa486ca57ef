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
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/adapter"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/events"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage"
)

// ImportJobSpec is a job submission.
type ImportJobSpec struct {
	OwnerID string
	Items   []ItemSpec
}

// ItemSpec describes one submitted payload. Exactly one of PayloadRef and
// InlinePayload must be set.
type ItemSpec struct {
	Platform         string
	Format           string
	MIMEType         string
	PayloadRef       string
	InlinePayload    []byte
	DeclaredSize     int64
	DeclaredChecksum string
	TranslateTo      string
	Title            string
	Metadata         map[string]string
}

func (s ItemSpec) descriptor() core.Descriptor {
	return core.Descriptor{
		Platform:  strings.ToLower(strings.TrimSpace(s.Platform)),
		Format:    strings.ToLower(strings.TrimSpace(s.Format)),
		MIMEType:  s.MIMEType,
		SourceURI: s.PayloadRef,
	}
}

// Validate checks the submission shape.
func (s ImportJobSpec) Validate() error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return fmt.Errorf("%w: owner id is required", ErrInvalidJobSpec)
	}
	if len(s.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidJobSpec)
	}
	for i, it := range s.Items {
		if strings.TrimSpace(it.Platform) == "" {
			return fmt.Errorf("%w: item %d: platform is required", ErrInvalidJobSpec, i)
		}
		hasRef, hasInline := it.PayloadRef != "", len(it.InlinePayload) > 0
		if hasRef == hasInline {
			return fmt.Errorf("%w: item %d: exactly one of payloadRef and inlinePayload is required", ErrInvalidJobSpec, i)
		}
		if it.DeclaredSize < 0 {
			return fmt.Errorf("%w: item %d: negative declared size", ErrInvalidJobSpec, i)
		}
	}
	return nil
}

// jobState is the in-memory record of a running job. Item i of job is
// processed from raws[i].
type jobState struct {
	job       *core.ImportJob
	raws      []*core.RawContent
	remaining int
	done      chan struct{}
	saveMu    sync.Mutex
}

// resolved is the outcome of resolving one ItemSpec.
type resolved struct {
	spec ItemSpec
	raws []core.RawContent
	err  error
}

// Submit records a job and schedules its items. Items whose payload cannot
// be fetched or translated are recorded as failed; they never fail the
// submission.
func (p *Pipeline) Submit(ctx context.Context, spec ImportJobSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	p.mu.Lock()
	closed := p.closed
	if !closed {
		p.inflight.Add(1)
	}
	p.mu.Unlock()
	if closed {
		return "", ErrPipelineClosed
	}
	defer p.inflight.Done()

	results := p.resolveAll(ctx, spec.Items)
	if err := ctx.Err(); err != nil {
		return "", err
	}

	now := p.now().UTC()
	job := &core.ImportJob{
		ID:        p.newID(),
		OwnerID:   spec.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	state := &jobState{job: job, done: make(chan struct{})}
	for _, res := range results {
		if res.err != nil {
			job.Items = append(job.Items, core.ImportItem{
				ID:          p.newID(),
				JobID:       job.ID,
				Descriptor:  res.spec.descriptor(),
				Title:       res.spec.Title,
				Status:      core.ItemStatusFailed,
				LastError:   core.NewItemError(res.err, core.CodeSourceUnavailable, 1),
				TranslateTo: res.spec.TranslateTo,
				UpdatedAt:   now,
			})
			state.raws = append(state.raws, nil)
			continue
		}
		for _, raw := range res.raws {
			job.Items = append(job.Items, core.ImportItem{
				ID:          p.newID(),
				JobID:       job.ID,
				Descriptor:  raw.Descriptor,
				Title:       raw.Title,
				Status:      core.ItemStatusQueued,
				TranslateTo: res.spec.TranslateTo,
				UpdatedAt:   now,
			})
			state.raws = append(state.raws, &raw)
			state.remaining++
		}
	}
	job.Status = core.ComputeJobStatus(job.Items)

	p.mu.Lock()
	p.active[job.ID] = state
	p.mu.Unlock()

	p.persist(state)
	p.publish(events.Event{
		Type:      events.TypeJobSubmitted,
		JobID:     job.ID,
		OwnerID:   job.OwnerID,
		Status:    string(job.Status),
		JobStatus: string(job.Status),
		Time:      now,
	})
	p.logger.Info("job submitted", "job", job.ID, "owner", job.OwnerID, "specs", len(spec.Items), "items", len(job.Items))

	if state.remaining == 0 {
		p.finish(state)
		return job.ID, nil
	}

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		p.dispatch(state)
	}()
	return job.ID, nil
}

// resolveAll fetches and translates every spec, in parallel.
func (p *Pipeline) resolveAll(ctx context.Context, specs []ItemSpec) []resolved {
	results := make([]resolved, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.fetchParallel)
	for i, spec := range specs {
		g.Go(func() error {
			results[i] = p.resolve(gctx, spec)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Pipeline) resolve(ctx context.Context, spec ItemSpec) resolved {
	res := resolved{spec: spec}
	desc := spec.descriptor()

	data := spec.InlinePayload
	if spec.PayloadRef != "" {
		var fetched []byte
		_, err := p.retry.Do(ctx, p.policy(StageFetch), func(ctx context.Context) error {
			r, err := p.fetcher.Fetch(ctx, spec.PayloadRef)
			if err != nil {
				return err
			}
			fetched = r.Data
			if desc.MIMEType == "" {
				desc.MIMEType = r.MIMEType
			}
			return nil
		})
		if err != nil {
			res.err = err
			return res
		}
		data = fetched
	}

	raws, err := p.adapters.Translate(adapter.Payload{
		Descriptor:       desc,
		Data:             data,
		DeclaredSize:     spec.DeclaredSize,
		DeclaredChecksum: spec.DeclaredChecksum,
		Title:            spec.Title,
		Metadata:         spec.Metadata,
	})
	if err != nil {
		res.err = err
		return res
	}
	res.raws = raws
	return res
}

// dispatch hands queued items to the worker pools.
func (p *Pipeline) dispatch(state *jobState) {
	p.mu.Lock()
	raws := slices.Clone(state.raws)
	p.mu.Unlock()

	for i, raw := range raws {
		if raw == nil {
			continue
		}
		pool := p.textPool
		if h, err := p.registry.Resolve(raw.Descriptor); err == nil && h.Media() {
			pool = p.mediaPool
		}

		p.inflight.Add(1)
		err := pool.Submit(func() {
			defer p.inflight.Done()
			p.process(state, i)
		})
		if err != nil {
			p.inflight.Done()
			p.failItem(state, i, core.Transient(core.CodeStorage, fmt.Errorf("schedule item: %w", err)))
		}
	}
}

// GetStatus returns a snapshot of the job. Jobs not held in memory are read
// from the job repository.
func (p *Pipeline) GetStatus(ctx context.Context, jobID string) (*core.ImportJob, error) {
	p.mu.Lock()
	state, ok := p.active[jobID]
	var snapshot *core.ImportJob
	if ok {
		snapshot = state.job.Clone()
	}
	p.mu.Unlock()
	if ok {
		return snapshot, nil
	}

	job, err := p.jobs.LoadJob(ctx, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, err
}

// Cancel requests cancellation of a job. Items finish the stage they are in
// and then fail with code Canceled. Canceling a finished job is a no-op.
func (p *Pipeline) Cancel(ctx context.Context, jobID string) error {
	p.mu.Lock()
	state, ok := p.active[jobID]
	requested := false
	if ok && !state.job.CancelRequested && !state.job.Status.IsTerminal() {
		state.job.CancelRequested = true
		state.job.UpdatedAt = p.now().UTC()
		requested = true
	}
	p.mu.Unlock()

	if !ok {
		if _, err := p.GetStatus(ctx, jobID); err != nil {
			return err
		}
		return nil
	}
	if requested {
		p.persist(state)
		p.publish(events.Event{Type: events.TypeJobCancelRequested, JobID: jobID, Status: "cancel_requested", Time: p.now().UTC()})
		p.logger.Info("cancel requested", "job", jobID)
	}
	return nil
}

// Wait blocks until the job reaches a terminal status and returns it.
func (p *Pipeline) Wait(ctx context.Context, jobID string) (*core.ImportJob, error) {
	p.mu.Lock()
	state, ok := p.active[jobID]
	p.mu.Unlock()
	if !ok {
		return p.GetStatus(ctx, jobID)
	}

	select {
	case <-state.done:
		return p.GetStatus(ctx, jobID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *Pipeline) canceled(state *jobState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return state.job.CancelRequested
}

// update applies fn to item i under the pipeline lock, then persists and
// publishes the new state.
func (p *Pipeline) update(state *jobState, i int, fn func(it *core.ImportItem) error) error {
	p.mu.Lock()
	it := &state.job.Items[i]
	if err := fn(it); err != nil {
		p.mu.Unlock()
		return err
	}
	now := p.now().UTC()
	it.UpdatedAt = now
	state.job.UpdatedAt = now
	state.job.Status = core.ComputeJobStatus(state.job.Items)
	ev := events.Event{
		Type:      events.TypeItemStatus,
		JobID:     state.job.ID,
		OwnerID:   state.job.OwnerID,
		ItemID:    it.ID,
		Status:    string(it.Status),
		JobStatus: string(state.job.Status),
		Attempts:  it.Attempts,
		Duplicate: it.Duplicate,
		Time:      now,
	}
	if it.LastError != nil {
		ev.ErrorCode = string(it.LastError.Code)
	}
	finished := false
	if it.Status.IsTerminal() {
		state.raws[i] = nil
		state.remaining--
		finished = state.remaining == 0
	}
	p.mu.Unlock()

	p.persist(state)
	p.publish(ev)
	if finished {
		p.finish(state)
	}
	return nil
}

// transition moves item i to status.
func (p *Pipeline) transition(state *jobState, i int, status core.ItemStatus) error {
	return p.update(state, i, func(it *core.ImportItem) error {
		return it.Transition(status)
	})
}

// setAttempts records the attempt count of the current stage.
func (p *Pipeline) setAttempts(state *jobState, i, n int) {
	p.mu.Lock()
	state.job.Items[i].Attempts = n
	p.mu.Unlock()
}

func (p *Pipeline) addWarnings(state *jobState, i int, warnings ...string) {
	if len(warnings) == 0 {
		return
	}
	p.mu.Lock()
	state.job.Items[i].Warnings = append(state.job.Items[i].Warnings, warnings...)
	p.mu.Unlock()
}

func (p *Pipeline) finish(state *jobState) {
	p.mu.Lock()
	job := state.job
	status := job.Status
	p.finished = append(p.finished, job.ID)
	var evicted []string
	for len(p.finished) > p.maxRetained {
		evicted = append(evicted, p.finished[0])
		p.finished = p.finished[1:]
	}
	for _, id := range evicted {
		delete(p.active, id)
	}
	p.mu.Unlock()

	close(state.done)
	p.publish(events.Event{
		Type:      events.TypeJobFinished,
		JobID:     job.ID,
		OwnerID:   job.OwnerID,
		Status:    string(status),
		JobStatus: string(status),
		Time:      p.now().UTC(),
	})
	p.logger.Info("job finished", "job", job.ID, "status", status)
}

// persist stores the latest snapshot of the job. Saves of one job are
// serialized so a stale snapshot never overwrites a newer one.
func (p *Pipeline) persist(state *jobState) {
	state.saveMu.Lock()
	defer state.saveMu.Unlock()

	p.mu.Lock()
	snapshot := state.job.Clone()
	p.mu.Unlock()

	if err := p.jobs.SaveJob(context.Background(), snapshot); err != nil {
		p.logger.Error("error saving job snapshot", "job", snapshot.ID, "err", err)
	}
}

func (p *Pipeline) publish(ev events.Event) {
	if err := p.publisher.Publish(context.Background(), ev); err != nil {
		p.logger.Warn("error publishing event", "type", ev.Type, "job", ev.JobID, "err", err)
	}
}

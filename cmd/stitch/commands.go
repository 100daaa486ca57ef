package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/api"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/events"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/ingestion"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/storage/badger"
)

// pollInterval is how often import refreshes its progress display.
const pollInterval = 250 * time.Millisecond

func pipelineOptions(c *cli.Context) []ingestion.Option {
	var opts []ingestion.Option
	if n := c.Int("text-workers"); n > 0 {
		opts = append(opts, ingestion.WithTextPoolSize(n))
	}
	if n := c.Int("media-workers"); n > 0 {
		opts = append(opts, ingestion.WithMediaPoolSize(n))
	}
	return opts
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	srv, err := svc.NewAPIServer(api.WithToken(c.String("api-token")))
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}
	return srv.ListenAndServe(ctx, c.String("addr"))
}

func importCommand(c *cli.Context) error {
	refs := c.Args().Slice()
	if len(refs) == 0 {
		return fmt.Errorf("at least one file or reference is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	spec := ingestion.ImportJobSpec{OwnerID: c.String("owner")}
	for _, ref := range refs {
		format := c.String("format")
		if format == "" {
			format = formatOf(ref)
		}
		spec.Items = append(spec.Items, ingestion.ItemSpec{
			Platform:    c.String("platform"),
			Format:      format,
			PayloadRef:  ref,
			TranslateTo: c.String("translate-to"),
			Title:       c.String("title"),
		})
	}

	pipeline := svc.Pipeline()
	jobID, err := pipeline.Submit(ctx, spec)
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Job: %s\n", jobID)

	job, err := track(ctx, pipeline, jobID, newProgressTracker(c.App.ErrWriter))
	if err != nil {
		return err
	}
	printJob(c.App.Writer, job)
	if job.Status == core.JobStatusFailed {
		return fmt.Errorf("job %s failed", jobID)
	}
	return nil
}

// track polls the job until it finishes, reporting finished items.
func track(ctx context.Context, pipeline *ingestion.Pipeline, jobID string, progress *progressTracker) (*core.ImportJob, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		job, err := pipeline.GetStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if !progress.Started() {
			progress.Start(len(job.Items))
		}
		progress.Update(finishedItems(job))
		if job.Status.IsTerminal() {
			progress.Finish()
			return job, nil
		}

		select {
		case <-ctx.Done():
			if err := pipeline.Cancel(context.Background(), jobID); err != nil {
				return nil, err
			}
			return pipeline.Wait(context.Background(), jobID)
		case <-ticker.C:
		}
	}
}

func finishedItems(job *core.ImportJob) int {
	n := 0
	for _, it := range job.Items {
		if it.Status.IsTerminal() {
			n++
		}
	}
	return n
}

// formatOf derives a format from a file name or reference.
func formatOf(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 && strings.Contains(ref, "://") {
		ref = ref[:i]
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(ref), "."))
}

func printJob(w io.Writer, job *core.ImportJob) {
	fmt.Fprintf(w, "Job %s (%s): %s\n", job.ID, job.OwnerID, job.Status)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPLATFORM\tFORMAT\tSTATUS\tMESSAGES\tNOTE")
	for _, it := range job.Items {
		note := ""
		switch {
		case it.LastError != nil:
			note = fmt.Sprintf("%s: %s", it.LastError.Code, it.LastError.Message)
		case it.Duplicate:
			note = "duplicate of " + it.DuplicateOf
		case len(it.Warnings) > 0:
			note = fmt.Sprintf("%d warnings", len(it.Warnings))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			it.ID, it.Descriptor.Platform, it.Descriptor.Format, it.Status, len(it.MessageIDs), note)
	}
	tw.Flush()
}

func openStores(c *cli.Context) (*badger.Stores, error) {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	stores, err := badger.NewStores(backend)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to create stores: %w", err)
	}
	return stores, nil
}

func statusCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("job id is required")
	}
	stores, err := openStores(c)
	if err != nil {
		return err
	}
	defer stores.Close()

	job, err := stores.Jobs.LoadJob(c.Context, c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(api.NewJobResponse(job))
}

func jobsCommand(c *cli.Context) error {
	stores, err := openStores(c)
	if err != nil {
		return err
	}
	defer stores.Close()

	jobs, err := stores.Jobs.ListJobs(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tOWNER\tSTATUS\tITEMS\tCREATED")
	for _, job := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", job.ID, job.OwnerID, job.Status, len(job.Items), job.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func messagesCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("job id and item id are required")
	}
	stores, err := openStores(c)
	if err != nil {
		return err
	}
	defer stores.Close()

	job, err := stores.Jobs.LoadJob(c.Context, c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	itemID := c.Args().Get(1)
	source := ""
	for _, it := range job.Items {
		if it.ID == itemID {
			source = it.ID
			if it.Duplicate && it.DuplicateOf != "" {
				source = it.DuplicateOf
			}
		}
	}
	if source == "" {
		return fmt.Errorf("%w: %s", api.ErrItemNotFound, itemID)
	}

	msgs, err := stores.Messages.GetMessages(c.Context, source)
	if err != nil {
		return fmt.Errorf("failed to read messages: %w", err)
	}
	enc := json.NewEncoder(c.App.Writer)
	for _, m := range api.NewMessageResponses(msgs) {
		if err := enc.Encode(m); err != nil {
			return err
		}
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := events.NewNATSPublisher(c.String("nats-url"), c.String("nats-token"), c.String("nats-prefix"), nil)
	if err != nil {
		return err
	}
	defer sub.Close()

	enc := json.NewEncoder(c.App.Writer)
	if err := sub.Subscribe(func(ev events.Event) {
		_ = enc.Encode(ev)
	}); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

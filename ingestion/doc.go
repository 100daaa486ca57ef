// Package ingestion orchestrates import jobs.
//
// Submit resolves each item's payload (inline bytes or a payload reference),
// translates it with the matching platform adapter and records the job.
// Every resulting item then moves through the stages
//
//	Queued -> Validating -> Extracting -> Normalizing -> Deduping -> Storing -> Done
//
// on a bounded worker pool, failing into Failed with a classified error at
// any stage. Items are independent: one failure never blocks the others,
// and the job status is always derived from its items.
//
// Each stage runs under its own retry policy. Media items run on a separate
// pool from text items so slow capability calls cannot starve text imports.
// Cancellation is cooperative and checked between stages.
package ingestion

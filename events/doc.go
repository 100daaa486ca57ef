// Package events publishes import progress.
//
// The pipeline emits an Event whenever a job is submitted, an item changes
// status, or a job reaches a terminal status. Publishers are best effort:
// a failed publish is logged by the caller and never affects the import.
package events

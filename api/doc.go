// Package api serves the import pipeline over HTTP.
//
// Routes:
//
//	POST /import-jobs                                  submit a job, 202 {jobId}
//	GET  /import-jobs/{jobId}                          job and item status
//	POST /import-jobs/{jobId}/cancel                   request cancellation
//	GET  /import-jobs/{jobId}/items/{itemId}/messages  normalized messages of an item
//	GET  /import-jobs/{jobId}/stats                    statistics over a job's messages
//	GET  /health                                       liveness
package api

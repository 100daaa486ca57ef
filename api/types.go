package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pranavsinghpatil/Open-Acumen-sub001/core"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/ingestion"
)

// SubmitRequest is the body of POST /import-jobs.
type SubmitRequest struct {
	OwnerID string        `json:"ownerId"`
	Items   []ItemRequest `json:"items"`
}

// ItemRequest describes one submitted payload. InlinePayload is either a
// JSON document embedded as-is or a string. Strings are decoded as base64
// when InlineEncoding is "base64".
type ItemRequest struct {
	Platform         string            `json:"platform"`
	Format           string            `json:"format,omitempty"`
	MIMEType         string            `json:"mimeType,omitempty"`
	PayloadRef       string            `json:"payloadRef,omitempty"`
	InlinePayload    json.RawMessage   `json:"inlinePayload,omitempty"`
	InlineEncoding   string            `json:"inlineEncoding,omitempty"`
	DeclaredSize     int64             `json:"declaredSize,omitempty"`
	DeclaredChecksum string            `json:"declaredChecksum,omitempty"`
	TranslateTo      string            `json:"translateTo,omitempty"`
	Title            string            `json:"title,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Spec converts the request into a pipeline submission.
func (r SubmitRequest) Spec() (ingestion.ImportJobSpec, error) {
	spec := ingestion.ImportJobSpec{OwnerID: r.OwnerID, Items: make([]ingestion.ItemSpec, 0, len(r.Items))}
	for i, it := range r.Items {
		payload, err := it.payload()
		if err != nil {
			return spec, fmt.Errorf("item %d: %w", i, err)
		}
		spec.Items = append(spec.Items, ingestion.ItemSpec{
			Platform:         it.Platform,
			Format:           it.Format,
			MIMEType:         it.MIMEType,
			PayloadRef:       it.PayloadRef,
			InlinePayload:    payload,
			DeclaredSize:     it.DeclaredSize,
			DeclaredChecksum: it.DeclaredChecksum,
			TranslateTo:      it.TranslateTo,
			Title:            it.Title,
			Metadata:         it.Metadata,
		})
	}
	return spec, nil
}

func (it ItemRequest) payload() ([]byte, error) {
	raw := bytes.TrimSpace(it.InlinePayload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] != '"' {
		if it.InlineEncoding != "" {
			return nil, fmt.Errorf("%w: encoding %q requires a string payload", ErrInvalidPayload, it.InlineEncoding)
		}
		return raw, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	switch it.InlineEncoding {
	case "":
		return []byte(s), nil
	case "base64":
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrInvalidPayload, it.InlineEncoding)
	}
}

// SubmitResponse is returned by POST /import-jobs.
type SubmitResponse struct {
	JobID string `json:"jobId"`
}

// JobResponse is the status view of a job.
type JobResponse struct {
	JobID           string         `json:"jobId"`
	OwnerID         string         `json:"ownerId"`
	Status          core.JobStatus `json:"status"`
	CancelRequested bool           `json:"cancelRequested,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	Items           []ItemResponse `json:"items"`
}

// ItemResponse is the status view of one item.
type ItemResponse struct {
	ItemID      string          `json:"itemId"`
	Platform    string          `json:"platform"`
	Format      string          `json:"format"`
	Title       string          `json:"title,omitempty"`
	Status      core.ItemStatus `json:"status"`
	Attempt     int             `json:"attempt"`
	Duplicate   bool            `json:"duplicate"`
	DuplicateOf string          `json:"duplicateOf,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Error       *ErrorResponse  `json:"error,omitempty"`
	MessageIDs  []string        `json:"messageIds,omitempty"`
}

// ErrorResponse is a classified item failure.
type ErrorResponse struct {
	Code     core.ErrorCode `json:"code"`
	Kind     core.ErrorKind `json:"kind"`
	Message  string         `json:"message"`
	Attempts int            `json:"attempts"`
}

// NewJobResponse builds the status view of job.
func NewJobResponse(job *core.ImportJob) JobResponse {
	resp := JobResponse{
		JobID:           job.ID,
		OwnerID:         job.OwnerID,
		Status:          job.Status,
		CancelRequested: job.CancelRequested,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		Items:           make([]ItemResponse, len(job.Items)),
	}
	for i, it := range job.Items {
		item := ItemResponse{
			ItemID:      it.ID,
			Platform:    it.Descriptor.Platform,
			Format:      it.Descriptor.Format,
			Title:       it.Title,
			Status:      it.Status,
			Attempt:     it.Attempts,
			Duplicate:   it.Duplicate,
			DuplicateOf: it.DuplicateOf,
			Warnings:    it.Warnings,
			MessageIDs:  it.MessageIDs,
		}
		if e := it.LastError; e != nil {
			item.Error = &ErrorResponse{Code: e.Code, Kind: e.Kind, Message: e.Message, Attempts: e.Attempts}
		}
		resp.Items[i] = item
	}
	return resp
}

// MessageResponse is one normalized message.
type MessageResponse struct {
	ID             string            `json:"id"`
	ImportItemID   string            `json:"importItemId"`
	SequenceIndex  int               `json:"sequenceIndex"`
	Speaker        string            `json:"speaker"`
	Content        string            `json:"content"`
	ContentType    core.ContentType  `json:"contentType"`
	Timestamp      time.Time         `json:"timestamp"`
	SourceMetadata map[string]string `json:"sourceMetadata,omitempty"`
}

// MessagesResponse lists the messages of an item.
type MessagesResponse struct {
	ItemID   string            `json:"itemId"`
	SourceID string            `json:"sourceItemId,omitempty"` // Owning item when the item is a duplicate
	Messages []MessageResponse `json:"messages"`
}

// NewMessageResponses builds the API view of msgs.
func NewMessageResponses(msgs []core.NormalizedMessage) []MessageResponse {
	out := make([]MessageResponse, len(msgs))
	for i, m := range msgs {
		out[i] = MessageResponse{
			ID:             m.ID,
			ImportItemID:   m.ImportItemID,
			SequenceIndex:  m.SequenceIndex,
			Speaker:        m.Speaker,
			Content:        m.Content,
			ContentType:    m.ContentType,
			Timestamp:      m.Timestamp,
			SourceMetadata: m.SourceMetadata,
		}
	}
	return out
}

// StatsResponse summarizes the messages of a job.
type StatsResponse struct {
	JobID             string                   `json:"jobId"`
	Items             int                      `json:"items"`
	MessageCount      int                      `json:"messageCount"`
	SpeakerCounts     map[string]int           `json:"speakerCounts"`
	PlatformCounts    map[string]int           `json:"platformCounts"`
	ContentTypeCounts map[core.ContentType]int `json:"contentTypeCounts"`
	QuestionCount     int                      `json:"questionCount"`
	AvgWordCount      float64                  `json:"avgWordCount"`
}

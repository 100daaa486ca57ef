package core

import (
	"reflect"
	"testing"
	"time"
)

func TestNormalizedMessageMUS(t *testing.T) {
	msg := validMessage()
	msg.SourceMetadata = map[string]string{"platform": "chatgpt", "word_count": "2"}

	bs := make([]byte, NormalizedMessageMUS.Size(msg))
	n := NormalizedMessageMUS.Marshal(msg, bs)
	if n != len(bs) {
		t.Fatalf("Marshal() wrote %d bytes, Size() = %d", n, len(bs))
	}

	got, n, err := NormalizedMessageMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if n != len(bs) {
		t.Errorf("Unmarshal() read %d bytes, want %d", n, len(bs))
	}
	if !reflect.DeepEqual(got, msg) {
		t.Errorf("Unmarshal() = %+v, want %+v", got, msg)
	}
}

func TestImportJobMUS(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	job := ImportJob{
		ID:        "job-1",
		OwnerID:   "owner",
		Status:    JobStatusPartiallyFailed,
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
		Items: []ImportItem{
			{
				ID:          "item-1",
				JobID:       "job-1",
				Descriptor:  Descriptor{Platform: "chatgpt", Format: "json"},
				Status:      ItemStatusDone,
				MessageIDs:  []string{"a", "b"},
				Duplicate:   true,
				DuplicateOf: "item-0",
				UpdatedAt:   now,
			},
			{
				ID:        "item-2",
				JobID:     "job-1",
				Status:    ItemStatusFailed,
				Warnings:  []string{"diarization unavailable"},
				LastError: &ItemError{Code: CodeExhaustedRetries, Kind: KindPermanent, Message: "gave up", Attempts: 4},
			},
		},
	}

	bs := make([]byte, ImportJobMUS.Size(job))
	ImportJobMUS.Marshal(job, bs)

	got, _, err := ImportJobMUS.Unmarshal(bs)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(got, job) {
		t.Errorf("Unmarshal() = %+v, want %+v", got, job)
	}
}

func TestFingerprintRecordMUS_Truncated(t *testing.T) {
	rec := FingerprintRecord{
		Fingerprint: "fp",
		State:       ReservationCommitted,
		ItemID:      "item-1",
		MessageIDs:  []string{"m1"},
		ReservedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	bs := make([]byte, FingerprintRecordMUS.Size(rec))
	FingerprintRecordMUS.Marshal(rec, bs)

	if _, _, err := FingerprintRecordMUS.Unmarshal(bs[:len(bs)/2]); err == nil {
		t.Error("Unmarshal() of truncated buffer error = nil, want error")
	}
}

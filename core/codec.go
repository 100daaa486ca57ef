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

package core

import (
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the values kept in storage. Field order is part of
// the on-disk format: append new fields at the end only.
var (
	NormalizedMessageMUS = normalizedMessageMUS{}
	ImportJobMUS         = importJobMUS{}
	FingerprintRecordMUS = fingerprintRecordMUS{}
)

// encoder appends MUS-encoded fields into a pre-sized buffer.
type encoder struct {
	bs []byte
	n  int
}

func (e *encoder) string(v string) { e.n += ord.String.Marshal(v, e.bs[e.n:]) }
func (e *encoder) bool(v bool)     { e.n += ord.Bool.Marshal(v, e.bs[e.n:]) }
func (e *encoder) int(v int)       { e.n += varint.Int.Marshal(v, e.bs[e.n:]) }
func (e *encoder) int64(v int64)   { e.n += varint.Int64.Marshal(v, e.bs[e.n:]) }

func (e *encoder) time(v time.Time) {
	e.bool(v.IsZero())
	if !v.IsZero() {
		e.int64(v.UnixMicro())
	}
}

func (e *encoder) strings(v []string) {
	e.int(len(v))
	for _, s := range v {
		e.string(s)
	}
}

func (e *encoder) stringMap(v map[string]string) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	// Sorted keys keep the encoding deterministic
	slices.Sort(keys)
	e.int(len(keys))
	for _, k := range keys {
		e.string(k)
		e.string(v[k])
	}
}

// decoder reads MUS-encoded fields, stopping at the first error.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) string() (v string) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = ord.String.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) bool() (v bool) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = ord.Bool.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) int() (v int) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = varint.Int.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) int64() (v int64) {
	if d.err != nil {
		return
	}
	var n int
	v, n, d.err = varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += n
	return
}

func (d *decoder) time() time.Time {
	if zero := d.bool(); zero || d.err != nil {
		return time.Time{}
	}
	return time.UnixMicro(d.int64()).UTC()
}

func (d *decoder) strings() []string {
	count := d.int()
	if d.err != nil || count == 0 {
		return nil
	}
	v := make([]string, 0, count)
	for i := 0; i < count && d.err == nil; i++ {
		v = append(v, d.string())
	}
	return v
}

func (d *decoder) stringMap() map[string]string {
	count := d.int()
	if d.err != nil || count == 0 {
		return nil
	}
	v := make(map[string]string, count)
	for i := 0; i < count && d.err == nil; i++ {
		k := d.string()
		v[k] = d.string()
	}
	return v
}

// Size helpers mirror the encoder methods.

func sizeTime(v time.Time) int {
	if v.IsZero() {
		return ord.Bool.Size(true)
	}
	return ord.Bool.Size(false) + varint.Int64.Size(v.UnixMicro())
}

func sizeStrings(v []string) int {
	size := varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func sizeStringMap(v map[string]string) int {
	size := varint.Int.Size(len(v))
	for k, val := range v {
		size += ord.String.Size(k) + ord.String.Size(val)
	}
	return size
}

type normalizedMessageMUS struct{}

func (s normalizedMessageMUS) Marshal(v NormalizedMessage, bs []byte) (n int) {
	e := &encoder{bs: bs}
	e.string(v.ID)
	e.string(v.ImportItemID)
	e.int(v.SequenceIndex)
	e.string(v.Speaker)
	e.string(v.Content)
	e.string(string(v.ContentType))
	e.time(v.Timestamp)
	e.stringMap(v.SourceMetadata)
	return e.n
}

func (s normalizedMessageMUS) Unmarshal(bs []byte) (v NormalizedMessage, n int, err error) {
	d := &decoder{bs: bs}
	v.ID = d.string()
	v.ImportItemID = d.string()
	v.SequenceIndex = d.int()
	v.Speaker = d.string()
	v.Content = d.string()
	v.ContentType = ContentType(d.string())
	v.Timestamp = d.time()
	v.SourceMetadata = d.stringMap()
	return v, d.n, d.err
}

func (s normalizedMessageMUS) Size(v NormalizedMessage) (size int) {
	return ord.String.Size(v.ID) +
		ord.String.Size(v.ImportItemID) +
		varint.Int.Size(v.SequenceIndex) +
		ord.String.Size(v.Speaker) +
		ord.String.Size(v.Content) +
		ord.String.Size(string(v.ContentType)) +
		sizeTime(v.Timestamp) +
		sizeStringMap(v.SourceMetadata)
}

type importJobMUS struct{}

func (s importJobMUS) Marshal(v ImportJob, bs []byte) (n int) {
	e := &encoder{bs: bs}
	e.string(v.ID)
	e.string(v.OwnerID)
	e.string(string(v.Status))
	e.bool(v.CancelRequested)
	e.time(v.CreatedAt)
	e.time(v.UpdatedAt)
	e.int(len(v.Items))
	for _, it := range v.Items {
		marshalItem(e, it)
	}
	return e.n
}

func (s importJobMUS) Unmarshal(bs []byte) (v ImportJob, n int, err error) {
	d := &decoder{bs: bs}
	v.ID = d.string()
	v.OwnerID = d.string()
	v.Status = JobStatus(d.string())
	v.CancelRequested = d.bool()
	v.CreatedAt = d.time()
	v.UpdatedAt = d.time()
	count := d.int()
	for i := 0; i < count && d.err == nil; i++ {
		v.Items = append(v.Items, unmarshalItem(d))
	}
	return v, d.n, d.err
}

func (s importJobMUS) Size(v ImportJob) (size int) {
	size = ord.String.Size(v.ID) +
		ord.String.Size(v.OwnerID) +
		ord.String.Size(string(v.Status)) +
		ord.Bool.Size(v.CancelRequested) +
		sizeTime(v.CreatedAt) +
		sizeTime(v.UpdatedAt) +
		varint.Int.Size(len(v.Items))
	for _, it := range v.Items {
		size += sizeItem(it)
	}
	return size
}

func marshalItem(e *encoder, it ImportItem) {
	e.string(it.ID)
	e.string(it.JobID)
	e.string(it.Descriptor.Platform)
	e.string(it.Descriptor.Format)
	e.string(it.Descriptor.MIMEType)
	e.string(it.Descriptor.SourceURI)
	e.string(it.Title)
	e.string(string(it.Status))
	e.int(it.Attempts)
	e.bool(it.LastError != nil)
	if it.LastError != nil {
		e.string(string(it.LastError.Code))
		e.string(string(it.LastError.Kind))
		e.string(it.LastError.Message)
		e.int(it.LastError.Attempts)
	}
	e.strings(it.Warnings)
	e.strings(it.MessageIDs)
	e.bool(it.Duplicate)
	e.string(it.DuplicateOf)
	e.string(it.Fingerprint)
	e.string(it.TranslateTo)
	e.time(it.UpdatedAt)
}

func unmarshalItem(d *decoder) (it ImportItem) {
	it.ID = d.string()
	it.JobID = d.string()
	it.Descriptor.Platform = d.string()
	it.Descriptor.Format = d.string()
	it.Descriptor.MIMEType = d.string()
	it.Descriptor.SourceURI = d.string()
	it.Title = d.string()
	it.Status = ItemStatus(d.string())
	it.Attempts = d.int()
	if hasErr := d.bool(); hasErr {
		it.LastError = &ItemError{
			Code:    ErrorCode(d.string()),
			Kind:    ErrorKind(d.string()),
			Message: d.string(),
		}
		it.LastError.Attempts = d.int()
	}
	it.Warnings = d.strings()
	it.MessageIDs = d.strings()
	it.Duplicate = d.bool()
	it.DuplicateOf = d.string()
	it.Fingerprint = d.string()
	it.TranslateTo = d.string()
	it.UpdatedAt = d.time()
	return it
}

func sizeItem(it ImportItem) int {
	size := ord.String.Size(it.ID) +
		ord.String.Size(it.JobID) +
		ord.String.Size(it.Descriptor.Platform) +
		ord.String.Size(it.Descriptor.Format) +
		ord.String.Size(it.Descriptor.MIMEType) +
		ord.String.Size(it.Descriptor.SourceURI) +
		ord.String.Size(it.Title) +
		ord.String.Size(string(it.Status)) +
		varint.Int.Size(it.Attempts) +
		ord.Bool.Size(it.LastError != nil)
	if it.LastError != nil {
		size += ord.String.Size(string(it.LastError.Code)) +
			ord.String.Size(string(it.LastError.Kind)) +
			ord.String.Size(it.LastError.Message) +
			varint.Int.Size(it.LastError.Attempts)
	}
	return size +
		sizeStrings(it.Warnings) +
		sizeStrings(it.MessageIDs) +
		ord.Bool.Size(it.Duplicate) +
		ord.String.Size(it.DuplicateOf) +
		ord.String.Size(it.Fingerprint) +
		ord.String.Size(it.TranslateTo) +
		sizeTime(it.UpdatedAt)
}

type fingerprintRecordMUS struct{}

func (s fingerprintRecordMUS) Marshal(v FingerprintRecord, bs []byte) (n int) {
	e := &encoder{bs: bs}
	e.string(v.Fingerprint)
	e.string(string(v.State))
	e.string(v.ItemID)
	e.string(v.Token)
	e.strings(v.MessageIDs)
	e.time(v.ReservedAt)
	e.time(v.CommittedAt)
	return e.n
}

func (s fingerprintRecordMUS) Unmarshal(bs []byte) (v FingerprintRecord, n int, err error) {
	d := &decoder{bs: bs}
	v.Fingerprint = d.string()
	v.State = ReservationState(d.string())
	v.ItemID = d.string()
	v.Token = d.string()
	v.MessageIDs = d.strings()
	v.ReservedAt = d.time()
	v.CommittedAt = d.time()
	return v, d.n, d.err
}

func (s fingerprintRecordMUS) Size(v FingerprintRecord) (size int) {
	return ord.String.Size(v.Fingerprint) +
		ord.String.Size(string(v.State)) +
		ord.String.Size(v.ItemID) +
		ord.String.Size(v.Token) +
		sizeStrings(v.MessageIDs) +
		sizeTime(v.ReservedAt) +
		sizeTime(v.CommittedAt)
}

// Package dedup guarantees that one logical source is stored at most once.
//
// Before an item's messages are written, the Guard reserves the item's
// fingerprint in the fingerprint store. A committed fingerprint means the
// content was already imported and the item completes as a duplicate. A
// live reservation held by another item is reported as ErrReservationHeld,
// which is transient: the holder will either commit or release, or its
// lease will expire.
package dedup

package badger

import (
	"encoding/binary"
)

// Key prefixes for different data types
const (
	messagePrefix     = "msg"
	fingerprintPrefix = "fpr"
	jobPrefix         = "job"
)

// makeMessageKey generates a composite key for a message.
// Format: prefix:itemID:sequenceIndex
func makeMessageKey(itemID string, sequenceIndex int) []byte {
	prefix := makeItemMessagesPrefix(itemID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort matches sequence order
	binary.BigEndian.PutUint64(buf[offset:], uint64(sequenceIndex))
	return buf
}

// makeItemMessagesPrefix generates the prefix shared by all messages of an item.
// Format: prefix:itemID:
func makeItemMessagesPrefix(itemID string) []byte {
	return []byte(messagePrefix + ":" + itemID + ":")
}

// makeFingerprintKey generates a key for a dedup record.
func makeFingerprintKey(fingerprint string) []byte {
	return []byte(fingerprintPrefix + ":" + fingerprint)
}

// makeJobKey generates a key for a job snapshot.
func makeJobKey(jobID string) []byte {
	return []byte(jobPrefix + ":" + jobID)
}

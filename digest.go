package nv

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// DigestPrefix starts every digest string.
const DigestPrefix = "nv1:"

// Digest identifies the exact wire form of l.
// Digest = "nv1:" + hex_lower(blake3_256(Marshal(l)))
//
// Insertion order is part of the wire form, so two lists holding the same
// entries in a different order have different digests.
func Digest(l *NvList) (string, error) {
	b, err := Marshal(l)
	if err != nil {
		return "", err
	}
	return DigestPrefix + blake3hex(b), nil
}

// DigestDump validates a pre-built dump and returns its digest.  The
// input bytes are hashed directly rather than re-encoded.
func DigestDump(b []byte) (string, error) {
	if _, err := Unmarshal(b); err != nil {
		return "", err
	}
	return DigestPrefix + blake3hex(b), nil
}

func blake3hex(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

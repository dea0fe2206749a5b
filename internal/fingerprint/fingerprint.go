// Package fingerprint computes a stable, collision-resistant content
// digest used as the cache key for compiled ParseUnits (spec §3, §4.2).
package fingerprint

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a 128-bit stable digest of document text.
type Fingerprint [16]byte

// Zero is the fingerprint of no text having been hashed yet; it never
// equals the fingerprint of any real (possibly empty) string because
// Of("") hashes both the empty string and a fixed salt, so its second
// half is non-zero.
var Zero Fingerprint

// Of computes the fingerprint of text. It is pure and deterministic:
// equal text always yields equal output, independent of platform or
// process. Callers that care about line-ending normalization must
// normalize before calling Of (spec §4.2).
func Of(text string) Fingerprint {
	// Two xxhash64 passes (plain text, then salted text) concatenated
	// into a 128-bit digest. A single 64-bit hash is adequate for
	// collision resistance at realistic document-cache scale, but the
	// data model commits to a 128-bit key (spec §3 ContentFingerprint),
	// so the second pass gives that width without pulling in a second
	// hash algorithm.
	h1 := xxhash.Sum64String(text)
	h2 := xxhash.Sum64(seededBytes(text))

	var fp Fingerprint
	binary.LittleEndian.PutUint64(fp[0:8], h1)
	binary.LittleEndian.PutUint64(fp[8:16], h2)
	return fp
}

// seededBytes salts text with a fixed prefix so the second xxhash pass
// is not simply Sum64String(text) again.
func seededBytes(text string) []byte {
	const salt = "lsp-groovy-fp-v1:"
	b := make([]byte, 0, len(salt)+len(text))
	b = append(b, salt...)
	b = append(b, text...)
	return b
}

func (f Fingerprint) String() string {
	const hextable = "0123456789abcdef"
	buf := make([]byte, 32)
	for i, v := range f {
		buf[i*2] = hextable[v>>4]
		buf[i*2+1] = hextable[v&0x0f]
	}
	return string(buf)
}

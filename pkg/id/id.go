// Package id generates time-sortable identifiers in Crockford base32.
package id

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

const alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// NewULID returns a 26-character ULID: 48-bit millisecond timestamp
// followed by 80 random bits. Deployment ids use it.
func NewULID() string {
	var b [16]byte
	ms := uint64(time.Now().UnixMilli())
	b[0], b[1] = byte(ms>>40), byte(ms>>32)
	binary.BigEndian.PutUint32(b[2:6], uint32(ms))
	random(b[6:])
	return encode(b[:], 26)
}

// NewShortID returns a 16-character id: the low 30 bits of the millisecond
// timestamp followed by 48 random bits. Wraps every ~12 days, so it only
// sorts within that window. Used for signing key ids.
func NewShortID() string {
	var b [10]byte
	ts := uint64(time.Now().UnixMilli()) & 0x3FFFFFFF
	binary.BigEndian.PutUint32(b[0:4], uint32(ts>>16))
	b[4], b[5] = byte(ts>>8), byte(ts)
	random(b[6:])
	return encode(b[:], 16)
}

func random(dst []byte) {
	if _, err := rand.Read(dst); err != nil {
		binary.BigEndian.PutUint32(dst, uint32(time.Now().UnixNano()))
	}
}

// encode renders src as a big-endian number in n base32 digits, most
// significant first. Bits beyond len(src)*8 are zero.
func encode(src []byte, n int) string {
	out := make([]byte, n)
	var acc uint16
	bits := 0
	i := len(src) - 1
	for j := n - 1; j >= 0; j-- {
		if bits < 5 && i >= 0 {
			acc |= uint16(src[i]) << bits
			bits += 8
			i--
		}
		out[j] = alphabet[acc&0x1F]
		acc >>= 5
		bits -= 5
	}
	return string(out)
}

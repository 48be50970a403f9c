// Package protocol implements the newline-delimited text protocol spoken
// between game clients and the server: the base-94 integer codec, client
// command parsing, outbound record building and the per-session outbox.
package protocol

import (
	"errors"
	"fmt"
	"math"
)

const (
	b94First = '!' // 33
	b94Last  = '~' // 126
	b94Base  = b94Last - b94First + 1
)

var (
	ErrEmptyNumber = errors.New("empty base-94 number")
	ErrBadDigit    = errors.New("invalid base-94 digit")
	ErrOverflow    = errors.New("base-94 number overflows int")
)

// EncodeB94 encodes a non-negative integer as base-94 printable digits,
// least significant digit first. Zero encodes as a single digit and
// negative values are clamped to zero.
func EncodeB94(n int) string {
	return string(AppendB94(nil, n))
}

// AppendB94 appends the base-94 encoding of n to dst.
func AppendB94(dst []byte, n int) []byte {
	if n <= 0 {
		return append(dst, b94First)
	}
	for n > 0 {
		dst = append(dst, byte(b94First+n%b94Base))
		n /= b94Base
	}
	return dst
}

// DecodeB94 decodes a value produced by EncodeB94.
func DecodeB94(s string) (int, error) {
	if s == "" {
		return 0, ErrEmptyNumber
	}
	n := 0
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < b94First || c > b94Last {
			return 0, fmt.Errorf("%w %q at %d", ErrBadDigit, c, i)
		}
		d := int(c - b94First)
		if n > (math.MaxInt-d)/b94Base {
			return 0, ErrOverflow
		}
		n = n*b94Base + d
	}
	return n, nil
}

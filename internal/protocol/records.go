package protocol

import (
	"strconv"
)

// Server → client record opcodes.
const (
	RecObject      = "O"
	RecRemove      = "R"
	RecText        = "t"
	RecSound       = "a"
	RecHP          = "L"
	RecMaxHP       = "M"
	RecMana        = "Q"
	RecMaxMana     = "K"
	RecMoveSpeed   = "S"
	RecJumpSpeed   = "J"
	RecArmour      = "A"
	RecDamage      = "D"
	RecRedCastle   = "XR"
	RecBlueCastle  = "XB"
	RecRedXP       = "XPR"
	RecBlueXP      = "XPB"
	RecRedPop      = "rp"
	RecBluePop     = "bp"
	RecVendorOpen  = "VB"
	RecVendorSold  = "VS"
	RecSoldItem    = "SI"
	RecItem        = "I"
	RecCastleShop  = "CS"
	RecClose       = "C"
	RecHologram    = "H"
	RecHologramEnd = "h"
	RecPlaced      = "PB"
	RecTick        = "T"
	RecRepaint     = "U"
	RecGameOver    = "B"
	RecPong        = "P"
	RecChat        = "CH"
	RecForcePos    = "p"
	RecScoreJoin   = "SJ"
	RecScoreUpdate = "SU"
	RecScoreLeave  = "SL"
	RecScoreKill   = "SK"
	RecScoreDeath  = "SD"
	RecKillFeed1   = "KF1"
	RecKillFeed2   = "KF2"
)

// Line builds one space-separated line of records. The zero value is
// ready to use.
type Line struct {
	b []byte
}

// Op starts a new record.
func (l *Line) Op(op string) *Line {
	if len(l.b) > 0 {
		l.b = append(l.b, ' ')
	}
	l.b = append(l.b, op...)
	return l
}

// B94 appends a base-94 integer field.
func (l *Line) B94(n int) *Line {
	l.b = append(l.b, ' ')
	l.b = AppendB94(l.b, n)
	return l
}

// Int appends a decimal integer field.
func (l *Line) Int(n int) *Line {
	l.b = append(l.b, ' ')
	l.b = strconv.AppendInt(l.b, int64(n), 10)
	return l
}

// Fixed2 appends a decimal field with two fractional digits.
func (l *Line) Fixed2(f float64) *Line {
	l.b = append(l.b, ' ')
	l.b = strconv.AppendFloat(l.b, f, 'f', 2, 64)
	return l
}

// Str appends a raw field. Callers keep fields free of newlines.
func (l *Line) Str(s string) *Line {
	l.b = append(l.b, ' ')
	l.b = append(l.b, s...)
	return l
}

// Raw appends s directly after the previous field with no separator.
func (l *Line) Raw(s string) *Line {
	l.b = append(l.b, s...)
	return l
}

// Len returns the number of buffered bytes.
func (l *Line) Len() int { return len(l.b) }

// Bytes returns the buffered line without a trailing newline.
func (l *Line) Bytes() []byte { return l.b }

// String returns the buffered line.
func (l *Line) String() string { return string(l.b) }

// Reset clears the line keeping its capacity.
func (l *Line) Reset() { l.b = l.b[:0] }

// Record returns a single record as a string.
func Record(op string, fields ...string) string {
	var l Line
	l.Op(op)
	for _, f := range fields {
		l.Str(f)
	}
	return l.String()
}

// WordCount returns the number of space-separated words in s, the prefix
// used on the wire before free text that may contain spaces.
func WordCount(s string) int {
	n := 0
	in := false
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			in = false
			continue
		}
		if !in {
			n++
			in = true
		}
	}
	return n
}

package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Op identifies a parsed client command.
type Op uint8

const (
	OpNone Op = iota
	OpMoveRight
	OpStopRight
	OpMoveLeft
	OpStopLeft
	OpJump
	OpDrop
	OpStopDrop
	OpPrimary
	OpSecondary
	OpForceEnd
	OpFaceRight
	OpFaceLeft
	OpDropItem
	OpDropWeapon
	OpUsePotion
	OpUnequip
	OpEquipWeapon
	OpEquipArmour
	OpSelectSlot
	OpBuy
	OpBuyCastle
	OpInteract
	OpSell
	OpSetName
	OpChat
	OpScreen
	OpPosition
	OpPing
	OpPingReport
)

var opNames = [...]string{
	OpNone:        "none",
	OpMoveRight:   "move_right",
	OpStopRight:   "stop_right",
	OpMoveLeft:    "move_left",
	OpStopLeft:    "stop_left",
	OpJump:        "jump",
	OpDrop:        "drop",
	OpStopDrop:    "stop_drop",
	OpPrimary:     "primary",
	OpSecondary:   "secondary",
	OpForceEnd:    "force_end",
	OpFaceRight:   "face_right",
	OpFaceLeft:    "face_left",
	OpDropItem:    "drop_item",
	OpDropWeapon:  "drop_weapon",
	OpUsePotion:   "use_potion",
	OpUnequip:     "unequip",
	OpEquipWeapon: "equip_weapon",
	OpEquipArmour: "equip_armour",
	OpSelectSlot:  "select_slot",
	OpBuy:         "buy",
	OpBuyCastle:   "buy_castle",
	OpInteract:    "interact",
	OpSell:        "sell",
	OpSetName:     "set_name",
	OpChat:        "chat",
	OpScreen:      "screen",
	OpPosition:    "position",
	OpPing:        "ping",
	OpPingReport:  "ping_report",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "unknown"
}

// Command is one parsed client line. Only the fields relevant to Op are set.
type Command struct {
	Op Op

	// X, Y carry cursor coordinates (OpPrimary/OpSecondary), the declared
	// screen size (OpScreen) or the reported position (OpPosition).
	X, Y float64

	// Trigger is false when a primary action line only moves the cursor.
	Trigger bool

	// Slot is a weapon slot (OpDropWeapon, OpUnequip, OpSelectSlot) or the
	// reported ping in milliseconds (OpPingReport).
	Slot int

	// Code is an item type code (drop/use/equip/buy/sell).
	Code string

	// Text is free text (OpChat, OpSetName).
	Text string
}

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingArg     = errors.New("missing argument")
	ErrBadArg         = errors.New("malformed argument")
)

// MaxTextLen bounds chat messages and names.
const MaxTextLen = 120

var simpleOps = map[string]Op{
	"R":  OpMoveRight,
	"!R": OpStopRight,
	"L":  OpMoveLeft,
	"!L": OpStopLeft,
	"U":  OpJump,
	"D":  OpDrop,
	"!D": OpStopDrop,
	"!a": OpForceEnd,
	"DR": OpFaceRight,
	"DL": OpFaceLeft,
	"E":  OpInteract,
	"P":  OpPing,
}

// ParseCommand parses one client line. Client parameters are plain decimal.
// Any error means the line is dropped; it never affects the session.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Command{}, ErrEmptyCommand
	}
	op, rest, _ := strings.Cut(line, " ")

	if o, ok := simpleOps[op]; ok {
		return Command{Op: o}, nil
	}

	tokens := strings.Fields(rest)
	switch op {
	case "A", "a":
		x, y, err := parsePair(tokens)
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", op, err)
		}
		if op == "a" {
			return Command{Op: OpSecondary, X: x, Y: y, Trigger: true}, nil
		}
		trigger := len(tokens) < 3 || strings.HasPrefix(tokens[2], "t")
		return Command{Op: OpPrimary, X: x, Y: y, Trigger: trigger}, nil

	case "s":
		w, h, err := parsePair(tokens)
		if err != nil {
			return Command{}, fmt.Errorf("s: %w", err)
		}
		if w <= 0 || h <= 0 {
			return Command{}, fmt.Errorf("s: %w: non-positive screen", ErrBadArg)
		}
		return Command{Op: OpScreen, X: w, Y: h}, nil

	case "p":
		x, y, err := parsePair(tokens)
		if err != nil {
			return Command{}, fmt.Errorf("p: %w", err)
		}
		return Command{Op: OpPosition, X: x, Y: y}, nil

	case "y":
		ms, err := parseInt(tokens, 0)
		if err != nil {
			return Command{}, fmt.Errorf("y: %w", err)
		}
		return Command{Op: OpPingReport, Slot: ms}, nil

	case "W":
		slot, err := parseInt(tokens, 0)
		if err != nil {
			return Command{}, fmt.Errorf("W: %w", err)
		}
		return Command{Op: OpSelectSlot, Slot: slot}, nil

	case "Dr":
		return parseSub(op, tokens, map[string]Op{"I": OpDropItem, "W": OpDropWeapon, "U": OpUsePotion})

	case "M":
		return parseSub(op, tokens, map[string]Op{"I": OpUnequip, "W": OpEquipWeapon, "A": OpEquipArmour})

	case "B", "BC", "S":
		code, err := parseCode(tokens, 0)
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", op, err)
		}
		o := map[string]Op{"B": OpBuy, "BC": OpBuyCastle, "S": OpSell}[op]
		return Command{Op: o, Code: code}, nil

	case "C":
		if strings.TrimSpace(rest) == "" {
			return Command{}, fmt.Errorf("C: %w", ErrMissingArg)
		}
		return Command{Op: OpChat, Text: clip(rest)}, nil

	case "Na":
		name := strings.Join(strings.Fields(rest), " ")
		if name == "" {
			return Command{}, fmt.Errorf("Na: %w", ErrMissingArg)
		}
		return Command{Op: OpSetName, Text: clip(name)}, nil
	}

	return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, op)
}

func parseSub(op string, tokens []string, subs map[string]Op) (Command, error) {
	if len(tokens) < 2 {
		return Command{}, fmt.Errorf("%s: %w", op, ErrMissingArg)
	}
	o, ok := subs[tokens[0]]
	if !ok {
		return Command{}, fmt.Errorf("%s: %w: sub-command %q", op, ErrBadArg, tokens[0])
	}
	if o == OpDropWeapon || o == OpUnequip {
		slot, err := parseInt(tokens, 1)
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", op, err)
		}
		return Command{Op: o, Slot: slot}, nil
	}
	return Command{Op: o, Code: tokens[1]}, nil
}

func parsePair(tokens []string) (float64, float64, error) {
	if len(tokens) < 2 {
		return 0, 0, ErrMissingArg
	}
	x, err := strconv.ParseFloat(tokens[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrBadArg, err)
	}
	y, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrBadArg, err)
	}
	if !finite(x) || !finite(y) {
		return 0, 0, fmt.Errorf("%w: non-finite coordinate", ErrBadArg)
	}
	return x, y, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func parseInt(tokens []string, i int) (int, error) {
	if len(tokens) <= i {
		return 0, ErrMissingArg
	}
	n, err := strconv.Atoi(tokens[i])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadArg, err)
	}
	return n, nil
}

func parseCode(tokens []string, i int) (string, error) {
	if len(tokens) <= i {
		return "", ErrMissingArg
	}
	return tokens[i], nil
}

func clip(s string) string {
	if len(s) > MaxTextLen {
		return s[:MaxTextLen]
	}
	return s
}

package protocol

import (
	"errors"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"R", Command{Op: OpMoveRight}},
		{"!R", Command{Op: OpStopRight}},
		{"L", Command{Op: OpMoveLeft}},
		{"!L", Command{Op: OpStopLeft}},
		{"U", Command{Op: OpJump}},
		{"D", Command{Op: OpDrop}},
		{"!D", Command{Op: OpStopDrop}},
		{"!a", Command{Op: OpForceEnd}},
		{"DR", Command{Op: OpFaceRight}},
		{"DL", Command{Op: OpFaceLeft}},
		{"E", Command{Op: OpInteract}},
		{"P", Command{Op: OpPing}},
		{"A 100 200 t", Command{Op: OpPrimary, X: 100, Y: 200, Trigger: true}},
		{"A 100 200 f", Command{Op: OpPrimary, X: 100, Y: 200}},
		{"A 5 6", Command{Op: OpPrimary, X: 5, Y: 6, Trigger: true}},
		{"a 7 8", Command{Op: OpSecondary, X: 7, Y: 8, Trigger: true}},
		{"s 1620 1080", Command{Op: OpScreen, X: 1620, Y: 1080}},
		{"p 10.5 20", Command{Op: OpPosition, X: 10.5, Y: 20}},
		{"y 42", Command{Op: OpPingReport, Slot: 42}},
		{"W 2", Command{Op: OpSelectSlot, Slot: 2}},
		{"Dr I PHP", Command{Op: OpDropItem, Code: "PHP"}},
		{"Dr W 1", Command{Op: OpDropWeapon, Slot: 1}},
		{"Dr U PMP", Command{Op: OpUsePotion, Code: "PMP"}},
		{"M I 3", Command{Op: OpUnequip, Slot: 3}},
		{"M W WSS", Command{Op: OpEquipWeapon, Code: "WSS"}},
		{"M A AST", Command{Op: OpEquipArmour, Code: "AST"}},
		{"B RWB", Command{Op: OpBuy, Code: "RWB"}},
		{"BC BBK", Command{Op: OpBuyCastle, Code: "BBK"}},
		{"S WSI", Command{Op: OpSell, Code: "WSI"}},
		{"C /t hold the gate", Command{Op: OpChat, Text: "/t hold the gate"}},
		{"Na  Sir   Robin ", Command{Op: OpSetName, Text: "Sir Robin"}},
		{"R\r", Command{Op: OpMoveRight}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "command", got, tt.want)
		})
	}
}

func TestParseCommandRejects(t *testing.T) {
	tests := []struct {
		line string
		err  error
	}{
		{"", ErrEmptyCommand},
		{"   ", ErrEmptyCommand},
		{"ZZ 1 2", ErrUnknownCommand},
		{"A 1", ErrMissingArg},
		{"A x y", ErrBadArg},
		{"A NaN 3", ErrBadArg},
		{"s 0 100", ErrBadArg},
		{"W", ErrMissingArg},
		{"W two", ErrBadArg},
		{"Dr X PHP", ErrBadArg},
		{"Dr W", ErrMissingArg},
		{"M I a", ErrBadArg},
		{"B", ErrMissingArg},
		{"C ", ErrMissingArg},
		{"Na", ErrMissingArg},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := ParseCommand(tt.line)
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestParseCommandClipsText(t *testing.T) {
	long := make([]byte, MaxTextLen*2)
	for i := range long {
		long[i] = 'x'
	}
	cmd, err := ParseCommand("C " + string(long))
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, "text length", len(cmd.Text), MaxTextLen)
}

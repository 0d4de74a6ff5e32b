package codegen

import "testing"

func TestRound(t *testing.T) {
	const input = 9753.14159265359
	tests := []struct {
		digits int
		want   float64
	}{
		{0, 9753},
		{4, 9753.1416},
		{-2, 9800},
		{1, 9753.1},
	}
	for _, tt := range tests {
		if got := Round(input, tt.digits); got != tt.want {
			t.Errorf("Round(%v, %d) = %v, want %v", input, tt.digits, got, tt.want)
		}
	}
	// Half rounds away from zero, not to even.
	if got := Round(2.5, 0); got != 3 {
		t.Errorf("Round(2.5, 0) = %v, want 3", got)
	}
	if got := Round(-2.5, 0); got != -3 {
		t.Errorf("Round(-2.5, 0) = %v, want -3", got)
	}
}

func TestNumericHelpers(t *testing.T) {
	if got := Floor(1.9); got != 1 {
		t.Errorf("Floor(1.9) = %v", got)
	}
	if got := Ceiling(1.1); got != 2 {
		t.Errorf("Ceiling(1.1) = %v", got)
	}
	if got := Abs(-3.5); got != 3.5 {
		t.Errorf("Abs(-3.5) = %v", got)
	}
	if got := Min(2, 7); got != 2 {
		t.Errorf("Min(2, 7) = %v", got)
	}
	if got := Max(2, 7); got != 7 {
		t.Errorf("Max(2, 7) = %v", got)
	}
	if got := StrLen("héllo"); got != 5 {
		t.Errorf("StrLen(héllo) = %v, want 5", got)
	}
}

func TestMaybeProtect(t *testing.T) {
	low := Expr{Text: "a == b", Prec: 4}
	if got := MaybeProtect(low, 5); got != "(a == b)" {
		t.Errorf("low-precedence argument not protected: %q", got)
	}
	if got := MaybeProtect(low, 4); got != "a == b" {
		t.Errorf("equal-precedence argument protected: %q", got)
	}
	atom := Expr{Text: "x", Prec: PrecAtomic}
	if got := MaybeProtect(atom, 8); got != "x" {
		t.Errorf("atomic argument protected: %q", got)
	}
}

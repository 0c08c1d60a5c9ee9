package money

import (
	"encoding/json"
	"math"
	"testing"
)

func TestRoundHalfUp(t *testing.T) {
	cases := map[float64]int64{
		0:     0,
		2.4:   2,
		2.5:   3,
		199.5: 200,
		-2.5:  -2,
		-2.6:  -3,
	}
	for in, want := range cases {
		if got := Round(in); got != want {
			t.Fatalf("Round(%v) = %d, want %d", in, got, want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-40); got != 0 {
		t.Fatalf("expected negative to clamp to 0, got %d", got)
	}
	if got := Clamp(math.NaN()); got != 0 {
		t.Fatalf("expected NaN to clamp to 0, got %d", got)
	}
	if got := Clamp(math.Inf(1)); got != 0 {
		t.Fatalf("expected +Inf to clamp to 0, got %d", got)
	}
	if got := Clamp(1234.5); got != 1235 {
		t.Fatalf("expected 1235, got %d", got)
	}
}

func TestFirstSkipsAbsentAndInvalid(t *testing.T) {
	got, ok := First(Present,
		Value(nil),
		Value(Ptr(math.NaN())),
		Value(Ptr(-5)),
		Value(Ptr(0)),
		Value(Ptr(700)),
	)
	if !ok || got != 0 {
		t.Fatalf("expected first present value 0, got %d ok=%v", got, ok)
	}

	got, ok = First(NonZero, Value(Ptr(0)), Value(Ptr(0.2)), Value(Ptr(4500)))
	if !ok || got != 4500 {
		t.Fatalf("expected zero values to be skipped, got %d ok=%v", got, ok)
	}

	if _, ok := First(Present); ok {
		t.Fatal("expected no value from empty source list")
	}
}

func TestFirstIsLazy(t *testing.T) {
	called := false
	_, _ = First(Present, Known(10, true), func() (float64, bool) {
		called = true
		return 20, true
	})
	if called {
		t.Fatal("expected later sources not to be evaluated")
	}
}

func TestLooseDecoding(t *testing.T) {
	var payload struct {
		A Loose `json:"a"`
		B Loose `json:"b"`
		C Loose `json:"c"`
		D Loose `json:"d"`
		E Loose `json:"e"`
		F Loose `json:"f"`
	}
	raw := `{"a": 500, "b": "750", "c": "", "d": "abc", "e": null, "f": true}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := payload.A.Float(); !ok || v != 500 {
		t.Fatalf("a: got %v ok=%v", v, ok)
	}
	if v, ok := payload.B.Float(); !ok || v != 750 {
		t.Fatalf("b: got %v ok=%v", v, ok)
	}
	for name, l := range map[string]Loose{"c": payload.C, "d": payload.D, "e": payload.E, "f": payload.F} {
		if _, ok := l.Float(); ok {
			t.Fatalf("%s: expected absent value", name)
		}
	}
}

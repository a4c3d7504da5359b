package shared

import (
	"bytes"
	"strings"
	"testing"
)

func TestGenerateState(t *testing.T) {
	t.Run("length and alphabet", func(t *testing.T) {
		state, err := GenerateState(16)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(state) != 16 {
			t.Errorf("expected 16 characters, got %d", len(state))
		}
		for _, c := range state {
			if !strings.ContainsRune(stateAlphabet, c) {
				t.Errorf("unexpected character %q in state", c)
			}
		}
	})

	t.Run("values differ", func(t *testing.T) {
		a, _ := GenerateState(16)
		b, _ := GenerateState(16)
		if a == b {
			t.Error("expected two generated states to differ")
		}
	})

	t.Run("rejects non-positive length", func(t *testing.T) {
		if _, err := GenerateState(0); err == nil {
			t.Error("expected error for zero length")
		}
	})
}

func TestMarshalJSON(t *testing.T) {
	v := map[string]int{"a": 1}

	compact, err := MarshalJSON(v, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if string(compact) != `{"a":1}` {
		t.Errorf("unexpected compact output %s", compact)
	}

	pretty, err := MarshalJSON(v, true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !bytes.Contains(pretty, []byte("\n  \"a\": 1")) {
		t.Errorf("expected indented output, got %s", pretty)
	}
}

func TestPluralize(t *testing.T) {
	tc := []struct {
		n    int
		want string
	}{
		{0, "songs"},
		{1, "song"},
		{2, "songs"},
	}

	for _, tt := range tc {
		if got := Pluralize(tt.n, "song"); got != tt.want {
			t.Errorf("Pluralize(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

package domain

import "testing"

func TestMarshalState(t *testing.T) {
	t.Parallel()

	t.Run("nil value marshals to nil", func(t *testing.T) {
		if got := MarshalState(nil); got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	})

	t.Run("struct marshals to its JSON field map", func(t *testing.T) {
		type payload struct {
			Name string `json:"name"`
			N    int    `json:"n"`
		}
		got := MarshalState(payload{Name: "alice", N: 5})
		if got["name"] != "alice" {
			t.Fatalf("expected name alice, got %+v", got)
		}
		if got["n"].(float64) != 5 {
			t.Fatalf("expected n 5, got %+v", got["n"])
		}
	})

	t.Run("unmarshalable value falls back to an error marker", func(t *testing.T) {
		got := MarshalState(func() {})
		if got["error"] == nil {
			t.Fatalf("expected error marker for unmarshalable value, got %+v", got)
		}
	})
}

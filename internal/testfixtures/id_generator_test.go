package testfixtures

import "testing"

func TestIDGenerator(t *testing.T) {
	t.Run("yields sequential identifiers", func(t *testing.T) {
		gen := NewIDGenerator("entity")

		if first, second := gen.Next(), gen.Next(); first != "entity-1" || second != "entity-2" {
			t.Fatalf("unexpected identifiers: %q, %q", first, second)
		}
	})

	t.Run("defaults the prefix", func(t *testing.T) {
		gen := NewIDGenerator("")

		if got := gen.Next(); got != "id-1" {
			t.Fatalf("expected id-1, got %q", got)
		}
	})

	t.Run("a nil generator injects blanks", func(t *testing.T) {
		var gen *IDGenerator

		if got := gen.NextFunc()(); got != "" {
			t.Fatalf("expected empty identifier, got %q", got)
		}
	})
}

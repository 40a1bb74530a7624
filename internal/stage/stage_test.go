package stage_test

import (
	"testing"

	"notecast/internal/stage"
)

func TestValidModelSize(t *testing.T) {
	tests := []struct {
		size string
		want bool
	}{
		{"tiny", true},
		{"base", true},
		{" Large ", true},
		{"huge", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := stage.ValidModelSize(tc.size); got != tc.want {
			t.Errorf("ValidModelSize(%q) = %v, want %v", tc.size, got, tc.want)
		}
	}
}

func TestModelSizesReturnsCopy(t *testing.T) {
	sizes := stage.ModelSizes()
	sizes[0] = "mutated"
	if stage.ModelSizes()[0] != "tiny" {
		t.Fatal("expected ModelSizes to return a copy")
	}
}

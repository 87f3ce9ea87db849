package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallbackData(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantPrefix string
		wantData   string
	}{
		{"Testcase #1: prefix and payload", "r:abc:yes", "r", "abc:yes"},
		{"Testcase #2: prefix only", "r", "r", ""},
		{"Testcase #3: empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix, data := SplitCallbackData(tt.raw)
			assert.Equal(t, tt.wantPrefix, prefix)
			assert.Equal(t, tt.wantData, data)
		})
	}

	t.Run("Testcase #4: round trip", func(t *testing.T) {
		prefix, data := SplitCallbackData(CallbackData("r", "e1:maybe"))
		assert.Equal(t, "r", prefix)
		assert.Equal(t, "e1:maybe", data)
	})
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidRecordID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"00Q000000000001", true},     // 15 chars
		{"00Q000000000001AAA", true},  // 18 chars
		{"500000000000001AAA", true},
		{"", false},
		{"ORD-1001", false},
		{"00Q00000000001", false},      // 14 chars
		{"00Q0000000000012", false},    // 16 chars
		{"00Q000000000001AAAA", false}, // 19 chars
		{"00Q00000000000!AAA", false},  // non-alphanumeric
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidRecordID(tt.id), "id %q", tt.id)
	}
}

func TestNewRecordID(t *testing.T) {
	id := NewRecordID(PrefixCase)
	require.Len(t, id, 18)
	assert.Equal(t, PrefixCase, id[:3])
	assert.True(t, ValidRecordID(id))

	// Fresh ids every call.
	assert.NotEqual(t, id, NewRecordID(PrefixCase))
}

package transfer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPendingPolicy, StatusPending},
		{StatusPendingPolicy, StatusFailed},
		{StatusPendingPolicy, StatusCancelled},
		{StatusPending, StatusProcessing},
		{StatusPending, StatusFailed},
		{StatusPending, StatusCancelled},
		{StatusProcessing, StatusCompleted},
		{StatusProcessing, StatusFailed},
	}
	for _, tt := range allowed {
		require.True(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
		require.NoError(t, ValidateTransition(tt.from, tt.to))
	}

	denied := []struct{ from, to Status }{
		{StatusPendingPolicy, StatusProcessing}, // no skipping
		{StatusPendingPolicy, StatusCompleted},
		{StatusPending, StatusCompleted},
		{StatusProcessing, StatusCancelled}, // cancel only before processing
		{StatusProcessing, StatusPending},   // never backward
		{StatusCompleted, StatusFailed},     // terminal states are sinks
		{StatusFailed, StatusPending},
		{StatusCancelled, StatusPending},
		{StatusCompleted, StatusCompleted},
	}
	for _, tt := range denied {
		require.False(t, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
		require.ErrorIs(t, ValidateTransition(tt.from, tt.to), ErrInvalidTransition)
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCancelled} {
		require.True(t, s.Terminal(), "%s", s)
	}
	for _, s := range []Status{StatusPendingPolicy, StatusPending, StatusProcessing} {
		require.False(t, s.Terminal(), "%s", s)
	}
}

func TestFormatUnits(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"1000000000000000000", "1"},
		{"500000000000000", "0.0005"},
		{"1500000000000000000", "1.5"},
		{"0", "0"},
		{"", "0"},
		{"not-a-number", "0"},
		{"1", "0.000000000000000001"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FormatUnits(tt.raw), "raw %q", tt.raw)
	}
}

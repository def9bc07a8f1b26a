package quote

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/norchain/bridge-middleware/pkg/chain"
)

func TestFee_BasisPoints(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"1000000000000000000", "500000000000000"}, // 1e18 -> 5e14
		{"10000", "5"},
		{"9999", "4"},  // floor division
		{"1999", "0"},  // below one fee unit
		{"0", "0"},
		{"123456789123456789123456789", "61728394561728394561728"},
	}

	for _, tt := range tests {
		amount, ok := new(big.Int).SetString(tt.amount, 10)
		require.True(t, ok)
		require.Equal(t, tt.want, Fee(amount).String(), "fee of %s", tt.amount)
	}
}

func TestParseAmount(t *testing.T) {
	for _, valid := range []string{"0", "1", "1000000000000000000"} {
		_, err := ParseAmount(valid)
		require.NoError(t, err, "amount %q", valid)
	}

	for _, invalid := range []string{"", "-1", "+1", "1.5", "0x10", "1e18", "10 ", "abc"} {
		_, err := ParseAmount(invalid)
		require.ErrorIs(t, err, ErrInvalidAmount, "amount %q", invalid)
	}
}

func TestQuote_SameChainIsInvalidRoute(t *testing.T) {
	engine := NewEngine()

	for _, c := range []chain.Chain{chain.ChainNOR, chain.ChainBSC, chain.ChainEthereum, chain.ChainTron} {
		_, err := engine.Quote(c, c, "NOR", "1000")
		require.ErrorIs(t, err, ErrInvalidRoute, "chain %s", c)
	}
}

func TestQuote_UnsupportedChainIsInvalidRoute(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Quote(chain.Chain("solana"), chain.ChainNOR, "NOR", "1000")
	require.ErrorIs(t, err, ErrInvalidRoute)
}

func TestQuote_AmountArithmetic(t *testing.T) {
	engine := NewEngine()

	q, err := engine.Quote(chain.ChainNOR, chain.ChainBSC, "NOR", "1000000000000000000")
	require.NoError(t, err)
	require.Equal(t, "500000000000000", q.Fees)
	require.Equal(t, "999500000000000000", q.AmountAfterFees)
	require.Equal(t, "1000000000000000000", q.Amount)
	require.Equal(t, 5, q.EstimatedTimeMinutes)
}

func TestQuote_ETATable(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		src, dst chain.Chain
		want     int
	}{
		{chain.ChainNOR, chain.ChainBSC, 5},
		{chain.ChainBSC, chain.ChainNOR, 5},
		{chain.ChainNOR, chain.ChainEthereum, 15},
		{chain.ChainEthereum, chain.ChainNOR, 15},
		{chain.ChainNOR, chain.ChainTron, 10},
		{chain.ChainBSC, chain.ChainEthereum, 10}, // unknown pair, default
	}
	for _, tt := range tests {
		q, err := engine.Quote(tt.src, tt.dst, "NOR", "1000")
		require.NoError(t, err)
		require.Equal(t, tt.want, q.EstimatedTimeMinutes, "%s->%s", tt.src, tt.dst)
	}
}

func TestQuote_ExpiryAndIdentity(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(WithClock(func() time.Time { return fixed }))

	q1, err := engine.Quote(chain.ChainNOR, chain.ChainBSC, "NOR", "1000")
	require.NoError(t, err)
	q2, err := engine.Quote(chain.ChainNOR, chain.ChainBSC, "NOR", "1000")
	require.NoError(t, err)

	require.Equal(t, fixed.Add(5*time.Minute), q1.ExpiresAt)
	require.NotEmpty(t, q1.QuoteID)
	require.NotEqual(t, q1.QuoteID, q2.QuoteID)
}

func TestLoadRouteTable_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	err := os.WriteFile(path, []byte("routes:\n  nor-ethereum: 20\n  bsc-tron: 7\n"), 0o600)
	require.NoError(t, err)

	table, err := LoadRouteTable(path)
	require.NoError(t, err)

	require.Equal(t, 20, table.EstimateMinutes(chain.ChainNOR, chain.ChainEthereum))
	require.Equal(t, 7, table.EstimateMinutes(chain.ChainBSC, chain.ChainTron))
	// Untouched defaults survive the merge.
	require.Equal(t, 5, table.EstimateMinutes(chain.ChainNOR, chain.ChainBSC))
}

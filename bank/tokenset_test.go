package bank_test

import (
	"testing"
	"time"

	"github.com/credlink/openbank-credit/bank"
	"github.com/stretchr/testify/require"
)

func TestNewTokenSetAppliesExpiryBuffer(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ts := bank.NewTokenSet("access", "", "", issuedAt, 3600, 60*time.Second)
	require.Equal(t, issuedAt.Add(3600*time.Second).Add(-60*time.Second), ts.ExpiresAt)
	require.Equal(t, issuedAt, ts.IssuedAt)
}

func TestNewTokenSetNegativeBufferClampedToZero(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ts := bank.NewTokenSet("access", "", "", issuedAt, 900, -5*time.Second)
	require.Equal(t, issuedAt.Add(900*time.Second), ts.ExpiresAt)
}

func TestTokenSetExpiredBoundary(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ts := bank.NewTokenSet("access", "", "", issuedAt, 600, 0)

	require.False(t, ts.Expired(ts.ExpiresAt.Add(-time.Second)))
	require.True(t, ts.Expired(ts.ExpiresAt), "the boundary instant counts as expired")
	require.True(t, ts.Expired(ts.ExpiresAt.Add(time.Second)))
}

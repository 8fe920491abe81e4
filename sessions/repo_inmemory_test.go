package sessions_test

import (
	"testing"
	"time"

	"github.com/credlink/openbank-credit/assessment"
	"github.com/credlink/openbank-credit/bank"
	"github.com/credlink/openbank-credit/sessions"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepoUpsertAndGet(t *testing.T) {
	repo := sessions.NewInMemoryRepo(0)

	session := sessions.New(time.Now())
	session.Profile = &assessment.Profile{FullName: "Ada Lovelace", MonthlyIncome: 5000}
	require.NoError(t, repo.Upsert(session))

	got, err := repo.Get(session.ID)
	require.NoError(t, err)
	require.Equal(t, session.ID, got.ID)
	require.Equal(t, "Ada Lovelace", got.Profile.FullName)
}

func TestInMemoryRepoGetNotFound(t *testing.T) {
	repo := sessions.NewInMemoryRepo(0)

	_, err := repo.Get("no-such-session")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestInMemoryRepoValidation(t *testing.T) {
	repo := sessions.NewInMemoryRepo(0)

	require.Error(t, repo.Upsert(nil))
	require.Error(t, repo.Upsert(&sessions.Session{}))

	_, err := repo.Get("")
	require.Error(t, err)
	require.Error(t, repo.Delete(""))
}

func TestInMemoryRepoDelete(t *testing.T) {
	repo := sessions.NewInMemoryRepo(0)

	session := sessions.New(time.Now())
	require.NoError(t, repo.Upsert(session))
	require.NoError(t, repo.Delete(session.ID))

	_, err := repo.Get(session.ID)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)

	// deleting an absent session is not an error
	require.NoError(t, repo.Delete(session.ID))
}

func TestInMemoryRepoTTLEviction(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := sessions.NewInMemoryRepo(8*time.Hour, sessions.WithNowTime(func() time.Time { return now }))

	session := sessions.New(now)
	require.NoError(t, repo.Upsert(session))

	now = now.Add(8 * time.Hour)
	_, err := repo.Get(session.ID)
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = repo.Get(session.ID)
	require.ErrorIs(t, err, sessions.ErrSessionExpired)

	// eviction is permanent, not just a filtered read
	_, err = repo.Get(session.ID)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestInMemoryRepoCloneIsolation(t *testing.T) {
	repo := sessions.NewInMemoryRepo(0)

	session := sessions.New(time.Now())
	session.Snapshot = &bank.AccountSnapshot{
		Accounts: []bank.Account{{AccountID: "acc-1"}},
	}
	require.NoError(t, repo.Upsert(session))

	// mutating the caller's copy after Upsert must not leak into the store
	session.Snapshot.Accounts[0].AccountID = "tampered"
	session.LastAuthError = "tampered"

	got, err := repo.Get(session.ID)
	require.NoError(t, err)
	require.Equal(t, "acc-1", got.Snapshot.Accounts[0].AccountID)
	require.Empty(t, got.LastAuthError)

	// mutating a fetched copy must not leak either
	got.Snapshot.Accounts[0].AccountID = "tampered-again"
	again, err := repo.Get(session.ID)
	require.NoError(t, err)
	require.Equal(t, "acc-1", again.Snapshot.Accounts[0].AccountID)
}

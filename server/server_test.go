package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/credlink/openbank-credit/bank"
	"github.com/credlink/openbank-credit/credentials"
	"github.com/credlink/openbank-credit/internal/config"
	"github.com/credlink/openbank-credit/server"
	"github.com/credlink/openbank-credit/sessions"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeExchanger struct {
	token *bank.TokenSet
	err   error

	calls    int
	lastCode string
	lastReq  *bank.AuthorizationRequest
}

func (f *fakeExchanger) Exchange(_ context.Context, code string, req *bank.AuthorizationRequest) (*bank.TokenSet, error) {
	f.calls++
	f.lastCode = code
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

type fakeFetcher struct {
	snapshot *bank.AccountSnapshot
	err      error
	calls    int
}

func (f *fakeFetcher) FetchSnapshot(_ context.Context, _ string) (*bank.AccountSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

type testHarness struct {
	server    *server.Server
	repo      *sessions.InMemoryRepo
	exchanger *fakeExchanger
	fetcher   *fakeFetcher
}

func freshToken() *bank.TokenSet {
	now := time.Now()
	return &bank.TokenSet{
		AccessToken: "at-test-123",
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Hour),
	}
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	creds, err := credentials.NewEphemeral()
	require.NoError(t, err)

	h := &testHarness{
		repo:      sessions.NewInMemoryRepo(0),
		exchanger: &fakeExchanger{token: freshToken()},
		fetcher: &fakeFetcher{snapshot: &bank.AccountSnapshot{
			Accounts:  []bank.Account{{AccountID: "acc-1", Currency: "AED"}},
			Balances:  []bank.Balance{{AccountID: "acc-1", Amount: 30000, Currency: "AED"}},
			FetchedAt: time.Now(),
		}},
	}
	h.server, err = server.New(config.New(), creds, h.exchanger, h.fetcher, h.repo)
	require.NoError(t, err)
	return h
}

func (h *testHarness) do(method, target string, cookies []*http.Cookie, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	return rec
}

// connect performs the connect redirect and returns the session cookies plus
// the state parameter the bank would echo back.
func (h *testHarness) connect(t *testing.T) ([]*http.Cookie, string) {
	t.Helper()

	rec := h.do(http.MethodGet, server.RouteBankConnect, nil, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies, state
}

func TestConnectRedirectsToBank(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(http.MethodGet, server.RouteBankConnect, nil, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	query := location.Query()
	require.Equal(t, "code", query.Get("response_type"))
	require.Equal(t, "S256", query.Get("code_challenge_method"))
	require.NotEmpty(t, query.Get("code_challenge"))
	require.NotEmpty(t, query.Get("state"))
	// the verifier must never leave the server
	require.NotContains(t, rec.Header().Get("Location"), "code_verifier")
}

func TestCallbackSuccessPersistsToken(t *testing.T) {
	h := newTestHarness(t)
	cookies, state := h.connect(t)

	rec := h.do(http.MethodGet, server.RouteBankCallback+"?code=auth-code-1&state="+state, cookies, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	query := location.Query()
	require.Equal(t, "true", query.Get("oauth_success"))
	require.NotEmpty(t, query.Get("expires_in"))

	require.Equal(t, 1, h.exchanger.calls)
	require.Equal(t, "auth-code-1", h.exchanger.lastCode)
	require.Equal(t, state, h.exchanger.lastReq.State)

	stored, err := h.repo.Get(cookies[0].Value)
	require.NoError(t, err)
	require.NotNil(t, stored.Token)
	require.Nil(t, stored.PendingAuth)
	require.Empty(t, stored.LastAuthError)
}

func TestCallbackBankDenied(t *testing.T) {
	h := newTestHarness(t)
	cookies, _ := h.connect(t)

	rec := h.do(http.MethodGet, server.RouteBankCallback+"?error=access_denied&error_description=User+cancelled", cookies, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "access_denied", location.Query().Get("oauth_error"))

	require.Zero(t, h.exchanger.calls)
	stored, err := h.repo.Get(cookies[0].Value)
	require.NoError(t, err)
	require.Nil(t, stored.Token)
	require.Nil(t, stored.PendingAuth)
	require.Equal(t, "User cancelled", stored.LastAuthError)
}

func TestCallbackStateMismatch(t *testing.T) {
	h := newTestHarness(t)
	cookies, _ := h.connect(t)

	rec := h.do(http.MethodGet, server.RouteBankCallback+"?code=auth-code-1&state=forged", cookies, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "state_mismatch", location.Query().Get("oauth_error"))
	require.Zero(t, h.exchanger.calls)
}

func TestCallbackWithoutPendingAuthorization(t *testing.T) {
	h := newTestHarness(t)

	// create a session without a pending request via the application form
	rec := h.do(http.MethodPost, server.RouteApplication, nil,
		`{"fullName":"Ada Lovelace","nationalId":"784-1","email":"ada@example.com","monthlyIncome":22000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()

	rec = h.do(http.MethodGet, server.RouteBankCallback+"?code=auth-code-1&state=anything", cookies, "")
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "no_pending_authorization", location.Query().Get("oauth_error"))
}

func TestCallbackExchangeFailure(t *testing.T) {
	h := newTestHarness(t)
	h.exchanger.err = errors.New("bank token endpoint returned 500")
	cookies, state := h.connect(t)

	rec := h.do(http.MethodGet, server.RouteBankCallback+"?code=auth-code-1&state="+state, cookies, "")
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "token_exchange_failed", location.Query().Get("oauth_error"))

	stored, err := h.repo.Get(cookies[0].Value)
	require.NoError(t, err)
	require.Nil(t, stored.Token)
	require.NotEmpty(t, stored.LastAuthError)
}

func statusOf(t *testing.T, h *testHarness, cookies []*http.Cookie) sessions.ConnectionStatus {
	t.Helper()
	rec := h.do(http.MethodGet, server.RouteBankStatus, cookies, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status sessions.ConnectionStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	return status
}

func TestStatusTransitions(t *testing.T) {
	h := newTestHarness(t)

	// no session at all
	require.Equal(t, sessions.StateDisconnected, statusOf(t, h, nil).State)

	// pending authorization is still disconnected
	cookies, state := h.connect(t)
	require.Equal(t, sessions.StateDisconnected, statusOf(t, h, cookies).State)

	// successful exchange connects
	h.do(http.MethodGet, server.RouteBankCallback+"?code=auth-code-1&state="+state, cookies, "")
	require.Equal(t, sessions.StateConnected, statusOf(t, h, cookies).State)

	// an expired token reports EXPIRED
	stored, err := h.repo.Get(cookies[0].Value)
	require.NoError(t, err)
	stored.Token.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, h.repo.Upsert(stored))
	require.Equal(t, sessions.StateExpired, statusOf(t, h, cookies).State)
}

func TestStatusErrorAfterDenial(t *testing.T) {
	h := newTestHarness(t)
	cookies, _ := h.connect(t)

	h.do(http.MethodGet, server.RouteBankCallback+"?error=access_denied", cookies, "")

	status := statusOf(t, h, cookies)
	require.Equal(t, sessions.StateError, status.State)
	require.NotEmpty(t, status.Reason)
}

func TestApplicationSubmitAndGet(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(http.MethodPost, server.RouteApplication, nil,
		`{"fullName":"Ada Lovelace","nationalId":"784-1985-1234567-1","email":"ada@example.com","phone":"+971501234567","monthlyIncome":22000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = h.do(http.MethodGet, server.RouteApplication, cookies, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var profile map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	require.Equal(t, "Ada Lovelace", profile["full_name"])
	require.Equal(t, float64(22000), profile["monthly_income"])
}

func TestApplicationValidation(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(http.MethodPost, server.RouteApplication, nil, `{"fullName":"","email":"ada@example.com"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, server.RouteApplication, nil,
		`{"fullName":"Ada","nationalId":"784-1","email":"not-an-email","monthlyIncome":1000}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, server.RouteApplication, nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssessmentEndToEnd(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(http.MethodPost, server.RouteApplication, nil,
		`{"fullName":"Ada Lovelace","nationalId":"784-1985-1234567-1","email":"ada@example.com","monthlyIncome":22000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()

	_, state := h.connectWithCookies(t, cookies)
	h.do(http.MethodGet, server.RouteBankCallback+"?code=auth-code-1&state="+state, cookies, "")

	rec = h.do(http.MethodGet, server.RouteAssessment, cookies, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["success"])
	require.Greater(t, resp["score"], float64(0))

	// a second request within the staleness window serves the cached result
	rec = h.do(http.MethodGet, server.RouteAssessment, cookies, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, h.fetcher.calls)
}

// connectWithCookies starts an authorization attempt on an existing session.
func (h *testHarness) connectWithCookies(t *testing.T, cookies []*http.Cookie) ([]*http.Cookie, string) {
	t.Helper()

	rec := h.do(http.MethodGet, server.RouteBankConnect, cookies, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return cookies, location.Query().Get("state")
}

func TestAssessmentDeclinedKeepsFixedShape(t *testing.T) {
	h := newTestHarness(t)
	// no accounts: every component scores its floor and the application
	// is declined
	h.fetcher.snapshot = &bank.AccountSnapshot{FetchedAt: time.Now()}

	rec := h.do(http.MethodPost, server.RouteApplication, nil,
		`{"fullName":"Ada Lovelace","nationalId":"784-1985-1234567-1","email":"ada@example.com","monthlyIncome":22000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()

	_, state := h.connectWithCookies(t, cookies)
	h.do(http.MethodGet, server.RouteBankCallback+"?code=auth-code-1&state="+state, cookies, "")

	rec = h.do(http.MethodGet, server.RouteAssessment, cookies, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{"success", "score", "approved", "creditLimit", "apr", "setupFee", "reason"} {
		require.Contains(t, raw, key)
	}

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["success"])
	require.Equal(t, false, resp["approved"])
	require.Equal(t, float64(0), resp["score"])
}

func TestAssessmentPendingWithoutSession(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(http.MethodGet, server.RouteAssessment, nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, false, resp["success"])
}

func TestAssessmentPendingWithoutBankConnection(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(http.MethodPost, server.RouteApplication, nil,
		`{"fullName":"Ada Lovelace","nationalId":"784-1","email":"ada@example.com","monthlyIncome":22000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, server.RouteAssessment, rec.Result().Cookies(), "")
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	h := newTestHarness(t)
	cookies, state := h.connect(t)
	h.do(http.MethodGet, server.RouteBankCallback+"?code=auth-code-1&state="+state, cookies, "")

	rec := h.do(http.MethodPost, server.RouteLogout, cookies, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	_, err := h.repo.Get(cookies[0].Value)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
	require.Equal(t, sessions.StateDisconnected, statusOf(t, h, cookies).State)
}

func TestHealthz(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(http.MethodGet, server.RouteHealth, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

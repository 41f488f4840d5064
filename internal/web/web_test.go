package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/storage"
	"github.com/dejisec/tattletale/internal/util"
)

func sampleReport() *model.Report {
	return &model.Report{
		GeneratedAt:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		TotalAccounts:      3,
		CrackedAccounts:    2,
		CrackedPercent:     66.666,
		SharedHashAccounts: 2,
		UniqueHashes:       2,
		Domains: []model.DomainStats{
			{Domain: "CORP", BasicStats: model.BasicStats{All: 3, Cracked: 2}},
		},
		TopReusedPasswords: []model.PasswordCount{
			{Plaintext: "Password1", Count: 2},
			{Plaintext: "", Count: 1},
		},
		SharedHashRows: []model.SharedHashRow{
			{Hash: "NTHASH1", Domain: "CORP", Username: "alice", Cracked: true},
			{Hash: "NTHASH1", Domain: "CORP", Username: "bob", Cracked: true},
		},
		SharedGroups: []model.HashGroup{{
			Hash: "NTHASH1", Cracked: true, Plaintext: "Password1",
			Members: []model.GroupMember{{Domain: "CORP", Username: "alice"}, {Domain: "CORP", Username: "bob", Target: true}},
		}},
		CrackedRows: []model.UserPassRow{
			{Domain: "CORP", Username: "alice", Plaintext: "Password1"},
			{Domain: "CORP", Username: "bob", Plaintext: "Password1"},
		},
		Targets: model.TargetSection{
			Supplied: true,
			Names:    1,
			Accounts: []model.TargetStatus{{Domain: "CORP", Username: "bob", Cracked: true, Plaintext: "Password1"}},
		},
	}
}

func newTestServer(t *testing.T, db *storage.DB) (*Server, *int) {
	t.Helper()
	calls := 0
	s := NewServer(util.DefaultConfig(), func(context.Context) (*model.Report, error) {
		calls++
		return sampleReport(), nil
	}, db)
	_, err := s.Reload(context.Background())
	require.NoError(t, err)
	return s, &calls
}

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestDashboard(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "TATTLETALE")
	assert.Contains(t, body, "High-Value Targets (Cracked 1/1)")
	assert.Contains(t, body, "66.67%")
	assert.Contains(t, body, "flowchart LR")
	assert.Contains(t, body, "(empty)")

	rec = get(t, s.Handler(), http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIEndpoints(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	tests := []struct {
		path string
		want string
	}{
		{"/api/summary", `"total_accounts":3`},
		{"/api/domains", `"domain":"CORP"`},
		{"/api/passwords", `"plaintext":"Password1"`},
		{"/api/shared", `"total":1`},
		{"/api/cracked", `"username":"alice"`},
		{"/api/targets", `"cracked":1`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, http.MethodGet, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestAPIGetPasswordsLimit(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s.Handler(), http.MethodGet, "/api/passwords?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []model.PasswordCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []model.PasswordCount{{Plaintext: "Password1", Count: 2}}, got)

	rec = get(t, s.Handler(), http.MethodGet, "/api/passwords?limit=-3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIGetSharedPagination(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s.Handler(), http.MethodGet, "/api/shared?page=2&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Groups     []model.HashGroup `json:"groups"`
		Page       int               `json:"page"`
		TotalPages int               `json:"total_pages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got.Groups)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 1, got.TotalPages)
}

func TestExports(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := get(t, h, http.MethodGet, "/export/shared.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hash,Username,Cracked\nNTHASH1,CORP\\alice,true\nNTHASH1,CORP\\bob,true\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tattletale_shared_hashes_2024.05.01_12.00.00.csv")

	rec = get(t, h, http.MethodGet, "/export/user_pass.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CORP\\alice:Password1\nCORP\\bob:Password1\n", rec.Body.String())

	rec = get(t, h, http.MethodGet, "/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# TattleTale Credential Audit"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tattletale_report_2024.05.01_12.00.00.md")
}

func TestReload(t *testing.T) {
	s, calls := newTestServer(t, nil)
	h := s.Handler()

	rec := get(t, h, http.MethodGet, "/api/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = get(t, h, http.MethodPost, "/api/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, *calls)
}

func TestReloadError(t *testing.T) {
	s := NewServer(util.DefaultConfig(), func(context.Context) (*model.Report, error) {
		return nil, errors.New("inputs missing")
	}, nil)

	rec := get(t, s.Handler(), http.MethodPost, "/api/reload")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "inputs missing")

	rec = get(t, s.Handler(), http.MethodGet, "/api/summary")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunsWithDatabase(t *testing.T) {
	rec := get(t, func() http.Handler { s, _ := newTestServer(t, nil); return s.Handler() }(), http.MethodGet, "/api/runs")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	db, err := storage.Open("sqlite3", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, _ := newTestServer(t, db)
	rec = get(t, s.Handler(), http.MethodGet, "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []storage.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].TotalAccounts)
}

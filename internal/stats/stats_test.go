package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejisec/tattletale/internal/index"
	"github.com/dejisec/tattletale/internal/model"
)

var fixedNow = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func scenarioAccounts() []model.Account {
	return []model.Account{
		{Domain: "CORP", Username: "alice", RID: 500, LMHash: model.NullLMHash, NTHash: "NTHASH1"},
		{Domain: "CORP", Username: "bob", RID: 501, LMHash: model.NullLMHash, NTHash: "NTHASH1"},
		{Domain: "CORP", Username: "carol", RID: 502, LMHash: model.NullLMHash, NTHash: "NTHASH2"},
	}
}

func scenarioPot() []model.CrackedPair {
	return []model.CrackedPair{{Hash: "NTHASH1", Plaintext: "Password1"}}
}

func TestSummarizeWithoutTargets(t *testing.T) {
	r := Summarize(index.Build(scenarioAccounts(), scenarioPot()), nil, Options{Now: fixedNow})

	assert.Equal(t, 3, r.TotalAccounts)
	assert.Equal(t, 2, r.CrackedAccounts)
	assert.InDelta(t, 66.666, r.CrackedPercent, 0.01)
	assert.Equal(t, 2, r.SharedHashAccounts)
	assert.Equal(t, 2, r.UniqueHashes)
	assert.Equal(t, 1, r.UniqueCrackedPasswords)

	assert.Equal(t, []model.SharedHashRow{
		{Hash: "NTHASH1", Domain: "CORP", Username: "alice", Cracked: true},
		{Hash: "NTHASH1", Domain: "CORP", Username: "bob", Cracked: true},
	}, r.SharedHashRows)
	assert.Equal(t, []model.UserPassRow{
		{Domain: "CORP", Username: "alice", Plaintext: "Password1"},
		{Domain: "CORP", Username: "bob", Plaintext: "Password1"},
	}, r.CrackedRows)
	assert.Equal(t, []model.PasswordCount{{Plaintext: "Password1", Count: 2}}, r.TopReusedPasswords)

	require.Len(t, r.Domains, 1)
	assert.Equal(t, "CORP", r.Domains[0].Domain)
	assert.Equal(t, 3, r.Domains[0].All)
	assert.Equal(t, 2, r.Domains[0].Cracked)

	require.Len(t, r.SharedGroups, 1)
	assert.Equal(t, "NTHASH1", r.SharedGroups[0].Hash)
	assert.Equal(t, "Password1", r.SharedGroups[0].Plaintext)
	assert.Len(t, r.SharedGroups[0].Members, 2)

	assert.False(t, r.Targets.Supplied)
	assert.Empty(t, r.TargetExposure)
	assert.Equal(t, fixedNow(), r.GeneratedAt)
}

func TestSummarizeWithTargetFilter(t *testing.T) {
	ix := index.Build(scenarioAccounts(), scenarioPot())
	r := Summarize(ix, NewTargetFilter([]string{"BOB", "mallory"}), Options{})

	assert.Equal(t, 1, r.TotalAccounts)
	assert.Equal(t, 1, r.CrackedAccounts)
	assert.Equal(t, 100.0, r.CrackedPercent)
	assert.Empty(t, r.SharedHashRows)
	assert.Empty(t, r.SharedGroups)
	assert.Zero(t, r.SharedHashAccounts)
	assert.Equal(t, []model.UserPassRow{{Domain: "CORP", Username: "bob", Plaintext: "Password1"}}, r.CrackedRows)

	assert.True(t, r.Targets.Supplied)
	assert.Equal(t, 2, r.Targets.Names)
	assert.Equal(t, 1, r.Targets.CrackedCount())
	assert.Equal(t, []string{"mallory"}, r.Targets.Unmatched)

	// The full-universe view still shows who bob shares a hash with.
	require.Len(t, r.TargetExposure, 1)
	exp := r.TargetExposure[0]
	assert.Equal(t, "NTHASH1", exp.Hash)
	require.Len(t, exp.Members, 2)
	assert.False(t, exp.Members[0].Target)
	assert.True(t, exp.Members[1].Target)
}

func TestEmptyTargetListDoesNotFilter(t *testing.T) {
	ix := index.Build(scenarioAccounts(), scenarioPot())
	r := Summarize(ix, NewTargetFilter([]string{"", "   "}), Options{})
	assert.Equal(t, 3, r.TotalAccounts)
	assert.False(t, r.Targets.Supplied)
}

func TestSummarizeEmptyPotfile(t *testing.T) {
	r := Summarize(index.Build(scenarioAccounts(), nil), nil, Options{})

	assert.Equal(t, 3, r.TotalAccounts)
	assert.Zero(t, r.CrackedAccounts)
	assert.Zero(t, r.CrackedPercent)
	assert.Empty(t, r.TopReusedPasswords)
	assert.Empty(t, r.CrackedRows)
	for _, row := range r.SharedHashRows {
		assert.False(t, row.Cracked)
	}
}

func TestSummarizeNoAccounts(t *testing.T) {
	r := Summarize(index.Build(nil, scenarioPot()), nil, Options{})
	assert.Zero(t, r.TotalAccounts)
	assert.Zero(t, r.CrackedPercent)
	assert.Zero(t, r.SharedHashPercent)
	assert.NotNil(t, r.SharedHashRows)
	assert.NotNil(t, r.CrackedRows)
}

func TestCrackRateMatchesRows(t *testing.T) {
	accounts := []model.Account{
		{Domain: "A", Username: "u1", NTHash: "h1"},
		{Domain: "A", Username: "u2", NTHash: "h2"},
		{Domain: "B", Username: "u3", NTHash: "h1"},
		{Domain: "B", Username: "u4", NTHash: "h3"},
		{Domain: "", Username: "u5", NTHash: "h4"},
		{Domain: "", Username: "u6", NTHash: "h5"},
		{Domain: "C", Username: "u7", NTHash: "h6"},
	}
	pairs := []model.CrackedPair{{Hash: "h1", Plaintext: "x"}, {Hash: "h4", Plaintext: ""}, {Hash: "h6", Plaintext: "y"}}
	r := Summarize(index.Build(accounts, pairs), nil, Options{})

	assert.Equal(t, len(r.CrackedRows), r.CrackedAccounts)
	assert.InDelta(t, Percent(len(r.CrackedRows), r.TotalAccounts), r.CrackedPercent, 1e-9)
	assert.Equal(t, 4, r.CrackedAccounts)
}

func TestSharedRowsOnlyForGroupsOfTwoOrMore(t *testing.T) {
	accounts := []model.Account{
		{Domain: "D", Username: "z", NTHash: "b"},
		{Domain: "D", Username: "y", NTHash: "a"},
		{Domain: "E", Username: "y", NTHash: "a"},
		{Domain: "D", Username: "x", NTHash: "b"},
		{Domain: "D", Username: "solo", NTHash: "c"},
	}
	ix := index.Build(accounts, nil)
	r := Summarize(ix, nil, Options{})

	require.Len(t, r.SharedHashRows, 4)
	assert.Equal(t, []model.SharedHashRow{
		{Hash: "a", Domain: "D", Username: "y"},
		{Hash: "a", Domain: "E", Username: "y"},
		{Hash: "b", Domain: "D", Username: "x"},
		{Hash: "b", Domain: "D", Username: "z"},
	}, r.SharedHashRows)
	for _, row := range r.SharedHashRows {
		assert.GreaterOrEqual(t, ix.GroupSize(row.Hash), 2)
		assert.NotEqual(t, "solo", row.Username)
	}
}

func TestTopPasswordsOrdering(t *testing.T) {
	var accounts []model.Account
	var pairs []model.CrackedPair
	add := func(user, hash, pw string) {
		accounts = append(accounts, model.Account{Username: user, NTHash: hash})
		pairs = append(pairs, model.CrackedPair{Hash: hash, Plaintext: pw})
	}
	add("a", "h1", "winter")
	add("b", "h2", "autumn")
	add("c", "h3", "winter")
	add("d", "h4", "autumn")
	add("e", "h5", "spring")
	add("f", "h6", "")
	add("g", "h7", "")
	add("h", "h8", "")

	r := Summarize(index.Build(accounts, pairs), nil, Options{TopN: 3})
	assert.Equal(t, []model.PasswordCount{
		{Plaintext: "", Count: 3},
		{Plaintext: "autumn", Count: 2},
		{Plaintext: "winter", Count: 2},
	}, r.TopReusedPasswords)

	r = Summarize(index.Build(accounts, pairs), nil, Options{})
	assert.Len(t, r.TopReusedPasswords, 4)
}

func TestDomainBreakdownAndCategories(t *testing.T) {
	accounts := []model.Account{
		{Domain: "CORP", Username: "alice", LMHash: model.NullLMHash, NTHash: "n1"},
		{Domain: "corp", Username: "bob", LMHash: "lm2", NTHash: "n2"},
		{Domain: "CORP", Username: "WS01$", LMHash: model.NullLMHash, NTHash: "n3"},
		{Domain: "", Username: "guest", LMHash: model.NullLMHash, NTHash: model.NullNTHash},
	}
	pairs := []model.CrackedPair{{Hash: "n1", Plaintext: "pw"}, {Hash: model.NullNTHash, Plaintext: ""}}
	r := Summarize(index.Build(accounts, pairs), nil, Options{})

	require.Len(t, r.Domains, 3)
	assert.Equal(t, "", r.Domains[0].Domain)
	assert.Equal(t, "CORP", r.Domains[1].Domain)
	assert.Equal(t, 2, r.Domains[1].All)
	assert.Equal(t, 1, r.Domains[1].Cracked)
	assert.Equal(t, 50.0, r.Domains[1].CrackedPercent)
	assert.Equal(t, "corp", r.Domains[2].Domain)

	c := r.Categories
	assert.Equal(t, 3, c.Users.All)
	assert.Equal(t, 1, c.Machines.All)
	assert.Equal(t, 1, c.ValidMachines.All)
	assert.Equal(t, 2, c.ValidDomainUsers.All)
	assert.Equal(t, 1, c.Null.All)
	assert.Equal(t, 1, c.Null.Cracked)
	assert.Equal(t, 1, c.NoDomain.All)
	assert.Equal(t, 1, c.LM.All)
	assert.Equal(t, 3, c.NT.All)
	assert.Equal(t, 1, c.Both.All)
	assert.Equal(t, 4, c.NT.Unique+c.Null.Unique)
}

func TestTargetFilter(t *testing.T) {
	f := NewTargetFilter([]string{" Straße ", "ADMIN", "admin"})
	assert.True(t, f.Active())
	assert.Equal(t, 2, f.Len())
	assert.True(t, f.Match("admin"))
	assert.True(t, f.Match("STRASSE"))
	assert.False(t, f.Match("adm"))
	assert.Equal(t, []string{"ADMIN", "Straße"}, f.Names())

	var none *TargetFilter
	assert.False(t, none.Active())
	assert.False(t, none.Match("admin"))
	assert.Nil(t, none.Names())
}

func TestPercent(t *testing.T) {
	assert.Zero(t, Percent(5, 0))
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.Equal(t, 100.0, Percent(3, 3))
}

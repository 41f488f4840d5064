// Package stats derives report statistics from a correlation index.
package stats

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/dejisec/tattletale/internal/index"
	"github.com/dejisec/tattletale/internal/model"
)

// DefaultTopN is the length of the password reuse ranking.
const DefaultTopN = 10

// Options controls summarization.
type Options struct {
	TopN int
	Now  func() time.Time
}

// entry is one account of the analysed universe with its crack state.
type entry struct {
	model.Account
	cracked   bool
	plaintext string
	target    bool
}

// Summarize builds a report from ix. When filter is active every statistic,
// including shared-hash group sizes, is computed over the matching accounts only.
func Summarize(ix *index.Index, filter *TargetFilter, opts Options) *model.Report {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	all := make([]entry, 0, ix.Len())
	for _, a := range ix.Accounts() {
		pw, ok := ix.Crack(a)
		all = append(all, entry{Account: a, cracked: ok, plaintext: pw, target: filter.Match(a.Username)})
	}

	universe := all
	if filter.Active() {
		universe = lo.Filter(all, func(e entry, _ int) bool { return e.target })
	}

	groupSize := lo.CountValuesBy(universe, func(e entry) string { return e.NTHash })
	cracked := lo.Filter(universe, func(e entry, _ int) bool { return e.cracked })

	r := &model.Report{
		GeneratedAt:            now(),
		TotalAccounts:          len(universe),
		CrackedAccounts:        len(cracked),
		CrackedPercent:         Percent(len(cracked), len(universe)),
		UniqueHashes:           len(groupSize),
		UniqueCrackedPasswords: len(lo.Uniq(lo.Map(cracked, func(e entry, _ int) string { return e.plaintext }))),
		Conflicts:              ix.Conflicts(),
	}

	r.SharedHashRows = sharedRows(universe, groupSize)
	r.SharedHashAccounts = len(r.SharedHashRows)
	r.SharedHashPercent = Percent(r.SharedHashAccounts, r.TotalAccounts)
	r.SharedGroups = groupRows(universe, groupSize, ix)

	r.CrackedRows = crackedRows(cracked)
	r.TopReusedPasswords = topPasswords(cracked, opts.TopN)
	r.Domains = domainBreakdown(universe)
	r.Categories = categorize(universe)

	if filter.Active() {
		r.Targets = targetSection(universe, filter)
		r.TargetExposure = exposure(all, ix)
	}

	return r
}

// Percent returns n/d as a percentage, or 0 when d is 0.
func Percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

func sharedRows(universe []entry, groupSize map[string]int) []model.SharedHashRow {
	rows := []model.SharedHashRow{}
	for _, e := range universe {
		if groupSize[e.NTHash] < 2 {
			continue
		}
		rows = append(rows, model.SharedHashRow{
			Hash:     e.NTHash,
			Domain:   e.Domain,
			Username: e.Username,
			Cracked:  e.cracked,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Hash != b.Hash {
			return a.Hash < b.Hash
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.Domain < b.Domain
	})
	return rows
}

// groupRows returns shared groups, largest first, then by hash.
func groupRows(universe []entry, groupSize map[string]int, ix *index.Index) []model.HashGroup {
	byHash := lo.GroupBy(
		lo.Filter(universe, func(e entry, _ int) bool { return groupSize[e.NTHash] >= 2 }),
		func(e entry) string { return e.NTHash },
	)
	return buildGroups(byHash, ix)
}

// exposure returns full-universe shared groups holding at least one target.
func exposure(all []entry, ix *index.Index) []model.HashGroup {
	byHash := lo.GroupBy(all, func(e entry) string { return e.NTHash })
	for h, members := range byHash {
		if len(members) < 2 || !lo.ContainsBy(members, func(e entry) bool { return e.target }) {
			delete(byHash, h)
		}
	}
	return buildGroups(byHash, ix)
}

func buildGroups(byHash map[string][]entry, ix *index.Index) []model.HashGroup {
	groups := make([]model.HashGroup, 0, len(byHash))
	for hash, members := range byHash {
		pw, ok := ix.Lookup(hash)
		g := model.HashGroup{Hash: hash, Cracked: ok, Plaintext: pw}
		for _, e := range members {
			g.Members = append(g.Members, model.GroupMember{Domain: e.Domain, Username: e.Username, Target: e.target})
		}
		sort.SliceStable(g.Members, func(i, j int) bool {
			a, b := g.Members[i], g.Members[j]
			if a.Username != b.Username {
				return a.Username < b.Username
			}
			return a.Domain < b.Domain
		})
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].Members) != len(groups[j].Members) {
			return len(groups[i].Members) > len(groups[j].Members)
		}
		return groups[i].Hash < groups[j].Hash
	})
	return groups
}

func crackedRows(cracked []entry) []model.UserPassRow {
	rows := lo.Map(cracked, func(e entry, _ int) model.UserPassRow {
		return model.UserPassRow{Domain: e.Domain, Username: e.Username, Plaintext: e.plaintext}
	})
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Username != rows[j].Username {
			return rows[i].Username < rows[j].Username
		}
		return rows[i].Domain < rows[j].Domain
	})
	return rows
}

// topPasswords ranks plaintexts by frequency, ties broken lexicographically.
func topPasswords(cracked []entry, n int) []model.PasswordCount {
	counts := lo.CountValuesBy(cracked, func(e entry) string { return e.plaintext })
	ranked := lo.MapToSlice(counts, func(pw string, c int) model.PasswordCount {
		return model.PasswordCount{Plaintext: pw, Count: c}
	})
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Plaintext < ranked[j].Plaintext
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func basicStats(entries []entry) model.BasicStats {
	cracked := lo.CountBy(entries, func(e entry) bool { return e.cracked })
	unique := lo.Uniq(lo.Map(entries, func(e entry, _ int) string { return e.NTHash }))
	uniqueCracked := lo.Uniq(lo.FilterMap(entries, func(e entry, _ int) (string, bool) {
		return e.NTHash, e.cracked
	}))
	return model.BasicStats{
		All:                  len(entries),
		Cracked:              cracked,
		CrackedPercent:       Percent(cracked, len(entries)),
		Unique:               len(unique),
		UniqueCracked:        len(uniqueCracked),
		UniqueCrackedPercent: Percent(len(uniqueCracked), len(unique)),
	}
}

// domainBreakdown groups by the literal domain string; empty is its own bucket.
func domainBreakdown(universe []entry) []model.DomainStats {
	byDomain := lo.GroupBy(universe, func(e entry) string { return e.Domain })
	out := lo.MapToSlice(byDomain, func(domain string, entries []entry) model.DomainStats {
		return model.DomainStats{Domain: domain, BasicStats: basicStats(entries)}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

func hasLM(a model.Account) bool { return a.LMHash != "" && !a.HasNullLM() }
func hasNT(a model.Account) bool { return a.NTHash != "" && !a.HasNullNT() }

func categorize(universe []entry) model.Categories {
	isNull := func(e entry) bool { return !hasLM(e.Account) && !hasNT(e.Account) }
	pick := func(pred func(e entry) bool) model.BasicStats {
		return basicStats(lo.Filter(universe, func(e entry, _ int) bool { return pred(e) }))
	}
	return model.Categories{
		Users:    pick(func(e entry) bool { return !e.IsMachine() }),
		Machines: pick(func(e entry) bool { return e.IsMachine() }),
		ValidDomainUsers: pick(func(e entry) bool {
			return !e.IsMachine() && !isNull(e) && e.Domain != ""
		}),
		ValidMachines: pick(func(e entry) bool { return e.IsMachine() && !isNull(e) }),
		NoDomain:      pick(func(e entry) bool { return e.Domain == "" }),
		Null:          pick(isNull),
		LM:            pick(func(e entry) bool { return hasLM(e.Account) }),
		NT:            pick(func(e entry) bool { return hasNT(e.Account) }),
		Both:          pick(func(e entry) bool { return hasLM(e.Account) && hasNT(e.Account) }),
	}
}

func targetSection(universe []entry, filter *TargetFilter) model.TargetSection {
	sec := model.TargetSection{Supplied: true, Names: filter.Len()}
	matched := make(map[string]bool)
	for _, e := range universe {
		matched[fold(e.Username)] = true
		sec.Accounts = append(sec.Accounts, model.TargetStatus{
			Domain:    e.Domain,
			Username:  e.Username,
			Cracked:   e.cracked,
			Plaintext: e.plaintext,
		})
	}
	sort.SliceStable(sec.Accounts, func(i, j int) bool {
		a, b := sec.Accounts[i], sec.Accounts[j]
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.Domain < b.Domain
	})
	for _, n := range filter.Names() {
		if !matched[fold(n)] {
			sec.Unmatched = append(sec.Unmatched, n)
		}
	}
	return sec
}

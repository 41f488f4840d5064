// Package index correlates accounts by NT hash and resolves cracked plaintexts.
package index

import (
	"sort"

	"github.com/dejisec/tattletale/internal/model"
)

// Options controls index construction.
type Options struct {
	// Dedupe drops repeated (domain, username, NT hash) records.
	Dedupe bool
}

type crack struct {
	plaintext string
	source    string
}

// Index is the hash to accounts multimap plus the hash to plaintext map.
type Index struct {
	accounts  []model.Account
	groups    map[string][]int
	cracked   map[string]crack
	conflicts []model.HashConflict
	dropped   int
}

// Build creates an index with default options.
func Build(accounts []model.Account, pairs []model.CrackedPair) *Index {
	return BuildWithOptions(accounts, pairs, Options{})
}

// BuildWithOptions creates an index. Pairs are merged in (source, line)
// order and the first plaintext seen for a hash wins.
func BuildWithOptions(accounts []model.Account, pairs []model.CrackedPair, opts Options) *Index {
	ix := &Index{
		groups:  make(map[string][]int),
		cracked: make(map[string]crack, len(pairs)),
	}

	seen := make(map[[3]string]struct{})
	for _, a := range accounts {
		if opts.Dedupe {
			key := [3]string{a.Domain, a.Username, a.NTHash}
			if _, dup := seen[key]; dup {
				ix.dropped++
				continue
			}
			seen[key] = struct{}{}
		}
		ix.groups[a.NTHash] = append(ix.groups[a.NTHash], len(ix.accounts))
		ix.accounts = append(ix.accounts, a)
	}

	ordered := make([]model.CrackedPair, len(pairs))
	copy(ordered, pairs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Source != ordered[j].Source {
			return ordered[i].Source < ordered[j].Source
		}
		return ordered[i].Line < ordered[j].Line
	})

	for _, p := range ordered {
		prev, ok := ix.cracked[p.Hash]
		if !ok {
			ix.cracked[p.Hash] = crack{plaintext: p.Plaintext, source: p.Source}
			continue
		}
		if prev.plaintext != p.Plaintext {
			ix.conflicts = append(ix.conflicts, model.HashConflict{
				Hash:            p.Hash,
				Kept:            prev.plaintext,
				KeptSource:      prev.source,
				Discarded:       p.Plaintext,
				DiscardedSource: p.Source,
			})
		}
	}

	return ix
}

// Accounts returns every indexed account in ingestion order.
func (ix *Index) Accounts() []model.Account {
	return ix.accounts
}

// Len returns the number of indexed accounts.
func (ix *Index) Len() int {
	return len(ix.accounts)
}

// Lookup returns the plaintext for a hash.
func (ix *Index) Lookup(hash string) (string, bool) {
	c, ok := ix.cracked[hash]
	return c.plaintext, ok
}

// Crack returns the plaintext for an account's NT hash.
func (ix *Index) Crack(a model.Account) (string, bool) {
	return ix.Lookup(a.NTHash)
}

// Group returns every account sharing hash.
func (ix *Index) Group(hash string) []model.Account {
	idx := ix.groups[hash]
	out := make([]model.Account, len(idx))
	for i, n := range idx {
		out[i] = ix.accounts[n]
	}
	return out
}

// GroupSize returns how many accounts share hash.
func (ix *Index) GroupSize(hash string) int {
	return len(ix.groups[hash])
}

// Hashes returns every distinct NT hash, sorted.
func (ix *Index) Hashes() []string {
	hashes := make([]string, 0, len(ix.groups))
	for h := range ix.groups {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	return hashes
}

// CrackedHashes returns how many distinct hashes have a plaintext.
func (ix *Index) CrackedHashes() int {
	return len(ix.cracked)
}

// Conflicts returns hashes that resolved to more than one plaintext.
func (ix *Index) Conflicts() []model.HashConflict {
	return ix.conflicts
}

// Dropped returns how many duplicate accounts Dedupe removed.
func (ix *Index) Dropped() int {
	return ix.dropped
}

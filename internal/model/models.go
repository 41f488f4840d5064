// Package model defines core data structures for tattletale.
package model

import (
	"strings"
	"time"
)

// Well-known hash values stored for accounts without an LM or NT password.
const (
	NullLMHash = "aad3b435b51404eeaad3b435b51404ee"
	NullNTHash = "31d6cfe0d16ae931b73c59d7e0c089c0"
)

// Account represents one line of a directory-service credential export.
type Account struct {
	Domain   string `json:"domain"`
	Username string `json:"username"`
	RID      int64  `json:"rid"`
	LMHash   string `json:"lm_hash"`
	NTHash   string `json:"nt_hash"`
	Source   string `json:"source,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// LogonName returns the down-level logon name (DOMAIN\user, or user without a domain).
func (a Account) LogonName() string {
	if a.Domain == "" {
		return a.Username
	}
	return a.Domain + `\` + a.Username
}

// IsMachine reports whether the account is a computer account.
func (a Account) IsMachine() bool {
	return strings.HasSuffix(strings.TrimSpace(a.Username), "$")
}

// HasNullLM reports whether the LM hash is the blank sentinel.
func (a Account) HasNullLM() bool {
	return strings.EqualFold(a.LMHash, NullLMHash)
}

// HasNullNT reports whether the NT hash is the blank sentinel.
func (a Account) HasNullNT() bool {
	return strings.EqualFold(a.NTHash, NullNTHash)
}

// IsNullHash reports whether both hashes are blank.
func (a Account) IsNullHash() bool {
	return a.HasNullLM() && a.HasNullNT()
}

// CrackedPair represents one hash:plaintext line of a potfile.
type CrackedPair struct {
	Hash      string `json:"hash"`
	Plaintext string `json:"plaintext"`
	Source    string `json:"source,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Target is a username from a watch-list file.
type Target struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
}

// Format identifies one of the three input formats.
type Format string

const (
	FormatAccounts Format = "ditfile"
	FormatPot      Format = "potfile"
	FormatTargets  Format = "targetfile"
)

// ReadStrategy identifies how an input file was read.
type ReadStrategy string

const (
	StrategyStream ReadStrategy = "stream"
	StrategyMmap   ReadStrategy = "mmap"
)

// FileStats holds per-file line counters collected during ingestion.
type FileStats struct {
	Path      string       `json:"path"`
	Format    Format       `json:"format"`
	Strategy  ReadStrategy `json:"strategy"`
	Size      int64        `json:"size"`
	Lines     int          `json:"lines"`
	Records   int          `json:"records"`
	Empty     int          `json:"empty"`
	Malformed int          `json:"malformed"`
}

// Skipped returns the number of lines that produced no record.
func (s FileStats) Skipped() int {
	return s.Empty + s.Malformed
}

// Diagnostics accumulates ingestion counters for one run.
type Diagnostics struct {
	Files         []FileStats `json:"files"`
	MissingFiles  []string    `json:"missing_files,omitempty"`
	DuplicatesCut int         `json:"duplicates_cut,omitempty"`
}

// Malformed returns the total malformed line count for a format.
func (d *Diagnostics) Malformed(f Format) int {
	if d == nil {
		return 0
	}
	n := 0
	for _, fs := range d.Files {
		if fs.Format == f {
			n += fs.Malformed
		}
	}
	return n
}

// Records returns the total record count for a format.
func (d *Diagnostics) Records(f Format) int {
	if d == nil {
		return 0
	}
	n := 0
	for _, fs := range d.Files {
		if fs.Format == f {
			n += fs.Records
		}
	}
	return n
}

// HashConflict records a hash that potfiles resolved to different plaintexts.
type HashConflict struct {
	Hash            string `json:"hash"`
	Kept            string `json:"kept"`
	KeptSource      string `json:"kept_source"`
	Discarded       string `json:"discarded"`
	DiscardedSource string `json:"discarded_source"`
}

// BasicStats holds counts and percentages for a bucket of accounts.
type BasicStats struct {
	All                  int     `json:"all"`
	Cracked              int     `json:"cracked"`
	CrackedPercent       float64 `json:"cracked_percent"`
	Unique               int     `json:"unique"`
	UniqueCracked        int     `json:"unique_cracked"`
	UniqueCrackedPercent float64 `json:"unique_cracked_percent"`
}

// DomainStats is one row of the per-domain breakdown.
type DomainStats struct {
	Domain string `json:"domain"`
	BasicStats
}

// Categories groups statistics by account and hash type.
type Categories struct {
	Users            BasicStats `json:"users"`
	Machines         BasicStats `json:"machines"`
	ValidDomainUsers BasicStats `json:"valid_domain_users"`
	ValidMachines    BasicStats `json:"valid_machines"`
	NoDomain         BasicStats `json:"no_domain"`
	Null             BasicStats `json:"null"`
	LM               BasicStats `json:"lm"`
	NT               BasicStats `json:"nt"`
	Both             BasicStats `json:"both"`
}

// PasswordCount is one entry of the password reuse ranking.
type PasswordCount struct {
	Plaintext string `json:"plaintext"`
	Count     int    `json:"count"`
}

// SharedHashRow is one account belonging to a shared-hash group.
type SharedHashRow struct {
	Hash     string `json:"hash"`
	Domain   string `json:"domain"`
	Username string `json:"username"`
	Cracked  bool   `json:"cracked"`
}

// UserPassRow is one cracked account.
type UserPassRow struct {
	Domain    string `json:"domain"`
	Username  string `json:"username"`
	Plaintext string `json:"plaintext"`
}

// GroupMember is an account inside a HashGroup.
type GroupMember struct {
	Domain   string `json:"domain"`
	Username string `json:"username"`
	Target   bool   `json:"target"`
}

// LogonName returns DOMAIN\user, or user without a domain.
func (m GroupMember) LogonName() string {
	if m.Domain == "" {
		return m.Username
	}
	return m.Domain + `\` + m.Username
}

// HashGroup is a set of accounts sharing one NT hash.
type HashGroup struct {
	Hash      string        `json:"hash"`
	Cracked   bool          `json:"cracked"`
	Plaintext string        `json:"plaintext,omitempty"`
	Members   []GroupMember `json:"members"`
}

// TargetStatus is the crack state of one targeted account.
type TargetStatus struct {
	Domain    string `json:"domain"`
	Username  string `json:"username"`
	Cracked   bool   `json:"cracked"`
	Plaintext string `json:"plaintext,omitempty"`
}

// TargetSection summarizes the watch-list.
type TargetSection struct {
	Supplied  bool           `json:"supplied"`
	Names     int            `json:"names"`
	Accounts  []TargetStatus `json:"accounts"`
	Unmatched []string       `json:"unmatched,omitempty"`
}

// CrackedCount returns how many targeted accounts are cracked.
func (t TargetSection) CrackedCount() int {
	n := 0
	for _, a := range t.Accounts {
		if a.Cracked {
			n++
		}
	}
	return n
}

// Report is the complete result of one analysis run.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`

	TotalAccounts          int     `json:"total_accounts"`
	CrackedAccounts        int     `json:"cracked_accounts"`
	CrackedPercent         float64 `json:"cracked_percent"`
	SharedHashAccounts     int     `json:"shared_hash_accounts"`
	SharedHashPercent      float64 `json:"shared_hash_percent"`
	UniqueHashes           int     `json:"unique_hashes"`
	UniqueCrackedPasswords int     `json:"unique_cracked_passwords"`

	Categories         Categories      `json:"categories"`
	Domains            []DomainStats   `json:"domains"`
	TopReusedPasswords []PasswordCount `json:"top_reused_passwords"`
	SharedHashRows     []SharedHashRow `json:"shared_hash_rows"`
	SharedGroups       []HashGroup     `json:"shared_groups"`
	CrackedRows        []UserPassRow   `json:"cracked_rows"`

	Targets        TargetSection `json:"targets"`
	TargetExposure []HashGroup   `json:"target_exposure,omitempty"`

	Conflicts   []HashConflict `json:"conflicts,omitempty"`
	Diagnostics *Diagnostics   `json:"diagnostics,omitempty"`
}

// ReportOptions defines the inputs and knobs for one analysis run.
type ReportOptions struct {
	AccountFiles []string `json:"account_files"`
	PotFiles     []string `json:"pot_files"`
	TargetFiles  []string `json:"target_files"`
	TopN         int      `json:"top_n"`
}

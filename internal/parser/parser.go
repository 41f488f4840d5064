// Package parser turns raw lines of the three input formats into typed records.
package parser

import (
	"strconv"
	"strings"

	"github.com/dejisec/tattletale/internal/model"
)

// SkipReason explains why a line produced no record.
type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipEmpty
	SkipMalformed
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipEmpty:
		return "empty"
	case SkipMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

const (
	fieldSep  = ":"
	domainSep = `\`
)

// ParseAccount parses a DOMAIN\user:rid:lm:nt line.
// Secretsdump output carries a trailing ":::" which is accepted as long as the
// extra fields are empty.
func ParseAccount(line string) (model.Account, SkipReason) {
	line = strings.TrimSpace(line)
	if line == "" {
		return model.Account{}, SkipEmpty
	}

	fields := strings.Split(line, fieldSep)
	if len(fields) < 4 {
		return model.Account{}, SkipMalformed
	}
	for _, extra := range fields[4:] {
		if strings.TrimSpace(extra) != "" {
			return model.Account{}, SkipMalformed
		}
	}

	rid, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return model.Account{}, SkipMalformed
	}

	domain, username := SplitLogonName(strings.TrimSpace(fields[0]))
	if username == "" {
		return model.Account{}, SkipMalformed
	}

	return model.Account{
		Domain:   domain,
		Username: username,
		RID:      rid,
		LMHash:   strings.TrimSpace(fields[2]),
		NTHash:   strings.TrimSpace(fields[3]),
	}, SkipNone
}

// SplitLogonName splits DOMAIN\user on the first backslash.
// Without a backslash the domain is empty.
func SplitLogonName(name string) (domain, username string) {
	domain, username, found := strings.Cut(name, domainSep)
	if !found {
		return "", name
	}
	return domain, username
}

// ParsePot parses a hash:plaintext potfile line. Only the first colon
// separates the fields; the plaintext is kept verbatim.
func ParsePot(line string) (model.CrackedPair, SkipReason) {
	if strings.TrimSpace(line) == "" {
		return model.CrackedPair{}, SkipEmpty
	}
	hash, plaintext, found := strings.Cut(line, fieldSep)
	if !found {
		return model.CrackedPair{}, SkipMalformed
	}
	return model.CrackedPair{Hash: hash, Plaintext: plaintext}, SkipNone
}

// ParseTarget parses one watch-list line.
func ParseTarget(line string) (string, SkipReason) {
	name := strings.TrimSpace(line)
	if name == "" {
		return "", SkipEmpty
	}
	return name, SkipNone
}

// Counter accumulates per-line outcomes for one file.
type Counter struct {
	Lines     int
	Records   int
	Empty     int
	Malformed int
}

// Observe records the outcome of one parsed line.
func (c *Counter) Observe(reason SkipReason) {
	c.Lines++
	switch reason {
	case SkipNone:
		c.Records++
	case SkipEmpty:
		c.Empty++
	case SkipMalformed:
		c.Malformed++
	}
}

// Apply copies the counters into a FileStats value.
func (c Counter) Apply(fs *model.FileStats) {
	fs.Lines = c.Lines
	fs.Records = c.Records
	fs.Empty = c.Empty
	fs.Malformed = c.Malformed
}

package parser

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejisec/tattletale/internal/model"
)

func TestParseAccount(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   model.Account
		reason SkipReason
	}{
		{
			name: "domain and user",
			line: `CORP\alice:500:aad3b435b51404eeaad3b435b51404ee:8846f7eaee8fb117ad06bdd830b7586c`,
			want: model.Account{
				Domain: "CORP", Username: "alice", RID: 500,
				LMHash: model.NullLMHash, NTHash: "8846f7eaee8fb117ad06bdd830b7586c",
			},
		},
		{
			name: "no domain",
			line: "Administrator:500:aaa:bbb",
			want: model.Account{Username: "Administrator", RID: 500, LMHash: "aaa", NTHash: "bbb"},
		},
		{
			name: "secretsdump trailer",
			line: `corp.local\svc_sql:1104:aaa:bbb:::`,
			want: model.Account{Domain: "corp.local", Username: "svc_sql", RID: 1104, LMHash: "aaa", NTHash: "bbb"},
		},
		{
			name: "machine account with surrounding whitespace",
			line: "  CORP\\WS01$:1001:aaa:bbb \r",
			want: model.Account{Domain: "CORP", Username: "WS01$", RID: 1001, LMHash: "aaa", NTHash: "bbb"},
		},
		{
			name: "only first backslash splits",
			line: `A\B\c:7:aaa:bbb`,
			want: model.Account{Domain: "A", Username: `B\c`, RID: 7, LMHash: "aaa", NTHash: "bbb"},
		},
		{
			name: "empty hash fields are kept",
			line: `CORP\bob:2::31d6cfe0d16ae931b73c59d7e0c089c0`,
			want: model.Account{Domain: "CORP", Username: "bob", RID: 2, NTHash: model.NullNTHash},
		},
		{name: "blank", line: "   ", reason: SkipEmpty},
		{name: "no separators", line: "INVALID", reason: SkipMalformed},
		{name: "too few fields", line: `CORP\alice:500:aaa`, reason: SkipMalformed},
		{name: "non-empty extra field", line: `CORP\alice:1:x:y:z:extra`, reason: SkipMalformed},
		{name: "rid not a number", line: `CORP\alice:abc:aaa:bbb`, reason: SkipMalformed},
		{name: "empty username", line: `CORP\:500:aaa:bbb`, reason: SkipMalformed},
		{name: "empty name field", line: `:500:aaa:bbb`, reason: SkipMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ParseAccount(tt.line)
			assert.Equal(t, tt.reason, reason)
			if tt.reason == SkipNone {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParsePot(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		hash      string
		plaintext string
		reason    SkipReason
	}{
		{name: "simple", line: "NTHASH1:Password1", hash: "NTHASH1", plaintext: "Password1"},
		{name: "colon in plaintext", line: "H1:pa:ss", hash: "H1", plaintext: "pa:ss"},
		{name: "empty plaintext", line: "H2:", hash: "H2", plaintext: ""},
		{name: "plaintext whitespace kept", line: "H3: spaced ", hash: "H3", plaintext: " spaced "},
		{name: "blank", line: "", reason: SkipEmpty},
		{name: "whitespace only", line: " \t ", reason: SkipEmpty},
		{name: "no separator", line: "deadbeef", reason: SkipMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := ParsePot(tt.line)
			require.Equal(t, tt.reason, reason)
			if reason != SkipNone {
				return
			}
			assert.Equal(t, tt.hash, got.Hash)
			assert.Equal(t, tt.plaintext, got.Plaintext)
		})
	}
}

func TestParseTarget(t *testing.T) {
	name, reason := ParseTarget("  bob \t")
	assert.Equal(t, SkipNone, reason)
	assert.Equal(t, "bob", name)

	_, reason = ParseTarget("   ")
	assert.Equal(t, SkipEmpty, reason)
}

func TestAccountRoundTrip(t *testing.T) {
	accounts := []model.Account{
		{Domain: "CORP", Username: "alice", RID: 500, LMHash: model.NullLMHash, NTHash: "NTHASH1"},
		{Domain: "", Username: "guest", RID: 501, LMHash: "", NTHash: model.NullNTHash},
		{Domain: "lab.example", Username: "DC01$", RID: 1000, LMHash: "x", NTHash: "y"},
	}
	for _, want := range accounts {
		line := strings.Join([]string{
			want.LogonName(),
			strconv.FormatInt(want.RID, 10),
			want.LMHash,
			want.NTHash,
		}, ":")
		got, reason := ParseAccount(line)
		require.Equal(t, SkipNone, reason, line)
		assert.Equal(t, want, got)
	}
}

func TestCounterTracksMalformed(t *testing.T) {
	lines := []string{
		`CORP\a:1:aaa:bbb`,
		"garbage",
		"",
		`CORP\b:2:aaa:bbb`,
		`CORP\c:x:aaa:bbb`,
		`CORP\d:4:aaa:bbb:::`,
	}
	var c Counter
	for _, l := range lines {
		_, reason := ParseAccount(l)
		c.Observe(reason)
	}
	assert.Equal(t, 6, c.Lines)
	assert.Equal(t, 3, c.Records)
	assert.Equal(t, 1, c.Empty)
	assert.Equal(t, 2, c.Malformed)

	var fs model.FileStats
	c.Apply(&fs)
	assert.Equal(t, 3, fs.Skipped())
}

func TestSkipReasonString(t *testing.T) {
	assert.Equal(t, "malformed", SkipMalformed.String())
	assert.Equal(t, "empty", SkipEmpty.String())
	assert.Equal(t, "none", SkipNone.String())
}

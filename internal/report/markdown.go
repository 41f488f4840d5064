package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dejisec/tattletale/internal/export"
	"github.com/dejisec/tattletale/internal/model"
)

// MarkdownFilename returns the markdown report file name for r.
func MarkdownFilename(r *model.Report) string {
	return fmt.Sprintf("tattletale_report_%s.md", r.GeneratedAt.Format(export.TimestampLayout))
}

// WriteMarkdownFile writes the markdown report into dir and returns its path.
func WriteMarkdownFile(r *model.Report, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report dir: %w", err)
	}
	path := filepath.Join(dir, MarkdownFilename(r))
	if err := os.WriteFile(path, []byte(FormatMarkdown(r)), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// FormatMarkdown renders r as a markdown document.
func FormatMarkdown(r *model.Report) string {
	var sb strings.Builder

	sb.WriteString("# TattleTale Credential Audit\n\n")
	fmt.Fprintf(&sb, "Generated %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Accounts | %d |\n", r.TotalAccounts)
	fmt.Fprintf(&sb, "| Cracked | %d (%s) |\n", r.CrackedAccounts, FormatPercent(r.CrackedPercent))
	fmt.Fprintf(&sb, "| Accounts sharing a hash | %d (%s) |\n", r.SharedHashAccounts, FormatPercent(r.SharedHashPercent))
	fmt.Fprintf(&sb, "| Unique hashes | %d |\n", r.UniqueHashes)
	fmt.Fprintf(&sb, "| Unique cracked passwords | %d |\n\n", r.UniqueCrackedPasswords)

	sb.WriteString("## Password Hash Statistics\n\n")
	sb.WriteString("| Category | All | Cracked | % | Unique | Unique cracked | % |\n")
	sb.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
	for _, row := range categoryRows(r.Categories) {
		s := row.stats
		fmt.Fprintf(&sb, "| %s | %d | %d | %s | %d | %d | %s |\n",
			row.name, s.All, s.Cracked, FormatPercent(s.CrackedPercent),
			s.Unique, s.UniqueCracked, FormatPercent(s.UniqueCrackedPercent))
	}
	sb.WriteString("\n")

	if r.Targets.Supplied {
		fmt.Fprintf(&sb, "## High-Value Targets\n\nCracked %d/%d\n\n", r.Targets.CrackedCount(), len(r.Targets.Accounts))
		if len(r.Targets.Accounts) > 0 {
			sb.WriteString("| Account | Status |\n|---|---|\n")
			for _, t := range r.Targets.Accounts {
				status := "not cracked"
				if t.Cracked {
					status = "**cracked**"
				}
				fmt.Fprintf(&sb, "| %s | %s |\n", mdEscape(logonName(t.Domain, t.Username)), status)
			}
			sb.WriteString("\n")
		}
		if len(r.Targets.Unmatched) > 0 {
			fmt.Fprintf(&sb, "Targets without a matching account: %s\n\n", mdEscape(strings.Join(r.Targets.Unmatched, ", ")))
		}
		if len(r.TargetExposure) > 0 {
			sb.WriteString("### Shared Hashes Involving Targets\n\n")
			writeMarkdownGroups(&sb, r.TargetExposure)
		}
	}

	sb.WriteString("## Shared Password Hashes\n\n")
	if len(r.SharedGroups) == 0 {
		sb.WriteString("No accounts share a password hash.\n\n")
	} else {
		sb.WriteString(GenerateMermaidDiagram(r.SharedGroups, MaxDiagramGroups))
		sb.WriteString("\n")
		writeMarkdownGroups(&sb, r.SharedGroups)
	}

	sb.WriteString("## Domain Breakdown\n\n")
	sb.WriteString("| Domain | Accounts | Cracked | % |\n|---|---:|---:|---:|\n")
	for _, d := range r.Domains {
		name := d.Domain
		if name == "" {
			name = "_(none)_"
		}
		fmt.Fprintf(&sb, "| %s | %d | %d | %s |\n", mdEscape(name), d.All, d.Cracked, FormatPercent(d.CrackedPercent))
	}
	sb.WriteString("\n")

	sb.WriteString("## Top Reused Passwords\n\n")
	if len(r.TopReusedPasswords) == 0 {
		sb.WriteString("No cracked passwords.\n\n")
	} else {
		sb.WriteString("| # | Password | Accounts |\n|---:|---|---:|\n")
		for i, p := range r.TopReusedPasswords {
			fmt.Fprintf(&sb, "| %d | `%s` | %d |\n", i+1, DisplayPlaintext(p.Plaintext), p.Count)
		}
		sb.WriteString("\n")
	}

	if len(r.Conflicts) > 0 {
		sb.WriteString("## Conflicting Potfile Entries\n\n")
		sb.WriteString("| Hash | Kept | Ignored |\n|---|---|---|\n")
		for _, c := range r.Conflicts {
			fmt.Fprintf(&sb, "| %s | `%s` (%s) | `%s` (%s) |\n", c.Hash, c.Kept, c.KeptSource, c.Discarded, c.DiscardedSource)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeMarkdownGroups(sb *strings.Builder, groups []model.HashGroup) {
	sb.WriteString("| Hash | Accounts | Cracked | Members |\n|---|---:|---|---|\n")
	for _, g := range groups {
		names := make([]string, len(g.Members))
		for i, m := range g.Members {
			names[i] = mdEscape(m.LogonName())
			if m.Target {
				names[i] = "**" + names[i] + "**"
			}
		}
		cracked := "no"
		if g.Cracked {
			cracked = "yes"
		}
		fmt.Fprintf(sb, "| `%s` | %d | %s | %s |\n", g.Hash, len(g.Members), cracked, strings.Join(names, ", "))
	}
	sb.WriteString("\n")
}

type categoryRow struct {
	name  string
	stats model.BasicStats
}

func categoryRows(c model.Categories) []categoryRow {
	return []categoryRow{
		{"User accounts", c.Users},
		{"Machine accounts", c.Machines},
		{"Valid domain users", c.ValidDomainUsers},
		{"Valid machines", c.ValidMachines},
		{"No domain", c.NoDomain},
		{"Null hashes", c.Null},
		{"LM hashes", c.LM},
		{"NT hashes", c.NT},
		{"LM and NT", c.Both},
	}
}

var mdReplacer = strings.NewReplacer(`\`, `\\`, `|`, `\|`, `*`, `\*`, `_`, `\_`)

func mdEscape(s string) string {
	return mdReplacer.Replace(s)
}

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dejisec/tattletale/internal/model"
)

// MaxSummaryGroups caps how many shared-hash groups the terminal summary lists.
const MaxSummaryGroups = 20

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	crackedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	safeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))
)

// DisplayPlaintext renders a recovered password for humans.
func DisplayPlaintext(pw string) string {
	if pw == "" {
		return "(empty)"
	}
	return pw
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}

// WriteSummary writes the colored terminal summary of r to w.
func WriteSummary(w io.Writer, r *model.Report) error {
	_, err := io.WriteString(w, FormatSummary(r))
	return err
}

// FormatSummary returns the colored terminal summary of r.
func FormatSummary(r *model.Report) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("TattleTale Summary"))
	sb.WriteString("\n\n")
	writeKV(&sb, "Accounts", humanize.Comma(int64(r.TotalAccounts)))
	writeKV(&sb, "Cracked", fmt.Sprintf("%s (%s)", humanize.Comma(int64(r.CrackedAccounts)), FormatPercent(r.CrackedPercent)))
	writeKV(&sb, "Shared hashes", fmt.Sprintf("%s accounts (%s)", humanize.Comma(int64(r.SharedHashAccounts)), FormatPercent(r.SharedHashPercent)))
	writeKV(&sb, "Unique hashes", humanize.Comma(int64(r.UniqueHashes)))
	writeKV(&sb, "Unique passwords", humanize.Comma(int64(r.UniqueCrackedPasswords)))

	section(&sb, "Password Hash Statistics")
	sb.WriteString(categoryTable(r.Categories))

	if r.Targets.Supplied {
		section(&sb, fmt.Sprintf("High-Value Targets (Cracked %d/%d)", r.Targets.CrackedCount(), len(r.Targets.Accounts)))
		for _, t := range r.Targets.Accounts {
			name := logonName(t.Domain, t.Username)
			if t.Cracked {
				fmt.Fprintf(&sb, "  %s %s\n", crackedStyle.Render("CRACKED"), fmt.Sprintf("%s:%s", name, DisplayPlaintext(t.Plaintext)))
			} else {
				fmt.Fprintf(&sb, "  %s %s\n", safeStyle.Render("SAFE   "), name)
			}
		}
		if len(r.Targets.Unmatched) > 0 {
			fmt.Fprintf(&sb, "  %s %s\n", labelStyle.Render("Not found:"), strings.Join(r.Targets.Unmatched, ", "))
		}

		if len(r.TargetExposure) > 0 {
			section(&sb, "Shared Password Hashes (with at least 1 target)")
			writeGroups(&sb, r.TargetExposure)
		}
	}

	section(&sb, "Shared Password Hashes")
	if len(r.SharedGroups) == 0 {
		sb.WriteString(labelStyle.Render("  none"))
		sb.WriteString("\n")
	}
	writeGroups(&sb, r.SharedGroups)

	section(&sb, "Domain Breakdown")
	for _, d := range r.Domains {
		name := d.Domain
		if name == "" {
			name = "(no domain)"
		}
		fmt.Fprintf(&sb, "  %-24s %8s accounts  %8s cracked  %8s\n",
			valueStyle.Render(name),
			humanize.Comma(int64(d.All)),
			humanize.Comma(int64(d.Cracked)),
			FormatPercent(d.CrackedPercent))
	}

	section(&sb, "Top Reused Passwords")
	if len(r.TopReusedPasswords) == 0 {
		sb.WriteString(labelStyle.Render("  none"))
		sb.WriteString("\n")
	}
	for i, p := range r.TopReusedPasswords {
		fmt.Fprintf(&sb, "  %2d. %s %s\n", i+1, valueStyle.Render(DisplayPlaintext(p.Plaintext)), labelStyle.Render(fmt.Sprintf("(%d)", p.Count)))
	}

	if len(r.Conflicts) > 0 {
		section(&sb, "Conflicting Potfile Entries")
		for _, c := range r.Conflicts {
			fmt.Fprintf(&sb, "  %s kept %q (%s), ignored %q (%s)\n", c.Hash, c.Kept, c.KeptSource, c.Discarded, c.DiscardedSource)
		}
	}

	if r.Diagnostics != nil {
		section(&sb, "Input Diagnostics")
		for _, fs := range r.Diagnostics.Files {
			fmt.Fprintf(&sb, "  %s %s: %d records, %d empty, %d malformed (%s)\n",
				labelStyle.Render(string(fs.Format)), fs.Path, fs.Records, fs.Empty, fs.Malformed, fs.Strategy)
		}
		for _, p := range r.Diagnostics.MissingFiles {
			fmt.Fprintf(&sb, "  %s %s\n", labelStyle.Render("missing"), p)
		}
	}

	return sb.String()
}

func section(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n")
}

func writeKV(sb *strings.Builder, label, value string) {
	fmt.Fprintf(sb, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-17s", label+":")), valueStyle.Render(value))
}

func writeGroups(sb *strings.Builder, groups []model.HashGroup) {
	shown := groups
	if len(shown) > MaxSummaryGroups {
		shown = shown[:MaxSummaryGroups]
	}
	for _, g := range shown {
		status := labelStyle.Render("not cracked")
		if g.Cracked {
			status = crackedStyle.Render(DisplayPlaintext(g.Plaintext))
		}
		fmt.Fprintf(sb, "  %s  %d accounts  %s\n", g.Hash, len(g.Members), status)
		for _, m := range g.Members {
			marker := " "
			if m.Target {
				marker = "*"
			}
			fmt.Fprintf(sb, "    %s %s\n", marker, m.LogonName())
		}
	}
	if rest := len(groups) - len(shown); rest > 0 {
		fmt.Fprintf(sb, "  %s\n", labelStyle.Render(fmt.Sprintf("... and %d more groups", rest)))
	}
}

func categoryTable(c model.Categories) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "  %-20s %10s %10s %9s %10s %10s %9s\n", "", "All", "Cracked", "%", "Unique", "Cracked", "%")
	for _, row := range categoryRows(c) {
		s := row.stats
		fmt.Fprintf(&sb, "  %-20s %10d %10d %9s %10d %10d %9s\n",
			row.name, s.All, s.Cracked, FormatPercent(s.CrackedPercent),
			s.Unique, s.UniqueCracked, FormatPercent(s.UniqueCrackedPercent))
	}
	return sb.String()
}

func logonName(domain, user string) string {
	if domain == "" {
		return user
	}
	return domain + `\` + user
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/report"
	"github.com/dejisec/tattletale/internal/stats"
)

// Tab identifies one dashboard page.
type Tab int

const (
	TabOverview Tab = iota
	TabDomains
	TabPasswords
	TabShared
	TabTargets
)

var tabNames = []string{"Overview", "Domains", "Passwords", "Shared", "Targets"}

func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "Unknown"
	}
	return tabNames[t]
}

// chrome is the number of lines taken by header, tabs and help.
const chrome = 6

// Dashboard is the tabbed report view.
type Dashboard struct {
	report   *model.Report
	tab      Tab
	width    int
	height   int
	viewport viewport.Model
}

// NewDashboard creates a new dashboard.
func NewDashboard(r *model.Report, width, height int) *Dashboard {
	d := &Dashboard{
		report:   r,
		viewport: viewport.New(width, max(height-chrome, 1)),
	}
	d.SetSize(width, height)
	return d
}

// SetReport swaps the displayed report, keeping the current tab.
func (d *Dashboard) SetReport(r *model.Report) {
	d.report = r
	d.refresh()
}

// SetSize updates the dashboard size.
func (d *Dashboard) SetSize(width, height int) {
	d.width = width
	d.height = height
	d.viewport.Width = width
	d.viewport.Height = max(height-chrome, 1)
	d.refresh()
}

// Tab returns the active tab.
func (d *Dashboard) Tab() Tab {
	return d.tab
}

// HandleKey switches tabs or scrolls the active one.
func (d *Dashboard) HandleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "right", "l":
		d.selectTab((d.tab + 1) % Tab(len(tabNames)))
		return nil
	case "shift+tab", "left", "h":
		d.selectTab((d.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))
		return nil
	case "1", "2", "3", "4", "5":
		d.selectTab(Tab(msg.String()[0] - '1'))
		return nil
	}

	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return cmd
}

func (d *Dashboard) selectTab(t Tab) {
	d.tab = t
	d.refresh()
	d.viewport.GotoTop()
}

func (d *Dashboard) refresh() {
	d.viewport.SetContent(d.Content())
}

// View renders the dashboard.
func (d *Dashboard) View() string {
	var sb strings.Builder

	sb.WriteString(HeaderStyle.Width(d.width).Render("TattleTale Credential Audit"))
	sb.WriteString("\n")
	sb.WriteString(d.renderTabs())
	sb.WriteString("\n\n")
	sb.WriteString(d.viewport.View())
	sb.WriteString("\n")
	sb.WriteString(HelpStyle.Render("tab/←→ switch • ↑↓ scroll • r reload • q quit"))

	return sb.String()
}

func (d *Dashboard) renderTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if Tab(i) == d.tab {
			tabs[i] = ActiveTabStyle.Render(label)
		} else {
			tabs[i] = TabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// Content renders the body of the active tab.
func (d *Dashboard) Content() string {
	if d.report == nil {
		return DimStyle.Render("No report loaded")
	}
	switch d.tab {
	case TabDomains:
		return d.renderDomains()
	case TabPasswords:
		return d.renderPasswords()
	case TabShared:
		return d.renderShared()
	case TabTargets:
		return d.renderTargets()
	default:
		return d.renderOverview()
	}
}

func (d *Dashboard) sectionWidth() int {
	w := d.width - 4
	if w < 40 {
		w = 40
	}
	return w
}

func (d *Dashboard) section(title, content string) string {
	return SectionStyle.Width(d.sectionWidth()).Render(
		SectionTitleStyle.Render(title) + "\n" + content)
}

func (d *Dashboard) renderOverview() string {
	r := d.report
	rows := []string{
		kv("Accounts:", humanize.Comma(int64(r.TotalAccounts))),
		kv("Cracked:", fmt.Sprintf("%s (%s)", humanize.Comma(int64(r.CrackedAccounts)), report.FormatPercent(r.CrackedPercent))),
		LabelStyle.Render("") + " " + RenderBar(r.CrackedPercent, 30),
		kv("Sharing a hash:", fmt.Sprintf("%s (%s)", humanize.Comma(int64(r.SharedHashAccounts)), report.FormatPercent(r.SharedHashPercent))),
		kv("Unique hashes:", humanize.Comma(int64(r.UniqueHashes))),
		kv("Unique passwords:", humanize.Comma(int64(r.UniqueCrackedPasswords))),
		kv("Generated:", r.GeneratedAt.Format("2006-01-02 15:04:05")),
	}
	if len(r.Conflicts) > 0 {
		rows = append(rows, WarningStyle.Render(fmt.Sprintf("%d hashes have conflicting potfile entries", len(r.Conflicts))))
	}

	c := r.Categories
	cats := []struct {
		name string
		s    model.BasicStats
	}{
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
	table := []string{TableHeaderStyle.Render(fmt.Sprintf("%-20s %8s %8s %9s", "Category", "All", "Cracked", "%"))}
	for _, cat := range cats {
		table = append(table, fmt.Sprintf("%-20s %8d %8d %9s", cat.name, cat.s.All, cat.s.Cracked, report.FormatPercent(cat.s.CrackedPercent)))
	}

	return d.section("Summary", strings.Join(rows, "\n")) + "\n" +
		d.section("Password Hash Statistics", strings.Join(table, "\n"))
}

func (d *Dashboard) renderDomains() string {
	if len(d.report.Domains) == 0 {
		return d.section("Domains", DimStyle.Render("No accounts"))
	}
	rows := []string{TableHeaderStyle.Render(fmt.Sprintf("%-24s %10s %10s %9s", "Domain", "Accounts", "Cracked", "%"))}
	for _, s := range d.report.Domains {
		name := s.Domain
		if name == "" {
			name = "(no domain)"
		}
		rows = append(rows, fmt.Sprintf("%-24s %10s %10s %9s  %s", truncate(name, 24),
			humanize.Comma(int64(s.All)), humanize.Comma(int64(s.Cracked)),
			report.FormatPercent(s.CrackedPercent), RenderBar(s.CrackedPercent, 20)))
	}
	return d.section("Domains", strings.Join(rows, "\n"))
}

func (d *Dashboard) renderPasswords() string {
	if len(d.report.TopReusedPasswords) == 0 {
		return d.section("Top Reused Passwords", DimStyle.Render("No cracked passwords"))
	}
	top := d.report.TopReusedPasswords[0].Count
	rows := make([]string, 0, len(d.report.TopReusedPasswords))
	for i, p := range d.report.TopReusedPasswords {
		rows = append(rows, fmt.Sprintf("%2d. %-28s %6d  %s", i+1, truncate(report.DisplayPlaintext(p.Plaintext), 28),
			p.Count, RenderBar(stats.Percent(p.Count, top), 20)))
	}
	return d.section("Top Reused Passwords", strings.Join(rows, "\n"))
}

func (d *Dashboard) renderShared() string {
	if len(d.report.SharedGroups) == 0 {
		return d.section("Shared Password Hashes", DimStyle.Render("No accounts share a password hash"))
	}
	return d.section("Shared Password Hashes", renderGroups(d.report.SharedGroups))
}

func (d *Dashboard) renderTargets() string {
	t := d.report.Targets
	if !t.Supplied {
		return d.section("High-Value Targets", DimStyle.Render("No target list supplied"))
	}

	var rows []string
	for _, a := range t.Accounts {
		name := logonName(a.Domain, a.Username)
		rows = append(rows, RenderStatus(a.Cracked, name+":"+report.DisplayPlaintext(a.Plaintext), name))
	}
	if len(t.Accounts) == 0 {
		rows = append(rows, DimStyle.Render("No targeted accounts found"))
	}
	if len(t.Unmatched) > 0 {
		rows = append(rows, "", WarningStyle.Render("Not found: "+strings.Join(t.Unmatched, ", ")))
	}

	out := d.section(fmt.Sprintf("High-Value Targets (Cracked %d/%d)", t.CrackedCount(), len(t.Accounts)), strings.Join(rows, "\n"))
	if len(d.report.TargetExposure) > 0 {
		out += "\n" + d.section("Shared Hashes Involving Targets", renderGroups(d.report.TargetExposure))
	}
	return out
}

func renderGroups(groups []model.HashGroup) string {
	var rows []string
	for _, g := range groups {
		status := DimStyle.Render("not cracked")
		if g.Cracked {
			status = ErrorStyle.Render(report.DisplayPlaintext(g.Plaintext))
		}
		rows = append(rows, fmt.Sprintf("%s  %s  %s", ValueStyle.Render(g.Hash),
			fmt.Sprintf("%d accounts", len(g.Members)), status))
		for _, m := range g.Members {
			marker := "  "
			if m.Target {
				marker = WarningStyle.Render("★ ")
			}
			rows = append(rows, "   "+marker+m.LogonName())
		}
	}
	return strings.Join(rows, "\n")
}

func kv(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value)
}

func logonName(domain, user string) string {
	if domain == "" {
		return user
	}
	return domain + `\` + user
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

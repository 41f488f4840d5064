package web

import (
	"html/template"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/dejisec/tattletale/internal/model"
	"github.com/dejisec/tattletale/internal/report"
)

// maxDashboardGroups caps the shared-hash groups rendered on the page.
const maxDashboardGroups = 100

type statRow struct {
	Name          string
	All           string
	Cracked       string
	Percent       string
	Unique        string
	UniqueCrack   string
	UniquePercent string
}

type dashboardData struct {
	GeneratedAt     string
	Accounts        string
	Cracked         string
	CrackedPercent  string
	Shared          string
	SharedPercent   string
	UniqueHashes    string
	UniquePasswords string
	Categories      []statRow
	Domains         []statRow
	Passwords       []model.PasswordCount
	Groups          []model.HashGroup
	HiddenGroups    int
	Targets         model.TargetSection
	TargetsCracked  int
	Exposure        []model.HashGroup
	Conflicts       []model.HashConflict
	Mermaid         string
}

func newStatRow(name string, s model.BasicStats) statRow {
	return statRow{
		Name:          name,
		All:           humanize.Comma(int64(s.All)),
		Cracked:       humanize.Comma(int64(s.Cracked)),
		Percent:       report.FormatPercent(s.CrackedPercent),
		Unique:        humanize.Comma(int64(s.Unique)),
		UniqueCrack:   humanize.Comma(int64(s.UniqueCracked)),
		UniquePercent: report.FormatPercent(s.UniqueCrackedPercent),
	}
}

func newDashboardData(r *model.Report) dashboardData {
	c := r.Categories
	data := dashboardData{
		GeneratedAt:     r.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
		Accounts:        humanize.Comma(int64(r.TotalAccounts)),
		Cracked:         humanize.Comma(int64(r.CrackedAccounts)),
		CrackedPercent:  report.FormatPercent(r.CrackedPercent),
		Shared:          humanize.Comma(int64(r.SharedHashAccounts)),
		SharedPercent:   report.FormatPercent(r.SharedHashPercent),
		UniqueHashes:    humanize.Comma(int64(r.UniqueHashes)),
		UniquePasswords: humanize.Comma(int64(r.UniqueCrackedPasswords)),
		Categories: []statRow{
			newStatRow("User accounts", c.Users),
			newStatRow("Machine accounts", c.Machines),
			newStatRow("Valid domain users", c.ValidDomainUsers),
			newStatRow("Valid machines", c.ValidMachines),
			newStatRow("No domain", c.NoDomain),
			newStatRow("Null hashes", c.Null),
			newStatRow("LM hashes", c.LM),
			newStatRow("NT hashes", c.NT),
			newStatRow("LM and NT", c.Both),
		},
		Passwords:      r.TopReusedPasswords,
		Groups:         r.SharedGroups,
		Targets:        r.Targets,
		TargetsCracked: r.Targets.CrackedCount(),
		Exposure:       r.TargetExposure,
		Conflicts:      r.Conflicts,
		Mermaid:        report.MermaidFlowchart(r.SharedGroups, report.MaxDiagramGroups),
	}

	for _, d := range r.Domains {
		name := d.Domain
		if name == "" {
			name = "(no domain)"
		}
		data.Domains = append(data.Domains, newStatRow(name, d.BasicStats))
	}

	if len(data.Groups) > maxDashboardGroups {
		data.HiddenGroups = len(data.Groups) - maxDashboardGroups
		data.Groups = data.Groups[:maxDashboardGroups]
	}
	return data
}

var dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>TattleTale Credential Audit</title>
    <script src="https://cdn.jsdelivr.net/npm/mermaid/dist/mermaid.min.js"></script>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }

        :root {
            --bg-primary: #0a0f0a;
            --bg-card: rgba(0, 40, 0, 0.4);
            --border-color: #1a4a1a;
            --text-primary: #00ff41;
            --text-secondary: #00cc33;
            --text-dim: #336633;
            --accent: #00ff41;
            --accent-glow: rgba(0, 255, 65, 0.3);
            --danger: #ff3333;
            --gradient-top: rgba(0, 50, 0, 0.3);
        }

        body {
            font-family: 'Courier New', monospace;
            background: var(--bg-primary);
            background-image: radial-gradient(ellipse at top, var(--gradient-top) 0%, transparent 50%);
            color: var(--text-primary);
            min-height: 100vh;
            padding: 1.5rem;
        }

        .container { max-width: 1400px; margin: 0 auto; }

        header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            margin-bottom: 1.5rem;
            padding-bottom: 1rem;
            border-bottom: 1px solid var(--border-color);
            flex-wrap: wrap;
            gap: 1rem;
        }

        h1 {
            font-size: 1.6rem;
            color: var(--accent);
            text-shadow: 0 0 10px var(--accent-glow);
            letter-spacing: 3px;
        }
        h2 { font-size: 1.1rem; margin-bottom: 0.8rem; color: var(--text-secondary); }

        .links a { color: var(--text-secondary); margin-left: 1rem; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 1rem; margin-bottom: 1.5rem; }
        .card {
            background: var(--bg-card);
            border: 1px solid var(--border-color);
            border-radius: 6px;
            padding: 1rem;
            margin-bottom: 1.5rem;
        }
        .stat .value { font-size: 1.6rem; }
        .stat .label { color: var(--text-dim); font-size: 0.8rem; text-transform: uppercase; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 0.35rem 0.6rem; border-bottom: 1px solid var(--border-color); text-align: left; }
        th { color: var(--text-dim); font-weight: normal; }
        td.num { text-align: right; }
        .cracked { color: var(--danger); }
        .target { font-weight: bold; text-decoration: underline; }
        .dim { color: var(--text-dim); }
        .mermaid { background: #f5f5f5; border-radius: 6px; padding: 1rem; }
    </style>
</head>
<body>
<div class="container">
    <header>
        <h1>TATTLETALE</h1>
        <div class="links">
            <span class="dim">Generated {{.GeneratedAt}}</span>
            <a href="/report">Markdown</a>
            <a href="/export/shared.csv">Shared CSV</a>
            <a href="/export/user_pass.txt">User:Pass</a>
        </div>
    </header>

    <div class="grid">
        <div class="card stat"><div class="value">{{.Accounts}}</div><div class="label">Accounts</div></div>
        <div class="card stat"><div class="value cracked">{{.Cracked}}</div><div class="label">Cracked ({{.CrackedPercent}})</div></div>
        <div class="card stat"><div class="value">{{.Shared}}</div><div class="label">Sharing a hash ({{.SharedPercent}})</div></div>
        <div class="card stat"><div class="value">{{.UniqueHashes}}</div><div class="label">Unique hashes</div></div>
        <div class="card stat"><div class="value">{{.UniquePasswords}}</div><div class="label">Unique passwords</div></div>
    </div>

    {{if .Targets.Supplied}}
    <div class="card">
        <h2>High-Value Targets (Cracked {{.TargetsCracked}}/{{len .Targets.Accounts}})</h2>
        <table>
            <tr><th>Account</th><th>Status</th></tr>
            {{range .Targets.Accounts}}
            <tr><td>{{if .Domain}}{{.Domain}}\{{end}}{{.Username}}</td>
                <td>{{if .Cracked}}<span class="cracked">cracked</span>{{else}}<span class="dim">not cracked</span>{{end}}</td></tr>
            {{end}}
        </table>
        {{if .Targets.Unmatched}}<p class="dim">Not found: {{range $i, $n := .Targets.Unmatched}}{{if $i}}, {{end}}{{$n}}{{end}}</p>{{end}}
    </div>
    {{if .Exposure}}
    <div class="card">
        <h2>Shared Password Hashes (with at least 1 target)</h2>
        {{template "groups" .Exposure}}
    </div>
    {{end}}
    {{end}}

    <div class="card">
        <h2>Password Hash Statistics</h2>
        {{template "stats" .Categories}}
    </div>

    <div class="card">
        <h2>Domain Breakdown</h2>
        {{template "stats" .Domains}}
    </div>

    <div class="card">
        <h2>Top Reused Passwords</h2>
        {{if .Passwords}}
        <table>
            <tr><th>#</th><th>Password</th><th>Accounts</th></tr>
            {{range $i, $p := .Passwords}}
            <tr><td>{{inc $i}}</td><td><code>{{plaintext $p.Plaintext}}</code></td><td class="num">{{$p.Count}}</td></tr>
            {{end}}
        </table>
        {{else}}<p class="dim">No cracked passwords.</p>{{end}}
    </div>

    <div class="card">
        <h2>Shared Password Hashes</h2>
        {{if .Groups}}
        {{if .Mermaid}}<pre class="mermaid">{{.Mermaid}}</pre>{{end}}
        {{template "groups" .Groups}}
        {{if .HiddenGroups}}<p class="dim">... and {{.HiddenGroups}} more groups (see /api/shared)</p>{{end}}
        {{else}}<p class="dim">No accounts share a password hash.</p>{{end}}
    </div>

    {{if .Conflicts}}
    <div class="card">
        <h2>Conflicting Potfile Entries</h2>
        <table>
            <tr><th>Hash</th><th>Kept</th><th>Ignored</th></tr>
            {{range .Conflicts}}
            <tr><td>{{.Hash}}</td><td>{{.Kept}} <span class="dim">({{.KeptSource}})</span></td><td>{{.Discarded}} <span class="dim">({{.DiscardedSource}})</span></td></tr>
            {{end}}
        </table>
    </div>
    {{end}}
</div>
<script>mermaid.initialize({ startOnLoad: true, securityLevel: 'strict' });</script>
</body>
</html>

{{define "stats"}}
<table>
    <tr><th></th><th>All</th><th>Cracked</th><th>%</th><th>Unique</th><th>Cracked</th><th>%</th></tr>
    {{range .}}
    <tr><td>{{.Name}}</td><td class="num">{{.All}}</td><td class="num">{{.Cracked}}</td><td class="num">{{.Percent}}</td>
        <td class="num">{{.Unique}}</td><td class="num">{{.UniqueCrack}}</td><td class="num">{{.UniquePercent}}</td></tr>
    {{end}}
</table>
{{end}}

{{define "groups"}}
<table>
    <tr><th>Hash</th><th>Accounts</th><th>Cracked</th><th>Members</th></tr>
    {{range .}}
    <tr><td><code>{{.Hash}}</code></td><td class="num">{{len .Members}}</td>
        <td>{{if .Cracked}}<span class="cracked">yes</span>{{else}}<span class="dim">no</span>{{end}}</td>
        <td>{{range $i, $m := .Members}}{{if $i}}, {{end}}<span{{if $m.Target}} class="target"{{end}}>{{$m.LogonName}}</span>{{end}}</td></tr>
    {{end}}
</table>
{{end}}`

var (
	dashboardOnce sync.Once
	dashboardTmpl *template.Template
)

func getDashboardTemplate() *template.Template {
	dashboardOnce.Do(func() {
		dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
			"inc":       func(i int) int { return i + 1 },
			"plaintext": report.DisplayPlaintext,
		}).Parse(dashboardHTML))
	})
	return dashboardTmpl
}

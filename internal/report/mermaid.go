package report

import (
	"fmt"
	"strings"

	"github.com/dejisec/tattletale/internal/model"
)

// MaxDiagramGroups caps how many groups a Mermaid diagram draws.
const MaxDiagramGroups = 8

// maxDiagramMembers caps the member nodes drawn per group.
const maxDiagramMembers = 12

// GenerateMermaidDiagram returns MermaidFlowchart wrapped in a markdown code fence.
func GenerateMermaidDiagram(groups []model.HashGroup, maxGroups int) string {
	chart := MermaidFlowchart(groups, maxGroups)
	if chart == "" {
		return ""
	}
	return "```mermaid\n" + chart + "```\n"
}

// MermaidFlowchart creates a Mermaid flowchart linking each shared hash
// to the accounts that use it. Cracked hashes are highlighted.
func MermaidFlowchart(groups []model.HashGroup, maxGroups int) string {
	if len(groups) == 0 {
		return ""
	}
	if maxGroups <= 0 || maxGroups > len(groups) {
		maxGroups = len(groups)
	}

	var sb strings.Builder

	sb.WriteString("flowchart LR\n")

	for i, g := range groups[:maxGroups] {
		hashID := fmt.Sprintf("G%d", i+1)
		label := fmt.Sprintf("%s<br/>%d accounts", shortenHash(g.Hash), len(g.Members))
		if g.Cracked {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]:::cracked\n", hashID, escapeLabel(label)))
		} else {
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]:::hash\n", hashID, escapeLabel(label)))
		}

		members := g.Members
		if len(members) > maxDiagramMembers {
			members = members[:maxDiagramMembers]
		}
		for j, m := range members {
			nodeID := fmt.Sprintf("%sM%d", hashID, j+1)
			class := "account"
			if m.Target {
				class = "target"
			}
			sb.WriteString(fmt.Sprintf("    %s(\"%s\"):::%s\n", nodeID, escapeLabel(m.LogonName()), class))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", hashID, nodeID))
		}
		if rest := len(g.Members) - len(members); rest > 0 {
			nodeID := fmt.Sprintf("%sMore", hashID)
			sb.WriteString(fmt.Sprintf("    %s(\"+%d more\"):::account\n", nodeID, rest))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", hashID, nodeID))
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef hash fill:#87CEEB\n")
	sb.WriteString("    classDef cracked fill:#FFB6C1,stroke:#FF0000\n")
	sb.WriteString("    classDef account fill:#F5F5F5\n")
	sb.WriteString("    classDef target fill:#FFD700,stroke:#B8860B\n")

	return sb.String()
}

func shortenHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12] + "..."
	}
	return hash
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

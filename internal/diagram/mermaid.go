// Package diagram renders registry hierarchies as Mermaid class diagrams.
package diagram

import (
	"fmt"
	"strings"

	"github.com/olehluchkiv/typereg/internal/registry"
)

// DiagramOptions controls Mermaid diagram generation.
type DiagramOptions struct {
	MaxMembersPerBox int  // default 8, 0 means unlimited
	IncludeInit      bool // include %%{init:}%% directive (for standalone .mmd files)
	PublicOnly       bool // hide non-public members
}

// DefaultDiagramOptions returns sensible defaults for diagram generation.
func DefaultDiagramOptions() DiagramOptions {
	return DiagramOptions{MaxMembersPerBox: 8}
}

// node is one class block in the diagram.
type node struct {
	desc     registry.TypeDescriptor
	external bool
}

// GenerateMermaid produces a classDiagram for name, its supertype chain and
// every interface it implements.
func GenerateMermaid(reg *registry.Registry, name string, opts DiagramOptions) (string, error) {
	self, err := reg.Lookup(name)
	if err != nil {
		return "", err
	}
	supers, err := reg.Supertypes(name)
	if err != nil {
		return "", err
	}
	ifaces, err := reg.AllInterfaces(name)
	if err != nil {
		return "", err
	}

	chain := append([]registry.TypeDescriptor{self}, supers...)
	var nodes []node
	seen := make(map[string]bool)
	add := func(n node) {
		if seen[n.desc.Name] {
			return
		}
		seen[n.desc.Name] = true
		nodes = append(nodes, n)
	}

	var relations []string
	for i, d := range chain {
		add(node{desc: d})
		if i+1 < len(chain) {
			relations = append(relations, inherits(d.Name, chain[i+1].Name))
		} else if d.Super != "" {
			add(node{desc: registry.TypeDescriptor{Name: d.Super}, external: true})
			relations = append(relations, inherits(d.Name, d.Super))
		}
		for _, iface := range d.Interfaces {
			relations = append(relations, realizes(d.Name, iface))
		}
	}
	for _, iface := range ifaces {
		d, err := reg.Lookup(iface)
		if err != nil {
			add(node{desc: registry.TypeDescriptor{Name: iface, Kind: registry.KindInterface}, external: true})
			continue
		}
		add(node{desc: d})
		for _, parent := range d.Interfaces {
			relations = append(relations, inherits(d.Name, parent))
		}
	}

	var b strings.Builder
	if opts.IncludeInit {
		b.WriteString("%%{init: {'theme': 'base', 'themeVariables': {'primaryColor': '#ffffff', 'primaryBorderColor': '#cccccc', 'primaryTextColor': '#000000', 'lineColor': '#555555'}}%%\n")
	}
	b.WriteString("classDiagram\n")
	b.WriteString("    direction BT\n")
	b.WriteString("    classDef interfaceStyle fill:#2374ab,stroke:#1a5a8a,color:#fff,stroke-width:2px,font-weight:bold\n")
	b.WriteString("    classDef implStyle fill:#4a9c6d,stroke:#357a50,color:#fff,stroke-width:2px\n")
	b.WriteString("    classDef externalStyle fill:#e9ecef,stroke:#999,color:#333,stroke-dasharray:4")

	for _, n := range nodes {
		b.WriteString("\n")
		writeBlock(&b, n, opts)
	}

	if len(relations) > 0 {
		b.WriteString("\n")
	}
	for _, rel := range relations {
		b.WriteString("\n")
		b.WriteString(rel)
	}

	b.WriteString("\n")
	for _, n := range nodes {
		style := "implStyle"
		switch {
		case n.external:
			style = "externalStyle"
		case n.desc.Kind == registry.KindInterface:
			style = "interfaceStyle"
		}
		b.WriteString(fmt.Sprintf("\n    cssClass \"%s\" %s", NodeID(n.desc.Name), style))
	}

	return b.String(), nil
}

// SanitizeSignature removes characters in member signatures that break
// Mermaid syntax. Mermaid treats {}, <> and ~ as special in class labels.
func SanitizeSignature(sig string) string {
	sig = strings.ReplaceAll(sig, "<-chan", "chan")
	sig = strings.ReplaceAll(sig, "interface{}", "any")
	sig = strings.ReplaceAll(sig, "{}", "")
	// Generic brackets render as Mermaid's ~T~ notation.
	sig = strings.NewReplacer("<", "~", ">", "~").Replace(sig)
	return sig
}

// NodeID builds a Mermaid-safe identifier from a qualified type name.
func NodeID(name string) string {
	r := strings.NewReplacer("/", "_", ".", "_", "-", "_", "$", "_")
	return r.Replace(name)
}

func inherits(child, parent string) string {
	return fmt.Sprintf("    %s --|> %s", NodeID(child), NodeID(parent))
}

func realizes(typ, iface string) string {
	return fmt.Sprintf("    %s ..|> %s", NodeID(typ), NodeID(iface))
}

// visibilitySymbol maps visibility to Mermaid's member prefix.
func visibilitySymbol(v registry.Visibility) string {
	switch v {
	case registry.VisibilityPublic:
		return "+"
	case registry.VisibilityProtected:
		return "#"
	case registry.VisibilityPrivate:
		return "-"
	}
	return "~"
}

func writeBlock(b *strings.Builder, n node, opts DiagramOptions) {
	d := n.desc
	b.WriteString(fmt.Sprintf("    class %s[\"%s\"] {\n", NodeID(d.Name), registry.SimpleName(d.Name)))
	switch d.Kind {
	case registry.KindInterface:
		b.WriteString("        <<interface>>\n")
	case registry.KindEnum:
		b.WriteString("        <<enumeration>>\n")
	}
	if n.external {
		b.WriteString("        %% external: " + d.Name + "\n")
	}

	var lines []string
	for _, f := range d.Fields {
		if opts.PublicOnly && f.Visibility != registry.VisibilityPublic {
			continue
		}
		line := visibilitySymbol(f.Visibility) + SanitizeSignature(f.Type) + " " + f.Name
		if f.Static {
			line += "$"
		}
		lines = append(lines, line)
	}
	for _, c := range d.Constructors {
		if opts.PublicOnly && c.Visibility != registry.VisibilityPublic {
			continue
		}
		lines = append(lines, visibilitySymbol(c.Visibility)+SanitizeSignature(c.Signature(d.Name)))
	}
	for _, m := range d.Methods {
		if opts.PublicOnly && m.Visibility != registry.VisibilityPublic {
			continue
		}
		line := visibilitySymbol(m.Visibility) + SanitizeSignature(m.Signature())
		switch {
		case m.Abstract:
			line += "*"
		case m.Static:
			line += "$"
		}
		lines = append(lines, line)
	}
	writeMemberLines(b, lines, opts)
	b.WriteString("    }")
}

// writeMemberLines writes member lines with optional truncation.
func writeMemberLines(b *strings.Builder, lines []string, opts DiagramOptions) {
	limit := len(lines)
	truncated := false
	if opts.MaxMembersPerBox > 0 && limit > opts.MaxMembersPerBox {
		limit = opts.MaxMembersPerBox
		truncated = true
	}
	for i := 0; i < limit; i++ {
		b.WriteString("        " + lines[i] + "\n")
	}
	if truncated {
		b.WriteString("        ...\n")
	}
}

package fsm

import (
	"slices"
	"strings"

	"github.com/enetx/g"
)

type edge = g.Pair[State, State]

// recordEdge remembers a committed transition for ToDOT. It must be called with mu held.
func (m *Machine[C]) recordEdge(from, to State, signal Signal) {
	if signal == "" {
		signal = "(forced)"
	}

	key := edge{Key: from, Value: to}
	if !m.edges[key].Contains(signal) {
		m.edges[key] = m.edges[key].Append(signal)
	}
}

// ToDOT generates a DOT language string representation of the machine for visualization.
// Nodes list the signals each state implements; edges are the transitions observed so far.
func (m *Machine[C]) ToDOT() g.String {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.Current()

	b := g.NewBuilder()

	b.WriteString("digraph FSM {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString(
		"  node [shape=circle, style=filled, fillcolor=\"#f8f8f8\", color=\"#444444\", fontname=\"Helvetica\"];\n",
	)
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	b.WriteString("  __start [shape=point, style=invis];\n")
	b.WriteString(g.Format("  __start -> \"{}\" [label=\" initial\"];\n\n", m.initial))

	for state := range m.reg.sortedStates().Iter() {
		v, _ := m.reg.lookup(state)

		var signals g.Slice[g.String]
		for _, signal := range v.signals {
			signals.Push(g.String(signal))
		}

		var attrs g.Slice[g.String]
		if signals.Empty() {
			attrs.Push(g.Format("label=\"{}\"", state))
		} else {
			attrs.Push(g.Format("label=\"{}\\n{}\"", state, signals.Join(", ")))
		}

		switch {
		case state == current:
			attrs.Push("fillcolor=\"#90ee90\"", "shape=doublecircle")
		case signals.Empty():
			attrs.Push("fillcolor=\"#d3d3d3\"", "shape=doublecircle")
		}

		var tooltips g.Slice[g.String]

		if v.HasEntry() {
			tooltips.Push("OnEntry")
		}

		if v.HasExit() {
			tooltips.Push("OnExit")
		}

		if tooltips.NotEmpty() {
			attrs.Push(g.Format("tooltip=\"{}\"", tooltips.Join("\\n")))
		}

		b.WriteString(g.Format("  \"{}\" [{}];\n", state, attrs.Join(", ")))
	}

	b.WriteByte('\n')

	keys := make([]edge, 0, len(m.edges))
	for key := range m.edges {
		keys = append(keys, key)
	}

	slices.SortFunc(keys, func(a, b edge) int {
		if c := strings.Compare(string(a.Key), string(b.Key)); c != 0 {
			return c
		}

		return strings.Compare(string(a.Value), string(b.Value))
	})

	for _, key := range keys {
		var labels g.Slice[g.String]
		for _, signal := range m.edges[key] {
			labels.Push(g.String(signal))
		}

		var attrs g.Slice[g.String]
		attrs.Push(g.Format("label=\" {} \"", labels.Join("\\n")))

		if m.edges[key].Contains("(forced)") {
			attrs.Push("style=dashed", "color=red")
		}

		b.WriteString(g.Format("  \"{}\" -> \"{}\" [{}];\n", key.Key, key.Value, attrs.Join(", ")))
	}

	b.WriteString("\n  subgraph cluster_legend {\n")
	b.WriteString("    label = \"Legend\";\n")
	b.WriteString("    style = dashed;\n")
	b.WriteString(`    key [label=<
      <table border="0" cellpadding="4" cellspacing="0" cellborder="0">
        <tr><td align="right">●</td><td>Regular state</td></tr>
        <tr><td align="right"><font color="green">◎</font></td><td>Current state</td></tr>
        <tr><td align="right"><font color="gray">◎</font></td><td>State without signals</td></tr>
        <tr><td align="right"><font color="red">→</font></td><td>Forced transition</td></tr>
      </table>
    >, shape=none];`)

	b.WriteString("  }\n")
	b.WriteString("}\n")

	return b.String()
}

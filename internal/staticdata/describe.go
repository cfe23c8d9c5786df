package staticdata

import (
	"fmt"
	"strings"
)

// Description is a deterministic dump of a Model, keyed by names rather than
// indices.
type Description struct {
	Parameters []string           `json:"parameters"`
	Events     []EventDescription `json:"events"`
	Shapes     []ShapeDescription `json:"shapes"`
	States     []StateDescription `json:"states"`
}

// EventDescription lists the per-event tables.
type EventDescription struct {
	Name      string   `json:"name"`
	Binds     string   `json:"binds"`
	Creation  bool     `json:"creation,omitempty"`
	Disabling bool     `json:"disabling,omitempty"`
	Enable    []string `json:"enable,omitempty"`
	Max       []string `json:"max,omitempty"`
	Join      []string `json:"join,omitempty"`
	Existing  []string `json:"existing,omitempty"`
}

// ShapeDescription lists a shape's monitor sets and chainings.
type ShapeDescription struct {
	Set         string   `json:"set"`
	Children    []string `json:"children,omitempty"`
	MonitorSets []string `json:"monitor_sets,omitempty"`
	Chainings   []string `json:"chainings,omitempty"`
	Leaf        bool     `json:"leaf,omitempty"`
}

// StateDescription lists a state's alive masks.
type StateDescription struct {
	Name  string   `json:"name"`
	Alive []string `json:"alive,omitempty"`
}

// Describe renders the model with parameter names.
func (m *Model) Describe() Description {
	d := Description{}
	for _, p := range m.alphabet.Parameters() {
		d.Parameters = append(d.Parameters, p.Name())
	}
	for _, e := range m.alphabet.Events() {
		ed := EventDescription{
			Name:      e.Name(),
			Binds:     m.SetName(m.EventSet(e)),
			Creation:  m.Creation(e),
			Disabling: m.Disabling(e),
		}
		for _, s := range m.EnableSets(e) {
			ed.Enable = append(ed.Enable, m.SetName(s))
		}
		for _, fm := range m.MaxData(e) {
			ed.Max = append(ed.Max, fmt.Sprintf("%s disable %s", m.SetName(fm.NodeMask), m.setNames(fm.DisableMasks)))
		}
		for _, ja := range m.JoinData(e) {
			line := fmt.Sprintf("%s#%d %s -> %s ext %v copy %v disable %s",
				m.SetName(ja.NodeMask), ja.MonitorSetID, m.SetName(ja.SourceMask), m.SetName(ja.TargetMask),
				ja.ExtensionPattern, ja.CopyPattern, m.setNames(ja.DisableMasks))
			if len(ja.MixedMasks) > 0 {
				line += " mixed " + m.setNames(ja.MixedMasks)
			}
			ed.Join = append(ed.Join, line)
		}
		for _, s := range m.ExistingMonitorMasks(e) {
			ed.Existing = append(ed.Existing, m.SetName(s))
		}
		d.Events = append(d.Events, ed)
	}
	for _, sh := range m.Shapes() {
		sd := ShapeDescription{Set: m.SetName(sh.Set()), Leaf: sh.Leaf()}
		for _, p := range sh.Children() {
			sd.Children = append(sd.Children, m.alphabet.Parameters()[p].Name())
		}
		for id := 0; id < sh.MonitorSetCount(); id++ {
			sd.MonitorSets = append(sd.MonitorSets, fmt.Sprintf("#%d %s", id, m.SetName(sh.MonitorSetTarget(id))))
		}
		for _, c := range sh.Chainings() {
			sd.Chainings = append(sd.Chainings, fmt.Sprintf("%s#%d", m.SetName(c.NodeMask), c.MonitorSetID))
		}
		d.Shapes = append(d.Shapes, sd)
	}
	for _, s := range m.fsm.States() {
		sd := StateDescription{Name: s.Name()}
		for _, r := range m.AliveMasks(s) {
			sd.Alive = append(sd.Alive, m.SetName(r))
		}
		d.States = append(d.States, sd)
	}
	return d
}

// SetName renders s with parameter names, e.g. "{c,i}".
func (m *Model) SetName(s Set) string {
	params := m.alphabet.Parameters()
	names := make([]string, 0, s.Len())
	for _, p := range s.Mask() {
		names = append(names, params[p].Name())
	}
	return "{" + strings.Join(names, ",") + "}"
}

func (m *Model) setNames(sets []Set) string {
	names := make([]string, len(sets))
	for i, s := range sets {
		names[i] = m.SetName(s)
	}
	return "[" + strings.Join(names, " ") + "]"
}

// String renders the description as indented text.
func (d Description) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parameters: %s\n", strings.Join(d.Parameters, ", "))
	b.WriteString("events:\n")
	for _, e := range d.Events {
		fmt.Fprintf(&b, "  %s %s", e.Name, e.Binds)
		if e.Creation {
			b.WriteString(" creation")
		}
		if e.Disabling {
			b.WriteString(" disabling")
		}
		b.WriteString("\n")
		writeList(&b, "enable", e.Enable)
		writeList(&b, "max", e.Max)
		writeList(&b, "join", e.Join)
		writeList(&b, "existing", e.Existing)
	}
	b.WriteString("shapes:\n")
	for _, s := range d.Shapes {
		fmt.Fprintf(&b, "  %s", s.Set)
		if s.Leaf {
			b.WriteString(" leaf")
		}
		b.WriteString("\n")
		if len(s.Children) > 0 {
			fmt.Fprintf(&b, "    children: %s\n", strings.Join(s.Children, ", "))
		}
		writeList(&b, "monitor sets", s.MonitorSets)
		writeList(&b, "chainings", s.Chainings)
	}
	b.WriteString("states:\n")
	for _, s := range d.States {
		fmt.Fprintf(&b, "  %s\n", s.Name)
		writeList(&b, "alive", s.Alive)
	}
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	for _, it := range items {
		fmt.Fprintf(b, "    %s: %s\n", label, it)
	}
}

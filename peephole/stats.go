package peephole

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Stats counts what a pass did. Applied is keyed by rule name.
type Stats struct {
	Applied         map[string]int `json:"applied"`
	Methods         int            `json:"methods"`
	Scanned         int            `json:"scanned"`
	Removed         int            `json:"removed"`
	Inconsistencies int            `json:"inconsistencies"`
	MalformedPairs  int            `json:"malformed_pairs,omitempty"`
}

func NewStats() *Stats {
	return &Stats{Applied: make(map[string]int)}
}

// Merge adds o into s.
func (s *Stats) Merge(o *Stats) {
	if o == nil {
		return
	}
	if s.Applied == nil {
		s.Applied = make(map[string]int, len(o.Applied))
	}
	for name, n := range o.Applied {
		s.Applied[name] += n
	}
	s.Methods += o.Methods
	s.Scanned += o.Scanned
	s.Removed += o.Removed
	s.Inconsistencies += o.Inconsistencies
	s.MalformedPairs += o.MalformedPairs
}

// Total is the number of rewrites across all rules.
func (s *Stats) Total() int {
	t := 0
	for _, n := range s.Applied {
		t += n
	}
	return t
}

// Names returns the rule names with at least one application, sorted.
func (s *Stats) Names() []string {
	names := make([]string, 0, len(s.Applied))
	for name, n := range s.Applied {
		if n > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func (s *Stats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "methods=%d scanned=%d rewrites=%d removed=%d", s.Methods, s.Scanned, s.Total(), s.Removed)
	if s.Inconsistencies > 0 {
		fmt.Fprintf(&sb, " inconsistencies=%d", s.Inconsistencies)
	}
	if s.MalformedPairs > 0 {
		fmt.Fprintf(&sb, " malformed=%d", s.MalformedPairs)
	}
	for _, name := range s.Names() {
		fmt.Fprintf(&sb, "\n  %-20s %d", name, s.Applied[name])
	}
	return sb.String()
}

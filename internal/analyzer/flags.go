// =============================
// File: internal/analyzer/flags.go
// =============================
package analyzer

import "time"

// Severity grades a flag or indicator.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Flag is a single detected condition. At most one live flag per Type.
type Flag struct {
	Type        string
	Severity    Severity
	Description string
	DetectedAt  time.Time
}

// FlagSet keeps an ordered set of flags keyed by type. Re-adding a type
// updates severity and description in place but preserves the original
// DetectedAt, so flag age survives re-detection.
type FlagSet struct {
	flags []Flag
	index map[string]int
}

// NewFlagSet returns an empty set.
func NewFlagSet() *FlagSet {
	return &FlagSet{index: make(map[string]int)}
}

// Add inserts or overwrites-in-place the flag of the given type.
func (s *FlagSet) Add(typ string, sev Severity, desc string, now time.Time) {
	if i, ok := s.index[typ]; ok {
		s.flags[i].Severity = sev
		s.flags[i].Description = desc
		return
	}
	s.index[typ] = len(s.flags)
	s.flags = append(s.flags, Flag{
		Type:        typ,
		Severity:    sev,
		Description: desc,
		DetectedAt:  now,
	})
}

// Remove deletes the flag of the given type if present.
func (s *FlagSet) Remove(typ string) {
	i, ok := s.index[typ]
	if !ok {
		return
	}
	s.flags = append(s.flags[:i], s.flags[i+1:]...)
	delete(s.index, typ)
	for j := i; j < len(s.flags); j++ {
		s.index[s.flags[j].Type] = j
	}
}

// Has reports whether a flag of the given type is live.
func (s *FlagSet) Has(typ string) bool {
	_, ok := s.index[typ]
	return ok
}

// Get returns the live flag of the given type.
func (s *FlagSet) Get(typ string) (Flag, bool) {
	i, ok := s.index[typ]
	if !ok {
		return Flag{}, false
	}
	return s.flags[i], true
}

// List returns the live flags in detection order.
func (s *FlagSet) List() []Flag {
	out := make([]Flag, len(s.flags))
	copy(out, s.flags)
	return out
}

// Len returns the number of live flags.
func (s *FlagSet) Len() int { return len(s.flags) }

// AnyOfSeverity reports whether any live flag carries the given severity.
func (s *FlagSet) AnyOfSeverity(sev Severity) bool {
	for _, f := range s.flags {
		if f.Severity == sev {
			return true
		}
	}
	return false
}

// WeightedSum folds severity weights over the live flags.
func (s *FlagSet) WeightedSum(weights map[Severity]float64) float64 {
	var sum float64
	for _, f := range s.flags {
		sum += weights[f.Severity]
	}
	return sum
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

package flow

import "strings"

// Kind tags the closed set of node types. Evaluation dispatches on the tag.
type Kind uint8

const (
	KindIn Kind = iota
	KindHarmonics
	KindEnvelope
	KindFilter
	KindUser
	KindOut

	numKinds
)

var kindNames = [numKinds]string{
	KindIn:        "In",
	KindHarmonics: "Harmonics",
	KindEnvelope:  "Envelope",
	KindFilter:    "Filter",
	KindUser:      "User",
	KindOut:       "Out",
}

// kindVersions is bumped when a kind's ports or options change shape.
var kindVersions = [numKinds]int{
	KindIn:        1,
	KindHarmonics: 1,
	KindEnvelope:  1,
	KindFilter:    1,
	KindUser:      1,
	KindOut:       1,
}

func (k Kind) String() string {
	if k >= numKinds {
		return "unknown"
	}
	return kindNames[k]
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k < numKinds
}

// OptionSpec describes one option and its enumerated domain.
type OptionSpec struct {
	Name   string
	Values []string
}

// TypeSpec is the declared interface of a node kind: everything a graph
// editor needs to present it and everything persistence needs to restore it.
type TypeSpec struct {
	Kind        Kind
	Name        string
	Version     int
	Unit        bool
	Inputs      []string
	Modulations []string
	Defaults    []float64
	Options     []OptionSpec
	Outputs     []string
}

var catalog = buildCatalog()

func buildCatalog() []TypeSpec {
	proto := &Voice{numPartials: 1}
	specs := make([]TypeSpec, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		specs = append(specs, newNode(proto, k).Spec())
	}
	return specs
}

// clone returns a copy of s that shares no slices with it.
func (s TypeSpec) clone() TypeSpec {
	out := s
	out.Inputs = append([]string(nil), s.Inputs...)
	out.Modulations = append([]string(nil), s.Modulations...)
	out.Defaults = append([]float64(nil), s.Defaults...)
	out.Outputs = append([]string(nil), s.Outputs...)
	out.Options = nil
	for _, o := range s.Options {
		out.Options = append(out.Options, OptionSpec{
			Name:   o.Name,
			Values: append([]string(nil), o.Values...),
		})
	}
	return out
}

// Catalog lists every node type in Kind order. The result is the caller's
// to modify.
func Catalog() []TypeSpec {
	out := make([]TypeSpec, len(catalog))
	for i, s := range catalog {
		out[i] = s.clone()
	}
	return out
}

// LookupType finds a node type by name, ignoring case.
func LookupType(name string) (TypeSpec, bool) {
	for _, s := range catalog {
		if strings.EqualFold(s.Name, name) {
			return s.clone(), true
		}
	}
	return TypeSpec{}, false
}

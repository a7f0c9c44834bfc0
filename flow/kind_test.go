package flow

import (
	"errors"
	"testing"
)

func TestCatalog(t *testing.T) {
	specs := Catalog()
	if len(specs) != int(numKinds) {
		t.Fatalf("catalog has %d types, want %d", len(specs), numKinds)
	}
	for i, s := range specs {
		if s.Kind != Kind(i) {
			t.Errorf("catalog[%d].Kind = %v", i, s.Kind)
		}
		if s.Name != Kind(i).String() {
			t.Errorf("catalog[%d].Name = %q, want %q", i, s.Name, Kind(i).String())
		}
		if len(s.Defaults) != len(s.Modulations) {
			t.Errorf("%s: %d defaults for %d modulations", s.Name, len(s.Defaults), len(s.Modulations))
		}
	}

	filter, ok := LookupType("filter")
	if !ok {
		t.Fatal("LookupType(filter) not found")
	}
	if !filter.Unit || len(filter.Inputs) != 1 {
		t.Errorf("Filter spec = %+v", filter)
	}
	if len(filter.Options) != 1 || len(filter.Options[0].Values) != 4 {
		t.Errorf("Filter options = %+v", filter.Options)
	}
	if filter.Defaults[FilterModFrequency] != 0 || filter.Defaults[FilterModDropoff] != 0.5 {
		t.Errorf("Filter defaults = %v", filter.Defaults)
	}

	user, _ := LookupType("User")
	if user.Unit || len(user.Outputs) != UserChannels || len(user.Modulations) != UserChannels {
		t.Errorf("User spec = %+v", user)
	}

	if _, ok := LookupType("Reverb"); ok {
		t.Error("LookupType(Reverb) found a type")
	}
	if Kind(200).Valid() || Kind(200).String() != "unknown" {
		t.Error("out-of-range kind reported as valid")
	}

	specs[KindFilter].Options[0].Values[0] = "changed"
	specs[KindFilter].Defaults[FilterModFrequency] = 42
	specs[KindFilter].Inputs[0] = "changed"
	again := Catalog()[KindFilter]
	if again.Options[0].Values[0] != "LP" || again.Defaults[FilterModFrequency] != 0 || again.Inputs[0] != "Input" {
		t.Errorf("Catalog returned shared storage: %+v", again)
	}

	filter.Options[0].Values[1] = "changed"
	filter.Defaults[FilterModDropoff] = 42
	filter.Outputs = append(filter.Outputs, "extra")
	again, _ = LookupType("Filter")
	if again.Options[0].Values[1] != "HP" || again.Defaults[FilterModDropoff] != 0.5 || len(again.Outputs) != 0 {
		t.Errorf("LookupType returned shared storage: %+v", again)
	}
}

func TestNodeOptions(t *testing.T) {
	e := newTestEngine(t, 1, 4)
	err := e.Edit(func(ed *Editor) error {
		idx, err := ed.AddNode(KindFilter)
		if err != nil {
			return err
		}
		if err := ed.SetOption(idx, FilterOptionType, FilterNotch); err != nil {
			return err
		}
		got, err := ed.Option(idx, FilterOptionType)
		if err != nil {
			return err
		}
		if got != FilterNotch {
			t.Errorf("Option = %d, want %d", got, FilterNotch)
		}

		cases := []struct {
			name  string
			opt   int
			value int
		}{
			{"NegativeIndex", -1, 0},
			{"IndexPastEnd", 1, 0},
			{"NegativeValue", FilterOptionType, -1},
			{"ValueOutsideDomain", FilterOptionType, 4},
		}
		for _, tc := range cases {
			if err := ed.SetOption(idx, tc.opt, tc.value); !errors.Is(err, ErrInvalidOption) {
				t.Errorf("%s: SetOption error = %v, want ErrInvalidOption", tc.name, err)
			}
		}
		if _, err := ed.Node(0, idx).Option(3); !errors.Is(err, ErrInvalidOption) {
			t.Errorf("Option(3) error = %v, want ErrInvalidOption", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
}

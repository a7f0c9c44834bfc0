package flow

import (
	"errors"
	"testing"
)

func userPatch() *Patch {
	return &Patch{
		Output: -1,
		Nodes: []Record{
			{Type: "Harmonics", Version: 1},
			{Type: "User", Version: 1},
		},
	}
}

func TestFireTriggerReachesEveryVoice(t *testing.T) {
	e := newTestEngine(t, 4, 8)
	if err := e.Load(userPatch()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var origin *Node
	if err := e.Edit(func(ed *Editor) error {
		origin = ed.Node(2, 1)
		return nil
	}); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	if err := e.FireTrigger(origin, 2); err != nil {
		t.Fatalf("FireTrigger: %v", err)
	}

	check := func(step string, manual, fired bool) {
		t.Helper()
		err := e.Edit(func(ed *Editor) error {
			for v := 0; v < ed.NumVoices(); v++ {
				n := ed.Node(v, 1)
				if got := n.ManualTrigger(2); got != manual {
					t.Errorf("%s: voice %d manual = %v, want %v", step, v, got, manual)
				}
				if got := n.Fired(2); got != fired {
					t.Errorf("%s: voice %d fired = %v, want %v", step, v, got, fired)
				}
				for c := 0; c < UserChannels; c++ {
					if c != 2 && (n.ManualTrigger(c) || n.Fired(c)) {
						t.Errorf("%s: voice %d channel %d also triggered", step, v, c)
					}
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("%s: Edit: %v", step, err)
		}
	}

	check("before block", true, false)
	e.Process(64)
	check("first block", false, true)
	e.Process(64)
	check("second block", false, false)
}

func TestFireTriggerRejectsBadOrigins(t *testing.T) {
	e := newTestEngine(t, 2, 8)
	other := newTestEngine(t, 2, 8)
	for _, eng := range []*Engine{e, other} {
		if err := eng.Load(userPatch()); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}

	var user, harmonics, foreign, removed *Node
	_ = e.Edit(func(ed *Editor) error {
		harmonics = ed.Node(0, 0)
		user = ed.Node(1, 1)
		return nil
	})
	_ = other.Edit(func(ed *Editor) error {
		foreign = ed.Node(0, 1)
		removed = ed.Node(1, 1)
		return ed.RemoveNode(1)
	})

	cases := []struct {
		name    string
		origin  *Node
		channel int
		want    error
	}{
		{"Nil", nil, 0, ErrNodeNotFound},
		{"OtherEngine", foreign, 0, ErrNodeNotFound},
		{"Removed", removed, 0, ErrNodeNotFound},
		{"NotUser", harmonics, 0, ErrStructure},
		{"ChannelPastEnd", user, UserChannels, ErrUnboundPort},
		{"NegativeChannel", user, -1, ErrUnboundPort},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := e.FireTrigger(tc.origin, tc.channel); !errors.Is(err, tc.want) {
				t.Fatalf("FireTrigger error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUserPassesModulation(t *testing.T) {
	e := newTestEngine(t, 1, 4)
	err := e.Edit(func(ed *Editor) error {
		idx, err := ed.AddNode(KindUser)
		if err != nil {
			return err
		}
		return ed.BindConstant(idx, 1, 0.75)
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	v := e.voices[0]
	if err := v.evaluate(); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := v.Node(0).Output(1); got != 0.75 {
		t.Fatalf("User output B = %v, want 0.75", got)
	}
}

func TestFireTriggerMonophonicLatchesFirstVoice(t *testing.T) {
	e := newTestEngine(t, 3, 8)
	if err := e.Load(userPatch()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.SetMonophonic(true)
	if err := e.Edit(func(ed *Editor) error { return ed.FireTrigger(1, 0) }); err != nil {
		t.Fatalf("FireTrigger: %v", err)
	}
	if !e.voices[0].Node(1).ManualTrigger(0) {
		t.Fatal("voice 0 not latched")
	}
	for _, v := range e.voices[1:] {
		if v.Node(1).ManualTrigger(0) {
			t.Fatalf("silent voice %d latched in monophonic mode", v.Index())
		}
	}

	e.Process(64)
	e.SetMonophonic(false)
	e.Process(64)
	for _, v := range e.voices {
		if v.Node(1).Fired(0) || v.Node(1).ManualTrigger(0) {
			t.Fatalf("voice %d fired a stale trigger after leaving monophonic mode", v.Index())
		}
	}
}

func TestMonophonicDropsPendingTriggers(t *testing.T) {
	e := newTestEngine(t, 2, 8)
	if err := e.Load(userPatch()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := e.Edit(func(ed *Editor) error { return ed.FireTrigger(1, 3) }); err != nil {
		t.Fatalf("FireTrigger: %v", err)
	}
	e.SetMonophonic(true)
	if !e.voices[0].Node(1).ManualTrigger(3) {
		t.Fatal("voice 0 lost its pending trigger")
	}
	if e.voices[1].Node(1).ManualTrigger(3) {
		t.Fatal("voice 1 kept a trigger it will never consume")
	}
}

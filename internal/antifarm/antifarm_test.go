package antifarm

import (
	"context"
	"testing"

	"rps-arena/internal/arena"
)

type fakeStore struct {
	matches []arena.Match
}

func (f *fakeStore) PairMatches(_ context.Context, a, b string, limit int, excludeMatchID string) ([]arena.Match, error) {
	var out []arena.Match
	for i := len(f.matches) - 1; i >= 0 && len(out) < limit; i-- {
		m := f.matches[i]
		if m.ID == excludeMatchID {
			continue
		}
		if (m.Player1ID == a && m.Player2ID == b) || (m.Player1ID == b && m.Player2ID == a) {
			out = append(out, m)
		}
	}
	return out, nil
}

func pair(id, a, b string) arena.Match {
	return arena.Match{ID: id, Player1ID: a, Player2ID: b}
}

func TestFirstMeetingsAllowed(t *testing.T) {
	st := &fakeStore{matches: []arena.Match{pair("m1", "a", "b"), pair("m2", "b", "a")}}
	g := New(st, 0, 0)
	v, err := g.Check(context.Background(), "a", "b", pair("m3", "a", "b"))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !v.Allowed || v.Meetings != 2 {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestRepeatPairingSuppressed(t *testing.T) {
	st := &fakeStore{matches: []arena.Match{pair("m1", "a", "b"), pair("m2", "a", "b"), pair("m3", "b", "a")}}
	current := pair("m4", "a", "b")
	current.Player1IP, current.Player2IP = "1.1.1.1", "2.2.2.2"
	st.matches = append(st.matches, current)

	v, err := New(st, 5, 3).Check(context.Background(), "a", "b", current)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if v.Allowed || v.Reason != ReasonRepeatPairing {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestSameIPFarmingReason(t *testing.T) {
	st := &fakeStore{matches: []arena.Match{pair("m1", "a", "b"), pair("m2", "a", "b"), pair("m3", "a", "b")}}
	current := pair("m4", "a", "b")
	current.Player1IP, current.Player2IP = "10.0.0.7", "10.0.0.7"

	v, err := New(st, 5, 3).Check(context.Background(), "a", "b", current)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if v.Allowed || v.Reason != ReasonSameIPFarming {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestFillerMatchesDoNotHideRepeatPairing(t *testing.T) {
	// a and b met three times from one address, then each played others.
	st := &fakeStore{matches: []arena.Match{
		pair("m1", "a", "b"), pair("m2", "b", "a"), pair("m3", "a", "b"),
		pair("f1", "a", "c"), pair("f2", "a", "d"), pair("f3", "a", "e"),
		pair("f4", "b", "x"), pair("f5", "b", "y"), pair("f6", "b", "z"),
	}}
	current := pair("m9", "a", "b")
	current.Player1IP, current.Player2IP = "10.0.0.7", "10.0.0.7"

	v, err := New(st, 5, 3).Check(context.Background(), "a", "b", current)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if v.Allowed || v.Meetings != 3 || v.Reason != ReasonSameIPFarming {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestMeetingsCappedAtLookback(t *testing.T) {
	st := &fakeStore{}
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7"} {
		st.matches = append(st.matches, pair(id, "a", "b"))
	}
	v, err := New(st, 5, 3).Check(context.Background(), "a", "b", pair("m8", "a", "b"))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if v.Allowed || v.Meetings != 5 {
		t.Fatalf("unexpected verdict: %+v", v)
	}
}

func TestExcludesCurrentMatch(t *testing.T) {
	st := &fakeStore{matches: []arena.Match{pair("m1", "a", "b"), pair("m2", "a", "b"), pair("m3", "a", "b")}}
	v, err := New(st, 5, 3).Check(context.Background(), "a", "b", pair("m3", "a", "b"))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !v.Allowed || v.Meetings != 2 {
		t.Fatalf("current match must not count, got %+v", v)
	}
}

func TestSamePlayerBothSidesIgnoresEmptyIP(t *testing.T) {
	st := &fakeStore{matches: []arena.Match{pair("m1", "a", "b"), pair("m2", "a", "b"), pair("m3", "a", "b")}}
	v, err := New(st, 5, 3).Check(context.Background(), "a", "b", pair("m4", "a", "b"))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if v.Reason != ReasonRepeatPairing {
		t.Fatalf("empty IPs must not count as same-ip, got %+v", v)
	}
}

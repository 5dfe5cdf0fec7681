package core

import "testing"

func resetStoreForTest() {
	SetStore(NewInMemoryStore())
}

func TestGuardianSetQuorum(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{1, 1},
		{3, 3},
		{4, 3},
		{7, 5},
		{19, 13},
	}
	for _, c := range cases {
		gs := &GuardianSet{Addresses: make([]Address, c.n)}
		if got := gs.Quorum(); got != c.want {
			t.Fatalf("quorum(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestSetGuardianSetFirstMustBeZero(t *testing.T) {
	resetStoreForTest()
	gs := &GuardianSet{Index: 1, Addresses: []Address{{1}}}
	if err := SetGuardianSet(gs, 0, 86400); err == nil {
		t.Fatalf("expected error installing non-zero first guardian set")
	}
}

func TestSetGuardianSetRotationExpiresPrevious(t *testing.T) {
	resetStoreForTest()
	first := &GuardianSet{Index: 0, Addresses: []Address{{1}, {2}, {3}}}
	if err := SetGuardianSet(first, 1000, 500); err != nil {
		t.Fatalf("install first: %v", err)
	}

	second := &GuardianSet{Index: 1, Addresses: []Address{{4}, {5}, {6}}}
	if err := SetGuardianSet(second, 2000, 500); err != nil {
		t.Fatalf("install second: %v", err)
	}

	prev, err := GetGuardianSet(0)
	if err != nil {
		t.Fatalf("get previous: %v", err)
	}
	if prev.ExpirationTime != 2500 {
		t.Fatalf("expected previous set to expire at 2500, got %d", prev.ExpirationTime)
	}
	if prev.IsExpiredAt(2400) {
		t.Fatalf("previous set should still be valid before its expiration")
	}
	if !prev.IsExpiredAt(2500) {
		t.Fatalf("previous set should be expired at its expiration time")
	}

	cur, err := CurrentGuardianSet()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.Index != 1 {
		t.Fatalf("expected current index 1, got %d", cur.Index)
	}
}

func TestSetGuardianSetRejectsSkippedIndex(t *testing.T) {
	resetStoreForTest()
	first := &GuardianSet{Index: 0, Addresses: []Address{{1}}}
	if err := SetGuardianSet(first, 0, 86400); err != nil {
		t.Fatalf("install first: %v", err)
	}
	skip := &GuardianSet{Index: 5, Addresses: []Address{{2}}}
	if err := SetGuardianSet(skip, 0, 86400); err == nil {
		t.Fatalf("expected error installing a non-contiguous guardian set index")
	}
}

// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package gobps

import (
	"strings"
	"testing"
	"time"
)

func TestObsGetNearest(t *testing.T) {
	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	obs := &Obs{DatE: []*ObsE{
		NewObsE(t0),
		NewObsE(t0.Add(2 * time.Second)),
		NewObsE(t0.Add(4 * time.Second)),
	}}

	got, err := obs.GetNearest(t0.Add(2500 * time.Millisecond))
	if err != nil {
		t.Fatalf("GetNearest: %v", err)
	}
	if !got.Time.Equal(t0.Add(2 * time.Second)) {
		t.Errorf("nearest epoch = %s, want %s", got.Time, t0.Add(2*time.Second))
	}

	// Beyond the acceptance window
	if _, err := obs.GetNearest(t0.Add(5 * time.Minute)); err == nil {
		t.Error("GetNearest accepted an epoch outside the window")
	}

	// Empty container
	empty := &Obs{}
	if _, err := empty.GetNearest(t0); err == nil {
		t.Error("GetNearest on empty container did not fail")
	}
}

func TestObsString(t *testing.T) {
	empty := &Obs{}
	if got := empty.String(); got != "NO DATA" {
		t.Errorf("String = %q, want NO DATA", got)
	}

	t0 := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	obse := NewObsE(t0)
	obse.DatB["b02"] = &ObsB{ID: "b02", Time: t0}
	obse.DatB["b01"] = &ObsB{ID: "b01", Time: t0}
	obs := &Obs{DatE: []*ObsE{obse}}

	s := obs.String()
	if !strings.Contains(s, "b01 b02") {
		t.Errorf("String missing sorted beacon list:\n%s", s)
	}
	if !strings.Contains(s, "2026/08/31 10:00:00.000") {
		t.Errorf("String missing epoch time:\n%s", s)
	}
}

func TestSortedIDs(t *testing.T) {
	in := []BeaconID{"b10", "b02", "a99", "b01"}
	got := SortedIDs(in)

	want := []BeaconID{"a99", "b01", "b02", "b10"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// The input slice must be left untouched
	if in[0] != "b10" {
		t.Error("SortedIDs mutated its input")
	}
}

// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package gobps

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// Type representing a beacon name like "b07"
type BeaconID string

// Structure to store one beacon reading for one epoch
type ObsB struct {
	ID   BeaconID  // Beacon name
	Pos  Vec3      // Surveyed beacon position (joined from the site file)
	Rssi float64   // Received signal strength [dBm]
	Dist float64   // Measured distance [m] (time-of-flight or prior calibration)
	Acc  float64   // Reported accuracy quality figure (>0, higher is better)
	Time time.Time // Reading timestamp
}

// Structure to store all beacon readings of one epoch
type ObsE struct {
	Time time.Time          // Epoch time
	DatB map[BeaconID]*ObsB // Reading for each beacon
}

func NewObsE(t time.Time) *ObsE {
	return &ObsE{
		Time: t,
		DatB: map[BeaconID]*ObsB{},
	}
}

// Return map keys as slice
func (p *ObsE) Beacons() []BeaconID {
	s := make([]BeaconID, 0, len(p.DatB))
	for k := range p.DatB {
		s = append(s, k)
	}
	return s
}

// Structure to store beacon readings for all epochs
type Obs struct {
	DatE []*ObsE // Reading data for each time (sorted by time in ascending order)
}

// Display observation data overview
func (p *Obs) String() string {
	if len(p.DatE) == 0 {
		return "NO DATA"
	}
	// Beacon list
	bl := []BeaconID{}
	for _, obse := range p.DatE {
		for id := range obse.DatB {
			if !slices.Contains(bl, id) {
				bl = append(bl, id)
			}
		}
	}
	bl = SortedIDs(bl)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\t(%2d):", len(bl)))
	for _, b := range bl {
		sb.WriteString(fmt.Sprintf(" %s", b))
	}
	a := `
datetime:
	%s - %s (%d)

beacons:
%s
`
	return fmt.Sprintf(a,
		p.DatE[0].Time.UTC().Format("2006/01/02 15:04:05.000"),
		p.DatE[len(p.DatE)-1].Time.UTC().Format("2006/01/02 15:04:05.000"),
		len(p.DatE), sb.String())
}

// Maximum epoch age accepted by GetNearest
const MAX_EPOCH_AGE = 30 * time.Second

// Return data for the epoch closest in time to the specified time
func (p *Obs) GetNearest(t time.Time) (obse *ObsE, err error) {
	if len(p.DatE) == 0 {
		return nil, fmt.Errorf("the container is empty")
	}
	m := MAX_EPOCH_AGE.Seconds() + 1
	for _, s := range p.DatE {
		d := math.Abs(t.Sub(s.Time).Seconds())
		if d <= m {
			obse = s
			m = d
		}
	}
	if m > MAX_EPOCH_AGE.Seconds() {
		return nil, fmt.Errorf("no nearest data is found within %d seconds. t=%s, m=%f", int(MAX_EPOCH_AGE.Seconds()), t.UTC(), m)
	}
	return obse, nil
}

// Sort the list of beacon names
func SortedIDs(s []BeaconID) []BeaconID {
	s2 := make([]BeaconID, len(s))
	copy(s2, s)
	sort.Slice(s2, func(i, j int) bool {
		return s2[i] < s2[j]
	})
	return s2
}

// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package gobps

import (
	"sort"

	"golang.org/x/exp/slices"
)

// Quality score weights
const (
	SIG_SCORE_WEIGHT  = 0.4
	PROX_SCORE_WEIGHT = 0.3
	ACC_SCORE_WEIGHT  = 0.3
	PROX_FULL_DIST    = 20.0 // Proximity score decays linearly to 0 at this distance [m]
)

// sigScore maps an RSSI reading onto [0, 1]. The eligibility cutoff
// RssiMask maps to 0 and a 0 dBm reading maps to 1.
func sigScore(rssi float64) float64 {
	return Clamp((rssi-RssiMask)/(-RssiMask), 0, 1)
}

// proxScore maps a distance onto [0, 1], closer is better
func proxScore(dist float64) float64 {
	return Clamp(1-dist/PROX_FULL_DIST, 0, 1)
}

// scoreBeacon computes the quality score used to rank candidates
func scoreBeacon(obsb *ObsB) float64 {
	return SIG_SCORE_WEIGHT*sigScore(obsb.Rssi) +
		PROX_SCORE_WEIGHT*proxScore(obsb.Dist) +
		ACC_SCORE_WEIGHT*Clamp(obsb.Acc, 0, 1)
}

// selectValidBeacons selects valid beacons for position calculation
// It applies the eligibility cutoffs, ranks the survivors by quality score
// and greedily keeps a geometrically diverse subset
func selectValidBeacons(obse *ObsE, opt *PosOpt, rslt *PosSol) error {

	// Candidates that pass the eligibility cutoffs
	cand := make([]*ObsB, 0, len(obse.DatB))

	// Loop through beacons in the epoch
	for _, id := range SortedIDs(obse.Beacons()) {

		obsb := obse.DatB[id]

		// Skip if beacon in exclusion list
		if opt.ExBeacons != nil && slices.Contains(opt.ExBeacons, id) {
			PrintD(3, "\t%s: Exclude beacon\n", id)
			continue
		}

		// Skip if signal strength at or below the floor
		if obsb.Rssi <= opt.RssiMask {
			PrintD(3, "\t%s: RSSI mask (rssi=%.1f <= %.1f)\n", id, obsb.Rssi, opt.RssiMask)
			continue
		}

		// Skip if measured distance at or beyond the ceiling
		if obsb.Dist >= opt.MaxDist {
			PrintD(3, "\t%s: distance mask (dist=%.1f >= %.1f)\n", id, obsb.Dist, opt.MaxDist)
			continue
		}

		// Skip if reported accuracy at or below the floor
		if obsb.Acc <= opt.MinAcc {
			PrintD(3, "\t%s: accuracy mask (acc=%.2f <= %.2f)\n", id, obsb.Acc, opt.MinAcc)
			continue
		}

		// Skip if the reading is stale (filter off when MaxAge is 0)
		if opt.MaxAge > 0 && obse.Time.Sub(obsb.Time) > opt.MaxAge {
			PrintD(3, "\t%s: stale reading (age=%s > %s)\n", id, obse.Time.Sub(obsb.Time), opt.MaxAge)
			continue
		}

		cand = append(cand, obsb)
	}

	// Sort descending by quality score. Ties fall back to name order so
	// the selection is deterministic (candidates arrive name-sorted).
	sort.SliceStable(cand, func(i, j int) bool {
		return scoreBeacon(cand[i]) > scoreBeacon(cand[j])
	})

	// Greedily accept candidates, enforcing angular diversity once two
	// beacons are in: every pair of accepted beacons must subtend more
	// than MinAngleSep at the candidate's position
	minSep := ToRad(opt.MinAngleSep)
	sel := make([]*ObsB, 0, opt.MaxBeacons)
	for _, c := range cand {
		if len(sel) >= opt.MaxBeacons {
			break
		}
		if len(sel) >= 2 && !diverseEnough(c, sel, minSep) {
			PrintD(3, "\t%s: rejected, near-collinear geometry\n", c.ID)
			continue
		}
		sel = append(sel, c)
	}

	PrintD(2, "\tbeacons: %d / %d\n", len(sel), len(obse.DatB))

	// Insufficient data if fewer than 2 valid beacons remain
	if len(sel) < 2 {
		return ErrInsufficientBeacons
	}

	rslt.sel = sel
	rslt.Beacons = make([]BeaconID, len(sel))
	for i, b := range sel {
		rslt.Beacons[i] = b.ID
	}

	return nil
}

// diverseEnough reports whether every pair of accepted beacons subtends
// more than minSep at the candidate's position
func diverseEnough(c *ObsB, sel []*ObsB, minSep float64) bool {
	for i := 0; i < len(sel); i++ {
		for j := i + 1; j < len(sel); j++ {
			if AngleAt(c.Pos, sel[i].Pos, sel[j].Pos) <= minSep {
				return false
			}
		}
	}
	return true
}

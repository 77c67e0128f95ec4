// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package gobps

import "math"

// Blend weights for the refined distance. The measured distance comes from
// a more direct ranging technique, so it carries the larger weight.
const (
	SIG_DIST_WEIGHT = 0.3
	MEA_DIST_WEIGHT = 0.7
)

// RssiDist converts a signal strength reading to a distance estimate
// using the log-distance path loss model
// - dist = 10^((refRssi - rssi) / (10 * pathLoss))
// - An RSSI of exactly 0 is an invalid reading and yields the sentinel
//   distance DistSent.
func RssiDist(rssi, refRssi, pathLoss float64) float64 {
	if rssi == 0 {
		return DistSent
	}
	return math.Pow(10, (refRssi-rssi)/(10*pathLoss))
}

// RefineDist fuses the measured distance with the signal-derived distance
// estimate into the single distance used by the position solver
func RefineDist(obsb *ObsB, opt *PosOpt) float64 {
	ds := RssiDist(obsb.Rssi, opt.RefRssi, opt.PathLoss)
	return SIG_DIST_WEIGHT*ds + MEA_DIST_WEIGHT*obsb.Dist
}

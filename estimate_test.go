// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package gobps

import (
	"math"
	"testing"
)

// estSol builds a solved result by hand so the estimator can be
// exercised in isolation
func estSol(pos Vec3, readings ...*ObsB) *PosSol {
	rslt := NewPosSol()
	rslt.Pos = pos
	rslt.Method = MethodMultilat
	opt := NewPosOpt()
	for _, b := range readings {
		rslt.sel = append(rslt.sel, b)
		rslt.Beacons = append(rslt.Beacons, b.ID)
		rslt.RefDist[b.ID] = RefineDist(b, opt)
	}
	return rslt
}

func TestEstimateAccuracyShrinksWithQuality(t *testing.T) {
	pos := Vec3{X: 5, Y: 5}
	mk := func(rssi, acc float64) *PosSol {
		return estSol(pos,
			&ObsB{ID: "b01", Pos: Vec3{}, Rssi: rssi, Dist: pos.Norm(), Acc: acc},
			&ObsB{ID: "b02", Pos: Vec3{X: 10}, Rssi: rssi, Dist: pos.Dist(Vec3{X: 10}), Acc: acc},
			&ObsB{ID: "b03", Pos: Vec3{Y: 10}, Rssi: rssi, Dist: pos.Dist(Vec3{Y: 10}), Acc: acc},
		)
	}

	weak := mk(-85, 0.3)
	strong := mk(-55, 1.5)
	estimateQuality(weak)
	estimateQuality(strong)

	if strong.Acc >= weak.Acc {
		t.Errorf("accuracy %v for strong beacons, want smaller than %v for weak", strong.Acc, weak.Acc)
	}
}

func TestEstimateAccuracyFloor(t *testing.T) {
	pos := Vec3{X: 5, Y: 5}
	// Quality figures large enough to push the raw accuracy below the floor
	rslt := estSol(pos,
		&ObsB{ID: "b01", Pos: Vec3{}, Rssi: -10, Dist: pos.Norm(), Acc: 50},
		&ObsB{ID: "b02", Pos: Vec3{X: 10}, Rssi: -10, Dist: pos.Dist(Vec3{X: 10}), Acc: 50},
	)

	estimateQuality(rslt)
	if rslt.Acc != MIN_ACC_FIGURE {
		t.Errorf("accuracy = %v, want the floor %v", rslt.Acc, MIN_ACC_FIGURE)
	}
}

func TestEstimateConfidenceFromResiduals(t *testing.T) {
	pos := Vec3{X: 5, Y: 5}
	b := func(noise float64) []*ObsB {
		return []*ObsB{
			{ID: "b01", Pos: Vec3{}, Rssi: rssiFor(pos.Norm()), Dist: pos.Norm() + noise, Acc: 1},
			{ID: "b02", Pos: Vec3{X: 10}, Rssi: rssiFor(pos.Dist(Vec3{X: 10})), Dist: pos.Dist(Vec3{X: 10}) + noise, Acc: 1},
		}
	}

	// Zero residual pins confidence at the ceiling
	clean := estSol(pos, b(0)...)
	estimateQuality(clean)
	if math.Abs(clean.Conf-1.0) > 1e-9 {
		t.Errorf("confidence = %v, want 1.0 for a perfect fit", clean.Conf)
	}

	// A known residual maps linearly onto confidence. The measured
	// noise enters the refined distance with its 0.7 blend weight.
	noisy := estSol(pos, b(1)...)
	estimateQuality(noisy)
	want := 1.0 - 0.7/RES_CONF_SCALE
	if math.Abs(noisy.Conf-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", noisy.Conf, want)
	}
}

func TestEstimateCentroidPenalties(t *testing.T) {
	pos := Vec3{X: 5}
	readings := []*ObsB{
		{ID: "b01", Pos: Vec3{}, Rssi: rssiFor(5), Dist: 5, Acc: 1},
		{ID: "b02", Pos: Vec3{X: 10}, Rssi: rssiFor(5), Dist: 5, Acc: 1},
	}

	plain := estSol(pos, readings...)
	estimateQuality(plain)

	penalized := estSol(pos, readings...)
	penalized.Method = MethodCentroid
	estimateQuality(penalized)

	if math.Abs(penalized.Acc-plain.Acc*CENTROID_ACC_PEN) > 1e-9 {
		t.Errorf("accuracy = %v, want %v", penalized.Acc, plain.Acc*CENTROID_ACC_PEN)
	}
	if penalized.Conf > plain.Conf*CENTROID_CONF_PEN+1e-9 {
		t.Errorf("confidence = %v, want at most %v", penalized.Conf, plain.Conf*CENTROID_CONF_PEN)
	}
	if penalized.Conf < CENTROID_CONF_MIN-1e-12 {
		t.Errorf("confidence = %v, below the fallback floor %v", penalized.Conf, CENTROID_CONF_MIN)
	}
}

// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package gobps

// Quality figure bounds and penalties
const (
	MIN_ACC_FIGURE    = 0.5 // Accuracy floor [m]
	MIN_CONF          = 0.1 // Confidence floor
	RES_CONF_SCALE    = 2.0 // Mean residual [m] that drives confidence to zero before flooring
	CENTROID_ACC_PEN  = 2.0 // Accuracy penalty factor for the 2-beacon fallback
	CENTROID_CONF_PEN = 0.7 // Confidence discount factor for the 2-beacon fallback
	CENTROID_CONF_MIN = 0.3 // Confidence floor for the 2-beacon fallback
)

// estimateQuality annotates the solution with an accuracy figure derived
// from beacon quality, a confidence score derived from the residual fit,
// and the per-beacon residuals
// - acc = max(0.5, 5.0 / (avgQ * avgS)) where avgQ is the mean reported
//   accuracy quality and avgS the mean signal score
// - conf = clamp(1.0 - meanRes/2.0, 0.1, 1.0) where meanRes is the mean
//   absolute difference between refined distance and distance to the
//   final estimate
// - The centroid fallback doubles the accuracy figure and discounts the
//   confidence by 0.7 with a floor of 0.3
func estimateQuality(rslt *PosSol) {

	var sumQ, sumS, sumRes float64
	for _, b := range rslt.sel {
		res := rslt.RefDist[b.ID] - rslt.Pos.Dist(b.Pos)
		if res < 0 {
			res = -res
		}
		rslt.Res[b.ID] = res
		sumRes += res
		sumQ += b.Acc
		sumS += sigScore(b.Rssi)
	}
	n := float64(len(rslt.sel))
	avgQ := sumQ / n
	avgS := sumS / n
	meanRes := sumRes / n

	acc := MIN_ACC_FIGURE
	if avgQ > 0 && avgS > 0 {
		acc = 5.0 / (avgQ * avgS)
		if acc < MIN_ACC_FIGURE {
			acc = MIN_ACC_FIGURE
		}
	}
	conf := Clamp(1.0-meanRes/RES_CONF_SCALE, MIN_CONF, 1.0)

	if rslt.Method == MethodCentroid {
		acc *= CENTROID_ACC_PEN
		conf *= CENTROID_CONF_PEN
		if conf < CENTROID_CONF_MIN {
			conf = CENTROID_CONF_MIN
		}
	}

	rslt.Acc = acc
	rslt.Conf = conf
}

// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

// Implements the indoor position calculation from fixed-beacon readings.

package gobps

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// ErrInsufficientBeacons signals that fewer than two eligible beacons
// survived filtering and no position can be calculated for the epoch.
// The caller should fall back to a prior known position or wait for the
// next scan.
var ErrInsufficientBeacons = errors.New("insufficient valid beacons")

// Calculation constants for position processing
const (
	MAX_LOOP_COUNT        = 100  // Maximum number of iteration loops
	CONVERGENCE_THRESHOLD = 0.01 // Convergence threshold [m]
	MIN_PRED_DIST         = 1e-9 // Skip a Jacobian row when the predicted distance falls below this [m]
)

// Method identifies the strategy the solver dispatched to
type Method int

const (
	MethodCentroid Method = iota // Weighted centroid of 2 beacons
	MethodTrilat                 // Closed-form trilateration of 3 beacons
	MethodMultilat               // Iterative multilateration of 4+ beacons
)

func (m Method) String() string {
	switch m {
	case MethodCentroid:
		return "CENTROID"
	case MethodTrilat:
		return "TRILAT"
	case MethodMultilat:
		return "MULTILAT"
	default:
		return "UNKNOWN!"
	}
}

// PosOpt contains options and parameters for position calculation
// These parameters control beacon selection, the propagation model and
// the iterative solver
type PosOpt struct {
	MinBeacons  int           // Beacon count for closed-form trilateration; below it the centroid fallback applies
	MaxBeacons  int           // Cap for the multilateration candidate set
	RefRssi     float64       // Calibrated signal strength at 1 m [dBm]
	PathLoss    float64       // Log-distance path loss exponent
	MaxLoop     int           // Multilateration iteration cap
	ConvThres   float64       // Iteration stop condition [m]
	MinAngleSep float64       // Angular diversity requirement between selected beacons [deg]
	RssiMask    float64       // Signal strength eligibility cutoff [dBm]
	MaxDist     float64       // Measured distance eligibility cutoff [m]
	MinAcc      float64       // Reported accuracy eligibility cutoff
	MaxAge      time.Duration // Discard readings older than this relative to the epoch. 0 disables the staleness filter.
	ExBeacons   []BeaconID    // List of beacons to exclude from calculation
}

// NewPosOpt creates a new PosOpt with default values
// Default values are tuned for typical indoor BLE deployments
func NewPosOpt() *PosOpt {
	return &PosOpt{
		MinBeacons:  3,                     // Trilateration needs exactly 3
		MaxBeacons:  10,                    // Multilateration candidate cap
		RefRssi:     RssiRef,               // -59 dBm at 1 m
		PathLoss:    PathLoss,              // Free space propagation
		MaxLoop:     MAX_LOOP_COUNT,        // Iteration cap
		ConvThres:   CONVERGENCE_THRESHOLD, // 1 cm position update
		MinAngleSep: 30,                    // Reject near-collinear geometry [deg]
		RssiMask:    RssiMask,              // Eligibility cutoff
		MaxDist:     MaxDist,               // Eligibility cutoff
		MinAcc:      MinAcc,                // Eligibility cutoff
		MaxAge:      0,                     // Staleness filter off
		ExBeacons:   []BeaconID{},          // No excluded beacons
	}
}

// PosSol contains the results of one position calculation
// It holds the position estimate, quality metrics and per-beacon
// diagnostics
type PosSol struct {
	Pos     Vec3                 // Estimated receiver position
	Time    time.Time            // Epoch time of the solved snapshot
	Acc     float64              // Estimated positional error magnitude [m] (lower is better)
	Conf    float64              // Confidence score in [0.1, 1.0] (higher is better)
	Method  Method               // Strategy the solver dispatched to
	Beacons []BeaconID           // Contributing beacons in selection order
	RefDist map[BeaconID]float64 // Refined distances used by the solver
	Res     map[BeaconID]float64 // Final residuals against the estimate
	Dop     map[string]float64   // Dilution of precision values: 'pdop', 'hdop', 'vdop'
	Loops   int                  // Iterations used (0 for closed-form methods)

	sel []*ObsB // Selected readings, in selection order
}

// NewPosSol creates a new empty PosSol structure with initialized maps
func NewPosSol() *PosSol {
	return &PosSol{
		Beacons: []BeaconID{},
		RefDist: map[BeaconID]float64{},
		Res:     map[BeaconID]float64{},
		Dop: map[string]float64{
			"pdop": 0,
			"hdop": 0,
			"vdop": 0,
		},
	}
}

// CalcPos calculates the receiver position from one epoch of beacon
// readings. It selects a quality subset, dispatches to the strategy the
// set size allows and annotates the estimate with quality metrics.
//
// Parameters:
//   - obse: Single epoch of beacon readings with surveyed positions attached
//   - opt: Calculation options and parameters
//
// Returns:
//   - PosSol: Position solution with accuracy, confidence and diagnostics
//   - error: ErrInsufficientBeacons when fewer than 2 beacons survive
//     filtering; any other setup error encountered
//
// The calculation is stateless. Concurrent calls are safe as long as each
// call gets its own ObsE snapshot.
func CalcPos(obse *ObsE, opt *PosOpt) (*PosSol, error) {

	// Initialize result structure
	rslt := NewPosSol()
	rslt.Time = obse.Time

	// Select valid beacons for calculation
	if err := selectValidBeacons(obse, opt, rslt); err != nil {
		return nil, err
	}

	// Refine the distance of each selected beacon
	for _, b := range rslt.sel {
		rslt.RefDist[b.ID] = RefineDist(b, opt)
	}

	// Dispatch on the selected beacon count
	switch n := len(rslt.sel); {
	case n < opt.MinBeacons:
		solveCentroid(rslt)
	case n == opt.MinBeacons:
		solveTrilat(rslt)
	default:
		solveMultilat(opt, rslt)
	}

	// Annotate with accuracy, confidence and residuals
	estimateQuality(rslt)

	// Dilution of precision from the final geometry
	calcDop(rslt)

	PrintD(2, "\t%s: pos= %s, acc=%.2f, conf=%.2f, loops=%d\n",
		rslt.Method, rslt.Pos.String(), rslt.Acc, rslt.Conf, rslt.Loops)

	return rslt, nil
}

// solveCentroid estimates the position as the weighted average of two
// beacon positions. Nearer and stronger beacons carry more weight. The
// quality penalties for this fallback are applied in estimateQuality.
func solveCentroid(rslt *PosSol) {
	var pos Vec3
	var wsum float64
	for _, b := range rslt.sel {
		w := 1 / (rslt.RefDist[b.ID] + 0.1) / (math.Abs(b.Rssi) + 1)
		pos = pos.Add(b.Pos.Scale(w))
		wsum += w
	}
	if wsum > 0 {
		pos = pos.Scale(1 / wsum)
	}
	rslt.Pos = pos
	rslt.Method = MethodCentroid
}

// solveTrilat solves the classic three-circle intersection in a local 2D
// frame anchored at the first beacon. The x axis points toward the second
// beacon, the y axis is the orthogonalized offset of the third. The
// result keeps the first beacon's z (flat floor assumption).
func solveTrilat(rslt *PosSol) {
	b1, b2, b3 := rslt.sel[0], rslt.sel[1], rslt.sel[2]
	r1 := rslt.RefDist[b1.ID]
	r2 := rslt.RefDist[b2.ID]
	r3 := rslt.RefDist[b3.ID]

	ex := b2.Pos.Sub(b1.Pos).Unit()
	d := b1.Pos.Dist(b2.Pos)
	v3 := b3.Pos.Sub(b1.Pos)
	i := ex.Dot(v3)
	ey := v3.Sub(ex.Scale(i)).Unit()
	j := ey.Dot(v3)

	// Coincident or collinear anchors leave the frame degenerate. The
	// selector normally prevents this; fall back to the centroid method.
	if d < MIN_PRED_DIST || math.Abs(j) < MIN_PRED_DIST {
		PrintD(2, "\tdegenerate trilateration frame, falling back to centroid\n")
		solveCentroid(rslt)
		return
	}

	x := (SQ(r1) - SQ(r2) + SQ(d)) / (2 * d)
	y := (SQ(r1)-SQ(r3)+SQ(i)+SQ(j))/(2*j) - i/j*x

	pos := b1.Pos.Add(ex.Scale(x)).Add(ey.Scale(y))
	pos.Z = b1.Pos.Z
	rslt.Pos = pos
	rslt.Method = MethodTrilat
}

// solveMultilat runs the iterative least squares adjustment for 4 or
// more beacons, starting from the beacon centroid. Each loop linearizes
// the distance residuals around the current estimate, solves the normal
// equations for a position correction and applies it. A rank deficient
// loop adjusts the horizontal components only, holding z.
func solveMultilat(opt *PosOpt, rslt *PosSol) {
	pts := make([]Vec3, len(rslt.sel))
	for k, b := range rslt.sel {
		pts[k] = b.Pos
	}
	pos := Centroid(pts)

	gdat := make([]float64, 0, len(rslt.sel)*3)
	g2dat := make([]float64, 0, len(rslt.sel)*2)
	ddat := make([]float64, 0, len(rslt.sel))

	for loop := 1; loop <= opt.MaxLoop; loop++ {

		// ---------------------------------
		// Setup equations
		// ---------------------------------
		gdat = gdat[:0]
		ddat = ddat[:0]
		for _, b := range rslt.sel {
			pred := pos.Dist(b.Pos)
			if pred < MIN_PRED_DIST {
				PrintD(3, "\t%s: predicted distance ~0, row skipped\n", b.ID)
				continue
			}
			row := pos.Sub(b.Pos).Scale(2 / pred)
			gdat = append(gdat, row.X, row.Y, row.Z)
			ddat = append(ddat, pred-rslt.RefDist[b.ID])
		}
		n := len(ddat)
		if n == 0 {
			break
		}

		// ---------------------------------
		// Solve equations (least squares)
		// ---------------------------------
		G := mat.NewDense(n, 3, gdat)
		dr := mat.NewVecDense(n, ddat)
		if DBG_ >= 4 {
			PrintA("G=\n")
			PrintMat(G)
			PrintA("dr=\n")
			PrintMat(dr)
		}

		dx, ok := SolveNormal(G, dr)
		corr := Vec3{X: dx[0], Y: dx[1], Z: dx[2]}
		if !ok {
			// Ceiling-mounted beacons share one z plane. Whenever the
			// estimate sits in that plane the Jacobian z column vanishes
			// and the 3-parameter normal matrix is singular. Hold z and
			// adjust the horizontal components from the reduced system.
			PrintD(2, "\tLOOP %d: singular normal equations, holding z\n", loop)
			g2dat = g2dat[:0]
			for k := 0; k < n; k++ {
				g2dat = append(g2dat, gdat[3*k], gdat[3*k+1])
			}
			dx2, ok2 := SolveNormal(mat.NewDense(n, 2, g2dat), dr)
			if !ok2 {
				// No adjustable direction left. Keep the current
				// estimate; the confidence score reflects the fit.
				PrintD(2, "\tLOOP %d: degenerate geometry, no correction\n", loop)
				rslt.Loops = loop
				break
			}
			corr = Vec3{X: dx2[0], Y: dx2[1]}
		}

		pos = pos.Sub(corr)
		rslt.Loops = loop

		PrintD(3, "\tLOOP %d: pos= %s, |dx|=%f\n", loop, pos.String(), corr.Norm())

		// Check convergence (position update below threshold)
		if corr.Norm() < opt.ConvThres {
			break
		}

		// Reaching the loop cap is not an error: the last estimate is
		// returned and the confidence score reflects the fit
	}

	rslt.Pos = pos
	rslt.Method = MethodMultilat
}

// calcDop calculates dilution of precision values from the unit
// direction geometry at the final estimate. Left at zero when the
// geometry matrix cannot be inverted.
func calcDop(rslt *PosSol) {
	n := len(rslt.sel)
	if n < 3 {
		return
	}
	gdat := make([]float64, 0, n*3)
	for _, b := range rslt.sel {
		d := rslt.Pos.Dist(b.Pos)
		if d < MIN_PRED_DIST {
			continue
		}
		u := rslt.Pos.Sub(b.Pos).Scale(1 / d)
		gdat = append(gdat, u.X, u.Y, u.Z)
	}
	if len(gdat) < 9 {
		return
	}
	G := mat.NewDense(len(gdat)/3, 3, gdat)
	var GtG mat.Dense
	GtG.Mul(G.T(), G)
	var cov mat.Dense
	if err := cov.Inverse(&GtG); err != nil {
		PrintD(3, "\tfailed to calculate inverse of matrix, G^T G\n")
		return
	}
	rslt.Dop["pdop"] = math.Sqrt(cov.At(0, 0) + cov.At(1, 1) + cov.At(2, 2))
	rslt.Dop["hdop"] = math.Sqrt(cov.At(0, 0) + cov.At(1, 1))
	rslt.Dop["vdop"] = math.Sqrt(cov.At(2, 2))
}

// Q returns the quality code written to pos file output. Lower is a
// richer method.
func (m Method) Q() int {
	switch m {
	case MethodMultilat:
		return 1
	case MethodTrilat:
		return 2
	default:
		return 5
	}
}

// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package gobps

const (
	PI       = 3.1415926535897932 // Pi
	RssiRef  = -59.0              // Calibrated signal strength at 1 m [dBm]
	PathLoss = 2.0                // Log-distance path loss exponent
	RssiMask = -90.0              // Signal strength eligibility cutoff [dBm]
	MaxDist  = 50.0               // Measured distance eligibility cutoff [m]
	MinAcc   = 0.1                // Reported accuracy eligibility cutoff
	DistSent = 1000.0             // Sentinel distance for an invalid (zero) RSSI reading [m]
)

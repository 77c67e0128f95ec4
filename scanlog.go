// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

// Reader for beacon scan log files.
//
// A scan log is a whitespace separated text file with one reading per line:
//
//	# time                    id    rssi    dist   acc
//	2026-08-31T10:00:00.000   b01   -62.5   4.20   0.85
//	2026-08-31T10:00:00.000   b02   -70.0   8.10   0.60
//
// Lines starting with '#' are comments. Consecutive lines sharing a
// timestamp form one epoch (one scan snapshot). Times are UTC.

package gobps

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Timestamp layout used in scan logs
const SCANLOG_TIME = "2006-01-02T15:04:05.000"

// Read a scan log into an Obs container
func ReadScanLog(r io.Reader) (*Obs, error) {

	obs := &Obs{DatE: []*ObsE{}}
	var cur *ObsE

	scanner := bufio.NewScanner(r)
	ln := 0
	for scanner.Scan() {
		ln++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		f := strings.Fields(line)
		if len(f) != 5 {
			return nil, fmt.Errorf("line %d: expected 5 fields, got %d", ln, len(f))
		}

		t, err := time.ParseInLocation(SCANLOG_TIME, f[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time %q: %w", ln, f[0], err)
		}
		rssi, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad rssi %q: %w", ln, f[2], err)
		}
		dist, err := strconv.ParseFloat(f[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad dist %q: %w", ln, f[3], err)
		}
		acc, err := strconv.ParseFloat(f[4], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad acc %q: %w", ln, f[4], err)
		}

		// Start a new epoch when the timestamp changes
		if cur == nil || !cur.Time.Equal(t) {
			cur = NewObsE(t)
			obs.DatE = append(obs.DatE, cur)
		}

		id := BeaconID(f[1])
		cur.DatB[id] = &ObsB{
			ID:   id,
			Rssi: rssi,
			Dist: dist,
			Acc:  acc,
			Time: t,
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	PrintD(2, "\tscan log: %d epochs\n", len(obs.DatE))

	return obs, nil
}

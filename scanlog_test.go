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

const sampleLog = `# gobps scan log
# time                    id    rssi    dist   acc
2026-08-31T10:00:00.000   b01   -62.5   4.20   0.85
2026-08-31T10:00:00.000   b02   -70.0   8.10   0.60

2026-08-31T10:00:02.000   b01   -63.0   4.30   0.85
2026-08-31T10:00:02.000   b02   -69.5   7.90   0.60
2026-08-31T10:00:02.000   b03   -80.0  15.00   0.40
`

func TestReadScanLog(t *testing.T) {
	obs, err := ReadScanLog(strings.NewReader(sampleLog))
	if err != nil {
		t.Fatalf("ReadScanLog: %v", err)
	}

	if len(obs.DatE) != 2 {
		t.Fatalf("epochs = %d, want 2", len(obs.DatE))
	}

	e1 := obs.DatE[0]
	wantT := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	if !e1.Time.Equal(wantT) {
		t.Errorf("epoch 1 time = %s, want %s", e1.Time, wantT)
	}
	if len(e1.DatB) != 2 {
		t.Errorf("epoch 1 readings = %d, want 2", len(e1.DatB))
	}
	b01 := e1.DatB["b01"]
	if b01 == nil {
		t.Fatal("epoch 1 missing b01")
	}
	if b01.Rssi != -62.5 || b01.Dist != 4.2 || b01.Acc != 0.85 {
		t.Errorf("b01 = %+v", b01)
	}
	if !b01.Time.Equal(wantT) {
		t.Errorf("b01 time = %s, want %s", b01.Time, wantT)
	}

	e2 := obs.DatE[1]
	if len(e2.DatB) != 3 {
		t.Errorf("epoch 2 readings = %d, want 3", len(e2.DatB))
	}
}

func TestReadScanLogErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{
			name: "wrong field count",
			line: "2026-08-31T10:00:00.000 b01 -62.5 4.20",
		},
		{
			name: "bad time",
			line: "yesterday b01 -62.5 4.20 0.85",
		},
		{
			name: "bad rssi",
			line: "2026-08-31T10:00:00.000 b01 strong 4.20 0.85",
		},
		{
			name: "bad dist",
			line: "2026-08-31T10:00:00.000 b01 -62.5 close 0.85",
		},
		{
			name: "bad acc",
			line: "2026-08-31T10:00:00.000 b01 -62.5 4.20 good",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadScanLog(strings.NewReader(tt.line + "\n")); err == nil {
				t.Error("ReadScanLog accepted a malformed line")
			}
		})
	}
}

func TestReadScanLogEmpty(t *testing.T) {
	obs, err := ReadScanLog(strings.NewReader("# only comments\n\n"))
	if err != nil {
		t.Fatalf("ReadScanLog: %v", err)
	}
	if len(obs.DatE) != 0 {
		t.Errorf("epochs = %d, want 0", len(obs.DatE))
	}
}

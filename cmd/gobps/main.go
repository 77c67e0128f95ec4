// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	m "github.com/ktkhs/gobps"
)

func main() {

	// Parse command line arguments
	args, err := parseArgs()
	if err != nil {
		flag.Usage()
		os.Exit(1)
	}

	// Run the main application
	if err := runApplication(args); err != nil {
		m.PrintE(err)
		os.Exit(1)
	}
}

// Main application processing
func runApplication(args cmdOpt) error {

	// Load input files
	site, obs, err := loadInputFiles(args)
	if err != nil {
		return fmt.Errorf("failed to load input files: %w", err)
	}

	if m.DBG_ >= 1 {
		m.PrintA("--- scan data (%s)---\n", filepath.Base(args.logFn))
		fmt.Println(obs)
	}

	// Prepare output file
	pos, err := prepareOutput(args)
	if err != nil {
		return fmt.Errorf("failed to prepare output: %w", err)
	}
	defer closeOutput(pos)

	// Print header
	if !args.noPosHeader {
		printPosHeader(pos, os.Args[0], args.siteFn, args.logFn, site, obs)
	}

	// Process epochs
	return processEpochs(args, site, obs, pos)
}

// Load input files
func loadInputFiles(args cmdOpt) (*m.Site, *m.Obs, error) {

	site, err := m.LoadSite(args.siteFn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read site file: %w", err)
	}

	obs, err := readScanLog(args.logFn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read scan log: %w", err)
	}

	return site, obs, nil
}

// Prepare output file
func prepareOutput(args cmdOpt) (io.WriteCloser, error) {

	// Use stdout if no output file is specified
	if len(args.posFn) == 0 {
		return &nopCloser{os.Stdout}, nil
	}

	// Create output file
	posf, err := os.Create(args.posFn)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return posf, nil
}

// Close output file
func closeOutput(pos io.WriteCloser) {
	if pos != nil {
		pos.Close()
	}
}

// Process epochs
func processEpochs(args cmdOpt, site *m.Site, obs *m.Obs, pos io.Writer) error {

	opt := setPosOpt(&args)
	site.Apply(opt)

	// Process each epoch
	for _, obse := range obs.DatE {
		if err := processSingleEpoch(args, obse, site, opt, pos); err != nil {
			m.PrintB(obse.Time, "Error processing epoch: %s\n", err.Error())
			continue
		}
	}

	return nil
}

// Process single epoch
func processSingleEpoch(args cmdOpt, obse *m.ObsE, site *m.Site, opt *m.PosOpt, pos io.Writer) error {

	// Filter epochs
	if !shouldProcessEpoch(obse, args) {
		return nil
	}

	m.PrintD(2, "\n>>> %s\n", obse.Time.UTC())

	// Attach surveyed beacon positions
	if n := site.Join(obse); n == 0 {
		return fmt.Errorf("no surveyed beacons in epoch")
	}

	// Calculate position
	sol, err := m.CalcPos(obse, opt)
	if err != nil {
		if errors.Is(err, m.ErrInsufficientBeacons) {
			// Cannot position on this snapshot. Skip the epoch, the
			// caller holds the previous fix.
			m.PrintD(1, "\t%s: %s\n", obse.Time.UTC().Format("15:04:05.000"), err.Error())
			return nil
		}
		return fmt.Errorf("position calculation failed: %w", err)
	}

	// Output results
	printPos(sol, pos)

	return nil
}

// Filter epochs
func shouldProcessEpoch(obse *m.ObsE, args cmdOpt) bool {

	// Skip epochs before processing start time
	if obse.Time.Before(args.ts) {
		return false
	}

	// Stop after processing end time
	if obse.Time.After(args.te) {
		return false
	}

	// Skip epochs that are not divisible by the specified time interval
	if args.ti > 0 && obse.Time.Unix()%int64(args.ti) != 0 {
		return false
	}

	return true
}

// nopCloser - WriteCloser that ignores close operations
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// Structure to hold command line argument information
type cmdOpt struct {
	siteFn      string
	logFn       string
	posFn       string
	ts, te      time.Time
	ti          int
	noPosHeader bool
	exBeacons   m.BeaconVar
	rssiMask    float64
	maxDist     float64
	minAcc      float64
	maxBeacons  int
	minAngleSep float64
	maxLoop     int
	convThres   float64
	maxAge      time.Duration
}

// Parse command line arguments
func parseArgs() (a cmdOpt, err error) {
	flag.Usage = func() {
		m.PrintA(`
[Usage]
	%s [Options] site.yaml scan.log

[Options]
`, filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	pOpt := m.NewPosOpt()
	var ts_, te_ m.TimeStr
	flag.TextVar(&ts_, "ts", m.NewTimeStr(time.Time{}), "Start epoch specification. Enclose in quotes like -ts \"2026/01/01 00:00:00\"")
	flag.TextVar(&te_, "te", m.NewTimeStr(time.Now().UTC()), "End epoch specification. Enclose in quotes like -te \"2026/01/02 00:00:00\". This epoch is also included.")
	flag.IntVar(&a.ti, "ti", 0, "Calculation interval. Calculation is executed when the epoch's second value is divisible by the specified value. Integer only. Omit or set to 0 to calculate all epochs.")
	flag.StringVar(&a.posFn, "o", "", "Output pos file path. If not specified, output to stdout.")
	flag.BoolVar(&a.noPosHeader, "nh", false, "Do not output header section of pos file.")
	flag.Var(&a.exBeacons, "ex", "List of beacons to exclude. Comma-separated beacon names without spaces like b02,b14.")
	flag.Float64Var(&a.rssiMask, "cn", pOpt.RssiMask, "Signal strength eligibility cutoff [dBm]. Readings at or below are discarded.")
	flag.Float64Var(&a.maxDist, "md", pOpt.MaxDist, "Measured distance eligibility cutoff [m]. Readings at or beyond are discarded.")
	flag.Float64Var(&a.minAcc, "ma", pOpt.MinAcc, "Reported accuracy eligibility cutoff. Readings at or below are discarded.")
	flag.IntVar(&a.maxBeacons, "n", pOpt.MaxBeacons, "Maximum number of beacons used per epoch.")
	flag.Float64Var(&a.minAngleSep, "s", pOpt.MinAngleSep, "Minimum angular separation between selected beacons [deg].")
	flag.IntVar(&a.maxLoop, "i", pOpt.MaxLoop, "Maximum number of multilateration iterations.")
	flag.Float64Var(&a.convThres, "c", pOpt.ConvThres, "Multilateration convergence threshold [m].")
	flag.DurationVar(&a.maxAge, "age", pOpt.MaxAge, "Discard readings older than this relative to the epoch, like 5s. 0 disables the staleness filter.")
	var dbg int
	flag.IntVar(&dbg, "x", 0, "Debug information display. Specify level value. 0(OFF), 1(display), 2(detailed display), 3(more detailed), 4(most detailed)")
	flag.Parse()
	if flag.NArg() != 2 {
		return a, fmt.Errorf("too less or many arguments")
	}
	a.siteFn = flag.Arg(0)
	a.logFn = flag.Arg(1)
	a.ts = time.Time(ts_)
	a.te = time.Time(te_)
	m.DBG_ = dbg
	return
}

// Read scan log file
func readScanLog(fn string) (*m.Obs, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	obs, err := m.ReadScanLog(f)
	if err != nil {
		return nil, err
	}
	return obs, nil
}

// Print pos file header
func printPosHeader(pos io.Writer, cmd, siteFn, logFn string, site *m.Site, obs *m.Obs) {
	fmt.Fprintf(pos, "%% program   : %s\n", filepath.Base(cmd))
	fmt.Fprintf(pos, "%% inp file  : %s\n", siteFn)
	fmt.Fprintf(pos, "%% inp file  : %s\n", logFn)
	fmt.Fprintf(pos, "%% site      : %s (%d beacons)\n", site.Name, len(site.Beacons))
	if len(obs.DatE) > 0 {
		fmt.Fprintf(pos, "%% obs start : %s\n", obs.DatE[0].Time.UTC().Format("2006/01/02 15:04:05.000"))
		fmt.Fprintf(pos, "%% obs end   : %s\n", obs.DatE[len(obs.DatE)-1].Time.UTC().Format("2006/01/02 15:04:05.000"))
	}
	fmt.Fprintf(pos, "%%  UTC                        x(m)       y(m)       z(m)   Q  nb     acc(m)       conf  loops       pdop\n")
}

// Output POS file
func printPos(sol *m.PosSol, pos io.Writer) {
	fmt.Fprintf(pos, "%s %10.4f %10.4f %10.4f %3d %3d %10.3f %10.3f %6d %10.3f\n",
		sol.Time.UTC().Format("2006/01/02 15:04:05.000"),
		sol.Pos.X, sol.Pos.Y, sol.Pos.Z,
		sol.Method.Q(), len(sol.Beacons),
		sol.Acc, sol.Conf, sol.Loops, sol.Dop["pdop"])
}

func setPosOpt(args *cmdOpt) *m.PosOpt {
	opt := m.NewPosOpt()
	opt.ExBeacons = args.exBeacons
	opt.RssiMask = args.rssiMask
	opt.MaxDist = args.maxDist
	opt.MinAcc = args.minAcc
	opt.MaxBeacons = args.maxBeacons
	opt.MinAngleSep = args.minAngleSep
	opt.MaxLoop = args.maxLoop
	opt.ConvThres = args.convThres
	opt.MaxAge = args.maxAge
	return opt
}

// Copyright (c) 2026 the gobps authors. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the authors.
// The authors accept no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.8.31
//

package gobps

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Surveyed position of one fixed beacon
type SiteBeacon struct {
	ID BeaconID `yaml:"id"`
	X  float64  `yaml:"x"`
	Y  float64  `yaml:"y"`
	Z  float64  `yaml:"z"`
}

// Site holds the beacon survey and optional calibration overrides for
// one deployment
type Site struct {
	Name     string       `yaml:"name"`
	RefRssi  *float64     `yaml:"ref_rssi,omitempty"`  // Calibrated RSSI at 1 m [dBm]
	PathLoss *float64     `yaml:"path_loss,omitempty"` // Path loss exponent
	Beacons  []SiteBeacon `yaml:"beacons"`
}

// LoadSite loads a site survey from a YAML file
func LoadSite(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("site file not found: %s", path)
		}
		return nil, fmt.Errorf("reading site file: %w", err)
	}

	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("parsing site YAML: %w", err)
	}

	// Validate required fields
	if len(site.Beacons) == 0 {
		return nil, fmt.Errorf("at least one beacon must be surveyed")
	}
	seen := map[BeaconID]bool{}
	for i, b := range site.Beacons {
		if b.ID == "" {
			return nil, fmt.Errorf("beacon[%d].id is required", i)
		}
		if seen[b.ID] {
			return nil, fmt.Errorf("beacon[%d].id %q is duplicated", i, b.ID)
		}
		seen[b.ID] = true
	}
	if site.PathLoss != nil && *site.PathLoss <= 0 {
		return nil, fmt.Errorf("path_loss must be positive")
	}

	return &site, nil
}

// SaveSite saves the site survey to a YAML file
func SaveSite(path string, site *Site) error {
	data, err := yaml.Marshal(site)
	if err != nil {
		return fmt.Errorf("marshaling site YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing site file: %w", err)
	}

	return nil
}

// Pos returns the surveyed position of the beacon with the given name
func (s *Site) Pos(id BeaconID) (Vec3, bool) {
	for _, b := range s.Beacons {
		if b.ID == id {
			return NewVec3(b.X, b.Y, b.Z), true
		}
	}
	return Vec3{}, false
}

// Join attaches surveyed positions to an epoch's readings. Readings for
// beacons missing from the survey are dropped. Returns the number of
// readings kept.
func (s *Site) Join(obse *ObsE) int {
	for id, obsb := range obse.DatB {
		pos, ok := s.Pos(id)
		if !ok {
			PrintD(3, "\t%s: not in site survey\n", id)
			delete(obse.DatB, id)
			continue
		}
		obsb.Pos = pos
	}
	return len(obse.DatB)
}

// Apply copies the site calibration overrides onto the given options
func (s *Site) Apply(opt *PosOpt) {
	if s.RefRssi != nil {
		opt.RefRssi = *s.RefRssi
	}
	if s.PathLoss != nil {
		opt.PathLoss = *s.PathLoss
	}
}

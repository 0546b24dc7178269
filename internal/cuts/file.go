package cuts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileCuts mirrors Cuts with optional fields so a YAML cuts file can
// override a subset of thresholds and leave the rest at their defaults.
type fileCuts struct {
	StarFlagCut   *bool    `yaml:"starflag_cut"`
	ASPCAPFlagCut *bool    `yaml:"aspcapflag_cut"`
	VScatterMax   *float64 `yaml:"vscatter_max"`
	TeffMin       *float64 `yaml:"teff_min"`
	TeffMax       *float64 `yaml:"teff_max"`
	FeHMin        *float64 `yaml:"feh_min"`
	SNRMin        *float64 `yaml:"snr_min"`
	SNRMax        *float64 `yaml:"snr_max"`
	RequireLogG   *bool    `yaml:"require_logg"`
	LocationIDMin *int64   `yaml:"location_id_min"`
}

// LoadFile reads a YAML cuts file and applies its set fields on top of base.
// The merged configuration is validated before it is returned.
func LoadFile(path string, base Cuts) (Cuts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Cuts{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var f fileCuts
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Cuts{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	merged := base
	if f.StarFlagCut != nil {
		merged.StarFlagCut = *f.StarFlagCut
	}
	if f.ASPCAPFlagCut != nil {
		merged.ASPCAPFlagCut = *f.ASPCAPFlagCut
	}
	if f.VScatterMax != nil {
		merged.VScatterMax = *f.VScatterMax
	}
	if f.TeffMin != nil {
		merged.TeffMin = *f.TeffMin
	}
	if f.TeffMax != nil {
		merged.TeffMax = *f.TeffMax
	}
	if f.FeHMin != nil {
		merged.FeHMin = *f.FeHMin
	}
	if f.SNRMin != nil {
		merged.SNRMin = *f.SNRMin
	}
	if f.SNRMax != nil {
		merged.SNRMax = *f.SNRMax
	}
	if f.RequireLogG != nil {
		merged.RequireLogG = *f.RequireLogG
	}
	if f.LocationIDMin != nil {
		merged.LocationIDMin = *f.LocationIDMin
	}

	if err := merged.Validate(); err != nil {
		return Cuts{}, fmt.Errorf("invalid cuts in %s: %w", path, err)
	}
	return merged, nil
}

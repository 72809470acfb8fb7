package config

import "strings"

// RiskProfile is a named, versioned pair of risk-band thresholds.
// Changing the profile moves listings between HIGH, MEDIUM and LOW, so the
// active profile is reported alongside every search result.
type RiskProfile struct {
	Name   string
	High   float64
	Medium float64
}

// DefaultProfile is the profile used when RISK_PROFILE is unset or unknown.
const DefaultProfile = "v2"

var profiles = map[string]RiskProfile{
	"v1": {Name: "v1", High: 0.60, Medium: 0.30},
	"v2": {Name: "v2", High: 0.55, Medium: 0.25},
}

// ProfileByName returns the named profile, falling back to DefaultProfile.
func ProfileByName(name string) RiskProfile {
	if p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return profiles[DefaultProfile]
}

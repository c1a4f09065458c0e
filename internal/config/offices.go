package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/validator"
	"gopkg.in/yaml.v3"
)

type officesFile struct {
	Offices []attendance.Office `yaml:"offices"`
}

// LoadOffices reads the geofence reference points from a YAML file:
//
//	offices:
//	  - name: HQ
//	    latitude: -6.2088
//	    longitude: 106.8456
//	    radius_meters: 150
func LoadOffices(path string) ([]attendance.Office, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read offices file: %w", err)
	}
	return ParseOffices(raw)
}

func ParseOffices(raw []byte) ([]attendance.Office, error) {
	var file officesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse offices file: %w", err)
	}

	var errs []error
	for i, o := range file.Offices {
		if strings.TrimSpace(o.Name) == "" {
			errs = append(errs, fmt.Errorf("office %d: name is required", i))
		}
		if !validator.IsValidLatitude(o.Latitude) || !validator.IsValidLongitude(o.Longitude) {
			errs = append(errs, fmt.Errorf("office %d: coordinates out of range", i))
		}
		if o.RadiusMeters <= 0 {
			errs = append(errs, fmt.Errorf("office %d: radius_meters must be positive", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return file.Offices, nil
}

// Package version parses gateway API versions and builds the versioned API
// base path ("/api/v8") the transport talks to.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultMajor is the API major version used when none is configured or
// discovered.
const DefaultMajor uint16 = 8

// DefaultBasePrefix is the API root advertised by gateways in api_base_url.
const DefaultBasePrefix = "/api/"

// APIVersion represents a parsed "major.minor" API version.
type APIVersion struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string as reported by /api_version.
func Parse(s string) (APIVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return APIVersion{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return APIVersion{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return APIVersion{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return APIVersion{Major: uint16(major), Minor: uint16(minor)}, nil
}

// String returns the version as "major.minor".
func (v APIVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ParseMajor accepts the forms users put in configuration: "v8", "8" or "8.2".
func ParseMajor(s string) (uint16, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty API version")
	}
	if strings.Contains(s, ".") {
		v, err := Parse(strings.TrimPrefix(s, "v"))
		if err != nil {
			return 0, err
		}
		return v.Major, nil
	}

	major, err := strconv.ParseUint(strings.TrimPrefix(s, "v"), 10, 16)
	if err != nil || major == 0 {
		return 0, fmt.Errorf("invalid API version %q", s)
	}
	return uint16(major), nil
}

// BasePath returns the API base path for a major version: "/api/v<major>".
func BasePath(major uint16) string {
	return joinBase(DefaultBasePrefix, major)
}

func joinBase(prefix string, major uint16) string {
	if prefix == "" {
		prefix = DefaultBasePrefix
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%sv%d", prefix, major)
}

// Info is the unauthenticated device description served at /api_version.
type Info struct {
	UID            string `json:"uid"`
	DeviceName     string `json:"device_name"`
	DeviceType     string `json:"device_type"`
	BoxModel       string `json:"box_model"`
	BoxModelName   string `json:"box_model_name"`
	APIVersion     string `json:"api_version"`
	APIBaseURL     string `json:"api_base_url"`
	APIDomain      string `json:"api_domain"`
	HTTPSAvailable bool   `json:"https_available"`
	HTTPSPort      int    `json:"https_port"`
}

// Version parses the advertised API version.
func (i *Info) Version() (APIVersion, error) {
	return Parse(i.APIVersion)
}

// BasePath returns the versioned API path advertised by the device,
// e.g. "/api/v8" for api_base_url "/api/" and api_version "8.2".
func (i *Info) BasePath() (string, error) {
	v, err := i.Version()
	if err != nil {
		return "", err
	}
	return joinBase(i.APIBaseURL, v.Major), nil
}

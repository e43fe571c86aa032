package validator

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

var (
	// urlRegex is a comprehensive URL validation regex
	urlRegex = regexp.MustCompile(`^(https?)://[^\s/$.?#].[^\s]*$`)

	// shortCodeRegex validates short code format (alphanumeric, hyphens, underscores)
	shortCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// deviceIDRegex limits device ids to printable token characters
	deviceIDRegex = regexp.MustCompile(`^[a-zA-Z0-9._:-]+$`)

	// countryRegex matches ISO 3166-1 alpha-2 codes
	countryRegex = regexp.MustCompile(`^[A-Za-z]{2}$`)

	// allowedSchemes lists permitted URL schemes
	allowedSchemes = map[string]bool{
		"http":  true,
		"https": true,
	}
)

// ValidateURL checks if a string is a valid URL
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL cannot be empty"}
	}

	// Basic regex check
	if !urlRegex.MatchString(rawURL) {
		return &ValidationError{Field: "url", Message: "Invalid URL format"}
	}

	// Parse URL
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: "Invalid URL structure"}
	}

	// Validate scheme
	if !allowedSchemes[strings.ToLower(parsed.Scheme)] {
		return &ValidationError{Field: "url", Message: "Unsupported URL scheme"}
	}

	// Validate host
	if parsed.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must contain a host"}
	}

	// Validate length (reasonable maximum)
	if len(rawURL) > 2048 {
		return &ValidationError{Field: "url", Message: "URL too long (max 2048 characters)"}
	}

	return nil
}

// ValidateShortCode checks if a short code has valid format
func ValidateShortCode(code string) bool {
	if len(code) < 2 || len(code) > 50 {
		return false
	}
	return shortCodeRegex.MatchString(code)
}

// ValidateDeviceID checks the client-supplied device identifier format.
// The id is an untrusted hint; this only bounds its shape, not its honesty.
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return &ValidationError{Field: "device_id", Message: "Device id cannot be empty"}
	}
	if len(deviceID) > 128 {
		return &ValidationError{Field: "device_id", Message: "Device id too long (max 128 characters)"}
	}
	if !deviceIDRegex.MatchString(deviceID) {
		return &ValidationError{Field: "device_id", Message: "Device id contains invalid characters"}
	}
	return nil
}

// ValidateFingerprint bounds the optional fingerprint field
func ValidateFingerprint(fingerprint string) error {
	if fingerprint == "" {
		return nil // Optional
	}
	if len(fingerprint) > 128 {
		return &ValidationError{Field: "fingerprint", Message: "Fingerprint too long (max 128 characters)"}
	}
	return nil
}

// ValidateIP checks an optional IP address field
func ValidateIP(ip string) error {
	if ip == "" {
		return nil // Optional
	}
	if net.ParseIP(ip) == nil {
		return &ValidationError{Field: "ip", Message: "Invalid IP address"}
	}
	return nil
}

// ValidateCountry checks an optional two-letter country code
func ValidateCountry(country string) error {
	if country == "" {
		return nil // Optional
	}
	if !countryRegex.MatchString(country) {
		return &ValidationError{Field: "country", Message: "Country must be a two-letter code"}
	}
	return nil
}

// NormalizeURL standardizes URL format
func NormalizeURL(rawURL string) string {
	// Ensure scheme
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL // Return original if parsing fails
	}

	// Force lowercase scheme and host
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	// Remove trailing slash from path
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")

	return parsed.String()
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

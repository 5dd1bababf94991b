package config

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/fault"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
)

// Form field names used by the configuration portal.
const (
	FieldSSID           = "ssid"
	FieldPassword       = "password"
	FieldFeedURL        = "rss_url"
	FieldTimezoneOffset = "timezone_offset"
)

// requireField returns a ValidationFault when value is blank.
func requireField(name, value string) error {
	if value == "" {
		return fault.NewValidationError(name + " is required")
	}
	return nil
}

// ParseTimezoneOffset converts a submitted offset to whole hours.
// Empty or non-integer input yields DefaultTimezoneOffset.
func ParseTimezoneOffset(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTimezoneOffset
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		logging.Debug("Ignoring non-integer timezone offset",
			zap.String("value", s),
			zap.Int("default", DefaultTimezoneOffset),
		)
		return DefaultTimezoneOffset
	}
	return n
}

// ValidateSubmission builds a Configuration from decoded portal form fields.
// Values are trimmed before they are checked and stored.
// Returns a slice of validation errors (empty if valid).
func ValidateSubmission(form map[string]string) (Configuration, []error) {
	cfg := Configuration{
		SSID:           strings.TrimSpace(form[FieldSSID]),
		Password:       strings.TrimSpace(form[FieldPassword]),
		FeedURL:        strings.TrimSpace(form[FieldFeedURL]),
		TimezoneOffset: ParseTimezoneOffset(form[FieldTimezoneOffset]),
	}

	var errs []error
	if err := requireField("network name", cfg.SSID); err != nil {
		errs = append(errs, err)
	}
	if err := requireField("password", cfg.Password); err != nil {
		errs = append(errs, err)
	}
	if err := requireField("feed address", cfg.FeedURL); err != nil {
		errs = append(errs, err)
	}

	return cfg, errs
}

package helpers

import (
	"time"

	"github.com/rs/zerolog/log"
)

// DurationOr reads a configured duration such as "30s" or "24h". Blank
// values fall back quietly; unparsable or non-positive ones fall back with
// a warning.
func DurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}

	d, err := time.ParseDuration(value)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("value", value).Dur("fallback", fallback).Msg("Invalid duration, using fallback")
		return fallback
	case d <= 0:
		log.Warn().Str("value", value).Dur("fallback", fallback).Msg("Duration must be positive, using fallback")
		return fallback
	}
	return d
}

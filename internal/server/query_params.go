package server

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

var (
	errInvalidID   = errors.New("invalid_id")
	errInvalidTime = errors.New("invalid_time")
)

// pathID parses the :id segment and aborts with a field error when it is not
// a positive snowflake.
func pathID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		AbortWithError(c, newValidationError("id", errInvalidID.Error(), "invalid id"))
		return 0, false
	}
	return id, true
}

// normalizeEnum upper-cases query and body enum values; stored enums are
// upper case.
func normalizeEnum(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// parseOptionalTime accepts RFC3339 or a bare date. A bare date covers the
// whole UTC day: its first instant for a lower bound, its last for an upper.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, value, time.UTC)
	if err != nil {
		return nil, errInvalidTime
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, nil
}

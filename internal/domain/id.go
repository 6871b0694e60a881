package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Record id prefixes, one per entity collection.
const (
	PrefixReturnOrder    = "801"
	PrefixReturnLineItem = "802"
	PrefixCase           = "500"
	PrefixLabelEmail     = "02s"
)

var recordIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]{15}([a-zA-Z0-9]{3})?$`)

// ValidRecordID reports whether s matches the 15- or 18-character
// alphanumeric record identifier shape. Every caller-supplied id must pass
// this before it is used in a lookup.
func ValidRecordID(s string) bool {
	return recordIDPattern.MatchString(s)
}

// NewRecordID mints an 18-character record identifier: a 3-character
// entity prefix followed by 15 hex characters of a fresh UUID.
func NewRecordID(prefix string) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + hex[:15]
}

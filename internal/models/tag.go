package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTagFormat is returned when a tag path does not resolve to
// exactly four non-empty segments.
var ErrInvalidTagFormat = errors.New("invalid tag format")

// Tag addresses one piece of monitored equipment as
// "Discipline/Building/Floor/Equipment" (e.g. "EL/Principal/PAV01/MM_01_01").
// The discipline is a short subsystem code such as EL, AC, IL or HI.
type Tag struct {
	Discipline string
	Building   string
	Floor      string
	Equipment  string
}

// ParseTag splits a raw path on "/", drops empty segments and requires
// exactly four remaining ones. A malformed path is rejected as a whole.
func ParseTag(raw string) (Tag, error) {
	parts := strings.Split(raw, "/")
	segments := make([]string, 0, 4)
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	if len(segments) != 4 {
		return Tag{}, fmt.Errorf("%w: %q", ErrInvalidTagFormat, raw)
	}
	return Tag{
		Discipline: segments[0],
		Building:   segments[1],
		Floor:      segments[2],
		Equipment:  segments[3],
	}, nil
}

// String is the inverse of ParseTag.
func (t Tag) String() string {
	return t.Discipline + "/" + t.Building + "/" + t.Floor + "/" + t.Equipment
}

// Valid reports whether all four segments are non-empty.
func (t Tag) Valid() bool {
	return t.Discipline != "" && t.Building != "" && t.Floor != "" && t.Equipment != ""
}

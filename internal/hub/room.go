package hub

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"letshare-server/internal/model"
)

var (
	ErrInvalidRoomName = errors.New("invalid room name")
	ErrForbiddenRoom   = errors.New("forbidden room")
)

// roomNamePattern is preserved verbatim from spec §4: it excludes
// Cyrillic and other non-Latin letters even though documented usage
// includes city:Саратов. This is flagged, not silently "fixed" — see
// spec §9 Open Questions and DESIGN.md.
var roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9:_-]{1,100}$`)

// ValidateRoomName enforces the character class and length bound from
// spec §4.4.
func ValidateRoomName(name string) error {
	if !roomNamePattern.MatchString(name) {
		return ErrInvalidRoomName
	}
	return nil
}

// checkJoinACL enforces the access policy for an explicit join-room call.
// Auto-join at authentication time bypasses this (the role rooms are
// trusted by construction).
func checkJoinACL(user model.AuthUser, room string) error {
	if room == "directors" {
		if !user.Role.MayJoinDirectors() {
			return ErrForbiddenRoom
		}
		return nil
	}
	if room == "operators" {
		return nil
	}

	if id, ok := subjectID(room, "operator:"); ok {
		return checkSubjectACL(user, id)
	}
	if id, ok := subjectID(room, "master:"); ok {
		return checkSubjectACL(user, id)
	}
	if id, ok := subjectID(room, "user:"); ok {
		return checkSubjectACL(user, id)
	}
	// order:<id> and city:<name> and any other role room are open to any
	// authenticated user (spec §4.4: "orders are not identities").
	return nil
}

func subjectID(room, prefix string) (int64, bool) {
	if !strings.HasPrefix(room, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(room, prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func checkSubjectACL(user model.AuthUser, subjectID int64) error {
	if subjectID == user.UserID {
		return nil
	}
	if !user.Role.MayActAsDirector() {
		return ErrForbiddenRoom
	}
	return nil
}

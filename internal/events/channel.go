package events

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the audience type of a channel.
type Kind string

const (
	KindUser  Kind = "user"
	KindGroup Kind = "group"
)

// UserChannel is the private channel of every live session of one user.
func UserChannel(userID uint) string {
	return string(KindUser) + "." + strconv.FormatUint(uint64(userID), 10)
}

// GroupChannel is shared by every subscriber watching one group.
func GroupChannel(groupID uint) string {
	return string(KindGroup) + "." + strconv.FormatUint(uint64(groupID), 10)
}

// ParseChannel splits "user.12" or "group.7" into its kind and id.
func ParseChannel(name string) (Kind, uint, error) {
	kind, raw, ok := strings.Cut(name, ".")
	if !ok {
		return "", 0, errors.Errorf("malformed channel %q", name)
	}
	switch Kind(kind) {
	case KindUser, KindGroup:
	default:
		return "", 0, errors.Errorf("unknown channel kind %q", kind)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return "", 0, errors.Errorf("malformed channel id in %q", name)
	}
	return Kind(kind), uint(id), nil
}

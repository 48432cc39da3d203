package graph

import (
	apperrors "socialgraph/backend/pkg/errors"
)

// Label is a node label from the allow-list. Labels cannot be bound as Cypher
// parameters, so only values produced by ParseLabel may be formatted into a
// statement.
type Label string

const (
	LabelUser  Label = "User"
	LabelGroup Label = "Group"
)

// RelType is a relationship type from the allow-list
type RelType string

const (
	RelFollows    RelType = "FOLLOWS"    // User -> User
	RelSubscribed RelType = "SUBSCRIBED" // User -> Group
)

// Labels lists every accepted node label
func Labels() []Label {
	return []Label{LabelUser, LabelGroup}
}

// ParseLabel validates a caller-supplied label
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", apperrors.NewInvalidLabel(s)
}

// IsValidLabel reports whether s is an accepted node label
func IsValidLabel(s string) bool {
	_, err := ParseLabel(s)
	return err == nil
}

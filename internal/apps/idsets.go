package apps

import (
	"errors"
	"fmt"
	"strings"
)

// ListName addresses one of the two id-sets in the flags document.
type ListName string

const (
	ListFeatured ListName = "featured"
	ListEvents   ListName = "events"
)

// ErrUnknownList indicates a list name other than featured or events.
var ErrUnknownList = errors.New("apps: unknown id list")

// ParseListName validates a raw list name from a request.
func ParseListName(raw string) (ListName, error) {
	switch ListName(strings.ToLower(strings.TrimSpace(raw))) {
	case ListFeatured:
		return ListFeatured, nil
	case ListEvents:
		return ListEvents, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownList, raw)
	}
}

// IDSets is the persisted featured/events document. Both sets hold app ids;
// mutual exclusion between the two is the caller's concern, not storage's.
type IDSets struct {
	Featured []string `json:"featured"`
	Events   []string `json:"events"`
}

// EmptyIDSets returns the empty shape. Sets are non-nil so the document
// serializes as {"featured":[],"events":[]} rather than nulls.
func EmptyIDSets() IDSets {
	return IDSets{Featured: []string{}, Events: []string{}}
}

// MergeIDSets unions the incoming sets into the current ones, per field,
// preserving first-seen order and dropping duplicates. Union makes concurrent
// additive edits commutative: neither writer's ids can be lost.
func MergeIDSets(current, incoming IDSets) IDSets {
	return IDSets{
		Featured: unionIDs(current.Featured, incoming.Featured),
		Events:   unionIDs(current.Events, incoming.Events),
	}
}

func unionIDs(current, incoming []string) []string {
	merged := make([]string, 0, len(current)+len(incoming))
	seen := make(map[string]struct{}, len(current)+len(incoming))
	for _, id := range current {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, id := range incoming {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	return merged
}

// get returns the named set.
func (s IDSets) get(list ListName) []string {
	if list == ListEvents {
		return s.Events
	}
	return s.Featured
}

// without returns a copy of the document with one id removed from the named
// set.
func (s IDSets) without(list ListName, id string) IDSets {
	filtered := make([]string, 0, len(s.get(list)))
	for _, existing := range s.get(list) {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	result := IDSets{Featured: s.Featured, Events: s.Events}
	if list == ListEvents {
		result.Events = filtered
	} else {
		result.Featured = filtered
	}
	return result
}

// contains reports membership of an id in the named set.
func (s IDSets) contains(list ListName, id string) bool {
	for _, existing := range s.get(list) {
		if existing == id {
			return true
		}
	}
	return false
}

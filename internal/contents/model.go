package contents

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ContentType partitions the flat numeric id namespace. Each type owns a
// non-overlapping 10,000-slot range.
type ContentType string

const (
	TypeAppStory ContentType = "appstory"
	TypeNews     ContentType = "news"
	TypeMemo     ContentType = "memo"
	TypeMemo2    ContentType = "memo2"
)

// IDRange bounds the numeric ids of one content type, inclusive.
type IDRange struct {
	Base int
	Max  int
}

// Size returns the number of slots in the range.
func (r IDRange) Size() int {
	return r.Max - r.Base + 1
}

// Contains reports whether an id falls inside the range.
func (r IDRange) Contains(id int) bool {
	return id >= r.Base && id <= r.Max
}

var typeRanges = map[ContentType]IDRange{
	TypeAppStory: {Base: 1, Max: 9999},
	TypeNews:     {Base: 10000, Max: 19999},
	TypeMemo:     {Base: 20000, Max: 29999},
	TypeMemo2:    {Base: 30000, Max: 39999},
}

var (
	// ErrInvalidContent indicates a record that fails shape validation.
	ErrInvalidContent = errors.New("contents: invalid content record")
	// ErrNotFound indicates an id that is not present in the list.
	ErrNotFound = errors.New("contents: content not found")
	// ErrUnknownType indicates a content type without a reserved id range.
	ErrUnknownType = errors.New("contents: unknown content type")
)

// RangeFor returns the reserved id range of a content type.
func RangeFor(contentType ContentType) (IDRange, error) {
	idRange, ok := typeRanges[contentType]
	if !ok {
		return IDRange{}, fmt.Errorf("%w: %q", ErrUnknownType, contentType)
	}
	return idRange, nil
}

// Content is one editorial record (app story, news post, memo).
type Content struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Body        string      `json:"body,omitempty"`
	Author      string      `json:"author,omitempty"`
	PublishDate string      `json:"publishDate,omitempty"`
	Type        ContentType `json:"type"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	IsPublished bool        `json:"isPublished"`
}

// Validate checks required fields and the id-range invariant for the type.
func (c Content) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidContent)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidContent)
	}
	idRange, err := RangeFor(c.Type)
	if err != nil {
		return err
	}
	numeric, err := strconv.Atoi(c.ID)
	if err != nil {
		return fmt.Errorf("%w: id %q is not numeric", ErrInvalidContent, c.ID)
	}
	if !idRange.Contains(numeric) {
		return fmt.Errorf("%w: id %d outside range %d-%d for type %s",
			ErrInvalidContent, numeric, idRange.Base, idRange.Max, c.Type)
	}
	return nil
}

package core

import (
	"errors"
	"strings"
)

// Category is one of the fixed expense classifications. Its numeric value is
// the rank index: the canonical order used for resets and as the last tie-break.
type Category int

const (
	Food Category = iota
	Transportation
	Health

	// CategoryCount is the size of the closed category set.
	CategoryCount = int(Health) + 1
)

var ErrUnknownCategory = errors.New("unknown category")

var categoryNames = [CategoryCount]string{
	Food:           "Food",
	Transportation: "Transportation",
	Health:         "Health",
}

// Categories returns every category in rank order.
func Categories() []Category {
	out := make([]Category, CategoryCount)
	for i := range out {
		out[i] = Category(i)
	}
	return out
}

// Rank returns the canonical rank index
func (c Category) Rank() int {
	return int(c)
}

// Valid reports whether c belongs to the closed set.
func (c Category) Valid() bool {
	return c >= 0 && int(c) < CategoryCount
}

func (c Category) String() string {
	if !c.Valid() {
		return "Unknown"
	}
	return categoryNames[c]
}

// ParseCategory resolves a display name (case-insensitive) to a Category.
func ParseCategory(name string) (Category, error) {
	name = strings.TrimSpace(name)
	for i, n := range categoryNames {
		if strings.EqualFold(n, name) {
			return Category(i), nil
		}
	}
	return 0, ErrUnknownCategory
}

// MarshalText encodes the category as its display name.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, ErrUnknownCategory
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a display name produced by MarshalText.
func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

package engine

import "fmt"

// LevelSource supplies level text by 1-based level number.
type LevelSource interface {
	Count() int
	LevelText(number int) (string, error)
	SaveLevelText(number int, text string) error
}

// StaticLevels is an in-memory LevelSource.
type StaticLevels []string

// Count returns the number of levels held.
func (s *StaticLevels) Count() int {
	return len(*s)
}

// LevelText returns the text of level number, or ErrLevelNotFound when it is
// out of range.
func (s *StaticLevels) LevelText(number int) (string, error) {
	if number < 1 || number > len(*s) {
		return "", fmt.Errorf("%w: %d", ErrLevelNotFound, number)
	}
	return (*s)[number-1], nil
}

// SaveLevelText replaces level number, or appends it when number is one past
// the end.
func (s *StaticLevels) SaveLevelText(number int, text string) error {
	switch {
	case number >= 1 && number <= len(*s):
		(*s)[number-1] = text
	case number == len(*s)+1:
		*s = append(*s, text)
	default:
		return fmt.Errorf("%w: %d", ErrLevelNotFound, number)
	}
	return nil
}

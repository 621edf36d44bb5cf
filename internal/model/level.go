// Package model defines the data contract between the feature extractors,
// the fusion core, and the reporting layer.
package model

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// Level identifies one of the six analysis levels, ordered from cheapest
// to most expensive.
type Level int

const (
	LevelExpression Level = iota + 1
	LevelBlink
	LevelHeadpose
	LevelTexture
	LevelColor
	LevelLipsync
)

// NumLevels is the number of analysis levels.
const NumLevels = 6

var levelNames = map[Level]string{
	LevelExpression: "expression",
	LevelBlink:      "blink",
	LevelHeadpose:   "headpose",
	LevelTexture:    "texture",
	LevelColor:      "color",
	LevelLipsync:    "lipsync",
}

// String returns the level's short name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Valid reports whether l is one of the six defined levels.
func (l Level) Valid() bool {
	return l >= LevelExpression && l <= LevelLipsync
}

// AllLevels returns the six levels in escalation order.
func AllLevels() []Level {
	return []Level{
		LevelExpression, LevelBlink, LevelHeadpose,
		LevelTexture, LevelColor, LevelLipsync,
	}
}

// ParseLevel resolves a level name to its Level value.
func ParseLevel(name string) (Level, error) {
	for l, n := range levelNames {
		if n == name {
			return l, nil
		}
	}
	return 0, eris.Errorf("model: unknown level %q", name)
}

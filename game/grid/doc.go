// Package grid holds the coordinate types shared by the puzzle engine.
//
// Positions are 1-based and bounded by Dimensions; Y grows downward, so Up is
// the delta (0,-1). Direction values are ordered Up, Right, Down, Left and
// that order is used wherever directions are sorted.
package grid

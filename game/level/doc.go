// Package level reads and writes the text level format.
//
// A level file is line oriented:
//
//	[General]
//	Width=8
//	Height=6
//
//	[Player]
//	Position=2,3
//
//	[Creature1]
//	Direction=Left
//	Position=5,2;6,4
//
// Section names are object types. A Direction line applies to the Position
// lines after it until the next section header. Parse logs and skips
// anything it does not understand; Format writes the canonical form.
package level

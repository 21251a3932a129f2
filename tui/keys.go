package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/wricardo/tilepuzzle/game/grid"
)

type command int

const (
	cmdNone command = iota
	cmdQuit
	cmdUp
	cmdRight
	cmdDown
	cmdLeft
	cmdWait
	cmdReload
	cmdNextLevel
	cmdPrevLevel
	cmdEditor
	cmdPlace
	cmdErase
	cmdNextType
	cmdPrevType
	cmdRotate
	cmdWider
	cmdNarrower
	cmdTaller
	cmdShorter
	cmdSave
)

var keyCommands = map[tcell.Key]command{
	tcell.KeyEscape:    cmdQuit,
	tcell.KeyCtrlC:     cmdQuit,
	tcell.KeyUp:        cmdUp,
	tcell.KeyRight:     cmdRight,
	tcell.KeyDown:      cmdDown,
	tcell.KeyLeft:      cmdLeft,
	tcell.KeyEnter:     cmdPlace,
	tcell.KeyDelete:    cmdErase,
	tcell.KeyBackspace: cmdErase,
	tcell.KeyTab:       cmdNextType,
	tcell.KeyBacktab:   cmdPrevType,
	tcell.KeyCtrlS:     cmdSave,
}

var runeCommands = map[rune]command{
	'q': cmdQuit,
	'w': cmdUp, 'k': cmdUp,
	'd': cmdRight, 'l': cmdRight,
	's': cmdDown, 'j': cmdDown,
	'a': cmdLeft, 'h': cmdLeft,
	'.': cmdWait,
	'r': cmdReload,
	'n': cmdNextLevel,
	'p': cmdPrevLevel,
	'e': cmdEditor,
	' ': cmdPlace,
	'x': cmdErase,
	'o': cmdRotate,
	'>': cmdWider,
	'<': cmdNarrower,
	'+': cmdTaller,
	'-': cmdShorter,
}

func commandFor(key tcell.Key, r rune) command {
	if key == tcell.KeyRune {
		return runeCommands[r]
	}
	return keyCommands[key]
}

func (c command) direction() (grid.Direction, bool) {
	switch c {
	case cmdUp:
		return grid.Up, true
	case cmdRight:
		return grid.Right, true
	case cmdDown:
		return grid.Down, true
	case cmdLeft:
		return grid.Left, true
	}
	return grid.Up, false
}

func (c command) resize() (dw, dh int) {
	switch c {
	case cmdWider:
		return 1, 0
	case cmdNarrower:
		return -1, 0
	case cmdTaller:
		return 0, 1
	case cmdShorter:
		return 0, -1
	}
	return 0, 0
}

package tui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

const (
	playHelp   = "arrows/wasd move  . wait  r reload  n/p level  e editor  q quit"
	editorHelp = "arrows cursor  space place  x erase  tab type  o rotate  <>+- resize  ^S save  e play"
)

var glyphStyles = map[rune]tcell.Style{
	'@': tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true),
	'E': tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true),
	'#': tcell.StyleDefault.Foreground(tcell.ColorRed),
	'B': tcell.StyleDefault.Foreground(tcell.ColorBlue),
	'P': tcell.StyleDefault.Foreground(tcell.ColorPurple),
	'Y': tcell.StyleDefault.Foreground(tcell.ColorOlive),
	'G': tcell.StyleDefault.Foreground(tcell.ColorSilver),
	'g': tcell.StyleDefault.Foreground(tcell.ColorDarkGray),
	'_': tcell.StyleDefault.Foreground(tcell.ColorWhite),
	'*': tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	'~': tcell.StyleDefault.Foreground(tcell.ColorAqua).Background(tcell.ColorNavy),
	'=': tcell.StyleDefault.Foreground(tcell.ColorOrange).Background(tcell.ColorNavy),
	'o': tcell.StyleDefault.Foreground(tcell.ColorFuchsia),
	'c': tcell.StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true),
	'^': tcell.StyleDefault.Foreground(tcell.ColorTeal),
	'>': tcell.StyleDefault.Foreground(tcell.ColorTeal),
	'v': tcell.StyleDefault.Foreground(tcell.ColorTeal),
	'<': tcell.StyleDefault.Foreground(tcell.ColorTeal),
	'+': tcell.StyleDefault.Foreground(tcell.ColorGray),
	',': tcell.StyleDefault.Foreground(tcell.ColorAqua),
	'x': tcell.StyleDefault.Foreground(tcell.ColorOrange).Bold(true),
	'.': tcell.StyleDefault.Foreground(tcell.ColorDarkGray),
}

func styleFor(r rune) tcell.Style {
	if s, ok := glyphStyles[r]; ok {
		return s
	}
	return tcell.StyleDefault
}

// Draw renders the board with the status lines below it.
func (a *App) Draw() {
	a.screen.Clear()
	if a.state == nil {
		a.screen.Show()
		return
	}

	for y, row := range a.state.Board {
		for x, r := range []rune(row) {
			style := styleFor(r)
			if a.editing() && a.cursor.X == x+1 && a.cursor.Y == y+1 {
				style = style.Reverse(true)
			}
			a.screen.SetContent(x, y, r, nil, style)
		}
	}

	line := len(a.state.Board) + 1
	a.drawText(0, line, tcell.StyleDefault.Bold(true), a.statusLine())
	line++

	if a.editing() {
		t := a.selected()
		a.drawText(0, line, tcell.StyleDefault, fmt.Sprintf("Cursor (%d,%d)  Place %s facing %s",
			a.cursor.X, a.cursor.Y, t, a.facing))
		line++
	}

	if a.message != "" {
		a.drawText(0, line, tcell.StyleDefault.Foreground(tcell.ColorYellow), a.message)
		line++
	}

	help := playHelp
	if a.editing() {
		help = editorHelp
	}
	a.drawText(0, line, tcell.StyleDefault.Foreground(tcell.ColorGray), help)

	a.screen.Show()
}

func (a *App) statusLine() string {
	s := a.state
	status := fmt.Sprintf("Level %d/%d  Moves %d", s.Level, s.LevelCount, s.CurrentMovesCount)
	if s.World != nil {
		status += fmt.Sprintf("  Time %.1fs", s.World.Clock.Seconds())
	}
	switch {
	case s.Completed:
		status += "  ALL LEVELS COMPLETE"
	case s.GameOver:
		status += "  GAME OVER (r to reload)"
	}
	if s.Editor {
		status += "  [EDITOR]"
	}
	return status
}

func (a *App) drawText(x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		a.screen.SetContent(x+i, y, r, nil, style)
	}
}

package levelstore

import "github.com/wricardo/tilepuzzle/game/level"

// LevelInfo summarises one level of a pack for listings.
type LevelInfo struct {
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Objects int    `json:"objects"`
	Players int    `json:"players"`
	Exits   int    `json:"exits"`
	Error   string `json:"error,omitempty"`
}

// DescribeLevel summarises a level text. Parse problems are not reported here;
// the validate command lists them.
func DescribeLevel(number int, name, text string) *LevelInfo {
	lvl := level.Parse(text, nil)
	return &LevelInfo{
		Number:  number,
		Name:    name,
		Width:   lvl.Dimensions.Width,
		Height:  lvl.Dimensions.Height,
		Objects: lvl.Total(),
		Players: lvl.Count(level.Player),
		Exits:   lvl.Count(level.Exit),
	}
}

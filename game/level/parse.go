package level

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/wricardo/tilepuzzle/game/grid"
	"go.uber.org/zap"
)

const generalSection = "General"

// Parse reads the text level format. It never fails: malformed entries are
// logged and skipped so a half-edited level still loads.
func Parse(content string, log *zap.Logger) *Level {
	if log == nil {
		log = zap.NewNop()
	}

	lvl := New()
	var (
		section    string
		inSection  bool
		direction  *grid.Direction
		lineNumber int
	)

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") && len(line) >= 2 {
			section = line[1 : len(line)-1]
			inSection = true
			direction = nil
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok || !inSection {
			continue
		}

		if section == generalSection {
			parseDimension(lvl, key, value, lineNumber, log)
			continue
		}

		objectType, known := ParseObjectType(section)
		if !known {
			log.Warn("unknown object type", zap.String("section", section), zap.Int("line", lineNumber))
			continue
		}

		switch key {
		case "Position":
			lvl.Add(objectType, parsePositions(value, direction, lineNumber, log)...)
		case "Direction":
			d, ok := grid.ParseDirection(value)
			if !ok {
				log.Warn("unknown direction", zap.String("value", value), zap.Int("line", lineNumber))
				continue
			}
			direction = &d
		default:
			log.Warn("unknown key", zap.String("key", key), zap.String("section", section), zap.Int("line", lineNumber))
		}
	}

	return lvl
}

func parseDimension(lvl *Level, key, value string, lineNumber int, log *zap.Logger) {
	n, err := strconv.Atoi(value)
	if err == nil && n < 1 {
		err = strconv.ErrRange
	}
	if err != nil {
		log.Warn("invalid dimension", zap.String("key", key), zap.String("value", value),
			zap.Int("line", lineNumber), zap.Error(err))
		return
	}

	switch key {
	case "Width":
		lvl.Dimensions.Width = n
	case "Height":
		lvl.Dimensions.Height = n
	default:
		log.Warn("unknown key", zap.String("key", key), zap.String("section", generalSection), zap.Int("line", lineNumber))
	}
}

// parsePositions splits "x,y;x,y". Entries without a comma are dropped
// silently, entries with unparsable numbers are logged.
func parsePositions(value string, direction *grid.Direction, lineNumber int, log *zap.Logger) []Placement {
	var placements []Placement
	for _, location := range strings.Split(value, ";") {
		xs, ys, ok := strings.Cut(location, ",")
		if !ok {
			continue
		}
		x, errX := strconv.Atoi(xs)
		y, errY := strconv.Atoi(ys)
		if errX != nil || errY != nil {
			log.Warn("invalid location", zap.String("location", location), zap.Int("line", lineNumber))
			continue
		}

		p := Placement{Position: grid.Position{X: x, Y: y}}
		if direction != nil {
			d := *direction
			p.Direction = &d
		}
		placements = append(placements, p)
	}
	return placements
}

package protocol

import (
	"errors"
	"fmt"
	"math"

	"puzzleparty/geom"
)

// PuzzleHeight 拼图在世界坐标中的高度；宽度按列行比例推出
const PuzzleHeight = 5.0

var ErrInvalidConfig = errors.New("protocol: invalid room config")

// RoomConfig 房间配置：种子是几何随机性的唯一来源，房间创建后不可变
type RoomConfig struct {
	Seed  uint64    `json:"seed"`
	Grid  geom.Grid `json:"grid"`
	Image int       `json:"image"`
}

// PuzzleSize 世界坐标下的拼图尺寸，保证 tile 为正方形
func (c RoomConfig) PuzzleSize() geom.Vec2 {
	return geom.V(PuzzleHeight*float64(c.Grid.Cols)/float64(c.Grid.Rows), PuzzleHeight)
}

// Validate 检查网格尺寸；maxTiles<=0 表示不限块数
func (c RoomConfig) Validate(maxTiles int) error {
	if !c.Grid.Valid() {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, c.Grid.Cols, c.Grid.Rows)
	}
	if maxTiles > 0 && c.Grid.Count() > maxTiles {
		return fmt.Errorf("%w: %d tiles exceeds limit %d", ErrInvalidConfig, c.Grid.Count(), maxTiles)
	}
	if c.Image < 0 {
		return fmt.Errorf("%w: image %d", ErrInvalidConfig, c.Image)
	}
	return nil
}

// GridForPieces 在 pieces 的所有因数分解中挑选宽高比最接近图片的网格
func GridForPieces(pieces int, imageAspect float64) geom.Grid {
	if pieces < 1 {
		pieces = 1
	}
	best := geom.Grid{Cols: pieces, Rows: 1}
	bestDiff := math.Inf(1)
	for cols := 1; cols <= pieces; cols++ {
		if pieces%cols != 0 {
			continue
		}
		rows := pieces / cols
		diff := math.Abs(float64(cols)/float64(rows) - imageAspect)
		if diff < bestDiff {
			best, bestDiff = geom.Grid{Cols: cols, Rows: rows}, diff
		}
	}
	return best
}

var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
}

// PlayerColor 按 ID 取固定调色板中的颜色，各端一致
func PlayerColor(id PlayerID) string {
	return palette[int(id%PlayerID(len(palette)))]
}

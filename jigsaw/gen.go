package jigsaw

import (
	"math"
	"math/rand/v2"

	"puzzleparty/geom"
)

// 四条边在 Piece.Sides 中的顺序（绕序一致：上、右、下、左）
const (
	SideTop = iota
	SideRight
	SideBottom
	SideLeft
)

const (
	// latticeNoise 内部格点的随机扰动幅度（相对 tile 尺寸）
	latticeNoise = 0.05

	// 凸起的圆弧：圆心 (0.1, 0.15)，半径 0.15，从 3.95 rad 顺时针扫到 -0.85 rad
	knobResolution = 10
	knobArcFrom    = 3.95
	knobArcTo      = -0.85
	knobCenterX    = 0.1
	knobCenterY    = 0.15
	knobRadius     = 0.15
	knobWidth      = 0.2

	// 凸起起点在边上的分布区间 [slotMin, slotMin+slotSpread]
	slotMin    = 0.3
	slotSpread = 0.2
)

// Piece 单个格子的闭合轮廓，按边分段保存；每条边以它的起始角点开头
type Piece struct {
	Cell  geom.Cell
	Sides [4][]geom.Vec2
}

// Polygon 四条边依次拼接成的闭合多边形
func (p Piece) Polygon() []geom.Vec2 {
	n := 0
	for _, s := range p.Sides {
		n += len(s)
	}
	out := make([]geom.Vec2, 0, n)
	for _, s := range p.Sides {
		out = append(out, s...)
	}
	return out
}

// Edge 第 side 条边从起始角到结束角的完整点列（结束角取自下一条边）
func (p Piece) Edge(side int) []geom.Vec2 {
	s := p.Sides[side]
	out := make([]geom.Vec2, 0, len(s)+1)
	out = append(out, s...)
	return append(out, p.Sides[(side+1)%4][0])
}

// knobShape 规范坐标系下的凸起（不含起止直线段），边沿局部 x 轴
var knobShape = func() []geom.Vec2 {
	pts := make([]geom.Vec2, knobResolution)
	for i := range pts {
		t := float64(i)/float64(knobResolution-1)*(knobArcTo-knobArcFrom) + knobArcFrom
		sin, cos := math.Sincos(t)
		pts[i] = geom.V(knobCenterX+cos*knobRadius, knobCenterY+sin*knobRadius)
	}
	return pts
}()

// knobPath 起点为 start 的完整边路径：直线 -> 圆弧凸起 -> 直线
func knobPath(start float64) []geom.Vec2 {
	out := make([]geom.Vec2, 0, len(knobShape)+2)
	out = append(out, geom.V(start, 0))
	for _, v := range knobShape {
		out = append(out, v.Add(geom.V(start, 0)))
	}
	return append(out, geom.V(start+knobWidth, 0))
}

// slotStarts 同方向的 n 条边在区间内均匀分布的凸起起点
func slotStarts(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := 0.5
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		out[i] = slotMin + t*slotSpread
	}
	return out
}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// GeneratePieces 按种子生成 grid 中每个格子的互锁轮廓。
// 相同 seed/size/grid 必然得到逐位相同的结果；相邻格子共享的边点列完全相同、方向相反。
func GeneratePieces(seed uint64, size geom.Vec2, grid geom.Grid) []Piece {
	rng := newRNG(seed)
	cols, rows := grid.Cols, grid.Rows
	tile := size.Div(grid.Size())

	// 格点 (cols+1)×(rows+1)，只扰动不在外边界上的点
	lattice := make([]geom.Vec2, (cols+1)*(rows+1))
	dx, dy := tile.X*latticeNoise, tile.Y*latticeNoise
	for y := 0; y <= rows; y++ {
		for x := 0; x <= cols; x++ {
			v := geom.V(float64(x), float64(y)).Mul(tile)
			if x > 0 && y > 0 && x < cols && y < rows {
				v = v.Add(geom.V((rng.Float64()*2-1)*dx, (rng.Float64()*2-1)*dy))
			}
			lattice[x+y*(cols+1)] = v
		}
	}

	pieces := make([]Piece, grid.Count())
	for i := range pieces {
		c := grid.Cell(i)
		k := c.X + c.Y*(cols+1)
		pieces[i] = Piece{
			Cell: c,
			Sides: [4][]geom.Vec2{
				{lattice[k]},
				{lattice[k+1]},
				{lattice[k+1+cols+1]},
				{lattice[k+cols+1]},
			},
		}
	}

	vertical := rows * (cols - 1)
	horizontal := cols * (rows - 1)

	// 每个方向内均匀分布起点，再打乱哪条边拿哪个位置
	vSlots := slotStarts(vertical)
	hSlots := slotStarts(horizontal)
	rng.Shuffle(len(vSlots), func(i, j int) { vSlots[i], vSlots[j] = vSlots[j], vSlots[i] })
	rng.Shuffle(len(hSlots), func(i, j int) { hSlots[i], hSlots[j] = hSlots[j], hSlots[i] })

	for i := 0; i < vertical+horizontal; i++ {
		isVertical := i < vertical
		var (
			idx   int
			start float64
		)
		if isVertical {
			idx = i/rows + i%rows*cols
			start = vSlots[i]
		} else {
			idx = i - vertical
			start = hSlots[idx]
		}

		edge := knobPath(start)
		if rng.IntN(2) == 1 {
			for k := range edge {
				edge[k].Y = -edge[k].Y
			}
		}

		origin := grid.Cell(idx).Vec().Mul(tile)
		if isVertical {
			other := idx + 1
			base := origin.Add(geom.V(tile.X, 0))
			for k := range edge {
				edge[k] = edge[k].Rotate90().Scale(tile.Y).Add(base)
			}
			pieces[idx].Sides[SideRight] = append(pieces[idx].Sides[SideRight], edge...)
			pieces[other].Sides[SideLeft] = append(pieces[other].Sides[SideLeft], reversed(edge)...)
		} else {
			other := idx + cols
			base := origin.Add(geom.V(0, tile.Y))
			for k := range edge {
				edge[k] = edge[k].Scale(tile.X).Add(base)
			}
			pieces[idx].Sides[SideBottom] = append(pieces[idx].Sides[SideBottom], reversed(edge)...)
			pieces[other].Sides[SideTop] = append(pieces[other].Sides[SideTop], edge...)
		}
	}
	return pieces
}

func reversed(pts []geom.Vec2) []geom.Vec2 {
	out := make([]geom.Vec2, len(pts))
	for i, v := range pts {
		out[len(pts)-1-i] = v
	}
	return out
}

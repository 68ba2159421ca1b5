package geom

// Cell 网格坐标
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid 拼图网格尺寸：Cols 列 × Rows 行，下标按行优先 i = x + y*Cols
type Grid struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

func (g Grid) Count() int { return g.Cols * g.Rows }

func (g Grid) Valid() bool { return g.Cols >= 1 && g.Rows >= 1 }

// Cell 下标 -> 网格坐标
func (g Grid) Cell(i int) Cell { return Cell{X: i % g.Cols, Y: i / g.Cols} }

// Index 网格坐标 -> 下标
func (g Grid) Index(c Cell) int { return c.X + c.Y*g.Cols }

func (g Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.Cols && c.Y < g.Rows
}

// Adjacent 两个下标在网格上曼哈顿距离为 1
func (g Grid) Adjacent(a, b int) bool {
	if a < 0 || b < 0 || a >= g.Count() || b >= g.Count() {
		return false
	}
	ca, cb := g.Cell(a), g.Cell(b)
	dx, dy := ca.X-cb.X, ca.Y-cb.Y
	return (dx == 0 && (dy == 1 || dy == -1)) || (dy == 0 && (dx == 1 || dx == -1))
}

// Neighbors 上下左右存在的相邻下标
func (g Grid) Neighbors(i int) []int {
	c := g.Cell(i)
	out := make([]int, 0, 4)
	for _, d := range [4]Cell{{0, -1}, {1, 0}, {0, 1}, {-1, 0}} {
		n := Cell{X: c.X + d.X, Y: c.Y + d.Y}
		if g.InBounds(n) {
			out = append(out, g.Index(n))
		}
	}
	return out
}

// Vec 网格坐标转为浮点向量
func (c Cell) Vec() Vec2 { return Vec2{float64(c.X), float64(c.Y)} }

func (c Cell) Sub(o Cell) Cell { return Cell{X: c.X - o.X, Y: c.Y - o.Y} }

// Size 列数、行数组成的向量
func (g Grid) Size() Vec2 { return Vec2{float64(g.Cols), float64(g.Rows)} }

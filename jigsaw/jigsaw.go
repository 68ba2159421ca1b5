// Package jigsaw 生成互锁拼图块几何，并维护客户端的拼图模型（位置、连接、抓取、命中测试）
package jigsaw

import (
	"errors"
	"fmt"
	"sort"

	"puzzleparty/geom"
	"puzzleparty/interp"
	"puzzleparty/protocol"
)

// SnapDistance 松手时与相邻块的位置误差不超过该值则自动连接
const SnapDistance = 0.2

var ErrInvalidPuzzle = errors.New("jigsaw: invalid puzzle dimensions")

// Tile 一个拼图块
type Tile struct {
	Cell        geom.Cell
	Pos         interp.Interpolated // 中心点的世界坐标
	ConnectedTo []int
	GrabbedBy   *protocol.PlayerID
	Mesh        []Triangle
	Outline     []Vertex

	// LastInteraction 最近一次交互的逻辑时钟，越大越靠上
	LastInteraction uint64
}

// Jigsaw 整幅拼图
type Jigsaw struct {
	Seed     uint64
	Size     geom.Vec2
	Grid     geom.Grid
	TileSize geom.Vec2
	Tiles    []Tile

	clock uint64
}

// Generate 由种子生成全部拼图块，初始位置为各自格子中心
func Generate(seed uint64, size geom.Vec2, grid geom.Grid) (*Jigsaw, error) {
	if !grid.Valid() || !(size.X > 0) || !(size.Y > 0) || !size.IsFinite() {
		return nil, fmt.Errorf("%w: grid %dx%d size %v", ErrInvalidPuzzle, grid.Cols, grid.Rows, size)
	}
	j := &Jigsaw{
		Seed:     seed,
		Size:     size,
		Grid:     grid,
		TileSize: size.Div(grid.Size()),
		Tiles:    make([]Tile, grid.Count()),
	}
	for i, piece := range GeneratePieces(seed, size, grid) {
		center := j.HomePos(i)
		mesh, outline, err := BuildMesh(piece.Polygon(), center, size)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
		j.Tiles[i] = Tile{
			Cell:    piece.Cell,
			Pos:     interp.New(center, geom.Zero),
			Mesh:    mesh,
			Outline: outline,
		}
	}
	return j, nil
}

// HomePos 拼好时第 i 块的中心位置
func (j *Jigsaw) HomePos(i int) geom.Vec2 {
	return j.Grid.Cell(i).Vec().Add(geom.V(0.5, 0.5)).Mul(j.TileSize)
}

func (j *Jigsaw) valid(i int) bool { return i >= 0 && i < len(j.Tiles) }

// ConnectedGroup 与 i 刚性相连的全部块（含 i 自身，i 在首位）。
// 连接关系可以有环，用显式工作队列 + visited 集合遍历。
func (j *Jigsaw) ConnectedGroup(i int) []int {
	if !j.valid(i) {
		return nil
	}
	visited := map[int]bool{i: true}
	group := []int{i}
	for head := 0; head < len(group); head++ {
		for _, n := range j.Tiles[group[head]].ConnectedTo {
			if !visited[n] && j.valid(n) {
				visited[n] = true
				group = append(group, n)
			}
		}
	}
	return group
}

// IsConnected a 与 b 直接相连
func (j *Jigsaw) IsConnected(a, b int) bool {
	if !j.valid(a) {
		return false
	}
	for _, n := range j.Tiles[a].ConnectedTo {
		if n == b {
			return true
		}
	}
	return false
}

// Connect 对称地记录一条连接；自连、越界、非相邻或已连接时返回 false
func (j *Jigsaw) Connect(a, b int) bool {
	if a == b || !j.Grid.Adjacent(a, b) || j.IsConnected(a, b) {
		return false
	}
	j.Tiles[a].ConnectedTo = append(j.Tiles[a].ConnectedTo, b)
	j.Tiles[b].ConnectedTo = append(j.Tiles[b].ConnectedTo, a)
	return true
}

// Offset 从 from 到 to 在拼好状态下的相对位移
func (j *Jigsaw) Offset(from, to int) geom.Vec2 {
	return j.Tiles[to].Cell.Sub(j.Tiles[from].Cell).Vec().Mul(j.TileSize)
}

// MoveTile 把 i 所在的整组刚性移动，使 i 的中心落在 pos。
// teleport 为 true 时立即生效，否则交给插值平滑。
func (j *Jigsaw) MoveTile(i int, pos geom.Vec2, teleport bool) {
	if !j.valid(i) {
		return
	}
	for _, m := range j.ConnectedGroup(i) {
		p := pos.Add(j.Offset(i, m))
		if teleport {
			j.Tiles[m].Pos.Teleport(p, geom.Zero)
		} else {
			j.Tiles[m].Pos.ServerUpdate(p, geom.Zero)
		}
	}
}

// Contains 点是否落在块 i 当前位置的网格内（逐个三角形测试，轮廓可能非凸）
func (j *Jigsaw) Contains(i int, p geom.Vec2) bool {
	if !j.valid(i) {
		return false
	}
	t := &j.Tiles[i]
	local := p.Sub(t.Pos.Get())
	for _, tri := range t.Mesh {
		if geom.TriangleContains(tri[0].Pos, tri[1].Pos, tri[2].Pos, local) {
			return true
		}
	}
	return false
}

// TileAt 点下最上层的块：多块重叠时取 LastInteraction 最大者，相同时取下标大者
func (j *Jigsaw) TileAt(p geom.Vec2) (int, bool) {
	best, found := -1, false
	for i := range j.Tiles {
		if !j.Contains(i, p) {
			continue
		}
		if !found || j.Tiles[i].LastInteraction >= j.Tiles[best].LastInteraction {
			best, found = i, true
		}
	}
	return best, found
}

// Touch 把 i 所在整组标记为最近交互，使其显示在最上层
func (j *Jigsaw) Touch(i int) {
	if !j.valid(i) {
		return
	}
	j.clock++
	for _, m := range j.ConnectedGroup(i) {
		j.Tiles[m].LastInteraction = j.clock
	}
}

// DrawOrder 绘制顺序：最近交互的块排在最后
func (j *Jigsaw) DrawOrder() []int {
	order := make([]int, len(j.Tiles))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return j.Tiles[order[a]].LastInteraction < j.Tiles[order[b]].LastInteraction
	})
	return order
}

// SnapCandidates i 所在组内每一块与其未直接相连的网格邻居之间，
// 位置误差（扣除应有的网格偏移后）不超过 dist 的配对
func (j *Jigsaw) SnapCandidates(i int, dist float64) [][2]int {
	var out [][2]int
	seen := make(map[[2]int]bool)
	for _, t := range j.ConnectedGroup(i) {
		pos := j.Tiles[t].Pos.Get()
		for _, n := range j.Grid.Neighbors(t) {
			if j.IsConnected(t, n) {
				continue
			}
			key := [2]int{min(t, n), max(t, n)}
			if seen[key] {
				continue
			}
			expected := j.Tiles[n].Pos.Get().Add(j.Offset(n, t))
			if pos.Sub(expected).Len() <= dist {
				seen[key] = true
				out = append(out, [2]int{t, n})
			}
		}
	}
	return out
}

// Update 推进所有块的插值
func (j *Jigsaw) Update(dt float64) {
	for i := range j.Tiles {
		j.Tiles[i].Pos.Update(dt)
	}
}

// Snapshot 当前状态转为线协议的块状态（位置取插值目标）
func (j *Jigsaw) Snapshot() []protocol.TileState {
	out := make([]protocol.TileState, len(j.Tiles))
	for i, t := range j.Tiles {
		out[i] = protocol.TileState{
			Pos:         t.Pos.Target(),
			Connections: append([]int(nil), t.ConnectedTo...),
		}
		if t.GrabbedBy != nil {
			owner := *t.GrabbedBy
			out[i].GrabbedBy = &owner
		}
	}
	return out
}

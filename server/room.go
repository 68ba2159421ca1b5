package server

import (
	"crypto/rand"
	mrand "math/rand/v2"
	"time"

	"puzzleparty/geom"
	"puzzleparty/protocol"
)

const (
	roomNameLen  = 16
	roomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// spawnDepth 初始散落区域（拼图下方的一条带）的高度
	spawnDepth = 3.0
)

// Room 一局拼图：配置创建后不可变，只有块的归属、连接与位置会变化。
// 房间不持有玩家引用，成员关系由玩家表中的 Room 字段推出。
type Room struct {
	Name      string
	Config    protocol.RoomConfig
	Tiles     []protocol.TileState
	CreatedAt time.Time
}

// NewRoom 创建房间，所有块随机散落在拼图范围之外的区域
func NewRoom(name string, cfg protocol.RoomConfig) *Room {
	size := cfg.PuzzleSize()
	tile := size.Div(cfg.Grid.Size())
	tiles := make([]protocol.TileState, cfg.Grid.Count())
	for i := range tiles {
		tiles[i] = protocol.TileState{
			Pos: geom.V(
				mrand.Float64()*size.X,
				size.Y+tile.Y+mrand.Float64()*spawnDepth,
			),
			Connections: []int{},
		}
	}
	return &Room{Name: name, Config: cfg, Tiles: tiles, CreatedAt: time.Now()}
}

// newRoomName 随机字母数字房间名
func newRoomName() string {
	b := make([]byte, roomNameLen)
	for i := 0; i < len(b); {
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			panic(err)
		}
		for _, c := range buf {
			// 拒绝采样，避免取模偏差
			if int(c) >= 256/len(roomAlphabet)*len(roomAlphabet) {
				continue
			}
			b[i] = roomAlphabet[int(c)%len(roomAlphabet)]
			i++
			if i == len(b) {
				break
			}
		}
	}
	return string(b)
}

func (r *Room) tile(i int) *protocol.TileState {
	if i < 0 || i >= len(r.Tiles) {
		return nil
	}
	return &r.Tiles[i]
}

func ownedBy(t *protocol.TileState, id protocol.PlayerID) bool {
	return t.GrabbedBy != nil && *t.GrabbedBy == id
}

// group 与 i 刚性相连的全部块，i 在首位
func (r *Room) group(i int) []int {
	visited := map[int]bool{i: true}
	out := []int{i}
	for head := 0; head < len(out); head++ {
		for _, n := range r.Tiles[out[head]].Connections {
			if !visited[n] {
				visited[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// grab 先到先得：块所在组内有人在拿，或 id 已经拿着别的块时失败
func (r *Room) grab(id protocol.PlayerID, i int) bool {
	t := r.tile(i)
	if t == nil {
		return false
	}
	for _, m := range r.group(i) {
		if r.Tiles[m].GrabbedBy != nil {
			return false
		}
	}
	for k := range r.Tiles {
		if ownedBy(&r.Tiles[k], id) {
			return false
		}
	}
	owner := id
	t.GrabbedBy = &owner
	return true
}

// release 应用一次松手：首项为主块，必须由 id 持有；其余项只更新位置。
// 返回被广播的主块更新。
func (r *Room) release(id protocol.PlayerID, updates []protocol.TileUpdate) (protocol.TileUpdate, bool) {
	if len(updates) == 0 {
		return protocol.TileUpdate{}, false
	}
	primary := updates[0]
	t := r.tile(primary.Tile)
	if t == nil || !ownedBy(t, id) || !primary.Pos.IsFinite() {
		return protocol.TileUpdate{}, false
	}
	t.GrabbedBy = nil
	for _, u := range updates {
		t := r.tile(u.Tile)
		if t == nil || !u.Pos.IsFinite() {
			continue
		}
		// 不动别人正拿着的块
		if t.GrabbedBy != nil && !ownedBy(t, id) {
			continue
		}
		t.Pos = u.Pos
	}
	return primary, true
}

// connect 对称追加连接并把合并后的组按网格偏移对齐到 b；
// 自连、越界、非网格相邻或已连接时忽略
func (r *Room) connect(a, b int) bool {
	if a == b || !r.Config.Grid.Adjacent(a, b) {
		return false
	}
	ta, tb := r.tile(a), r.tile(b)
	for _, n := range ta.Connections {
		if n == b {
			return false
		}
	}
	ta.Connections = append(ta.Connections, b)
	tb.Connections = append(tb.Connections, a)

	tile := r.Config.PuzzleSize().Div(r.Config.Grid.Size())
	home := r.Config.Grid.Cell(b)
	for _, m := range r.group(b) {
		d := r.Config.Grid.Cell(m).Sub(home).Vec().Mul(tile)
		r.Tiles[m].Pos = tb.Pos.Add(d)
	}
	return true
}

// releaseAll 释放 id 持有的全部块，返回被释放的块及其当前位置
func (r *Room) releaseAll(id protocol.PlayerID) []protocol.TileUpdate {
	var out []protocol.TileUpdate
	for i := range r.Tiles {
		if ownedBy(&r.Tiles[i], id) {
			r.Tiles[i].GrabbedBy = nil
			out = append(out, protocol.TileUpdate{Tile: i, Pos: r.Tiles[i].Pos})
		}
	}
	return out
}

// snapshot 块状态的深拷贝，可安全地交给连接的写协程编码
func (r *Room) snapshot() []protocol.TileState {
	out := make([]protocol.TileState, len(r.Tiles))
	for i, t := range r.Tiles {
		out[i] = protocol.TileState{
			Pos:         t.Pos,
			Connections: append([]int{}, t.Connections...),
		}
		if t.GrabbedBy != nil {
			owner := *t.GrabbedBy
			out[i].GrabbedBy = &owner
		}
	}
	return out
}

// stats 已被抓取的块数与连接边数
func (r *Room) stats() (grabbed, edges int) {
	for _, t := range r.Tiles {
		if t.GrabbedBy != nil {
			grabbed++
		}
		edges += len(t.Connections)
	}
	return grabbed, edges / 2
}

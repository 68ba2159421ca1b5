package client

import (
	"fmt"

	"go.uber.org/zap"

	"puzzleparty/geom"
	"puzzleparty/jigsaw"
	"puzzleparty/logging"
	"puzzleparty/protocol"
)

// Game 一个已加入房间的客户端会话。除连接的读协程外全部单协程访问
type Game struct {
	ID      protocol.PlayerID
	Config  protocol.RoomConfig
	Jigsaw  *jigsaw.Jigsaw
	Players map[protocol.PlayerID]*Player

	conn Conn
	log  *zap.SugaredLogger
}

// NewGame 用握手得到的 Setup 建立本地模型：按种子重建几何，再套用服务端快照
func NewGame(conn Conn, setup protocol.Setup, log *zap.SugaredLogger) (*Game, error) {
	if log == nil {
		log = logging.Log
	}
	cfg := setup.Config
	j, err := jigsaw.Generate(cfg.Seed, cfg.PuzzleSize(), cfg.Grid)
	if err != nil {
		return nil, fmt.Errorf("build puzzle: %w", err)
	}
	if len(setup.Tiles) != len(j.Tiles) {
		return nil, fmt.Errorf("%w: snapshot has %d tiles, puzzle has %d",
			ErrUnexpectedMessage, len(setup.Tiles), len(j.Tiles))
	}
	for i, ts := range setup.Tiles {
		t := &j.Tiles[i]
		t.Pos.Teleport(ts.Pos, geom.Zero)
		// 经 Connect 重建，保证对称且只连网格邻居
		for _, n := range ts.Connections {
			j.Connect(i, n)
		}
		if ts.GrabbedBy != nil {
			owner := *ts.GrabbedBy
			t.GrabbedBy = &owner
		}
	}
	aligned := make([]bool, len(j.Tiles))
	for i := range j.Tiles {
		if aligned[i] {
			continue
		}
		for _, m := range j.ConnectedGroup(i) {
			aligned[m] = true
		}
		j.MoveTile(i, j.Tiles[i].Pos.Get(), true)
	}
	g := &Game{
		ID:      setup.PlayerID,
		Config:  cfg,
		Jigsaw:  j,
		Players: make(map[protocol.PlayerID]*Player),
		conn:    conn,
		log:     log,
	}
	g.player(g.ID)
	return g, nil
}

// player 取出玩家记录，不存在则创建
func (g *Game) player(id protocol.PlayerID) *Player {
	p, ok := g.Players[id]
	if !ok {
		p = newPlayer(id)
		g.Players[id] = p
	}
	return p
}

// Me 本地玩家
func (g *Game) Me() *Player { return g.player(g.ID) }

func (g *Game) tile(i int) (*jigsaw.Tile, error) {
	if i < 0 || i >= len(g.Jigsaw.Tiles) {
		return nil, fmt.Errorf("%w: tile %d out of range", ErrUnexpectedMessage, i)
	}
	return &g.Jigsaw.Tiles[i], nil
}

// HandleConnection 应用所有已到达的服务端消息
func (g *Game) HandleConnection() error {
	for {
		m, ok := g.conn.TryRecv()
		if !ok {
			break
		}
		if err := g.apply(m); err != nil {
			return err
		}
	}
	if err := g.conn.Err(); err != nil {
		return fmt.Errorf("connection lost: %w", err)
	}
	return nil
}

func (g *Game) apply(m protocol.ServerMessage) error {
	switch m := m.(type) {
	case protocol.PlayerMoved:
		p := g.player(m.Player)
		if p.placed {
			p.Cursor.ServerUpdate(m.Pos, geom.Zero)
		} else {
			p.Cursor.Teleport(m.Pos, geom.Zero)
			p.placed = true
		}
	case protocol.PlayerRenamed:
		g.player(m.Player).Name = m.Name
	case protocol.PlayerDisconnected:
		delete(g.Players, m.Player)
	case protocol.TileGrabbed:
		t, err := g.tile(m.Tile)
		if err != nil {
			return err
		}
		owner := m.Player
		t.GrabbedBy = &owner
		g.Jigsaw.Touch(m.Tile)
		g.player(m.Player).Grab = &Grab{Tile: m.Tile, Offset: m.Offset}
	case protocol.TileReleased:
		t, err := g.tile(m.Tile)
		if err != nil {
			return err
		}
		t.GrabbedBy = nil
		if p, ok := g.Players[m.Player]; ok {
			p.Grab = nil
		}
		g.Jigsaw.Touch(m.Tile)
		g.Jigsaw.MoveTile(m.Tile, m.Pos, false)
	case protocol.TilesConnected:
		if _, err := g.tile(m.A); err != nil {
			return err
		}
		if _, err := g.tile(m.B); err != nil {
			return err
		}
		if g.Jigsaw.Connect(m.A, m.B) {
			// 把新合并的组对齐到 B 的位置
			target := g.Jigsaw.Tiles[m.B].Pos.Target().Add(g.Jigsaw.Offset(m.B, m.A))
			g.Jigsaw.MoveTile(m.A, target, false)
		}
	default:
		return fmt.Errorf("%w: %s after join", ErrUnexpectedMessage, m.Kind())
	}
	return nil
}

// Update 推进一帧：处理网络消息，校正抓取状态，让被抓的块跟随光标，再推进插值
func (g *Game) Update(dt float64) error {
	if err := g.HandleConnection(); err != nil {
		return err
	}
	type follow struct {
		tile int
		pos  geom.Vec2
	}
	var moves []follow
	for _, p := range g.Players {
		p.Cursor.Update(dt)
		if p.Grab == nil {
			continue
		}
		t := &g.Jigsaw.Tiles[p.Grab.Tile]
		// 本地乐观抓取被别人抢先时，这里放手
		if t.GrabbedBy == nil || *t.GrabbedBy != p.ID {
			p.Grab = nil
			continue
		}
		moves = append(moves, follow{tile: p.Grab.Tile, pos: p.Cursor.Get().Add(p.Grab.Offset)})
	}
	for _, m := range moves {
		g.Jigsaw.MoveTile(m.tile, m.pos, true)
	}
	g.Jigsaw.Update(dt)
	return nil
}

// PointerMove 本地光标移动
func (g *Game) PointerMove(pos geom.Vec2) error {
	me := g.Me()
	me.Cursor.Teleport(pos, geom.Zero)
	me.placed = true
	return g.conn.Send(protocol.UpdatePos{Pos: pos})
}

// PointerDown 抓起光标下最上层的块（乐观预测，服务端可能拒绝）
func (g *Game) PointerDown(pos geom.Vec2) error {
	me := g.Me()
	if err := g.PointerMove(pos); err != nil {
		return err
	}
	if me.Grab != nil {
		return nil
	}
	i, ok := g.Jigsaw.TileAt(pos)
	if !ok {
		return nil
	}
	// 组内任意一块被占用都不能抓，服务端同样会拒绝
	for _, m := range g.Jigsaw.ConnectedGroup(i) {
		if g.Jigsaw.Tiles[m].GrabbedBy != nil {
			return nil
		}
	}
	t := &g.Jigsaw.Tiles[i]
	g.Jigsaw.Touch(i)
	offset := t.Pos.Get().Sub(pos)
	me.Grab = &Grab{Tile: i, Offset: offset}
	owner := g.ID
	t.GrabbedBy = &owner
	return g.conn.Send(protocol.GrabTile{Tile: i, Offset: offset})
}

// PointerUp 松手：上报整组的最终位置（主块在前），再为够近的相邻块提出连接
func (g *Game) PointerUp(pos geom.Vec2) error {
	me := g.Me()
	me.Cursor.Teleport(pos, geom.Zero)
	grab := me.Grab
	if grab == nil {
		return nil
	}
	me.Grab = nil
	t := &g.Jigsaw.Tiles[grab.Tile]
	if t.GrabbedBy == nil || *t.GrabbedBy != g.ID {
		return nil
	}
	t.GrabbedBy = nil
	g.Jigsaw.MoveTile(grab.Tile, pos.Add(grab.Offset), true)

	group := g.Jigsaw.ConnectedGroup(grab.Tile)
	updates := make([]protocol.TileUpdate, 0, len(group))
	for _, m := range group {
		updates = append(updates, protocol.TileUpdate{Tile: m, Pos: g.Jigsaw.Tiles[m].Pos.Get()})
	}
	if err := g.conn.Send(protocol.ReleaseTiles{Updates: updates}); err != nil {
		return err
	}
	for _, pair := range g.Jigsaw.SnapCandidates(grab.Tile, jigsaw.SnapDistance) {
		g.log.Debugf("propose connection %d-%d", pair[0], pair[1])
		if err := g.conn.Send(protocol.ConnectTiles{A: pair[0], B: pair[1]}); err != nil {
			return err
		}
	}
	return nil
}

// SetName 修改本地玩家名并通知房间
func (g *Game) SetName(name string) error {
	g.Me().Name = name
	return g.conn.Send(protocol.UpdateName{Name: name})
}

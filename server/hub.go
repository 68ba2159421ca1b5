package server

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"puzzleparty/jigsaw"
	"puzzleparty/logging"
	"puzzleparty/protocol"
)

var ErrRoomExists = errors.New("server: room already exists")

// Options Hub 的可选配置
type Options struct {
	MaxTiles int                // 单房间最大块数，<=0 不限制
	Log      *zap.SugaredLogger // 为空时使用 logging.Log
}

// Hub 权威状态：全部房间与玩家。所有修改都在同一把粗粒度锁下进行，
// 不同房间之间也串行；房间之间没有共享状态，需要时可按房间拆锁。
type Hub struct {
	mu      deadlock.Mutex
	nextID  protocol.PlayerID
	players map[protocol.PlayerID]*Player
	rooms   map[string]*Room

	maxTiles int
	metrics  *Metrics
	log      *zap.SugaredLogger
	newName  func() string
}

// NewHub 创建空的 Hub
func NewHub(opts Options) *Hub {
	log := opts.Log
	if log == nil {
		log = logging.Log
	}
	return &Hub{
		players:  make(map[protocol.PlayerID]*Player),
		rooms:    make(map[string]*Room),
		maxTiles: opts.MaxTiles,
		metrics:  &Metrics{},
		log:      log,
		newName:  newRoomName,
	}
}

// Metrics 运行指标
func (h *Hub) Metrics() *Metrics { return h.metrics }

// Connect 为新连接登记玩家并分配 ID
func (h *Hub) Connect(conn Sender) *Player {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	p := &Player{ID: h.nextID, Session: uuid.New(), Conn: conn}
	h.players[p.ID] = p
	h.metrics.Connections.Add(1)
	h.log.Infow("player connected", "player", p.ID, "session", p.Session)
	return p
}

// Disconnect 连接断开：移除玩家，释放其持有的块，并通知同房间的其他玩家
func (h *Hub) Disconnect(id protocol.PlayerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[id]
	if !ok {
		return
	}
	h.leaveRoom(p)
	delete(h.players, id)
	h.metrics.Disconnects.Add(1)
	h.log.Infow("player disconnected", "player", id, "session", p.Session)
}

// leaveRoom 玩家离开当前房间（断线或切换房间）
func (h *Hub) leaveRoom(p *Player) {
	room, ok := h.rooms[p.Room]
	if !ok {
		p.Room = ""
		return
	}
	for _, u := range room.releaseAll(p.ID) {
		h.metrics.TilesReclaimed.Add(1)
		h.broadcast(room.Name, p.ID, protocol.TileReleased{Player: p.ID, Tile: u.Tile, Pos: u.Pos})
	}
	h.broadcast(room.Name, p.ID, protocol.PlayerDisconnected{Player: p.ID})
	p.Room = ""
}

// broadcast 发送给房间内除 except 之外的所有玩家；except 为 nobody 时包括全部成员
func (h *Hub) broadcast(room string, except protocol.PlayerID, m protocol.ServerMessage) {
	if room == "" {
		return
	}
	for _, p := range h.players {
		if p.ID != except && p.Room == room {
			h.send(p, m)
		}
	}
}

func (h *Hub) send(p *Player, m protocol.ServerMessage) {
	if p.Conn != nil {
		p.Conn.Send(m)
	}
}

// CreateRoom 校验配置（含一次完整几何生成），以随机名创建房间并返回房间名
func (h *Hub) CreateRoom(cfg protocol.RoomConfig) (string, error) {
	if err := h.validate(cfg); err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		name := h.newName()
		if _, exists := h.rooms[name]; exists {
			h.log.Warnf("room name collision: %s", name)
			continue
		}
		h.addRoom(name, cfg)
		return name, nil
	}
}

// CreateNamedRoom 以指定名称创建房间（启动预设、管理接口）
func (h *Hub) CreateNamedRoom(name string, cfg protocol.RoomConfig) error {
	if name == "" {
		return fmt.Errorf("%w: empty room name", protocol.ErrInvalidConfig)
	}
	if err := h.validate(cfg); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.rooms[name]; exists {
		return fmt.Errorf("%w: %s", ErrRoomExists, name)
	}
	h.addRoom(name, cfg)
	return nil
}

func (h *Hub) validate(cfg protocol.RoomConfig) error {
	if err := cfg.Validate(h.maxTiles); err != nil {
		return err
	}
	// 几何生成失败意味着生成器本身有缺陷，这样的配置不能交给客户端
	if _, err := jigsaw.Generate(cfg.Seed, cfg.PuzzleSize(), cfg.Grid); err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrInvalidConfig, err)
	}
	return nil
}

func (h *Hub) addRoom(name string, cfg protocol.RoomConfig) {
	h.rooms[name] = NewRoom(name, cfg)
	h.metrics.RoomsCreated.Add(1)
	h.log.Infof("room created: name=%s seed=%d grid=%dx%d image=%d",
		name, cfg.Seed, cfg.Grid.Cols, cfg.Grid.Rows, cfg.Image)
}

// Handle 处理某个玩家的一条消息。同一连接的消息按到达顺序调用
func (h *Hub) Handle(id protocol.PlayerID, msg protocol.ClientMessage) {
	h.metrics.MessagesIn.Add(1)
	if m, ok := msg.(protocol.CreateRoom); ok {
		h.handleCreateRoom(id, m)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[id]
	if !ok {
		return
	}
	switch m := msg.(type) {
	case protocol.SelectRoom:
		h.selectRoom(p, m.Room)
	case protocol.UpdatePos:
		if !m.Pos.IsFinite() {
			return
		}
		h.broadcast(p.Room, p.ID, protocol.PlayerMoved{Player: p.ID, Pos: m.Pos})
	case protocol.UpdateName:
		p.Name = m.Name
		h.broadcast(p.Room, p.ID, protocol.PlayerRenamed{Player: p.ID, Name: m.Name})
	case protocol.GrabTile:
		room, ok := h.rooms[p.Room]
		if !ok || !m.Offset.IsFinite() || !room.grab(p.ID, m.Tile) {
			h.metrics.GrabsRejected.Add(1)
			return
		}
		h.metrics.GrabsAccepted.Add(1)
		h.broadcast(room.Name, p.ID, protocol.TileGrabbed{Player: p.ID, Tile: m.Tile, Offset: m.Offset})
	case protocol.ReleaseTiles:
		room, ok := h.rooms[p.Room]
		if !ok {
			h.metrics.ReleasesRejected.Add(1)
			return
		}
		primary, ok := room.release(p.ID, m.Updates)
		if !ok {
			h.metrics.ReleasesRejected.Add(1)
			return
		}
		h.metrics.Releases.Add(1)
		h.broadcast(room.Name, p.ID, protocol.TileReleased{Player: p.ID, Tile: primary.Tile, Pos: primary.Pos})
	case protocol.ConnectTiles:
		room, ok := h.rooms[p.Room]
		if !ok || !room.connect(m.A, m.B) {
			h.metrics.ConnectsRejected.Add(1)
			return
		}
		h.metrics.Connects.Add(1)
		h.broadcast(room.Name, nobody, protocol.TilesConnected{A: m.A, B: m.B})
	default:
		h.log.Warnf("unhandled message %s from player %d", msg.Kind(), id)
	}
}

func (h *Hub) handleCreateRoom(id protocol.PlayerID, m protocol.CreateRoom) {
	name, err := h.CreateRoom(m.Config)

	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.players[id]
	if !ok {
		return
	}
	if err != nil {
		h.metrics.RoomsRejected.Add(1)
		h.log.Warnf("create room rejected for player %d: %v", id, err)
		h.send(p, protocol.Error{Message: err.Error()})
		return
	}
	h.send(p, protocol.RoomCreated{Name: name})
}

// selectRoom 加入房间：回复 ID、配置与完整快照，并互相交换玩家名
func (h *Hub) selectRoom(p *Player, name string) {
	room, ok := h.rooms[name]
	if !ok {
		h.metrics.RoomNotFound.Add(1)
		h.send(p, protocol.RoomNotFound{Room: name})
		return
	}
	if p.Room != "" && p.Room != name {
		h.leaveRoom(p)
	}
	p.Room = room.Name
	h.metrics.Joins.Add(1)
	h.send(p, protocol.Setup{PlayerID: p.ID, Config: room.Config, Tiles: room.snapshot()})
	for _, other := range h.players {
		if other.ID == p.ID || other.Room != room.Name {
			continue
		}
		h.send(p, protocol.PlayerRenamed{Player: other.ID, Name: other.Name})
		h.send(other, protocol.PlayerRenamed{Player: p.ID, Name: p.Name})
	}
	h.log.Infow("player joined room", "player", p.ID, "room", room.Name)
}

// RoomInfo 管理接口输出的房间概况
type RoomInfo struct {
	Name        string               `json:"name"`
	Config      protocol.RoomConfig  `json:"config"`
	Players     []PlayerInfo         `json:"players"`
	Grabbed     int                  `json:"grabbed"`
	Connections int                  `json:"connections"`
	Tiles       []protocol.TileState `json:"tiles,omitempty"`
}

func (h *Hub) roomInfo(r *Room, withTiles bool) RoomInfo {
	info := RoomInfo{Name: r.Name, Config: r.Config, Players: []PlayerInfo{}}
	info.Grabbed, info.Connections = r.stats()
	for _, p := range h.players {
		if p.Room == r.Name {
			info.Players = append(info.Players, p.info())
		}
	}
	sort.Slice(info.Players, func(i, j int) bool { return info.Players[i].ID < info.Players[j].ID })
	if withTiles {
		info.Tiles = r.snapshot()
	}
	return info
}

// Rooms 全部房间概况，按名称排序
func (h *Hub) Rooms() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for _, r := range h.rooms {
		out = append(out, h.roomInfo(r, false))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Room 单个房间的概况与完整块状态
func (h *Hub) Room(name string) (RoomInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[name]
	if !ok {
		return RoomInfo{}, false
	}
	return h.roomInfo(r, true), true
}

// Close 关闭所有玩家连接
func (h *Hub) Close() error {
	h.mu.Lock()
	conns := make([]io.Closer, 0, len(h.players))
	for _, p := range h.players {
		if c, ok := p.Conn.(io.Closer); ok {
			conns = append(conns, c)
		}
	}
	h.mu.Unlock()

	var err error
	for _, c := range conns {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// Package protocol 定义客户端与服务端之间的消息及其编码
package protocol

import "puzzleparty/geom"

// PlayerID 服务端为每个连接分配的单调递增 ID
type PlayerID uint64

// Message 所有线上消息的公共接口，Kind 作为信封中的 type 字段
type Message interface {
	Kind() string
}

// ClientMessage 客户端 -> 服务端
type ClientMessage interface {
	Message
	clientMessage()
}

// ServerMessage 服务端 -> 客户端
type ServerMessage interface {
	Message
	serverMessage()
}

// TileState 服务端权威的单块状态
type TileState struct {
	GrabbedBy   *PlayerID `json:"grabbedBy,omitempty"`
	Pos         geom.Vec2 `json:"pos"`
	Connections []int     `json:"connections"`
}

// TileUpdate 松手时一块的最终位置
type TileUpdate struct {
	Tile int       `json:"tile"`
	Pos  geom.Vec2 `json:"pos"`
}

// ---- 客户端消息 ----

type SelectRoom struct {
	Room string `json:"room"`
}

type CreateRoom struct {
	Config RoomConfig `json:"config"`
}

type UpdatePos struct {
	Pos geom.Vec2 `json:"pos"`
}

type UpdateName struct {
	Name string `json:"name"`
}

type GrabTile struct {
	Tile   int       `json:"tile"`
	Offset geom.Vec2 `json:"offset"`
}

// ReleaseTiles 首项为主块，其余为随之一起拖动的同组块
type ReleaseTiles struct {
	Updates []TileUpdate `json:"updates"`
}

type ConnectTiles struct {
	A int `json:"a"`
	B int `json:"b"`
}

// ---- 服务端消息 ----

// Setup 加入房间成功：分配的 ID、房间配置、完整块状态快照
type Setup struct {
	PlayerID PlayerID    `json:"playerId"`
	Config   RoomConfig  `json:"config"`
	Tiles    []TileState `json:"tiles"`
}

type RoomNotFound struct {
	Room string `json:"room"`
}

type RoomCreated struct {
	Name string `json:"name"`
}

// Error 请求被拒绝（例如房间配置非法）
type Error struct {
	Message string `json:"message"`
}

type PlayerDisconnected struct {
	Player PlayerID `json:"player"`
}

type PlayerMoved struct {
	Player PlayerID  `json:"player"`
	Pos    geom.Vec2 `json:"pos"`
}

type PlayerRenamed struct {
	Player PlayerID `json:"player"`
	Name   string   `json:"name"`
}

type TileGrabbed struct {
	Player PlayerID  `json:"player"`
	Tile   int       `json:"tile"`
	Offset geom.Vec2 `json:"offset"`
}

type TileReleased struct {
	Player PlayerID  `json:"player"`
	Tile   int       `json:"tile"`
	Pos    geom.Vec2 `json:"pos"`
}

type TilesConnected struct {
	A int `json:"a"`
	B int `json:"b"`
}

const (
	KindSelectRoom   = "select_room"
	KindCreateRoom   = "create_room"
	KindUpdatePos    = "update_pos"
	KindUpdateName   = "update_name"
	KindGrabTile     = "grab_tile"
	KindReleaseTiles = "release_tiles"
	KindConnectTiles = "connect_tiles"

	KindSetup              = "setup"
	KindRoomNotFound       = "room_not_found"
	KindRoomCreated        = "room_created"
	KindError              = "error"
	KindPlayerDisconnected = "player_disconnected"
	KindPlayerMoved        = "player_moved"
	KindPlayerRenamed      = "player_renamed"
	KindTileGrabbed        = "tile_grabbed"
	KindTileReleased       = "tile_released"
	KindTilesConnected     = "tiles_connected"
)

func (SelectRoom) Kind() string   { return KindSelectRoom }
func (CreateRoom) Kind() string   { return KindCreateRoom }
func (UpdatePos) Kind() string    { return KindUpdatePos }
func (UpdateName) Kind() string   { return KindUpdateName }
func (GrabTile) Kind() string     { return KindGrabTile }
func (ReleaseTiles) Kind() string { return KindReleaseTiles }
func (ConnectTiles) Kind() string { return KindConnectTiles }

func (Setup) Kind() string              { return KindSetup }
func (RoomNotFound) Kind() string       { return KindRoomNotFound }
func (RoomCreated) Kind() string        { return KindRoomCreated }
func (Error) Kind() string              { return KindError }
func (PlayerDisconnected) Kind() string { return KindPlayerDisconnected }
func (PlayerMoved) Kind() string        { return KindPlayerMoved }
func (PlayerRenamed) Kind() string      { return KindPlayerRenamed }
func (TileGrabbed) Kind() string        { return KindTileGrabbed }
func (TileReleased) Kind() string       { return KindTileReleased }
func (TilesConnected) Kind() string     { return KindTilesConnected }

func (SelectRoom) clientMessage()   {}
func (CreateRoom) clientMessage()   {}
func (UpdatePos) clientMessage()    {}
func (UpdateName) clientMessage()   {}
func (GrabTile) clientMessage()     {}
func (ReleaseTiles) clientMessage() {}
func (ConnectTiles) clientMessage() {}

func (Setup) serverMessage()              {}
func (RoomNotFound) serverMessage()       {}
func (RoomCreated) serverMessage()        {}
func (Error) serverMessage()              {}
func (PlayerDisconnected) serverMessage() {}
func (PlayerMoved) serverMessage()        {}
func (PlayerRenamed) serverMessage()      {}
func (TileGrabbed) serverMessage()        {}
func (TileReleased) serverMessage()       {}
func (TilesConnected) serverMessage()     {}

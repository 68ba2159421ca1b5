package client

import (
	"puzzleparty/geom"
	"puzzleparty/interp"
	"puzzleparty/protocol"
)

// Grab 玩家当前抓着的块，Offset 为块中心相对光标的位移
type Grab struct {
	Tile   int
	Offset geom.Vec2
}

// Player 客户端看到的玩家（含自己）
type Player struct {
	ID     protocol.PlayerID
	Name   string
	Color  string
	Cursor interp.Interpolated
	Grab   *Grab

	// placed 是否已收到过光标位置；首个位置直接跳过去，不从原点滑入
	placed bool
}

func newPlayer(id protocol.PlayerID) *Player {
	return &Player{
		ID:     id,
		Color:  protocol.PlayerColor(id),
		Cursor: interp.New(geom.Zero, geom.Zero),
	}
}

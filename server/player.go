package server

import (
	"github.com/google/uuid"

	"puzzleparty/protocol"
)

// nobody 不对应任何玩家，ID 从 1 开始分配
const nobody protocol.PlayerID = 0

// Sender 玩家连接的发送端；实现必须非阻塞
type Sender interface {
	Send(m protocol.ServerMessage)
}

// Player 服务端的玩家记录，随连接创建、随连接销毁
type Player struct {
	ID      protocol.PlayerID
	Session uuid.UUID // 连接会话标识，仅用于日志与管理接口
	Room    string    // 当前所在房间，空串表示尚未加入
	Name    string

	Conn Sender
}

// PlayerInfo 管理接口输出的玩家信息
type PlayerInfo struct {
	ID      protocol.PlayerID `json:"id"`
	Name    string            `json:"name"`
	Color   string            `json:"color"`
	Session string            `json:"session"`
}

func (p *Player) info() PlayerInfo {
	return PlayerInfo{
		ID:      p.ID,
		Name:    p.Name,
		Color:   protocol.PlayerColor(p.ID),
		Session: p.Session.String(),
	}
}

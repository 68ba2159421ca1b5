package server

import (
	"sync/atomic"
)

// Metrics 记录服务端运行期的关键指标（用于监控与调试）
type Metrics struct {
	Connections      atomic.Int64 // 建立的连接数
	Disconnects      atomic.Int64 // 断开的连接数
	MessagesIn       atomic.Int64 // 成功解码的入站消息
	DecodeErrors     atomic.Int64 // 无法解码的入站帧
	FramesOut        atomic.Int64 // 入队的出站帧
	SlowConsumers    atomic.Int64 // 因发送队列满被关闭的连接
	RoomsCreated     atomic.Int64
	RoomsRejected    atomic.Int64 // 配置非法被拒绝的建房请求
	RoomNotFound     atomic.Int64
	Joins            atomic.Int64
	GrabsAccepted    atomic.Int64
	GrabsRejected    atomic.Int64 // 块已被占用或下标越界
	Releases         atomic.Int64
	ReleasesRejected atomic.Int64 // 主块不属于请求者
	Connects         atomic.Int64
	ConnectsRejected atomic.Int64 // 重复、自连、非相邻或越界
	TilesReclaimed   atomic.Int64 // 断线时释放的块
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"connections":       m.Connections.Load(),
		"disconnects":       m.Disconnects.Load(),
		"messages_in":       m.MessagesIn.Load(),
		"decode_errors":     m.DecodeErrors.Load(),
		"frames_out":        m.FramesOut.Load(),
		"slow_consumers":    m.SlowConsumers.Load(),
		"rooms_created":     m.RoomsCreated.Load(),
		"rooms_rejected":    m.RoomsRejected.Load(),
		"room_not_found":    m.RoomNotFound.Load(),
		"joins":             m.Joins.Load(),
		"grabs_accepted":    m.GrabsAccepted.Load(),
		"grabs_rejected":    m.GrabsRejected.Load(),
		"releases":          m.Releases.Load(),
		"releases_rejected": m.ReleasesRejected.Load(),
		"connects":          m.Connects.Load(),
		"connects_rejected": m.ConnectsRejected.Load(),
		"tiles_reclaimed":   m.TilesReclaimed.Load(),
	}
}

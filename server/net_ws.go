package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"puzzleparty/protocol"
)

const (
	sendQueueSize = 256
	writeWait     = 5 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 50 * time.Second
	maxFrameSize  = 1 << 20 // 1MB
)

type frame struct {
	binary bool
	data   []byte
}

// ClientConn 一条 WebSocket 连接：Send 只负责编码入队，写协程负责真正写出
type ClientConn struct {
	ws      *websocket.Conn
	codec   protocol.Codec
	metrics *Metrics
	log     *zap.SugaredLogger

	mu     sync.Mutex
	send   chan frame
	closed bool
}

func NewClientConn(ws *websocket.Conn, codec protocol.Codec, metrics *Metrics, log *zap.SugaredLogger) *ClientConn {
	return &ClientConn{
		ws:      ws,
		codec:   codec,
		metrics: metrics,
		log:     log,
		send:    make(chan frame, sendQueueSize),
	}
}

// Send 编码并入队（非阻塞）。队列满说明对端跟不上，丢帧会破坏状态一致性，
// 因此直接关闭连接，由客户端重连后重新拿快照。
func (c *ClientConn) Send(m protocol.ServerMessage) {
	data, err := c.codec.Encode(m)
	if err != nil {
		c.log.Errorf("encode %s: %v", m.Kind(), err)
		return
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.send <- frame{binary: c.codec.Binary(), data: data}:
		c.mu.Unlock()
		c.metrics.FramesOut.Add(1)
	default:
		c.mu.Unlock()
		c.metrics.SlowConsumers.Add(1)
		c.log.Warnf("send queue full, closing connection %s", c.ws.RemoteAddr())
		_ = c.Close()
	}
}

// Close 结束写协程并关闭底层连接，可重复调用
func (c *ClientConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

func (c *ClientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case f, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			typ := websocket.TextMessage
			if f.binary {
				typ = websocket.BinaryMessage
			}
			if err := c.ws.WriteMessage(typ, f.data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 解码客户端消息并按到达顺序交给 Hub
func (c *ClientConn) readPump(h *Hub, id protocol.PlayerID) {
	defer func() {
		h.Disconnect(id)
		_ = c.Close()
		_ = c.ws.Close()
	}()
	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debugf("read: %v", err)
			}
			return
		}
		msg, err := protocol.DecodeClient(c.codec, payload)
		if err != nil {
			h.metrics.DecodeErrors.Add(1)
			c.log.Warnf("bad frame: %v", err)
			continue
		}
		h.Handle(id, msg)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 浏览器客户端可能来自任意静态站点
		return true
	},
}

// HandleWS WebSocket 接入：/ws?codec=json|msgpack
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	codec, err := protocol.CodecByName(r.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("upgrade error: %v", err)
		return
	}

	client := NewClientConn(ws, codec, h.metrics, h.log)
	p := h.Connect(client)
	// 加入房间之前没有别的协程会向它发送，此时替换 logger 是安全的
	client.log = h.log.With("player", p.ID, "session", p.Session)

	go client.writePump()
	go client.readPump(h, p.ID)
}

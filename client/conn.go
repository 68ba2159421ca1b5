// Package client 实现拼图客户端：连接与握手、本地拼图模型的同步与预测、帧循环，
// 以及用于压测和演示的无界面机器人。
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"puzzleparty/logging"
	"puzzleparty/protocol"
)

var (
	ErrRoomNotFound      = errors.New("client: room not found")
	ErrRoomRejected      = errors.New("client: room creation rejected")
	ErrUnexpectedMessage = errors.New("client: unexpected message")
	ErrClosed            = errors.New("client: connection closed")
)

const (
	incomingQueueSize = 256
	writeWait         = 5 * time.Second
)

// Conn 游戏循环使用的连接：发送可以同步完成，接收必须非阻塞
type Conn interface {
	Send(m protocol.ClientMessage) error
	TryRecv() (protocol.ServerMessage, bool)
	// Err 连接断开后返回原因，否则为 nil
	Err() error
}

// WSConn 基于 WebSocket 的 Conn。读协程只负责解码入队，游戏状态只在调用方的协程里修改
type WSConn struct {
	ws    *websocket.Conn
	codec protocol.Codec
	log   *zap.SugaredLogger

	incoming chan protocol.ServerMessage
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Dial 连接服务端，addr 形如 ws://host:1155/ws
func Dial(ctx context.Context, addr string, codec protocol.Codec, log *zap.SugaredLogger) (*WSConn, error) {
	if log == nil {
		log = logging.Log
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	q := u.Query()
	q.Set("codec", codec.Name())
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	c := &WSConn{
		ws:       ws,
		codec:    codec,
		log:      log,
		incoming: make(chan protocol.ServerMessage, incomingQueueSize),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *WSConn) readLoop() {
	defer close(c.incoming)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.setErr(err)
			return
		}
		m, err := protocol.DecodeServer(c.codec, data)
		if err != nil {
			c.log.Warnf("drop bad frame from server: %v", err)
			continue
		}
		select {
		case c.incoming <- m:
		case <-c.done:
			c.setErr(ErrClosed)
			return
		}
	}
}

func (c *WSConn) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *WSConn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Send 编码并同步写出一条消息
func (c *WSConn) Send(m protocol.ClientMessage) error {
	data, err := c.codec.Encode(m)
	if err != nil {
		return err
	}
	typ := websocket.TextMessage
	if c.codec.Binary() {
		typ = websocket.BinaryMessage
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(typ, data); err != nil {
		return fmt.Errorf("send %s: %w", m.Kind(), err)
	}
	return nil
}

// TryRecv 取出一条已到达的消息，没有则立即返回 false
func (c *WSConn) TryRecv() (protocol.ServerMessage, bool) {
	select {
	case m, ok := <-c.incoming:
		return m, ok
	default:
		return nil, false
	}
}

// Recv 阻塞等待下一条消息，仅用于握手阶段
func (c *WSConn) Recv(ctx context.Context) (protocol.ServerMessage, error) {
	select {
	case m, ok := <-c.incoming:
		if !ok {
			if err := c.Err(); err != nil {
				return nil, err
			}
			return nil, ErrClosed
		}
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close 发送关闭帧并关闭底层连接，可重复调用
func (c *WSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		err = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = multierr.Append(err, c.ws.Close())
	})
	return err
}

// Join 加入房间并等待 Setup
func Join(ctx context.Context, c *WSConn, room string) (protocol.Setup, error) {
	if err := c.Send(protocol.SelectRoom{Room: room}); err != nil {
		return protocol.Setup{}, err
	}
	m, err := c.Recv(ctx)
	if err != nil {
		return protocol.Setup{}, fmt.Errorf("join %s: %w", room, err)
	}
	switch m := m.(type) {
	case protocol.Setup:
		return m, nil
	case protocol.RoomNotFound:
		return protocol.Setup{}, fmt.Errorf("%w: %s", ErrRoomNotFound, m.Room)
	default:
		return protocol.Setup{}, fmt.Errorf("%w: %s during join", ErrUnexpectedMessage, m.Kind())
	}
}

// CreateRoom 请求建房，返回服务端生成的房间名
func CreateRoom(ctx context.Context, c *WSConn, cfg protocol.RoomConfig) (string, error) {
	if err := c.Send(protocol.CreateRoom{Config: cfg}); err != nil {
		return "", err
	}
	m, err := c.Recv(ctx)
	if err != nil {
		return "", fmt.Errorf("create room: %w", err)
	}
	switch m := m.(type) {
	case protocol.RoomCreated:
		return m.Name, nil
	case protocol.Error:
		return "", fmt.Errorf("%w: %s", ErrRoomRejected, m.Message)
	default:
		return "", fmt.Errorf("%w: %s during room creation", ErrUnexpectedMessage, m.Kind())
	}
}

package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

var ErrUnknownMessage = errors.New("protocol: unknown message type")

// Codec 消息信封编解码：{"type": Kind, "payload": ...}
type Codec interface {
	Name() string
	// Binary 为 true 时使用 WebSocket 二进制帧
	Binary() bool
	Encode(m Message) ([]byte, error)
	// Decode 拆出信封，返回消息类型与负载解码函数
	Decode(data []byte) (kind string, payload func(v any) error, err error)
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// CodecByName 按名称选择编码（"json" / "msgpack"），空串为 json
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("protocol: unknown codec %q", name)
}

type jsonEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	return json.Marshal(jsonEnvelope{Type: m.Kind(), Payload: payload})
}

func (jsonCodec) Decode(data []byte) (string, func(any) error, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("decode envelope: %w", err)
	}
	return env.Type, func(v any) error {
		if len(env.Payload) == 0 {
			return nil
		}
		return json.Unmarshal(env.Payload, v)
	}, nil
}

type msgpackEnvelope struct {
	Type    string             `json:"type"`
	Payload msgpack.RawMessage `json:"payload"`
}

// msgpackCodec 二进制编码，字段名沿用 json 标签，与 JSON 编码保持一致
type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (c msgpackCodec) Encode(m Message) ([]byte, error) {
	payload, err := c.marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	return c.marshal(msgpackEnvelope{Type: m.Kind(), Payload: payload})
}

func (c msgpackCodec) Decode(data []byte) (string, func(any) error, error) {
	var env msgpackEnvelope
	if err := c.unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("decode envelope: %w", err)
	}
	return env.Type, func(v any) error {
		if len(env.Payload) == 0 {
			return nil
		}
		return c.unmarshal(env.Payload, v)
	}, nil
}

func decodeAs[T Message](payload func(any) error) (Message, error) {
	var m T
	if err := payload(&m); err != nil {
		return nil, err
	}
	return m, nil
}

type decoder func(payload func(any) error) (Message, error)

var clientDecoders = map[string]decoder{
	KindSelectRoom:   decodeAs[SelectRoom],
	KindCreateRoom:   decodeAs[CreateRoom],
	KindUpdatePos:    decodeAs[UpdatePos],
	KindUpdateName:   decodeAs[UpdateName],
	KindGrabTile:     decodeAs[GrabTile],
	KindReleaseTiles: decodeAs[ReleaseTiles],
	KindConnectTiles: decodeAs[ConnectTiles],
}

var serverDecoders = map[string]decoder{
	KindSetup:              decodeAs[Setup],
	KindRoomNotFound:       decodeAs[RoomNotFound],
	KindRoomCreated:        decodeAs[RoomCreated],
	KindError:              decodeAs[Error],
	KindPlayerDisconnected: decodeAs[PlayerDisconnected],
	KindPlayerMoved:        decodeAs[PlayerMoved],
	KindPlayerRenamed:      decodeAs[PlayerRenamed],
	KindTileGrabbed:        decodeAs[TileGrabbed],
	KindTileReleased:       decodeAs[TileReleased],
	KindTilesConnected:     decodeAs[TilesConnected],
}

func decodeWith(c Codec, data []byte, table map[string]decoder) (Message, error) {
	kind, payload, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	dec, ok := table[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, kind)
	}
	m, err := dec(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return m, nil
}

// DecodeClient 解码客户端发来的一帧
func DecodeClient(c Codec, data []byte) (ClientMessage, error) {
	m, err := decodeWith(c, data, clientDecoders)
	if err != nil {
		return nil, err
	}
	return m.(ClientMessage), nil
}

// DecodeServer 解码服务端发来的一帧
func DecodeServer(c Codec, data []byte) (ServerMessage, error) {
	m, err := decodeWith(c, data, serverDecoders)
	if err != nil {
		return nil, err
	}
	return m.(ServerMessage), nil
}

package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"puzzleparty/geom"
	"puzzleparty/protocol"
	"puzzleparty/server"
)

func startServer(t *testing.T) (*server.Hub, string) {
	t.Helper()
	hub := server.NewHub(server.Options{MaxTiles: 100})
	if err := hub.CreateNamedRoom("r", twoByOne); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(server.NewRouter(hub))
	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialTest(t *testing.T, addr string, codec protocol.Codec) *WSConn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr, codec, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestJoin(t *testing.T) {
	_, addr := startServer(t)
	for _, codec := range []protocol.Codec{protocol.JSON, protocol.Msgpack} {
		c := dialTest(t, addr, codec)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		setup, err := Join(ctx, c, "r")
		cancel()
		if err != nil {
			t.Fatalf("%s: join: %v", codec.Name(), err)
		}
		if setup.Config != twoByOne || len(setup.Tiles) != 2 || setup.PlayerID == 0 {
			t.Fatalf("%s: setup = %+v", codec.Name(), setup)
		}
	}
}

func TestJoin_MissingRoom(t *testing.T) {
	_, addr := startServer(t)
	c := dialTest(t, addr, protocol.JSON)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := Join(ctx, c, "nope"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestCreateRoomThenJoin(t *testing.T) {
	_, addr := startServer(t)
	c := dialTest(t, addr, protocol.Msgpack)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := protocol.RoomConfig{Seed: 9, Grid: geom.Grid{Cols: 3, Rows: 2}, Image: 1}
	name, err := CreateRoom(ctx, c, cfg)
	if err != nil || len(name) != 16 {
		t.Fatalf("name=%q err=%v", name, err)
	}
	setup, err := Join(ctx, c, name)
	if err != nil || setup.Config != cfg || len(setup.Tiles) != 6 {
		t.Fatalf("setup=%+v err=%v", setup, err)
	}

	_, err = CreateRoom(ctx, c, protocol.RoomConfig{Seed: 1, Grid: geom.Grid{Cols: 20, Rows: 20}})
	if !errors.Is(err, ErrRoomRejected) {
		t.Fatalf("expected ErrRoomRejected, got %v", err)
	}
}

func TestTwoClientsShareARelease(t *testing.T) {
	hub, addr := startServer(t)
	join := func() *Game {
		c := dialTest(t, addr, protocol.JSON)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		setup, err := Join(ctx, c, "r")
		if err != nil {
			t.Fatal(err)
		}
		g, err := NewGame(c, setup, nil)
		if err != nil {
			t.Fatal(err)
		}
		return g
	}
	a, b := join(), join()

	// 从服务端快照取一块的位置，保证点得中
	start := a.Jigsaw.Tiles[0].Pos.Get()
	if err := a.PointerDown(start); err != nil {
		t.Fatal(err)
	}
	grab := a.Me().Grab
	if grab == nil {
		t.Fatal("nothing grabbed")
	}
	drop := geom.V(1, 1)
	if err := a.PointerUp(drop); err != nil {
		t.Fatal(err)
	}
	want := drop.Add(grab.Offset)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := Run(ctx, b, 100, func(g *Game, dt float64) error {
		tile := &g.Jigsaw.Tiles[grab.Tile]
		if tile.GrabbedBy == nil && tile.Pos.Target().ApproxEqual(want, 1e-9) {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !b.Jigsaw.Tiles[grab.Tile].Pos.Target().ApproxEqual(want, 1e-9) {
		t.Fatalf("observer sees tile %d at %v, want %v", grab.Tile, b.Jigsaw.Tiles[grab.Tile].Pos.Target(), want)
	}

	info, _ := hub.Room("r")
	if got := info.Tiles[grab.Tile]; got.GrabbedBy != nil || !got.Pos.ApproxEqual(want, 1e-9) {
		t.Fatalf("server tile = %+v", got)
	}
}

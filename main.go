package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/multierr"

	"puzzleparty/client"
	"puzzleparty/config"
	"puzzleparty/logging"
	"puzzleparty/protocol"
	"puzzleparty/server"
)

type options struct {
	serverOnly bool
	listen     string
	connect    string
	room       string
	create     int
	aspect     float64
	image      int
	replicas   int
	codec      string
}

// PuzzleParty 入口：默认启动服务端；-connect 时作为无界面客户端接入已有服务端
func main() {
	var opts options
	flag.BoolVar(&opts.serverOnly, "server", false, "run the server only, ignoring -replicas")
	flag.StringVar(&opts.listen, "listen", "", "server listen address, overrides PUZZLE_LISTEN")
	flag.StringVar(&opts.connect, "connect", "", "connect to a server instead of starting one, e.g. ws://localhost:1155/ws")
	flag.StringVar(&opts.room, "room", "", "room to join (or name of the room to create in server mode)")
	flag.IntVar(&opts.create, "create", 0, "create a room with this many pieces")
	flag.Float64Var(&opts.aspect, "aspect", 1.5, "image aspect ratio used to lay out -create pieces")
	flag.IntVar(&opts.image, "image", 0, "background image index for -create")
	flag.IntVar(&opts.replicas, "replicas", 0, "number of headless client replicas to run")
	flag.StringVar(&opts.codec, "codec", "json", "wire codec for replicas: json or msgpack")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.listen != "" {
		cfg.Listen = opts.listen
	}
	if err := logging.Init(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel, Stderr: cfg.LogStderr}); err != nil {
		panic(err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.connect != "" {
		err = runClients(ctx, opts.connect, opts)
	} else {
		err = runServer(ctx, cfg, opts)
	}
	if err != nil {
		logging.Log.Errorf("exit: %v", err)
		logging.Sync()
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg config.Config, opts options) error {
	deadlock.Opts.Disable = !cfg.LockDebug

	hub := server.NewHub(server.Options{MaxTiles: cfg.MaxTiles})
	if cfg.RoomsFile != "" {
		presets, err := config.LoadRooms(cfg.RoomsFile)
		if err != nil {
			return err
		}
		for _, p := range presets {
			if p.Name == "" {
				_, err = hub.CreateRoom(p.RoomConfig())
			} else {
				err = hub.CreateNamedRoom(p.Name, p.RoomConfig())
			}
			if err != nil {
				return fmt.Errorf("preset room %q: %w", p.Name, err)
			}
		}
	}
	if opts.create > 0 {
		rc := newRoomConfig(opts)
		if opts.room == "" {
			name, err := hub.CreateRoom(rc)
			if err != nil {
				return err
			}
			opts.room = name
		} else if err := hub.CreateNamedRoom(opts.room, rc); err != nil {
			return err
		}
	}

	srv := &http.Server{Addr: cfg.Listen, Handler: server.NewRouter(hub)}
	errc := make(chan error, 1)
	go func() {
		logging.Log.Infof("PuzzleParty listening on %s", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var wg sync.WaitGroup
	if opts.replicas > 0 && !opts.serverOnly {
		if opts.room == "" {
			logging.Log.Warn("-replicas needs -room or -create, no replicas started")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := runClients(ctx, localURL(cfg.Listen), opts); err != nil {
					logging.Log.Errorf("replicas: %v", err)
				}
			}()
		}
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}
	logging.Log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = multierr.Combine(err, srv.Shutdown(shutdownCtx), hub.Close())
	wg.Wait()
	return err
}

func newRoomConfig(opts options) protocol.RoomConfig {
	return protocol.RoomConfig{
		Seed:  uint64(time.Now().UnixNano()),
		Grid:  protocol.GridForPieces(opts.create, opts.aspect),
		Image: opts.image,
	}
}

func localURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "ws://localhost" + listen + "/ws"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "ws://" + net.JoinHostPort(host, port) + "/ws"
}

// runClients 运行 opts.replicas 个（至少一个）无界面客户端，直到 ctx 取消
func runClients(ctx context.Context, addr string, opts options) error {
	codec, err := protocol.CodecByName(opts.codec)
	if err != nil {
		return err
	}
	room := opts.room
	if opts.create > 0 && opts.connect != "" {
		room, err = createRemoteRoom(ctx, addr, codec, newRoomConfig(opts))
		if err != nil {
			return err
		}
		logging.Log.Infof("created room %s", room)
	}
	if room == "" {
		return errors.New("no room: use -room or -create")
	}

	n := max(opts.replicas, 1)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := runReplica(ctx, addr, codec, room, i); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("replica %d: %w", i, err))
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return errs
}

func createRemoteRoom(ctx context.Context, addr string, codec protocol.Codec, rc protocol.RoomConfig) (string, error) {
	conn, err := client.Dial(ctx, addr, codec, logging.Log)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return client.CreateRoom(ctx, conn, rc)
}

func runReplica(ctx context.Context, addr string, codec protocol.Codec, room string, i int) (err error) {
	log := logging.Log.With("replica", i)
	conn, err := client.Dial(ctx, addr, codec, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, conn.Close()) }()

	joinCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	setup, err := client.Join(joinCtx, conn, room)
	if err != nil {
		return err
	}
	g, err := client.NewGame(conn, setup, log)
	if err != nil {
		return err
	}
	if err := g.SetName(fmt.Sprintf("bot-%d", i)); err != nil {
		return err
	}
	log.Infof("joined room %s as player %d", room, g.ID)
	return client.Run(ctx, g, client.FramesPerSecond, client.NewBot(uint64(g.ID)).Step)
}

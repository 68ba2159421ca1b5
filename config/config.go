// Package config 读取服务端配置：.env 文件 + 环境变量，并解析房间预设文件
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"puzzleparty/geom"
	"puzzleparty/protocol"
)

// Config 进程级配置
type Config struct {
	Listen    string // 监听地址，如 :1155
	LogFile   string
	LogLevel  string
	LogStderr bool
	RoomsFile string // 启动时预创建的房间（JSON），可为空
	MaxTiles  int    // 单个房间允许的最大块数
	LockDebug bool   // 打开全局锁的死锁检测
}

// Load 先尝试加载 .env（不存在则忽略），再读取环境变量
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	cfg := Config{
		Listen:    getEnv("PUZZLE_LISTEN", ":1155"),
		LogFile:   getEnv("PUZZLE_LOG_FILE", "puzzleparty.log"),
		LogLevel:  getEnv("PUZZLE_LOG_LEVEL", "debug"),
		RoomsFile: getEnv("PUZZLE_ROOMS_FILE", ""),
	}
	var err error
	if cfg.LogStderr, err = strconv.ParseBool(getEnv("PUZZLE_LOG_STDERR", "false")); err != nil {
		return cfg, fmt.Errorf("PUZZLE_LOG_STDERR: %w", err)
	}
	if cfg.MaxTiles, err = strconv.Atoi(getEnv("PUZZLE_MAX_TILES", "2000")); err != nil {
		return cfg, fmt.Errorf("PUZZLE_MAX_TILES: %w", err)
	}
	if cfg.LockDebug, err = strconv.ParseBool(getEnv("PUZZLE_LOCK_DEBUG", "false")); err != nil {
		return cfg, fmt.Errorf("PUZZLE_LOCK_DEBUG: %w", err)
	}
	return cfg, nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// RoomPreset 房间预设；Name 为空时由服务端随机生成
type RoomPreset struct {
	Name  string `json:"name,omitempty"`
	Seed  uint64 `json:"seed"`
	Cols  int    `json:"cols"`
	Rows  int    `json:"rows"`
	Image int    `json:"image"`
}

// RoomConfig 转为线协议的房间配置
func (p RoomPreset) RoomConfig() protocol.RoomConfig {
	return protocol.RoomConfig{
		Seed:  p.Seed,
		Grid:  geom.Grid{Cols: p.Cols, Rows: p.Rows},
		Image: p.Image,
	}
}

// LoadRooms 读取房间预设文件：[{"name":"demo","seed":42,"cols":6,"rows":5}]
func LoadRooms(path string) ([]RoomPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rooms file: %w", err)
	}
	var rooms []RoomPreset
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("parse rooms file %s: %w", path, err)
	}
	for i, r := range rooms {
		if err := r.RoomConfig().Validate(0); err != nil {
			return nil, fmt.Errorf("rooms file %s entry %d: %w", path, i, err)
		}
	}
	return rooms, nil
}

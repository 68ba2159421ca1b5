package client

import (
	"context"
	"time"
)

const (
	// FramesPerSecond 无界面客户端的帧率
	FramesPerSecond = 30
)

// Step 每帧在 Update 之后调用，用于驱动输入（机器人、脚本）
type Step func(g *Game, dt float64) error

// Run 帧循环：处理消息 → 推进模型 → 执行 step，直到 ctx 取消或出错
func Run(ctx context.Context, g *Game, fps int, step Step) error {
	if fps <= 0 {
		fps = FramesPerSecond
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := g.Update(dt); err != nil {
				return err
			}
			if step == nil {
				continue
			}
			if err := step(g, dt); err != nil {
				return err
			}
		}
	}
}

// Package interp 把稀疏、不规则到达的权威样本平滑成每帧连续的位置信号
package interp

import (
	"math"

	"puzzleparty/geom"
)

const (
	// SmoothRate 指数收敛速率（1/秒），约 0.2 秒收敛 95%
	SmoothRate = 15.0
	// MaxExtrapolation 样本速度外推的上限（秒），超过后目标不再前移
	MaxExtrapolation = 0.25
)

// Interpolated 单个被追踪量（光标、拼图块位置）的插值状态
type Interpolated struct {
	pos geom.Vec2
	vel geom.Vec2

	target    geom.Vec2
	targetVel geom.Vec2
	elapsed   float64 // 最近一次样本到达后经过的时间
}

// New 以给定值初始化，等价于一次 Teleport
func New(pos, vel geom.Vec2) Interpolated {
	var i Interpolated
	i.Teleport(pos, vel)
	return i
}

// ServerUpdate 记录一个新的权威样本；显示值在后续 Update 中向
// target + vel·elapsed 收敛，而不是直接跳变
func (i *Interpolated) ServerUpdate(target, vel geom.Vec2) {
	i.target = target
	i.targetVel = vel
	i.elapsed = 0
}

// Teleport 立即重置显示状态，不做平滑
func (i *Interpolated) Teleport(pos, vel geom.Vec2) {
	i.pos = pos
	i.vel = vel
	i.target = pos
	i.targetVel = vel
	i.elapsed = 0
}

// Update 推进一帧。dt<=0 时不改变任何状态；dt 任意大时直接落到外推目标上
func (i *Interpolated) Update(dt float64) {
	if !(dt > 0) {
		return
	}
	i.elapsed += dt
	goal := i.target.Add(i.targetVel.Scale(math.Min(i.elapsed, MaxExtrapolation)))

	prev := i.pos
	alpha := 1 - math.Exp(-SmoothRate*dt)
	if alpha >= 1 {
		i.pos = goal
	} else {
		i.pos = i.pos.Add(goal.Sub(i.pos).Scale(alpha))
	}
	i.vel = i.pos.Sub(prev).Scale(1 / dt)
}

// Get 当前显示位置
func (i *Interpolated) Get() geom.Vec2 { return i.pos }

// Derivative 当前显示速度估计（用于松手时的甩动速度）
func (i *Interpolated) Derivative() geom.Vec2 { return i.vel }

// Target 最近一次样本的目标位置
func (i *Interpolated) Target() geom.Vec2 { return i.target }

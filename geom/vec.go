package geom

import "math"

// Vec2 二维向量，世界坐标与网格坐标共用
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// V 构造向量的简写
func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

var Zero = Vec2{}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2 { return Vec2{v.X * k, v.Y * k} }

// Mul 分量相乘（用于按 tile 尺寸缩放网格坐标）
func (v Vec2) Mul(o Vec2) Vec2 { return Vec2{v.X * o.X, v.Y * o.Y} }

// Div 分量相除
func (v Vec2) Div(o Vec2) Vec2 { return Vec2{v.X / o.X, v.Y / o.Y} }

func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Rotate90 逆时针旋转 90°：(x, y) -> (-y, x)
func (v Vec2) Rotate90() Vec2 { return Vec2{-v.Y, v.X} }

// Cross 二维叉积（z 分量）
func (v Vec2) Cross(o Vec2) float64 { return v.X*o.Y - v.Y*o.X }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

// ApproxEqual 分量差均不超过 eps
func (v Vec2) ApproxEqual(o Vec2, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

// IsFinite 两个分量都不是 NaN/Inf
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

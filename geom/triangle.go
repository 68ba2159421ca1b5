package geom

// lineSide 点 p 相对有向线段 a->b 的有符号面积（两倍）
func lineSide(p, a, b Vec2) float64 {
	return (p.X-b.X)*(a.Y-b.Y) - (a.X-b.X)*(p.Y-b.Y)
}

// TriangleContains 判断点是否在三角形内（含边界），与三角形绕序无关
func TriangleContains(a, b, c, p Vec2) bool {
	d0 := lineSide(p, a, b)
	d1 := lineSide(p, b, c)
	d2 := lineSide(p, c, a)

	hasNeg := d0 < 0 || d1 < 0 || d2 < 0
	hasPos := d0 > 0 || d1 > 0 || d2 > 0
	return !(hasNeg && hasPos)
}

// SignedArea 多边形有符号面积：逆时针（y 轴向上）为正
func SignedArea(poly []Vec2) float64 {
	var sum float64
	for i := range poly {
		j := (i + 1) % len(poly)
		sum += poly[i].Cross(poly[j])
	}
	return sum / 2
}

package jigsaw

import (
	"errors"
	"fmt"
	"math"

	"puzzleparty/geom"
)

var (
	ErrDegeneratePolygon = errors.New("jigsaw: degenerate polygon")
	ErrNoEar             = errors.New("jigsaw: no ear found, polygon is not simple")
)

// Vertex 网格顶点：Pos 相对格子中心，UV 为原始点除以整幅拼图尺寸
type Vertex struct {
	Pos geom.Vec2
	UV  geom.Vec2
}

type Triangle [3]Vertex

// Triangulate 用耳切法把简单多边形切成三角形，返回顶点下标三元组。
// 自交或退化的多边形返回错误。
func Triangulate(poly []geom.Vec2) ([][3]int, error) {
	n := len(poly)
	if n < 3 {
		return nil, fmt.Errorf("%w: %d points", ErrDegeneratePolygon, n)
	}
	area := geom.SignedArea(poly)
	if math.Abs(area) < 1e-12 || math.IsNaN(area) {
		return nil, fmt.Errorf("%w: zero area", ErrDegeneratePolygon)
	}

	// 统一成逆时针
	idx := make([]int, n)
	for i := range idx {
		if area > 0 {
			idx[i] = i
		} else {
			idx[i] = n - 1 - i
		}
	}

	tris := make([][3]int, 0, n-2)
	k := 0
	for len(idx) > 3 {
		m := len(idx)
		clipped := false
		for step := 0; step < m; step++ {
			at := (k + step) % m
			a, b, c := idx[(at+m-1)%m], idx[at], idx[(at+1)%m]
			pa, pb, pc := poly[a], poly[b], poly[c]
			cross := pb.Sub(pa).Cross(pc.Sub(pb))

			switch {
			case cross == 0:
				// 共线点：夹在两邻点之间（或重合）时直接去掉，不影响形状
				if pa.Sub(pb).Dot(pc.Sub(pb)) > 0 && pa != pb && pb != pc {
					continue
				}
			case cross < 0:
				continue
			default:
				if !isEar(poly, idx, pa, pb, pc) {
					continue
				}
				tris = append(tris, [3]int{a, b, c})
			}

			idx = append(idx[:at], idx[at+1:]...)
			k = at
			clipped = true
			break
		}
		if !clipped {
			return nil, fmt.Errorf("%w: %d points left", ErrNoEar, len(idx))
		}
	}
	a, b, c := idx[0], idx[1], idx[2]
	if poly[b].Sub(poly[a]).Cross(poly[c].Sub(poly[b])) > 0 {
		tris = append(tris, [3]int{a, b, c})
	}
	if len(tris) == 0 {
		return nil, fmt.Errorf("%w: no triangles", ErrDegeneratePolygon)
	}
	return tris, nil
}

// isEar 三角形 pa,pb,pc 内（含边界）没有其它剩余顶点
func isEar(poly []geom.Vec2, idx []int, pa, pb, pc geom.Vec2) bool {
	for _, i := range idx {
		p := poly[i]
		if p == pa || p == pb || p == pc {
			continue
		}
		if geom.TriangleContains(pa, pb, pc, p) {
			return false
		}
	}
	return true
}

// BuildMesh 把一个格子的轮廓三角化，顶点位置相对 center，UV 相对整幅拼图 size
func BuildMesh(poly []geom.Vec2, center, size geom.Vec2) ([]Triangle, []Vertex, error) {
	outline := make([]Vertex, len(poly))
	for i, v := range poly {
		outline[i] = Vertex{Pos: v.Sub(center), UV: v.Div(size)}
	}
	tris, err := Triangulate(poly)
	if err != nil {
		return nil, nil, err
	}
	mesh := make([]Triangle, len(tris))
	for i, t := range tris {
		mesh[i] = Triangle{outline[t[0]], outline[t[1]], outline[t[2]]}
	}
	return mesh, outline, nil
}

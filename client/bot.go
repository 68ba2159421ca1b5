package client

import (
	"math/rand/v2"

	"puzzleparty/jigsaw"
)

// Bot 无界面玩家：随机挑一块不在原位的块，拖回原位后松手
type Bot struct {
	// Speed 光标移动速度（世界单位/秒）
	Speed float64

	rng *rand.Rand
}

func NewBot(seed uint64) *Bot {
	return &Bot{Speed: 4, rng: rand.New(rand.NewPCG(seed, seed+1))}
}

// Step 可直接作为 Run 的 step 参数
func (b *Bot) Step(g *Game, dt float64) error {
	me := g.Me()
	if me.Grab == nil {
		i, ok := b.pick(g)
		if !ok {
			return nil
		}
		return g.PointerDown(g.Jigsaw.Tiles[i].Pos.Get())
	}

	goal := g.Jigsaw.HomePos(me.Grab.Tile).Sub(me.Grab.Offset)
	cur := me.Cursor.Get()
	d := goal.Sub(cur)
	step := b.Speed * dt
	if d.Len() <= step {
		if err := g.PointerMove(goal); err != nil {
			return err
		}
		return g.PointerUp(goal)
	}
	return g.PointerMove(cur.Add(d.Scale(step / d.Len())))
}

// pick 在无人抓取且偏离原位的块中随机选一块
func (b *Bot) pick(g *Game) (int, bool) {
	var free []int
	for i := range g.Jigsaw.Tiles {
		t := &g.Jigsaw.Tiles[i]
		if t.GrabbedBy != nil {
			continue
		}
		if t.Pos.Get().Sub(g.Jigsaw.HomePos(i)).Len() <= jigsaw.SnapDistance/2 {
			continue
		}
		free = append(free, i)
	}
	if len(free) == 0 {
		return 0, false
	}
	return free[b.rng.IntN(len(free))], true
}

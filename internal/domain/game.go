package domain

// Game is a room addressed by its code. ID tells apart games that held the
// same code at different times. Members mirrors len(Players) and is kept in
// step by the registry, the only writer of a Game.
type Game struct {
	Code     string
	ID       uint64
	Members  int
	Players  []Player
	Messages []Message
}

func NewGame(code string, id uint64) *Game {
	return &Game{Code: code, ID: id}
}

// PlayerIndex returns the position of the first player called name, or -1.
func (g *Game) PlayerIndex(name string) int {
	for i := range g.Players {
		if g.Players[i].Name == name {
			return i
		}
	}
	return -1
}

func (g *Game) PlayerNames() []string {
	out := make([]string, 0, len(g.Players))
	for _, p := range g.Players {
		out = append(out, p.Name)
	}
	return out
}

func (g *Game) PlayerViews() []PlayerView {
	out := make([]PlayerView, 0, len(g.Players))
	for _, p := range g.Players {
		out = append(out, p.View())
	}
	return out
}

func (g *Game) MessageViews() []MessageView {
	out := make([]MessageView, 0, len(g.Messages))
	for _, m := range g.Messages {
		out = append(out, m.View())
	}
	return out
}

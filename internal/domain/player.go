package domain

// Player is a participant of a single game. Name is the key inside the game's player list.
type Player struct {
	Name  string
	Ready bool
	Vote  any
}

func NewPlayer(name string) Player {
	return Player{Name: name}
}

// PlayerView is the wire representation sent with update_players.
type PlayerView struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
	Vote  any    `json:"vote"`
}

func (p Player) View() PlayerView {
	return PlayerView{
		Name:  p.Name,
		Ready: p.Ready,
		Vote:  p.Vote,
	}
}

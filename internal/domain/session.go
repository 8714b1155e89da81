package domain

import "strconv"

// Session is the (game code, display name) pair a client obtains from the
// lobby before it opens a real-time connection. GameID pins the session to
// the game instance that held Code at join time, so a later game reusing the
// code is never touched by it.
type Session struct {
	Code   string
	Name   string
	GameID uint64
}

func (s Session) Valid() bool {
	return s.Code != "" && s.Name != "" && s.GameID != 0
}

// Room is the broadcast channel of the session's game instance.
func (s Session) Room() string {
	return RoomKey(s.Code, s.GameID)
}

func RoomKey(code string, id uint64) string {
	return code + "#" + strconv.FormatUint(id, 10)
}

package registry

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/cwrk-planet/poker-service/internal/domain"
)

// ErrNoFreeCode is returned by CreateGame when no unused code could be found.
var ErrNoFreeCode = errors.New("no free game code")

// maxCodeAttempts bounds the search for an unused code while the lock is held.
const maxCodeAttempts = 1000

// Observer receives game events. Record is called after the registry lock is
// released and must not block. Calls from concurrent mutations may arrive out
// of order; Event.Seq gives the order in which they were applied.
type Observer interface {
	Record(e domain.Event)
}

type nopObserver struct{}

func (nopObserver) Record(domain.Event) {}

type Option func(*Registry)

func WithCodeLength(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.codeLength = n
		}
	}
}

func WithCodeGenerator(gen CodeGenerator) Option {
	return func(r *Registry) {
		if gen != nil {
			r.generate = gen
		}
	}
}

// WithMaxMessages bounds every game's message log to the newest n entries.
// Zero keeps logs unbounded.
func WithMaxMessages(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.maxMessages = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(r *Registry) {
		if o != nil {
			r.observer = o
		}
	}
}

// Registry owns every live game. One mutex covers the map and all games;
// it is held for a single method call only.
type Registry struct {
	mu     sync.Mutex
	games  map[string]*domain.Game
	lastID uint64
	seq    uint64

	codeLength  int
	codeSpace   int
	maxMessages int
	generate    CodeGenerator
	observer    Observer
	now         func() time.Time
}

func New(opts ...Option) *Registry {
	r := &Registry{
		games:      make(map[string]*domain.Game),
		codeLength: DefaultCodeLength,
		generate:   RandomCode,
		observer:   nopObserver{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.codeSpace = codeSpace(r.codeLength)
	return r
}

// codeSpace is the number of distinct codes of the given length.
func codeSpace(length int) int {
	n := 1
	for range length {
		if n > math.MaxInt/len(codeAlphabet) {
			return math.MaxInt
		}
		n *= len(codeAlphabet)
	}
	return n
}

// GameInfo identifies the game currently registered under a code.
type GameInfo struct {
	ID    uint64
	Names []string
}

// CreateGame registers an empty game under a fresh code and returns the code.
// It fails with ErrNoFreeCode when every code is taken or the generator keeps
// returning codes in use.
func (r *Registry) CreateGame() (string, error) {
	r.mu.Lock()
	if len(r.games) >= r.codeSpace {
		r.mu.Unlock()
		return "", fmt.Errorf("create: %d games live: %w", r.codeSpace, ErrNoFreeCode)
	}
	code := r.generate(r.codeLength)
	for attempt := 1; r.exists(code); attempt++ {
		if attempt >= maxCodeAttempts {
			r.mu.Unlock()
			return "", fmt.Errorf("create: %d attempts: %w", attempt, ErrNoFreeCode)
		}
		code = r.generate(r.codeLength)
	}
	r.lastID++
	g := domain.NewGame(code, r.lastID)
	r.games[code] = g
	ev := r.event(domain.EventGameCreated, g, "", "")
	r.mu.Unlock()

	r.publish(ev)
	return code, nil
}

// DeleteGame drops a game regardless of its members.
func (r *Registry) DeleteGame(code string) error {
	r.mu.Lock()
	g, err := r.game(code)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("delete: %w", err)
	}
	delete(r.games, code)
	ev := r.event(domain.EventGameDeleted, g, "", "")
	r.mu.Unlock()

	r.publish(ev)
	return nil
}

// Close drops the game under code only if it is still instance id.
func (r *Registry) Close(code string, id uint64) error {
	r.mu.Lock()
	g, err := r.gameAt(code, id)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("close: %w", err)
	}
	delete(r.games, code)
	ev := r.event(domain.EventGameDeleted, g, "", "")
	r.mu.Unlock()

	r.publish(ev)
	return nil
}

func (r *Registry) Exists(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exists(code)
}

// Codes returns the codes of all live games in lexical order.
func (r *Registry) Codes() []string {
	r.mu.Lock()
	out := make([]string, 0, len(r.games))
	for code := range r.games {
		out = append(out, code)
	}
	r.mu.Unlock()

	slices.Sort(out)
	return out
}

func (r *Registry) PlayerNames(code string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.game(code)
	if err != nil {
		return nil, err
	}
	return g.PlayerNames(), nil
}

// Lookup returns the instance id and player names of the game under code.
func (r *Registry) Lookup(code string) (GameInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.game(code)
	if err != nil {
		return GameInfo{}, err
	}
	return GameInfo{ID: g.ID, Names: g.PlayerNames()}, nil
}

// AddPlayer appends p to the game. Duplicate names are not rejected here.
func (r *Registry) AddPlayer(code string, p domain.Player) error {
	r.mu.Lock()
	g, err := r.game(code)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.addPlayer(g, p)
	ev := r.event(domain.EventPlayerJoined, g, p.Name, "")
	r.mu.Unlock()

	r.publish(ev)
	return nil
}

// Enter adds p to game instance id and appends msg in one step, and returns
// the player list as it is right after the join.
func (r *Registry) Enter(code string, id uint64, p domain.Player, msg domain.Message) ([]domain.PlayerView, error) {
	r.mu.Lock()
	g, err := r.gameAt(code, id)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.addPlayer(g, p)
	r.appendMessage(g, msg)
	players := g.PlayerViews()
	ev := r.event(domain.EventPlayerJoined, g, p.Name, "")
	r.mu.Unlock()

	r.publish(ev)
	return players, nil
}

// RemovePlayer removes the first player called name. When it was the last
// member the game is deleted by the same call and deleted is true.
func (r *Registry) RemovePlayer(code, name string) (deleted bool, err error) {
	r.mu.Lock()
	g, err := r.game(code)
	if err != nil {
		r.mu.Unlock()
		return false, err
	}
	deleted, err = r.removePlayer(g, name)
	if err != nil {
		r.mu.Unlock()
		return false, err
	}
	evs := r.leaveEvents(g, name, deleted)
	r.mu.Unlock()

	r.publish(evs...)
	return deleted, nil
}

// LeaveResult is the outcome of Leave.
type LeaveResult struct {
	// Deleted is set when the leaving player was the last member.
	Deleted bool
	// Players is the remaining player list, nil when Deleted.
	Players []domain.PlayerView
}

// Leave removes the player called name from game instance id and, if the
// game survives, appends msg to its log.
func (r *Registry) Leave(code string, id uint64, name string, msg domain.Message) (LeaveResult, error) {
	r.mu.Lock()
	g, err := r.gameAt(code, id)
	if err != nil {
		r.mu.Unlock()
		return LeaveResult{}, err
	}
	deleted, err := r.removePlayer(g, name)
	if err != nil {
		r.mu.Unlock()
		return LeaveResult{}, err
	}
	var res LeaveResult
	if deleted {
		res.Deleted = true
	} else {
		r.appendMessage(g, msg)
		res.Players = g.PlayerViews()
	}
	evs := r.leaveEvents(g, name, deleted)
	r.mu.Unlock()

	r.publish(evs...)
	return res, nil
}

func (r *Registry) UpdatePlayer(code, name string, ready bool, vote any) error {
	r.mu.Lock()
	g, err := r.game(code)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if err := r.updatePlayer(g, name, ready, vote); err != nil {
		r.mu.Unlock()
		return err
	}
	ev := r.event(domain.EventReadyChanged, g, name, readyDetail(ready))
	r.mu.Unlock()

	r.publish(ev)
	return nil
}

// SetReady updates the player's state in game instance id, appends msg and
// returns the updated player list.
func (r *Registry) SetReady(code string, id uint64, name string, ready bool, vote any, msg domain.Message) ([]domain.PlayerView, error) {
	r.mu.Lock()
	g, err := r.gameAt(code, id)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	if err := r.updatePlayer(g, name, ready, vote); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.appendMessage(g, msg)
	players := g.PlayerViews()
	ev := r.event(domain.EventReadyChanged, g, name, readyDetail(ready))
	r.mu.Unlock()

	r.publish(ev)
	return players, nil
}

// AppendMessage adds a chat message to the game's log.
func (r *Registry) AppendMessage(code string, msg domain.Message) error {
	r.mu.Lock()
	g, err := r.game(code)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.appendMessage(g, msg)
	ev := r.event(domain.EventMessageSent, g, msg.Name, "")
	r.mu.Unlock()

	r.publish(ev)
	return nil
}

// Post is AppendMessage for game instance id only.
func (r *Registry) Post(code string, id uint64, msg domain.Message) error {
	r.mu.Lock()
	g, err := r.gameAt(code, id)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.appendMessage(g, msg)
	ev := r.event(domain.EventMessageSent, g, msg.Name, "")
	r.mu.Unlock()

	r.publish(ev)
	return nil
}

func (r *Registry) Players(code string) ([]domain.PlayerView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.game(code)
	if err != nil {
		return nil, err
	}
	return g.PlayerViews(), nil
}

func (r *Registry) Messages(code string) ([]domain.MessageView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := r.game(code)
	if err != nil {
		return nil, err
	}
	return g.MessageViews(), nil
}

// Stats reports the number of live games and of players across them.
func (r *Registry) Stats() (games, players int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.games {
		players += g.Members
	}
	return len(r.games), players
}

// --- helpers, r.mu must be held ---

func (r *Registry) exists(code string) bool {
	_, ok := r.games[code]
	return ok
}

func (r *Registry) game(code string) (*domain.Game, error) {
	g, ok := r.games[code]
	if !ok {
		return nil, fmt.Errorf("game %q: %w", code, domain.ErrGameNotFound)
	}
	return g, nil
}

// gameAt is game restricted to instance id. A newer game under the same code
// is reported as not found.
func (r *Registry) gameAt(code string, id uint64) (*domain.Game, error) {
	g, ok := r.games[code]
	if !ok || g.ID != id {
		return nil, fmt.Errorf("game %q #%d: %w", code, id, domain.ErrGameNotFound)
	}
	return g, nil
}

func (r *Registry) addPlayer(g *domain.Game, p domain.Player) {
	g.Players = append(g.Players, p)
	g.Members++
}

func (r *Registry) removePlayer(g *domain.Game, name string) (deleted bool, err error) {
	idx := g.PlayerIndex(name)
	if idx < 0 {
		return false, fmt.Errorf("player %q in game %q: %w", name, g.Code, domain.ErrPlayerNotFound)
	}
	g.Players = slices.Delete(g.Players, idx, idx+1)
	g.Members--
	if g.Members <= 0 {
		delete(r.games, g.Code)
		return true, nil
	}
	return false, nil
}

func (r *Registry) updatePlayer(g *domain.Game, name string, ready bool, vote any) error {
	idx := g.PlayerIndex(name)
	if idx < 0 {
		return fmt.Errorf("player %q in game %q: %w", name, g.Code, domain.ErrPlayerNotFound)
	}
	g.Players[idx].Ready = ready
	g.Players[idx].Vote = vote
	return nil
}

func (r *Registry) appendMessage(g *domain.Game, msg domain.Message) {
	g.Messages = append(g.Messages, msg)
	if r.maxMessages > 0 && len(g.Messages) > r.maxMessages {
		g.Messages = g.Messages[len(g.Messages)-r.maxMessages:]
	}
}

// --- observer ---

// event stamps the next sequence number; r.mu must be held.
func (r *Registry) event(kind domain.EventKind, g *domain.Game, name, detail string) domain.Event {
	r.seq++
	return domain.Event{
		Seq:    r.seq,
		Kind:   kind,
		Code:   g.Code,
		GameID: g.ID,
		Name:   name,
		Detail: detail,
		At:     r.now(),
	}
}

func (r *Registry) leaveEvents(g *domain.Game, name string, deleted bool) []domain.Event {
	evs := []domain.Event{r.event(domain.EventPlayerLeft, g, name, "")}
	if deleted {
		evs = append(evs, r.event(domain.EventGameDeleted, g, "", ""))
	}
	return evs
}

// publish hands events to the observer; r.mu must not be held.
func (r *Registry) publish(evs ...domain.Event) {
	for _, e := range evs {
		r.observer.Record(e)
	}
}

func readyDetail(ready bool) string {
	if ready {
		return "ready"
	}
	return "not_ready"
}

package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"castle-wars/internal/chat"
	"castle-wars/internal/protocol"
)

// EngineConfig holds the tick loop settings.
type EngineConfig struct {
	TickRate    int     // Ticks per second
	IntentQueue int     // Buffered intents between sessions and the tick
	MaxPlayers  int     // Joins beyond this are refused
	Seed        int64   // World RNG seed
	CellSize    float64 // Spatial grid cell size in pixels
	Capacity    int     // Entity arena capacity hint
}

// DefaultEngineConfig returns the production defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickRate:    60,
		IntentQueue: 4096,
		MaxPlayers:  64,
		CellSize:    64,
		Capacity:    8192,
	}
}

// Observer receives engine measurements. Implementations must not block.
type Observer interface {
	ObserveTick(elapsed time.Duration, overrun bool)
	ObserveSync(res SyncResult)
	ObserveWorld(stats WorldStats, castles [2]CastleStatus)
	CommandRejected(reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveTick(time.Duration, bool)        {}
func (nopObserver) ObserveSync(SyncResult)                 {}
func (nopObserver) ObserveWorld(WorldStats, [2]CastleStatus) {}
func (nopObserver) CommandRejected(string)                 {}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// WithObserver sets the metrics observer
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithBroadcaster routes chat through b instead of delivering it locally.
func WithBroadcaster(b Broadcaster) Option {
	return func(e *Engine) { e.bcast = b }
}

// WithScores mirrors the scoreboard into s
func WithScores(s ScoreSink) Option {
	return func(e *Engine) { e.scores = s }
}

// WithEventLog records world events into el
func WithEventLog(el *EventLog) Option {
	return func(e *Engine) { e.eventLog = el }
}

// WithChatLimits overrides the chat rate limits
func WithChatLimits(cfg chat.RateLimitConfig) Option {
	return func(e *Engine) { e.chatLimits = cfg }
}

type sessionEntry struct {
	out  *protocol.Outbox
	team Team
}

type delivery struct {
	line []byte
	team Team // Neutral means everyone
}

// Engine is the fixed-rate tick loop. It is the only writer of the world;
// sessions talk to it through Submit.
type Engine struct {
	mu    sync.RWMutex
	world *World
	cfg   EngineConfig

	intents chan Intent

	sessMu   sync.Mutex
	sessions map[EntityID]*sessionEntry

	inboxMu sync.Mutex
	inbox   []delivery

	bcast       Broadcaster
	scores      ScoreSink
	eventLog    *EventLog
	chatLimits  chat.RateLimitConfig
	chatHandler *chat.Handler
	observer    Observer
	log         logrus.FieldLogger

	snapshotPool *SnapshotPool

	running  bool
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	overruns atomic.Uint64
	finished bool
}

// NewEngine creates an engine and its world on m
func NewEngine(m *TileMap, cfg EngineConfig, opts ...Option) *Engine {
	def := DefaultEngineConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.IntentQueue <= 0 {
		cfg.IntentQueue = def.IntentQueue
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = def.MaxPlayers
	}

	e := &Engine{
		cfg:          cfg,
		intents:      make(chan Intent, cfg.IntentQueue),
		sessions:     make(map[EntityID]*sessionEntry),
		chatLimits:   chat.DefaultRateLimitConfig,
		observer:     nopObserver{},
		snapshotPool: NewSnapshotPool(DefaultSnapshotLimits),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	e.chatHandler = chat.NewHandler(e.chatLimits, e.log)

	e.world = NewWorld(m, WorldOptions{
		Seed:        cfg.Seed,
		CellSize:    cfg.CellSize,
		Capacity:    cfg.Capacity,
		Broadcaster: e,
		Events:      e.eventLog,
		Scores:      e.scores,
		Log:         e.log,
	})
	e.produceSnapshot()
	return e
}

// SetMatchID labels the match result recorded at game over
func (e *Engine) SetMatchID(id string) {
	e.mu.Lock()
	e.world.SetMatchID(id)
	e.mu.Unlock()
}

// SetBroadcaster replaces the chat route. Relays that deliver back
// into the engine are built after it, so they are attached here.
func (e *Engine) SetBroadcaster(b Broadcaster) {
	e.mu.Lock()
	e.bcast = b
	e.mu.Unlock()
}

// Start begins the game loop
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	go e.loop(ctx)
	e.log.WithField("tps", e.cfg.TickRate).Info("🎮 Game engine started")
}

// Stop stops the game loop and waits for the current tick to finish
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
		e.mu.RLock()
		running := e.running
		e.mu.RUnlock()
		if running {
			<-e.done
		}
		e.log.Info("🛑 Game engine stopped")
	})
}

// loop runs ticks at the fixed rate. A tick that overruns its budget is
// followed immediately by the next one; no tick is ever skipped.
func (e *Engine) loop(ctx context.Context) {
	defer close(e.done)

	budget := time.Second / time.Duration(e.cfg.TickRate)
	timer := time.NewTimer(budget)
	defer timer.Stop()
	next := time.Now()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		e.tick()
		elapsed := time.Since(start)
		overrun := elapsed > budget
		e.observer.ObserveTick(elapsed, overrun)

		if overrun {
			e.overruns.Add(1)
			e.log.WithFields(logrus.Fields{"elapsed": elapsed, "budget": budget}).Warn("⚠️ Tick overrun")
			next = time.Now()
			continue
		}

		next = next.Add(budget)
		wait := time.Until(next)
		if wait <= 0 {
			next = time.Now()
			continue
		}
		timer.Reset(wait)
		select {
		case <-timer.C:
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// TickOnce runs a single tick synchronously, for tests and tools.
func (e *Engine) TickOnce() {
	e.tick()
}

// tick is called at TickRate times per second
func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.drainIntents()
	e.world.Step()
	e.drainInbox()
	e.world.Sync(e.observer.ObserveSync)

	if over, loser := e.world.Over(); over && !e.finished {
		e.finish(loser)
	}
	e.flushAll()

	if e.world.tick%ScoreInterval == 0 {
		e.observer.ObserveWorld(e.world.Stats(), [2]CastleStatus{e.world.CastleStatus(Red), e.world.CastleStatus(Blue)})
		e.chatHandler.Prune(time.Now(), 5*time.Minute)
	}
	e.produceSnapshot()
}

func (e *Engine) join(req *JoinRequest) {
	reply := func(res JoinResult) {
		if req.Reply != nil {
			req.Reply <- res
		}
	}
	if e.SessionCount() >= e.cfg.MaxPlayers {
		e.log.WithField("player", req.Name).Warn("⚠️ Player limit reached, rejecting join")
		reply(JoinResult{Err: ErrServerFull})
		return
	}
	ent, err := e.world.Join(req.Name, req.Subject, req.Out)
	if err != nil {
		reply(JoinResult{Err: err})
		return
	}
	if req.Out != nil {
		e.sessMu.Lock()
		e.sessions[ent.ID] = &sessionEntry{out: req.Out, team: ent.Team()}
		e.sessMu.Unlock()
	}
	reply(JoinResult{ID: ent.ID, Team: ent.Team()})
}

func (e *Engine) leave(id EntityID) {
	e.world.Leave(id)
	e.chatHandler.Leave(uint32(id))
	e.sessMu.Lock()
	delete(e.sessions, id)
	e.sessMu.Unlock()
}

func (e *Engine) say(id EntityID, text string) {
	ent := e.world.Entity(id)
	if ent == nil || ent.Player == nil {
		e.observer.CommandRejected("chat")
		return
	}
	from := chat.Sender{ID: uint32(id), Name: ent.Name(), Team: int(ent.Team())}
	out, ok := e.chatHandler.Handle(from, text, time.Now())
	if !ok {
		e.observer.CommandRejected("chat")
		return
	}
	e.world.Say(id, out.Text)
	if out.TeamOnly {
		e.relay(ent.Team(), out.Line)
	} else {
		e.relay(Neutral, out.Line)
	}
}

// finish tells every session the match is over; their writers close after
// this tick's batch.
func (e *Engine) finish(loser Team) {
	e.finished = true
	e.sessMu.Lock()
	for _, s := range e.sessions {
		s.out.CloseAfterFlush()
	}
	e.sessMu.Unlock()
	e.log.WithField("loser", loser.String()).Info("🏁 Match finished")
}

func (e *Engine) flushAll() {
	e.sessMu.Lock()
	for _, s := range e.sessions {
		s.out.RequestFlush()
	}
	e.sessMu.Unlock()
}

// Broadcast queues a world record for every local session.
func (e *Engine) Broadcast(line string) {
	e.DeliverAll([]byte(line))
}

// BroadcastTeam queues a world record for one team's local sessions.
func (e *Engine) BroadcastTeam(team Team, line string) {
	e.DeliverTeam(team, []byte(line))
}

// relay sends a chat record through the configured broadcaster, which may
// share it with other server processes. team Neutral means everyone.
func (e *Engine) relay(team Team, line string) {
	switch {
	case e.bcast == nil && team == Neutral:
		e.DeliverAll([]byte(line))
	case e.bcast == nil:
		e.DeliverTeam(team, []byte(line))
	case team == Neutral:
		e.bcast.Broadcast(line)
	default:
		e.bcast.BroadcastTeam(team, line)
	}
}

// DeliverAll queues a record for every local session at the next tick's
// flush. It is safe to call from any goroutine.
func (e *Engine) DeliverAll(line []byte) {
	e.inboxMu.Lock()
	e.inbox = append(e.inbox, delivery{line: line})
	e.inboxMu.Unlock()
}

// DeliverTeam is DeliverAll limited to one team.
func (e *Engine) DeliverTeam(team Team, line []byte) {
	if team != Red && team != Blue {
		return
	}
	e.inboxMu.Lock()
	e.inbox = append(e.inbox, delivery{line: line, team: team})
	e.inboxMu.Unlock()
}

func (e *Engine) drainInbox() {
	e.inboxMu.Lock()
	batch := e.inbox
	e.inbox = nil
	e.inboxMu.Unlock()
	if len(batch) == 0 {
		return
	}

	e.sessMu.Lock()
	defer e.sessMu.Unlock()
	for _, d := range batch {
		for _, s := range e.sessions {
			if d.team == Neutral || d.team == s.team {
				s.out.Queue(d.line)
			}
		}
	}
}

func (e *Engine) produceSnapshot() {
	snap := e.snapshotPool.AcquireWrite()
	e.world.fillSnapshot(snap, e.snapshotPool.limits)
	e.snapshotPool.PublishWrite()
}

// Snapshot returns a copy of the state as of the last tick
func (e *Engine) Snapshot() GameSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotPool.AcquireRead().Copy()
}

// Read runs fn with the world under the engine read lock. fn must not
// keep references to world state.
func (e *Engine) Read(fn func(w *World)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.world)
}

// SessionCount returns the number of connected players
func (e *Engine) SessionCount() int {
	e.sessMu.Lock()
	defer e.sessMu.Unlock()
	return len(e.sessions)
}

// Overruns returns how many ticks exceeded their budget
func (e *Engine) Overruns() uint64 {
	return e.overruns.Load()
}

// TickRate returns the configured ticks per second
func (e *Engine) TickRate() int { return e.cfg.TickRate }

// Map returns the terrain. It never changes after start.
func (e *Engine) Map() *TileMap { return e.world.Map }

package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/swccgarena/gemp-bot/internal/board"
	"github.com/swccgarena/gemp-bot/internal/card"
	"github.com/swccgarena/gemp-bot/internal/decision"
	"github.com/swccgarena/gemp-bot/internal/event"
	"github.com/swccgarena/gemp-bot/internal/stats"
	"github.com/swccgarena/gemp-bot/internal/transport"
)

// Transport is the subset of *transport.Client the worker depends on,
// narrowed to an interface so tests can drive the state machine against a
// stub session instead of a real HTTP server.
type Transport interface {
	Login(ctx context.Context, username, password string) error
	HallList(ctx context.Context) ([]transport.TableInfo, error)
	CreateTable(ctx context.Context, deckName string, isLibraryDeck bool, tableName, format string) (string, error)
	LeaveTable(ctx context.Context, tableID string)
	GameState(ctx context.Context, channelNumber int, participantID string) (int, []event.Event, error)
	Respond(ctx context.Context, decisionID, payload, participantID string) error
}

// DeployAware is an optional capability a Brain may implement to learn the
// card_id the server assigns to a not-yet-deployed ship blueprint
// (deployment-plan coupling). Brains that don't need it simply don't
// implement the method.
type DeployAware interface {
	NotifyCardDeployed(cardID, blueprintID string)
}

// Options configures a Worker beyond its required collaborators.
type Options struct {
	Username      string
	Password      string
	ParticipantID string // defaults to Username when empty

	PollInterval time.Duration

	// Lobby selects the table to join from each hall listing; it defaults
	// to NoOpLobbyStrategy. The worker never calls CreateTable: table
	// creation is an operator decision, not core logic.
	Lobby LobbyStrategy

	Sink stats.Sink

	// SnapshotBuffer sizes the non-blocking observer channel: admin
	// observers receive snapshots via this channel, never direct
	// references. Defaults to 8.
	SnapshotBuffer int
}

// Worker is the top-level control loop: single owner of one transport
// session, one board state, and one brain, running single-threaded and
// cooperatively scheduled within one logical worker per bot identity.
type Worker struct {
	transport Transport
	registry  *card.Registry
	brain     decision.Brain
	opts      Options

	board     *board.BoardState
	processor *event.Processor
	pipeline  *decision.Pipeline
	history   *decision.History

	snapshots chan *board.BoardState

	stopping atomic.Bool

	mu    sync.RWMutex
	state State

	tableID       string
	channelNumber int

	gameStarted    bool
	gameEndCalled  bool
	gameEndPending bool
}

// New builds a Worker around an already-constructed transport, card
// registry, and brain. Options fills in identity, lobby strategy, and the
// statistics sink.
func New(t Transport, reg *card.Registry, brain decision.Brain, opts Options) *Worker {
	if opts.ParticipantID == "" {
		opts.ParticipantID = opts.Username
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.Lobby == nil {
		opts.Lobby = NoOpLobbyStrategy{}
	}
	if opts.Sink == nil {
		opts.Sink = stats.NopSink{}
	}
	if opts.SnapshotBuffer <= 0 {
		opts.SnapshotBuffer = 8
	}

	w := &Worker{
		transport: t,
		registry:  reg,
		brain:     brain,
		opts:      opts,
		board:     board.New(),
		history:   decision.NewHistory(),
		snapshots: make(chan *board.BoardState, opts.SnapshotBuffer),
		state:     StateStopped,
	}
	w.processor = &event.Processor{
		Registry:               reg,
		OnMyCardDeployed:       w.onMyCardDeployed,
		OnOpponentCardDeployed: w.onOpponentCardDeployed,
		OnGameEnd:              w.onGameEndEvent,
	}
	w.pipeline = decision.NewPipeline(brain)
	return w
}

// State reports the worker's current state, safe for concurrent reads from
// an admin goroutine.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
	log.WithField("state", s).Debug("worker: state transition")
}

// Board returns the current board state pointer. It is intended for use
// from the same goroutine that called Start (e.g. tests asserting on the
// final state after Start returns); concurrent observers should read
// Snapshots() instead, which is the only channel safe for cross-goroutine
// consumption while the worker is running.
func (w *Worker) Board() *board.BoardState { return w.board }

// Snapshots returns the channel admin observers read board snapshots from.
// Publication is non-blocking: a slow observer drops frames instead of
// stalling the worker.
func (w *Worker) Snapshots() <-chan *board.BoardState { return w.snapshots }

// Stop requests a cooperative shutdown. The worker checks this flag between
// suspension points and transitions to Stopped within one poll interval.
func (w *Worker) Stop() { w.stopping.Store(true) }

func (w *Worker) stopRequested() bool { return w.stopping.Load() }

// Start runs the state machine until ctx is canceled, Stop is called, or a
// fatal transport error occurs. It returns nil on a clean cooperative stop
// and a non-nil error only for a fatal transport failure (e.g. bad
// credentials).
func (w *Worker) Start(ctx context.Context) error {
	w.setState(StateConnecting)

	for {
		if ctx.Err() != nil || w.stopRequested() {
			w.shutdownInFlightGame()
			w.setState(StateStopped)
			return nil
		}

		var err error
		switch w.State() {
		case StateConnecting:
			err = w.runConnecting(ctx)
		case StateInLobby:
			err = w.runInLobby(ctx)
		case StateWaitingForOpponent:
			err = w.runWaitingForOpponent(ctx)
		case StateJoining:
			err = w.runJoining(ctx)
		case StatePlaying:
			err = w.runPlaying(ctx)
		case StateReconnecting:
			err = w.runReconnecting(ctx)
		case StateGameEnded:
			w.runGameEnded()
		default:
			w.setState(StateConnecting)
		}

		if err != nil {
			var fatal *transport.FatalError
			if errors.As(err, &fatal) {
				log.WithError(fatal).Error("worker: fatal transport error, stopping")
				w.setState(StateStopped)
				return fatal
			}
			log.WithError(err).Warn("worker: transient error, retrying")
			_ = sleepOrDone(ctx, w.opts.PollInterval)
		}
	}
}

func (w *Worker) runConnecting(ctx context.Context) error {
	if err := w.transport.Login(ctx, w.opts.Username, w.opts.Password); err != nil {
		return err
	}
	w.setState(StateInLobby)
	return nil
}

func (w *Worker) runInLobby(ctx context.Context) error {
	tables, err := w.transport.HallList(ctx)
	if err != nil {
		return err
	}
	if id, ok := w.opts.Lobby.SelectTable(tables); ok {
		w.tableID = id
		w.setState(StateWaitingForOpponent)
		return nil
	}
	return sleepOrDone(ctx, w.opts.PollInterval)
}

func (w *Worker) runWaitingForOpponent(ctx context.Context) error {
	tables, err := w.transport.HallList(ctx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if t.TableID == w.tableID && tableIsPlaying(t) {
			w.setState(StateJoining)
			return nil
		}
	}
	return sleepOrDone(ctx, w.opts.PollInterval)
}

func tableIsPlaying(t transport.TableInfo) bool {
	switch t.Status {
	case "PLAYING", "playing", "IN_PROGRESS", "in_progress":
		return true
	default:
		return false
	}
}

func (w *Worker) runJoining(ctx context.Context) error {
	w.channelNumber = 0
	w.gameStarted = false
	w.gameEndCalled = false
	w.board = board.New()
	w.history = decision.NewHistory()
	w.processor.Registry = w.registry

	n, events, err := w.transport.GameState(ctx, w.channelNumber, w.opts.ParticipantID)
	if err != nil {
		return err
	}
	w.channelNumber = n
	w.applyBatch(events)
	w.setState(StatePlaying)
	return nil
}

func (w *Worker) runPlaying(ctx context.Context) error {
	if w.transportLiveness() != nil && w.transportLiveness().ShouldReconnect() {
		w.setState(StateReconnecting)
		return nil
	}

	n, events, err := w.transport.GameState(ctx, w.channelNumber, w.opts.ParticipantID)
	if err != nil {
		return err
	}
	w.channelNumber = n
	w.applyBatch(events)

	if w.board.GameEndSeen {
		w.setState(StateGameEnded)
	}
	return nil
}

func (w *Worker) runReconnecting(ctx context.Context) error {
	if err := w.transport.Login(ctx, w.opts.Username, w.opts.Password); err != nil {
		return err
	}
	if lt := w.transportLiveness(); lt != nil {
		lt.Reset()
	}
	w.setState(StatePlaying)
	return nil
}

func (w *Worker) runGameEnded() {
	if !w.gameEndCalled {
		w.callGameEnd(w.board.Snapshot())
	}
	w.tableID = ""
	if w.stopRequested() {
		w.setState(StateStopped)
		return
	}
	w.setState(StateInLobby)
}

func (w *Worker) transportLiveness() *transport.LivenessTracker {
	c, ok := w.transport.(*transport.Client)
	if !ok {
		return nil
	}
	return c.Liveness
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-t.C:
		return nil
	}
}

// applyBatch folds every event in order, maintains the game-start call
// exactly once, and routes decision events through the pipeline. It never
// returns an error: malformed or unrecognized events are logged and
// skipped per the fold's own contract.
func (w *Worker) applyBatch(events []event.Event) {
	for _, ev := range events {
		out := w.processor.Apply(w.board, ev)
		if !out.Applied && out.Reason != "" {
			log.WithFields(log.Fields{"tag": ev.Tag, "reason": out.Reason}).Debug("worker: event skipped")
		}

		if !w.gameStarted && w.board.MySide != "" {
			w.gameStarted = true
			w.brain.OnGameStart(w.board.MySide, w.board.MyPlayerName, w.board.OpponentName)
			w.opts.Sink.OnGameStart(w.board.MySide, w.board.MyPlayerName, w.board.OpponentName)
		}

		if w.gameEndPending {
			w.gameEndPending = false
			w.callGameEnd(w.board.Snapshot())
		}

		if ev.Tag == event.TagDecision {
			w.handleDecision(ev)
		}
	}
	w.recordContestedLocations()
	w.publishSnapshot()
}

// recordContestedLocations samples the board at the batch boundary and
// bumps each location where both sides currently have cards present, a
// light running signal evaluators can use for opponent modeling.
func (w *Worker) recordContestedLocations() {
	if w.history == nil {
		return
	}
	for i := 0; i < w.board.LocationCount(); i++ {
		loc := w.board.LocationByIndex(i)
		if loc == nil || loc.Placeholder {
			continue
		}
		if len(loc.MyCards) > 0 && len(loc.TheirCards) > 0 {
			w.history.LocationsContested[i]++
		}
	}
}

func (w *Worker) handleDecision(ev event.Event) {
	raw, ok := ev.DecisionRaw.(decision.RawRequest)
	if !ok {
		log.Warn("worker: decision event carried no parsed request")
		return
	}
	req := decision.BuildRequest(raw, w.board)
	dec, err := w.pipeline.Process(decision.Context{Board: w.board, Request: req, History: w.history})
	if err != nil {
		log.WithError(err).Error("worker: decision pipeline returned a hard error; continuing")
	}
	if dec.Abandoned {
		log.WithField("decision_id", req.DecisionID).Warn("worker: decision abandoned, not responding")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := w.transport.Respond(ctx, req.DecisionID, dec.Choice, w.opts.ParticipantID); err != nil {
		log.WithError(err).WithField("decision_id", req.DecisionID).Error("worker: failed to post decision response")
	}
}

func (w *Worker) onMyCardDeployed(cardID, blueprintID string) {
	if aware, ok := w.brain.(DeployAware); ok {
		aware.NotifyCardDeployed(cardID, blueprintID)
	}
}

func (w *Worker) onOpponentCardDeployed(string, string) {
	if w.history != nil {
		w.history.CardsOpponentDeployed++
	}
}

// onGameEndEvent is the event processor's OnGameEnd hook: it fires exactly
// once per game, inside the fold while the board's write lock is held, so
// it only marks the game end; applyBatch then reports it to the brain and
// sink right after the GAME_END event is applied, using the authoritative
// GAME_END-reported winner when present.
func (w *Worker) onGameEndEvent() {
	w.gameEndPending = true
}

func (w *Worker) callGameEnd(final *board.BoardState) {
	if w.gameEndCalled {
		return
	}
	w.gameEndCalled = true
	var won bool
	if final.Won != nil {
		won = *final.Won
	} else {
		won = inferOutcomeFromState(final)
	}
	w.brain.OnGameEnd(won, final)
	w.opts.Sink.OnGameEnd(won, final)
}

// shutdownInFlightGame handles the case where Start returns (context
// canceled or a cooperative Stop) while a game is in progress and GAME_END
// was never seen: it infers an outcome from pile emptiness rather than
// silently never calling on_game_end (Open Question decision #2).
func (w *Worker) shutdownInFlightGame() {
	if !w.gameStarted || w.gameEndCalled {
		return
	}
	w.callGameEnd(w.board.Snapshot())
}

// inferOutcomeFromState is the pile-emptiness fallback used only when no
// explicit GAME_END winner is known (the stream ended without GAME_END, or
// GAME_END named no winner): a
// reserve deck emptied to zero is the classic forced-loss condition in this
// card game, checked on both sides with "mine empties first" losing.
func inferOutcomeFromState(final *board.BoardState) bool {
	if final == nil {
		return false
	}
	myEmpty := final.MyZones.ReserveDeckSize == 0
	theirEmpty := final.TheirZones.ReserveDeckSize == 0
	switch {
	case myEmpty && !theirEmpty:
		return false
	case theirEmpty && !myEmpty:
		return true
	default:
		log.Warn("worker: could not infer game outcome from final state; defaulting to loss")
		return false
	}
}

func (w *Worker) publishSnapshot() {
	snap := w.board.Snapshot()
	select {
	case w.snapshots <- snap:
	default:
		// slow observer: drop the frame rather than stall the worker
	}
}

// Package stats defines the statistics hook the worker calls exactly once
// per game boundary. Persistence of what a Sink records is out of scope;
// this package only owns the contract and two trivial implementations.
package stats

import (
	log "github.com/sirupsen/logrus"

	"github.com/swccgarena/gemp-bot/internal/board"
)

// Sink is notified at the two game boundaries where persisted state (out
// of this core's scope) would be written: game start and game end. The
// worker guarantees OnGameEnd is called exactly once per game.
type Sink interface {
	OnGameStart(mySide, myPlayerName, opponentName string)
	OnGameEnd(won bool, final *board.BoardState)
}

// NopSink discards every notification. It is the default when no
// persistence layer is wired in.
type NopSink struct{}

func (NopSink) OnGameStart(mySide, myPlayerName, opponentName string) {}
func (NopSink) OnGameEnd(won bool, final *board.BoardState)           {}

// LogSink writes a single structured line per boundary, standing in for a
// real persistence layer (achievements, history, stats) that this core
// does not implement.
type LogSink struct{}

func (LogSink) OnGameStart(mySide, myPlayerName, opponentName string) {
	log.WithFields(log.Fields{
		"my_side":   mySide,
		"my_player": myPlayerName,
		"opponent":  opponentName,
	}).Info("stats: game start")
}

func (LogSink) OnGameEnd(won bool, final *board.BoardState) {
	fields := log.Fields{"won": won}
	if final != nil {
		fields["turn_number"] = final.TurnNumber
		fields["power_advantage"] = final.PowerAdvantage()
	}
	log.WithFields(fields).Info("stats: game end")
}

package worker

import "github.com/swccgarena/gemp-bot/internal/transport"

// LobbyStrategy selects which table to join from the current hall listing.
// Lobby/table management itself is out of scope for this core; the worker
// only drives the state machine shape around whatever strategy is injected,
// treating table selection as an external collaborator.
type LobbyStrategy interface {
	// SelectTable inspects the latest hall listing and reports a table id
	// to join. ok=false leaves the worker in StateInLobby for another poll.
	SelectTable(tables []transport.TableInfo) (tableID string, ok bool)
}

// NoOpLobbyStrategy never selects a table; a worker built without an
// explicit strategy stays in StateInLobby indefinitely, which is correct
// when table selection is driven entirely by an external operator.
type NoOpLobbyStrategy struct{}

func (NoOpLobbyStrategy) SelectTable(tables []transport.TableInfo) (string, bool) {
	return "", false
}

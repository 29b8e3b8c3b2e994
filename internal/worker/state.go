// Package worker implements the top-level control loop: a single state
// machine owning one transport session, one board state, and one brain,
// driving the long-poll/decision cycle until stopped or a fatal transport
// error occurs.
package worker

// State is one node of the closed worker state machine.
type State string

const (
	StateStopped            State = "Stopped"
	StateConnecting         State = "Connecting"
	StateInLobby            State = "InLobby"
	StateWaitingForOpponent State = "WaitingForOpponent"
	StateJoining            State = "Joining"
	StatePlaying            State = "Playing"
	StateGameEnded          State = "GameEnded"

	// StateReconnecting is the transient reconnection substate entered from
	// Playing after N consecutive game_state timeouts, exited back into
	// Playing once login succeeds again.
	StateReconnecting State = "Reconnecting"
)

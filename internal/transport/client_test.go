package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swccgarena/gemp-bot/internal/board"
	"github.com/swccgarena/gemp-bot/internal/decision"
	"github.com/swccgarena/gemp-bot/internal/event"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, srv.Client(), time.Second, time.Second)
	require.NoError(t, err)
	return c
}

func TestLoginSuccessStoresPlayerName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})
	err := c.Login(context.Background(), "luke", "secret")
	require.NoError(t, err)
	assert.Equal(t, "luke", c.myPlayerName)
}

func TestLoginNon2xxIsFatal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	err := c.Login(context.Background(), "luke", "wrong")
	require.Error(t, err)
	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
}

func TestHallListParsesTables(t *testing.T) {
	body := `<hall><tables><table id="7" name="Table A" status="OPEN" format="Premiere"><player name="luke"/></table></tables></hall>`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hall", r.URL.Path)
		w.Write([]byte(body))
	})
	tables, err := c.HallList(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "7", tables[0].TableID)
	assert.Equal(t, "Table A", tables[0].Name)
	assert.Equal(t, []string{"luke"}, tables[0].Players)
}

func TestHallListMalformedXMLReturnsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<hall><tables><table id="))
	})
	tables, err := c.HallList(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestCreateTableLooksUpIDByName(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write([]byte(`<hall><tables><table id="42" name="My Table" status="OPEN" format="Premiere"></table></tables></hall>`))
	})
	id, err := c.CreateTable(context.Background(), "deck1", true, "My Table", "Premiere")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, 2, calls)
}

func TestGameStateParsesChannelNumberAndPhaseEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<gamestate channelNumber="5"><event type="PHASE"><parameter name="phase" value="Deploy"/></event></gamestate>`))
	})
	channel, events, err := c.GameState(context.Background(), 0, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, channel)
	require.Len(t, events, 1)
	assert.Equal(t, event.TagPhase, events[0].Tag)
	assert.Equal(t, board.Phase("Deploy"), events[0].Phase)
}

func TestGameStateParsesPowerArraysAndPiles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<gamestate channelNumber="9">
			<event type="GAME_STATE" player="me" _0="-1" _1="4">
				<parameter name="forcePile" value="3"/>
				<parameter name="hand" value="c1,c2"/>
			</event>
			<event type="GAME_STATE" player="opponent" _0="2">
				<parameter name="forcePile" value="1"/>
			</event>
		</gamestate>`))
	})
	_, events, err := c.GameState(context.Background(), 0, "p1")
	require.NoError(t, err)
	require.Len(t, events, 2)

	mine := events[0]
	assert.Equal(t, []int{-1, 4}, mine.MyPower)
	assert.Equal(t, 3, mine.MyForcePile)
	assert.Equal(t, []string{"c1", "c2"}, mine.MyHand)

	theirs := events[1]
	assert.Equal(t, []int{2}, theirs.TheirPower)
	assert.Equal(t, 1, theirs.TheirForcePile)
}

func TestGameStateParsesDecisionEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<gamestate channelNumber="1">
			<event type="DECISION">
				<ge decisionType="MULTIPLE_CHOICE" id="d1" text="Choose" noPass="true">
					<option id="0" text="First" selectable="true"/>
					<option id="1" text="Second" selectable="false"/>
				</ge>
			</event>
		</gamestate>`))
	})
	_, events, err := c.GameState(context.Background(), 0, "p1")
	require.NoError(t, err)
	require.Len(t, events, 1)

	raw, ok := events[0].DecisionRaw.(decision.RawRequest)
	require.True(t, ok)
	assert.Equal(t, "d1", raw.DecisionID)
	assert.Equal(t, decision.TypeMultipleChoice, raw.Type)
	assert.True(t, raw.NoPass)
	require.Len(t, raw.Options, 2)
	require.Len(t, raw.Selectable, 2)
	assert.True(t, raw.Selectable[0])
	assert.False(t, raw.Selectable[1])
}

func TestRespondPostsForm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "d1", r.FormValue("decisionId"))
		assert.Equal(t, "0", r.FormValue("decisionValue"))
		w.WriteHeader(http.StatusOK)
	})
	err := c.Respond(context.Background(), "d1", "0", "p1")
	require.NoError(t, err)
}

package transport

import "encoding/xml"

// hallXML is the wire shape of the GET hall endpoint's response body.
type hallXML struct {
	XMLName xml.Name   `xml:"hall"`
	Tables  []tableXML `xml:"tables>table"`
}

type tableXML struct {
	ID      string      `xml:"id,attr"`
	Name    string      `xml:"name,attr"`
	Status  string      `xml:"status,attr"`
	Format  string      `xml:"format,attr"`
	Players []playerXML `xml:"player"`
}

type playerXML struct {
	Name string `xml:"name,attr"`
}

// deckListXML is the wire shape of the deck/libraryList (and userList)
// endpoint's response body.
type deckListXML struct {
	XMLName xml.Name  `xml:"decks"`
	Decks   []deckXML `xml:"deck"`
}

type deckXML struct {
	Name string `xml:"name,attr"`
}

// gameStateXML is the wire shape of one gameState long-poll response: a
// channel number plus a batch of loosely-typed events, each carrying a bag
// of named parameters. The server's actual event vocabulary is read
// defensively: unrecognized elements and attributes are ignored rather than
// rejected.
type gameStateXML struct {
	XMLName       xml.Name   `xml:"gamestate"`
	ChannelNumber int        `xml:"channelNumber,attr"`
	Events        []eventXML `xml:"event"`
}

// eventXML is one event within a gameState batch. Player/owner-scoped
// payloads (GAME_STATE power arrays and pile sizes) carry a "player"
// attribute identifying which side the payload describes; the server emits
// one such event per side per snapshot, and the translator composes them
// into a single board-state update because each only ever sets the fields
// belonging to its own side.
type eventXML struct {
	Type       string         `xml:"type,attr"`
	Player     string         `xml:"player,attr"`
	Parameters []parameterXML `xml:"parameter"`
	// Power arrives as a sparse indexed attribute set (_0="-1" _2="5");
	// captured via the raw attribute list since the index set is sparse
	// and unbounded.
	Attrs []xml.Attr `xml:",any,attr"`
	// Decision carries the nested <ge> element for DECISION events.
	Decision *geXML `xml:"ge"`
}

type parameterXML struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

func (e eventXML) param(name string) (string, bool) {
	for _, p := range e.Parameters {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// geXML is the wire shape of a <ge> decision element embedded within a
// gameState event batch.
type geXML struct {
	DecisionType string      `xml:"decisionType,attr"`
	ID           string      `xml:"id,attr"`
	Text         string      `xml:"text,attr"`
	NoPass       string      `xml:"noPass,attr"`
	DefaultValue string      `xml:"defaultValue,attr"`
	Options      []optionXML `xml:"option"`
}

// optionXML is one selectable (or non-selectable) choice within a <ge>
// decision element.
type optionXML struct {
	ID                  string `xml:"id,attr"`
	Text                string `xml:"text,attr"`
	CardID              string `xml:"cardId,attr"`
	TargetLocationIndex string `xml:"targetLocationIndex,attr"`
	Selectable          string `xml:"selectable,attr"`
	IntegerMin          string `xml:"min,attr"`
	IntegerMax          string `xml:"max,attr"`
}

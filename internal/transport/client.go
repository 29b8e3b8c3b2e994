// Package transport implements the stateful HTTP client against the
// remote GEMP-style server: session cookies, login, hall listing,
// table lifecycle, and the long-poll gameState endpoint.
package transport

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/swccgarena/gemp-bot/internal/event"
)

// FatalError marks a transport error the worker must not retry. Only a
// non-2xx response to Login is reported as a FatalError; other requests
// return ordinary errors.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("transport: fatal %s: %v", e.Op, e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// TableInfo is one row of the hall listing.
type TableInfo struct {
	TableID string
	Name    string
	Status  string
	Format  string
	Players []string
}

// DeckInfo is one deck descriptor from a library/user deck listing.
type DeckInfo struct {
	Name string
}

// Client is the single-session HTTP client. It is constructed with an
// injected *http.Client so tests can substitute an httptest.Server-backed
// client without touching real sockets.
type Client struct {
	baseURL string
	http    *http.Client

	requestTimeout   time.Duration
	gameStateTimeout time.Duration

	myPlayerName string

	Liveness *LivenessTracker

	log *log.Entry
}

// NewClient builds a Client against baseURL. If httpClient is nil, a
// client with a cookie jar and a bounded idle-connection transport is
// constructed.
func NewClient(baseURL string, httpClient *http.Client, requestTimeout, gameStateTimeout time.Duration) (*Client, error) {
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("transport: build cookie jar: %w", err)
		}
		httpClient = &http.Client{
			Jar: jar,
			Transport: loggingRoundTripper{
				next: &http.Transport{
					MaxIdleConns:        16,
					MaxIdleConnsPerHost: 4,
					IdleConnTimeout:     90 * time.Second,
				},
			},
		}
	}
	return &Client{
		baseURL:          strings.TrimRight(baseURL, "/"),
		http:             httpClient,
		requestTimeout:   requestTimeout,
		gameStateTimeout: gameStateTimeout,
		Liveness:         NewLivenessTracker(3),
		log:              log.WithField("component", "transport"),
	}, nil
}

// loggingRoundTripper records verb, path, status, and elapsed time at
// debug level, the ambient logging stack applied to the transport
// boundary.
type loggingRoundTripper struct {
	next http.RoundTripper
}

func (l loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.next.RoundTrip(req)
	fields := log.Fields{
		"method":  req.Method,
		"path":    req.URL.Path,
		"elapsed": time.Since(start),
	}
	if err != nil {
		fields["error"] = err
		log.WithFields(fields).Debug("transport request failed")
		return resp, err
	}
	fields["status"] = resp.StatusCode
	log.WithFields(fields).Debug("transport request completed")
	return resp, nil
}

// Login authenticates against the server and stores the resulting session
// cookie in the client's cookie jar for every subsequent request.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	form := url.Values{"login": {username}, "password": {password}}
	resp, err := c.post(ctx, "/login", form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &FatalError{Op: "login", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	c.myPlayerName = username
	c.log.WithField("username", username).Info("login succeeded")
	return nil
}

// HallList fetches the current table listing. Malformed XML is logged and
// returns an empty list rather than an error, since a transient server-side
// formatting glitch should not be treated as fatal.
func (c *Client) HallList(ctx context.Context) ([]TableInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.get(ctx, "/hall", url.Values{"participantId": {"null"}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed hallXML
	if err := xml.Unmarshal(body, &parsed); err != nil {
		c.log.WithError(err).Warn("hall: malformed XML, returning empty list")
		return nil, nil
	}

	out := make([]TableInfo, 0, len(parsed.Tables))
	for _, t := range parsed.Tables {
		info := TableInfo{TableID: t.ID, Name: t.Name, Status: t.Status, Format: t.Format}
		for _, p := range t.Players {
			info.Players = append(info.Players, p.Name)
		}
		out = append(out, info)
	}
	return out, nil
}

// CreateTable posts a new table creation request and then re-lists the
// hall to discover the created row's id by name, since the creation POST
// itself does not return one. It returns "" on failure.
func (c *Client) CreateTable(ctx context.Context, deckName string, isLibraryDeck bool, tableName, format string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	form := url.Values{
		"deckName":   {deckName},
		"sampleDeck": {strconv.FormatBool(isLibraryDeck)},
		"tableName":  {tableName},
		"format":     {format},
	}
	resp, err := c.post(ctx, "/hall", form)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil
	}

	tables, err := c.HallList(ctx)
	if err != nil {
		return "", err
	}
	for _, t := range tables {
		if t.Name == tableName {
			return t.TableID, nil
		}
	}
	return "", nil
}

// LeaveTable leaves the named table. Best-effort: network errors are
// logged but not returned.
func (c *Client) LeaveTable(ctx context.Context, tableID string) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.post(ctx, "/table/leave", url.Values{"tableId": {tableID}})
	if err != nil {
		c.log.WithError(err).WithField("table_id", tableID).Warn("leave_table failed (best effort)")
		return
	}
	resp.Body.Close()
}

// ListLibraryDecks lists the account's library decks. Best-effort.
func (c *Client) ListLibraryDecks(ctx context.Context) []DeckInfo {
	return c.listDecks(ctx, "/deck/libraryList")
}

// ListUserDecks lists the account's user-built decks. Best-effort.
func (c *Client) ListUserDecks(ctx context.Context) []DeckInfo {
	return c.listDecks(ctx, "/deck/userList")
}

func (c *Client) listDecks(ctx context.Context, path string) []DeckInfo {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.get(ctx, path, nil)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Warn("list decks failed (best effort)")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	var parsed deckListXML
	if err := xml.Unmarshal(body, &parsed); err != nil {
		c.log.WithError(err).Warn("deck list: malformed XML")
		return nil
	}
	out := make([]DeckInfo, 0, len(parsed.Decks))
	for _, d := range parsed.Decks {
		out = append(out, DeckInfo{Name: d.Name})
	}
	return out
}

// GameState issues the long-poll gameState request for channelNumber and
// returns the new channel number plus the parsed event batch. A read
// timeout is non-fatal: it returns the same channelNumber, a nil batch,
// and records a timeout on the liveness tracker so the worker can decide
// whether to reconnect.
func (c *Client) GameState(ctx context.Context, channelNumber int, participantID string) (int, []event.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.gameStateTimeout)
	defer cancel()

	resp, err := c.get(ctx, "/gameState", url.Values{
		"channelNumber": {strconv.Itoa(channelNumber)},
		"participantId": {participantID},
	})
	if err != nil {
		if isTimeout(err) {
			c.Liveness.RecordTimeout()
			return channelNumber, nil, nil
		}
		return channelNumber, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return channelNumber, nil, fmt.Errorf("transport: gameState status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return channelNumber, nil, err
	}

	var parsed gameStateXML
	if err := xml.Unmarshal(body, &parsed); err != nil {
		c.log.WithError(err).Warn("gameState: malformed XML batch skipped")
		return channelNumber, nil, nil
	}

	c.Liveness.Reset()
	events := translateBatch(parsed, c.myPlayerName)
	return parsed.ChannelNumber, events, nil
}

// Respond posts a decision response. The request is idempotent from the
// server's perspective, so a transient network error is retried once.
func (c *Client) Respond(ctx context.Context, decisionID, payload, participantID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	form := url.Values{
		"decisionId":    {decisionID},
		"decisionValue": {payload},
		"participantId": {participantID},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := c.post(ctx, "/gameDecision", form)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("transport: gameDecision status %d", resp.StatusCode)
			continue
		}
		return nil
	}
	return lastErr
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	full := c.baseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *Client) post(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

package session

import (
	"encoding/json"
	"testing"
	"time"

	"gamearena/internal/adjudicator"
	"gamearena/internal/adjudicator/minoritygame"
	"gamearena/internal/admission"
	"gamearena/internal/clock"
	"gamearena/internal/domain"
	"gamearena/internal/gamemanager"
	"gamearena/internal/wire"
)

type fakeChannel struct {
	sent   []any
	closed bool
}

func (f *fakeChannel) Send(msg any) error {
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func newTestDispatcher() (*Dispatcher, *gamemanager.Manager) {
	reg := adjudicator.NewRegistry()
	reg.Register(minoritygame.GameType, minoritygame.New)
	fc := clock.NewFake(time.Unix(0, 0))
	var d *Dispatcher
	mgr := gamemanager.New(fc, reg, func(id domain.ParticipantID, msg any) error {
		return d.Deliver(id, msg)
	}, gamemanager.Config{QueueDepth: 4})
	d = New(mgr, admission.New(admission.Config{RatePerSecond: 1000, Burst: 1000, MaxViolations: 5}), fc, time.Minute, NewReconnectIssuer([]byte("test-secret"), time.Minute))
	return d, mgr
}

func frame(t *testing.T, env wire.Envelope) []byte {
	t.Helper()
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return b
}

func TestPingYieldsPongWithoutTouchingManager(t *testing.T) {
	d, _ := newTestDispatcher()
	ch := &fakeChannel{}
	d.Connect("p1", ch)
	d.HandleFrame("p1", frame(t, wire.Envelope{Type: wire.TypePing}))
	if len(ch.sent) != 1 {
		t.Fatalf("sent = %d messages, want 1 pong", len(ch.sent))
	}
	env, ok := ch.sent[0].(wire.Envelope)
	if !ok || env.Type != wire.TypePong {
		t.Fatalf("sent[0] = %#v, want a pong envelope", ch.sent[0])
	}
}

func TestCreateGameThenJoinSecondParticipant(t *testing.T) {
	d, mgr := newTestDispatcher()
	ch1, ch2 := &fakeChannel{}, &fakeChannel{}
	d.Connect("p1", ch1)
	d.Connect("p2", ch2)

	rounds := 1
	d.HandleFrame("p1", frame(t, wire.Envelope{Type: wire.TypeCreateGame, CreateGame: &wire.CreateGameIn{
		GameType:        minoritygame.GameType,
		Rounds:          &rounds,
		RoundDeadlineMs: 1000,
		MinParticipants: 2,
		MaxParticipants: 3,
	}}))

	var created *wire.GameCreatedOut
	for _, m := range ch1.sent {
		if env, ok := m.(wire.Envelope); ok && env.Type == wire.TypeGameCreated {
			created = env.GameCreated
		}
	}
	if created == nil {
		t.Fatalf("expected a gameCreated frame, got %#v", ch1.sent)
	}

	d.HandleFrame("p2", frame(t, wire.Envelope{Type: wire.TypeJoinGame, JoinGame: &wire.JoinGameIn{GameID: created.GameID}}))

	snap, err := mgr.Snapshot(domain.GameID(created.GameID))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Participants) != 2 {
		t.Fatalf("participants = %d, want 2", len(snap.Participants))
	}
}

func TestListGamesReturnsFilteredSummaries(t *testing.T) {
	d, _ := newTestDispatcher()
	ch := &fakeChannel{}
	d.Connect("p1", ch)

	rounds := 1
	d.HandleFrame("p1", frame(t, wire.Envelope{Type: wire.TypeCreateGame, CreateGame: &wire.CreateGameIn{
		GameType:        minoritygame.GameType,
		Rounds:          &rounds,
		RoundDeadlineMs: 1000,
		MinParticipants: 2,
		MaxParticipants: 3,
	}}))

	d.HandleFrame("p1", frame(t, wire.Envelope{Type: wire.TypeListGames, ListGames: &wire.ListGamesIn{
		GameType: minoritygame.GameType,
	}}))

	var list *wire.GameListOut
	for _, m := range ch.sent {
		if env, ok := m.(wire.Envelope); ok && env.Type == wire.TypeGameList {
			list = env.GameList
		}
	}
	if list == nil || len(list.Games) != 1 {
		t.Fatalf("expected exactly one game in the filtered list, got %#v", list)
	}
	if list.Games[0].GameType != minoritygame.GameType || list.Games[0].ParticipantCount != 1 {
		t.Fatalf("game summary = %#v, want gameType=%s participantCount=1", list.Games[0], minoritygame.GameType)
	}

	d.HandleFrame("p1", frame(t, wire.Envelope{Type: wire.TypeListGames, ListGames: &wire.ListGamesIn{
		GameType: "not_a_real_game_type",
	}}))
	var empty *wire.GameListOut
	for i := len(ch.sent) - 1; i >= 0; i-- {
		if env, ok := ch.sent[i].(wire.Envelope); ok && env.Type == wire.TypeGameList {
			empty = env.GameList
			break
		}
	}
	if empty == nil || len(empty.Games) != 0 {
		t.Fatalf("expected an empty list for an unrelated gameType filter, got %#v", empty)
	}
}

func TestMalformedFrameClosesChannel(t *testing.T) {
	d, _ := newTestDispatcher()
	ch := &fakeChannel{}
	d.Connect("p1", ch)
	d.HandleFrame("p1", []byte("not json"))
	if !ch.closed {
		t.Fatalf("expected channel to be closed after a malformed frame")
	}
	found := false
	for _, m := range ch.sent {
		if env, ok := m.(wire.Envelope); ok && env.Type == wire.TypeError && env.Error.Code == wire.ErrInvalidMessage {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an invalid-message error frame before closing")
	}
}

func TestRateLimitedFrameIsRejected(t *testing.T) {
	reg := adjudicator.NewRegistry()
	reg.Register(minoritygame.GameType, minoritygame.New)
	fc := clock.NewFake(time.Unix(0, 0))
	var d *Dispatcher
	mgr := gamemanager.New(fc, reg, func(id domain.ParticipantID, msg any) error {
		return d.Deliver(id, msg)
	}, gamemanager.Config{QueueDepth: 4})
	d = New(mgr, admission.New(admission.Config{RatePerSecond: 1, Burst: 1, MaxViolations: 5}), fc, time.Minute, nil)

	ch := &fakeChannel{}
	d.Connect("p1", ch)
	d.HandleFrame("p1", frame(t, wire.Envelope{Type: wire.TypePing}))
	d.HandleFrame("p1", frame(t, wire.Envelope{Type: wire.TypePing}))

	var rateLimited bool
	for _, m := range ch.sent {
		if env, ok := m.(wire.Envelope); ok && env.Type == wire.TypeError && env.Error.Code == wire.ErrRateLimited {
			rateLimited = true
		}
	}
	if !rateLimited {
		t.Fatalf("expected the second immediate frame to be rate limited")
	}
}

func TestCheckIdleReportsStaleConnections(t *testing.T) {
	d, _ := newTestDispatcher()
	fc := clock.NewFake(time.Unix(0, 0))
	d = New(d.manager, admission.New(admission.DefaultConfig()), fc, time.Second, nil)
	ch := &fakeChannel{}
	d.Connect("p1", ch)
	fc.Advance(2 * time.Second)
	stale := d.CheckIdle(fc.Now())
	if len(stale) != 1 || stale[0] != "p1" {
		t.Fatalf("CheckIdle = %v, want [p1]", stale)
	}
}

func TestReconnectTokenRebindsParticipant(t *testing.T) {
	d, mgr := newTestDispatcher()
	ch1 := &fakeChannel{}
	d.Connect("p1", ch1)

	rounds := 0
	d.HandleFrame("p1", frame(t, wire.Envelope{Type: wire.TypeCreateGame, CreateGame: &wire.CreateGameIn{
		GameType:        minoritygame.GameType,
		Open:            true,
		Rounds:          &rounds,
		RoundDeadlineMs: 1000,
		MinParticipants: 1,
		MaxParticipants: 3,
	}}))

	var gameID string
	var token string
	for _, m := range ch1.sent {
		env, ok := m.(wire.Envelope)
		if !ok {
			continue
		}
		if env.Type == wire.TypeGameCreated {
			gameID = env.GameCreated.GameID
		}
		if env.Type == wire.TypeReconnectToken {
			token = env.ReconnectToken.Token
		}
	}
	if gameID == "" {
		t.Fatalf("expected a gameCreated frame, got %#v", ch1.sent)
	}
	if token == "" {
		t.Fatalf("expected a reconnectToken frame, got %#v", ch1.sent)
	}

	// p1's transport drops and reconnects under a fresh ParticipantID.
	d.Disconnect("p1")
	ch2 := &fakeChannel{}
	d.Connect("p1-new", ch2)
	d.HandleFrame("p1-new", frame(t, wire.Envelope{Type: wire.TypePlayerInfo, PlayerInfo: &wire.PlayerInfoIn{
		Name:  "returning",
		Token: &token,
	}}))

	snap, err := mgr.Snapshot(domain.GameID(gameID))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if _, ok := snap.Participants["p1"]; !ok {
		t.Fatalf("expected p1 to still be the game's participant after reconnect, got %v", snap.Participants)
	}
}

func TestReconnectTokenWithWrongSecretIsRejected(t *testing.T) {
	d, _ := newTestDispatcher()
	ch := &fakeChannel{}
	d.Connect("p1", ch)

	forged, err := NewReconnectIssuer([]byte("not-the-real-secret"), time.Minute).Issue("g1", "p1")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	d.HandleFrame("p1", frame(t, wire.Envelope{Type: wire.TypePlayerInfo, PlayerInfo: &wire.PlayerInfoIn{
		Name:  "attacker",
		Token: &forged,
	}}))

	var rejected bool
	for _, m := range ch.sent {
		if env, ok := m.(wire.Envelope); ok && env.Type == wire.TypeError && env.Error.Code == wire.ErrInvalidMessage {
			rejected = true
		}
	}
	if !rejected {
		t.Fatalf("expected a forged reconnect token to be rejected")
	}
}

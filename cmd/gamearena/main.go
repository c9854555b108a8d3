// Command gamearena is the standalone process entrypoint: it wires the
// adjudicator registry, GameManager, AdmissionControl, Dispatcher and
// websocket gateway together and serves them over HTTP. Generalizes the
// teacher's cmd/nakama/main.go, which only proxied into the Nakama plugin
// loader, into a real `func main` since this engine's primary transport
// is the standalone websocket gateway rather than an externally-hosted
// Nakama process.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"gamearena/internal/adjudicator"
	"gamearena/internal/adjudicator/kingofthehill"
	"gamearena/internal/adjudicator/minoritygame"
	"gamearena/internal/adjudicator/prisonersdilemma"
	"gamearena/internal/admission"
	"gamearena/internal/clock"
	"gamearena/internal/config"
	"gamearena/internal/domain"
	"gamearena/internal/gamemanager"
	"gamearena/internal/logging"
	"gamearena/internal/ports/wsgate"
	"gamearena/internal/session"
)

func main() {
	log := logging.New(slog.LevelInfo)

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Error("load server config: %v", err)
		os.Exit(1)
	}
	if err := config.LoadCatalog(cfg.CatalogPath); err != nil {
		log.Error("load catalog: %v", err)
		os.Exit(1)
	}

	registry := adjudicator.NewRegistry()
	registry.Register(minoritygame.GameType, minoritygame.New)
	registry.Register(prisonersdilemma.GameType, prisonersdilemma.New)
	registry.Register(kingofthehill.GameType, kingofthehill.New)

	c := clock.System{}

	// Manager.deliver and Dispatcher each need the other; the dispatcher
	// is forward-declared so the deliver closure can capture it before
	// it exists, the same pattern session's own tests use to wire a
	// Manager and Dispatcher back onto each other.
	var dispatcher *session.Dispatcher
	manager := gamemanager.New(c, registry, func(id domain.ParticipantID, msg any) error {
		return dispatcher.Deliver(id, msg)
	}, gamemanager.Config{
		QueueDepth: cfg.BroadcasterQueueDepth,
	})

	admissionControl := admission.New(admission.Config{
		RatePerSecond: cfg.AdmissionRatePerSecond,
		Burst:         cfg.AdmissionBurst,
	})

	reconnectIssuer := session.NewReconnectIssuer([]byte(cfg.ReconnectSecret), cfg.SessionIdleTimeout())

	dispatcher = session.New(manager, admissionControl, c, cfg.SessionIdleTimeout(), reconnectIssuer)

	gateway := wsgate.New(dispatcher, cfg.SessionIdleTimeout()/2)

	log.Info("gamearena listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, gateway); err != nil {
		log.Error("server exited: %v", err)
		os.Exit(1)
	}
}

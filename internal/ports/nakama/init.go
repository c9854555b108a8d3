package nakama

import (
	"context"
	"database/sql"

	"gamearena/internal/session"

	"github.com/heroiclabs/nakama-common/runtime"
)

// RegisterDispatcher wires the already-built, transport-shared Dispatcher
// into this package before InitModule registers the match handler.
// Generalizes the teacher's InitModule building its own app.Service and
// stashing it on MatchState: here the Dispatcher is built once by the
// process entrypoint (shared with the websocket gateway, if both are
// enabled) and handed in rather than constructed per-match.
func RegisterDispatcher(d *session.Dispatcher) {
	sharedDispatcher = d
}

// InitModule wires the match handler for the Nakama runtime. Call
// RegisterDispatcher before this, from the process entrypoint, once a
// Dispatcher exists.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	if err := initializer.RegisterMatch(MatchName, NewMatch); err != nil {
		return err
	}
	logger.Info("gamearena Nakama module loaded.")
	return nil
}

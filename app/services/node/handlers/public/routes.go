package public

import (
	"crypto/ecdsa"
	"net/http"

	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/events"
	"github.com/ardanlabs/powchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log        *zap.SugaredLogger
	State      *state.State
	Evts       *events.Events
	PrivateKey *ecdsa.PrivateKey
}

// Routes binds all the public routes.
func Routes(app *web.App, cfg Config) {
	pbl := Handlers{
		Log:        cfg.Log,
		State:      cfg.State,
		Evts:       cfg.Evts,
		PrivateKey: cfg.PrivateKey,
		WS:         websocket.Upgrader{},
	}

	const version = "v1"

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/chain", pbl.Chain)
	app.Handle(http.MethodGet, version, "/chain/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/mine", pbl.Mine)
	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)
	app.Handle(http.MethodGet, version, "/broadcast", pbl.Broadcast)
	app.Handle(http.MethodOptions, version, "/*path", pbl.Preflight)
}

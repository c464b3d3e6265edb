package health

import (
	"log/slog"
	"net/http"

	"teambot/lib/api/response"

	"github.com/go-chi/render"
)

// Probe reports whether the bot is accepting updates.
type Probe interface {
	Ready() bool
}

type status struct {
	Status string `json:"status"`
	Bot    bool   `json:"bot"`
}

func Check(_ *slog.Logger, probe Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := probe != nil && probe.Ready()
		render.JSON(w, r, response.Ok(status{Status: "ok", Bot: ready}))
	}
}

package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"teambot/lib/api/response"
	"teambot/lib/sl"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// Core accepts Telegram updates delivered over HTTP.
type Core interface {
	Ready() bool
	ProcessUpdate(update *tgbotapi.Update) error
}

// Update acknowledges the delivery immediately and hands the update to the
// dispatcher in the background. Telegram retries on non-200, so a slow
// handler must not block the response.
func Update(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With(
			sl.Module("http.handlers.webhook"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil || !handler.Ready() {
			log.Warn("bot not ready")
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Bot not ready"))
			return
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			log.Warn("decoding update", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid update payload"))
			return
		}

		go func() {
			if err := handler.ProcessUpdate(&update); err != nil {
				log.Error("processing update", sl.Err(err))
			}
		}()

		render.JSON(w, r, response.Ok(nil))
	}
}

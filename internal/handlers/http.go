// internal/handlers/http.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lovelobby/server/internal/catalog"
	"github.com/lovelobby/server/internal/lobby"
)

// PacksHandler lists the available question packs so clients can render the
// pack selector without a websocket.
func PacksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(catalog.Packs())
	}
}

// HealthHandler reports liveness plus the current lobby count for
// monitoring.
func HealthHandler(store *lobby.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"lobbies": store.Count(),
		})
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/cors"

	"github.com/jaison-mx/cartelera/db"
	"github.com/jaison-mx/cartelera/events"
	"github.com/jaison-mx/cartelera/library"
	"github.com/jaison-mx/cartelera/player"
)

type playlistEntry struct {
	ID     string `json:"id"`
	Src    string `json:"src"`
	Kind   string `json:"kind"`
	Mode   string `json:"mode"`
	RuleID string `json:"rule_id,omitempty"`
}

func renderJSONMessage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	res := map[string]string{"message": message}
	json.NewEncoder(w).Encode(res)
}

// RegisterRoutes wires the operator status API. It's read-only: screens
// are configured through the remote playlist, not through this surface.
func RegisterRoutes(mux *http.ServeMux, p *player.Player, lib *library.Library, store db.Store) http.Handler {

	events.Server.CreateStream(events.StreamPlaying)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		renderJSONMessage(w, "Cartelera signage player status API")
	})

	mux.HandleFunc("/api/v1/playing", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, ok := p.NowPlaying()
		if !ok {
			json.NewEncoder(w).Encode(map[string]bool{"idle": true, "has_valid_media": p.HasValidMedia()})
			return
		}
		json.NewEncoder(w).Encode(status)
	})

	mux.HandleFunc("/api/v1/playlist", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		entries := []playlistEntry{}
		for _, item := range lib.Items() {
			entries = append(entries, playlistEntry{
				ID:     item.ID,
				Src:    item.Rule.Src,
				Kind:   string(item.Kind),
				Mode:   string(item.Mode),
				RuleID: item.Rule.RuleID,
			})
		}
		json.NewEncoder(w).Encode(entries)
	})

	mux.HandleFunc("/api/v1/history", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		records, err := store.RecentPlays(20)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(records)
	})

	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		events.Server.ServeHTTP(w, r)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	})

	return c.Handler(mux)
}

func statusAddr(port int) string {
	return fmt.Sprintf(":%d", port)
}

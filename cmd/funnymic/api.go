package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/satindergrewal/funnymic/internal/audio"
	"github.com/satindergrewal/funnymic/internal/config"
	"github.com/satindergrewal/funnymic/internal/sched"
)

// controller is the part of audio.Pipeline the control API drives.
type controller interface {
	Start(ctx context.Context) error
	Stop()
	Status() audio.Status
	SetDistortion(v float64)
	SetGlitchInterval(d time.Duration)
	SetSoundInterval(d time.Duration)
}

// Interval limits accepted by /api/config, in seconds.
const (
	minInterval = 0.1
	maxInterval = 60
)

type api struct {
	ctx      context.Context // lifetime of pipeline sessions
	pipeline controller
	effects  *sched.Set
	sounds   *sched.Set

	// available reports which sounds decoded.
	available func() map[string]bool

	// listeners returns the broadcaster subscriber count (every sink and
	// monitor) and the WebRTC peer count.
	listeners func() (subscribers, peers int)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/start", a.handleStart)
	mux.HandleFunc("/api/stop", a.handleStop)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/effects", a.handleSet(a.effects))
	mux.HandleFunc("/api/sounds", a.handleSet(a.sounds))
}

func (a *api) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := a.pipeline.Status()
	resp := map[string]any{
		"status":          st.Message,
		"running":         st.Running,
		"glitch":          st.Glitch,
		"overlay":         st.Overlay,
		"distortion":      st.Distortion,
		"glitch_interval": st.GlitchInterval.Seconds(),
		"sound_interval":  st.SoundInterval.Seconds(),
		"sample_rate":     st.SampleRate,
		"block_size":      st.BlockSize,
		"effects":         a.effects.Snapshot(),
		"sounds":          a.sounds.Snapshot(),
	}
	if a.listeners != nil {
		subs, peers := a.listeners()
		resp["listeners"] = subs
		resp["webrtc_peers"] = peers
	}
	writeJSON(w, resp)
}

func (a *api) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if err := a.pipeline.Start(a.ctx); err != nil {
		log.Printf("Start failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "status": a.pipeline.Status().Message})
}

func (a *api) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	a.pipeline.Stop()
	writeJSON(w, map[string]any{"ok": true, "status": a.pipeline.Status().Message})
}

func (a *api) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Distortion     *float64 `json:"distortion"`
		GlitchInterval *float64 `json:"glitch_interval"`
		SoundInterval  *float64 `json:"sound_interval"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if v := req.Distortion; v != nil && (*v < 0 || *v > config.MaxDistortion) {
		http.Error(w, "distortion must be 0-10", http.StatusBadRequest)
		return
	}
	for _, v := range []*float64{req.GlitchInterval, req.SoundInterval} {
		if v != nil && (*v < minInterval || *v > maxInterval) {
			http.Error(w, "intervals must be 0.1-60 seconds", http.StatusBadRequest)
			return
		}
	}

	if req.Distortion != nil {
		a.pipeline.SetDistortion(*req.Distortion)
	}
	if req.GlitchInterval != nil {
		a.pipeline.SetGlitchInterval(config.Seconds(*req.GlitchInterval))
	}
	if req.SoundInterval != nil {
		a.pipeline.SetSoundInterval(config.Seconds(*req.SoundInterval))
	}

	st := a.pipeline.Status()
	writeJSON(w, map[string]any{
		"ok":              true,
		"distortion":      st.Distortion,
		"glitch_interval": st.GlitchInterval.Seconds(),
		"sound_interval":  st.SoundInterval.Seconds(),
	})
}

// handleSet lists an enabled set on GET and toggles one name on POST.
func (a *api) handleSet(set *sched.Set) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			type entry struct {
				Name      string `json:"name"`
				Enabled   bool   `json:"enabled"`
				Available *bool  `json:"available,omitempty"`
			}
			var avail map[string]bool
			if set == a.sounds && a.available != nil {
				avail = a.available()
			}
			snap := set.Snapshot()
			out := make([]entry, 0, len(snap))
			for _, name := range set.Names() {
				e := entry{Name: name, Enabled: snap[name]}
				if ok, tried := avail[name]; tried {
					e.Available = &ok
				}
				out = append(out, e)
			}
			writeJSON(w, out)
		case http.MethodPost:
			var req struct {
				Name    string `json:"name"`
				Enabled bool   `json:"enabled"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}
			if !set.Enable(req.Name, req.Enabled) {
				http.Error(w, "unknown name", http.StatusNotFound)
				return
			}
			state := "disabled"
			if req.Enabled {
				state = "enabled"
			}
			log.Printf("%s %s", req.Name, state)
			writeJSON(w, map[string]any{"ok": true, "name": req.Name, "enabled": req.Enabled})
		default:
			http.Error(w, "GET or POST required", http.StatusMethodNotAllowed)
		}
	}
}

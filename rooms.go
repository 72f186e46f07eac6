/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/reveal/docstore"
	"github.com/Seednode/reveal/prompt"
	"github.com/Seednode/reveal/session"
)

const qrSize = 320

// withRoomKey normalizes the :room parameter before calling next, and
// rejects codes that cannot be rooms.
func withRoomKey(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key, err := session.NormalizeRoomKey(ps.ByName("room"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		next(w, r, httprouter.Params{{Key: "room", Value: key}})
	}
}

// redirectNewRoom handles GET $path/new by generating a fresh room code and
// redirecting to $path/:room.
func redirectNewRoom(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		key, err := session.NewRoomKey()
		if err != nil {
			http.Error(w, "unable to create room", http.StatusInternalServerError)
			return
		}

		logf(cfg, "ROOMS: Created room %s/%s for %s", path, key, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+key, http.StatusTemporaryRedirect)
	}
}

// serveRoom is a point read of the room's document. The store does not
// interpret it; fields are returned as stored.
func serveRoom(cfg *Config, store *docstore.Memory, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		key := ps.ByName("room")

		doc, ok, err := store.Get(r.Context(), key)
		if err != nil {
			errs <- err
			http.Error(w, "room unavailable", http.StatusServiceUnavailable)
			return
		}
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		data, err := json.Marshal(doc)
		if err != nil {
			errs <- err
			http.Error(w, "room unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Room %s (%s) to %s", key, humanReadableSize(int64(written)), realIP(r))
	}
}

// qrHandler renders a PNG QR code linking to the room.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		path := strings.TrimSuffix(r.URL.Path, "/qr")

		png, err := qrcode.Encode(scheme+"://"+r.Host+path, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// registerRooms sets up routes so that:
//   - /new, $path/new    → redirects to a new random room
//   - $path/:room        → JSON point read of the room document
//   - $path/:room/ws     → WebSocket store connection for the room
//   - $path/:room/qr     → PNG QR code for the room URL
func registerRooms(cfg *Config, path string, mux *httprouter.Router, store *docstore.Memory, errs chan<- error) {
	srv := docstore.NewServer(store, logger(cfg))

	mux.GET(cfg.prefix+"/new", redirectNewRoom(cfg, path))

	mux.GET(cfg.prefix+path+"/:room", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("room") == "new" {
			redirectNewRoom(cfg, path)(w, r, ps)
			return
		}
		withRoomKey(serveRoom(cfg, store, errs))(w, r, ps)
	})

	mux.GET(cfg.prefix+path+"/:room/ws", withRoomKey(srv.Handle()))

	mux.GET(cfg.prefix+path+"/:room/qr", withRoomKey(qrHandler(cfg)))
}

// servePrompts answers GET $path?roll=N from the question bank in the
// format prompt.HTTP expects.
func servePrompts(cfg *Config, bank *prompt.Bank, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roll, err := strconv.Atoi(r.URL.Query().Get("roll"))
		if err != nil || roll < 1 || roll > session.DieSides {
			http.Error(w, "roll must be 1-6", http.StatusBadRequest)
			return
		}

		p, ok := bank.Pick(roll)
		if !ok {
			http.Error(w, "no questions for roll", http.StatusNotFound)
			return
		}

		data, err := json.Marshal(prompt.Payload{
			Category:    p.Category,
			ForPartnerA: p.ForA,
			ForPartnerB: p.ForB,
		})
		if err != nil {
			errs <- err
			http.Error(w, "encoding failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_, err = w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Prompt for roll %d to %s", roll, realIP(r))
	}
}

func registerPrompts(cfg *Config, path string, mux *httprouter.Router, bank *prompt.Bank, errs chan<- error) {
	mux.GET(cfg.prefix+path, servePrompts(cfg, bank, errs))
}

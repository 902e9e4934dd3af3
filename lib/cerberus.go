// Package lib wires the captcha core to its HTTP surface. Construct a Server
// with New and mount it wherever the surrounding application terminates HTTP.
package lib

import (
	"net/http"
	"time"

	"github.com/GreenledgerHQ/cerberus/lib/captcha"
	"github.com/GreenledgerHQ/cerberus/lib/captcha/render"
	"github.com/GreenledgerHQ/cerberus/lib/store"
)

type Options struct {
	// Store backs outstanding challenge state.
	Store store.Interface

	// Secret peppers answer digests. Must be identical on every instance
	// sharing Store.
	Secret string

	// ChallengeTTL, MaxAttempts, AnswerLength and Render fall back to the
	// root package defaults when zero.
	ChallengeTTL time.Duration
	MaxAttempts  int
	AnswerLength int
	Render       render.Options
}

// Server exposes challenge issuance and verification over HTTP:
//
//	POST /api/challenge/new     -> {"id": ..., "image": "data:image/png;base64,..."}
//	POST /api/challenge/verify  <- {"id": ..., "answer": ...} -> {"ok": ..., "reason": ...}
//	GET  /healthz
type Server struct {
	challenger *captcha.Challenger
	mux        *http.ServeMux
}

func New(opts Options) (*Server, error) {
	challenger, err := captcha.New(captcha.Options{
		Store:        opts.Store,
		Secret:       opts.Secret,
		TTL:          opts.ChallengeTTL,
		MaxAttempts:  opts.MaxAttempts,
		AnswerLength: opts.AnswerLength,
		Render:       opts.Render,
	})
	if err != nil {
		return nil, err
	}

	result := &Server{
		challenger: challenger,
		mux:        http.NewServeMux(),
	}

	result.mux.HandleFunc("POST /api/challenge/new", result.newChallenge)
	result.mux.HandleFunc("POST /api/challenge/verify", result.verifyChallenge)
	result.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return result, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

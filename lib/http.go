package lib

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/GreenledgerHQ/cerberus/internal"
	"github.com/google/uuid"
)

// NewChallengeResponse carries a fresh challenge to the client. The image is
// a PNG packed as a data URL so the UI can drop it straight into an img tag.
type NewChallengeResponse struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

// VerifyRequest is the JSON body for POST /api/challenge/verify.
type VerifyRequest struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`
}

// VerifyResponse mirrors captcha.Result on the wire.
type VerifyResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

func requestLogger(r *http.Request) *slog.Logger {
	return internal.GetRequestLogger(r).With("request_id", uuid.NewString())
}

func (s *Server) newChallenge(w http.ResponseWriter, r *http.Request) {
	lg := requestLogger(r)

	issued, err := s.challenger.Issue(r.Context())
	if err != nil {
		lg.Error("can't issue challenge", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	lg.Debug("challenge issued", "challenge_id", issued.ID)

	writeJSON(w, lg, NewChallengeResponse{
		ID:    issued.ID,
		Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(issued.PNG),
	})
}

func (s *Server) verifyChallenge(w http.ResponseWriter, r *http.Request) {
	lg := requestLogger(r)

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	result, err := s.challenger.Verify(r.Context(), req.ID, req.Answer)
	if err != nil {
		lg.Error("can't verify challenge", "challenge_id", req.ID, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	lg.Info("challenge verified", "challenge_id", req.ID, "ok", result.OK, "reason", result.Reason)

	writeJSON(w, lg, VerifyResponse{
		OK:     result.OK,
		Reason: string(result.Reason),
	})
}

func writeJSON(w http.ResponseWriter, lg *slog.Logger, value any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		lg.Error("can't write response", "err", err)
	}
}

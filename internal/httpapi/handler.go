// Package httpapi exposes the internal endpoint the web tier calls to redeem
// verification codes. It is the one place the web side invokes the bot's
// send capability.
package httpapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"goalbot/internal/linking"
	"goalbot/internal/logger"
)

const msgVerified = "Verification successful"

// Redeemer consumes a verification code on behalf of an authenticated account.
type Redeemer interface {
	RedeemCode(ctx context.Context, code string, accountID int64) (linking.ChatLink, error)
}

// Sender delivers a confirmation message to the linked chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Handler serves the verification endpoint.
type Handler struct {
	svc         Redeemer
	sender      Sender
	internalKey string
}

// NewHandler wires the verification handler.
func NewHandler(svc Redeemer, sender Sender, internalKey string) *Handler {
	return &Handler{svc: svc, sender: sender, internalKey: internalKey}
}

type verifyRequest struct {
	VerificationCode string `json:"verification_code"`
	AccountID        int64  `json:"account_id"`
}

type verifyResponse struct {
	VerificationCode string `json:"verification_code"`
	ChatID           int64  `json:"chat_id"`
}

// HandleVerify redeems a verification code for an account. An unknown code is
// a client-visible rejection, never a silent success.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Internal-Key")), []byte(h.internalKey)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.VerificationCode == "" || req.AccountID == 0 {
		http.Error(w, "missing verification_code or account_id", http.StatusBadRequest)
		return
	}

	link, err := h.svc.RedeemCode(r.Context(), req.VerificationCode, req.AccountID)
	if errors.Is(err, linking.ErrCodeNotFound) {
		http.Error(w, "unknown verification code", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.WEB.Error("redeem failed",
			slog.String("event", "verify"),
			slog.Int64("account_id", req.AccountID),
			slog.String("err", err.Error()),
		)
		http.Error(w, "processing error", http.StatusInternalServerError)
		return
	}

	// Confirmation delivery is best-effort; the link is already established.
	if err := h.sender.SendMessage(r.Context(), link.ChatID, msgVerified); err != nil {
		logger.WEB.Warn("confirmation send failed",
			slog.String("event", "verify"),
			slog.Int64("chat_id", link.ChatID),
			slog.String("err", err.Error()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(verifyResponse{
		VerificationCode: req.VerificationCode,
		ChatID:           link.ChatID,
	})
}

// Package lottery exposes the payment lottery HTTP API.
package lottery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/ankwata/ankwata/internal/errors"
	"github.com/ankwata/ankwata/internal/gateway"
	"github.com/ankwata/ankwata/internal/lottery/confirm"
	"github.com/ankwata/ankwata/internal/lottery/domain"
	"github.com/ankwata/ankwata/internal/lottery/service"
	"github.com/ankwata/ankwata/internal/storage"
)

// maxBodyBytes bounds request bodies; confirmation payloads are small.
const maxBodyBytes = 1 << 20

// Config defines the inputs for the lottery HTTP API.
type Config struct {
	// PlayAmount is the server-enforced price of one play.
	PlayAmount int64
	// Currency is the gateway currency code, e.g. UGX.
	Currency string
	// PollInterval is the session poll cadence for await requests.
	PollInterval time.Duration
	// PollTimeout bounds how long an await request waits for confirmation.
	PollTimeout time.Duration
}

// Handler serves the payment lottery API.
type Handler struct {
	config  Config
	store   storage.SessionStore
	machine *service.Machine
	gateway gateway.Gateway
	clock   func() time.Time
}

// NewHandler creates the lottery API handler.
func NewHandler(config Config, store storage.SessionStore, machine *service.Machine, gw gateway.Gateway) *Handler {
	return &Handler{
		config:  config,
		store:   store,
		machine: machine,
		gateway: gw,
		clock:   time.Now,
	}
}

// Routes registers the API endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/create-payment", h.handleCreatePayment)
	mux.HandleFunc("/api/check-payment", h.handleCheckPayment)
	mux.HandleFunc("/api/webhook", h.handleWebhook)
	mux.HandleFunc("/api/admin/simulate-success", h.handleSimulateSuccess)
	mux.HandleFunc("/api/get-winner", h.handleGetWinner)
	mux.HandleFunc("/api/await-payment", h.handleAwaitPayment)
	mux.HandleFunc("/healthz", h.handleHealthz)
}

type createPaymentRequest struct {
	Amount int64 `json:"amount"`
}

type createPaymentResponse struct {
	TxRef               string `json:"tx_ref"`
	Message             string `json:"message"`
	PaymentInstructions string `json:"payment_instructions,omitempty"`
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, apperrors.CodeAmountMismatch, "amount is required")
		return
	}
	if req.Amount != h.config.PlayAmount {
		writeError(w, apperrors.CodeAmountMismatch,
			fmt.Sprintf("invalid amount, server enforces %s %d", h.config.Currency, h.config.PlayAmount))
		return
	}

	session, err := domain.NewSession(nil, h.clock, nil)
	if err != nil {
		writeError(w, apperrors.CodeUnknown, "could not create payment session")
		return
	}

	initiation, err := h.gateway.Initiate(r.Context(), gateway.InitiateRequest{
		Reference: session.Reference,
		Amount:    req.Amount,
		Currency:  h.config.Currency,
	})
	if err != nil {
		log.Printf("payment initiation failed reference=%s err=%v", session.Reference, err)
		if errors.Is(err, gateway.ErrRejected) {
			writeError(w, apperrors.CodeGatewayRejected, "payment initiation rejected")
			return
		}
		writeError(w, apperrors.CodeGatewayUnavailable, "payment gateway unavailable")
		return
	}
	session.GatewayMeta = initiation.Meta

	if err := h.store.Create(r.Context(), session); err != nil {
		if errors.Is(err, storage.ErrDuplicateReference) {
			writeError(w, apperrors.CodeDuplicateReference, "payment reference already exists")
			return
		}
		log.Printf("persist payment session failed reference=%s err=%v", session.Reference, err)
		writeError(w, apperrors.CodeUnknown, "could not persist payment session")
		return
	}

	log.Printf("payment session created reference=%s amount=%d currency=%s", session.Reference, req.Amount, h.config.Currency)
	writeJSON(w, http.StatusOK, createPaymentResponse{
		TxRef:               session.Reference,
		Message:             "payment initiated",
		PaymentInstructions: initiation.Instructions,
	})
}

type statusResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
}

func (h *Handler) handleCheckPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reference := strings.TrimSpace(r.URL.Query().Get("tx_ref"))
	if reference == "" {
		writeError(w, apperrors.CodeNotFound, "tx_ref is required")
		return
	}

	session, err := h.store.Get(r.Context(), reference)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apperrors.CodeNotFound, "payment session not found")
			return
		}
		writeError(w, apperrors.CodeUnknown, "could not load payment session")
		return
	}

	if session.State == domain.SessionStatePending {
		session = h.pollGateway(r, session)
	}

	writeJSON(w, http.StatusOK, statusResponse{OK: true, Status: session.State.String()})
}

// pollGateway asks the provider for the charge status and applies a
// terminal result through the state machine. Provider errors leave the
// stored state untouched; the next poll retries.
func (h *Handler) pollGateway(r *http.Request, session domain.Session) domain.Session {
	status, err := h.gateway.CheckStatus(r.Context(), session.Reference)
	if err != nil {
		log.Printf("gateway status check failed reference=%s err=%v", session.Reference, err)
		return session
	}
	if status == gateway.StatusPending {
		return session
	}

	confirmation, err := confirm.FromGatewayStatus(session.Reference, status)
	if err != nil {
		return session
	}
	applied, err := h.machine.ApplyOutcome(r.Context(), confirmation.Reference, confirmation.Outcome)
	if err != nil {
		log.Printf("apply gateway poll outcome failed reference=%s err=%v", session.Reference, err)
		return session
	}
	return applied
}

type webhookResponse struct {
	Received bool   `json:"received"`
	Message  string `json:"message,omitempty"`
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, webhookResponse{Received: false, Message: "unreadable payload"})
		return
	}

	confirmation, err := confirm.Normalize(payload)
	if err != nil {
		log.Printf("webhook rejected err=%v", err)
		writeJSON(w, http.StatusBadRequest, webhookResponse{Received: false, Message: "no tx_ref"})
		return
	}

	if _, err := h.machine.ApplyOutcome(r.Context(), confirmation.Reference, confirmation.Outcome); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, webhookResponse{Received: false, Message: "payment session not found"})
			return
		}
		log.Printf("webhook outcome failed reference=%s err=%v", confirmation.Reference, err)
		writeJSON(w, http.StatusInternalServerError, webhookResponse{Received: false, Message: "could not apply confirmation"})
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{Received: true})
}

type simulateRequest struct {
	TxRef string `json:"tx_ref"`
}

type simulateResponse struct {
	OK     bool   `json:"ok"`
	TxRef  string `json:"tx_ref"`
	Winner string `json:"winner"`
}

// handleSimulateSuccess forces a success outcome for a session. Restricting
// who may call it is the deployment's responsibility.
func (h *Handler) handleSimulateSuccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req simulateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || strings.TrimSpace(req.TxRef) == "" {
		writeError(w, apperrors.CodeMalformedConfirmation, "tx_ref is required")
		return
	}

	session, err := h.machine.ApplyOutcome(r.Context(), strings.TrimSpace(req.TxRef), domain.OutcomeSuccess)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apperrors.CodeNotFound, "payment session not found")
			return
		}
		if errors.Is(err, domain.ErrEntropyUnavailable) {
			writeError(w, apperrors.CodeEntropyUnavailable, "winner draw unavailable, retry later")
			return
		}
		writeError(w, apperrors.CodeUnknown, "could not apply confirmation")
		return
	}

	writeJSON(w, http.StatusOK, simulateResponse{OK: true, TxRef: session.Reference, Winner: session.Winner})
}

type winnerResponse struct {
	OK     bool   `json:"ok"`
	Winner string `json:"winner"`
}

func (h *Handler) handleGetWinner(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reference := strings.TrimSpace(r.URL.Query().Get("tx_ref"))
	if reference == "" {
		writeError(w, apperrors.CodeNotFound, "tx_ref is required")
		return
	}

	session, err := h.store.Get(r.Context(), reference)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apperrors.CodeNotFound, "payment session not found")
			return
		}
		writeError(w, apperrors.CodeUnknown, "could not load payment session")
		return
	}

	// The winner is disclosed only for a confirmed payment.
	if session.State != domain.SessionStateSuccessful {
		writeError(w, apperrors.CodeNotConfirmed, "payment not confirmed")
		return
	}

	writeJSON(w, http.StatusOK, winnerResponse{OK: true, Winner: session.Winner})
}

type awaitResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
}

func (h *Handler) handleAwaitPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reference := strings.TrimSpace(r.URL.Query().Get("tx_ref"))
	if reference == "" {
		writeError(w, apperrors.CodeNotFound, "tx_ref is required")
		return
	}

	session, err := h.machine.AwaitConfirmation(r.Context(), reference, h.config.PollInterval, h.config.PollTimeout)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, apperrors.CodeNotFound, "payment session not found")
			return
		}
		writeError(w, apperrors.CodeUnknown, "could not await confirmation")
		return
	}

	resp := awaitResponse{OK: true, Status: session.State.String()}
	if session.State == domain.SessionStateSuccessful {
		resp.Winner = session.Winner
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type errorResponse struct {
	OK      bool           `json:"ok"`
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

func writeError(w http.ResponseWriter, code apperrors.Code, message string) {
	writeJSON(w, code.HTTPStatus(), errorResponse{OK: false, Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response failed err=%v", err)
	}
}

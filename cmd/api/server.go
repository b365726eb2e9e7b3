package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mcclellann/fredLedger/pkg/ledger"
	"github.com/mcclellann/fredLedger/pkg/logging"
)

// userHeader carries the caller's identity. Authentication happens in front of this service.
const userHeader = "X-User-ID"

// Server holds the ledger instance.
type Server struct {
	ledger *ledger.Ledger
	logger *logging.Logger
}

func NewServer(l *ledger.Ledger, logger *logging.Logger) *Server {
	return &Server{ledger: l, logger: logger.WithComponent(logging.ComponentHTTP)}
}

// Routes builds the API router.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()
	router.Use(logging.Middleware(s.logger))
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/cost-centers", s.listCostCentersHandler).Methods(http.MethodGet)
	api.HandleFunc("/cost-centers", s.createCostCenterHandler).Methods(http.MethodPost)
	api.HandleFunc("/cost-centers/join", s.joinCostCenterHandler).Methods(http.MethodPost)
	api.HandleFunc("/memberships/{id}", s.reviewMembershipHandler).Methods(http.MethodPatch)

	api.HandleFunc("/cost-centers/{costCenterID}", s.getCostCenterHandler).Methods(http.MethodGet)

	cc := api.PathPrefix("/cost-centers/{costCenterID}").Subrouter()
	cc.HandleFunc("/memberships", s.listMembershipsHandler).Methods(http.MethodGet)

	cc.HandleFunc("/wallets", s.listWalletsHandler).Methods(http.MethodGet)
	cc.HandleFunc("/wallets", s.createWalletHandler).Methods(http.MethodPost)
	cc.HandleFunc("/wallets/transfer", s.transferHandler).Methods(http.MethodPost)
	cc.HandleFunc("/wallets/{id}", s.getWalletHandler).Methods(http.MethodGet)
	cc.HandleFunc("/wallets/{id}", s.deleteWalletHandler).Methods(http.MethodDelete)
	cc.HandleFunc("/wallets/{id}/income", s.recordIncomeHandler).Methods(http.MethodPost)
	cc.HandleFunc("/wallets/{id}/expense", s.recordExpenseHandler).Methods(http.MethodPost)

	cc.HandleFunc("/credit-cards", s.listCreditCardsHandler).Methods(http.MethodGet)
	cc.HandleFunc("/credit-cards", s.createCreditCardHandler).Methods(http.MethodPost)
	cc.HandleFunc("/credit-cards/{id}/charges", s.chargeHandler).Methods(http.MethodPost)
	cc.HandleFunc("/credit-cards/{id}/pay-bill", s.payBillHandler).Methods(http.MethodPost)

	cc.HandleFunc("/categories", s.listCategoriesHandler).Methods(http.MethodGet)
	cc.HandleFunc("/categories", s.createCategoryHandler).Methods(http.MethodPost)

	cc.HandleFunc("/transactions", s.listTransactionsHandler).Methods(http.MethodGet)
	cc.HandleFunc("/transactions/{id}", s.updateTransactionHandler).Methods(http.MethodPatch)

	cc.HandleFunc("/installments", s.listInstallmentsHandler).Methods(http.MethodGet)
	cc.HandleFunc("/installments", s.createInstallmentHandler).Methods(http.MethodPost)
	cc.HandleFunc("/installments/{id}", s.getInstallmentHandler).Methods(http.MethodGet)
	cc.HandleFunc("/installments/{id}/cancel", s.cancelInstallmentHandler).Methods(http.MethodPost)
	cc.HandleFunc("/payments/upcoming", s.upcomingPaymentsHandler).Methods(http.MethodGet)
	cc.HandleFunc("/payments/{id}/pay", s.payInstallmentHandler).Methods(http.MethodPost)

	cc.HandleFunc("/reports/summary", s.summaryHandler).Methods(http.MethodGet)
	cc.HandleFunc("/reports/reconciliation", s.reconciliationHandler).Methods(http.MethodGet)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	return router
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps ledger errors onto HTTP status codes. Anything that is not a domain error is a
// server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrCreditLimitExceeded),
		errors.Is(err, ledger.ErrInstallmentNotActive),
		errors.Is(err, ledger.ErrDefaultWallet),
		errors.Is(err, ledger.ErrWalletInUse):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrSameWallet),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidInstallmentCount),
		errors.Is(err, ledger.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// badRequest is an error in the request's shape rather than in what it asks for.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return badRequest{msg: fmt.Sprintf(format, args...)}
}

// reject writes a 400 for malformed input and falls back to fail for everything else.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, err error) {
	var br badRequest
	if errors.As(err, &br) {
		writeError(w, http.StatusBadRequest, br.msg)
		return
	}
	s.fail(w, r, err)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequestf("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, badRequestf("invalid %s", name)
	}
	return id, nil
}

func costCenterID(r *http.Request) (uuid.UUID, error) {
	return pathID(r, "costCenterID")
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.Header.Get(userHeader))
	if raw == "" {
		return uuid.Nil, badRequestf("missing %s header", userHeader)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, badRequestf("invalid %s header", userHeader)
	}
	return id, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp. Empty input gives the zero time.
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, badRequestf("invalid %s: want YYYY-MM-DD or RFC 3339", field)
	}
	return t, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequestf("invalid %s", name)
	}
	return n, nil
}

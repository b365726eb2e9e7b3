package main

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/fredLedger/pkg/ledger"
	"github.com/mcclellann/fredLedger/pkg/models"
	"github.com/shopspring/decimal"
)

func (s *Server) createCostCenterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Code        string `json:"code"`
		Description string `json:"description"`
	}
	user, err := callerID(r)
	if err == nil {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	res, err := s.ledger.CreateCostCenter(r.Context(), ledger.CostCenterParams{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		AdminUserID: user,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listCostCentersHandler(w http.ResponseWriter, r *http.Request) {
	user, err := callerID(r)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	centers, err := s.ledger.ListUserCostCenters(r.Context(), user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, centers)
}

func (s *Server) getCostCenterHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	cc, err := s.ledger.GetCostCenter(r.Context(), ccID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cc)
}

func (s *Server) joinCostCenterHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	user, err := callerID(r)
	if err == nil {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	m, err := s.ledger.RequestMembership(r.Context(), req.Code, user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) reviewMembershipHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Approve bool `json:"approve"`
	}
	id, err := pathID(r, "id")
	if err == nil {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	m, err := s.ledger.ReviewMembership(r.Context(), id, req.Approve)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) listMembershipsHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	members, err := s.ledger.ListMemberships(r.Context(), ccID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) listWalletsHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	wallets, err := s.ledger.ListWallets(r.Context(), ccID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wallets)
}

func (s *Server) createWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string            `json:"name"`
		Type           models.WalletType `json:"type"`
		OpeningBalance decimal.Decimal   `json:"opening_balance"`
		IsDefault      bool              `json:"is_default"`
		Color          string            `json:"color"`
		Icon           string            `json:"icon"`
	}
	ccID, err := costCenterID(r)
	var user uuid.UUID
	if err == nil {
		user, err = callerID(r)
	}
	if err == nil {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	wallet, err := s.ledger.CreateWallet(r.Context(), ledger.WalletParams{
		CostCenterID:   ccID,
		UserID:         user,
		Name:           req.Name,
		Type:           req.Type,
		OpeningBalance: req.OpeningBalance,
		IsDefault:      req.IsDefault,
		Color:          req.Color,
		Icon:           req.Icon,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wallet)
}

func (s *Server) getWalletHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	var id uuid.UUID
	if err == nil {
		id, err = pathID(r, "id")
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}
	wallet, err := s.ledger.GetWallet(r.Context(), ccID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) deleteWalletHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	var id uuid.UUID
	if err == nil {
		id, err = pathID(r, "id")
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}
	if err := s.ledger.DeleteWallet(r.Context(), ccID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) transferHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromWalletID uuid.UUID       `json:"from_wallet_id"`
		ToWalletID   uuid.UUID       `json:"to_wallet_id"`
		Amount       decimal.Decimal `json:"amount"`
		Description  string          `json:"description"`
	}
	ccID, err := costCenterID(r)
	var user uuid.UUID
	if err == nil {
		user, err = callerID(r)
	}
	if err == nil {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	res, err := s.ledger.Transfer(r.Context(), ledger.TransferParams{
		CostCenterID: ccID,
		UserID:       user,
		FromWalletID: req.FromWalletID,
		ToWalletID:   req.ToWalletID,
		Amount:       req.Amount,
		Description:  req.Description,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type entryRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CategoryID  *uuid.UUID      `json:"category_id"`
	Date        string          `json:"date"`
	IsFixed     bool            `json:"is_fixed"`
	Notes       string          `json:"notes"`
}

func (s *Server) recordIncomeHandler(w http.ResponseWriter, r *http.Request) {
	s.recordEntry(w, r, s.ledger.RecordIncome)
}

func (s *Server) recordExpenseHandler(w http.ResponseWriter, r *http.Request) {
	s.recordEntry(w, r, s.ledger.RecordExpense)
}

func (s *Server) recordEntry(w http.ResponseWriter, r *http.Request, record func(context.Context, ledger.EntryParams) (*ledger.EntryResult, error)) {
	var req entryRequest
	ccID, err := costCenterID(r)
	var user, walletID uuid.UUID
	if err == nil {
		walletID, err = pathID(r, "id")
	}
	if err == nil {
		user, err = callerID(r)
	}
	if err == nil {
		err = decodeJSON(r, &req)
	}
	var date time.Time
	if err == nil {
		date, err = parseDate("date", req.Date)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	res, err := record(r.Context(), ledger.EntryParams{
		CostCenterID: ccID,
		UserID:       user,
		WalletID:     walletID,
		Amount:       req.Amount,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		Date:         date,
		IsFixed:      req.IsFixed,
		Notes:        req.Notes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listCreditCardsHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	cards, err := s.ledger.ListCreditCards(r.Context(), ccID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) createCreditCardHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string          `json:"name"`
		Limit      decimal.Decimal `json:"limit"`
		DueDay     int             `json:"due_day"`
		ClosingDay int             `json:"closing_day"`
		Color      string          `json:"color"`
		Icon       string          `json:"icon"`
	}
	ccID, err := costCenterID(r)
	if err == nil {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	card, err := s.ledger.CreateCreditCard(r.Context(), ledger.CreditCardParams{
		CostCenterID: ccID,
		Name:         req.Name,
		Limit:        req.Limit,
		DueDay:       req.DueDay,
		ClosingDay:   req.ClosingDay,
		Color:        req.Color,
		Icon:         req.Icon,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) chargeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		CategoryID  *uuid.UUID      `json:"category_id"`
		Date        string          `json:"date"`
		Notes       string          `json:"notes"`
	}
	ccID, err := costCenterID(r)
	var user, cardID uuid.UUID
	if err == nil {
		cardID, err = pathID(r, "id")
	}
	if err == nil {
		user, err = callerID(r)
	}
	if err == nil {
		err = decodeJSON(r, &req)
	}
	var date time.Time
	if err == nil {
		date, err = parseDate("date", req.Date)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	res, err := s.ledger.ChargeForPurchase(r.Context(), ledger.ChargeParams{
		CostCenterID: ccID,
		UserID:       user,
		CardID:       cardID,
		Amount:       req.Amount,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		Date:         date,
		Notes:        req.Notes,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) payBillHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletID uuid.UUID       `json:"wallet_id"`
		Amount   decimal.Decimal `json:"amount"`
	}
	ccID, err := costCenterID(r)
	var user, cardID uuid.UUID
	if err == nil {
		cardID, err = pathID(r, "id")
	}
	if err == nil {
		user, err = callerID(r)
	}
	if err == nil {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	res, err := s.ledger.PayBill(r.Context(), ledger.PayBillParams{
		CostCenterID: ccID,
		UserID:       user,
		CardID:       cardID,
		WalletID:     req.WalletID,
		Amount:       req.Amount,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	categories, err := s.ledger.ListCategories(r.Context(), ccID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string              `json:"name"`
		Type  models.CategoryType `json:"type"`
		Color string              `json:"color"`
		Icon  string              `json:"icon"`
	}
	ccID, err := costCenterID(r)
	if err == nil {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	c, err := s.ledger.CreateCategory(r.Context(), ledger.CategoryParams{
		CostCenterID: ccID,
		Name:         req.Name,
		Type:         req.Type,
		Color:        req.Color,
		Icon:         req.Icon,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// dateRange reads the optional from/to query parameters.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func (s *Server) listTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	var from, to time.Time
	if err == nil {
		from, to, err = dateRange(r)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), ccID, from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) updateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description *string `json:"description"`
		Date        *string `json:"date"`
		Notes       *string `json:"notes"`
	}
	ccID, err := costCenterID(r)
	var id uuid.UUID
	if err == nil {
		id, err = pathID(r, "id")
	}
	if err == nil {
		err = decodeJSON(r, &req)
	}
	details := ledger.TransactionDetails{Description: req.Description, Notes: req.Notes}
	if err == nil && req.Date != nil {
		var date time.Time
		if date, err = parseDate("date", *req.Date); err == nil {
			details.Date = &date
		}
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	t, err := s.ledger.UpdateTransactionDetails(r.Context(), ccID, id, details)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) listInstallmentsHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	status := models.InstallmentStatus(r.URL.Query().Get("status"))
	list, err := s.ledger.ListInstallments(r.Context(), ccID, status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createInstallmentHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WalletID          uuid.UUID       `json:"wallet_id"`
		CreditCardID      *uuid.UUID      `json:"credit_card_id"`
		CategoryID        *uuid.UUID      `json:"category_id"`
		Description       string          `json:"description"`
		TotalAmount       decimal.Decimal `json:"total_amount"`
		TotalInstallments int             `json:"total_installments"`
		StartDate         string          `json:"start_date"`
	}
	ccID, err := costCenterID(r)
	var user uuid.UUID
	if err == nil {
		user, err = callerID(r)
	}
	if err == nil {
		err = decodeJSON(r, &req)
	}
	var start time.Time
	if err == nil {
		start, err = parseDate("start_date", req.StartDate)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}

	plan, err := s.ledger.CreateInstallment(r.Context(), ledger.InstallmentParams{
		CostCenterID:      ccID,
		UserID:            user,
		WalletID:          req.WalletID,
		CreditCardID:      req.CreditCardID,
		CategoryID:        req.CategoryID,
		Description:       req.Description,
		TotalAmount:       req.TotalAmount,
		TotalInstallments: req.TotalInstallments,
		StartDate:         start,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) getInstallmentHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	var id uuid.UUID
	if err == nil {
		id, err = pathID(r, "id")
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}
	plan, err := s.ledger.GetInstallment(r.Context(), ccID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) cancelInstallmentHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	var id uuid.UUID
	if err == nil {
		id, err = pathID(r, "id")
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}
	inst, err := s.ledger.CancelInstallment(r.Context(), ccID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) payInstallmentHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	var id uuid.UUID
	if err == nil {
		id, err = pathID(r, "id")
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}
	res, err := s.ledger.MarkPaymentAsPaid(r.Context(), ccID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) upcomingPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	var days int
	if err == nil {
		days, err = queryInt(r, "days")
	}
	if err == nil && days > ledger.MaxUpcomingDays {
		err = badRequestf("days must be at most %d", ledger.MaxUpcomingDays)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}
	payments, err := s.ledger.ListUpcomingPayments(r.Context(), ccID, days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if payments == nil {
		payments = []*models.InstallmentPayment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	var from, to time.Time
	if err == nil {
		from, to, err = dateRange(r)
	}
	if err != nil {
		s.reject(w, r, err)
		return
	}
	summary, err := s.ledger.Summary(r.Context(), ccID, from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) reconciliationHandler(w http.ResponseWriter, r *http.Request) {
	ccID, err := costCenterID(r)
	if err != nil {
		s.reject(w, r, err)
		return
	}
	report, err := s.ledger.Reconcile(r.Context(), ccID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

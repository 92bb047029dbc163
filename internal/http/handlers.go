package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"financebot/internal/agent"
	"financebot/internal/core"
	"financebot/internal/market"
	"financebot/internal/storage"
)

// Request and response shapes. Money fields travel as decimal numbers with
// two fractional digits; dates as ISO-8601 calendar dates.

type expenseRequest struct {
	UserID      int64      `json:"user_id"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        core.Date  `json:"date"`
}

type expenseResponse struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	Date        core.Date  `json:"date"`
}

type budgetRequest struct {
	UserID    int64      `json:"user_id"`
	Category  string     `json:"category"`
	Amount    core.Money `json:"amount"`
	StartDate core.Date  `json:"start_date"`
	EndDate   core.Date  `json:"end_date"`
}

type budgetResponse struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Category  string     `json:"category"`
	Amount    core.Money `json:"amount"`
	StartDate core.Date  `json:"start_date"`
	EndDate   core.Date  `json:"end_date"`
	CreatedAt string     `json:"created_at"`
}

type budgetStatusResponse struct {
	UserID    int64      `json:"user_id"`
	Category  string     `json:"category"`
	Budgeted  core.Money `json:"budgeted"`
	Spent     core.Money `json:"spent"`
	Remaining core.Money `json:"remaining"`
	StartDate core.Date  `json:"start_date"`
	EndDate   core.Date  `json:"end_date"`
	Overspent bool       `json:"overspent"`
	NearLimit bool       `json:"near_limit"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		UserID:      e.UserID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date,
	}
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		Category:  b.Category,
		Amount:    b.Amount,
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toBudgetStatusResponse(s core.BudgetStatus) budgetStatusResponse {
	return budgetStatusResponse{
		UserID:    s.UserID,
		Category:  s.Category,
		Budgeted:  s.Budgeted,
		Spent:     s.Spent,
		Remaining: s.Remaining,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		Overspent: s.Overspent(),
		NearLimit: s.NearLimit(),
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	expense := core.Expense{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Date:        req.Date,
	}

	stored, err := s.svc.AddExpense(r.Context(), expense)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, toExpenseResponse(stored))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id must be a positive integer")
		return
	}

	filter := storage.Filter{Category: strings.TrimSpace(q.Get("category"))}
	if v := q.Get("from"); v != "" {
		filter.From, err = core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
			return
		}
	}
	if v := q.Get("to"); v != "" {
		filter.To, err = core.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
			return
		}
	}

	expenses, err := s.store.ListExpenses(r.Context(), userID, filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeData(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"expenses": out,
		"count":    len(out),
	})
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	budget := core.Budget{
		UserID:    req.UserID,
		Category:  strings.TrimSpace(req.Category),
		Amount:    req.Amount,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}

	stored, err := s.svc.SetBudget(r.Context(), budget)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, map[string]any{
		"user_id": stored.UserID,
		"budget":  toBudgetResponse(stored),
		"message": "Budget successfully created",
	})
}

func (s *Server) handleGetBudgets(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "user ID must be a positive integer")
		return
	}

	budgets, err := s.store.GetBudgets(r.Context(), userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeData(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"budgets": out,
		"count":   len(out),
	})
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id must be a positive integer")
		return
	}

	statuses, err := s.store.GetBudgetStatus(r.Context(), userID, strings.TrimSpace(q.Get("category")))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	out := make([]budgetStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, toBudgetStatusResponse(st))
	}
	writeData(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"statuses": out,
		"count":    len(out),
	})
}

type agentRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant not configured")
		return
	}

	var req agentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	answer, err := s.assistant.Respond(r.Context(), req.Query)
	if err != nil {
		s.writeAssistantError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, answer)
}

func (s *Server) handleWebSearch(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	answer, err := s.assistant.SearchNews(r.Context(), query)
	if err != nil {
		s.writeAssistantError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, answer)
}

func (s *Server) handleFileSearch(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	result, err := s.assistant.SearchFiles(r.Context(), query)
	if err != nil {
		s.writeAssistantError(w, r, err)
		return
	}
	writeResponse(w, http.StatusOK, result)
}

func (s *Server) writeAssistantError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, agent.ErrNotConfigured) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	slog.ErrorContext(r.Context(), "Assistant call failed",
		"error", err, "url", r.URL.Path)
	writeError(w, http.StatusBadGateway, "assistant request failed")
}

func (s *Server) handleStockPrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))

	if quote, found := s.quoteCache.Get(symbol); found {
		writeData(w, http.StatusOK, quote)
		return
	}

	quote, err := s.quotes.Quote(r.Context(), symbol)
	if err != nil {
		switch {
		case errors.Is(err, market.ErrInvalidSymbol):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, market.ErrQuoteNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			slog.ErrorContext(r.Context(), "Stock quote failed", "symbol", symbol, "error", err)
			writeError(w, http.StatusBadGateway, "stock quote request failed")
		}
		return
	}

	s.quoteCache.Set(symbol, quote)
	writeData(w, http.StatusOK, quote)
}

func (s *Server) handleExchangeRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	base := strings.ToUpper(strings.TrimSpace(q.Get("base")))
	target := strings.ToUpper(strings.TrimSpace(q.Get("target")))
	if base == "" || target == "" {
		writeError(w, http.StatusBadRequest, "base and target parameters are required")
		return
	}

	key := base + "/" + target
	if rate, found := s.rateCache.Get(key); found {
		writeData(w, http.StatusOK, rate)
		return
	}

	rate, err := s.rates.Rate(r.Context(), base, target)
	if err != nil {
		switch {
		case errors.Is(err, market.ErrInvalidCurrency):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "Exchange rate failed",
				"base", base, "target", target, "error", err)
			writeError(w, http.StatusBadGateway, "exchange rate request failed")
		}
		return
	}

	s.rateCache.Set(key, rate)
	writeData(w, http.StatusOK, rate)
}

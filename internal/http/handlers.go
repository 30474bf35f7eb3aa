package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"financas/internal/core"
	"financas/internal/log"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// GET /api/dashboard?mes=YYYY-MM|todos
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, "GET")
		return
	}
	period, err := core.ParsePeriod(r.URL.Query().Get("mes"), s.ledger.Today())
	if err != nil {
		writeServiceError(w, r, err, log.OpRead)
		return
	}

	sum, err := s.ledger.Dashboard(r.Context(), period)
	if err != nil {
		writeServiceError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, r, http.StatusOK, sum)
}

// GET /api/dashboard/daily?mes=YYYY-MM
func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, "GET")
		return
	}
	mes := strings.TrimSpace(r.URL.Query().Get("mes"))
	if mes == "" {
		writeError(w, r, http.StatusBadRequest, "mes is required (YYYY-MM)")
		return
	}
	period, err := core.ParsePeriod(mes, s.ledger.Today())
	if err != nil || period.All {
		writeError(w, r, http.StatusBadRequest, core.ErrInvalidPeriod.Error())
		return
	}

	days, err := s.ledger.Daily(r.Context(), period.Year, period.Month)
	if err != nil {
		writeServiceError(w, r, err, log.OpRead)
		return
	}
	writeJSON(w, r, http.StatusOK, days)
}

// GET, POST /api/recurring-bills
func (s *Server) handleRecurringBills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ov, err := s.ledger.Bills(r.Context())
		if err != nil {
			writeServiceError(w, r, err, log.OpList)
			return
		}
		writeJSON(w, r, http.StatusOK, ov)

	case http.MethodPost:
		var req recurringBillRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, r, err, log.OpCreate)
			return
		}
		b, err := req.toBill()
		if err != nil {
			writeServiceError(w, r, err, log.OpValidate)
			return
		}
		created, err := s.catalog.CreateRecurringBill(r.Context(), b)
		if err != nil {
			writeServiceError(w, r, err, log.OpCreate)
			return
		}
		writeJSON(w, r, http.StatusCreated, created)

	default:
		writeMethodNotAllowed(w, r, "GET, POST")
	}
}

// GET /api/recurring-bills/{id}, PUT updates the fields present, DELETE
// removes the bill and unlinks its payments.
func (s *Server) handleRecurringBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		detail, err := s.ledger.Bill(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err, log.OpRead)
			return
		}
		writeJSON(w, r, http.StatusOK, detail)

	case http.MethodPut:
		var patch billPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeServiceError(w, r, err, log.OpUpdate)
			return
		}
		current, err := s.catalog.GetRecurringBill(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err, log.OpUpdate)
			return
		}
		b, err := patch.apply(current)
		if err != nil {
			writeServiceError(w, r, err, log.OpValidate)
			return
		}
		updated, err := s.catalog.UpdateRecurringBill(r.Context(), b)
		if err != nil {
			writeServiceError(w, r, err, log.OpUpdate)
			return
		}
		writeJSON(w, r, http.StatusOK, updated)

	case http.MethodDelete:
		if err := s.catalog.DeleteRecurringBill(r.Context(), id); err != nil {
			writeServiceError(w, r, err, log.OpDelete)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeMethodNotAllowed(w, r, "GET, PUT, DELETE")
	}
}

// GET /api/transactions?categoriaId=&contaRecorrenteId=&dataInicio=&dataFim=&limite=
// POST /api/transactions
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		f, err := parseTransactionFilter(r.URL.Query())
		if err != nil {
			writeServiceError(w, r, err, log.OpValidate)
			return
		}
		txs, err := s.ledger.Transactions(r.Context(), f)
		if err != nil {
			writeServiceError(w, r, err, log.OpList)
			return
		}
		writeJSON(w, r, http.StatusOK, txs)

	case http.MethodPost:
		var req transactionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, r, err, log.OpCreate)
			return
		}
		in, err := req.toInput()
		if err != nil {
			writeServiceError(w, r, err, log.OpValidate)
			return
		}

		saved, err := s.ledger.CreateTransaction(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, err, log.OpCreate)
			return
		}
		writeJSON(w, r, http.StatusCreated, saved)

	default:
		writeMethodNotAllowed(w, r, "GET, POST")
	}
}

// GET, POST /api/categories
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cats, err := s.catalog.ListCategories(r.Context())
		if err != nil {
			writeServiceError(w, r, err, log.OpList)
			return
		}
		writeJSON(w, r, http.StatusOK, cats)

	case http.MethodPost:
		var req categoryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, r, err, log.OpCreate)
			return
		}
		c, err := req.toCategory()
		if err != nil {
			writeServiceError(w, r, err, log.OpValidate)
			return
		}
		created, err := s.catalog.CreateCategory(r.Context(), c)
		if err != nil {
			writeServiceError(w, r, err, log.OpCreate)
			return
		}
		writeJSON(w, r, http.StatusCreated, created)

	default:
		writeMethodNotAllowed(w, r, "GET, POST")
	}
}

// GET /api/quotes never fails; the client falls back to fixed rates.
func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r, "GET")
		return
	}
	writeJSON(w, r, http.StatusOK, s.quotes.Rates(r.Context()))
}

// GET, POST /api/investments/wallets
func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ws, err := s.ledger.Wallets(r.Context())
		if err != nil {
			writeServiceError(w, r, err, log.OpList)
			return
		}
		writeJSON(w, r, http.StatusOK, ws)

	case http.MethodPost:
		var req walletRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, r, err, log.OpCreate)
			return
		}
		wallet, err := req.toWallet()
		if err != nil {
			writeServiceError(w, r, err, log.OpValidate)
			return
		}
		created, err := s.catalog.CreateWallet(r.Context(), wallet)
		if err != nil {
			writeServiceError(w, r, err, log.OpCreate)
			return
		}
		writeJSON(w, r, http.StatusCreated, created)

	default:
		writeMethodNotAllowed(w, r, "GET, POST")
	}
}

// GET, POST /api/investments
func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		invs, err := s.catalog.ListInvestments(r.Context())
		if err != nil {
			writeServiceError(w, r, err, log.OpList)
			return
		}
		writeJSON(w, r, http.StatusOK, invs)

	case http.MethodPost:
		var req investmentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeServiceError(w, r, err, log.OpCreate)
			return
		}
		inv, err := req.toInvestment()
		if err != nil {
			writeServiceError(w, r, err, log.OpValidate)
			return
		}
		created, err := s.catalog.CreateInvestment(r.Context(), inv)
		if err != nil {
			writeServiceError(w, r, err, log.OpCreate)
			return
		}
		writeJSON(w, r, http.StatusCreated, created)

	default:
		writeMethodNotAllowed(w, r, "GET, POST")
	}
}

// POST /api/investments/transactions
func (s *Server) handleInvestmentTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "POST")
		return
	}
	var req investmentTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err, log.OpCreate)
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		writeServiceError(w, r, err, log.OpValidate)
		return
	}
	created, err := s.catalog.CreateInvestmentTransaction(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err, log.OpCreate)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

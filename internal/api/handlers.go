package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/loanops/internal/models"
	"github.com/punchamoorthee/loanops/internal/service"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loanops_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loanops_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "endpoint"})
)

type Handler struct {
	ledger *service.Ledger
	log    zerolog.Logger
}

func NewHandler(ledger *service.Ledger, log zerolog.Logger) *Handler {
	return &Handler{ledger: ledger, log: log}
}

// Routes mounts the API endpoints on the given (sub)router.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/books", h.AddBookHandler).Methods("POST")
	r.HandleFunc("/books/{id}/availability", h.CheckAvailabilityHandler).Methods("GET")
	r.HandleFunc("/loans", h.IssueBookHandler).Methods("POST")
	r.HandleFunc("/loans/{id}/return", h.ReturnBookHandler).Methods("POST")
	r.HandleFunc("/loans/{id}/lost", h.ReportLostHandler).Methods("POST")
	r.HandleFunc("/debtors", h.ViewDebtorsHandler).Methods("GET")
	r.HandleFunc("/debts", h.GetAllDebtsHandler).Methods("GET")
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) AddBookHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/books"))
	defer timer.ObserveDuration()

	var req models.AddBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "POST", "/books", http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if req.Title == "" {
		h.fail(w, "POST", "/books", http.StatusUnprocessableEntity, "Title required")
		return
	}
	if req.TotalCopies < 0 {
		h.fail(w, "POST", "/books", http.StatusUnprocessableEntity, "Total copies must not be negative")
		return
	}

	id, err := h.ledger.AddBook(r.Context(), req.Title, req.TotalCopies)
	if err != nil {
		h.serviceError(w, "POST", "/books", err)
		return
	}

	httpRequestsTotal.WithLabelValues("POST", "/books", "201").Inc()
	respondWithJSON(w, http.StatusCreated, models.AddBookResponse{Success: true, Message: "Book added", BookID: id})
}

func (h *Handler) IssueBookHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/loans"))
	defer timer.ObserveDuration()

	var req models.IssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, "POST", "/loans", http.StatusBadRequest, "Malformed JSON body")
		return
	}

	loanID, err := h.ledger.IssueBook(r.Context(), req.BookID, req.StudentID, req.DaysDue)
	if err != nil {
		h.serviceError(w, "POST", "/loans", err)
		return
	}

	httpRequestsTotal.WithLabelValues("POST", "/loans", "201").Inc()
	respondWithJSON(w, http.StatusCreated, models.IssueResponse{Success: true, Message: "Issued", LoanID: loanID})
}

func (h *Handler) ReturnBookHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/loans/{id}/return"))
	defer timer.ObserveDuration()

	loanID, ok := pathID(w, r, "POST", "/loans/{id}/return")
	if !ok {
		return
	}

	amount, err := h.ledger.ReturnBook(r.Context(), loanID)
	if err != nil {
		h.serviceError(w, "POST", "/loans/{id}/return", err)
		return
	}

	httpRequestsTotal.WithLabelValues("POST", "/loans/{id}/return", "200").Inc()
	respondWithJSON(w, http.StatusOK, models.FineResponse{Success: true, Message: "Returned", Fine: amount})
}

func (h *Handler) ReportLostHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", "/loans/{id}/lost"))
	defer timer.ObserveDuration()

	loanID, ok := pathID(w, r, "POST", "/loans/{id}/lost")
	if !ok {
		return
	}

	amount, err := h.ledger.ReportLost(r.Context(), loanID)
	if err != nil {
		h.serviceError(w, "POST", "/loans/{id}/lost", err)
		return
	}

	httpRequestsTotal.WithLabelValues("POST", "/loans/{id}/lost", "200").Inc()
	respondWithJSON(w, http.StatusOK, models.FineResponse{Success: true, Message: "Reported lost", Fine: amount})
}

func (h *Handler) CheckAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	bookID, ok := pathID(w, r, "GET", "/books/{id}/availability")
	if !ok {
		return
	}

	available, total, err := h.ledger.CheckAvailability(r.Context(), bookID)
	if err != nil {
		h.serviceError(w, "GET", "/books/{id}/availability", err)
		return
	}

	httpRequestsTotal.WithLabelValues("GET", "/books/{id}/availability", "200").Inc()
	respondWithJSON(w, http.StatusOK, models.AvailabilityResponse{AvailableCopies: available, TotalCopies: total})
}

func (h *Handler) ViewDebtorsHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/debtors"))
	defer timer.ObserveDuration()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			h.fail(w, "GET", "/debtors", http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = v
	}

	debts, fromCache, err := h.ledger.ViewDebtors(r.Context(), limit)
	if err != nil {
		h.serviceError(w, "GET", "/debtors", err)
		return
	}

	httpRequestsTotal.WithLabelValues("GET", "/debtors", "200").Inc()
	respondWithJSON(w, http.StatusOK, models.DebtorsResponse{Debts: debts, FromCache: fromCache})
}

func (h *Handler) GetAllDebtsHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", "/debts"))
	defer timer.ObserveDuration()

	debts, err := h.ledger.GetAllDebts(r.Context())
	if err != nil {
		h.serviceError(w, "GET", "/debts", err)
		return
	}

	httpRequestsTotal.WithLabelValues("GET", "/debts", "200").Inc()
	respondWithJSON(w, http.StatusOK, models.DebtsResponse{Debts: debts})
}

// serviceError maps the ledger's typed failures onto status codes. Anything
// untyped is a storage failure.
func (h *Handler) serviceError(w http.ResponseWriter, method, endpoint string, err error) {
	switch {
	case errors.Is(err, service.ErrBookNotFound),
		errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrLoanNotFound):
		h.fail(w, method, endpoint, http.StatusNotFound, upperFirst(err.Error()))
	case errors.Is(err, service.ErrNoCopies):
		h.fail(w, method, endpoint, http.StatusConflict, "No available copies")
	case errors.Is(err, service.ErrAlreadyReturned):
		h.fail(w, method, endpoint, http.StatusUnprocessableEntity, "Already returned")
	case errors.Is(err, service.ErrAlreadyLost):
		h.fail(w, method, endpoint, http.StatusUnprocessableEntity, "Already reported lost")
	default:
		h.log.Error().Err(err).Str("endpoint", endpoint).Msg("storage failure")
		h.fail(w, method, endpoint, http.StatusInternalServerError, "Storage failure")
	}
}

func (h *Handler) fail(w http.ResponseWriter, method, endpoint string, code int, message string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	respondWithJSON(w, code, map[string]interface{}{"success": false, "message": message})
}

func pathID(w http.ResponseWriter, r *http.Request, method, endpoint string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpRequestsTotal.WithLabelValues(method, endpoint, "400").Inc()
		respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "message": "Invalid id"})
		return 0, false
	}
	return id, true
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

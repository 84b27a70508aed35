package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/metrics"
	"sponsortree-backend/internal/repository"
	"sponsortree-backend/internal/security"
	"sponsortree-backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// Services bundles what the HTTP surface calls into. PaymentMethods and Roster
// may be nil when Airtable is not configured.
type Services struct {
	Members        service.MembershipService
	Payments       service.PaymentService
	Webhooks       service.WebhookService
	Verification   service.VerificationService
	Auth           service.AuthService
	PaymentMethods repository.PaymentMethodRepository
	Roster         repository.RosterRepository
}

type Handler struct {
	svc      Services
	tokens   security.TokenManager
	validate *validator.Validate
}

func NewHandler(svc Services, tokens security.TokenManager) *Handler {
	return &Handler{svc: svc, tokens: tokens, validate: validator.New()}
}

// NewRouter builds the full HTTP surface with middleware applied.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestID, accessLog)
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/members", h.createMember).Methods(http.MethodPost)
	api.HandleFunc("/members/{id}", requireAdmin(h.tokens, h.getMember)).Methods(http.MethodGet)
	api.HandleFunc("/payments", h.createPayment).Methods(http.MethodPost)
	api.HandleFunc("/payments", requireAdmin(h.tokens, h.listPayments)).Methods(http.MethodGet)
	api.HandleFunc("/payments/status", h.paymentStatus).Methods(http.MethodGet)
	api.HandleFunc("/webhooks/payment", h.providerWebhook).Methods(http.MethodPost)
	api.HandleFunc("/webhooks/telegram", h.telegramWebhook).Methods(http.MethodPost)
	api.HandleFunc("/otp/request", h.requestOTP).Methods(http.MethodPost)
	api.HandleFunc("/otp/verify", h.verifyOTP).Methods(http.MethodPost)
	api.HandleFunc("/payment-methods", h.listPaymentMethods).Methods(http.MethodGet)
	api.HandleFunc("/roster", requireAdmin(h.tokens, h.listRoster)).Methods(http.MethodGet)
	api.HandleFunc("/roster", requireAdmin(h.tokens, h.addRoster)).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, nil)
}

func (h *Handler) createMember(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMemberRequest
	if err := decodeJSON(w, r, &req, h.validate); err != nil {
		writeError(w, r, err)
		return
	}

	member, err := h.svc.Members.CreatePending(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"member": member})
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.svc.Members.GetMember(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"member": member})
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePaymentRequest
	if err := decodeJSON(w, r, &req, h.validate); err != nil {
		writeError(w, r, err)
		return
	}

	payment, checkoutURL, err := h.svc.Payments.CreatePayment(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "payment_url": checkoutURL, "record": payment})
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if val := r.URL.Query().Get("limit"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			writeMessage(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	if claims := adminClaimsFromContext(r.Context()); claims != nil {
		logger.Debug("Listing payments", "tokenID", claims.ID, "limit", limit)
	}
	payments, err := h.svc.Payments.ListPayments(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"payments": payments})
}

func (h *Handler) paymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	if orderID == "" {
		writeMessage(w, http.StatusBadRequest, "missing orderId")
		return
	}

	payment, err := h.svc.Payments.GetStatus(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"record": payment})
}

type otpRequest struct {
	Telegram     string        `json:"telegram" validate:"required"`
	OTP          string        `json:"otp"`
	CreateMember *rosterMember `json:"createMember"`
}

type rosterMember struct {
	OrderID  string    `json:"orderId" validate:"max=100"`
	Amount   float64   `json:"amount" validate:"gte=0"`
	Name     string    `json:"name" validate:"max=200"`
	Phone    string    `json:"phone" validate:"max=40"`
	Email    string    `json:"email" validate:"omitempty,email,max=200"`
	Date     time.Time `json:"date"`
	Verified bool      `json:"verified"`
}

func (m *rosterMember) toEntry() *domain.RosterEntry {
	if m == nil {
		return nil
	}
	return &domain.RosterEntry{
		OrderID:  strings.TrimSpace(m.OrderID),
		Amount:   m.Amount,
		Name:     strings.TrimSpace(m.Name),
		Phone:    strings.TrimSpace(m.Phone),
		Email:    strings.TrimSpace(m.Email),
		Date:     m.Date,
		Verified: m.Verified,
	}
}

func (h *Handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(w, r, &req, h.validate); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Verification.Request(r.Context(), req.Telegram); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{keyMessage: "code sent to admins"})
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decodeJSON(w, r, &req, h.validate); err != nil {
		writeError(w, r, err)
		return
	}
	if req.OTP == "" {
		writeMessage(w, http.StatusBadRequest, "missing fields")
		return
	}
	if err := h.svc.Verification.Verify(r.Context(), req.Telegram, req.OTP, req.CreateMember.toEntry()); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{keyMessage: "verified"})
}

func (h *Handler) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	if h.svc.PaymentMethods == nil {
		writeMessage(w, http.StatusServiceUnavailable, "payment directory not configured")
		return
	}
	methods, err := h.svc.PaymentMethods.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"methods": methods})
}

type addRosterRequest struct {
	Member *rosterMember `json:"member" validate:"required"`
}

func (h *Handler) listRoster(w http.ResponseWriter, r *http.Request) {
	if h.svc.Roster == nil {
		writeMessage(w, http.StatusServiceUnavailable, "roster not configured")
		return
	}
	entries, err := h.svc.Roster.List(r.Context(), 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"members": entries})
}

func (h *Handler) addRoster(w http.ResponseWriter, r *http.Request) {
	if h.svc.Roster == nil {
		writeMessage(w, http.StatusServiceUnavailable, "roster not configured")
		return
	}
	var req addRosterRequest
	if err := decodeJSON(w, r, &req, h.validate); err != nil {
		writeError(w, r, err)
		return
	}

	entry := req.Member.toEntry()
	if err := h.svc.Roster.Add(r.Context(), entry); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, envelope{"record": entry})
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, nil); err != nil {
		writeError(w, r, err)
		return
	}

	token, expires, err := h.svc.Auth.Login(r.Context(), req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, envelope{"token": token, "expires_at": expires})
}

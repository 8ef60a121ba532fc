package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/core/service"
)

type HTTPHandler struct {
	registry      *service.Registry
	notifications Drainer
	onDelete      func(sessionID string)
}

func NewHTTPHandler(registry *service.Registry, notifications Drainer, onDelete func(sessionID string)) *HTTPHandler {
	return &HTTPHandler{registry: registry, notifications: notifications, onDelete: onDelete}
}

// Routes returns the storefront API. requestLog enables chi's request logger.
func (h *HTTPHandler) Routes(requestLog bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if requestLog {
		r.Use(middleware.Logger)
	}

	r.Get("/health", h.HealthCheck)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)

			r.Post("/auth", h.Authenticate)
			r.Post("/age", h.VerifyAge)
			r.Post("/age/decline", h.DeclineAge)
			r.Post("/logout", h.Logout)
			r.Post("/back", h.Back)
			r.Get("/notifications", h.Notifications)

			r.Get("/products", h.Products)
			r.Get("/categories", h.Categories)

			r.Get("/cart", h.GetCart)
			r.Post("/cart/open", h.OpenCart)
			r.Post("/cart/close", h.CloseCart)
			r.Post("/cart/items", h.AddItem)
			r.Put("/cart/items/{productID}", h.UpdateQuantity)
			r.Delete("/cart/items/{productID}", h.RemoveItem)

			r.Post("/checkout", h.GoToCheckout)
			r.Get("/checkout", h.CheckoutSummary)
			r.Post("/checkout/orders", h.PlaceOrder)
			r.Get("/order", h.ActiveOrder)

			r.Post("/profile", h.GoToProfile)
			r.Post("/profile/sections/{section}", h.OpenSection)
			r.Post("/profile/subsections/{subsection}", h.OpenSubsection)
			r.Post("/profile/password", h.ChangePassword)
			r.Get("/transactions", h.Transactions)

			r.Post("/admin/products", h.AddProduct)
			r.Put("/admin/products/{productID}", h.UpdateProduct)
			r.Delete("/admin/products/{productID}", h.DeleteProduct)
		})
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess := h.registry.Create()
	writeJSON(w, http.StatusCreated, toStateDTO(sess))
}

func (h *HTTPHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toStateDTO(sess))
}

func (h *HTTPHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.registry.Delete(sess.ID())
	if h.onDelete != nil {
		h.onDelete(sess.ID())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AuthRequest
	if !decode(w, r, &req) {
		return
	}
	if err := sess.Authenticate(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateDTO(sess))
}

func (h *HTTPHandler) VerifyAge(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AgeRequest
	if !decode(w, r, &req) {
		return
	}
	birth, err := parseBirthDate(req.BirthDate)
	if err != nil {
		writeError(w, err)
		return
	}
	verified, err := sess.VerifyAge(r.Context(), birth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AgeResponse{Verified: verified, State: toStateDTO(sess)})
}

func (h *HTTPHandler) DeclineAge(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(sess *service.SessionService) error {
		return sess.DeclineAge(r.Context())
	})
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(sess *service.SessionService) error {
		return sess.Logout(r.Context())
	})
}

func (h *HTTPHandler) Back(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(sess *service.SessionService) error {
		return sess.Back()
	})
}

func (h *HTTPHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	notes := h.notifications.Drain(sess.ID())
	if notes == nil {
		notes = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *HTTPHandler) Products(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	products, err := sess.Products(q.Get("category"), q.Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs(products))
}

func (h *HTTPHandler) Categories(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	categories, err := sess.Categories()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTOs(categories))
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeCart(w, sess)
}

func (h *HTTPHandler) OpenCart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(sess *service.SessionService) error {
		return sess.OpenCart()
	})
}

func (h *HTTPHandler) CloseCart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(sess *service.SessionService) error {
		return sess.CloseCart()
	})
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	if err := sess.AddToCart(r.Context(), req.ProductID); err != nil {
		writeError(w, err)
		return
	}
	h.writeCart(w, sess)
}

func (h *HTTPHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if !decode(w, r, &req) {
		return
	}
	if err := sess.UpdateQuantity(r.Context(), chi.URLParam(r, "productID"), req.Quantity); err != nil {
		writeError(w, err)
		return
	}
	h.writeCart(w, sess)
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.RemoveItem(r.Context(), chi.URLParam(r, "productID")); err != nil {
		writeError(w, err)
		return
	}
	h.writeCart(w, sess)
}

func (h *HTTPHandler) GoToCheckout(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(sess *service.SessionService) error {
		return sess.GoToCheckout(r.Context())
	})
}

func (h *HTTPHandler) CheckoutSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	summary, err := sess.CheckoutSummary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req PlaceOrderRequest
	if !decode(w, r, &req) {
		return
	}
	order, err := sess.PlaceOrder(r.Context(), service.CheckoutDetails{
		Address:       req.Address,
		Phone:         req.Phone,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

func (h *HTTPHandler) ActiveOrder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	order, found := sess.ActiveOrder()
	if !found {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no_active_order", Message: "no active order"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *HTTPHandler) GoToProfile(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(sess *service.SessionService) error {
		return sess.GoToProfile()
	})
}

func (h *HTTPHandler) OpenSection(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(sess *service.SessionService) error {
		return sess.OpenProfileSection(chi.URLParam(r, "section"))
	})
}

func (h *HTTPHandler) OpenSubsection(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(sess *service.SessionService) error {
		return sess.OpenProfileSubsection(chi.URLParam(r, "subsection"))
	})
}

func (h *HTTPHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := sess.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateDTO(sess))
}

func (h *HTTPHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	txs, err := sess.Transactions()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *HTTPHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	in, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := sess.AddProduct(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTOs([]domain.Product{product})[0])
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	in, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := sess.UpdateProduct(r.Context(), chi.URLParam(r, "productID"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTOs([]domain.Product{product})[0])
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteProduct(r.Context(), chi.URLParam(r, "productID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) transition(w http.ResponseWriter, r *http.Request, fn func(*service.SessionService) error) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStateDTO(sess))
}

func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request) (*service.SessionService, bool) {
	sess, err := h.registry.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (h *HTTPHandler) writeCart(w http.ResponseWriter, sess *service.SessionService) {
	lines, err := sess.Cart()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(lines))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, errInvalidBody)
		return false
	}
	return true
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (service.ProductInput, bool) {
	var req ProductRequest
	if !decode(w, r, &req) {
		return service.ProductInput{}, false
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, err)
		return service.ProductInput{}, false
	}
	return in, true
}

var httpStatus = map[errorCode]int{
	codeInternal:   http.StatusInternalServerError,
	codeBadRequest: http.StatusBadRequest,
	codeForbidden:  http.StatusForbidden,
	codeNotFound:   http.StatusNotFound,
	codeConflict:   http.StatusConflict,
	codeTimeout:    http.StatusRequestTimeout,
}

func writeError(w http.ResponseWriter, err error) {
	code, name := classify(err)
	if code == codeInternal {
		log.Printf("http handler: %v", err)
	}
	writeJSON(w, httpStatus[code], ErrorResponse{Error: name, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

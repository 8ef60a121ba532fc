package handler

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/core/service"
)

const birthDateLayout = "2006-01-02"

// Drainer hands out the notifications queued for a session.
type Drainer interface {
	Drain(sessionID string) []domain.Notification
}

type ProductDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Price          string  `json:"price"`
	AlcoholPercent *string `json:"alcohol_percent,omitempty"`
	Brand          string  `json:"brand"`
	Category       string  `json:"category"`
	ImageURL       string  `json:"image_url"`
}

type CategoryDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

type CartLineDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type CartDTO struct {
	Items     []CartLineDTO `json:"items"`
	ItemCount int           `json:"item_count"`
	Total     string        `json:"total"`
}

type SummaryDTO struct {
	Items       []CartLineDTO `json:"items"`
	Subtotal    string        `json:"subtotal"`
	DeliveryFee string        `json:"delivery_fee"`
	Total       string        `json:"total"`
}

type OrderDTO struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	EstimatedTime string `json:"estimated_time"`
	Subtotal      string `json:"subtotal"`
	DeliveryFee   string `json:"delivery_fee"`
	Total         string `json:"total"`
	PaymentMethod string `json:"payment_method"`
	CreatedAt     string `json:"created_at"`
}

type TransactionDTO struct {
	OrderID       string   `json:"order_id"`
	Date          string   `json:"date"`
	Amount        string   `json:"amount"`
	Items         []string `json:"items"`
	PaymentMethod string   `json:"payment_method"`
	Status        string   `json:"status"`
}

type StateDTO struct {
	SessionID   string   `json:"session_id"`
	Email       string   `json:"email,omitempty"`
	AgeVerified bool     `json:"age_verified"`
	Stage       string   `json:"stage"`
	CartVisible bool     `json:"cart_visible"`
	IsAdmin     bool     `json:"is_admin"`
	ItemCount   int      `json:"item_count"`
	ProfilePath []string `json:"profile_path,omitempty"`
}

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AgeRequest struct {
	BirthDate string `json:"birth_date"`
}

type AgeResponse struct {
	Verified bool     `json:"verified"`
	State    StateDTO `json:"state"`
}

type AddItemRequest struct {
	ProductID string `json:"product_id"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type PlaceOrderRequest struct {
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	PaymentMethod string `json:"payment_method"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type ProductRequest struct {
	Name           string  `json:"name"`
	Price          string  `json:"price"`
	AlcoholPercent *string `json:"alcohol_percent,omitempty"`
	Brand          string  `json:"brand"`
	Category       string  `json:"category"`
	ImageURL       string  `json:"image_url"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toProductDTOs(products []domain.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		dto := ProductDTO{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price.StringFixed(2),
			Brand:    p.Brand,
			Category: p.Category,
			ImageURL: p.ImageURL,
		}
		if p.AlcoholPercent.Valid {
			abv := p.AlcoholPercent.Decimal.String()
			dto.AlcoholPercent = &abv
		}
		out = append(out, dto)
	}
	return out
}

func toCategoryDTOs(categories []domain.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryDTO{ID: c.ID, Title: c.Title, Icon: c.Icon, Description: c.Description})
	}
	return out
}

func toLineDTOs(lines []domain.CartLine) []CartLineDTO {
	out := make([]CartLineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, CartLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			Brand:     l.Brand,
			Price:     l.Price.StringFixed(2),
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal().StringFixed(2),
		})
	}
	return out
}

func toCartDTO(lines []domain.CartLine) CartDTO {
	count := 0
	total := decimal.Zero
	for _, l := range lines {
		count += l.Quantity
		total = total.Add(l.Subtotal())
	}
	return CartDTO{Items: toLineDTOs(lines), ItemCount: count, Total: total.StringFixed(2)}
}

func toSummaryDTO(s service.CheckoutSummary) SummaryDTO {
	return SummaryDTO{
		Items:       toLineDTOs(s.Lines),
		Subtotal:    s.Subtotal.StringFixed(2),
		DeliveryFee: s.DeliveryFee.StringFixed(2),
		Total:       s.Total.StringFixed(2),
	}
}

func toOrderDTO(o domain.ActiveOrder) OrderDTO {
	return OrderDTO{
		ID:            o.ID,
		Status:        string(o.Status),
		EstimatedTime: o.EstimatedTime,
		Subtotal:      o.Subtotal.StringFixed(2),
		DeliveryFee:   o.DeliveryFee.StringFixed(2),
		Total:         o.Total.StringFixed(2),
		PaymentMethod: string(o.PaymentMethod),
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(txs []domain.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionDTO{
			OrderID:       tx.OrderID,
			Date:          tx.Date.Format(birthDateLayout),
			Amount:        tx.Amount.StringFixed(2),
			Items:         tx.Items,
			PaymentMethod: string(tx.PaymentMethod),
			Status:        string(tx.Status),
		})
	}
	return out
}

func toStateDTO(sess *service.SessionService) StateDTO {
	st := sess.State()
	dto := StateDTO{
		SessionID:   sess.ID(),
		AgeVerified: st.AgeVerified,
		Stage:       string(st.Stage),
		CartVisible: st.CartVisible,
		IsAdmin:     st.IsAdmin,
		ItemCount:   sess.ItemCount(),
		ProfilePath: st.ProfilePath,
	}
	if st.User != nil {
		dto.Email = st.User.Email
	}
	return dto
}

func parseBirthDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(birthDateLayout, s)
	if err != nil {
		return time.Time{}, errInvalidBirthDate
	}
	return t, nil
}

func (r ProductRequest) toInput() (service.ProductInput, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return service.ProductInput{}, errInvalidDecimal
	}
	in := service.ProductInput{
		Name:     r.Name,
		Price:    price,
		Brand:    r.Brand,
		Category: r.Category,
		ImageURL: r.ImageURL,
	}
	if r.AlcoholPercent != nil && *r.AlcoholPercent != "" {
		abv, err := decimal.NewFromString(*r.AlcoholPercent)
		if err != nil {
			return service.ProductInput{}, errInvalidDecimal
		}
		in.AlcoholPercent = decimal.NewNullDecimal(abv)
	}
	return in, nil
}

var (
	errInvalidBody      = errors.New("invalid request body")
	errInvalidBirthDate = errors.New("birth_date must be YYYY-MM-DD")
	errInvalidDecimal   = errors.New("invalid decimal value")
)

// errorCode classifies an error for both transports.
type errorCode int

const (
	codeInternal errorCode = iota
	codeBadRequest
	codeForbidden
	codeNotFound
	codeConflict
	codeTimeout
)

func classify(err error) (errorCode, string) {
	switch {
	case errors.Is(err, errInvalidBody), errors.Is(err, errInvalidBirthDate), errors.Is(err, errInvalidDecimal):
		return codeBadRequest, "invalid_request"
	case errors.Is(err, service.ErrMissingFields):
		return codeBadRequest, "missing_fields"
	case errors.Is(err, service.ErrBirthDateRequired):
		return codeBadRequest, "birth_date_required"
	case errors.Is(err, service.ErrPasswordMismatch):
		return codeBadRequest, "password_mismatch"
	case errors.Is(err, service.ErrPasswordTooShort):
		return codeBadRequest, "password_too_short"
	case errors.Is(err, service.ErrAccessDenied):
		return codeForbidden, "access_denied"
	case errors.Is(err, service.ErrNotAdmin):
		return codeForbidden, "not_admin"
	case errors.Is(err, service.ErrSessionNotFound):
		return codeNotFound, "session_not_found"
	case errors.Is(err, service.ErrProductNotFound):
		return codeNotFound, "product_not_found"
	case errors.Is(err, service.ErrUnknownSection):
		return codeNotFound, "unknown_section"
	case errors.Is(err, service.ErrInvalidTransition):
		return codeConflict, "invalid_transition"
	case errors.Is(err, service.ErrCartEmpty):
		return codeConflict, "cart_empty"
	case errors.Is(err, service.ErrCheckoutInProgress):
		return codeConflict, "checkout_in_progress"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return codeTimeout, "timeout"
	default:
		return codeInternal, "internal_error"
	}
}

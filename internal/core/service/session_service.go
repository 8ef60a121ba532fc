package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/port"
)

const (
	DefaultProcessingDelay = 2 * time.Second
	DefaultEstimatedTime   = "25-30 minutes"
)

var DefaultDeliveryFee = decimal.RequireFromString("5.99")

type SessionOptions struct {
	ProcessingDelay time.Duration
	// DeliveryFee falls back to DefaultDeliveryFee when not set. A set zero
	// fee means free delivery.
	DeliveryFee     decimal.NullDecimal
	MinimumAge      int
	AdminEmails     []string
	StatusOffsets   []time.Duration
	EstimatedTime   string
	OrderEvents     port.OrderEventPublisher
	Now             func() time.Time
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.MinimumAge == 0 {
		o.MinimumAge = MinimumAge
	}
	if !o.DeliveryFee.Valid {
		o.DeliveryFee = decimal.NewNullDecimal(DefaultDeliveryFee)
	}
	if o.EstimatedTime == "" {
		o.EstimatedTime = DefaultEstimatedTime
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type CheckoutDetails struct {
	Address       string
	Phone         string
	PaymentMethod domain.PaymentMethod
}

type CheckoutSummary struct {
	Lines       []domain.CartLine
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// SessionService is the flow controller of one shopper. The stages run
// unauthenticated, age-gate, then home with checkout and profile reachable
// from home. Cart, catalog, checkout and profile need both a user and a
// passed age check.
type SessionService struct {
	mu       sync.Mutex
	id       string
	opts     SessionOptions
	notifier port.Notifier
	catalog  *CatalogService
	cart     *CartService
	orders   *OrderService
	profile  *ProfileService
	admin    *AdminService

	user        *domain.User
	ageVerified bool
	stage       domain.Stage
	cartVisible bool
	processing  bool
	// checkoutSeq counts entries into checkout so a placement can tell
	// whether the shopper left and came back while it waited.
	checkoutSeq uint64
	history     []domain.Transaction
}

func NewSessionService(catalog *CatalogService, notifier port.Notifier, opts SessionOptions) *SessionService {
	return newSession(uuid.NewString(), catalog, notifier, opts)
}

func newSession(id string, catalog *CatalogService, notifier port.Notifier, opts SessionOptions) *SessionService {
	opts = opts.withDefaults()
	return &SessionService{
		id:       id,
		opts:     opts,
		notifier: notifier,
		catalog:  catalog,
		cart:     NewCartService(catalog, notifier),
		orders:   NewOrderService(opts.OrderEvents, opts.StatusOffsets, opts.EstimatedTime),
		profile:  NewProfileService(notifier),
		admin:    NewAdminService(catalog, notifier),
		stage:    domain.StageUnauthenticated,
	}
}

func (s *SessionService) ID() string { return s.id }

func (s *SessionService) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := domain.SessionState{
		AgeVerified: s.ageVerified,
		Stage:       s.stage,
		CartVisible: s.cartVisible,
		IsAdmin:     s.isAdminLocked(),
	}
	if s.user != nil {
		u := *s.user
		state.User = &u
	}
	if s.stage == domain.StageProfile {
		state.ProfilePath = s.profile.Path()
	}
	return state
}

func (s *SessionService) Authenticate(ctx context.Context, email, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != domain.StageUnauthenticated {
		return fmt.Errorf("authenticate from %s: %w", s.stage, ErrInvalidTransition)
	}
	if strings.TrimSpace(email) == "" || password == "" {
		s.notifier.Notify(ctx, missingInformation())
		return ErrMissingFields
	}

	s.user = &domain.User{Email: strings.TrimSpace(email)}
	s.stage = domain.StageAgeGate
	return nil
}

// VerifyAge runs the age check against today's date. A rejected check ends
// the session and the shopper must sign in again.
func (s *SessionService) VerifyAge(ctx context.Context, birthDate time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != domain.StageAgeGate {
		return false, fmt.Errorf("verify age from %s: %w", s.stage, ErrInvalidTransition)
	}
	if birthDate.IsZero() {
		return false, ErrBirthDateRequired
	}

	if !IsOfAge(birthDate, s.opts.Now(), s.opts.MinimumAge) {
		s.denyLocked(ctx)
		return false, nil
	}

	s.ageVerified = true
	s.stage = domain.StageHome
	s.notifier.Notify(ctx, domain.Notification{
		Title:    "Welcome to Click n Sip!",
		Message:  "Browse our selection of premium beverages.",
		Severity: domain.SeverityInfo,
	})
	return true, nil
}

// DeclineAge is the exit action of the age gate; it is treated as a failed check.
func (s *SessionService) DeclineAge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != domain.StageAgeGate {
		return fmt.Errorf("decline age from %s: %w", s.stage, ErrInvalidTransition)
	}
	s.denyLocked(ctx)
	return nil
}

func (s *SessionService) denyLocked(ctx context.Context) {
	s.resetLocked()
	s.notifier.Notify(ctx, domain.Notification{
		Title:    "Access Denied",
		Message:  fmt.Sprintf("You must be %d or older to access this app.", s.opts.MinimumAge),
		Severity: domain.SeverityDestructive,
	})
}

func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return fmt.Errorf("logout: %w", ErrAccessDenied)
	}
	s.resetLocked()
	s.notifier.Notify(ctx, domain.Notification{
		Title:    "Logged Out",
		Message:  "You have been successfully logged out.",
		Severity: domain.SeverityInfo,
	})
	return nil
}

func (s *SessionService) resetLocked() {
	s.orders.Stop()
	s.cart.Clear()
	s.profile.Reset()
	s.user = nil
	s.ageVerified = false
	s.stage = domain.StageUnauthenticated
	s.cartVisible = false
	s.history = nil
}

func (s *SessionService) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isAdminLocked()
}

func (s *SessionService) isAdminLocked() bool {
	if s.user == nil {
		return false
	}
	for _, email := range s.opts.AdminEmails {
		if strings.EqualFold(email, s.user.Email) {
			return true
		}
	}
	return false
}

// Catalog

func (s *SessionService) Products(categoryID, search string) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifiedLocked(); err != nil {
		return nil, err
	}
	if categoryID == "" {
		categoryID = domain.CategoryAll
	}
	return s.catalog.Filter(categoryID, search), nil
}

func (s *SessionService) Categories() ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifiedLocked(); err != nil {
		return nil, err
	}
	return s.catalog.Categories(), nil
}

// Cart

func (s *SessionService) AddToCart(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifiedLocked(); err != nil {
		return err
	}
	s.cart.AddToCart(ctx, productID)
	return nil
}

func (s *SessionService) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifiedLocked(); err != nil {
		return err
	}
	s.cart.UpdateQuantity(ctx, productID, quantity)
	return nil
}

func (s *SessionService) RemoveItem(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifiedLocked(); err != nil {
		return err
	}
	s.cart.RemoveItem(ctx, productID)
	return nil
}

func (s *SessionService) Cart() ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifiedLocked(); err != nil {
		return nil, err
	}
	return s.cart.Lines(), nil
}

func (s *SessionService) ItemCount() int {
	return s.cart.ItemCount()
}

func (s *SessionService) CartTotal() decimal.Decimal {
	return s.cart.Total()
}

func (s *SessionService) OpenCart() error {
	return s.setCartVisible(true)
}

func (s *SessionService) CloseCart() error {
	return s.setCartVisible(false)
}

func (s *SessionService) setCartVisible(visible bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != domain.StageHome {
		return fmt.Errorf("toggle cart from %s: %w", s.stage, ErrInvalidTransition)
	}
	s.cartVisible = visible
	return nil
}

// Navigation

func (s *SessionService) GoToCheckout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != domain.StageHome {
		return fmt.Errorf("checkout from %s: %w", s.stage, ErrInvalidTransition)
	}
	if s.cart.IsEmpty() {
		s.notifier.Notify(ctx, domain.Notification{
			Title:    "Cart Empty",
			Message:  "Add items to your cart before checking out.",
			Severity: domain.SeverityDestructive,
		})
		return ErrCartEmpty
	}
	s.cartVisible = false
	s.stage = domain.StageCheckout
	s.checkoutSeq++
	return nil
}

func (s *SessionService) GoToProfile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != domain.StageHome {
		return fmt.Errorf("profile from %s: %w", s.stage, ErrInvalidTransition)
	}
	s.profile.Reset()
	s.cartVisible = false
	s.stage = domain.StageProfile
	return nil
}

// Back leaves checkout, or pops one level of the profile screen and leaves
// it once its stack is empty.
func (s *SessionService) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.stage {
	case domain.StageCheckout:
		s.stage = domain.StageHome
	case domain.StageProfile:
		if !s.profile.Back() {
			s.stage = domain.StageHome
		}
	default:
		return fmt.Errorf("back from %s: %w", s.stage, ErrInvalidTransition)
	}
	return nil
}

// Profile

func (s *SessionService) OpenProfileSection(id string) error {
	if err := s.requireStage(domain.StageProfile); err != nil {
		return err
	}
	return s.profile.OpenSection(id)
}

func (s *SessionService) OpenProfileSubsection(id string) error {
	if err := s.requireStage(domain.StageProfile); err != nil {
		return err
	}
	return s.profile.OpenSubsection(id)
}

func (s *SessionService) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if err := s.requireStage(domain.StageProfile); err != nil {
		return err
	}
	return s.profile.ChangePassword(ctx, current, next, confirm)
}

func (s *SessionService) Transactions() ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifiedLocked(); err != nil {
		return nil, err
	}
	return append([]domain.Transaction(nil), s.history...), nil
}

// Checkout

func (s *SessionService) CheckoutSummary() (CheckoutSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifiedLocked(); err != nil {
		return CheckoutSummary{}, err
	}
	return s.summarize(s.cart.Lines()), nil
}

func (s *SessionService) summarize(lines []domain.CartLine) CheckoutSummary {
	subtotal := linesTotal(lines)
	return CheckoutSummary{
		Lines:       lines,
		Subtotal:    subtotal,
		DeliveryFee: s.opts.DeliveryFee.Decimal,
		Total:       subtotal.Add(s.opts.DeliveryFee.Decimal),
	}
}

// PlaceOrder submits the checkout form. After the processing delay it starts
// order tracking, records the transaction, empties the cart and returns to
// home. Cancelling ctx during the delay abandons the placement.
func (s *SessionService) PlaceOrder(ctx context.Context, details CheckoutDetails) (domain.ActiveOrder, error) {
	s.mu.Lock()
	if s.stage != domain.StageCheckout {
		stage := s.stage
		s.mu.Unlock()
		return domain.ActiveOrder{}, fmt.Errorf("place order from %s: %w", stage, ErrInvalidTransition)
	}
	if strings.TrimSpace(details.Address) == "" || strings.TrimSpace(details.Phone) == "" {
		s.mu.Unlock()
		s.notifier.Notify(ctx, missingInformation())
		return domain.ActiveOrder{}, ErrMissingFields
	}
	if s.processing {
		s.mu.Unlock()
		return domain.ActiveOrder{}, ErrCheckoutInProgress
	}
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return domain.ActiveOrder{}, ErrCartEmpty
	}
	seq := s.checkoutSeq
	s.processing = true
	s.mu.Unlock()

	if err := s.waitProcessing(ctx); err != nil {
		s.mu.Lock()
		s.processing = false
		s.mu.Unlock()
		return domain.ActiveOrder{}, fmt.Errorf("place order: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.processing = false
	if err := s.requireVerifiedLocked(); err != nil {
		return domain.ActiveOrder{}, err
	}
	if s.stage != domain.StageCheckout || s.checkoutSeq != seq {
		return domain.ActiveOrder{}, fmt.Errorf("place order: left checkout: %w", ErrInvalidTransition)
	}
	lines := s.cart.Lines()
	if len(lines) == 0 {
		return domain.ActiveOrder{}, ErrCartEmpty
	}

	method := details.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodCard
	}
	summary := s.summarize(lines)
	order := s.orders.Start(ctx, domain.ActiveOrder{
		Subtotal:      summary.Subtotal,
		DeliveryFee:   summary.DeliveryFee,
		Total:         summary.Total,
		Address:       strings.TrimSpace(details.Address),
		Phone:         strings.TrimSpace(details.Phone),
		PaymentMethod: method,
		Items:         lines,
	})

	names := make([]string, 0, len(lines))
	for _, l := range lines {
		names = append(names, l.Name)
	}
	s.history = append([]domain.Transaction{{
		OrderID:       order.ID,
		Date:          order.CreatedAt,
		Amount:        order.Total,
		Items:         names,
		PaymentMethod: method,
		Status:        domain.TransactionStatusCompleted,
	}}, s.history...)

	s.cart.Clear()
	s.cartVisible = false
	s.stage = domain.StageHome
	s.notifier.Notify(ctx, domain.Notification{
		Title:    "Order Placed Successfully!",
		Message:  "Your order will be delivered within 30 minutes.",
		Severity: domain.SeverityInfo,
	})
	return order, nil
}

func (s *SessionService) waitProcessing(ctx context.Context) error {
	if s.opts.ProcessingDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.opts.ProcessingDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *SessionService) ActiveOrder() (domain.ActiveOrder, bool) {
	return s.orders.Current()
}

// Admin

func (s *SessionService) AddProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	if err := s.requireAdmin(); err != nil {
		return domain.Product{}, err
	}
	return s.admin.AddProduct(ctx, in)
}

func (s *SessionService) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	if err := s.requireAdmin(); err != nil {
		return domain.Product{}, err
	}
	return s.admin.UpdateProduct(ctx, id, in)
}

func (s *SessionService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.requireAdmin(); err != nil {
		return err
	}
	return s.admin.DeleteProduct(ctx, id)
}

// Close cancels pending order transitions.
func (s *SessionService) Close() {
	s.orders.Stop()
}

func (s *SessionService) requireAdmin() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireVerifiedLocked(); err != nil {
		return err
	}
	if !s.isAdminLocked() {
		return ErrNotAdmin
	}
	return nil
}

func (s *SessionService) requireStage(stage domain.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stage != stage {
		return fmt.Errorf("requires %s, at %s: %w", stage, s.stage, ErrInvalidTransition)
	}
	return nil
}

func (s *SessionService) requireVerifiedLocked() error {
	if s.user == nil || !s.ageVerified {
		return ErrAccessDenied
	}
	return nil
}

func missingInformation() domain.Notification {
	return domain.Notification{
		Title:    "Missing Information",
		Message:  "Please fill in all required fields.",
		Severity: domain.SeverityDestructive,
	}
}

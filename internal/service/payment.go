package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/logger"
	"sponsortree-backend/internal/repository"
)

type PaymentOptions struct {
	DefaultGateway  string
	CheckoutBaseURL string
}

type paymentService struct {
	paymentRepo repository.PaymentRepository
	opts        PaymentOptions
}

func NewPaymentService(paymentRepo repository.PaymentRepository, opts PaymentOptions) PaymentService {
	if opts.DefaultGateway == "" {
		opts.DefaultGateway = "bot"
	}
	return &paymentService{paymentRepo: paymentRepo, opts: opts}
}

// CreatePayment stores a pending payment. Re-submitting an order with the same
// amount and gateway returns the stored record; any other reuse of the order
// id is a conflict.
func (s *paymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, string, error) {
	logger.EnterMethod("PaymentService.CreatePayment", "orderID", req.OrderID)

	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" || req.Amount <= 0 {
		err := fmt.Errorf("%w: orderId and a positive amount are required", domain.ErrInvalidInput)
		logger.ExitMethodWithError("PaymentService.CreatePayment", err)
		return nil, "", err
	}
	gateway := strings.TrimSpace(req.Gateway)
	if gateway == "" {
		gateway = s.opts.DefaultGateway
	}

	p := &domain.Payment{
		OrderID:        orderID,
		Amount:         req.Amount,
		Gateway:        gateway,
		Status:         domain.PaymentStatusPending,
		TelegramChatID: strings.TrimSpace(req.TelegramChatID),
		ReturnURL:      strings.TrimSpace(req.ReturnURL),
	}
	if len(req.Metadata) > 0 {
		notes, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, "", fmt.Errorf("%w: metadata: %v", domain.ErrInvalidInput, err)
		}
		p.Notes = string(notes)
	}

	err := s.paymentRepo.Create(ctx, p)
	if errors.Is(err, domain.ErrDuplicateOrder) {
		existing, getErr := s.paymentRepo.GetByOrderID(ctx, orderID)
		if getErr != nil {
			logger.ExitMethodWithError("PaymentService.CreatePayment", getErr)
			return nil, "", getErr
		}
		if !domain.SameAmount(existing.Amount, p.Amount) || existing.Gateway != p.Gateway {
			logger.ExitMethodWithError("PaymentService.CreatePayment", err)
			return nil, "", err
		}
		logger.Info("Payment already exists, returning stored record", "orderID", orderID, "paymentID", existing.ID)
		p, err = existing, nil
	}
	if err != nil {
		logger.ExitMethodWithError("PaymentService.CreatePayment", err)
		return nil, "", err
	}

	logger.ExitMethod("PaymentService.CreatePayment", "paymentID", p.ID)
	return p, s.checkoutURL(p), nil
}

func (s *paymentService) checkoutURL(p *domain.Payment) string {
	if p.ReturnURL != "" {
		sep := "?"
		if strings.Contains(p.ReturnURL, "?") {
			sep = "&"
		}
		return p.ReturnURL + sep + "orderId=" + url.QueryEscape(p.OrderID) + "&status=initiated"
	}
	return s.opts.CheckoutBaseURL + "?orderId=" + url.QueryEscape(p.OrderID)
}

func (s *paymentService) GetStatus(ctx context.Context, orderID string) (*domain.Payment, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("%w: missing orderId", domain.ErrInvalidInput)
	}
	return s.paymentRepo.GetByOrderID(ctx, orderID)
}

func (s *paymentService) ListPayments(ctx context.Context, limit int) ([]domain.Payment, error) {
	return s.paymentRepo.List(ctx, limit)
}

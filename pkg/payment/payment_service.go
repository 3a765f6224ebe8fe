package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/entities"
	"github.com/nocap-app/nocap-backend/internal/utils"
	"github.com/nocap-app/nocap-backend/internal/utils/mailing"
	"github.com/nocap-app/nocap-backend/pkg/token"
	"github.com/nocap-app/nocap-backend/pkg/user"
)

const creditRetries = 3

type (
	PaymentService interface {
		CreateCheckout(ctx context.Context, req domain.CreateCheckoutRequest, userID string) (*domain.CreateCheckoutResponse, error)
		HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
	}

	paymentService struct {
		tokenRepository token.TokenRepository
		userRepository  user.UserRepository
		httpClient      *http.Client
		apiURL          string
		secretKey       string
		webhookSecret   string
	}

	checkoutSession struct {
		ID            string            `json:"id"`
		URL           string            `json:"url"`
		PaymentIntent string            `json:"payment_intent"`
		AmountTotal   int64             `json:"amount_total"`
		Currency      string            `json:"currency"`
		ClientRefID   string            `json:"client_reference_id"`
		Metadata      map[string]string `json:"metadata"`
	}

	webhookEvent struct {
		Type string `json:"type"`
		Data struct {
			Object checkoutSession `json:"object"`
		} `json:"data"`
	}
)

func NewPaymentService(tokenRepository token.TokenRepository, userRepository user.UserRepository) PaymentService {
	return &paymentService{
		tokenRepository: tokenRepository,
		userRepository:  userRepository,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		apiURL:          utils.GetConfig("STRIPE_API_URL"),
		secretKey:       utils.GetConfig("STRIPE_SECRET_KEY"),
		webhookSecret:   utils.GetConfig("STRIPE_WEBHOOK_SECRET"),
	}
}

// CreateCheckout opens a payment session for a catalog package. The token
// count travels only in session metadata set here, which is the sole source
// the webhook trusts at credit time. No ledger mutation happens yet.
func (s *paymentService) CreateCheckout(ctx context.Context, req domain.CreateCheckoutRequest, userID string) (*domain.CreateCheckoutResponse, error) {
	pkg, ok := domain.TokenPackages[req.PackageType]
	if !ok {
		return nil, domain.ErrInvalidPackage
	}

	appURL := utils.GetConfig("APP_URL")

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", appURL+"/success?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", appURL+"/")
	form.Set("line_items[0][price_data][currency]", "usd")
	form.Set("line_items[0][price_data][product_data][name]", pkg.Name)
	form.Set("line_items[0][price_data][product_data][description]", fmt.Sprintf("Purchase %d tokens for content scanning", pkg.Tokens))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(pkg.Price, 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("client_reference_id", userID)
	form.Set("metadata[user_id]", userID)
	form.Set("metadata[tokens]", strconv.Itoa(pkg.Tokens))
	form.Set("metadata[package_type]", pkg.Type)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.ErrCheckoutFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("checkout session error: %s - %s", resp.Status, string(body))
		return nil, domain.ErrCheckoutFailed
	}

	var session checkoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}

	return &domain.CreateCheckoutResponse{
		URL:       session.URL,
		SessionID: session.ID,
	}, nil
}

// HandleWebhook reconciles an asynchronous payment notification into the
// ledger. Delivery is at-least-once, so crediting is guarded twice: a lookup
// on the payment reference and the unique index on stripe_payment_id.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	if s.webhookSecret != "" {
		if signatureHeader == "" || !VerifySignature(payload, signatureHeader, s.webhookSecret) {
			return domain.ErrInvalidSignature
		}
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.ErrMalformedWebhook
	}

	if event.Type != "checkout.session.completed" {
		return nil
	}

	session := event.Data.Object
	userID := session.Metadata["user_id"]
	if userID == "" {
		userID = session.ClientRefID
	}
	tokens, _ := strconv.Atoi(session.Metadata["tokens"])

	if userID == "" || tokens == 0 {
		return domain.ErrMalformedWebhook
	}

	paymentRef := session.PaymentIntent
	if paymentRef == "" {
		paymentRef = session.ID
	}

	existing, err := s.tokenRepository.GetTransactionByPaymentID(ctx, paymentRef)
	if err != nil {
		return err
	}
	if existing != nil {
		// Re-delivered event; already credited.
		return nil
	}

	newBalance, err := s.creditTokens(ctx, userID, tokens)
	if err != nil {
		return err
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.ErrMalformedWebhook
	}

	transaction := &entities.TokenTransaction{
		ID:              uuid.New(),
		UserID:          userUUID,
		Type:            domain.TransactionPurchase,
		Amount:          tokens,
		BalanceAfter:    newBalance,
		Description:     fmt.Sprintf("Purchased %d tokens", tokens),
		StripePaymentID: &paymentRef,
		Timestamp: entities.Timestamp{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
	if err := s.tokenRepository.CreateTransaction(ctx, transaction); err != nil {
		return err
	}

	s.sendReceipt(ctx, userID, tokens, session.AmountTotal, session.Currency)

	return nil
}

func (s *paymentService) creditTokens(ctx context.Context, userID string, tokens int) (int, error) {
	for attempt := 0; attempt < creditRetries; attempt++ {
		balance, err := s.tokenRepository.GetOrCreateBalance(ctx, userID)
		if err != nil {
			return 0, err
		}

		update := token.BalanceUpdate{
			Balance:       balance.Balance + tokens,
			FreeScansUsed: balance.FreeScansUsed,
			GamePoints:    balance.GamePoints,
			TotalScans:    balance.TotalScans,
		}

		applied, err := s.tokenRepository.UpdateBalanceCAS(ctx, balance, update)
		if err != nil {
			return 0, err
		}
		if applied {
			return update.Balance, nil
		}
	}
	return 0, domain.ErrBalanceConflict
}

func (s *paymentService) sendReceipt(ctx context.Context, userID string, tokens int, amountPaid int64, currency string) {
	u, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		log.Printf("failed to load user %s for purchase receipt: %v", userID, err)
		return
	}
	if err := mailing.SendPurchaseReceipt(u.Email, tokens, amountPaid, currency); err != nil {
		log.Printf("failed to send purchase receipt to %s: %v", u.Email, err)
	}
}

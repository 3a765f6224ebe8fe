package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nocap-app/nocap-backend/domain"
	"github.com/nocap-app/nocap-backend/entities"
	"github.com/nocap-app/nocap-backend/pkg/token"
)

type fakeTokenRepository struct {
	balance       *entities.TokenBalance
	conflictsLeft int
	transactions  []*entities.TokenTransaction
}

func newFakeTokenRepository(userID uuid.UUID, balance int) *fakeTokenRepository {
	return &fakeTokenRepository{
		balance: &entities.TokenBalance{
			ID:      uuid.New(),
			UserID:  userID,
			Balance: balance,
		},
	}
}

func (f *fakeTokenRepository) GetOrCreateBalance(ctx context.Context, userID string) (*entities.TokenBalance, error) {
	snapshot := *f.balance
	return &snapshot, nil
}

func (f *fakeTokenRepository) GetBalance(ctx context.Context, userID string) (*entities.TokenBalance, error) {
	snapshot := *f.balance
	return &snapshot, nil
}

func (f *fakeTokenRepository) UpdateBalanceCAS(ctx context.Context, snapshot *entities.TokenBalance, update token.BalanceUpdate) (bool, error) {
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return false, nil
	}
	f.balance.Balance = update.Balance
	f.balance.FreeScansUsed = update.FreeScansUsed
	f.balance.GamePoints = update.GamePoints
	f.balance.TotalScans = update.TotalScans
	return true, nil
}

func (f *fakeTokenRepository) CreateTransaction(ctx context.Context, tx *entities.TokenTransaction) error {
	f.transactions = append(f.transactions, tx)
	return nil
}

func (f *fakeTokenRepository) GetTransactionByPaymentID(ctx context.Context, paymentID string) (*entities.TokenTransaction, error) {
	for _, tx := range f.transactions {
		if tx.StripePaymentID != nil && *tx.StripePaymentID == paymentID {
			return tx, nil
		}
	}
	return nil, nil
}

func (f *fakeTokenRepository) GetUserTransactions(ctx context.Context, userID string, page, limit int) ([]*entities.TokenTransaction, int64, error) {
	return f.transactions, int64(len(f.transactions)), nil
}

type fakeUserRepository struct{}

func (f *fakeUserRepository) CreateUser(ctx context.Context, user *entities.User) error {
	return nil
}

func (f *fakeUserRepository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func newTestService(tokenRepo token.TokenRepository, apiURL, webhookSecret string) *paymentService {
	return &paymentService{
		tokenRepository: tokenRepo,
		userRepository:  &fakeUserRepository{},
		httpClient:      &http.Client{Timeout: 5 * time.Second},
		apiURL:          apiURL,
		secretKey:       "sk_test",
		webhookSecret:   webhookSecret,
	}
}

func completedEvent(userID string, tokens int, paymentIntent string) []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":             "cs_test_1",
				"payment_intent": paymentIntent,
				"amount_total":   499,
				"currency":       "usd",
				"metadata": map[string]string{
					"user_id": userID,
					"tokens":  fmt.Sprintf("%d", tokens),
				},
			},
		},
	})
	return payload
}

func TestCreateCheckout(t *testing.T) {
	var gotForm map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_1","url":"https://checkout.stripe.com/pay/cs_test_1"}`)
	}))
	defer server.Close()

	userID := uuid.New().String()
	service := newTestService(newFakeTokenRepository(uuid.New(), 0), server.URL, "")

	resp, err := service.CreateCheckout(context.Background(), domain.CreateCheckoutRequest{PackageType: "medium"}, userID)
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_1", resp.URL)
	assert.Equal(t, "cs_test_1", resp.SessionID)

	assert.Equal(t, []string{"payment"}, gotForm["mode"])
	assert.Equal(t, []string{userID}, gotForm["client_reference_id"])
	assert.Equal(t, []string{userID}, gotForm["metadata[user_id]"])
	assert.Equal(t, []string{"3000"}, gotForm["metadata[tokens]"])
	assert.Equal(t, []string{"499"}, gotForm["line_items[0][price_data][unit_amount]"])
}

func TestCreateCheckoutUnknownPackage(t *testing.T) {
	service := newTestService(newFakeTokenRepository(uuid.New(), 0), "http://127.0.0.1:0", "")

	_, err := service.CreateCheckout(context.Background(), domain.CreateCheckoutRequest{PackageType: "jumbo"}, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrInvalidPackage)
}

func TestCreateCheckoutGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	service := newTestService(newFakeTokenRepository(uuid.New(), 0), server.URL, "")

	_, err := service.CreateCheckout(context.Background(), domain.CreateCheckoutRequest{PackageType: "small"}, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrCheckoutFailed)
}

func TestHandleWebhookCreditsTokens(t *testing.T) {
	userID := uuid.New()
	repo := newFakeTokenRepository(userID, 100)
	service := newTestService(repo, "", "")

	payload := completedEvent(userID.String(), 3000, "pi_123")
	require.NoError(t, service.HandleWebhook(context.Background(), payload, ""))

	assert.Equal(t, 3100, repo.balance.Balance)
	require.Len(t, repo.transactions, 1)
	tx := repo.transactions[0]
	assert.Equal(t, domain.TransactionPurchase, tx.Type)
	assert.Equal(t, 3000, tx.Amount)
	assert.Equal(t, 3100, tx.BalanceAfter)
	require.NotNil(t, tx.StripePaymentID)
	assert.Equal(t, "pi_123", *tx.StripePaymentID)
}

func TestHandleWebhookRedeliveryIsIdempotent(t *testing.T) {
	userID := uuid.New()
	repo := newFakeTokenRepository(userID, 0)
	service := newTestService(repo, "", "")

	payload := completedEvent(userID.String(), 500, "pi_once")
	require.NoError(t, service.HandleWebhook(context.Background(), payload, ""))
	require.NoError(t, service.HandleWebhook(context.Background(), payload, ""))

	assert.Equal(t, 500, repo.balance.Balance, "a re-delivered event must credit exactly once")
	assert.Len(t, repo.transactions, 1)
}

func TestHandleWebhookIgnoresOtherEventTypes(t *testing.T) {
	repo := newFakeTokenRepository(uuid.New(), 0)
	service := newTestService(repo, "", "")

	payload := []byte(`{"type":"payment_intent.created","data":{"object":{}}}`)
	require.NoError(t, service.HandleWebhook(context.Background(), payload, ""))

	assert.Equal(t, 0, repo.balance.Balance)
	assert.Empty(t, repo.transactions)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	userID := uuid.New()
	repo := newFakeTokenRepository(userID, 0)
	service := newTestService(repo, "", "whsec_test")

	payload := completedEvent(userID.String(), 500, "pi_bad_sig")

	err := service.HandleWebhook(context.Background(), payload, "")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	err = service.HandleWebhook(context.Background(), payload, "t=1693226400,v1=deadbeef")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	assert.Equal(t, 0, repo.balance.Balance)
}

func TestHandleWebhookAcceptsSignedPayload(t *testing.T) {
	userID := uuid.New()
	repo := newFakeTokenRepository(userID, 0)
	service := newTestService(repo, "", "whsec_test")

	payload := completedEvent(userID.String(), 500, "pi_signed")
	timestamp := "1693226400"
	header := fmt.Sprintf("t=%s,v1=%s", timestamp, signPayload(payload, timestamp, "whsec_test"))

	require.NoError(t, service.HandleWebhook(context.Background(), payload, header))
	assert.Equal(t, 500, repo.balance.Balance)
}

func TestHandleWebhookMissingMetadata(t *testing.T) {
	repo := newFakeTokenRepository(uuid.New(), 0)
	service := newTestService(repo, "", "")

	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{}}}}`)
	err := service.HandleWebhook(context.Background(), payload, "")
	assert.ErrorIs(t, err, domain.ErrMalformedWebhook)
}

func TestHandleWebhookGarbagePayload(t *testing.T) {
	service := newTestService(newFakeTokenRepository(uuid.New(), 0), "", "")

	err := service.HandleWebhook(context.Background(), []byte("not json"), "")
	assert.ErrorIs(t, err, domain.ErrMalformedWebhook)
}

func TestHandleWebhookFallsBackToSessionID(t *testing.T) {
	userID := uuid.New()
	repo := newFakeTokenRepository(userID, 0)
	service := newTestService(repo, "", "")

	payload, _ := json.Marshal(map[string]interface{}{
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id": "cs_no_intent",
				"metadata": map[string]string{
					"user_id": userID.String(),
					"tokens":  "500",
				},
			},
		},
	})

	require.NoError(t, service.HandleWebhook(context.Background(), payload, ""))
	require.Len(t, repo.transactions, 1)
	require.NotNil(t, repo.transactions[0].StripePaymentID)
	assert.Equal(t, "cs_no_intent", *repo.transactions[0].StripePaymentID)
}

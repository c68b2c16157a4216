package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"rps_wallet/internal/cashier"
	"rps_wallet/internal/config"
	"rps_wallet/internal/db"
	"rps_wallet/internal/domain"
	"rps_wallet/internal/game"
	"rps_wallet/internal/ledger"
	"rps_wallet/internal/payment"
	paymentmock "rps_wallet/internal/payment/mock"
	"rps_wallet/internal/settlement"
	"rps_wallet/internal/testutil"
	"rps_wallet/internal/utils"
)

// alwaysScissors makes the house predictable
type alwaysScissors struct{}

func (alwaysScissors) Next() game.Move { return game.Scissors }

type APITestSuite struct {
	suite.Suite
	db        *gorm.DB
	cfg       *config.Config
	processor *paymentmock.Processor
	ledger    *ledger.Ledger
	router    *gin.Engine
	player    *domain.User
	wallet    *domain.Wallet
	token     string
}

func TestAPISuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	s.db = testutil.OpenDB(s.T())
	s.cfg = &config.Config{
		JWTSecret:        "jwt-secret",
		ActivationSecret: "activation-secret",
		AccessTokenTTL:   time.Hour,
		HouseUserID:      1,
		HouseSeedBalance: decimal.NewFromInt(10000),
		Currency:         "USD",
		MaxRounds:        5,
		WithdrawalFee:    decimal.NewFromInt(10),
		PlayRateLimit:    60,
		WithdrawLimit:    5,
	}
	s.Require().NoError(db.EnsureHouseAccount(s.db, s.cfg))

	s.processor = &paymentmock.Processor{}
	s.processor.Test(s.T())
	s.ledger = ledger.New(s.db)
	s.router = NewRouter(Deps{
		Config:  s.cfg,
		DB:      s.db,
		Ledger:  s.ledger,
		Engine:  settlement.NewEngine(s.db, s.ledger, s.cfg.HouseUserID, settlement.WithMoveSource(alwaysScissors{}), settlement.WithMaxRounds(s.cfg.MaxRounds)),
		Cashier: cashier.New(s.db, s.ledger, s.processor, cashier.Config{Currency: "USD", WithdrawalFee: s.cfg.WithdrawalFee}, nil),
	})

	s.player, s.wallet = testutil.CreatePlayer(s.T(), s.db, "alice", 100)
	s.token = s.tokenFor(s.player.ID)
}

func (s *APITestSuite) TearDownTest() {
	s.processor.AssertExpectations(s.T())
}

func (s *APITestSuite) tokenFor(userID uint) string {
	token, err := utils.GenerateJWT(userID, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	s.Require().NoError(err)
	return token
}

func (s *APITestSuite) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (s *APITestSuite) TestAccountLifecycle() {
	w, body := s.do(http.MethodPost, "/user/register", "", gin.H{"name": "bob", "email": "Bob@Example.com", "password": "secret1"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	token, code := body["activation_token"].(string), body["activation_code"].(string)

	w, _ = s.do(http.MethodPost, "/user/activate", "", gin.H{"activation_token": token, "activation_code": "bad"})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/user/activate", "", gin.H{"activation_token": token, "activation_code": code})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.do(http.MethodPost, "/user/activate", "", gin.H{"activation_token": token, "activation_code": code})
	s.Equal(http.StatusConflict, w.Code, "activating twice")

	w, _ = s.do(http.MethodPost, "/user/register", "", gin.H{"name": "bob", "email": "bob@example.com", "password": "secret1"})
	s.Equal(http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPost, "/user/login", "", gin.H{"email": "bob@example.com", "password": "wrong"})
	s.Equal(http.StatusUnauthorized, w.Code)

	w, body = s.do(http.MethodPost, "/user/login", "", gin.H{"email": "bob@example.com", "password": "secret1"})
	s.Require().Equal(http.StatusOK, w.Code)
	access := body["token"].(string)
	s.EqualValues(3600, body["expires_in"])

	w, body = s.do(http.MethodGet, "/user/me", access, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	user := body["user"].(map[string]any)
	s.Equal("bob@example.com", user["email"])
	s.NotNil(user["wallet"])
	s.NotContains(w.Body.String(), "password")
}

func (s *APITestSuite) TestRegisterValidation() {
	testCases := []struct {
		name string
		body gin.H
	}{
		{name: "Missing name", body: gin.H{"email": "x@example.com", "password": "secret1"}},
		{name: "Bad email", body: gin.H{"name": "x", "email": "nope", "password": "secret1"}},
		{name: "Short password", body: gin.H{"name": "x", "email": "x@example.com", "password": "123"}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			w, body := s.do(http.MethodPost, "/user/register", "", tc.body)
			s.Equal(http.StatusBadRequest, w.Code)
			s.Equal(string(domain.KindValidation), body["kind"])
		})
	}
}

func (s *APITestSuite) TestHouseCannotLogIn() {
	var house domain.User
	s.Require().NoError(s.db.First(&house, s.cfg.HouseUserID).Error)

	w, _ := s.do(http.MethodPost, "/user/login", "", gin.H{"email": house.Email, "password": "!"})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestProtectedRoutesRequireToken() {
	for _, path := range []string{"/wallet", "/wallet/transactions", "/game", "/user/me", "/admin/users"} {
		s.Run(path, func() {
			w, _ := s.do(http.MethodGet, path, "", nil)
			s.Equal(http.StatusUnauthorized, w.Code)
		})
	}
	w, _ := s.do(http.MethodGet, "/wallet", "garbage", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestGetWallet() {
	w, body := s.do(http.MethodGet, "/wallet", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	wallet := body["wallet"].(map[string]any)
	s.Equal("100", wallet["available_balance"])
	s.Equal(false, body["cached"])
}

func (s *APITestSuite) TestGameFlow() {
	w, body := s.do(http.MethodPost, "/game", s.token, gin.H{"bet_amount": "30", "rounds": 2})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	gameID := body["game"].(map[string]any)["id"].(float64)

	w, body = s.do(http.MethodPost, "/game", s.token, gin.H{"bet_amount": "10", "rounds": 1})
	s.Equal(http.StatusConflict, w.Code)
	s.Equal(string(domain.KindConflict), body["kind"])

	w, body = s.do(http.MethodPost, "/game/play", s.token, gin.H{"game_id": gameID, "move": "lizard"})
	s.Equal(http.StatusBadRequest, w.Code)

	w, body = s.do(http.MethodPost, "/game/play", s.token, gin.H{"game_id": gameID, "move": "rock"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("alice", body["round"].(map[string]any)["winner"])

	w, body = s.do(http.MethodPost, "/game/play", s.token, gin.H{"game_id": gameID, "move": "rock"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(string(domain.GameCompleted), body["game"].(map[string]any)["status"])

	wallet := testutil.ReloadWallet(s.T(), s.db, s.wallet.ID)
	s.True(decimal.NewFromInt(130).Equal(wallet.AvailableBalance))
	s.True(decimal.NewFromInt(130).Equal(wallet.Balance))

	w, body = s.do(http.MethodGet, "/game", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(body["games"], 1)

	w, body = s.do(http.MethodGet, "/wallet/transactions", s.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.EqualValues(1, body["total"])
}

func (s *APITestSuite) TestGameErrors() {
	w, body := s.do(http.MethodPost, "/game", s.token, gin.H{"bet_amount": "500", "rounds": 1})
	s.Equal(http.StatusPaymentRequired, w.Code)
	s.Equal(string(domain.KindInsufficientBalance), body["kind"])

	w, _ = s.do(http.MethodPost, "/game", s.token, gin.H{"bet_amount": "10", "rounds": 99})
	s.Equal(http.StatusBadRequest, w.Code)

	w, body = s.do(http.MethodPost, "/game/play", s.token, gin.H{"game_id": 12345, "move": "rock"})
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("no active game found, please create a new game", body["error"])
}

func (s *APITestSuite) TestDepositAndCallbacks() {
	s.processor.On("CreatePayment", mock.Anything, mock.Anything, "USD").
		Return(&payment.Payment{ID: "PAY-9", Links: []payment.Link{{Href: "https://pay.example/ok", Rel: "approval_url"}}}, nil).Once()
	s.processor.On("ExecutePayment", mock.Anything, "PAY-9", "P-1").
		Return(&payment.Execution{PayerEmail: "alice@pay.example", Fee: decimal.NewFromInt(1)}, nil).Once()

	w, body := s.do(http.MethodPost, "/wallet/deposit", s.token, gin.H{"amount": 25, "comment": "top up"})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal("https://pay.example/ok", body["approval_url"])

	w, _ = s.do(http.MethodPost, "/wallet/deposit", s.token, gin.H{"amount": -5})
	s.Equal(http.StatusBadRequest, w.Code)

	w, body = s.do(http.MethodGet, "/wallet/success?paymentId=PAY-9&PayerID=P-1", "", nil)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(string(domain.StatusSuccess), body["transaction"].(map[string]any)["status"])

	wallet := testutil.ReloadWallet(s.T(), s.db, s.wallet.ID)
	s.True(decimal.NewFromInt(124).Equal(wallet.AvailableBalance))

	w, _ = s.do(http.MethodGet, "/wallet/cancel?paymentId=PAY-9", "", nil)
	s.Equal(http.StatusConflict, w.Code, "a settled deposit cannot be cancelled")
}

func (s *APITestSuite) TestWithdrawWithoutPayoutDestination() {
	w, body := s.do(http.MethodPost, "/wallet/withdraw", s.token, gin.H{"amount": "20"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(string(domain.KindValidation), body["kind"])
}

func (s *APITestSuite) TestAdminRoutes() {
	w, _ := s.do(http.MethodGet, "/admin/users", s.token, nil)
	s.Equal(http.StatusForbidden, w.Code)

	admin, _ := testutil.CreatePlayer(s.T(), s.db, "root", 0)
	s.Require().NoError(s.db.Model(admin).Update("role", domain.RoleAdmin).Error)
	adminToken := s.tokenFor(admin.ID)

	w, body := s.do(http.MethodGet, "/admin/users", adminToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.EqualValues(3, body["total"])

	res, err := s.ledger.Create(context.Background(), ledger.Entry{
		Mode:          domain.ModeDeposit,
		WalletID:      s.wallet.ID,
		InvoiceNo:     "PAY-stuck",
		Amount:        decimal.NewFromInt(40),
		RecipientType: domain.RecipientExternal,
	})
	s.Require().NoError(err)

	w, body = s.do(http.MethodGet, "/admin/transactions?status=pending", adminToken, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.EqualValues(1, body["total"])

	path := "/admin/transactions/" + jsonID(res.Transaction.ID) + "/status"
	w, body = s.do(http.MethodPatch, path, adminToken, gin.H{"status": "failed"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal(true, body["changed"])

	w, _ = s.do(http.MethodPatch, path, adminToken, gin.H{"status": "success"})
	s.Equal(http.StatusConflict, w.Code)

	w, _ = s.do(http.MethodPatch, path, adminToken, gin.H{"status": "bogus"})
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPatch, "/admin/transactions/999/status", adminToken, gin.H{"status": "failed"})
	s.Equal(http.StatusNotFound, w.Code)

	wallet := testutil.ReloadWallet(s.T(), s.db, s.wallet.ID)
	s.True(decimal.NewFromInt(100).Equal(wallet.Balance))
	s.True(decimal.Zero.Equal(wallet.PendingDeposit))
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}

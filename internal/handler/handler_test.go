package handler

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/ticket-marketplace/internal/config"
	"github.com/iliyamo/ticket-marketplace/internal/model"
	"github.com/iliyamo/ticket-marketplace/internal/platform"
	"github.com/iliyamo/ticket-marketplace/internal/signature"
	"github.com/iliyamo/ticket-marketplace/internal/utils"
)

func TestFailMapsKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrInvalidTierSpec, http.StatusBadRequest, "invalid_tier_spec"},
		{fmt.Errorf("buy: %w", model.ErrUnauthorizedSigner), http.StatusForbidden, "unauthorized_signer"},
		{model.ErrAlreadyUsed, http.StatusConflict, "already_used"},
		{model.ErrWithdrawLimitExceeded, http.StatusUnprocessableEntity, "withdraw_limit_exceeded"},
		{model.ErrTransferFailed, http.StatusPaymentRequired, "transfer_failed"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, fail(c, zap.NewNop(), tt.err))
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error"])
			assert.NotContains(t, body["message"], "disk")
		})
	}
}

func TestWalletLogin(t *testing.T) {
	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	ownerAddr := crypto.PubkeyToAddress(ownerKey.PublicKey)
	userAddr := crypto.PubkeyToAddress(userKey.PublicKey)

	p, err := platform.New(platform.Options{Address: common.HexToAddress("0x9a"), Owner: ownerAddr})
	require.NoError(t, err)
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))
	h := &AuthHandler{
		Cfg:      config.Config{JWTSecret: "secret", AccessTTLMin: 60, LoginMaxAge: 5 * time.Minute},
		Platform: p,
		Clock:    mock,
		Log:      zap.NewNop(),
	}
	e := echo.New()
	e.POST("/v1/auth/wallet", h.WalletLogin)

	login := func(addr common.Address, msg string, key *ecdsa.PrivateKey) *httptest.ResponseRecorder {
		sig, err := signature.SignText([]byte(msg), key)
		require.NoError(t, err)
		body := fmt.Sprintf(`{"address":%q,"message":%q,"signature":%q}`, addr.Hex(), msg, hexutil.Encode(sig))
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/wallet", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}
	now := mock.Now()

	t.Run("owner gets admin", func(t *testing.T) {
		rec := login(ownerAddr, utils.LoginMessage(ownerAddr, now), ownerKey)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp walletLoginResp
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, utils.RoleAdmin, resp.Role)

		claims, sub, err := utils.ParseAccessToken("secret", resp.Token, mock.Now())
		require.NoError(t, err)
		assert.Equal(t, ownerAddr, sub)
		assert.Equal(t, utils.RoleAdmin, claims.Role)
	})

	t.Run("user gets user", func(t *testing.T) {
		rec := login(userAddr, utils.LoginMessage(userAddr, now.Add(-time.Minute)), userKey)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"role":"USER"`)
	})

	t.Run("stale message", func(t *testing.T) {
		rec := login(userAddr, utils.LoginMessage(userAddr, now.Add(-time.Hour)), userKey)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("signed by someone else", func(t *testing.T) {
		rec := login(ownerAddr, utils.LoginMessage(ownerAddr, now), userKey)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("message for another address", func(t *testing.T) {
		rec := login(userAddr, utils.LoginMessage(ownerAddr, now), userKey)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed message", func(t *testing.T) {
		rec := login(userAddr, "hello", userKey)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	webhookapp "github.com/crmsync/backend/internal/application/webhooks"
	"github.com/crmsync/backend/internal/domain/guard"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubChangeApplier records which remote changes were handed off and
// answers with a fixed apply outcome.
type stubChangeApplier struct {
	applyResult bool
	dealIDs     []string
	contactIDs  []string
}

func (s *stubChangeApplier) ApplyDealChange(_ context.Context, remoteID string, _ guard.Source) bool {
	s.dealIDs = append(s.dealIDs, remoteID)
	return s.applyResult
}

func (s *stubChangeApplier) ApplyContactChange(_ context.Context, remoteID string, _ guard.Source) bool {
	s.contactIDs = append(s.contactIDs, remoteID)
	return s.applyResult
}

func newWebhookTestHandler(applier *stubChangeApplier, secret string) *WebhookHandler {
	svc := webhookapp.NewWebhookService(webhookapp.WebhookServiceConfig{
		Sync:   applier,
		Secret: secret,
		Logger: zap.NewNop(),
	})
	return NewWebhookHandler(svc, zap.NewNop())
}

func postWebhook(t *testing.T, handle gin.HandlerFunc, body []byte, contentType, signature string) (*httptest.ResponseRecorder, WebhookResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhook/deal", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", contentType)
	if signature != "" {
		c.Request.Header.Set("X-Signature", signature)
	}

	handle(c)

	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestWebhookHandler_HandleDealWebhook_Applied(t *testing.T) {
	applier := &stubChangeApplier{applyResult: true}
	h := newWebhookTestHandler(applier, "")

	body := []byte(`{"event":"ONCRMDEALUPDATE","data":{"FIELDS":{"ID":"55"}}}`)
	w, resp := postWebhook(t, h.HandleDealWebhook, body, "application/json", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.True(t, resp.Processed)
	assert.Equal(t, "ONCRMDEALUPDATE", resp.EventNormalized)
	assert.Equal(t, "55", resp.EntityID)
	assert.Equal(t, []string{"55"}, applier.dealIDs)
}

func TestWebhookHandler_HandleDealWebhook_FormEncoded(t *testing.T) {
	applier := &stubChangeApplier{applyResult: true}
	h := newWebhookTestHandler(applier, "")

	body := []byte("event=ONCRMDEALADD&data[FIELDS][ID]=77")
	w, resp := postWebhook(t, h.HandleDealWebhook, body, "application/x-www-form-urlencoded", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Processed)
	assert.Equal(t, "77", resp.EntityID)
	assert.Equal(t, []string{"77"}, applier.dealIDs)
}

func TestWebhookHandler_HandleDealWebhook_SkippedEvent(t *testing.T) {
	applier := &stubChangeApplier{applyResult: true}
	h := newWebhookTestHandler(applier, "")

	// Contact event delivered to the deal endpoint is acknowledged but
	// never handed to the orchestrator.
	body := []byte(`{"event":"ONCRMCONTACTUPDATE","data":{"FIELDS":{"ID":"9"}}}`)
	w, resp := postWebhook(t, h.HandleDealWebhook, body, "application/json", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.False(t, resp.Processed)
	assert.NotEmpty(t, resp.Message)
	assert.Empty(t, applier.dealIDs)
}

func TestWebhookHandler_HandleDealWebhook_NotApplied(t *testing.T) {
	applier := &stubChangeApplier{applyResult: false}
	h := newWebhookTestHandler(applier, "")

	body := []byte(`{"event":"ONCRMDEALUPDATE","data":{"FIELDS":{"ID":"55"}}}`)
	w, resp := postWebhook(t, h.HandleDealWebhook, body, "application/json", "")

	// Loop prevention and unlinked entities still acknowledge with 200
	// so the CRM does not retry.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.False(t, resp.Processed)
	assert.Equal(t, "change not applied", resp.Message)
}

func TestWebhookHandler_HandleDealWebhook_MissingEntityID(t *testing.T) {
	h := newWebhookTestHandler(&stubChangeApplier{}, "")

	body := []byte(`{"event":"ONCRMDEALUPDATE"}`)
	w, resp := postWebhook(t, h.HandleDealWebhook, body, "application/json", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "malformed payload", resp.Message)
}

func TestWebhookHandler_HandleDealWebhook_Signature(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"event":"ONCRMDEALUPDATE","data":{"FIELDS":{"ID":"55"}}}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	t.Run("valid signature accepted", func(t *testing.T) {
		applier := &stubChangeApplier{applyResult: true}
		h := newWebhookTestHandler(applier, secret)

		w, resp := postWebhook(t, h.HandleDealWebhook, body, "application/json", valid)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Processed)
	})

	t.Run("invalid signature rejected", func(t *testing.T) {
		applier := &stubChangeApplier{applyResult: true}
		h := newWebhookTestHandler(applier, secret)

		w, resp := postWebhook(t, h.HandleDealWebhook, body, "application/json", "deadbeef")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, resp.Success)
		assert.Empty(t, applier.dealIDs)
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		h := newWebhookTestHandler(&stubChangeApplier{}, secret)

		w, _ := postWebhook(t, h.HandleDealWebhook, body, "application/json", "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestWebhookHandler_HandleContactWebhook_Applied(t *testing.T) {
	applier := &stubChangeApplier{applyResult: true}
	h := newWebhookTestHandler(applier, "")

	body := []byte(`{"event":"ONCRMCONTACTADD","data":{"FIELDS":{"ID":"301"}}}`)
	w, resp := postWebhook(t, h.HandleContactWebhook, body, "application/json", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Processed)
	assert.Equal(t, "ONCRMCONTACTADD", resp.EventNormalized)
	assert.Equal(t, []string{"301"}, applier.contactIDs)
}

func TestWebhookHandler_PayloadTooLarge(t *testing.T) {
	h := newWebhookTestHandler(&stubChangeApplier{}, "")

	body := []byte(strings.Repeat("a", maxWebhookPayloadSize+1))
	w, resp := postWebhook(t, h.HandleDealWebhook, body, "application/json", "")

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "payload too large", resp.Message)
}

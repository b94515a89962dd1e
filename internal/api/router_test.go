package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rulecard-service/internal/api"
	"rulecard-service/internal/config"
	"rulecard-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
	Msg  string          `json:"msg"`
}

type ruleSettings struct {
	StartHand int `json:"startHand"`
}

type sessionState struct {
	Phase          string       `json:"phase"`
	Hand           []any        `json:"hand"`
	Selected       []int        `json:"selected"`
	Settings       ruleSettings `json:"settings"`
	AllowedActions []string     `json:"allowedActions"`
}

type createdSession struct {
	SessionID string       `json:"sessionId"`
	Token     string       `json:"token"`
	State     sessionState `json:"state"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.GlobalConfig = &config.Config{
		JWT:   config.JWTConfig{Secret: "router-secret", Expire: 1},
		Agent: config.AgentConfig{Endpoint: "http://127.0.0.1:0", Model: "m", TimeoutSeconds: 1, MaxConcurrent: 1},
		Rules: config.RulesConfig{StartHand: 5},
	}
	t.Cleanup(func() { config.GlobalConfig = nil })

	services := service.NewContainer(nil, nil)
	t.Cleanup(func() { services.Shutdown(context.Background()) })

	r := gin.New()
	api.RegisterRoutes(r, services)
	return r
}

func do(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, r *gin.Engine, body interface{}) createdSession {
	t.Helper()
	w := do(r, http.MethodPost, "/v1/sessions", "", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var created createdSession
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.SessionID)
	require.NotEmpty(t, created.Token)
	return created
}

func TestPing(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestCreateSessionWithoutBody(t *testing.T) {
	r := newTestRouter(t)
	created := createSession(t, r, nil)

	assert.Equal(t, "awaiting_selection", created.State.Phase)
	assert.Len(t, created.State.Hand, 5)
	assert.Equal(t, []string{"select"}, created.State.AllowedActions)
}

func TestCreateSessionWithRuleOverrides(t *testing.T) {
	r := newTestRouter(t)
	created := createSession(t, r, gin.H{"rules": gin.H{"startHand": 3, "draw": 1}})

	assert.Len(t, created.State.Hand, 3)
	assert.Equal(t, 3, created.State.Settings.StartHand)
}

func TestCreateSessionRejectsBadRules(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodPost, "/v1/sessions", "", gin.H{"rules": gin.H{"startHand": "many"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSessionValidatesRuleOverrides(t *testing.T) {
	r := newTestRouter(t)
	cases := []struct {
		name  string
		rules gin.H
		msg   string
	}{
		{"points end without limit", gin.H{"pointsEnabled": true, "pointsEnd": true}, "pointLimit"},
		{"negative draw", gin.H{"draw": -1}, "draw"},
		{"negative max hand", gin.H{"maxHand": -3}, "maxHand"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/v1/sessions", "", gin.H{"rules": tc.rules})
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Contains(t, env.Msg, "invalid rule settings")
			assert.Contains(t, env.Msg, tc.msg)
		})
	}
}

func TestSessionRoutesRequireMatchingToken(t *testing.T) {
	r := newTestRouter(t)
	first := createSession(t, r, nil)
	second := createSession(t, r, nil)

	w := do(r, http.MethodGet, "/v1/sessions/"+first.SessionID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/v1/sessions/"+first.SessionID, second.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/v1/sessions/"+first.SessionID, "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/v1/sessions/"+first.SessionID, first.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnauthorizedUsesResponseEnvelope(t *testing.T) {
	r := newTestRouter(t)
	created := createSession(t, r, nil)

	for _, token := range []string{"", "garbage"} {
		w := do(r, http.MethodGet, "/v1/sessions/"+created.SessionID, token, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
		assert.Equal(t, http.StatusUnauthorized, env.Code)
		assert.Contains(t, env.Msg, "unauthorized")
	}
}

func TestSelectAndEndTurn(t *testing.T) {
	r := newTestRouter(t)
	created := createSession(t, r, nil)
	base := "/v1/sessions/" + created.SessionID

	w := do(r, http.MethodPost, base+"/select", created.Token, gin.H{"index": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"selected":[1]`)

	w = do(r, http.MethodPost, base+"/select", created.Token, gin.H{"index": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, base+"/select", created.Token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, base+"/joker", created.Token, gin.H{"value": 3})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, base+"/end-turn", created.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// No API key is configured, so the agent turn fails straight away and
	// control returns to the human.
	require.Eventually(t, func() bool {
		w := do(r, http.MethodGet, base, created.Token, nil)
		return bytes.Contains(w.Body.Bytes(), []byte(`"turn":1`)) &&
			bytes.Contains(w.Body.Bytes(), []byte(`"phase":"awaiting_selection"`))
	}, 2*time.Second, 10*time.Millisecond)

	w = do(r, http.MethodGet, base+"/history", created.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"turns":[]`)
}

func TestCloseSession(t *testing.T) {
	r := newTestRouter(t)
	created := createSession(t, r, nil)
	base := "/v1/sessions/" + created.SessionID

	w := do(r, http.MethodDelete, base, created.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, base, created.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triggerBody(t *testing.T, method, url, body string, b64 bool) *bytes.Buffer {
	t.Helper()
	var req HTTPTriggerRequest
	req.Data.Req.Method = method
	req.Data.Req.URL = url
	req.Data.Req.Body = body
	req.Data.Req.IsBase64Encoded = b64
	req.Data.Req.Headers = map[string][]string{"Content-Type": {"application/json"}}
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewBuffer(raw)
}

func TestHandleHttpTrigger_ForwardsRequest(t *testing.T) {
	var gotBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/accounts", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		WriteJSON(w, http.StatusCreated, map[string]string{"id": "a1"})
	})

	deps := &Dependencies{}
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"name":"Checking"}`))
	req := httptest.NewRequest(http.MethodPost, "/HttpTrigger", triggerBody(t, http.MethodPost, "http://localhost:7071/api/accounts", encoded, true))
	w := httptest.NewRecorder()

	deps.HandleHttpTrigger(next)(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"name":"Checking"}`, gotBody)

	var resp HTTPTriggerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusCreated, resp.Outputs.Res.StatusCode)
	assert.JSONEq(t, `{"id":"a1"}`, resp.Outputs.Res.Body)
	assert.Equal(t, "application/json", resp.Outputs.Res.Headers["Content-Type"])
}

func TestHandleHttpTrigger_PlainBody(t *testing.T) {
	var gotBody string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	})

	deps := &Dependencies{}
	req := httptest.NewRequest(http.MethodPost, "/HttpTrigger", triggerBody(t, http.MethodPatch, "http://localhost:7071/api/categories?id=c1", `{"budget":5}`, false))
	w := httptest.NewRecorder()

	deps.HandleHttpTrigger(next)(w, req)

	assert.Equal(t, `{"budget":5}`, gotBody)
}

func TestHandleHttpTrigger_InvalidPayload(t *testing.T) {
	deps := &Dependencies{}
	w := httptest.NewRecorder()
	deps.HandleHttpTrigger(http.NotFoundHandler())(w, httptest.NewRequest(http.MethodPost, "/HttpTrigger", bytes.NewBufferString("nope")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHttpTrigger_QueryFromMap(t *testing.T) {
	var gotID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.URL.Query().Get("id")
	})

	var req HTTPTriggerRequest
	req.Data.Req.Method = http.MethodGet
	req.Data.Req.URL = "http://localhost:7071/api/accounts"
	req.Data.Req.Query = map[string]string{"id": "a1"}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	(&Dependencies{}).HandleHttpTrigger(next)(w, httptest.NewRequest(http.MethodPost, "/HttpTrigger", bytes.NewBuffer(raw)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a1", gotID)
}

func TestHandleHttpTrigger_RejectsSelfTarget(t *testing.T) {
	w := httptest.NewRecorder()
	body := triggerBody(t, http.MethodPost, "http://localhost:7071/HttpTrigger", "", false)
	(&Dependencies{}).HandleHttpTrigger(http.NotFoundHandler())(w, httptest.NewRequest(http.MethodPost, "/HttpTrigger", body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerReq_DecodedBody(t *testing.T) {
	csv := "Date,Type,Amount\n2025-01-02,income,10\n"
	tests := []struct {
		name    string
		req     triggerReq
		want    string
		wantErr bool
	}{
		{name: "empty", req: triggerReq{}, want: ""},
		{name: "json kept", req: triggerReq{Body: `{"name":"x"}`}, want: `{"name":"x"}`},
		{name: "unflagged base64", req: triggerReq{Body: base64.StdEncoding.EncodeToString([]byte(csv))}, want: csv},
		{name: "plain text", req: triggerReq{Body: "not base64!"}, want: "not base64!"},
		{name: "flagged garbage", req: triggerReq{Body: "%%%", IsBase64Encoded: true}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.decodedBody()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

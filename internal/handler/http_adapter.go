package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
)

const triggerPath = "/HttpTrigger"

// HTTPTriggerRequest is the invocation payload the Functions host posts for
// an HTTP trigger when request forwarding is disabled.
type HTTPTriggerRequest struct {
	Data struct {
		Req triggerReq `json:"req"`
	} `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

type triggerReq struct {
	URL             string              `json:"Url"`
	Method          string              `json:"Method"`
	Query           map[string]string   `json:"Query"`
	Headers         map[string][]string `json:"Headers"`
	Params          map[string]string   `json:"Params"`
	Body            string              `json:"Body"`
	IsBase64Encoded bool                `json:"isBase64Encoded"`
}

// HTTPTriggerResponse is the invocation result returned to the host.
type HTTPTriggerResponse struct {
	Outputs struct {
		Res struct {
			StatusCode int               `json:"statusCode"`
			Headers    map[string]string `json:"headers"`
			Body       string            `json:"body"`
		} `json:"res"`
	} `json:"Outputs"`
	Logs        []string `json:"Logs,omitempty"`
	ReturnValue any      `json:"ReturnValue,omitempty"`
}

// decodedBody returns the wrapped request body. Some hosts send base64
// without setting isBase64Encoded, so unflagged bodies that are not JSON
// are decoded when they parse cleanly.
func (t triggerReq) decodedBody() ([]byte, error) {
	if t.Body == "" {
		return nil, nil
	}
	if t.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(t.Body)
	}
	if trimmed := strings.TrimSpace(t.Body); strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return []byte(t.Body), nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(t.Body); err == nil {
		return decoded, nil
	}
	return []byte(t.Body), nil
}

// target resolves the wrapped URL, filling in the query from the Query map
// when the host left it off the URL.
func (t triggerReq) target() (*url.URL, error) {
	u, err := url.Parse(t.URL)
	if err != nil {
		return nil, err
	}
	if u.RawQuery == "" && len(t.Query) > 0 {
		q := url.Values{}
		for k, v := range t.Query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	if u.Path == triggerPath {
		return nil, errors.New("request targets the trigger adapter itself")
	}
	return u, nil
}

// HandleHttpTrigger unwraps a host invocation, serves it through next
// (usually the ServeMux) and wraps the recorded response.
func (d *Dependencies) HandleHttpTrigger(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var invokeReq HTTPTriggerRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 16<<20)).Decode(&invokeReq); err != nil {
			slog.Error("failed to decode HTTP trigger request", "error", err)
			http.Error(w, "Failed to unmarshal request", http.StatusBadRequest)
			return
		}
		wrapped := invokeReq.Data.Req

		body, err := wrapped.decodedBody()
		if err != nil {
			slog.Warn("body flagged as base64 but failed to decode", "error", err)
			http.Error(w, "Invalid base64 body", http.StatusBadRequest)
			return
		}
		target, err := wrapped.target()
		if err != nil {
			slog.Warn("invalid wrapped url", "url", wrapped.URL, "error", err)
			http.Error(w, "Invalid request url", http.StatusBadRequest)
			return
		}

		inner, err := http.NewRequestWithContext(r.Context(), wrapped.Method, target.String(), bytes.NewReader(body))
		if err != nil {
			slog.Error("failed to create internal request", "error", err)
			http.Error(w, "Failed to create internal request", http.StatusInternalServerError)
			return
		}
		for k, vals := range wrapped.Headers {
			for _, v := range vals {
				inner.Header.Add(k, v)
			}
		}
		slog.Debug("serving wrapped request", "method", inner.Method, "path", inner.URL.Path, "body_bytes", len(body))

		rec := httptest.NewRecorder()
		next.ServeHTTP(rec, inner)
		result := rec.Result()
		respBody, _ := io.ReadAll(result.Body)
		result.Body.Close()

		var resp HTTPTriggerResponse
		resp.Outputs.Res.StatusCode = result.StatusCode
		resp.Outputs.Res.Headers = make(map[string]string, len(result.Header))
		for k, vals := range result.Header {
			resp.Outputs.Res.Headers[k] = strings.Join(vals, ", ")
		}
		resp.Outputs.Res.Body = string(respBody)

		WriteJSON(w, http.StatusOK, resp)
	}
}

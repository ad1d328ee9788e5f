package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	githubctrl "github.com/m-mizutani/drover/pkg/controller/github"
	controller "github.com/m-mizutani/drover/pkg/controller/http"
	"github.com/m-mizutani/drover/pkg/domain/model"
	"github.com/m-mizutani/drover/pkg/domain/types"
)

// mockStarter records release triggers for testing
type mockStarter struct {
	calls []model.BumpFragment
	err   error
}

func (m *mockStarter) StartRelease(ctx context.Context, fragment model.BumpFragment) error {
	m.calls = append(m.calls, fragment)
	return m.err
}

// generateSignature generates HMAC-SHA256 signature for testing
func generateSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookHandler_SignatureVerification(t *testing.T) {
	secret := "test-secret"
	starter := &mockStarter{}
	handler := controller.NewWebhookHandler(secret, githubctrl.NewEventProcessor(starter))

	tests := []struct {
		name           string
		payload        string
		signature      string
		wantStatusCode int
	}{
		{
			name:           "Valid signature",
			payload:        `{"action":"release","branch":"main","repository":{"full_name":"m-mizutani/drover"},"sender":{"login":"testuser"}}`,
			signature:      "", // Will be generated
			wantStatusCode: http.StatusAccepted,
		},
		{
			name:           "Invalid signature",
			payload:        `{"action":"release"}`,
			signature:      "sha256=invalid",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "Missing signature",
			payload:        `{"action":"release"}`,
			signature:      "",
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(tt.payload)
			signature := tt.signature
			if signature == "" && tt.wantStatusCode == http.StatusAccepted {
				signature = generateSignature(secret, payload)
			}

			req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-GitHub-Event", "repository_dispatch")
			req.Header.Set("X-GitHub-Delivery", "test-delivery")
			req.Header.Set("X-Hub-Signature-256", signature)

			w := httptest.NewRecorder()
			handler.Handle(w, req)

			if w.Code != tt.wantStatusCode {
				t.Errorf("Handle() status = %v, want %v", w.Code, tt.wantStatusCode)
			}
		})
	}
}

func TestWebhookHandler_EventRouting(t *testing.T) {
	secret := "test-secret"

	tests := []struct {
		name           string
		eventType      string
		payload        map[string]interface{}
		starterErr     error
		wantStatusCode int
		wantStatus     string
		wantFragments  []model.BumpFragment
	}{
		{
			name:      "Release dispatch with bug fragment",
			eventType: "repository_dispatch",
			payload: map[string]interface{}{
				"action": "release",
				"branch": "main",
				"client_payload": map[string]interface{}{
					"fragment": "bug",
				},
				"repository": map[string]interface{}{
					"full_name": "m-mizutani/drover",
				},
				"sender": map[string]interface{}{
					"login": "testuser",
				},
			},
			wantStatusCode: http.StatusAccepted,
			wantStatus:     "accepted",
			wantFragments:  []model.BumpFragment{model.FragmentBug},
		},
		{
			name:      "Release dispatch without payload defaults to feature",
			eventType: "repository_dispatch",
			payload: map[string]interface{}{
				"action": "release",
				"repository": map[string]interface{}{
					"full_name": "m-mizutani/drover",
				},
				"sender": map[string]interface{}{
					"login": "testuser",
				},
			},
			wantStatusCode: http.StatusAccepted,
			wantStatus:     "accepted",
			wantFragments:  []model.BumpFragment{model.FragmentFeature},
		},
		{
			name:      "Dispatch of another type",
			eventType: "repository_dispatch",
			payload: map[string]interface{}{
				"action": "deploy",
				"repository": map[string]interface{}{
					"full_name": "m-mizutani/drover",
				},
				"sender": map[string]interface{}{
					"login": "testuser",
				},
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "ignored",
		},
		{
			name:      "Push event",
			eventType: "push",
			payload: map[string]interface{}{
				"ref": "refs/heads/main",
				"repository": map[string]interface{}{
					"full_name": "m-mizutani/drover",
				},
			},
			wantStatusCode: http.StatusOK,
			wantStatus:     "ignored",
		},
		{
			name:      "Release dispatch with invalid fragment",
			eventType: "repository_dispatch",
			payload: map[string]interface{}{
				"action": "release",
				"client_payload": map[string]interface{}{
					"fragment": "banana",
				},
				"repository": map[string]interface{}{
					"full_name": "m-mizutani/drover",
				},
				"sender": map[string]interface{}{
					"login": "testuser",
				},
			},
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:      "Release already running",
			eventType: "repository_dispatch",
			payload: map[string]interface{}{
				"action": "release",
				"repository": map[string]interface{}{
					"full_name": "m-mizutani/drover",
				},
				"sender": map[string]interface{}{
					"login": "testuser",
				},
			},
			starterErr:     types.ErrReleaseInFlight,
			wantStatusCode: http.StatusConflict,
			wantFragments:  []model.BumpFragment{model.FragmentFeature},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			starter := &mockStarter{err: tt.starterErr}
			handler := controller.NewWebhookHandler(secret, githubctrl.NewEventProcessor(starter))

			payloadBytes, _ := json.Marshal(tt.payload)
			signature := generateSignature(secret, payloadBytes)

			req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(payloadBytes))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-GitHub-Event", tt.eventType)
			req.Header.Set("X-GitHub-Delivery", "test-delivery")
			req.Header.Set("X-Hub-Signature-256", signature)

			w := httptest.NewRecorder()
			handler.Handle(w, req)

			if w.Code != tt.wantStatusCode {
				t.Errorf("Handle() status = %v, want %v, body = %s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatus != "" {
				var response map[string]string
				if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
					t.Errorf("Failed to decode response: %v", err)
				}
				if response["status"] != tt.wantStatus {
					t.Errorf("Response status = %v, want %v", response["status"], tt.wantStatus)
				}
			}

			if len(starter.calls) != len(tt.wantFragments) {
				t.Fatalf("StartRelease called %d times, want %d", len(starter.calls), len(tt.wantFragments))
			}
			for i, fragment := range tt.wantFragments {
				if starter.calls[i] != fragment {
					t.Errorf("StartRelease call %d fragment = %v, want %v", i, starter.calls[i], fragment)
				}
			}
		})
	}
}

func TestWebhookHandler_Integration(t *testing.T) {
	ctx := context.Background()
	secret := "integration-test-secret"
	starter := &mockStarter{}

	server, err := controller.NewServer(
		ctx,
		starter,
		controller.WithAddr("localhost:0"),
		controller.WithWebhookSecret(secret),
	)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	payload := map[string]interface{}{
		"action": "release",
		"branch": "main",
		"client_payload": map[string]interface{}{
			"fragment": "feature",
		},
		"repository": map[string]interface{}{
			"full_name": "m-mizutani/drover",
		},
		"sender": map[string]interface{}{
			"login": "testuser",
		},
	}

	payloadBytes, _ := json.Marshal(payload)
	signature := generateSignature(secret, payloadBytes)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/hooks/github/app", bytes.NewReader(payloadBytes))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "repository_dispatch")
	req.Header.Set("X-GitHub-Delivery", "integration-test")
	req.Header.Set("X-Hub-Signature-256", signature)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer func() {
		_ = resp.Body.Close() // Error ignored in test
	}()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Status code = %v, want %v", resp.StatusCode, http.StatusAccepted)
	}

	if len(starter.calls) != 1 || starter.calls[0] != model.FragmentFeature {
		t.Errorf("StartRelease calls = %v, want one feature trigger", starter.calls)
	}
}

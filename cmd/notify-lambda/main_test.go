package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/wolfman30/easygopharm/internal/notify"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

func newTestHandler() *notify.Handler {
	logger := logging.New("error")
	dispatcher := notify.NewDispatcher(notify.NewStubEmailSender(logger), nil, notify.DispatcherConfig{}, nil, logger)
	return notify.NewHandler(dispatcher, logger)
}

func request(method, path, body string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		Body:    body,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: method,
				Path:   path,
			},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	resp, err := handle(context.Background(), newTestHandler(), request(http.MethodGet, "/health", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "ok" {
		t.Fatalf("expected ok health, got %d %q", resp.StatusCode, resp.Body)
	}
}

func TestHandleRejectsNonPost(t *testing.T) {
	resp, err := handle(context.Background(), newTestHandler(), request(http.MethodGet, "/api/notify", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
	}
	if resp.Body != `{"error":"Method not allowed"}` {
		t.Fatalf("unexpected body %q", resp.Body)
	}
}

func TestHandleMissingData(t *testing.T) {
	resp, err := handle(context.Background(), newTestHandler(), request(http.MethodPost, "/api/notify", `{"type":"DRUG_REQUEST"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestHandleDispatchesBase64Body(t *testing.T) {
	payload := `{"type":"DRUG_REQUEST","data":{"id":"5f0c","genericName":"Elapegademase","contactEmail":"ops@example.com"}}`
	evt := request(http.MethodPost, "/api/notify", base64.StdEncoding.EncodeToString([]byte(payload)))
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), newTestHandler(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, resp.Body)
	}
	if resp.Headers["content-type"] != "application/json" {
		t.Fatalf("expected json content type, got %q", resp.Headers["content-type"])
	}

	var out notify.Response
	if err := json.Unmarshal([]byte(resp.Body), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Success {
		t.Fatalf("expected success")
	}
	if out.Details.WhatsApp != nil {
		t.Fatalf("expected whatsapp skipped without a sender")
	}
}

func TestHandleInvalidBase64(t *testing.T) {
	evt := request(http.MethodPost, "/api/notify", "%%%")
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), newTestHandler(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestHandleWrongMethodWinsOverBadBody(t *testing.T) {
	evt := request(http.MethodPut, "/api/notify", "%%%")
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), newTestHandler(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
	}
}

func TestHandleRequiresSharedSecret(t *testing.T) {
	h := newTestHandler().WithSecret("s3cret")
	payload := `{"type":"CONSULTATION","data":{"patientName":"Ben","contactEmail":"ben@x.com","preferredDate":"2026-03-04T10:30"}}`

	resp, err := handle(context.Background(), h, request(http.MethodPost, "/api/notify", payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status %d without secret, got %d", http.StatusUnauthorized, resp.StatusCode)
	}

	evt := request(http.MethodPost, "/api/notify", payload)
	evt.Headers = map[string]string{"x-notify-secret": "s3cret"}
	resp, err = handle(context.Background(), h, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d with secret, got %d: %s", http.StatusOK, resp.StatusCode, resp.Body)
	}
}

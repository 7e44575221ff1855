package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/wolfman30/easygopharm/cmd/mainconfig"
	"github.com/wolfman30/easygopharm/internal/app/bootstrap"
	appconfig "github.com/wolfman30/easygopharm/internal/config"
	"github.com/wolfman30/easygopharm/internal/notify"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(context.Background(), cfg); err != nil {
		logger.Warn("AWS config unavailable; SES disabled", "error", err)
	} else {
		awsCfg = &loaded
	}

	dispatcher := bootstrap.BuildDispatcher(cfg, awsCfg, nil, logger)
	h := notify.NewHandler(dispatcher, logger).WithSecret(cfg.NotifySecret)
	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, h, evt)
	})
}

func handle(ctx context.Context, h *notify.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}

	if method != http.MethodPost {
		status, payload := h.Process(ctx, method, nil)
		return jsonResponse(status, payload), nil
	}
	if !h.Authorized(header(evt.Headers, notify.SecretHeader)) {
		return jsonResponse(http.StatusUnauthorized, map[string]string{"error": "unauthorized"}), nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, map[string]string{"error": "invalid body"}), nil
	}

	status, payload := h.Process(ctx, method, body)
	return jsonResponse(status, payload), nil
}

func jsonResponse(status int, payload any) events.APIGatewayV2HTTPResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"content-type": "application/json"},
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

// header looks name up case-insensitively; API Gateway lowercases header keys.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

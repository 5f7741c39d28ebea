package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyics/internal/config"
	"easyics/internal/parser"
	"easyics/internal/web"
)

func testHandler(t *testing.T, mutate ...func(*config.Config)) apiHandler {
	t.Helper()
	cfg := config.DefaultConfig()
	off := false
	cfg.NaturalLanguage = &off
	for _, m := range mutate {
		m(cfg)
	}
	svc, err := web.NewService(cfg, parser.New(parser.Options{}))
	require.NoError(t, err)
	return newHandler(svc, cfg.MaxInputBytes)
}

func TestHandler_UploadText(t *testing.T) {
	h := testHandler(t)

	resp, err := h(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/upload/text",
		Body:       `{"text":"Review 2025-11-24 14:30","timezone":"UTC"}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

	var got web.EventsResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &got))
	require.Equal(t, 1, got.Count)
	assert.Equal(t, "2025-11-24T14:30:00Z", got.Events[0].StartTime)
}

func TestHandler_UploadTextQueryAndBase64(t *testing.T) {
	h := testHandler(t)

	resp, err := h(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		Path:                  "/api/upload/text",
		QueryStringParameters: map[string]string{"text": "Review 2025-11-24 14:30"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = h(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/upload/text",
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"text":"   "}`)),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, resp.Body, "Content cannot be empty")
}

func TestHandler_DownloadICS(t *testing.T) {
	h := testHandler(t)

	resp, err := h(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/download_ics",
		Body:       `{"events":[{"title":"Sync","start_time":"2025-11-24T14:00:00Z","end_time":"2025-11-24T15:00:00Z"}]}`,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	assert.Equal(t, "text/calendar; charset=utf-8", resp.Headers["Content-Type"])
	assert.Contains(t, resp.Body, "SUMMARY:Sync\r\n")

	resp, err = h(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/download_ics",
		Body:       `{"events":[]}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_RoutingAndPreflight(t *testing.T) {
	h := testHandler(t)

	resp, err := h(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions, Path: "/api/upload/text"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)

	resp, err = h(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/nope"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = h(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/api/check_health"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"healthy","natural_language":false}`, resp.Body)
}

func TestHandler_BodyLimit(t *testing.T) {
	h := testHandler(t, func(c *config.Config) { c.MaxInputBytes = 32 })
	big := `{"text":"` + strings.Repeat("x", 64) + ` 2025-11-24 14:30"}`

	tests := []struct {
		name string
		req  events.APIGatewayProxyRequest
	}{
		{"plain", events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Path: "/api/upload/text", Body: big}},
		{"base64", events.APIGatewayProxyRequest{
			HTTPMethod:      http.MethodPost,
			Path:            "/api/upload/text",
			Body:            base64.StdEncoding.EncodeToString([]byte(big)),
			IsBase64Encoded: true,
		}},
		{"download", events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Path: "/api/download_ics", Body: big}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
			assert.JSONEq(t, `{"error":"request body too large"}`, resp.Body)
		})
	}

	resp, err := h(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/upload/text",
		Body:       `{"text":"Sync 2025-11-24 14:30"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
}

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	_ "time/tzdata"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"easyics/internal/config"
	appLog "easyics/internal/log"
	"easyics/internal/web"
)

// Lambda configuration comes from the environment only (EASYICS_*).
func loadConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ApplyEnv()
	cfg.Normalize()
	return cfg
}

type apiHandler func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// newHandler routes API Gateway requests to svc. Bodies longer than
// maxBody bytes after base64 decoding are rejected with 413.
func newHandler(svc *web.Service, maxBody int64) apiHandler {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		headers := map[string]string{
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Headers": "Content-Type,Authorization",
			"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
		}

		if req.HTTPMethod == http.MethodOptions {
			return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}, nil
		}

		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				return jsonError(headers, http.StatusBadRequest, "invalid base64 body"), nil
			}
			body = decoded
		}
		if maxBody > 0 && int64(len(body)) > maxBody {
			appLog.Warn("lambda request body too large", "path", req.Path, "bytes", len(body), "limit", maxBody)
			return jsonError(headers, http.StatusRequestEntityTooLarge, "request body too large"), nil
		}

		appLog.Info("lambda request", "method", req.HTTPMethod, "path", req.Path)

		switch {
		case req.HTTPMethod == http.MethodGet && req.Path == "/api/check_health":
			return jsonResponse(headers, http.StatusOK, svc.Health()), nil

		case req.HTTPMethod == http.MethodPost && req.Path == "/api/upload/text":
			in := web.ParseTextRequest{
				Text:     req.QueryStringParameters["text"],
				Timezone: req.QueryStringParameters["timezone"],
			}
			if len(body) > 0 {
				if err := json.Unmarshal(body, &in); err != nil {
					return jsonError(headers, http.StatusBadRequest, "invalid JSON body"), nil
				}
			}
			resp, err := svc.ParseText(in.Text, in.Timezone)
			if err != nil {
				return serviceError(headers, "lambda upload text", err), nil
			}
			return jsonResponse(headers, http.StatusOK, resp), nil

		case req.HTTPMethod == http.MethodPost && req.Path == "/api/download_ics":
			var in web.DownloadRequest
			if err := json.Unmarshal(body, &in); err != nil {
				return jsonError(headers, http.StatusBadRequest, "invalid JSON body"), nil
			}
			out, err := svc.BuildICS(in)
			if err != nil {
				return serviceError(headers, "lambda download ics", err), nil
			}
			headers["Content-Type"] = "text/calendar; charset=utf-8"
			headers["Content-Disposition"] = "attachment; filename=calendar.ics"
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusOK,
				Headers:    headers,
				Body:       out,
			}, nil

		default:
			return jsonError(headers, http.StatusNotFound, "not found"), nil
		}
	}
}

func serviceError(headers map[string]string, op string, err error) events.APIGatewayProxyResponse {
	status := web.StatusFor(err)
	if status >= 500 {
		appLog.Error(op+" failed", err)
	}
	return jsonError(headers, status, web.ErrorMessage(err))
}

func jsonError(headers map[string]string, status int, msg string) events.APIGatewayProxyResponse {
	return jsonResponse(headers, status, map[string]string{"error": msg})
}

func jsonResponse(headers map[string]string, status int, v any) events.APIGatewayProxyResponse {
	headers["Content-Type"] = "application/json"
	b, err := json.Marshal(v)
	if err != nil {
		appLog.Error("failed to marshal lambda response", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"internal error"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(b)}
}

func main() {
	cfg := loadConfig()
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	svc, err := web.NewService(cfg, nil)
	if err != nil {
		appLog.Error("failed to build service", err)
		os.Exit(1)
	}
	lambda.Start(newHandler(svc, cfg.MaxInputBytes))
}

package lambdatransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/flowvet/flowvet/internal/app"
	"github.com/flowvet/flowvet/internal/transport/verifydto"
)

type Handler struct {
	svc app.VerifyService
}

func NewHandler(svc app.VerifyService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Verify(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := readBody(req)
	if err != nil {
		return jsonResp(http.StatusBadRequest, map[string]any{"error": "invalid body", "details": err.Error()}), nil
	}

	var in verifydto.VerifyRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return jsonResp(http.StatusBadRequest, map[string]any{"error": "invalid json", "details": err.Error()}), nil
	}

	report, err := h.svc.Verify(in.GraphDOT, in.PolicyYAML)
	if err != nil {
		if _, ok := app.IsViolation(err); ok {
			return jsonResp(http.StatusOK, verifydto.VerifyResponse{Passed: false, Report: report}), nil
		}
		return jsonResp(http.StatusBadRequest, map[string]any{"error": "verify failed", "details": err.Error()}), nil
	}

	return jsonResp(http.StatusOK, verifydto.VerifyResponse{Passed: true, Report: report}), nil
}

func readBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func jsonResp(status int, body any) events.APIGatewayV2HTTPResponse {
	b, _ := json.Marshal(body)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(b),
	}
}

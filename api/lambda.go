package api

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/forumledger/forum"
)

// authorizerPrincipalKey is where API Gateway authorizers put the caller.
const authorizerPrincipalKey = "principalId"

// HandleAPIGateway serves POST .../execute and POST .../query behind an
// API Gateway REST proxy integration.
// This function is designed to be used as an AWS Lambda handler.
func (s *Server) HandleAPIGateway(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod != http.MethodPost {
		return toProxyResponse(Response{
			Status: http.StatusMethodNotAllowed,
			Body:   []byte(`{"error":"method not allowed","kind":"invalid_request"}`),
		}), nil
	}

	body, err := proxyBody(req)
	if err != nil {
		return toProxyResponse(s.errorResponse(err)), nil
	}

	var resp Response
	switch {
	case strings.HasSuffix(req.Path, "/execute"):
		resp = s.Execute(ctx, authorizerPrincipal(req), body)
	case strings.HasSuffix(req.Path, "/query"):
		resp = s.Query(ctx, body)
	default:
		resp = Response{
			Status: http.StatusNotFound,
			Body:   []byte(`{"error":"no such route","kind":"not_found"}`),
		}
	}
	return toProxyResponse(resp), nil
}

func authorizerPrincipal(req events.APIGatewayProxyRequest) forum.Principal {
	if v, ok := req.RequestContext.Authorizer[authorizerPrincipalKey].(string); ok {
		return forum.Principal(v)
	}
	return ""
}

func proxyBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	b, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: body: %v", forum.ErrInvalidRequest, err)
	}
	return b, nil
}

func toProxyResponse(resp Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: resp.Status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(resp.Body),
	}
}

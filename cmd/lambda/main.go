package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"esgss-backend/infrastructure/config"
	"esgss-backend/infrastructure/di"
	"esgss-backend/interfaces/http/rest"
	"esgss-backend/pkg/observability"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	container *di.Container
	tracer    *observability.Tracer

	coldStart     = true
	coldStartTime time.Time
)

// init runs during cold start
func init() {
	coldStartTime = time.Now()

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	if cfg.EnableLivePush {
		container.LivePush.Attach(container.Engine)
	}

	router := rest.NewRouter(
		container.CommandBus,
		container.QueryBus,
		container.Purification,
		container.AcquireCards,
		container.Logger,
	)
	handler := router.Setup()

	chiRouter, ok := handler.(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)
	tracer = observability.NewTracer("esgss-api")

	container.Logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(coldStartTime)))
}

// Handler is the Lambda function handler. The API Gateway JWT
// authorizer validated the token before this runs, so the user context
// is lifted from the authorizer claims into headers the auth middleware
// trusts.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}

	// Rate limit state lives in DynamoDB so it holds across invocations
	if ip := req.RequestContext.HTTP.SourceIP; ip != "" {
		allowed, rlErr := container.RateLimiter.Allow(ctx, ip)
		if rlErr != nil {
			container.Logger.Warn("rate limiter degraded", zap.Error(rlErr))
		}
		if !allowed {
			return events.APIGatewayV2HTTPResponse{
				StatusCode: 429,
				Headers:    map[string]string{"Content-Type": "application/json", "Retry-After": "60"},
				Body:       `{"error":"rate limit exceeded"}`,
			}, nil
		}
	}

	if userID := authorizedUserID(req); userID != "" {
		req.Headers["X-API-Gateway-Authorized"] = "true"
		req.Headers["X-User-ID"] = userID
		if email := authorizerClaim(req, "email"); email != "" {
			req.Headers["X-User-Email"] = email
		}
	}

	var resp events.APIGatewayV2HTTPResponse
	err := tracer.TraceFunction(ctx, "http_proxy", func(ctx context.Context) error {
		tracer.AddAnnotation(ctx, "path", req.RequestContext.HTTP.Path)
		var proxyErr error
		resp, proxyErr = chiLambda.ProxyWithContextV2(ctx, req)
		return proxyErr
	})

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		coldStart = false
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	if resp.StatusCode >= 500 {
		container.Logger.Error("Lambda error response",
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Int("status_code", resp.StatusCode))
	}

	return resp, err
}

// authorizedUserID extracts the subject the JWT authorizer resolved
func authorizedUserID(req events.APIGatewayV2HTTPRequest) string {
	if sub := authorizerClaim(req, "sub"); sub != "" {
		return sub
	}
	// Fall back to a forwarded header from a trusted proxy stage
	if userID := req.Headers["x-user-id"]; userID != "" {
		return userID
	}
	return strings.TrimSpace(req.Headers["X-User-ID"])
}

func authorizerClaim(req events.APIGatewayV2HTTPRequest, name string) string {
	if req.RequestContext.Authorizer == nil || req.RequestContext.Authorizer.JWT == nil {
		return ""
	}
	return req.RequestContext.Authorizer.JWT.Claims[name]
}

func main() {
	lambda.Start(Handler)
}

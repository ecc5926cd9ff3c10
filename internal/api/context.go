package api

import (
	"context"

	"github.com/terra-clan/solution-builder/internal/models"
)

type contextKey string

const (
	clientContextKey   contextKey = "client"
	operatorContextKey contextKey = "operator"
)

// ClientFromContext extracts the client a request is made for
func ClientFromContext(ctx context.Context) *models.Client {
	client, ok := ctx.Value(clientContextKey).(*models.Client)
	if !ok {
		return nil
	}
	return client
}

// ContextWithClient adds the client to context
func ContextWithClient(ctx context.Context, client *models.Client) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}

// OperatorFromContext extracts the operator building the solution
func OperatorFromContext(ctx context.Context) string {
	operator, _ := ctx.Value(operatorContextKey).(string)
	return operator
}

// ContextWithOperator adds the operator to context
func ContextWithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorContextKey, operator)
}

// clientID returns the id of the client in context, or ""
func clientID(ctx context.Context) string {
	if client := ClientFromContext(ctx); client != nil {
		return client.ID
	}
	return ""
}

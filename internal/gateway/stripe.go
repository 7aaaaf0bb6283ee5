package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/transfer"

	pkgstripe "github.com/nmviana/vendimia-backend/pkg/stripe"
)

// StripeTransferClient exposes the subset of Stripe operations the gateway needs.
type StripeTransferClient interface {
	Create(ctx context.Context, params *stripe.TransferParams) (*stripe.Transfer, error)
}

type stripeTransferWrapper struct{}

// NewStripeTransferClient wraps the configured Stripe client so the gateway can be tested.
func NewStripeTransferClient(api *pkgstripe.Client) StripeTransferClient {
	if api == nil {
		return nil
	}
	return &stripeTransferWrapper{}
}

func (w *stripeTransferWrapper) Create(ctx context.Context, params *stripe.TransferParams) (*stripe.Transfer, error) {
	if params != nil {
		params.Context = ctx
	}
	return transfer.New(params)
}

// StripeGateway moves funds to vendors via Stripe Connect transfers.
type StripeGateway struct {
	client StripeTransferClient
}

// NewStripeGateway builds a Stripe-backed transfer gateway.
func NewStripeGateway(client StripeTransferClient) (*StripeGateway, error) {
	if client == nil {
		return nil, errors.New("stripe transfer client is required")
	}
	return &StripeGateway{client: client}, nil
}

func (g *StripeGateway) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, &TransferError{Reason: err.Error(), Transient: false, Err: err}
	}

	minorUnits := req.Amount.Shift(req.Currency.MinorUnits()).IntPart()

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(minorUnits),
		Currency:    stripe.String(strings.ToLower(string(req.Currency))),
		Destination: stripe.String(req.VendorAccountRef),
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.IdempotencyKey = stripe.String(req.PayoutID.String())

	result, err := g.client.Create(ctx, params)
	if err != nil {
		return nil, classifyStripeError(err)
	}

	return &TransferResult{Reference: result.ID}, nil
}

func classifyStripeError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TransferError{Reason: "provider timed out", Transient: true, Err: err}
	}

	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		reason := sErr.Msg
		if reason == "" {
			reason = fmt.Sprintf("stripe error %s", sErr.Code)
		}
		if sErr.HTTPStatusCode >= http.StatusInternalServerError ||
			sErr.HTTPStatusCode == http.StatusTooManyRequests ||
			sErr.Type == stripe.ErrorTypeAPI {
			return &TransferError{Reason: reason, Transient: true, Err: err}
		}
		return &TransferError{Reason: reason, Transient: false, Err: err}
	}

	// Anything unclassified is treated as a network fault and retried.
	return &TransferError{Reason: "provider unreachable", Transient: true, Err: err}
}

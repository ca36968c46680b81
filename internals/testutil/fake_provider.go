package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tutorku_backend/internals/features/finance/payments/gateway"
)

// FakeProvider mencatat checkout yang dibuat; webhook tidak diverifikasi.
type FakeProvider struct {
	mu        sync.Mutex
	Checkouts []gateway.CheckoutRequest
	// FailCheckout membuat CreateCheckout gagal (simulasi provider down).
	FailCheckout bool
	// Resolved dipakai ResolveEnrollmentID untuk event tanpa enrollment id.
	Resolved map[string]string
}

func (f *FakeProvider) Name() string { return "fake" }

func (f *FakeProvider) CreateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCheckout {
		return nil, errors.New("fake provider unavailable")
	}
	f.Checkouts = append(f.Checkouts, req)
	n := len(f.Checkouts)
	return &gateway.Checkout{
		SessionID: fmt.Sprintf("cs_fake_%d", n),
		URL:       fmt.Sprintf("https://pay.test/cs_fake_%d", n),
	}, nil
}

func (f *FakeProvider) ParseWebhook(ctx context.Context, body []byte, headers map[string]string) (*gateway.Event, error) {
	return nil, gateway.ErrMalformedPayload
}

func (f *FakeProvider) ResolveEnrollmentID(ctx context.Context, ev *gateway.Event) (string, error) {
	if ev.EnrollmentID != "" {
		return ev.EnrollmentID, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Resolved[ev.PaymentRef], nil
}

func (f *FakeProvider) LastCheckout() gateway.CheckoutRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Checkouts) == 0 {
		return gateway.CheckoutRequest{}
	}
	return f.Checkouts[len(f.Checkouts)-1]
}

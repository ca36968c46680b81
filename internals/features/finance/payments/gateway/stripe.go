package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	ProviderStripe = "stripe"

	metaEnrollmentID   = "enrollmentId"
	stripeSignatureHdr = "Stripe-Signature"
)

type Stripe struct {
	api           *client.API
	webhookSecret string
}

func NewStripe(secretKey, webhookSecret string) *Stripe {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &Stripe{api: sc, webhookSecret: webhookSecret}
}

func (s *Stripe) Name() string { return ProviderStripe }

/* =========================================================
   Checkout session
========================================================= */

func (s *Stripe) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("stripe: invalid amount %d", req.Amount)
	}
	meta := map[string]string{metaEnrollmentID: req.EnrollmentID}
	for k, v := range req.Metadata {
		meta[k] = v
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.EnrollmentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.ItemName),
					},
					UnitAmount: stripe.Int64(MinorUnits(req.Amount, req.Currency)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		// metadata ikut ke PaymentIntent supaya event payment_failed bisa di-resolve
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	return &Checkout{SessionID: sess.ID, URL: sess.URL}, nil
}

/* =========================================================
   Webhook
========================================================= */

func (s *Stripe) ParseWebhook(ctx context.Context, body []byte, headers map[string]string) (*Event, error) {
	sig := headerValue(headers, stripeSignatureHdr)
	if sig == "" {
		return nil, ErrInvalidSignature
	}
	evt, err := webhook.ConstructEventWithOptions(body, sig, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if evt.Data == nil {
		return nil, fmt.Errorf("%w: event without data", ErrMalformedPayload)
	}

	out := &Event{
		Provider:   ProviderStripe,
		ExternalID: evt.ID,
		Type:       string(evt.Type),
		Kind:       KindIgnored,
	}

	switch evt.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded",
		"checkout.session.expired", "checkout.session.async_payment_failed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out.SessionID = sess.ID
		out.EnrollmentID = enrollmentFrom(sess.Metadata, sess.ClientReferenceID)
		out.Amount = MajorUnits(sess.AmountTotal, string(sess.Currency))
		out.Currency = strings.ToUpper(string(sess.Currency))
		if sess.PaymentIntent != nil {
			out.PaymentRef = sess.PaymentIntent.ID
		}
		switch evt.Type {
		case "checkout.session.expired":
			out.Kind = KindCheckoutExpired
		case "checkout.session.async_payment_failed":
			out.Kind = KindPaymentFailed
		default:
			// completed tapi belum dibayar (mis. transfer bank async) -> tunggu async_payment_succeeded
			if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusUnpaid {
				out.Kind = KindCheckoutCompleted
			}
		}

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out.Kind = KindPaymentFailed
		out.PaymentRef = pi.ID
		out.EnrollmentID = enrollmentFrom(pi.Metadata, "")
		out.Amount = MajorUnits(pi.Amount, string(pi.Currency))
		out.Currency = strings.ToUpper(string(pi.Currency))

	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(evt.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		out.Kind = KindRefunded
		out.PaymentRef = ch.ID
		if ch.PaymentIntent != nil {
			out.PaymentRef = ch.PaymentIntent.ID
		}
		out.EnrollmentID = enrollmentFrom(ch.Metadata, "")
		out.Amount = MajorUnits(ch.AmountRefunded, string(ch.Currency))
		out.Currency = strings.ToUpper(string(ch.Currency))
		out.ReceiptURL = ch.ReceiptURL
	}
	return out, nil
}

// ResolveEnrollmentID mencari checkout session milik PaymentIntent event.
func (s *Stripe) ResolveEnrollmentID(ctx context.Context, ev *Event) (string, error) {
	if ev.EnrollmentID != "" {
		return ev.EnrollmentID, nil
	}
	if !strings.HasPrefix(ev.PaymentRef, "pi_") {
		return "", nil
	}
	params := &stripe.CheckoutSessionListParams{PaymentIntent: stripe.String(ev.PaymentRef)}
	params.Context = ctx
	it := s.api.CheckoutSessions.List(params)
	for it.Next() {
		sess := it.CheckoutSession()
		if id := enrollmentFrom(sess.Metadata, sess.ClientReferenceID); id != "" {
			return id, nil
		}
	}
	if err := it.Err(); err != nil {
		return "", fmt.Errorf("stripe: list checkout sessions: %w", err)
	}
	return "", nil
}

func enrollmentFrom(meta map[string]string, clientRef string) string {
	if id := strings.TrimSpace(meta[metaEnrollmentID]); id != "" {
		return id
	}
	return strings.TrimSpace(clientRef)
}

// headerValue: lookup case-insensitive, header dari fiber sudah di-flatten.
func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

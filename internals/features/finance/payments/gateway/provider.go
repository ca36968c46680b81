// Package gateway membungkus payment provider (Midtrans, Stripe) di balik
// satu kontrak: buat checkout, verifikasi + normalisasi webhook.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tutorku_backend/internals/configs"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

type EventKind string

const (
	KindCheckoutCompleted EventKind = "checkout_completed"
	KindCheckoutExpired   EventKind = "checkout_expired"
	KindPaymentFailed     EventKind = "payment_failed"
	KindRefunded          EventKind = "refunded"
	KindIgnored           EventKind = "ignored"
)

type CheckoutRequest struct {
	EnrollmentID string
	ItemName     string
	Amount       int64 // satuan mayor
	Currency     string
	CustomerID   string
	Email        string
	SuccessURL   string
	CancelURL    string
	Metadata     map[string]string
}

type Checkout struct {
	SessionID string
	URL       string
}

// Event adalah webhook yang sudah diverifikasi dan dinormalisasi.
// Disimpan apa adanya (JSON) di payment_gateway_events untuk replay.
type Event struct {
	Provider     string    `json:"provider"`
	ExternalID   string    `json:"external_id"`
	Type         string    `json:"type"`
	Kind         EventKind `json:"kind"`
	EnrollmentID string    `json:"enrollment_id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	PaymentRef   string    `json:"payment_ref,omitempty"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	ReceiptURL   string    `json:"receipt_url,omitempty"`
}

// ExternalRef: referensi pembayaran yang dipakai ledger payments.
func (e *Event) ExternalRef() string {
	switch {
	case e.PaymentRef != "":
		return e.PaymentRef
	case e.SessionID != "":
		return e.SessionID
	default:
		return e.ExternalID
	}
}

type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	// ParseWebhook memverifikasi signature lalu menormalisasi payload.
	// Error selalu membungkus ErrInvalidSignature atau ErrMalformedPayload.
	ParseWebhook(ctx context.Context, body []byte, headers map[string]string) (*Event, error)
	// ResolveEnrollmentID untuk event yang tidak membawa enrollment id.
	// String kosong tanpa error = tidak diketahui.
	ResolveEnrollmentID(ctx context.Context, ev *Event) (string, error)
}

// New memilih provider dari config.
func New(cfg configs.Config) (Provider, error) {
	switch strings.ToLower(cfg.PaymentProvider) {
	case "midtrans":
		return NewMidtrans(cfg.MidtransServerKey, cfg.MidtransUseProd), nil
	case "stripe":
		return NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}

/* =========================================================
   Currency helpers
========================================================= */

// mata uang tanpa subunit di Stripe
var zeroDecimal = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true,
	"KMF": true, "KRW": true, "MGA": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

// MinorUnits: 1500 IDR -> 150000 (sen), 1500 JPY -> 1500.
func MinorUnits(amount int64, currency string) int64 {
	if zeroDecimal[strings.ToUpper(currency)] {
		return amount
	}
	return amount * 100
}

// MajorUnits kebalikan MinorUnits (dibulatkan ke bawah).
func MajorUnits(minor int64, currency string) int64 {
	if zeroDecimal[strings.ToUpper(currency)] {
		return minor
	}
	return minor / 100
}

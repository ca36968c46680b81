package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	helper "tutorku_backend/internals/helpers"
)

const (
	ProviderMidtrans = "midtrans"
	// batas nama item di Snap
	midtransItemNameMax = 50
	orderSuffixLen      = 6
)

/* =========================================================
   Midtrans Client
========================================================= */

type Midtrans struct {
	serverKey string
	snap      snap.Client
}

// NewMidtrans; useProduction=false -> Sandbox.
func NewMidtrans(serverKey string, useProduction bool) *Midtrans {
	m := &Midtrans{serverKey: serverKey}
	if useProduction {
		m.snap.New(serverKey, midtrans.Production)
	} else {
		m.snap.New(serverKey, midtrans.Sandbox)
	}
	return m
}

func (m *Midtrans) Name() string { return ProviderMidtrans }

/* =========================================================
   Snap checkout
========================================================= */

// CreateCheckout membuat transaksi Snap. order_id = <enrollmentId>-<suffix>
// supaya checkout ulang untuk enrollment yang sama tidak bentrok di Midtrans.
func (m *Midtrans) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("midtrans: invalid amount %d", req.Amount)
	}
	if req.EnrollmentID == "" {
		return nil, fmt.Errorf("midtrans: enrollment id is required (used as order_id)")
	}
	orderID := req.EnrollmentID + "-" + strings.ToLower(helper.RandomCode(orderSuffixLen))

	sr := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: req.Amount,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.EnrollmentID,
				Name:  truncate(req.ItemName, midtransItemNameMax),
				Price: req.Amount,
				Qty:   1,
			},
		},
		CustomField1: req.EnrollmentID,
	}
	if req.Email != "" {
		sr.CustomerDetail = &midtrans.CustomerDetails{Email: req.Email}
	}

	resp, mErr := m.snap.CreateTransaction(sr)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans: create transaction (status %d): %s", mErr.StatusCode, mErr.Message)
	}
	return &Checkout{SessionID: orderID, URL: resp.RedirectURL}, nil
}

/* =========================================================
   Webhook
========================================================= */

type midtransNotif struct {
	TransactionStatus string `json:"transaction_status"` // capture, settlement, pending, deny, cancel, expire, refund, partial_refund, failure
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"` // string dari Midtrans
	Currency          string `json:"currency"`
	FraudStatus       string `json:"fraud_status"` // accept / challenge / deny
	TransactionID     string `json:"transaction_id"`
	CustomField1      string `json:"custom_field1"`
}

// ParseWebhook: verifikasi SHA512(order_id + status_code + gross_amount + ServerKey).
func (m *Midtrans) ParseWebhook(ctx context.Context, body []byte, headers map[string]string) (*Event, error) {
	var n midtransNotif
	if err := sonic.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if n.OrderID == "" || n.StatusCode == "" || n.GrossAmount == "" {
		return nil, fmt.Errorf("%w: missing order_id/status_code/gross_amount", ErrMalformedPayload)
	}

	want := strings.ToLower(n.SignatureKey)
	got := MidtransSignature(n.OrderID, n.StatusCode, n.GrossAmount, m.serverKey)
	if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return nil, ErrInvalidSignature
	}
	if n.TransactionID == "" || n.TransactionStatus == "" {
		return nil, fmt.Errorf("%w: missing transaction_id/transaction_status", ErrMalformedPayload)
	}

	amt, err := strconv.ParseFloat(n.GrossAmount, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: gross_amount %q", ErrMalformedPayload, n.GrossAmount)
	}
	status := strings.ToLower(n.TransactionStatus)

	ev := &Event{
		Provider:     ProviderMidtrans,
		ExternalID:   n.TransactionID + ":" + status,
		Type:         status,
		Kind:         mapMidtransStatus(status, strings.ToLower(n.FraudStatus)),
		EnrollmentID: midtransEnrollmentID(n),
		SessionID:    n.OrderID,
		PaymentRef:   n.TransactionID,
		Amount:       int64(math.Round(amt)),
		Currency:     strings.ToUpper(defaultString(n.Currency, "IDR")),
	}
	return ev, nil
}

// order_id selalu membawa enrollment id, jadi tidak perlu lookup ke Midtrans.
func (m *Midtrans) ResolveEnrollmentID(ctx context.Context, ev *Event) (string, error) {
	return ev.EnrollmentID, nil
}

func mapMidtransStatus(status, fraud string) EventKind {
	switch status {
	case "settlement":
		return KindCheckoutCompleted
	case "capture":
		// cc: capture + fraud=accept -> paid, challenge -> tunggu notifikasi berikutnya
		switch fraud {
		case "accept", "":
			return KindCheckoutCompleted
		case "challenge":
			return KindIgnored
		default:
			return KindPaymentFailed
		}
	case "expire":
		return KindCheckoutExpired
	case "deny", "cancel", "failure":
		return KindPaymentFailed
	case "refund", "partial_refund":
		return KindRefunded
	default:
		// pending, authorize, dll
		return KindIgnored
	}
}

func midtransEnrollmentID(n midtransNotif) string {
	if id, err := uuid.Parse(strings.TrimSpace(n.CustomField1)); err == nil {
		return id.String()
	}
	if i := strings.LastIndexByte(n.OrderID, '-'); i > 0 {
		if id, err := uuid.Parse(n.OrderID[:i]); err == nil {
			return id.String()
		}
	}
	return ""
}

// MidtransSignature dipakai juga oleh test untuk membuat notifikasi valid.
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	h := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(h[:])
}

/* =========================================================
   Utils
========================================================= */

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	// jangan potong di tengah rune
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

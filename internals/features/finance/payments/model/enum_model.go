package model

type PaymentStatus string
type GatewayEventStatus string

const (
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// status processing row payment_gateway_events
const (
	GatewayEventStatusReceived  GatewayEventStatus = "received"
	GatewayEventStatusProcessed GatewayEventStatus = "processed"
	GatewayEventStatusIgnored   GatewayEventStatus = "ignored"
	GatewayEventStatusFailed    GatewayEventStatus = "failed"
	GatewayEventStatusRejected  GatewayEventStatus = "rejected"
	GatewayEventStatusDuplicate GatewayEventStatus = "duplicate"
)

package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
)

// RefundParams carries everything needed to refund a captured payment.
type RefundParams struct {
	PaymentID      string
	AmountCents    int64
	Currency       string
	Reason         string
	IdempotencyKey string
}

// RefundResult is the gateway-agnostic view of a refund the order service
// persists and acts on.
type RefundResult struct {
	RefundID      string
	Status        enums.RefundStatus
	FailureReason string
}

func (p RefundParams) toSquareRequest(idempotencyKey string) *sq.RefundPaymentRequest {
	req := &sq.RefundPaymentRequest{
		IdempotencyKey: idempotencyKey,
		PaymentID:      ptrString(p.PaymentID),
		AmountMoney:    moneyPtr(p.AmountCents, p.Currency),
	}
	if strings.TrimSpace(p.Reason) != "" {
		req.Reason = ptrString(p.Reason)
	}
	return req
}

func refundResultFrom(refund *sq.PaymentRefund) *RefundResult {
	if refund == nil {
		return &RefundResult{Status: enums.RefundStatusPending}
	}
	result := &RefundResult{
		RefundID: refund.ID,
		Status:   refundStatusFrom(refund.GetStatus()),
	}
	if reason := refund.GetReason(); reason != nil {
		result.FailureReason = *reason
	}
	return result
}

func refundStatusFrom(status *string) enums.RefundStatus {
	if status == nil {
		return enums.RefundStatusPending
	}
	switch strings.ToUpper(strings.TrimSpace(*status)) {
	case "COMPLETED":
		return enums.RefundStatusSucceeded
	case "REJECTED", "FAILED":
		return enums.RefundStatusFailed
	default:
		return enums.RefundStatusPending
	}
}

func ptrString(s string) *string {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}

func currencyPtr(code string) *sq.Currency {
	currency := sq.Currency(strings.ToUpper(strings.TrimSpace(code)))
	if currency == "" {
		currency = sq.CurrencyUsd
	}
	return &currency
}

func moneyPtr(amountCents int64, currency string) *sq.Money {
	return &sq.Money{
		Amount:   int64Ptr(amountCents),
		Currency: currencyPtr(currency),
	}
}

package payments

import (
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/paytm"
	"github.com/tecbunny/tecbunny-backend/pkg/phonepe"
	"github.com/tecbunny/tecbunny-backend/pkg/razorpay"
)

// mapPhonePeState folds the gateway's transaction states into our
// lifecycle. Unrecognized states stay pending so reconciliation can
// pick them up once the gateway settles.
func mapPhonePeState(state string) enums.PaymentTxnStatus {
	switch state {
	case phonepe.StateSuccess:
		return enums.PaymentTxnStatusSuccess
	case phonepe.StateError, phonepe.StateDeclined, phonepe.StateTimedOut:
		return enums.PaymentTxnStatusFailed
	default:
		return enums.PaymentTxnStatusPending
	}
}

func mapRazorpayStatus(status string) enums.PaymentTxnStatus {
	switch status {
	case razorpay.StatusCaptured:
		return enums.PaymentTxnStatusSuccess
	case razorpay.StatusFailed:
		return enums.PaymentTxnStatusFailed
	default:
		return enums.PaymentTxnStatusPending
	}
}

func mapPaytmStatus(status string) enums.PaymentTxnStatus {
	switch status {
	case paytm.StatusSuccess:
		return enums.PaymentTxnStatusSuccess
	case paytm.StatusFailure:
		return enums.PaymentTxnStatusFailed
	default:
		return enums.PaymentTxnStatusPending
	}
}

func isTerminalTxnStatus(status enums.PaymentTxnStatus) bool {
	return status == enums.PaymentTxnStatusSuccess || status == enums.PaymentTxnStatusFailed
}

package payments

import (
	"context"

	"github.com/tecbunny/tecbunny-backend/pkg/paytm"
	"github.com/tecbunny/tecbunny-backend/pkg/phonepe"
	"github.com/tecbunny/tecbunny-backend/pkg/razorpay"
)

// Gateway clients are built per call from credentials in the settings
// store, so admins can rotate keys without a deploy. The factory seam
// lets tests substitute fakes.

type phonePeClient interface {
	Pay(ctx context.Context, req phonepe.PayRequest) (*phonepe.PayResult, error)
	Status(ctx context.Context, merchantTxnID string) (*phonepe.StatusResult, error)
}

type razorpayClient interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	FetchOrderPayments(ctx context.Context, orderID string) ([]razorpay.Payment, error)
	VerifyWebhookSignature(body []byte, signature string) bool
}

type paytmClient interface {
	InitiateTransaction(ctx context.Context, req paytm.InitiateRequest) (*paytm.InitiateResult, error)
	TransactionStatus(ctx context.Context, orderID string) (*paytm.StatusResult, error)
}

type clientFactory struct {
	phonePe  func(cfg phonepe.Config) (phonePeClient, error)
	razorpay func(cfg razorpay.Config) (razorpayClient, error)
	paytm    func(cfg paytm.Config) (paytmClient, error)
}

func defaultClientFactory() clientFactory {
	return clientFactory{
		phonePe: func(cfg phonepe.Config) (phonePeClient, error) {
			return phonepe.NewClient(cfg)
		},
		razorpay: func(cfg razorpay.Config) (razorpayClient, error) {
			return razorpay.NewClient(cfg)
		},
		paytm: func(cfg paytm.Config) (paytmClient, error) {
			return paytm.NewClient(cfg)
		},
	}
}

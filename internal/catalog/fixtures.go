package catalog

import (
	"github.com/google/uuid"

	"github.com/msto63/bankprobe/internal/bankapi"
)

// Fixtures are the literal values the canonical requests are built from
type Fixtures struct {
	// BankID is the calling institution, sent with the health check
	BankID string
	// AccountBankID owns the account descriptors; defaults to BankID
	AccountBankID  string
	AccountPayload string
	ConsentID      string

	TransferID     string
	BulkTransferID string
	Currency       string
	Amount         string
	TxLimit        int32

	// StripedTransfer sends Transfer without the fields that duplicate
	// TransferInstructions
	StripedTransfer bool
}

// withDefaults fills unset values. Transfer ids are generated once so every
// request of a run refers to the same transfer.
func (f Fixtures) withDefaults() Fixtures {
	if f.AccountBankID == "" {
		f.AccountBankID = f.BankID
	}
	if f.Currency == "" {
		f.Currency = "GBP"
	}
	if f.Amount == "" {
		f.Amount = "1.99"
	}
	if f.TxLimit <= 0 {
		f.TxLimit = 10
	}
	if f.TransferID == "" {
		f.TransferID = "t:" + uuid.NewString()
	}
	if f.BulkTransferID == "" {
		f.BulkTransferID = "bt:" + uuid.NewString()
	}
	return f
}

func (f Fixtures) account() *bankapi.BankAccount {
	return &bankapi.BankAccount{
		AccountFeatures: &bankapi.AccountFeatures{
			SupportsInformation:    true,
			SupportsSendPayment:    true,
			SupportsReceivePayment: true,
		},
		Custom: &bankapi.CustomAccount{
			BankID:  f.AccountBankID,
			Payload: f.AccountPayload,
		},
	}
}

func (f Fixtures) money() *bankapi.Money {
	return &bankapi.Money{Currency: f.Currency, Value: f.Amount}
}

func (f Fixtures) customer() *bankapi.CustomerData {
	return &bankapi.CustomerData{
		LegalNames: []string{"Southside"},
		Address: &bankapi.Address{
			HouseNumber: "10",
			Street:      "John Street",
			Place:       "15 Bishopsgate",
			PostCode:    "WC1N 2EB",
			City:        "London",
			Country:     "GB",
			Full:        "10 John Street, London WC1N",
			District:    "London",
			State:       "UK",
		},
	}
}

func (f Fixtures) destination() *bankapi.TransferDestination {
	return &bankapi.TransferDestination{
		FasterPayments: &bankapi.FasterPaymentsAccount{AccountNumber: "12345678", SortCode: "123456"},
		CustomerData:   f.customer(),
	}
}

func (f Fixtures) source() *bankapi.TransferEndpoint {
	return &bankapi.TransferEndpoint{Account: f.account(), BankID: f.AccountBankID}
}

func (f Fixtures) HealthCheck() *bankapi.HealthCheckRequest {
	return &bankapi.HealthCheckRequest{BankID: f.BankID}
}

func (f Fixtures) GetBalance() *bankapi.GetBalanceRequest {
	return &bankapi.GetBalanceRequest{ConsentID: f.ConsentID, Account: f.account()}
}

func (f Fixtures) GetAccount() *bankapi.GetAccountRequest {
	return &bankapi.GetAccountRequest{ConsentID: f.ConsentID, Account: f.account()}
}

func (f Fixtures) GetTransactions() *bankapi.GetTransactionsRequest {
	return &bankapi.GetTransactionsRequest{ConsentID: f.ConsentID, Account: f.account(), Limit: f.TxLimit}
}

func (f Fixtures) Transfer() *bankapi.TransferRequest {
	req := &bankapi.TransferRequest{
		TransferID:        f.TransferID,
		TransactionAmount: f.money(),
		Description:       "bankprobe transfer",
		TokenRefID:        f.TransferID,
		ConsentID:         f.ConsentID,
		TransferInstructions: &bankapi.TransferInstructions{
			Source:               f.source(),
			TransferDestinations: []*bankapi.TransferDestination{f.destination()},
		},
	}
	if f.StripedTransfer {
		return req
	}

	req.RequestedAmount = f.money()
	req.Source = f.account()
	req.Destinations = []*bankapi.TransferEndpoint{{
		Account:      &bankapi.BankAccount{FasterPayments: &bankapi.FasterPaymentsAccount{AccountNumber: "12345678", SortCode: "123456"}},
		CustomerData: f.customer(),
	}}
	req.TransferDestinations = []*bankapi.TransferDestination{f.destination()}
	return req
}

func (f Fixtures) CreateBulkTransfer() *bankapi.CreateBulkTransferRequest {
	return &bankapi.CreateBulkTransferRequest{
		TokenBulkTransferID: f.BulkTransferID,
		RefID:               f.BulkTransferID,
		Payload: &bankapi.BulkTransferBody{
			Transfers: []*bankapi.BulkTransfer{{
				Amount:      f.Amount,
				Currency:    f.Currency,
				RefID:       "1",
				Destination: f.destination(),
			}},
			TotalAmount: f.Amount,
			Source:      f.source(),
		},
		Source:        f.account(),
		SourceAccount: f.source(),
		Description:   "bankprobe bulk transfer",
		ConsentID:     f.ConsentID,
	}
}

func (f Fixtures) GetTransferStatus() *bankapi.GetTransferStatusRequest {
	return &bankapi.GetTransferStatusRequest{TransferID: f.TransferID}
}

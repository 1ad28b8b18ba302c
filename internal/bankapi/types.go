// Package bankapi defines the request and response messages of the bank
// integration API together with hand-written gRPC service descriptors.
//
// Messages are plain Go structs carried by the JSON codec registered in
// pkg/core/grpc, so no protoc toolchain is needed. Field names follow the
// canonical JSON mapping of the upstream schema.
package bankapi

// Money is a decimal amount in a currency. Value is kept as a string so no
// precision is lost on the wire.
type Money struct {
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty"`
}

// String renders the amount as "12.50 GBP"
func (m *Money) String() string {
	if m == nil {
		return ""
	}
	return m.Value + " " + m.Currency
}

// AccountFeatures describes what an account can be used for
type AccountFeatures struct {
	SupportsInformation    bool `json:"supportsInformation,omitempty" yaml:"supportsInformation,omitempty"`
	SupportsSendPayment    bool `json:"supportsSendPayment,omitempty" yaml:"supportsSendPayment,omitempty"`
	SupportsReceivePayment bool `json:"supportsReceivePayment,omitempty" yaml:"supportsReceivePayment,omitempty"`
}

// CustomAccount identifies an account by an opaque, bank-specific payload
type CustomAccount struct {
	BankID  string `json:"bankId,omitempty" yaml:"bankId,omitempty"`
	Payload string `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// FasterPaymentsAccount identifies a UK account by sort code and number
type FasterPaymentsAccount struct {
	AccountNumber string `json:"accountNumber,omitempty" yaml:"accountNumber,omitempty"`
	SortCode      string `json:"sortCode,omitempty" yaml:"sortCode,omitempty"`
}

// BankAccount is an account descriptor. Exactly one of Custom and
// FasterPayments is expected to be set.
type BankAccount struct {
	AccountFeatures *AccountFeatures       `json:"accountFeatures,omitempty" yaml:"accountFeatures,omitempty"`
	Custom          *CustomAccount         `json:"custom,omitempty" yaml:"custom,omitempty"`
	FasterPayments  *FasterPaymentsAccount `json:"fasterPayments,omitempty" yaml:"fasterPayments,omitempty"`
}

// Address is a postal address
type Address struct {
	HouseNumber        string `json:"houseNumber,omitempty" yaml:"houseNumber,omitempty"`
	HouseName          string `json:"houseName,omitempty" yaml:"houseName,omitempty"`
	Flats              string `json:"flats,omitempty" yaml:"flats,omitempty"`
	ConscriptionNumber string `json:"conscriptionNumber,omitempty" yaml:"conscriptionNumber,omitempty"`
	Street             string `json:"street,omitempty" yaml:"street,omitempty"`
	Place              string `json:"place,omitempty" yaml:"place,omitempty"`
	PostCode           string `json:"postCode,omitempty" yaml:"postCode,omitempty"`
	City               string `json:"city,omitempty" yaml:"city,omitempty"`
	Country            string `json:"country,omitempty" yaml:"country,omitempty"`
	Full               string `json:"full,omitempty" yaml:"full,omitempty"`
	Hamlet             string `json:"hamlet,omitempty" yaml:"hamlet,omitempty"`
	Suburb             string `json:"suburb,omitempty" yaml:"suburb,omitempty"`
	Subdistrict        string `json:"subdistrict,omitempty" yaml:"subdistrict,omitempty"`
	District           string `json:"district,omitempty" yaml:"district,omitempty"`
	Province           string `json:"province,omitempty" yaml:"province,omitempty"`
	State              string `json:"state,omitempty" yaml:"state,omitempty"`
}

// CustomerData names the owner of a destination account
type CustomerData struct {
	LegalNames []string `json:"legalNames,omitempty" yaml:"legalNames,omitempty"`
	Address    *Address `json:"address,omitempty" yaml:"address,omitempty"`
}

// TransferEndpoint is one side of a transfer
type TransferEndpoint struct {
	Account      *BankAccount  `json:"account,omitempty" yaml:"account,omitempty"`
	BankID       string        `json:"bankId,omitempty" yaml:"bankId,omitempty"`
	CustomerData *CustomerData `json:"customerData,omitempty" yaml:"customerData,omitempty"`
}

// TransferDestination is a payment-scheme specific destination
type TransferDestination struct {
	FasterPayments *FasterPaymentsAccount `json:"fasterPayments,omitempty" yaml:"fasterPayments,omitempty"`
	CustomerData   *CustomerData          `json:"customerData,omitempty" yaml:"customerData,omitempty"`
}

// TransferInstructions groups source and destinations of a transfer
type TransferInstructions struct {
	Source               *TransferEndpoint      `json:"source,omitempty" yaml:"source,omitempty"`
	TransferDestinations []*TransferDestination `json:"transferDestinations,omitempty" yaml:"transferDestinations,omitempty"`
}

// TransferStatus is the processing state of a transfer
type TransferStatus string

const (
	TransferStatusUnknown    TransferStatus = "UNKNOWN"
	TransferStatusPending    TransferStatus = "PENDING"
	TransferStatusProcessing TransferStatus = "PROCESSING"
	TransferStatusSuccess    TransferStatus = "SUCCESS"
	TransferStatusFailed     TransferStatus = "FAILED"
)

// HealthStatus is the answer of the bank health check
type HealthStatus string

const (
	HealthStatusServing    HealthStatus = "SERVING"
	HealthStatusNotServing HealthStatus = "NOT_SERVING"
)

// Transaction is one booked entry on an account
type Transaction struct {
	ID          string         `json:"id,omitempty" yaml:"id,omitempty"`
	Type        string         `json:"type,omitempty" yaml:"type,omitempty"`
	Status      TransferStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Amount      *Money         `json:"amount,omitempty" yaml:"amount,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAtMs int64          `json:"createdAtMs,omitempty" yaml:"createdAtMs,omitempty"`
}

type HealthCheckRequest struct {
	BankID string `json:"bankId,omitempty" yaml:"bankId,omitempty"`
}

type HealthCheckResponse struct {
	Status HealthStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

type GetBalanceRequest struct {
	ConsentID string       `json:"consentId,omitempty" yaml:"consentId,omitempty"`
	Account   *BankAccount `json:"account,omitempty" yaml:"account,omitempty"`
}

type GetBalanceResponse struct {
	Available   *Money `json:"available,omitempty" yaml:"available,omitempty"`
	Current     *Money `json:"current,omitempty" yaml:"current,omitempty"`
	UpdatedAtMs int64  `json:"updatedAtMs,omitempty" yaml:"updatedAtMs,omitempty"`
}

type GetAccountRequest struct {
	ConsentID string       `json:"consentId,omitempty" yaml:"consentId,omitempty"`
	Account   *BankAccount `json:"account,omitempty" yaml:"account,omitempty"`
}

type GetAccountResponse struct {
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Type        string       `json:"type,omitempty" yaml:"type,omitempty"`
	Currency    string       `json:"currency,omitempty" yaml:"currency,omitempty"`
	BankAccount *BankAccount `json:"bankAccount,omitempty" yaml:"bankAccount,omitempty"`
}

type GetTransactionsRequest struct {
	ConsentID string       `json:"consentId,omitempty" yaml:"consentId,omitempty"`
	Account   *BankAccount `json:"account,omitempty" yaml:"account,omitempty"`
	Offset    string       `json:"offset,omitempty" yaml:"offset,omitempty"`
	Limit     int32        `json:"limit,omitempty" yaml:"limit,omitempty"`
	StartDate string       `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate   string       `json:"endDate,omitempty" yaml:"endDate,omitempty"`
}

type GetTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions,omitempty" yaml:"transactions,omitempty"`
	// Offset is the cursor for the next page; empty on the last page
	Offset string `json:"offset,omitempty" yaml:"offset,omitempty"`
}

type TransferRequest struct {
	TransferID           string                 `json:"transferId,omitempty" yaml:"transferId,omitempty"`
	RequestedAmount      *Money                 `json:"requestedAmount,omitempty" yaml:"requestedAmount,omitempty"`
	TransactionAmount    *Money                 `json:"transactionAmount,omitempty" yaml:"transactionAmount,omitempty"`
	Source               *BankAccount           `json:"source,omitempty" yaml:"source,omitempty"`
	Destinations         []*TransferEndpoint    `json:"destinations,omitempty" yaml:"destinations,omitempty"`
	TransferDestinations []*TransferDestination `json:"transferDestinations,omitempty" yaml:"transferDestinations,omitempty"`
	TransferInstructions *TransferInstructions  `json:"transferInstructions,omitempty" yaml:"transferInstructions,omitempty"`
	Description          string                 `json:"description,omitempty" yaml:"description,omitempty"`
	TokenRefID           string                 `json:"tokenRefId,omitempty" yaml:"tokenRefId,omitempty"`
	TokenInitiatorID     string                 `json:"tokenInitiatorId,omitempty" yaml:"tokenInitiatorId,omitempty"`
	ConsentID            string                 `json:"consentId,omitempty" yaml:"consentId,omitempty"`
}

type TransferResponse struct {
	TransactionID string         `json:"transactionId,omitempty" yaml:"transactionId,omitempty"`
	Status        TransferStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

// BulkTransfer is one entry of a bulk transfer
type BulkTransfer struct {
	Amount      string               `json:"amount,omitempty" yaml:"amount,omitempty"`
	Currency    string               `json:"currency,omitempty" yaml:"currency,omitempty"`
	RefID       string               `json:"refId,omitempty" yaml:"refId,omitempty"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Destination *TransferDestination `json:"destination,omitempty" yaml:"destination,omitempty"`
}

// BulkTransferBody is the authorized content of a bulk transfer
type BulkTransferBody struct {
	Transfers   []*BulkTransfer   `json:"transfers,omitempty" yaml:"transfers,omitempty"`
	TotalAmount string            `json:"totalAmount,omitempty" yaml:"totalAmount,omitempty"`
	Source      *TransferEndpoint `json:"source,omitempty" yaml:"source,omitempty"`
}

type CreateBulkTransferRequest struct {
	TokenBulkTransferID string            `json:"tokenBulkTransferId,omitempty" yaml:"tokenBulkTransferId,omitempty"`
	RefID               string            `json:"refId,omitempty" yaml:"refId,omitempty"`
	TokenInitiatorID    string            `json:"tokenInitiatorId,omitempty" yaml:"tokenInitiatorId,omitempty"`
	Payload             *BulkTransferBody `json:"payload,omitempty" yaml:"payload,omitempty"`
	Source              *BankAccount      `json:"source,omitempty" yaml:"source,omitempty"`
	SourceAccount       *TransferEndpoint `json:"sourceAccount,omitempty" yaml:"sourceAccount,omitempty"`
	Description         string            `json:"description,omitempty" yaml:"description,omitempty"`
	ConsentID           string            `json:"consentId,omitempty" yaml:"consentId,omitempty"`
}

// BulkTransactionResult is the per-entry result of a bulk transfer
type BulkTransactionResult struct {
	RefID         string         `json:"refId,omitempty" yaml:"refId,omitempty"`
	TransactionID string         `json:"transactionId,omitempty" yaml:"transactionId,omitempty"`
	Status        TransferStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

type CreateBulkTransferResponse struct {
	Transactions []*BulkTransactionResult `json:"transactions,omitempty" yaml:"transactions,omitempty"`
}

type GetTransferStatusRequest struct {
	TransferID    string `json:"transferId,omitempty" yaml:"transferId,omitempty"`
	TransactionID string `json:"transactionId,omitempty" yaml:"transactionId,omitempty"`
}

type GetTransferStatusResponse struct {
	TransactionID string         `json:"transactionId,omitempty" yaml:"transactionId,omitempty"`
	Status        TransferStatus `json:"status,omitempty" yaml:"status,omitempty"`
}

package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/msto63/bankprobe/internal/bankapi"
	"github.com/msto63/bankprobe/internal/catalog"
	"github.com/msto63/bankprobe/internal/fakebank"
	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
	coregrpc "github.com/msto63/bankprobe/pkg/core/grpc"
)

var declaredOrder = []string{
	"HealthCheck", "GetBalance", "GetAccount", "GetTransactions",
	"Transfer", "CreateBulkTransfer", "GetTransferStatus",
}

func TestDefault_Order(t *testing.T) {
	cat := catalog.Default(catalog.Fixtures{BankID: "bank-x"})
	assert.Equal(t, 7, cat.Len())
	assert.Equal(t, declaredOrder, cat.Names())

	for _, op := range cat.Operations() {
		assert.NotEmpty(t, op.Service, op.Name)
		assert.Contains(t, op.Method, "/"+op.Name)
		assert.NotNil(t, op.NewRequest())
	}
}

func TestLookup(t *testing.T) {
	cat := catalog.Default(catalog.Fixtures{})

	op, ok := cat.Lookup("getbalance")
	require.True(t, ok)
	assert.Equal(t, catalog.OpGetBalance, op.Name)
	assert.Equal(t, bankapi.GetBalanceMethod, op.Method)

	_, ok = cat.Lookup("Withdraw")
	assert.False(t, ok)
}

func TestSelect(t *testing.T) {
	cat := catalog.Default(catalog.Fixtures{})

	t.Run("keeps catalog order", func(t *testing.T) {
		sub, err := cat.Select("GetTransferStatus", "healthcheck", " GetAccount ")
		require.NoError(t, err)
		assert.Equal(t, []string{"HealthCheck", "GetAccount", "GetTransferStatus"}, sub.Names())
	})

	t.Run("no names selects all", func(t *testing.T) {
		sub, err := cat.Select()
		require.NoError(t, err)
		assert.Equal(t, declaredOrder, sub.Names())
	})

	t.Run("blank names select all", func(t *testing.T) {
		sub, err := cat.Select(" ", "", "\t")
		require.NoError(t, err)
		assert.Equal(t, declaredOrder, sub.Names())
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := cat.Select("HealthCheck", "Withdraw")
		require.Error(t, err)

		var ce *coreerrors.ConfigurationError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "bank.operations", ce.Field)
		assert.Contains(t, ce.Message, "Withdraw")
	})
}

func TestNew_Rejects(t *testing.T) {
	op := catalog.Default(catalog.Fixtures{}).Operations()[0]

	_, err := catalog.New(op, op)
	assert.Error(t, err)

	_, err = catalog.New(catalog.Descriptor{Name: "empty"})
	assert.Error(t, err)
}

func TestFixtures(t *testing.T) {
	f := catalog.Fixtures{BankID: "bank-x", ConsentID: "consent-1", AccountPayload: "acc-1"}

	health := f.HealthCheck()
	assert.Equal(t, "bank-x", health.BankID)

	balance := f.GetBalance()
	assert.Equal(t, "consent-1", balance.ConsentID)
	require.NotNil(t, balance.Account.Custom)
	assert.Equal(t, "acc-1", balance.Account.Custom.Payload)
	assert.True(t, balance.Account.AccountFeatures.SupportsInformation)

	striped := catalog.Fixtures{TransferID: "t:1", StripedTransfer: true}.Transfer()
	assert.Nil(t, striped.Source)
	assert.Nil(t, striped.RequestedAmount)
	require.NotNil(t, striped.TransferInstructions)
	assert.Len(t, striped.TransferInstructions.TransferDestinations, 1)

	full := catalog.Fixtures{TransferID: "t:1"}.Transfer()
	assert.NotNil(t, full.Source)
	assert.Len(t, full.Destinations, 1)
}

func TestDefault_TransferIDsStablePerCatalog(t *testing.T) {
	cat := catalog.Default(catalog.Fixtures{})

	transfer, _ := cat.Lookup(catalog.OpTransfer)
	status, _ := cat.Lookup(catalog.OpGetTransferStatus)

	tr := transfer.NewRequest().(*bankapi.TransferRequest)
	st := status.NewRequest().(*bankapi.GetTransferStatusRequest)
	assert.NotEmpty(t, tr.TransferID)
	assert.Equal(t, tr.TransferID, st.TransferID)

	other, _ := catalog.Default(catalog.Fixtures{}).Lookup(catalog.OpTransfer)
	assert.NotEqual(t, tr.TransferID, other.NewRequest().(*bankapi.TransferRequest).TransferID)
}

func TestInvoke_NormalizesErrors(t *testing.T) {
	bank := fakebank.New(fakebank.Script{Fail: map[string]codes.Code{catalog.OpGetBalance: codes.PermissionDenied}})
	local := fakebank.StartLocal(bank, nil)
	defer local.Stop()

	ch, err := coregrpc.OpenInsecure(coregrpc.DefaultClientConfig(local.Target()), local.DialOption())
	require.NoError(t, err)
	defer ch.Close(time.Second)

	cat := catalog.Default(catalog.Fixtures{BankID: "bank-x"})

	op, _ := cat.Lookup(catalog.OpGetBalance)
	resp, err := op.Invoke(context.Background(), ch, op.NewRequest())
	assert.Nil(t, resp)

	var re *coreerrors.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, catalog.OpGetBalance, re.Operation)
	assert.Equal(t, codes.PermissionDenied, re.Code)

	op, _ = cat.Lookup(catalog.OpGetAccount)
	resp, err = op.Invoke(context.Background(), ch, op.NewRequest())
	require.NoError(t, err)
	assert.IsType(t, &bankapi.GetAccountResponse{}, resp)

	_, err = op.Invoke(context.Background(), ch, &bankapi.HealthCheckRequest{})
	assert.Error(t, err)
}

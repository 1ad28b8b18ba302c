package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/msto63/bankprobe/internal/catalog"
	"github.com/msto63/bankprobe/internal/report"
	"github.com/msto63/bankprobe/internal/sequencer"
	"github.com/msto63/bankprobe/pkg/core/config"
	coregrpc "github.com/msto63/bankprobe/pkg/core/grpc"
	"github.com/msto63/bankprobe/pkg/core/logging"
	"github.com/msto63/bankprobe/pkg/core/metrics"
	"github.com/msto63/bankprobe/pkg/core/telemetry"
)

var log = logging.New("cli")

// pushJob is the Pushgateway job name of a run
const pushJob = "bankprobe"

var runFlags struct {
	target       string
	bankID       string
	ops          []string
	output       string
	insecure     bool
	trustedCerts string
	certChain    string
	privateKey   string
	serverName   string
	keepalive    time.Duration
	grace        time.Duration
	callTimeout  time.Duration
	striped      bool
	pushgateway  string
	otlp         string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the operation catalog against a bank",
	Long: `Calls every operation of the catalog once, in order, over one
mutual-TLS channel. Every outgoing call carries the institution identity.
Failed operations are reported and do not stop the run; the exit code is
non-zero only when the run could not start.

Bank API messages are sent as JSON (content-type application/grpc+json).
The bank must accept that codec; a server that only speaks protobuf
(application/grpc+proto) rejects every bank operation. The standard
health check used by "ping" is always sent as protobuf.

Examples:
  bankprobe run --target bank.example.com:443 --bank-id my-bank
  bankprobe run --ops HealthCheck,GetBalance --output json
  bankprobe run --insecure --target localhost:9300 --bank-id my-bank`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringVar(&runFlags.target, "target", "", "bank endpoint host:port")
	f.StringVar(&runFlags.bankID, "bank-id", "", "calling institution identifier")
	f.StringSliceVar(&runFlags.ops, "ops", nil, "operations to run (default: all)")
	f.StringVarP(&runFlags.output, "output", "o", "", "report format: text, json or yaml")
	f.BoolVar(&runFlags.insecure, "insecure", false, "use a plaintext channel (test banks only)")
	f.StringVar(&runFlags.trustedCerts, "trusted-certs", "", "CA bundle used to verify the bank")
	f.StringVar(&runFlags.certChain, "cert", "", "client certificate chain")
	f.StringVar(&runFlags.privateKey, "key", "", "client private key")
	f.StringVar(&runFlags.serverName, "server-name", "", "override the TLS verification name")
	f.DurationVar(&runFlags.keepalive, "keepalive", 0, "keepalive ping interval")
	f.DurationVar(&runFlags.grace, "grace", 0, "how long to drain in-flight calls on shutdown")
	f.DurationVar(&runFlags.callTimeout, "call-timeout", 0, "deadline of each operation")
	f.BoolVar(&runFlags.striped, "striped-transfer", false, "send Transfer without the duplicated legacy fields")
	f.StringVar(&runFlags.pushgateway, "pushgateway", "", "push run metrics to this Pushgateway URL")
	f.StringVar(&runFlags.otlp, "otlp-endpoint", "", "export spans to this OTLP gRPC endpoint")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return probe(ctx, cfg, cmd.OutOrStdout())
}

// applyRunFlags overrides the config with the flags given on the command line
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("target") {
		cfg.Bank.Target = runFlags.target
	}
	if f.Changed("bank-id") {
		cfg.Bank.ID = runFlags.bankID
	}
	if f.Changed("ops") {
		cfg.Bank.Operations = runFlags.ops
	}
	if f.Changed("output") {
		cfg.General.Output = runFlags.output
	}
	if f.Changed("insecure") {
		cfg.TLS.Insecure = runFlags.insecure
	}
	if f.Changed("trusted-certs") {
		cfg.TLS.TrustedCerts = runFlags.trustedCerts
	}
	if f.Changed("cert") {
		cfg.TLS.CertChain = runFlags.certChain
	}
	if f.Changed("key") {
		cfg.TLS.PrivateKey = runFlags.privateKey
	}
	if f.Changed("server-name") {
		cfg.TLS.ServerName = runFlags.serverName
	}
	if f.Changed("keepalive") {
		cfg.Channel.KeepaliveInterval.Duration = runFlags.keepalive
	}
	if f.Changed("grace") {
		cfg.Channel.ShutdownGrace.Duration = runFlags.grace
	}
	if f.Changed("call-timeout") {
		cfg.Channel.CallTimeout.Duration = runFlags.callTimeout
	}
	if f.Changed("striped-transfer") {
		cfg.Fixtures.StripedTransfer = runFlags.striped
	}
	if f.Changed("pushgateway") {
		cfg.Telemetry.PushgatewayURL = runFlags.pushgateway
	}
	if f.Changed("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint = runFlags.otlp
	}
}

// fixtures maps the fixtures section onto the catalog's request values
func fixtures(cfg *config.Config) catalog.Fixtures {
	return catalog.Fixtures{
		BankID:          cfg.Bank.ID,
		AccountBankID:   cfg.Fixtures.AccountBankID,
		AccountPayload:  cfg.Fixtures.AccountPayload,
		ConsentID:       cfg.Fixtures.ConsentID,
		TransferID:      cfg.Fixtures.TransferID,
		Currency:        cfg.Fixtures.Currency,
		Amount:          cfg.Fixtures.Amount,
		TxLimit:         int32(cfg.Fixtures.TxLimit), // bounded by Validate
		StripedTransfer: cfg.Fixtures.StripedTransfer,
	}
}

// probe performs one complete run and writes the report to out. Operation
// failures are part of the report; only setup failures are returned.
func probe(ctx context.Context, cfg *config.Config, out io.Writer, extra ...grpc.DialOption) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	cat, err := catalog.Default(fixtures(cfg)).Select(cfg.Bank.Operations...)
	if err != nil {
		return err
	}

	tracer, shutdownTracer, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: "bankprobe",
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Environment: cfg.General.Environment,
		Insecure:    cfg.Telemetry.OTLPInsecure,
		BankID:      cfg.Bank.ID,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			log.Warn("Failed to flush traces", "error", err)
		}
	}()

	ch, _, err := openChannel(cfg, extra...)
	if err != nil {
		return err
	}

	m := metrics.New()
	identity := coregrpc.Identity{Key: cfg.Bank.IdentityKey, Value: cfg.Bank.ID}
	conn := coregrpc.Intercept(ch,
		coregrpc.ClientIdentityInterceptor(identity, nil),
		coregrpc.ClientRequestIDInterceptor(),
		coregrpc.ClientMetricsInterceptor(m),
		coregrpc.ClientLoggingInterceptor(),
	).WithStream(coregrpc.ClientStreamIdentityInterceptor(identity, nil))

	log.Info("Starting run",
		"target", cfg.Bank.Target,
		"bank_id", cfg.Bank.ID,
		"operations", cat.Len(),
	)

	started := time.Now()
	outcomes := sequencer.New(cat, conn,
		sequencer.WithTracer(tracer),
		sequencer.WithCallTimeout(cfg.Channel.CallTimeout.Duration),
	).Run(ctx)
	elapsed := time.Since(started)

	if err := ch.Close(cfg.Channel.ShutdownGrace.Duration); err != nil {
		log.Warn("Channel did not close cleanly", "error", err)
	}

	sum := sequencer.Summarize(outcomes)
	m.ObserveRun(sum.Failed, elapsed)
	log.Info("Run finished",
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"duration", elapsed.String(),
	)

	if url := cfg.Telemetry.PushgatewayURL; url != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := m.Push(pushCtx, url, pushJob, cfg.Bank.ID); err != nil {
			log.Warn("Metrics push failed", "error", err)
		}
		cancel()
	}

	return report.Write(out, cfg.General.Output, report.New(cfg.Bank.Target, cfg.Bank.ID, started, outcomes))
}

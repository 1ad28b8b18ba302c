package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/msto63/bankprobe/internal/bankapi"
	"github.com/msto63/bankprobe/internal/catalog"
	"github.com/msto63/bankprobe/pkg/core/config"
	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
	coregrpc "github.com/msto63/bankprobe/pkg/core/grpc"
	"github.com/msto63/bankprobe/pkg/core/health"
)

var pingFlags struct {
	target   string
	bankID   string
	service  string
	insecure bool
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Standard gRPC health check over the secure channel",
	Long: `Runs preflight checks over the same mutual-TLS channel a run would
use: client certificate validity, the standard grpc.health.v1 Check and the
bank API HealthCheck. Useful to tell certificate problems from bank API
problems.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("target") {
			cfg.Bank.Target = pingFlags.target
		}
		if f.Changed("bank-id") {
			cfg.Bank.ID = pingFlags.bankID
		}
		if f.Changed("insecure") {
			cfg.TLS.Insecure = pingFlags.insecure
		}
		return ping(cmd.Context(), cfg, pingFlags.service, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().StringVar(&pingFlags.target, "target", "", "bank endpoint host:port")
	pingCmd.Flags().StringVar(&pingFlags.bankID, "bank-id", "", "calling institution identifier")
	pingCmd.Flags().StringVar(&pingFlags.service, "service", "", "service to check (default: server)")
	pingCmd.Flags().BoolVar(&pingFlags.insecure, "insecure", false, "use a plaintext channel (test banks only)")
}

// certWarning is how long before expiry the client certificate is flagged
const certWarning = 14 * 24 * time.Hour

// ping runs the preflight checks over one channel and prints one line per
// check. It fails when any check is unhealthy.
func ping(ctx context.Context, cfg *config.Config, service string, out io.Writer, extra ...grpc.DialOption) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ch, creds, err := openChannel(cfg, extra...)
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close(cfg.Channel.ShutdownGrace.Duration) }()

	identity := coregrpc.Identity{Key: cfg.Bank.IdentityKey, Value: cfg.Bank.ID}
	conn := coregrpc.Intercept(ch, coregrpc.ClientIdentityInterceptor(identity, nil))
	timeout := cfg.Channel.CallTimeout.Duration

	checks := health.NewRegistry(cfg.Bank.Target)
	if creds != nil {
		checks.Register(health.CertificateCheck("client-certificate", creds.Leaf(), certWarning))
	}
	checks.Register(health.GRPCCheck("grpc-health", conn, service, timeout))

	op, _ := catalog.Default(fixtures(cfg)).Lookup(catalog.OpHealthCheck)
	checks.RegisterFunc("bank-api", func(ctx context.Context) health.CheckResult {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		resp, err := op.Invoke(ctx, conn, op.NewRequest())
		if err != nil {
			return health.CheckResult{Status: health.StatusUnhealthy, Message: err.Error()}
		}
		return health.CheckResult{Status: health.StatusHealthy, Message: string(resp.(*bankapi.HealthCheckResponse).Status)}
	})

	report := checks.Check(ctx)
	for _, c := range report.Checks {
		if _, err := fmt.Fprintf(out, "%-20s %-10s %-40s (%dms)\n", c.Name, c.Status, c.Message, c.Duration.Milliseconds()); err != nil {
			return err
		}
	}
	if !report.Healthy() {
		return coreerrors.NewTransportError("ping", cfg.Bank.Target, fmt.Sprintf("preflight %s", report.Status), nil)
	}
	_, err = fmt.Fprintf(out, "%s %s\n", cfg.Bank.Target, report.Status)
	return err
}

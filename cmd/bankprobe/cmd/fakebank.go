package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"

	"github.com/msto63/bankprobe/internal/bankapi"
	"github.com/msto63/bankprobe/internal/fakebank"
	"github.com/msto63/bankprobe/pkg/core/certs"
	coreerrors "github.com/msto63/bankprobe/pkg/core/errors"
	coregrpc "github.com/msto63/bankprobe/pkg/core/grpc"
)

var fakebankFlags struct {
	host         string
	port         int
	insecure     bool
	genCerts     string
	trustedCerts string
	serverCert   string
	serverKey    string
	fail         []string
	delay        []string
	balance      string
	grace        time.Duration
}

var fakebankCmd = &cobra.Command{
	Use:   "fakebank",
	Short: "Serve a scriptable bank for local testing",
	Long: `Serves the three bank API services plus grpc.health.v1. Operations
can be scripted to fail with a status code or to stall.

Examples:
  bankprobe fakebank --gen-certs ./config/tls
  bankprobe fakebank --insecure --fail GetAccount=UNAVAILABLE
  bankprobe fakebank --insecure --delay Transfer=3s --balance 99.00`,
	Args: cobra.NoArgs,
	RunE: runFakebank,
}

func init() {
	rootCmd.AddCommand(fakebankCmd)

	f := fakebankCmd.Flags()
	f.StringVar(&fakebankFlags.host, "host", "127.0.0.1", "listen host")
	f.IntVar(&fakebankFlags.port, "port", 9300, "listen port")
	f.BoolVar(&fakebankFlags.insecure, "insecure", false, "serve plaintext instead of mutual TLS")
	f.StringVar(&fakebankFlags.genCerts, "gen-certs", "", "generate a throwaway CA, server and client certificate into this directory")
	f.StringVar(&fakebankFlags.trustedCerts, "trusted-certs", "config/tls/trusted-certs.pem", "CA bundle used to verify clients")
	f.StringVar(&fakebankFlags.serverCert, "server-cert", "config/tls/server-cert.pem", "server certificate chain")
	f.StringVar(&fakebankFlags.serverKey, "server-key", "config/tls/server-key.pem", "server private key")
	f.StringSliceVar(&fakebankFlags.fail, "fail", nil, "operation=CODE pairs, e.g. GetAccount=UNAVAILABLE")
	f.StringSliceVar(&fakebankFlags.delay, "delay", nil, "operation=duration pairs, e.g. Transfer=2s")
	f.StringVar(&fakebankFlags.balance, "balance", "", "GetBalance value in GBP (default 12.50)")
	f.DurationVar(&fakebankFlags.grace, "grace", 5*time.Second, "graceful stop timeout")
}

func runFakebank(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	script, err := parseScript(fakebankFlags.fail, fakebankFlags.delay, fakebankFlags.balance)
	if err != nil {
		return err
	}

	creds, err := serverCredentials(cmd)
	if err != nil {
		return err
	}

	cfg := coregrpc.DefaultServerConfig()
	cfg.Host = fakebankFlags.host
	cfg.Port = fakebankFlags.port

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fakebank.Serve(ctx, cfg, creds, fakebank.New(script), fakebankFlags.grace)
}

// serverCredentials returns nil for plaintext, freshly generated material
// with --gen-certs, or the configured PEM files otherwise
func serverCredentials(cmd *cobra.Command) (*coregrpc.Credentials, error) {
	if fakebankFlags.insecure {
		return nil, nil
	}

	if dir := fakebankFlags.genCerts; dir != "" {
		set, err := certs.GenerateSet("localhost", fakebankFlags.host)
		if err != nil {
			return nil, err
		}
		files, err := certs.WriteSet(dir, set)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Client material written:\n  trusted_certs = %q\n  cert_chain    = %q\n  private_key   = %q\n",
			files.TrustedCerts, files.ClientCert, files.ClientKey)
		return coregrpc.NewCredentials(set.CA.CertPEM, set.Server.CertPEM, set.Server.KeyPEM)
	}

	return coregrpc.LoadCredentials(coregrpc.TLSFiles{
		TrustedCerts: fakebankFlags.trustedCerts,
		CertChain:    fakebankFlags.serverCert,
		PrivateKey:   fakebankFlags.serverKey,
	})
}

// parseScript turns the --fail, --delay and --balance flags into a script
func parseScript(fail, delay []string, balance string) (fakebank.Script, error) {
	script := fakebank.Script{
		Fail:  make(map[string]codes.Code),
		Delay: make(map[string]time.Duration),
	}

	for _, pair := range fail {
		op, value, err := splitPair("fail", pair)
		if err != nil {
			return script, err
		}
		var code codes.Code
		if err := code.UnmarshalJSON([]byte(strconv.Quote(strings.ToUpper(value)))); err != nil {
			return script, coreerrors.NewConfigurationError("fail", fmt.Sprintf("unknown status code %q", value), err)
		}
		script.Fail[op] = code
	}

	for _, pair := range delay {
		op, value, err := splitPair("delay", pair)
		if err != nil {
			return script, err
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return script, coreerrors.NewConfigurationError("delay", fmt.Sprintf("invalid duration %q", value), err)
		}
		script.Delay[op] = d
	}

	if balance != "" {
		script.Balance = &bankapi.Money{Currency: "GBP", Value: balance}
	}
	return script, nil
}

func splitPair(field, pair string) (string, string, error) {
	op, value, ok := strings.Cut(pair, "=")
	op, value = strings.TrimSpace(op), strings.TrimSpace(value)
	if !ok || op == "" || value == "" {
		return "", "", coreerrors.NewConfigurationError(field, fmt.Sprintf("expected operation=value, got %q", pair), nil)
	}
	return op, value, nil
}

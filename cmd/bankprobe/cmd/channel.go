package cmd

import (
	"google.golang.org/grpc"

	"github.com/msto63/bankprobe/pkg/core/config"
	coregrpc "github.com/msto63/bankprobe/pkg/core/grpc"
	"github.com/msto63/bankprobe/pkg/core/version"
)

// clientConfig maps the channel section onto the gRPC client settings
func clientConfig(cfg *config.Config) coregrpc.ClientConfig {
	cc := coregrpc.DefaultClientConfig(cfg.Bank.Target)
	cc.MaxRecvMsgSize = cfg.Channel.MaxMsgSize
	cc.MaxSendMsgSize = cfg.Channel.MaxMsgSize
	cc.KeepaliveInterval = cfg.Channel.KeepaliveInterval.Duration
	cc.KeepaliveTimeout = cfg.Channel.KeepaliveTimeout.Duration
	cc.ShutdownGrace = cfg.Channel.ShutdownGrace.Duration
	cc.CallTimeout = cfg.Channel.CallTimeout.Duration
	return cc
}

// openChannel loads the mutual-TLS material and opens the channel. With
// tls.insecure set the channel is plaintext, which only test banks accept,
// and the returned credentials are nil.
func openChannel(cfg *config.Config, extra ...grpc.DialOption) (*coregrpc.Channel, *coregrpc.Credentials, error) {
	opts := append([]grpc.DialOption{grpc.WithUserAgent(version.UserAgent())}, extra...)
	cc := clientConfig(cfg)

	if cfg.TLS.Insecure {
		log.Warn("TLS disabled, using a plaintext channel", "target", cc.Target)
		ch, err := coregrpc.OpenInsecure(cc, opts...)
		return ch, nil, err
	}

	creds, err := coregrpc.LoadCredentials(coregrpc.TLSFiles{
		TrustedCerts: cfg.TLS.TrustedCerts,
		CertChain:    cfg.TLS.CertChain,
		PrivateKey:   cfg.TLS.PrivateKey,
		ServerName:   cfg.TLS.ServerName,
	})
	if err != nil {
		return nil, nil, err
	}
	ch, err := coregrpc.Open(cc, creds, opts...)
	return ch, creds, err
}

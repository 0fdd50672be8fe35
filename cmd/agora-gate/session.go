package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/layer-3/agora-gate/adapters/wallet"
	"github.com/layer-3/agora-gate/adapters/walletstate"
	"github.com/layer-3/agora-gate/client"
	"github.com/layer-3/agora-gate/core"
	"github.com/layer-3/agora-gate/internal/config"
)

const defaultWebURL = "http://localhost:3000"

// sessionFlags are shared by every command that talks to a running gateway
type sessionFlags struct {
	web        string
	jarPath    string
	connector  string
	privateKey string
	chainID    uint64
}

func (f *sessionFlags) register(cmd *cobra.Command, withWallet bool) {
	cmd.Flags().StringVar(&f.web, "web", defaultWebURL, "Base URL of the session gateway")
	cmd.Flags().StringVar(&f.jarPath, "jar", "", "Cookie jar file (default next to the wallet state)")
	if !withWallet {
		return
	}
	cmd.Flags().StringVar(&f.connector, "connector", "", "Wallet connector: injected, walletconnect or key (default: last used)")
	cmd.Flags().StringVar(&f.privateKey, "private-key", "", "Hex secp256k1 key for the key connector (or AGORA_PRIVATE_KEY)")
	cmd.Flags().Uint64Var(&f.chainID, "chain", 0, "Chain to switch the wallet to (default from config)")
}

// cliSession bundles what the session commands need
type cliSession struct {
	cfg     *config.Config
	log     zerolog.Logger
	flags   *sessionFlags
	state   *walletstate.FileStore
	jar     *client.FileJar
	bff     *client.Client
	adapter *wallet.Adapter
	auth    *client.Authenticator
}

func openSession(configPath string, flags *sessionFlags) (*cliSession, error) {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	state, err := walletstate.NewFileStore(cfg.Wallet.StatePath)
	if err != nil {
		return nil, err
	}

	jarPath := flags.jarPath
	if jarPath == "" {
		jarPath = filepath.Join(filepath.Dir(state.Path()), "cookies.json")
	}
	jar := client.OpenFileJar(jarPath)

	bffClient, err := client.New(flags.web, jar)
	if err != nil {
		return nil, err
	}

	adapter := wallet.NewAdapter(
		wallet.WithInjected(wallet.InjectedFactory(cfg.Wallet.InjectedRPCURL)),
		wallet.WithWalletConnect(wallet.WalletConnectFactory(
			cfg.Wallet.WalletConnectProjectID,
			cfg.Wallet.WalletConnectBridgeURL,
			cfg.Wallet.ChainID,
		)),
		wallet.WithLogger(log),
	)

	return &cliSession{
		cfg:     cfg,
		log:     log,
		flags:   flags,
		state:   state,
		jar:     jar,
		bff:     bffClient,
		adapter: adapter,
		auth:    client.NewAuthenticator(bffClient, adapter, state, log),
	}, nil
}

func (s *cliSession) chainID() uint64 {
	if s.flags.chainID != 0 {
		return s.flags.chainID
	}
	return s.cfg.Wallet.ChainID
}

// connect opens the requested connector, falling back to the one cached from the last run
func (s *cliSession) connect(ctx context.Context) (*wallet.Session, error) {
	connector := core.Connector(strings.ToLower(s.flags.connector))
	if connector == "" {
		connector = s.state.Load().Connector
	}

	switch connector {
	case core.ConnectorKey:
		hexKey := s.flags.privateKey
		if hexKey == "" {
			hexKey = os.Getenv("AGORA_PRIVATE_KEY")
		}
		if hexKey == "" {
			return nil, errors.New("the key connector needs --private-key or AGORA_PRIVATE_KEY")
		}
		key, err := wallet.ParsePrivateKey(hexKey)
		if err != nil {
			return nil, err
		}
		return s.adapter.ConnectProvider(ctx, wallet.NewKeyProvider(key, s.chainID()), core.ConnectorKey)

	case core.ConnectorWalletConnect:
		return s.adapter.ConnectWalletConnect(ctx)

	case core.ConnectorInjected:
		return s.adapter.ConnectWallet(ctx)
	}

	return nil, fmt.Errorf("unknown connector %q", connector)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loginCmd(configPath *string) *cobra.Command {
	flags := &sessionFlags{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a wallet",
		Long: `Connect a wallet, switch it to the configured chain, sign the
login challenge and keep the session cookies for later commands.

Examples:
  agora-gate login --connector key --private-key 0x...
  agora-gate login --connector walletconnect --web https://agora.example`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*configPath, flags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sess, info, err := s.auth.ConnectAndSignIn(ctx, s.connect, s.chainID())
			if sess != nil {
				defer func() { _ = s.adapter.Disconnect(context.Background(), sess) }()
			}
			if err != nil {
				return err
			}
			if err := s.jar.Err(); err != nil {
				return fmt.Errorf("signed in but the session was not kept: %w", err)
			}

			fmt.Printf("Signed in as %s via %s\n", info.SessionAddress(), sess.Connector)
			return nil
		},
	}

	flags.register(cmd, true)
	return cmd
}

func meCmd(configPath *string) *cobra.Command {
	flags := &sessionFlags{}

	cmd := &cobra.Command{
		Use:   "me",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*configPath, flags)
			if err != nil {
				return err
			}

			info, err := s.bff.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}

	flags.register(cmd, false)
	return cmd
}

func logoutCmd(configPath *string) *cobra.Command {
	flags := &sessionFlags{}

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the cached wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*configPath, flags)
			if err != nil {
				return err
			}

			if err := s.auth.SignOut(cmd.Context(), nil); err != nil {
				return err
			}
			if err := s.jar.Clear(); err != nil {
				return err
			}

			fmt.Println("Signed out")
			return nil
		},
	}

	flags.register(cmd, false)
	return cmd
}

func adminCmd(configPath *string) *cobra.Command {
	flags := &sessionFlags{}
	var path string

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Unlock operator access and read an admin route",
		Long: `Sign the admin challenge with the wallet behind the current
session, then fetch an operator route. The wallet must match the
signed-in address.

Examples:
  agora-gate admin --connector key --private-key 0x...
  agora-gate admin --path /api/admin/anchors?limit=20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(*configPath, flags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sess, err := s.connect(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.adapter.Disconnect(context.Background(), sess) }()

			data, err := s.auth.AdminGet(ctx, sess, path)
			if err != nil {
				return err
			}
			if err := s.jar.Err(); err != nil {
				s.log.Warn().Err(err).Msg("admin access will not carry over to the next command")
			}

			var out any
			if err := json.Unmarshal(data, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVar(&path, "path", "/api/admin/metrics", "Admin route to read")
	return cmd
}

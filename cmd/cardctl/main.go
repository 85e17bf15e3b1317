// Package main はカード登録クライアントCLIのエントリポイント。
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"card-registration-kit/config"
	"card-registration-kit/internal/capability"
	"card-registration-kit/internal/domain"
	"card-registration-kit/internal/infra"
	"card-registration-kit/internal/validation"
)

const version = "1.0.0"

var (
	cfg     *config.Config
	output  string
	timeout time.Duration

	shutdownTracer infra.ShutdownFunc
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "cardctl",
		Short:        "Card registration client CLI",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .envファイルを読み込む（存在しない場合は無視）
			_ = godotenv.Load()
			cfg = config.Load()

			var err error
			shutdownTracer, err = infra.InitTracer(cmd.Context(), cfg, infra.Component{Name: "cardctl", Version: version})
			if err != nil {
				return fmt.Errorf("initializing tracer: %w", err)
			}
			// 標準出力は結果専用
			infra.SetupLogger(cfg, os.Stderr)

			if !cmd.Flags().Changed("timeout") {
				timeout = cfg.HTTPTimeout
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if shutdownTracer == nil {
				return nil
			}
			return shutdownTracer(context.Background())
		},
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout (defaults to HTTP_TIMEOUT)")

	// サブコマンド登録
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(probeCmd())
	rootCmd.AddCommand(preregisterCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cardctl version %s\n", version)
		},
	}
}

// cardFlags はカード情報のフラグ。
type cardFlags struct {
	number   string
	cardType string
	expiry   string
	cvv      string
}

func (f *cardFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.number, "card-number", "", "Card number (digits only)")
	cmd.Flags().StringVar(&f.cardType, "card-type", string(domain.CardTypeCBVisaMastercard), "Card type: AMEX, CB_VISA_MASTERCARD, MAESTRO, BCMC")
	cmd.Flags().StringVar(&f.expiry, "expiry", "", "Expiration date (MMYY)")
	cmd.Flags().StringVar(&f.cvv, "cvv", "", "Card verification value")
	cmd.MarkFlagRequired("card-number")
}

func (f *cardFlags) card() (domain.CardInput, error) {
	cardType, err := domain.ParseCardType(f.cardType)
	if err != nil {
		return domain.CardInput{}, fmt.Errorf("%w: %s", err, f.cardType)
	}
	return domain.CardInput{
		Number: f.number,
		Type:   cardType,
		Expiry: f.expiry,
		CVV:    f.cvv,
	}, nil
}

// validateCmd はネットワークを使わずにカード情報を検証する。
func validateCmd() *cobra.Command {
	var flags cardFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate card details locally without contacting the platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			card, err := flags.card()
			if err != nil {
				return err
			}
			if err := validation.ValidateCardInput(card, time.Now()); err != nil {
				return printResultError(cmd, err)
			}
			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), `{"valid":true}`)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Card details are valid")
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// probeResult はprobeコマンドのJSON出力。
type probeResult struct {
	Host                  string `json:"host"`
	NativeRuntime         bool   `json:"nativeRuntime"`
	CredentialedCORS      bool   `json:"credentialedCORS"`
	LegacyCrossDomain     bool   `json:"legacyCrossDomain"`
	SupportsCrossOrigin   bool   `json:"supportsCrossOrigin"`
	UsesLegacyCrossDomain bool   `json:"usesLegacyCrossDomain"`
}

// probeCmd はホストのクロスオリジン通信の可否を表示する。
func probeCmd() *cobra.Command {
	var hostName string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Show whether the host runtime can make cross-origin requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("host") {
				hostName = cfg.HostRuntime
			}
			host, err := capability.ParseHost(hostName)
			if err != nil {
				return err
			}

			supported := capability.SupportsCrossOriginRequests(host)
			if output == "json" {
				return writeJSON(cmd, probeResult{
					Host:                  hostName,
					NativeRuntime:         host.NativeRuntime,
					CredentialedCORS:      host.CredentialedCORS,
					LegacyCrossDomain:     host.LegacyCrossDomain,
					SupportsCrossOrigin:   supported,
					UsesLegacyCrossDomain: host.UsesLegacyPath(),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "host: %s\n", hostName)
			switch {
			case !supported:
				fmt.Fprintln(out, "cross-origin requests: unsupported")
			case host.UsesLegacyPath():
				fmt.Fprintln(out, "cross-origin requests: supported (legacy)")
			default:
				fmt.Fprintln(out, "cross-origin requests: supported")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&hostName, "host", "native", "Host runtime: native, browser, legacy-browser, restricted (defaults to HOST_RUNTIME)")
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"card-registration-kit/internal/capability"
	"card-registration-kit/internal/domain"
	"card-registration-kit/internal/transport"
	"card-registration-kit/internal/usecase"
)

// registerOutput はregisterコマンドのJSON出力。
type registerOutput struct {
	ID               string `json:"Id"`
	RegistrationData string `json:"RegistrationData"`
	CompletionURL    string `json:"CompletionURL"`
}

// contextFlags はカード登録コンテキストのフラグ。
type contextFlags struct {
	file                string
	id                  string
	cardRegistrationURL string
	preregistrationData string
	accessKey           string
}

func (f *contextFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.file, "context-file", "", "JSON file with Id, CardRegistrationURL, PreregistrationData, AccessKey (- for stdin)")
	cmd.Flags().StringVar(&f.id, "id", "", "Card registration ID")
	cmd.Flags().StringVar(&f.cardRegistrationURL, "url", "", "Card registration URL")
	cmd.Flags().StringVar(&f.preregistrationData, "data", "", "Preregistration data")
	cmd.Flags().StringVar(&f.accessKey, "access-key", "", "Access key")
}

// load はファイルを読み込み、個別フラグで上書きする。
func (f *contextFlags) load(stdin io.Reader) (domain.RegistrationContext, error) {
	var rc domain.RegistrationContext
	if f.file != "" {
		var r io.Reader = stdin
		if f.file != "-" {
			file, err := os.Open(f.file)
			if err != nil {
				return rc, fmt.Errorf("opening context file: %w", err)
			}
			defer file.Close()
			r = file
		}
		if err := json.NewDecoder(r).Decode(&rc); err != nil {
			return rc, fmt.Errorf("parsing context file: %w", err)
		}
	}

	if f.id != "" {
		rc.ID = f.id
	}
	if f.cardRegistrationURL != "" {
		rc.CardRegistrationURL = f.cardRegistrationURL
	}
	if f.preregistrationData != "" {
		rc.PreregistrationData = f.preregistrationData
	}
	if f.accessKey != "" {
		rc.AccessKey = f.accessKey
	}

	if rc.ID == "" || rc.CardRegistrationURL == "" {
		return rc, fmt.Errorf("registration context requires Id and CardRegistrationURL (use --context-file or --id/--url)")
	}
	return rc, nil
}

// registerCmd はカード情報をトークン化し、登録完了用のデータを表示する。
func registerCmd() *cobra.Command {
	var (
		ctxFlags contextFlags
		cf       cardFlags
		hostName string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Tokenize a card against the registration context",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := ctxFlags.load(cmd.InOrStdin())
			if err != nil {
				return err
			}
			card, err := cf.card()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("host") {
				hostName = cfg.HostRuntime
			}
			host, err := capability.ParseHost(hostName)
			if err != nil {
				return err
			}

			tr := transport.New(transport.NewHTTPClient(timeout), host,
				transport.WithRequestPolicy(transport.HTTPSOnly))
			session := usecase.NewRegistrationSession(tr, host)
			session.Init(rc)

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			// タイムアウトはtransportが001596として結果に反映するため、解決まで待つ
			result, err := session.RegisterCard(ctx, card).Result()
			if err != nil {
				return printResultError(cmd, err)
			}

			out := registerOutput{
				ID:               result.ID,
				RegistrationData: result.RegistrationData,
				CompletionURL:    domain.CompletionURL(cfg.PlatformBaseURL, cfg.PlatformClientID, result.ID),
			}
			if output == "json" {
				return writeJSON(cmd, out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Tokenized card registration %q\n", out.ID)
			fmt.Fprintf(w, "RegistrationData: %s\n", out.RegistrationData)
			fmt.Fprintf(w, "Complete with: PUT %s\n", out.CompletionURL)
			return nil
		},
	}
	ctxFlags.register(cmd)
	cf.register(cmd)
	cmd.Flags().StringVar(&hostName, "host", "native", "Host runtime: native, browser, legacy-browser, restricted (defaults to HOST_RUNTIME)")
	return cmd
}

// preregisterCmd はサンドボックスで事前登録を発行する。
func preregisterCmd() *cobra.Command {
	var sandboxURL string
	cmd := &cobra.Command{
		Use:   "preregister",
		Short: "Create a card registration on the sandbox platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sandboxURL == "" {
				sandboxURL = cfg.SandboxPublicURL
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			url := strings.TrimRight(sandboxURL, "/") + "/v1/cardregistrations"
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
			if err != nil {
				return fmt.Errorf("creating request: %w", err)
			}
			resp, err := transport.NewHTTPClient(timeout).Do(req)
			if err != nil {
				return fmt.Errorf("API request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}
			if resp.StatusCode != http.StatusCreated {
				return handleErrorResponse(resp.StatusCode, body)
			}

			var rc domain.RegistrationContext
			if err := json.Unmarshal(body, &rc); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			return writeJSON(cmd, rc)
		},
	}
	cmd.Flags().StringVar(&sandboxURL, "sandbox-url", "", "Sandbox base URL (defaults to SANDBOX_PUBLIC_URL)")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResultError はResultErrorを表示し、終了コードを非0にするエラーを返す。
func printResultError(cmd *cobra.Command, err error) error {
	re, ok := domain.AsResultError(err)
	if !ok {
		return err
	}
	if output == "json" {
		if encErr := writeJSON(cmd, re); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "ResultCode: %s\nResultMessage: %s\n", re.ResultCode, re.ResultMessage)
	}
	return fmt.Errorf("card registration failed with code %s", re.ResultCode)
}

func handleErrorResponse(statusCode int, body []byte) error {
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return fmt.Errorf("server error: %s", errResp.Message)
	}
	return fmt.Errorf("server returned status %d", statusCode)
}

package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/drost/internal/authstore"
	"github.com/nextlevelbuilder/drost/internal/config"
	"github.com/nextlevelbuilder/drost/internal/providers"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider credential profiles in the auth store",
	}
	cmd.AddCommand(authListCmd())
	cmd.AddCommand(authDoctorCmd())
	cmd.AddCommand(authSetAPIKeyCmd())
	cmd.AddCommand(authSetTokenCmd())
	cmd.AddCommand(authSetSetupTokenCmd())
	return cmd
}

// authStorePath places the credential store as a sibling of the config
// file, so `--config` also relocates where credentials are read from.
func authStorePath() string {
	return filepath.Join(filepath.Dir(resolveConfigPath()), "auth.json")
}

func openAuthStore(cfg *config.Config) (*authstore.Store, error) {
	return authstore.Open(authStorePath(), config.ExpandHome(cfg.Workspace))
}

func authListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored credential profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := openAuthStore(cfg)
			if err != nil {
				return fmt.Errorf("open auth store: %w", err)
			}
			profiles := store.List()
			if len(profiles) == 0 {
				fmt.Println(warnStyle.Render("no stored credential profiles (env/.env fallback still applies)"))
				return nil
			}
			sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
			for _, p := range profiles {
				fmt.Printf("%-16s provider=%-12s type=%-8s updated=%s\n", p.ID, p.Provider, p.Credential.Type, p.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

// authDoctorCmd probes each known provider id by resolving its bearer
// token through the auth store (profile, then env/.env fallback) and
// sending a minimal chat call, the same path live traffic takes.
func authDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Resolve and probe credentials for anthropic, openai, and xai",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := openAuthStore(cfg)
			if err != nil {
				return fmt.Errorf("open auth store: %w", err)
			}

			providerBases := map[string]string{
				"anthropic": cfg.Providers.Anthropic.APIBase,
				"openai":    cfg.Providers.OpenAI.APIBase,
				"xai":       cfg.Providers.XAI.APIBase,
			}
			for _, name := range []string{"anthropic", "openai", "xai"} {
				key := store.ResolveBearerToken(name)
				if key == "" {
					fmt.Println(warnStyle.Render(fmt.Sprintf("%-12s no credential resolved", name)))
					continue
				}
				var p providers.Provider
				if name == "anthropic" {
					p = providers.NewAnthropicProvider(name, key, providerBases[name], "")
				} else {
					p = providers.NewOpenAIProvider(name, key, providerBases[name], "")
				}
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				_, err := p.Chat(ctx, providers.ChatRequest{
					Messages: []providers.Message{{Role: "user", Content: "ping"}},
					Model:    p.DefaultModel(),
				})
				cancel()
				if err != nil {
					fmt.Println(errStyle.Render(fmt.Sprintf("%-12s FAIL: %v", name, err)))
					continue
				}
				fmt.Println(okStyle.Render(fmt.Sprintf("%-12s OK", name)))
			}
			return nil
		},
	}
}

func authSetAPIKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-api-key <provider> <key>",
		Short: "Store a provider API key in the auth store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveCredential(args[0], args[0], authstore.CredentialAPIKey, args[1], "")
		},
	}
}

// authSetTokenCmd stores an OAuth-style access token for a profile id
// distinct from its provider (e.g. a secondary account under the same
// provider).
func authSetTokenCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "set-token <profile-id> <access-token>",
		Short: "Store an OAuth access token under a named profile id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				provider = args[0]
			}
			return saveCredential(args[0], provider, authstore.CredentialToken, "", args[1])
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "provider kind this profile authenticates (defaults to the profile id)")
	return cmd
}

// authSetSetupTokenCmd stores a provider's short-lived setup token
// (e.g. ANTHROPIC_SETUP_TOKEN's stored equivalent) as an api_key
// credential, since the auth store's env fallback already treats
// setup tokens and API keys as interchangeable bearer values.
func authSetSetupTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-setup-token <provider> <token>",
		Short: "Store a provider setup token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return saveCredential(args[0], args[0], authstore.CredentialAPIKey, args[1], "")
		},
	}
}

func saveCredential(id, provider string, kind authstore.CredentialType, value, accessToken string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openAuthStore(cfg)
	if err != nil {
		return fmt.Errorf("open auth store: %w", err)
	}
	if err := store.Set(authstore.Profile{
		ID:       id,
		Provider: provider,
		Credential: authstore.Credential{
			Type:        kind,
			Value:       value,
			AccessToken: accessToken,
		},
	}); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("saved credential profile %q", id)))
	return nil
}

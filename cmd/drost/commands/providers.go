package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/drost/internal/config"
	"github.com/nextlevelbuilder/drost/internal/providers"
)

func providersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect the provider registry",
	}
	cmd.AddCommand(providersListCmd())
	cmd.AddCommand(providersProbeCmd())
	return cmd
}

func buildRegistryFromConfig(cfg *config.Config) *providers.Registry {
	registry := providers.NewRegistry()
	if cfg.Providers.Anthropic.APIKey != "" {
		registry.Register("anthropic", providers.NewAnthropicProvider("anthropic", cfg.Providers.Anthropic.APIKey, cfg.Providers.Anthropic.APIBase, cfg.Providers.Anthropic.DefaultModel))
	}
	if cfg.Providers.OpenAI.APIKey != "" {
		registry.Register("openai", providers.NewOpenAIProvider("openai", cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Providers.OpenAI.DefaultModel))
	}
	if cfg.Providers.XAI.APIKey != "" {
		registry.Register("xai", providers.NewOpenAIProvider("xai", cfg.Providers.XAI.APIKey, cfg.Providers.XAI.APIBase, cfg.Providers.XAI.DefaultModel))
	}
	return registry
}

func providersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provider ids that would be wired into the router",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ids := buildRegistryFromConfig(cfg).IDs()
			sort.Strings(ids)
			if len(ids) == 0 {
				fmt.Println(warnStyle.Render("no providers configured"))
				return nil
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func providersProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe <provider>",
		Short: "Send a minimal chat request through one provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			p := buildRegistryFromConfig(cfg).Get(args[0])
			if p == nil {
				return fmt.Errorf("provider %q is not configured", args[0])
			}
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			resp, err := p.Chat(ctx, providers.ChatRequest{
				Messages: []providers.Message{{Role: "user", Content: "ping"}},
				Model:    p.DefaultModel(),
			})
			if err != nil {
				return fmt.Errorf("probe %s: %w", args[0], err)
			}
			tokens := 0
			if resp.Usage != nil {
				tokens = resp.Usage.TotalTokens
			}
			fmt.Println(okStyle.Render(fmt.Sprintf("%s responded (%d tokens)", args[0], tokens)))
			return nil
		},
	}
}

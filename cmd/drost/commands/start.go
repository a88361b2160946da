package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/drost/internal/authstore"
	"github.com/nextlevelbuilder/drost/internal/bus"
	"github.com/nextlevelbuilder/drost/internal/channels/telegram"
	"github.com/nextlevelbuilder/drost/internal/config"
	"github.com/nextlevelbuilder/drost/internal/configwatch"
	"github.com/nextlevelbuilder/drost/internal/continuity"
	"github.com/nextlevelbuilder/drost/internal/controlplane"
	"github.com/nextlevelbuilder/drost/internal/gateway"
	"github.com/nextlevelbuilder/drost/internal/modules"
	"github.com/nextlevelbuilder/drost/internal/orchestration"
	"github.com/nextlevelbuilder/drost/internal/pathpolicy"
	"github.com/nextlevelbuilder/drost/internal/providers"
	"github.com/nextlevelbuilder/drost/internal/restart"
	"github.com/nextlevelbuilder/drost/internal/router"
	"github.com/nextlevelbuilder/drost/internal/sessionstore"
	"github.com/nextlevelbuilder/drost/internal/subagent"
	"github.com/nextlevelbuilder/drost/internal/tracing"
)

// uiMode names the values of start's --ui flag; runStart accepts any
// value and always prints plain text.
type uiMode string

const (
	uiModeAuto  uiMode = "auto"
	uiModePlain uiMode = "plain"
	uiModeTUI   uiMode = "tui"

	shutdownTimeout = 10 * time.Second
)

func startCmd() *cobra.Command {
	var ui string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the gateway: providers, router, sessions, channels, control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(uiMode(ui))
		},
	}
	cmd.Flags().StringVar(&ui, "ui", string(uiModeAuto), "status output mode: plain|tui|auto")
	return cmd
}

// runStart assembles every package this module builds into one
// running gateway process and blocks until SIGINT/SIGTERM.
func runStart(ui uiMode) error {
	if ui == "" {
		ui = uiModeAuto
	}

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	authDB, err := authstore.Open(authStorePath(), config.ExpandHome(cfg.Workspace))
	if err != nil {
		return fmt.Errorf("open auth store: %w", err)
	}
	resolveKey := func(configured, providerID string) string {
		if configured != "" {
			return configured
		}
		return authDB.ResolveBearerToken(providerID)
	}

	registry := providers.NewRegistry()
	if key := resolveKey(cfg.Providers.Anthropic.APIKey, "anthropic"); key != "" {
		registry.Register("anthropic", providers.NewAnthropicProvider(
			"anthropic", key, cfg.Providers.Anthropic.APIBase, cfg.Providers.Anthropic.DefaultModel))
	}
	if key := resolveKey(cfg.Providers.OpenAI.APIKey, "openai"); key != "" {
		registry.Register("openai", providers.NewOpenAIProvider(
			"openai", key, cfg.Providers.OpenAI.APIBase, cfg.Providers.OpenAI.DefaultModel))
	}
	if key := resolveKey(cfg.Providers.XAI.APIKey, "xai"); key != "" {
		// xAI speaks the OpenAI-compatible chat completions dialect.
		registry.Register("xai", providers.NewOpenAIProvider(
			"xai", key, cfg.Providers.XAI.APIBase, cfg.Providers.XAI.DefaultModel))
	}

	policy := routerPolicyFromConfig(cfg)

	rt := router.New(registry, policy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		tp, err := tracing.New(ctx, tracing.Config{
			Enabled:     cfg.Telemetry.Enabled,
			Endpoint:    cfg.Telemetry.Endpoint,
			Protocol:    cfg.Telemetry.Protocol,
			Insecure:    cfg.Telemetry.Insecure,
			ServiceName: cfg.Telemetry.ServiceName,
			Headers:     cfg.Telemetry.Headers,
		})
		if err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("tracing disabled: %v", err)))
		} else {
			rt.WithTracer(tp)
			defer tp.Shutdown(context.Background())
		}
	}

	store, err := sessionstore.Open(config.ExpandHome(cfg.Sessions.Directory))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	emit := func(eventType string, payload any) {
		if verbose {
			fmt.Printf("[%s] %+v\n", eventType, payload)
		}
	}

	orch := orchestration.New(orchestration.LaneConfig{}, cfg.Orchestration.PersistencePath, func(ev orchestration.Event) {
		emit(string(ev.Type), ev)
	})
	_ = orch

	lockMode := subagent.LockMode(cfg.Subagents.LockMode)
	if lockMode == "" {
		lockMode = subagent.LockModeNone
	}
	subScheduler := subagent.New(config.ExpandHome(cfg.Workspace), cfg.Subagents.MaxParallelJobs, lockMode, func(ctx context.Context, turn subagent.DelegatedTurn) (string, error) {
		return "", fmt.Errorf("subagent delegate: no agent runtime wired")
	})
	_ = subScheduler

	restartPolicy := restart.Policy{
		RequireApprovalForSelfModify: cfg.Restart.RequireApprovalForSelfMod,
		MaxRestarts:                  cfg.Restart.MaxRestartsPerWindow,
		WindowMs:                     cfg.Restart.WindowMs,
	}
	restartCtl := restart.New(restartPolicy, config.ExpandHome(cfg.Restart.HistoryPath), nil, nil, func(eventType string, payload any) {
		emit(eventType, payload)
	}, func() error { return nil }, nil)
	_ = restartCtl

	policyGuard := pathpolicy.New(config.ExpandHome(cfg.Workspace))
	_ = policyGuard

	continuityWorker := continuity.New(store, continuity.Config{})
	_ = continuityWorker

	msgBus := bus.New(0)

	var channels []gateway.ChannelAdapter
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		ch, err := telegram.New(telegram.Config{Token: cfg.Channels.Telegram.Token}, msgBus)
		if err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("telegram channel disabled: %v", err)))
		} else {
			channels = append(channels, ch)
		}
	}

	var gatewayModules []gateway.Module
	if len(cfg.Skills.RuntimeMode) > 0 {
		gatewayModules = append(gatewayModules, &modules.SchedulerModule{Expressions: map[string]string{}})
	}

	gw := gateway.New()

	cp := controlplane.New(controlplane.AuthConfig{
		AllowLoopbackWithoutAuth: cfg.ControlPlane.AllowLoopbackWithoutAuth,
		ResolveToken: func(token string) controlplane.Scope {
			switch {
			case cfg.ControlPlane.AdminToken != "" && token == cfg.ControlPlane.AdminToken:
				return controlplane.ScopeAdmin
			case cfg.ControlPlane.ReadToken != "" && token == cfg.ControlPlane.ReadToken:
				return controlplane.ScopeRead
			default:
				return controlplane.ScopeNone
			}
		},
	}, 0, controlplane.Handlers{
		Status: func() any {
			state, reasons := gw.State()
			return map[string]any{"state": state, "degraded": reasons}
		},
		ProvidersStatus: func() any {
			return map[string]any{"providers": registry.IDs()}
		},
	})

	startCfg := gateway.StartConfig{
		Modules:  gatewayModules,
		Channels: channels,
		BindServers: func(ctx context.Context) (string, error) {
			addr := fmt.Sprintf("%s:%d", cfg.ControlPlane.Host, cfg.ControlPlane.Port)
			go func() {
				if err := cp.Start(ctx, addr); err != nil {
					emit("controlplane.stopped", map[string]any{"error": err.Error()})
				}
			}()
			return "http://" + addr, nil
		},
		Emit: emit,
	}

	if err := gw.Start(ctx, startCfg); err != nil {
		return fmt.Errorf("gateway start: %w", err)
	}
	state, reasons := gw.State()
	fmt.Println(headerStyle.Render(fmt.Sprintf("drost running (%s)", state)))
	for _, r := range reasons {
		fmt.Println(warnStyle.Render("degraded: " + r))
	}

	cw, err := configwatch.New(resolveConfigPath(), cfg, func(path string) error {
		switch path {
		case "providers.router", "providers.failover":
			rt.SetPolicy(routerPolicyFromConfig(cfg))
		}
		return nil
	}, func(result gateway.ReloadResult) {
		emit("config.reloaded", result)
		for _, rejected := range result.Rejected {
			fmt.Println(warnStyle.Render(fmt.Sprintf("config field %s rejected: %s", rejected.Path, rejected.Message)))
		}
	}, func(err error) {
		emit("config.watch_error", map[string]any{"error": err.Error()})
	})
	if err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("config hot-reload disabled: %v", err)))
	} else {
		cw.Start()
		defer cw.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println(headerStyle.Render("shutting down"))
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	gw.Stop(stopCtx)
	_ = rt
	return nil
}

// routerPolicyFromConfig overlays the configured router knobs onto
// router.DefaultPolicy, used both at startup and on every config
// hot-reload that touches providers.router/providers.failover.
func routerPolicyFromConfig(cfg *config.Config) router.Policy {
	policy := router.DefaultPolicy()
	if cfg.Router.MaxRetries > 0 {
		policy.MaxRetries = cfg.Router.MaxRetries
	}
	if cfg.Router.RetryDelayMs > 0 {
		policy.RetryDelayMs = cfg.Router.RetryDelayMs
	}
	if cfg.Router.BackoffMultiplier > 0 {
		policy.BackoffMultiplier = cfg.Router.BackoffMultiplier
	}
	policy.FailoverEnabled = cfg.Router.FailoverEnabled
	if cfg.Router.AuthCooldownSeconds > 0 {
		policy.AuthCooldownSeconds = cfg.Router.AuthCooldownSeconds
	}
	if cfg.Router.RateLimitCooldownSeconds > 0 {
		policy.RateLimitCooldownSeconds = cfg.Router.RateLimitCooldownSeconds
	}
	if cfg.Router.ServerErrorCooldownSeconds > 0 {
		policy.ServerErrorCooldownSeconds = cfg.Router.ServerErrorCooldownSeconds
	}
	return policy
}

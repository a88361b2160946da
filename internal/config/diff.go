package config

import "reflect"

// Diff compares old and next field-by-field and returns the dotted
// config paths that changed, using the same path vocabulary gateway's
// reload classifier understands (see gateway.safeReloadFields).
func Diff(old, next *Config) []string {
	var changed []string
	check := func(path string, a, b interface{}) {
		if !reflect.DeepEqual(a, b) {
			changed = append(changed, path)
		}
	}

	check("workspaceDir", old.Workspace, next.Workspace)
	check("agent.entry", old.Agent.Entry, next.Agent.Entry)
	check("runtime.entry", old.Agent.Runtime, next.Agent.Runtime)
	check("sessions.directory", old.Sessions.Directory, next.Sessions.Directory)

	check("health.path", old.Health.Path, next.Health.Path)
	check("observability.filenames", old.Observability.Filenames, next.Observability.Filenames)
	check("tools.policy", []interface{}{old.Tools.Allow, old.Tools.Deny}, []interface{}{next.Tools.Allow, next.Tools.Deny})
	check("sessions.retention", []interface{}{old.Sessions.MaxMessages, old.Sessions.MaxChars}, []interface{}{next.Sessions.MaxMessages, next.Sessions.MaxChars})
	check("providers.router", old.Router.MaxRetries, next.Router.MaxRetries)
	check("providers.router", old.Router.RetryDelayMs, next.Router.RetryDelayMs)
	check("providers.router", old.Router.BackoffMultiplier, next.Router.BackoffMultiplier)
	check("providers.failover", []interface{}{old.Router.FailoverEnabled, old.Router.Fallbacks, old.Router.Chain}, []interface{}{next.Router.FailoverEnabled, next.Router.Fallbacks, next.Router.Chain})
	check("orchestration.caps", old.Orchestration.QueueCap, next.Orchestration.QueueCap)
	check("orchestration.modes", []interface{}{old.Orchestration.DefaultMode, old.Orchestration.DropPolicy, old.Orchestration.DebounceMs}, []interface{}{next.Orchestration.DefaultMode, next.Orchestration.DropPolicy, next.Orchestration.DebounceMs})
	check("skills.runtimeMode", old.Skills.RuntimeMode, next.Skills.RuntimeMode)
	check("subagents.parallelism", old.Subagents.MaxParallelJobs, next.Subagents.MaxParallelJobs)

	return dedupe(changed)
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

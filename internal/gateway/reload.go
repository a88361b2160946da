package gateway

// safeReloadFields lists config paths that reloadConfig may apply
// in-process without a restart.
var safeReloadFields = map[string]bool{
	"health.path":                  true,
	"observability.filenames":      true,
	"tools.policy":                 true,
	"sessions.retention":           true,
	"providers.router":             true,
	"providers.failover":           true,
	"orchestration.caps":           true,
	"orchestration.modes":          true,
	"skills.runtimeMode":           true,
	"subagents.parallelism":        true,
}

// restartRequiredFields lists config paths that always require a
// restart to take effect.
var restartRequiredFields = map[string]bool{
	"workspaceDir":       true,
	"agent.entry":        true,
	"runtime.entry":      true,
	"sessions.directory": true,
}

// RejectedField describes one config path reloadConfig refused to apply.
type RejectedField struct {
	Path    string `json:"path"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// ReloadResult is the outcome of ReloadConfig.
type ReloadResult struct {
	RestartRequired bool            `json:"restartRequired"`
	Applied         []string        `json:"applied"`
	Rejected        []RejectedField `json:"rejected,omitempty"`
}

// ReloadConfig classifies each changed field path and applies the safe
// ones via apply, rejecting the rest.
func ReloadConfig(changedPaths []string, apply func(path string) error) ReloadResult {
	result := ReloadResult{}
	for _, path := range changedPaths {
		if !safeReloadFields[path] {
			reason := "unknown_field"
			if restartRequiredFields[path] {
				reason = "restart_required"
			}
			result.Rejected = append(result.Rejected, RejectedField{
				Path:    path,
				Reason:  reason,
				Message: "field " + path + " requires a restart to take effect",
			})
			continue
		}
		if apply != nil {
			if err := apply(path); err != nil {
				result.Rejected = append(result.Rejected, RejectedField{
					Path:    path,
					Reason:  "apply_failed",
					Message: err.Error(),
				})
				continue
			}
		}
		result.Applied = append(result.Applied, path)
	}
	if len(result.Rejected) > 0 {
		result.RestartRequired = true
	}
	return result
}

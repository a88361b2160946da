package modules

import (
	"context"
	"fmt"

	"github.com/adhocore/gronx"
)

// SchedulerModule preflight-validates configured cron expressions
// before the gateway admits them, rather than failing lazily the first
// time a scheduled job is due.
type SchedulerModule struct {
	Expressions map[string]string // job name -> cron expression
}

func (m *SchedulerModule) Name() string { return "scheduler" }

func (m *SchedulerModule) Preflight(ctx context.Context) error {
	for job, expr := range m.Expressions {
		if !gronx.IsValid(expr) {
			return fmt.Errorf("scheduler module: job %q has invalid cron expression %q", job, expr)
		}
	}
	return nil
}

package kernel

import "time"

// Compile-time parameters on the original kernel; here they are validated
// construction-time configuration, mirroring eventloop.New()'s validated
// construction pattern.
const (
	// DefaultMaxTasks is the historical MAX_TASKS default.
	DefaultMaxTasks = 15
	// DefaultPriorityLevels is the historical PRIORITY_LEVELS default.
	// Priority 0 is reserved for the idle task; user priorities run
	// 1..PriorityLevels-1.
	DefaultPriorityLevels = 5
	// DefaultTickPeriod is the historical 1ms tick rate.
	DefaultTickPeriod = time.Millisecond

	// MaxSleepTicks is the largest sleep duration the wraparound-safe
	// comparison can order correctly (2^31 - 1 ticks, spec.md §3).
	MaxSleepTicks = 1<<31 - 1
)

// Config holds the compile-time parameters of the original kernel.
type Config struct {
	// MaxTasks bounds the number of TCBs the scheduler will accept via
	// AddTask. Zero selects DefaultMaxTasks.
	MaxTasks int
	// PriorityLevels bounds task priority to [0, PriorityLevels-1].
	// Priority 0 is reserved for the idle task. Zero selects
	// DefaultPriorityLevels.
	PriorityLevels int
	// TickPeriod is the period of the simulated tick interrupt. Zero
	// selects DefaultTickPeriod.
	TickPeriod time.Duration
}

// withDefaults returns cfg with zero fields replaced by defaults, and
// validates the result.
func (cfg Config) withDefaults() (Config, error) {
	if cfg.MaxTasks == 0 {
		cfg.MaxTasks = DefaultMaxTasks
	}
	if cfg.PriorityLevels == 0 {
		cfg.PriorityLevels = DefaultPriorityLevels
	}
	if cfg.TickPeriod == 0 {
		cfg.TickPeriod = DefaultTickPeriod
	}
	if cfg.MaxTasks <= 0 {
		return cfg, &KernelError{Message: "kernel: MaxTasks must be positive"}
	}
	if cfg.PriorityLevels < 2 {
		return cfg, &KernelError{Message: "kernel: PriorityLevels must allow at least idle + one user level"}
	}
	if cfg.TickPeriod <= 0 {
		return cfg, &KernelError{Message: "kernel: TickPeriod must be positive"}
	}
	return cfg, nil
}

// PriorityMax returns PRIORITY_MAX for this configuration.
func (cfg Config) PriorityMax() int {
	return cfg.PriorityLevels - 1
}

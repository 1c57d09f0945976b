package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type cycleCollector struct {
	mu           sync.Mutex
	cyclesTotal  uint64
	ticksDropped uint64
	rolesChecked uint64
	actions      map[string]uint64
	outcomes     map[string]uint64
}

var settlementCollector = &cycleCollector{
	actions:  make(map[string]uint64),
	outcomes: make(map[string]uint64),
}

// ObserveCycle 记录一轮完成的结算检查及其检查到的角色数。
func ObserveCycle(rolesChecked int) {
	settlementCollector.mu.Lock()
	settlementCollector.cyclesTotal++
	settlementCollector.rolesChecked += uint64(rolesChecked)
	settlementCollector.mu.Unlock()
}

// ObserveDroppedTick 记录一次因上轮未完成而被丢弃的触发。
func ObserveDroppedTick() {
	settlementCollector.mu.Lock()
	settlementCollector.ticksDropped++
	settlementCollector.mu.Unlock()
}

// ObserveAction 按入口函数记录一次结算提交。
func ObserveAction(action string) {
	settlementCollector.mu.Lock()
	settlementCollector.actions[action]++
	settlementCollector.mu.Unlock()
}

// ObserveOutcome 按最终状态记录一次结算结局。
func ObserveOutcome(status string) {
	settlementCollector.mu.Lock()
	settlementCollector.outcomes[status]++
	settlementCollector.mu.Unlock()
}

func (c *cycleCollector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var builder strings.Builder
	builder.Grow(512)

	builder.WriteString("# HELP rolepay_cycles_total Total number of completed settlement check cycles.\n")
	builder.WriteString("# TYPE rolepay_cycles_total counter\n")
	builder.WriteString(fmt.Sprintf("rolepay_cycles_total %d\n", c.cyclesTotal))

	builder.WriteString("# HELP rolepay_ticks_dropped_total Scheduler ticks skipped because the previous cycle was still running.\n")
	builder.WriteString("# TYPE rolepay_ticks_dropped_total counter\n")
	builder.WriteString(fmt.Sprintf("rolepay_ticks_dropped_total %d\n", c.ticksDropped))

	builder.WriteString("# HELP rolepay_roles_checked_total Total number of role evaluations across all cycles.\n")
	builder.WriteString("# TYPE rolepay_roles_checked_total counter\n")
	builder.WriteString(fmt.Sprintf("rolepay_roles_checked_total %d\n", c.rolesChecked))

	builder.WriteString("# HELP rolepay_actions_total Settlement submissions by entry function.\n")
	builder.WriteString("# TYPE rolepay_actions_total counter\n")
	for _, key := range sortedKeys(c.actions) {
		builder.WriteString(fmt.Sprintf("rolepay_actions_total{action=\"%s\"} %d\n", escape(key), c.actions[key]))
	}

	builder.WriteString("# HELP rolepay_outcomes_total Settlement outcomes by final status.\n")
	builder.WriteString("# TYPE rolepay_outcomes_total counter\n")
	for _, key := range sortedKeys(c.outcomes) {
		builder.WriteString(fmt.Sprintf("rolepay_outcomes_total{status=\"%s\"} %d\n", escape(key), c.outcomes[key]))
	}

	return builder.String()
}

func sortedKeys(values map[string]uint64) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

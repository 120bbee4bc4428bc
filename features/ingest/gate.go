package ingest

import "strings"

// MockScheme is the loopback reference prefix. Targets under it resolve to
// in-memory fixtures and bypass network gating, which keeps the full pipeline
// runnable in tests and dry environments.
const MockScheme = "mock:"

type Decision string

const (
	DecisionProceed            Decision = "proceed"
	DecisionShortCircuitOK     Decision = "short_circuit_ok"
	DecisionShortCircuitDryRun Decision = "short_circuit_dry_run"
	DecisionRejectInvalid      Decision = "reject_invalid"
	DecisionRejectNoTarget     Decision = "reject_no_target"
	DecisionRejectNetworkOff   Decision = "reject_network_disabled"
)

// Flags is the gate's immutable configuration, loaded once at process start
// and injected; the gate never reads the environment.
type Flags struct {
	DryRun       bool
	AllowNetwork bool
}

// Decide evaluates an inbound target reference. target is nil when the
// request carried no usable (string) reference. First match wins:
//
//  1. missing/empty target        -> reject invalid
//  2. dry-run flag                -> short-circuit (still logged upstream)
//  3. loopback scheme             -> proceed regardless of network flag
//  4. network disabled            -> reject
//  5. otherwise                   -> proceed
func Decide(flags Flags, target *string) Decision {
	if target == nil || *target == "" {
		return DecisionRejectInvalid
	}
	if flags.DryRun {
		return DecisionShortCircuitDryRun
	}
	if strings.HasPrefix(*target, MockScheme) {
		return DecisionProceed
	}
	if !flags.AllowNetwork && isNetworkRef(*target) {
		return DecisionRejectNetworkOff
	}
	return DecisionProceed
}

// isNetworkRef reports whether the reference leaves the process: a URL with a
// scheme, or a mail address on the outbound leg. Local file paths stay
// reachable with networking off.
func isNetworkRef(target string) bool {
	return strings.Contains(target, "://") || strings.Contains(target, "@")
}

// DecideOutbound gates the notification leg with the same rules. The inbound
// leg passing never implies the outbound leg may go out; an unconfigured
// recipient is its own rejection.
func DecideOutbound(flags Flags, recipient string) Decision {
	if recipient == "" {
		return DecisionRejectNoTarget
	}
	r := recipient
	return Decide(flags, &r)
}

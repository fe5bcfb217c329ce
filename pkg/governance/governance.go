// Package governance defines the two external collaborator contracts the
// executor and SEM must honor: the kill-switch that can halt all
// execution, and the policy gate that can block individual SEM keys.
// Governance features beyond these two hook points (policy amendments,
// admin tokens) are out of scope for this core and are not implemented
// here.
package governance

// KillSwitch reports whether execution is currently halted, and why.
type KillSwitch interface {
	IsActive() bool
	Status() Status
}

// Status describes an active (or inactive) kill-switch.
type Status struct {
	Reason      string
	ActivatedBy string
}

// PolicyGate decides whether a SEM write to key is blocked.
type PolicyGate interface {
	BlockKey(key string) bool
}

// StaticKillSwitch is a simple in-memory KillSwitch, suitable for tests
// and for wiring a single operator-controlled flag in cmd/derc. A
// production deployment would back this with an external control plane;
// that integration is out of scope here.
type StaticKillSwitch struct {
	active bool
	status Status
}

// NewStaticKillSwitch returns an inactive kill-switch.
func NewStaticKillSwitch() *StaticKillSwitch {
	return &StaticKillSwitch{}
}

func (k *StaticKillSwitch) IsActive() bool { return k.active }
func (k *StaticKillSwitch) Status() Status { return k.status }

// Activate halts execution with the given reason and activator id.
func (k *StaticKillSwitch) Activate(reason, activatedBy string) {
	k.active = true
	k.status = Status{Reason: reason, ActivatedBy: activatedBy}
}

// Deactivate resumes execution.
func (k *StaticKillSwitch) Deactivate() {
	k.active = false
	k.status = Status{}
}

// BlocklistPolicy blocks any key matching one of a fixed set of prefixes,
// loaded from configuration (see pkg/config). An empty blocklist blocks
// nothing.
type BlocklistPolicy struct {
	prefixes []string
}

// NewBlocklistPolicy returns a PolicyGate that blocks any key sharing one
// of the given canonical-key prefixes.
func NewBlocklistPolicy(prefixes []string) *BlocklistPolicy {
	cp := make([]string, len(prefixes))
	copy(cp, prefixes)
	return &BlocklistPolicy{prefixes: cp}
}

func (p *BlocklistPolicy) BlockKey(key string) bool {
	for _, prefix := range p.prefixes {
		if prefix == "" {
			continue
		}
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}

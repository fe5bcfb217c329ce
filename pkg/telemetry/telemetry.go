// Package telemetry provides monotonic counters that observe the executor
// and SEM from the outside. Nothing in this package is read back by any
// deterministic code path, so recording a counter never has an effect on
// core outputs.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Counters is the set of monotonic counters the executor and SEM report
// to. Recording a counter never alters a request's outcome.
type Counters interface {
	RequestsTotal() prometheus.Counter
	RequestsFailed() prometheus.Counter
	KillSwitchBlocked() prometheus.Counter
	SEMWritesTotal() prometheus.Counter
	SEMWritesBlocked() prometheus.Counter
	AgentFailuresTotal() prometheus.Counter
	ReplayTotal() prometheus.Counter
	ReplayMismatchesTotal() prometheus.Counter
}

type counters struct {
	requestsTotal         prometheus.Counter
	requestsFailed        prometheus.Counter
	killSwitchBlocked     prometheus.Counter
	semWritesTotal        prometheus.Counter
	semWritesBlocked      prometheus.Counter
	agentFailuresTotal    prometheus.Counter
	replayTotal           prometheus.Counter
	replayMismatchesTotal prometheus.Counter
}

// NewCounters registers every DERC counter under namespace on registerer
// and returns a handle to them.
func NewCounters(namespace string, registerer prometheus.Registerer) (Counters, error) {
	c := &counters{
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "requests_total", Help: "Total requests executed.",
		}),
		requestsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "requests_failed_total", Help: "Requests that failed before producing a log entry.",
		}),
		killSwitchBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "kill_switch_blocked_total", Help: "Requests rejected by an active kill-switch.",
		}),
		semWritesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sem_writes_total", Help: "Successful put_sem calls.",
		}),
		semWritesBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sem_writes_blocked_total", Help: "put_sem calls rejected by key validation, governance, or PII scan.",
		}),
		agentFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "agent_failures_total", Help: "Agent invocations that raised an error.",
		}),
		replayTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "replay_total", Help: "Replay attempts.",
		}),
		replayMismatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "replay_mismatches_total", Help: "Replay attempts that ended in a *_MISMATCH result.",
		}),
	}

	for _, collector := range []prometheus.Collector{
		c.requestsTotal, c.requestsFailed, c.killSwitchBlocked,
		c.semWritesTotal, c.semWritesBlocked, c.agentFailuresTotal,
		c.replayTotal, c.replayMismatchesTotal,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *counters) RequestsTotal() prometheus.Counter         { return c.requestsTotal }
func (c *counters) RequestsFailed() prometheus.Counter        { return c.requestsFailed }
func (c *counters) KillSwitchBlocked() prometheus.Counter     { return c.killSwitchBlocked }
func (c *counters) SEMWritesTotal() prometheus.Counter        { return c.semWritesTotal }
func (c *counters) SEMWritesBlocked() prometheus.Counter      { return c.semWritesBlocked }
func (c *counters) AgentFailuresTotal() prometheus.Counter    { return c.agentFailuresTotal }
func (c *counters) ReplayTotal() prometheus.Counter           { return c.replayTotal }
func (c *counters) ReplayMismatchesTotal() prometheus.Counter { return c.replayMismatchesTotal }

package metrics

import (
	"time"

	obserrors "github.com/medportal/portalgate/internal/observability/errors"
	"github.com/medportal/portalgate/internal/observability/statsd"
)

// Terminal interceptor states used as the "state" tag.
const (
	StateExempt      = "exempt"
	StateAllowed     = "allowed"
	StateRedirecting = "redirecting"
	StateFailed      = "failed"
)

// AccessMetric describes one request's trip through the access interceptor.
type AccessMetric struct {
	Portal   string
	State    string
	Decision string
	Failure  string
	// ReadDuration is the time spent in the session reader; zero when it was not consulted.
	ReadDuration time.Duration
	Err          error
}

// EmitAccessDecision counts the terminal state and, when the reader ran, its latency.
func EmitAccessDecision(sink statsd.Sink, in AccessMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"portal": in.Portal,
		"state":  in.State,
	}
	if in.Decision != "" {
		tags["decision"] = in.Decision
	}
	if in.Failure != "" {
		tags["failure"] = in.Failure
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("access.decision", 1, tags)

	if in.ReadDuration > 0 {
		sink.Timing("access.session_read", in.ReadDuration, map[string]string{
			"portal": in.Portal,
			"result": readResult(in),
		})
	}
}

func readResult(in AccessMetric) string {
	if in.Failure != "" && in.Err != nil && in.State == StateFailed {
		return "error"
	}
	return "ok"
}

// EmitRegistry records the number of portals registered at startup.
func EmitRegistry(sink statsd.Sink, portals int, env string) {
	if sink == nil {
		return
	}
	sink.Gauge("registry.portals", float64(portals), map[string]string{"env": env})
}

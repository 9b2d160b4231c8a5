package notify

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rfp-radar/internal/model"
)

// Routes maps each priority to the channel names that should receive it.
type Routes map[model.Priority][]string

// DefaultRoutes escalates channel fan-out with priority: critical hits
// everything, digest only the buffered summary.
func DefaultRoutes() Routes {
	return Routes{
		model.PriorityCritical: {"slack", "notion", "salesforce"},
		model.PriorityHigh:     {"slack", "notion"},
		model.PriorityStandard: {"notion"},
		model.PriorityDigest:   {"digest"},
	}
}

// Delivery is the per-channel result of routing one opportunity.
type Delivery struct {
	Channel string `json:"channel"`
	Err     string `json:"error,omitempty"`
}

// Router fans opportunities out to channels by priority.
type Router struct {
	channels map[string]Channel
	routes   Routes
}

// NewRouter builds a router over the given channels. Every channel name
// referenced by the routes must be registered.
func NewRouter(channels []Channel, routes Routes) (*Router, error) {
	if routes == nil {
		routes = DefaultRoutes()
	}

	byName := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		if ch == nil {
			continue
		}
		if _, dup := byName[ch.Name()]; dup {
			return nil, eris.Errorf("notify: duplicate channel %q", ch.Name())
		}
		byName[ch.Name()] = ch
	}

	for priority, names := range routes {
		for _, name := range names {
			if _, ok := byName[name]; !ok {
				return nil, eris.Errorf("notify: route for %s references unregistered channel %q", priority, name)
			}
		}
	}

	return &Router{channels: byName, routes: routes}, nil
}

// Route delivers one opportunity to every channel configured for its
// priority. A channel failure is logged and recorded but never stops
// delivery to the remaining channels.
func (r *Router) Route(ctx context.Context, opp model.Opportunity) []Delivery {
	names := r.routes[opp.Priority]
	deliveries := make([]Delivery, 0, len(names))

	for _, name := range names {
		ch := r.channels[name]
		d := Delivery{Channel: name}
		if err := ch.Notify(ctx, opp); err != nil {
			d.Err = err.Error()
			zap.L().Error("notify: channel delivery failed",
				zap.String("channel", name),
				zap.String("organization", opp.Organization),
				zap.String("priority", string(opp.Priority)),
				zap.Error(err),
			)
		} else {
			zap.L().Info("notify: delivered",
				zap.String("channel", name),
				zap.String("organization", opp.Organization),
				zap.String("priority", string(opp.Priority)),
			)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries
}

// RouteAll routes a batch sequentially and returns per-opportunity results.
func (r *Router) RouteAll(ctx context.Context, opps []model.Opportunity) [][]Delivery {
	results := make([][]Delivery, len(opps))
	for i, opp := range opps {
		results[i] = r.Route(ctx, opp)
	}
	return results
}

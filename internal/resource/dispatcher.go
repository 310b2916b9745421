// AngelaMos | 2026
// dispatcher.go

// Package resource serves the plan-gated resource. What a caller gets is
// decided by one table keyed by plan name.
package resource

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/carterperez-dev/templates/plan-backend/internal/core"
	"github.com/carterperez-dev/templates/plan-backend/internal/store"
)

// Capabilities are the feature flags a plan unlocks.
type Capabilities struct {
	Summary   bool `json:"summary"`
	Analytics bool `json:"analytics"`
	Insights  bool `json:"insights"`
	Downloads bool `json:"downloads"`
}

// Message placeholders filled in by Dispatch. Any other text, including %,
// is rendered verbatim.
const (
	UsernamePlaceholder = "{username}"
	PlanPlaceholder     = "{plan}"
)

// Policy is one row of the dispatch table. Message may reference
// UsernamePlaceholder and PlanPlaceholder any number of times.
type Policy struct {
	Plan         string
	Message      string
	Capabilities Capabilities
}

// Decision is what a caller receives for its plan.
type Decision struct {
	Plan         string
	Message      string
	Capabilities Capabilities
	Known        bool
}

var defaultPolicies = []Policy{
	{
		Plan:         "BASIC",
		Message:      "Hello {username} ({plan}). You have basic access: summary usage report only.",
		Capabilities: Capabilities{Summary: true},
	},
	{
		Plan:         "PRO",
		Message:      "Hello {username} ({plan}). You get pro access: summary report plus analytics.",
		Capabilities: Capabilities{Summary: true, Analytics: true},
	},
	{
		Plan:    "ENTERPRISE",
		Message: "Hello {username} ({plan}). You get full enterprise insights and downloads!",
		Capabilities: Capabilities{
			Summary:   true,
			Analytics: true,
			Insights:  true,
			Downloads: true,
		},
	},
}

type Dispatcher struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewDispatcher returns a dispatcher holding the BASIC, PRO and ENTERPRISE
// rows.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{policies: make(map[string]Policy, len(defaultPolicies))}
	for _, p := range defaultPolicies {
		d.Register(p)
	}
	return d
}

// Register adds or replaces the row for p.Plan. Plan names match ignoring
// case.
func (d *Dispatcher) Register(p Policy) {
	p.Plan = store.NormalizePlanName(p.Plan)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.policies[p.Plan] = p
}

// Plans lists the registered plan names in order.
func (d *Dispatcher) Plans() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.policies))
	for name := range d.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch maps a caller's plan to a decision. A nil plan is core.ErrNoPlan.
// A plan with no row passes through as an unknown plan and is not an error.
func (d *Dispatcher) Dispatch(username string, pa *store.PlanAssignment) (*Decision, error) {
	if pa == nil || store.NormalizePlanName(pa.Plan.Name) == "" {
		return nil, fmt.Errorf("dispatch %s: %w", username, core.ErrNoPlan)
	}

	name := store.NormalizePlanName(pa.Plan.Name)

	d.mu.RLock()
	policy, ok := d.policies[name]
	d.mu.RUnlock()

	if !ok {
		return &Decision{
			Plan:    name,
			Message: "Unknown plan type: " + name,
		}, nil
	}

	return &Decision{
		Plan:         name,
		Message:      renderMessage(policy.Message, username, name),
		Capabilities: policy.Capabilities,
		Known:        true,
	}, nil
}

func renderMessage(template, username, plan string) string {
	return strings.NewReplacer(
		UsernamePlaceholder, username,
		PlanPlaceholder, plan,
	).Replace(template)
}

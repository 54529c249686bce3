package workflow

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TransitionContext carries the request facts that guards branch on. The
// matrix itself stays static; only destination selection consults this.
type TransitionContext struct {
	// PettyCash is true for CAJA_MENUDA requests, which skip the budget,
	// accounting and finance stages.
	PettyCash bool

	// ApprovedAmount is the amount approved at the current stage, not the
	// originally computed amount.
	ApprovedAmount decimal.Decimal

	// RefrendoThreshold is the CGR countersignature threshold from the rate
	// catalog snapshot. Exclusive lower bound: only amounts strictly above
	// it route to refrendo.
	RefrendoThreshold decimal.Decimal

	// ElectronicPayment is true for transfer/ACH payments, which require an
	// electronic signature step before PAGADO.
	ElectronicPayment bool
}

// GuardFunc evaluates whether a configured transition applies under the
// given context
type GuardFunc func(tc TransitionContext) bool

// transition is one allowed edge with its authorized roles and optional guard
type transition struct {
	toState State
	roles   map[Role]bool
	guard   GuardFunc
}

// StateConfiguration configures transitions out of a specific state
type StateConfiguration interface {
	// Permit allows an action to transition to the target state for the
	// given roles
	Permit(action Action, toState State, roles ...Role) StateConfiguration

	// PermitIf allows the transition only when the guard passes. Guarded
	// edges for the same action are tried in registration order.
	PermitIf(action Action, toState State, guard GuardFunc, roles ...Role) StateConfiguration
}

// Builder assembles the transition matrix. The built matrix is the only
// place transition legality is declared.
type Builder struct {
	configurations map[State]*stateConfig
}

type stateConfig struct {
	builder     *Builder
	fromState   State
	transitions map[Action][]transition
}

// NewBuilder creates an empty transition matrix builder
func NewBuilder() *Builder {
	return &Builder{configurations: make(map[State]*stateConfig)}
}

// Configure returns the configuration for the given state, creating it on
// first use
func (b *Builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			builder:     b,
			fromState:   state,
			transitions: make(map[Action][]transition),
		}
		b.configurations[state] = config
	}
	return config
}

// Build creates a machine positioned at the given initial state. The matrix
// is deep-copied so later builder mutations cannot leak into live machines.
func (b *Builder) Build(initialState State) *Machine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[Action][]transition, len(config.transitions))
		for action, ts := range config.transitions {
			transitionsCopy[action] = append([]transition{}, ts...)
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &Machine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows an action to transition to the target state for the given roles
func (c *stateConfig) Permit(action Action, toState State, roles ...Role) StateConfiguration {
	return c.PermitIf(action, toState, nil, roles...)
}

// PermitIf allows the transition only when the guard passes
func (c *stateConfig) PermitIf(action Action, toState State, guard GuardFunc, roles ...Role) StateConfiguration {
	if !action.IsValid() {
		panic(fmt.Sprintf("invalid action: %s", action))
	}
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if len(roles) == 0 {
		panic(fmt.Sprintf("transition %s -> %s has no authorized roles", c.fromState, toState))
	}

	roleSet := make(map[Role]bool, len(roles))
	for _, r := range roles {
		if !r.IsValid() {
			panic(fmt.Sprintf("invalid role: %s", r))
		}
		roleSet[r] = true
	}

	c.transitions[action] = append(c.transitions[action], transition{
		toState: toState,
		roles:   roleSet,
		guard:   guard,
	})
	return c
}

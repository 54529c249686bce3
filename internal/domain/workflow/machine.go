package workflow

// Machine tracks the current state of one mission request and validates
// transitions against the built matrix
type Machine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// State returns the current state
func (m *Machine) State() State {
	return m.currentState
}

// Resolve validates (current state, action, role) against the matrix and
// returns the destination state without mutating the machine. Absence of the
// action for this state is an InvalidTransition; a defined action whose role
// set excludes the actor is Unauthorized.
func (m *Machine) Resolve(action Action, role Role, tc TransitionContext) (State, error) {
	config, exists := m.configurations[m.currentState]
	if !exists || len(config.transitions) == 0 {
		return "", &WorkflowError{
			Kind:    KindInvalidTransition,
			State:   m.currentState,
			Action:  action,
			Message: "no actions defined for state " + m.currentState.String(),
		}
	}

	transitions, exists := config.transitions[action]
	if !exists || len(transitions) == 0 {
		return "", &WorkflowError{
			Kind:    KindInvalidTransition,
			State:   m.currentState,
			Action:  action,
			Message: "action " + action.String() + " not defined for state " + m.currentState.String(),
		}
	}

	authorized := false
	for _, t := range transitions {
		if t.roles[role] {
			authorized = true
			break
		}
	}
	if !authorized {
		return "", &WorkflowError{
			Kind:    KindUnauthorized,
			State:   m.currentState,
			Action:  action,
			Role:    role,
			Message: "role " + role.String() + " not permitted for " + action.String() + " in state " + m.currentState.String(),
		}
	}

	for _, t := range transitions {
		if !t.roles[role] {
			continue
		}
		if t.guard == nil || t.guard(tc) {
			return t.toState, nil
		}
	}

	// Guarded edges exist for the role but none matched the context.
	return "", &WorkflowError{
		Kind:    KindInvalidTransition,
		State:   m.currentState,
		Action:  action,
		Role:    role,
		Message: "no transition matched context for " + action.String() + " in state " + m.currentState.String(),
	}
}

// Fire resolves the transition and advances the machine to the destination
func (m *Machine) Fire(action Action, role Role, tc TransitionContext) (State, error) {
	next, err := m.Resolve(action, role, tc)
	if err != nil {
		return "", err
	}
	m.currentState = next
	return next, nil
}

// CanFire returns true if any edge for the action admits the role in the
// current state, ignoring guards
func (m *Machine) CanFire(action Action, role Role) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	for _, t := range config.transitions[action] {
		if t.roles[role] {
			return true
		}
	}
	return false
}

// PermittedActions returns the actions the role may attempt in the current
// state
func (m *Machine) PermittedActions(role Role) []Action {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return nil
	}

	var actions []Action
	for _, a := range AllActions() {
		for _, t := range config.transitions[a] {
			if t.roles[role] {
				actions = append(actions, a)
				break
			}
		}
	}
	return actions
}

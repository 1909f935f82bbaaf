package model

import (
	"github.com/pkg/errors"
)

// ErrNoActionSpace is returned when a model implements neither FixedActions nor VariableActions.
var ErrNoActionSpace = errors.New("model exposes neither NumActions nor NumActionsAt")

// ActionSpace enumerates legal actions. It is resolved once per model by
// ActionsOf so callers never type-switch on the model in a hot loop.
type ActionSpace struct {
	fixed int
	at    func(State) int
}

// ActionsOf picks the action enumeration strategy for m. Exactly one of
// FixedActions and VariableActions must be implemented.
func ActionsOf(m Generative) (ActionSpace, error) {
	_, fixed := m.(FixedActions)
	_, variable := m.(VariableActions)
	if fixed && variable {
		return ActionSpace{}, errors.Wrapf(ErrNoActionSpace, "%T implements both NumActions and NumActionsAt", m)
	}
	switch mm := m.(type) {
	case FixedActions:
		n := mm.NumActions()
		if n <= 0 {
			return ActionSpace{}, errors.Wrapf(ErrNoActionSpace, "fixed action count is %d", n)
		}
		return ActionSpace{fixed: n}, nil
	case VariableActions:
		return ActionSpace{at: mm.NumActionsAt}, nil
	}
	return ActionSpace{}, errors.Wrapf(ErrNoActionSpace, "%T", m)
}

// Fixed returns the action count and true when it does not depend on the state.
func (sp ActionSpace) Fixed() (int, bool) { return sp.fixed, sp.at == nil }

// Count returns the number of legal actions at s.
func (sp ActionSpace) Count(s State) int {
	if sp.at == nil {
		return sp.fixed
	}
	return sp.at(s)
}

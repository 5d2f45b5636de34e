package guard

import (
	"github.com/parley-ai/parley/pkg/domain"
)

// Gate declares where an operation is legal and what to say when it is not.
type Gate struct {
	// Allowed lists the stages in which the operation may run.
	// An empty list means the operation is always allowed.
	Allowed []Stage

	// Refusal is the spoken explanation returned when the gate rejects.
	Refusal string
}

// Policy is the declarative operation gate table for one agent variant.
type Policy struct {
	machine *Machine
	gates   map[string]Gate
}

// NewPolicy builds a policy over the given machine.
func NewPolicy(machine *Machine, gates map[string]Gate) *Policy {
	return &Policy{machine: machine, gates: gates}
}

// Machine returns the underlying stage machine.
func (p *Policy) Machine() *Machine {
	return p.machine
}

// CanPerform checks whether the named operation is legal in the current
// stage. It returns nil when allowed, or a precondition refusal naming the
// missing prerequisite. Operations without a gate are always allowed.
func (p *Policy) CanPerform(op string) error {
	gate, ok := p.gates[op]
	if !ok || len(gate.Allowed) == 0 {
		return nil
	}
	if p.machine.At(gate.Allowed...) {
		return nil
	}
	if gate.Refusal != "" {
		return domain.Preconditionf("%s", gate.Refusal)
	}
	return domain.Preconditionf("The %s step is not available right now.", op)
}

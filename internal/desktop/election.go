package desktop

// Policy is a placement manager that may claim authority over a window.
// Vote must be pure: the same record always yields the same priority.
type Policy interface {
	Name() string
	Vote(rec Record) int
}

// Elect returns the policy with the strictly highest vote. Ties go to the
// policy that comes first in policies, so repeated elections over the same
// inputs always agree. It returns nil for an empty list.
func Elect(policies []Policy, rec Record) Policy {
	var winner Policy
	best := 0
	for _, p := range policies {
		v := p.Vote(rec)
		if winner == nil || v > best {
			winner, best = p, v
		}
	}
	return winner
}

// NativePolicy leaves placement to the native window manager. It votes 0 for
// every window, so it owns exactly the windows nobody else claims.
type NativePolicy struct{}

const NativePolicyName = "native"

func (NativePolicy) Name() string    { return NativePolicyName }
func (NativePolicy) Vote(Record) int { return 0 }

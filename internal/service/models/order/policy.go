package order

// TransitionPolicy decides whether an order may move from one status to another.
// The statuses passed in are always distinct; equal-status calls short-circuit
// before the policy runs.
type TransitionPolicy func(from, to Status) error

// AllowAnyTransition permits every transition between distinct statuses,
// including transitions out of the PAID terminal state. This mirrors the
// behavior of the system this service replaces; swap the policy to tighten it.
func AllowAnyTransition(from, to Status) error {
	return nil
}

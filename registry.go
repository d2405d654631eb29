package eventbus

// Registry is the contract a string-keyed service locator must satisfy,
// per spec §4.7/§7. The core does not implement one — the global
// singleton facade and the registry itself are out of scope — but
// SetOnce's AlreadyPresent semantics are specified here so a host's own
// registry can be built against this error kind.
type Registry interface {
	// Get returns the named Service, or (nil, false) if no instance has
	// been set under that name.
	Get(name string) (*Service, bool)
	// SetOnce sets the named slot exactly once: a second call with a
	// non-nil svc fails with AlreadyPresent. Passing a nil svc clears
	// the slot, after which a new SetOnce succeeds again.
	SetOnce(name string, svc *Service) error
}

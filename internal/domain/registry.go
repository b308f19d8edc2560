package domain

// Registry is the set of users currently acting as supervisors.
type Registry struct {
	supervisors IDSet
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register reports alreadyRegistered=true instead of failing on repeats.
func (r *Registry) Register(id UserID) (alreadyRegistered bool) {
	return !r.supervisors.Add(id)
}

func (r *Registry) IsSupervisor(id UserID) bool {
	return r.supervisors.Contains(id)
}

// IDs returns supervisors in registration order.
func (r *Registry) IDs() []UserID {
	return r.supervisors.IDs()
}

func (r *Registry) Len() int {
	return r.supervisors.Len()
}

// remove is unexported because dropping a supervisor must also clear every
// session reference; State.Unregister does both.
func (r *Registry) remove(id UserID) bool {
	return r.supervisors.Remove(id)
}

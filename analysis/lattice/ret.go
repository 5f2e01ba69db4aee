package lattice

// AbsRet is a member of the return lattice: the joined return value of
// a function paired with its exit state.
type AbsRet struct {
	Value AbsValue
	State AbsState
}

// BotRet is the ⊥ return.
func BotRet() AbsRet {
	return AbsRet{Value: BotValue(), State: BotState()}
}

// IsBot checks whether the return is ⊥.
func (r AbsRet) IsBot() bool {
	return r.Value.IsBot() && r.State.IsBot()
}

// Leq computes r ⊑ other.
func (r AbsRet) Leq(other AbsRet) bool {
	return r.Value.Leq(other.Value) && r.State.Leq(other.State)
}

// Join computes r ⊔ other.
func (r AbsRet) Join(other AbsRet) AbsRet {
	return AbsRet{
		Value: r.Value.Join(other.Value),
		State: r.State.Join(other.State),
	}
}

func (r AbsRet) String() string {
	return "(" + r.Value.String() + ", " + r.State.String() + ")"
}

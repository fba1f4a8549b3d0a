package domain

type MembershipState string

const (
	NotJoined      MembershipState = "NOT_JOINED"
	JoinRequested  MembershipState = "JOIN_REQUESTED"
	Joined         MembershipState = "JOINED"
	LeaveRequested MembershipState = "LEAVE_REQUESTED"
)

type Room struct {
	Name  string
	State MembershipState
}

// Pending reports whether a join or leave acknowledgement is awaited.
func (r Room) Pending() bool {
	return r.State == JoinRequested || r.State == LeaveRequested
}

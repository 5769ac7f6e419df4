package domain

// RoleName is the closed set of role tags the server understands.
// Free-form role names from clients are rejected at the boundary.
type RoleName string

const (
	RoleAdmin       RoleName = "ADMIN"
	RoleUser        RoleName = "USER"
	RoleGroupOwner  RoleName = "GROUP_OWNER"
	RoleGroupMember RoleName = "GROUP_MEMBER"
)

var knownRoles = map[RoleName]struct{}{
	RoleAdmin:       {},
	RoleUser:        {},
	RoleGroupOwner:  {},
	RoleGroupMember: {},
}

// ParseRoleName validates a client-supplied role name against the
// closed set.
func ParseRoleName(s string) (RoleName, bool) {
	r := RoleName(s)
	_, ok := knownRoles[r]
	return r, ok
}

const (
	RequesterIDCtxKey     = "agora-requesterId"
	RequesterWalletCtxKey = "agora-requesterWallet"
)

const (
	// ChallengeMessage is the template signed by wallets during login.
	ChallengeMessage = "Sign this message to login. Nonce: %s"
)

// Signal channels for the realtime feed.
const (
	SignalGroupEvents = "agora:group-events"
)

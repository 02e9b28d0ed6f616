package realtime

// --- Workflow roles ---
type Role string

const (
	RoleCustomer  Role = "customer"
	RoleStaff     Role = "staff"
	RoleExecutive Role = "executive"
	RoleInventory Role = "inventory"
	RoleMarketing Role = "marketing"
	RoleAdmin     Role = "admin"
)

var roles = []Role{RoleCustomer, RoleStaff, RoleExecutive, RoleInventory, RoleMarketing, RoleAdmin}

// Roles returns every known role.
func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

func (r Role) IsValid() bool {
	for _, v := range roles {
		if r == v {
			return true
		}
	}
	return false
}

// IsStaff reports whether r may see admin-only channels.
func (r Role) IsStaff() bool {
	return r.IsValid() && r != RoleCustomer
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", newValidationError("role", "unknown role "+quote(s))
	}
	return r, nil
}

// DescriptorsForRole lists the channels a role listens on. userID is only
// used by the customer role, where it is mandatory.
func DescriptorsForRole(role Role, userID string) ([]ChannelDescriptor, error) {
	var out []ChannelDescriptor
	switch role {
	case RoleCustomer:
		if userID == "" {
			return nil, newValidationError("user_id", "required for customer channels")
		}
		out = []ChannelDescriptor{
			{Kind: KindCart, Scope: ScopeUser, SubjectID: userID},
			{Kind: KindOrder, Scope: ScopeUser, SubjectID: userID},
			{Kind: KindProduct, Scope: ScopeGlobal},
		}
	case RoleStaff:
		out = []ChannelDescriptor{
			{Kind: KindOrder, Scope: ScopeAdmin},
			{Kind: KindInventory, Scope: ScopeAdmin},
			{Kind: KindProduct, Scope: ScopeGlobal},
		}
	case RoleExecutive:
		out = []ChannelDescriptor{
			{Kind: KindExecutive, Scope: ScopeAdmin},
			{Kind: KindOrder, Scope: ScopeAdmin},
		}
	case RoleInventory:
		out = []ChannelDescriptor{
			{Kind: KindInventory, Scope: ScopeAdmin},
			{Kind: KindProduct, Scope: ScopeGlobal},
		}
	case RoleMarketing:
		out = []ChannelDescriptor{
			{Kind: KindMarketing, Scope: ScopeAdmin},
			{Kind: KindProduct, Scope: ScopeGlobal},
		}
	case RoleAdmin:
		out = []ChannelDescriptor{
			{Kind: KindOrder, Scope: ScopeAdmin},
			{Kind: KindInventory, Scope: ScopeAdmin},
			{Kind: KindExecutive, Scope: ScopeAdmin},
			{Kind: KindMarketing, Scope: ScopeAdmin},
			{Kind: KindProduct, Scope: ScopeGlobal},
		}
	default:
		return nil, newValidationError("role", "unknown role "+quote(string(role)))
	}
	return out, nil
}

package sessionkit

import (
	"encoding/json"
)

// AuthState is the Session Manager's lifecycle state.
//
// The machine starts in StateUnknown and settles into StateLoggedOut or
// StateLoggedIn after [Manager.Init]. StateRefreshing is entered while a
// renewal call is in flight and always resolves back to StateLoggedIn or
// StateLoggedOut.
type AuthState uint8

const (
	// StateUnknown is the pre-Init state. No store read has happened yet.
	StateUnknown AuthState = iota
	// StateLoggedOut means no current session exists.
	StateLoggedOut
	// StateLoggedIn means a current session exists and its access token is
	// believed usable.
	StateLoggedIn
	// StateRefreshing means a session exists and a renewal call is in flight.
	StateRefreshing
)

func (s AuthState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateLoggedOut:
		return "logged_out"
	case StateLoggedIn:
		return "logged_in"
	case StateRefreshing:
		return "refreshing"
	default:
		return "invalid"
	}
}

// Role values issued by the backend's user model.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleStaff      = "staff"
	RoleCustomer   = "customer"
	RoleTechnician = "technician"
	RoleSales      = "sales"
	RoleSupport    = "support"
	RoleOwner      = "owner"
)

// UserProfile is an immutable snapshot of the authenticated user, decoded
// from the backend's user payload. Fields not modeled here remain available
// through [UserProfile.Raw].
type UserProfile struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
	IsVerified  bool   `json:"is_verified"`
	IsActive    bool   `json:"is_active"`

	// Raw is the exact server-issued serialization this profile was decoded
	// from. It is what the token store persists, so round-trips are
	// byte-identical.
	Raw json.RawMessage `json:"-"`
}

func parseProfile(raw []byte) (UserProfile, error) {
	var p UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return UserProfile{}, err
	}
	p.Raw = append(json.RawMessage(nil), raw...)
	return p, nil
}

// Credentials carries a username/password pair for [Manager.Login].
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterPayload carries the fields accepted by the backend's registration
// endpoint. Registration is only open before any admin account exists; the
// first registered user becomes the admin.
type RegisterPayload struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

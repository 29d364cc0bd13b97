package domain

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleGrocer Role = "grocer"
)

// Identity is an authenticated caller. The only implementations are Farmer and
// Grocer; the unexported method keeps the set closed.
type Identity interface {
	Role() Role
	SubjectID() string
	identity()
}

type Farmer struct {
	ID string
}

func (Farmer) Role() Role          { return RoleFarmer }
func (f Farmer) SubjectID() string { return f.ID }
func (Farmer) identity()           {}

type Grocer struct {
	ID string
}

func (Grocer) Role() Role          { return RoleGrocer }
func (g Grocer) SubjectID() string { return g.ID }
func (Grocer) identity()           {}

// NewIdentity maps a role name coming from a credential to its variant.
func NewIdentity(role Role, id string) (Identity, bool) {
	if id == "" {
		return nil, false
	}
	switch role {
	case RoleFarmer:
		return Farmer{ID: id}, true
	case RoleGrocer:
		return Grocer{ID: id}, true
	default:
		return nil, false
	}
}

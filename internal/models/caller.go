package models

type Role string

const (
	RoleAdmin Role = "admin"
	RoleOwner Role = "hotelOwner"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID   string
	Role Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanManage reports whether the caller may see and change the record.
func (c Caller) CanManage(d *DiscountCode) bool {
	return c.IsAdmin() || d.OwnedBy(c.ID)
}

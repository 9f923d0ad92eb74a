package common

// Role determines which application area a principal may access.
type Role string

const (
	RoleMotorista Role = "motorista"
	RoleOficina   Role = "oficina"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleMotorista, RoleOficina, RoleAdmin:
		return true
	}
	return false
}

// Plan is the subscription tier of an oficina.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro
}

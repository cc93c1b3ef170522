package models

import (
	"errors"
	"strings"
)

// ErrUnknownRole — значение роли не входит в закрытое перечисление.
var ErrUnknownRole = errors.New("unknown role")

// Role — уровень прав пользователя. Набор значений закрыт.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleFarmer      Role = "farmer"
	RoleRetailer    Role = "retailer"
	RoleTransporter Role = "transporter"
	RoleManager     Role = "manager"
	RoleRegulator   Role = "regulator"
)

// Roles возвращает все допустимые роли в стабильном порядке.
func Roles() []Role {
	return []Role{
		RoleAdmin,
		RoleFarmer,
		RoleRetailer,
		RoleTransporter,
		RoleManager,
		RoleRegulator,
	}
}

// IsValid сообщает, входит ли роль в перечисление.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleFarmer, RoleRetailer, RoleTransporter, RoleManager, RoleRegulator:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// ParseRole приводит строку к Role (без учёта регистра и пробелов по краям).
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", ErrUnknownRole
	}

	return r, nil
}

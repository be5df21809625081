package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Role represents the kind of principal acting on the system
type Role string

const (
	RoleCustomer    Role = "customer"
	RoleAdmin       Role = "admin"
	RoleChef        Role = "chef"
	RoleWaiter      Role = "waiter"
	RoleAccountance Role = "accountance"
)

// StaffRoles lists the roles that can log in with a password
var StaffRoles = []Role{RoleAdmin, RoleChef, RoleWaiter, RoleAccountance}

// IsStaff reports whether r is a staff role
func (r Role) IsStaff() bool {
	for _, staff := range StaffRoles {
		if r == staff {
			return true
		}
	}
	return false
}

// Customer is identified by phone number and owns orders
type Customer struct {
	ID          string    `gorm:"primary_key" bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	PhoneNumber string    `gorm:"unique_index" bson:"phoneNumber" json:"phoneNumber"`
	OrderIDs    []string  `gorm:"-" bson:"orders" json:"-"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Staff is a password-authenticated restaurant employee
type Staff struct {
	ID             string    `gorm:"primary_key" bson:"_id" json:"id"`
	Name           string    `bson:"name" json:"name"`
	PhoneNumber    string    `gorm:"unique_index" bson:"phoneNumber" json:"phoneNumber"`
	PasswordHash   string    `bson:"password" json:"-"`
	Role           Role      `bson:"role" json:"role"`
	AssignedTables IntSlice  `gorm:"type:text" bson:"assignedTables" json:"assignedTables"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}

// TableName keeps the staff table name singular
func (Staff) TableName() string {
	return "staff"
}

// ServesTable reports whether the table is assigned to the staff member
func (s *Staff) ServesTable(table int) bool {
	for _, t := range s.AssignedTables {
		if t == table {
			return true
		}
	}
	return false
}

// IntSlice represents a slice of ints that can be stored in the database
type IntSlice []int

// Value converts the slice to a JSON string for storage
func (s IntSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]int(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan converts the database value back to a slice
func (s *IntSlice) Scan(value interface{}) error {
	if value == nil {
		*s = IntSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported type for IntSlice")
	}
}

// Dedupe returns the tables with duplicates removed, keeping first occurrence order
func (s IntSlice) Dedupe() IntSlice {
	seen := make(map[int]bool, len(s))
	out := make(IntSlice, 0, len(s))
	for _, t := range s {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

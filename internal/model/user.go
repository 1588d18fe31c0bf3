package model

import "time"

// User represents a row in the `users` table. Members authenticate
// with email and password; admins additionally carry is_admin=true
// which grants write access to reference data and approval authority
// over return and repair requests.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name of the member.
//  Email        – unique email address (stored lowercase).
//  Phone        – contact phone number.
//  PasswordHash – bcrypt hashed password.
//  IsAdmin      – whether the member has administrative rights.
//  DepartmentID – optional foreign key into departments.
//  County       – home county of the member (display string).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	IsAdmin      bool
	DepartmentID *uint64
	County       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

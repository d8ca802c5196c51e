package domain

import "time"

type User struct {
	UserID             string     `json:"id" dynamodbav:"user_id"`
	Username           string     `json:"username" dynamodbav:"username"`
	Email              string     `json:"email" dynamodbav:"email"`
	PasswordHash       string     `json:"-" dynamodbav:"password_hash"`
	Role               string     `json:"role" dynamodbav:"role"`
	IsStaff            bool       `json:"is_staff" dynamodbav:"is_staff"`
	IsSuperuser        bool       `json:"-" dynamodbav:"is_superuser"`
	IsActive           bool       `json:"is_active" dynamodbav:"is_active"`
	DeactivationReason *string    `json:"deactivation_reason,omitempty" dynamodbav:"deactivation_reason"`
	LastLogin          *time.Time `json:"last_login,omitempty" dynamodbav:"last_login"`
	CreatedAt          time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt          time.Time  `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"` // defaults to "user"
}

type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=1"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// UserStatusRequest toggles the active flag. Deactivation requires a reason;
// reactivation clears it.
type UserStatusRequest struct {
	IsActive           *bool  `json:"is_active" validate:"required"`
	DeactivationReason string `json:"deactivation_reason"`
}

package auth

import "github.com/yungbote/shelfscan-backend/internal/domain/user"

// Session is the authenticated caller threaded through every operation.
type Session struct {
	UserID string    `json:"userId"`
	Role   user.Role `json:"role"`
	Name   string    `json:"name,omitempty"`
}

func (s *Session) Authenticated() bool { return s != nil && s.UserID != "" }

func (s *Session) IsAdmin() bool { return s.Authenticated() && s.Role == user.RoleAdmin }

func (s *Session) IsContractor() bool { return s.Authenticated() && s.Role == user.RoleContractor }

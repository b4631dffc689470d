/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package notification

import (
	"context"
)

// UserTypeService maintains the user type cached on UserData records.
type UserTypeService struct {
	users *UserDataRepository
}

// NewUserTypeService creates a UserTypeService over the user cache.
func NewUserTypeService(users *UserDataRepository) *UserTypeService {
	return &UserTypeService{users: users}
}

// UpdateUserTypeForExistingUser stores userType on a cached user that has none
// yet. It does nothing for a nil user, an empty type, or a user whose type is
// already known.
func (s *UserTypeService) UpdateUserTypeForExistingUser(ctx context.Context, user *UserData, userType string) error {
	if user == nil || userType == "" || user.UserType != "" {
		return nil
	}

	updated := *user
	updated.UserType = userType
	if err := s.users.InsertOrMerge(ctx, updated); err != nil {
		return err
	}
	user.UserType = userType
	return nil
}

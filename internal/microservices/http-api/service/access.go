package service

import "homelibrary/internal/microservices/http-api/models"

// Authorize decides whether user may exercise perm. A nil or inactive user is
// unauthenticated, which always wins over a missing permission. An empty perm
// only requires a login.
func Authorize(user *models.User, perm string) error {
	if user == nil || !user.IsActive {
		return ErrUnauthenticated
	}
	if perm != "" && !user.HasPerm(perm) {
		return ErrForbidden
	}
	return nil
}

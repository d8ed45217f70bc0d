package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"posterminal/models"
	"posterminal/utils"
)

// dummyHash keeps the cost of a login with an unknown username close to that
// of one with a wrong password.
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWdZ2r3fkRZ57ZvyZ0YQBl1rYkxa"

// Users is the identity collaborator: a fixed set of staff accounts with
// bcrypt password hashes.
type Users struct {
	hashes map[string]string
}

func NewUsers(users []models.User) *Users {
	u := &Users{hashes: make(map[string]string, len(users))}
	for _, user := range users {
		u.hashes[user.Username] = user.PasswordHash
	}
	return u
}

// ParseUsers reads "name:hash,name:hash" and rejects entries whose hash is
// not a bcrypt hash, which is what a shell or .env expansion of "$" leaves.
func ParseUsers(list string) ([]models.User, error) {
	var users []models.User
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, hash, ok := strings.Cut(entry, ":")
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("%w: user entry %q must be name:bcrypt-hash", models.ErrInvalidArgument, entry)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("%w: user %q has an invalid bcrypt hash: %v", models.ErrInvalidArgument, name, err)
		}
		users = append(users, models.User{Username: name, PasswordHash: hash})
	}
	return users, nil
}

// Verify returns the identity for valid credentials.
func (u *Users) Verify(username, password string) (string, error) {
	hash, ok := u.hashes[username]
	if !ok {
		_ = utils.VerifyPassword(dummyHash, password)
		return "", fmt.Errorf("%w: invalid credentials", models.ErrUnauthenticated)
	}
	if err := utils.VerifyPassword(hash, password); err != nil {
		return "", fmt.Errorf("%w: invalid credentials", models.ErrUnauthenticated)
	}
	return username, nil
}

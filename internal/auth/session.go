package auth

import (
	"crypto/md5"
	"fmt"

	"github.com/google/uuid"
)

// nullUserComponent renders an absent user id in the session-id input.
const nullUserComponent = "null"

// SessionID derives the deterministic session id for a (client, user) pair.
//
// The id is a name-based version 3 UUID over the bytes of clientID followed
// by the user id zero-padded to 19 digits, or "null" when there is no user.
// No namespace is prepended, so ids stay stable across deployments.
func SessionID(clientID string, userID *int64) uuid.UUID {
	user := nullUserComponent
	if userID != nil {
		user = fmt.Sprintf("%019d", *userID)
	}

	sum := md5.Sum([]byte(clientID + user))
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.UUID(sum)
}

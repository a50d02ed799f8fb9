package model

import "github.com/golang-jwt/jwt/v5"

// Role is the side of a booking an identity acts on
type Role string

const (
	RoleMentor  Role = "mentor"
	RoleLearner Role = "learner"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleMentor || r == RoleLearner
}

// Identity is bound to a connection once its credential checks out.
// It never changes for the lifetime of that connection.
type Identity struct {
	UserID   string `json:"userId" bson:"userId"`
	Username string `json:"username" bson:"username"`
	Role     Role   `json:"role" bson:"role"`
}

// UserClaims are the JWT claims carried by a bearer credential
type UserClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the identity encoded in the claims
func (c *UserClaims) Identity() Identity {
	return Identity{
		UserID:   c.UserID,
		Username: c.Username,
		Role:     c.Role,
	}
}

// TokenResponse is returned when a credential is minted
type TokenResponse struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
}

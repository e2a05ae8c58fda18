package domain

// UserID is the integral primary key of a user row. Token subjects carry it
// in decimal form.
type UserID = int64

// Principal is the resolved identity attached to an authenticated request.
type Principal struct {
	ID    UserID `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

package services

// Identity is supplied by the session layer. The zero value is anonymous.
type Identity struct {
	UserID   uint
	Username string
	Role     string
}

func (id Identity) Authenticated() bool {
	return id.UserID != 0
}

package models

// Actor is the authenticated identity performing a request. It is resolved
// once per request from a validated token and threaded explicitly through
// the service and policy layers; there is no ambient session state.
type Actor struct {
	ID       string
	IsAdmin  bool
	Verified bool
}

// ActorFor builds an Actor snapshot from a user record.
func ActorFor(u *User) Actor {
	return Actor{ID: u.ID, IsAdmin: u.IsAdmin(), Verified: u.Verified()}
}

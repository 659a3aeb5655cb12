package auth

// Authenticator checks a username/password pair.
type Authenticator interface {
	Check(username, password string) bool
}

// AuthenticatorFunc adapts an ordinary function to an Authenticator.
type AuthenticatorFunc func(username, password string) bool

func (f AuthenticatorFunc) Check(username, password string) bool {
	return f(username, password)
}

// Static accepts exactly one configured username and password.
type Static struct {
	Username string
	Password string
}

func (s Static) Check(username, password string) bool {
	return username == s.Username && password == s.Password
}

// AnyOf accepts a pair if any of the given authenticators does.
func AnyOf(authenticators ...Authenticator) Authenticator {
	return AuthenticatorFunc(func(username, password string) bool {
		for _, a := range authenticators {
			if a != nil && a.Check(username, password) {
				return true
			}
		}
		return false
	})
}

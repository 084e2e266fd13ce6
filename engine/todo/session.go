package todo

// Session identifies the authenticated user a persistence instance acts for.
type Session interface {
	Username() string
}

// UserSession is a Session backed by a plain username.
type UserSession string

func (s UserSession) Username() string { return string(s) }

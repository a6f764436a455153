package account

// HasUserUUID reports whether SessionObject.GetUserUUID will succeed.
func HasUserUUID(session *SessionObject) bool {
	if session == nil {
		return false
	}
	_, err := session.GetUserUUID()
	return err == nil
}

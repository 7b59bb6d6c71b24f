package crypto

// passwordSuffix is appended to a plaintext password to produce the stored
// value. It is not a hash; the stored value can be compared verbatim.
const passwordSuffix = "notreallyhashed"

// HashPassword returns the value stored in users.hashed_password for password.
func HashPassword(password string) string {
	return password + passwordSuffix
}

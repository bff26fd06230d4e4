// Password protection for stored files.
//
// Protected files use Argon2id hashing with 19MB memory and 2 iterations.
// The hash lives in a sidecar file named after the served name
// ("file.txt.password") in the same kind directory, so it survives the
// expiry and tombstone renames of the file it protects.

package paste

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// PasswordFileSuffix marks password sidecar files. Names ending in it are
// never served, listed, deleted directly, or considered for dedup.
const PasswordFileSuffix = ".password"

const (
	argonMemory  = 19456 // KiB
	argonTime    = 2
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

// HashPassword hashes password with Argon2id and returns the hash in PHC
// string form.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "generate salt")
	}
	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	encoding := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		encoding.EncodeToString(salt), encoding.EncodeToString(key)), nil
}

// VerifyPassword checks password against a PHC-encoded Argon2id hash in
// constant time.
func VerifyPassword(password, encoded string) bool {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[1] != "argon2id" {
		return false
	}
	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false
	}
	encoding := base64.RawStdEncoding
	salt, err := encoding.DecodeString(fields[4])
	if err != nil {
		return false
	}
	key, err := encoding.DecodeString(fields[5])
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

// PasswordFilePath returns the sidecar path for filePath.
func PasswordFilePath(filePath string) string {
	return filePath + PasswordFileSuffix
}

// StorePasswordHash protects filePath by writing the password's hash into
// the sidecar file.
func StorePasswordHash(filePath, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return os.WriteFile(PasswordFilePath(filePath), []byte(hash), 0o600)
}

// HasPassword reports whether filePath is password-protected.
func HasPassword(filePath string) bool {
	info, err := os.Stat(PasswordFilePath(filePath))
	return err == nil && info.Mode().IsRegular()
}

// VerifyFilePassword checks password against filePath's sidecar hash.
func VerifyFilePassword(filePath, password string) (bool, error) {
	hash, err := os.ReadFile(PasswordFilePath(filePath))
	if err != nil {
		return false, errors.Wrap(err, "read password file")
	}
	return VerifyPassword(password, strings.TrimSpace(string(hash))), nil
}

// DeletePasswordFile removes filePath's sidecar, if any.
func DeletePasswordFile(filePath string) error {
	err := os.Remove(PasswordFilePath(filePath))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

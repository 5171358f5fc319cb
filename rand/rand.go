package rand

import (
	cryptoRand "crypto/rand"
	"github.com/google/uuid"
)

// GenerateCryptoSafeRandomData fills b with cryptographically-safe random data.
func GenerateCryptoSafeRandomData(b []byte) error {
	_, err := cryptoRand.Read(b)
	if err != nil {
		return err
	}
	return nil
}


// GenerateUuid returns a UUID in string format (including hyphens).
func GenerateUuid() string {
	return uuid.NewString()
}
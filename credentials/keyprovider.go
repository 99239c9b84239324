package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/argon2"
)

const (
	// keyLength is the AES-256 key size the store encrypts with.
	keyLength = 32
	// saltLength is the salt size for passphrase-derived keys.
	saltLength = 16

	keyringService = "coachsync"
	keyringUser    = "encryption-key"

	// saltFile sits beside the credentials file and holds the hex salt for
	// passphrase-derived keys.
	saltFile = "credentials.salt"

	// EncryptionKeyEnvVar supplies the store key directly as 64 hex
	// characters, for CI and other environments without a keyring.
	EncryptionKeyEnvVar = "COACHSYNC_ENCRYPTION_KEY"

	// EncryptionPassphraseEnvVar supplies a passphrase instead of a raw
	// key. The derived key's salt is persisted in the credentials
	// directory so the same passphrase always yields the same key.
	EncryptionPassphraseEnvVar = "COACHSYNC_PASSPHRASE"
)

// Argon2id parameters for passphrase-derived keys.
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
)

// ErrKeyringUnavailable indicates the system keyring cannot be reached.
var ErrKeyringUnavailable = errors.New("system keyring unavailable")

// errKeyMissing marks a key source that is reachable but holds no key, so
// resolution moves on to the next source in the chain.
var errKeyMissing = errors.New("no key stored")

// keySource is one place the store encryption key can live. load returns
// errKeyMissing when the source is empty; provision, when non-nil, seeds the
// source with a fresh key.
type keySource struct {
	name      string
	load      func() ([]byte, error)
	provision func() ([]byte, error)
}

// ResolveKey walks the key locations in order: the COACHSYNC_ENCRYPTION_KEY
// environment variable, a COACHSYNC_PASSPHRASE-derived key, then the system
// keyring. The first source holding a key wins; an empty keyring is seeded
// with a fresh random key on first use. The returned name identifies the
// winning source for error messages and prompts.
func ResolveKey() (key []byte, source string, err error) {
	for _, src := range keyChain() {
		key, err := src.load()
		switch {
		case err == nil:
			return key, src.name, nil
		case errors.Is(err, errKeyMissing):
			if src.provision == nil {
				continue
			}
			key, err = src.provision()
			if err != nil {
				return nil, "", fmt.Errorf("%s: %w", src.name, err)
			}
			return key, src.name, nil
		default:
			return nil, "", fmt.Errorf("%s: %w", src.name, err)
		}
	}
	return nil, "", fmt.Errorf(
		"no encryption key available; set %s or %s, or unlock the system keyring",
		EncryptionKeyEnvVar, EncryptionPassphraseEnvVar)
}

func keyChain() []keySource {
	return []keySource{
		envKeySource(),
		passphraseKeySource(),
		keyringKeySource(),
	}
}

// envKeySource reads a hex-encoded key from the environment. It is never
// provisioned; whoever sets the variable owns the key.
func envKeySource() keySource {
	return keySource{
		name: fmt.Sprintf("environment (%s)", EncryptionKeyEnvVar),
		load: func() ([]byte, error) {
			raw := os.Getenv(EncryptionKeyEnvVar)
			if raw == "" {
				return nil, errKeyMissing
			}
			return decodeKey(raw)
		},
	}
}

// passphraseKeySource derives the key from COACHSYNC_PASSPHRASE. The salt is
// created on first use and persisted beside the credentials file; losing it
// makes the stored credentials undecryptable.
func passphraseKeySource() keySource {
	return keySource{
		name: fmt.Sprintf("passphrase (%s)", EncryptionPassphraseEnvVar),
		load: func() ([]byte, error) {
			passphrase := os.Getenv(EncryptionPassphraseEnvVar)
			if passphrase == "" {
				return nil, errKeyMissing
			}
			salt, err := loadOrCreateSalt()
			if err != nil {
				return nil, err
			}
			return DeriveKey(passphrase, salt)
		},
	}
}

// keyringKeySource stores the key hex-encoded in the OS keyring: macOS
// Keychain, Windows Credential Manager, Secret Service elsewhere.
func keyringKeySource() keySource {
	return keySource{
		name: keyringName(),
		load: func() ([]byte, error) {
			raw, err := keyring.Get(keyringService, keyringUser)
			if errors.Is(err, keyring.ErrNotFound) {
				return nil, errKeyMissing
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
			}
			key, err := decodeKey(raw)
			if err != nil {
				// A corrupt stored key cannot decrypt anything; reseed.
				return nil, errKeyMissing
			}
			return key, nil
		},
		provision: func() ([]byte, error) {
			key := make([]byte, keyLength)
			if _, err := rand.Read(key); err != nil {
				return nil, fmt.Errorf("generating key: %w", err)
			}
			if err := keyring.Set(keyringService, keyringUser, hex.EncodeToString(key)); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
			}
			return key, nil
		},
	}
}

func keyringName() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "system keyring"
	}
}

// DeriveKey derives a store key from a passphrase with Argon2id. The salt
// must be persisted and reused on every open, or the key changes.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase is required")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt is required")
	}
	return argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, keyLength), nil
}

// GenerateSalt produces a random salt for DeriveKey.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// loadOrCreateSalt reads the persisted passphrase salt, creating it on first
// use.
func loadOrCreateSalt() ([]byte, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, saltFile)

	data, err := os.ReadFile(path)
	if err == nil {
		salt, decErr := hex.DecodeString(strings.TrimSpace(string(data)))
		if decErr != nil || len(salt) != saltLength {
			return nil, fmt.Errorf("salt file %s is corrupt; remove it to start over (stored credentials will be lost)", path)
		}
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading salt file: %w", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating credentials directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(salt)+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("writing salt file: %w", err)
	}
	return salt, nil
}

// decodeKey parses a hex-encoded 256-bit key.
func decodeKey(raw string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("key is not valid hex: %w", err)
	}
	if len(key) != keyLength {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keyLength, len(key))
	}
	return key, nil
}

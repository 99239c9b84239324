// Package credentials provides encrypted storage for provider API keys.
// Keys are stored in ~/.coachsync/credentials.yaml, encrypted at rest with
// AES-GCM. Each stored key carries the label it is referenced by in the
// sync configuration.
//
// The encryption key is resolved through a fixed chain: the
// COACHSYNC_ENCRYPTION_KEY environment variable (64 hex characters), a
// COACHSYNC_PASSPHRASE-derived key, then the system keyring (macOS
// Keychain, Windows Credential Manager, Secret Service on Linux).
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Credential storage constants.
const (
	DefaultCredentialsDir  = ".coachsync"
	DefaultCredentialsFile = "credentials.yaml"
)

// Common errors.
var (
	// ErrNoCredentials is returned when no credentials are stored.
	ErrNoCredentials = errors.New("no credentials stored")
	// ErrNotFound is returned when no credential exists under the given label.
	ErrNotFound = errors.New("credential not found")
	// ErrInvalidCredentials is returned when stored credentials are malformed.
	ErrInvalidCredentials = errors.New("invalid credentials format")
	// ErrEncryptionFailed is returned when encryption/decryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
)

// Credential is one labeled provider API key. The label ties the key to a
// credentials entry in the sync configuration.
type Credential struct {
	// Label identifies the credential in configuration and CLI output.
	Label string `yaml:"label"`
	// APIKey is the provider API key (encrypted at rest).
	APIKey string `yaml:"api_key"`
	// OwnerCoachID is the coach who owns this provider account. Used as
	// the identity fallback for transcripts fetched with this key.
	OwnerCoachID string `yaml:"owner_coach_id,omitempty"`
	// AddedAt is when the credential was stored.
	AddedAt time.Time `yaml:"added_at"`
}

// credentialsFile is the on-disk shape of the credentials file.
type credentialsFile struct {
	Credentials []Credential `yaml:"credentials"`
	LastUpdated time.Time    `yaml:"last_updated"`
}

// Store manages credential storage operations.
type Store struct {
	// credentialsDir is the directory containing credentials.
	credentialsDir string
	// encryptionKey is the key used for encrypting/decrypting credentials.
	encryptionKey []byte
	// keyOrigin names where the key came from, for error messages.
	keyOrigin string
}

// NewStore opens the credential store, resolving the encryption key through
// the standard chain (environment key, passphrase, system keyring).
func NewStore() (*Store, error) {
	key, origin, err := ResolveKey()
	if err != nil {
		return nil, fmt.Errorf("resolving encryption key: %w", err)
	}
	return NewStoreWithKey(key, origin)
}

// NewStoreWithKey opens the store with an explicit 32-byte key. origin names
// the key's source for error messages.
func NewStoreWithKey(key []byte, origin string) (*Store, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", keyLength, len(key))
	}
	if origin == "" {
		origin = "caller-supplied key"
	}

	dir, err := CredentialsDir()
	if err != nil {
		return nil, fmt.Errorf("getting credentials directory: %w", err)
	}

	return &Store{
		credentialsDir: dir,
		encryptionKey:  key,
		keyOrigin:      origin,
	}, nil
}

// CredentialsDir returns the credentials directory path.
// Uses $COACHSYNC_CONFIG_DIR if set, otherwise ~/.coachsync
func CredentialsDir() (string, error) {
	if dir := os.Getenv("COACHSYNC_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultCredentialsDir), nil
}

// CredentialsPath returns the full path to the credentials file.
func CredentialsPath() (string, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultCredentialsFile), nil
}

// Set stores or replaces the credential under the given label.
func (s *Store) Set(cred Credential) error {
	if cred.Label == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidCredentials)
	}
	if cred.APIKey == "" {
		return fmt.Errorf("%w: api key is required", ErrInvalidCredentials)
	}

	file, err := s.load()
	if err != nil && !errors.Is(err, ErrNoCredentials) {
		return err
	}
	if file == nil {
		file = &credentialsFile{}
	}

	cred.AddedAt = time.Now().UTC()
	replaced := false
	for i := range file.Credentials {
		if file.Credentials[i].Label == cred.Label {
			file.Credentials[i] = cred
			replaced = true
			break
		}
	}
	if !replaced {
		file.Credentials = append(file.Credentials, cred)
	}

	return s.save(file)
}

// Get returns the decrypted credential stored under the given label.
func (s *Store) Get(label string) (*Credential, error) {
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range file.Credentials {
		if file.Credentials[i].Label == label {
			cred := file.Credentials[i]
			return &cred, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, label)
}

// List returns all stored credentials, decrypted, sorted by label.
func (s *Store) List() ([]Credential, error) {
	file, err := s.load()
	if err != nil {
		if errors.Is(err, ErrNoCredentials) {
			return nil, nil
		}
		return nil, err
	}

	creds := make([]Credential, len(file.Credentials))
	copy(creds, file.Credentials)
	sort.Slice(creds, func(i, j int) bool { return creds[i].Label < creds[j].Label })
	return creds, nil
}

// Remove deletes the credential stored under the given label.
func (s *Store) Remove(label string) error {
	file, err := s.load()
	if err != nil {
		return err
	}

	kept := file.Credentials[:0]
	found := false
	for _, cred := range file.Credentials {
		if cred.Label == label {
			found = true
			continue
		}
		kept = append(kept, cred)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	file.Credentials = kept

	if len(file.Credentials) == 0 {
		return s.Delete()
	}
	return s.save(file)
}

// Delete removes the credentials file entirely.
func (s *Store) Delete() error {
	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)

	if err := os.Remove(credPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("removing credentials file: %w", err)
	}

	return nil
}

// Exists checks if the credentials file exists.
func (s *Store) Exists() bool {
	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)
	_, err := os.Stat(credPath)
	return err == nil
}

// load reads and decrypts the credentials file.
func (s *Store) load() (*credentialsFile, error) {
	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)

	data, err := os.ReadFile(credPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var file credentialsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	for i := range file.Credentials {
		decrypted, err := s.decrypt(file.Credentials[i].APIKey)
		if err != nil {
			return nil, fmt.Errorf("decrypting key %q with key from %s: %w",
				file.Credentials[i].Label, s.keyOrigin, err)
		}
		file.Credentials[i].APIKey = decrypted
	}

	return &file, nil
}

// save encrypts the API keys and writes the credentials file.
func (s *Store) save(file *credentialsFile) error {
	if err := s.ensureDir(); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	storage := credentialsFile{
		Credentials: make([]Credential, len(file.Credentials)),
		LastUpdated: time.Now().UTC(),
	}
	copy(storage.Credentials, file.Credentials)

	for i := range storage.Credentials {
		encrypted, err := s.encrypt(storage.Credentials[i].APIKey)
		if err != nil {
			return fmt.Errorf("encrypting key %q: %w", storage.Credentials[i].Label, err)
		}
		storage.Credentials[i].APIKey = encrypted
	}

	data, err := yaml.Marshal(&storage)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}

	credPath := filepath.Join(s.credentialsDir, DefaultCredentialsFile)
	if err := os.WriteFile(credPath, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}

	return nil
}

// ensureDir creates the credentials directory if it doesn't exist.
func (s *Store) ensureDir() error {
	return os.MkdirAll(s.credentialsDir, 0700)
}

// encrypt encrypts a string using AES-GCM.
func (s *Store) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generating nonce: %v", ErrEncryptionFailed, err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts an AES-GCM encrypted string.
func (s *Store) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrEncryptionFailed, err)
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrEncryptionFailed)
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decryption failed: %v", ErrEncryptionFailed, err)
	}

	return string(plaintext), nil
}

// MaskAPIKey returns a masked API key for display, showing only the first
// and last four characters.
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return strings.Repeat("*", len(apiKey))
	}
	return apiKey[:4] + strings.Repeat("*", 8) + "..." + apiKey[len(apiKey)-4:]
}

// Fingerprint creates a short stable ID for an API key (for display purposes).
func Fingerprint(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:4])
}

package credentials

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EncryptionKeyEnvVar, "")
	os.Unsetenv(EncryptionKeyEnvVar)
	t.Setenv(EncryptionPassphraseEnvVar, "")
	os.Unsetenv(EncryptionPassphraseEnvVar)
}

func TestResolveKey_EnvKey(t *testing.T) {
	clearKeyEnv(t)

	t.Run("valid hex key", func(t *testing.T) {
		t.Setenv(EncryptionKeyEnvVar, testEncryptionKey)

		key, source, err := ResolveKey()
		if err != nil {
			t.Fatalf("ResolveKey() error = %v", err)
		}
		if len(key) != keyLength {
			t.Errorf("key length = %d, want %d", len(key), keyLength)
		}
		want, _ := hex.DecodeString(testEncryptionKey)
		if !bytes.Equal(key, want) {
			t.Error("ResolveKey() returned wrong key bytes")
		}
		if !strings.Contains(source, EncryptionKeyEnvVar) {
			t.Errorf("source = %q, want it to name %s", source, EncryptionKeyEnvVar)
		}
	})

	t.Run("invalid hex", func(t *testing.T) {
		t.Setenv(EncryptionKeyEnvVar, "not-hex-at-all")
		if _, _, err := ResolveKey(); err == nil {
			t.Error("ResolveKey() expected error for invalid hex")
		}
	})

	t.Run("wrong length", func(t *testing.T) {
		t.Setenv(EncryptionKeyEnvVar, "abcd1234")
		if _, _, err := ResolveKey(); err == nil {
			t.Error("ResolveKey() expected error for short key")
		}
	})
}

func TestResolveKey_EnvKeyOutranksPassphrase(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("COACHSYNC_CONFIG_DIR", t.TempDir())
	t.Setenv(EncryptionKeyEnvVar, testEncryptionKey)
	t.Setenv(EncryptionPassphraseEnvVar, "correct horse battery staple")

	key, source, err := ResolveKey()
	if err != nil {
		t.Fatalf("ResolveKey() error = %v", err)
	}
	want, _ := hex.DecodeString(testEncryptionKey)
	if !bytes.Equal(key, want) {
		t.Error("ResolveKey() ignored the environment key")
	}
	if !strings.Contains(source, EncryptionKeyEnvVar) {
		t.Errorf("source = %q, want the environment source", source)
	}
}

func TestResolveKey_Passphrase(t *testing.T) {
	clearKeyEnv(t)
	dir := t.TempDir()
	t.Setenv("COACHSYNC_CONFIG_DIR", dir)
	t.Setenv(EncryptionPassphraseEnvVar, "correct horse battery staple")

	key1, source, err := ResolveKey()
	if err != nil {
		t.Fatalf("ResolveKey() error = %v", err)
	}
	if len(key1) != keyLength {
		t.Errorf("key length = %d, want %d", len(key1), keyLength)
	}
	if !strings.Contains(source, EncryptionPassphraseEnvVar) {
		t.Errorf("source = %q, want the passphrase source", source)
	}

	// The salt is persisted, so the same passphrase resolves the same key.
	if _, err := os.Stat(filepath.Join(dir, saltFile)); err != nil {
		t.Fatalf("salt file not persisted: %v", err)
	}
	key2, _, err := ResolveKey()
	if err != nil {
		t.Fatalf("ResolveKey() second call error = %v", err)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("passphrase key is not stable across resolutions")
	}
}

func TestResolveKey_CorruptSaltFile(t *testing.T) {
	clearKeyEnv(t)
	dir := t.TempDir()
	t.Setenv("COACHSYNC_CONFIG_DIR", dir)
	t.Setenv(EncryptionPassphraseEnvVar, "passphrase")

	if err := os.WriteFile(filepath.Join(dir, saltFile), []byte("zz-not-hex"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ResolveKey(); err == nil {
		t.Error("ResolveKey() expected error for corrupt salt file")
	}
}

func TestDeriveKey(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}

	t.Run("deterministic for same inputs", func(t *testing.T) {
		key1, err := DeriveKey("same passphrase", salt)
		if err != nil {
			t.Fatalf("DeriveKey() error = %v", err)
		}
		key2, err := DeriveKey("same passphrase", salt)
		if err != nil {
			t.Fatalf("DeriveKey() error = %v", err)
		}
		if !bytes.Equal(key1, key2) {
			t.Error("DeriveKey() is not deterministic")
		}
		if len(key1) != keyLength {
			t.Errorf("key length = %d, want %d", len(key1), keyLength)
		}
	})

	t.Run("differs by passphrase", func(t *testing.T) {
		key1, _ := DeriveKey("passphrase-one", salt)
		key2, _ := DeriveKey("passphrase-two", salt)
		if bytes.Equal(key1, key2) {
			t.Error("different passphrases derived the same key")
		}
	})

	t.Run("differs by salt", func(t *testing.T) {
		salt2, err := GenerateSalt()
		if err != nil {
			t.Fatalf("GenerateSalt() error = %v", err)
		}
		key1, _ := DeriveKey("same passphrase", salt)
		key2, _ := DeriveKey("same passphrase", salt2)
		if bytes.Equal(key1, key2) {
			t.Error("different salts derived the same key")
		}
	})

	t.Run("empty passphrase rejected", func(t *testing.T) {
		if _, err := DeriveKey("", salt); err == nil {
			t.Error("DeriveKey() expected error for empty passphrase")
		}
	})

	t.Run("missing salt rejected", func(t *testing.T) {
		if _, err := DeriveKey("passphrase", nil); err == nil {
			t.Error("DeriveKey() expected error for missing salt")
		}
	})
}

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}
	if len(salt1) != saltLength {
		t.Errorf("GenerateSalt() length = %d, want %d", len(salt1), saltLength)
	}

	salt2, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt() error = %v", err)
	}
	if bytes.Equal(salt1, salt2) {
		t.Error("GenerateSalt() returned identical salts")
	}
}

func TestNewStoreWithKey_RejectsBadLength(t *testing.T) {
	t.Setenv("COACHSYNC_CONFIG_DIR", t.TempDir())
	if _, err := NewStoreWithKey([]byte("short"), "test"); err == nil {
		t.Error("NewStoreWithKey() expected error for a short key")
	}
}

// Package auth implements the forum's credential persistence and the
// username/password negotiation run at the start of every session.
package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// CredentialStore persists accounts as lines of "username <bcrypt-hash>" in
// a single flat file. One mutex covers every lookup and mutation, so an
// exists-check followed by an append is atomic with respect to concurrent
// account creation.
type CredentialStore struct {
	mu       sync.Mutex
	filePath string
}

// NewCredentialStore returns a store backed by filePath. The file is
// created on the first account creation.
func NewCredentialStore(filePath string) *CredentialStore {
	return &CredentialStore{filePath: filePath}
}

// Lookup reports whether username has an account.
func (cs *CredentialStore) Lookup(username string) (bool, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	creds, err := cs.load()
	if err != nil {
		return false, err
	}
	_, ok := creds[username]
	return ok, nil
}

// Verify reports whether password matches username's stored hash. An
// unknown username verifies false without error.
func (cs *CredentialStore) Verify(username, password string) (bool, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	creds, err := cs.load()
	if err != nil {
		return false, err
	}
	hash, ok := creds[username]
	if !ok {
		return false, nil
	}
	return ValidatePassword(password, hash), nil
}

// Create adds a new account. It reports false if the username is already
// taken; under concurrent creation of the same name exactly one caller
// wins.
func (cs *CredentialStore) Create(username, password string) (bool, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	creds, err := cs.load()
	if err != nil {
		return false, err
	}
	if _, taken := creds[username]; taken {
		return false, nil
	}
	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("auth: hash password: %w", err)
	}
	f, err := os.OpenFile(cs.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return false, fmt.Errorf("auth: open credentials file: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s %s\n", username, hash); err != nil {
		return false, fmt.Errorf("auth: write credentials file: %w", err)
	}
	return true, nil
}

// load reads the credential file into a username -> hash map. The caller
// holds cs.mu. A missing file is an empty store.
func (cs *CredentialStore) load() (map[string]string, error) {
	creds := make(map[string]string)
	f, err := os.Open(cs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return nil, fmt.Errorf("auth: open credentials file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 2)
		if len(fields) != 2 {
			continue
		}
		creds[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("auth: read credentials file: %w", err)
	}
	return creds, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ValidatePassword checks a plaintext password against a stored hash.
func ValidatePassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

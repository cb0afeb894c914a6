// Package secure wraps memguard to keep unlock tokens protected while the
// process runs. Tokens are encrypted at rest in memory and the backing pages
// are mlocked against swapping.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// String holds a sensitive string inside a memguard enclave. The zero value
// is empty and safe to use.
type String struct {
	mu      sync.RWMutex
	enclave *memguard.Enclave
}

// NewString seals a sensitive value into protected memory. The caller should
// drop its own copy as soon as possible.
func NewString(value string) *String {
	s := &String{}
	if value != "" {
		s.enclave = memguard.NewEnclave([]byte(value))
	}
	return s
}

// Reveal decrypts and returns the value. The plaintext copy returned here is
// short-lived by convention; callers must not retain it beyond the operation
// that needs it.
func (s *String) Reveal() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.enclave == nil {
		return "", nil
	}

	buf, err := s.enclave.Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()
	return buf.String(), nil
}

// IsEmpty reports whether no value is held.
func (s *String) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enclave == nil
}

// Wipe drops the held value.
func (s *String) Wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enclave = nil
}

// Purge wipes every memguard-managed buffer in the process. Deferred from
// main so an exiting run leaves no plaintext behind.
func Purge() {
	memguard.Purge()
}

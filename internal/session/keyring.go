package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "habitr"
	keyringUser    = "session"
)

var (
	// ErrKeyringNotFound is returned when the keyring holds no session.
	ErrKeyringNotFound = errors.New("session not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

type secret struct {
	Username string `json:"username"`
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
}

func keyringGet() (secret, error) {
	raw, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return secret{}, ErrKeyringNotFound
		}
		return secret{}, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	var s secret
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return secret{}, fmt.Errorf("decode keyring session: %w", err)
	}
	return s, nil
}

func keyringSet(s secret) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, keyringUser, string(raw)); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

func keyringDelete() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

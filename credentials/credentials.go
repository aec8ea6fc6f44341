// Package credentials keeps the SDK registration triple (token, ak, sk) in the
// OS keyring, with environment and .env overrides.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
	"github.com/joho/godotenv"
)

const ServiceName = "oneclick-bridge"

const (
	KeyToken = "token"
	KeyAK    = "ak"
	KeySK    = "sk"
)

// Environment variables read by FromEnv.
const (
	EnvToken    = "ONECLICK_TOKEN"
	EnvAK       = "ONECLICK_AK"
	EnvSK       = "ONECLICK_SK"
	EnvPassword = "ONECLICK_KEYRING_PASSWORD"
)

var ErrNotFound = errors.New("no stored credentials")

type Credentials struct {
	Token string
	AK    string
	SK    string
}

func (c Credentials) Complete() bool {
	return c.Token != "" && c.AK != "" && c.SK != ""
}

// Args is the initSdk argument map.
func (c Credentials) Args() map[string]string {
	return map[string]string{KeyToken: c.Token, KeyAK: c.AK, KeySK: c.SK}
}

// Masked hides all but the last four characters of the secret key.
func (c Credentials) Masked() Credentials {
	out := c
	if len(out.SK) > 4 {
		out.SK = "****" + out.SK[len(out.SK)-4:]
	} else if out.SK != "" {
		out.SK = "****"
	}
	return out
}

type Store struct {
	ring keyring.Keyring
}

func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the platform keyring, falling back to an encrypted file keyring
// under the user config directory.
func Open() (*Store, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      ServiceName,
		FileDir:          filepath.Join(dir, ServiceName, "keyring"),
		FilePasswordFunc: filePassword,
		PassPrefix:       ServiceName,
		WinCredPrefix:    ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return NewStore(ring), nil
}

func filePassword(prompt string) (string, error) {
	if pw := os.Getenv(EnvPassword); pw != "" {
		return pw, nil
	}
	return keyring.TerminalPrompt(prompt)
}

func (s *Store) Save(c Credentials) error {
	if !c.Complete() {
		return errors.New("token, ak and sk are required")
	}
	for key, value := range c.Args() {
		if err := s.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key}); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
	}
	return nil
}

func (s *Store) Load() (Credentials, error) {
	var values [3]string
	for i, key := range []string{KeyToken, KeyAK, KeySK} {
		item, err := s.ring.Get(key)
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Credentials{}, ErrNotFound
		}
		if err != nil {
			return Credentials{}, fmt.Errorf("load %s: %w", key, err)
		}
		values[i] = string(item.Data)
	}
	return Credentials{Token: values[0], AK: values[1], SK: values[2]}, nil
}

func (s *Store) Clear() error {
	for _, key := range []string{KeyToken, KeyAK, KeySK} {
		if err := s.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("remove %s: %w", key, err)
		}
	}
	return nil
}

func FromEnv() Credentials {
	return Credentials{
		Token: os.Getenv(EnvToken),
		AK:    os.Getenv(EnvAK),
		SK:    os.Getenv(EnvSK),
	}
}

// LoadDotEnv loads environment variables from path. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Resolve prefers complete credentials from the environment and falls back to
// the store. store may be nil.
func Resolve(store *Store) (Credentials, error) {
	if env := FromEnv(); env.Complete() {
		return env, nil
	}
	if store == nil {
		return Credentials{}, ErrNotFound
	}
	return store.Load()
}

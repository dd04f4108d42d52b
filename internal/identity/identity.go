// Package identity assigns each client profile a durable pseudonymous token.
// The token only labels which comments came from "this client"; it grants
// nothing.
package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Key is the fixed storage key the token is persisted under. Comments
// carry the token in their user_id_session field.
const Key = "commentUserId"

const hintLen = 8

// Identity is a client's token. Persistent is false when storage was
// unavailable and the token will not survive the process.
type Identity struct {
	Token      string
	Persistent bool
}

// Hint returns the partial token shown to users.
func (i Identity) Hint() string {
	if utf8.RuneCountInString(i.Token) <= hintLen {
		return i.Token
	}
	return string([]rune(i.Token)[:hintLen]) + "..."
}

// Storage is local device storage holding one value per key.
// Load returns ("", nil) when the key is absent.
type Storage interface {
	Load(key string) (string, error)
	Save(key, value string) error
}

// UnavailableError reports that storage could not be used and an ephemeral
// identity was issued instead.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return "identity storage unavailable, using ephemeral identity: " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Assigner hands out the client identity, creating it on first use.
type Assigner struct {
	storage Storage
	newID   func() (string, error)

	mu         sync.Mutex
	current    *Identity
	currentErr error
}

// NewAssigner creates an assigner over storage. A nil storage behaves as
// permanently unavailable.
func NewAssigner(storage Storage) *Assigner {
	return &Assigner{storage: storage, newID: newToken}
}

// GetOrCreate returns the persisted identity, generating and saving one if
// none exists. When storage fails it still returns a usable identity, not
// persisted, together with an *UnavailableError. Within one Assigner the
// same identity and the same *UnavailableError are returned on every call.
func (a *Assigner) GetOrCreate() (Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current != nil {
		return *a.current, a.currentErr
	}

	id, err := a.resolve()
	if err != nil {
		var unavailable *UnavailableError
		if !errors.As(err, &unavailable) {
			return Identity{}, err
		}
		slog.Warn("identity not persisted", "err", unavailable.Err)
	}
	a.current = &id
	a.currentErr = err
	return id, err
}

func (a *Assigner) resolve() (Identity, error) {
	if a.storage == nil {
		return a.ephemeral(errors.New("no storage configured"))
	}

	stored, err := a.storage.Load(Key)
	if err != nil {
		return a.ephemeral(fmt.Errorf("reading %s: %w", Key, err))
	}
	if stored = strings.TrimSpace(stored); stored != "" {
		return Identity{Token: stored, Persistent: true}, nil
	}

	token, err := a.newID()
	if err != nil {
		return Identity{}, fmt.Errorf("generating identity: %w", err)
	}
	if err := a.storage.Save(Key, token); err != nil {
		return Identity{Token: token}, &UnavailableError{Err: fmt.Errorf("writing %s: %w", Key, err)}
	}
	slog.Debug("identity created", "hint", Identity{Token: token}.Hint())
	return Identity{Token: token, Persistent: true}, nil
}

func (a *Assigner) ephemeral(cause error) (Identity, error) {
	token, err := a.newID()
	if err != nil {
		return Identity{}, fmt.Errorf("generating identity: %w", err)
	}
	return Identity{Token: token}, &UnavailableError{Err: cause}
}

func newToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// FileStorage keeps keys in a small YAML file.
type FileStorage struct {
	path string
}

// NewFileStorage returns storage backed by the YAML file at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultPath returns ~/.config/folio/identity.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "folio", "identity.yaml"), nil
}

// Load reads one key. A missing file is an empty store.
func (s *FileStorage) Load(key string) (string, error) {
	values, err := s.read()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// Save writes one key, keeping any others in the file.
func (s *FileStorage) Save(key, value string) error {
	values, err := s.read()
	if err != nil {
		return err
	}
	values[key] = value

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshaling identity: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}

func (s *FileStorage) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

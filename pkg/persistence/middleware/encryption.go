package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/greenoffice/leadchat/pkg/ports"
)

const keySize = 32

var (
	// ErrNotSealed is returned when an encrypting store reads a plaintext state.
	ErrNotSealed = errors.New("state is missing encrypted data envelope")

	errNoKeyOpens = errors.New("no configured key opens the sealed state")
)

// EncryptionConfig holds the AES-256 keys. FallbackKeys are only used to open states
// sealed before a key rotation; new writes always use ActiveKey.
type EncryptionConfig struct {
	ActiveKey    []byte
	FallbackKeys [][]byte
}

// ParseKey decodes a base64 AES-256 key.
func ParseKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keySize, len(key))
	}
	return key, nil
}

type encryptionMiddleware struct {
	next ports.StateStore
	// aeads[0] seals; all of them are tried when opening.
	aeads []cipher.AEAD
}

// NewEncryptionMiddleware seals answers and routing with AES-GCM. Only the session ID,
// mode, status and timestamps stay readable so operators can still list and age
// sessions. The session ID is bound as additional data, so a sealed blob copied
// under another ID does not open.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != keySize {
		return nil, fmt.Errorf("active key must be %d bytes (AES-256)", keySize)
	}
	keys := append([][]byte{config.ActiveKey}, config.FallbackKeys...)
	aeads := make([]cipher.AEAD, 0, len(keys))
	for i, key := range keys {
		aead, err := newAEAD(key)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		aeads = append(aeads, aead)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &encryptionMiddleware{next: next, aeads: aeads}
	}, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (m *encryptionMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	plain, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	aead := m.aeads[0]
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to read nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plain, []byte(sessionID))

	return m.next.Save(ctx, sessionID, &domain.State{
		SessionID: state.SessionID,
		Answers:   domain.NewAnswers(),
		Mode:      state.Mode,
		Status:    state.Status,
		CreatedAt: state.CreatedAt,
		UpdatedAt: state.UpdatedAt,
		Sealed:    base64.StdEncoding.EncodeToString(sealed),
	})
}

func (m *encryptionMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	envelope, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if envelope.Sealed == "" {
		return nil, ErrNotSealed
	}

	sealed, err := base64.StdEncoding.DecodeString(envelope.Sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode sealed state: %w", err)
	}
	plain, err := m.open(sealed, []byte(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(plain, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted state: %w", err)
	}
	return &state, nil
}

func (m *encryptionMiddleware) open(sealed, sessionID []byte) ([]byte, error) {
	for _, aead := range m.aeads {
		n := aead.NonceSize()
		if len(sealed) < n {
			return nil, errors.New("ciphertext too short")
		}
		if plain, err := aead.Open(nil, sealed[:n], sealed[n:], sessionID); err == nil {
			return plain, nil
		}
	}
	return nil, errNoKeyOpens
}

func (m *encryptionMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *encryptionMiddleware) Ping(ctx context.Context) error {
	return ping(ctx, m.next)
}

package platform

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

// Имена полей входят в AAD, поэтому шифртекст одного поля нельзя
// подставить на место другого.
const (
	fieldAccessToken  = "access_token"
	fieldRefreshToken = "refresh_token"
	fieldAPISecret    = "api_secret"
)

// encryptedCredentials — учётные данные площадки, каждое секретное поле
// зашифровано отдельно. Срок жизни токена хранится открыто: он нужен
// для проверки протухания без расшифровки.
type encryptedCredentials struct {
	accessToken  []byte
	refreshToken []byte
	apiSecret    []byte
	expiresAt    time.Time
}

// CredentialStore хранит учётные данные площадок зашифрованными (AES-GCM,
// каждое поле отдельным шифртекстом). Расшифрованные значения существуют
// только в памяти на время вызова.
type CredentialStore struct {
	aead cipher.AEAD

	mu    sync.RWMutex
	creds map[domain.Channel]encryptedCredentials
}

// NewCredentialStore создаёт хранилище с ключом, выведенным из секрета.
func NewCredentialStore(secret string) (*CredentialStore, error) {
	if secret == "" {
		return nil, fmt.Errorf("credential secret is empty")
	}
	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &CredentialStore{
		aead:  aead,
		creds: make(map[domain.Channel]encryptedCredentials),
	}, nil
}

// Put шифрует каждое поле учётных данных и сохраняет их для площадки.
func (s *CredentialStore) Put(platform domain.Channel, creds domain.PlatformCredentials) error {
	accessToken, err := s.sealField(platform, fieldAccessToken, creds.AccessToken)
	if err != nil {
		return err
	}
	refreshToken, err := s.sealField(platform, fieldRefreshToken, creds.RefreshToken)
	if err != nil {
		return err
	}
	apiSecret, err := s.sealField(platform, fieldAPISecret, creds.APISecret)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.creds[platform] = encryptedCredentials{
		accessToken:  accessToken,
		refreshToken: refreshToken,
		apiSecret:    apiSecret,
		expiresAt:    creds.ExpiresAt,
	}
	s.mu.Unlock()
	return nil
}

// Get расшифровывает учётные данные площадки.
// Протухший токен возвращает ошибку, для которой IsAuthExpired истинно.
func (s *CredentialStore) Get(platform domain.Channel) (domain.PlatformCredentials, error) {
	s.mu.RLock()
	stored, ok := s.creds[platform]
	s.mu.RUnlock()
	if !ok {
		return domain.PlatformCredentials{}, fmt.Errorf("no credentials for %s: %w", platform, domain.ErrAuthExpired)
	}

	if !stored.expiresAt.IsZero() && time.Now().After(stored.expiresAt) {
		return domain.PlatformCredentials{}, fmt.Errorf("access token for %s expired: %w", platform, domain.ErrAuthExpired)
	}

	accessToken, err := s.openField(platform, fieldAccessToken, stored.accessToken)
	if err != nil {
		return domain.PlatformCredentials{}, err
	}
	refreshToken, err := s.openField(platform, fieldRefreshToken, stored.refreshToken)
	if err != nil {
		return domain.PlatformCredentials{}, err
	}
	apiSecret, err := s.openField(platform, fieldAPISecret, stored.apiSecret)
	if err != nil {
		return domain.PlatformCredentials{}, err
	}

	return domain.PlatformCredentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		APISecret:    apiSecret,
		ExpiresAt:    stored.expiresAt,
	}, nil
}

// Delete удаляет учётные данные площадки.
func (s *CredentialStore) Delete(platform domain.Channel) {
	s.mu.Lock()
	delete(s.creds, platform)
	s.mu.Unlock()
}

// sealField шифрует одно поле. Пустое значение хранится как nil.
func (s *CredentialStore) sealField(platform domain.Channel, field, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce for %s %s: %w", platform, field, err)
	}
	return s.aead.Seal(nonce, nonce, []byte(value), fieldAAD(platform, field)), nil
}

// openField расшифровывает одно поле.
func (s *CredentialStore) openField(platform domain.Channel, field string, blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", nil
	}

	nonceSize := s.aead.NonceSize()
	if len(blob) < nonceSize {
		return "", fmt.Errorf("%s %s ciphertext is corrupt", platform, field)
	}
	plain, err := s.aead.Open(nil, blob[:nonceSize], blob[nonceSize:], fieldAAD(platform, field))
	if err != nil {
		return "", fmt.Errorf("decrypt %s %s: %w", platform, field, err)
	}
	return string(plain), nil
}

func fieldAAD(platform domain.Channel, field string) []byte {
	return []byte(string(platform) + "/" + field)
}

package rugcheck

// Wallet-signed sign-in for api.rugcheck.xyz.
// The JWT is cached in <data_dir>/rugcheck_token.json and reused until it expires.

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/fs"
	"github.com/uneeb123/alpha-hunter-sub000/internal/infra/log"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

const (
	signInMessage = "Sign-in to Rugcheck.xyz"
	tokenFileName = "rugcheck_token.json"
	// expirySkew treats a token as expired slightly early.
	expirySkew = time.Minute
)

var ErrNoWallet = errors.New("rugcheck: no wallet key configured")

type Wallet struct {
	PublicKey  string
	privateKey ed25519.PrivateKey
}

// ParseWallet decodes a base58 Solana keypair (64 bytes) or seed (32 bytes).
func ParseWallet(secret string) (*Wallet, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrNoWallet
	}
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode wallet key: %w", err)
	}

	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("wallet key must be 32 or 64 bytes, got %d", len(raw))
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Wallet{PublicKey: base58.Encode(pub), privateKey: priv}, nil
}

type signedMessage struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	PublicKey string `json:"publicKey"`
}

type signature struct {
	Data []int  `json:"data"`
	Type string `json:"type"`
}

type LoginRequest struct {
	Signature signature     `json:"signature"`
	Wallet    string        `json:"wallet"`
	Message   signedMessage `json:"message"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// NewLoginRequest signs the sign-in message at now.
func (w *Wallet) NewLoginRequest(now time.Time) (*LoginRequest, error) {
	msg := signedMessage{
		Message:   signInMessage,
		Timestamp: now.UnixMilli(),
		PublicKey: w.PublicKey,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sign-in message: %w", err)
	}
	sig := ed25519.Sign(w.privateKey, payload)
	data := make([]int, len(sig))
	for i, b := range sig {
		data[i] = int(b)
	}
	return &LoginRequest{
		Signature: signature{Data: data, Type: "ed25519"},
		Wallet:    w.PublicKey,
		Message:   msg,
	}, nil
}

type TokenFile struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
	PublicKey   string `json:"publicKey"`
}

func (tf *TokenFile) Valid(publicKey string, now time.Time) bool {
	return tf != nil && tf.AccessToken != "" && tf.PublicKey == publicKey &&
		now.Add(expirySkew).Unix() < tf.ExpiresAt
}

func SaveTokenToFile(dataDir string, tf TokenFile) (string, error) {
	filename := filepath.Join(dataDir, tokenFileName)
	if err := fs.WriteJSONAtomic(filename, tf, 0o600); err != nil {
		return "", fmt.Errorf("failed to save token file: %w", err)
	}
	return filename, nil
}

func LoadTokenFromFile(dataDir string) (*TokenFile, error) {
	var tf TokenFile
	ok, err := fs.ReadJSON(filepath.Join(dataDir, tokenFileName), &tf)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no cached token in %s", dataDir)
	}
	return &tf, nil
}

// TokenExpiration reads the exp claim from a JWT without verifying it.
func TokenExpiration(token string) (int64, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid JWT token format")
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return 0, fmt.Errorf("failed to decode JWT payload: %w", err)
	}
	var claims struct {
		ExpiresAt int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return 0, fmt.Errorf("failed to unmarshal JWT payload: %w", err)
	}
	if claims.ExpiresAt == 0 {
		return 0, fmt.Errorf("JWT token does not contain expiration time")
	}
	return claims.ExpiresAt, nil
}

// Login signs in with the wallet and caches the token. Without a wallet it is a no-op
// and reports are fetched anonymously.
func (c *Client) Login(ctx context.Context) error {
	if c.wallet == nil {
		return nil
	}

	c.authMu.Lock()
	defer c.authMu.Unlock()

	now := c.now()
	if c.dataDir != "" {
		if tf, err := LoadTokenFromFile(c.dataDir); err == nil && tf.Valid(c.wallet.PublicKey, now) {
			c.setToken(tf.AccessToken)
			log.LogDebug("Using cached rugcheck token", zap.Time("expires_at", time.Unix(tf.ExpiresAt, 0)))
			return nil
		}
	}

	req, err := c.wallet.NewLoginRequest(now)
	if err != nil {
		return err
	}
	var resp loginResponse
	if err := c.http.PostJSON(ctx, "/auth/login/solana", req, &resp); err != nil {
		return fmt.Errorf("rugcheck login failed: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("rugcheck login returned no token")
	}

	expiresAt, err := TokenExpiration(resp.Token)
	if err != nil {
		expiresAt = now.Add(24 * time.Hour).Unix()
	}
	c.setToken(resp.Token)

	if c.dataDir != "" {
		filename, err := SaveTokenToFile(c.dataDir, TokenFile{AccessToken: resp.Token, ExpiresAt: expiresAt, PublicKey: c.wallet.PublicKey})
		if err != nil {
			log.LogWarn("Failed to cache rugcheck token", zap.Error(err))
		} else {
			log.LogSuccess("Rugcheck token obtained and saved", zap.String("file", filename))
		}
	}
	return nil
}

func (c *Client) setToken(token string) {
	if token == "" {
		c.http.SetHeader("Authorization", "")
		return
	}
	c.http.SetHeader("Authorization", "Bearer "+token)
}

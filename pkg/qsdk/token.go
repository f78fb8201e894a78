package qsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quatton/qgen/pkg/qsdk/qerr"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "qgen"

	// TokenEnvVar is consulted before any persisted credential.
	TokenEnvVar = "REPLICATE_API_TOKEN"

	tokenFileField = "replicate_api_token"
)

// TokenSource names where a token was found.
type TokenSource string

const (
	TokenFromEnv     TokenSource = "env"
	TokenFromFile    TokenSource = "file"
	TokenFromKeyring TokenSource = "keyring"
)

// LoadToken resolves the API token: environment variable, then the token file,
// then the OS keyring entry for the configured base URL. Finding none is a
// CodeConfig error.
func LoadToken(cfg *Config) (string, TokenSource, error) {
	if tok := strings.TrimSpace(os.Getenv(TokenEnvVar)); tok != "" {
		return tok, TokenFromEnv, nil
	}

	path, baseURL := DefaultTokenFile(), DefaultBaseURL
	if cfg != nil {
		if cfg.TokenFile != "" {
			path = cfg.TokenFile
		}
		if cfg.BaseURL != "" {
			baseURL = cfg.BaseURL
		}
	}

	tok, err := readTokenFile(path)
	if err != nil {
		return "", "", qerr.New(qerr.CodeConfig, err)
	}
	if tok != "" {
		return tok, TokenFromFile, nil
	}

	if tok, err := LoadKeyringToken(baseURL); err == nil && tok != "" {
		return tok, TokenFromKeyring, nil
	}

	return "", "", qerr.Newf(qerr.CodeConfig,
		"no API token: set %s or save one with 'qgen token set'", TokenEnvVar)
}

// readTokenFile returns "" without error when the file does not exist.
func readTokenFile(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("checking token file %s: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("reading token file %s: %w", path, err)
	}
	return strings.TrimSpace(v.GetString(tokenFileField)), nil
}

// SaveToken writes the single-key token file and mirrors the token into the
// OS keyring when one is available.
func SaveToken(cfg *Config, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return qerr.Newf(qerr.CodeValidation, "token is empty")
	}

	path, baseURL := DefaultTokenFile(), DefaultBaseURL
	if cfg != nil {
		if cfg.TokenFile != "" {
			path = cfg.TokenFile
		}
		if cfg.BaseURL != "" {
			baseURL = cfg.BaseURL
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	data, err := json.MarshalIndent(map[string]string{tokenFileField: token}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file %s: %w", path, err)
	}

	// Headless hosts have no keyring; the file is authoritative.
	_ = SaveKeyringToken(baseURL, token)
	return nil
}

// normalizeKey converts a baseURL into a stable key name for keyring storage.
func normalizeKey(baseURL string) string {
	s := strings.TrimSpace(baseURL)
	s = strings.TrimRight(s, "/")
	s = strings.ToLower(s)
	return s
}

// SaveKeyringToken stores the token in the OS keyring under the normalized
// baseURL key.
func SaveKeyringToken(baseURL string, token string) error {
	return keyring.Set(keyringService, normalizeKey(baseURL), token)
}

// LoadKeyringToken retrieves the token stored for the given baseURL.
func LoadKeyringToken(baseURL string) (string, error) {
	return keyring.Get(keyringService, normalizeKey(baseURL))
}

// DeleteKeyringToken removes the keyring entry for the given baseURL.
func DeleteKeyringToken(baseURL string) error {
	return keyring.Delete(keyringService, normalizeKey(baseURL))
}

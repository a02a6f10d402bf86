package legrand

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// SaveTokenToFile serializes the authorization info to a JSON file readable
// only by the owner. The containing directory is created when missing.
func (a *AuthorizationInfo) SaveTokenToFile(authFilePath string) error {
	if err := os.MkdirAll(filepath.Dir(authFilePath), 0o700); err != nil {
		return fmt.Errorf("legrand token: create directory failed: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("legrand token: marshal failed: %w", err)
	}
	if err = os.WriteFile(authFilePath, data, 0o600); err != nil {
		return fmt.Errorf("legrand token: write file failed: %w", err)
	}
	log.Debugf("authorization saved to %s", filepath.Clean(authFilePath))
	return nil
}

// LoadTokenFromFile reads a persisted authorization info from disk.
func LoadTokenFromFile(authFilePath string) (*AuthorizationInfo, error) {
	data, err := os.ReadFile(authFilePath)
	if err != nil {
		return nil, err
	}
	return ParseAuthorization(data)
}

// ParseAuthorization decodes a persisted authorization info document.
func ParseAuthorization(data []byte) (*AuthorizationInfo, error) {
	var info AuthorizationInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("legrand token: parse failed: %w", err)
	}
	return &info, nil
}

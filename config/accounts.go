package config

import (
	"fmt"
	"os"
	"strings"

	"go.yaml.in/yaml/v4"

	"github.com/mkasajim/realtime-gmail-monitor/internal/models"
)

// AccountsFile is the on-disk shape of the monitored-account list. The list
// is produced by the external account-setup tooling; this process treats it
// as read-only input.
type AccountsFile struct {
	Accounts []models.Account `yaml:"accounts"`
}

// LoadAccounts reads and validates the account list. Validation happens here,
// at the boundary, so the engine can assume well-formed records.
func LoadAccounts(path string) ([]models.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	var file AccountsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}

	if err := validateAccounts(file.Accounts); err != nil {
		return nil, fmt.Errorf("validate accounts file: %w", err)
	}
	return file.Accounts, nil
}

func validateAccounts(accounts []models.Account) error {
	if len(accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}

	seen := make(map[string]bool, len(accounts))
	for i, a := range accounts {
		label := a.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if a.Email == "" {
			return fmt.Errorf("account %s: email is required", label)
		}
		if a.TokenFile == "" {
			return fmt.Errorf("account %s: token_file is required", label)
		}
		if a.CursorFile == "" {
			return fmt.Errorf("account %s: cursor_file is required", label)
		}
		address := strings.ToLower(a.Email)
		if seen[address] {
			return fmt.Errorf("account %s: duplicate email %s", label, a.Email)
		}
		seen[address] = true
	}
	return nil
}

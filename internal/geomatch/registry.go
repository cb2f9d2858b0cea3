package geomatch

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	apperrors "electionpulse/internal/errors"
	"electionpulse/pkg/contracts/domain"
)

// ParseRegistryFile reads the static constituency registry.
func ParseRegistryFile(path string) ([]domain.RegistryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("read registry file", err).WithContext("path", path)
	}
	return ParseRegistry(data)
}

// ParseRegistry parses and validates a JSON array of registry records.
// Like the boundary file, the registry is a static input: a malformed
// record is a broken release and fails the whole parse.
func ParseRegistry(data []byte) ([]domain.RegistryRecord, error) {
	var records []domain.RegistryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewParsingError("decode registry", err)
	}

	validate := validator.New()
	for i, rec := range records {
		if err := validate.Struct(rec); err != nil {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("registry record %d invalid", i), err)
		}
	}

	return records, nil
}

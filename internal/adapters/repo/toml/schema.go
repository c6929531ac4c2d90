package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int            `toml:"version"`
	Ledgers []ledgerSchema `toml:"ledgers"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported ledgers schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type ledgerSchema struct {
	Ref      string `toml:"ref"`
	Symbol   string `toml:"symbol"`
	Decimals uint8  `toml:"decimals"`
	Owner    string `toml:"owner"`
	Endpoint string `toml:"endpoint,omitempty"`
}

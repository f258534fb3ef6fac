package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Template renders Default as a TOML document Load accepts.
func Template() (string, error) {
	def := Default()
	raw := fileConfig{
		Addr:            def.Addr,
		AdminAddr:       "127.0.0.1:9555",
		CorsOrigins:     def.CorsOrigins,
		LegacyReadLimit: def.LegacyReadLimit,
		MaxFrameBytes:   def.MaxFrameBytes,
		ReadTimeout:     def.ReadTimeout.String(),
		WriteTimeout:    def.WriteTimeout.String(),
		ShutdownTimeout: def.ShutdownTimeout.String(),
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(raw); err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return buf.String(), nil
}

func WriteTemplate(path string, overwrite bool) error {
	template, err := Template()
	if err != nil {
		return err
	}
	if !overwrite && fileExists(path) {
		return fmt.Errorf("config already exists: %s", path)
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

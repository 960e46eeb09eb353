package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const templateColumns = "template_key, language_code, version, body, variables_json, is_active, updated_at"

// SaveTemplate inserts or replaces one template version.
func (s *Store) SaveTemplate(ctx context.Context, tmpl *Template) error {
	if tmpl == nil {
		return errors.New("template is nil")
	}
	if strings.TrimSpace(tmpl.Key) == "" || strings.TrimSpace(tmpl.LanguageCode) == "" {
		return errors.New("template key and language are required")
	}
	if tmpl.Version <= 0 {
		tmpl.Version = 1
	}

	variablesJSON, err := json.Marshal(tmpl.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}

	tmpl.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tmpl.Key,
		strings.ToLower(tmpl.LanguageCode),
		tmpl.Version,
		tmpl.Body,
		string(variablesJSON),
		boolToInt(tmpl.IsActive),
		tmpl.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

// ActiveTemplate returns the highest active version for a key/language
// pair, or nil when none exists.
func (s *Store) ActiveTemplate(ctx context.Context, key, languageCode string) (*Template, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+templateColumns+` FROM templates
         WHERE template_key = ? AND language_code = ? AND is_active = 1
         ORDER BY version DESC LIMIT 1`,
		key,
		strings.ToLower(languageCode),
	)
	tmpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return tmpl, nil
}

func scanTemplate(scanner interface{ Scan(dest ...any) error }) (*Template, error) {
	var (
		key           string
		languageCode  string
		version       int
		body          string
		variablesJSON sql.NullString
		isActive      int
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(&key, &languageCode, &version, &body, &variablesJSON, &isActive, &updatedRaw); err != nil {
		return nil, err
	}

	tmpl := &Template{
		Key:          key,
		LanguageCode: languageCode,
		Version:      version,
		Body:         body,
		IsActive:     isActive != 0,
	}
	if variablesJSON.Valid && variablesJSON.String != "" {
		if err := json.Unmarshal([]byte(variablesJSON.String), &tmpl.Variables); err != nil {
			return nil, fmt.Errorf("unmarshal variables: %w", err)
		}
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		tmpl.UpdatedAt = updated
	}
	return tmpl, nil
}

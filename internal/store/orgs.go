package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const orgColumns = "id, business_name, industry_code, contact_phone, technician_phone, default_language, updated_at"

// SaveOrganization inserts or updates a business profile.
func (s *Store) SaveOrganization(ctx context.Context, org *Organization) error {
	if org == nil {
		return errors.New("organization is nil")
	}
	if strings.TrimSpace(org.ID) == "" {
		return errors.New("organization id is required")
	}
	if org.DefaultLanguage == "" {
		org.DefaultLanguage = "en"
	}
	org.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO organizations (`+orgColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		org.ID,
		nullableString(org.BusinessName),
		nullableString(strings.ToLower(org.IndustryCode)),
		nullableString(org.ContactPhone),
		nullableString(org.TechnicianPhone),
		strings.ToLower(org.DefaultLanguage),
		org.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save organization: %w", err)
	}
	return nil
}

// OrganizationByID fetches a business profile. Returns nil when missing.
func (s *Store) OrganizationByID(ctx context.Context, id string) (*Organization, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = ?`, id)

	var (
		orgID           string
		businessName    sql.NullString
		industryCode    sql.NullString
		contactPhone    sql.NullString
		technicianPhone sql.NullString
		defaultLanguage string
		updatedRaw      sql.NullString
	)
	err := row.Scan(&orgID, &businessName, &industryCode, &contactPhone, &technicianPhone, &defaultLanguage, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}

	org := &Organization{
		ID:              orgID,
		BusinessName:    businessName.String,
		IndustryCode:    industryCode.String,
		ContactPhone:    contactPhone.String,
		TechnicianPhone: technicianPhone.String,
		DefaultLanguage: defaultLanguage,
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		org.UpdatedAt = updated
	}
	return org, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const deliveryColumns = "message_id, job_id, recipient, channel, template_key, language_used, status, sent_at, delivered_at, error_message"

// RecordDelivery inserts a new delivery record.
func (s *Store) RecordDelivery(ctx context.Context, rec *DeliveryRecord) error {
	if rec == nil {
		return errors.New("delivery record is nil")
	}
	if rec.SentAt.IsZero() {
		rec.SentAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = DeliverySent
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO delivery_records (`+deliveryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.MessageID,
		nullableString(rec.JobID),
		rec.Recipient,
		nullableString(rec.Channel),
		nullableString(rec.TemplateKey),
		nullableString(rec.LanguageUsed),
		rec.Status,
		rec.SentAt.UTC().Format(time.RFC3339Nano),
		nullableTime(rec.DeliveredAt),
		nullableString(rec.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// MarkDelivered records the provider delivery confirmation for a message.
func (s *Store) MarkDelivered(ctx context.Context, messageID string, at time.Time) (bool, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE delivery_records SET status = ?, delivered_at = ? WHERE message_id = ? AND status = ?`,
		DeliveryDelivered,
		at.UTC().Format(time.RFC3339Nano),
		messageID,
		DeliverySent,
	)
	if err != nil {
		return false, fmt.Errorf("mark delivered: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkUndelivered records a provider failure callback for a message.
func (s *Store) MarkUndelivered(ctx context.Context, messageID, errorMessage string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE delivery_records SET status = ?, error_message = ? WHERE message_id = ? AND status = ?`,
		DeliveryUndelivered,
		nullableString(errorMessage),
		messageID,
		DeliverySent,
	)
	if err != nil {
		return false, fmt.Errorf("mark undelivered: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeliveriesBetween returns records sent inside [from, to) ordered by send time.
func (s *Store) DeliveriesBetween(ctx context.Context, from, to time.Time) ([]DeliveryRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+deliveryColumns+` FROM delivery_records WHERE sent_at >= ? AND sent_at < ? ORDER BY sent_at`,
		from.UTC().Format(time.RFC3339Nano),
		to.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var records []DeliveryRecord
	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// DeliveriesForJob returns all delivery records tied to one job.
func (s *Store) DeliveriesForJob(ctx context.Context, jobID string) ([]DeliveryRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+deliveryColumns+` FROM delivery_records WHERE job_id = ? ORDER BY sent_at`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query job deliveries: %w", err)
	}
	defer rows.Close()

	var records []DeliveryRecord
	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func scanDelivery(scanner interface{ Scan(dest ...any) error }) (*DeliveryRecord, error) {
	var (
		messageID    string
		jobID        sql.NullString
		recipient    string
		channel      sql.NullString
		templateKey  sql.NullString
		languageUsed sql.NullString
		statusStr    string
		sentRaw      sql.NullString
		deliveredRaw sql.NullString
		errorMessage sql.NullString
	)

	if err := scanner.Scan(
		&messageID,
		&jobID,
		&recipient,
		&channel,
		&templateKey,
		&languageUsed,
		&statusStr,
		&sentRaw,
		&deliveredRaw,
		&errorMessage,
	); err != nil {
		return nil, err
	}

	rec := &DeliveryRecord{
		MessageID:    messageID,
		JobID:        jobID.String,
		Recipient:    recipient,
		Channel:      channel.String,
		TemplateKey:  templateKey.String,
		LanguageUsed: languageUsed.String,
		Status:       DeliveryStatus(statusStr),
		ErrorMessage: errorMessage.String,
	}
	if sent, err := parseTimeString(sentRaw.String); err == nil {
		rec.SentAt = sent
	}
	if deliveredRaw.Valid {
		if delivered, err := parseTimeString(deliveredRaw.String); err == nil {
			rec.DeliveredAt = &delivered
		}
	}
	return rec, nil
}

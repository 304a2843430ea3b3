package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"saldo/internal/benefit/models"
	"saldo/internal/sentinel"
	id "saldo/pkg/domain"
)

const recordColumns = `id, document, benefit, user_id, name,
	state, alimony, birth_date, block_type, grant_date, credit_type,
	benefit_card_limit, benefit_card_balance, consigned_card_limit, consigned_card_balance,
	benefit_status, benefit_end_date, consigned_credit_balance,
	max_total_balance, used_total_balance, available_total_balance,
	query_date, query_return_date, query_return_time, legal_representative_name,
	disbursement_bank, disbursement_branch, disbursement_account, disbursement_digit,
	active_suspended_reservations, source_file, recorded_at`

// PostgresStore persists query records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed record store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts record. An unmatched payload is stored with a NULL name.
func (s *PostgresStore) Append(ctx context.Context, record models.QueryRecord) (models.QueryRecord, error) {
	if err := validateRecord(record); err != nil {
		return models.QueryRecord{}, err
	}
	if record.ID.IsNil() {
		record.ID = id.NewQueryID()
	}
	p := record.Payload
	var name sql.NullString
	if p.Matched() {
		name = sql.NullString{String: p.Name, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO benefit_queries (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)`,
		uuid.UUID(record.ID), record.Document, record.Benefit, uuid.UUID(record.UserID), name,
		p.State, p.Alimony, p.BirthDate, p.BlockType, p.GrantDate, p.CreditType,
		p.BenefitCardLimit, p.BenefitCardBalance, p.ConsignedCardLimit, p.ConsignedCardBalance,
		p.BenefitStatus, p.BenefitEndDate, p.ConsignedCreditBalance,
		p.MaxTotalBalance, p.UsedTotalBalance, p.AvailableTotalBalance,
		p.QueryDate, p.QueryReturnDate, p.QueryReturnTime, p.LegalRepresentativeName,
		p.DisbursementBank, p.DisbursementBranch, p.DisbursementAccount, p.DisbursementDigit,
		p.ActiveSuspendedReservations, record.SourceFile, record.RecordedAt,
	)
	if err != nil {
		return models.QueryRecord{}, fmt.Errorf("insert query record: %w", err)
	}
	return record, nil
}

// MostRecent returns the latest record for key by recording time.
func (s *PostgresStore) MostRecent(ctx context.Context, key models.Key) (models.QueryRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+`
		FROM benefit_queries
		WHERE document = $1 AND benefit = $2
		ORDER BY recorded_at DESC
		LIMIT 1`, key.Document, key.Benefit)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QueryRecord{}, fmt.Errorf("no record for key: %w", sentinel.ErrNotFound)
		}
		return models.QueryRecord{}, fmt.Errorf("find most recent record: %w", err)
	}
	return record, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.QueryRecord, error) {
	var (
		r      models.QueryRecord
		p      models.Payload
		recID  uuid.UUID
		userID uuid.UUID
		name   sql.NullString
	)
	err := row.Scan(
		&recID, &r.Document, &r.Benefit, &userID, &name,
		&p.State, &p.Alimony, &p.BirthDate, &p.BlockType, &p.GrantDate, &p.CreditType,
		&p.BenefitCardLimit, &p.BenefitCardBalance, &p.ConsignedCardLimit, &p.ConsignedCardBalance,
		&p.BenefitStatus, &p.BenefitEndDate, &p.ConsignedCreditBalance,
		&p.MaxTotalBalance, &p.UsedTotalBalance, &p.AvailableTotalBalance,
		&p.QueryDate, &p.QueryReturnDate, &p.QueryReturnTime, &p.LegalRepresentativeName,
		&p.DisbursementBank, &p.DisbursementBranch, &p.DisbursementAccount, &p.DisbursementDigit,
		&p.ActiveSuspendedReservations, &r.SourceFile, &r.RecordedAt,
	)
	if err != nil {
		return models.QueryRecord{}, err
	}
	p.Name = name.String
	r.ID = id.QueryID(recID)
	r.UserID = id.UserID(userID)
	r.Payload = p
	return r, nil
}

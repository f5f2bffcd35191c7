package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

const customerColumns = `id, nombre, COALESCE(telefono, ''), COALESCE(email, ''), telegram_id, created_at`

func scanCustomer(row scanner) (*domain.Customer, error) {
	c := &domain.Customer{}
	var tgID sql.NullInt64
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &tgID, &c.CreatedAt); err != nil {
		return nil, err
	}
	if tgID.Valid {
		id := tgID.Int64
		c.TelegramID = &id
	}
	return c, nil
}

func (s *Storage) getCustomer(ctx context.Context, where string, arg any) (*domain.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM clientes_oliva WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (s *Storage) GetCustomer(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.getCustomer(ctx, `id = ?`, id)
}

func (s *Storage) GetCustomerByTelegramID(ctx context.Context, telegramID int64) (*domain.Customer, error) {
	return s.getCustomer(ctx, `telegram_id = ?`, telegramID)
}

func (s *Storage) GetCustomerByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	return s.getCustomer(ctx, `telefono = ?`, phone)
}

func (s *Storage) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO clientes_oliva (nombre, telefono, email, telegram_id) VALUES (?, ?, ?, ?)`,
		c.Name, nullString(c.Phone), nullString(c.Email), c.TelegramID,
	)
	if err != nil {
		return err
	}
	c.ID, _ = res.LastInsertId()
	c.CreatedAt = time.Now()
	return nil
}

// EnsureTelegramCustomer returns the customer linked to the Telegram account,
// registering a new one on first contact.
func (s *Storage) EnsureTelegramCustomer(ctx context.Context, telegramID int64, name string) (*domain.Customer, bool, error) {
	c, err := s.GetCustomerByTelegramID(ctx, telegramID)
	if err != nil || c != nil {
		return c, false, err
	}

	c = &domain.Customer{Name: name, TelegramID: &telegramID}
	if err := s.CreateCustomer(ctx, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// EnsurePhoneCustomer is the same for customers writing through Twilio
func (s *Storage) EnsurePhoneCustomer(ctx context.Context, phone, name string) (*domain.Customer, bool, error) {
	c, err := s.GetCustomerByPhone(ctx, phone)
	if err != nil || c != nil {
		return c, false, err
	}

	c = &domain.Customer{Name: name, Phone: phone}
	if err := s.CreateCustomer(ctx, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// SetCustomerPhone stores the number shared from Telegram
func (s *Storage) SetCustomerPhone(ctx context.Context, id int64, phone string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE clientes_oliva SET telefono = ? WHERE id = ?`, nullString(phone), id)
	return err
}

package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/tazhate/olivabot/internal/domain"
)

// === Services ===

const serviceColumns = `id, categoria, nombre, COALESCE(duracion_txt, ''), COALESCE(precio_txt, ''), COALESCE(deposito_txt, ''), COALESCE(detalles, ''),
	duracion_min, duracion_max, precio_min, precio_max, deposito, activo, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanService(row scanner) (*domain.Service, error) {
	svc := &domain.Service{}
	var durMin, durMax sql.NullInt64
	var priceMin, priceMax, deposit sql.NullFloat64
	err := row.Scan(&svc.ID, &svc.Category, &svc.Name, &svc.DurationTxt, &svc.PriceTxt, &svc.DepositTxt, &svc.Details,
		&durMin, &durMax, &priceMin, &priceMax, &deposit, &svc.Active, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if durMin.Valid {
		svc.DurationMin = domain.IntPtr(int(durMin.Int64))
	}
	if durMax.Valid {
		svc.DurationMax = domain.IntPtr(int(durMax.Int64))
	}
	svc.PriceMin = floatPtr(priceMin)
	svc.PriceMax = floatPtr(priceMax)
	svc.Deposit = floatPtr(deposit)
	return svc, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func getService(ctx context.Context, q querier, id int64) (*domain.Service, error) {
	svc, err := scanService(q.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM servicios_oliva WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return svc, err
}

func (s *Storage) GetService(ctx context.Context, id int64) (*domain.Service, error) {
	return getService(ctx, s.db, id)
}

func (s *Storage) GetServiceByName(ctx context.Context, name string) (*domain.Service, error) {
	svc, err := scanService(s.db.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM servicios_oliva WHERE nombre = ? ORDER BY id LIMIT 1`, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return svc, err
}

func (s *Storage) listServices(ctx context.Context, query string, args ...any) ([]*domain.Service, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []*domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// ListActiveServices returns the catalog ordered by category and name
func (s *Storage) ListActiveServices(ctx context.Context) ([]*domain.Service, error) {
	return s.listServices(ctx, `SELECT `+serviceColumns+` FROM servicios_oliva WHERE activo = 1 ORDER BY categoria, nombre`)
}

func (s *Storage) ListServicesByCategory(ctx context.Context, category string) ([]*domain.Service, error) {
	return s.listServices(ctx, `SELECT `+serviceColumns+` FROM servicios_oliva WHERE activo = 1 AND categoria = ? ORDER BY nombre`, category)
}

func (s *Storage) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT categoria FROM servicios_oliva WHERE activo = 1 ORDER BY categoria`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpsertService inserts the service or updates the row with the same name.
// Reports whether a new row was created.
func (s *Storage) UpsertService(ctx context.Context, svc *domain.Service) (bool, error) {
	existing, err := s.GetServiceByName(ctx, svc.Name)
	if err != nil {
		return false, err
	}

	if existing != nil {
		svc.ID = existing.ID
		_, err := s.db.ExecContext(ctx,
			`UPDATE servicios_oliva SET categoria = ?, duracion_txt = ?, precio_txt = ?, deposito_txt = ?, detalles = ?,
			 duracion_min = ?, duracion_max = ?, precio_min = ?, precio_max = ?, deposito = ?, activo = ?, updated_at = ?
			 WHERE id = ?`,
			svc.Category, svc.DurationTxt, svc.PriceTxt, svc.DepositTxt, svc.Details,
			svc.DurationMin, svc.DurationMax, svc.PriceMin, svc.PriceMax, svc.Deposit, svc.Active, time.Now(), svc.ID,
		)
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO servicios_oliva (categoria, nombre, duracion_txt, precio_txt, deposito_txt, detalles,
		 duracion_min, duracion_max, precio_min, precio_max, deposito, activo)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		svc.Category, svc.Name, svc.DurationTxt, svc.PriceTxt, svc.DepositTxt, svc.Details,
		svc.DurationMin, svc.DurationMax, svc.PriceMin, svc.PriceMax, svc.Deposit, svc.Active,
	)
	if err != nil {
		return false, err
	}
	id, _ := res.LastInsertId()
	svc.ID = id
	svc.CreatedAt = time.Now()
	return true, nil
}

// === Staff ===

func scanEmployee(row scanner) (*domain.Employee, error) {
	e := &domain.Employee{}
	err := row.Scan(&e.ID, &e.Name, &e.Role, &e.Phone, &e.Email, &e.CreatedAt)
	return e, err
}

const employeeColumns = `id, nombre, COALESCE(puesto, ''), COALESCE(telefono, ''), COALESCE(email, ''), created_at`

func (s *Storage) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	e, err := scanEmployee(s.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM personal_oliva WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *Storage) ListEmployees(ctx context.Context) ([]*domain.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+employeeColumns+` FROM personal_oliva ORDER BY nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []*domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, e)
	}
	return staff, rows.Err()
}

// UpsertEmployee matches an existing row by email, else by name
func (s *Storage) UpsertEmployee(ctx context.Context, e *domain.Employee) (bool, error) {
	var id int64
	var err error
	if e.Email != "" {
		err = s.db.QueryRowContext(ctx, `SELECT id FROM personal_oliva WHERE email = ? LIMIT 1`, e.Email).Scan(&id)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT id FROM personal_oliva WHERE nombre = ? LIMIT 1`, e.Name).Scan(&id)
	}
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}

	if id != 0 {
		e.ID = id
		_, err := s.db.ExecContext(ctx,
			`UPDATE personal_oliva SET nombre = ?, puesto = ?, telefono = ?, email = ? WHERE id = ?`,
			e.Name, e.Role, nullString(e.Phone), nullString(e.Email), id,
		)
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO personal_oliva (nombre, puesto, telefono, email) VALUES (?, ?, ?, ?)`,
		e.Name, e.Role, nullString(e.Phone), nullString(e.Email),
	)
	if err != nil {
		return false, err
	}
	e.ID, _ = res.LastInsertId()
	e.CreatedAt = time.Now()
	return true, nil
}

// === Products ===

func (s *Storage) UpsertProduct(ctx context.Context, p *domain.Product) (bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM productos_oliva WHERE nombre = ?`, p.Name).Scan(&id)
	if err != nil && err != sql.ErrNoRows {
		return false, err
	}

	if id != 0 {
		p.ID = id
		_, err := s.db.ExecContext(ctx,
			`UPDATE productos_oliva SET categoria = ?, detalles = ?, precio = ? WHERE id = ?`,
			p.Category, p.Details, p.Price, id,
		)
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO productos_oliva (nombre, categoria, detalles, precio) VALUES (?, ?, ?, ?)`,
		p.Name, p.Category, p.Details, p.Price,
	)
	if err != nil {
		return false, err
	}
	p.ID, _ = res.LastInsertId()
	return true, nil
}

func (s *Storage) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, nombre, COALESCE(categoria, ''), COALESCE(detalles, ''), precio FROM productos_oliva ORDER BY categoria, nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		var price sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Details, &price); err != nil {
			return nil, err
		}
		p.Price = floatPtr(price)
		products = append(products, p)
	}
	return products, rows.Err()
}

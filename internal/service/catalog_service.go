package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tazhate/olivabot/internal/domain"
	"go.uber.org/zap"
)

const maxDetails = 800

// CatalogStore is the storage used by the CSV importers
type CatalogStore interface {
	UpsertService(ctx context.Context, svc *domain.Service) (bool, error)
	UpsertEmployee(ctx context.Context, e *domain.Employee) (bool, error)
	UpsertProduct(ctx context.Context, p *domain.Product) (bool, error)
}

type ImportResult struct {
	Created int
	Updated int
	Skipped int
}

func (r ImportResult) String() string {
	return fmt.Sprintf("nuevos: %d · actualizados: %d · omitidos: %d", r.Created, r.Updated, r.Skipped)
}

func (r *ImportResult) count(created bool) {
	if created {
		r.Created++
	} else {
		r.Updated++
	}
}

type CatalogService struct {
	store  CatalogStore
	logger *zap.Logger
}

func NewCatalogService(store CatalogStore, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{store: store, logger: logger.Named("catalog")}
}

// ImportServices upserts servicios.csv rows by name.
// Columns: Categoría, Nombre, Duración, Precio, Depósito, Detalles.
func (s *CatalogService) ImportServices(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult
	err := readTable(r, []string{"Nombre"}, func(row record) error {
		name := row.get("Nombre")
		if name == "" {
			res.Skipped++
			return nil
		}
		durTxt, priceTxt, depTxt := row.get("Duración"), row.get("Precio"), row.get("Depósito")
		durMin, durMax := parseMinutes(durTxt)
		priceMin, priceMax := parseAmounts(priceTxt)

		svc := &domain.Service{
			Category:    row.get("Categoría"),
			Name:        name,
			DurationTxt: durTxt,
			PriceTxt:    priceTxt,
			DepositTxt:  depTxt,
			Details:     truncate(row.get("Detalles"), maxDetails),
			DurationMin: durMin,
			DurationMax: durMax,
			PriceMin:    priceMin,
			PriceMax:    priceMax,
			Deposit:     parseDeposit(depTxt),
			Active:      true,
		}
		created, err := s.store.UpsertService(ctx, svc)
		if err != nil {
			return fmt.Errorf("upsert service %q: %w", name, err)
		}
		res.count(created)
		return nil
	})
	if err != nil {
		return res, err
	}
	s.logger.Info("services imported", zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	return res, nil
}

// ImportStaff upserts personal.csv rows by email, else by name.
// Columns: nombre, puesto, telefono, email.
func (s *CatalogService) ImportStaff(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult
	err := readTable(r, []string{"nombre"}, func(row record) error {
		name := row.get("nombre")
		if name == "" {
			res.Skipped++
			return nil
		}
		e := &domain.Employee{
			Name:  name,
			Role:  row.get("puesto"),
			Phone: cleanPhone(row.get("telefono")),
			Email: row.get("email"),
		}
		created, err := s.store.UpsertEmployee(ctx, e)
		if err != nil {
			return fmt.Errorf("upsert employee %q: %w", name, err)
		}
		res.count(created)
		return nil
	})
	if err != nil {
		return res, err
	}
	s.logger.Info("staff imported", zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	return res, nil
}

// ImportProducts upserts productos.csv rows by name.
// Columns: Nombre, Categoría, Detalles (or Especificaciones), Precio.
func (s *CatalogService) ImportProducts(ctx context.Context, r io.Reader) (ImportResult, error) {
	var res ImportResult
	err := readTable(r, []string{"Nombre"}, func(row record) error {
		name := row.get("Nombre")
		if name == "" {
			res.Skipped++
			return nil
		}
		details := row.get("Detalles")
		if details == "" {
			details = row.get("Especificaciones")
		}
		if details == "" {
			details = "—"
		}
		p := &domain.Product{
			Name:     name,
			Category: row.get("Categoría"),
			Details:  truncate(details, maxDetails),
			Price:    firstAmount(row.get("Precio")),
		}
		created, err := s.store.UpsertProduct(ctx, p)
		if err != nil {
			return fmt.Errorf("upsert product %q: %w", name, err)
		}
		res.count(created)
		return nil
	})
	if err != nil {
		return res, err
	}
	s.logger.Info("products imported", zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	return res, nil
}

// SeedResult holds per-file results of Seed
type SeedResult struct {
	Services ImportResult
	Staff    ImportResult
	Products ImportResult
}

// Seed imports servicios.csv, personal.csv and productos.csv from dir.
// A missing productos.csv is not an error.
func (s *CatalogService) Seed(ctx context.Context, dir string) (*SeedResult, error) {
	res := &SeedResult{}

	files := []struct {
		name     string
		optional bool
		run      func(context.Context, io.Reader) (ImportResult, error)
		out      *ImportResult
	}{
		{"servicios.csv", false, s.ImportServices, &res.Services},
		{"personal.csv", false, s.ImportStaff, &res.Staff},
		{"productos.csv", true, s.ImportProducts, &res.Products},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		file, err := os.Open(path)
		if err != nil {
			if f.optional && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return res, fmt.Errorf("open %s: %w", path, err)
		}
		*f.out, err = f.run(ctx, file)
		file.Close()
		if err != nil {
			return res, fmt.Errorf("import %s: %w", f.name, err)
		}
	}
	return res, nil
}

// === CSV ===

type record struct {
	cols   map[string]int
	fields []string
}

func (r record) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

func readTable(r io.Reader, required []string, fn func(record) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("empty csv")
		}
		return fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		cols[h] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return fmt.Errorf("missing column %q", name)
		}
	}

	line := 1
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(record{cols: cols, fields: fields}); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

// === Field parsers ===

var numberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// parseMinutes reads hours: "1-1.5 horas" -> (60, 90), "1 hora" -> (60, nil)
func parseMinutes(raw string) (*int, *int) {
	var mins []int
	for _, n := range numberRe.FindAllString(raw, -1) {
		hours, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", "."), 64)
		if err != nil {
			continue
		}
		mins = append(mins, int(hours*60))
	}
	switch len(mins) {
	case 0:
		return nil, nil
	case 1:
		return &mins[0], nil
	default:
		return &mins[0], &mins[1]
	}
}

func amounts(raw string) []float64 {
	var out []float64
	for _, n := range numberRe.FindAllString(raw, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", ""), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// parseAmounts reads prices: "$400–$500 MXP" -> (400, 500), "$700 MXP" -> (700, nil)
func parseAmounts(raw string) (*float64, *float64) {
	nums := amounts(raw)
	switch len(nums) {
	case 0:
		return nil, nil
	case 1:
		return &nums[0], nil
	default:
		return &nums[0], &nums[1]
	}
}

func firstAmount(raw string) *float64 {
	lo, _ := parseAmounts(raw)
	return lo
}

// parseDeposit: "No" or empty means no deposit
func parseDeposit(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "no") {
		return nil
	}
	return firstAmount(raw)
}

// cleanPhone keeps the first 10 digits; shorter numbers are dropped
func cleanPhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) < 10 {
		return ""
	}
	return d[:10]
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Package memory is an in-process budget store seeded from a TOML file.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"budgetflow/internal/core"
)

// Seed is the on-disk layout of a memory store.
type Seed struct {
	Periods    []SeedPeriod   `toml:"periods"`
	Categories []SeedCategory `toml:"categories"`
	Budgets    []SeedBudget   `toml:"budgets"`
}

type SeedPeriod struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Month int    `toml:"month"` // 1-12
	Year  int    `toml:"year"`
}

type SeedCategory struct {
	ID         string `toml:"id"`
	Name       string `toml:"name"`
	Frequency  string `toml:"frequency,omitempty"`
	DefaultDay *int   `toml:"default_day,omitempty"`
	StepDays   int    `toml:"step_days,omitempty"`
	Count      int    `toml:"count,omitempty"`
}

type SeedBudget struct {
	ID            string `toml:"id"`
	PeriodID      string `toml:"period_id"`
	CategoryID    string `toml:"category_id"`
	Amount        string `toml:"amount"`
	PaymentMethod string `toml:"payment_method"`
	DefaultDate   string `toml:"default_date,omitempty"`
}

type Store struct {
	mu         sync.RWMutex
	path       string // empty for a purely in-memory store
	periods    []core.Period
	categories []core.Category
	budgets    []core.Budget
}

// New returns an empty store that is never written to disk.
func New() *Store {
	return &Store{}
}

// Open loads the seed file at path. A missing file yields an empty store
// that will be created on the first write.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading seed: %w", err)
	}

	var seed Seed
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}
	if err := s.load(seed); err != nil {
		return nil, fmt.Errorf("loading seed %s: %w", path, err)
	}
	return s, nil
}

func (s *Store) load(seed Seed) error {
	for _, sp := range seed.Periods {
		p := core.Period{ID: sp.ID, Name: sp.Name, Month: time.Month(sp.Month), Year: sp.Year}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("period %q: %w", sp.ID, err)
		}
		s.periods = append(s.periods, p)
	}
	for _, sc := range seed.Categories {
		c := core.Category{
			ID:         sc.ID,
			Name:       sc.Name,
			Frequency:  sc.Frequency,
			DefaultDay: sc.DefaultDay,
			StepDays:   sc.StepDays,
			Count:      sc.Count,
		}
		// Categories with a broken policy are kept; expansion reports them per budget.
		if c.ID == "" || c.Name == "" {
			return fmt.Errorf("category %q: %w", sc.ID, core.ErrEmptyName)
		}
		s.categories = append(s.categories, c)
	}
	for _, sb := range seed.Budgets {
		amount, err := core.ParseAmount(sb.Amount)
		if err != nil {
			return fmt.Errorf("budget %q: %w", sb.ID, err)
		}
		var def core.Date
		if sb.DefaultDate != "" {
			if def, err = core.ParseDate(sb.DefaultDate); err != nil {
				return fmt.Errorf("budget %q default date: %w", sb.ID, err)
			}
		}
		b := core.Budget{
			ID:            sb.ID,
			PeriodID:      sb.PeriodID,
			CategoryID:    sb.CategoryID,
			Total:         amount,
			PaymentMethod: core.PaymentMethod(strings.ToLower(sb.PaymentMethod)),
			DefaultDate:   def,
		}
		if err := b.Validate(); err != nil {
			return fmt.Errorf("budget %q: %w", sb.ID, err)
		}
		s.budgets = append(s.budgets, b)
	}
	return nil
}

func (s *Store) GetPeriod(_ context.Context, id string) (core.Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.periods {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Period{}, fmt.Errorf("period %q: %w", id, core.ErrPeriodNotFound)
}

// ListPeriods returns periods newest first.
func (s *Store) ListPeriods(_ context.Context) ([]core.Period, error) {
	s.mu.RLock()
	out := append([]core.Period(nil), s.periods...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	return out, nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]core.Category(nil), s.categories...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListPeriodBudgets joins each budget with its category and period, ordered
// by default date then id. Budgets without a default date sort first.
func (s *Store) ListPeriodBudgets(_ context.Context, periodID string) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var period *core.Period
	for i := range s.periods {
		if s.periods[i].ID == periodID {
			period = &s.periods[i]
			break
		}
	}
	if period == nil {
		return nil, fmt.Errorf("period %q: %w", periodID, core.ErrPeriodNotFound)
	}

	cats := make(map[string]core.Category, len(s.categories))
	for _, c := range s.categories {
		cats[c.ID] = c
	}

	out := make([]core.Budget, 0)
	for _, b := range s.budgets {
		if b.PeriodID != periodID {
			continue
		}
		c, ok := cats[b.CategoryID]
		if !ok {
			continue
		}
		b.CategoryName = c.Name
		b.Frequency = c.Frequency
		b.CustomStepDays = c.StepDays
		b.CustomCount = c.Count
		b.CategoryDefaultDay = c.DefaultDay
		b.PeriodMonth = period.Month
		b.PeriodYear = period.Year
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].DefaultDate.String(), out[j].DefaultDate.String()
		if di != dj {
			return di < dj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreatePeriod(_ context.Context, p core.Period) (core.Period, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if err := p.Validate(); err != nil {
		return core.Period{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.periods {
		if existing.ID == p.ID {
			return core.Period{}, fmt.Errorf("period %q already exists", p.ID)
		}
	}
	s.periods = append(s.periods, p)
	if err := s.flushLocked(); err != nil {
		s.periods = s.periods[:len(s.periods)-1]
		return core.Period{}, err
	}
	return p, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if existing.ID == c.ID {
			return core.Category{}, fmt.Errorf("category %q already exists", c.ID)
		}
	}
	s.categories = append(s.categories, c)
	if err := s.flushLocked(); err != nil {
		s.categories = s.categories[:len(s.categories)-1]
		return core.Category{}, err
	}
	return c, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPeriodLocked(b.PeriodID) {
		return core.Budget{}, fmt.Errorf("period %q: %w", b.PeriodID, core.ErrPeriodNotFound)
	}
	if !s.hasCategoryLocked(b.CategoryID) {
		return core.Budget{}, fmt.Errorf("category %q not found", b.CategoryID)
	}
	s.budgets = append(s.budgets, b)
	if err := s.flushLocked(); err != nil {
		s.budgets = s.budgets[:len(s.budgets)-1]
		return core.Budget{}, err
	}
	return b, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) hasPeriodLocked(id string) bool {
	for _, p := range s.periods {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) hasCategoryLocked(id string) bool {
	for _, c := range s.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// flushLocked rewrites the seed file when the store is file-backed. Callers
// drop the row they just appended when it fails.
func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating seed dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating seed file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(s.seedLocked()); err != nil {
		f.Close()
		return fmt.Errorf("encoding seed: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) seedLocked() Seed {
	var seed Seed
	for _, p := range s.periods {
		seed.Periods = append(seed.Periods, SeedPeriod{ID: p.ID, Name: p.Name, Month: int(p.Month), Year: p.Year})
	}
	for _, c := range s.categories {
		seed.Categories = append(seed.Categories, SeedCategory{
			ID:         c.ID,
			Name:       c.Name,
			Frequency:  c.Frequency,
			DefaultDay: c.DefaultDay,
			StepDays:   c.StepDays,
			Count:      c.Count,
		})
	}
	for _, b := range s.budgets {
		seed.Budgets = append(seed.Budgets, SeedBudget{
			ID:            b.ID,
			PeriodID:      b.PeriodID,
			CategoryID:    b.CategoryID,
			Amount:        b.Total.String(),
			PaymentMethod: string(b.PaymentMethod),
			DefaultDate:   b.DefaultDate.String(),
		})
	}
	return seed
}

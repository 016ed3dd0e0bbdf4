package features

import (
	"context"
	"sync"

	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Kind names a feature collection.
type Kind string

const (
	KindPoint  Kind = "point"
	KindCircle Kind = "circle"
	KindText   Kind = "text"
)

// Service defines catalog maintenance. Names are unique within each kind.
type Service interface {
	Catalog(ctx context.Context) (*Catalog, error)

	AddPoint(ctx context.Context, p Point) error
	AddCircle(ctx context.Context, c Circle) error
	AddText(ctx context.Context, t Text) error
	Remove(ctx context.Context, kind Kind, name string) error
	Clear(ctx context.Context, kind Kind) error

	SetHeatmapScale(ctx context.Context, scale HeatmapScale) error
	SetPalette(ctx context.Context, name string) error
	// Reset empties every collection and restores the default scale and palette.
	Reset(ctx context.Context) error
}

type serviceImpl struct {
	repo   Repository
	logger logging.Logger
	// mu serializes load-modify-save cycles within the process.
	mu sync.Mutex
}

// NewService creates a Service over repo.
func NewService(repo Repository, log logging.Logger) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &serviceImpl{repo: repo, logger: log.Named("features")}
}

func (s *serviceImpl) Catalog(ctx context.Context) (*Catalog, error) {
	c, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	c.Normalize()
	return c, nil
}

func (s *serviceImpl) update(ctx context.Context, fn func(c *Catalog) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Catalog(ctx)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return s.repo.Save(ctx, c)
}

func (s *serviceImpl) AddPoint(ctx context.Context, p Point) error {
	if err := p.Validate(); err != nil {
		return err
	}
	err := s.update(ctx, func(c *Catalog) error {
		for _, existing := range c.Points {
			if existing.Name == p.Name {
				return duplicate(KindPoint, p.Name)
			}
		}
		c.Points = append(c.Points, p)
		return nil
	})
	if err == nil {
		s.logger.Info("point added", logging.String("name", p.Name), logging.String("at", p.Coordinates.String()))
	}
	return err
}

func (s *serviceImpl) AddCircle(ctx context.Context, ci Circle) error {
	if err := ci.Validate(); err != nil {
		return err
	}
	err := s.update(ctx, func(c *Catalog) error {
		for _, existing := range c.Circles {
			if existing.Name == ci.Name {
				return duplicate(KindCircle, ci.Name)
			}
		}
		c.Circles = append(c.Circles, ci)
		return nil
	})
	if err == nil {
		s.logger.Info("circle added", logging.String("name", ci.Name), logging.Float64("alpha", ci.Alpha))
	}
	return err
}

func (s *serviceImpl) AddText(ctx context.Context, t Text) error {
	if err := t.Validate(); err != nil {
		return err
	}
	err := s.update(ctx, func(c *Catalog) error {
		for _, existing := range c.Texts {
			if existing.Name == t.Name {
				return duplicate(KindText, t.Name)
			}
		}
		c.Texts = append(c.Texts, t)
		return nil
	})
	if err == nil {
		s.logger.Info("text added", logging.String("name", t.Name))
	}
	return err
}

func (s *serviceImpl) Remove(ctx context.Context, kind Kind, name string) error {
	return s.update(ctx, func(c *Catalog) error {
		var found bool
		switch kind {
		case KindPoint:
			c.Points, found = removeNamed(c.Points, name, func(p Point) string { return p.Name })
		case KindCircle:
			c.Circles, found = removeNamed(c.Circles, name, func(ci Circle) string { return ci.Name })
		case KindText:
			c.Texts, found = removeNamed(c.Texts, name, func(t Text) string { return t.Name })
		default:
			return unknownKind(kind)
		}
		if !found {
			return errors.New(errors.CodeFeatureNotFound, "feature not found").
				WithDetailf("kind=%s name=%s", kind, name)
		}
		return nil
	})
}

func (s *serviceImpl) Clear(ctx context.Context, kind Kind) error {
	return s.update(ctx, func(c *Catalog) error {
		switch kind {
		case KindPoint:
			c.Points = []Point{}
		case KindCircle:
			c.Circles = []Circle{}
		case KindText:
			c.Texts = []Text{}
		default:
			return unknownKind(kind)
		}
		return nil
	})
}

func (s *serviceImpl) SetHeatmapScale(ctx context.Context, scale HeatmapScale) error {
	if err := scale.Validate(); err != nil {
		return err
	}
	return s.update(ctx, func(c *Catalog) error {
		c.HeatmapScale = scale
		return nil
	})
}

func (s *serviceImpl) SetPalette(ctx context.Context, name string) error {
	p, err := ParsePalette(name)
	if err != nil {
		return err
	}
	return s.update(ctx, func(c *Catalog) error {
		c.Palette = p
		return nil
	})
}

func (s *serviceImpl) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.Save(ctx, NewCatalog())
}

func removeNamed[T any](items []T, name string, nameOf func(T) string) ([]T, bool) {
	for i, it := range items {
		if nameOf(it) == name {
			return append(items[:i:i], items[i+1:]...), true
		}
	}
	return items, false
}

func duplicate(kind Kind, name string) error {
	return errors.New(errors.CodeFeatureDuplicate, "feature already exists").
		WithDetailf("kind=%s name=%s", kind, name)
}

func unknownKind(kind Kind) error {
	return errors.New(errors.CodeInvalidParam, "unknown feature kind").WithDetail(string(kind))
}

package categories

import "github.com/fpachecos/dashboard-faturas/internal/model"

// Service provides in-memory lookup over one user's categories.
type Service struct {
	cats   []model.Category
	byID   map[string]model.Category
	byName map[string]model.Category
}

// NewService indexes cats. On duplicate names the first category wins.
func NewService(cats []model.Category) *Service {
	byID := make(map[string]model.Category, len(cats))
	byName := make(map[string]model.Category, len(cats))
	for _, c := range cats {
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
		if _, ok := byName[c.Name]; !ok {
			byName[c.Name] = c
		}
	}
	return &Service{cats: cats, byID: byID, byName: byName}
}

// All returns all categories in their original order.
func (s *Service) All() []model.Category {
	return s.cats
}

// Get returns a category by ID.
func (s *Service) Get(id string) (model.Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// ByName returns the first category with exactly this name.
func (s *Service) ByName(name string) (model.Category, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// NameOf returns the category's display name, or fallback when id is unknown.
func (s *Service) NameOf(id, fallback string) string {
	if c, ok := s.byID[id]; ok {
		return c.Name
	}
	return fallback
}

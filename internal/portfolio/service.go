package portfolio

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lensvault/lensvault_server/internal/pinauth"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateOptions contains the inputs for creating a portfolio item. Pin is the
// plaintext PIN chosen by the photographer; it is hashed before storage and
// never persisted as given.
type CreateOptions struct {
	Title string
	Slug  string
	Pin   string
	Media []MediaDescriptor
}

func (s *Service) Create(opts CreateOptions) (*Item, error) {
	slug := opts.Slug
	if slug == "" {
		slug = Slugify(opts.Title)
	}

	item := &Item{
		ID:        uuid.New().String(),
		Title:     opts.Title,
		Slug:      slug,
		Media:     opts.Media,
		CreatedAt: time.Now().Unix(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	if opts.Pin != "" {
		hash, err := pinauth.HashPin(opts.Pin)
		if err != nil {
			return nil, fmt.Errorf("failed to hash PIN: %w", err)
		}
		item.PinHash = hash
	}

	if err := s.repo.Create(item); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	log.Info().
		Str("portfolioId", item.ID).
		Str("slug", item.Slug).
		Int("mediaCount", len(item.Media)).
		Bool("pinProtected", item.PinRequired()).
		Msg("Portfolio created")

	return item, nil
}

func (s *Service) Get(id string) (*Item, error) {
	return s.repo.GetByID(id)
}

func (s *Service) GetBySlug(slug string) (*Item, error) {
	return s.repo.GetBySlug(slug)
}

func (s *Service) List() ([]*Item, error) {
	return s.repo.List()
}

func (s *Service) Delete(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	log.Info().Str("portfolioId", id).Msg("Portfolio deleted")
	return nil
}

// Slugify turns a title into a URL-safe slug: lower-cased, non-alphanumeric
// runs collapsed to a dash.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = uuid.New().String()
	}
	return slug
}

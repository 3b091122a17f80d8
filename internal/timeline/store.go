// Package timeline owns project state: the ordered clips, the narration layer
// and the lifecycle status. Every read returns a clone.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kris790/Kaleidoscope/internal/domain"
	"github.com/kris790/Kaleidoscope/internal/providers/prompt"
)

// DefaultLogSize is the number of activity messages kept per project.
const DefaultLogSize = 20

// interruptedMessage marks projects recovered from a crash mid generation.
const interruptedMessage = "generation interrupted by restart"

// StoreOptions configures a Store. Repo is optional; without it projects
// live only in memory.
type StoreOptions struct {
	Repo    domain.ProjectRepository
	Logger  *zerolog.Logger
	Now     func() time.Time
	LogSize int
}

// Store is the single owner of project state.
type Store struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
	tickets  map[string]*Ticket
	logs     map[string]*activity

	repo    domain.ProjectRepository
	logger  zerolog.Logger
	now     func() time.Time
	logSize int
}

func NewStore(opts StoreOptions) *Store {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	size := opts.LogSize
	if size <= 0 {
		size = DefaultLogSize
	}
	return &Store{
		projects: make(map[string]*domain.Project),
		tickets:  make(map[string]*Ticket),
		logs:     make(map[string]*activity),
		repo:     opts.Repo,
		logger:   logger,
		now:      now,
		logSize:  size,
	}
}

// Draft is the input for a new project.
type Draft struct {
	AccountID      string
	Title          string
	Prompt         string
	NegativePrompt string
	AudioPrompt    string
	Style          string
	CameraMovement string
	Voice          domain.VoiceConfig
	Tier           domain.Tier
}

// Create adds an IDLE project after enforcing the tier's project limit.
func (s *Store) Create(ctx context.Context, d Draft) (domain.Project, error) {
	quota, err := d.Tier.Quota()
	if err != nil {
		return domain.Project{}, err
	}
	style := strings.TrimSpace(d.Style)
	if style == "" {
		style = domain.DefaultStyle
	}
	if _, ok := domain.LookupStyle(style); !ok {
		return domain.Project{}, fmt.Errorf("%w: unknown style %q", domain.ErrValidation, style)
	}
	camera := strings.TrimSpace(d.CameraMovement)
	if camera != "" {
		if _, ok := domain.LookupCamera(camera); !ok {
			return domain.Project{}, fmt.Errorf("%w: unknown camera movement %q", domain.ErrValidation, camera)
		}
	}
	voice, err := d.Voice.Normalize()
	if err != nil {
		return domain.Project{}, err
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = prompt.Title(d.Prompt)
	}

	now := s.now()
	p := &domain.Project{
		ID:               uuid.NewString(),
		AccountID:        d.AccountID,
		Title:            title,
		Prompt:           strings.TrimSpace(d.Prompt),
		NegativePrompt:   strings.TrimSpace(d.NegativePrompt),
		AudioPrompt:      strings.TrimSpace(d.AudioPrompt),
		Style:            style,
		CameraMovement:   camera,
		Voice:            voice,
		Tier:             d.Tier,
		Resolution:       quota.Resolution,
		Status:           domain.StatusIdle,
		Clips:            []domain.Clip{},
		GroundingSources: []domain.GroundingSource{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.countLocked(d.AccountID); n >= quota.MaxConcurrentProjects {
		return domain.Project{}, fmt.Errorf("%w: %s allows %d projects", domain.ErrProjectLimit, d.Tier, quota.MaxConcurrentProjects)
	}
	if err := s.persist(ctx, *p); err != nil {
		return domain.Project{}, err
	}
	s.projects[p.ID] = p
	s.logger.Info().Str("project_id", p.ID).Str("tier", string(p.Tier)).Msg("timeline: project created")
	return p.Clone(), nil
}

func (s *Store) countLocked(accountID string) int {
	n := 0
	for _, p := range s.projects {
		if p.AccountID == accountID {
			n++
		}
	}
	return n
}

// Get returns a snapshot of one project.
func (s *Store) Get(id string) (domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	return p.Clone(), nil
}

// List returns an account's projects, newest first. An empty accountID
// lists every project.
func (s *Store) List(accountID string) []domain.Project {
	s.mu.RLock()
	out := make([]domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if accountID == "" || p.AccountID == accountID {
			out = append(out, p.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Patch edits project settings. Nil fields are left alone.
type Patch struct {
	Title          *string
	Prompt         *string
	NegativePrompt *string
	AudioPrompt    *string
	Style          *string
	CameraMovement *string
	Voice          *domain.VoiceConfig
}

// Update applies a patch. Projects cannot be edited mid generation.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	if p.Status == domain.StatusGenerating {
		return domain.Project{}, domain.ErrGenerationInFlight
	}
	next := p.Clone()
	if patch.Title != nil {
		next.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Prompt != nil {
		next.Prompt = strings.TrimSpace(*patch.Prompt)
	}
	if patch.NegativePrompt != nil {
		next.NegativePrompt = strings.TrimSpace(*patch.NegativePrompt)
	}
	if patch.AudioPrompt != nil {
		next.AudioPrompt = strings.TrimSpace(*patch.AudioPrompt)
	}
	if patch.Style != nil {
		if _, ok := domain.LookupStyle(*patch.Style); !ok {
			return domain.Project{}, fmt.Errorf("%w: unknown style %q", domain.ErrValidation, *patch.Style)
		}
		next.Style = *patch.Style
	}
	if patch.CameraMovement != nil {
		if *patch.CameraMovement != "" {
			if _, ok := domain.LookupCamera(*patch.CameraMovement); !ok {
				return domain.Project{}, fmt.Errorf("%w: unknown camera movement %q", domain.ErrValidation, *patch.CameraMovement)
			}
		}
		next.CameraMovement = *patch.CameraMovement
	}
	if patch.Voice != nil {
		voice, err := patch.Voice.Normalize()
		if err != nil {
			return domain.Project{}, err
		}
		next.Voice = voice
	}
	if next.Title == "" {
		next.Title = prompt.Title(next.Prompt)
	}
	next.UpdatedAt = s.now()
	if err := s.persist(ctx, next); err != nil {
		return domain.Project{}, err
	}
	*p = next
	return next.Clone(), nil
}

// Delete removes a project and returns the storage keys of its media so the
// caller can release them.
func (s *Store) Delete(ctx context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Status == domain.StatusGenerating {
		return nil, domain.ErrGenerationInFlight
	}
	if s.repo != nil {
		if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("delete project: %w", err)
		}
	}
	var keys []string
	for _, c := range p.Clips {
		if c.StorageKey != "" {
			keys = append(keys, c.StorageKey)
		}
	}
	if p.AudioTrack != nil && p.AudioTrack.StorageKey != "" {
		keys = append(keys, p.AudioTrack.StorageKey)
	}
	delete(s.projects, id)
	delete(s.logs, id)
	s.logger.Info().Str("project_id", id).Int("media", len(keys)).Msg("timeline: project deleted")
	return keys, nil
}

// Load reads an account's projects from the repository. Projects left
// GENERATING by a crash come back FAILED when they have no clips and
// COMPLETED otherwise.
func (s *Store) Load(ctx context.Context, accountID string) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	projects, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("load projects: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loaded := range projects {
		p := loaded.Clone()
		if p.Clips == nil {
			p.Clips = []domain.Clip{}
		}
		if p.Status == domain.StatusGenerating {
			p.Status = domain.StatusCompleted
			if len(p.Clips) == 0 {
				p.Status = domain.StatusFailed
			}
			p.LastError = interruptedMessage
			p.UpdatedAt = s.now()
			if err := s.persist(ctx, p); err != nil {
				s.logger.Warn().Err(err).Str("project_id", p.ID).Msg("timeline: recovery save failed")
			}
			s.logger.Warn().Str("project_id", p.ID).Str("status", string(p.Status)).Msg("timeline: recovered interrupted project")
		}
		s.projects[p.ID] = &p
	}
	return len(projects), nil
}

func (s *Store) persist(ctx context.Context, p domain.Project) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

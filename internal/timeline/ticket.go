package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

// ErrTicketSettled is returned when a ticket is committed or aborted twice.
var ErrTicketSettled = errors.New("timeline: ticket already settled")

// Ticket is the right to run one operation on a project. Snapshot is the
// project as it was when the ticket was issued.
type Ticket struct {
	ProjectID string
	Op        domain.Operation
	Prior     domain.ProjectStatus
	Snapshot  domain.Project
}

// InitialOutcome is what a finished first clip adds to a project.
type InitialOutcome struct {
	Clip           domain.Clip
	EnhancedPrompt string
	Sources        []domain.GroundingSource
	Resolution     string
}

// Begin marks the project GENERATING. Only one operation may run per
// project; an initial clip needs an empty timeline and an extension needs
// a clip to continue.
func (s *Store) Begin(ctx context.Context, id string, op domain.Operation) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Status == domain.StatusGenerating {
		return nil, domain.ErrGenerationInFlight
	}
	switch op {
	case domain.OpInitial:
		if len(p.Clips) > 0 {
			return nil, fmt.Errorf("%w: project already has clips", domain.ErrValidation)
		}
	case domain.OpExtend:
		if len(p.Clips) == 0 {
			return nil, domain.ErrMissingContinuation
		}
	case domain.OpNarration:
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", domain.ErrValidation, op)
	}

	t := &Ticket{ProjectID: id, Op: op, Prior: p.Status, Snapshot: p.Clone()}
	next := p.Clone()
	next.Status = domain.StatusGenerating
	next.LastError = ""
	next.UpdatedAt = s.now()
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}
	*p = next
	s.tickets[id] = t
	s.logger.Debug().Str("project_id", id).Str("op", string(op)).Msg("timeline: generation started")
	return t, nil
}

// CommitInitial installs the first clip and completes the project.
func (s *Store) CommitInitial(ctx context.Context, t *Ticket, out InitialOutcome) (domain.Project, error) {
	return s.settle(ctx, t, domain.OpInitial, func(p *domain.Project) {
		p.Clips = []domain.Clip{out.Clip}
		p.EnhancedPrompt = out.EnhancedPrompt
		p.GroundingSources = append([]domain.GroundingSource{}, out.Sources...)
		if out.Resolution != "" {
			p.Resolution = out.Resolution
		}
		p.Status = domain.StatusCompleted
	})
}

// CommitExtension appends a clip to the end of the timeline.
func (s *Store) CommitExtension(ctx context.Context, t *Ticket, clip domain.Clip) (domain.Project, error) {
	return s.settle(ctx, t, domain.OpExtend, func(p *domain.Project) {
		p.Clips = append(p.Clips, clip)
		p.Status = domain.StatusCompleted
	})
}

// CommitAudio replaces the narration layer in one step and restores the
// status the project had before narration started.
func (s *Store) CommitAudio(ctx context.Context, t *Ticket, track domain.AudioTrack) (domain.Project, error) {
	return s.settle(ctx, t, domain.OpNarration, func(p *domain.Project) {
		p.AudioTrack = &track
		p.AudioPrompt = track.SourcePrompt
		p.Voice = track.Voice
		p.Status = t.Prior
	})
}

// Abort ends an operation that failed. A failed first clip leaves the
// project FAILED; any other failure restores the prior status with clips
// untouched.
func (s *Store) Abort(ctx context.Context, t *Ticket, cause error) (domain.Project, error) {
	return s.settle(ctx, t, t.Op, func(p *domain.Project) {
		if t.Op == domain.OpInitial {
			p.Status = domain.StatusFailed
		} else {
			p.Status = t.Prior
		}
		if cause != nil {
			p.LastError = cause.Error()
		}
	})
}

func (s *Store) settle(ctx context.Context, t *Ticket, op domain.Operation, apply func(p *domain.Project)) (domain.Project, error) {
	if t == nil || t.Op != op {
		return domain.Project{}, fmt.Errorf("%w: ticket does not match %s", domain.ErrValidation, op)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tickets[t.ProjectID] != t {
		return domain.Project{}, ErrTicketSettled
	}
	delete(s.tickets, t.ProjectID)
	p, ok := s.projects[t.ProjectID]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	apply(p)
	p.UpdatedAt = s.now()
	if err := s.persist(ctx, *p); err != nil {
		// Memory stays authoritative.
		s.logger.Error().Err(err).Str("project_id", p.ID).Msg("timeline: save after generation failed")
	}
	s.logger.Debug().Str("project_id", p.ID).Str("op", string(op)).Str("status", string(p.Status)).Msg("timeline: generation settled")
	return p.Clone(), nil
}

// Rollback undoes a Begin whose operation never started. The project is
// restored to its snapshot status and last error.
func (s *Store) Rollback(ctx context.Context, t *Ticket) (domain.Project, error) {
	if t == nil {
		return domain.Project{}, fmt.Errorf("%w: nil ticket", domain.ErrValidation)
	}
	return s.settle(ctx, t, t.Op, func(p *domain.Project) {
		p.Status = t.Prior
		p.LastError = t.Snapshot.LastError
	})
}

// Package memstore is the in-memory fallback persistence backend, used when
// no database is configured. It owns all mutable state explicitly (records
// keyed by id behind one mutex) and lives for the process lifetime.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// Store implements db.Store over process memory. The single mutex also
// serializes every capacity check-then-write, so concurrent allocations
// against the same sprint cannot jointly break the capacity invariant.
type Store struct {
	mu          sync.Mutex
	weights     *db.PriorityWeights
	projects    map[string]*db.Project
	sprints     map[string]*db.Sprint
	allocations map[string]*db.Allocation
	now         func() time.Time
}

// New returns an empty store. No weights configuration is active until
// SeedWeights or UpdateActiveWeights has been called.
func New() *Store {
	return &Store{
		projects:    make(map[string]*db.Project),
		sprints:     make(map[string]*db.Sprint),
		allocations: make(map[string]*db.Allocation),
		now:         time.Now,
	}
}

var _ db.Store = (*Store)(nil)

// GetActiveWeights implements db.WeightsStore.
func (s *Store) GetActiveWeights(ctx context.Context) (db.PriorityWeights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.weights == nil {
		return db.PriorityWeights{}, db.ErrNotConfigured
	}
	return *s.weights, nil
}

// UpdateActiveWeights swaps the whole configuration under the lock; readers
// never observe a partial update.
func (s *Store) UpdateActiveWeights(ctx context.Context, w db.PriorityWeights) (db.PriorityWeights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.weights == nil {
		return db.PriorityWeights{}, db.ErrNotConfigured
	}
	cloned := w
	s.weights = &cloned
	return w, nil
}

// SeedWeights installs the initial configuration. Seeding twice leaves the
// existing configuration in place.
func (s *Store) SeedWeights(ctx context.Context, w db.PriorityWeights) (db.PriorityWeights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.weights != nil {
		return *s.weights, nil
	}
	cloned := w
	s.weights = &cloned
	return w, nil
}

// CreateProject implements db.ProjectStore.
func (s *Store) CreateProject(ctx context.Context, p *db.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.projects[p.ID] = cloneProject(p)
	return nil
}

// GetProjectByID implements db.ProjectStore.
func (s *Store) GetProjectByID(ctx context.Context, id string) (*db.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneProject(p), nil
}

// ListProjects implements db.ProjectStore.
func (s *Store) ListProjects(ctx context.Context, f db.ProjectFilters) ([]db.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*db.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if matchesFilters(p, f) {
			matched = append(matched, p)
		}
	}
	sortProjects(matched, f.SortField, f.SortDirection)

	start := 0
	limit := f.Limit
	if f.Offset != nil {
		start = *f.Offset
		if limit <= 0 {
			limit = db.DefaultListLimit
		}
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	out := make([]db.Project, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, *cloneProject(p))
	}
	return out, nil
}

// UpdateProject implements db.ProjectStore.
func (s *Store) UpdateProject(ctx context.Context, id string, u db.ProjectUpdate) (*db.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	applyProjectUpdate(p, u)
	p.UpdatedAt = s.now()
	return cloneProject(p), nil
}

// UpdateProjectWeightedScore implements the compare-and-set write used by
// bulk recalculation: the score lands only if nobody has touched the project
// since it was read.
func (s *Store) UpdateProjectWeightedScore(ctx context.Context, id string, score float64, expectedUpdatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return db.ErrNotFound
	}
	if !p.UpdatedAt.Equal(expectedUpdatedAt) {
		return db.ErrConflict
	}
	p.ScoreWeighted = score
	p.UpdatedAt = s.now()
	return nil
}

// CreateSprint implements db.SprintStore.
func (s *Store) CreateSprint(ctx context.Context, sp *db.Sprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	if sp.Status == "" {
		sp.Status = db.SprintPlanned
	}
	now := s.now()
	sp.CreatedAt = now
	sp.UpdatedAt = now
	s.sprints[sp.ID] = cloneSprint(sp)
	return nil
}

// GetSprintByID implements db.SprintStore.
func (s *Store) GetSprintByID(ctx context.Context, id string) (*db.Sprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.sprints[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneSprint(sp), nil
}

// ListSprints implements db.SprintStore, ordered by start date ascending.
func (s *Store) ListSprints(ctx context.Context) ([]db.Sprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]db.Sprint, 0, len(s.sprints))
	for _, sp := range s.sprints {
		out = append(out, *cloneSprint(sp))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

// UpdateSprint implements db.SprintStore.
func (s *Store) UpdateSprint(ctx context.Context, id string, u db.SprintUpdate) (*db.Sprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.sprints[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if u.Name != nil {
		sp.Name = *u.Name
	}
	if u.StartDate != nil {
		sp.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		sp.EndDate = *u.EndDate
	}
	if u.CapacityPoints != nil {
		sp.CapacityPoints = *u.CapacityPoints
	}
	if u.Notes != nil {
		sp.Notes = cloneStringPtr(*u.Notes)
	}
	if u.Status != nil {
		sp.Status = *u.Status
	}
	sp.UpdatedAt = s.now()
	return cloneSprint(sp), nil
}

// DeleteSprint refuses to remove a sprint that still has allocations.
func (s *Store) DeleteSprint(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sprints[id]; !ok {
		return db.ErrNotFound
	}
	for _, a := range s.allocations {
		if a.SprintID == id {
			return db.ErrHasDependents
		}
	}
	delete(s.sprints, id)
	return nil
}

// InsertAllocationChecked implements db.AllocationStore. The whole
// check-then-write runs under the store lock.
func (s *Store) InsertAllocationChecked(ctx context.Context, a *db.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.sprints[a.SprintID]
	if !ok {
		return db.ErrNotFound
	}
	total := 0
	for _, existing := range s.allocations {
		if existing.SprintID != a.SprintID {
			continue
		}
		if existing.ProjectID == a.ProjectID {
			return db.ErrDuplicateAllocation
		}
		total += existing.AllocatedPoints
	}
	if total+a.AllocatedPoints > sp.CapacityPoints {
		return db.ErrCapacityExceeded
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = db.AllocationPlanned
	}
	now := s.now()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.allocations[a.ID] = cloneAllocation(a)
	return nil
}

// UpdateAllocationChecked implements db.AllocationStore. A points change is
// checked against the sprint total minus this allocation's previous points.
func (s *Store) UpdateAllocationChecked(ctx context.Context, id string, u db.AllocationUpdate) (*db.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.allocations[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	sp, ok := s.sprints[a.SprintID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if u.AllocatedPoints != nil {
		totalOthers := 0
		for _, existing := range s.allocations {
			if existing.SprintID == a.SprintID && existing.ID != a.ID {
				totalOthers += existing.AllocatedPoints
			}
		}
		if totalOthers+*u.AllocatedPoints > sp.CapacityPoints {
			return nil, db.ErrCapacityExceeded
		}
		a.AllocatedPoints = *u.AllocatedPoints
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.Comments != nil {
		a.Comments = cloneStringPtr(*u.Comments)
	}
	a.UpdatedAt = s.now()
	return cloneAllocation(a), nil
}

// GetAllocationByID implements db.AllocationStore.
func (s *Store) GetAllocationByID(ctx context.Context, id string) (*db.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.allocations[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return cloneAllocation(a), nil
}

// GetAllocationBySprintAndProject implements db.AllocationStore.
func (s *Store) GetAllocationBySprintAndProject(ctx context.Context, sprintID, projectID string) (*db.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.allocations {
		if a.SprintID == sprintID && a.ProjectID == projectID {
			return cloneAllocation(a), nil
		}
	}
	return nil, db.ErrNotFound
}

// ListAllocationsBySprint implements db.AllocationStore, ordered by creation
// time ascending.
func (s *Store) ListAllocationsBySprint(ctx context.Context, sprintID string) ([]db.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listAllocations(func(a *db.Allocation) bool { return a.SprintID == sprintID }), nil
}

// ListAllocationsByProject implements db.AllocationStore.
func (s *Store) ListAllocationsByProject(ctx context.Context, projectID string) ([]db.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listAllocations(func(a *db.Allocation) bool { return a.ProjectID == projectID }), nil
}

// TotalAllocatedPoints implements db.AllocationStore.
func (s *Store) TotalAllocatedPoints(ctx context.Context, sprintID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, a := range s.allocations {
		if a.SprintID == sprintID {
			total += a.AllocatedPoints
		}
	}
	return total, nil
}

func (s *Store) listAllocations(match func(*db.Allocation) bool) []db.Allocation {
	out := make([]db.Allocation, 0)
	for _, a := range s.allocations {
		if match(a) {
			out = append(out, *cloneAllocation(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func matchesFilters(p *db.Project, f db.ProjectFilters) bool {
	if f.RequestingDepartment != "" && p.RequestingDepartment != f.RequestingDepartment {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, status := range f.Statuses {
			if p.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Search != "" {
		needle := strings.ToLower(strings.TrimSpace(f.Search))
		title := strings.ToLower(p.Title)
		short := ""
		if p.ShortDescription != nil {
			short = strings.ToLower(*p.ShortDescription)
		}
		if !strings.Contains(title, needle) && !strings.Contains(short, needle) {
			return false
		}
	}
	if f.MinScoreWeighted != nil && p.ScoreWeighted < *f.MinScoreWeighted {
		return false
	}
	if f.MaxScoreWeighted != nil && p.ScoreWeighted > *f.MaxScoreWeighted {
		return false
	}
	return true
}

func sortProjects(projects []*db.Project, field db.ProjectSortField, dir db.SortDirection) {
	if field == "" {
		field = db.SortByScoreWeighted
	}
	if dir == "" {
		dir = db.SortDesc
	}
	less := func(a, b *db.Project) bool {
		switch field {
		case db.SortByScoreRaw:
			if a.ScoreRaw != b.ScoreRaw {
				return a.ScoreRaw < b.ScoreRaw
			}
		case db.SortByCreatedAt:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		default:
			if a.ScoreWeighted != b.ScoreWeighted {
				return a.ScoreWeighted < b.ScoreWeighted
			}
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		if dir == db.SortAsc {
			return less(projects[i], projects[j])
		}
		return less(projects[j], projects[i])
	})
}

func applyProjectUpdate(p *db.Project, u db.ProjectUpdate) {
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.AnalysisStartedAt != nil {
		p.AnalysisStartedAt = cloneTimePtr(*u.AnalysisStartedAt)
	}
	if u.DevelopmentStartedAt != nil {
		p.DevelopmentStartedAt = cloneTimePtr(*u.DevelopmentStartedAt)
	}
	if u.ImplementedAt != nil {
		p.ImplementedAt = cloneTimePtr(*u.ImplementedAt)
	}
	if u.ClosedAt != nil {
		p.ClosedAt = cloneTimePtr(*u.ClosedAt)
	}
	if u.ImpactScoreConsidered != nil {
		p.ImpactScoreConsidered = cloneIntPtr(*u.ImpactScoreConsidered)
	}
	if u.FrequencyScoreConsidered != nil {
		p.FrequencyScoreConsidered = cloneIntPtr(*u.FrequencyScoreConsidered)
	}
	if u.UrgencyLevelConsidered != nil {
		p.UrgencyLevelConsidered = cloneUrgencyPtr(*u.UrgencyLevelConsidered)
	}
	if u.ImpactWeightCustom != nil {
		p.ImpactWeightCustom = cloneFloatPtr(*u.ImpactWeightCustom)
	}
	if u.FrequencyWeightCustom != nil {
		p.FrequencyWeightCustom = cloneFloatPtr(*u.FrequencyWeightCustom)
	}
	if u.UrgencyWeightCustom != nil {
		p.UrgencyWeightCustom = cloneFloatPtr(*u.UrgencyWeightCustom)
	}
	if u.FrequencyNumber != nil {
		v := *u.FrequencyNumber
		p.FrequencyNumber = &v
	}
	if u.FrequencyUnit != nil {
		v := *u.FrequencyUnit
		p.FrequencyUnit = &v
	}
	if u.FrequencyScore != nil {
		p.FrequencyScore = *u.FrequencyScore
	}
	if u.ScoreRaw != nil {
		p.ScoreRaw = *u.ScoreRaw
	}
	if u.ScoreWeighted != nil {
		p.ScoreWeighted = *u.ScoreWeighted
	}
	if u.DevelopmentPoints != nil {
		p.DevelopmentPoints = cloneIntPtr(*u.DevelopmentPoints)
	}
	if u.FunctionalPoints != nil {
		p.FunctionalPoints = cloneIntPtr(*u.FunctionalPoints)
	}
	if u.UserPoints != nil {
		p.UserPoints = cloneIntPtr(*u.UserPoints)
	}
	if u.IsReviewedByTeam != nil {
		p.IsReviewedByTeam = *u.IsReviewedByTeam
	}
	if u.ReviewedAt != nil {
		p.ReviewedAt = cloneTimePtr(*u.ReviewedAt)
	}
	if u.ManagementComments != nil {
		p.ManagementComments = cloneStringPtr(*u.ManagementComments)
	}
}

func cloneProject(p *db.Project) *db.Project {
	c := *p
	c.ImpactCategories = append([]string(nil), p.ImpactCategories...)
	c.ShortDescription = cloneStringPtr(p.ShortDescription)
	c.Context = cloneStringPtr(p.Context)
	c.ImpactDescription = cloneStringPtr(p.ImpactDescription)
	c.FrequencyDescription = cloneStringPtr(p.FrequencyDescription)
	c.FrequencyNumber = cloneFloatPtr(p.FrequencyNumber)
	if p.FrequencyUnit != nil {
		v := *p.FrequencyUnit
		c.FrequencyUnit = &v
	}
	c.ImpactScoreConsidered = cloneIntPtr(p.ImpactScoreConsidered)
	c.FrequencyScoreConsidered = cloneIntPtr(p.FrequencyScoreConsidered)
	c.UrgencyLevelConsidered = cloneUrgencyPtr(p.UrgencyLevelConsidered)
	c.ImpactWeightCustom = cloneFloatPtr(p.ImpactWeightCustom)
	c.FrequencyWeightCustom = cloneFloatPtr(p.FrequencyWeightCustom)
	c.UrgencyWeightCustom = cloneFloatPtr(p.UrgencyWeightCustom)
	c.DependenciesDetail = cloneStringPtr(p.DependenciesDetail)
	c.OtherDepartmentsInvolved = cloneStringPtr(p.OtherDepartmentsInvolved)
	c.ContactDepartment = cloneStringPtr(p.ContactDepartment)
	c.ContactEmail = cloneStringPtr(p.ContactEmail)
	c.ContactPhone = cloneStringPtr(p.ContactPhone)
	c.AnalysisStartedAt = cloneTimePtr(p.AnalysisStartedAt)
	c.DevelopmentStartedAt = cloneTimePtr(p.DevelopmentStartedAt)
	c.ImplementedAt = cloneTimePtr(p.ImplementedAt)
	c.ClosedAt = cloneTimePtr(p.ClosedAt)
	c.DevelopmentPoints = cloneIntPtr(p.DevelopmentPoints)
	c.FunctionalPoints = cloneIntPtr(p.FunctionalPoints)
	c.UserPoints = cloneIntPtr(p.UserPoints)
	c.ReviewedAt = cloneTimePtr(p.ReviewedAt)
	c.ManagementComments = cloneStringPtr(p.ManagementComments)
	return &c
}

func cloneSprint(sp *db.Sprint) *db.Sprint {
	c := *sp
	c.Notes = cloneStringPtr(sp.Notes)
	return &c
}

func cloneAllocation(a *db.Allocation) *db.Allocation {
	c := *a
	c.Comments = cloneStringPtr(a.Comments)
	return &c
}

func cloneStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloatPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneUrgencyPtr(v *db.UrgencyLevel) *db.UrgencyLevel {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

package roster

import (
	"context"
	"errors"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

var (
	// errors
	ErrClassNotFound   = errors.New("class not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrImportEmpty     = errors.New("no valid data found in import file")
)

type (
	// Repository persists the roster as a single aggregate under one
	// fixed key. Load returns the seed roster when no prior state
	// exists; Save overwrites it whole — last writer wins.
	Repository interface {
		LoadRoster(ctx context.Context) (Roster, error)
		SaveRoster(ctx context.Context, r Roster) error
	}

	Service struct {
		mu      sync.RWMutex
		repo    Repository
		classes Roster
	}
)

// NewService loads the roster once from the repository; every mutation
// is written through immediately afterwards.
func NewService(ctx context.Context, repo Repository) (*Service, error) {
	classes, err := repo.LoadRoster(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "loading roster")
	}
	return &Service{repo: repo, classes: classes}, nil
}

// Classes returns a copy of the current roster, in persisted order.
func (svc *Service) Classes() Roster {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.classes.clone()
}

func (svc *Service) Get(id string) (Class, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	for _, c := range svc.classes {
		if c.ID == id {
			return c.clone(), nil
		}
	}
	return Class{}, ErrClassNotFound
}

func (svc *Service) AddClass(ctx context.Context, nc NewClass) (Class, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	cls := Class{
		ID:       NewID(),
		Name:     nc.Name,
		Students: []Student{},
	}
	updated := append(svc.classes.clone(), cls)
	if err := svc.save(ctx, updated); err != nil {
		return Class{}, err
	}
	return cls.clone(), nil
}

func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	updated := make(Roster, 0, len(svc.classes))
	found := false
	for _, c := range svc.classes {
		if c.ID == id {
			found = true
			continue
		}
		updated = append(updated, c.clone())
	}
	if !found {
		return ErrClassNotFound
	}
	return svc.save(ctx, updated)
}

// AddStudent appends a new student to the class and returns the
// updated class so callers can refresh their selection.
func (svc *Service) AddStudent(ctx context.Context, classID string, ns NewStudent) (Class, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	updated := svc.classes.clone()
	for i, c := range updated {
		if c.ID != classID {
			continue
		}
		updated[i].Students = append(updated[i].Students, Student{
			ID:          NewID(),
			Name:        ns.Name,
			ParentEmail: ns.ParentEmail,
			ParentPhone: ns.ParentPhone,
		})
		if err := svc.save(ctx, updated); err != nil {
			return Class{}, err
		}
		return updated[i].clone(), nil
	}
	return Class{}, ErrClassNotFound
}

// DeleteStudent removes a student from the class and returns the
// updated class so callers can refresh their selection.
func (svc *Service) DeleteStudent(ctx context.Context, classID, studentID string) (Class, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	updated := svc.classes.clone()
	for i, c := range updated {
		if c.ID != classID {
			continue
		}
		students := make([]Student, 0, len(c.Students))
		found := false
		for _, s := range c.Students {
			if s.ID == studentID {
				found = true
				continue
			}
			students = append(students, s)
		}
		if !found {
			return Class{}, ErrStudentNotFound
		}
		updated[i].Students = students
		if err := svc.save(ctx, updated); err != nil {
			return Class{}, err
		}
		return updated[i].clone(), nil
	}
	return Class{}, ErrClassNotFound
}

// MergeImported folds imported classes into the roster: a class whose
// name matches an existing one case-insensitively has its students
// appended to the existing sequence (keeping the stored name and
// casing); anything else is appended as a new class. No de-duplication
// is attempted — repeated imports produce duplicate students.
func (svc *Service) MergeImported(ctx context.Context, imported []Class) (int, error) {
	if len(imported) == 0 {
		return 0, ErrImportEmpty
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	updated := svc.classes.clone()
	for _, imp := range imported {
		idx := -1
		for i, c := range updated {
			if strings.EqualFold(c.Name, imp.Name) {
				idx = i
				break
			}
		}
		if idx > -1 {
			updated[idx].Students = append(updated[idx].Students, imp.Students...)
		} else {
			updated = append(updated, imp.clone())
		}
	}
	if err := svc.save(ctx, updated); err != nil {
		return 0, err
	}
	return len(imported), nil
}

// save persists and then swaps in the new roster value; callers must
// hold the write lock.
func (svc *Service) save(ctx context.Context, updated Roster) error {
	if err := svc.repo.SaveRoster(ctx, updated); err != nil {
		return pkgerrors.Wrap(err, "saving roster")
	}
	svc.classes = updated
	return nil
}

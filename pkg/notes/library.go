package notes

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"

	"github.com/aretw0/speeza/pkg/core"
	"github.com/aretw0/speeza/pkg/prefs"
	"github.com/aretw0/speeza/pkg/typed"
)

// ErrGroupNotEmpty is returned by DeleteGroup in GroupDeleteIfEmpty mode
// when notes still reference the group.
var ErrGroupNotEmpty = errors.New("group is not empty")

// GroupDeleteMode says what happens to the notes of a deleted group.
type GroupDeleteMode int

const (
	// GroupDeleteIfEmpty deletes only a group no note references.
	GroupDeleteIfEmpty GroupDeleteMode = iota
	// GroupDeleteCascade deletes the group's notes with it.
	GroupDeleteCascade
	// GroupDeleteUncategorize clears the group reference of its notes.
	GroupDeleteUncategorize
)

func (m GroupDeleteMode) String() string {
	switch m {
	case GroupDeleteCascade:
		return "cascade"
	case GroupDeleteUncategorize:
		return "uncategorize"
	default:
		return "if-empty"
	}
}

// GroupDeleteResult reports what DeleteGroup did to the notes.
type GroupDeleteResult struct {
	DeletedNotes       int
	UncategorizedNotes int
}

// ChangeKind classifies a Change.
type ChangeKind string

const (
	NoteCreated     ChangeKind = "note.created"
	NoteUpdated     ChangeKind = "note.updated"
	NoteDeleted     ChangeKind = "note.deleted"
	GroupCreated    ChangeKind = "group.created"
	GroupUpdated    ChangeKind = "group.updated"
	GroupDeleted    ChangeKind = "group.deleted"
	LanguageChanged ChangeKind = "language.changed"
)

// Change is a data-change notification. ID is the entity id (or language
// code). External is set for changes observed in the store rather than made
// through this Library.
type Change struct {
	Kind     ChangeKind
	ID       string
	External bool
}

func (c Change) String() string {
	if c.External {
		return fmt.Sprintf("%s %s (external)", c.Kind, c.ID)
	}
	return fmt.Sprintf("%s %s", c.Kind, c.ID)
}

// Observer receives changes synchronously after each successful mutation.
// Observers run outside the library's write lock and may call back into it.
type Observer func(Change)

// Silencer stops playback of a note about to disappear.
type Silencer interface {
	StopNote(id uuid.UUID) bool
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(lib *Library) {
		if l != nil {
			lib.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(lib *Library) {
		if now != nil {
			lib.now = now
		}
	}
}

// WithSilencer sets what stops playback before a note is deleted.
func WithSilencer(s Silencer) Option {
	return func(lib *Library) {
		lib.silencer = s
	}
}

// WithService reuses an existing core service for transactions and watching.
func WithService(svc *core.Service) Option {
	return func(lib *Library) {
		lib.svc = svc
	}
}

// Library persists notes and groups.
type Library struct {
	repo     core.Repository
	svc      *core.Service
	notes    *typed.Repository[Note]
	groups   *typed.Repository[Group]
	silencer Silencer
	log      *slog.Logger
	now      func() time.Time

	mu        sync.Mutex // serializes writes
	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewLibrary creates a library over repo.
func NewLibrary(repo core.Repository, opts ...Option) *Library {
	l := &Library{
		repo:      repo,
		notes:     typed.NewRepository[Note](repo, NotesCollection),
		groups:    typed.NewRepository[Group](repo, GroupsCollection),
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.svc == nil {
		l.svc = core.NewService(repo, core.WithServiceLogger(l.log))
	}
	return l
}

// Notes returns every note, oldest first.
func (l *Library) Notes(ctx context.Context) ([]Note, error) {
	docs, err := l.notes.List(ctx)
	if err != nil {
		return nil, persistErr("listing notes", err)
	}
	out := make([]Note, 0, len(docs))
	for _, d := range docs {
		out = append(out, noteFrom(d))
	}
	slices.SortStableFunc(out, func(a, b Note) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID.String(), b.ID.String()))
	})
	return out, nil
}

// Note returns one note or core.ErrNotFound.
func (l *Library) Note(ctx context.Context, id uuid.UUID) (Note, error) {
	d, err := l.notes.Get(ctx, id.String())
	if err != nil {
		return Note{}, persistErr("reading note", err)
	}
	return noteFrom(d), nil
}

// Groups returns every group, oldest first.
func (l *Library) Groups(ctx context.Context) ([]Group, error) {
	docs, err := l.groups.List(ctx)
	if err != nil {
		return nil, persistErr("listing groups", err)
	}
	out := make([]Group, 0, len(docs))
	for _, d := range docs {
		out = append(out, groupFrom(d))
	}
	slices.SortStableFunc(out, func(a, b Group) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID.String(), b.ID.String()))
	})
	return out, nil
}

// Group returns one group or core.ErrNotFound.
func (l *Library) Group(ctx context.Context, id uuid.UUID) (Group, error) {
	d, err := l.groups.Get(ctx, id.String())
	if err != nil {
		return Group{}, persistErr("reading group", err)
	}
	return groupFrom(d), nil
}

// CreateNote persists a new note. A nil ID is replaced by a fresh one and
// zero timestamps by now. Blank text is rejected with core.ErrValidation.
func (l *Library) CreateNote(ctx context.Context, n Note) (Note, error) {
	if isBlank(n.Text) {
		return Note{}, fmt.Errorf("%w: note text is blank", core.ErrValidation)
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = l.now()
	}
	if n.UpdatedAt.Before(n.CreatedAt) {
		n.UpdatedAt = n.CreatedAt
	}
	n.normalize()

	l.mu.Lock()
	err := l.notes.Save(ctx, noteModel(n))
	l.mu.Unlock()
	if err != nil {
		return Note{}, persistErr("saving note", err)
	}

	l.log.Info("note created", "id", n.ID, "group", n.GroupID.UUID, "grouped", n.GroupID.Valid)
	l.emit(Change{Kind: NoteCreated, ID: n.ID.String()})
	return n, nil
}

// UpdateNote applies mutate to the stored note and saves it with a fresh
// UpdatedAt that never moves backwards. The ID and CreatedAt cannot be
// changed. core.ErrNotFound is returned, and nothing written, when id does
// not resolve.
func (l *Library) UpdateNote(ctx context.Context, id uuid.UUID, mutate func(*Note)) (Note, error) {
	next, err := l.updateNote(ctx, id, mutate)
	if err != nil {
		return Note{}, err
	}

	l.log.Info("note updated", "id", id)
	l.emit(Change{Kind: NoteUpdated, ID: id.String()})
	return next, nil
}

func (l *Library) updateNote(ctx context.Context, id uuid.UUID, mutate func(*Note)) (Note, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d, err := l.notes.Get(ctx, id.String())
	if err != nil {
		return Note{}, persistErr("reading note", err)
	}
	prev := noteFrom(d)

	next := prev
	if mutate != nil {
		mutate(&next)
	}
	if isBlank(next.Text) {
		return Note{}, fmt.Errorf("%w: note text is blank", core.ErrValidation)
	}
	next.ID = prev.ID
	next.CreatedAt = prev.CreatedAt
	next.UpdatedAt = l.now()
	if next.UpdatedAt.Before(prev.UpdatedAt) {
		next.UpdatedAt = prev.UpdatedAt
	}
	if next.UpdatedAt.Before(next.CreatedAt) {
		next.UpdatedAt = next.CreatedAt
	}
	next.normalize()

	if err := l.notes.Save(ctx, noteModel(next)); err != nil {
		return Note{}, persistErr("saving note", err)
	}
	return next, nil
}

// DeleteNote stops any playback of the note, then removes it.
func (l *Library) DeleteNote(ctx context.Context, id uuid.UUID) error {
	if l.silencer != nil && l.silencer.StopNote(id) {
		l.log.Debug("stopped playback of deleted note", "id", id)
	}

	l.mu.Lock()
	err := l.notes.Delete(ctx, id.String())
	l.mu.Unlock()
	if err != nil {
		return persistErr("deleting note", err)
	}

	l.log.Info("note deleted", "id", id)
	l.emit(Change{Kind: NoteDeleted, ID: id.String()})
	return nil
}

// CreateGroup persists a new group. Duplicate names are allowed.
func (l *Library) CreateGroup(ctx context.Context, name string) (Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Group{}, fmt.Errorf("%w: group name is blank", core.ErrValidation)
	}
	g := Group{ID: uuid.New(), Name: name, CreatedAt: l.now()}

	l.mu.Lock()
	err := l.groups.Save(ctx, groupModel(g))
	l.mu.Unlock()
	if err != nil {
		return Group{}, persistErr("saving group", err)
	}

	l.log.Info("group created", "id", g.ID, "name", g.Name)
	l.emit(Change{Kind: GroupCreated, ID: g.ID.String()})
	return g, nil
}

// RenameGroup changes a group's name in place.
func (l *Library) RenameGroup(ctx context.Context, id uuid.UUID, name string) (Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Group{}, fmt.Errorf("%w: group name is blank", core.ErrValidation)
	}

	l.mu.Lock()
	g, err := l.renameGroup(ctx, id, name)
	l.mu.Unlock()
	if err != nil {
		return Group{}, err
	}

	l.log.Info("group renamed", "id", id, "name", name)
	l.emit(Change{Kind: GroupUpdated, ID: id.String()})
	return g, nil
}

// renameGroup runs with l.mu held.
func (l *Library) renameGroup(ctx context.Context, id uuid.UUID, name string) (Group, error) {
	d, err := l.groups.Get(ctx, id.String())
	if err != nil {
		return Group{}, persistErr("reading group", err)
	}
	g := groupFrom(d)
	g.Name = name
	if err := l.groups.Save(ctx, groupModel(g)); err != nil {
		return Group{}, persistErr("saving group", err)
	}
	return g, nil
}

// DeleteGroup removes a group. Its notes are handled according to mode;
// an empty group is deleted whatever the mode. The group and its notes
// change in one store transaction.
func (l *Library) DeleteGroup(ctx context.Context, id uuid.UUID, mode GroupDeleteMode) (GroupDeleteResult, error) {
	var (
		res     GroupDeleteResult
		changes []Change
	)

	l.mu.Lock()
	defer func() {
		l.mu.Unlock()
		for _, c := range changes {
			l.emit(c)
		}
	}()

	ctx = context.WithValue(ctx, core.ChangeReasonKey, "delete group "+id.String())
	err := l.inTransaction(ctx, func(tx core.Transaction) error {
		groups := l.groups.In(tx)
		notes := l.notes.In(tx)

		if _, err := groups.Get(ctx, id.String()); err != nil {
			return err
		}
		members, err := notes.Query(ctx, func(d *typed.DocumentModel[Note]) bool {
			return d.Data.InGroup(ByID(id))
		}, nil)
		if err != nil {
			return err
		}

		if len(members) > 0 {
			switch mode {
			case GroupDeleteCascade:
				for _, d := range members {
					n := noteFrom(d)
					if l.silencer != nil {
						l.silencer.StopNote(n.ID)
					}
					if err := notes.Delete(ctx, d.ID); err != nil {
						return err
					}
					res.DeletedNotes++
					changes = append(changes, Change{Kind: NoteDeleted, ID: d.ID})
				}
			case GroupDeleteUncategorize:
				for _, d := range members {
					n := noteFrom(d)
					n.GroupID = Uncategorized
					if err := notes.Save(ctx, noteModel(n)); err != nil {
						return err
					}
					res.UncategorizedNotes++
					changes = append(changes, Change{Kind: NoteUpdated, ID: d.ID})
				}
			default:
				return fmt.Errorf("%w: %d notes reference it", ErrGroupNotEmpty, len(members))
			}
		}

		if err := groups.Delete(ctx, id.String()); err != nil {
			return err
		}
		changes = append(changes, Change{Kind: GroupDeleted, ID: id.String()})
		return nil
	})
	if err != nil {
		changes = nil
		if errors.Is(err, ErrGroupNotEmpty) {
			return GroupDeleteResult{}, err
		}
		return GroupDeleteResult{}, persistErr("deleting group", err)
	}

	l.log.Info("group deleted", "id", id, "mode", mode, "deleted_notes", res.DeletedNotes, "uncategorized_notes", res.UncategorizedNotes)
	return res, nil
}

// Subscribe registers an observer. Call the returned function to remove it.
func (l *Library) Subscribe(obs Observer) (cancel func()) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	id := l.nextObs
	l.nextObs++
	l.observers[id] = obs
	return func() {
		l.obsMu.Lock()
		defer l.obsMu.Unlock()
		delete(l.observers, id)
	}
}

// Notify forwards a change made elsewhere (the language preference store,
// for instance) to the observers.
func (l *Library) Notify(c Change) {
	l.emit(c)
}

func (l *Library) emit(c Change) {
	l.obsMu.Lock()
	obs := make([]Observer, 0, len(l.observers))
	for _, o := range l.observers {
		obs = append(obs, o)
	}
	l.obsMu.Unlock()

	for _, o := range obs {
		o(c)
	}
}

// WatchPattern matches every document the library and the preference store own.
var WatchPattern = fmt.Sprintf("{%s,%s,%s}/**", NotesCollection, GroupsCollection, prefs.Collection)

// Watch streams store-level changes, including edits made outside this
// process when the store can observe them. The channel closes with ctx.
func (l *Library) Watch(ctx context.Context) (<-chan Change, error) {
	events, err := l.svc.Watch(ctx, WatchPattern)
	if err != nil {
		return nil, err
	}

	out := make(chan Change, core.DefaultEventBuffer)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				c, ok := changeFromEvent(e)
				if !ok {
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		l.log.Error("library watch stopped", "error", err)
	}))
	return out, nil
}

func changeFromEvent(e core.Event) (Change, bool) {
	collection := core.CollectionOf(e.ID)
	key := strings.TrimPrefix(e.ID, collection+"/")

	var kinds [3]ChangeKind
	switch collection {
	case NotesCollection:
		kinds = [3]ChangeKind{NoteCreated, NoteUpdated, NoteDeleted}
	case GroupsCollection:
		kinds = [3]ChangeKind{GroupCreated, GroupUpdated, GroupDeleted}
	case prefs.Collection:
		kinds = [3]ChangeKind{LanguageChanged, LanguageChanged, LanguageChanged}
	default:
		return Change{}, false
	}

	var kind ChangeKind
	switch e.Type {
	case core.EventCreate:
		kind = kinds[0]
	case core.EventModify:
		kind = kinds[1]
	case core.EventDelete:
		kind = kinds[2]
	default:
		return Change{}, false
	}
	return Change{Kind: kind, ID: key, External: true}, true
}

func (l *Library) inTransaction(ctx context.Context, fn func(tx core.Transaction) error) error {
	if _, ok := l.repo.(core.Transactional); ok {
		return l.svc.WithTransaction(ctx, fn)
	}
	return fn(directTx{l.repo})
}

// directTx applies writes immediately for stores without transactions.
type directTx struct {
	core.Repository
}

func (directTx) Commit(ctx context.Context, changeReason string) error { return nil }
func (directTx) Rollback(ctx context.Context) error                    { return nil }

func persistErr(op string, err error) error {
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", core.ErrPersistence, op, err)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func noteModel(n Note) *typed.DocumentModel[Note] {
	return &typed.DocumentModel[Note]{ID: n.ID.String(), Content: n.Text, Data: n}
}

func noteFrom(d *typed.DocumentModel[Note]) Note {
	n := d.Data
	n.Text = d.Content
	if n.ID == uuid.Nil {
		if id, err := uuid.Parse(d.ID); err == nil {
			n.ID = id
		}
	}
	return n
}

func groupModel(g Group) *typed.DocumentModel[Group] {
	return &typed.DocumentModel[Group]{ID: g.ID.String(), Data: g}
}

func groupFrom(d *typed.DocumentModel[Group]) Group {
	g := d.Data
	if g.ID == uuid.Nil {
		if id, err := uuid.Parse(d.ID); err == nil {
			g.ID = id
		}
	}
	return g
}

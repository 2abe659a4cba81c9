package boardsync

import (
	"context"
	"io"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/boardsync/pkg/board"
	"github.com/matzehuels/boardsync/pkg/diff"
	apperrors "github.com/matzehuels/boardsync/pkg/errors"
	"github.com/matzehuels/boardsync/pkg/graph"
	"github.com/matzehuels/boardsync/pkg/httputil"
	"github.com/matzehuels/boardsync/pkg/loader"
)

// ErrSyncInProgress is returned when a sync is started while another one
// on the same Service is still running.
var ErrSyncInProgress = apperrors.New(apperrors.ErrCodeConflict, "a sync is already in progress")

// Service syncs records to one board. It is safe for concurrent use, but
// runs at most one sync at a time.
type Service struct {
	board     board.Board
	templates Templates
	logger    *log.Logger
	attempts  int
	baseDelay time.Duration

	mu      sync.Mutex
	running bool
	state   State
}

// Option configures a Service.
type Option func(*Service)

// WithTemplates adds templates, replacing built-in ones with the same name.
func WithTemplates(t Templates) Option {
	return func(s *Service) {
		for name, tmpl := range t {
			s.templates[normalizeTemplate(name)] = tmpl
		}
	}
}

// WithRetry sets the retry policy for host calls.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(s *Service) {
		s.attempts = attempts
		s.baseDelay = baseDelay
	}
}

// WithState seeds the Service with a previously saved [State].
func WithState(st State) Option {
	return func(s *Service) { s.state = st.Clone() }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service applying changes to b.
func NewService(b board.Board, opts ...Option) *Service {
	s := &Service{
		board:     b,
		templates: DefaultTemplates(),
		attempts:  httputil.DefaultAttempts,
		baseDelay: httputil.DefaultBaseDelay,
		state:     State{}.Clone(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return s
}

// Board returns the board the Service writes to.
func (s *Service) Board() board.Board { return s.board }

// Templates returns a copy of the template set.
func (s *Service) Templates() Templates { return maps.Clone(s.templates) }

// State returns a copy of the current snapshot and mapping.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Mapping returns a copy of the row key to widget id mapping.
func (s *Service) Mapping() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.state.Widgets)
}

// Reset forgets the snapshot and mapping, so the next sync creates every
// row again. It fails with [ErrSyncInProgress] while a sync runs.
func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSyncInProgress
	}
	s.state = State{}.Clone()
	return nil
}

func (s *Service) begin() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return State{}, ErrSyncInProgress
	}
	s.running = true
	return s.state.Clone(), nil
}

// finish releases the sync slot and stores next unless it is nil.
func (s *Service) finish(next *State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next != nil {
		s.state = *next
	}
	s.running = false
}

// Columns selects the workbook columns used by [Service.UpdateShapesFromExcel].
type Columns struct {
	IDColumn       string `json:"idColumn"`
	LabelColumn    string `json:"labelColumn,omitempty"`    // defaults to the id
	TemplateColumn string `json:"templateColumn,omitempty"` // blank cells use DefaultTemplate

	// DefaultTemplate applies to rows without a template. Empty means
	// "rectangle".
	DefaultTemplate string `json:"defaultTemplate,omitempty"`

	// Layout positions rows whose key is a node in it. Other new rows are
	// placed on a grid; other updated rows keep their position.
	Layout *graph.LayoutResult `json:"layout,omitempty"`
}

func (c Columns) validate(rows []loader.Row) error {
	if err := apperrors.ValidateColumnName(c.IDColumn); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "id column")
	}
	for _, col := range []string{c.LabelColumn, c.TemplateColumn} {
		if col == "" {
			continue
		}
		if err := apperrors.ValidateColumnName(col); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if _, ok := r[c.IDColumn]; ok {
			return nil
		}
	}
	return apperrors.New(apperrors.ErrCodeInvalidInput, "id column %q not found", c.IDColumn)
}

// UpdateShapesFromExcel makes the board match rows: each row becomes one
// shape keyed by its IDColumn value.
//
// Rows are diffed against the last applied snapshot; new rows are created,
// changed rows updated through the stored widget mapping, and rows that
// disappeared are removed. A row without a key or with an unknown template
// is reported as a [RowError] and is neither applied nor deleted.
//
// Invalid columns fail before any host call. See the package documentation
// for retry and abort behaviour.
func (s *Service) UpdateShapesFromExcel(ctx context.Context, rows []loader.Row, cols Columns) (*Report, error) {
	if err := cols.validate(rows); err != nil {
		return nil, err
	}
	if _, err := s.templates.Lookup(cols.DefaultTemplate); err != nil {
		return nil, err
	}
	return s.sync(ctx, s.planRows(rows, cols))
}

func (s *Service) planRows(rows []loader.Row, cols Columns) plan {
	p := plan{keep: make(map[string]bool)}
	keyOf := diff.RecordKey(cols.IDColumn)
	for i, row := range rows {
		n := i + 1
		key, ok := keyOf(row)
		if !ok {
			err := apperrors.New(apperrors.ErrCodeInvalidRow, "row %d has no value in %q", n, cols.IDColumn)
			p.invalid = append(p.invalid, newRowError("", n, OpValidate, err))
			continue
		}

		name := cols.DefaultTemplate
		if cols.TemplateColumn != "" {
			if v := cellText(row[cols.TemplateColumn]); v != "" {
				name = v
			}
		}
		if _, err := s.templates.Lookup(name); err != nil {
			p.invalid = append(p.invalid, newRowError(key, n, OpValidate, err))
			p.keep[key] = true
			continue
		}

		label := key
		if cols.LabelColumn != "" {
			if v := cellText(row[cols.LabelColumn]); v != "" {
				label = v
			}
		}

		rec := ShapeRecord{
			Key:      key,
			Label:    label,
			Template: templateName(name),
			Record:   maps.Clone(row),
			row:      n,
		}
		if cols.Layout != nil {
			if r, ok := cols.Layout.Nodes[key]; ok {
				rec.Rect = &r
			}
		}
		p.shapes = append(p.shapes, rec)
	}
	return p
}

func templateName(name string) string {
	if n := normalizeTemplate(name); n != "" {
		return n
	}
	return DefaultTemplate
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	default:
		return diff.KeyString(v)
	}
}

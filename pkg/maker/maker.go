package maker

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sort"

	"github.com/mcattow/crucible/pkg/component"
	"github.com/mcattow/crucible/pkg/design"
	"github.com/mcattow/crucible/pkg/kernel"
	"github.com/mcattow/crucible/pkg/tracker"
)

// Pipeline-order errors. Each stage names the stage that has to run
// before it.
var (
	ErrNoDesign  = errors.New("maker: no design loaded")
	ErrNotFilled = errors.New("maker: design not filled, run fill first")
	ErrNotBuilt  = errors.New("maker: no bodies built, run build first")
	ErrNotMeshed = errors.New("maker: no mesh, run mesh first")
)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// Maker owns one kernel session and walks a design through the
// pipeline: load, fill, build, merge, track, mesh, export. The session
// must not be shared; build resets it before creating bodies.
type Maker struct {
	cfg  Config
	log  *slog.Logger
	sess kernel.Session

	templates *design.Registry
	classes   *component.Registry
	loader    design.Loader

	raw    *design.Tree
	tree   *design.Tree
	root   *component.Instance
	rec    *tracker.Record
	merged bool
	meshed bool
}

// New returns a maker bound to sess. A nil log discards.
func New(sess kernel.Session, cfg Config, log *slog.Logger) *Maker {
	if log == nil {
		log = discardLog
	}
	return &Maker{
		cfg:       cfg,
		log:       log,
		sess:      sess,
		templates: design.Defaults(),
		classes:   component.Builtins(),
	}
}

// Config returns the maker's settings.
func (m *Maker) Config() Config { return m.cfg }

// Session returns the kernel session the maker drives.
func (m *Maker) Session() kernel.Session { return m.sess }

// Templates returns the template registry, for registering custom
// classes before filling.
func (m *Maker) Templates() *design.Registry { return m.templates }

// Classes returns the component class registry.
func (m *Maker) Classes() *component.Registry { return m.classes }

// Raw returns the loaded design tree, nil before loading.
func (m *Maker) Raw() *design.Tree { return m.raw }

// Tree returns the filled design tree, nil before filling.
func (m *Maker) Tree() *design.Tree { return m.tree }

// Root returns the built component tree, nil before building.
func (m *Maker) Root() *component.Instance { return m.root }

// Record returns the tracking record, nil before tracking.
func (m *Maker) Record() *tracker.Record { return m.rec }

func (m *Maker) delim() string {
	if m.cfg.Delimiter != "" {
		return m.cfg.Delimiter
	}
	return design.DefaultDelimiter
}

// setRaw installs a new design and discards everything derived from
// the previous one. Stale kernel bodies are cleared on the next build.
func (m *Maker) setRaw(t *design.Tree) {
	m.raw = t
	m.tree = nil
	m.root = nil
	m.rec = nil
	m.merged = false
	m.meshed = false
}

// LoadFile loads a design from path. File references inside the
// design resolve relative to the same directory.
func (m *Maker) LoadFile(path string) error {
	t, err := design.LoadFile(path)
	if err != nil {
		return fmt.Errorf("maker: load: %w", err)
	}
	m.loader = design.FileLoader{Dir: filepath.Dir(path)}
	m.setRaw(t)
	m.log.Info("loaded design", "path", path, "keys", t.Len())
	return nil
}

// LoadTree installs an already parsed design.
func (m *Maker) LoadTree(t *design.Tree) {
	m.setRaw(t)
}

// Fill completes the loaded design from the class templates and
// substitutes file references.
func (m *Maker) Fill() error {
	if m.raw == nil {
		return ErrNoDesign
	}
	r := design.NewResolver(m.templates, m.loader)
	r.Log = m.log
	t, err := r.Resolve(m.raw)
	if err != nil {
		return err
	}
	m.tree = t
	return nil
}

// Build constructs the component tree from the filled design and
// creates its bodies. The design is validated in full before the
// session is touched; an invalid design leaves the kernel unasked.
// Building resets the session first, so earlier bodies are discarded.
func (m *Maker) Build() error {
	if m.tree == nil {
		return ErrNotFilled
	}
	root, err := m.classes.Construct(m.tree)
	if err != nil {
		return err
	}
	if err := m.sess.Reset(); err != nil {
		return fmt.Errorf("maker: reset: %w", err)
	}
	m.root = nil
	m.rec = nil
	m.merged = false
	m.meshed = false

	if err := component.BuildGeometry(root, m.sess); err != nil {
		return err
	}
	if m.cfg.Scale != 0 {
		factor := math.Pow(10, float64(m.cfg.Scale))
		if err := m.sess.Scale(factor); err != nil {
			return fmt.Errorf("maker: scale: %w", err)
		}
		m.log.Info("scaled bodies", "factor", factor)
	}
	m.root = root
	m.log.Info("built bodies", "components", len(root.Simples()))
	return nil
}

// MergeOverlaps makes coincident walls between bodies shared, so
// boundary queries and meshing see one face instead of two.
func (m *Maker) MergeOverlaps() error {
	if m.root == nil {
		return ErrNotBuilt
	}
	if err := m.sess.ImprintAndMerge(); err != nil {
		return fmt.Errorf("maker: merge: %w", err)
	}
	m.merged = true
	return nil
}

// Track names the components, groups them into material blocks and
// derives the sidesets between touching blocks. Boundary query
// failures do not fail the run; they leave the record incomplete.
func (m *Maker) Track() error {
	if m.root == nil {
		return ErrNotBuilt
	}
	tr := &tracker.Tracker{Delimiter: m.delim(), Log: m.log}
	rec, err := tr.Track(m.root, m.sess)
	if err != nil {
		return err
	}
	m.rec = rec
	if rec.Incomplete() {
		m.log.Warn("tracking incomplete", "failures", len(rec.Failures))
	}
	return nil
}

// Mesh meshes the built bodies at the configured element size.
func (m *Maker) Mesh() error { return m.MeshSize(m.cfg.Mesh.Size) }

// MeshSize meshes at an explicit element size, overriding the config.
func (m *Maker) MeshSize(size float64) error {
	if m.root == nil {
		return ErrNotBuilt
	}
	if err := m.sess.MeshVolumes(size); err != nil {
		return fmt.Errorf("maker: mesh: %w", err)
	}
	m.meshed = true
	return nil
}

// Export writes the configured geometry and mesh formats into the
// destination directory and returns the written paths. Mesh formats
// require a prior Mesh.
func (m *Maker) Export() ([]string, error) {
	if m.root == nil {
		return nil, ErrNotBuilt
	}
	var paths []string
	for _, f := range m.cfg.geometryFormats() {
		path := m.outputPath(f)
		if err := m.sess.ExportGeometry(f, path, m.cfg.exportOptions(f)); err != nil {
			return paths, fmt.Errorf("maker: export %s: %w", f, err)
		}
		m.log.Info("exported geometry", "path", path)
		paths = append(paths, path)
	}
	if len(m.cfg.Export.Mesh) > 0 && !m.meshed {
		return paths, ErrNotMeshed
	}
	for _, f := range m.cfg.meshFormats() {
		path := m.outputPath(f)
		if err := m.sess.ExportMesh(f, path, m.cfg.exportOptions(f)); err != nil {
			return paths, fmt.Errorf("maker: export %s: %w", f, err)
		}
		m.log.Info("exported mesh", "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}

func (m *Maker) outputPath(f kernel.Format) string {
	return filepath.Join(m.cfg.Destination, m.cfg.RootName+f.Ext())
}

// Run walks the whole pipeline. The design is loaded from the
// configured input unless one is already loaded. Tracking runs when
// configured, meshing when a mesh format is requested. Returns the
// exported paths.
func (m *Maker) Run() ([]string, error) {
	if err := m.cfg.Validate(); err != nil {
		return nil, err
	}
	if m.raw == nil {
		if m.cfg.Input == "" {
			return nil, ErrNoDesign
		}
		if err := m.LoadFile(m.cfg.Input); err != nil {
			return nil, err
		}
	}
	if err := m.Fill(); err != nil {
		return nil, err
	}
	if err := m.Build(); err != nil {
		return nil, err
	}
	if err := m.MergeOverlaps(); err != nil {
		return nil, err
	}
	if m.cfg.Track {
		if err := m.Track(); err != nil {
			return nil, err
		}
	}
	if len(m.cfg.Export.Mesh) > 0 {
		if err := m.Mesh(); err != nil {
			return nil, err
		}
	}
	return m.Export()
}

// BuildMerged loads a design file and takes it as far as merged
// bodies. Nothing is tracked, meshed or exported.
func (m *Maker) BuildMerged(path string) error {
	if err := m.LoadFile(path); err != nil {
		return err
	}
	if err := m.Fill(); err != nil {
		return err
	}
	if err := m.Build(); err != nil {
		return err
	}
	return m.MergeOverlaps()
}

// Param reads a design value by its dotted path, from the filled tree
// when available, otherwise from the raw design.
func (m *Maker) Param(path string) (any, error) {
	t := m.tree
	if t == nil {
		t = m.raw
	}
	if t == nil {
		return nil, ErrNoDesign
	}
	return t.Lookup(path, m.delim())
}

// SetParam changes an existing design value by its dotted path. The
// path must already exist; SetParam never grows the design. The
// filled tree is updated, so bodies must be rebuilt afterwards.
func (m *Maker) SetParam(path string, value any) error {
	if m.raw == nil {
		return ErrNoDesign
	}
	if m.tree == nil {
		if err := m.Fill(); err != nil {
			return err
		}
	}
	if err := m.tree.Assign(path, value, m.delim()); err != nil {
		return err
	}
	m.root = nil
	m.rec = nil
	m.merged = false
	m.meshed = false
	m.log.Info("changed parameter", "path", path, "value", value)
	return nil
}

// ChangeParams applies several parameter changes at once, in path
// order. It stops at the first failure.
func (m *Maker) ChangeParams(params map[string]any) error {
	paths := make([]string, 0, len(params))
	for path := range params {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := m.SetParam(path, params[path]); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the kernel session and every built artifact, keeping
// the loaded and filled design.
func (m *Maker) Reset() error {
	if err := m.sess.Reset(); err != nil {
		return fmt.Errorf("maker: reset: %w", err)
	}
	m.root = nil
	m.rec = nil
	m.merged = false
	m.meshed = false
	return nil
}

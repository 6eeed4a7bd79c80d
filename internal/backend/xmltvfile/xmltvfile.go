// Package xmltvfile serves the guide from a local XMLTV document.
package xmltvfile

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/runnerr0/tvguide/internal/backend"
	"github.com/runnerr0/tvguide/internal/guide"
	"github.com/runnerr0/tvguide/internal/provider"
	"github.com/runnerr0/tvguide/internal/storage"
	"github.com/runnerr0/tvguide/internal/xmltv"
)

// GroupPrefix starts the id of the group a file provides.
const GroupPrefix = "file:"

var _ backend.Backend = (*Backend)(nil)

// Backend is the local XMLTV file backend. The document is parsed once and
// every operation completes without network I/O.
type Backend struct {
	backend.ImageCache

	store storage.Store
	file  provider.Provider
	log   *slog.Logger

	mu      sync.RWMutex
	path    string
	doc     *xmltv.Document
	loadErr error
}

// New creates the backend and parses the document at path. A path that
// cannot be read is reported by the fetch operations.
func New(ctx context.Context, store storage.Store, file provider.Provider, images backend.ImageCache, path string, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{
		ImageCache: images,
		store:      store,
		file:       file,
		log:        logger.With("component", "backend", "backend", backend.KindXMLTVFile),
	}
	b.SetPath(ctx, path)
	return b
}

// Kind implements backend.Backend.
func (b *Backend) Kind() backend.Kind { return backend.KindXMLTVFile }

// Synchronous implements backend.Backend.
func (b *Backend) Synchronous() bool { return true }

// Path returns the absolute path of the current document.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// SetPath switches to the document at path. The document is re-parsed
// only when the path changed.
func (b *Backend) SetPath(ctx context.Context, path string) {
	path = strings.TrimSpace(path)
	if p, err := provider.FilePath(path); err == nil {
		path = p
	}
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if path == b.path && b.doc != nil {
		return
	}
	b.path = path
	b.doc, b.loadErr = b.load(ctx, path)
}

// load reads and parses path. A malformed document is logged and yields
// an empty one.
func (b *Backend) load(ctx context.Context, path string) (*xmltv.Document, error) {
	empty := &xmltv.Document{}
	if path == "" {
		return empty, errors.New("no XMLTV file configured")
	}

	data, err := b.file.Get(ctx, path)
	if err != nil {
		b.log.Warn("read XMLTV file", "path", path, "error", err)
		return empty, err
	}
	doc, err := xmltv.Parse(data)
	if err != nil {
		b.log.Warn("malformed XMLTV file", "path", path, "error", err)
		return empty, nil
	}
	b.log.Info("loaded XMLTV file", "path", path,
		"channels", len(doc.Channels), "programmes", len(doc.Programmes))
	return doc, nil
}

// document returns the current document, or the error that kept it from
// loading as a fetch error.
func (b *Backend) document() (string, *xmltv.Document, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.loadErr != nil {
		return "", nil, backend.Errorf(backend.CodeIO, "%v", b.loadErr)
	}
	return b.path, b.doc, nil
}

// GroupID returns the id of the group the document at path provides.
func GroupID(path string) guide.GroupID {
	return guide.GroupID(GroupPrefix + filepath.Base(path))
}

func group(path string, doc *xmltv.Document) guide.GroupRecord {
	name := backend.Sanitize(doc.GeneratorInfoName)
	if name == "" {
		name = filepath.Base(path)
	}
	return guide.GroupRecord{
		ID:   GroupID(path),
		Name: name,
		URL:  "file://" + filepath.ToSlash(path),
	}
}

func (b *Backend) addGroup(ctx context.Context, g guide.GroupRecord) {
	if _, err := b.store.AddGroup(ctx, g); err != nil {
		b.log.Warn("store group", "group", g.ID, "error", err)
	}
}

// FetchGroups stores the document's group.
func (b *Backend) FetchGroups(ctx context.Context) error {
	path, doc, err := b.document()
	if err != nil {
		return err
	}
	b.addGroup(ctx, group(path, doc))
	return nil
}

// FetchGroup stores every channel of the document.
func (b *Backend) FetchGroup(ctx context.Context, id guide.GroupID) error {
	path, doc, err := b.document()
	if err != nil {
		return err
	}
	g := group(path, doc)
	if id != g.ID {
		return backend.Errorf(backend.CodeNotFound, "unknown group %q", id)
	}
	b.addGroup(ctx, g)

	for _, c := range doc.Channels {
		if strings.TrimSpace(c.ID) == "" {
			b.log.Warn("skip channel without id", "path", path)
			continue
		}
		rec := backend.SanitizeChannel(c.Record())
		if _, err := b.store.AddChannel(ctx, rec, g.ID); err != nil {
			b.log.Warn("store channel", "channel", rec.ID, "error", err)
		}
	}
	return nil
}

// FetchProgram stores all programmes of ch as one batch.
func (b *Backend) FetchProgram(ctx context.Context, ch guide.ChannelID) error {
	_, doc, err := b.document()
	if err != nil {
		return err
	}
	exists, err := b.store.ChannelExists(ctx, ch)
	if err != nil {
		return backend.Errorf(backend.CodeIO, "check channel: %v", err)
	}
	if !exists {
		return backend.Errorf(backend.CodeNotFound, "unknown channel %q", ch)
	}

	programs := xmltv.Records(doc.Programmes, ch, b.log)
	backend.SanitizePrograms(programs)
	if err := b.store.AddPrograms(ctx, programs); err != nil {
		b.log.Warn("store programs", "channel", ch, "error", err)
	}
	return nil
}

// FetchProgramDescription succeeds for every stored program: the
// document already carried the description.
func (b *Backend) FetchProgramDescription(ctx context.Context, id guide.ProgramID, force bool) error {
	if _, err := b.store.Program(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return backend.Errorf(backend.CodeNotFound, "unknown program %q", id)
		}
		return backend.Errorf(backend.CodeIO, "load program: %v", err)
	}
	return nil
}

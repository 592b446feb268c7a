package easel

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// defaultDebounceWindow is the quiet period after the last ScheduleSave
// call before a save actually runs.
const defaultDebounceWindow = 2 * time.Second

// Syncer keeps the canvas and the persistence collaborator in sync. Saves
// are debounced on the trailing edge: repeated ScheduleSave calls within
// the window collapse into a single underlying save, and the timer resets
// on every call so the save always reflects the state at the moment the
// window finally elapses. Loads are tolerant: one corrupt entry never
// aborts the rest of the document.
type Syncer struct {
	canvas    *Canvas
	persister Persister

	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
}

// NewSyncer wires a syncer between the canvas and a persister. The
// canvas's change hook is registered to ScheduleSave, so every persistable
// mutation arms the debounce.
func NewSyncer(canvas *Canvas, persister Persister) *Syncer {
	s := &Syncer{
		canvas:    canvas,
		persister: persister,
		window:    defaultDebounceWindow,
	}
	canvas.SetOnChange(s.ScheduleSave)
	return s
}

// SetDebounceWindow overrides the debounce window. Useful in tests.
func (s *Syncer) SetDebounceWindow(d time.Duration) {
	s.mu.Lock()
	s.window = d
	s.mu.Unlock()
}

// ScheduleSave arms (or re-arms) the debounce timer. The underlying save
// reads a fresh snapshot when it fires, so last-write-wins applies to the
// trigger only, never to stale object state.
func (s *Syncer) ScheduleSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Reset(s.window)
		return
	}
	s.timer = time.AfterFunc(s.window, s.fire)
}

func (s *Syncer) fire() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	if err := s.Save(context.Background()); err != nil {
		// Non-fatal: in-memory state is preserved and the next mutation
		// retries.
		logrus.WithError(err).Warn("debounced save failed")
	}
}

// Flush cancels any pending debounce and saves immediately. Used on
// shutdown.
func (s *Syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.Save(ctx)
}

// Stop cancels any pending save without running it.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
}

// Save serializes the current canvas state and hands it to the persister.
// Items with an unresolved image source were already filtered out by the
// snapshot; they never abort the save.
func (s *Syncer) Save(ctx context.Context) error {
	doc := s.canvas.Snapshot()
	if err := s.persister.SaveDocument(ctx, doc); err != nil {
		s.canvas.reportPersistence(err)
		return err
	}
	logrus.WithField("objects", len(doc.Objects)).Debug("document saved")
	return nil
}

// Load fetches the persisted document and rehydrates the canvas from it.
func (s *Syncer) Load(ctx context.Context) error {
	doc, err := s.persister.LoadDocument(ctx)
	if err != nil {
		s.canvas.reportPersistence(err)
		return err
	}
	s.Rehydrate(ctx, doc)
	return nil
}

// Import feeds document-shaped JSON (a file import) through the same
// rehydration path as a collaborator load. A malformed document is
// rejected without touching the already-loaded state.
func (s *Syncer) Import(ctx context.Context, data []byte) error {
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	s.Rehydrate(ctx, doc)
	return nil
}

// Rehydrate materializes a document into live items. Each persisted object
// is validated and its resource resolved; a per-object failure skips that
// object and continues — a single corrupt entry must never abort the rest.
// All items register with click routing and start unselected.
func (s *Syncer) Rehydrate(ctx context.Context, doc *Document) {
	items := make([]*Item, 0, len(doc.Objects))
	for i := range doc.Objects {
		obj := &doc.Objects[i]
		if err := obj.validate(); err != nil {
			logrus.WithField("object", obj.ID).WithError(err).Warn("skipping invalid object")
			continue
		}
		item := obj.toItem()
		if item.Type == ItemTypeImage {
			img, err := s.canvas.resolver.Resolve(ctx, item.SourceRef)
			if err != nil {
				logrus.WithField("object", obj.ID).WithError(err).Warn("skipping unresolvable image")
				continue
			}
			bounds := img.Bounds()
			item.Resolved = img
			item.NaturalW = float64(bounds.Dx())
			item.NaturalH = float64(bounds.Dy())
			item.Scale = item.clampScale(item.Scale)
		}
		items = append(items, item)
	}
	s.canvas.replaceAll(items, doc.ViewportPosition)
	logrus.WithFields(logrus.Fields{
		"objects": len(items),
		"skipped": len(doc.Objects) - len(items),
	}).Info("document loaded")
}

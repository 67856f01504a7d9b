package upload

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"credential-client/internal/apperr"
	"credential-client/internal/model"
	"credential-client/internal/schedule"
	"credential-client/internal/state"
	"github.com/google/uuid"
)

const (
	MaxFileSize = 16 << 20

	progressCeiling = 90
	progressTick    = 100 * time.Millisecond
)

var errSessionChanged = apperr.Invalid(apperr.CodeNotAuthenticated, "Session changed during upload")

var AllowedExtensions = []string{"pdf", "png", "jpg", "jpeg", "gif", "doc", "docx"}

// Extension returns the lowercased text after the last dot, or "" when there is none.
func Extension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Validate checks size first, then extension.
func Validate(name string, size int64) error {
	if size > MaxFileSize {
		return apperr.Invalid(apperr.CodeFileTooLarge, fmt.Sprintf("File size must be less than %dMB", MaxFileSize>>20))
	}
	ext := Extension(name)
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return apperr.Invalid(apperr.CodeUnsupportedType, "File type not supported. Allowed: "+strings.Join(AllowedExtensions, ", "))
}

type File struct {
	Name string
	Size int64
	Body io.Reader
}

type API interface {
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
}

type Notifier interface {
	Enqueue(message string, severity model.Severity) string
}

type Publisher interface {
	Publish(event string, body any)
}

// Pipeline pushes one file at a time to content storage and keeps the
// resulting reference in the shared state for the issuance step.
type Pipeline struct {
	api   API
	state *state.State
	notes Notifier
	sched schedule.Scheduler
	pub   Publisher

	mu      sync.Mutex
	current *model.UploadTask
	busy    bool
	rnd     *rand.Rand
}

func NewPipeline(api API, st *state.State, notes Notifier, sched schedule.Scheduler, pub Publisher) *Pipeline {
	return &Pipeline{
		api:   api,
		state: st,
		notes: notes,
		sched: sched,
		pub:   pub,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *Pipeline) Upload(ctx context.Context, f File) (model.UploadTask, error) {
	_, generation, ok := p.state.SessionGeneration()
	if !ok {
		err := apperr.Invalid(apperr.CodeNotAuthenticated, "Please log in first")
		p.notes.Enqueue(err.Error(), model.SeverityError)
		return model.UploadTask{}, err
	}

	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return model.UploadTask{}, apperr.ErrInFlight
	}
	p.busy = true
	p.current = &model.UploadTask{
		ID:        uuid.NewString(),
		FileName:  f.Name,
		SizeBytes: f.Size,
		Extension: Extension(f.Name),
		Status:    model.UploadValidating,
	}
	p.mu.Unlock()
	defer p.release()

	p.state.ClearPendingReference()

	if err := Validate(f.Name, f.Size); err != nil {
		p.finish(model.UploadFailed, "", err.Error())
		p.notes.Enqueue(err.Error(), model.SeverityError)
		return p.snapshot(), err
	}

	p.update(func(t *model.UploadTask) { t.Status = model.UploadUploading })
	ticker := p.sched.Every(progressTick, p.advance)
	ref, err := p.api.Upload(ctx, f.Name, f.Body)
	ticker.Cancel()

	if err != nil {
		msg := apperr.UserMessage(err, "Upload failed")
		if apperr.IsTransport(err) {
			log.Printf("upload: %s failed: %v", f.Name, err)
		} else {
			msg = "File upload failed: " + msg
		}
		p.finish(model.UploadFailed, "", msg)
		p.notes.Enqueue(msg, model.SeverityError)
		return p.snapshot(), err
	}

	if !p.state.SetPendingReferenceFor(generation, ref) {
		log.Printf("upload: %s finished after session change, reference dropped", f.Name)
		p.finish(model.UploadFailed, "", errSessionChanged.Error())
		return p.snapshot(), errSessionChanged
	}
	p.finish(model.UploadCompleted, ref, "")
	p.notes.Enqueue("File uploaded to IPFS successfully!", model.SeveritySuccess)
	return p.snapshot(), nil
}

// Current returns the most recent task, if any.
func (p *Pipeline) Current() (model.UploadTask, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return model.UploadTask{}, false
	}
	return *p.current, true
}

func (p *Pipeline) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy
}

// Reset forgets the last task; used on logout.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.busy {
		p.current = nil
	}
}

// advance bumps the displayed progress by a random step while the request is
// in flight. It never passes the ceiling and never goes backwards.
func (p *Pipeline) advance() {
	p.update(func(t *model.UploadTask) {
		if t.Status != model.UploadUploading || t.Progress >= progressCeiling {
			return
		}
		t.Progress += p.rnd.Intn(11)
		if t.Progress > progressCeiling {
			t.Progress = progressCeiling
		}
	})
}

func (p *Pipeline) finish(status model.UploadStatus, ref, errMsg string) {
	p.update(func(t *model.UploadTask) {
		t.Status = status
		t.ContentReference = ref
		t.Error = errMsg
		if status == model.UploadCompleted {
			t.Progress = 100
		}
	})
}

func (p *Pipeline) update(fn func(t *model.UploadTask)) {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return
	}
	fn(p.current)
	task := *p.current
	p.mu.Unlock()

	if p.pub != nil {
		p.pub.Publish("upload-progress", task)
	}
}

func (p *Pipeline) snapshot() model.UploadTask {
	task, _ := p.Current()
	return task
}

func (p *Pipeline) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.busy = false
}

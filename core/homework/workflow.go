package homework

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jferreira/maitrenotifie/core"
	"github.com/jferreira/maitrenotifie/core/roster"
)

// Screen identifies the active workflow screen. Exactly one is active
// at any time; Dashboard is both initial and terminal.
type Screen string

const (
	ScreenDashboard   Screen = "DASHBOARD"
	ScreenClassDetail Screen = "CLASS_DETAIL"
	ScreenScanning    Screen = "SCANNING"
	ScreenValidating  Screen = "VALIDATING"
	ScreenSending     Screen = "SENDING"
)

var (
	// ErrInvalidTransition rejects an event not defined for the
	// current screen. Rejected events never mutate state.
	ErrInvalidTransition = errors.New("operation not available on the current screen")
	// ErrBusy rejects an event while an exclusive operation
	// (extraction or send) is already in flight.
	ErrBusy = errors.New("an operation is already in progress")
	// ErrNoRecipients aborts a send when no student in the selected
	// class has a usable parent email.
	ErrNoRecipients = errors.New("no valid parent emails in this class")
)

// Draft is the in-progress, editable homework transcription. It is
// transient: created by extraction, mutated by teacher edits, and
// destroyed on send or cancel.
type Draft struct {
	HomeworkText string `json:"homeworkText"`
	Summary      string `json:"summary"`
}

// State is a read-only snapshot of the controller for the UI.
type State struct {
	Screen     Screen        `json:"screen"`
	Class      *roster.Class `json:"class,omitempty"`
	Draft      *Draft        `json:"draft,omitempty"`
	Processing bool          `json:"processing"`
}

// SendResult reports the outcome of a confirmed send. The workflow
// completes either way; only Sent and the message differ.
type SendResult struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// HomeworkEmail is the template payload for the parent notification.
type HomeworkEmail struct {
	ClassName    string
	HomeworkText string
	Summary      string
}

// Controller owns the workflow state: the active screen, the selected
// class, the in-flight draft and the captured image. One mutex guards
// it all; the two gateway calls happen outside the lock and re-check
// a generation counter before applying their result, so a response
// arriving after cancel can never corrupt newer state.
type Controller struct {
	roster    *roster.Service
	extractor core.ExtractionService
	mailer    core.EmailService
	logger    core.Logger

	mu         sync.Mutex
	screen     Screen
	classID    string
	draft      *Draft
	image      []byte
	processing bool
	sending    bool
	scanGen    uint64
}

func NewController(rosterSvc *roster.Service, extractor core.ExtractionService, mailer core.EmailService, logger core.Logger) *Controller {
	return &Controller{
		roster:    rosterSvc,
		extractor: extractor,
		mailer:    mailer,
		logger:    logger,
		screen:    ScreenDashboard,
	}
}

// State returns a snapshot of the controller. The selected class is
// resolved against the live roster so student mutations are reflected
// without an explicit refresh.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// snapshot must be called with the lock held.
func (c *Controller) snapshot() State {
	st := State{Screen: c.screen, Processing: c.processing}
	if c.classID != "" {
		if cls, err := c.roster.Get(c.classID); err == nil {
			st.Class = &cls
		}
	}
	if c.draft != nil {
		d := *c.draft
		st.Draft = &d
	}
	return st
}

// SelectClass moves Dashboard -> ClassDetail with the given class.
func (c *Controller) SelectClass(id string) (State, error) {
	cls, err := c.roster.Get(id)
	if err != nil {
		return c.State(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenDashboard {
		return c.snapshot(), ErrInvalidTransition
	}
	c.classID = cls.ID
	c.screen = ScreenClassDetail
	return c.snapshot(), nil
}

// Back moves ClassDetail -> Dashboard, clearing the selection.
func (c *Controller) Back() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenClassDetail {
		return c.snapshot(), ErrInvalidTransition
	}
	c.classID = ""
	c.screen = ScreenDashboard
	return c.snapshot(), nil
}

// StartScan moves ClassDetail -> Scanning.
func (c *Controller) StartScan() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenClassDetail {
		return c.snapshot(), ErrInvalidTransition
	}
	c.screen = ScreenScanning
	return c.snapshot(), nil
}

// Capture hands the image to the extraction gateway exactly once. On
// success the draft is populated and the screen moves to Validating;
// on failure the screen falls back to ClassDetail and the error is
// surfaced. The processing flag blocks re-submission and is cleared
// unconditionally. A result arriving after the scan was cancelled or
// superseded is discarded.
func (c *Controller) Capture(ctx context.Context, image []byte, mimeType string) (State, error) {
	c.mu.Lock()
	if c.screen != ScreenScanning {
		defer c.mu.Unlock()
		return c.snapshot(), ErrInvalidTransition
	}
	if c.processing {
		defer c.mu.Unlock()
		return c.snapshot(), ErrBusy
	}
	c.processing = true
	c.image = image
	gen := c.scanGen
	c.mu.Unlock()

	extract, err := c.extractor.Extract(ctx, image, mimeType)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.processing = false

	if gen != c.scanGen || c.screen != ScreenScanning {
		// the scan was cancelled while the call was in flight
		c.logger.Info("discarding stale extraction result")
		return c.snapshot(), nil
	}

	if err != nil {
		c.image = nil
		c.screen = ScreenClassDetail
		return c.snapshot(), err
	}

	c.draft = &Draft{HomeworkText: extract.HomeworkText, Summary: extract.Summary}
	c.screen = ScreenValidating
	return c.snapshot(), nil
}

// CancelScan moves Scanning -> ClassDetail, discarding any partial
// image. An extraction still in flight will find its generation stale
// and drop its result.
func (c *Controller) CancelScan() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenScanning {
		return c.snapshot(), ErrInvalidTransition
	}
	c.image = nil
	c.scanGen++
	c.screen = ScreenClassDetail
	return c.snapshot(), nil
}

// EditDraft replaces the draft's homework text; the summary is not editable.
func (c *Controller) EditDraft(text string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenValidating || c.draft == nil {
		return c.snapshot(), ErrInvalidTransition
	}
	c.draft.HomeworkText = text
	return c.snapshot(), nil
}

// CancelValidation moves Validating -> ClassDetail, discarding the
// draft and the captured image.
func (c *Controller) CancelValidation() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ScreenValidating {
		return c.snapshot(), ErrInvalidTransition
	}
	c.draft = nil
	c.image = nil
	c.scanGen++
	c.screen = ScreenClassDetail
	return c.snapshot(), nil
}

// Confirm sends the finalized homework to the parents of the selected
// class. An empty recipient set aborts before any gateway call and
// returns to ClassDetail. Otherwise the notification gateway is called
// once and — regardless of its reported outcome — the workflow
// completes: selection, draft and image are cleared and the screen
// returns to Dashboard. Only the result message differs.
func (c *Controller) Confirm(ctx context.Context) (SendResult, State, error) {
	c.mu.Lock()
	if c.sending {
		defer c.mu.Unlock()
		return SendResult{}, c.snapshot(), ErrBusy
	}
	if c.screen != ScreenValidating {
		defer c.mu.Unlock()
		return SendResult{}, c.snapshot(), ErrInvalidTransition
	}
	if c.classID == "" || c.draft == nil {
		defer c.mu.Unlock()
		return SendResult{}, c.snapshot(), ErrInvalidTransition
	}

	cls, err := c.roster.Get(c.classID)
	if err != nil {
		defer c.mu.Unlock()
		return SendResult{}, c.snapshot(), err
	}

	recipients := cls.Recipients()
	if len(recipients) == 0 {
		c.screen = ScreenClassDetail
		defer c.mu.Unlock()
		return SendResult{}, c.snapshot(), ErrNoRecipients
	}

	msg := &core.EmailMessage{
		To:           recipients,
		Subject:      fmt.Sprintf("Devoirs – %s", cls.Name),
		TemplateName: "homework",
		TemplateData: HomeworkEmail{
			ClassName:    cls.Name,
			HomeworkText: c.draft.HomeworkText,
			Summary:      c.draft.Summary,
		},
	}
	c.sending = true
	c.screen = ScreenSending
	c.mu.Unlock()

	sent := c.mailer.Send(ctx, msg)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
	c.classID = ""
	c.draft = nil
	c.image = nil
	c.scanGen++
	c.screen = ScreenDashboard

	res := SendResult{Sent: sent}
	if sent {
		res.Message = "Les devoirs ont été envoyés avec succès aux parents !"
	} else {
		c.logger.Warn(fmt.Sprintf("homework notification for %q was not delivered", cls.Name))
		res.Message = "L'envoi n'a pas pu être confirmé ; le suivi de la classe est terminé."
	}
	return res, c.snapshot(), nil
}

// Package conversation implements the WhatsApp checklist conversation
// engine: a state machine that walks one operator through one checklist,
// one task per turn, driven entirely by inbound webhook messages.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opsline/checkline/internal/interpret"
	"github.com/opsline/checkline/internal/models"
	"github.com/opsline/checkline/internal/notify"
	"github.com/opsline/checkline/internal/transport"
)

// DefaultExpiryWindow is how long a session stays answerable after start.
const DefaultExpiryWindow = 24 * time.Hour

// minAnswerConfidence is the floor below which an interpreted free-text
// reply is treated as unreadable and re-prompted instead of recorded.
const minAnswerConfidence = 60

// defaultPhotoRemarks is recorded when a bare photo arrives for a task with
// no prior answer.
const defaultPhotoRemarks = "See photo"

// ErrEmptyTemplate is returned when a conversation is started against a
// template with zero tasks. It surfaces to the dispatching caller, never to
// the operator.
var ErrEmptyTemplate = errors.New("conversation: template has no tasks")

// ErrActiveSession is returned when a conversation is started for a phone
// number that already has a live session on a different checklist. At most
// one live session exists per phone; the dispatcher retries after the
// current one completes or expires.
var ErrActiveSession = errors.New("conversation: phone already has a live session")

// Engine orchestrates checklist conversations. All session mutation goes
// through here; inbound processing for one phone number is serialized by a
// per-phone lock on top of row-conditional updates, so duplicate webhook
// deliveries can never double-advance a session.
type Engine struct {
	db        *gorm.DB
	transport transport.Transport
	interp    interpret.Interpreter
	notifier  notify.Notifier
	expiry    time.Duration

	mu         sync.Mutex
	phoneLocks map[string]*sync.Mutex
}

// EngineOpts holds parameters for creating an Engine.
type EngineOpts struct {
	DB           *gorm.DB
	Transport    transport.Transport
	Interpreter  interpret.Interpreter // optional; defaults to keyword rules
	Notifier     notify.Notifier       // optional; defaults to no-op
	ExpiryWindow time.Duration         // defaults to DefaultExpiryWindow
}

// NewEngine creates an Engine.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("conversation: db is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("conversation: transport is required")
	}
	interp := opts.Interpreter
	if interp == nil {
		interp = interpret.NewTwoTier(nil)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	expiry := opts.ExpiryWindow
	if expiry <= 0 {
		expiry = DefaultExpiryWindow
	}
	return &Engine{
		db:         opts.DB,
		transport:  opts.Transport,
		interp:     interp,
		notifier:   notifier,
		expiry:     expiry,
		phoneLocks: make(map[string]*sync.Mutex),
	}, nil
}

// phoneLock returns the serialization lock for a phone number.
func (e *Engine) phoneLock(phone string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.phoneLocks[phone]
	if !ok {
		l = &sync.Mutex{}
		e.phoneLocks[phone] = l
	}
	return l
}

// StartOpts holds parameters for starting a conversation.
type StartOpts struct {
	PhoneNumber  string
	AssignmentID *uint // optional back-reference to the dispatching assignment
	TemplateID   uint
	MachineID    uint
	OperatorID   uint
}

// Start begins a checklist conversation. Starting twice for the same
// assignment while the first session is live returns the existing session
// id unchanged, so retried dispatch triggers cannot fork the conversation.
// A phone number carries at most one live session: starting a different
// checklist while one is in flight returns ErrActiveSession.
func (e *Engine) Start(ctx context.Context, opts StartOpts) (uint, error) {
	lock := e.phoneLock(opts.PhoneNumber)
	lock.Lock()
	defer lock.Unlock()

	if opts.AssignmentID != nil {
		var existing models.ConversationSession
		err := e.db.Where("assignment_id = ? AND status IN ?", *opts.AssignmentID,
			[]string{models.SessionActive, models.SessionAwaitingConfirmation}).
			First(&existing).Error
		if err == nil {
			return existing.ID, nil
		}
		if err != gorm.ErrRecordNotFound {
			return 0, fmt.Errorf("conversation: check existing session: %w", err)
		}
	}

	var live models.ConversationSession
	err := e.db.Where("phone_number = ? AND status IN ?", opts.PhoneNumber,
		[]string{models.SessionActive, models.SessionAwaitingConfirmation}).
		Order("id DESC").First(&live).Error
	if err == nil {
		return 0, fmt.Errorf("%w (phone %s, session %d)", ErrActiveSession, opts.PhoneNumber, live.ID)
	}
	if err != gorm.ErrRecordNotFound {
		return 0, fmt.Errorf("conversation: check live session for %s: %w", opts.PhoneNumber, err)
	}

	tasks, err := e.templateTasks(opts.TemplateID)
	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, fmt.Errorf("%w (template %d)", ErrEmptyTemplate, opts.TemplateID)
	}

	now := time.Now()
	var session models.ConversationSession
	err = e.db.Transaction(func(tx *gorm.DB) error {
		submission := models.ChecklistSubmission{
			TemplateID: opts.TemplateID,
			MachineID:  opts.MachineID,
			OperatorID: opts.OperatorID,
			Status:     models.SubmissionPending,
		}
		if err := tx.Create(&submission).Error; err != nil {
			return fmt.Errorf("create submission: %w", err)
		}

		session = models.ConversationSession{
			PhoneNumber:      opts.PhoneNumber,
			AssignmentID:     opts.AssignmentID,
			SubmissionID:     submission.ID,
			TemplateID:       opts.TemplateID,
			MachineID:        opts.MachineID,
			OperatorID:       opts.OperatorID,
			Status:           models.SessionActive,
			CurrentTaskIndex: 0,
			TotalTasks:       len(tasks),
			LastMessageAt:    now,
			ExpiresAt:        now.Add(e.expiry),
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		if opts.AssignmentID != nil {
			if err := tx.Model(&models.ChecklistAssignment{}).
				Where("id = ?", *opts.AssignmentID).
				Updates(map[string]interface{}{
					"status":  models.AssignmentSent,
					"sent_at": now,
				}).Error; err != nil {
				return fmt.Errorf("mark assignment sent: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("conversation: start: %w", err)
	}

	log.Printf("conversation: session %d started [phone=%s template=%d tasks=%d]",
		session.ID, opts.PhoneNumber, opts.TemplateID, len(tasks))

	e.seedInterpreter(ctx, &session)

	first := tasks[0]
	question := formatQuestion(1, len(tasks), first.Name, first.Criteria)
	if err := e.transport.SendText(ctx, opts.PhoneNumber, question); err != nil {
		// The session is live; a reminder can recover a dropped first send.
		log.Printf("conversation: session %d: send first question: %v", session.ID, err)
	}

	return session.ID, nil
}

// StartAssignment dispatches an existing assignment: it resolves the
// operator's phone number and starts the conversation.
func (e *Engine) StartAssignment(ctx context.Context, assignmentID uint) (uint, error) {
	var assignment models.ChecklistAssignment
	if err := e.db.Preload("Operator").First(&assignment, assignmentID).Error; err != nil {
		return 0, fmt.Errorf("conversation: load assignment %d: %w", assignmentID, err)
	}
	return e.Start(ctx, StartOpts{
		PhoneNumber:  assignment.Operator.PhoneNumber,
		AssignmentID: &assignment.ID,
		TemplateID:   assignment.TemplateID,
		MachineID:    assignment.MachineID,
		OperatorID:   assignment.OperatorID,
	})
}

// Incoming is one normalized inbound operator message. ImageURL is set when
// the message carried media (already downloaded by the webhook layer).
type Incoming struct {
	PhoneNumber string
	Text        string
	ImageURL    string
}

// HandleIncoming processes one inbound message. A message from a phone with
// no live session gets a guidance notice and changes nothing; the expiry
// check runs before any status-based dispatch.
func (e *Engine) HandleIncoming(ctx context.Context, msg Incoming) error {
	lock := e.phoneLock(msg.PhoneNumber)
	lock.Lock()
	defer lock.Unlock()

	var session models.ConversationSession
	err := e.db.Where("phone_number = ? AND status IN ?", msg.PhoneNumber,
		[]string{models.SessionActive, models.SessionAwaitingConfirmation}).
		Order("id DESC").First(&session).Error
	if err == gorm.ErrRecordNotFound {
		e.sendText(ctx, msg.PhoneNumber, noticeNoActiveSession)
		return nil
	}
	if err != nil {
		return fmt.Errorf("conversation: lookup session for %s: %w", msg.PhoneNumber, err)
	}

	if time.Now().After(session.ExpiresAt) {
		return e.expireSession(ctx, &session, "timed out")
	}

	// Every processed inbound message counts as activity, including
	// replies that only trigger a re-prompt; idle reminders key off this.
	now := time.Now()
	if err := e.db.Model(&models.ConversationSession{}).
		Where("id = ?", session.ID).
		Update("last_message_at", now).Error; err != nil {
		return fmt.Errorf("conversation: touch session %d: %w", session.ID, err)
	}
	session.LastMessageAt = now

	if session.Status == models.SessionAwaitingConfirmation {
		return e.handleConfirmation(ctx, &session, msg)
	}
	return e.handleTaskAnswer(ctx, &session, msg)
}

// handleTaskAnswer records an answer to the current task and advances the
// conversation, or re-prompts without touching state when the reply is
// unreadable.
func (e *Engine) handleTaskAnswer(ctx context.Context, session *models.ConversationSession, msg Incoming) error {
	task, err := e.taskAt(session.TemplateID, session.CurrentTaskIndex)
	if err != nil {
		return err
	}

	var result, remarks string
	strict := parseStrict(msg.Text)
	switch {
	case strict.Kind == answerOK:
		result = "OK"

	case strict.Kind == answerNOK:
		result, remarks = "NOK", strict.Remarks

	case msg.ImageURL != "":
		// A bare photo supplements whatever answer this slot already has.
		if prior, ok := e.priorAnswer(session.ID, session.CurrentTaskIndex); ok {
			result, remarks = prior.Result, prior.Remarks
		} else {
			result, remarks = "NOK", defaultPhotoRemarks
		}

	default:
		names := e.contextNames(session)
		resp, err := e.interp.Interpret(ctx, interpret.Request{
			Message:    msg.Text,
			TaskName:   task.Name,
			Criteria:   task.Criteria,
			Checklist:  names.template,
			Machine:    names.machine,
			Operator:   names.operator,
			SessionKey: fmt.Sprintf("session-%d", session.ID),
		})
		if err != nil || resp == nil ||
			(resp.Status != interpret.StatusOK && resp.Status != interpret.StatusNOK) ||
			resp.Confidence < minAnswerConfidence {
			e.sendText(ctx, session.PhoneNumber, noticeInvalidAnswer)
			return nil
		}
		result, remarks = resp.Status, resp.Remarks
	}

	answer := models.SessionAnswer{
		SessionID: session.ID,
		TaskIndex: session.CurrentTaskIndex,
		TaskName:  task.Name,
		Result:    result,
		Remarks:   remarks,
		PhotoURL:  msg.ImageURL,
	}
	assignments := []string{"task_name", "result", "remarks", "updated_at"}
	if msg.ImageURL != "" {
		assignments = append(assignments, "photo_url")
	}
	if err := e.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "task_index"}},
		DoUpdates: clause.AssignmentColumns(assignments),
	}).Create(&answer).Error; err != nil {
		return fmt.Errorf("conversation: record answer: %w", err)
	}

	now := time.Now()
	lastTask := session.CurrentTaskIndex+1 == session.TotalTasks

	updates := map[string]interface{}{
		"current_task_index": session.CurrentTaskIndex + 1,
		"last_message_at":    now,
	}
	if lastTask {
		updates["status"] = models.SessionAwaitingConfirmation
	}
	// Conditional on the index we read: a racing duplicate delivery loses
	// here instead of advancing the session twice.
	res := e.db.Model(&models.ConversationSession{}).
		Where("id = ? AND status = ? AND current_task_index = ?",
			session.ID, models.SessionActive, session.CurrentTaskIndex).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("conversation: advance session %d: %w", session.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		log.Printf("conversation: session %d: concurrent advance detected, dropping duplicate", session.ID)
		return nil
	}

	if lastTask {
		return e.sendSummary(ctx, session)
	}

	next, err := e.taskAt(session.TemplateID, session.CurrentTaskIndex+1)
	if err != nil {
		return err
	}
	question := formatQuestion(session.CurrentTaskIndex+2, session.TotalTasks, next.Name, next.Criteria)
	e.sendText(ctx, session.PhoneNumber, question)
	return nil
}

// sendSummary sends the confirmation summary listing every answer.
func (e *Engine) sendSummary(ctx context.Context, session *models.ConversationSession) error {
	answers, err := e.sessionAnswers(session.ID)
	if err != nil {
		return err
	}
	names := e.contextNames(session)
	e.sendText(ctx, session.PhoneNumber, formatSummary(names.template, names.machine, answers))
	return nil
}

// handleConfirmation processes a reply in the awaiting-confirmation state.
func (e *Engine) handleConfirmation(ctx context.Context, session *models.ConversationSession, msg Incoming) error {
	switch parseConfirmation(msg.Text) {
	case confirmYes:
		return e.finalize(ctx, session)

	case confirmNo:
		res := e.db.Model(&models.ConversationSession{}).
			Where("id = ? AND status = ?", session.ID, models.SessionAwaitingConfirmation).
			Update("status", models.SessionExpired)
		if res.Error != nil {
			return fmt.Errorf("conversation: cancel session %d: %w", session.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		log.Printf("conversation: session %d cancelled by operator", session.ID)
		e.sendText(ctx, session.PhoneNumber, noticeCancelled)
		names := e.contextNames(session)
		e.notifier.Notify(ctx, notify.Event{
			Title:    fmt.Sprintf("Checklist cancelled: %s on %s", names.template, names.machine),
			Body:     fmt.Sprintf("%s cancelled at the confirmation step. The assignment needs follow-up.", names.operator),
			Severity: notify.SeverityWarning,
		})
		return nil

	default:
		e.sendText(ctx, session.PhoneNumber, confirmInstructions)
		return nil
	}
}

// finalize applies the confirmed submission as a single unit of work: the
// submission, its task rows, the session, and the originating assignment
// all land together or not at all.
func (e *Engine) finalize(ctx context.Context, session *models.ConversationSession) error {
	answers, err := e.sessionAnswers(session.ID)
	if err != nil {
		return err
	}

	now := time.Now()
	err = e.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ConversationSession{}).
			Where("id = ? AND status = ?", session.ID, models.SessionAwaitingConfirmation).
			Updates(map[string]interface{}{
				"status":       models.SessionCompleted,
				"completed_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("complete session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("session %d is no longer awaiting confirmation", session.ID)
		}

		if err := tx.Model(&models.ChecklistSubmission{}).
			Where("id = ?", session.SubmissionID).
			Updates(map[string]interface{}{
				"status":       models.SubmissionCompleted,
				"submitted_at": now,
			}).Error; err != nil {
			return fmt.Errorf("complete submission: %w", err)
		}

		rows := make([]models.SubmissionTask, len(answers))
		for i, a := range answers {
			rows[i] = models.SubmissionTask{
				SubmissionID: session.SubmissionID,
				Position:     a.TaskIndex,
				TaskName:     a.TaskName,
				Result:       a.Result,
				Remarks:      a.Remarks,
				PhotoURL:     a.PhotoURL,
			}
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("persist submission tasks: %w", err)
			}
		}

		if session.AssignmentID != nil {
			if err := tx.Model(&models.ChecklistAssignment{}).
				Where("id = ?", *session.AssignmentID).
				Updates(map[string]interface{}{
					"status":       models.AssignmentCompleted,
					"responded_at": now,
				}).Error; err != nil {
				return fmt.Errorf("complete assignment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("conversation: finalize session %d: %w", session.ID, err)
	}

	log.Printf("conversation: session %d finalized [submission=%d answers=%d]",
		session.ID, session.SubmissionID, len(answers))
	e.sendText(ctx, session.PhoneNumber, noticeSubmitted)

	names := e.contextNames(session)
	var nok []string
	for _, a := range answers {
		if a.Result == "NOK" {
			nok = append(nok, a.TaskName)
		}
	}
	event := notify.Event{
		Title:    fmt.Sprintf("Checklist completed: %s on %s", names.template, names.machine),
		Body:     fmt.Sprintf("Submitted by %s. All %d tasks passed.", names.operator, len(answers)),
		Severity: notify.SeveritySuccess,
	}
	if len(nok) > 0 {
		event.Body = fmt.Sprintf("Submitted by %s. %d of %d tasks failed: %s.",
			names.operator, len(nok), len(answers), joinNames(nok))
		event.Severity = notify.SeverityWarning
	}
	e.notifier.Notify(ctx, event)
	return nil
}

// Remind re-sends the current question with reminder framing. Sessions not
// in the active state are reported as non-applicable.
func (e *Engine) Remind(ctx context.Context, sessionID uint) error {
	var session models.ConversationSession
	if err := e.db.First(&session, sessionID).Error; err != nil {
		return fmt.Errorf("conversation: load session %d: %w", sessionID, err)
	}
	if session.Status != models.SessionActive {
		return fmt.Errorf("conversation: session %d is %s, not active", sessionID, session.Status)
	}
	task, err := e.taskAt(session.TemplateID, session.CurrentTaskIndex)
	if err != nil {
		return err
	}
	question := formatQuestion(session.CurrentTaskIndex+1, session.TotalTasks, task.Name, task.Criteria)
	if err := e.transport.SendText(ctx, session.PhoneNumber, formatReminder(question)); err != nil {
		return fmt.Errorf("conversation: remind session %d: %w", sessionID, err)
	}
	return nil
}

// expireSession transitions a session to expired, tells the operator, and
// flags the supervisor. Answers are discarded; the assignment is left for
// human follow-up.
func (e *Engine) expireSession(ctx context.Context, session *models.ConversationSession, reason string) error {
	res := e.db.Model(&models.ConversationSession{}).
		Where("id = ? AND status IN ?", session.ID,
			[]string{models.SessionActive, models.SessionAwaitingConfirmation}).
		Update("status", models.SessionExpired)
	if res.Error != nil {
		return fmt.Errorf("conversation: expire session %d: %w", session.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}
	log.Printf("conversation: session %d expired (%s)", session.ID, reason)
	e.sendText(ctx, session.PhoneNumber, noticeExpired)
	names := e.contextNames(session)
	e.notifier.Notify(ctx, notify.Event{
		Title:    fmt.Sprintf("Checklist expired: %s on %s", names.template, names.machine),
		Body:     fmt.Sprintf("Session for %s %s before completion. The assignment needs follow-up.", names.operator, reason),
		Severity: notify.SeverityWarning,
	})
	return nil
}

// seedInterpreter gives the AI tier conversational context before the first
// question. Best-effort: a failed seed never blocks the conversation.
func (e *Engine) seedInterpreter(ctx context.Context, session *models.ConversationSession) {
	seeder, ok := e.interp.(interpret.SessionSeeder)
	if !ok {
		return
	}
	names := e.contextNames(session)
	seed := fmt.Sprintf(
		"A maintenance checklist conversation is starting. Checklist: %s. Machine: %s. Operator: %s. %d tasks will be answered one at a time.",
		names.template, names.machine, names.operator, session.TotalTasks)
	if err := seeder.SeedSession(ctx, fmt.Sprintf("session-%d", session.ID), seed); err != nil {
		log.Printf("conversation: session %d: seed interpreter: %v", session.ID, err)
	}
}

// --- lookups ---

// templateTasks loads a template's tasks ordered by position.
func (e *Engine) templateTasks(templateID uint) ([]models.TemplateTask, error) {
	var tasks []models.TemplateTask
	if err := e.db.Where("template_id = ?", templateID).
		Order("position").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("conversation: load tasks for template %d: %w", templateID, err)
	}
	return tasks, nil
}

// taskAt loads one template task by position.
func (e *Engine) taskAt(templateID uint, position int) (*models.TemplateTask, error) {
	var task models.TemplateTask
	if err := e.db.Where("template_id = ? AND position = ?", templateID, position).
		First(&task).Error; err != nil {
		return nil, fmt.Errorf("conversation: task %d of template %d: %w", position, templateID, err)
	}
	return &task, nil
}

// priorAnswer returns the recorded answer for a task slot, if any.
func (e *Engine) priorAnswer(sessionID uint, taskIndex int) (*models.SessionAnswer, bool) {
	var answer models.SessionAnswer
	err := e.db.Where("session_id = ? AND task_index = ?", sessionID, taskIndex).
		First(&answer).Error
	if err != nil {
		return nil, false
	}
	return &answer, true
}

// sessionAnswers loads all recorded answers ordered by task index.
func (e *Engine) sessionAnswers(sessionID uint) ([]models.SessionAnswer, error) {
	var answers []models.SessionAnswer
	if err := e.db.Where("session_id = ?", sessionID).
		Order("task_index").Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("conversation: load answers for session %d: %w", sessionID, err)
	}
	return answers, nil
}

// names holds denormalized display names for a session's context.
type names struct {
	template string
	machine  string
	operator string
}

// contextNames resolves display names, tolerating missing rows.
func (e *Engine) contextNames(session *models.ConversationSession) names {
	var n names
	var template models.ChecklistTemplate
	if err := e.db.First(&template, session.TemplateID).Error; err == nil {
		n.template = template.Name
	}
	var machine models.Machine
	if err := e.db.First(&machine, session.MachineID).Error; err == nil {
		n.machine = machine.Name
	}
	var operator models.Operator
	if err := e.db.First(&operator, session.OperatorID).Error; err == nil {
		n.operator = operator.Name
	}
	return n
}

// sendText sends an operator-facing message, logging failures. Transport
// failure never aborts conversation processing.
func (e *Engine) sendText(ctx context.Context, phone, text string) {
	if err := e.transport.SendText(ctx, phone, text); err != nil {
		log.Printf("conversation: send to %s: %v", phone, err)
	}
}

// joinNames joins task names for a notification body.
func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/todo-chat-demo/domain/apperror"
	convdomain "github.com/example/todo-chat-demo/domain/conversation"
	domain "github.com/example/todo-chat-demo/domain/task"
	"github.com/example/todo-chat-demo/modules/task"
)

// Intent is the classified meaning of a chat message.
type Intent string

const (
	IntentHelp     Intent = "help"
	IntentAdd      Intent = "add"
	IntentList     Intent = "list"
	IntentStats    Intent = "stats"
	IntentComplete Intent = "complete"
	IntentDelete   Intent = "delete"
	IntentFallback Intent = "fallback"
)

// HelpText lists the supported commands.
const HelpText = `Commands:
  add <task title>               add a task
  list [all|pending|completed]   show tasks
  complete <id or title>         mark a task as done
  delete <id or title>           delete a task (alias: remove)
  stats                          count your tasks
  help                           show this message`

const (
	replyNotFound      = "Task not found."
	replyNoTasks       = "No tasks."
	replyAddUsage      = "Usage: add <task title>"
	replyCompleteUsage = "Usage: complete <id or title>"
	replyDeleteUsage   = "Usage: delete <id or title>"
)

// TurnLoader returns at most limit of the latest turns of the current
// conversation, oldest first. The current user message is already included.
type TurnLoader func(ctx context.Context, limit int) ([]*convdomain.Turn, error)

// Result is the outcome of dispatching one message.
type Result struct {
	Intent   Intent
	Reply    string
	Fallback *Fallback
}

type intentHandler func(d *Dispatcher, ctx context.Context, userID, arg string) (string, error)

type intentRule struct {
	intent  Intent
	pattern *regexp.Regexp
	handle  intentHandler
}

// intentRules is evaluated in order and the first match wins.
var intentRules = []intentRule{
	{IntentHelp, regexp.MustCompile(`(?i)^(?:help|\?)$`), (*Dispatcher).help},
	{IntentAdd, regexp.MustCompile(`(?is)^add(?:\s+(.*))?$`), (*Dispatcher).add},
	{IntentList, regexp.MustCompile(`(?i)^list(?:\s+(\S+))?$`), (*Dispatcher).list},
	{IntentStats, regexp.MustCompile(`(?i)^stats$`), (*Dispatcher).stats},
	{IntentComplete, regexp.MustCompile(`(?is)^complete(?:\s+(.*))?$`), (*Dispatcher).complete},
	{IntentDelete, regexp.MustCompile(`(?is)^(?:delete|remove)(?:\s+(.*))?$`), (*Dispatcher).delete},
}

// Dispatcher turns a chat message into a task operation and a reply.
type Dispatcher struct {
	tasks    task.TaskPort
	fallback Responder
}

// NewDispatcher creates a Dispatcher. A nil fallback uses StaticResponder.
func NewDispatcher(tasks task.TaskPort, fallback Responder) *Dispatcher {
	if fallback == nil {
		fallback = StaticResponder{}
	}
	return &Dispatcher{tasks: tasks, fallback: fallback}
}

// Classify returns the intent of message and its argument text.
func Classify(message string) (Intent, string) {
	_, intent, arg := match(message)
	return intent, arg
}

func match(message string) (*intentRule, Intent, string) {
	message = strings.TrimSpace(message)
	for i := range intentRules {
		rule := &intentRules[i]
		if m := rule.pattern.FindStringSubmatch(message); m != nil {
			arg := ""
			if len(m) > 1 {
				arg = strings.TrimSpace(m[1])
			}
			return rule, rule.intent, arg
		}
	}
	return nil, IntentFallback, ""
}

// Dispatch handles one message for userID. Validation and not-found outcomes
// become replies; only persistence failures are returned as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, message string, recent TurnLoader) (Result, error) {
	rule, intent, arg := match(message)
	if rule == nil {
		fb := d.fallback.Respond(ctx, message, recent)
		return Result{Intent: IntentFallback, Reply: fb.Text, Fallback: &fb}, nil
	}

	reply, err := rule.handle(d, ctx, userID, arg)
	if err != nil {
		return Result{Intent: intent}, err
	}
	return Result{Intent: intent, Reply: reply}, nil
}

func (d *Dispatcher) help(_ context.Context, _, _ string) (string, error) {
	return HelpText, nil
}

func (d *Dispatcher) add(ctx context.Context, userID, title string) (string, error) {
	if title == "" {
		return replyAddUsage, nil
	}
	t, err := d.tasks.CreateTask(ctx, &task.CreateTaskRequest{UserID: userID, Title: title})
	if err != nil {
		if apperror.IsValidation(err) {
			return replyAddUsage, nil
		}
		return "", err
	}
	return fmt.Sprintf("Added task (%d): %s", t.ID, t.Title), nil
}

func (d *Dispatcher) list(ctx context.Context, userID, status string) (string, error) {
	filter, err := domain.ParseFilter(status)
	if err != nil {
		return fmt.Sprintf("Unknown status %q. Use: list [all|pending|completed]", status), nil
	}
	tasks, err := d.tasks.ListTasks(ctx, userID, filter)
	if err != nil {
		if apperror.IsValidation(err) {
			return fmt.Sprintf("Unknown status %q. Use: list [all|pending|completed]", status), nil
		}
		return "", err
	}
	return FormatTaskList(tasks), nil
}

func (d *Dispatcher) stats(ctx context.Context, userID, _ string) (string, error) {
	stats, err := d.tasks.TaskStats(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Total: %d\nPending: %d\nCompleted: %d", stats.Total, stats.Pending, stats.Completed), nil
}

func (d *Dispatcher) complete(ctx context.Context, userID, ref string) (string, error) {
	if ref == "" {
		return replyCompleteUsage, nil
	}
	t, err := d.resolve(ctx, userID, ref)
	if err != nil {
		return notFoundReply(err)
	}

	done := true
	t, err = d.tasks.SetCompleted(ctx, userID, t.ID, &done)
	if err != nil {
		return notFoundReply(err)
	}
	return fmt.Sprintf("Completed task (%d): %s", t.ID, t.Title), nil
}

func (d *Dispatcher) delete(ctx context.Context, userID, ref string) (string, error) {
	if ref == "" {
		return replyDeleteUsage, nil
	}
	t, err := d.resolve(ctx, userID, ref)
	if err != nil {
		return notFoundReply(err)
	}

	deleted, err := d.tasks.DeleteTask(ctx, userID, t.ID)
	if err != nil {
		return "", err
	}
	if !deleted {
		return replyNotFound, nil
	}
	return fmt.Sprintf("Deleted task (%d): %s", t.ID, t.Title), nil
}

// resolve treats a numeric reference as an id and anything else as a title.
func (d *Dispatcher) resolve(ctx context.Context, userID, ref string) (*domain.Task, error) {
	if id, err := strconv.ParseInt(strings.TrimPrefix(ref, "#"), 10, 64); err == nil {
		return d.tasks.GetTask(ctx, userID, id)
	}
	return d.tasks.FindTaskByTitle(ctx, userID, ref)
}

func notFoundReply(err error) (string, error) {
	if errors.Is(err, domain.ErrNotFound) || apperror.IsValidation(err) {
		return replyNotFound, nil
	}
	return "", err
}

// FormatTaskList renders tasks as a checklist, one line per task.
func FormatTaskList(tasks []*domain.Task) string {
	if len(tasks) == 0 {
		return replyNoTasks
	}
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		box := "[ ]"
		if t.Completed {
			box = "[x]"
		}
		lines = append(lines, fmt.Sprintf("%s (%d) %s", box, t.ID, t.Title))
	}
	return strings.Join(lines, "\n")
}

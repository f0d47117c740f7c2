// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"taskflow/internal/service"
)

// TimeLayout is used for task timestamps.
const TimeLayout = "2006-01-02 15:04"

// FormatTask formats a task line in a numbered list.
// Format: "{N:>4}  [x] {TITLE}  ({CATEGORY})\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s %s  (%s)\n", num, checkbox(task.Status), normalizeTitle(task.Title), category(task.Category))
}

// FormatTaskID formats a task line keyed by id, for views whose positions
// are not valid task numbers.
// Format: "{ID}  [x] {TITLE}  ({CATEGORY})\n"
func FormatTaskID(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "%s  %s %s  (%s)\n", task.ID, checkbox(task.Status), normalizeTitle(task.Title), category(task.Category))
}

// FormatTaskDetail prints every field of a task, one per line.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "id:          %s\n", task.ID)
	fmt.Fprintf(w, "title:       %s\n", normalizeTitle(task.Title))
	if d := strings.TrimSpace(task.Description); d != "" {
		fmt.Fprintf(w, "description: %s\n", oneLine(d))
	}
	fmt.Fprintf(w, "category:    %s\n", category(task.Category))
	fmt.Fprintf(w, "status:      %s\n", status(task.Status))
	if t := timestamp(task.CreatedAt); t != "" {
		fmt.Fprintf(w, "created:     %s\n", t)
	}
	if t := timestamp(task.UpdatedAt); t != "" && !task.UpdatedAt.Equal(task.CreatedAt) {
		fmt.Fprintf(w, "updated:     %s\n", t)
	}
}

// FormatSession prints who is signed in.
func FormatSession(w io.Writer, sess service.Session) {
	name := sess.DisplayName()
	if sess.User.Email != "" && name != sess.User.Email {
		fmt.Fprintf(w, "%s <%s>\n", name, sess.User.Email)
		return
	}
	fmt.Fprintln(w, name)
}

// FormatSummary prints "N tasks, P pending, C completed".
func FormatSummary(w io.Writer, tasks []service.Task) {
	pending := 0
	for _, t := range tasks {
		if t.Status != service.StatusCompleted {
			pending++
		}
	}
	noun := "tasks"
	if len(tasks) == 1 {
		noun = "task"
	}
	fmt.Fprintf(w, "%d %s, %d pending, %d completed\n", len(tasks), noun, pending, len(tasks)-pending)
}

func checkbox(s service.Status) string {
	if s == service.StatusCompleted {
		return "[x]"
	}
	return "[ ]"
}

func status(s service.Status) string {
	if s == "" {
		return string(service.StatusPending)
	}
	return string(s)
}

func category(c service.Category) string {
	if c == "" {
		return "-"
	}
	return string(c)
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = oneLine(title)
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.ReplaceAll(s, "\n", " ")
}

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heth-labs/voicegate/pkg/gateway/cache"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/adapters/brave"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/adapters/gcal"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/adapters/gmail"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/adapters/toodledo"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/adapters/wttr"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/bridge"
	"github.com/heth-labs/voicegate/pkg/gateway/tools/memory"
)

// Deps are the backends the catalog executes against. Any member may be nil
// or unconfigured; the affected tools then return a spoken-friendly error
// string instead of failing the call.
type Deps struct {
	Cache     *cache.Reader
	Tasks     *toodledo.Client
	Calendar  *gcal.Client
	MailHenry *gmail.Client
	MailPaul  *gmail.Client
	Web       *brave.Client
	Weather   *wttr.Client
	Memory    *memory.Store
	Bridge    *bridge.Bridge

	// ForwardDefault receives forwarded email when no address is given.
	ForwardDefault string
	// HenryContext is the Toodledo context ID tasks are delegated into.
	HenryContext int64

	Now    func() time.Time
	Logger *slog.Logger
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Deps) warn(msg string, args ...any) {
	if d.Logger != nil {
		d.Logger.Warn(msg, args...)
	}
}

// BuildRegistry wires every catalog tool to its backend and validates that
// the registry covers the catalog exactly.
func BuildRegistry(d *Deps) (*Registry, error) {
	if d == nil {
		d = &Deps{}
	}
	r := NewRegistry(d.Logger,
		Executor{Name: NameCheckWeather, Timeout: 10 * time.Second, Run: d.checkWeather},
		Executor{Name: NameCheckCalendar, Timeout: 15 * time.Second, Run: d.checkCalendar},
		Executor{Name: NameGetEventDetails, Timeout: 15 * time.Second, Run: d.getEventDetails},
		Executor{Name: NameTasksDue, Timeout: 15 * time.Second, Run: d.tasksDue},
		Executor{Name: NameGetBriefing, Timeout: 10 * time.Second, Run: d.getBriefing},
		Executor{Name: NameGetTelegramContext, Timeout: 5 * time.Second, Run: d.telegramContext},
		Executor{Name: NameSearchTasks, Timeout: 20 * time.Second, Run: d.searchTasks},
		Executor{Name: NameTriageTasks, Timeout: 45 * time.Second, Run: d.triageTasks},
		Executor{Name: NameDeferTask, Timeout: 20 * time.Second, Run: d.deferTask},
		Executor{Name: NameMarkObsolete, Timeout: 20 * time.Second, Run: d.markObsolete},
		Executor{Name: NameCompleteTask, Timeout: 20 * time.Second, Run: d.completeTask},
		Executor{Name: NameSetPriority, Timeout: 20 * time.Second, Run: d.setPriority},
		Executor{Name: NameScheduleTask, Timeout: 20 * time.Second, Run: d.scheduleTask},
		Executor{Name: NameDelegateTask, Timeout: 20 * time.Second, Run: d.delegateTask},
		Executor{Name: NameMarkTriaged, Timeout: 20 * time.Second, Run: d.markTriaged},
		Executor{Name: NameGetTask, Timeout: 15 * time.Second, Run: d.getTask},
		Executor{Name: NameAddTask, Timeout: 20 * time.Second, Run: d.addTask},
		Executor{Name: NameUpdateTaskNote, Timeout: 20 * time.Second, Run: d.updateTaskNote},
		Executor{Name: NameCreateCalendarEvent, Timeout: 20 * time.Second, Run: d.createEvent},
		Executor{Name: NameUpdateCalendarEvent, Timeout: 25 * time.Second, Run: d.updateEvent},
		Executor{Name: NameDeleteCalendarEvent, Timeout: 25 * time.Second, Run: d.deleteEvent},
		Executor{Name: NameReadEmail, Timeout: 25 * time.Second, Run: d.readEmail},
		Executor{Name: NameReadFullEmail, Timeout: 20 * time.Second, Run: d.readFullEmail},
		Executor{Name: NameForwardEmail, Timeout: 25 * time.Second, Run: d.forwardEmail},
		Executor{Name: NameWriteMemory, Timeout: 5 * time.Second, Run: d.writeMemory},
		Executor{Name: NameSearchMemory, Timeout: 10 * time.Second, Run: d.searchMemory},
		Executor{Name: NameSendToClawdbot, Timeout: 5 * time.Second, Run: d.sendToClawdbot},
		Executor{Name: NameSearchWeb, Timeout: 15 * time.Second, Run: d.searchWeb},
	)
	if err := r.ValidateCatalog(); err != nil {
		return nil, err
	}
	return r, nil
}

// --- cache-first reads ---

func (d *Deps) checkWeather(ctx context.Context, args Args) (string, error) {
	if snap := d.Cache.Read(); snap != nil && snap.VoiceSummaries.Weather != "" {
		return snap.VoiceSummaries.Weather, nil
	}
	if d.Weather == nil {
		return "", fmt.Errorf("no cached weather and no live weather source configured")
	}
	line, err := d.Weather.Current(ctx)
	if err != nil {
		return "", err
	}
	return "Live weather: " + line, nil
}

func (d *Deps) checkCalendar(ctx context.Context, args Args) (string, error) {
	if snap := d.Cache.Read(); snap != nil {
		cal := snap.VoiceSummaries.Calendar
		if cal.Today != "" || cal.Tomorrow != "" {
			var b strings.Builder
			if cal.Today != "" {
				b.WriteString("Today: " + cal.Today)
			}
			if cal.Tomorrow != "" {
				if b.Len() > 0 {
					b.WriteString("\n")
				}
				b.WriteString("Tomorrow: " + cal.Tomorrow)
			}
			return b.String(), nil
		}
	}
	events, err := d.Calendar.Events(ctx, startOfDay(d.now()), 2, "")
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "No events today or tomorrow.", nil
	}
	return formatEvents(events), nil
}

func (d *Deps) getEventDetails(ctx context.Context, args Args) (string, error) {
	query := args.String("query")
	if query == "" {
		return "", fmt.Errorf("missing event query")
	}
	if snap := d.Cache.Read(); snap != nil {
		needle := strings.ToLower(query)
		for _, ev := range snap.Data.Calendar.EventsWithDetails {
			if strings.Contains(strings.ToLower(ev.Summary), needle) {
				return formatEventDetail(ev), nil
			}
		}
	}
	events, err := d.Calendar.Events(ctx, startOfDay(d.now()), 30, query)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return fmt.Sprintf("No event matching %q found.", query), nil
	}
	ev := events[0]
	detail := cache.EventDetail{
		Summary:     ev.Summary,
		Location:    ev.Location,
		Description: ev.Description,
	}
	if ev.Start != nil {
		detail.Start = ev.Start.DateTime
		if detail.Start == "" {
			detail.Start = ev.Start.Date
		}
	}
	if len(ev.Attendees) > 0 {
		names := make([]string, 0, len(ev.Attendees))
		for _, a := range ev.Attendees {
			if a.DisplayName != "" {
				names = append(names, a.DisplayName)
			} else {
				names = append(names, a.Email)
			}
		}
		detail.Attendees = strings.Join(names, ", ")
	}
	return formatEventDetail(detail) + "\nEvent ID: " + ev.ID, nil
}

func (d *Deps) tasksDue(ctx context.Context, args Args) (string, error) {
	if snap := d.Cache.Read(); snap != nil && snap.VoiceSummaries.Tasks != "" {
		return snap.VoiceSummaries.Tasks, nil
	}
	tasks, err := d.Tasks.Search(ctx, "")
	if err != nil {
		return "", err
	}
	horizon := d.now().AddDate(0, 0, 7).Unix()
	var due []toodledo.Task
	for _, task := range tasks {
		if task.DueDate > 0 && task.DueDate <= horizon {
			due = append(due, task)
		}
	}
	if len(due) == 0 {
		return "Nothing due in the next week.", nil
	}
	return formatTasks(due), nil
}

func (d *Deps) getBriefing(ctx context.Context, args Args) (string, error) {
	snap := d.Cache.Read()
	if snap == nil {
		return "", fmt.Errorf("briefing cache is missing or stale; ask for weather, calendar, or tasks individually")
	}
	vs := snap.VoiceSummaries
	sections := []struct{ label, text string }{
		{"Weather", vs.Weather},
		{"Today", vs.Calendar.Today},
		{"Tomorrow", vs.Calendar.Tomorrow},
		{"Tasks", vs.Tasks},
		{"Emails", vs.Emails},
		{"School", vs.SchoolEmails},
		{"Sitting", vs.Sitting},
		{"Screen time", vs.ScreenTime},
	}
	var b strings.Builder
	for _, s := range sections {
		if s.text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.label + ": " + s.text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("briefing cache has no content")
	}
	return b.String(), nil
}

func (d *Deps) telegramContext(ctx context.Context, args Args) (string, error) {
	if d.Bridge == nil {
		return "", fmt.Errorf("telegram log is not configured")
	}
	limit := args.IntOr("max_messages", 20)
	messages, err := d.Bridge.RecentMessages(24*time.Hour, limit)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "No Telegram messages in the last day.", nil
	}
	var b strings.Builder
	for _, m := range messages {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s: %s", m.Timestamp.Format("15:04"), m.From, m.Text)
	}
	return b.String(), nil
}

// --- live task reads ---

func (d *Deps) searchTasks(ctx context.Context, args Args) (string, error) {
	query := args.String("query")
	if query == "" {
		return "", fmt.Errorf("missing search query")
	}
	tasks, err := d.Tasks.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return fmt.Sprintf("No tasks matching %q.", query), nil
	}
	return formatTasks(tasks), nil
}

func (d *Deps) triageTasks(ctx context.Context, args Args) (string, error) {
	count := args.IntOr("count", 10)
	tasks, err := d.Tasks.Triage(ctx, count)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "Nothing left to triage.", nil
	}
	return "Triage candidates, oldest first:\n" + formatTasks(tasks), nil
}

func (d *Deps) getTask(ctx context.Context, args Args) (string, error) {
	id, ok := argTaskID(args)
	if !ok {
		return "", fmt.Errorf("missing task_id")
	}
	task, err := d.Tasks.Get(ctx, id)
	if err != nil {
		return "", err
	}
	out := formatTask(*task)
	if task.Note != "" {
		out += "\nNotes:\n" + task.Note
	}
	return out, nil
}

// --- live task writes ---

func (d *Deps) deferTask(ctx context.Context, args Args) (string, error) {
	id, ok := argTaskID(args)
	if !ok {
		return "", fmt.Errorf("missing task_id")
	}
	task, err := d.Tasks.Get(ctx, id)
	if err != nil {
		return "", err
	}
	noDue := int64(0)
	tag := toodledo.MergeTags(task.Tag, "Deferred")
	if err := d.Tasks.Edit(ctx, id, toodledo.Fields{DueDate: &noDue, Tag: &tag}); err != nil {
		return "", err
	}
	if reason := args.String("reason"); reason != "" {
		if err := d.Tasks.AppendNote(ctx, id, "Deferred: "+reason, AttributionLabel); err != nil {
			d.warn("defer reason note failed", "task_id", id, "error", err)
		}
	}
	return fmt.Sprintf("Deferred %q to someday.", task.Title), nil
}

func (d *Deps) markObsolete(ctx context.Context, args Args) (string, error) {
	id, ok := argTaskID(args)
	if !ok {
		return "", fmt.Errorf("missing task_id")
	}
	task, err := d.Tasks.Get(ctx, id)
	if err != nil {
		return "", err
	}
	done := d.now().Unix()
	tag := toodledo.MergeTags(task.Tag, "obsolete")
	if err := d.Tasks.Edit(ctx, id, toodledo.Fields{Completed: &done, Tag: &tag}); err != nil {
		return "", err
	}
	if reason := args.String("reason"); reason != "" {
		if err := d.Tasks.AppendNote(ctx, id, "Obsolete: "+reason, AttributionLabel); err != nil {
			d.warn("obsolete reason note failed", "task_id", id, "error", err)
		}
	}
	return fmt.Sprintf("Marked %q obsolete.", task.Title), nil
}

func (d *Deps) completeTask(ctx context.Context, args Args) (string, error) {
	id, ok := argTaskID(args)
	if !ok {
		return "", fmt.Errorf("missing task_id")
	}
	task, err := d.Tasks.Get(ctx, id)
	if err != nil {
		return "", err
	}
	done := d.now().Unix()
	if err := d.Tasks.Edit(ctx, id, toodledo.Fields{Completed: &done}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Completed %q.", task.Title), nil
}

func (d *Deps) setPriority(ctx context.Context, args Args) (string, error) {
	id, ok := argTaskID(args)
	if !ok {
		return "", fmt.Errorf("missing task_id")
	}
	priority := toodledo.PriorityFromName(args.String("priority"))
	if err := d.Tasks.Edit(ctx, id, toodledo.Fields{Priority: &priority}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Priority set to %s.", toodledo.PriorityName(priority)), nil
}

func (d *Deps) scheduleTask(ctx context.Context, args Args) (string, error) {
	id, ok := argTaskID(args)
	if !ok {
		return "", fmt.Errorf("missing task_id")
	}
	due, err := parseDueDate(args.String("due_date"))
	if err != nil {
		return "", err
	}
	fields := toodledo.Fields{DueDate: &due}
	if p := args.String("priority"); p != "" {
		priority := toodledo.PriorityFromName(p)
		fields.Priority = &priority
	}
	if err := d.Tasks.Edit(ctx, id, fields); err != nil {
		return "", err
	}
	return fmt.Sprintf("Scheduled for %s.", args.String("due_date")), nil
}

func (d *Deps) delegateTask(ctx context.Context, args Args) (string, error) {
	id, ok := argTaskID(args)
	if !ok {
		return "", fmt.Errorf("missing task_id")
	}
	task, err := d.Tasks.Get(ctx, id)
	if err != nil {
		return "", err
	}
	tag := toodledo.MergeTags(task.Tag, "Overnight")
	fields := toodledo.Fields{Tag: &tag}
	if d.HenryContext > 0 {
		henry := d.HenryContext
		fields.Context = &henry
	}
	if err := d.Tasks.Edit(ctx, id, fields); err != nil {
		return "", err
	}
	if note := args.String("note"); note != "" {
		if err := d.Tasks.AppendNote(ctx, id, "Delegated: "+note, AttributionLabel); err != nil {
			d.warn("delegate note failed", "task_id", id, "error", err)
		}
	}
	return fmt.Sprintf("Delegated %q to Henry for overnight.", task.Title), nil
}

func (d *Deps) markTriaged(ctx context.Context, args Args) (string, error) {
	id, ok := argTaskID(args)
	if !ok {
		return "", fmt.Errorf("missing task_id")
	}
	task, err := d.Tasks.Get(ctx, id)
	if err != nil {
		return "", err
	}
	tag := toodledo.MergeTags(task.Tag, toodledo.TriagedTag(d.now()))
	if err := d.Tasks.Edit(ctx, id, toodledo.Fields{Tag: &tag}); err != nil {
		return "", err
	}
	return fmt.Sprintf("Marked %q triaged.", task.Title), nil
}

func (d *Deps) addTask(ctx context.Context, args Args) (string, error) {
	title := strings.TrimSpace(args.String("title"))
	if title == "" {
		return "", fmt.Errorf("missing task title")
	}
	// Voice calls retry tool turns, so guard against duplicate adds.
	existing, err := d.Tasks.Search(ctx, title)
	if err == nil {
		for _, task := range existing {
			if strings.EqualFold(strings.TrimSpace(task.Title), title) {
				return fmt.Sprintf("A task named %q already exists (ID %d). Not adding a duplicate.", task.Title, task.ID), nil
			}
		}
	}
	var due int64
	if raw := args.String("duedate"); raw != "" {
		due, err = parseDueDate(raw)
		if err != nil {
			return "", err
		}
	}
	note := args.String("note")
	if note != "" {
		note = fmt.Sprintf("[%s %s] %s", AttributionLabel, d.now().UTC().Format("2006-01-02"), note)
	}
	task, err := d.Tasks.Add(ctx,
		title,
		args.StringOr("folder", "pWorkflow"),
		toodledo.PriorityFromName(args.String("priority")),
		due,
		args.Bool("star"),
		note,
	)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %q (ID %d).", task.Title, task.ID), nil
}

func (d *Deps) updateTaskNote(ctx context.Context, args Args) (string, error) {
	id, ok := argTaskID(args)
	if !ok {
		return "", fmt.Errorf("missing task_id")
	}
	note := strings.TrimSpace(args.String("note"))
	if note == "" {
		return "", fmt.Errorf("missing note text")
	}
	if err := d.Tasks.AppendNote(ctx, id, note, AttributionLabel); err != nil {
		return "", err
	}
	return "Note added.", nil
}

// --- live calendar writes ---

func (d *Deps) createEvent(ctx context.Context, args Args) (string, error) {
	summary := strings.TrimSpace(args.String("summary"))
	start := args.String("start")
	end := args.String("end")
	if summary == "" || start == "" || end == "" {
		return "", fmt.Errorf("missing summary, start, or end")
	}
	event := gcal.Event{
		Summary:     summary,
		Description: args.String("description"),
		Location:    args.String("location"),
		Start:       &gcal.EventTime{DateTime: withLocalOffset(start)},
		End:         &gcal.EventTime{DateTime: withLocalOffset(end)},
	}
	for _, email := range strings.Split(args.String("attendees"), ",") {
		email = strings.TrimSpace(email)
		if email != "" {
			event.Attendees = append(event.Attendees, gcal.Attendee{Email: email})
		}
	}
	created, err := d.Calendar.Create(ctx, event)
	if err != nil {
		return "", err
	}
	out := fmt.Sprintf("Created %q at %s.", created.Summary, start)
	if len(event.Attendees) > 0 {
		out += fmt.Sprintf(" Invited %d attendee(s).", len(event.Attendees))
	}
	return out, nil
}

func (d *Deps) updateEvent(ctx context.Context, args Args) (string, error) {
	event, disambiguation, err := d.findOneEvent(ctx, args.String("event_query"))
	if err != nil {
		return "", err
	}
	if disambiguation != "" {
		return disambiguation, nil
	}
	patch := gcal.Event{
		Summary:     args.String("new_summary"),
		Description: args.String("new_description"),
		Location:    args.String("new_location"),
	}
	if v := args.String("new_start"); v != "" {
		patch.Start = &gcal.EventTime{DateTime: withLocalOffset(v)}
	}
	if v := args.String("new_end"); v != "" {
		patch.End = &gcal.EventTime{DateTime: withLocalOffset(v)}
	}
	if err := d.Calendar.Update(ctx, event.ID, patch); err != nil {
		return "", err
	}
	return fmt.Sprintf("Updated %q.", event.Summary), nil
}

func (d *Deps) deleteEvent(ctx context.Context, args Args) (string, error) {
	if !args.Bool("confirm") {
		return "Deletion not confirmed. Ask Paul to confirm before deleting.", nil
	}
	event, disambiguation, err := d.findOneEvent(ctx, args.String("event_query"))
	if err != nil {
		return "", err
	}
	if disambiguation != "" {
		return disambiguation, nil
	}
	if err := d.Calendar.Delete(ctx, event.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted %q.", event.Summary), nil
}

// findOneEvent resolves a spoken query to exactly one upcoming event. When
// several match it returns a disambiguation prompt instead of guessing.
func (d *Deps) findOneEvent(ctx context.Context, query string) (*gcal.Event, string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, "", fmt.Errorf("missing event query")
	}
	events, err := d.Calendar.Events(ctx, startOfDay(d.now()), 30, query)
	if err != nil {
		return nil, "", err
	}
	switch len(events) {
	case 0:
		return nil, "", fmt.Errorf("no upcoming event matching %q", query)
	case 1:
		return &events[0], "", nil
	}
	var b strings.Builder
	b.WriteString("Multiple events match. Which one?\n")
	for i := range events {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- %s at %s\n", events[i].Summary, events[i].StartsAt().Format("Mon Jan 2 15:04"))
	}
	return nil, strings.TrimRight(b.String(), "\n"), nil
}

// --- email ---

func (d *Deps) mailFor(account string) (*gmail.Client, error) {
	switch strings.ToLower(strings.TrimSpace(account)) {
	case "", "henry":
		if !d.MailHenry.Configured() {
			return nil, fmt.Errorf("henry mailbox is not configured")
		}
		return d.MailHenry, nil
	case "paul":
		if !d.MailPaul.Configured() {
			return nil, fmt.Errorf("paul mailbox is not configured")
		}
		return d.MailPaul, nil
	default:
		return nil, fmt.Errorf("unknown account %q (use henry or paul)", account)
	}
}

func (d *Deps) readEmail(ctx context.Context, args Args) (string, error) {
	query := args.String("query")
	if query == "" {
		return "", fmt.Errorf("missing search query")
	}
	mail, err := d.mailFor(args.String("account"))
	if err != nil {
		return "", err
	}
	hits, err := mail.Search(ctx, query, args.IntOr("max_results", 5))
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return fmt.Sprintf("No emails matching %q.", query), nil
	}
	var b strings.Builder
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. From %s: %s\n%s\n(message id %s)", i+1, hit.From, hit.Subject, hit.Snippet, hit.ID)
	}
	return b.String(), nil
}

func (d *Deps) readFullEmail(ctx context.Context, args Args) (string, error) {
	id := args.String("message_id")
	if id == "" {
		return "", fmt.Errorf("missing message_id")
	}
	if !d.MailHenry.Configured() {
		return "", fmt.Errorf("henry mailbox is not configured")
	}
	msg, err := d.MailHenry.Get(ctx, id)
	if err != nil {
		return "", err
	}
	body := msg.Body
	if body == "" {
		body = msg.Snippet
	}
	return fmt.Sprintf("From %s: %s\n\n%s", msg.From, msg.Subject, body), nil
}

func (d *Deps) forwardEmail(ctx context.Context, args Args) (string, error) {
	id := args.String("message_id")
	if id == "" {
		return "", fmt.Errorf("missing message_id")
	}
	if !d.MailHenry.Configured() {
		return "", fmt.Errorf("henry mailbox is not configured")
	}
	to := args.StringOr("to", d.ForwardDefault)
	if to == "" {
		return "", fmt.Errorf("no forward address given and no default configured")
	}
	msg, err := d.MailHenry.Get(ctx, id)
	if err != nil {
		return "", err
	}
	var body strings.Builder
	if note := args.String("note"); note != "" {
		body.WriteString(note + "\n\n")
	}
	fmt.Fprintf(&body, "---------- Forwarded message ----------\nFrom: %s\nDate: %s\nSubject: %s\n\n%s",
		msg.From, msg.Date, msg.Subject, msg.Body)
	if err := d.MailHenry.Send(ctx, to, "Fwd: "+msg.Subject, body.String()); err != nil {
		return "", err
	}
	return fmt.Sprintf("Forwarded %q to %s.", msg.Subject, to), nil
}

// --- memory, bridge, web ---

func (d *Deps) writeMemory(ctx context.Context, args Args) (string, error) {
	content := strings.TrimSpace(args.String("content"))
	if content == "" {
		return "", fmt.Errorf("missing memory content")
	}
	if !d.Memory.Configured() {
		return "", fmt.Errorf("memory directory is not configured")
	}
	switch args.StringOr("target", "daily") {
	case "longterm":
		if err := d.Memory.AppendLongterm(content); err != nil {
			return "", err
		}
		return "Saved to long-term memory.", nil
	default:
		if err := d.Memory.AppendDaily(content); err != nil {
			return "", err
		}
		return "Saved to today's memory.", nil
	}
}

func (d *Deps) searchMemory(ctx context.Context, args Args) (string, error) {
	query := args.String("query")
	if query == "" {
		return "", fmt.Errorf("missing search query")
	}
	hits, err := d.Memory.Search(query, 10)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return fmt.Sprintf("Nothing in memory matching %q.", query), nil
	}
	var b strings.Builder
	for _, hit := range hits {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", strings.TrimSuffix(hit.File, ".md"), hit.Line)
	}
	return b.String(), nil
}

func (d *Deps) sendToClawdbot(ctx context.Context, args Args) (string, error) {
	message := args.String("message")
	if message == "" {
		return "", fmt.Errorf("missing message")
	}
	if d.Bridge == nil {
		return "", fmt.Errorf("bot queue is not configured")
	}
	if err := d.Bridge.Enqueue(message); err != nil {
		return "", err
	}
	return "Sent to text-Henry.", nil
}

func (d *Deps) searchWeb(ctx context.Context, args Args) (string, error) {
	query := args.String("query")
	if query == "" {
		return "", fmt.Errorf("missing search query")
	}
	results, err := d.Web.Search(ctx, query, 3)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No web results for %q.", query), nil
	}
	var b strings.Builder
	for i, res := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s\n%s", i+1, res.Title, res.Description)
	}
	return b.String(), nil
}

// --- helpers ---

func argTaskID(args Args) (int64, bool) {
	v, ok := args.Int("task_id")
	if !ok || v <= 0 {
		return 0, false
	}
	return int64(v), true
}

func parseDueDate(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return 0, fmt.Errorf("due date must be YYYY-MM-DD, got %q", raw)
	}
	return t.Unix(), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// withLocalOffset turns a wall-clock "YYYY-MM-DDTHH:MM:SS" into RFC 3339 in
// the server's zone. Values that already carry an offset pass through.
func withLocalOffset(raw string) string {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Format(time.RFC3339)
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, time.Local); err == nil {
		return t.Format(time.RFC3339)
	}
	return raw
}

func formatTask(task toodledo.Task) string {
	due := "no due date"
	if task.DueDate > 0 {
		due = "due " + time.Unix(task.DueDate, 0).UTC().Format("Mon Jan 2")
	}
	line := fmt.Sprintf("%s (ID %d, %s, %s priority)", task.Title, task.ID, due, toodledo.PriorityName(task.Priority))
	if task.Tag != "" {
		line += " [" + task.Tag + "]"
	}
	return line
}

func formatTasks(tasks []toodledo.Task) string {
	var b strings.Builder
	for i, task := range tasks {
		if i >= 15 {
			fmt.Fprintf(&b, "\n…and %d more.", len(tasks)-i)
			break
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(formatTask(task))
	}
	return b.String()
}

func formatEvents(events []gcal.Event) string {
	var b strings.Builder
	for i := range events {
		if i > 0 {
			b.WriteString("\n")
		}
		when := events[i].StartsAt()
		fmt.Fprintf(&b, "%s at %s", events[i].Summary, when.Format("Mon Jan 2 15:04"))
		if events[i].Location != "" {
			b.WriteString(" (" + events[i].Location + ")")
		}
	}
	return b.String()
}

func formatEventDetail(ev cache.EventDetail) string {
	var b strings.Builder
	b.WriteString(ev.Summary)
	if ev.Start != "" {
		b.WriteString("\nWhen: " + ev.Start)
	}
	if ev.Location != "" {
		b.WriteString("\nWhere: " + ev.Location)
	}
	if ev.Attendees != "" {
		b.WriteString("\nWith: " + ev.Attendees)
	}
	if ev.Description != "" {
		b.WriteString("\nNotes: " + ev.Description)
	}
	return b.String()
}

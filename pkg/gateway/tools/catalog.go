package tools

import "github.com/heth-labs/voicegate/pkg/gateway/live/protocol"

// Tool names. The catalog is a closed set: the registry is validated against
// it at startup and the relay never dispatches a name outside it.
const (
	NameCheckWeather        = "check_weather"
	NameCheckCalendar       = "check_calendar"
	NameGetEventDetails     = "get_event_details"
	NameTasksDue            = "tasks_due"
	NameGetBriefing         = "get_briefing"
	NameGetTelegramContext  = "get_telegram_context"
	NameSearchTasks         = "search_tasks"
	NameTriageTasks         = "triage_tasks"
	NameDeferTask           = "defer_task"
	NameMarkObsolete        = "mark_obsolete"
	NameCompleteTask        = "complete_task"
	NameSetPriority         = "set_priority"
	NameScheduleTask        = "schedule_task"
	NameDelegateTask        = "delegate_task"
	NameMarkTriaged         = "mark_triaged"
	NameGetTask             = "get_task"
	NameAddTask             = "add_task"
	NameUpdateTaskNote      = "update_task_note"
	NameCreateCalendarEvent = "create_calendar_event"
	NameUpdateCalendarEvent = "update_calendar_event"
	NameDeleteCalendarEvent = "delete_calendar_event"
	NameReadEmail           = "read_email"
	NameReadFullEmail       = "read_full_email"
	NameForwardEmail        = "forward_email"
	NameWriteMemory         = "write_memory"
	NameSearchMemory        = "search_memory"
	NameSendToClawdbot      = "send_message_to_clawdbot"
	NameSearchWeb           = "search_web"
)

func fn(name, description string, props map[string]protocol.ToolProperty, required ...string) protocol.Tool {
	if props == nil {
		props = map[string]protocol.ToolProperty{}
	}
	return protocol.Tool{
		Type:        "function",
		Name:        name,
		Description: description,
		Parameters: protocol.ToolParameters{
			Type:       "object",
			Properties: props,
			Required:   required,
		},
	}
}

// Catalog returns the published tool definitions, in the order they are sent
// in the session update.
func Catalog() []protocol.Tool {
	return []protocol.Tool{
		fn(NameCheckWeather,
			"Get current weather and forecast. Uses cached data for instant response. Includes North Vancouver, Whistler snow, and Spanish Banks wind.",
			map[string]protocol.ToolProperty{
				"location": {Type: "string", Description: "Optional specific location (default uses cached North Van + Whistler)"},
			}),
		fn(NameCheckCalendar,
			"Get today and tomorrow calendar events. Uses cached data for instant response. Includes Paul, Jen, Ailie, and Parker calendars.",
			map[string]protocol.ToolProperty{
				"days": {Type: "number", Description: "Number of days (ignored; always returns today and tomorrow from cache)"},
			}),
		fn(NameGetEventDetails,
			"Get full details of a calendar event including description/notes. Use when Paul asks \"what is that meeting about\" or wants details of an event.",
			map[string]protocol.ToolProperty{
				"query": {Type: "string", Description: "Event name or keyword to search for"},
			}, "query"),
		fn(NameTasksDue,
			"List tasks due soon. Uses cached data showing top priority tasks due today/this week.",
			map[string]protocol.ToolProperty{
				"range": {Type: "string", Description: "Time range (ignored; returns the cached summary)"},
			}),
		fn(NameGetBriefing,
			"Get full morning briefing: weather, calendar, tasks, emails, sitting time, screen time. Uses cached data for instant response.",
			nil),
		fn(NameGetTelegramContext,
			"Get recent Telegram conversation between Paul and text-Henry. Use when Paul asks \"what did we discuss\" or references chat messages.",
			map[string]protocol.ToolProperty{
				"max_messages": {Type: "number", Description: "Max messages to return (default 20)"},
			}),
		fn(NameSearchTasks,
			"Search Toodledo tasks by keyword. Uses LIVE API for accurate real-time search.",
			map[string]protocol.ToolProperty{
				"query": {Type: "string", Description: "Search term to find tasks"},
			}, "query"),
		fn(NameTriageTasks,
			"Get the next batch of tasks for triage. Returns 10 tasks: 6 treadmill (dated but bumping 3+ months) + 2 standby >1yr + 2 standby <1yr. Use the 5 D's: DO (schedule it), DELEGATE (assign to Henry), DEFER (to someday), DELETE (kill it), DETAIL (need more info). LIVE API.",
			map[string]protocol.ToolProperty{
				"count": {Type: "number", Description: "Number of tasks to return (default 10)"},
			}),
		fn(NameDeferTask,
			"Defer a task to Someday/Maybe. Removes due date and adds \"Deferred\" tag. Use when task is nice-to-have but not essential. LIVE API.",
			map[string]protocol.ToolProperty{
				"task_id": {Type: "number", Description: "The Toodledo task ID to defer"},
				"reason":  {Type: "string", Description: "Optional reason for deferring"},
			}, "task_id"),
		fn(NameMarkObsolete,
			"Mark a task as obsolete/done. Completes the task and tags it \"obsolete\". Use for DELETE decisions in triage. LIVE API.",
			map[string]protocol.ToolProperty{
				"task_id": {Type: "number", Description: "The Toodledo task ID to mark obsolete"},
				"reason":  {Type: "string", Description: "Optional reason why obsolete"},
			}, "task_id"),
		fn(NameCompleteTask,
			"Mark a task as completed (actually done, not obsolete). Use when task is finished. LIVE API.",
			map[string]protocol.ToolProperty{
				"task_id": {Type: "number", Description: "The Toodledo task ID to complete"},
			}, "task_id"),
		fn(NameSetPriority,
			"Set task priority without changing due date. Use for \"Someday, High\" type decisions. Priority: low, medium, high. LIVE API.",
			map[string]protocol.ToolProperty{
				"task_id":  {Type: "number", Description: "The Toodledo task ID"},
				"priority": {Type: "string", Description: "Priority level: low, medium, or high"},
			}, "task_id", "priority"),
		fn(NameScheduleTask,
			"Schedule a task (set a due date). Use for DO decisions in triage. LIVE API.",
			map[string]protocol.ToolProperty{
				"task_id":  {Type: "number", Description: "The Toodledo task ID to schedule"},
				"due_date": {Type: "string", Description: "Due date YYYY-MM-DD format"},
				"priority": {Type: "string", Description: "Optional priority: low, medium, high"},
			}, "task_id", "due_date"),
		fn(NameDelegateTask,
			"Delegate a task to Henry. Sets context to Henry and adds \"Overnight\" tag so Henry works it. LIVE API.",
			map[string]protocol.ToolProperty{
				"task_id": {Type: "number", Description: "The Toodledo task ID to delegate"},
				"note":    {Type: "string", Description: "Optional instructions for Henry"},
			}, "task_id"),
		fn(NameMarkTriaged,
			"Mark a task as triaged (adds triaged-MMDD tag). Call after any triage decision. LIVE API.",
			map[string]protocol.ToolProperty{
				"task_id": {Type: "number", Description: "The Toodledo task ID that was triaged"},
			}, "task_id"),
		fn(NameGetTask,
			"Get full details of a task by ID including notes. Uses LIVE API.",
			map[string]protocol.ToolProperty{
				"task_id": {Type: "number", Description: "The Toodledo task ID"},
			}, "task_id"),
		fn(NameAddTask,
			"Add a new task to Toodledo. Uses LIVE API. Confirm details with Paul first unless he says \"just do it\".",
			map[string]protocol.ToolProperty{
				"title":    {Type: "string", Description: "Task title. Prefix with \"Henry: \" if Henry will do it."},
				"folder":   {Type: "string", Description: "Folder name (default: pWorkflow)"},
				"priority": {Type: "string", Description: "low, medium, or high (default: medium)"},
				"duedate":  {Type: "string", Description: "Due date YYYY-MM-DD format"},
				"star":     {Type: "boolean", Description: "Star the task"},
				"note":     {Type: "string", Description: "Optional note"},
			}, "title"),
		fn(NameUpdateTaskNote,
			"Append a note to an EXISTING task. Uses LIVE API. Get task_id from search_tasks first.",
			map[string]protocol.ToolProperty{
				"task_id": {Type: "number", Description: "The Toodledo task ID"},
				"note":    {Type: "string", Description: "Text to append to existing note"},
			}, "task_id", "note"),
		fn(NameCreateCalendarEvent,
			"Create a calendar event. Uses LIVE API. Confirm details first. Family emails: jen@heth.ca, parker@heth.ca, ailie@heth.ca",
			map[string]protocol.ToolProperty{
				"summary":     {Type: "string", Description: "Event title"},
				"start":       {Type: "string", Description: "Start time YYYY-MM-DDTHH:MM:SS (24h Pacific)"},
				"end":         {Type: "string", Description: "End time YYYY-MM-DDTHH:MM:SS"},
				"attendees":   {Type: "string", Description: "Comma-separated emails to invite"},
				"description": {Type: "string", Description: "Optional description"},
				"location":    {Type: "string", Description: "Optional location"},
			}, "summary", "start", "end"),
		fn(NameUpdateCalendarEvent,
			"Update an existing calendar event (move time, change description, etc). Uses LIVE API. First use get_event_details to find the event ID.",
			map[string]protocol.ToolProperty{
				"event_query":     {Type: "string", Description: "Event name to search for"},
				"new_start":       {Type: "string", Description: "New start time YYYY-MM-DDTHH:MM:SS (optional)"},
				"new_end":         {Type: "string", Description: "New end time YYYY-MM-DDTHH:MM:SS (optional)"},
				"new_description": {Type: "string", Description: "New description/notes (optional)"},
				"new_summary":     {Type: "string", Description: "New title (optional)"},
				"new_location":    {Type: "string", Description: "New location (optional)"},
			}, "event_query"),
		fn(NameDeleteCalendarEvent,
			"Delete a calendar event. Uses LIVE API. ALWAYS confirm with Paul before deleting.",
			map[string]protocol.ToolProperty{
				"event_query": {Type: "string", Description: "Event name to search for and delete"},
				"confirm":     {Type: "boolean", Description: "Must be true to proceed with deletion"},
			}, "event_query", "confirm"),
		fn(NameReadEmail,
			"Search and read emails. Can search henry@heth.ca (full access) or paul@heth.ca (read-only). Returns subject, sender, and snippet.",
			map[string]protocol.ToolProperty{
				"query":       {Type: "string", Description: "Search query (Gmail syntax: from:, subject:, is:unread, etc.)"},
				"account":     {Type: "string", Description: "Which inbox: \"henry\" or \"paul\" (default: henry)"},
				"max_results": {Type: "number", Description: "Max emails to return (default: 5)"},
			}, "query"),
		fn(NameReadFullEmail,
			"Read the complete body of an email. Use after read_email to get full content. Only works with henry@heth.ca inbox.",
			map[string]protocol.ToolProperty{
				"message_id": {Type: "string", Description: "Message ID from read_email results"},
			}, "message_id"),
		fn(NameForwardEmail,
			"Forward an email from henry@heth.ca to another address (usually paul@heth.ca). Can include an optional note.",
			map[string]protocol.ToolProperty{
				"message_id": {Type: "string", Description: "Message ID of email to forward"},
				"to":         {Type: "string", Description: "Email address to forward to (default: paul@heth.ca)"},
				"note":       {Type: "string", Description: "Optional note to add above forwarded content"},
			}, "message_id"),
		fn(NameWriteMemory,
			"Write to Henry's memory files. Uses LIVE file write.",
			map[string]protocol.ToolProperty{
				"content": {Type: "string", Description: "Text to write with heading"},
				"target":  {Type: "string", Description: "\"daily\" (default) or \"longterm\" for MEMORY.md"},
			}, "content"),
		fn(NameSearchMemory,
			"Search Henry's workspace memory. Uses LIVE search.",
			map[string]protocol.ToolProperty{
				"query": {Type: "string", Description: "Search query"},
			}, "query"),
		fn(NameSendToClawdbot,
			"Send a message to text-Henry for tasks you cannot do on call (emails, research).",
			map[string]protocol.ToolProperty{
				"message": {Type: "string", Description: "The instruction to send"},
			}, "message"),
		fn(NameSearchWeb,
			"Search the web for current information. Use for news, facts, prices, or anything not in memory/calendar/tasks.",
			map[string]protocol.ToolProperty{
				"query": {Type: "string", Description: "Search query"},
			}, "query"),
	}
}

// CatalogNames returns the published tool names in catalog order.
func CatalogNames() []string {
	defs := Catalog()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

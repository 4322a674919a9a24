package models

// UserInfo is the best-known profile for a user, assembled from the
// first thread history that carried a username or email.
type UserInfo struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	UserID      string `json:"user_id"`
}

// HasIdentity reports whether the profile carries a username or email.
func (u UserInfo) HasIdentity() bool {
	return u.Username != "" || u.Email != ""
}

// ThreadConversation is the per-thread conversation detail recorded in
// the report.
type ThreadConversation struct {
	TotalMessages int          `json:"total_messages"`
	UserMessages  int          `json:"user_messages"`
	AIMessages    int          `json:"ai_messages"`
	FirstMessage  string       `json:"first_message"`
	LastMessage   string       `json:"last_message"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
	UserID        string       `json:"user_id"`
	Conversation  Conversation `json:"conversation"`
}

// UserStats is the per-user aggregate.
type UserStats struct {
	ThreadCount          int      `json:"thread_count"`
	ThreadIDs            []string `json:"thread_ids"`
	UserInfo             UserInfo `json:"user_info"`
	TotalMessages        int      `json:"total_messages"`
	TotalUserMessages    int      `json:"total_user_messages"`
	AvgMessagesPerThread float64  `json:"avg_messages_per_thread"`
}

// UserStatsSection groups everything the report exposes under the
// user_stats key. UserThreadCount is a histogram of
// threads-per-user count -> number of users.
type UserStatsSection struct {
	TotalUsers          int                            `json:"total_users"`
	ThreadsPerUser      map[string]*UserStats          `json:"threads_per_user"`
	UserThreadCount     map[int]int                    `json:"user_thread_count"`
	UserDetails         map[string]UserInfo            `json:"user_details"`
	ThreadConversations map[string]*ThreadConversation `json:"thread_conversations"`
}

// TopUser is one entry of the thread-count ranking.
type TopUser struct {
	UserID      string   `json:"user_id"`
	ThreadCount int      `json:"thread_count"`
	ThreadIDs   []string `json:"thread_ids"`
	UserInfo    UserInfo `json:"user_info"`
}

// Summary holds the report's global counters and derived averages. The
// tool-call fields stay zero when tool analysis is disabled.
type Summary struct {
	TotalThreads         int     `json:"total_threads"`
	TotalUsers           int     `json:"total_users"`
	AvgThreadsPerUser    float64 `json:"avg_threads_per_user"`
	TotalMessages        int     `json:"total_messages"`
	UserMessages         int     `json:"user_messages"`
	AIMessages           int     `json:"ai_messages"`
	AvgMessagesPerUser   float64 `json:"avg_messages_per_user"`
	AvgMessagesPerThread float64 `json:"avg_messages_per_thread"`
	PeakDay              string  `json:"peak_day"`
	PeakThreads          int     `json:"peak_threads"`
	AnalysisDate         string  `json:"analysis_date"`

	TotalToolCalls           int `json:"total_tool_calls"`
	CreateLeadCalls          int `json:"create_lead_calls"`
	SendHTMLEmailCalls       int `json:"send_html_email_calls"`
	ThreadsWithCreateLead    int `json:"threads_with_create_lead"`
	ThreadsWithSendHTMLEmail int `json:"threads_with_send_html_email"`
}

// ThreadToolCalls is the per-thread tool-call entry of the report.
type ThreadToolCalls struct {
	ThreadMetadata map[string]any `json:"thread_metadata"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
	ToolStats      ToolCallStats  `json:"tool_stats"`
}

// DateToolCalls buckets tool-call counts by the date a thread was
// created.
type DateToolCalls struct {
	CreateLead    int `json:"create_lead"`
	SendHTMLEmail int `json:"send_html_email"`
	Total         int `json:"total"`
}

// ToolCallingStats is the global tool-call section of the report.
type ToolCallingStats struct {
	CreateLead               int                         `json:"create_lead"`
	SendHTMLEmail            int                         `json:"send_html_email"`
	TotalToolCalls           int                         `json:"total_tool_calls"`
	ThreadsWithCreateLead    int                         `json:"threads_with_create_lead"`
	ThreadsWithSendHTMLEmail int                         `json:"threads_with_send_html_email"`
	ThreadsWithAnyTool       int                         `json:"threads_with_any_tool"`
	ToolCallsByThread        map[string]*ThreadToolCalls `json:"tool_calls_by_thread"`
	ToolCallsByDate          map[string]*DateToolCalls   `json:"tool_calls_by_date"`
	DetailedCalls            []ToolCall                  `json:"detailed_calls"`
}

// Report is the root aggregate produced by one aggregation run. Its
// field names and nesting are a stable contract for every consumer.
type Report struct {
	Summary          Summary           `json:"summary"`
	ThreadsByDate    map[string]int    `json:"threads_by_date"`
	UserStats        UserStatsSection  `json:"user_stats"`
	TopUsers         []TopUser         `json:"top_users"`
	ToolCallingStats *ToolCallingStats `json:"tool_calling_stats,omitempty"`
}

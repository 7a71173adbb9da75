package entity

// ChatStatistics summarizes archived message activity for one
// conversation from one participant's point of view.
type ChatStatistics struct {
	TotalMessages int64 `json:"total_messages"`
	Sent          int64 `json:"sent"`
	Received      int64 `json:"received"`
	BusiestDay    int   `json:"busiest_day"`  // 0=Sunday, 6=Saturday
	BusiestHour   int   `json:"busiest_hour"` // 0-23
}

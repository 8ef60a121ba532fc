package domain

type Severity string

const (
	SeverityInfo        Severity = "info"
	SeverityDestructive Severity = "destructive"
)

type Notification struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

package jsonl

import "time"

// Diagnostic hints written to the bad-response log.
const (
	HintJSONParseFailed = "json_parse_failed"
	HintStatusNotOne    = "status_not_1"
	HintArrivalTimeout  = "arrival_timeout"
	HintClickNotSent    = "click_not_dispatched"
)

// bodyHeadLimit caps the raw body excerpt kept for parse failures.
const bodyHeadLimit = 500

// Diagnostic is one line of bad_responses.log.
type Diagnostic struct {
	Ts          string `json:"ts"`
	Hint        string `json:"hint"`
	URL         string `json:"url,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	BodyHead    string `json:"bodyHead,omitempty"`
	StatusField string `json:"statusField,omitempty"`
	Message     string `json:"message,omitempty"`
	Pageno      string `json:"pageno,omitempty"`
	Screenshot  string `json:"screenshot,omitempty"`
}

// DiagnosticLog appends Diagnostic lines; safe for concurrent use.
type DiagnosticLog struct {
	w   *Writer
	now func() time.Time
}

func OpenDiagnosticLog(path string) (*DiagnosticLog, error) {
	w, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &DiagnosticLog{w: w, now: time.Now}, nil
}

// Record stamps d with the current time when unset and appends it.
func (l *DiagnosticLog) Record(d Diagnostic) error {
	if d.Ts == "" {
		d.Ts = l.now().Format("2006-01-02T15:04:05")
	}
	d.BodyHead = BodyHead(d.BodyHead)
	return l.w.Write(d)
}

func (l *DiagnosticLog) Close() error {
	return l.w.Close()
}

// BodyHead truncates s to at most 500 runes.
func BodyHead(s string) string {
	r := []rune(s)
	if len(r) <= bodyHeadLimit {
		return s
	}
	return string(r[:bodyHeadLimit])
}

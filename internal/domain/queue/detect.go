package queue

import (
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/chatrelay/relay-service/internal/domain/model"
)

// KeywordTable drives automatic priority detection. Keeping the keyword sets
// as data lets tests and config hot-reload substitute alternate tables
// without touching the rule ordering.
type KeywordTable struct {
	Urgent []string
	High   []string
}

// DefaultKeywordTable returns the built-in detection vocabulary.
func DefaultKeywordTable() KeywordTable {
	return KeywordTable{
		Urgent: []string{
			"urgent", "emergency", "help", "asap", "911",
			"critical", "bug", "down", "broken", "crash",
		},
		High: []string{
			"important", "priority", "meeting", "deadline",
			"issue", "attention", "review", "approval",
		},
	}
}

// Detector assigns a priority class to message text. The table is held
// behind an atomic pointer so a config reload can swap it while admissions
// are in flight.
type Detector struct {
	table atomic.Pointer[KeywordTable]
}

func NewDetector(table KeywordTable) *Detector {
	d := &Detector{}
	d.table.Store(&table)
	return d
}

// Swap replaces the keyword table. Safe for concurrent use with Detect.
func (d *Detector) Swap(table KeywordTable) {
	d.table.Store(&table)
}

// Detect applies the detection rules in fixed order; the first match wins.
// Keyword rules inspect the lower-cased, trimmed text; the length, mention,
// caps and exclamation rules inspect the original text.
func (d *Detector) Detect(text string) model.Priority {
	lower := strings.ToLower(strings.TrimSpace(text))
	table := d.table.Load()

	for _, kw := range table.Urgent {
		if strings.Contains(lower, kw) {
			return model.PriorityUrgent
		}
	}

	for _, kw := range table.High {
		if strings.Contains(lower, kw) {
			return model.PriorityHigh
		}
	}

	// @mentions indicate direct communication.
	if strings.Contains(text, "@") && len(text) > 1 {
		return model.PriorityHigh
	}

	// Sustained ALL CAPS reads as urgency.
	if len(text) > 5 && isUpper(text) {
		return model.PriorityHigh
	}

	if strings.Count(text, "!") >= 3 {
		return model.PriorityHigh
	}

	return model.PriorityNormal
}

// isUpper reports whether s contains at least one cased rune and none of
// them are lower case.
func isUpper(s string) bool {
	hasCased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasCased = true
		}
	}
	return hasCased
}

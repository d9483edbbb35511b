package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"savingsplanner/internal/module/savings/calendar"
)

// Reminder is a tagged variant replacing the nullable
// enable_reminders/reminder_frequency/last_reminder_sent_at trio: when
// reminders are off every On-only field is meaningless, and the old shape
// let callers read a frequency while On was false. A Reminder is either
// Off, or On with every field an enabled reminder actually needs. It is
// stored as a single JSON column via Value/Scan.
type Reminder struct {
	On bool

	Frequency  ReminderFrequency      `json:",omitempty"`
	TimeOfDay  string                 `json:",omitempty"` // "HH:MM", 24h, interpreted in the user's local day
	FirstDate  calendar.EpochDay      `json:",omitempty"`
	LastSentAt *calendar.EpochMillis  `json:",omitempty"`
}

// ReminderOff is the disabled variant.
func ReminderOff() Reminder {
	return Reminder{On: false}
}

// ReminderOn is the enabled variant.
func ReminderOn(frequency ReminderFrequency, timeOfDay string, firstDate calendar.EpochDay) Reminder {
	return Reminder{On: true, Frequency: frequency, TimeOfDay: timeOfDay, FirstDate: firstDate}
}

// Validate checks the On variant's fields; the Off variant always validates.
func (r Reminder) Validate() bool {
	if !r.On {
		return true
	}
	return r.Frequency.IsValid() && len(r.TimeOfDay) == 5
}

// WithSentAt returns a copy of an On reminder marked as sent at ms.
func (r Reminder) WithSentAt(ms calendar.EpochMillis) Reminder {
	if !r.On {
		return r
	}
	r.LastSentAt = &ms
	return r
}

// Value implements driver.Valuer for gorm/database-sql persistence.
func (r Reminder) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *Reminder) Scan(value interface{}) error {
	if value == nil {
		*r = ReminderOff()
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("reminder: unsupported scan type %T", value)
	}
}

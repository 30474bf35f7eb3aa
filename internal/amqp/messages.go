package amqp

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// BillReminder announces an unpaid recurring bill that is due soon or
// overdue. It carries everything a notifier needs; consumers do not read the
// database.
type BillReminder struct {
	BillID       string          `json:"billId"`
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	DueDate      civil.Date      `json:"dueDate"`
	DaysUntilDue int             `json:"daysUntilDue"`
	Status       core.BillStatus `json:"status"`
	Severity     core.Severity   `json:"severity"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewBillReminder builds the reminder for a resolved bill status.
func NewBillReminder(st core.RecurringBillStatus, now time.Time) *BillReminder {
	return &BillReminder{
		BillID:       st.Bill.ID,
		Name:         st.Bill.Name,
		Amount:       st.Bill.Amount,
		DueDate:      st.DueDate,
		DaysUntilDue: st.DaysUntilDue,
		Status:       st.Status,
		Severity:     st.Severity,
		Timestamp:    now,
	}
}

// MessageID is stable for one bill and due date so consumers can drop
// repeated reminders.
func (m *BillReminder) MessageID() string {
	return m.BillID + "@" + m.DueDate.String() + "#" + string(m.Status)
}

func (m *BillReminder) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillReminderFromJSON(data []byte) (*BillReminder, error) {
	var msg BillReminder
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zulandar/territorio/internal/models"
	"github.com/zulandar/territorio/internal/reminder"
)

func (h *harness) reminderFor(a *models.Assignment) reminder.Task {
	return reminder.Task{
		ID:             "task-1",
		Type:           reminder.TypeReminderCheck,
		AssignmentID:   a.ID,
		CongregationID: h.cong.ID,
	}
}

func TestHandleReminder_SendsPrivateMessage(t *testing.T) {
	h := newHarness(t)
	a := h.claim(h.centro.ID, h.alice.ID)

	if err := h.bot.HandleReminder(context.Background(), h.reminderFor(a)); err != nil {
		t.Fatalf("HandleReminder: %v", err)
	}

	r := h.lastReply()
	if r.Target != alicePhone+"@s.whatsapp.net" {
		t.Errorf("target = %q, want direct chat", r.Target)
	}
	if r.Instance != "central" || r.APIKey != "key-1" {
		t.Errorf("binding = %s/%s", r.Instance, r.APIKey)
	}
	assertContains(t, r.Text, "Olá Alice! O território *Centro* está com você desde 10/03/2025.")
	assertContains(t, r.Text, "*!devolver*")
}

func TestHandleReminder_Skips(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness) reminder.Task
	}{
		{
			name: "returned",
			setup: func(h *harness) reminder.Task {
				a := h.claim(h.centro.ID, h.alice.ID)
				if _, err := h.ledger.Complete(context.Background(), h.cong.ID, a.ID); err != nil {
					h.t.Fatal(err)
				}
				return h.reminderFor(a)
			},
		},
		{
			name: "missing assignment",
			setup: func(h *harness) reminder.Task {
				return h.reminderFor(&models.Assignment{ID: "gone"})
			},
		},
		{
			name: "inactive manager",
			setup: func(h *harness) reminder.Task {
				a := h.claim(h.centro.ID, h.alice.ID)
				if err := h.db.Model(&h.alice).Update("active", false).Error; err != nil {
					h.t.Fatal(err)
				}
				return h.reminderFor(a)
			},
		},
		{
			name: "binding removed",
			setup: func(h *harness) reminder.Task {
				a := h.claim(h.centro.ID, h.alice.ID)
				if err := h.db.Model(&h.cong).Update("whatsapp_api_key", "").Error; err != nil {
					h.t.Fatal(err)
				}
				return h.reminderFor(a)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			task := tt.setup(h)
			if err := h.bot.HandleReminder(context.Background(), task); err != nil {
				t.Fatalf("HandleReminder: %v", err)
			}
			if n := h.gw.SentCount(); n != 0 {
				t.Errorf("sent %d messages, want 0", n)
			}
		})
	}
}

func TestHandleReminder_UnknownType(t *testing.T) {
	h := newHarness(t)
	err := h.bot.HandleReminder(context.Background(), reminder.Task{Type: "cleanup"})
	if err == nil || !strings.Contains(err.Error(), "unknown reminder task type") {
		t.Errorf("err = %v", err)
	}
}

func TestHandleReminder_SendFailure(t *testing.T) {
	h := newHarness(t)
	a := h.claim(h.centro.ID, h.alice.ID)
	boom := errors.New("evolution down")
	h.gw.FailWith(boom)

	err := h.bot.HandleReminder(context.Background(), h.reminderFor(a))
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestHandleReminder_ImplementsHandler(t *testing.T) {
	var _ reminder.Handler = (*Bot)(nil)
}

package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/territorio/internal/ledger"
	"github.com/zulandar/territorio/internal/models"
	"github.com/zulandar/territorio/internal/reminder"
	"github.com/zulandar/territorio/internal/whatsapp"
)

// HandleReminder implements reminder.Handler. It messages the manager
// privately when the assignment is still active and does nothing when it
// has been returned or removed in the meantime.
func (b *Bot) HandleReminder(ctx context.Context, task reminder.Task) error {
	if task.Type != reminder.TypeReminderCheck {
		return fmt.Errorf("bot: unknown reminder task type %q", task.Type)
	}
	log := b.log.WithFields(logrus.Fields{
		"assignment_id": task.AssignmentID,
		"task_id":       task.ID,
	})

	a, err := b.ledger.Assignment(ctx, task.CongregationID, task.AssignmentID)
	if errors.Is(err, ledger.ErrAssignmentNotFound) {
		log.Debug("reminder for missing assignment")
		return nil
	}
	if err != nil {
		return err
	}
	if a.Status != models.AssignmentActive || !a.Manager.Active {
		return nil
	}

	cong, err := b.ledger.Congregation(ctx, task.CongregationID)
	if errors.Is(err, ledger.ErrCongregationNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !cong.HasWhatsapp() {
		log.Warn("reminder skipped, congregation has no whatsapp binding")
		return nil
	}

	err = b.gateway.SendText(ctx, whatsapp.Message{
		Instance: cong.WhatsappInstanceName,
		APIKey:   cong.WhatsappAPIKey,
		Target:   whatsapp.DirectJID(a.Manager.Phone),
		Text:     msgReminder(a.Manager.Name, a.Territory.Name, a.StartedAt.Format("02/01/2006"), b.cfg.ReturnCommand),
	})
	if err != nil {
		return fmt.Errorf("bot: send reminder: %w", err)
	}
	log.Info("reminder sent")
	return nil
}

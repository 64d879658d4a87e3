// Package bot implements the WhatsApp conversation that lets managers
// request and return territories.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/territorio/internal/config"
	"github.com/zulandar/territorio/internal/dialog"
	"github.com/zulandar/territorio/internal/ledger"
	"github.com/zulandar/territorio/internal/logging"
	"github.com/zulandar/territorio/internal/models"
	"github.com/zulandar/territorio/internal/reminder"
	"github.com/zulandar/territorio/internal/whatsapp"
)

// menuSize caps how many territories are offered at once.
const menuSize = 2

// typeChoices maps the type menu answers to territory types.
var typeChoices = map[string]models.TerritoryType{
	"1": models.TypeUrban,
	"2": models.TypeRural,
	"3": models.TypeCommercial,
}

// reasonChoices maps the return reason answers to outcomes.
var reasonChoices = map[string]ledger.Outcome{
	"1": ledger.OutcomeCompleted,
	"2": ledger.OutcomeNotWorked,
}

// Opts holds parameters for creating a Bot.
type Opts struct {
	Ledger    *ledger.Ledger
	Store     dialog.Store
	Gateway   whatsapp.Gateway
	Scheduler reminder.Scheduler
	Config    config.BotConfig
	Logger    logrus.FieldLogger
	Now       func() time.Time // defaults to time.Now
}

// Bot is the dialog state machine. It is safe for concurrent use; callers
// that need per-phone ordering must serialize themselves (see Daemon).
type Bot struct {
	ledger    *ledger.Ledger
	store     dialog.Store
	gateway   whatsapp.Gateway
	scheduler reminder.Scheduler
	cfg       config.BotConfig
	log       logrus.FieldLogger
	now       func() time.Time
}

// New creates a Bot.
func New(opts Opts) (*Bot, error) {
	if opts.Ledger == nil {
		return nil, fmt.Errorf("bot: ledger is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("bot: store is required")
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("bot: gateway is required")
	}
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("bot: scheduler is required")
	}
	cfg := opts.Config
	if cfg.RequestCommand == "" {
		cfg.RequestCommand = "!territorio"
	}
	if cfg.ReturnCommand == "" {
		cfg.ReturnCommand = "!devolver"
	}
	if cfg.LimitActiveAssignments <= 0 {
		cfg.LimitActiveAssignments = 2
	}
	if cfg.DaysForReminderCheck <= 0 {
		cfg.DaysForReminderCheck = 15
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Bot{
		ledger:    opts.Ledger,
		store:     opts.Store,
		gateway:   opts.Gateway,
		scheduler: opts.Scheduler,
		cfg:       cfg,
		log:       logging.Component(opts.Logger, "bot"),
		now:       now,
	}, nil
}

// conversation is the resolved context of one inbound message.
type conversation struct {
	cong    *models.Congregation
	manager *models.Manager
	phone   string
	target  string
	log     logrus.FieldLogger
}

// HandleIncomingMessage runs one inbound webhook event through the dialog.
// Events from unknown instances, other chats, the bot itself or numbers
// that are not active managers are dropped without a reply. Ledger and
// store failures are returned; send failures are only logged.
func (b *Bot) HandleIncomingMessage(ctx context.Context, ev Event) error {
	if ev.Type != EventMessagesUpsert || ev.Data.Key.FromMe {
		return nil
	}
	text := ev.Text()
	instance := ev.InstanceName()
	if text == "" || instance == "" {
		return nil
	}

	cong, err := b.ledger.CongregationByInstance(ctx, instance)
	if errors.Is(err, ledger.ErrCongregationNotFound) {
		b.log.WithField("instance", instance).Warn("no congregation for instance")
		return nil
	}
	if err != nil {
		return err
	}
	if !cong.HasWhatsapp() || cong.WhatsappGroupID == "" {
		return nil
	}
	if chat := ev.Data.Key.RemoteJID; chat == "" || chat != cong.WhatsappGroupID {
		return nil
	}

	phone := ev.Phone()
	manager, err := b.ledger.ActiveManagerByPhone(ctx, cong.ID, phone)
	if errors.Is(err, ledger.ErrManagerNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	conv := &conversation{
		cong:    cong,
		manager: manager,
		phone:   phone,
		target:  ev.Author(),
		log: b.log.WithFields(logrus.Fields{
			"instance": instance,
			"phone":    phone,
		}),
	}

	state, err := b.store.Get(ctx, phone)
	if err != nil {
		return err
	}
	conv.log.WithField("step", state.Step()).Debug("message received")

	switch s := state.(type) {
	case dialog.Idle:
		return b.onIdle(ctx, conv, text)
	case dialog.SelectingType:
		return b.onSelectingType(ctx, conv, text)
	case dialog.SelectingMap:
		return b.onSelectingMap(ctx, conv, s, text)
	case dialog.SelectingReturn:
		return b.onSelectingReturn(ctx, conv, s, text)
	case dialog.AwaitingReason:
		return b.onAwaitingReason(ctx, conv, s, text)
	default:
		return fmt.Errorf("bot: unhandled dialog state %T", state)
	}
}

func (b *Bot) onIdle(ctx context.Context, conv *conversation, text string) error {
	switch {
	case strings.EqualFold(text, b.cfg.RequestCommand):
		active, err := b.ledger.ActiveAssignments(ctx, conv.manager.ID)
		if err != nil {
			return err
		}
		limit := b.cfg.LimitActiveAssignments
		if len(active) >= limit {
			b.reply(ctx, conv, msgLimitReached(conv.manager.Name, limit, active))
			return nil
		}
		b.reply(ctx, conv, msgTypeMenu(conv.manager.Name))
		return b.store.Set(ctx, conv.phone, dialog.SelectingType{})

	case strings.EqualFold(text, b.cfg.ReturnCommand):
		active, err := b.ledger.ActiveAssignments(ctx, conv.manager.ID)
		if err != nil {
			return err
		}
		switch len(active) {
		case 0:
			b.reply(ctx, conv, msgNothingToReturn())
			return nil
		case 1:
			b.reply(ctx, conv, msgReturnSingle(active[0].Territory.Name))
			return b.store.Set(ctx, conv.phone, dialog.AwaitingReason{AssignmentID: active[0].ID})
		}
		options := make([]dialog.ReturnOption, len(active))
		for i, a := range active {
			options[i] = dialog.ReturnOption{
				Code:          fmt.Sprint(i + 1),
				AssignmentID:  a.ID,
				TerritoryName: a.Territory.Name,
			}
		}
		b.reply(ctx, conv, msgReturnList(active))
		return b.store.Set(ctx, conv.phone, dialog.SelectingReturn{Options: options})
	}
	return nil
}

func (b *Bot) onSelectingType(ctx context.Context, conv *conversation, text string) error {
	typ, ok := typeChoices[text]
	if !ok {
		b.reply(ctx, conv, msgInvalidType())
		return nil
	}

	options, err := b.ledger.AvailableTerritories(ctx, conv.cong.ID, typ, menuSize)
	if err != nil {
		return err
	}
	switch len(options) {
	case 0:
		b.reply(ctx, conv, msgNoneFound(typ, b.cfg.RequestCommand))
		return b.store.Clear(ctx, conv.phone)
	case 1:
		if err := b.store.Clear(ctx, conv.phone); err != nil {
			return err
		}
		return b.assign(ctx, conv, options[0].ID, options[0].Name)
	}

	mapOptions := make([]dialog.MapOption, len(options))
	for i, t := range options {
		mapOptions[i] = dialog.MapOption{Code: fmt.Sprint(i + 1), TerritoryID: t.ID}
	}
	b.reply(ctx, conv, msgMapMenu(options))
	return b.store.Set(ctx, conv.phone, dialog.SelectingMap{Options: mapOptions})
}

func (b *Bot) onSelectingMap(ctx context.Context, conv *conversation, s dialog.SelectingMap, text string) error {
	choice, ok := s.Find(text)
	if !ok {
		b.reply(ctx, conv, msgInvalidMap())
		return nil
	}
	if err := b.store.Clear(ctx, conv.phone); err != nil {
		return err
	}
	return b.assign(ctx, conv, choice.TerritoryID, "")
}

func (b *Bot) onSelectingReturn(ctx context.Context, conv *conversation, s dialog.SelectingReturn, text string) error {
	choice, ok := s.Find(text)
	if !ok {
		b.reply(ctx, conv, msgInvalidReturn())
		return nil
	}

	a, err := b.ledger.Assignment(ctx, conv.cong.ID, choice.AssignmentID)
	if err != nil && !errors.Is(err, ledger.ErrAssignmentNotFound) {
		return err
	}
	if err != nil || a.Status != models.AssignmentActive {
		b.reply(ctx, conv, msgReturnLookupFailed())
		return b.store.Clear(ctx, conv.phone)
	}
	b.reply(ctx, conv, msgReasonMenu())
	return b.store.Set(ctx, conv.phone, dialog.AwaitingReason{AssignmentID: a.ID})
}

func (b *Bot) onAwaitingReason(ctx context.Context, conv *conversation, s dialog.AwaitingReason, text string) error {
	outcome, ok := reasonChoices[text]
	if !ok {
		b.reply(ctx, conv, msgInvalidReason())
		return nil
	}

	a, err := b.ledger.Return(ctx, conv.cong.ID, s.AssignmentID, outcome)
	switch {
	case errors.Is(err, ledger.ErrAssignmentNotFound), errors.Is(err, ledger.ErrAssignmentNotActive):
		conv.log.WithField("assignment_id", s.AssignmentID).WithError(err).Warn("return of unavailable assignment")
		b.reply(ctx, conv, msgReturnLookupFailed())
		return b.store.Clear(ctx, conv.phone)
	case err != nil:
		return err
	}

	conv.log.WithFields(logrus.Fields{
		"assignment_id": a.ID,
		"territory_id":  a.TerritoryID,
		"outcome":       outcome,
	}).Info("territory returned")
	b.reply(ctx, conv, msgReturned(conv.manager.Name, a.Territory.Name, outcome == ledger.OutcomeCompleted))
	return b.store.Clear(ctx, conv.phone)
}

// assign runs the claim for the chosen territory, confirms it in the chat
// and schedules the follow-up reminder. The caller has already cleared the
// dialog state. knownName is used in the race-lost reply when set.
func (b *Bot) assign(ctx context.Context, conv *conversation, territoryID, knownName string) error {
	a, err := b.ledger.Claim(ctx, conv.cong.ID, territoryID, conv.manager.ID)
	switch {
	case errors.Is(err, ledger.ErrTerritoryTaken):
		name := knownName
		if name == "" {
			if t, lookupErr := b.ledger.Territory(ctx, conv.cong.ID, territoryID); lookupErr == nil {
				name = t.Name
			}
		}
		conv.log.WithField("territory_id", territoryID).Info("territory taken before claim")
		b.reply(ctx, conv, msgTaken(name))
		return nil
	case errors.Is(err, ledger.ErrTerritoryNotFound):
		b.reply(ctx, conv, msgTerritoryLookupFailed())
		return nil
	case err != nil:
		return err
	}

	log := conv.log.WithFields(logrus.Fields{
		"assignment_id": a.ID,
		"territory_id":  a.TerritoryID,
	})
	log.Info("territory assigned")

	text := msgAssigned(a.Territory.Name, conv.manager.Name, b.now().Format("02/01/2006"), b.cfg.ReturnCommand)
	if a.Territory.ImageURL != "" {
		b.send(ctx, conv, whatsapp.Message{Text: text, ImageURL: a.Territory.ImageURL})
	} else {
		b.send(ctx, conv, whatsapp.Message{Text: text})
	}

	task := reminder.Task{
		Type:           reminder.TypeReminderCheck,
		AssignmentID:   a.ID,
		CongregationID: conv.cong.ID,
	}
	if err := b.scheduler.Schedule(ctx, task, reminder.Delay(b.cfg.DaysForReminderCheck)); err != nil {
		log.WithError(err).Error("schedule reminder")
	}
	return nil
}

func (b *Bot) reply(ctx context.Context, conv *conversation, text string) {
	b.send(ctx, conv, whatsapp.Message{Text: text})
}

// send delivers msg to the conversation's author. Failures are logged and
// never undo a committed transition.
func (b *Bot) send(ctx context.Context, conv *conversation, msg whatsapp.Message) {
	msg.Instance = conv.cong.WhatsappInstanceName
	msg.APIKey = conv.cong.WhatsappAPIKey
	msg.Target = conv.target

	var err error
	if msg.ImageURL != "" {
		err = b.gateway.SendImage(ctx, msg)
	} else {
		err = b.gateway.SendText(ctx, msg)
	}
	if err != nil {
		conv.log.WithError(err).Error("send reply")
	}
}

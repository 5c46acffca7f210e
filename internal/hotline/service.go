package hotline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"coc-hotline/internal/directory"
	"coc-hotline/internal/recording"
	"coc-hotline/internal/telephony"
	"coc-hotline/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const defaultFanOutLimit = 8

// Service implements the three hotline webhooks: the call orchestrator, the
// conference bridge handler and the SMS relay.
//
// It keeps no per-call state. An incident is correlated across webhooks
// solely by the conversation and call uuids threaded through callback URLs,
// so every handler is a function of its input plus the static fields below.
type Service struct {
	dir    *directory.Directory
	client telephony.SignalingClient
	policy *recording.Policy

	hotlineNumber string
	description   string
	baseURL       string
	fanOutLimit   int
}

type Options struct {
	// HotlineNumber is the caller ID for staff legs and the sender for SMS.
	HotlineNumber string
	// Description names the hotline in spoken and texted copy.
	Description string
	// BaseURL is the public origin of this service, used in answer callbacks.
	BaseURL string
	// FanOutLimit bounds concurrent PlaceCall requests. Zero means a small default.
	FanOutLimit int
}

func NewService(dir *directory.Directory, client telephony.SignalingClient, policy *recording.Policy, opts Options) (*Service, error) {
	if dir == nil {
		return nil, errors.New("hotline: directory is nil")
	}
	if client == nil {
		return nil, errors.New("hotline: signaling client is nil")
	}
	if policy == nil {
		return nil, errors.New("hotline: recording policy is nil")
	}
	if strings.TrimSpace(opts.HotlineNumber) == "" {
		return nil, errors.New("hotline: hotline number is required")
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, errors.New("hotline: base url is required")
	}
	if opts.FanOutLimit <= 0 {
		opts.FanOutLimit = defaultFanOutLimit
	}
	return &Service{
		dir:           dir,
		client:        client,
		policy:        policy,
		hotlineNumber: strings.TrimSpace(opts.HotlineNumber),
		description:   strings.TrimSpace(opts.Description),
		baseURL:       strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		fanOutLimit:   opts.FanOutLimit,
	}, nil
}

// AnswerConferenceURL is the answer webhook for a staff leg dialed on behalf
// of the given incoming call.
func (s *Service) AnswerConferenceURL(conversationUUID, callUUID string) string {
	return fmt.Sprintf("%s/webhook/answer_conference_call/%s/%s/",
		s.baseURL, url.PathEscape(conversationUUID), url.PathEscape(callUUID))
}

// HandleIncomingCall answers a call to the hotline: the caller is greeted and
// parked in a conversation named after their conversation uuid while every
// staff member is dialed. The returned NCCO does not depend on how the
// dial-outs went.
func (s *Service) HandleIncomingCall(ctx context.Context, conversationUUID, callUUID string) (telephony.Sequence, error) {
	conversationUUID = strings.TrimSpace(conversationUUID)
	callUUID = strings.TrimSpace(callUUID)
	if conversationUUID == "" {
		return nil, missing("conversation_uuid")
	}
	if callUUID == "" {
		return nil, missing("uuid")
	}

	d := s.policy.Decide()
	conv := telephony.Conversation{
		Name:           conversationUUID,
		Record:         d.Record,
		MusicOnHoldURL: []string{d.MusicURL},
		EndOnExit:      false,
		StartOnEnter:   false,
	}
	if d.EventURL != "" {
		conv.EventMethod = "POST"
		conv.EventURL = []string{d.EventURL}
	}
	ncco := telephony.Sequence{
		telephony.Talk{Text: s.greeting(d.Record)},
		conv,
	}

	s.dialStaff(ctx, conversationUUID, callUUID)
	return ncco, nil
}

// dialStaff places one leg per roster entry. Failures are logged and do not
// stop the remaining legs.
func (s *Service) dialStaff(ctx context.Context, conversationUUID, callUUID string) {
	log := logger.From(ctx).With("conversation_uuid", conversationUUID, "call_uuid", callUUID)
	// The provider may drop our webhook request; dial-outs still go through.
	ctx = context.WithoutCancel(ctx)
	answerURL := s.AnswerConferenceURL(conversationUUID, callUUID)

	var g errgroup.Group
	g.SetLimit(s.fanOutLimit)
	for _, contact := range s.dir.All() {
		contact := contact
		g.Go(func() error {
			leg, err := s.client.PlaceCall(ctx, telephony.PlaceCallRequest{
				To:        contact.PhoneNumber,
				From:      s.hotlineNumber,
				AnswerURL: answerURL,
			})
			if err != nil {
				log.Error("staff dial-out failed", "to", contact.PhoneNumber, "staff", contact.Name, "err", err)
				return nil
			}
			log.Info("staff dial-out placed", "to", contact.PhoneNumber, "staff", contact.Name, "leg_uuid", leg.UUID)
			return nil
		})
	}
	_ = g.Wait()
}

// HandleLegAnswered runs when a dialed staff member picks up. The original
// caller hears who is joining, and the staff leg joins the caller's
// conversation as moderator: the conversation ends when they hang up.
//
// Every answering leg is merged; several staff may join one incident.
func (s *Service) HandleLegAnswered(ctx context.Context, originConversationUUID, originCallUUID, calleeNumber string) (telephony.Sequence, error) {
	originConversationUUID = strings.TrimSpace(originConversationUUID)
	originCallUUID = strings.TrimSpace(originCallUUID)
	if originConversationUUID == "" {
		return nil, missing("origin_conversation_uuid")
	}
	if originCallUUID == "" {
		return nil, missing("origin_call_uuid")
	}

	log := logger.From(ctx).With("conversation_uuid", originConversationUUID, "call_uuid", originCallUUID, "to", calleeNumber)

	contact, known := s.dir.Lookup(calleeNumber)
	if !known {
		log.Warn("answering number not in staff directory")
	}

	// The caller may already have hung up; the staff member still gets connected.
	if err := s.client.InjectSpeech(context.WithoutCancel(ctx), originCallUUID, joiningAnnouncement(contact.Name)); err != nil {
		log.Warn("announcing staff to caller failed", "staff", contact.Name, "err", err)
	} else {
		log.Info("caller notified of joining staff", "staff", contact.Name)
	}

	return telephony.Sequence{
		telephony.Talk{Text: s.staffGreeting(contact.Name)},
		telephony.Conversation{
			Name:         originConversationUUID,
			StartOnEnter: true,
			EndOnExit:    true,
		},
	}, nil
}

// HandleInboundSMS mirrors a report to every staff member, in roster order,
// then acknowledges the reporter. Delivery failures are logged per recipient.
//
// Redelivered webhooks are relayed again; there is no dedup.
func (s *Service) HandleInboundSMS(ctx context.Context, reporterNumber, hotlineNumber, text string) error {
	reporterNumber = strings.TrimSpace(reporterNumber)
	hotlineNumber = strings.TrimSpace(hotlineNumber)
	if reporterNumber == "" {
		return missing("msisdn")
	}
	if hotlineNumber == "" {
		return missing("to")
	}

	log := logger.From(ctx).With("hotline", hotlineNumber)
	ctx = context.WithoutCancel(ctx)

	for _, contact := range s.dir.All() {
		err := s.client.SendMessage(ctx, telephony.OutboundMessage{
			From: hotlineNumber,
			To:   contact.PhoneNumber,
			Text: text,
		})
		if err != nil {
			log.Error("relaying sms to staff failed", "to", contact.PhoneNumber, "staff", contact.Name, "err", err)
		}
	}

	err := s.client.SendMessage(ctx, telephony.OutboundMessage{
		From: hotlineNumber,
		To:   reporterNumber,
		Text: s.smsAcknowledgement(),
	})
	if err != nil {
		log.Error("acknowledging reporter failed", "err", err)
	}
	return nil
}

func (s *Service) greeting(recorded bool) string {
	text := fmt.Sprintf("You've reached the %s.", s.description)
	if recorded {
		text += " This call is recorded."
	}
	return text
}

func (s *Service) staffGreeting(name string) string {
	if name == "" {
		return fmt.Sprintf("Hello, connecting you to the %s.", s.description)
	}
	return fmt.Sprintf("Hello %s, connecting you to the %s.", name, s.description)
}

func (s *Service) smsAcknowledgement() string {
	return fmt.Sprintf("Thank you for contacting the %s. A staff member will be in touch shortly.", s.description)
}

// joiningAnnouncement is injected into the caller's leg. Unknown numbers get
// a neutral subject rather than an empty name.
func joiningAnnouncement(name string) string {
	if name == "" {
		name = "A staff member"
	}
	return name + " is joining this call."
}

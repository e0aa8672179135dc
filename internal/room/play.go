// internal/room/play.go
package room

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/taverna/internal/game"
	"github.com/jason-s-yu/taverna/internal/lobby"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/jason-s-yu/taverna/internal/narrator"
	"github.com/jason-s-yu/taverna/internal/provider"
	"github.com/sirupsen/logrus"
)

// SetReady toggles readiness of targetID (or of the actor when empty).
func (s *Service) SetReady(ctx context.Context, roomID uuid.UUID, actorID, targetID string, ready bool) error {
	_, _, err := s.mutate(ctx, roomID, actorID, func(room *models.Room, st *models.RoomState) (change, error) {
		if targetID == "" {
			targetID = actorID
		}
		if err := game.SetReady(st, actorID, targetID, ready, room.IsHost(actorID)); err != nil {
			return change{}, err
		}
		return change{Type: models.EventReadyChanged, Payload: map[string]any{"target": targetID, "ready": ready}}, nil
	})
	return err
}

// ToggleSimulatedReady flips a simulated participant's readiness. Host only.
func (s *Service) ToggleSimulatedReady(ctx context.Context, roomID uuid.UUID, actorID, participantID string) error {
	_, _, err := s.mutate(ctx, roomID, actorID, func(room *models.Room, st *models.RoomState) (change, error) {
		if err := game.ToggleSimulatedReady(st, room.IsHost(actorID), participantID); err != nil {
			return change{}, err
		}
		return change{Type: models.EventReadyChanged, Payload: map[string]any{"target": participantID, "ready": st.Ready[participantID]}}, nil
	})
	return err
}

// AddSimulated seats a simulated participant. Host only.
func (s *Service) AddSimulated(ctx context.Context, roomID uuid.UUID, actorID string) (models.Participant, error) {
	var p models.Participant
	_, _, err := s.mutate(ctx, roomID, actorID, func(room *models.Room, st *models.RoomState) (change, error) {
		var err error
		if p, err = game.AddSimulated(st, room.IsHost(actorID)); err != nil {
			return change{}, err
		}
		return change{Type: models.EventParticipantJoined, Payload: map[string]any{"name": p.DisplayName, "simulated": true}}, nil
	})
	return p, err
}

// StartCampaign moves a ready lobby to synchronizing, waits for the settle
// delay and then opens refinement. The call blocks for the whole delay.
func (s *Service) StartCampaign(ctx context.Context, roomID uuid.UUID, actorID string) error {
	_, _, err := s.mutate(ctx, roomID, actorID, func(room *models.Room, st *models.RoomState) (change, error) {
		campaign, err := s.store.GetCampaign(ctx, roomID)
		if err != nil {
			return change{}, err
		}
		chars, err := s.store.ListCharacters(ctx, roomID)
		if err != nil {
			return change{}, err
		}
		checklist := lobby.ComputeChecklist(st, campaign, models.CountApproved(chars))
		if err := game.StartCampaign(st, checklist, room.IsHost(actorID)); err != nil {
			return change{}, err
		}
		return change{Type: models.EventPhaseChanged, Payload: map[string]any{"phase": st.Phase}}, nil
	})
	if err != nil {
		return err
	}
	s.log(roomID, actorID).Info("campaign starting")

	timer := time.NewTimer(s.opts.SettleDelay)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	// The room must not stay in synchronizing if the caller went away.
	_, _, err = s.mutate(context.WithoutCancel(ctx), roomID, actorID, func(_ *models.Room, st *models.RoomState) (change, error) {
		if st.Phase != models.PhaseSynchronizing {
			return change{}, nil
		}
		if err := game.EnterRefinement(st, game.RefinementQuestions()); err != nil {
			return change{}, err
		}
		return change{Type: models.EventPhaseChanged, Payload: map[string]any{"phase": st.Phase}}, nil
	})
	return err
}

// SetRefinementAnswer stores a participant's answer to a clarifying question.
func (s *Service) SetRefinementAnswer(ctx context.Context, roomID uuid.UUID, actorID string, index int, answer string) error {
	_, _, err := s.mutate(ctx, roomID, actorID, func(_ *models.Room, st *models.RoomState) (change, error) {
		if err := game.SetRefinementAnswer(st, actorID, index, answer); err != nil {
			return change{}, err
		}
		return change{Type: models.EventRefinementAnswered, Payload: map[string]any{"index": index}}, nil
	})
	return err
}

// ConfirmRefinement starts play with the opening narration. Host only.
func (s *Service) ConfirmRefinement(ctx context.Context, roomID uuid.UUID, actorID string) (models.GameMessage, error) {
	var intro models.GameMessage
	_, _, err := s.mutate(ctx, roomID, actorID, func(room *models.Room, st *models.RoomState) (change, error) {
		var err error
		if intro, err = game.ConfirmRefinement(st, room.IsHost(actorID), game.IntroNarrative, s.now()); err != nil {
			return change{}, err
		}
		return change{Type: models.EventPhaseChanged, Payload: map[string]any{"phase": st.Phase, "turn": st.CurrentTurn()}}, nil
	})
	return intro, err
}

// Submit appends player input from the turn holder.
func (s *Service) Submit(ctx context.Context, roomID uuid.UUID, actorID string, kind models.MessageKind, content string) (models.GameMessage, error) {
	var msg models.GameMessage
	_, _, err := s.mutate(ctx, roomID, actorID, func(_ *models.Room, st *models.RoomState) (change, error) {
		var err error
		if msg, err = game.SubmitMessage(st, actorID, kind, content, s.now()); err != nil {
			return change{}, err
		}
		return change{Type: models.EventMessageAppended, Payload: map[string]any{"id": msg.ID, "kind": msg.Kind}}, nil
	})
	return msg, err
}

// PassTurn is the host override: the turn goes to targetID unconditionally.
func (s *Service) PassTurn(ctx context.Context, roomID uuid.UUID, actorID, targetID string) error {
	_, _, err := s.mutate(ctx, roomID, actorID, func(room *models.Room, st *models.RoomState) (change, error) {
		if err := game.PassTurn(st, room.IsHost(actorID), targetID); err != nil {
			return change{}, err
		}
		return change{Type: models.EventTurnPassed, Payload: map[string]any{"turn": st.CurrentTurn()}}, nil
	})
	return err
}

// TurnResult reports how a finalized turn was resolved.
type TurnResult struct {
	Narrative    models.GameMessage `json:"narrative"`
	NextPlayerID string             `json:"nextPlayerId"`
	ModelUsed    string             `json:"modelUsed,omitempty"`
	Fallback     bool               `json:"fallback"`
}

// FinalizeTurn hands the turn holder's input to the narrator and advances the
// turn. The room lock is not held during the model call; the busy flag keeps
// the turn closed meanwhile and is cleared on every exit path.
func (s *Service) FinalizeTurn(ctx context.Context, roomID uuid.UUID, actorID, callAPIKey string) (*TurnResult, error) {
	var snap game.TurnSnapshot
	_, _, err := s.mutate(ctx, roomID, actorID, func(_ *models.Room, st *models.RoomState) (change, error) {
		var err error
		if snap, err = game.BeginFinalize(st, actorID); err != nil {
			return change{}, err
		}
		return change{Type: models.EventNarratorStarted}, nil
	})
	if err != nil {
		return nil, err
	}

	persistCtx := context.WithoutCancel(ctx)
	completed := false
	defer func() {
		if completed {
			return
		}
		_, _, abortErr := s.mutate(persistCtx, roomID, actorID, func(_ *models.Room, st *models.RoomState) (change, error) {
			game.AbortFinalize(st)
			return change{Type: models.EventTurnFinalized, Payload: map[string]any{"aborted": true}}, nil
		})
		if abortErr != nil {
			s.log(roomID, actorID).WithError(abortErr).Error("failed to clear narrator flag")
		}
	}()

	narrative, modelUsed, fallback := s.narrate(ctx, roomID, actorID, snap, callAPIKey)

	res := &TurnResult{ModelUsed: modelUsed, Fallback: fallback}
	_, _, err = s.mutate(persistCtx, roomID, actorID, func(_ *models.Room, st *models.RoomState) (change, error) {
		res.Narrative = game.CompleteFinalize(st, snap.TurnHolder, narrative, s.now())
		res.NextPlayerID = st.CurrentTurn()
		return change{Type: models.EventTurnFinalized, Payload: map[string]any{"next": res.NextPlayerID, "fallback": fallback}}, nil
	})
	if err != nil {
		return nil, err
	}
	completed = true
	return res, nil
}

// narrate asks the configured model for narration and falls back to the
// simulated narrative when there is no key or the call fails. It never fails.
func (s *Service) narrate(ctx context.Context, roomID uuid.UUID, actorID string, snap game.TurnSnapshot, callAPIKey string) (string, string, bool) {
	fallback := game.SimulatedNarrative(snap.LastContent, snap.PlayerName)
	logger := s.log(roomID, actorID)

	campaign, err := s.store.GetCampaign(ctx, roomID)
	if err != nil {
		logger.WithError(err).Warn("campaign unavailable, using fallback narrative")
		return fallback, "", true
	}

	settings := campaign.AI
	if strings.TrimSpace(settings.Provider) == "" {
		settings.Provider = s.opts.DefaultProvider
	}
	settings = provider.ResolveSettings(settings)

	key := strings.TrimSpace(callAPIKey)
	if key == "" {
		key = s.keys.Get(roomID)
	}
	if key == "" {
		key = s.opts.ServerAPIKey
	}
	if key == "" {
		logger.Debug("no api key configured, using fallback narrative")
		return fallback, "", true
	}

	transcript := narrator.TailLimit(snap.Transcript, s.opts.HistoryLimit)
	msgs := narrator.BuildContext(transcript, campaign.RulesAuthority, snap.Roster)

	res, err := s.gen.Generate(ctx, msgs, key, settings.Model, settings.Provider)
	if err != nil {
		entry := logger.WithFields(logrus.Fields{"provider": settings.Provider, "model": res.ModelUsed})
		var perr *provider.ProviderError
		if errors.As(err, &perr) {
			entry = entry.WithFields(logrus.Fields{"provider": perr.Provider, "model": perr.Model, "status": perr.Status})
		}
		entry.WithError(err).Warn("narrator call failed, using fallback narrative")
		return fallback, res.ModelUsed, true
	}
	if res.ModelUsed != "" && res.ModelUsed != settings.Model {
		logger.WithFields(logrus.Fields{"requested": settings.Model, "used": res.ModelUsed}).Info("vendor substituted model")
	}
	return res.Narrative, res.ModelUsed, false
}

